package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwestra/aurora/internal/errs"
	"github.com/mwestra/aurora/internal/models"
	"github.com/mwestra/aurora/internal/palette"
)

type memoryAppearanceRepo struct {
	mu       sync.Mutex
	palettes map[uuid.UUID]*models.Palette
	active   map[uuid.UUID]models.ActivePalette
}

func newMemoryAppearanceRepo() *memoryAppearanceRepo {
	return &memoryAppearanceRepo{
		palettes: make(map[uuid.UUID]*models.Palette),
		active:   make(map[uuid.UUID]models.ActivePalette),
	}
}

func (r *memoryAppearanceRepo) CreatePalette(_ context.Context, p *models.Palette) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.palettes {
		if existing.UserID == p.UserID && existing.Name == p.Name {
			return errs.ErrAlreadyExists
		}
	}
	copied := *p
	r.palettes[p.ID] = &copied
	return nil
}

func (r *memoryAppearanceRepo) UpdatePalette(_ context.Context, p *models.Palette) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.palettes[p.ID]
	if !ok || existing.UserID != p.UserID {
		return errs.ErrNotFound
	}
	for _, other := range r.palettes {
		if other.UserID == p.UserID && other.ID != p.ID && other.Name == p.Name {
			return errs.ErrAlreadyExists
		}
	}
	existing.Name = p.Name
	existing.Seeds = p.Seeds
	existing.UpdatedAt = p.UpdatedAt
	return nil
}

func (r *memoryAppearanceRepo) GetPalette(_ context.Context, userID, id uuid.UUID) (*models.Palette, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.palettes[id]
	if !ok || p.UserID != userID {
		return nil, errs.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *memoryAppearanceRepo) ListPalettes(_ context.Context, userID uuid.UUID) ([]models.Palette, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Palette
	for _, p := range r.palettes {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memoryAppearanceRepo) GetActivePalette(_ context.Context, userID uuid.UUID) (*models.ActivePalette, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sel, ok := r.active[userID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &sel, nil
}

func (r *memoryAppearanceRepo) SetActivePalette(_ context.Context, userID uuid.UUID, sel models.ActivePalette) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active[userID] = sel
	return nil
}

func testSeeds() models.PaletteSeeds {
	return models.PaletteSeeds{
		Background: "#1a1b26",
		Text:       "#a9b1d6",
		Primary:    "#9ece6a",
		Secondary:  "#7aa2f7",
		Accent:     "#bb9af7",
		Success:    "#9ece6a",
		Warning:    "#e0af68",
		Danger:     "#f7768e",
		Info:       "#7dcfff",
		Neutral:    "#565f89",
	}
}

func TestAppearanceGet_DefaultWhenNothingStored(t *testing.T) {
	svc := NewAppearanceService(newMemoryAppearanceRepo())

	active, palettes, err := svc.Get(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Empty(t, palettes)
	assert.Equal(t, models.SelectionPreset, active.Type)
	assert.Equal(t, palette.DefaultPreset, active.Preset)
}

func TestAppearanceGet_NormalizesLegacyPreset(t *testing.T) {
	repo := newMemoryAppearanceRepo()
	svc := NewAppearanceService(repo)
	userID := uuid.New()

	repo.active[userID] = models.ActivePalette{Type: models.SelectionPreset, Preset: "sunset"}

	active, _, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "catppuccin", active.Preset)
}

func TestAppearanceGet_StaleCustomFallsBackToDefault(t *testing.T) {
	repo := newMemoryAppearanceRepo()
	svc := NewAppearanceService(repo)
	userID := uuid.New()

	repo.active[userID] = models.ActivePalette{Type: models.SelectionCustom, CustomID: uuid.New()}

	active, _, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, models.SelectionPreset, active.Type)
	assert.Equal(t, palette.DefaultPreset, active.Preset)
	assert.Equal(t, uuid.Nil, active.CustomID)
}

func TestAppearanceGet_FillsTokens(t *testing.T) {
	repo := newMemoryAppearanceRepo()
	svc := NewAppearanceService(repo)
	userID := uuid.New()

	created, _, err := svc.CreatePalette(context.Background(), userID, "Night", testSeeds())
	require.NoError(t, err)

	active, palettes, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, palettes, 1)
	assert.Equal(t, created.ID, active.CustomID)
	assert.Equal(t, "158, 206, 106", palettes[0].Tokens["primary_100"])
	assert.Len(t, palettes[0].Tokens, 28)
}

func TestSetActive(t *testing.T) {
	repo := newMemoryAppearanceRepo()
	svc := NewAppearanceService(repo)
	ctx := context.Background()
	userID := uuid.New()

	_, err := svc.SetActive(ctx, userID, models.ActivePalette{Type: models.SelectionPreset, Preset: "no-such-preset"})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = svc.SetActive(ctx, userID, models.ActivePalette{Type: models.SelectionCustom, CustomID: uuid.New()})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	// Failed selections must not clobber the stored one.
	_, ok := repo.active[userID]
	assert.False(t, ok)

	sel, err := svc.SetActive(ctx, userID, models.ActivePalette{Type: models.SelectionPreset, Preset: "nord", CustomID: uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, "nord", sel.Preset)
	assert.Equal(t, uuid.Nil, sel.CustomID)

	created, _, err := svc.CreatePalette(ctx, userID, "Mine", testSeeds())
	require.NoError(t, err)

	sel, err = svc.SetActive(ctx, userID, models.ActivePalette{Type: models.SelectionCustom, Preset: "nord", CustomID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, models.SelectionCustom, sel.Type)
	assert.Empty(t, sel.Preset)
}

func TestCreatePalette(t *testing.T) {
	repo := newMemoryAppearanceRepo()
	svc := NewAppearanceService(repo)
	ctx := context.Background()
	userID := uuid.New()

	created, sel, err := svc.CreatePalette(ctx, userID, "  Night  ", testSeeds())
	require.NoError(t, err)
	assert.Equal(t, "Night", created.Name)
	assert.Equal(t, palette.GeneratorVersion, created.GeneratorVersion)
	assert.Len(t, created.Tokens, 28)

	// Creation makes the new palette active.
	assert.Equal(t, models.SelectionCustom, sel.Type)
	assert.Equal(t, created.ID, sel.CustomID)
	assert.Equal(t, sel, repo.active[userID])

	_, _, err = svc.CreatePalette(ctx, userID, "Night", testSeeds())
	assert.ErrorIs(t, err, errs.ErrAlreadyExists)

	seeds := testSeeds()
	seeds.Primary = "not-a-color"
	_, _, err = svc.CreatePalette(ctx, userID, "Broken", seeds)
	assert.Error(t, err)
}

func TestUpdatePalette(t *testing.T) {
	repo := newMemoryAppearanceRepo()
	svc := NewAppearanceService(repo)
	ctx := context.Background()
	userID := uuid.New()

	created, _, err := svc.CreatePalette(ctx, userID, "Night", testSeeds())
	require.NoError(t, err)

	seeds := testSeeds()
	seeds.Primary = "#ff0000"
	updated, err := svc.UpdatePalette(ctx, userID, created.ID, "Day", seeds)
	require.NoError(t, err)
	assert.Equal(t, "Day", updated.Name)
	assert.Equal(t, "255, 0, 0", updated.Tokens["primary_100"])

	// The creation time survives the update round trip.
	assert.False(t, updated.CreatedAt.IsZero())
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	_, err = svc.UpdatePalette(ctx, userID, uuid.New(), "Ghost", testSeeds())
	assert.ErrorIs(t, err, errs.ErrNotFound)

	// A palette belonging to someone else is not reachable.
	_, err = svc.UpdatePalette(ctx, uuid.New(), created.ID, "Steal", testSeeds())
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
