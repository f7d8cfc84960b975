package appearance

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwestra/aurora/internal/models"
	"github.com/mwestra/aurora/internal/palette"
)

type fakeStorage struct {
	data    []byte
	loadErr error
	saveErr error
	saves   int
}

func (s *fakeStorage) Load() ([]byte, error) {
	return s.data, s.loadErr
}

func (s *fakeStorage) Save(data []byte) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.data = data
	return nil
}

type fakeSystem struct {
	theme       Theme
	subscriber  func(Theme)
	subscribes  int
	cancels     int
	currentHits int
}

func (s *fakeSystem) Current() Theme {
	s.currentHits++
	return s.theme
}

func (s *fakeSystem) Subscribe(fn func(Theme)) func() {
	s.subscribes++
	s.subscriber = fn
	return func() {
		s.cancels++
		s.subscriber = nil
	}
}

// change simulates an OS theme switch, notifying only if subscribed.
func (s *fakeSystem) change(theme Theme) {
	s.theme = theme
	if s.subscriber != nil {
		s.subscriber(theme)
	}
}

type fakeTarget struct {
	theme   Theme
	palette string
	tokens  map[string]string
}

func (t *fakeTarget) SetTheme(theme Theme)             { t.theme = theme }
func (t *fakeTarget) SetPalette(name string)           { t.palette = name }
func (t *fakeTarget) SetTokens(vars map[string]string) { t.tokens = vars }
func (t *fakeTarget) ClearTokens()                     { t.tokens = nil }

type fakeAppearanceAPI struct {
	active   models.ActivePalette
	palettes []models.Palette
	err      error
}

func (f *fakeAppearanceAPI) Appearance(_ context.Context) (models.ActivePalette, []models.Palette, error) {
	return f.active, f.palettes, f.err
}

func (f *fakeAppearanceAPI) SetActivePalette(_ context.Context, sel models.ActivePalette) (models.ActivePalette, error) {
	if f.err != nil {
		return models.ActivePalette{}, f.err
	}
	return sel, nil
}

func (f *fakeAppearanceAPI) CreatePalette(_ context.Context, name string, seeds models.PaletteSeeds) (*models.Palette, models.ActivePalette, error) {
	if f.err != nil {
		return nil, models.ActivePalette{}, f.err
	}
	p := &models.Palette{ID: uuid.New(), Name: name, Seeds: seeds, GeneratorVersion: palette.GeneratorVersion}
	return p, models.ActivePalette{Type: models.SelectionCustom, CustomID: p.ID}, nil
}

func (f *fakeAppearanceAPI) UpdatePalette(_ context.Context, id uuid.UUID, name string, seeds models.PaletteSeeds) (*models.Palette, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Palette{ID: id, Name: name, Seeds: seeds}, nil
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

func newLocalResolver() (*Resolver, *fakeStorage, *fakeSystem, *fakeTarget) {
	storage := &fakeStorage{}
	system := &fakeSystem{theme: ThemeDark}
	target := &fakeTarget{}
	return New(nil, storage, target, system), storage, system, target
}

func TestResolveTheme(t *testing.T) {
	tests := []struct {
		mode   Mode
		system Theme
		want   Theme
	}{
		{ModeSystem, ThemeLight, ThemeLight},
		{ModeSystem, ThemeDark, ThemeDark},
		{ModeLight, ThemeDark, ThemeLight},
		{ModeDark, ThemeLight, ThemeDark},
	}
	for _, tt := range tests {
		if got := ResolveTheme(tt.mode, tt.system); got != tt.want {
			t.Errorf("ResolveTheme(%q, %q) = %q, want %q", tt.mode, tt.system, got, tt.want)
		}
	}
}

func TestLoadPreference(t *testing.T) {
	tests := []struct {
		name    string
		storage *fakeStorage
		want    Preference
	}{
		{
			name:    "empty storage",
			storage: &fakeStorage{},
			want:    Preference{Mode: ModeSystem, Palette: "tokyo-night"},
		},
		{
			name:    "load error",
			storage: &fakeStorage{loadErr: errors.New("quota")},
			want:    Preference{Mode: ModeSystem, Palette: "tokyo-night"},
		},
		{
			name:    "malformed JSON",
			storage: &fakeStorage{data: []byte("{nope")},
			want:    Preference{Mode: ModeSystem, Palette: "tokyo-night"},
		},
		{
			name:    "unknown mode",
			storage: &fakeStorage{data: []byte(`{"mode":"sepia","palette":"nord"}`)},
			want:    Preference{Mode: ModeSystem, Palette: "tokyo-night"},
		},
		{
			name:    "valid",
			storage: &fakeStorage{data: []byte(`{"mode":"dark","palette":"nord"}`)},
			want:    Preference{Mode: ModeDark, Palette: "nord"},
		},
		{
			name:    "legacy sunset",
			storage: &fakeStorage{data: []byte(`{"mode":"light","palette":"sunset"}`)},
			want:    Preference{Mode: ModeLight, Palette: "catppuccin"},
		},
		{
			name:    "legacy default",
			storage: &fakeStorage{data: []byte(`{"mode":"system","palette":"default"}`)},
			want:    Preference{Mode: ModeSystem, Palette: "tokyo-night"},
		},
		{
			name:    "legacy forest",
			storage: &fakeStorage{data: []byte(`{"mode":"system","palette":"forest"}`)},
			want:    Preference{Mode: ModeSystem, Palette: "everforest"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LoadPreference(tt.storage))
		})
	}
}

func TestPreference_PersistLoadRoundTrip(t *testing.T) {
	r, storage, _, _ := newLocalResolver()

	require.NoError(t, r.SetMode(ModeDark))
	require.NoError(t, r.SelectPreset(context.Background(), "nord"))

	assert.Equal(t, Preference{Mode: ModeDark, Palette: "nord"}, LoadPreference(storage))
}

func TestResolver_InitialState(t *testing.T) {
	storage := &fakeStorage{data: []byte(`{"mode":"dark","palette":"gruvbox"}`)}
	system := &fakeSystem{theme: ThemeLight}
	target := &fakeTarget{}
	r := New(nil, storage, target, system)

	assert.Equal(t, ThemeDark, r.Theme())
	assert.Equal(t, ThemeDark, target.theme)
	assert.Equal(t, "gruvbox", target.palette)
	// Non-system mode must not install a subscription.
	assert.Equal(t, 0, system.subscribes)
}

func TestSetMode_SystemSubscriptionLifecycle(t *testing.T) {
	r, _, system, target := newLocalResolver()

	// System mode at construction installs the subscription once.
	assert.Equal(t, 1, system.subscribes)
	assert.Equal(t, ThemeDark, target.theme)

	// OS change while subscribed re-resolves immediately.
	system.change(ThemeLight)
	assert.Equal(t, ThemeLight, r.Theme())
	assert.Equal(t, ThemeLight, target.theme)

	// Leaving system mode tears the subscription down.
	require.NoError(t, r.SetMode(ModeDark))
	assert.Equal(t, 1, system.cancels)
	assert.Equal(t, ThemeDark, target.theme)

	// OS flips while unsubscribed; the resolver must not observe it yet.
	system.change(ThemeDark)
	system.theme = ThemeLight
	assert.Equal(t, ThemeDark, r.Theme())

	// Switching back re-reads the current system state before
	// resubscribing, so the stale cached value is not used.
	require.NoError(t, r.SetMode(ModeSystem))
	assert.Equal(t, ThemeLight, r.Theme())
	assert.Equal(t, ThemeLight, target.theme)
	assert.Equal(t, 2, system.subscribes)
}

func TestSetMode_Unknown(t *testing.T) {
	r, _, _, _ := newLocalResolver()
	assert.Error(t, r.SetMode(Mode("sepia")))
}

func TestSetMode_StorageFailureSwallowed(t *testing.T) {
	r, storage, _, _ := newLocalResolver()
	storage.saveErr = errors.New("quota exceeded")

	require.NoError(t, r.SetMode(ModeLight))
	assert.Equal(t, ModeLight, r.Mode())
	assert.Greater(t, storage.saves, 0)
}

func TestSelectCustom_UnknownIDFailsBeforeMutation(t *testing.T) {
	r, _, _, target := newLocalResolver()
	before := r.ActivePalette()
	paletteBefore := target.palette

	err := r.SelectCustom(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrUnknownPalette)
	assert.Equal(t, before, r.ActivePalette())
	assert.Equal(t, paletteBefore, target.palette)
}

func TestCreatePalette_LocalOnly(t *testing.T) {
	r, _, _, target := newLocalResolver()

	created, err := r.CreatePalette(context.Background(), "Night", testSeeds())
	require.NoError(t, err)

	// Locally synthesized records carry the same schema as server ones.
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, palette.GeneratorVersion, created.GeneratorVersion)
	assert.Len(t, created.Tokens, 28)
	assert.Equal(t, "158, 206, 106", created.Tokens["primary_100"])

	// Creation activates the palette and applies its CSS variables.
	active := r.ActivePalette()
	assert.Equal(t, models.SelectionCustom, active.Type)
	assert.Equal(t, created.ID, active.CustomID)
	assert.Equal(t, "custom", target.palette)
	assert.Equal(t, "158, 206, 106", target.tokens["--color-primary-100"])

	_, err = r.CreatePalette(context.Background(), "Night", testSeeds())
	assert.ErrorIs(t, err, ErrDuplicateName)

	seeds := testSeeds()
	seeds.Primary = "oops"
	_, err = r.CreatePalette(context.Background(), "Broken", seeds)
	assert.ErrorIs(t, err, palette.ErrInvalidSeed)
}

func TestSelectPreset_ClearsCustomTokens(t *testing.T) {
	r, _, _, target := newLocalResolver()

	_, err := r.CreatePalette(context.Background(), "Night", testSeeds())
	require.NoError(t, err)
	require.NotNil(t, target.tokens)

	require.NoError(t, r.SelectPreset(context.Background(), "nord"))
	assert.Nil(t, target.tokens, "custom tokens must be removed wholesale on deselect")
	assert.Equal(t, "nord", target.palette)

	assert.ErrorIs(t, r.SelectPreset(context.Background(), "no-such"), ErrUnknownPalette)
}

func TestUpdatePalette_LocalOnly(t *testing.T) {
	r, _, _, target := newLocalResolver()

	created, err := r.CreatePalette(context.Background(), "Night", testSeeds())
	require.NoError(t, err)

	seeds := testSeeds()
	seeds.Primary = "#ff0000"
	updated, err := r.UpdatePalette(context.Background(), created.ID, "Day", seeds)
	require.NoError(t, err)
	assert.Equal(t, "Day", updated.Name)
	assert.Equal(t, "255, 0, 0", updated.Tokens["primary_100"])
	// Still active, so the render target sees the new tokens.
	assert.Equal(t, "255, 0, 0", target.tokens["--color-primary-100"])

	_, err = r.UpdatePalette(context.Background(), uuid.New(), "Ghost", seeds)
	assert.ErrorIs(t, err, ErrUnknownPalette)
}

func TestHandleLogin_NormalizesStaleCustomSelection(t *testing.T) {
	storage := &fakeStorage{}
	system := &fakeSystem{theme: ThemeDark}
	target := &fakeTarget{}
	api := &fakeAppearanceAPI{
		active: models.ActivePalette{Type: models.SelectionCustom, CustomID: uuid.New()},
	}
	r := New(api, storage, target, system)

	require.NoError(t, r.HandleLogin(context.Background()))

	active := r.ActivePalette()
	assert.Equal(t, models.SelectionPreset, active.Type)
	assert.Equal(t, palette.DefaultPreset, active.Preset)
	assert.Equal(t, palette.DefaultPreset, target.palette)
}

func TestHandleLogin_AdoptsServerState(t *testing.T) {
	p := models.Palette{ID: uuid.New(), Name: "Mine", Seeds: testSeeds(), Tokens: map[string]string{"primary_100": "158, 206, 106"}}
	api := &fakeAppearanceAPI{
		active:   models.ActivePalette{Type: models.SelectionCustom, CustomID: p.ID},
		palettes: []models.Palette{p},
	}
	storage := &fakeStorage{}
	system := &fakeSystem{theme: ThemeDark}
	target := &fakeTarget{}
	r := New(api, storage, target, system)

	require.NoError(t, r.HandleLogin(context.Background()))
	assert.Equal(t, p.ID, r.ActivePalette().CustomID)
	assert.Equal(t, "custom", target.palette)
	assert.Len(t, r.Palettes(), 1)
}

func TestHandleLogin_LegacyServerPresetWritesPreference(t *testing.T) {
	api := &fakeAppearanceAPI{
		active: models.ActivePalette{Type: models.SelectionPreset, Preset: "sunset"},
	}
	storage := &fakeStorage{}
	r := New(api, storage, &fakeTarget{}, &fakeSystem{theme: ThemeDark})

	require.NoError(t, r.HandleLogin(context.Background()))
	assert.Equal(t, "catppuccin", r.ActivePalette().Preset)
	assert.Equal(t, "catppuccin", LoadPreference(storage).Palette)
}

func TestHandleLogout_FallsBackToLocalPreference(t *testing.T) {
	p := models.Palette{ID: uuid.New(), Name: "Mine", Seeds: testSeeds(), Tokens: map[string]string{}}
	api := &fakeAppearanceAPI{
		active:   models.ActivePalette{Type: models.SelectionCustom, CustomID: p.ID},
		palettes: []models.Palette{p},
	}
	storage := &fakeStorage{data: []byte(`{"mode":"dark","palette":"rose-pine"}`)}
	target := &fakeTarget{}
	r := New(api, storage, target, &fakeSystem{theme: ThemeLight})

	require.NoError(t, r.HandleLogin(context.Background()))
	require.Equal(t, models.SelectionCustom, r.ActivePalette().Type)

	r.HandleLogout()
	active := r.ActivePalette()
	assert.Equal(t, models.SelectionPreset, active.Type)
	assert.Equal(t, "rose-pine", active.Preset)
	assert.Empty(t, r.Palettes())
	assert.Equal(t, "rose-pine", target.palette)
	assert.Nil(t, target.tokens)
}
