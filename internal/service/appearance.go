package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mwestra/aurora/internal/errs"
	"github.com/mwestra/aurora/internal/models"
	"github.com/mwestra/aurora/internal/palette"
)

// AppearanceRepository defines the persistence operations required by the
// appearance service.
type AppearanceRepository interface {
	CreatePalette(ctx context.Context, p *models.Palette) error
	UpdatePalette(ctx context.Context, p *models.Palette) error
	GetPalette(ctx context.Context, userID, id uuid.UUID) (*models.Palette, error)
	ListPalettes(ctx context.Context, userID uuid.UUID) ([]models.Palette, error)
	GetActivePalette(ctx context.Context, userID uuid.UUID) (*models.ActivePalette, error)
	SetActivePalette(ctx context.Context, userID uuid.UUID, sel models.ActivePalette) error
}

// AppearanceService implements palette CRUD and active-selection handling.
type AppearanceService struct {
	repo AppearanceRepository
}

// NewAppearanceService constructs an AppearanceService.
func NewAppearanceService(repo AppearanceRepository) *AppearanceService {
	return &AppearanceService{repo: repo}
}

// Get returns the user's normalized active selection and custom palettes
// with generated tokens. A custom selection whose palette no longer exists
// is normalized to the default preset, never surfaced as an error.
func (s *AppearanceService) Get(ctx context.Context, userID uuid.UUID) (models.ActivePalette, []models.Palette, error) {
	palettes, err := s.repo.ListPalettes(ctx, userID)
	if err != nil {
		return models.ActivePalette{}, nil, err
	}
	for i := range palettes {
		if err := fillTokens(&palettes[i]); err != nil {
			return models.ActivePalette{}, nil, err
		}
	}

	active, err := s.repo.GetActivePalette(ctx, userID)
	if errors.Is(err, errs.ErrNotFound) {
		return defaultSelection(), palettes, nil
	}
	if err != nil {
		return models.ActivePalette{}, nil, err
	}

	return normalizeSelection(*active, palettes), palettes, nil
}

// SetActive validates and persists an active palette selection. A custom
// selection must reference one of the user's existing palettes.
func (s *AppearanceService) SetActive(ctx context.Context, userID uuid.UUID, sel models.ActivePalette) (models.ActivePalette, error) {
	switch sel.Type {
	case models.SelectionPreset:
		if !palette.IsPreset(sel.Preset) {
			return models.ActivePalette{}, errs.ErrNotFound
		}
		sel.CustomID = uuid.Nil
	case models.SelectionCustom:
		if _, err := s.repo.GetPalette(ctx, userID, sel.CustomID); err != nil {
			return models.ActivePalette{}, err
		}
		sel.Preset = ""
	default:
		return models.ActivePalette{}, errs.ErrNotFound
	}

	if err := s.repo.SetActivePalette(ctx, userID, sel); err != nil {
		return models.ActivePalette{}, err
	}
	return sel, nil
}

// CreatePalette stores a new custom palette from seed colors and makes it
// the active selection. Seeds are validated by generating the token set.
func (s *AppearanceService) CreatePalette(ctx context.Context, userID uuid.UUID, name string, seeds models.PaletteSeeds) (*models.Palette, models.ActivePalette, error) {
	name = strings.TrimSpace(name)

	tokens, err := palette.Generate(palette.FromModel(seeds))
	if err != nil {
		return nil, models.ActivePalette{}, err
	}

	now := time.Now()
	p := &models.Palette{
		ID:               uuid.New(),
		UserID:           userID,
		Name:             name,
		Seeds:            seeds,
		Tokens:           tokens,
		GeneratorVersion: palette.GeneratorVersion,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.CreatePalette(ctx, p); err != nil {
		return nil, models.ActivePalette{}, err
	}

	sel := models.ActivePalette{Type: models.SelectionCustom, CustomID: p.ID}
	if err := s.repo.SetActivePalette(ctx, userID, sel); err != nil {
		return nil, models.ActivePalette{}, err
	}
	return p, sel, nil
}

// UpdatePalette re-submits name and seeds for an existing palette. The
// stored record is read first so the response keeps its creation time.
func (s *AppearanceService) UpdatePalette(ctx context.Context, userID, id uuid.UUID, name string, seeds models.PaletteSeeds) (*models.Palette, error) {
	tokens, err := palette.Generate(palette.FromModel(seeds))
	if err != nil {
		return nil, err
	}

	p, err := s.repo.GetPalette(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	p.Name = strings.TrimSpace(name)
	p.Seeds = seeds
	p.Tokens = tokens
	p.GeneratorVersion = palette.GeneratorVersion
	p.UpdatedAt = time.Now()

	if err := s.repo.UpdatePalette(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func fillTokens(p *models.Palette) error {
	tokens, err := palette.Generate(palette.FromModel(p.Seeds))
	if err != nil {
		return err
	}
	p.Tokens = tokens
	return nil
}

func defaultSelection() models.ActivePalette {
	return models.ActivePalette{Type: models.SelectionPreset, Preset: palette.DefaultPreset}
}

// normalizeSelection resolves stale references: a custom selection must
// point at an existing palette and a preset must still be shipped.
func normalizeSelection(sel models.ActivePalette, palettes []models.Palette) models.ActivePalette {
	switch sel.Type {
	case models.SelectionCustom:
		for _, p := range palettes {
			if p.ID == sel.CustomID {
				return sel
			}
		}
		return defaultSelection()
	case models.SelectionPreset:
		sel.Preset = palette.NormalizePreset(sel.Preset)
		return sel
	default:
		return defaultSelection()
	}
}
