package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mwestra/aurora/internal/errs"
	"github.com/mwestra/aurora/internal/middleware"
	"github.com/mwestra/aurora/internal/models"
	"github.com/mwestra/aurora/internal/palette"
)

// AppearanceService defines the appearance operations required by the
// HTTP handlers.
type AppearanceService interface {
	Get(ctx context.Context, userID uuid.UUID) (models.ActivePalette, []models.Palette, error)
	SetActive(ctx context.Context, userID uuid.UUID, sel models.ActivePalette) (models.ActivePalette, error)
	CreatePalette(ctx context.Context, userID uuid.UUID, name string, seeds models.PaletteSeeds) (*models.Palette, models.ActivePalette, error)
	UpdatePalette(ctx context.Context, userID, id uuid.UUID, name string, seeds models.PaletteSeeds) (*models.Palette, error)
}

// AppearanceHandler handles the /appearance endpoints. All routes require
// an authenticated user.
type AppearanceHandler struct {
	Service AppearanceService
}

// Get returns the active selection and the user's custom palettes.
func (h *AppearanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	active, palettes, err := h.Service.Get(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	if palettes == nil {
		palettes = []models.Palette{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"active_palette":  active,
		"custom_palettes": palettes,
	})
}

type activePaletteRequest struct {
	Type     models.SelectionType `json:"type"`
	Preset   string               `json:"preset"`
	CustomID uuid.UUID            `json:"custom_id"`
}

// SetActive persists a new active palette selection.
func (h *AppearanceHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req activePaletteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w)
		return
	}

	fields := map[string]string{}
	switch req.Type {
	case models.SelectionPreset:
		if req.Preset == "" {
			fields["preset"] = "preset is required"
		}
	case models.SelectionCustom:
		if req.CustomID == uuid.Nil {
			fields["custom_id"] = "custom_id is required"
		}
	default:
		fields["type"] = "type must be preset or custom"
	}
	if len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	sel, err := h.Service.SetActive(r.Context(), middleware.GetUserIDFromContext(r.Context()), models.ActivePalette{
		Type:     req.Type,
		Preset:   req.Preset,
		CustomID: req.CustomID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"active_palette": sel})
}

type paletteRequest struct {
	Name  string              `json:"name"`
	Seeds models.PaletteSeeds `json:"seeds"`
}

func (req *paletteRequest) validate() map[string]string {
	fields := map[string]string{}
	if strings.TrimSpace(req.Name) == "" {
		fields["name"] = "name is required"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// CreatePalette stores a new custom palette and makes it active.
func (h *AppearanceHandler) CreatePalette(w http.ResponseWriter, r *http.Request) {
	var req paletteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w)
		return
	}
	if fields := req.validate(); fields != nil {
		writeValidationError(w, fields)
		return
	}

	created, active, err := h.Service.CreatePalette(r.Context(), middleware.GetUserIDFromContext(r.Context()), req.Name, req.Seeds)
	if err != nil {
		if isSeedError(err) {
			writeValidationError(w, map[string]string{"seeds": err.Error()})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"palette":        created,
		"active_palette": active,
	})
}

// UpdatePalette re-submits name and seeds for an existing palette.
func (h *AppearanceHandler) UpdatePalette(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, errs.ErrNotFound)
		return
	}

	var req paletteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w)
		return
	}
	if fields := req.validate(); fields != nil {
		writeValidationError(w, fields)
		return
	}

	updated, err := h.Service.UpdatePalette(r.Context(), middleware.GetUserIDFromContext(r.Context()), id, req.Name, req.Seeds)
	if err != nil {
		if isSeedError(err) {
			writeValidationError(w, map[string]string{"seeds": err.Error()})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"palette": updated})
}

// isSeedError reports whether err came from parsing seed colors rather
// than from persistence.
func isSeedError(err error) bool {
	return errors.Is(err, palette.ErrInvalidSeed)
}
