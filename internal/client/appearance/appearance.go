// Package appearance resolves the effective theme and color palette from
// the stored preference, the live system preference, and (when logged in)
// the server's palette state, and applies the result to a render target.
package appearance

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mwestra/aurora/internal/models"
	"github.com/mwestra/aurora/internal/palette"
)

// Mode is the stored theme preference.
type Mode string

const (
	ModeSystem Mode = "system"
	ModeLight  Mode = "light"
	ModeDark   Mode = "dark"
)

// Theme is a resolved theme. "system" is never a resolved value.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ResolveTheme collapses a mode against the live system theme.
func ResolveTheme(mode Mode, system Theme) Theme {
	if mode == ModeSystem {
		return system
	}
	return Theme(mode)
}

// Preference is the persisted theme/palette choice.
type Preference struct {
	Mode    Mode   `json:"mode"`
	Palette string `json:"palette,omitempty"`
}

func defaultPreference() Preference {
	return Preference{Mode: ModeSystem, Palette: palette.DefaultPreset}
}

// Storage persists the preference blob. Implementations return errors;
// the resolver decides which to discard.
type Storage interface {
	Load() ([]byte, error)
	Save(data []byte) error
}

// LoadPreference reads the stored preference. Missing, unreadable, or
// malformed storage and unknown modes all yield the defaults; legacy
// palette names are remapped. Never fails.
func LoadPreference(s Storage) Preference {
	def := defaultPreference()

	data, err := s.Load()
	if err != nil || len(data) == 0 {
		return def
	}

	var pref Preference
	if err := json.Unmarshal(data, &pref); err != nil {
		return def
	}
	switch pref.Mode {
	case ModeSystem, ModeLight, ModeDark:
	default:
		return def
	}
	pref.Palette = palette.NormalizePreset(pref.Palette)
	return pref
}

// SystemThemeSource exposes the OS-level light/dark preference: a
// synchronous read and a change subscription.
type SystemThemeSource interface {
	Current() Theme
	// Subscribe registers fn for changes and returns a cancel func.
	Subscribe(fn func(Theme)) (cancel func())
}

// RenderTarget receives the resolved theme, active palette name, and
// custom-palette CSS variables.
type RenderTarget interface {
	SetTheme(theme Theme)
	SetPalette(name string)
	SetTokens(vars map[string]string)
	ClearTokens()
}

// API is the server surface used when a session is active.
type API interface {
	Appearance(ctx context.Context) (models.ActivePalette, []models.Palette, error)
	SetActivePalette(ctx context.Context, sel models.ActivePalette) (models.ActivePalette, error)
	CreatePalette(ctx context.Context, name string, seeds models.PaletteSeeds) (*models.Palette, models.ActivePalette, error)
	UpdatePalette(ctx context.Context, id uuid.UUID, name string, seeds models.PaletteSeeds) (*models.Palette, error)
}

// Palette selection errors surfaced to the caller.
var (
	ErrUnknownPalette = errors.New("unknown custom palette")
	ErrDuplicateName  = errors.New("palette name already in use")
)

// Resolver is the single writer of the appearance state. All methods are
// safe for concurrent use.
type Resolver struct {
	api     API
	storage Storage
	target  RenderTarget
	system  SystemThemeSource

	mu          sync.Mutex
	pref        Preference
	systemTheme Theme
	cancelSub   func()

	serverMode bool
	palettes   []models.Palette
	active     models.ActivePalette
}

// New loads the stored preference, reads the current system theme, and
// applies the initial state. api may be nil for a purely local client.
func New(api API, storage Storage, target RenderTarget, system SystemThemeSource) *Resolver {
	r := &Resolver{
		api:     api,
		storage: storage,
		target:  target,
		system:  system,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pref = LoadPreference(storage)
	r.systemTheme = system.Current()
	r.active = models.ActivePalette{Type: models.SelectionPreset, Preset: r.pref.Palette}
	if r.pref.Mode == ModeSystem {
		r.subscribeLocked()
	}
	r.applyLocked()
	return r
}

// Theme returns the resolved theme.
func (r *Resolver) Theme() Theme {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ResolveTheme(r.pref.Mode, r.systemTheme)
}

// Mode returns the stored mode preference.
func (r *Resolver) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pref.Mode
}

// ActivePalette returns the current selection.
func (r *Resolver) ActivePalette() models.ActivePalette {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Palettes returns a copy of the known custom palettes.
func (r *Resolver) Palettes() []models.Palette {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Palette, len(r.palettes))
	copy(out, r.palettes)
	return out
}

// SetMode updates the theme mode, managing the system-theme subscription:
// it is installed only while mode is system, and the system theme is
// re-read before resubscribing so a change made while unsubscribed is not
// missed.
func (r *Resolver) SetMode(mode Mode) error {
	switch mode {
	case ModeSystem, ModeLight, ModeDark:
	default:
		return errors.New("unknown theme mode")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.pref.Mode = mode
	if mode == ModeSystem {
		r.systemTheme = r.system.Current()
		r.subscribeLocked()
	} else {
		r.unsubscribeLocked()
	}

	r.persistLocked()
	r.applyLocked()
	return nil
}

// SelectPreset makes a shipped preset the active palette.
func (r *Resolver) SelectPreset(ctx context.Context, name string) error {
	if !palette.IsPreset(name) {
		return ErrUnknownPalette
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sel := models.ActivePalette{Type: models.SelectionPreset, Preset: name}
	if r.serverMode {
		normalized, err := r.api.SetActivePalette(ctx, sel)
		if err != nil {
			return err
		}
		sel = normalized
	}

	r.active = sel
	r.pref.Palette = sel.Preset
	r.persistLocked()
	r.applyLocked()
	return nil
}

// SelectCustom makes a known custom palette the active one. The id must
// be present in the current palette set; an unknown id fails before any
// state changes.
func (r *Resolver) SelectCustom(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findPaletteLocked(id) == nil {
		return ErrUnknownPalette
	}

	sel := models.ActivePalette{Type: models.SelectionCustom, CustomID: id}
	if r.serverMode {
		normalized, err := r.api.SetActivePalette(ctx, sel)
		if err != nil {
			return err
		}
		sel = normalized
	}

	r.active = sel
	r.applyLocked()
	return nil
}

// CreatePalette adds a custom palette and makes it active. Logged in, the
// server owns the record; otherwise an equivalent record is synthesized
// locally so rendering is path-independent.
func (r *Resolver) CreatePalette(ctx context.Context, name string, seeds models.PaletteSeeds) (*models.Palette, error) {
	name = strings.TrimSpace(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.serverMode {
		created, active, err := r.api.CreatePalette(ctx, name, seeds)
		if err != nil {
			return nil, err
		}
		r.palettes = append(r.palettes, *created)
		r.active = active
		r.applyLocked()
		return created, nil
	}

	for _, p := range r.palettes {
		if p.Name == name {
			return nil, ErrDuplicateName
		}
	}
	tokens, err := palette.Generate(palette.FromModel(seeds))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	created := models.Palette{
		ID:               uuid.New(),
		Name:             name,
		Seeds:            seeds,
		Tokens:           tokens,
		GeneratorVersion: palette.GeneratorVersion,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	r.palettes = append(r.palettes, created)
	r.active = models.ActivePalette{Type: models.SelectionCustom, CustomID: created.ID}
	r.applyLocked()
	return &created, nil
}

// UpdatePalette re-submits name and seeds for an existing palette.
func (r *Resolver) UpdatePalette(ctx context.Context, id uuid.UUID, name string, seeds models.PaletteSeeds) (*models.Palette, error) {
	name = strings.TrimSpace(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.findPaletteLocked(id)
	if existing == nil {
		return nil, ErrUnknownPalette
	}

	if r.serverMode {
		updated, err := r.api.UpdatePalette(ctx, id, name, seeds)
		if err != nil {
			return nil, err
		}
		*existing = *updated
		r.applyLocked()
		return updated, nil
	}

	tokens, err := palette.Generate(palette.FromModel(seeds))
	if err != nil {
		return nil, err
	}
	existing.Name = name
	existing.Seeds = seeds
	existing.Tokens = tokens
	existing.UpdatedAt = time.Now()
	r.applyLocked()
	copied := *existing
	return &copied, nil
}

// HandleLogin switches to server-authoritative state: the fetched active
// selection is normalized against the fetched palette list, and a preset
// selection is written back to the local preference.
func (r *Resolver) HandleLogin(ctx context.Context) error {
	active, palettes, err := r.api.Appearance(ctx)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.serverMode = true
	r.palettes = palettes

	if active.Type == models.SelectionCustom && r.findPaletteLocked(active.CustomID) == nil {
		active = models.ActivePalette{Type: models.SelectionPreset, Preset: palette.DefaultPreset}
	}
	if active.Type == models.SelectionPreset {
		active.Preset = palette.NormalizePreset(active.Preset)
		r.pref.Palette = active.Preset
		r.persistLocked()
	}
	r.active = active
	r.applyLocked()
	return nil
}

// HandleLogout discards server-sourced palettes and falls back to the
// locally persisted preference.
func (r *Resolver) HandleLogout() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.serverMode = false
	r.palettes = nil
	r.active = models.ActivePalette{Type: models.SelectionPreset, Preset: r.pref.Palette}
	r.applyLocked()
}

func (r *Resolver) findPaletteLocked(id uuid.UUID) *models.Palette {
	for i := range r.palettes {
		if r.palettes[i].ID == id {
			return &r.palettes[i]
		}
	}
	return nil
}

// persistLocked writes the preference. Storage failures are discarded;
// the in-memory state is authoritative for this run.
func (r *Resolver) persistLocked() {
	data, err := json.Marshal(r.pref)
	if err != nil {
		return
	}
	_ = r.storage.Save(data)
}

// applyLocked pushes the resolved theme and palette to the render target.
// Custom-palette tokens are applied as CSS variables and removed
// wholesale when a custom palette is deselected.
func (r *Resolver) applyLocked() {
	r.target.SetTheme(ResolveTheme(r.pref.Mode, r.systemTheme))

	if r.active.Type == models.SelectionCustom {
		if p := r.findPaletteLocked(r.active.CustomID); p != nil {
			r.target.SetPalette("custom")
			r.target.SetTokens(cssVariables(p.Tokens))
			return
		}
	}
	r.target.ClearTokens()
	r.target.SetPalette(r.active.Preset)
}

func (r *Resolver) subscribeLocked() {
	if r.cancelSub != nil {
		return
	}
	r.cancelSub = r.system.Subscribe(r.onSystemChange)
}

func (r *Resolver) unsubscribeLocked() {
	if r.cancelSub != nil {
		r.cancelSub()
		r.cancelSub = nil
	}
}

func (r *Resolver) onSystemChange(theme Theme) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.systemTheme = theme
	if r.pref.Mode == ModeSystem {
		r.applyLocked()
	}
}

// cssVariables maps the generated token set onto CSS custom property
// names.
func cssVariables(tokens map[string]string) map[string]string {
	vars := make(map[string]string, len(tokens))
	for name, value := range tokens {
		vars[palette.VarName(name)] = value
	}
	return vars
}
