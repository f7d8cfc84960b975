// Package palette implements deterministic color token generation for
// custom palettes, plus the preset palette registry shared by client and
// server.
package palette

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mwestra/aurora/internal/models"
)

// ErrInvalidSeed marks seed colors that are not six-digit hex values.
var ErrInvalidSeed = errors.New("invalid seed color")

// GeneratorVersion is stamped on every generated token set so stored
// palettes can be regenerated when the shading formula changes.
const GeneratorVersion = 1

// Preset palette identifiers shipped with the application.
const (
	PresetTokyoNight = "tokyo-night"
	PresetCatppuccin = "catppuccin"
	PresetEverforest = "everforest"
	PresetGruvbox    = "gruvbox"
	PresetNord       = "nord"
	PresetRosePine   = "rose-pine"
)

// DefaultPreset is applied when no preference is stored or a stored
// reference cannot be resolved.
const DefaultPreset = PresetTokyoNight

// Presets lists all valid preset identifiers.
var Presets = []string{
	PresetTokyoNight,
	PresetCatppuccin,
	PresetEverforest,
	PresetGruvbox,
	PresetNord,
	PresetRosePine,
}

// legacyNames maps preset identifiers from older releases to their
// current names. Applied when loading stored preferences.
var legacyNames = map[string]string{
	"default": PresetTokyoNight,
	"sunset":  PresetCatppuccin,
	"forest":  PresetEverforest,
}

// IsPreset reports whether id names a shipped preset palette.
func IsPreset(id string) bool {
	for _, p := range Presets {
		if p == id {
			return true
		}
	}
	return false
}

// NormalizePreset maps legacy preset names to current ones and falls back
// to DefaultPreset for anything unknown.
func NormalizePreset(id string) string {
	if renamed, ok := legacyNames[id]; ok {
		return renamed
	}
	if IsPreset(id) {
		return id
	}
	return DefaultPreset
}

// accentSeeds lists the seeds that receive the three-shade treatment, in
// the fixed order tokens are generated.
var accentSeeds = []string{
	"primary", "secondary", "accent", "success",
	"warning", "danger", "info", "neutral",
}

// RGB is a color as integer channels in [0,255].
type RGB struct {
	R, G, B int
}

// String renders the color as "R, G, B", the exact form used as a CSS
// custom property value.
func (c RGB) String() string {
	return fmt.Sprintf("%d, %d, %d", c.R, c.G, c.B)
}

// ParseHex parses a six-digit hex color of the form "#rrggbb".
func ParseHex(s string) (RGB, error) {
	if len(s) != 7 || s[0] != '#' {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidSeed, s)
	}
	var c RGB
	if _, err := fmt.Sscanf(strings.ToLower(s[1:]), "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidSeed, s)
	}
	return c, nil
}

// mixTowardWhite blends each channel toward 255 by ratio p in [0,1],
// rounding to the nearest integer and clamping to [0,255].
func mixTowardWhite(c RGB, p float64) RGB {
	mix := func(ch int) int {
		v := int(math.Round(float64(ch) + (255-float64(ch))*p))
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		return v
	}
	return RGB{R: mix(c.R), G: mix(c.G), B: mix(c.B)}
}

// Seeds is the input to token generation: ten named six-digit hex colors.
type Seeds struct {
	Background string
	Text       string
	Primary    string
	Secondary  string
	Accent     string
	Success    string
	Warning    string
	Danger     string
	Info       string
	Neutral    string
}

// FromModel converts the wire/storage seed record into generator input.
func FromModel(m models.PaletteSeeds) Seeds {
	return Seeds{
		Background: m.Background,
		Text:       m.Text,
		Primary:    m.Primary,
		Secondary:  m.Secondary,
		Accent:     m.Accent,
		Success:    m.Success,
		Warning:    m.Warning,
		Danger:     m.Danger,
		Info:       m.Info,
		Neutral:    m.Neutral,
	}
}

// accent returns the accent seed hex by name.
func (s Seeds) accent(name string) string {
	switch name {
	case "primary":
		return s.Primary
	case "secondary":
		return s.Secondary
	case "accent":
		return s.Accent
	case "success":
		return s.Success
	case "warning":
		return s.Warning
	case "danger":
		return s.Danger
	case "info":
		return s.Info
	case "neutral":
		return s.Neutral
	}
	return ""
}

// Generate derives the fixed 28-token set from the ten seed colors.
//
// Each accent seed yields three shades: <seed>_100 is the unmixed color,
// <seed>_80 and <seed>_60 are 20% and 40% per-channel linear mixes toward
// white. Background and text yield a single unmixed shade each, duplicated
// under the aliases "white" (background) and "black" (text). Values are
// "R, G, B" strings. Identical input always produces identical output.
func Generate(seeds Seeds) (map[string]string, error) {
	tokens := make(map[string]string, 28)

	bg, err := ParseHex(seeds.Background)
	if err != nil {
		return nil, err
	}
	text, err := ParseHex(seeds.Text)
	if err != nil {
		return nil, err
	}
	tokens["background"] = bg.String()
	tokens["white"] = bg.String()
	tokens["text"] = text.String()
	tokens["black"] = text.String()

	for _, name := range accentSeeds {
		c, err := ParseHex(seeds.accent(name))
		if err != nil {
			return nil, err
		}
		tokens[name+"_100"] = c.String()
		tokens[name+"_80"] = mixTowardWhite(c, 0.2).String()
		tokens[name+"_60"] = mixTowardWhite(c, 0.4).String()
	}

	return tokens, nil
}

// TokenNames returns all 28 token keys in generation order.
func TokenNames() []string {
	names := []string{"background", "white", "text", "black"}
	for _, seed := range accentSeeds {
		names = append(names, seed+"_100", seed+"_80", seed+"_60")
	}
	return names
}

// VarName maps a token key to its CSS custom property name.
func VarName(token string) string {
	return "--color-" + strings.ReplaceAll(token, "_", "-")
}
