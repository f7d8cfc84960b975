// Package models defines the core data structures for users, sessions,
// one-time auth codes, and color palettes.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered user of the application.
type User struct {
	// ID is the unique identifier for the user.
	ID uuid.UUID `json:"id"`
	// FirstName is the user's first name.
	FirstName string `json:"first_name"`
	// LastName is the user's last name.
	LastName string `json:"last_name"`
	// Email is the user's email address (used for login, stored lowercase).
	Email string `json:"email"`
	// HashedPassword is the Argon2id password hash (never serialized).
	HashedPassword string `json:"-"`
	// EmailConfirmed reports whether the user has confirmed their email.
	EmailConfirmed bool `json:"email_confirmed"`
	// CreatedAt is the account creation timestamp.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is the last account update timestamp.
	UpdatedAt time.Time `json:"updated_at"`
}

// RefreshToken is a stored refresh session record. Only a SHA-256 hash of
// the token's jti is persisted; the signed JWT never touches the database.
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	Revoked   bool
	CreatedAt time.Time
}

// AuthCodeType determines the purpose of a one-time code.
type AuthCodeType string

const (
	// EmailConfirmation verifies a user's email address during sign-up.
	EmailConfirmation AuthCodeType = "email_confirmation"
	// PasswordReset allows a user to reset a forgotten password.
	PasswordReset AuthCodeType = "password_reset"
	// EmailChange verifies ownership of a new email before applying it.
	EmailChange AuthCodeType = "email_change"
)

// AuthCode is a time-limited one-time code. Codes are hashed before storage
// and consumed on first successful use.
type AuthCode struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CodeHash  string
	CodeType  AuthCodeType
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// PaletteSeeds holds the ten seed colors a custom palette is derived from,
// each a six-digit hex string like "#9ece6a".
type PaletteSeeds struct {
	Background string `json:"background"`
	Text       string `json:"text"`
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Accent     string `json:"accent"`
	Success    string `json:"success"`
	Warning    string `json:"warning"`
	Danger     string `json:"danger"`
	Info       string `json:"info"`
	Neutral    string `json:"neutral"`
}

// Palette is a user-authored color scheme. Tokens is the generated
// fixed-schema set of RGB triplets derived from Seeds.
type Palette struct {
	ID               uuid.UUID         `json:"id"`
	UserID           uuid.UUID         `json:"-"`
	Name             string            `json:"name"`
	Seeds            PaletteSeeds      `json:"seeds"`
	Tokens           map[string]string `json:"tokens"`
	GeneratorVersion int               `json:"generator_version"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// SelectionType discriminates an active palette selection.
type SelectionType string

const (
	// SelectionPreset points at a preset palette shipped with the app.
	SelectionPreset SelectionType = "preset"
	// SelectionCustom points at a user-authored palette by id.
	SelectionCustom SelectionType = "custom"
)

// ActivePalette is which palette (preset or custom) is currently applied.
type ActivePalette struct {
	Type SelectionType `json:"type"`
	// Preset is set when Type is SelectionPreset.
	Preset string `json:"preset,omitempty"`
	// CustomID is set when Type is SelectionCustom.
	CustomID uuid.UUID `json:"custom_id,omitempty"`
}
