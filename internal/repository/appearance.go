package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/mwestra/aurora/internal/errs"
	"github.com/mwestra/aurora/internal/models"
)

// PostgresAppearanceRepository implements palette persistence on PostgreSQL.
type PostgresAppearanceRepository struct {
	DB *sql.DB
}

// NewPostgresAppearanceRepository creates a repository with the given
// database connection.
func NewPostgresAppearanceRepository(db *sql.DB) *PostgresAppearanceRepository {
	return &PostgresAppearanceRepository{DB: db}
}

// CreatePalette inserts a custom palette. Seeds are stored as JSONB; tokens
// are regenerated on read so the shading formula stays the single source of
// truth. Returns errs.ErrAlreadyExists when the user already has a palette
// with the same name.
func (r *PostgresAppearanceRepository) CreatePalette(ctx context.Context, p *models.Palette) error {
	seeds, err := json.Marshal(p.Seeds)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(
		ctx,
		`INSERT INTO palettes (id, user_id, name, seeds, generator_version)
		 VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.UserID, p.Name, seeds, p.GeneratorVersion,
	)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// UpdatePalette replaces the name and seeds of an existing palette owned by
// the user. Returns errs.ErrNotFound when the palette does not exist or
// belongs to someone else.
func (r *PostgresAppearanceRepository) UpdatePalette(ctx context.Context, p *models.Palette) error {
	seeds, err := json.Marshal(p.Seeds)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(
		ctx,
		`UPDATE palettes
		    SET name = $1, seeds = $2, generator_version = $3, updated_at = NOW()
		  WHERE id = $4 AND user_id = $5`,
		p.Name, seeds, p.GeneratorVersion, p.ID, p.UserID,
	)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errs.ErrNotFound
	}
	return nil
}

const paletteColumns = `id, user_id, name, seeds, generator_version, created_at, updated_at`

func scanPalette(scan func(dest ...any) error) (*models.Palette, error) {
	var p models.Palette
	var seeds []byte
	if err := scan(&p.ID, &p.UserID, &p.Name, &seeds, &p.GeneratorVersion, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(seeds, &p.Seeds); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPalette returns one palette owned by the user, or errs.ErrNotFound.
func (r *PostgresAppearanceRepository) GetPalette(ctx context.Context, userID, id uuid.UUID) (*models.Palette, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+paletteColumns+` FROM palettes WHERE id = $1 AND user_id = $2`, id, userID)
	p, err := scanPalette(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	return p, err
}

// ListPalettes returns the user's palettes ordered by creation time.
func (r *PostgresAppearanceRepository) ListPalettes(ctx context.Context, userID uuid.UUID) ([]models.Palette, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+paletteColumns+` FROM palettes WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var palettes []models.Palette
	for rows.Next() {
		p, err := scanPalette(rows.Scan)
		if err != nil {
			return nil, err
		}
		palettes = append(palettes, *p)
	}
	return palettes, rows.Err()
}

// GetActivePalette returns the user's active selection, or errs.ErrNotFound
// when none has been stored yet.
func (r *PostgresAppearanceRepository) GetActivePalette(ctx context.Context, userID uuid.UUID) (*models.ActivePalette, error) {
	var sel models.ActivePalette
	var preset sql.NullString
	var customID uuid.NullUUID
	err := r.DB.QueryRowContext(ctx,
		`SELECT type, preset, palette_id FROM active_palettes WHERE user_id = $1`, userID,
	).Scan(&sel.Type, &preset, &customID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sel.Preset = preset.String
	sel.CustomID = customID.UUID
	return &sel, nil
}

// SetActivePalette upserts the user's active selection.
func (r *PostgresAppearanceRepository) SetActivePalette(ctx context.Context, userID uuid.UUID, sel models.ActivePalette) error {
	var preset sql.NullString
	var customID uuid.NullUUID
	switch sel.Type {
	case models.SelectionPreset:
		preset = sql.NullString{String: sel.Preset, Valid: true}
	case models.SelectionCustom:
		customID = uuid.NullUUID{UUID: sel.CustomID, Valid: true}
	}

	_, err := r.DB.ExecContext(
		ctx,
		`INSERT INTO active_palettes (user_id, type, preset, palette_id)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id)
		 DO UPDATE SET type = EXCLUDED.type, preset = EXCLUDED.preset, palette_id = EXCLUDED.palette_id`,
		userID, sel.Type, preset, customID,
	)
	return err
}
