// Package repository provides PostgreSQL persistence for authentication
// and appearance services.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mwestra/aurora/internal/errs"
	"github.com/mwestra/aurora/internal/models"
)

// pqUniqueViolation is the Postgres error code for unique constraint hits.
const pqUniqueViolation = "23505"

// PostgresAuthRepository implements auth persistence on PostgreSQL.
type PostgresAuthRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresAuthRepository creates a repository with the given database
// connection.
func NewPostgresAuthRepository(db *sql.DB) *PostgresAuthRepository {
	return &PostgresAuthRepository{DB: db}
}

const userColumns = `id, first_name, last_name, email, hashed_password, email_confirmed, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.HashedPassword,
		&u.EmailConfirmed, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// EmailExists checks whether a user with the given email exists.
func (r *PostgresAuthRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`,
		email,
	).Scan(&exists)
	return exists, err
}

// EmailExistsForOtherUser checks whether another account already owns email.
func (r *PostgresAuthRepository) EmailExistsForOtherUser(ctx context.Context, email string, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND id <> $2)`,
		email, userID,
	).Scan(&exists)
	return exists, err
}

// CreateUser inserts a new unconfirmed user and returns its id.
// Returns errs.ErrEmailAlreadyExists on an email unique violation.
func (r *PostgresAuthRepository) CreateUser(ctx context.Context, firstName, lastName, email, hashedPassword string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.DB.ExecContext(
		ctx,
		`INSERT INTO users (id, first_name, last_name, email, hashed_password)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, firstName, lastName, email, hashedPassword,
	)
	if isUniqueViolation(err) {
		return uuid.Nil, errs.ErrEmailAlreadyExists
	}
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

// FindUserByEmail returns the user with the given (normalized) email, or
// errs.ErrNotFound.
func (r *PostgresAuthRepository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// FindUserByID returns the user with the given id, or errs.ErrNotFound.
func (r *PostgresAuthRepository) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// CreateAuthCode stores a hashed one-time code of the given type.
func (r *PostgresAuthRepository) CreateAuthCode(ctx context.Context, userID uuid.UUID, codeHash string, codeType models.AuthCodeType, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(
		ctx,
		`INSERT INTO auth_codes (id, user_id, code_hash, code_type, expires_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), userID, codeHash, codeType, expiresAt,
	)
	return err
}

// FindValidAuthCode returns the newest unused, unexpired code of the given
// type for the user, or errs.ErrNotFound.
func (r *PostgresAuthRepository) FindValidAuthCode(ctx context.Context, userID uuid.UUID, codeType models.AuthCodeType) (*models.AuthCode, error) {
	var c models.AuthCode
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT id, user_id, code_hash, code_type, expires_at, used, created_at
		   FROM auth_codes
		  WHERE user_id = $1 AND code_type = $2 AND used = FALSE AND expires_at > NOW()
		  ORDER BY created_at DESC
		  LIMIT 1`,
		userID, codeType,
	).Scan(&c.ID, &c.UserID, &c.CodeHash, &c.CodeType, &c.ExpiresAt, &c.Used, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// MarkAuthCodeUsed consumes a one-time code outside of any transaction.
func (r *PostgresAuthRepository) MarkAuthCodeUsed(ctx context.Context, codeID uuid.UUID) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE auth_codes SET used = TRUE WHERE id = $1`, codeID)
	return err
}

// InvalidateAuthCodes marks all outstanding codes of the given type as used
// so only the most recently issued code can succeed.
func (r *PostgresAuthRepository) InvalidateAuthCodes(ctx context.Context, userID uuid.UUID, codeType models.AuthCodeType) error {
	_, err := r.DB.ExecContext(
		ctx,
		`UPDATE auth_codes SET used = TRUE WHERE user_id = $1 AND code_type = $2 AND used = FALSE`,
		userID, codeType,
	)
	return err
}

// ConfirmEmailWithCode atomically consumes the confirmation code and marks
// the user's email confirmed.
func (r *PostgresAuthRepository) ConfirmEmailWithCode(ctx context.Context, codeID, userID uuid.UUID) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE auth_codes SET used = TRUE WHERE id = $1`, codeID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET email_confirmed = TRUE, updated_at = NOW() WHERE id = $1`, userID); err != nil {
		return err
	}
	return tx.Commit()
}

// ApplyEmailChange atomically consumes the email-change code and updates the
// user's email if no other account owns it. Returns false when the email was
// taken between verification and commit; the transaction rolls back in that
// case, so the code stays valid for a retry with a different address.
func (r *PostgresAuthRepository) ApplyEmailChange(ctx context.Context, codeID, userID uuid.UUID, newEmail string) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE auth_codes SET used = TRUE WHERE id = $1`, codeID); err != nil {
		return false, err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET email = $1, updated_at = NOW()
		  WHERE id = $2 AND NOT EXISTS(SELECT 1 FROM users WHERE email = $1 AND id <> $2)`,
		newEmail, userID)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		// The deferred rollback undoes the code burn so the user can retry.
		return false, nil
	}
	return true, tx.Commit()
}

// CreateRefreshToken stores a hashed refresh session.
func (r *PostgresAuthRepository) CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(
		ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at)
		 VALUES ($1, $2, $3, $4)`,
		uuid.New(), userID, tokenHash, expiresAt,
	)
	return err
}

// RevokeRefreshToken marks the session with the given hash revoked.
func (r *PostgresAuthRepository) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE WHERE token_hash = $1`, tokenHash)
	return err
}

// ConsumeAndRotateRefreshToken atomically revokes the active session
// identified by oldHash and inserts the rotated replacement. Returns false
// when no active session matched (already revoked, expired, or foreign).
func (r *PostgresAuthRepository) ConsumeAndRotateRefreshToken(ctx context.Context, userID uuid.UUID, oldHash, newHash string, expiresAt time.Time) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	consumed, err := consumeRefreshToken(ctx, tx, userID, oldHash)
	if err != nil {
		return false, err
	}
	if !consumed {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at)
		 VALUES ($1, $2, $3, $4)`,
		uuid.New(), userID, newHash, expiresAt); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// UpdatePasswordAndRevokeSessions atomically consumes the caller's active
// refresh session, updates the stored password hash, revokes every other
// session, and inserts a fresh session. Returns false when the caller's
// refresh session was not active.
func (r *PostgresAuthRepository) UpdatePasswordAndRevokeSessions(ctx context.Context, userID uuid.UUID, currentTokenHash, hashedPassword, newTokenHash string, expiresAt time.Time) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	consumed, err := consumeRefreshToken(ctx, tx, userID, currentTokenHash)
	if err != nil {
		return false, err
	}
	if !consumed {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET hashed_password = $1, updated_at = NOW() WHERE id = $2`,
		hashedPassword, userID); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = $1 AND revoked = FALSE`,
		userID); err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at)
		 VALUES ($1, $2, $3, $4)`,
		uuid.New(), userID, newTokenHash, expiresAt); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

func consumeRefreshToken(ctx context.Context, tx *sql.Tx, userID uuid.UUID, tokenHash string) (bool, error) {
	res, err := tx.ExecContext(
		ctx,
		`UPDATE refresh_tokens SET revoked = TRUE
		  WHERE user_id = $1 AND token_hash = $2 AND revoked = FALSE AND expires_at > NOW()`,
		userID, tokenHash,
	)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}
