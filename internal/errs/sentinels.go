// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates a missing or invalid session.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials indicates a failed email/password check.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailNotConfirmed indicates login before email confirmation.
	ErrEmailNotConfirmed = errors.New("email not confirmed")

	// ErrEmailAlreadyExists indicates a unique email constraint violation.
	ErrEmailAlreadyExists = errors.New("email already exists")

	// ErrInvalidAuthCode indicates the provided one-time code does not match.
	ErrInvalidAuthCode = errors.New("invalid auth code")

	// ErrAuthCodeExpired indicates no valid one-time code exists for the user.
	ErrAuthCodeExpired = errors.New("auth code expired")

	// ErrTokenExpired indicates a structurally valid but expired JWT.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates a malformed JWT or a wrong token type.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrAlreadyExists indicates a duplicate record (e.g. palette name taken).
	ErrAlreadyExists = errors.New("already exists")
)
