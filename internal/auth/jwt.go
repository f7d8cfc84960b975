// Package auth implements the authentication primitives: JWT access and
// refresh tokens, Argon2id password hashing, one-time auth codes, and the
// auth cookie helpers.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mwestra/aurora/internal/errs"
)

// AccessClaims are the claims carried by short-lived access tokens.
type AccessClaims struct {
	// Email is the authenticated user's email address.
	Email string `json:"email"`
	// TokenType marks the token kind. Expected value: "access".
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// RefreshClaims are the claims carried by long-lived refresh tokens. The
// jti (RegisteredClaims.ID) identifies the token for rotation/revocation.
type RefreshClaims struct {
	// TokenType marks the token kind. Expected value: "refresh".
	TokenType string `json:"token_type"`
	// RememberMe reports whether the session persists across browser restarts.
	RememberMe bool `json:"remember_me"`
	jwt.RegisteredClaims
}

// CreateAccessToken signs an HS256 access token for the user.
func CreateAccessToken(userID uuid.UUID, email, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		Email:     email,
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// CreateRefreshToken signs an HS256 refresh token for the user and returns
// the signed token along with its generated jti.
func CreateRefreshToken(userID uuid.UUID, secret string, ttl time.Duration, rememberMe bool) (token string, jti string, err error) {
	now := time.Now()
	jti = uuid.NewString()
	claims := RefreshClaims{
		TokenType:  "refresh",
		RememberMe: rememberMe,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	return token, jti, err
}

// DecodeAccessToken validates an access token and its token_type claim.
// Returns errs.ErrTokenExpired for expired tokens and errs.ErrTokenInvalid
// for anything else invalid, including refresh tokens.
func DecodeAccessToken(token, secret string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := decode(token, secret, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != "access" {
		return nil, errs.ErrTokenInvalid
	}
	return claims, nil
}

// DecodeRefreshToken validates a refresh token and its token_type claim.
func DecodeRefreshToken(token, secret string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := decode(token, secret, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != "refresh" {
		return nil, errs.ErrTokenInvalid
	}
	return claims, nil
}

func decode(token, secret string, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errs.ErrTokenInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return errs.ErrTokenExpired
		}
		return errs.ErrTokenInvalid
	}
	if !parsed.Valid {
		return errs.ErrTokenInvalid
	}
	return nil
}
