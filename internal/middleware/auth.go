// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/mwestra/aurora/internal/auth"
	"github.com/mwestra/aurora/internal/errs"
)

type ctxKey string

const (
	userIDKey ctxKey = "user_id"
	emailKey  ctxKey = "email"
)

// writeUnauthorized emits a 401 with the API error envelope so clients can
// tell an expired token from a missing or forged one.
func writeUnauthorized(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]map[string]string{
		"error": {"code": code, "message": message},
	})
}

// JWTAuth returns a middleware that enforces access-token cookie
// authentication.
//
// It reads the access_token cookie, validates the JWT against secret, and
// stores the user ID and email in the request context for downstream
// handlers. Requests without a valid access token get 401 with the error
// envelope.
func JWTAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(auth.AccessCookieName)
			if err != nil {
				writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
				return
			}

			claims, err := auth.DecodeAccessToken(cookie.Value, secret)
			if errors.Is(err, errs.ErrTokenExpired) {
				writeUnauthorized(w, "TOKEN_EXPIRED", "access token expired")
				return
			}
			if err != nil {
				writeUnauthorized(w, "TOKEN_INVALID", "invalid access token")
				return
			}

			userID, err := uuid.Parse(claims.Subject)
			if err != nil {
				writeUnauthorized(w, "TOKEN_INVALID", "invalid access token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			ctx = context.WithValue(ctx, emailKey, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext extracts the authenticated user ID from the request
// context. Returns uuid.Nil if not found.
func GetUserIDFromContext(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(userIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// GetEmailFromContext extracts the authenticated user's email from the
// request context. Returns an empty string if not found.
func GetEmailFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(emailKey).(string); ok {
		return s
	}
	return ""
}
