package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mwestra/aurora/internal/errs"
)

const testSecret = "test-secret-for-jwt-unit-tests"

func TestAccessTokenRoundTrip(t *testing.T) {
	userID := uuid.New()

	token, err := CreateAccessToken(userID, "user@example.com", testSecret, 15*time.Minute)
	if err != nil {
		t.Fatalf("CreateAccessToken failed: %v", err)
	}

	claims, err := DecodeAccessToken(token, testSecret)
	if err != nil {
		t.Fatalf("DecodeAccessToken failed: %v", err)
	}
	if claims.Subject != userID.String() {
		t.Errorf("sub = %q, want %q", claims.Subject, userID)
	}
	if claims.Email != "user@example.com" {
		t.Errorf("email = %q", claims.Email)
	}
	if claims.TokenType != "access" {
		t.Errorf("token_type = %q", claims.TokenType)
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	userID := uuid.New()

	token, jti, err := CreateRefreshToken(userID, testSecret, time.Hour, true)
	if err != nil {
		t.Fatalf("CreateRefreshToken failed: %v", err)
	}

	claims, err := DecodeRefreshToken(token, testSecret)
	if err != nil {
		t.Fatalf("DecodeRefreshToken failed: %v", err)
	}
	if claims.Subject != userID.String() {
		t.Errorf("sub = %q, want %q", claims.Subject, userID)
	}
	if claims.ID != jti {
		t.Errorf("jti = %q, want %q", claims.ID, jti)
	}
	if !claims.RememberMe {
		t.Error("remember_me should be true")
	}
}

func TestDecodeAccessToken_RejectsRefreshToken(t *testing.T) {
	token, _, err := CreateRefreshToken(uuid.New(), testSecret, time.Hour, false)
	if err != nil {
		t.Fatalf("CreateRefreshToken failed: %v", err)
	}
	if _, err := DecodeAccessToken(token, testSecret); !errors.Is(err, errs.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestDecodeRefreshToken_RejectsAccessToken(t *testing.T) {
	token, err := CreateAccessToken(uuid.New(), "user@example.com", testSecret, 15*time.Minute)
	if err != nil {
		t.Fatalf("CreateAccessToken failed: %v", err)
	}
	if _, err := DecodeRefreshToken(token, testSecret); !errors.Is(err, errs.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestDecodeAccessToken_Expired(t *testing.T) {
	token, err := CreateAccessToken(uuid.New(), "user@example.com", testSecret, -time.Minute)
	if err != nil {
		t.Fatalf("CreateAccessToken failed: %v", err)
	}
	if _, err := DecodeAccessToken(token, testSecret); !errors.Is(err, errs.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestDecodeAccessToken_WrongSecret(t *testing.T) {
	token, err := CreateAccessToken(uuid.New(), "user@example.com", testSecret, 15*time.Minute)
	if err != nil {
		t.Fatalf("CreateAccessToken failed: %v", err)
	}
	if _, err := DecodeAccessToken(token, "other-secret"); !errors.Is(err, errs.ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}
