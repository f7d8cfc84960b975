// Package service provides authentication and appearance business logic,
// delegating persistence to repository interfaces.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mwestra/aurora/internal/auth"
	"github.com/mwestra/aurora/internal/errs"
	"github.com/mwestra/aurora/internal/models"
)

// AuthRepository defines the persistence operations required by the
// authentication service.
type AuthRepository interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	EmailExistsForOtherUser(ctx context.Context, email string, userID uuid.UUID) (bool, error)
	CreateUser(ctx context.Context, firstName, lastName, email, hashedPassword string) (uuid.UUID, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	CreateAuthCode(ctx context.Context, userID uuid.UUID, codeHash string, codeType models.AuthCodeType, expiresAt time.Time) error
	FindValidAuthCode(ctx context.Context, userID uuid.UUID, codeType models.AuthCodeType) (*models.AuthCode, error)
	MarkAuthCodeUsed(ctx context.Context, codeID uuid.UUID) error
	InvalidateAuthCodes(ctx context.Context, userID uuid.UUID, codeType models.AuthCodeType) error
	ConfirmEmailWithCode(ctx context.Context, codeID, userID uuid.UUID) error
	ApplyEmailChange(ctx context.Context, codeID, userID uuid.UUID, newEmail string) (bool, error)

	CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	ConsumeAndRotateRefreshToken(ctx context.Context, userID uuid.UUID, oldHash, newHash string, expiresAt time.Time) (bool, error)
	UpdatePasswordAndRevokeSessions(ctx context.Context, userID uuid.UUID, currentTokenHash, hashedPassword, newTokenHash string, expiresAt time.Time) (bool, error)
}

// EmailSender delivers one-time codes to users.
type EmailSender interface {
	SendConfirmationEmail(ctx context.Context, to, firstName, code string) error
	SendPasswordResetEmail(ctx context.Context, to, firstName, code string) error
	SendEmailChangeEmail(ctx context.Context, to, firstName, code string) error
}

// Session carries freshly issued tokens for the handler to turn into
// cookies.
type Session struct {
	AccessToken  string
	RefreshToken string
	RememberMe   bool
}

// AuthService implements the authentication flows.
type AuthService struct {
	repo       AuthRepository
	email      EmailSender
	secret     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	codeTTL    time.Duration
}

// NewAuthService constructs an AuthService with required dependencies.
func NewAuthService(repo AuthRepository, email EmailSender, secret string, accessTTL, refreshTTL, codeTTL time.Duration) *AuthService {
	return &AuthService{
		repo:       repo,
		email:      email,
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		codeTTL:    codeTTL,
	}
}

// NormalizeEmail lowercases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates a new unconfirmed user and emails a confirmation code.
func (s *AuthService) SignUp(ctx context.Context, firstName, lastName, email, password string) (uuid.UUID, error) {
	email = NormalizeEmail(email)

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return uuid.Nil, err
	}
	if exists {
		return uuid.Nil, errs.ErrEmailAlreadyExists
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return uuid.Nil, err
	}

	userID, err := s.repo.CreateUser(ctx, firstName, lastName, email, hashed)
	if err != nil {
		return uuid.Nil, err
	}

	if err := s.issueCode(ctx, userID, models.EmailConfirmation, func(code string) string {
		return auth.HashCode(code)
	}, func(ctx context.Context, code string) error {
		return s.email.SendConfirmationEmail(ctx, email, firstName, code)
	}); err != nil {
		return uuid.Nil, err
	}

	return userID, nil
}

// ConfirmEmail validates the confirmation code and marks the user's email
// confirmed. Returns true when the email was already confirmed (idempotent).
func (s *AuthService) ConfirmEmail(ctx context.Context, email, code string) (alreadyConfirmed bool, err error) {
	user, err := s.repo.FindUserByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, errs.ErrNotFound) {
		return false, errs.ErrInvalidCredentials
	}
	if err != nil {
		return false, err
	}
	if user.EmailConfirmed {
		return true, nil
	}

	authCode, err := s.repo.FindValidAuthCode(ctx, user.ID, models.EmailConfirmation)
	if errors.Is(err, errs.ErrNotFound) {
		return false, errs.ErrAuthCodeExpired
	}
	if err != nil {
		return false, err
	}
	if !auth.VerifyCode(code, authCode.CodeHash) {
		return false, errs.ErrInvalidAuthCode
	}

	return false, s.repo.ConfirmEmailWithCode(ctx, authCode.ID, user.ID)
}

// LogIn verifies credentials and issues a new session. Requires a
// confirmed email.
func (s *AuthService) LogIn(ctx context.Context, email, password string, rememberMe bool) (*models.User, *Session, error) {
	user, err := s.repo.FindUserByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil, errs.ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}

	ok, err := auth.VerifyPassword(password, user.HashedPassword)
	if err != nil || !ok {
		return nil, nil, errs.ErrInvalidCredentials
	}
	if !user.EmailConfirmed {
		return nil, nil, errs.ErrEmailNotConfirmed
	}

	session, err := s.issueSession(ctx, user, rememberMe)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// Refresh rotates a refresh session: the presented token is revoked and a
// replacement is stored, all-or-nothing. Returns errs.ErrUnauthorized when
// the session is not active.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.User, *Session, error) {
	claims, err := auth.DecodeRefreshToken(refreshToken, s.secret)
	if err != nil {
		return nil, nil, err
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, nil, errs.ErrTokenInvalid
	}

	user, err := s.repo.FindUserByID(ctx, userID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil, errs.ErrUnauthorized
	}
	if err != nil {
		return nil, nil, err
	}

	nextToken, nextJTI, err := auth.CreateRefreshToken(user.ID, s.secret, s.refreshTTL, claims.RememberMe)
	if err != nil {
		return nil, nil, err
	}

	rotated, err := s.repo.ConsumeAndRotateRefreshToken(
		ctx, user.ID, auth.HashCode(claims.ID), auth.HashCode(nextJTI), time.Now().Add(s.refreshTTL))
	if err != nil {
		return nil, nil, err
	}
	if !rotated {
		return nil, nil, errs.ErrUnauthorized
	}

	accessToken, err := auth.CreateAccessToken(user.ID, user.Email, s.secret, s.accessTTL)
	if err != nil {
		return nil, nil, err
	}

	return user, &Session{
		AccessToken:  accessToken,
		RefreshToken: nextToken,
		RememberMe:   claims.RememberMe,
	}, nil
}

// LogOut revokes the refresh session if the token is valid. Invalid or
// missing tokens are ignored; logout always succeeds.
func (s *AuthService) LogOut(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	claims, err := auth.DecodeRefreshToken(refreshToken, s.secret)
	if err != nil {
		return
	}
	_ = s.repo.RevokeRefreshToken(ctx, auth.HashCode(claims.ID))
}

// CurrentUser returns the user snapshot for an authenticated subject.
func (s *AuthService) CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindUserByID(ctx, userID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.ErrUnauthorized
	}
	return user, err
}

// ForgotPassword issues a password reset code. Unknown emails are ignored
// so the endpoint cannot be used for account enumeration.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.FindUserByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.repo.InvalidateAuthCodes(ctx, user.ID, models.PasswordReset); err != nil {
		return err
	}

	return s.issueCode(ctx, user.ID, models.PasswordReset, func(code string) string {
		return auth.HashCode(code)
	}, func(ctx context.Context, code string) error {
		// Delivery failure is not surfaced; the generic response stands.
		_ = s.email.SendPasswordResetEmail(ctx, user.Email, user.FirstName, code)
		return nil
	})
}

// VerifyForgotPassword validates a reset code and issues a full session so
// the user can set a new password.
func (s *AuthService) VerifyForgotPassword(ctx context.Context, email, code string) (*models.User, *Session, error) {
	user, err := s.repo.FindUserByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil, errs.ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, err
	}

	authCode, err := s.repo.FindValidAuthCode(ctx, user.ID, models.PasswordReset)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil, errs.ErrAuthCodeExpired
	}
	if err != nil {
		return nil, nil, err
	}
	if !auth.VerifyCode(code, authCode.CodeHash) {
		return nil, nil, errs.ErrInvalidAuthCode
	}

	if err := s.repo.MarkAuthCodeUsed(ctx, authCode.ID); err != nil {
		return nil, nil, err
	}

	session, err := s.issueSession(ctx, user, true)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

// SetPassword replaces the user's password, revokes every refresh session,
// and issues a fresh one. Requires the caller's active refresh token so a
// logout immediately invalidates set-password access.
func (s *AuthService) SetPassword(ctx context.Context, userID uuid.UUID, refreshToken, newPassword string) (*Session, error) {
	return s.updatePassword(ctx, userID, refreshToken, newPassword, "")
}

// ChangePassword is SetPassword with verification of the current password.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, refreshToken, currentPassword, newPassword string) (*Session, error) {
	return s.updatePassword(ctx, userID, refreshToken, newPassword, currentPassword)
}

func (s *AuthService) updatePassword(ctx context.Context, userID uuid.UUID, refreshToken, newPassword, currentPassword string) (*Session, error) {
	claims, err := auth.DecodeRefreshToken(refreshToken, s.secret)
	if err != nil {
		return nil, err
	}
	if claims.Subject != userID.String() {
		return nil, errs.ErrUnauthorized
	}

	user, err := s.repo.FindUserByID(ctx, userID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}

	if currentPassword != "" {
		ok, err := auth.VerifyPassword(currentPassword, user.HashedPassword)
		if err != nil || !ok {
			return nil, errs.ErrInvalidCredentials
		}
	}

	hashed, err := auth.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}

	nextToken, nextJTI, err := auth.CreateRefreshToken(userID, s.secret, s.refreshTTL, claims.RememberMe)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdatePasswordAndRevokeSessions(
		ctx, userID, auth.HashCode(claims.ID), hashed, auth.HashCode(nextJTI), time.Now().Add(s.refreshTTL))
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, errs.ErrUnauthorized
	}

	accessToken, err := auth.CreateAccessToken(userID, user.Email, s.secret, s.accessTTL)
	if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:  accessToken,
		RefreshToken: nextToken,
		RememberMe:   claims.RememberMe,
	}, nil
}

// RequestEmailChange issues an email-change code scoped to the new address.
// Taken or unchanged emails are silently accepted so the endpoint never
// confirms whether an address is registered.
func (s *AuthService) RequestEmailChange(ctx context.Context, userID uuid.UUID, newEmail string) error {
	newEmail = NormalizeEmail(newEmail)

	user, err := s.repo.FindUserByID(ctx, userID)
	if errors.Is(err, errs.ErrNotFound) {
		return errs.ErrUnauthorized
	}
	if err != nil {
		return err
	}
	if newEmail == user.Email {
		return nil
	}

	taken, err := s.repo.EmailExistsForOtherUser(ctx, newEmail, userID)
	if err != nil {
		return err
	}
	if taken {
		return nil
	}

	if err := s.repo.InvalidateAuthCodes(ctx, userID, models.EmailChange); err != nil {
		return err
	}

	return s.issueCode(ctx, userID, models.EmailChange, func(code string) string {
		return auth.HashEmailChangeCode(code, newEmail)
	}, func(ctx context.Context, code string) error {
		_ = s.email.SendEmailChangeEmail(ctx, newEmail, user.FirstName, code)
		return nil
	})
}

// ConfirmEmailChange validates a scoped email-change code and applies the
// new email. Returns a new access token carrying the updated email claim.
func (s *AuthService) ConfirmEmailChange(ctx context.Context, userID uuid.UUID, newEmail, code string) (accessToken string, err error) {
	newEmail = NormalizeEmail(newEmail)

	if _, err := s.repo.FindUserByID(ctx, userID); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return "", errs.ErrUnauthorized
		}
		return "", err
	}

	authCode, err := s.repo.FindValidAuthCode(ctx, userID, models.EmailChange)
	if errors.Is(err, errs.ErrNotFound) {
		return "", errs.ErrAuthCodeExpired
	}
	if err != nil {
		return "", err
	}
	if !auth.VerifyEmailChangeCode(code, newEmail, authCode.CodeHash) {
		return "", errs.ErrInvalidAuthCode
	}

	applied, err := s.repo.ApplyEmailChange(ctx, authCode.ID, userID, newEmail)
	if err != nil {
		return "", err
	}
	if !applied {
		return "", errs.ErrEmailAlreadyExists
	}

	return auth.CreateAccessToken(userID, newEmail, s.secret, s.accessTTL)
}

// issueSession creates access and refresh tokens and stores the refresh
// session's hash.
func (s *AuthService) issueSession(ctx context.Context, user *models.User, rememberMe bool) (*Session, error) {
	accessToken, err := auth.CreateAccessToken(user.ID, user.Email, s.secret, s.accessTTL)
	if err != nil {
		return nil, err
	}

	refreshToken, jti, err := auth.CreateRefreshToken(user.ID, s.secret, s.refreshTTL, rememberMe)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateRefreshToken(ctx, user.ID, auth.HashCode(jti), time.Now().Add(s.refreshTTL)); err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		RememberMe:   rememberMe,
	}, nil
}

// issueCode generates, stores, and delivers a one-time code.
func (s *AuthService) issueCode(ctx context.Context, userID uuid.UUID, codeType models.AuthCodeType, hash func(string) string, deliver func(context.Context, string) error) error {
	code, err := auth.GenerateAuthCode()
	if err != nil {
		return err
	}
	if err := s.repo.CreateAuthCode(ctx, userID, hash(code), codeType, time.Now().Add(s.codeTTL)); err != nil {
		return err
	}
	return deliver(ctx, code)
}
