// Package http provides the HTTP handlers and routing for the
// authentication and appearance APIs.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mwestra/aurora/internal/auth"
	"github.com/mwestra/aurora/internal/errs"
	"github.com/mwestra/aurora/internal/middleware"
	"github.com/mwestra/aurora/internal/models"
	"github.com/mwestra/aurora/internal/service"
)

const minPasswordLength = 8

// AuthService defines the authentication operations required by the HTTP
// handlers.
type AuthService interface {
	SignUp(ctx context.Context, firstName, lastName, email, password string) (uuid.UUID, error)
	ConfirmEmail(ctx context.Context, email, code string) (alreadyConfirmed bool, err error)
	LogIn(ctx context.Context, email, password string, rememberMe bool) (*models.User, *service.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*models.User, *service.Session, error)
	LogOut(ctx context.Context, refreshToken string)
	CurrentUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	ForgotPassword(ctx context.Context, email string) error
	VerifyForgotPassword(ctx context.Context, email, code string) (*models.User, *service.Session, error)
	SetPassword(ctx context.Context, userID uuid.UUID, refreshToken, newPassword string) (*service.Session, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, refreshToken, currentPassword, newPassword string) (*service.Session, error)
	RequestEmailChange(ctx context.Context, userID uuid.UUID, newEmail string) error
	ConfirmEmailChange(ctx context.Context, userID uuid.UUID, newEmail, code string) (accessToken string, err error)
}

// AuthHandler handles the /auth endpoints.
type AuthHandler struct {
	Service    AuthService
	Cookies    auth.CookieOptions
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// setSessionCookies writes the access and refresh cookies for a fresh
// session. The refresh cookie is session-scoped unless the user asked to
// be remembered.
func (h *AuthHandler) setSessionCookies(w http.ResponseWriter, s *service.Session) {
	http.SetCookie(w, auth.AccessCookie(s.AccessToken, h.Cookies, h.AccessTTL))
	refreshMaxAge := time.Duration(0)
	if s.RememberMe {
		refreshMaxAge = h.RefreshTTL
	}
	http.SetCookie(w, auth.RefreshCookie(s.RefreshToken, h.Cookies, refreshMaxAge))
}

func (h *AuthHandler) clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, auth.ClearAccessCookie(h.Cookies))
	http.SetCookie(w, auth.ClearRefreshCookie(h.Cookies))
}

// refreshTokenFromRequest returns the refresh cookie value, or "".
func refreshTokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(auth.RefreshCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

type signUpRequest struct {
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

func (req *signUpRequest) validate() map[string]string {
	fields := map[string]string{}
	if strings.TrimSpace(req.FirstName) == "" {
		fields["first_name"] = "first name is required"
	}
	if strings.TrimSpace(req.LastName) == "" {
		fields["last_name"] = "last name is required"
	}
	validateEmail(fields, req.Email)
	validateNewPassword(fields, req.Password, req.PasswordConfirmation)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func validateEmail(fields map[string]string, email string) {
	email = strings.TrimSpace(email)
	if email == "" {
		fields["email"] = "email is required"
	} else if !strings.Contains(email, "@") {
		fields["email"] = "email is not valid"
	}
}

func validateNewPassword(fields map[string]string, password, confirmation string) {
	if len(password) < minPasswordLength {
		fields["password"] = "password must be at least 8 characters"
	} else if password != confirmation {
		fields["password_confirmation"] = "passwords do not match"
	}
}

// SignUp registers a new user and emails a confirmation code.
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w)
		return
	}
	if fields := req.validate(); fields != nil {
		writeValidationError(w, fields)
		return
	}

	userID, err := h.Service.SignUp(r.Context(), strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "confirmation code sent",
		"user_id": userID,
	})
}

// ConfirmEmail marks the user's email confirmed when the code matches.
func (h *AuthHandler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w)
		return
	}

	fields := map[string]string{}
	validateEmail(fields, req.Email)
	if req.Code == "" {
		fields["code"] = "code is required"
	}
	if len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	if _, err := h.Service.ConfirmEmail(r.Context(), req.Email, req.Code); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "email confirmed"})
}

// LogIn authenticates the user and issues session cookies.
func (h *AuthHandler) LogIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email      string `json:"email"`
		Password   string `json:"password"`
		RememberMe bool   `json:"remember_me"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w)
		return
	}

	user, session, err := h.Service.LogIn(r.Context(), req.Email, req.Password, req.RememberMe)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookies(w, session)
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// Refresh rotates the refresh session. Both cookies are cleared when the
// session is no longer active.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := refreshTokenFromRequest(r)
	if token == "" {
		h.clearSessionCookies(w)
		writeError(w, errs.ErrUnauthorized)
		return
	}

	user, session, err := h.Service.Refresh(r.Context(), token)
	if err != nil {
		h.clearSessionCookies(w)
		writeError(w, err)
		return
	}

	h.setSessionCookies(w, session)
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// LogOut revokes the refresh session and always clears both cookies.
func (h *AuthHandler) LogOut(w http.ResponseWriter, r *http.Request) {
	h.Service.LogOut(r.Context(), refreshTokenFromRequest(r))
	h.clearSessionCookies(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me returns the authenticated user snapshot.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.Service.CurrentUser(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// ForgotPassword issues a password reset code. The response is the same
// whether or not the email is registered.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w)
		return
	}

	fields := map[string]string{}
	validateEmail(fields, req.Email)
	if len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	if err := h.Service.ForgotPassword(r.Context(), req.Email); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "if the email is registered, a reset code has been sent",
	})
}

// VerifyForgotPassword checks a reset code and issues session cookies so
// the user can set a new password.
func (h *AuthHandler) VerifyForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w)
		return
	}

	user, session, err := h.Service.VerifyForgotPassword(r.Context(), req.Email, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookies(w, session)
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// SetPassword replaces the password of an authenticated user holding an
// active refresh session, revoking every other session.
func (h *AuthHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password             string `json:"password"`
		PasswordConfirmation string `json:"password_confirmation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w)
		return
	}

	fields := map[string]string{}
	validateNewPassword(fields, req.Password, req.PasswordConfirmation)
	if len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	session, err := h.Service.SetPassword(r.Context(), middleware.GetUserIDFromContext(r.Context()), refreshTokenFromRequest(r), req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookies(w, session)
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// ChangePassword is SetPassword with current-password verification.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword      string `json:"current_password"`
		Password             string `json:"password"`
		PasswordConfirmation string `json:"password_confirmation"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w)
		return
	}

	fields := map[string]string{}
	if req.CurrentPassword == "" {
		fields["current_password"] = "current password is required"
	}
	validateNewPassword(fields, req.Password, req.PasswordConfirmation)
	if len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	session, err := h.Service.ChangePassword(r.Context(), middleware.GetUserIDFromContext(r.Context()), refreshTokenFromRequest(r), req.CurrentPassword, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookies(w, session)
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

// RequestEmailChange issues an email-change code scoped to the requested
// address. The response never reveals whether the address is taken.
func (h *AuthHandler) RequestEmailChange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewEmail string `json:"new_email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w)
		return
	}

	fields := map[string]string{}
	if strings.TrimSpace(req.NewEmail) == "" {
		fields["new_email"] = "new email is required"
	} else if !strings.Contains(req.NewEmail, "@") {
		fields["new_email"] = "email is not valid"
	}
	if len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	if err := h.Service.RequestEmailChange(r.Context(), middleware.GetUserIDFromContext(r.Context()), req.NewEmail); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "if the address is available, a confirmation code has been sent",
	})
}

// ConfirmEmailChange applies a pending email change and reissues the
// access cookie with the new email claim.
func (h *AuthHandler) ConfirmEmailChange(w http.ResponseWriter, r *http.Request) {
	var req struct {
		NewEmail string `json:"new_email"`
		Code     string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w)
		return
	}

	accessToken, err := h.Service.ConfirmEmailChange(r.Context(), middleware.GetUserIDFromContext(r.Context()), req.NewEmail, req.Code)
	if err != nil {
		writeError(w, err)
		return
	}

	http.SetCookie(w, auth.AccessCookie(accessToken, h.Cookies, h.AccessTTL))
	writeJSON(w, http.StatusOK, map[string]string{"message": "email updated"})
}
