// Package api implements the HTTP client for the auth and appearance
// endpoints. All requests carry session cookies from an in-memory jar;
// a 401 on a retryable request triggers one coalesced token refresh and
// a single retry.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/mwestra/aurora/internal/models"
)

// APIError is a non-2xx response decoded from the server's error
// envelope.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("server returned status %d", e.StatusCode)
}

// IsUnauthorized reports whether err is a 401 APIError.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// Client talks to the server. Safe for concurrent use.
type Client struct {
	base    *url.URL
	httpc   *http.Client
	refresh singleflight.Group
}

// New builds a Client with an in-memory cookie jar.
func New(baseURL string) (*Client, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		base:  base,
		httpc: &http.Client{Jar: jar},
	}, nil
}

// attempt is the per-request retry state. Each logical call gets its own
// attempt so retry markers never leak between concurrent requests.
type attempt struct {
	method  string
	path    string
	body    []byte
	retried bool
}

// terminalAuthPath reports whether a 401 from path is a real
// authentication failure rather than token expiry. Such requests are
// never retried.
func terminalAuthPath(path string) bool {
	return strings.HasPrefix(path, "/auth/log-in") ||
		strings.HasPrefix(path, "/auth/refresh") ||
		strings.HasPrefix(path, "/auth/verify-forgot-password")
}

// do runs one attempt, refreshing the session and retrying once on 401.
func (c *Client) do(ctx context.Context, att *attempt, out any) error {
	err := c.send(ctx, att, out)
	if err == nil {
		return nil
	}
	if !IsUnauthorized(err) || att.retried || terminalAuthPath(att.path) {
		return err
	}

	// The original failure propagates unchanged when refresh fails.
	if refreshErr := c.Refresh(ctx); refreshErr != nil {
		return err
	}
	att.retried = true
	return c.send(ctx, att, out)
}

// send performs a single HTTP round trip without retry logic.
func (c *Client) send(ctx context.Context, att *attempt, out any) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + att.path

	var body io.Reader
	if att.body != nil {
		body = bytes.NewReader(att.body)
	}
	req, err := http.NewRequestWithContext(ctx, att.method, u.String(), body)
	if err != nil {
		return err
	}
	if att.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var envelope struct {
		Error struct {
			Code    string            `json:"code"`
			Message string            `json:"message"`
			Fields  map[string]string `json:"fields"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		apiErr.Fields = envelope.Error.Fields
	}
	return apiErr
}

// call marshals in (when non-nil) and runs a fresh attempt.
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	att := &attempt{method: method, path: path}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return err
		}
		att.body = body
	}
	return c.do(ctx, att, out)
}

// Refresh rotates the session cookies. Concurrent callers share one
// underlying request; the coalescing handle is cleared once it settles.
func (c *Client) Refresh(ctx context.Context) error {
	_, err, _ := c.refresh.Do("refresh", func() (any, error) {
		att := &attempt{method: http.MethodPost, path: "/auth/refresh"}
		return nil, c.send(ctx, att, nil)
	})
	return err
}

type userEnvelope struct {
	User *models.User `json:"user"`
}

// SignUp registers a new account and returns the new user id.
func (c *Client) SignUp(ctx context.Context, firstName, lastName, email, password string) (uuid.UUID, error) {
	var out struct {
		UserID uuid.UUID `json:"user_id"`
	}
	err := c.call(ctx, http.MethodPost, "/auth/sign-up", map[string]string{
		"first_name":            firstName,
		"last_name":             lastName,
		"email":                 email,
		"password":              password,
		"password_confirmation": password,
	}, &out)
	return out.UserID, err
}

// ConfirmEmail submits a six-digit confirmation code.
func (c *Client) ConfirmEmail(ctx context.Context, email, code string) error {
	return c.call(ctx, http.MethodPost, "/auth/confirm-email", map[string]string{
		"email": email, "code": code,
	}, nil)
}

// LogIn authenticates and stores the session cookies in the jar.
func (c *Client) LogIn(ctx context.Context, email, password string, rememberMe bool) (*models.User, error) {
	var out userEnvelope
	err := c.call(ctx, http.MethodPost, "/auth/log-in", map[string]any{
		"email": email, "password": password, "remember_me": rememberMe,
	}, &out)
	return out.User, err
}

// LogOut revokes the session. The jar's cookies are cleared by the
// server's Set-Cookie response.
func (c *Client) LogOut(ctx context.Context) error {
	return c.call(ctx, http.MethodPost, "/auth/log-out", nil, nil)
}

// Me fetches the current user snapshot.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var out userEnvelope
	if err := c.call(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// ForgotPassword requests a password reset code.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.call(ctx, http.MethodPost, "/auth/forgot-password", map[string]string{"email": email}, nil)
}

// VerifyForgotPassword exchanges a reset code for a session.
func (c *Client) VerifyForgotPassword(ctx context.Context, email, code string) (*models.User, error) {
	var out userEnvelope
	err := c.call(ctx, http.MethodPost, "/auth/verify-forgot-password", map[string]string{
		"email": email, "code": code,
	}, &out)
	return out.User, err
}

// SetPassword replaces the password after a verified reset.
func (c *Client) SetPassword(ctx context.Context, password string) error {
	return c.call(ctx, http.MethodPost, "/auth/set-password", map[string]string{
		"password": password, "password_confirmation": password,
	}, nil)
}

// ChangePassword replaces the password, verifying the current one.
func (c *Client) ChangePassword(ctx context.Context, currentPassword, password string) error {
	return c.call(ctx, http.MethodPost, "/auth/change-password", map[string]string{
		"current_password":      currentPassword,
		"password":              password,
		"password_confirmation": password,
	}, nil)
}

// RequestEmailChange asks for a code to be sent to the new address.
func (c *Client) RequestEmailChange(ctx context.Context, newEmail string) error {
	return c.call(ctx, http.MethodPost, "/auth/request-email-change", map[string]string{
		"new_email": newEmail,
	}, nil)
}

// ConfirmEmailChange applies a pending email change.
func (c *Client) ConfirmEmailChange(ctx context.Context, newEmail, code string) error {
	return c.call(ctx, http.MethodPost, "/auth/confirm-email-change", map[string]string{
		"new_email": newEmail, "code": code,
	}, nil)
}

// Appearance fetches the active selection and custom palettes.
func (c *Client) Appearance(ctx context.Context) (models.ActivePalette, []models.Palette, error) {
	var out struct {
		ActivePalette  models.ActivePalette `json:"active_palette"`
		CustomPalettes []models.Palette     `json:"custom_palettes"`
	}
	err := c.call(ctx, http.MethodGet, "/appearance", nil, &out)
	return out.ActivePalette, out.CustomPalettes, err
}

// SetActivePalette persists a new selection and returns the server's
// normalized form.
func (c *Client) SetActivePalette(ctx context.Context, sel models.ActivePalette) (models.ActivePalette, error) {
	var out struct {
		ActivePalette models.ActivePalette `json:"active_palette"`
	}
	err := c.call(ctx, http.MethodPut, "/appearance/active-palette", sel, &out)
	return out.ActivePalette, err
}

// CreatePalette stores a custom palette; the server makes it active.
func (c *Client) CreatePalette(ctx context.Context, name string, seeds models.PaletteSeeds) (*models.Palette, models.ActivePalette, error) {
	var out struct {
		Palette       *models.Palette      `json:"palette"`
		ActivePalette models.ActivePalette `json:"active_palette"`
	}
	err := c.call(ctx, http.MethodPost, "/appearance/palettes", map[string]any{
		"name": name, "seeds": seeds,
	}, &out)
	return out.Palette, out.ActivePalette, err
}

// UpdatePalette re-submits name and seeds for an existing palette.
func (c *Client) UpdatePalette(ctx context.Context, id uuid.UUID, name string, seeds models.PaletteSeeds) (*models.Palette, error) {
	var out struct {
		Palette *models.Palette `json:"palette"`
	}
	err := c.call(ctx, http.MethodPut, "/appearance/palettes/"+id.String(), map[string]any{
		"name": name, "seeds": seeds,
	}, &out)
	return out.Palette, err
}
