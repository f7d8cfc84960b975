package auth

import (
	"net/http"
	"time"
)

// Cookie names for the two auth tokens.
const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
)

// CookieOptions configures the scope of auth cookies.
type CookieOptions struct {
	// Domain is the cookie domain; empty means host-only.
	Domain string
	// Secure marks cookies as Secure.
	Secure bool
}

// AccessCookie builds the access_token cookie for authenticated requests.
func AccessCookie(token string, opts CookieOptions, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     AccessCookieName,
		Value:    token,
		Path:     "/",
		Domain:   opts.Domain,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(maxAge.Seconds()),
	}
}

// RefreshCookie builds the refresh_token cookie, scoped to /auth so the
// browser only sends it to refresh/logout endpoints. A zero maxAge yields
// a session cookie (non-remembered logins).
func RefreshCookie(token string, opts CookieOptions, maxAge time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     "/auth",
		Domain:   opts.Domain,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteStrictMode,
	}
	if maxAge > 0 {
		c.MaxAge = int(maxAge.Seconds())
	}
	return c
}

// ClearAccessCookie builds an expired access_token cookie.
func ClearAccessCookie(opts CookieOptions) *http.Cookie {
	return &http.Cookie{
		Name:     AccessCookieName,
		Value:    "",
		Path:     "/",
		Domain:   opts.Domain,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	}
}

// ClearRefreshCookie builds an expired refresh_token cookie.
func ClearRefreshCookie(opts CookieOptions) *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/auth",
		Domain:   opts.Domain,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
	}
}
