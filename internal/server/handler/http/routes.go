package http

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mwestra/aurora/internal/middleware"
)

// NewRouter constructs the API router.
//
// Public endpoints live under /auth; /auth/me and the password/email
// management endpoints require a valid access token, as does everything
// under /appearance. The refresh cookie is path-scoped to /auth, so the
// refresh and logout endpoints also live there.
//
// Middleware chain (applied in order):
//  1. AllowContentType("application/json") — rejects non-JSON bodies
//  2. WithRequestLogging(logger)           — logs each request
//  3. JWTAuth(jwtSecret)                   — on protected groups only
func NewRouter(
	authHandler *AuthHandler,
	appearanceHandler *AppearanceHandler,
	jwtSecret string,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.WithRequestLogging(logger))

	r.Get("/health", Health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/sign-up", authHandler.SignUp)
		r.Post("/confirm-email", authHandler.ConfirmEmail)
		r.Post("/log-in", authHandler.LogIn)
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/log-out", authHandler.LogOut)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/verify-forgot-password", authHandler.VerifyForgotPassword)

		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtSecret))
			r.Get("/me", authHandler.Me)
			r.Post("/set-password", authHandler.SetPassword)
			r.Post("/change-password", authHandler.ChangePassword)
			r.Post("/request-email-change", authHandler.RequestEmailChange)
			r.Post("/confirm-email-change", authHandler.ConfirmEmailChange)
		})
	})

	r.Route("/appearance", func(r chi.Router) {
		r.Use(middleware.JWTAuth(jwtSecret))
		r.Get("/", appearanceHandler.Get)
		r.Put("/active-palette", appearanceHandler.SetActive)
		r.Post("/palettes", appearanceHandler.CreatePalette)
		r.Put("/palettes/{id}", appearanceHandler.UpdatePalette)
	})

	return r
}
