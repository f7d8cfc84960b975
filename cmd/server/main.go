// Package main initializes and starts the Aurora API server, wiring
// configuration, logging, the database, repositories, services, and
// HTTP handlers together.
package main

import (
	"cmp"
	"context"
	"fmt"
	"time"

	nethttp "net/http"

	"github.com/mwestra/aurora/internal/auth"
	"github.com/mwestra/aurora/internal/config"
	"github.com/mwestra/aurora/internal/db"
	"github.com/mwestra/aurora/internal/logger"
	"github.com/mwestra/aurora/internal/repository"
	"github.com/mwestra/aurora/internal/server/handler/http"
	"github.com/mwestra/aurora/internal/service"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	if options.JWTSecret == "" {
		zapLogger.Fatal("jwt secret is required (-s or JWT_SECRET)")
	}

	ctx := context.Background()

	// Initialize PostgreSQL and run migrations.
	postgresDB, err := db.InitPostgres(ctx, options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}

	// Sweep expired refresh tokens and auth codes in the background.
	db.StartJanitor(ctx, postgresDB, time.Hour, zapLogger)

	// Initialize repositories.
	authRepo := repository.NewPostgresAuthRepository(postgresDB)
	appearanceRepo := repository.NewPostgresAppearanceRepository(postgresDB)

	// Outgoing mail goes through SMTP when a relay is configured,
	// otherwise it is logged.
	var emailSender service.EmailSender = &service.LogEmailSender{Log: zapLogger}
	if options.SMTPAddr != "" {
		emailSender = &service.SMTPEmailSender{Addr: options.SMTPAddr, From: options.SMTPFrom}
	}

	// Initialize business-logic services.
	authService := service.NewAuthService(
		authRepo, emailSender,
		options.JWTSecret,
		options.AccessTokenTTL, options.RefreshTokenTTL, options.AuthCodeTTL,
	)
	appearanceService := service.NewAppearanceService(appearanceRepo)

	// Create HTTP handlers.
	authHandler := &http.AuthHandler{
		Service: authService,
		Cookies: auth.CookieOptions{
			Domain: options.CookieDomain,
			Secure: options.CookieSecure,
		},
		AccessTTL:  options.AccessTokenTTL,
		RefreshTTL: options.RefreshTokenTTL,
	}
	appearanceHandler := &http.AppearanceHandler{Service: appearanceService}

	// Build the router with middleware and routes.
	router := http.NewRouter(authHandler, appearanceHandler, options.JWTSecret, zapLogger)

	server := &nethttp.Server{
		Addr:    options.Addr,
		Handler: router,
	}

	zapLogger.Info("starting HTTP server", zap.String("addr", options.Addr))
	if err := server.ListenAndServe(); err != nil {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
}
