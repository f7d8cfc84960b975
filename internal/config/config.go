// Package config provides functionality for managing configuration options
// for the application using command-line flags and environment variables.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"
)

// Options holds the configuration values for the application.
type Options struct {
	// Addr defines the server's listening address (ip:port).
	Addr string

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string

	// JWTSecret signs access and refresh tokens.
	JWTSecret string

	// AccessTokenTTL is the access token (and cookie) lifetime.
	AccessTokenTTL time.Duration

	// RefreshTokenTTL is the refresh token (and cookie) lifetime.
	RefreshTokenTTL time.Duration

	// AuthCodeTTL is the one-time auth code lifetime.
	AuthCodeTTL time.Duration

	// CookieDomain is the optional cookie domain; empty means host-only.
	CookieDomain string

	// CookieSecure marks auth cookies as Secure.
	CookieSecure bool

	// SMTPAddr is the mail relay host:port; empty disables real delivery
	// and outgoing mail is logged instead.
	SMTPAddr string

	// SMTPFrom is the sender address for outgoing mail.
	SMTPFrom string

	// LogLevel sets the zap log level.
	LogLevel string

	// Config is the path to the config file.
	Config string
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.Addr, "a", "localhost:8080", "run on ip:port server")
	flag.StringVar(&options.DatabaseDSN, "d", "", "db address")
	flag.StringVar(&options.JWTSecret, "s", "", "jwt signing secret")
	flag.DurationVar(&options.AccessTokenTTL, "access-ttl", 15*time.Minute, "access token lifetime")
	flag.DurationVar(&options.RefreshTokenTTL, "refresh-ttl", 7*24*time.Hour, "refresh token lifetime")
	flag.DurationVar(&options.AuthCodeTTL, "code-ttl", 10*time.Minute, "auth code lifetime")
	flag.StringVar(&options.CookieDomain, "cookie-domain", "", "auth cookie domain (empty = host-only)")
	flag.BoolVar(&options.CookieSecure, "cookie-secure", false, "mark auth cookies Secure")
	flag.StringVar(&options.SMTPAddr, "smtp", "", "smtp relay host:port (empty = log mail)")
	flag.StringVar(&options.SMTPFrom, "smtp-from", "no-reply@localhost", "mail sender address")
	flag.StringVar(&options.LogLevel, "log-level", "info", "log level")
	flag.StringVar(&options.Config, "config", "config.json", "path to config file")
	flag.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct containing
// the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Addr = serverAddress
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		options.JWTSecret = secret
	}
	if domain := os.Getenv("COOKIE_DOMAIN"); domain != "" {
		options.CookieDomain = domain
	}
	if os.Getenv("COOKIE_SECURE") == "true" {
		options.CookieSecure = true
	}
	if smtp := os.Getenv("SMTP_ADDR"); smtp != "" {
		options.SMTPAddr = smtp
	}

	return options
}
