// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full runtime configuration of the API process.
type Config struct {
	Addr    string `env:"AUTHCORE_ADDR" envDefault:":8080"`
	PGDSN   string `env:"AUTHCORE_PG_DSN"`
	Version string `env:"AUTHCORE_VERSION" envDefault:"dev"`

	JWTSecret string `env:"AUTHCORE_JWT_SECRET"`
	JWTIssuer string `env:"AUTHCORE_JWT_ISSUER" envDefault:"authcore"`

	AccessTTL       time.Duration `env:"AUTHCORE_ACCESS_TTL" envDefault:"15m"`
	RefreshTTL      time.Duration `env:"AUTHCORE_REFRESH_TTL" envDefault:"720h"`
	ResetTTL        time.Duration `env:"AUTHCORE_RESET_TTL" envDefault:"30m"`
	VerificationTTL time.Duration `env:"AUTHCORE_VERIFICATION_TTL" envDefault:"10m"`

	// PublicBaseURL is the user-facing frontend embedded into reset links.
	PublicBaseURL string `env:"AUTHCORE_PUBLIC_URL" envDefault:"http://localhost:3001"`

	BcryptCost int `env:"AUTHCORE_BCRYPT_COST" envDefault:"10"`

	MailProvider string `env:"AUTHCORE_EMAIL_PROVIDER" envDefault:"log"`
	MailAPIKey   string `env:"AUTHCORE_EMAIL_API_KEY"`
	MailDomain   string `env:"AUTHCORE_EMAIL_DOMAIN"`
	MailFromName string `env:"AUTHCORE_EMAIL_FROM_NAME" envDefault:"Authcore"`

	// RateLimitRPS/Burst bound unauthenticated credential endpoints per
	// client address. Zero disables the limiter.
	RateLimitRPS   float64 `env:"AUTHCORE_RATE_LIMIT_RPS" envDefault:"10"`
	RateLimitBurst int     `env:"AUTHCORE_RATE_LIMIT_BURST" envDefault:"20"`
}

// Load parses the environment and validates hard requirements.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot run with.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("config: AUTHCORE_JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("config: AUTHCORE_JWT_SECRET must be at least 32 bytes")
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 || c.ResetTTL <= 0 || c.VerificationTTL <= 0 {
		return errors.New("config: token lifetimes must be positive")
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return errors.New("config: rate limits must not be negative")
	}
	return nil
}
