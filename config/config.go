// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every environment-driven setting of the server.
type Config struct {
	Port               string        `env:"PORT"                 envDefault:"3000"`
	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3001" envSeparator:","`
	DBPath             string        `env:"DB_PATH"              envDefault:"chat.db"`
	DBDebug            bool          `env:"DB_DEBUG"             envDefault:"false"`
	JWTSecret          string        `env:"JWT_SECRET"`
	JWTTTL             time.Duration `env:"JWT_TTL"              envDefault:"720h"`
	PingTimeout        time.Duration `env:"PING_TIMEOUT"         envDefault:"60s"`
	SendBuffer         int           `env:"SEND_BUFFER"          envDefault:"256"`
	LogLevel           string        `env:"LOG_LEVEL"            envDefault:"info"`
	ShutdownTimeout    time.Duration `env:"SHUTDOWN_TIMEOUT"     envDefault:"30s"`
}

// Load parses the environment into a Config and validates it.
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

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.PingTimeout <= 0 {
		return fmt.Errorf("PING_TIMEOUT must be positive, got %s", c.PingTimeout)
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("SEND_BUFFER must be positive, got %d", c.SendBuffer)
	}
	switch strings.ToLower(c.LogLevel) {
	case "info", "error":
	default:
		return fmt.Errorf("unsupported LOG_LEVEL %q", c.LogLevel)
	}
	return nil
}

// CORSOrigins returns the allowed origins in the comma-joined form fiber's cors middleware expects.
func (c Config) CORSOrigins() string {
	return strings.Join(c.CORSAllowedOrigins, ",")
}

// ErrorsOnly reports whether framework logging is limited to errors.
func (c Config) ErrorsOnly() bool {
	return strings.EqualFold(c.LogLevel, "error")
}
