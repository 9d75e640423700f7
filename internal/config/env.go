package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store drivers accepted by ServerConfig.StoreDriver.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// ServerConfig configures the standalone server.
type ServerConfig struct {
	Addr              string        `env:"COURTPIECE_ADDR"                envDefault:":8080"`
	StoreDriver       string        `env:"COURTPIECE_STORE"               envDefault:"sqlite"`
	SQLitePath        string        `env:"COURTPIECE_SQLITE_PATH"         envDefault:"courtpiece.db"`
	LogLevel          string        `env:"COURTPIECE_LOG_LEVEL"           envDefault:"info"`
	LogJSON           bool          `env:"COURTPIECE_LOG_JSON"            envDefault:"true"`
	TrickResolveDelay time.Duration `env:"COURTPIECE_TRICK_RESOLVE_DELAY" envDefault:"2s"`
	GameConfigPath    string        `env:"COURTPIECE_GAME_CONFIG"`
	AllowedOrigins    []string      `env:"COURTPIECE_ALLOWED_ORIGINS"     envSeparator:","`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadServerConfig reads and validates ServerConfig from the environment.
func LoadServerConfig() (ServerConfig, error) {
	var c ServerConfig
	if err := ParseEnv(&c); err != nil {
		return ServerConfig{}, err
	}
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case StoreMemory:
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return ServerConfig{}, fmt.Errorf("COURTPIECE_SQLITE_PATH is required for the sqlite store")
		}
	default:
		return ServerConfig{}, fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.TrickResolveDelay < 0 {
		return ServerConfig{}, fmt.Errorf("COURTPIECE_TRICK_RESOLVE_DELAY must not be negative")
	}
	return c, nil
}
