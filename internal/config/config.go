package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// DefaultTrickResolveDelay is how long a full trick stays on the table before
// it is resolved when no config overrides it.
const DefaultTrickResolveDelay = 2 * time.Second

type GameConfig struct {
	// TrickResolveDelayMs is how long a completed trick stays visible before it is resolved.
	TrickResolveDelayMs int `json:"trick_resolve_delay_ms"`
	// MatchTickRate is the Nakama match loop rate in ticks per second.
	MatchTickRate int `json:"match_tick_rate"`
	// EmptyMatchGraceSeconds is how long a match with no presences stays open.
	EmptyMatchGraceSeconds int `json:"empty_match_grace_seconds"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}
		c, err := ParseGameConfig(data)
		if err != nil {
			loadErr = err
			return
		}
		cfg = c
	})
	return loadErr
}

// ParseGameConfig decodes a JSON game config document.
func ParseGameConfig(data []byte) (*GameConfig, error) {
	var c GameConfig
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	if c.TrickResolveDelayMs < 0 {
		return nil, fmt.Errorf("trick_resolve_delay_ms must not be negative")
	}
	return &c, nil
}

// GetGameConfig returns the global game configuration.
func GetGameConfig() *GameConfig {
	return cfg
}

// TrickResolveDelay returns the configured delay, or the default when c is nil or unset.
func (c *GameConfig) TrickResolveDelay() time.Duration {
	if c == nil || c.TrickResolveDelayMs == 0 {
		return DefaultTrickResolveDelay
	}
	return time.Duration(c.TrickResolveDelayMs) * time.Millisecond
}

// TickRate returns the match tick rate, defaulting to 5 per second.
func (c *GameConfig) TickRate() int {
	if c == nil || c.MatchTickRate <= 0 {
		return 5
	}
	return c.MatchTickRate
}

// EmptyMatchGrace returns how long an empty match may live, defaulting to 30s.
func (c *GameConfig) EmptyMatchGrace() time.Duration {
	if c == nil || c.EmptyMatchGraceSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.EmptyMatchGraceSeconds) * time.Second
}
