package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if SCRAWL_CONFIG is set
//  3. env (prefix SCRAWL_)
func Load() (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("SCRAWL_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: SCRAWL_ADDR, SCRAWL_QUEUE_SIZE, ...
	// Map env keys like SCRAWL_QUEUE_SIZE -> queue_size (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("SCRAWL_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "scrawl_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the cross-field constraints of a loaded Config.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StoreDriver != "memory" && c.StoreDriver != "postgres":
		return fmt.Errorf("%w: store_driver must be memory or postgres, got %q", ErrInvalidConfig, c.StoreDriver)
	case c.StoreDriver == "postgres" && c.StoreDSN == "":
		return fmt.Errorf("%w: store_dsn is required with the postgres driver", ErrInvalidConfig)
	case c.Classifier != "sim" && c.Classifier != "remote":
		return fmt.Errorf("%w: classifier must be sim or remote, got %q", ErrInvalidConfig, c.Classifier)
	case c.Classifier == "remote" && c.ClassifierURL == "":
		return fmt.Errorf("%w: classifier_url is required with the remote classifier", ErrInvalidConfig)
	case c.SimLatencyMinMS < 0 || c.SimLatencyMaxMS < c.SimLatencyMinMS:
		return fmt.Errorf("%w: sim latency bounds are inverted", ErrInvalidConfig)
	case c.GameDurationSeconds <= 0:
		return fmt.Errorf("%w: game_duration_seconds must be positive", ErrInvalidConfig)
	case c.CountdownSeconds < 0:
		return fmt.Errorf("%w: countdown_seconds must not be negative", ErrInvalidConfig)
	case c.TickMS < 1:
		return fmt.Errorf("%w: tick_ms must be at least 1", ErrInvalidConfig)
	case c.StartRejectThreshold < 0 || c.StartRejectThreshold >= 1:
		return fmt.Errorf("%w: start_reject_threshold must be in [0, 1)", ErrInvalidConfig)
	case c.ModelOne == "" || c.ModelTwo == "":
		return fmt.Errorf("%w: both model names must be set", ErrInvalidConfig)
	case c.ModelOne == c.ModelTwo:
		return fmt.Errorf("%w: the two models must differ", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be at least 1", ErrInvalidConfig)
	case c.SessionTTLMinutes < 1:
		return fmt.Errorf("%w: session_ttl_minutes must be at least 1", ErrInvalidConfig)
	case c.MaxLeaderboardLimit < 1:
		return fmt.Errorf("%w: max_leaderboard_limit must be at least 1", ErrInvalidConfig)
	}
	return nil
}
