package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names.
const (
	envPrefix = "GARDEN_"
	envConfig = "GARDEN_CONFIG"

	// minAnonymityFloor is the lowest k-anonymity floor a deployment may configure.
	minAnonymityFloor = 5
	minSessionsFloor  = 2
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if GARDEN_CONFIG is set
//  3. env (prefix GARDEN_)
func Load(ctx context.Context) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path := os.Getenv(envConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// GARDEN_QUEUE_SIZE -> queue_size. Underscores are kept to match the flat koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the invariants the engine relies on.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return invalid("addr must not be empty")
	case c.StoreDriver != StoreMemory && c.StoreDriver != StorePostgres && c.StoreDriver != StoreSQLite:
		return invalid("store_driver must be one of memory, postgres, sqlite (got %q)", c.StoreDriver)
	case c.StoreDriver != StoreMemory && strings.TrimSpace(c.StoreDSN) == "":
		return invalid("store_dsn is required for store_driver %q", c.StoreDriver)
	case c.MinSessions < minSessionsFloor:
		return invalid("min_sessions must be at least %d", minSessionsFloor)
	case c.AnonymityFloor < minAnonymityFloor:
		return invalid("anonymity_floor must be at least %d", minAnonymityFloor)
	case c.XPPerLevel <= 0:
		return invalid("xp_per_level must be positive")
	case c.LegendaryChance < 0 || c.LegendaryChance > 1:
		return invalid("legendary_chance must be within [0,1]")
	case c.RareChance < 0 || c.RareChance > 1:
		return invalid("rare_chance must be within [0,1]")
	case c.GenAITimeoutMS <= 0:
		return invalid("genai_timeout_ms must be positive")
	case strings.TrimSpace(c.MetricsNamespace) == "":
		return invalid("metrics_namespace must not be empty")
	case c.MetricsRefreshMS <= 0:
		return invalid("metrics_refresh_ms must be positive")
	}
	return nil
}
