// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers defaults, an optional YAML file and GARDEN_ env vars.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"runtime"
)

// Store drivers understood by the repository layer.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// StoreDriver selects memory, postgres or sqlite persistence.
	StoreDriver string `koanf:"store_driver"`

	// StoreDSN is the driver specific connection string.
	StoreDSN string `koanf:"store_dsn"`

	// EventQueueSize bounds the in-memory signal queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of signal persistence workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many signal event ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// EmitMaxAttempts bounds storage retries for one signal.
	EmitMaxAttempts int `koanf:"emit_max_attempts"`

	// EmitRatePerSecond and EmitBurst limit POST /v1/signals per user.
	EmitRatePerSecond float64 `koanf:"emit_rate_per_second"`
	EmitBurst         int     `koanf:"emit_burst"`

	// GenAIAPIKey enables the generative phrasing service when set.
	GenAIAPIKey string `koanf:"genai_api_key"`

	// GenAIModel names the text model.
	GenAIModel string `koanf:"genai_model"`

	// GenAITimeoutMS bounds one generative call; expiry triggers the phrase bank.
	GenAITimeoutMS int `koanf:"genai_timeout_ms"`

	// MinSessions is the minimum completed sessions before anything is shown.
	MinSessions int `koanf:"min_sessions"`

	// AnonymityFloor is the minimum distinct respondents per team cell.
	AnonymityFloor int `koanf:"anonymity_floor"`

	// XPPerLevel is the level divisor of the progress ledger.
	XPPerLevel int64 `koanf:"xp_per_level"`

	// LegendaryChance and RareChance are the rarity coin-flip probabilities.
	LegendaryChance float64 `koanf:"legendary_chance"`
	RareChance      float64 `koanf:"rare_chance"`

	// AggregateSchedule is the cron spec of the weekly WHO5 batch; empty disables it.
	AggregateSchedule string `koanf:"aggregate_schedule"`

	// TeamFanout bounds concurrent member reads during a team rollup.
	TeamFanout int `koanf:"team_fanout"`

	// MetricsNamespace and MetricsSubsystem prefix every exported metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsRefreshMS is how often runtime gauges are sampled.
	MetricsRefreshMS int `koanf:"metrics_refresh_ms"`

	// MetricsBuckets overrides the latency histogram buckets (milliseconds).
	MetricsBuckets []float64 `koanf:"metrics_buckets"`

	// MetricsLabels are constant labels attached to every metric.
	MetricsLabels map[string]string `koanf:"metrics_labels"`
}

// New creates a Config populated with defaults. Context is accepted first to
// satisfy the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         "text",
		Addr:              ":9080",
		StoreDriver:       StoreMemory,
		EventQueueSize:    100_000,
		WorkerCount:       runtime.NumCPU() * 2,
		DedupeSize:        500_000,
		EmitMaxAttempts:   3,
		EmitRatePerSecond: 20,
		EmitBurst:         40,
		GenAIModel:        "gemini-2.0-flash",
		GenAITimeoutMS:    4000,
		MinSessions:       2,
		AnonymityFloor:    5,
		XPPerLevel:        500,
		LegendaryChance:   0.05,
		RareChance:        0.15,
		AggregateSchedule: "@weekly",
		TeamFanout:        8,
		MetricsNamespace:  "garden",
		MetricsSubsystem:  "engine",
		MetricsRefreshMS:  10_000,
	}
}
