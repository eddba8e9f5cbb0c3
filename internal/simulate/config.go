// Package simulate drives a running engine over HTTP with synthetic users.
package simulate

import (
	"errors"
	"time"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL         string        // Base URL of the service
	Users           int           // Number of synthetic users
	SignalsPerUser  int           // Implicit signals emitted per user
	SessionsPerUser int           // WHO5 sessions completed per user
	DuplicateRatio  float64       // Share of signals sent twice
	BatchSize       int           // Signals per POST /v1/signals request
	Workers         int           // Number of concurrent users in flight
	Timeout         time.Duration // HTTP request timeout
	Seed            uint64        // Seed of the value generator
	Module          string        // Module receiving XP and completions
	MinSessions     int           // Aggregation gate the server is configured with
	OutputFile      string        // Optional JSON dump of the generated signals
}

// DefaultConfig returns a small run against a local server.
func DefaultConfig() Config {
	return Config{
		BaseURL:         "http://localhost:9080",
		Users:           20,
		SignalsPerUser:  20,
		SessionsPerUser: 2,
		DuplicateRatio:  0.1,
		BatchSize:       50,
		Workers:         8,
		Timeout:         10 * time.Second,
		Seed:            42,
		Module:          "garden",
		MinSessions:     2,
	}
}

// Validate rejects configurations that cannot produce a run.
func (c Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return errors.New("base url is required")
	case c.Users <= 0:
		return errors.New("users must be positive")
	case c.SignalsPerUser < 0 || c.SessionsPerUser < 0:
		return errors.New("signal and session counts must not be negative")
	case c.DuplicateRatio < 0 || c.DuplicateRatio > 1:
		return errors.New("duplicate ratio must be within [0,1]")
	case c.BatchSize <= 0 || c.Workers <= 0:
		return errors.New("batch size and workers must be positive")
	}
	return nil
}

// Signal is one synthetic implicit event as posted to the API.
type Signal struct {
	EventID    string            `json:"event_id"`
	Instrument string            `json:"instrument"`
	ItemID     string            `json:"item_id"`
	Proxy      string            `json:"proxy"`
	Value      any               `json:"value"`
	Context    map[string]string `json:"context,omitempty"`
	OccurredAt string            `json:"occurred_at"`
}

// Stats holds run statistics.
type Stats struct {
	Users             int           `json:"users"`
	SignalsGenerated  int           `json:"signals_generated"`
	SignalsPosted     int           `json:"signals_posted"`
	SignalRequests    int           `json:"signal_requests"`
	SessionsCompleted int           `json:"sessions_completed"`
	MoodsRecorded     int           `json:"moods_recorded"`
	LevelUps          int           `json:"level_ups"`
	AggregatesShown   int           `json:"aggregates_shown"`
	RequestsFailed    int           `json:"requests_failed"`
	Violations        int           `json:"violations"`
	Duration          time.Duration `json:"duration"`
}
