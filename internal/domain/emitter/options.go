package emitter

import (
	"time"

	"github.com/okian/garden/internal/domain/dedupe"
)

// Option configures an Emitter.
type Option func(*Emitter)

// WithDeduper sets the event id deduper.
func WithDeduper(d dedupe.Deduper) Option {
	return func(e *Emitter) {
		if d != nil {
			e.dedupe = d
		}
	}
}

// WithClock overrides the time source used for missing timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Emitter) {
		if now != nil {
			e.now = now
		}
	}
}
