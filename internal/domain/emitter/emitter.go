// Package emitter is the fire-and-forget intake for implicit signals. Emit
// never reports failure to its caller; drops are logged and counted.
package emitter

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/garden/internal/domain/dedupe"
	"github.com/okian/garden/internal/domain/model"
	"github.com/okian/garden/pkg/logger"
	"github.com/okian/garden/pkg/metrics"
)

// Drop reasons reported to metrics.
const (
	DropInvalid   = "invalid"
	DropDuplicate = "duplicate"
	DropQueueFull = "queue_full"
)

// Queue accepts envelopes without blocking.
type Queue interface {
	Enqueue(ctx context.Context, e model.Envelope) bool
}

// Stats counts emitter outcomes since start.
type Stats struct {
	Accepted   int64 `json:"accepted"`
	Invalid    int64 `json:"invalid"`
	Duplicates int64 `json:"duplicates"`
	QueueFull  int64 `json:"queue_full"`
}

// Emitter validates events and hands them to the signal queue.
type Emitter struct {
	queue  Queue
	dedupe dedupe.Deduper
	now    func() time.Time
	log    logger.Logger

	accepted   atomic.Int64
	invalid    atomic.Int64
	duplicates atomic.Int64
	queueFull  atomic.Int64
}

// New creates an Emitter writing to q.
func New(q Queue, opts ...Option) *Emitter {
	e := &Emitter{
		queue: q,
		now:   time.Now,
		log:   logger.Named("emitter"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.dedupe == nil {
		e.dedupe = dedupe.NewInMemoryDeduper()
	}
	return e
}

// Emit buffers ev. Missing ids and timestamps are assigned here.
func (e *Emitter) Emit(ctx context.Context, ev model.ImplicitEvent) { //nolint:gocritic // hugeParam: events are copied into the queue
	if err := ev.Validate(); err != nil {
		e.invalid.Add(1)
		metrics.RecordSignalDropped(DropInvalid)
		e.log.Debug(ctx, "invalid signal dropped",
			logger.String("user", ev.UserID),
			logger.Error(err),
		)
		return
	}
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = e.now()
	}
	ev.OccurredAt = ev.OccurredAt.UTC()

	if e.dedupe.SeenAndRecord(ctx, ev.EventID) {
		e.duplicates.Add(1)
		metrics.RecordSignalDropped(DropDuplicate)
		return
	}

	if !e.queue.Enqueue(ctx, model.Envelope{Event: ev}) {
		// Forget the id so a client retry is not mistaken for a duplicate.
		e.dedupe.Unrecord(ctx, ev.EventID)
		e.queueFull.Add(1)
		metrics.RecordSignalDropped(DropQueueFull)
		e.log.Warn(ctx, "signal queue full, signal dropped",
			logger.String("eventID", ev.EventID),
			logger.String("instrument", string(ev.Instrument)),
		)
		return
	}

	e.accepted.Add(1)
	metrics.RecordSignalEmitted(string(ev.Instrument), string(ev.Proxy))
}

// Stats returns a snapshot of the emitter counters.
func (e *Emitter) Stats() Stats {
	return Stats{
		Accepted:   e.accepted.Load(),
		Invalid:    e.invalid.Load(),
		Duplicates: e.duplicates.Load(),
		QueueFull:  e.queueFull.Load(),
	}
}
