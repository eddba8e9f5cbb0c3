// Package worker drains the signal queue into the signal buffer.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/garden/internal/domain/model"
	"github.com/okian/garden/pkg/logger"
	"github.com/okian/garden/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	defaultMaxAttempts      = 3
	metricsUpdateInterval   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Appender persists one implicit event.
type Appender interface {
	AppendSignal(ctx context.Context, e model.ImplicitEvent) error
}

// Queue defines how workers receive envelopes and hand failed ones back.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Envelope
	Enqueue(ctx context.Context, e model.Envelope) bool
}

// Worker persists envelopes read from a queue.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is drained.
	Run(ctx context.Context)

	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue       Queue
	store       Appender
	name        string
	maxAttempts int
	processed   atomic.Int64

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, store Appender, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:       queue,
		store:       store,
		name:        "worker",
		maxAttempts: defaultMaxAttempts,
		shutdown:    make(chan struct{}),
		done:        make(chan struct{}),
		logger:      logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	envelopes := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case e, ok := <-envelopes:
			if !ok {
				return
			}
			w.process(ctx, e)
		}
	}
}

// Shutdown stops the worker after the envelope in flight.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Processed returns how many envelopes this worker persisted.
func (w *InMemoryWorker) Processed() int64 { return w.processed.Load() }

func (w *InMemoryWorker) stop() {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
}

// process writes one envelope and re-enqueues it on storage failure until the
// attempt budget is spent.
func (w *InMemoryWorker) process(ctx context.Context, e model.Envelope) { //nolint:gocritic // hugeParam: envelopes travel by value
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	err := w.store.AppendSignal(ctx, e.Event)
	if err == nil {
		w.processed.Add(1)
		metrics.RecordSignalPersisted()
		return
	}

	metrics.RecordWorkerError()
	metrics.RecordErrorByComponent("worker", "storage_error")
	e.Attempt++
	if e.Attempt < w.maxAttempts && w.queue.Enqueue(ctx, e) {
		metrics.RecordSignalRetry()
		w.logger.Debug(ctx, "signal write failed, retrying",
			logger.String("eventID", e.Event.EventID),
			logger.Int("attempt", e.Attempt),
			logger.Error(err),
		)
		return
	}

	metrics.RecordSignalDropped("storage_error")
	metrics.RecordErrorByType("storage_error", "high")
	w.logger.Error(ctx, "signal dropped after storage failures",
		logger.String("eventID", e.Event.EventID),
		logger.Int("attempts", e.Attempt),
		logger.Error(err),
	)
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	started      atomic.Bool
	shutdown     chan struct{}
	shutdownOnce sync.Once
	background   sync.WaitGroup

	lastProcessed     int64
	lastProcessedTime time.Time

	logger logger.Logger
}

// NewPool creates a new worker pool. Options apply to every worker.
func NewPool(workerCount int, queue Queue, store Appender, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:           make([]*InMemoryWorker, workerCount),
		queue:             queue,
		shutdown:          make(chan struct{}),
		lastProcessedTime: time.Now(),
		logger:            logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(queue, store, workerOpts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerMessagesPerSecond(0.0)

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Processed returns how many envelopes the pool persisted.
func (p *Pool) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	for _, w := range p.workers {
		go w.Run(ctx)
	}

	p.background.Add(1)
	go p.startMetricsUpdater(ctx)
}

func (p *Pool) startMetricsUpdater(ctx context.Context) {
	defer p.background.Done()
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.updateMetrics()
		}
	}
}

func (p *Pool) updateMetrics() {
	now := time.Now()
	processed := p.Processed()
	if elapsed := now.Sub(p.lastProcessedTime).Seconds(); elapsed > 0 {
		metrics.UpdateWorkerMessagesPerSecond(float64(processed-p.lastProcessed) / elapsed)
	}
	p.lastProcessed = processed
	p.lastProcessedTime = now
}

// Stop halts all workers without draining the queue.
func (p *Pool) Stop() {
	p.shutdownOnce.Do(func() { close(p.shutdown) })
	if !p.started.Load() {
		return
	}
	for _, w := range p.workers {
		w.stop()
		<-w.done
	}
	p.background.Wait()
}

// Shutdown closes the queue and lets workers drain what is buffered. Workers
// still busy when ctx (capped at 30s) expires are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	if !p.started.Load() {
		p.shutdownOnce.Do(func() { close(p.shutdown) })
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			w.stop()
			<-w.done
		}
	}

	p.shutdownOnce.Do(func() { close(p.shutdown) })
	p.background.Wait()
	return nil
}
