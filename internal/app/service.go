// Package service wires the engine components together and implements the
// dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/garden/internal/adapters/gemini"
	eventqueue "github.com/okian/garden/internal/adapters/mq/queue"
	workerpool "github.com/okian/garden/internal/adapters/mq/worker"
	"github.com/okian/garden/internal/adapters/repository"
	"github.com/okian/garden/internal/adapters/scheduler"
	"github.com/okian/garden/internal/config"
	"github.com/okian/garden/internal/domain/aggregate"
	"github.com/okian/garden/internal/domain/dedupe"
	"github.com/okian/garden/internal/domain/emitter"
	"github.com/okian/garden/internal/domain/model"
	"github.com/okian/garden/internal/domain/narrative"
	"github.com/okian/garden/internal/domain/progress"
	"github.com/okian/garden/internal/domain/reward"
	"github.com/okian/garden/internal/domain/session"
	"github.com/okian/garden/internal/domain/team"
	"github.com/okian/garden/pkg/logger"
	"github.com/okian/garden/pkg/metrics"
)

// ErrNotStarted is returned by operations called before Start.
var ErrNotStarted = errors.New("service not started")

const stopTimeout = 30 * time.Second

// Service owns the engine's components for the lifetime of the process.
type Service struct {
	mu sync.RWMutex

	cfg       config.Config
	store     repository.Store
	ownsStore bool
	generator narrative.Generator
	now       func() time.Time

	// Components built by Start.
	queue      *eventqueue.InMemoryQueue
	deduper    dedupe.Deduper
	emitter    *emitter.Emitter
	workerPool *workerpool.Pool
	recorder   *session.Recorder
	aggregator *aggregate.Aggregator
	ledger     *progress.Ledger
	rollup     *team.Rollup
	scheduler  *scheduler.Scheduler

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig replaces every setting with cfg.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = *cfg
		}
	}
}

// WithWorkerCount sets the number of signal persistence workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.cfg.WorkerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the signal queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.cfg.EventQueueSize = size
		}
	}
}

// WithDedupeSize sets how many signal ids are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.cfg.DedupeSize = size
		}
	}
}

// WithStore injects a store instead of opening one from the configuration.
// The caller keeps ownership and closes it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithGenerator injects the narrative generator instead of building the
// Gemini client from the configuration.
func WithGenerator(g narrative.Generator) Option {
	return func(s *Service) {
		s.generator = g
	}
}

// WithClock overrides the time source of the time-dependent components.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		cfg: *config.New(context.Background()),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds and starts every component.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	cfg := s.cfg
	s.logger.Info(ctx, "starting signal engine...", logger.String("store", cfg.StoreDriver))

	if s.store == nil {
		store, err := repository.Open(ctx, cfg.StoreDriver, cfg.StoreDSN)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
		s.ownsStore = true
	}

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.DedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(cfg.EventQueueSize))
	s.emitter = emitter.New(s.queue,
		emitter.WithDeduper(s.deduper),
		emitter.WithClock(s.now),
	)
	s.workerPool = workerpool.NewPool(cfg.WorkerCount, s.queue, s.store,
		workerpool.WithMaxAttempts(cfg.EmitMaxAttempts),
	)
	s.workerPool.Start(context.WithoutCancel(ctx))

	narrator := narrative.New(s.narrativeGenerator(ctx),
		narrative.WithTimeout(time.Duration(cfg.GenAITimeoutMS)*time.Millisecond),
	)
	s.recorder = session.NewRecorder(s.store, session.WithClock(s.now))
	s.aggregator = aggregate.New(s.store, narrator,
		aggregate.WithMinSessions(cfg.MinSessions),
		aggregate.WithPolicy(reward.NewPolicy(reward.WithChances(cfg.LegendaryChance, cfg.RareChance))),
		aggregate.WithClock(s.now),
	)
	s.ledger = progress.NewLedger(s.store, cfg.XPPerLevel)
	s.rollup = team.New(s.store, s.aggregator,
		team.WithFloor(cfg.AnonymityFloor),
		team.WithFanout(cfg.TeamFanout),
	)

	if cfg.AggregateSchedule != "" {
		sched, err := scheduler.New(s.aggregator, cfg.AggregateSchedule)
		if err != nil {
			s.abortStart(ctx)
			return err
		}
		if err := sched.Start(context.WithoutCancel(ctx)); err != nil {
			s.abortStart(ctx)
			return err
		}
		s.scheduler = sched
	}

	s.started = true
	s.logger.Info(ctx, "signal engine started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", cfg.EventQueueSize),
		logger.Int("dedupeSize", cfg.DedupeSize),
		logger.Bool("generative", s.generator != nil),
	)
	return nil
}

// narrativeGenerator returns the injected generator or a Gemini client when
// an API key is configured. Without one the phrase bank answers every call.
func (s *Service) narrativeGenerator(ctx context.Context) narrative.Generator {
	if s.generator != nil {
		return s.generator
	}
	g, err := gemini.New(ctx, s.cfg.GenAIAPIKey, gemini.WithModel(s.cfg.GenAIModel))
	if err != nil {
		if errors.Is(err, narrative.ErrUnavailable) {
			s.logger.Info(ctx, "no generative api key, using the phrase bank")
		} else {
			s.logger.Warn(ctx, "generative client unavailable, using the phrase bank", logger.Error(err))
		}
		return nil
	}
	s.generator = g
	return g
}

func (s *Service) abortStart(ctx context.Context) {
	_ = s.workerPool.Shutdown(ctx)
	if s.ownsStore {
		_ = s.store.Close()
		s.store = nil
		s.ownsStore = false
	}
}

// Stop drains the signal queue and releases resources.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping signal engine...")

	if s.scheduler != nil {
		if err := s.scheduler.Stop(ctx); err != nil {
			s.logger.Warn(ctx, "scheduler stop", logger.Error(err))
		}
		s.scheduler = nil
	}
	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	if s.ownsStore {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(ctx, "store close", logger.Error(err))
		}
		s.store = nil
		s.ownsStore = false
	}

	s.started = false
	s.logger.Info(ctx, "signal engine stopped")
}

func (s *Service) running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Emit buffers an implicit signal. Signals emitted before Start or after Stop
// are dropped.
func (s *Service) Emit(ctx context.Context, e model.ImplicitEvent) {
	if !s.running() {
		metrics.RecordSignalDropped("not_started")
		return
	}
	s.emitter.Emit(ctx, e)
}

// StartSession opens an assessment session.
func (s *Service) StartSession(ctx context.Context, userID string, instruments []model.InstrumentCode, sessCtx map[string]string) (model.SessionHandle, error) {
	if !s.running() {
		return model.SessionHandle{}, ErrNotStarted
	}
	return s.recorder.Start(ctx, userID, instruments, sessCtx)
}

// SubmitSession completes a session.
func (s *Service) SubmitSession(ctx context.Context, userID, sessionID string, responses map[string]float64, elapsedRounds int) (model.SubmitResult, error) {
	if !s.running() {
		return model.SubmitResult{}, ErrNotStarted
	}
	return s.recorder.Submit(ctx, userID, sessionID, responses, elapsedRounds)
}

// RecordMood stores a mood check-in.
func (s *Service) RecordMood(ctx context.Context, userID string, valence, arousal float64) (model.MoodEntry, error) {
	if !s.running() {
		return model.MoodEntry{}, ErrNotStarted
	}
	return s.recorder.RecordMood(ctx, userID, valence, arousal)
}

// Aggregate summarizes completed sessions over a period.
func (s *Service) Aggregate(ctx context.Context, userID string, instrument model.InstrumentCode, period model.Period) (model.AggregateResult, error) {
	if !s.running() {
		return model.AggregateResult{}, ErrNotStarted
	}
	return s.aggregator.Aggregate(ctx, userID, instrument, period)
}

// Weekly returns the current week's summary, garden and streak.
func (s *Service) Weekly(ctx context.Context, userID string) (aggregate.WeeklyView, error) {
	if !s.running() {
		return aggregate.WeeklyView{}, ErrNotStarted
	}
	return s.aggregator.Weekly(ctx, userID)
}

// RunWeekly runs the weekly WHO5 batch now.
func (s *Service) RunWeekly(ctx context.Context) (int, error) {
	if !s.running() {
		return 0, ErrNotStarted
	}
	return s.aggregator.RunWeekly(ctx)
}

// GrantXP adds XP to a module.
func (s *Service) GrantXP(ctx context.Context, userID, module string, amount int64, source string) (model.XPGrant, error) {
	if !s.running() {
		return model.XPGrant{}, ErrNotStarted
	}
	return s.ledger.GrantXP(ctx, userID, module, amount, source)
}

// UnlockItem unlocks an item in a module.
func (s *Service) UnlockItem(ctx context.Context, userID, module, itemID string) error {
	if !s.running() {
		return ErrNotStarted
	}
	return s.ledger.UnlockItem(ctx, userID, module, itemID)
}

// Progress reads one module.
func (s *Service) Progress(ctx context.Context, userID, module string) (model.ModuleProgress, error) {
	if !s.running() {
		return model.ModuleProgress{}, ErrNotStarted
	}
	return s.ledger.Progress(ctx, userID, module)
}

// TeamReport generates a k-anonymized team report.
func (s *Service) TeamReport(ctx context.Context, orgID, teamName string, start, end time.Time) (model.TeamReport, error) {
	if !s.running() {
		return model.TeamReport{}, ErrNotStarted
	}
	return s.rollup.Generate(ctx, orgID, teamName, start, end)
}

// AddMember records an organization membership.
func (s *Service) AddMember(ctx context.Context, m model.Member) error {
	if !s.running() {
		return ErrNotStarted
	}
	return s.store.AddMember(ctx, m)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"storeDriver": s.cfg.StoreDriver,
		"queueSize":   s.cfg.EventQueueSize,
		"dedupeSize":  s.cfg.DedupeSize,
	}
	if !s.started {
		return stats
	}

	ctx := context.Background()
	queueLen := s.queue.Len(ctx)
	stats["workerCount"] = s.workerPool.Size()
	stats["queueLength"] = queueLen
	stats["dedupeEntries"] = s.deduper.Size()
	stats["signalsPersisted"] = s.workerPool.Processed()
	stats["emitter"] = s.emitter.Stats()
	stats["generative"] = s.generator != nil
	if s.scheduler != nil {
		stats["weeklyRuns"] = s.scheduler.Runs()
	}

	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateWorkerCount(s.workerPool.Size())
	return stats
}
