// Package scheduler runs the weekly aggregation batch on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/okian/garden/pkg/logger"
)

// Runner is the batch the scheduler triggers.
type Runner interface {
	RunWeekly(ctx context.Context) (int, error)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithTimeout bounds one batch run.
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLocation sets the time zone the schedule is evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// Scheduler triggers Runner.RunWeekly on a cron spec. Overlapping runs are
// skipped.
type Scheduler struct {
	runner   Runner
	spec     string
	timeout  time.Duration
	location *time.Location
	cron     *cron.Cron
	runs     atomic.Int64
	log      logger.Logger
}

// New validates spec (standard five fields or a descriptor such as @weekly).
func New(runner Runner, spec string, opts ...Option) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid aggregate schedule %q: %w", spec, err)
	}
	s := &Scheduler{
		runner:   runner,
		spec:     spec,
		timeout:  10 * time.Minute,
		location: time.UTC,
		log:      logger.Named("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	cl := cronLogger{log: s.log}
	s.cron = cron.New(
		cron.WithLocation(s.location),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return s, nil
}

// Start registers the job and starts the cron loop. Runs derive from ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("schedule weekly aggregation: %w", err)
	}
	s.cron.Start()
	s.log.Info(ctx, "weekly aggregation scheduled", logger.String("spec", s.spec))
	return nil
}

// Stop stops the loop and waits for a run in flight, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// RunOnce runs the batch immediately.
func (s *Scheduler) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	n, err := s.runner.RunWeekly(ctx)
	s.runs.Add(1)
	if err != nil {
		s.log.Error(ctx, "weekly aggregation failed",
			logger.Int("users", n),
			logger.Duration("took", time.Since(start)),
			logger.Error(err),
		)
		return
	}
	s.log.Info(ctx, "weekly aggregation done",
		logger.Int("users", n),
		logger.Duration("took", time.Since(start)),
	)
}

// Runs returns how many batches have run.
func (s *Scheduler) Runs() int64 { return s.runs.Load() }

// cronLogger adapts the project logger to cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(context.Background(), msg, fields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(context.Background(), msg, append(fields(keysAndValues), logger.Error(err))...)
}

func fields(kv []interface{}) []logger.Field {
	out := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, logger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return out
}
