// Package aggregate computes gated, verbal-only summaries over a window and,
// for WHO5, refreshes the weekly summary and garden.
package aggregate

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/garden/internal/domain/insight"
	"github.com/okian/garden/internal/domain/model"
	"github.com/okian/garden/internal/domain/narrative"
	"github.com/okian/garden/internal/domain/reward"
	"github.com/okian/garden/pkg/logger"
	"github.com/okian/garden/pkg/metrics"
)

// DefaultMinSessions is the sample gate.
const DefaultMinSessions = 2

// computeTimeout bounds one shared computation.
const computeTimeout = 30 * time.Second

// Outcome labels.
const (
	OutcomeInsufficient = "insufficient"
	OutcomeShown        = "shown"
	OutcomeFallback     = "fallback"
)

// Store is the persistence the aggregator reads and writes.
type Store interface {
	CompletedSessions(ctx context.Context, userID string, instrument model.InstrumentCode, w model.Window) ([]model.AssessmentSession, error)
	UsersWithCompletedSessions(ctx context.Context, instrument model.InstrumentCode, w model.Window) ([]string, error)
	Moods(ctx context.Context, userID string, w model.Window) ([]model.MoodEntry, error)
	CountModuleSessions(ctx context.Context, userID string, w model.Window) (int, error)
	UpsertWeeklySummary(ctx context.Context, s model.WeeklySummary) error
	WeeklySummary(ctx context.Context, userID, week string) (model.WeeklySummary, error)
	RecentWeeklySummaries(ctx context.Context, userID string, limit int) ([]model.WeeklySummary, error)
	UpsertWeeklyGarden(ctx context.Context, g model.WeeklyGarden) error
	WeeklyGarden(ctx context.Context, userID, week string) (model.WeeklyGarden, error)
}

// Narrator composes verbal lines for a gated window.
type Narrator interface {
	Compose(ctx context.Context, instrument model.InstrumentCode, sessions int) narrative.Lines
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithMinSessions sets the sample gate. Values below 2 are ignored.
func WithMinSessions(n int) Option {
	return func(a *Aggregator) {
		if n >= DefaultMinSessions {
			a.minSessions = n
		}
	}
}

// WithPolicy sets the rarity policy.
func WithPolicy(p *reward.Policy) Option {
	return func(a *Aggregator) {
		if p != nil {
			a.policy = p
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// Aggregator is safe for concurrent use. Calls for the same
// (user, instrument, window) share one computation.
type Aggregator struct {
	store       Store
	narrator    Narrator
	policy      *reward.Policy
	minSessions int
	now         func() time.Time
	group       singleflight.Group
	log         logger.Logger
}

// New creates an Aggregator.
func New(store Store, narrator Narrator, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:       store,
		narrator:    narrator,
		policy:      reward.NewPolicy(),
		minSessions: DefaultMinSessions,
		now:         time.Now,
		log:         logger.Named("aggregate"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate summarizes a user's completed sessions of one instrument.
func (a *Aggregator) Aggregate(ctx context.Context, userID string, instrument model.InstrumentCode, period model.Period) (model.AggregateResult, error) {
	if !instrument.Valid() {
		return model.AggregateResult{}, fmt.Errorf("%w: %q", model.ErrUnknownInstrument, instrument)
	}
	w, err := Resolve(period, a.now())
	if err != nil {
		return model.AggregateResult{}, err
	}

	key := fmt.Sprintf("%s|%s|%d|%d", userID, instrument, w.From.UnixNano(), w.To.UnixNano())
	ch := a.group.DoChan(key, func() (any, error) {
		// joined callers must not inherit the first caller's cancellation
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), computeTimeout)
		defer cancel()
		return a.aggregate(shared, userID, instrument, w)
	})
	select {
	case <-ctx.Done():
		return model.AggregateResult{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return model.AggregateResult{}, r.Err
		}
		return r.Val.(model.AggregateResult), nil
	}
}

func (a *Aggregator) aggregate(ctx context.Context, userID string, instrument model.InstrumentCode, w model.Window) (model.AggregateResult, error) {
	start := time.Now()
	defer func() { metrics.RecordAggregationLatency(float64(time.Since(start).Milliseconds())) }()

	sessions, err := a.store.CompletedSessions(ctx, userID, instrument, w)
	if err != nil {
		return model.AggregateResult{}, fmt.Errorf("load sessions: %w", err)
	}
	if len(sessions) < a.minSessions {
		metrics.RecordAggregation(string(instrument), OutcomeInsufficient)
		return model.AggregateResult{
			CanShow:    false,
			VerbalWeek: []string{},
			Helps:      []string{},
			Summary:    model.InsufficientData,
		}, nil
	}

	lines := a.narrator.Compose(ctx, instrument, len(sessions))
	if len(lines.Summary) == 0 || len(lines.Helps) == 0 {
		lines = narrative.Lines{
			Summary:  narrative.FallbackSummary(len(sessions)),
			Helps:    narrative.FallbackHelps(),
			Fallback: narrative.ReasonEmpty,
		}
	}
	res := model.AggregateResult{
		CanShow:    true,
		VerbalWeek: lines.Summary,
		Helps:      lines.Helps,
		Summary:    lines.Summary[0],
	}
	outcome := OutcomeShown
	if lines.Fallback != "" {
		outcome = OutcomeFallback
	}
	metrics.RecordAggregation(string(instrument), outcome)

	if instrument == model.WHO5 {
		res.WeekISO = model.WeekISO(w.To)
		a.refreshWeek(ctx, userID, w, res.WeekISO)
	}
	return res, nil
}

// refreshWeek derives and upserts the weekly summary and garden. Failures are
// logged and counted; the caller's result never depends on them.
func (a *Aggregator) refreshWeek(ctx context.Context, userID string, w model.Window, week string) {
	log := a.log.With(logger.String("week", week))
	fail := func(step string, err error) {
		metrics.RecordGardenWriteError()
		log.Warn(ctx, "weekly refresh failed", logger.String("step", step), logger.Error(err))
	}

	signals, err := a.Signals(ctx, userID, w)
	if err != nil {
		fail("signals", err)
		return
	}
	in := insight.Derive(signals)

	now := a.now().UTC()
	summary := model.WeeklySummary{
		UserID:     userID,
		WeekISO:    week,
		VerbalWeek: in.VerbalWeek,
		Helps:      in.Helps,
		Season:     in.Season,
		Hints:      in.Hints,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := a.store.UpsertWeeklySummary(ctx, summary); err != nil {
		fail("summary", err)
		return
	}

	recent, err := a.store.RecentWeeklySummaries(ctx, userID, reward.StreakWindow)
	if err != nil {
		fail("streak", err)
		return
	}
	streak := reward.Streak(recent, now)
	rarity := a.policy.Rarity(streak, signals.Sessions, len(signals.Badges))
	metrics.RecordRarityTier(rarity.String())

	garden := model.WeeklyGarden{
		UserID:     userID,
		WeekISO:    week,
		PlantState: insight.Plant(signals),
		SkyState:   insight.Sky(in),
		Rarity:     rarity,
		UpdatedAt:  now,
	}
	if err := a.store.UpsertWeeklyGarden(ctx, garden); err != nil {
		fail("garden", err)
		return
	}
	log.Debug(ctx, "weekly garden refreshed",
		logger.Int("streak", streak),
		logger.String("rarity", rarity.String()),
		logger.Int("growth", garden.PlantState.Growth))
}

// Signals collects badges, moods and the session count for a window. The
// count covers completed sessions of every instrument plus module completions.
func (a *Aggregator) Signals(ctx context.Context, userID string, w model.Window) (model.Signals, error) {
	all, err := a.store.CompletedSessions(ctx, userID, "", w)
	if err != nil {
		return model.Signals{}, fmt.Errorf("load sessions: %w", err)
	}
	moods, err := a.store.Moods(ctx, userID, w)
	if err != nil {
		return model.Signals{}, fmt.Errorf("load moods: %w", err)
	}
	modules, err := a.store.CountModuleSessions(ctx, userID, w)
	if err != nil {
		return model.Signals{}, fmt.Errorf("count module sessions: %w", err)
	}
	s := model.Signals{Moods: moods, Sessions: len(all) + modules, Completed: len(all)}
	for _, sess := range all {
		if sess.Badge != nil {
			s.Badges = append(s.Badges, *sess.Badge)
		}
	}
	return s, nil
}
