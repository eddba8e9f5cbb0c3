package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/garden/internal/domain/model"
	"github.com/okian/garden/pkg/logger"
)

const directoryPermission = 0750

// counters are shared by the user goroutines of one run.
type counters struct {
	generated, posted, requests atomic.Int64
	sessions, moods, levelUps   atomic.Int64
	shown, failed, violations   atomic.Int64
}

// Run drives cfg.Users synthetic users against the service and returns the
// run statistics. Per-user request failures are counted, not fatal.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation config: %w", err)
	}
	log := logger.Named("simulate")
	start := time.Now()

	log.Info(ctx, "starting simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("users", cfg.Users),
		logger.Int("signalsPerUser", cfg.SignalsPerUser),
		logger.Int("sessionsPerUser", cfg.SessionsPerUser),
		logger.Int("workers", cfg.Workers))

	c := newClient(cfg.BaseURL, cfg.Timeout)
	if err := c.health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	var (
		cnt     counters
		mu      sync.Mutex
		emitted []Signal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := 0; i < cfg.Users; i++ {
		user := i
		g.Go(func() error {
			signals := runUser(gctx, c, cfg, user, start, &cnt)
			if cfg.OutputFile != "" {
				mu.Lock()
				emitted = append(emitted, signals...)
				mu.Unlock()
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("simulation interrupted: %w", err)
	}

	stats := &Stats{
		Users:             cfg.Users,
		SignalsGenerated:  int(cnt.generated.Load()),
		SignalsPosted:     int(cnt.posted.Load()),
		SignalRequests:    int(cnt.requests.Load()),
		SessionsCompleted: int(cnt.sessions.Load()),
		MoodsRecorded:     int(cnt.moods.Load()),
		LevelUps:          int(cnt.levelUps.Load()),
		AggregatesShown:   int(cnt.shown.Load()),
		RequestsFailed:    int(cnt.failed.Load()),
		Violations:        int(cnt.violations.Load()),
		Duration:          time.Since(start),
	}

	if cfg.OutputFile != "" {
		if err := saveSignals(cfg.OutputFile, emitted); err != nil {
			log.Warn(ctx, "failed to save signals to file", logger.Error(err))
		}
	}

	log.Info(ctx, "simulation finished",
		logger.Int("signalsPosted", stats.SignalsPosted),
		logger.Int("sessionsCompleted", stats.SessionsCompleted),
		logger.Int("aggregatesShown", stats.AggregatesShown),
		logger.Int("requestsFailed", stats.RequestsFailed),
		logger.Int("violations", stats.Violations),
		logger.Duration("duration", stats.Duration))
	return stats, nil
}

// runUser plays one user's week: signals, sessions, a mood check-in, XP and
// a final aggregate read. It returns the unique signals it generated.
func runUser(ctx context.Context, c *client, cfg Config, i int, now time.Time, cnt *counters) []Signal {
	user := userID(i)
	gen := newGenerator(cfg.Seed, i, cfg.Module, now)
	log := logger.Named("simulate").With(logger.String("user", user))

	fail := func(step string, err error) {
		cnt.failed.Add(1)
		log.Debug(ctx, "request failed", logger.String("step", step), logger.Error(err))
	}

	unique, all := gen.signals(cfg.SignalsPerUser, cfg.DuplicateRatio)
	cnt.generated.Add(int64(len(unique)))
	for off := 0; off < len(all); off += cfg.BatchSize {
		batch := all[off:min(off+cfg.BatchSize, len(all))]
		if err := c.do(ctx, http.MethodPost, "/v1/signals", user, batch, nil); err != nil {
			fail("signals", err)
			continue
		}
		cnt.requests.Add(1)
		cnt.posted.Add(int64(len(batch)))
	}

	completed := 0
	for s := 0; s < cfg.SessionsPerUser; s++ {
		var handle model.SessionHandle
		body := map[string]any{"instruments": []string{string(model.WHO5)}}
		if err := c.do(ctx, http.MethodPost, "/v1/sessions", user, body, &handle); err != nil {
			fail("session_start", err)
			continue
		}
		submit := map[string]any{
			"responses":      gen.responses(handle.Items),
			"elapsed_rounds": gen.rounds(),
		}
		if err := c.do(ctx, http.MethodPost, "/v1/sessions/"+url.PathEscape(handle.SessionID)+"/submit", user, submit, nil); err != nil {
			fail("session_submit", err)
			continue
		}
		cnt.sessions.Add(1)
		completed++
	}

	valence, arousal := gen.mood()
	if err := c.do(ctx, http.MethodPost, "/v1/moods", user, map[string]float64{"valence": valence, "arousal": arousal}, nil); err != nil {
		fail("mood", err)
	} else {
		cnt.moods.Add(1)
	}

	var grant model.XPGrant
	xp := map[string]any{"amount": gen.xp(), "source": "simulation"}
	if err := c.do(ctx, http.MethodPost, "/v1/progress/"+url.PathEscape(cfg.Module)+"/xp", user, xp, &grant); err != nil {
		fail("xp", err)
	} else if grant.LeveledUp {
		cnt.levelUps.Add(1)
	}

	// A custom window past now includes the sessions completed just above.
	q := url.Values{}
	q.Set("instrument", string(model.WHO5))
	q.Set("period", string(model.PeriodCustom))
	q.Set("from", now.AddDate(0, 0, -7).UTC().Format(time.RFC3339))
	q.Set("to", time.Now().Add(time.Minute).UTC().Format(time.RFC3339))
	var res model.AggregateResult
	if err := c.do(ctx, http.MethodGet, "/v1/aggregate?"+q.Encode(), user, nil, &res); err != nil {
		fail("aggregate", err)
	} else {
		if res.CanShow {
			cnt.shown.Add(1)
		}
		for _, v := range verifyAggregate(res, completed, cfg.MinSessions) {
			cnt.violations.Add(1)
			log.Warn(ctx, "aggregate violation", logger.String("rule", v))
		}
	}
	return unique
}

// saveSignals writes the generated signals as a JSON array.
func saveSignals(filename string, signals []Signal) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(signals); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write signals: %w", err)
	}
	return f.Close()
}
