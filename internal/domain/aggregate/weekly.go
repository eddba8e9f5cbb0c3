package aggregate

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/garden/internal/domain/model"
	"github.com/okian/garden/internal/domain/reward"
	"github.com/okian/garden/pkg/logger"
)

// WeeklyView is the current week as shown to the user.
type WeeklyView struct {
	WeekISO string               `json:"week_iso"`
	Summary *model.WeeklySummary `json:"summary,omitempty"`
	Garden  *model.WeeklyGarden  `json:"garden,omitempty"`
	Streak  int                  `json:"streak"`
}

// Weekly reads the current week's summary, garden and streak. Missing rows
// are left nil.
func (a *Aggregator) Weekly(ctx context.Context, userID string) (WeeklyView, error) {
	now := a.now().UTC()
	view := WeeklyView{WeekISO: model.WeekISO(now)}

	s, err := a.store.WeeklySummary(ctx, userID, view.WeekISO)
	switch {
	case err == nil:
		view.Summary = &s
	case !errors.Is(err, model.ErrNotFound):
		return WeeklyView{}, fmt.Errorf("weekly summary: %w", err)
	}

	g, err := a.store.WeeklyGarden(ctx, userID, view.WeekISO)
	switch {
	case err == nil:
		view.Garden = &g
	case !errors.Is(err, model.ErrNotFound):
		return WeeklyView{}, fmt.Errorf("weekly garden: %w", err)
	}

	recent, err := a.store.RecentWeeklySummaries(ctx, userID, reward.StreakWindow)
	if err != nil {
		return WeeklyView{}, fmt.Errorf("streak: %w", err)
	}
	view.Streak = reward.Streak(recent, now)
	return view, nil
}

// RunWeekly aggregates WHO5 over the last week for every user who completed
// a WHO5 session in it. Per-user failures are logged and skipped; the run is
// idempotent and can be retried wholesale.
func (a *Aggregator) RunWeekly(ctx context.Context) (int, error) {
	w, err := Resolve(model.Period{Kind: model.PeriodLastWeek}, a.now())
	if err != nil {
		return 0, err
	}
	users, err := a.store.UsersWithCompletedSessions(ctx, model.WHO5, w)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	done := 0
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		if _, err := a.Aggregate(ctx, u, model.WHO5, model.Period{Kind: model.PeriodLastWeek}); err != nil {
			a.log.Warn(ctx, "weekly aggregation failed", logger.String("user_id", u), logger.Error(err))
			continue
		}
		done++
	}
	a.log.Info(ctx, "weekly aggregation finished", logger.Int("users", len(users)), logger.Int("done", done))
	return done, nil
}
