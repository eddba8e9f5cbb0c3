// Package team rolls member signals up into k-anonymized team reports.
package team

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/garden/internal/domain/insight"
	"github.com/okian/garden/internal/domain/model"
	"github.com/okian/garden/pkg/logger"
	"github.com/okian/garden/pkg/metrics"
)

// MinAnonymityFloor is the smallest disclosable cell.
const MinAnonymityFloor = 5

// Store is the membership lookup and cell persistence.
type Store interface {
	Members(ctx context.Context, orgID, team string) ([]model.Member, error)
	UpsertTeamAggregate(ctx context.Context, a model.TeamAggregate) error
}

// SignalSource collects one user's window signals.
type SignalSource interface {
	Signals(ctx context.Context, userID string, w model.Window) (model.Signals, error)
}

// Option configures a Rollup.
type Option func(*Rollup)

// WithFloor sets the anonymity floor. Values below MinAnonymityFloor are
// raised to it.
func WithFloor(k int) Option {
	return func(r *Rollup) {
		if k > MinAnonymityFloor {
			r.floor = k
		}
	}
}

// WithFanout bounds concurrent member reads.
func WithFanout(n int) Option {
	return func(r *Rollup) {
		if n > 0 {
			r.fanout = n
		}
	}
}

// Rollup generates team reports.
type Rollup struct {
	store   Store
	signals SignalSource
	floor   int
	fanout  int
	log     logger.Logger
}

// New creates a Rollup.
func New(store Store, signals SignalSource, opts ...Option) *Rollup {
	r := &Rollup{
		store:   store,
		signals: signals,
		floor:   MinAnonymityFloor,
		fanout:  8,
		log:     logger.Named("team"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// memberThemes is one respondent's contribution; it never leaves this file.
type memberThemes struct {
	team      string
	responded bool
	themes    []model.Theme
}

type tally struct {
	respondents int
	themes      map[model.Theme]int
}

// Generate builds the report for one team, or for every team of the org when
// teamName is empty. Cells below the floor are omitted. Only aggregate counts
// reach the phrases.
func (r *Rollup) Generate(ctx context.Context, orgID, teamName string, start, end time.Time) (model.TeamReport, error) {
	if strings.TrimSpace(orgID) == "" {
		return model.TeamReport{}, model.ErrInvalidOrg
	}
	w := model.Window{From: start.UTC(), To: end.UTC()}
	if !w.From.Before(w.To) {
		return model.TeamReport{}, fmt.Errorf("%w: period_start must precede period_end", model.ErrInvalidPeriod)
	}

	members, err := r.store.Members(ctx, orgID, teamName)
	if err != nil {
		return model.TeamReport{}, fmt.Errorf("load members: %w", err)
	}

	contributions := make([]memberThemes, len(members))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.fanout)
	for i, m := range members {
		g.Go(func() error {
			s, err := r.signals.Signals(gctx, m.UserID, w)
			if err != nil {
				return fmt.Errorf("member signals: %w", err)
			}
			c := memberThemes{team: m.TeamName, responded: s.Completed > 0}
			if c.responded {
				c.themes = insight.Themes(insight.Derive(s))
			}
			contributions[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.TeamReport{}, err
	}

	tallies := map[string]*tally{}
	var teams []string
	for _, c := range contributions {
		if !c.responded {
			continue
		}
		t, ok := tallies[c.team]
		if !ok {
			t = &tally{themes: map[model.Theme]int{}}
			tallies[c.team] = t
			teams = append(teams, c.team)
		}
		t.respondents++
		for _, th := range c.themes {
			t.themes[th]++
		}
	}

	report := model.TeamReport{OrgID: orgID, PeriodStart: w.From, PeriodEnd: w.To, Cells: []model.TeamAggregate{}}
	for _, name := range teams {
		t := tallies[name]
		if t.respondents < r.floor {
			metrics.RecordTeamCell("suppressed")
			continue
		}
		for _, th := range model.Themes {
			cell := model.TeamAggregate{
				OrgID:       orgID,
				TeamName:    name,
				Theme:       th,
				PeriodStart: w.From,
				PeriodEnd:   w.To,
				Phrases:     []string{Phrase(th, t.themes[th], t.respondents)},
				SampleSize:  t.respondents,
			}
			report.Cells = append(report.Cells, cell)
			metrics.RecordTeamCell("disclosed")
		}
	}
	report.Suppressed = len(report.Cells) == 0

	for _, cell := range report.Cells {
		if err := r.store.UpsertTeamAggregate(ctx, cell); err != nil {
			r.log.Warn(ctx, "team cell not persisted",
				logger.String("org_id", orgID),
				logger.String("cell", cell.Key()),
				logger.Error(err))
		}
	}
	return report, nil
}
