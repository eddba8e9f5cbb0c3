package team_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/okian/garden/internal/adapters/repository"
	"github.com/okian/garden/internal/domain/aggregate"
	"github.com/okian/garden/internal/domain/model"
	"github.com/okian/garden/internal/domain/narrative"
	"github.com/okian/garden/internal/domain/team"
	"github.com/okian/garden/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

var (
	periodEnd   = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	periodStart = periodEnd.AddDate(0, 0, -7)
)

// addRespondents registers n members of teamName; the first tense of them
// complete STAI6 sessions with enough tension badges to be tagged stressed.
func addRespondents(store *repository.MemoryStore, org, teamName string, n, tense int) {
	ctx := context.Background()
	for i := 0; i < n; i++ {
		user := fmt.Sprintf("%s-%s-%d", org, teamName, i)
		_ = store.AddMember(ctx, model.Member{OrgID: org, TeamName: teamName, UserID: user})
		sessions, code := 1, model.WHO5
		if i < tense {
			sessions, code = 3, model.STAI6
		}
		for j := 0; j < sessions; j++ {
			id := fmt.Sprintf("%s-%d", user, j)
			at := periodStart.Add(time.Duration(24+j) * time.Hour)
			_ = store.CreateSession(ctx, model.AssessmentSession{ID: id, UserID: user, Instruments: []model.InstrumentCode{code}, StartedAt: at})
			kind := model.BadgePresence
			if code == model.STAI6 {
				kind = model.BadgeTension
			}
			_ = store.CompleteSession(ctx, user, id, nil, model.Badge{Kind: kind, AwardedAt: at})
		}
	}
}

type failingSignals struct{}

func (failingSignals) Signals(context.Context, string, model.Window) (model.Signals, error) {
	return model.Signals{}, errors.New("db down")
}

func TestRollup(t *testing.T) {
	ctx := context.Background()

	Convey("Given an org with a small and a large team", t, func() {
		store := repository.NewMemoryStore()
		agg := aggregate.New(store, narrative.New(nil))
		rollup := team.New(store, agg, team.WithFanout(3))

		addRespondents(store, "o-1", "teamA", 4, 4)
		addRespondents(store, "o-1", "teamB", 6, 2)
		// registered but silent members do not count as respondents
		_ = store.AddMember(ctx, model.Member{OrgID: "o-1", TeamName: "teamA", UserID: "silent-1"})
		_ = store.AddMember(ctx, model.Member{OrgID: "o-1", TeamName: "teamA", UserID: "silent-2"})

		Convey("When the whole org is reported", func() {
			report, err := rollup.Generate(ctx, "o-1", "", periodStart, periodEnd)

			Convey("Then only teamB cells are present", func() {
				So(err, ShouldBeNil)
				So(report.Suppressed, ShouldBeFalse)
				keys := map[string]int{}
				for _, c := range report.Cells {
					keys[c.Key()] = c.SampleSize
					So(c.SampleSize, ShouldBeGreaterThanOrEqualTo, 5)
				}
				So(keys, ShouldContainKey, "stress/teamB")
				So(keys, ShouldNotContainKey, "stress/teamA")
				So(keys["stress/teamB"], ShouldEqual, 6)
			})

			Convey("Then phrases come from counts only", func() {
				for _, c := range report.Cells {
					if c.Theme == model.ThemeStress {
						So(c.Phrases, ShouldResemble, []string{"Une partie de l'équipe ressent de la tension"})
					}
					if c.Theme == model.ThemeFatigue {
						So(c.Phrases[0], ShouldStartWith, "Peu de signaux")
					}
					for _, p := range c.Phrases {
						So(p, ShouldNotContainSubstring, "o-1-teamB")
					}
				}
			})

			Convey("Then surviving cells are persisted", func() {
				cells, err := store.TeamAggregates(ctx, "o-1")
				So(err, ShouldBeNil)
				So(len(cells), ShouldEqual, len(model.Themes))
			})
		})

		Convey("When only the small team is reported", func() {
			report, err := rollup.Generate(ctx, "o-1", "teamA", periodStart, periodEnd)

			Convey("Then the report is suppressed with no cells at all", func() {
				So(err, ShouldBeNil)
				So(report.Suppressed, ShouldBeTrue)
				So(report.Cells, ShouldBeEmpty)
				cells, _ := store.TeamAggregates(ctx, "o-1")
				So(cells, ShouldBeEmpty)
			})
		})

		Convey("When the floor is raised", func() {
			strict := team.New(store, agg, team.WithFloor(7))
			report, _ := strict.Generate(ctx, "o-1", "", periodStart, periodEnd)
			So(report.Suppressed, ShouldBeTrue)
		})

		Convey("When a lower floor is requested it stays at five", func() {
			loose := team.New(store, agg, team.WithFloor(2))
			report, _ := loose.Generate(ctx, "o-1", "teamA", periodStart, periodEnd)
			So(report.Suppressed, ShouldBeTrue)
		})

		Convey("When the period is reversed or the org is missing", func() {
			_, err := rollup.Generate(ctx, "o-1", "", periodEnd, periodStart)
			So(errors.Is(err, model.ErrInvalidPeriod), ShouldBeTrue)
			_, err = rollup.Generate(ctx, "", "", periodStart, periodEnd)
			So(errors.Is(err, model.ErrInvalidOrg), ShouldBeTrue)
		})

		Convey("When member signals cannot be read", func() {
			broken := team.New(store, failingSignals{})
			_, err := broken.Generate(ctx, "o-1", "", periodStart, periodEnd)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestPhrase(t *testing.T) {
	Convey("Given theme counts", t, func() {
		So(team.Phrase(model.ThemeFatigue, 3, 6), ShouldEqual, "Une majorité de l'équipe manque de récupération")
		So(team.Phrase(model.ThemeFatigue, 2, 8), ShouldEqual, "Une partie de l'équipe manque de récupération")
		So(team.Phrase(model.ThemeFatigue, 1, 8), ShouldEqual, "Quelques personnes manquent de récupération")
		So(team.Phrase(model.ThemeEnergy, 0, 8), ShouldEqual, "Peu de signaux d'énergie sur la période")
	})
}
