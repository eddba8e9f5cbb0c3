package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/garden/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestImplicitEvent(t *testing.T) {
	convey.Convey("Given an implicit event", t, func() {
		e := model.ImplicitEvent{
			UserID:     "u-1",
			Instrument: model.WHO5,
			ItemID:     "who5_1",
			Proxy:      model.ProxyDuration,
			Value:      12,
			Context:    map[string]string{model.ContextModule: "breathing"},
		}

		convey.Convey("When it is well formed", func() {
			err := e.Validate()

			convey.Convey("Then it validates and numbers become float64", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(e.Value, convey.ShouldEqual, float64(12))
				convey.So(e.Module(), convey.ShouldEqual, "breathing")
			})
		})

		convey.Convey("When the instrument is unknown", func() {
			e.Instrument = "PHQ9"
			convey.So(errors.Is(e.Validate(), model.ErrUnknownInstrument), convey.ShouldBeTrue)
		})

		convey.Convey("When the proxy is unknown", func() {
			e.Proxy = "hover"
			convey.So(errors.Is(e.Validate(), model.ErrInvalidProxy), convey.ShouldBeTrue)
		})

		convey.Convey("When the value is missing or of the wrong type", func() {
			e.Value = nil
			convey.So(errors.Is(e.Validate(), model.ErrInvalidEvent), convey.ShouldBeTrue)
			e.Value = []int{1}
			convey.So(errors.Is(e.Validate(), model.ErrInvalidEvent), convey.ShouldBeTrue)
		})

		convey.Convey("When the value is a string choice", func() {
			e.Value = "calm"
			convey.So(e.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestParseInstrument(t *testing.T) {
	convey.Convey("Given instrument codes from clients", t, func() {
		c, err := model.ParseInstrument(" who5 ")
		convey.So(err, convey.ShouldBeNil)
		convey.So(c, convey.ShouldEqual, model.WHO5)

		_, err = model.ParseInstrument("phq9")
		convey.So(errors.Is(err, model.ErrUnknownInstrument), convey.ShouldBeTrue)
	})
}

func TestWeekISO(t *testing.T) {
	convey.Convey("Given ISO week helpers", t, func() {
		convey.Convey("Then weeks are Thursday anchored", func() {
			// 2021-01-01 is a Friday and belongs to 2020-W53.
			convey.So(model.WeekISO(time.Date(2021, 1, 1, 12, 0, 0, 0, time.UTC)), convey.ShouldEqual, "2020-W53")
			convey.So(model.WeekISO(time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)), convey.ShouldEqual, "2026-W43")
		})

		convey.Convey("Then parsing returns the Monday of the week", func() {
			start, err := model.ParseWeekISO("2026-W43")
			convey.So(err, convey.ShouldBeNil)
			convey.So(start, convey.ShouldEqual, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC))

			start, err = model.ParseWeekISO("2020-W53")
			convey.So(err, convey.ShouldBeNil)
			convey.So(start, convey.ShouldEqual, time.Date(2020, 12, 28, 0, 0, 0, 0, time.UTC))
		})

		convey.Convey("Then malformed or impossible weeks are rejected", func() {
			_, err := model.ParseWeekISO("2026-42")
			convey.So(errors.Is(err, model.ErrInvalidWeek), convey.ShouldBeTrue)
			_, err = model.ParseWeekISO("2025-W53")
			convey.So(errors.Is(err, model.ErrInvalidWeek), convey.ShouldBeTrue)
		})

		convey.Convey("Then week distance ignores the weekday", func() {
			sunday := time.Date(2026, 10, 18, 23, 0, 0, 0, time.UTC)
			monday := time.Date(2026, 10, 19, 1, 0, 0, 0, time.UTC)
			convey.So(model.WeeksBetween(sunday, monday), convey.ShouldEqual, 1)
			convey.So(model.WeeksBetween(monday, monday.AddDate(0, 0, 6)), convey.ShouldEqual, 0)
			convey.So(model.WeeksBetween(monday.AddDate(0, 0, -21), monday), convey.ShouldEqual, 3)
		})
	})
}

func TestLevelFor(t *testing.T) {
	convey.Convey("Given the level formula", t, func() {
		convey.So(model.LevelFor(0, 500), convey.ShouldEqual, 1)
		convey.So(model.LevelFor(499, 500), convey.ShouldEqual, 1)
		convey.So(model.LevelFor(500, 500), convey.ShouldEqual, 2)
		convey.So(model.LevelFor(530, 500), convey.ShouldEqual, 2)
		convey.So(model.LevelFor(1200, 0), convey.ShouldEqual, 3)
	})
}

func TestClampMood(t *testing.T) {
	convey.Convey("Given mood values outside the scale", t, func() {
		convey.So(model.ClampMood(-5), convey.ShouldEqual, -2)
		convey.So(model.ClampMood(3), convey.ShouldEqual, 2)
		convey.So(model.ClampMood(0.5), convey.ShouldEqual, 0.5)
	})
}

func TestTeamAggregateKey(t *testing.T) {
	convey.Convey("Given a team cell", t, func() {
		a := model.TeamAggregate{Theme: model.ThemeStress, TeamName: "teamB"}
		convey.So(a.Key(), convey.ShouldEqual, "stress/teamB")
	})
}
