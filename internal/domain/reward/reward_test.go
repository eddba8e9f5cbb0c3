package reward_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/okian/garden/internal/domain/model"
	"github.com/okian/garden/internal/domain/reward"
	. "github.com/smartystreets/goconvey/convey"
)

func weeksBack(now time.Time, offsets ...int) []model.WeeklySummary {
	var rows []model.WeeklySummary
	for _, off := range offsets {
		at := now.AddDate(0, 0, -7*off)
		rows = append(rows, model.WeeklySummary{WeekISO: model.WeekISO(at), CreatedAt: at})
	}
	return rows
}

func TestStreak(t *testing.T) {
	now := time.Date(2026, 10, 21, 10, 0, 0, 0, time.UTC)

	Convey("Given weekly summaries", t, func() {
		Convey("When there are none", func() {
			So(reward.Streak(nil, now), ShouldEqual, 0)
		})

		Convey("When weeks W, W-1, W-2 are present and W-3 is missing", func() {
			rows := weeksBack(now, 0, 1, 2, 4)
			So(reward.Streak(rows, now), ShouldEqual, 3)
		})

		Convey("When the latest summary is from last week", func() {
			rows := weeksBack(now, 1, 2, 3)
			So(reward.Streak(rows, now), ShouldEqual, 0)
		})

		Convey("When rows arrive unordered", func() {
			rows := weeksBack(now, 2, 0, 1)
			So(reward.Streak(rows, now), ShouldEqual, 3)
		})

		Convey("When an older week was written after the current run", func() {
			rows := weeksBack(now, 0, 1, 2)
			backfill := weeksBack(now, 3)[0]
			backfill.CreatedAt = now.Add(time.Hour)
			rows = append(rows, backfill)
			So(reward.Streak(rows, now), ShouldEqual, 4)

			isolated := weeksBack(now, 7)[0]
			isolated.CreatedAt = now.Add(2 * time.Hour)
			So(reward.Streak(append(weeksBack(now, 0, 1, 2), isolated), now), ShouldEqual, 3)
		})

		Convey("When rows share a creation time", func() {
			rows := weeksBack(now, 0, 1, 2, 5)
			for i := range rows {
				rows[i].CreatedAt = now
			}
			So(reward.Streak(rows, now), ShouldEqual, 3)
		})

		Convey("When the same week appears twice", func() {
			rows := weeksBack(now, 0, 0, 1, 2, 3, 4, 5)
			So(reward.Streak(rows, now), ShouldEqual, reward.StreakWindow)
		})

		Convey("When more than five consecutive weeks exist", func() {
			rows := weeksBack(now, 0, 1, 2, 3, 4, 5, 6)
			So(reward.Streak(rows, now), ShouldEqual, reward.StreakWindow)
		})
	})
}

func TestRarity(t *testing.T) {
	Convey("Given a rarity policy", t, func() {
		Convey("When chances are certain", func() {
			p := reward.NewPolicy(reward.WithChances(1, 1))

			So(p.Rarity(3, 6, 3), ShouldEqual, model.RarityLegendary)
			So(p.Rarity(2, 0, 0), ShouldEqual, model.RarityEpic)
			So(p.Rarity(0, 4, 2), ShouldEqual, model.RarityEpic)
		})

		Convey("When chances are impossible", func() {
			p := reward.NewPolicy(reward.WithChances(0, 0))

			So(p.Rarity(3, 6, 3), ShouldEqual, model.RarityEpic)
			So(p.Rarity(2, 0, 0), ShouldEqual, model.RarityCommonPlus)
			So(p.Rarity(1, 4, 0), ShouldEqual, model.RarityCommonPlus)
			So(p.Rarity(0, 3, 0), ShouldEqual, model.RarityCommon)
			So(p.Rarity(0, 0, 0), ShouldEqual, model.RarityCommon)
		})

		Convey("When a long streak lacks engagement", func() {
			p := reward.NewPolicy(reward.WithChances(1, 0))
			// score 14 misses the legendary gate; streak>=2 lands in the rare branch
			So(p.Rarity(5, 7, 0), ShouldEqual, model.RarityCommonPlus)
		})

		Convey("When the default chances drive many rolls", func() {
			p := reward.NewPolicy(reward.WithRand(rand.New(rand.NewSource(7))))
			counts := map[model.Rarity]int{}
			for i := 0; i < 20000; i++ {
				counts[p.Rarity(3, 10, 0)]++
			}
			ratio := float64(counts[model.RarityLegendary]) / 20000

			Convey("Then only epic and legendary appear, near a 5% split", func() {
				So(counts[model.RarityEpic]+counts[model.RarityLegendary], ShouldEqual, 20000)
				So(ratio, ShouldBeBetween, 0.03, 0.07)
			})
		})

		Convey("When invalid chances are given", func() {
			p := reward.NewPolicy(reward.WithChances(-1, 2), reward.WithRand(rand.New(rand.NewSource(1))))
			tiers := map[model.Rarity]bool{}
			for i := 0; i < 2000; i++ {
				tiers[p.Rarity(2, 0, 0)] = true
			}
			So(tiers[model.RarityCommonPlus], ShouldBeTrue)
			So(tiers[model.RarityEpic], ShouldBeTrue)
		})
	})

	Convey("Given engagement counters", t, func() {
		So(reward.EngagementScore(5, 4), ShouldEqual, 14)
	})
}
