package progress_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/okian/garden/internal/adapters/repository"
	"github.com/okian/garden/internal/domain/model"
	"github.com/okian/garden/internal/domain/progress"
	"github.com/okian/garden/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func TestLedger(t *testing.T) {
	ctx := context.Background()

	Convey("Given a progress ledger", t, func() {
		store := repository.NewMemoryStore()
		ledger := progress.NewLedger(store, 500)

		Convey("When a module at 480 XP gains 50", func() {
			_, err := ledger.GrantXP(ctx, "u-1", "breathing", 480, "seed")
			So(err, ShouldBeNil)

			g, err := ledger.GrantXP(ctx, "u-1", "breathing", 50, "session")

			Convey("Then it reaches 530 and levels up from 1 to 2", func() {
				So(err, ShouldBeNil)
				So(g.TotalXP, ShouldEqual, 530)
				So(g.Level, ShouldEqual, 2)
				So(g.LeveledUp, ShouldBeTrue)
			})

			Convey("Then another module is untouched", func() {
				p, err := ledger.Progress(ctx, "u-1", "journal")
				So(err, ShouldBeNil)
				So(p.TotalXP, ShouldEqual, 0)
				So(p.Level, ShouldEqual, 1)
			})
		})

		Convey("When a small grant stays within the level", func() {
			g, err := ledger.GrantXP(ctx, "u-1", "journal", 20, "")
			So(err, ShouldBeNil)
			So(g.LeveledUp, ShouldBeFalse)
			So(g.Level, ShouldEqual, 1)
		})

		Convey("When the amount is not positive", func() {
			_, err := ledger.GrantXP(ctx, "u-1", "journal", 0, "")
			So(errors.Is(err, model.ErrInvalidXP), ShouldBeTrue)
			_, err = ledger.GrantXP(ctx, "u-1", "journal", -5, "")
			So(errors.Is(err, model.ErrInvalidXP), ShouldBeTrue)
		})

		Convey("When the module name is blank", func() {
			_, err := ledger.GrantXP(ctx, "u-1", "  ", 5, "")
			So(errors.Is(err, model.ErrInvalidModule), ShouldBeTrue)
		})

		Convey("When grants run concurrently", func() {
			var wg sync.WaitGroup
			var mu sync.Mutex
			levelUps := 0
			for i := 0; i < 40; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					g, err := ledger.GrantXP(ctx, "u-1", "vr", 30, "")
					if err == nil && g.LeveledUp {
						mu.Lock()
						levelUps++
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			p, err := ledger.Progress(ctx, "u-1", "vr")

			Convey("Then the level always matches the total", func() {
				So(err, ShouldBeNil)
				So(p.TotalXP, ShouldEqual, 1200)
				So(p.Level, ShouldEqual, model.LevelFor(1200, 500))
				So(levelUps, ShouldEqual, 2)
			})
		})

		Convey("When unlocking the same item twice", func() {
			So(ledger.UnlockItem(ctx, "u-1", "vr", "forest"), ShouldBeNil)
			So(ledger.UnlockItem(ctx, "u-1", "vr", "forest"), ShouldBeNil)

			p, _ := ledger.Progress(ctx, "u-1", "VR")
			So(p.UnlockedItemIDs, ShouldResemble, []string{"forest"})
		})

		Convey("When unlocking an empty item id", func() {
			So(ledger.UnlockItem(ctx, "u-1", "vr", ""), ShouldNotBeNil)
		})
	})
}
