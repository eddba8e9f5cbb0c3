package config_test

import (
	"context"
	"runtime"
	"testing"

	"github.com/okian/garden/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.EventQueueSize, convey.ShouldEqual, 100_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.MinSessions, convey.ShouldEqual, 2)
			convey.So(cfg.AnonymityFloor, convey.ShouldEqual, 5)
			convey.So(cfg.XPPerLevel, convey.ShouldEqual, 500)
			convey.So(cfg.LegendaryChance, convey.ShouldEqual, 0.05)
			convey.So(cfg.RareChance, convey.ShouldEqual, 0.15)
			convey.So(cfg.AggregateSchedule, convey.ShouldEqual, "@weekly")
		})

		convey.Convey("And the defaults should validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
