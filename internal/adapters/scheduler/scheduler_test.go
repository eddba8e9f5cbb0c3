package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"

	"github.com/okian/garden/internal/adapters/scheduler"
	"github.com/okian/garden/pkg/logger"
)

func init() {
	_ = logger.Init()
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingRunner struct {
	calls atomic.Int64
	err   error
}

func (r *countingRunner) RunWeekly(ctx context.Context) (int, error) {
	r.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("run without deadline")
	}
	return 3, r.err
}

func TestScheduler(t *testing.T) {
	convey.Convey("Given a weekly aggregation scheduler", t, func() {
		runner := &countingRunner{}

		convey.Convey("An invalid spec is rejected", func() {
			s, err := scheduler.New(runner, "every tuesday")
			convey.So(s, convey.ShouldBeNil)
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("Descriptors and five-field specs are accepted", func() {
			_, err := scheduler.New(runner, "@weekly")
			convey.So(err, convey.ShouldBeNil)
			_, err = scheduler.New(runner, "0 3 * * 1")
			convey.So(err, convey.ShouldBeNil)
		})

		convey.Convey("RunOnce calls the runner with a bounded context", func() {
			s, err := scheduler.New(runner, "@weekly", scheduler.WithTimeout(time.Second))
			convey.So(err, convey.ShouldBeNil)
			s.RunOnce(context.Background())
			convey.So(runner.calls.Load(), convey.ShouldEqual, int64(1))
			convey.So(s.Runs(), convey.ShouldEqual, int64(1))
		})

		convey.Convey("A failing run is logged and counted", func() {
			runner.err = errors.New("store down")
			s, err := scheduler.New(runner, "@daily")
			convey.So(err, convey.ShouldBeNil)
			s.RunOnce(context.Background())
			convey.So(s.Runs(), convey.ShouldEqual, int64(1))
		})

		convey.Convey("A started scheduler fires on its schedule and stops", func() {
			s, err := scheduler.New(runner, "@every 1s")
			convey.So(err, convey.ShouldBeNil)
			convey.So(s.Start(context.Background()), convey.ShouldBeNil)

			deadline := time.Now().Add(3 * time.Second)
			for runner.calls.Load() == 0 && time.Now().Before(deadline) {
				time.Sleep(20 * time.Millisecond)
			}
			stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			convey.So(s.Stop(stopCtx), convey.ShouldBeNil)
			convey.So(runner.calls.Load(), convey.ShouldBeGreaterThan, int64(0))
		})
	})
}
