package simulate

import (
	"testing"
	"time"

	"github.com/okian/garden/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGenerator(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	Convey("Given two generators with the same seed and user", t, func() {
		a := newGenerator(7, 3, "garden", now)
		b := newGenerator(7, 3, "garden", now)

		Convey("Then they produce the same values", func() {
			for i := 0; i < 20; i++ {
				sa, sb := a.signal(), b.signal()
				So(sa.Instrument, ShouldEqual, sb.Instrument)
				So(sa.ItemID, ShouldEqual, sb.ItemID)
				So(sa.Value, ShouldEqual, sb.Value)
			}
		})
	})

	Convey("Given a generator", t, func() {
		g := newGenerator(1, 0, "garden", now)

		Convey("Then every signal is a valid implicit event", func() {
			for i := 0; i < 200; i++ {
				s := g.signal()
				ev := model.ImplicitEvent{
					EventID:    s.EventID,
					UserID:     "u",
					Instrument: model.InstrumentCode(s.Instrument),
					ItemID:     s.ItemID,
					Proxy:      model.ProxyKind(s.Proxy),
					Value:      s.Value,
					Context:    s.Context,
				}
				So(ev.Validate(), ShouldBeNil)
				So(g.catalog.HasItem(ev.Instrument, ev.ItemID), ShouldBeTrue)
			}
		})

		Convey("Then duplicates only repeat generated ids", func() {
			unique, all := g.signals(100, 0.5)
			So(len(unique), ShouldEqual, 100)
			So(len(all), ShouldBeGreaterThan, 100)
			seen := map[string]bool{}
			for _, s := range unique {
				seen[s.EventID] = true
			}
			for _, s := range all {
				So(seen[s.EventID], ShouldBeTrue)
			}
		})

		Convey("Then moods stay on the mood scale", func() {
			for i := 0; i < 50; i++ {
				v, a := g.mood()
				So(v, ShouldBeBetweenOrEqual, model.MoodMin, model.MoodMax)
				So(a, ShouldBeBetweenOrEqual, model.MoodMin, model.MoodMax)
			}
		})
	})
}
