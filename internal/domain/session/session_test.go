package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/garden/internal/adapters/repository"
	"github.com/okian/garden/internal/domain/model"
	"github.com/okian/garden/internal/domain/session"
	"github.com/okian/garden/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	Convey("Given a session recorder", t, func() {
		store := repository.NewMemoryStore()
		rec := session.NewRecorder(store, session.WithClock(func() time.Time { return now }))

		Convey("When starting a session with two instruments", func() {
			h, err := rec.Start(ctx, "u-1", []model.InstrumentCode{model.STAI6, model.WHO5, model.STAI6}, map[string]string{"page": "vr"})

			Convey("Then the handle carries each item set once", func() {
				So(err, ShouldBeNil)
				So(h.SessionID, ShouldNotBeEmpty)
				So(len(h.Items), ShouldEqual, 2)
				So(len(h.Items[model.WHO5]), ShouldEqual, 5)

				s, err := store.GetSession(ctx, h.SessionID)
				So(err, ShouldBeNil)
				So(s.Instruments, ShouldResemble, []model.InstrumentCode{model.STAI6, model.WHO5})
				So(s.Completed(), ShouldBeFalse)
			})

			Convey("And submitting it", func() {
				res, err := rec.Submit(ctx, "u-1", h.SessionID, map[string]float64{"stai_calm": 2, "who5_rested": 4}, 4)

				Convey("Then a verbal badge from the first instrument is returned", func() {
					So(err, ShouldBeNil)
					So(res.Badge, ShouldEqual, "Souffle apaisé")
					So(res.Message, ShouldEqual, "Un pas de plus vers l'équilibre")

					s, _ := store.GetSession(ctx, h.SessionID)
					So(s.Completed(), ShouldBeTrue)
					So(s.Badge.Kind, ShouldEqual, model.BadgeTension)
					So(s.CompletedAt.Equal(now), ShouldBeTrue)
				})

				Convey("Then a second submit is rejected", func() {
					_, err := rec.Submit(ctx, "u-1", h.SessionID, nil, 1)
					So(errors.Is(err, model.ErrSessionAlreadyCompleted), ShouldBeTrue)
				})
			})

			Convey("And another user submits it", func() {
				_, err := rec.Submit(ctx, "u-2", h.SessionID, nil, 1)
				So(errors.Is(err, model.ErrSessionNotFound), ShouldBeTrue)
			})

			Convey("And responses name items outside the session", func() {
				_, err := rec.Submit(ctx, "u-1", h.SessionID, map[string]float64{"panas_upset": 1}, 1)
				So(errors.Is(err, model.ErrInvalidResponse), ShouldBeTrue)

				s, _ := store.GetSession(ctx, h.SessionID)
				So(s.Completed(), ShouldBeFalse)
			})

			Convey("And many submits race", func() {
				var ok, already atomic.Int32
				var wg sync.WaitGroup
				for i := 0; i < 16; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						_, err := rec.Submit(ctx, "u-1", h.SessionID, nil, 0)
						switch {
						case err == nil:
							ok.Add(1)
						case errors.Is(err, model.ErrSessionAlreadyCompleted):
							already.Add(1)
						}
					}()
				}
				wg.Wait()

				Convey("Then exactly one completes it", func() {
					So(ok.Load(), ShouldEqual, 1)
					So(already.Load(), ShouldEqual, 15)
				})
			})
		})

		Convey("When submitting an unknown session", func() {
			_, err := rec.Submit(ctx, "u-1", "nope", nil, 0)
			So(errors.Is(err, model.ErrSessionNotFound), ShouldBeTrue)
		})

		Convey("When starting with no or unknown instruments", func() {
			_, err := rec.Start(ctx, "u-1", nil, nil)
			So(errors.Is(err, model.ErrUnknownInstrument), ShouldBeTrue)
			_, err = rec.Start(ctx, "u-1", []model.InstrumentCode{"PHQ9"}, nil)
			So(errors.Is(err, model.ErrUnknownInstrument), ShouldBeTrue)
		})

		Convey("When recording an out of range mood", func() {
			m, err := rec.RecordMood(ctx, "u-1", 3.5, -4)

			Convey("Then it is clamped and stored", func() {
				So(err, ShouldBeNil)
				So(m.Valence, ShouldEqual, 2)
				So(m.Arousal, ShouldEqual, -2)
				moods, _ := store.Moods(ctx, "u-1", model.Window{From: now.Add(-time.Hour), To: now.Add(time.Hour)})
				So(len(moods), ShouldEqual, 1)
			})
		})
	})
}
