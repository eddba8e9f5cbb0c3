package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created with engine defaults", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "garden")
				So(manager.subsystem, ShouldEqual, "engine")
				So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("wellness"),
				WithSubsystem("signals"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithRefreshInterval(3*time.Second),
				WithCustomLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then metric names should use the custom namespace", func() {
				manager.signalsPersisted.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "wellness_signals_signals_persisted_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
				So(manager.refreshInterval, ShouldEqual, 3*time.Second)
			})
		})

		Convey("When passing empty option values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithHistogramBuckets(nil),
				WithRefreshInterval(0),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults should be kept", func() {
				So(manager.namespace, ShouldEqual, "garden")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
				So(manager.refreshInterval, ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording signal metrics", func() {
			before := testutil.ToFloat64(globalManager.signalsEmitted.WithLabelValues("WHO5", "duration"))
			RecordSignalEmitted("WHO5", "duration")
			RecordSignalEmitted("WHO5", "duration")

			Convey("Then the labelled counter should advance", func() {
				after := testutil.ToFloat64(globalManager.signalsEmitted.WithLabelValues("WHO5", "duration"))
				So(after-before, ShouldEqual, 2)
			})
		})

		Convey("When recording XP grants", func() {
			before := testutil.ToFloat64(globalManager.xpGranted.WithLabelValues("breathing"))
			RecordXPGranted("breathing", 50)

			Convey("Then the counter should grow by the amount", func() {
				So(testutil.ToFloat64(globalManager.xpGranted.WithLabelValues("breathing"))-before, ShouldEqual, 50)
			})
		})

		Convey("When recording every other metric", func() {
			So(func() {
				RecordSignalDropped("queue_full")
				RecordSignalPersisted()
				RecordSignalRetry()
				UpdateQueueSize(10)
				UpdateQueueCapacity(100)
				UpdateQueueUtilization(0.1)
				RecordQueueEnqueue()
				RecordQueueDequeue()
				RecordQueueEnqueueError()
				RecordQueueProcessingLatency(1)
				UpdateWorkerCount(4)
				UpdateWorkerMessagesPerSecond(12.5)
				RecordWorkerProcessingLatency(2)
				RecordWorkerError()
				RecordSessionStarted("WHO5")
				RecordSessionCompleted("presence")
				RecordSessionRejected("already_completed")
				RecordMoodEntry()
				RecordAggregation("WHO5", "shown")
				RecordAggregationLatency(3)
				RecordNarrativeFallback("timeout")
				RecordNarrativeLatency(150)
				RecordGardenWriteError()
				RecordRarityTier("legendary")
				RecordLevelUp("breathing")
				RecordItemUnlocked("breathing")
				RecordTeamCell("suppressed")
				RecordHTTPRequest("signals", "POST", "202")
				RecordHTTPRequestDuration("signals", "POST", "202", 4)
				RecordRepositoryQueryLatency("complete_session", 1)
				RecordRepositoryError("complete_session")
				RecordErrorByComponent("worker", "storage")
				RecordErrorByType("storage", "high")
				RecordErrorByEndpoint("sessions", "POST", "client_error")
				RecordErrorLatency("http", "client_error", 2)
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.5)
			}, ShouldNotPanic)
		})

		Convey("When gathering the registry", func() {
			RecordTeamCell("reported")
			families, err := GetRegistry().Gather()

			Convey("Then engine metrics should be exposed", func() {
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "garden_engine_team_cells_total")
				So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestConfigure(t *testing.T) {
	Convey("Given a configured global manager", t, func() {
		Configure(
			WithNamespace("orchard"),
			WithSubsystem("signals"),
			WithRefreshInterval(time.Second),
			WithCustomLabels(map[string]string{"env": "test"}),
		)
		defer Configure()

		Convey("Then recorded metrics land on the new registry under the new names", func() {
			RecordSignalPersisted()
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			var found bool
			for _, f := range families {
				if f.GetName() == "orchard_signals_signals_persisted_total" {
					found = true
					So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "test")
				}
			}
			So(found, ShouldBeTrue)
			So(RefreshInterval(), ShouldEqual, time.Second)
		})
	})
}
