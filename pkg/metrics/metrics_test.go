package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When applying them to a manager", func() {
			registry := prometheus.NewRegistry()
			m := NewManager(
				WithNamespace("test_namespace"),
				WithLatencyBuckets([]float64{0.1, 0.5, 1.0}),
				WithMetricsEnabled(false),
				WithRefreshInterval(5*time.Second),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the manager should carry the configured values", func() {
				So(m.namespace, ShouldEqual, "test_namespace")
				So(m.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
				So(m.enabled, ShouldBeFalse)
				So(m.refreshInterval, ShouldEqual, 5*time.Second)
				So(m.constLabels["env"], ShouldEqual, "test")
			})
		})

		Convey("When passing empty values", func() {
			m := NewManager(
				WithNamespace(""),
				WithLatencyBuckets(nil),
				WithConstLabels(nil),
				WithRefreshInterval(0),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then the defaults should be kept", func() {
				So(m.namespace, ShouldEqual, "modelrank")
				So(m.subsystem, ShouldEqual, "selector")
				So(m.histogramBuckets, ShouldResemble, DefaultLatencyBucketsMS)
				So(m.constLabels, ShouldBeEmpty)
				So(m.refreshInterval, ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with a custom registry, namespace and labels", func() {
			registry := prometheus.NewRegistry()
			m := NewManager(
				WithPrometheusRegistry(registry),
				WithNamespace("mr"),
				WithConstLabels(map[string]string{"region": "eu"}),
			)
			m.rankRequests.WithLabelValues("models", OutcomeOK).Inc()

			Convey("Then metrics should carry the namespace and the fixed labels", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				var names []string
				for _, f := range families {
					names = append(names, f.GetName())
					if f.GetName() == "mr_selector_rank_requests_total" {
						var region string
						for _, lp := range f.GetMetric()[0].GetLabel() {
							if lp.GetName() == "region" {
								region = lp.GetValue()
							}
						}
						So(region, ShouldEqual, "eu")
					}
				}
				So(names, ShouldContain, "mr_selector_rank_requests_total")
			})
		})

		Convey("When latency buckets are not increasing", func() {
			m := NewManager(
				WithPrometheusRegistry(prometheus.NewRegistry()),
				WithLatencyBuckets([]float64{5, 1, 10}),
			)

			Convey("Then the default buckets should be kept", func() {
				So(m.histogramBuckets, ShouldResemble, DefaultLatencyBucketsMS)
			})
		})

		Convey("When two managers share a registry", func() {
			registry := prometheus.NewRegistry()
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration should panic", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording ranking metrics", func() {
			before := testutil.ToFloat64(globalManager.rankRequests.WithLabelValues("models", OutcomeOK))
			RecordRankRequest("models", OutcomeOK)
			RecordValidationError("shape_mismatch")
			RecordEngineLatency(0.2)
			RecordAlternatives(5)
			RecordEstimationError()
			RecordRateLimited("/rank-models")
			RecordAvailableModelsQuery()

			Convey("Then counters should advance", func() {
				after := testutil.ToFloat64(globalManager.rankRequests.WithLabelValues("models", OutcomeOK))
				So(after-before, ShouldEqual, 1)
				So(testutil.ToFloat64(globalManager.validationErrors.WithLabelValues("shape_mismatch")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording catalog metrics", func() {
			UpdateCatalogSize(42)
			RecordCatalogRefresh(OutcomeOK, 120)
			RecordCatalogRefresh("error", 30)
			RecordCatalogQueryLatency(0.5)
			RecordHubRequest("200")

			Convey("Then the catalog gauges should reflect them", func() {
				So(testutil.ToFloat64(globalManager.catalogSize), ShouldEqual, 42)
				So(testutil.ToFloat64(globalManager.catalogLastRefresh), ShouldBeGreaterThan, 0)
				So(testutil.ToFloat64(globalManager.catalogRefreshes.WithLabelValues("error")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording HTTP, error and system metrics", func() {
			So(func() {
				RecordHTTPRequest("/", "GET", "200")
				RecordHTTPRequestDuration("/", "GET", "200", 1.5)
				RecordErrorByComponent("api", "validation")
				RecordErrorByType("validation", "warning")
				RecordErrorByEndpoint("/topsis", "POST", "invalid_weight")
				RecordErrorLatency("api", "validation", 0.3)
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(10)
				RecordSystemGCPauseTime(0.4)
			}, ShouldNotPanic)
		})

		Convey("When metrics are disabled", func() {
			saved := globalManager.enabled
			globalManager.enabled = false
			defer func() { globalManager.enabled = saved }()

			before := testutil.ToFloat64(globalManager.estimationErrors)
			RecordEstimationError()

			Convey("Then nothing should be recorded", func() {
				So(testutil.ToFloat64(globalManager.estimationErrors), ShouldEqual, before)
			})
		})
	})
}

func TestRegistryExposure(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		RecordRankRequest("matrix", OutcomeRejected)

		Convey("Then it should expose service metrics only", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			found := false
			for _, f := range families {
				So(strings.HasPrefix(f.GetName(), "go_"), ShouldBeFalse)
				if f.GetName() == "modelrank_selector_rank_requests_total" {
					found = true
				}
			}
			So(found, ShouldBeTrue)
		})

		Convey("Then helpers should report sane values", func() {
			So(RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			So(SinceMs(time.Now().Add(-time.Second)), ShouldBeGreaterThanOrEqualTo, 1000)
		})
	})
}

func TestInit(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		savedManager, savedRegistry := globalManager, customRegistry
		defer func() { globalManager, customRegistry = savedManager, savedRegistry }()

		Convey("When it is re-initialised with options", func() {
			Init(
				WithConstLabels(map[string]string{"deployment": "canary"}),
				WithLatencyBuckets([]float64{1, 10, 100}),
				WithRefreshInterval(3*time.Second),
			)
			RecordHTTPRequestDuration("/rank-models", "POST", "200", 7)

			Convey("Then GetRegistry should expose the new manager's metrics", func() {
				So(GetRegistry(), ShouldNotEqual, savedRegistry)
				So(RefreshInterval(), ShouldEqual, 3*time.Second)

				families, err := GetRegistry().Gather()
				So(err, ShouldBeNil)
				var buckets int
				for _, f := range families {
					if f.GetName() == "modelrank_selector_http_request_duration_milliseconds" {
						buckets = len(f.GetMetric()[0].GetHistogram().GetBucket())
					}
				}
				So(buckets, ShouldEqual, 3)
			})
		})
	})
}
