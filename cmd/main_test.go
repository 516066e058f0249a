package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/modelrank/internal/adapters/http/api"
	"github.com/okian/modelrank/internal/config"
	"github.com/okian/modelrank/pkg/logger"
	"github.com/okian/modelrank/pkg/metrics"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func staticConfig() *config.Config {
	cfg := config.New()
	cfg.CatalogSource = config.CatalogSourceStatic
	cfg.StaticModels = []string{"m-one", "m-two", "m-three", "m-four", "m-five"}
	cfg.StrictCatalog = true
	return cfg
}

func TestBuildService(t *testing.T) {
	convey.Convey("Given a static catalog configuration", t, func() {
		cfg := staticConfig()

		convey.Convey("When the service is built and started", func() {
			svc, err := buildService(cfg, logger.Get())
			convey.So(err, convey.ShouldBeNil)
			convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
			defer svc.Stop()

			convey.Convey("Then the static models should be served", func() {
				ids, err := svc.AvailableModels(context.Background(), 10)
				convey.So(err, convey.ShouldBeNil)
				convey.So(ids, convey.ShouldResemble, cfg.StaticModels)
			})
		})

		convey.Convey("When the criteria are invalid", func() {
			cfg.Criteria = map[string]string{"accuracy": "?"}
			_, err := buildService(cfg, logger.Get())

			convey.Convey("Then building should fail with a config error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func TestBuildHandler(t *testing.T) {
	convey.Convey("Given the full handler over a static catalog", t, func() {
		ctx := context.Background()
		cfg := staticConfig()
		svc, err := buildService(cfg, logger.Get())
		convey.So(err, convey.ShouldBeNil)
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		srv := httptest.NewServer(buildHandler(ctx, cfg, svc))
		defer srv.Close()

		convey.Convey("When the banner is requested", func() {
			resp, err := http.Get(srv.URL + "/")
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			convey.Convey("Then it should carry a request id", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				convey.So(resp.Header.Get(api.RequestIDHeader), convey.ShouldNotBeEmpty)
			})
		})

		convey.Convey("When four catalog models are ranked", func() {
			body := `{"models":["m-one","m-two","m-three","m-four"],` +
				`"weights":{"accuracy":0.4,"latency":0.2,"size":0.2,"languages":0.2}}`
			resp, err := http.Post(srv.URL+"/rank-models", "application/json", strings.NewReader(body))
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			convey.Convey("Then a full ranking should come back", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				var rows []map[string]any
				convey.So(json.NewDecoder(resp.Body).Decode(&rows), convey.ShouldBeNil)
				convey.So(rows, convey.ShouldHaveLength, 4)
				convey.So(rows[0]["Rank"], convey.ShouldEqual, 1.0)
			})
		})

		convey.Convey("When a model outside the catalog is ranked", func() {
			body := `{"models":["m-one","m-two","m-three","nope"],` +
				`"weights":{"accuracy":1,"latency":1,"size":1,"languages":1}}`
			resp, err := http.Post(srv.URL+"/rank-models", "application/json", strings.NewReader(body))
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			convey.Convey("Then it should 404 with unknown_model", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusNotFound)
				var e map[string]string
				convey.So(json.NewDecoder(resp.Body).Decode(&e), convey.ShouldBeNil)
				convey.So(e["code"], convey.ShouldEqual, "unknown_model")
			})
		})

		convey.Convey("When a foreign origin calls the API", func() {
			req, _ := http.NewRequest(http.MethodGet, srv.URL+"/available-models", nil)
			req.Header.Set("Origin", "https://elsewhere.example")
			resp, err := http.DefaultClient.Do(req)
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()

			convey.Convey("Then it should be forbidden", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusForbidden)
			})
		})

		convey.Convey("When the frontend and docs are requested", func() {
			for _, path := range []string{"/app", "/static/script.js", "/api-docs", "/openapi.yaml"} {
				resp, err := http.Get(srv.URL + path)
				convey.So(err, convey.ShouldBeNil)
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				_ = resp.Body.Close()
			}
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a static configuration on an ephemeral port", t, func() {
		cfg := staticConfig()
		cfg.Addr = "127.0.0.1:0"

		convey.Convey("When the context is cancelled", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()
			err := run(ctx, cfg, logger.Get())

			convey.Convey("Then run should shut down cleanly", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the address is unusable", func() {
			cfg.Addr = "127.0.0.1:-1"
			err := run(context.Background(), cfg, logger.Get())

			convey.Convey("Then run should return the listen error", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		convey.Convey("Then a single update should not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("Then the loop should return when the context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})
	})
}

func TestMetricsOptions(t *testing.T) {
	convey.Convey("Given a config with metrics settings", t, func() {
		cfg := staticConfig()
		cfg.MetricsLabels = map[string]string{"region": "eu"}
		cfg.MetricsRefreshIntervalS = 2

		convey.Convey("When the metrics manager is initialised from it", func() {
			metrics.Init(metricsOptions(cfg)...)
			metrics.RecordAvailableModelsQuery()

			convey.Convey("Then the interval and fixed labels should apply", func() {
				convey.So(metrics.RefreshInterval(), convey.ShouldEqual, 2*time.Second)

				families, err := metrics.GetRegistry().Gather()
				convey.So(err, convey.ShouldBeNil)
				convey.So(families, convey.ShouldNotBeEmpty)
				labelled := false
				for _, f := range families {
					for _, lp := range f.GetMetric()[0].GetLabel() {
						if lp.GetName() == "region" && lp.GetValue() == "eu" {
							labelled = true
						}
					}
				}
				convey.So(labelled, convey.ShouldBeTrue)
			})
		})
	})
}
