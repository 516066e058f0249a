package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/modelrank/internal/adapters/http/api"
	"github.com/okian/modelrank/internal/adapters/http/site"
	"github.com/okian/modelrank/internal/adapters/http/swagger"
	"github.com/okian/modelrank/internal/adapters/hub"
	repository "github.com/okian/modelrank/internal/adapters/repository"
	service "github.com/okian/modelrank/internal/app"
	"github.com/okian/modelrank/internal/config"
	"github.com/okian/modelrank/internal/domain/estimate"
	"github.com/okian/modelrank/pkg/logger"
	"github.com/okian/modelrank/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	nanosecondsPerMillisecond = 1e6
	hubBurst                  = 1
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Logger isn't configured yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.InitWithOptions(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	metrics.Init(metricsOptions(cfg)...)

	if err := run(ctx, cfg, loggerInstance); err != nil {
		loggerInstance.Error(ctx, "server exited", logger.Error(err))
		os.Exit(1)
	}
}

// metricsOptions maps the metrics settings of cfg onto the metrics manager.
func metricsOptions(cfg *config.Config) []metrics.Option {
	return []metrics.Option{
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithConstLabels(cfg.MetricsLabels),
		metrics.WithLatencyBuckets(cfg.MetricsLatencyBucketsMS),
		metrics.WithRefreshInterval(cfg.MetricsRefreshInterval()),
	}
}

// run serves until ctx is cancelled, then shuts down gracefully.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	svc, err := buildService(cfg, log)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           buildHandler(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("catalogSource", cfg.CatalogSource),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or a listener failure
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
		return err
	}

	log.Info(ctx, "server stopped")
	return nil
}

// buildService wires the catalog source, store and estimator from cfg.
func buildService(cfg *config.Config, log logger.Logger) (*service.Service, error) {
	impacts, err := cfg.CriteriaImpacts()
	if err != nil {
		return nil, err
	}

	var source hub.Source
	switch cfg.CatalogSource {
	case config.CatalogSourceStatic:
		source = hub.NewStatic(cfg.StaticModels)
	default:
		source = hub.NewClient(
			hub.WithBaseURL(cfg.HubURL),
			hub.WithTimeout(cfg.HubTimeout()),
			hub.WithToken(cfg.HubToken),
			hub.WithRateLimit(cfg.HubRPS, hubBurst),
		)
	}

	estimator := estimate.NewHeuristicEstimator(
		estimate.WithSalt(cfg.EstimateSalt),
		estimate.WithOverrides(cfg.ModelOverrides),
	)

	return service.New(
		service.WithLogger(log),
		service.WithSource(source),
		service.WithStore(repository.NewMemoryStore()),
		service.WithEstimator(estimator),
		service.WithCriteria(impacts),
		service.WithSelectionBounds(cfg.MinSelection, cfg.MaxSelection),
		service.WithCatalogTask(cfg.HubTask),
		service.WithCatalogLimit(cfg.CatalogLimit),
		service.WithRefreshInterval(cfg.CatalogRefreshInterval()),
		service.WithStrictCatalog(cfg.StrictCatalog),
	), nil
}

// buildHandler registers every route and wraps the mux in the request
// middleware chain.
func buildHandler(ctx context.Context, cfg *config.Config, svc *service.Service) http.Handler {
	mux := http.NewServeMux()

	// Register API docs and the bundled frontend
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc,
		api.WithErrorCoder(service.ErrorCode),
		api.WithMaxBodyBytes(cfg.MaxBodyBytes),
		api.WithAvailableModelsLimits(cfg.DefaultAvailableLimit, cfg.MaxAvailableLimit),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)
	apiServer.Register(ctx, mux)

	return api.Chain(mux, api.RequestID, api.CORS(cfg.CORSAllowedOrigins))
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metrics.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		// Average GC pause time
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
