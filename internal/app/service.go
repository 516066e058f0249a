// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/okian/modelrank/internal/adapters/hub"
	repository "github.com/okian/modelrank/internal/adapters/repository"
	"github.com/okian/modelrank/internal/domain/estimate"
	"github.com/okian/modelrank/internal/domain/model"
	"github.com/okian/modelrank/internal/domain/topsis"
	"github.com/okian/modelrank/internal/domain/types"
	"github.com/okian/modelrank/pkg/logger"
	"github.com/okian/modelrank/pkg/metrics"
)

const (
	tracerName = "github.com/okian/modelrank/internal/app"

	defaultMinSelection = 4
	defaultMaxSelection = 5
	defaultCatalogTask  = "text-classification"
	defaultCatalogLimit = 200

	rankKindModels = "models"
	rankKindMatrix = "matrix"

	refreshKey = "catalog"
)

// criterion is one configured decision matrix column.
type criterion struct {
	name   string
	impact topsis.Impact
}

// Service implements the API dependencies for the model selector.
type Service struct {
	mu sync.RWMutex

	// Core components
	source    hub.Source
	store     repository.Store
	estimator estimate.Estimator
	tracer    trace.Tracer

	// Configuration
	criteria        []criterion
	minSelection    int
	maxSelection    int
	catalogTask     string
	catalogLimit    int
	refreshInterval time.Duration
	strictCatalog   bool

	// State
	started     bool
	stopCh      chan struct{}
	wg          sync.WaitGroup
	loads       singleflight.Group
	errMu       sync.Mutex // guards lastLoadErr; loads may run while mu is held
	lastLoadErr error

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSource sets where the model catalog is loaded from.
func WithSource(src hub.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithStore sets the catalog store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithEstimator sets how criterion values are obtained for a model.
func WithEstimator(e estimate.Estimator) Option {
	return func(s *Service) {
		if e != nil {
			s.estimator = e
		}
	}
}

// WithTracer sets the OpenTelemetry tracer; the global provider is used otherwise.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithCriteria sets the ranked criteria and their impacts. Columns follow
// model.CriterionNames order; names outside it are ignored.
func WithCriteria(impacts map[string]topsis.Impact) Option {
	return func(s *Service) {
		var cs []criterion
		for _, name := range model.CriterionNames() {
			if imp, ok := impacts[name]; ok {
				cs = append(cs, criterion{name: name, impact: imp})
			}
		}
		if len(cs) > 0 {
			s.criteria = cs
		}
	}
}

// WithSelectionBounds sets how many models a ranking request may compare.
func WithSelectionBounds(minN, maxN int) Option {
	return func(s *Service) {
		if minN > 0 && maxN >= minN {
			s.minSelection = minN
			s.maxSelection = maxN
		}
	}
}

// WithCatalogTask sets the hub task filter used when loading the catalog.
func WithCatalogTask(task string) Option {
	return func(s *Service) {
		s.catalogTask = task
	}
}

// WithCatalogLimit sets how many models are loaded into the catalog.
func WithCatalogLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.catalogLimit = n
		}
	}
}

// WithRefreshInterval reloads the catalog periodically once started.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.refreshInterval = d
		}
	}
}

// WithStrictCatalog rejects ranking requests for models outside the catalog.
func WithStrictCatalog(strict bool) Option {
	return func(s *Service) {
		s.strictCatalog = strict
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		criteria: []criterion{
			{name: model.CriterionAccuracy, impact: topsis.Benefit},
			{name: model.CriterionLatency, impact: topsis.Cost},
			{name: model.CriterionSize, impact: topsis.Cost},
			{name: model.CriterionLanguages, impact: topsis.Benefit},
		},
		minSelection: defaultMinSelection,
		maxSelection: defaultMaxSelection,
		catalogTask:  defaultCatalogTask,
		catalogLimit: defaultCatalogLimit,
		stopCh:       make(chan struct{}),
		logger:       nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	if s.source == nil {
		s.source = hub.NewClient()
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.estimator == nil {
		s.estimator = estimate.NewHeuristicEstimator()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}

	return s
}

// Start loads the catalog and starts the refresher. A failed load is logged
// and the service keeps running with whatever catalog it has.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting model selector service...")

	if err := s.refresh(ctx); err != nil {
		s.logger.Warn(ctx, "initial catalog load failed; starting with an empty catalog",
			logger.Error(err))
	}

	if s.refreshInterval > 0 {
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go s.refreshLoop(ctx, s.stopCh)
	}

	s.started = true
	s.logger.Info(ctx, "model selector service started",
		logger.Int("catalogSize", s.store.Count(ctx)),
		logger.Duration("refreshInterval", s.refreshInterval),
		logger.Bool("strictCatalog", s.strictCatalog),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}

	s.logger.Info(context.Background(), "stopping model selector service...")

	// Signal refresh loop to stop
	select {
	case <-s.stopCh:
		// Channel already closed
	default:
		close(s.stopCh)
	}
	s.started = false
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info(context.Background(), "model selector service stopped")
}

// log returns the configured logger, falling back to the global one for
// calls made before Start.
func (s *Service) log() logger.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logger.Get()
}

func (s *Service) refreshLoop(ctx context.Context, stop <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			if err := s.refresh(ctx); err != nil {
				s.log().Warn(ctx, "catalog refresh failed; keeping previous catalog", logger.Error(err))
			}
		}
	}
}

// Refresh reloads the catalog from the source. Concurrent calls share one load.
func (s *Service) Refresh(ctx context.Context) error {
	return s.refresh(ctx)
}

func (s *Service) refresh(ctx context.Context) error {
	_, err, shared := s.loads.Do(refreshKey, func() (any, error) {
		return nil, s.loadCatalog(ctx)
	})
	if shared {
		s.log().Debug(ctx, "catalog refresh shared with an in-flight load")
	}
	return err
}

func (s *Service) loadCatalog(ctx context.Context) (err error) {
	ctx, span := s.tracer.Start(ctx, "Service.LoadCatalog", trace.WithAttributes(
		attribute.String("catalog.task", s.catalogTask),
		attribute.Int("catalog.limit", s.catalogLimit),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		result := metrics.OutcomeOK
		if err != nil {
			result = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			metrics.RecordErrorByComponent("catalog", "refresh")
		}
		metrics.RecordCatalogRefresh(result, metrics.SinceMs(start))

		s.errMu.Lock()
		s.lastLoadErr = err
		s.errMu.Unlock()
	}()

	infos, err := s.source.ListModels(ctx, s.catalogTask, s.catalogLimit)
	if err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	if err := s.store.Replace(ctx, infos); err != nil {
		return fmt.Errorf("replace catalog: %w", err)
	}

	span.SetAttributes(attribute.Int("catalog.size", len(infos)))
	s.log().Info(ctx, "catalog loaded",
		logger.Int("models", s.store.Count(ctx)),
		logger.Duration("took", time.Since(start)),
	)
	return nil
}

// AvailableModels returns the first limit model ids of the catalog.
func (s *Service) AvailableModels(ctx context.Context, limit int) ([]string, error) {
	infos, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	metrics.RecordAvailableModelsQuery()

	ids := make([]string, len(infos))
	for i, info := range infos {
		ids[i] = info.ID
	}
	return ids, nil
}

// RankModels estimates the criteria of each selected model and ranks them
// with TOPSIS. weights must carry exactly one entry per configured criterion.
func (s *Service) RankModels(ctx context.Context, ids []string, weights map[string]float64) (_ []types.RankedModel, err error) {
	ctx, span := s.tracer.Start(ctx, "Service.RankModels", trace.WithAttributes(
		attribute.Int("rank.models", len(ids)),
	))
	defer span.End()
	defer func() { s.observe(span, rankKindModels, len(ids), err) }()

	if err := s.checkSelection(ctx, ids); err != nil {
		return nil, err
	}
	criteria, err := s.criteriaFor(weights)
	if err != nil {
		return nil, err
	}

	alts := make([]topsis.Alternative, len(ids))
	metas := make(map[string]model.Metadata, len(ids))
	for i, id := range ids {
		meta, err := s.estimator.Estimate(ctx, id)
		if err != nil {
			metrics.RecordEstimationError()
			return nil, fmt.Errorf("estimate %q: %w", id, err)
		}
		metas[id] = meta
		values := make([]float64, len(s.criteria))
		for j, c := range s.criteria {
			values[j], _ = meta.Value(c.name)
		}
		alts[i] = topsis.Alternative{Label: id, Values: values}
	}

	engineStart := time.Now()
	ranked, err := topsis.RankAlternatives(alts, criteria)
	metrics.RecordEngineLatency(metrics.SinceMs(engineStart))
	if err != nil {
		return nil, err
	}

	out := make([]types.RankedModel, len(ranked))
	for i, r := range ranked {
		meta := metas[r.Label]
		out[i] = types.RankedModel{
			Model:            r.Label,
			Accuracy:         meta.Accuracy,
			Latency:          meta.Latency,
			ModelSize:        meta.Size,
			LanguageCoverage: meta.Languages,
			Score:            r.Score,
			Rank:             r.Rank,
		}
	}

	s.log().Debug(ctx, "ranked models",
		logger.Strings("models", ids),
		logger.String("best", out[0].Model),
		logger.Float64("bestScore", out[0].Score),
	)
	return out, nil
}

// RankMatrix ranks an arbitrary decision matrix. Labels default to A1..AR.
func (s *Service) RankMatrix(ctx context.Context, labels []string, matrix [][]float64, weights []float64, impacts []topsis.Impact) (_ types.MatrixRanking, err error) {
	ctx, span := s.tracer.Start(ctx, "Service.RankMatrix", trace.WithAttributes(
		attribute.Int("rank.rows", len(matrix)),
		attribute.Int("rank.criteria", len(weights)),
	))
	defer span.End()
	defer func() { s.observe(span, rankKindMatrix, len(matrix), err) }()

	if err := ctx.Err(); err != nil {
		return types.MatrixRanking{}, err
	}
	if len(labels) == 0 {
		labels = make([]string, len(matrix))
		for i := range labels {
			labels[i] = "A" + strconv.Itoa(i+1)
		}
	}
	if len(labels) != len(matrix) {
		return types.MatrixRanking{}, fmt.Errorf("%w: %d labels for %d rows", ErrLabelCount, len(labels), len(matrix))
	}

	engineStart := time.Now()
	res, err := topsis.Rank(matrix, weights, impacts)
	metrics.RecordEngineLatency(metrics.SinceMs(engineStart))
	if err != nil {
		return types.MatrixRanking{}, err
	}

	results := make([]types.RankedAlternative, 0, len(res.Order))
	for _, row := range res.Order {
		results = append(results, types.RankedAlternative{
			Label:  labels[row],
			Values: slices.Clone(matrix[row]),
			Score:  res.Scores[row],
			Rank:   res.Ranks[row],
		})
	}
	return types.MatrixRanking{Weights: res.Weights, Results: results}, nil
}

// observe records the outcome of a ranking call on the span and in metrics.
func (s *Service) observe(span trace.Span, kind string, n int, err error) {
	switch {
	case err == nil:
		metrics.RecordRankRequest(kind, metrics.OutcomeOK)
		metrics.RecordAlternatives(n)
		span.SetStatus(codes.Ok, "")
	case IsRejection(err):
		metrics.RecordRankRequest(kind, metrics.OutcomeRejected)
		metrics.RecordValidationError(ErrorCode(err))
		span.SetAttributes(attribute.String("rank.rejected", ErrorCode(err)))
		span.SetStatus(codes.Error, err.Error())
	default:
		metrics.RecordRankRequest(kind, metrics.OutcomeFailed)
		metrics.RecordErrorByComponent("service", kind)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func (s *Service) checkSelection(ctx context.Context, ids []string) error {
	if len(ids) < s.minSelection || len(ids) > s.maxSelection {
		return fmt.Errorf("%w: got %d models, want between %d and %d",
			ErrSelectionSize, len(ids), s.minSelection, s.maxSelection)
	}
	seen := make(map[string]struct{}, len(ids))
	for i, id := range ids {
		if strings.TrimSpace(id) == "" || id != strings.TrimSpace(id) {
			return fmt.Errorf("%w: position %d: %q", ErrInvalidModelID, i, id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateModel, id)
		}
		seen[id] = struct{}{}
		if s.strictCatalog && !s.store.Contains(ctx, id) {
			return fmt.Errorf("%w: %q", ErrUnknownModel, id)
		}
	}
	return nil
}

// criteriaFor matches request weights to the configured criteria.
func (s *Service) criteriaFor(weights map[string]float64) ([]topsis.Criterion, error) {
	for name := range weights {
		if !slices.ContainsFunc(s.criteria, func(c criterion) bool { return c.name == name }) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCriterion, name)
		}
	}
	out := make([]topsis.Criterion, len(s.criteria))
	for j, c := range s.criteria {
		w, ok := weights[c.name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingWeight, c.name)
		}
		out[j] = topsis.Criterion{Name: c.name, Impact: c.impact, Weight: w}
	}
	return out, nil
}

// Criteria returns the configured criterion names and impacts in column order.
func (s *Service) Criteria() ([]string, []topsis.Impact) {
	names := make([]string, len(s.criteria))
	impacts := make([]topsis.Impact, len(s.criteria))
	for j, c := range s.criteria {
		names[j] = c.name
		impacts[j] = c.impact
	}
	return names, impacts
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	names, _ := s.Criteria()
	stats := map[string]interface{}{
		"started":         s.started,
		"minSelection":    s.minSelection,
		"maxSelection":    s.maxSelection,
		"strictCatalog":   s.strictCatalog,
		"criteria":        names,
		"refreshInterval": s.refreshInterval.String(),
	}

	catalogSize := s.store.Count(ctx)
	stats["catalogSize"] = catalogSize
	if loaded := s.store.LoadedAt(); !loaded.IsZero() {
		stats["catalogLoadedAt"] = loaded.UTC().Format(time.RFC3339)
	}
	s.errMu.Lock()
	if s.lastLoadErr != nil {
		stats["lastCatalogError"] = s.lastLoadErr.Error()
	}
	s.errMu.Unlock()

	// Update metrics
	metrics.UpdateCatalogSize(catalogSize)

	return stats
}

// IsRejection reports whether err is a caller mistake (bad input or policy
// violation) rather than a service failure.
func IsRejection(err error) bool {
	return ErrorCode(err) != ""
}

// ErrorCode returns a stable snake_case code for rejected requests, or ""
// for other errors.
func ErrorCode(err error) string {
	if code := topsis.KindCode(err); code != "" {
		return code
	}
	for _, c := range policyCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}

var policyCodes = []struct {
	err  error
	code string
}{
	{ErrSelectionSize, "selection_size"},
	{ErrInvalidModelID, "invalid_model_id"},
	{ErrDuplicateModel, "duplicate_model"},
	{ErrUnknownModel, "unknown_model"},
	{ErrMissingWeight, "missing_weight"},
	{ErrUnknownCriterion, "unknown_criterion"},
	{ErrLabelCount, "label_count"},
	{estimate.ErrEmptyModelID, "invalid_model_id"},
	{repository.ErrInvalidLimit, "invalid_limit"},
}
