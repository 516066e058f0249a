// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/okian/modelrank/internal/domain/topsis"
	"github.com/okian/modelrank/internal/domain/types"
	"github.com/okian/modelrank/pkg/logger"
)

// Default limits.
const (
	defaultMaxBodyBytes         = 1 << 20
	defaultAvailableModelsLimit = 50
	defaultMaxAvailableModels   = 200
)

// Error codes owned by the HTTP layer.
const (
	codeBadRequest    = "bad_request"
	codeBodyTooLarge  = "body_too_large"
	codeRateLimited   = "rate_limited"
	codeInternalError = "internal_error"
	codeUnknownModel  = "unknown_model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ModelsProvider
	ModelRanker
	MatrixRanker
}

// ModelsProvider lists catalog model ids.
type ModelsProvider interface {
	AvailableModels(ctx context.Context, limit int) ([]string, error)
}

// ModelRanker ranks selected models by weighted criteria.
type ModelRanker interface {
	RankModels(ctx context.Context, ids []string, weights map[string]float64) ([]types.RankedModel, error)
}

// MatrixRanker ranks an arbitrary decision matrix.
type MatrixRanker interface {
	RankMatrix(ctx context.Context, labels []string, matrix [][]float64, weights []float64, impacts []topsis.Impact) (types.MatrixRanking, error)
}

// ErrorCoder maps a domain error to a stable snake_case code, or "" when
// the error is not the caller's fault.
type ErrorCoder func(err error) string

// Server wires HTTP routes for the business API.
type Server struct {
	rootHandler    *RootHandler
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	modelsHandler  *ModelsHandler
	rankHandler    *RankHandler
	matrixHandler  *MatrixHandler
	metricsHandler http.Handler

	rateLimit rateLimitConfig
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := serverConfig{
		maxBodyBytes: defaultMaxBodyBytes,
		defaultLimit: defaultAvailableModelsLimit,
		maxLimit:     defaultMaxAvailableModels,
		errorCoder:   topsis.KindCode,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}

	// Apply all options
	for _, opt := range opts {
		opt(&cfg)
	}

	enc := &codec{maxBodyBytes: cfg.maxBodyBytes, validate: cfg.validate, errorCoder: cfg.errorCoder}
	return &Server{
		rootHandler:    NewRootHandler(),
		healthHandler:  NewHealthHandler(),
		statsHandler:   NewStatsHandler(statsProvider),
		modelsHandler:  NewModelsHandler(deps, enc, cfg.defaultLimit, cfg.maxLimit),
		rankHandler:    NewRankHandler(deps, enc),
		matrixHandler:  NewMatrixHandler(deps, enc),
		metricsHandler: newMetricsHandler(),
		rateLimit:      cfg.rateLimit,
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	limited := RateLimit(s.rateLimit.rps, s.rateLimit.burst)

	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", s.metricsHandler)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/available-models", MetricsMiddleware(s.modelsHandler.HandleAvailableModels, "available-models"))
	mux.HandleFunc("/rank-models", MetricsMiddleware(limited(s.rankHandler.HandleRankModels, "rank-models"), "rank-models"))
	mux.HandleFunc("/topsis", MetricsMiddleware(limited(s.matrixHandler.HandleRankMatrix, "topsis"), "topsis"))
	mux.HandleFunc("/", MetricsMiddleware(s.rootHandler.HandleRoot, "root"))

	logger.Get().Debug(ctx, "api routes registered",
		logger.Float64("rateLimitRPS", s.rateLimit.rps),
		logger.Int("rateLimitBurst", s.rateLimit.burst),
	)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// codec decodes and validates request bodies and renders domain errors.
type codec struct {
	maxBodyBytes int64
	validate     *validator.Validate
	errorCoder   ErrorCoder
}

// decode reads exactly one JSON value into dst, rejecting unknown fields,
// trailing data and bodies over the size cap, then validates struct tags.
func (c *codec) decode(w http.ResponseWriter, r *http.Request, op string, dst any) error {
	body := http.MaxBytesReader(w, r.Body, c.maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return WrapKind(op, ErrBodyTooLarge, err)
		}
		return WrapKind(op, ErrBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return WrapKind(op, ErrBadRequest, errors.New("request body must hold a single JSON object"))
	}
	if err := c.validate.Struct(dst); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}

// fail renders err with the status its kind maps to.
func (c *codec) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrBodyTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, codeBodyTooLarge, err)
		return
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, codeBadRequest, err)
		return
	}

	code := c.errorCoder(err)
	switch code {
	case "":
		logger.Get().Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
		// Internal details stay in the log.
		writeError(w, http.StatusInternalServerError, codeInternalError, nil)
	case codeUnknownModel:
		writeError(w, http.StatusNotFound, code, err)
	default:
		writeError(w, http.StatusBadRequest, code, err)
	}
}
