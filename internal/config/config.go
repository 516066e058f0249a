// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers a YAML file and environment variables over the defaults.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/okian/modelrank/internal/domain/model"
	"github.com/okian/modelrank/internal/domain/topsis"
)

// Catalog sources.
const (
	CatalogSourceHub    = "hub"
	CatalogSourceStatic = "static"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// CORSAllowedOrigins lists browser origins allowed to call the API.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// MinSelection and MaxSelection bound how many models one ranking compares.
	MinSelection int `koanf:"min_selection"`
	MaxSelection int `koanf:"max_selection"`

	// DefaultAvailableLimit is used when GET /available-models has no limit;
	// MaxAvailableLimit caps it.
	DefaultAvailableLimit int `koanf:"default_available_limit"`
	MaxAvailableLimit     int `koanf:"max_available_limit"`

	// CatalogSource picks where model ids come from: hub or static.
	CatalogSource string `koanf:"catalog_source"`

	// HubURL is the model hub base URL.
	HubURL string `koanf:"hub_url"`

	// HubTask filters the hub listing, e.g. text-classification.
	HubTask string `koanf:"hub_task"`

	// HubToken is sent as a bearer token when set.
	HubToken string `koanf:"hub_token"`

	// HubTimeoutMS bounds one hub request.
	HubTimeoutMS int `koanf:"hub_timeout_ms"`

	// HubRPS limits requests per second to the hub.
	HubRPS float64 `koanf:"hub_rps"`

	// CatalogLimit is how many models are fetched into the catalog.
	CatalogLimit int `koanf:"catalog_limit"`

	// CatalogRefreshIntervalS reloads the catalog periodically; 0 disables.
	CatalogRefreshIntervalS int `koanf:"catalog_refresh_interval_s"`

	// StaticModels is the catalog when CatalogSource is static.
	StaticModels []string `koanf:"static_models"`

	// StrictCatalog rejects ranking requests naming models outside the catalog.
	StrictCatalog bool `koanf:"strict_catalog"`

	// EstimateSalt shifts the heuristic estimates while keeping them reproducible.
	EstimateSalt string `koanf:"estimate_salt"`

	// ModelOverrides pins measured metadata for specific model ids.
	ModelOverrides map[string]model.Metadata `koanf:"model_overrides"`

	// Criteria maps criterion names to impacts ("+" benefit, "-" cost).
	// Empty means the four default criteria.
	Criteria map[string]string `koanf:"criteria"`

	// RateLimitRPS and RateLimitBurst throttle the ranking endpoints; 0 disables.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// MetricsEnabled toggles request and catalog metrics.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsNamespace prefixes every metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`

	// MetricsLabels are fixed labels added to every metric, e.g. region.
	MetricsLabels map[string]string `koanf:"metrics_labels"`

	// MetricsLatencyBucketsMS overrides the latency histogram buckets.
	MetricsLatencyBucketsMS []float64 `koanf:"metrics_latency_buckets_ms"`

	// MetricsRefreshIntervalS is how often system gauges are sampled.
	MetricsRefreshIntervalS int `koanf:"metrics_refresh_interval_s"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":9080",
		CORSAllowedOrigins:      []string{"http://127.0.0.1:5500", "http://localhost:5500"},
		MinSelection:            4,
		MaxSelection:            5,
		DefaultAvailableLimit:   50,
		MaxAvailableLimit:       200,
		CatalogSource:           CatalogSourceHub,
		HubURL:                  "https://huggingface.co",
		HubTask:                 "text-classification",
		HubTimeoutMS:            10_000,
		HubRPS:                  2,
		CatalogLimit:            200,
		CatalogRefreshIntervalS: 0,
		StaticModels: []string{
			"distilbert-base-uncased-finetuned-sst-2-english",
			"bert-base-uncased",
			"roberta-large-mnli",
			"xlm-roberta-base",
			"albert-base-v2",
			"microsoft/deberta-v3-large",
		},
		RateLimitRPS:   20,
		RateLimitBurst: 40,
		MaxBodyBytes:   1 << 20,

		MetricsEnabled:          true,
		MetricsNamespace:        "modelrank",
		MetricsRefreshIntervalS: 10,
	}
}

// DefaultCriteria returns the model selector criteria and their impacts.
func DefaultCriteria() map[string]string {
	return map[string]string{
		model.CriterionAccuracy:  "+",
		model.CriterionLatency:   "-",
		model.CriterionSize:      "-",
		model.CriterionLanguages: "+",
	}
}

// HubTimeout returns HubTimeoutMS as a duration.
func (c *Config) HubTimeout() time.Duration {
	return time.Duration(c.HubTimeoutMS) * time.Millisecond
}

// CatalogRefreshInterval returns CatalogRefreshIntervalS as a duration.
func (c *Config) CatalogRefreshInterval() time.Duration {
	return time.Duration(c.CatalogRefreshIntervalS) * time.Second
}

// MetricsRefreshInterval returns MetricsRefreshIntervalS as a duration.
func (c *Config) MetricsRefreshInterval() time.Duration {
	return time.Duration(c.MetricsRefreshIntervalS) * time.Second
}

// CriteriaImpacts parses Criteria, falling back to DefaultCriteria when empty.
func (c *Config) CriteriaImpacts() (map[string]topsis.Impact, error) {
	src := c.Criteria
	if len(src) == 0 {
		src = DefaultCriteria()
	}
	out := make(map[string]topsis.Impact, len(src))
	for name, raw := range src {
		name = strings.ToLower(strings.TrimSpace(name))
		if !model.IsCriterion(name) {
			return nil, fmt.Errorf("%w: unknown criterion %q", ErrInvalidConfig, name)
		}
		imp, err := topsis.ParseImpact(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: criterion %q: %w", ErrInvalidConfig, name, err)
		}
		out[name] = imp
	}
	return out, nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MinSelection < 1:
		return fmt.Errorf("%w: min_selection must be at least 1", ErrInvalidConfig)
	case c.MaxSelection < c.MinSelection:
		return fmt.Errorf("%w: max_selection %d is below min_selection %d", ErrInvalidConfig, c.MaxSelection, c.MinSelection)
	case c.MaxAvailableLimit < 1:
		return fmt.Errorf("%w: max_available_limit must be positive", ErrInvalidConfig)
	case c.DefaultAvailableLimit < 1 || c.DefaultAvailableLimit > c.MaxAvailableLimit:
		return fmt.Errorf("%w: default_available_limit must be in [1, max_available_limit]", ErrInvalidConfig)
	case c.CatalogLimit < 1:
		return fmt.Errorf("%w: catalog_limit must be positive", ErrInvalidConfig)
	case c.CatalogRefreshIntervalS < 0:
		return fmt.Errorf("%w: catalog_refresh_interval_s must not be negative", ErrInvalidConfig)
	case c.RateLimitRPS < 0 || c.RateLimitBurst < 0:
		return fmt.Errorf("%w: rate limits must not be negative", ErrInvalidConfig)
	case c.MaxBodyBytes < 1:
		return fmt.Errorf("%w: max_body_bytes must be positive", ErrInvalidConfig)
	case c.MetricsRefreshIntervalS < 1:
		return fmt.Errorf("%w: metrics_refresh_interval_s must be positive", ErrInvalidConfig)
	}

	for i := 1; i < len(c.MetricsLatencyBucketsMS); i++ {
		if c.MetricsLatencyBucketsMS[i] <= c.MetricsLatencyBucketsMS[i-1] {
			return fmt.Errorf("%w: metrics_latency_buckets_ms must be increasing", ErrInvalidConfig)
		}
	}

	switch c.CatalogSource {
	case CatalogSourceHub:
		if c.HubURL == "" {
			return fmt.Errorf("%w: hub_url must not be empty", ErrInvalidConfig)
		}
		if c.HubTimeoutMS < 1 || c.HubRPS <= 0 {
			return fmt.Errorf("%w: hub_timeout_ms and hub_rps must be positive", ErrInvalidConfig)
		}
	case CatalogSourceStatic:
		if len(c.StaticModels) == 0 {
			return fmt.Errorf("%w: static_models must not be empty", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown catalog_source %q", ErrInvalidConfig, c.CatalogSource)
	}

	if _, err := c.CriteriaImpacts(); err != nil {
		return err
	}
	return nil
}
