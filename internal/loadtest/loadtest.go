// Package loadtest fires concurrent ranking requests at a running model
// selector and checks every response for ordering and score bounds.
package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/modelrank/internal/domain/types"
	"github.com/okian/modelrank/pkg/logger"
)

const (
	defaultRequests    = 100
	defaultConcurrency = 8
	defaultSelection   = 5
	defaultTimeout     = 10 * time.Second
)

// Config describes one bench run.
type Config struct {
	// BaseURL of the server, e.g. http://localhost:9080.
	BaseURL     string
	Requests    int
	Concurrency int
	// Models to rank. When empty the first Selection catalog ids are used.
	Models    []string
	Selection int
	Weights   map[string]float64
}

// Summary aggregates a bench run.
type Summary struct {
	Requests  int
	Succeeded int
	// Rejected counts non-2xx responses other than 429.
	Rejected  int
	Throttled int
	// Invalid counts 200 responses whose body broke an ordering invariant.
	Invalid  int
	Failed   int
	Duration time.Duration
	Min      time.Duration
	Max      time.Duration
	Mean     time.Duration
	P95      time.Duration
	// Winners counts how often each model ranked first.
	Winners map[string]int
}

// Runner executes bench runs.
type Runner struct {
	client *http.Client
	logger logger.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Runner) {
		if c != nil {
			r.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{client: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("loadtest")
	}
	return r
}

func (c *Config) applyDefaults() error {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.BaseURL == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidConfig)
	}
	if c.Requests == 0 {
		c.Requests = defaultRequests
	}
	if c.Concurrency == 0 {
		c.Concurrency = defaultConcurrency
	}
	if c.Selection == 0 {
		c.Selection = defaultSelection
	}
	if c.Requests < 0 || c.Concurrency < 0 || c.Selection < 0 {
		return fmt.Errorf("%w: counts must be positive", ErrInvalidConfig)
	}
	if len(c.Weights) == 0 {
		c.Weights = map[string]float64{"accuracy": 0.4, "latency": 0.2, "size": 0.2, "languages": 0.2}
	}
	return nil
}

type outcome struct {
	latency time.Duration
	status  int
	winner  string
	invalid bool
	err     error
}

// Run executes cfg against the server. Individual request failures are
// counted in the summary; only setup failures and context cancellation
// return an error.
func (r *Runner) Run(ctx context.Context, cfg Config) (Summary, error) {
	if err := cfg.applyDefaults(); err != nil {
		return Summary{}, err
	}
	if len(cfg.Models) == 0 {
		ids, err := r.fetchModels(ctx, cfg.BaseURL, cfg.Selection)
		if err != nil {
			return Summary{}, err
		}
		cfg.Models = ids
	}
	body, err := json.Marshal(map[string]any{"models": cfg.Models, "weights": cfg.Weights})
	if err != nil {
		return Summary{}, fmt.Errorf("loadtest: encode request: %w", err)
	}

	r.logger.Info(ctx, "bench started",
		logger.String("url", cfg.BaseURL),
		logger.Int("requests", cfg.Requests),
		logger.Int("concurrency", cfg.Concurrency),
		logger.Strings("models", cfg.Models),
	)

	outcomes := make([]outcome, cfg.Requests)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	start := time.Now()
	for i := 0; i < cfg.Requests; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = r.rankOnce(gctx, cfg.BaseURL, body)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, fmt.Errorf("loadtest: %w", err)
	}

	sum := summarize(outcomes, time.Since(start))
	r.logger.Info(ctx, "bench finished",
		logger.Int("succeeded", sum.Succeeded),
		logger.Int("invalid", sum.Invalid),
		logger.Int("throttled", sum.Throttled),
		logger.Int("failed", sum.Failed),
		logger.Duration("p95", sum.P95),
	)
	return sum, nil
}

func (r *Runner) fetchModels(ctx context.Context, base string, n int) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/available-models?limit=%d", base, n), nil)
	if err != nil {
		return nil, fmt.Errorf("loadtest: build catalog request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("loadtest: fetch catalog: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("loadtest: fetch catalog: status %d", resp.StatusCode)
	}
	var ids []string
	if err := json.NewDecoder(resp.Body).Decode(&ids); err != nil {
		return nil, fmt.Errorf("loadtest: decode catalog: %w", err)
	}
	if len(ids) < n {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrNotEnough, len(ids), n)
	}
	return ids[:n], nil
}

func (r *Runner) rankOnce(ctx context.Context, base string, body []byte) outcome {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/rank-models", bytes.NewReader(body))
	if err != nil {
		return outcome{err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return outcome{latency: time.Since(start), err: err}
	}
	defer resp.Body.Close()

	out := outcome{status: resp.StatusCode}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		out.latency = time.Since(start)
		return out
	}
	var ranked []types.RankedModel
	err = json.NewDecoder(resp.Body).Decode(&ranked)
	out.latency = time.Since(start)
	if err != nil {
		out.invalid = true
		return out
	}
	if err := CheckRanking(ranked); err != nil {
		r.logger.Warn(ctx, "invalid ranking", logger.Error(err))
		out.invalid = true
		return out
	}
	if len(ranked) > 0 {
		out.winner = ranked[0].Model
	}
	return out
}

// CheckRanking verifies a /rank-models response: ranks run 1..R in order,
// scores lie in [0,1] and never increase.
func CheckRanking(rows []types.RankedModel) error {
	for i, row := range rows {
		if row.Rank != i+1 {
			return fmt.Errorf("%w: row %d has rank %d", ErrBadRanking, i, row.Rank)
		}
		if math.IsNaN(row.Score) || row.Score < 0 || row.Score > 1 {
			return fmt.Errorf("%w: row %d score %v out of [0,1]", ErrBadRanking, i, row.Score)
		}
		if i > 0 && row.Score > rows[i-1].Score {
			return fmt.Errorf("%w: row %d score %v above previous %v", ErrBadRanking, i, row.Score, rows[i-1].Score)
		}
	}
	return nil
}

func summarize(outcomes []outcome, elapsed time.Duration) Summary {
	s := Summary{Requests: len(outcomes), Duration: elapsed, Winners: map[string]int{}}
	var latencies []time.Duration
	var total time.Duration
	for _, o := range outcomes {
		switch {
		case o.err != nil:
			s.Failed++
			continue
		case o.status == http.StatusTooManyRequests:
			s.Throttled++
		case o.status != http.StatusOK:
			s.Rejected++
		case o.invalid:
			s.Invalid++
		default:
			s.Succeeded++
			s.Winners[o.winner]++
		}
		latencies = append(latencies, o.latency)
		total += o.latency
	}
	if len(latencies) == 0 {
		return s
	}
	slices.Sort(latencies)
	s.Min = latencies[0]
	s.Max = latencies[len(latencies)-1]
	s.Mean = total / time.Duration(len(latencies))
	s.P95 = latencies[(len(latencies)*95+99)/100-1]
	return s
}

// Report renders a human readable summary.
func (s Summary) Report(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"requests=%d ok=%d invalid=%d rejected=%d throttled=%d failed=%d\n"+
			"elapsed=%s min=%s mean=%s p95=%s max=%s\n",
		s.Requests, s.Succeeded, s.Invalid, s.Rejected, s.Throttled, s.Failed,
		s.Duration.Round(time.Millisecond), s.Min, s.Mean, s.P95, s.Max)
	if err != nil {
		return fmt.Errorf("loadtest: write report: %w", err)
	}
	winners := make([]string, 0, len(s.Winners))
	for m := range s.Winners {
		winners = append(winners, m)
	}
	slices.Sort(winners)
	for _, m := range winners {
		if _, err := fmt.Fprintf(w, "winner %s x%d\n", m, s.Winners[m]); err != nil {
			return fmt.Errorf("loadtest: write report: %w", err)
		}
	}
	return nil
}
