// Package hub lists candidate models from a model hub (Hugging Face by default)
// or from a fixed list.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/modelrank/internal/domain/model"
	"github.com/okian/modelrank/pkg/metrics"
)

const (
	defaultBaseURL = "https://huggingface.co"
	defaultTimeout = 10 * time.Second
	defaultRPS     = 2
	defaultBurst   = 1

	// maxErrorBody bounds how much of a failed response ends up in the error.
	maxErrorBody = 512
)

// Source lists the models available for ranking.
type Source interface {
	ListModels(ctx context.Context, task string, limit int) ([]model.Info, error)
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL sets the hub base URL.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each hub request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithToken sends token as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithRateLimit paces outgoing requests with a token bucket.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
		}
	}
}

// Client lists models from the hub's REST API.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	token   string
	limiter *rate.Limiter
}

var _ Source = (*Client)(nil)

// NewClient creates a hub client with configuration options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		http:    http.DefaultClient,
		timeout: defaultTimeout,
		limiter: rate.NewLimiter(rate.Limit(defaultRPS), defaultBurst),
	}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// hubModel is the subset of the hub listing we read. Older responses carry
// modelId, newer ones id.
type hubModel struct {
	ID        string   `json:"id"`
	ModelID   string   `json:"modelId"`
	Downloads int      `json:"downloads"`
	Likes     int      `json:"likes"`
	Tags      []string `json:"tags"`
}

// ListModels fetches up to limit models tagged with task. An empty task lists
// all models.
func (c *Client) ListModels(ctx context.Context, task string, limit int) ([]model.Info, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRateLimited, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{}
	if task != "" {
		q.Set("filter", task)
	}
	q.Set("limit", strconv.Itoa(limit))
	endpoint := c.baseURL + "/api/models?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build hub request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordHubRequest("error")
		return nil, fmt.Errorf("hub request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.RecordHubRequest(strconv.Itoa(resp.StatusCode))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: %d %s", ErrUpstreamStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var raw []hubModel
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	out := make([]model.Info, 0, len(raw))
	for _, m := range raw {
		id := m.ID
		if id == "" {
			id = m.ModelID
		}
		if id == "" {
			continue
		}
		out = append(out, model.Info{ID: id, Downloads: m.Downloads, Likes: m.Likes, Tags: m.Tags})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
