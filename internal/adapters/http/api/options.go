package api

import "github.com/go-playground/validator/v10"

type rateLimitConfig struct {
	rps   float64
	burst int
}

type serverConfig struct {
	maxBodyBytes int64
	defaultLimit int
	maxLimit     int
	errorCoder   ErrorCoder
	validate     *validator.Validate
	rateLimit    rateLimitConfig
}

// Option applies a configuration option to the Server.
type Option func(*serverConfig)

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// WithAvailableModelsLimits sets the default and maximum ?limit for
// GET /available-models.
func WithAvailableModelsLimits(defaultLimit, maxLimit int) Option {
	return func(c *serverConfig) {
		if defaultLimit > 0 && maxLimit >= defaultLimit {
			c.defaultLimit = defaultLimit
			c.maxLimit = maxLimit
		}
	}
}

// WithErrorCoder sets how domain errors are classified. Errors coded
// "unknown_model" map to 404, other non-empty codes to 400 and "" to 500.
func WithErrorCoder(coder ErrorCoder) Option {
	return func(c *serverConfig) {
		if coder != nil {
			c.errorCoder = coder
		}
	}
}

// WithRateLimit throttles the ranking endpoints to rps requests per second
// with the given burst. rps <= 0 disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *serverConfig) {
		c.rateLimit = rateLimitConfig{rps: rps, burst: burst}
	}
}
