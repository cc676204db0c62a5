package remote

import (
	"log/slog"
	"net/http"
	"time"
)

// Option is a functional option for configuring a Client.
type Option func(*clientConfig)

type clientConfig struct {
	httpClient     *http.Client
	user           string
	secret         string
	userAgent      string
	timeout        time.Duration
	maxRetries     int
	initialBackoff time.Duration
	maxBodySize    int64
	logger         *slog.Logger
}

func defaultClientConfig() clientConfig {
	return clientConfig{
		timeout:        30 * time.Second,
		maxRetries:     3,
		initialBackoff: time.Second,
		maxBodySize:    100 * 1024 * 1024, // record listings can be large
		userAgent:      "sigwatch",
	}
}

// WithHTTPClient replaces the default retrying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithBasicAuth sets write credentials for mutating calls.
func WithBasicAuth(user, secret string) Option {
	return func(c *clientConfig) {
		c.user = user
		c.secret = secret
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxRetries sets the retry budget for idempotent requests.
func WithMaxRetries(n int) Option {
	return func(c *clientConfig) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithInitialBackoff sets the first retry delay.
func WithInitialBackoff(d time.Duration) Option {
	return func(c *clientConfig) {
		if d > 0 {
			c.initialBackoff = d
		}
	}
}

// WithMaxBodySize caps response body sizes.
func WithMaxBodySize(size int64) Option {
	return func(c *clientConfig) {
		if size > 0 {
			c.maxBodySize = size
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *clientConfig) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger used for transport-level events (retries).
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}
