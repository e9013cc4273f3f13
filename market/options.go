package market

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/velmie/fulfill"
)

const (
	// DefaultBaseURL is the production marketplace API.
	DefaultBaseURL = "https://prod-api.lzt.market"
	// DefaultTimeout bounds a single HTTP round trip.
	DefaultTimeout = 20 * time.Second
	// DefaultRequestsPerSecond is the steady request rate allowed by the limiter.
	DefaultRequestsPerSecond = 1.0
	// DefaultBurst is the limiter bucket size.
	DefaultBurst = 3
	// DefaultUserAgent identifies the client.
	DefaultUserAgent = "fulfill-market/1.0"
)

// Config configures the marketplace client.
type Config struct {
	BaseURL           string
	Token             string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
	HTTPClient        *http.Client
	Logger            fulfill.Logger
}

// Option mutates Config.
type Option func(*Config)

// WithBaseURL overrides the API root.
func WithBaseURL(baseURL string) Option {
	return func(cfg *Config) {
		cfg.BaseURL = baseURL
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(cfg *Config) {
		cfg.Timeout = timeout
	}
}

// WithRateLimit sets the steady request rate and burst size.
// A non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(cfg *Config) {
		cfg.RequestsPerSecond = perSecond
		cfg.Burst = burst
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(cfg *Config) {
		cfg.UserAgent = userAgent
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(cfg *Config) {
		cfg.HTTPClient = client
	}
}

// WithLogger sets the client logger.
func WithLogger(logger fulfill.Logger) Option {
	return func(cfg *Config) {
		cfg.Logger = logger
	}
}

func (cfg Config) withDefaults() Config {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = fulfill.NopLogger{}
	}

	return cfg
}

func (cfg Config) limiter() *rate.Limiter {
	if cfg.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, cfg.Burst)
	}

	return rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
}
