package httpapi

import (
	"time"

	"github.com/velmie/fulfill"
)

const (
	// DefaultRateLimit is the steady per-client request rate on /events.
	DefaultRateLimit = 5.0
	// DefaultRateBurst is the per-client bucket size on /events.
	DefaultRateBurst = 10
	// DefaultMaxBodyBytes caps webhook payloads.
	DefaultMaxBodyBytes = 1 << 20
	// DefaultLimiterIdle is how long an unused client limiter is kept.
	DefaultLimiterIdle = 30 * time.Minute
)

// Config configures the webhook server.
type Config struct {
	RateLimit    float64
	RateBurst    int
	MaxBodyBytes int64
	LimiterIdle  time.Duration
	Logger       fulfill.Logger
}

// Option mutates Config.
type Option func(*Config)

// WithRateLimit sets the per-client token bucket on /events.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(cfg *Config) {
		cfg.RateLimit = perSecond
		cfg.RateBurst = burst
	}
}

// WithMaxBodyBytes caps webhook payload size.
func WithMaxBodyBytes(n int64) Option {
	return func(cfg *Config) {
		cfg.MaxBodyBytes = n
	}
}

// WithLogger sets the server logger.
func WithLogger(logger fulfill.Logger) Option {
	return func(cfg *Config) {
		cfg.Logger = logger
	}
}

func (cfg Config) withDefaults() Config {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = DefaultRateBurst
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.LimiterIdle <= 0 {
		cfg.LimiterIdle = DefaultLimiterIdle
	}
	if cfg.Logger == nil {
		cfg.Logger = fulfill.NopLogger{}
	}

	return cfg
}
