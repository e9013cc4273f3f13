package chat

import (
	"net/http"
	"time"

	"github.com/velmie/fulfill"
)

// DefaultTimeout bounds a single gateway round trip.
const DefaultTimeout = 10 * time.Second

// Config configures the gateway client.
type Config struct {
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     fulfill.Logger
}

// Option mutates Config.
type Option func(*Config)

// WithToken sets the bearer token sent to the gateway.
func WithToken(token string) Option {
	return func(cfg *Config) {
		cfg.Token = token
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(cfg *Config) {
		cfg.Timeout = timeout
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
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = fulfill.NopLogger{}
	}

	return cfg
}
