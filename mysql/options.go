package mysql

import "github.com/velmie/fulfill"

const defaultTablePrefix = "fulfill_"

// Config defines MySQL store behavior.
type Config struct {
	TablePrefix string
	Clock       fulfill.Clock
	Logger      fulfill.Logger
}

func (c Config) withDefaults() Config {
	if c.TablePrefix == "" {
		c.TablePrefix = defaultTablePrefix
	}
	if c.Clock == nil {
		c.Clock = fulfill.SystemClock{}
	}
	if c.Logger == nil {
		c.Logger = fulfill.NopLogger{}
	}

	return c
}

// Option configures the MySQL store.
type Option func(*Config)

// WithTablePrefix sets the prefix prepended to every table name.
func WithTablePrefix(prefix string) Option {
	return func(c *Config) {
		c.TablePrefix = prefix
	}
}

// WithClock sets the time source used for updated_at columns.
func WithClock(clock fulfill.Clock) Option {
	return func(c *Config) {
		c.Clock = clock
	}
}

// WithLogger sets the store logger.
func WithLogger(logger fulfill.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
