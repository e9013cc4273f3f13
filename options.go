package fulfill

import (
	"context"
	"time"
)

// Scheduler defaults.
const (
	DefaultMaxActive    = 3
	DefaultPoolSize     = 5
	DefaultPollInterval = 500 * time.Millisecond
	DefaultDrainTimeout = 30 * time.Second
)

// ErrorHandler is called when a job finishes with an error, and with ErrJobDropped
// for each job still queued at shutdown.
type ErrorHandler func(ctx context.Context, job Job, err error)

// SchedulerConfig defines how the Scheduler admits and runs jobs.
type SchedulerConfig struct {
	// MaxActive caps the number of concurrently admitted jobs.
	MaxActive int
	// PoolSize is the number of executor goroutines.
	PoolSize int
	// PollInterval is the admission cadence.
	PollInterval time.Duration
	// DrainTimeout bounds the wait for in-flight jobs on shutdown.
	DrainTimeout time.Duration
	Clock        Clock
	Logger       Logger
	Metrics      Metrics
	ErrorHandler ErrorHandler
}

func (c SchedulerConfig) withDefaults() SchedulerConfig {
	if c.MaxActive <= 0 {
		c.MaxActive = DefaultMaxActive
	}
	if c.PoolSize <= 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = DefaultDrainTimeout
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	if c.Logger == nil {
		c.Logger = NopLogger{}
	}
	if c.Metrics == nil {
		c.Metrics = NopMetrics{}
	}

	return c
}

// SchedulerOption configures Scheduler behavior.
type SchedulerOption func(*SchedulerConfig)

// WithMaxActive sets the number of jobs allowed to run at once.
func WithMaxActive(count int) SchedulerOption {
	return func(c *SchedulerConfig) {
		c.MaxActive = count
	}
}

// WithPoolSize sets the number of executor goroutines.
func WithPoolSize(size int) SchedulerOption {
	return func(c *SchedulerConfig) {
		c.PoolSize = size
	}
}

// WithPollInterval sets the delay between admission passes.
func WithPollInterval(interval time.Duration) SchedulerOption {
	return func(c *SchedulerConfig) {
		c.PollInterval = interval
	}
}

// WithDrainTimeout bounds how long Run waits for in-flight jobs after cancellation.
func WithDrainTimeout(timeout time.Duration) SchedulerOption {
	return func(c *SchedulerConfig) {
		c.DrainTimeout = timeout
	}
}

// WithClock sets the scheduler clock.
func WithClock(clock Clock) SchedulerOption {
	return func(c *SchedulerConfig) {
		c.Clock = clock
	}
}

// WithLogger sets the scheduler logger.
func WithLogger(logger Logger) SchedulerOption {
	return func(c *SchedulerConfig) {
		c.Logger = logger
	}
}

// WithMetrics sets the scheduler metrics recorder.
func WithMetrics(metrics Metrics) SchedulerOption {
	return func(c *SchedulerConfig) {
		c.Metrics = metrics
	}
}

// WithErrorHandler registers a callback for jobs that finish with an error.
func WithErrorHandler(handler ErrorHandler) SchedulerOption {
	return func(c *SchedulerConfig) {
		c.ErrorHandler = handler
	}
}
