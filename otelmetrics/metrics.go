// Package otelmetrics records fulfillment pipeline metrics with OpenTelemetry
// instruments.
package otelmetrics

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/velmie/fulfill"
)

const defaultServiceName = "fulfill"

// Config names the meter.
type Config struct {
	ServiceName string
}

// Metrics implements fulfill.Metrics.
type Metrics struct {
	jobDuration metric.Float64Histogram
	completed   metric.Int64Counter
	panics      metric.Int64Counter
	purchases   metric.Int64Counter
	active      metric.Int64Gauge
	queued      metric.Int64Gauge
}

var _ fulfill.Metrics = (*Metrics)(nil)

// New creates the pipeline instruments. A nil provider falls back to the
// global meter provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = defaultServiceName
	}
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(name + "/pipeline")

	jobDuration, err := meter.Float64Histogram("fulfill.job.duration_ms",
		metric.WithDescription("Time a worker spent on one order."), metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	completed, err := meter.Int64Counter("fulfill.job.completed",
		metric.WithDescription("Finished jobs by result."))
	if err != nil {
		return nil, err
	}
	panics, err := meter.Int64Counter("fulfill.worker.panics",
		metric.WithDescription("Recovered worker panics."))
	if err != nil {
		return nil, err
	}
	purchases, err := meter.Int64Counter("fulfill.purchase.attempts",
		metric.WithDescription("Marketplace purchase attempts by outcome."))
	if err != nil {
		return nil, err
	}
	active, err := meter.Int64Gauge("fulfill.scheduler.active",
		metric.WithDescription("Running workers."))
	if err != nil {
		return nil, err
	}
	queued, err := meter.Int64Gauge("fulfill.scheduler.queued",
		metric.WithDescription("Jobs waiting for admission."))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		jobDuration: jobDuration,
		completed:   completed,
		panics:      panics,
		purchases:   purchases,
		active:      active,
		queued:      queued,
	}, nil
}

// ObserveJobDuration implements fulfill.Metrics.
func (m *Metrics) ObserveJobDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.Record(context.Background(), float64(duration.Milliseconds()))
}

// AddCompleted implements fulfill.Metrics.
func (m *Metrics) AddCompleted(result fulfill.Result) {
	if m == nil {
		return
	}
	m.completed.Add(context.Background(), 1, metric.WithAttributes(attribute.String("result", result.String())))
}

// AddPanics implements fulfill.Metrics.
func (m *Metrics) AddPanics(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.panics.Add(context.Background(), int64(count))
}

// AddPurchaseOutcome implements fulfill.Metrics.
func (m *Metrics) AddPurchaseOutcome(kind fulfill.OutcomeKind) {
	if m == nil {
		return
	}
	m.purchases.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", kind.String())))
}

// SetActive implements fulfill.Metrics.
func (m *Metrics) SetActive(count int) {
	if m == nil {
		return
	}
	m.active.Record(context.Background(), int64(count))
}

// SetQueued implements fulfill.Metrics.
func (m *Metrics) SetQueued(count int) {
	if m == nil {
		return
	}
	m.queued.Record(context.Background(), int64(count))
}
