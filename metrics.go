package fulfill

import "time"

// Metrics captures pipeline-level telemetry.
type Metrics interface {
	// ObserveJobDuration records the time a worker spent on a job.
	ObserveJobDuration(duration time.Duration)
	// AddCompleted increments the count of finished jobs by result.
	AddCompleted(result Result)
	// AddPanics increments the count of recovered worker panics.
	AddPanics(count int)
	// AddPurchaseOutcome increments the count of purchase attempts by outcome.
	AddPurchaseOutcome(kind OutcomeKind)
	// SetActive updates the number of running workers.
	SetActive(count int)
	// SetQueued updates the number of jobs waiting for admission.
	SetQueued(count int)
}

// NopMetrics is a no-op metrics recorder.
type NopMetrics struct{}

// ObserveJobDuration implements Metrics.
func (NopMetrics) ObserveJobDuration(time.Duration) {}

// AddCompleted implements Metrics.
func (NopMetrics) AddCompleted(Result) {}

// AddPanics implements Metrics.
func (NopMetrics) AddPanics(int) {}

// AddPurchaseOutcome implements Metrics.
func (NopMetrics) AddPurchaseOutcome(OutcomeKind) {}

// SetActive implements Metrics.
func (NopMetrics) SetActive(int) {}

// SetQueued implements Metrics.
func (NopMetrics) SetQueued(int) {}
