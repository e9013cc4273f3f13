package fulfill

import "errors"

var (
	// ErrSchedulerClosed is returned by Enqueue after the scheduler stopped accepting jobs.
	ErrSchedulerClosed = errors.New("fulfill scheduler is closed")
	// ErrSchedulerRunning is returned by Run when the scheduler loop is already running.
	ErrSchedulerRunning = errors.New("fulfill scheduler is already running")
	// ErrWorkerPanic indicates a fulfillment worker panic.
	ErrWorkerPanic = errors.New("fulfill worker panic")
	// ErrDrainTimeout indicates in-flight jobs did not finish within the drain timeout.
	ErrDrainTimeout = errors.New("fulfill drain timed out")
	// ErrJobDropped is passed to the ErrorHandler for jobs still queued when the scheduler stops.
	ErrJobDropped = errors.New("fulfill queued job dropped at shutdown")
	// ErrCodeUnavailable signals that no login code could be fetched within the retry budget.
	ErrCodeUnavailable = errors.New("fulfill login code unavailable")
	// ErrOrderIDRequired is returned when an order has no identifier.
	ErrOrderIDRequired = errors.New("fulfill order id is required")
	// ErrBuyerRequired is returned when an order or record has no buyer.
	ErrBuyerRequired = errors.New("fulfill buyer is required")
	// ErrInvalidQuantity is returned when an order declares a non-positive quantity.
	ErrInvalidQuantity = errors.New("fulfill order quantity must be positive")
	// ErrInvalidAmount is returned when a monetary amount is negative.
	ErrInvalidAmount = errors.New("fulfill amount must be non-negative")
	// ErrPhoneRequired is returned when a delivery has no phone.
	ErrPhoneRequired = errors.New("fulfill phone is required")
	// ErrRegionCodeRequired is returned when a configured region has an empty code.
	ErrRegionCodeRequired = errors.New("fulfill region code is required")
	// ErrInvalidPriceBand is returned when a region's min price exceeds its max price.
	ErrInvalidPriceBand = errors.New("fulfill region price band is invalid")
	// ErrUnknownOrigin is returned when settings reference an unsupported supply origin.
	ErrUnknownOrigin = errors.New("fulfill unknown supply origin")
	// ErrOriginsRequired is returned when settings allow no supply origin at all.
	ErrOriginsRequired = errors.New("fulfill at least one supply origin is required")
	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("fulfill record not found")
)
