package fulfill

import "context"

// JobHandler processes a single admitted job.
type JobHandler interface {
	// Handle processes job and reports its terminal result.
	Handle(ctx context.Context, job Job) (Result, error)
}

// JobHandlerFunc adapts a function to JobHandler.
type JobHandlerFunc func(ctx context.Context, job Job) (Result, error)

// Handle implements JobHandler.
func (fn JobHandlerFunc) Handle(ctx context.Context, job Job) (Result, error) {
	return fn(ctx, job)
}
