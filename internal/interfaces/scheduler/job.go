package scheduler

import "context"

// Job is a unit of work executed by the worker pool.
type Job interface {
	// Execute runs the job. Implementations must honor ctx cancellation.
	Execute(ctx context.Context) error

	// UserID identifies the user whose data the job touches, for logs and spans.
	UserID() string

	Description() string
}
