package port

import (
	"context"
	"sarah/internal/core/domain"
)

// Delivery hands the reply of one scheduled job firing to the backend.
type Delivery func(ctx context.Context, reply domain.Reply)

type JobGenerator interface {
	// GenerateJob extracts the delivery target from the command's schedule config and returns
	// the step delivering the job's reply. It returns nil when the delivery target is missing.
	GenerateJob(cmd domain.ScheduledCommand) Delivery
}

// Runtime is what a bot instance offers to its backend adapter.
type Runtime interface {
	Dispatcher
	// Enqueue submits an outbound send to the serialized message queue.
	Enqueue(task Task) (Future, error)
	// RunConcurrent runs task on the worker pool, or inline when no pool is configured.
	RunConcurrent(task Task) Future
}

type Backend interface {
	JobGenerator
	// Scope identifies the backend type. Instances of the same type share a command table.
	Scope() string
	// Attach wires the bot runtime. It is called before any job is generated.
	Attach(runtime Runtime)
	// Connect establishes the connection and blocks until ctx is done or the connection fails.
	Connect(ctx context.Context) error
	// Disconnect closes the connection.
	Disconnect()
}
