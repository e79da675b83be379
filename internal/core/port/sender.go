package port

import (
	"context"
)

// Task is a unit of work run by a MessageQueue or a WorkerPool.
type Task func(ctx context.Context) error

type Future interface {
	// Done is closed once the task has finished or was abandoned.
	Done() <-chan struct{}
	// Wait blocks until the task finished or ctx is done and returns the task's error.
	Wait(ctx context.Context) error
}

type MessageQueue interface {
	// Submit queues task without blocking. At most one task runs at a time, in submission order.
	Submit(task Task) (Future, error)
	// Shutdown stops accepting tasks. With wait it drains the queue, otherwise queued tasks are abandoned.
	Shutdown(wait bool)
}

type WorkerPool interface {
	// Run hands task to the pool, or runs it on the calling goroutine when the pool is disabled.
	Run(task Task) Future
	// Shutdown stops accepting tasks. With wait it drains the queue, otherwise queued tasks are abandoned.
	Shutdown(wait bool)
}
