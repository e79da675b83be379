package service

import (
	"sarah/internal/core/port"

	"golang.org/x/time/rate"
)

// MessageQueue serializes outbound sends: a single worker runs the submitted tasks one at
// a time in submission order.
type MessageQueue struct {
	queue *taskQueue
}

// NewMessageQueue starts the worker. perSecond limits the send rate, 0 means unlimited.
func NewMessageQueue(perSecond float64) *MessageQueue {
	var limiter *rate.Limiter
	if perSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}

	return &MessageQueue{queue: newTaskQueue("message", 1, limiter)}
}

func (m *MessageQueue) Submit(task port.Task) (port.Future, error) {
	f, err := m.queue.submit(task)
	if err != nil {
		return nil, err
	}

	return f, nil
}

func (m *MessageQueue) Shutdown(wait bool) {
	m.queue.shutdown(wait)
}
