package service

import (
	"context"
	"fmt"
	"sarah/internal/core/domain"
	"sarah/internal/core/port"
	"sync"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type future struct {
	id   uuid.UUID
	done chan struct{}
	err  error
}

func newFuture() *future {
	return &future{id: uuid.Must(uuid.NewV4()), done: make(chan struct{})}
}

func (f *future) complete(err error) {
	f.err = err
	close(f.done)
}

func (f *future) Done() <-chan struct{} {
	return f.done
}

func (f *future) Wait(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func completedFuture(err error) *future {
	f := newFuture()
	f.complete(err)

	return f
}

type work struct {
	task   port.Task
	future *future
}

// taskQueue is an unbounded FIFO drained by a fixed number of workers.
// Submitting never blocks.
type taskQueue struct {
	name    string
	mu      sync.Mutex
	cond    *sync.Cond
	items   []work
	closed  bool
	limiter *rate.Limiter
	group   errgroup.Group
	l       zerolog.Logger
}

func newTaskQueue(name string, workers int, limiter *rate.Limiter) *taskQueue {
	q := &taskQueue{
		name:    name,
		limiter: limiter,
		l:       log.With().Str("queue", name).Logger(),
	}
	q.cond = sync.NewCond(&q.mu)

	for range workers {
		q.group.Go(func() error {
			q.work()
			return nil
		})
	}

	q.l.Debug().Int("workers", workers).Msg("started queue workers")

	return q
}

func (q *taskQueue) submit(task port.Task) (*future, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, domain.ErrQueueClosed
	}

	f := newFuture()
	q.items = append(q.items, work{task: task, future: f})
	q.cond.Signal()

	q.l.Debug().Str("task", f.id.String()).Int("queued", len(q.items)).Msg("queued task")

	return f, nil
}

func (q *taskQueue) work() {
	for {
		q.mu.Lock()
		for len(q.items) == 0 && !q.closed {
			q.cond.Wait()
		}

		if len(q.items) == 0 {
			q.mu.Unlock()
			return
		}

		w := q.items[0]
		q.items[0] = work{}
		q.items = q.items[1:]
		q.mu.Unlock()

		w.future.complete(q.execute(w))
	}
}

func (q *taskQueue) execute(w work) (err error) {
	ctx := context.Background()
	l := q.l.With().Str("task", w.future.id.String()).Logger()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", domain.ErrHandlerPanic, r)
			l.Error().Err(err).Msg("task panicked")
		}
	}()

	if q.limiter != nil {
		if err := q.limiter.Wait(ctx); err != nil {
			l.Error().Err(err).Msg("rate limiter failed")
			return err
		}
	}

	err = w.task(ctx)
	if err != nil {
		l.Error().Err(err).Msg("task failed")
		return err
	}

	l.Debug().Msg("task done")

	return nil
}

// shutdown stops accepting tasks. Without wait, queued tasks that did not start are
// abandoned and their futures fail with ErrQueueClosed. Running tasks always finish.
func (q *taskQueue) shutdown(wait bool) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}

	q.closed = true

	var abandoned []work
	if !wait {
		abandoned = q.items
		q.items = nil
	}

	q.cond.Broadcast()
	q.mu.Unlock()

	for _, w := range abandoned {
		w.future.complete(domain.ErrQueueClosed)
	}

	if len(abandoned) > 0 {
		q.l.Warn().Int("abandoned", len(abandoned)).Msg("dropped queued tasks on shutdown")
	}

	if wait {
		_ = q.group.Wait()
	}

	q.l.Info().Bool("wait", wait).Msg("queue shut down")
}
