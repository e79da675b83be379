package service

import (
	"context"
	"fmt"
	"sarah/internal/core/domain"
	"sarah/internal/core/port"

	"github.com/rs/zerolog/log"
)

// WorkerPool runs tasks on a bounded set of workers. A pool of size zero is disabled and
// runs every task on the calling goroutine.
type WorkerPool struct {
	queue *taskQueue
}

func NewWorkerPool(size int) *WorkerPool {
	if size <= 0 {
		log.Debug().Msg("worker pool disabled")
		return &WorkerPool{}
	}

	return &WorkerPool{queue: newTaskQueue("worker", size, nil)}
}

func (p *WorkerPool) Enabled() bool {
	return p.queue != nil
}

func (p *WorkerPool) Run(task port.Task) port.Future {
	if p.queue == nil {
		return completedFuture(runInline(task))
	}

	f, err := p.queue.submit(task)
	if err != nil {
		log.Warn().Err(err).Msg("worker pool closed, task rejected")
		return completedFuture(err)
	}

	return f
}

func (p *WorkerPool) Shutdown(wait bool) {
	if p.queue == nil {
		return
	}

	p.queue.shutdown(wait)
}

func runInline(task port.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", domain.ErrHandlerPanic, r)
			log.Error().Err(err).Msg("task panicked")
		}
	}()

	err = task(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("task failed")
	}

	return err
}
