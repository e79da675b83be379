package service

import (
	"context"
	"errors"
	"fmt"
	"sarah/internal/core/domain"
	"sarah/internal/core/domain/command"
	"sarah/internal/core/port"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultStopTimeout = 5 * time.Second

type Options struct {
	// MaxWorkers sizes the worker pool. Zero disables it.
	MaxWorkers int
	// SendRate limits outbound sends per second. Zero means unlimited.
	SendRate float64
	// StopTimeout bounds how long Stop waits for running scheduled jobs.
	StopTimeout time.Duration
}

// Bot is one running instance of a backend together with its plugins, conversations,
// message queue, worker pool and scheduler.
type Bot struct {
	backend    port.Backend
	registry   *command.Registry
	loader     *PluginLoader
	configs    domain.PluginConfigs
	store      *ConversationStore
	dispatcher *Dispatcher
	scheduler  *Scheduler
	opts       Options

	mu      sync.RWMutex
	ctx     context.Context
	queue   *MessageQueue
	pool    *WorkerPool
	running bool
}

// NewBot activates the backend's scope in catalog, which resets the command table of
// that backend type, and attaches the bot to the backend.
func NewBot(backend port.Backend, catalog *command.Catalog, loader *PluginLoader,
	configs domain.PluginConfigs, opts Options) *Bot {
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}

	registry := catalog.Activate(backend.Scope())
	store := NewConversationStore()

	b := &Bot{
		backend:    backend,
		registry:   registry,
		loader:     loader,
		configs:    configs,
		store:      store,
		dispatcher: NewDispatcher(registry, store, configs),
		scheduler:  NewScheduler(),
		opts:       opts,
	}

	backend.Attach(b)

	return b
}

// Run starts the workers, loads the plugins, schedules their jobs and connects. It blocks
// until the backend connection ends.
func (b *Bot) Run(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return errors.New("bot already running")
	}

	b.running = true
	b.ctx = ctx
	b.pool = NewWorkerPool(b.opts.MaxWorkers)
	b.queue = NewMessageQueue(b.opts.SendRate)
	b.mu.Unlock()

	l := log.With().Str("scope", b.backend.Scope()).Logger()

	loaded := b.LoadPlugins()
	l.Info().Strs("plugins", loaded).Msg("plugins loaded")

	b.scheduler.AddAll(ctx, b.registry.Schedules(), b.backend)
	b.scheduler.Start()

	l.Info().Msg("connecting")

	err := b.backend.Connect(ctx)
	if err != nil {
		return fmt.Errorf("backend %s: %w", b.backend.Scope(), err)
	}

	return nil
}

// Stop shuts the instance down. The scheduler stops first so that no firing job enqueues
// a send after the message queue is gone.
func (b *Bot) Stop() {
	b.mu.Lock()
	b.running = false
	pool, queue := b.pool, b.queue
	b.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), b.opts.StopTimeout)
	defer cancel()

	log.Info().Msg("stop scheduler")
	b.scheduler.Stop(ctx)

	log.Info().Msg("stop concurrent worker")
	if pool != nil {
		pool.Shutdown(false)
	}

	log.Info().Msg("stop message worker")
	if queue != nil {
		queue.Shutdown(false)
	}

	b.backend.Disconnect()
}

func (b *Bot) Running() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.running
}

// LoadPlugins loads every configured plugin into the registry.
func (b *Bot) LoadPlugins() []string {
	return b.loader.LoadAll(b.backend.Scope(), b.registry, b.configs)
}

// Reload runs the declaration pass of a plugin again, replacing its commands and jobs.
func (b *Bot) Reload(name string) error {
	err := b.loader.Load(b.backend.Scope(), b.registry, name, b.configs.Get(name))
	if err != nil {
		log.Warn().Err(err).Str("plugin", name).Msg("failed to reload plugin")
		return err
	}

	b.mu.RLock()
	ctx, running := b.ctx, b.running
	b.mu.RUnlock()

	if !running {
		return nil
	}

	for _, cmd := range b.registry.Schedules() {
		if cmd.Owner != name {
			continue
		}

		err := b.scheduler.Replace(ctx, cmd, b.backend)
		if err != nil {
			log.Warn().Err(err).Str("job", cmd.JobID()).Msg("skipping schedule job")
		}
	}

	return nil
}

func (b *Bot) Respond(ctx context.Context, userID, text string) domain.Reply {
	return b.dispatcher.Respond(ctx, userID, text)
}

func (b *Bot) Enqueue(task port.Task) (port.Future, error) {
	b.mu.RLock()
	queue := b.queue
	b.mu.RUnlock()

	if queue == nil {
		return nil, domain.ErrQueueClosed
	}

	return queue.Submit(task)
}

func (b *Bot) RunConcurrent(task port.Task) port.Future {
	b.mu.RLock()
	pool := b.pool
	b.mu.RUnlock()

	if pool == nil {
		return completedFuture(runInline(task))
	}

	return pool.Run(task)
}

func (b *Bot) Commands() []domain.Command {
	return b.registry.List()
}

func (b *Bot) Scheduler() *Scheduler {
	return b.scheduler
}
