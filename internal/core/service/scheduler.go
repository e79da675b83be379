package service

import (
	"context"
	"fmt"
	"sarah/internal/core/domain"
	"sarah/internal/core/port"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"
)

// Scheduler registers scheduled commands with the cron trigger mechanism. How a reply
// reaches the chat is left to the backend's JobGenerator.
type Scheduler struct {
	cron    *cron.Cron
	mu      sync.Mutex
	jobs    map[string]cron.EntryID
	running bool
}

func NewScheduler() *Scheduler {
	logger := cronLogger{}

	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		jobs: make(map[string]cron.EntryID),
	}
}

// AddAll adds every command. Commands that cannot be scheduled are logged and skipped.
func (s *Scheduler) AddAll(ctx context.Context, cmds []domain.ScheduledCommand, generator port.JobGenerator) {
	for _, cmd := range cmds {
		err := s.Add(ctx, cmd, generator)
		if err != nil {
			log.Warn().Err(err).Str("job", cmd.JobID()).Msg("skipping schedule job")
		}
	}
}

// Add asks generator for the delivery step of cmd and schedules it under cmd.JobID().
func (s *Scheduler) Add(ctx context.Context, cmd domain.ScheduledCommand, generator port.JobGenerator) error {
	deliver := generator.GenerateJob(cmd)
	if deliver == nil {
		return fmt.Errorf("%w: %s", domain.ErrMissingDeliveryTarget, cmd.Owner)
	}

	schedule, err := ParseTrigger(cmd.Trigger())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[cmd.JobID()]; ok {
		return fmt.Errorf("%w: %s", domain.ErrJobExists, cmd.JobID())
	}

	s.jobs[cmd.JobID()] = s.cron.Schedule(schedule, cron.FuncJob(func() {
		fire(ctx, cmd, deliver)
	}))

	log.Info().Str("job", cmd.JobID()).Str("trigger", cmd.Trigger().Kind).Msg("add schedule")

	return nil
}

// Replace removes a job with the same id before adding cmd.
func (s *Scheduler) Replace(ctx context.Context, cmd domain.ScheduledCommand, generator port.JobGenerator) error {
	s.Remove(cmd.JobID())
	return s.Add(ctx, cmd, generator)
}

func (s *Scheduler) Remove(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.jobs[jobID]
	if !ok {
		return false
	}

	s.cron.Remove(id)
	delete(s.jobs, jobID)

	return true
}

// JobIDs returns the ids of the scheduled jobs, sorted.
func (s *Scheduler) JobIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	return ids
}

func (s *Scheduler) Has(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.jobs[jobID]
	return ok
}

// RunNow fires a job once on the calling goroutine.
func (s *Scheduler) RunNow(jobID string) bool {
	s.mu.Lock()
	id, ok := s.jobs[jobID]
	s.mu.Unlock()

	if !ok {
		return false
	}

	entry := s.cron.Entry(id)
	if entry.WrappedJob == nil {
		return false
	}

	entry.WrappedJob.Run()

	return true
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	s.cron.Start()
	s.running = true
}

// Stop cancels future firings and waits for running jobs until ctx is done.
// It returns false when the scheduler was not running.
func (s *Scheduler) Stop(ctx context.Context) bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		log.Info().Msg("scheduler already stopped")
		return false
	}
	s.running = false
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
		log.Info().Msg("cancelled scheduled work")
	case <-ctx.Done():
		log.Warn().Err(ctx.Err()).Msg("scheduled jobs still running")
	}

	return true
}

func fire(ctx context.Context, cmd domain.ScheduledCommand, deliver port.Delivery) {
	l := log.With().Str("job", cmd.JobID()).Logger()

	reply, err := call(func() (domain.Reply, error) {
		return cmd.Execute(ctx)
	})
	if err != nil {
		l.Error().Err(err).Msg("scheduled job failed")
		return
	}

	l.Debug().Msg("delivering scheduled reply")
	deliver(ctx, reply)
}

var intervalUnits = []struct {
	key  string
	unit time.Duration
}{
	{"weeks", 7 * 24 * time.Hour},
	{"days", 24 * time.Hour},
	{"hours", time.Hour},
	{"minutes", time.Minute},
	{"seconds", time.Second},
}

var cronFields = []string{"minute", "hour", "day", "month", "day_of_week"}

// ParseTrigger converts a trigger into a cron schedule. Supported kinds are "interval"
// (weeks, days, hours, minutes, seconds) and "cron" (spec, or the five standard fields).
func ParseTrigger(t domain.Trigger) (cron.Schedule, error) {
	switch t.Kind {
	case "interval":
		var every time.Duration
		for _, u := range intervalUnits {
			raw, ok := t.Args[u.key]
			if !ok {
				continue
			}

			n, err := cast.ToIntE(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid interval %s: %w", u.key, err)
			}

			every += time.Duration(n) * u.unit
		}

		if every < time.Second {
			return nil, fmt.Errorf("%w: interval must be at least one second", domain.ErrUnsupportedTrigger)
		}

		return cron.Every(every), nil
	case "cron":
		spec := cast.ToString(t.Args["spec"])
		if spec == "" {
			fields := make([]string, len(cronFields))
			for i, f := range cronFields {
				fields[i] = "*"
				if v, ok := t.Args[f]; ok {
					fields[i] = cast.ToString(v)
				}
			}
			spec = strings.Join(fields, " ")
		}

		schedule, err := cron.ParseStandard(spec)
		if err != nil {
			return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
		}

		return schedule, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedTrigger, t.Kind)
	}
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	log.Debug().Fields(keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
