package command

import (
	"sarah/internal/core/domain"
	"sync"

	"github.com/rs/zerolog/log"
)

// Catalog holds the command and schedule tables of every backend type. A scope's tables
// exist only once a backend instance of that type has activated them.
type Catalog struct {
	mu        sync.RWMutex
	commands  map[string][]domain.Command
	schedules map[string][]domain.ScheduledCommand
}

func NewCatalog() *Catalog {
	return &Catalog{
		commands:  make(map[string][]domain.Command),
		schedules: make(map[string][]domain.ScheduledCommand),
	}
}

// Activate resets the tables of scope and returns a registry bound to it.
func (c *Catalog) Activate(scope string) *Registry {
	c.mu.Lock()
	c.commands[scope] = []domain.Command{}
	c.schedules[scope] = []domain.ScheduledCommand{}
	c.mu.Unlock()

	log.Debug().Str("scope", scope).Msg("activated registry scope")

	return &Registry{catalog: c, scope: scope}
}

// Register inserts cmd or replaces the entry with the same name in place.
// Registrations for a scope that was never activated are dropped.
func (c *Catalog) Register(scope string, cmd domain.Command) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	table, ok := c.commands[scope]
	if !ok {
		log.Debug().Str("scope", scope).Str("command", cmd.Name).Msg("scope not active, dropping command")
		return false
	}

	for i := range table {
		if table[i].Name == cmd.Name {
			table[i] = cmd
			log.Info().Str("scope", scope).Str("handler", cmd.ID()).Msg("replaced command in registry")
			return true
		}
	}

	c.commands[scope] = append(table, cmd)
	log.Info().Str("scope", scope).Str("handler", cmd.ID()).Msg("adding command handler to registry")

	return true
}

// RegisterSchedule follows the same replace-in-place rules as Register.
func (c *Catalog) RegisterSchedule(scope string, cmd domain.ScheduledCommand) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	table, ok := c.schedules[scope]
	if !ok {
		log.Debug().Str("scope", scope).Str("schedule", cmd.Name).Msg("scope not active, dropping schedule")
		return false
	}

	for i := range table {
		if table[i].Name == cmd.Name {
			table[i] = cmd
			log.Info().Str("scope", scope).Str("job", cmd.JobID()).Msg("replaced schedule in registry")
			return true
		}
	}

	c.schedules[scope] = append(table, cmd)
	log.Info().Str("scope", scope).Str("job", cmd.JobID()).Msg("adding schedule to registry")

	return true
}

// Commands returns a copy of the command table in registration order.
func (c *Catalog) Commands(scope string) []domain.Command {
	c.mu.RLock()
	defer c.mu.RUnlock()

	table := c.commands[scope]
	out := make([]domain.Command, len(table))
	copy(out, table)

	return out
}

func (c *Catalog) Schedules(scope string) []domain.ScheduledCommand {
	c.mu.RLock()
	defer c.mu.RUnlock()

	table := c.schedules[scope]
	out := make([]domain.ScheduledCommand, len(table))
	copy(out, table)

	return out
}

// Find returns the first command, in registration order, whose name prefixes text.
// The first match wins even when a later command has a longer matching name.
func (c *Catalog) Find(scope, text string) (domain.Command, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, cmd := range c.commands[scope] {
		if cmd.Match(text) {
			return cmd, true
		}
	}

	return domain.Command{}, false
}

// Registry is the view of a Catalog for one scope.
type Registry struct {
	catalog *Catalog
	scope   string
}

func (r *Registry) Scope() string {
	return r.scope
}

func (r *Registry) Register(cmd domain.Command) {
	r.catalog.Register(r.scope, cmd)
}

func (r *Registry) RegisterAll(cmds []domain.Command) {
	for _, cmd := range cmds {
		r.Register(cmd)
	}
}

func (r *Registry) RegisterSchedule(cmd domain.ScheduledCommand) {
	r.catalog.RegisterSchedule(r.scope, cmd)
}

func (r *Registry) List() []domain.Command {
	return r.catalog.Commands(r.scope)
}

func (r *Registry) Schedules() []domain.ScheduledCommand {
	return r.catalog.Schedules(r.scope)
}

func (r *Registry) Find(text string) (domain.Command, bool) {
	log.Debug().Str("scope", r.scope).Str("input", text).Msg("fetching command handler from registry")
	return r.catalog.Find(r.scope, text)
}
