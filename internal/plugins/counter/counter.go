package counter

import (
	"context"
	"sarah/internal/core/domain"
	"strconv"
	"sync"
)

const Name = "counter"

// Plugin counts how often each user sent the same text. Counts are kept per backend scope.
type Plugin struct {
	mu    sync.Mutex
	stash map[string]map[string]map[string]int
}

func New() *Plugin {
	return &Plugin{stash: map[string]map[string]map[string]int{}}
}

func (*Plugin) Name() string {
	return Name
}

func (p *Plugin) Commands(scope string) []domain.CommandSpec {
	return []domain.CommandSpec{
		{
			Name: ".count",
			Handler: func(_ context.Context, msg domain.CommandMessage, _ domain.Config) (domain.Reply, error) {
				return domain.Text(strconv.Itoa(p.Count(scope, msg.Sender, msg.Text))), nil
			},
			Examples: []string{".count ham", ".count spam"},
		},
		{
			Name: ".reset_count",
			Handler: func(_ context.Context, _ domain.CommandMessage, _ domain.Config) (domain.Reply, error) {
				p.Reset(scope)
				return domain.Text("restart counting"), nil
			},
		},
	}
}

func (*Plugin) Schedules(_ string) []domain.ScheduleSpec {
	return nil
}

// Count increments and returns the counter of key for user.
func (p *Plugin) Count(scope, user, key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	users, ok := p.stash[scope]
	if !ok {
		users = map[string]map[string]int{}
		p.stash[scope] = users
	}

	counts, ok := users[user]
	if !ok {
		counts = map[string]int{}
		users[user] = counts
	}

	counts[key]++

	return counts[key]
}

// Reset drops every counter of scope.
func (p *Plugin) Reset(scope string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.stash, scope)
}
