package echo

import (
	"context"
	"sarah/internal/core/domain"
)

const Name = "echo"

type Plugin struct{}

func New() *Plugin {
	return &Plugin{}
}

func (*Plugin) Name() string {
	return Name
}

func (*Plugin) Commands(_ string) []domain.CommandSpec {
	return []domain.CommandSpec{
		{Name: ".echo", Handler: Echo, Examples: []string{".echo spam ham"}},
	}
}

func (*Plugin) Schedules(_ string) []domain.ScheduleSpec {
	return nil
}

// Echo replies with the input following the command name.
func Echo(_ context.Context, msg domain.CommandMessage, _ domain.Config) (domain.Reply, error) {
	return domain.Text(msg.Text), nil
}
