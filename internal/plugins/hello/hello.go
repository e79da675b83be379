package hello

import (
	"context"
	"sarah/internal/core/domain"
)

const Name = "hello"

type Plugin struct{}

func New() *Plugin {
	return &Plugin{}
}

func (*Plugin) Name() string {
	return Name
}

func (*Plugin) Commands(_ string) []domain.CommandSpec {
	return []domain.CommandSpec{{Name: ".hello", Handler: Hello}}
}

func (*Plugin) Schedules(_ string) []domain.ScheduleSpec {
	return nil
}

// Hello starts a conversation. The stored context decides how the next input is handled.
func Hello(_ context.Context, _ domain.CommandMessage, _ domain.Config) (domain.Reply, error) {
	return domain.NewUserContext(
		domain.Text("Hello. How are you feeling today?"),
		"Say Good or Bad, please.",
		domain.NewInputOption("Good", feelingGood),
		domain.NewInputOption("Bad", feelingBad),
	), nil
}

func feelingGood(_ context.Context, _ domain.CommandMessage, _ domain.Config) (domain.Reply, error) {
	return domain.Text("Good to hear that."), nil
}

func feelingBad(_ context.Context, _ domain.CommandMessage, _ domain.Config) (domain.Reply, error) {
	return domain.NewUserContext(
		domain.Text("Are you sick?"),
		"Say Yes or No, please.",
		domain.NewInputOption("Yes", sick),
		domain.NewInputOption("No", notSick),
	), nil
}

func sick(_ context.Context, _ domain.CommandMessage, _ domain.Config) (domain.Reply, error) {
	return domain.Text("I'm sorry to hear that. Hope you get better, soon."), nil
}

func notSick(_ context.Context, _ domain.CommandMessage, _ domain.Config) (domain.Reply, error) {
	return domain.Text("So you are just not feeling well. O.K., then."), nil
}
