package port

import (
	"context"
	"sarah/internal/core/domain"
)

type CommandRegistry interface {
	// Register inserts a command or replaces the entry with the same name, keeping its position.
	Register(cmd domain.Command)
	// List returns all commands in registration order.
	List() []domain.Command
	// Find returns the first registered command whose name prefixes text.
	Find(text string) (domain.Command, bool)
}

type ScheduleRegistry interface {
	// RegisterSchedule inserts a scheduled command or replaces the entry with the same name.
	RegisterSchedule(cmd domain.ScheduledCommand)
	// Schedules returns all scheduled commands in registration order.
	Schedules() []domain.ScheduledCommand
}

type Dispatcher interface {
	// Respond decides what to answer to text sent by userID. A nil reply means the bot stays silent.
	Respond(ctx context.Context, userID, text string) domain.Reply
}

// Plugin declares commands and scheduled jobs. Declaring must not depend on a bot instance.
type Plugin interface {
	Name() string
	// Commands returns the commands offered to backends of the given scope.
	Commands(scope string) []domain.CommandSpec
	// Schedules returns the scheduled jobs offered to backends of the given scope.
	Schedules(scope string) []domain.ScheduleSpec
}

// Registry is the table a plugin loader writes to.
type Registry interface {
	CommandRegistry
	ScheduleRegistry
}
