package domain

import (
	"context"
	"regexp"
	"strings"

	"github.com/spf13/cast"
)

const (
	scheduleKey      = "schedule"
	schedulerArgsKey = "scheduler_args"
	triggerKey       = "trigger"

	DefaultTrigger         = "interval"
	DefaultIntervalMinutes = 5
)

// CommandSpec is what a plugin declares. It is bound to an owner and a configuration
// when a backend instance activates the plugin.
type CommandSpec struct {
	Name     string
	Handler  Handler
	Examples []string
}

// Bind turns the declaration into a registry entry.
func (s CommandSpec) Bind(owner string, config Config) Command {
	examples := make([]string, len(s.Examples))
	copy(examples, s.Examples)

	return Command{
		Name:     s.Name,
		Handler:  s.Handler,
		Owner:    owner,
		Config:   config,
		Examples: examples,
	}
}

// ScheduleSpec declares a job to be run on a timer instead of on user input.
type ScheduleSpec struct {
	Name    string
	Handler ScheduledHandler
}

// Bind returns the registry entry and false when config carries no schedule section.
func (s ScheduleSpec) Bind(owner string, config Config) (ScheduledCommand, bool) {
	raw, ok := config[scheduleKey]
	if !ok {
		return ScheduledCommand{}, false
	}

	schedule, err := cast.ToStringMapE(raw)
	if err != nil || len(schedule) == 0 {
		return ScheduledCommand{}, false
	}

	return ScheduledCommand{
		Name:           s.Name,
		Handler:        s.Handler,
		Owner:          owner,
		Config:         config,
		ScheduleConfig: schedule,
	}, true
}

// Command is a registered command. Name is matched as a literal prefix of the user input.
type Command struct {
	Name     string
	Handler  Handler
	Owner    string
	Config   Config
	Examples []string
}

// ID identifies the handler in logs.
func (c Command) ID() string {
	return c.Owner + "." + c.Name
}

// Match reports whether text starts with the command name.
func (c Command) Match(text string) bool {
	return strings.HasPrefix(text, c.Name)
}

// Strip removes the command name and the whitespace following it from text.
// Input with nothing after the name is returned as is.
func (c Command) Strip(text string) string {
	re := regexp.MustCompile(regexp.QuoteMeta(c.Name) + `\s+`)
	return re.ReplaceAllString(text, "")
}

// Help renders the line shown for this command in the help listing.
func (c Command) Help() string {
	if len(c.Examples) == 0 {
		return c.Name
	}

	return c.Name + ": " + strings.Join(c.Examples, ", ")
}

func (c Command) Execute(ctx context.Context, message CommandMessage) (Reply, error) {
	return c.Handler(ctx, message, c.Config)
}

// ScheduledCommand is a registered scheduled job.
type ScheduledCommand struct {
	Name    string
	Handler ScheduledHandler
	Owner   string
	// Config is the plugin configuration handed to the handler.
	Config Config
	// ScheduleConfig is the "schedule" section of Config: delivery targets and trigger arguments.
	ScheduleConfig Config
}

// JobID identifies the job in the trigger mechanism.
func (c ScheduledCommand) JobID() string {
	return c.Owner + "." + c.Name
}

func (c ScheduledCommand) Execute(ctx context.Context) (Reply, error) {
	return c.Handler(ctx, c.Config)
}

// Trigger returns the trigger view of the schedule config. The config itself is left untouched.
func (c ScheduledCommand) Trigger() Trigger {
	raw, ok := c.ScheduleConfig[schedulerArgsKey]
	if !ok {
		return Trigger{Kind: DefaultTrigger, Args: Config{"minutes": DefaultIntervalMinutes}}
	}

	args, err := cast.ToStringMapE(raw)
	if err != nil || len(args) == 0 {
		return Trigger{Kind: DefaultTrigger, Args: Config{"minutes": DefaultIntervalMinutes}}
	}

	t := Trigger{Kind: cast.ToString(args[triggerKey]), Args: Config{}}
	for k, v := range args {
		if k != triggerKey {
			t.Args[k] = v
		}
	}

	if t.Kind == "" {
		t.Kind = DefaultTrigger
	}

	return t
}

// DeliveryConfig returns a copy of the schedule config without the trigger arguments.
func (c ScheduledCommand) DeliveryConfig() Config {
	out := make(Config, len(c.ScheduleConfig))
	for k, v := range c.ScheduleConfig {
		if k != schedulerArgsKey {
			out[k] = v
		}
	}

	return out
}

// Trigger tells the scheduler when to fire a job. Args are passed through as configured.
type Trigger struct {
	Kind string
	Args Config
}
