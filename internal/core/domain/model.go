package domain

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// CommandMessage is the input handed to a Handler.
type CommandMessage struct {
	// OriginalText is the raw user input.
	OriginalText string
	// Text is the input with the command name stripped. Conversation steps receive the raw input here.
	Text string
	// Sender identifies the user. Its format is up to the backend.
	Sender string
}

// Config is the opaque per-plugin configuration.
type Config map[string]any

// Handler answers a command or a conversation step.
type Handler func(ctx context.Context, message CommandMessage, config Config) (Reply, error)

// ScheduledHandler produces the content of a scheduled job.
type ScheduledHandler func(ctx context.Context, config Config) (Reply, error)

// Reply is the result of a handler. It is exactly one of Text, Rich or *UserContext.
type Reply interface {
	fmt.Stringer
	reply()
}

// Text is a plain text reply.
type Text string

func (t Text) String() string { return string(t) }

func (Text) reply() {}

// RichMessage is a backend specific display payload. String returns its plain text rendition.
type RichMessage interface {
	fmt.Stringer
}

// Rich wraps a RichMessage so it can be returned as a Reply.
type Rich struct {
	Message RichMessage
}

func (r Rich) String() string {
	if r.Message == nil {
		return ""
	}

	return r.Message.String()
}

func (Rich) reply() {}

// IsEmpty reports whether a reply carries nothing to show to the user.
func IsEmpty(r Reply) bool {
	switch v := r.(type) {
	case nil:
		return true
	case Text:
		return v == ""
	case Rich:
		return v.Message == nil
	case *UserContext:
		return v == nil
	default:
		return false
	}
}

// InputOption ties a pattern to the handler that takes over when the user's next input matches it.
type InputOption struct {
	pattern *regexp.Regexp
	next    Handler
}

// NewInputOption compiles pattern and panics if it is invalid, like regexp.MustCompile.
func NewInputOption(pattern string, next Handler) InputOption {
	return InputOption{pattern: regexp.MustCompile(pattern), next: next}
}

// NewRegexpOption builds an option from an already compiled pattern.
func NewRegexpOption(pattern *regexp.Regexp, next Handler) InputOption {
	return InputOption{pattern: pattern, next: next}
}

// Match reports whether the pattern matches at the beginning of input.
func (o InputOption) Match(input string) bool {
	if o.pattern == nil {
		return false
	}

	loc := o.pattern.FindStringIndex(input)
	return loc != nil && loc[0] == 0
}

func (o InputOption) Pattern() string {
	if o.pattern == nil {
		return ""
	}

	return o.pattern.String()
}

func (o InputOption) Next() Handler {
	return o.next
}

// UserContext is the state of a conversation: what to show, what to say on unexpected
// input and which inputs move it forward. It is never modified after construction.
type UserContext struct {
	message     RichMessage
	helpMessage string
	options     []InputOption
}

// NewUserContext builds a conversation step. message is usually a Text or a backend RichMessage.
func NewUserContext(message RichMessage, helpMessage string, options ...InputOption) *UserContext {
	opts := make([]InputOption, len(options))
	copy(opts, options)

	return &UserContext{message: message, helpMessage: helpMessage, options: opts}
}

func (u *UserContext) String() string {
	if u == nil || u.message == nil {
		return ""
	}

	return u.message.String()
}

func (*UserContext) reply() {}

// Message returns the prompt to display as a Reply.
func (u *UserContext) Message() Reply {
	switch m := u.message.(type) {
	case nil:
		return nil
	case Text:
		return m
	case Rich:
		return m
	default:
		return Rich{Message: m}
	}
}

func (u *UserContext) HelpMessage() string {
	return u.helpMessage
}

func (u *UserContext) Options() []InputOption {
	opts := make([]InputOption, len(u.options))
	copy(opts, u.options)

	return opts
}

// FindNextStep returns the first option, in declaration order, that matches input.
func (u *UserContext) FindNextStep(input string) (InputOption, bool) {
	for _, o := range u.options {
		if o.Match(input) {
			return o, true
		}
	}

	return InputOption{}, false
}

// PluginConfig is the configuration of one plugin, identified by its name.
type PluginConfig struct {
	Name   string
	Config Config
}

// PluginConfigs keeps the configured plugins in load order.
type PluginConfigs []PluginConfig

// Get returns the configuration of the named plugin, or an empty Config.
func (p PluginConfigs) Get(name string) Config {
	for _, c := range p {
		if c.Name == name {
			if c.Config == nil {
				return Config{}
			}

			return c.Config
		}
	}

	return Config{}
}

func (p PluginConfigs) Names() []string {
	names := make([]string, len(p))
	for i, c := range p {
		names[i] = c.Name
	}

	return names
}

func (p PluginConfigs) String() string {
	return strings.Join(p.Names(), ", ")
}
