package ask

import (
	"context"
	"fmt"
	"sarah/internal/core/domain"
	"sarah/internal/core/port"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"
)

const (
	Name = "ask"

	DefaultModel   = "openai/gpt-4.1-mini"
	DefaultTimeout = 60 * time.Second

	command = ".ask"
)

// Plugin forwards a prompt to a text generation model. The model and the request timeout
// are read from the plugin config on every call.
type Plugin struct {
	generator port.TextGenerator
}

func New(generator port.TextGenerator) *Plugin {
	return &Plugin{generator: generator}
}

func (*Plugin) Name() string {
	return Name
}

func (p *Plugin) Commands(_ string) []domain.CommandSpec {
	return []domain.CommandSpec{
		{Name: command, Handler: p.Ask, Examples: []string{".ask what is the capital of France?"}},
	}
}

func (*Plugin) Schedules(_ string) []domain.ScheduleSpec {
	return nil
}

func (p *Plugin) Ask(ctx context.Context, msg domain.CommandMessage, config domain.Config) (domain.Reply, error) {
	prompt := strings.TrimSpace(msg.Text)
	if prompt == "" || prompt == command {
		return domain.Text("please input a prompt"), nil
	}

	model := cast.ToString(config["model"])
	if model == "" {
		model = DefaultModel
	}

	timeout, err := cast.ToDurationE(config["timeout"])
	if err != nil || timeout <= 0 {
		timeout = DefaultTimeout
	}

	l := log.With().
		Str("handler", Name).
		Str("user", msg.Sender).
		Str("model", model).
		Logger()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	l.Debug().Str("prompt", prompt).Msg("generating answer")

	answer, err := p.generator.GenerateFromPrompt(ctx, model, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate answer: %w", err)
	}

	l.Debug().Int("length", len(answer)).Msg("answer generated")

	return domain.Text(answer), nil
}
