package quotes

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sarah/internal/adapters/telegram"
	"sarah/internal/core/domain"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const Name = "quotes"

// Line is one line of a quote. A line without speaker is a stage direction.
type Line struct {
	Speaker string
	Text    string
}

// Quote is a short scene.
type Quote []Line

// Text renders the quote as plain text.
func (q Quote) Text() string {
	lines := make([]string, len(q))
	for i, l := range q {
		if l.Speaker == "" {
			lines[i] = l.Text
			continue
		}

		lines[i] = fmt.Sprintf("%s: %s", l.Speaker, l.Text)
	}

	return strings.Join(lines, "\n")
}

// Markdown renders the quote in Telegram MarkdownV2 with bold speakers and italic stage directions.
func (q Quote) Markdown() string {
	lines := make([]string, len(q))
	for i, l := range q {
		if l.Speaker == "" {
			lines[i] = "_" + bot.EscapeMarkdown(l.Text) + "_"
			continue
		}

		lines[i] = fmt.Sprintf("*%s*: %s", bot.EscapeMarkdown(l.Speaker), bot.EscapeMarkdown(l.Text))
	}

	return strings.Join(lines, "\n")
}

var defaultQuotes = []Quote{
	{
		{"Eric", "So i said to myself, 'Kyle'"},
		{"Alan", "Kyle?"},
		{"Eric", "That's what I call myself."},
	},
	{
		{"Cory", "It's hard to imagine you as a boy.\nDid your parents call you Mr. Feeny?"},
	},
	{
		{"", "[Jack and Eric are dressed up as girls to avoid bullies]"},
		{"Feeny", "Hmm, double d's, just like your grades."},
	},
	{
		{"Morgan", "Mommy, if my dolly's cold, Can I put her in the toaster oven?"},
		{"Amy", "No, honey. That would be a mistake."},
		{"Morgan", "Mommy?"},
		{"Amy", "Yes?"},
		{"Morgan", "I made a mistake."},
	},
	{
		{"Amy", "Apparently, Cory would rather listen to the game than try and understand the " +
			"emotional content of Romeo & Juliet."},
		{"Cory", "Mom, I'm a kid. I don't understand the emotional content of Full House."},
		{"Morgan", "I do."},
	},
	{
		{"Topanga", "Cory, the worst thing that ever happened when we were kids was that your " +
			"Pop-Tart fell on the ground."},
		{"Cory", "Yeah, and you convinced me to eat it. You said, \"God made dirt, dirt won't hurt.\""},
	},
}

// Plugin answers with a random quote, on demand and on a schedule.
type Plugin struct {
	quotes []Quote
	pick   func(n int) int
}

func New() *Plugin {
	return &Plugin{quotes: defaultQuotes, pick: rand.IntN}
}

func (*Plugin) Name() string {
	return Name
}

func (p *Plugin) Commands(scope string) []domain.CommandSpec {
	return []domain.CommandSpec{
		{
			Name: ".quote",
			Handler: func(_ context.Context, _ domain.CommandMessage, _ domain.Config) (domain.Reply, error) {
				return p.reply(scope), nil
			},
		},
	}
}

func (p *Plugin) Schedules(scope string) []domain.ScheduleSpec {
	return []domain.ScheduleSpec{
		{
			Name: "quotes",
			Handler: func(_ context.Context, _ domain.Config) (domain.Reply, error) {
				return p.reply(scope), nil
			},
		},
	}
}

func (p *Plugin) reply(scope string) domain.Reply {
	q := p.quotes[p.pick(len(p.quotes))]

	if scope == telegram.Scope {
		return domain.Rich{Message: telegram.Message{Text: q.Markdown(), ParseMode: models.ParseModeMarkdown}}
	}

	return domain.Text(q.Text())
}
