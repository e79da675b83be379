package service

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"sarah/internal/core/domain"
	"sarah/internal/core/port"
	"strings"

	"github.com/rs/zerolog/log"
)

// Dispatcher decides for every inbound text whether it continues a conversation, triggers
// a command or is ignored.
type Dispatcher struct {
	registry port.CommandRegistry
	store    *ConversationStore
	configs  domain.PluginConfigs
}

func NewDispatcher(registry port.CommandRegistry, store *ConversationStore,
	configs domain.PluginConfigs) *Dispatcher {
	return &Dispatcher{registry: registry, store: store, configs: configs}
}

func (d *Dispatcher) Respond(ctx context.Context, userID, text string) domain.Reply {
	l := log.With().Str("user", userID).Logger()

	if text == domain.HelpToken {
		return d.help()
	}

	unlock := d.store.Lock(userID)
	defer unlock()

	if conv, ok := d.store.Get(userID); ok {
		if text == domain.AbortToken {
			d.store.Clear(userID)
			l.Debug().Str("owner", conv.Owner).Msg("conversation aborted")
			return domain.Text(domain.AbortMessage)
		}

		opt, ok := conv.Context.FindNextStep(text)
		if !ok {
			l.Debug().Str("owner", conv.Owner).Msg("input matches no option")
			return domain.Text(conv.Context.HelpMessage())
		}

		msg := domain.CommandMessage{OriginalText: text, Text: text, Sender: userID}
		reply, err := invoke(ctx, opt.Next(), msg, d.configs.Get(conv.Owner))
		if err != nil {
			// the user keeps the current step so the input can be retried
			return failure(handlerName(conv.Owner, opt.Next()), text, err)
		}

		d.store.Clear(userID)

		return d.settle(userID, conv.Owner, reply)
	}

	cmd, ok := d.registry.Find(text)
	if !ok {
		return nil
	}

	l.Debug().Str("handler", cmd.ID()).Msg("dispatching command")

	msg := domain.CommandMessage{OriginalText: text, Text: cmd.Strip(text), Sender: userID}
	reply, err := invoke(ctx, cmd.Handler, msg, d.configs.Get(cmd.Owner))
	if err != nil {
		return failure(cmd.ID(), text, err)
	}

	return d.settle(userID, cmd.Owner, reply)
}

func (d *Dispatcher) settle(userID, owner string, reply domain.Reply) domain.Reply {
	switch r := reply.(type) {
	case *domain.UserContext:
		d.store.Set(userID, Conversation{Context: r, Owner: owner})
		log.Debug().Str("user", userID).Str("owner", owner).Msg("conversation continues")
		return r.Message()
	case domain.Text, domain.Rich:
		d.store.Clear(userID)
		return r
	default:
		d.store.Clear(userID)
		return reply
	}
}

func (d *Dispatcher) help() domain.Reply {
	cmds := d.registry.List()
	if len(cmds) == 0 {
		return nil
	}

	lines := make([]string, len(cmds))
	for i, c := range cmds {
		lines[i] = c.Help()
	}

	return domain.Text(strings.Join(lines, "\n"))
}

// invoke runs handler, turning panics and empty replies into errors.
func invoke(ctx context.Context, handler domain.Handler, msg domain.CommandMessage,
	config domain.Config) (domain.Reply, error) {
	return call(func() (domain.Reply, error) {
		return handler(ctx, msg, config)
	})
}

func call(fn func() (domain.Reply, error)) (reply domain.Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			reply = nil
			err = fmt.Errorf("%w: %v", domain.ErrHandlerPanic, r)
		}
	}()

	reply, err = fn()
	if err != nil {
		return nil, err
	}

	if domain.IsEmpty(reply) {
		return nil, domain.ErrEmptyReply
	}

	return reply, nil
}

func failure(handler, input string, err error) domain.Reply {
	log.Error().Err(err).Str("handler", handler).Str("input", input).Msg("error occurred while handling input")
	return domain.Text(fmt.Sprintf(domain.FailureMessage, input))
}

func handlerName(owner string, handler any) string {
	v := reflect.ValueOf(handler)
	if v.Kind() != reflect.Func || v.IsNil() {
		return owner
	}

	if fn := runtime.FuncForPC(v.Pointer()); fn != nil {
		return owner + ":" + fn.Name()
	}

	return owner
}
