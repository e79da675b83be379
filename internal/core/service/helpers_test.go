package service

import (
	"bytes"
	"context"
	"errors"
	"sarah/internal/core/domain"
	"sarah/internal/core/domain/command"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var errBoom = errors.New("boom")

func text(s string) domain.Handler {
	return func(_ context.Context, _ domain.CommandMessage, _ domain.Config) (domain.Reply, error) {
		return domain.Text(s), nil
	}
}

func echo(_ context.Context, msg domain.CommandMessage, _ domain.Config) (domain.Reply, error) {
	return domain.Text(msg.Text), nil
}

func failing(_ context.Context, _ domain.CommandMessage, _ domain.Config) (domain.Reply, error) {
	return nil, errBoom
}

func newRegistry(t *testing.T, specs ...domain.CommandSpec) *command.Registry {
	t.Helper()

	registry := command.NewCatalog().Activate("test")
	for _, spec := range specs {
		registry.Register(spec.Bind("mod", nil))
	}

	return registry
}

// captureLog redirects the global logger for the duration of the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()

	buf := &bytes.Buffer{}
	orig := log.Logger
	log.Logger = zerolog.New(buf)
	t.Cleanup(func() { log.Logger = orig })

	return buf
}

func countLevel(buf *bytes.Buffer, level string) int {
	n := 0
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, `"level":"`+level+`"`) {
			n++
		}
	}

	return n
}
