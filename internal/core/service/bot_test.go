package service

import (
	"context"
	"sarah/internal/core/domain"
	"sarah/internal/core/domain/command"
	"sarah/internal/core/port"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend records lifecycle calls and sends.
type fakeBackend struct {
	mu        sync.Mutex
	runtime   port.Runtime
	calls     []string
	sent      []string
	connected chan struct{}
	connErr   error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{connected: make(chan struct{})}
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) Scope() string { return "fake" }

func (f *fakeBackend) Attach(runtime port.Runtime) {
	f.record("attach")
	f.runtime = runtime
}

func (f *fakeBackend) Connect(ctx context.Context) error {
	f.record("connect")
	if f.connErr != nil {
		return f.connErr
	}

	close(f.connected)
	<-ctx.Done()

	return nil
}

func (f *fakeBackend) Disconnect() {
	f.record("disconnect")
}

func (f *fakeBackend) GenerateJob(cmd domain.ScheduledCommand) port.Delivery {
	if _, ok := cmd.ScheduleConfig["rooms"]; !ok {
		return nil
	}

	return func(_ context.Context, reply domain.Reply) {
		_, _ = f.runtime.Enqueue(func(context.Context) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.sent = append(f.sent, reply.String())
			return nil
		})
	}
}

func (f *fakeBackend) getSent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func newTestBot(t *testing.T, backend *fakeBackend, opts Options) *Bot {
	t.Helper()

	plugins := []port.Plugin{
		&fakePlugin{name: "echo", commands: []domain.CommandSpec{{Name: ".echo", Handler: echo}}},
		&fakePlugin{
			name:      "quotes",
			schedules: []domain.ScheduleSpec{{Name: "quote", Handler: quote}},
		},
	}

	configs := domain.PluginConfigs{
		{Name: "echo"},
		{Name: "quotes", Config: domain.Config{"schedule": map[string]any{"rooms": []any{"lobby"}}}},
	}

	return NewBot(backend, command.NewCatalog(), NewPluginLoader(plugins...), configs, opts)
}

func TestBot_RunAndStop(t *testing.T) {
	backend := newFakeBackend()
	b := newTestBot(t, backend, Options{MaxWorkers: 2})

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- b.Run(ctx) }()

	select {
	case <-backend.connected:
	case <-time.After(time.Second):
		t.Fatal("backend did not connect")
	}

	assert.True(t, b.Running())
	assert.Equal(t, domain.Text("hi"), b.Respond(t.Context(), "u", ".echo hi"))
	assert.Equal(t, []string{"quotes.quote"}, b.Scheduler().JobIDs())
	require.Len(t, b.Commands(), 1)

	require.True(t, b.Scheduler().RunNow("quotes.quote"))
	assert.Eventually(t, func() bool {
		return len(backend.getSent()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a quote"}, backend.getSent())

	f := b.RunConcurrent(func(context.Context) error { return nil })
	require.NoError(t, f.Wait(t.Context()))

	b.Stop()
	cancel()
	require.NoError(t, <-errCh)

	assert.False(t, b.Running())
	assert.Equal(t, []string{"attach", "connect", "disconnect"}, backend.calls)

	_, err := b.Enqueue(func(context.Context) error { return nil })
	require.ErrorIs(t, err, domain.ErrQueueClosed)
}

func TestBot_RunTwice(t *testing.T) {
	backend := newFakeBackend()
	b := newTestBot(t, backend, Options{})

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	go func() { _ = b.Run(ctx) }()
	<-backend.connected

	require.Error(t, b.Run(ctx))

	b.Stop()
}

func TestBot_ConnectFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.connErr = domain.ErrConnectFailed
	b := newTestBot(t, backend, Options{})

	err := b.Run(t.Context())

	require.ErrorIs(t, err, domain.ErrConnectFailed)
	b.Stop()
}

func TestBot_BeforeRun(t *testing.T) {
	b := newTestBot(t, newFakeBackend(), Options{})

	_, err := b.Enqueue(func(context.Context) error { return nil })
	require.ErrorIs(t, err, domain.ErrQueueClosed)

	ran := false
	f := b.RunConcurrent(func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, f.Wait(t.Context()))
	assert.True(t, ran)

	b.Stop()
}

func TestBot_Reload(t *testing.T) {
	backend := newFakeBackend()
	p := &fakePlugin{name: "echo", commands: []domain.CommandSpec{{Name: ".echo", Handler: text("old")}}}
	b := NewBot(backend, command.NewCatalog(), NewPluginLoader(p), domain.PluginConfigs{{Name: "echo"}}, Options{})

	b.LoadPlugins()
	assert.Equal(t, domain.Text("old"), b.Respond(t.Context(), "u", ".echo"))

	p.commands = []domain.CommandSpec{{Name: ".echo", Handler: text("new")}}
	require.NoError(t, b.Reload("echo"))

	assert.Equal(t, domain.Text("new"), b.Respond(t.Context(), "u", ".echo"))
	require.ErrorIs(t, b.Reload("nope"), domain.ErrUnknownPlugin)
}

func TestBot_InstancesOfSameTypeShareTable(t *testing.T) {
	catalog := command.NewCatalog()
	loader := NewPluginLoader(&fakePlugin{name: "echo", commands: []domain.CommandSpec{{Name: ".echo", Handler: echo}}})
	configs := domain.PluginConfigs{{Name: "echo"}}

	first := NewBot(newFakeBackend(), catalog, loader, configs, Options{})
	first.LoadPlugins()
	require.Len(t, first.Commands(), 1)

	second := NewBot(newFakeBackend(), catalog, loader, configs, Options{})
	assert.Empty(t, first.Commands(), "activating the scope again resets the shared table")

	second.LoadPlugins()
	assert.Len(t, first.Commands(), 1)
}
