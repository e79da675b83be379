package telegram

import (
	"context"
	"errors"
	"sarah/internal/core/domain"
	"sarah/internal/core/port"
	"strings"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	args := m.Called(ctx, params)
	msg, _ := args.Get(0).(*models.Message)
	return msg, args.Error(1)
}

func (m *MockAPI) Start(ctx context.Context) {
	m.Called(ctx)
	<-ctx.Done()
}

type doneFuture struct {
	err error
}

func (f doneFuture) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (f doneFuture) Wait(context.Context) error { return f.err }

// fakeRuntime answers with a fixed reply and runs every task inline.
type fakeRuntime struct {
	reply    domain.Reply
	inputs   []string
	enqueued int
}

func (r *fakeRuntime) Respond(_ context.Context, userID, text string) domain.Reply {
	r.inputs = append(r.inputs, userID+":"+text)
	return r.reply
}

func (r *fakeRuntime) Enqueue(task port.Task) (port.Future, error) {
	r.enqueued++
	return doneFuture{err: task(context.Background())}, nil
}

func (r *fakeRuntime) RunConcurrent(task port.Task) port.Future {
	return doneFuture{err: task(context.Background())}
}

func newTestAdapter(client api, runtime port.Runtime) *Adapter {
	a := New("token", 3)
	a.backoff = time.Millisecond
	a.client = client
	a.started = time.Unix(1000, 0)
	a.Attach(runtime)

	return a
}

func makeUpdate(txt string, date int) *models.Update {
	return &models.Update{
		Message: &models.Message{
			ID:   7,
			Text: txt,
			Date: date,
			Chat: models.Chat{ID: 100},
			From: &models.User{ID: 200, Username: "bob", FirstName: "bob"},
		},
	}
}

func TestAdapter_HandleUpdate(t *testing.T) {
	tests := []struct {
		name        string
		update      *models.Update
		reply       domain.Reply
		setupMock   func(m *MockAPI)
		wantInputs  []string
		wantEnqueue int
	}{
		{
			name:   "text reply is sent to the chat",
			update: makeUpdate(".echo hi", 2000),
			reply:  domain.Text("hi"),
			setupMock: func(m *MockAPI) {
				m.On("SendMessage", mock.Anything, mock.MatchedBy(func(p *bot.SendMessageParams) bool {
					return p.ChatID == int64(100) && p.Text == "hi" && p.ReplyParameters.MessageID == 7
				})).Return(&models.Message{ID: 8}, nil).Once()
			},
			wantInputs:  []string{"200:.echo hi"},
			wantEnqueue: 1,
		},
		{
			name:   "rich reply keeps parse mode",
			update: makeUpdate(".quote", 2000),
			reply:  domain.Rich{Message: Message{Text: "*bold*", ParseMode: models.ParseModeMarkdown}},
			setupMock: func(m *MockAPI) {
				m.On("SendMessage", mock.Anything, mock.MatchedBy(func(p *bot.SendMessageParams) bool {
					return p.Text == "*bold*" && p.ParseMode == models.ParseModeMarkdown
				})).Return(&models.Message{ID: 8}, nil).Once()
			},
			wantInputs:  []string{"200:.quote"},
			wantEnqueue: 1,
		},
		{
			name:        "silent when there is no reply",
			update:      makeUpdate("hello", 2000),
			setupMock:   func(*MockAPI) {},
			wantInputs:  []string{"200:hello"},
			wantEnqueue: 0,
		},
		{
			name:        "old messages are skipped",
			update:      makeUpdate(".echo hi", 10),
			reply:       domain.Text("hi"),
			setupMock:   func(*MockAPI) {},
			wantEnqueue: 0,
		},
		{
			name: "messages from bots are skipped",
			update: &models.Update{Message: &models.Message{
				Text: ".echo hi", Date: 2000, From: &models.User{ID: 1, IsBot: true},
			}},
			reply:       domain.Text("hi"),
			setupMock:   func(*MockAPI) {},
			wantEnqueue: 0,
		},
		{
			name:        "updates without message are skipped",
			update:      &models.Update{},
			setupMock:   func(*MockAPI) {},
			wantEnqueue: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &MockAPI{}
			tt.setupMock(client)
			runtime := &fakeRuntime{reply: tt.reply}

			a := newTestAdapter(client, runtime)
			err := a.HandleUpdate(t.Context(), tt.update)

			require.NoError(t, err)
			assert.Equal(t, tt.wantInputs, runtime.inputs)
			assert.Equal(t, tt.wantEnqueue, runtime.enqueued)
			client.AssertExpectations(t)
		})
	}
}

func TestAdapter_SendChunksLongText(t *testing.T) {
	client := &MockAPI{}
	client.On("SendMessage", mock.Anything, mock.MatchedBy(func(p *bot.SendMessageParams) bool {
		return len([]rune(p.Text)) <= MessageLimit
	})).Return(&models.Message{}, nil).Twice()

	a := newTestAdapter(client, &fakeRuntime{})
	err := a.send(t.Context(), 1, 0, domain.Text(strings.Repeat("ä", MessageLimit+10)), "")

	require.NoError(t, err)
	client.AssertNumberOfCalls(t, "SendMessage", 2)
}

func TestAdapter_SendFailure(t *testing.T) {
	client := &MockAPI{}
	client.On("SendMessage", mock.Anything, mock.Anything).Return(nil, errors.New("fail")).Once()

	a := newTestAdapter(client, &fakeRuntime{})
	err := a.send(t.Context(), 1, 0, domain.Text("x"), "")

	require.ErrorIs(t, err, domain.ErrSendingReplyFailed)
}

func TestAdapter_SendNotConnected(t *testing.T) {
	a := newTestAdapter(nil, &fakeRuntime{})

	err := a.send(t.Context(), 1, 0, domain.Text("x"), "")

	require.ErrorIs(t, err, domain.ErrSendingReplyFailed)
}

func scheduled(schedule domain.Config) (domain.ScheduledCommand, bool) {
	return domain.ScheduleSpec{Name: "quote"}.Bind("quotes", domain.Config{"schedule": schedule})
}

func TestAdapter_GenerateJob(t *testing.T) {
	client := &MockAPI{}
	for _, id := range []int64{1, 2} {
		client.On("SendMessage", mock.Anything, mock.MatchedBy(func(p *bot.SendMessageParams) bool {
			return p.ChatID == id && p.Text == "q" && p.ParseMode == models.ParseModeHTML &&
				p.ReplyParameters == nil
		})).Return(&models.Message{}, nil).Once()
	}

	runtime := &fakeRuntime{}
	a := newTestAdapter(client, runtime)

	cmd, ok := scheduled(domain.Config{
		"chat_ids":       []any{1, "2"},
		"parse_mode":     "HTML",
		"scheduler_args": map[string]any{"trigger": "interval", "minutes": 1},
	})
	require.True(t, ok)

	deliver := a.GenerateJob(cmd)
	require.NotNil(t, deliver)

	deliver(t.Context(), domain.Text("q"))

	assert.Equal(t, 2, runtime.enqueued)
	client.AssertExpectations(t)
}

func TestAdapter_GenerateJobMissingTarget(t *testing.T) {
	a := newTestAdapter(&MockAPI{}, &fakeRuntime{})

	cmd, ok := scheduled(domain.Config{"scheduler_args": map[string]any{"minutes": 1}})
	require.True(t, ok)
	assert.Nil(t, a.GenerateJob(cmd))

	cmd, ok = scheduled(domain.Config{"chat_ids": []any{"not a number"}})
	require.True(t, ok)
	assert.Nil(t, a.GenerateJob(cmd))
}

func TestParseChatIDs(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		want    []int64
		wantErr bool
	}{
		{name: "nil", raw: nil},
		{name: "single id", raw: 42, want: []int64{42}},
		{name: "list of mixed types", raw: []any{int64(1), "2", 3.0}, want: []int64{1, 2, 3}},
		{name: "invalid entry", raw: []any{"x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseChatIDs(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdapter_ConnectRetries(t *testing.T) {
	client := &MockAPI{}
	client.On("Start", mock.Anything).Once()

	calls := 0
	a := newTestAdapter(nil, &fakeRuntime{})
	a.factory = func(string, ...bot.Option) (api, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("unreachable")
		}

		return client, nil
	}

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() { errCh <- a.Connect(ctx) }()

	assert.Eventually(t, func() bool {
		a.mu.RLock()
		defer a.mu.RUnlock()
		return a.client != nil
	}, time.Second, time.Millisecond)

	a.Disconnect()
	require.NoError(t, <-errCh)
	cancel()

	assert.Equal(t, 3, calls)
	client.AssertExpectations(t)
}

func TestAdapter_ConnectGivesUp(t *testing.T) {
	calls := 0
	a := newTestAdapter(nil, &fakeRuntime{})
	a.factory = func(string, ...bot.Option) (api, error) {
		calls++
		return nil, errors.New("unreachable")
	}

	err := a.Connect(t.Context())

	require.ErrorIs(t, err, domain.ErrConnectFailed)
	assert.Equal(t, 3, calls)
}
