package telegram

import (
	"context"
	"errors"
	"fmt"
	"sarah/internal/core/domain"
	"sarah/internal/core/port"
	"strconv"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"
)

const (
	Scope = "telegram"

	// MessageLimit is the maximum length of a Telegram text message in characters.
	MessageLimit = 4096

	DefaultReconnectAttempts = 5

	chatIDsKey   = "chat_ids"
	parseModeKey = "parse_mode"
)

var errNotConnected = errors.New("telegram client not connected")

//go:generate mockery --name api

type api interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	Start(ctx context.Context)
}

type clientFactory func(token string, opts ...bot.Option) (api, error)

func newClient(token string, opts ...bot.Option) (api, error) {
	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, err
	}

	return b, nil
}

// Message is a Telegram formatted text. It can be returned by handlers as domain.Rich.
type Message struct {
	Text      string
	ParseMode models.ParseMode
}

func (m Message) String() string { return m.Text }

// Adapter connects a bot instance to the Telegram Bot API using long polling.
type Adapter struct {
	token    string
	attempts int
	backoff  time.Duration
	started  time.Time
	factory  clientFactory

	mu      sync.RWMutex
	client  api
	runtime port.Runtime
	cancel  context.CancelFunc
}

func New(token string, attempts int) *Adapter {
	if attempts <= 0 {
		attempts = DefaultReconnectAttempts
	}

	return &Adapter{
		token:    token,
		attempts: attempts,
		backoff:  time.Second,
		started:  time.Now().Truncate(time.Second),
		factory:  newClient,
	}
}

func (a *Adapter) Scope() string {
	return Scope
}

func (a *Adapter) Attach(runtime port.Runtime) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.runtime = runtime
}

// Connect creates the client, retrying with a linear backoff, and polls for updates until
// ctx is done or Disconnect is called.
func (a *Adapter) Connect(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()

	client, err := a.connect(ctx)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.client = client
	a.mu.Unlock()

	log.Info().Msg("connected to telegram, polling for updates")
	client.Start(ctx)
	log.Info().Msg("stopped polling telegram")

	return nil
}

func (a *Adapter) connect(ctx context.Context) (api, error) {
	var lastErr error

	for attempt := 1; attempt <= a.attempts; attempt++ {
		client, err := a.factory(a.token, bot.WithDefaultHandler(a.handle))
		if err == nil {
			return client, nil
		}

		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Int("max", a.attempts).Msg("failed to connect to telegram")

		if attempt == a.attempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", domain.ErrConnectFailed, ctx.Err())
		case <-time.After(time.Duration(attempt) * a.backoff):
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", domain.ErrConnectFailed, a.attempts, lastErr)
}

func (a *Adapter) Disconnect() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

func (a *Adapter) handle(_ context.Context, _ *bot.Bot, update *models.Update) {
	a.mu.RLock()
	runtime := a.runtime
	a.mu.RUnlock()

	runtime.RunConcurrent(func(ctx context.Context) error {
		err := a.HandleUpdate(ctx, update)
		if err != nil {
			log.Err(err).Msg("failed to handle update")
		}

		return err
	})
}

// HandleUpdate answers a single update. Messages from bots and messages sent before the
// adapter was created are ignored.
func (a *Adapter) HandleUpdate(ctx context.Context, update *models.Update) error {
	if update == nil || update.Message == nil {
		return nil
	}

	msg := update.Message
	if msg.From == nil || msg.From.IsBot {
		return nil
	}

	if time.Unix(int64(msg.Date), 0).Before(a.started) {
		log.Debug().Int("message", msg.ID).Msg("skipping message sent before startup")
		return nil
	}

	a.mu.RLock()
	runtime := a.runtime
	a.mu.RUnlock()

	userID := strconv.FormatInt(msg.From.ID, 10)
	log.Debug().Str("user", userID).Str("message", msg.Text).Msg("received message")

	reply := runtime.Respond(ctx, userID, msg.Text)
	if reply == nil {
		return nil
	}

	chatID, messageID := msg.Chat.ID, msg.ID

	_, err := runtime.Enqueue(func(ctx context.Context) error {
		return a.send(ctx, chatID, messageID, reply, "")
	})

	return err
}

// GenerateJob delivers the reply of a scheduled job to every chat listed under chat_ids.
func (a *Adapter) GenerateJob(cmd domain.ScheduledCommand) port.Delivery {
	cfg := cmd.DeliveryConfig()

	chatIDs, err := parseChatIDs(cfg[chatIDsKey])
	if err != nil {
		log.Warn().Err(err).Str("job", cmd.JobID()).Msg("invalid chat_ids")
		return nil
	}

	if len(chatIDs) == 0 {
		return nil
	}

	parseMode := models.ParseMode(cast.ToString(cfg[parseModeKey]))

	return func(_ context.Context, reply domain.Reply) {
		a.mu.RLock()
		runtime := a.runtime
		a.mu.RUnlock()

		for _, chatID := range chatIDs {
			_, err := runtime.Enqueue(func(ctx context.Context) error {
				return a.send(ctx, chatID, 0, reply, parseMode)
			})
			if err != nil {
				log.Err(err).Str("job", cmd.JobID()).Int64("chatID", chatID).Msg("failed to enqueue scheduled reply")
			}
		}
	}
}

func parseChatIDs(raw any) ([]int64, error) {
	if raw == nil {
		return nil, nil
	}

	values, err := cast.ToSliceE(raw)
	if err != nil {
		id, idErr := cast.ToInt64E(raw)
		if idErr != nil {
			return nil, err
		}

		return []int64{id}, nil
	}

	ids := make([]int64, 0, len(values))
	for _, v := range values {
		id, err := cast.ToInt64E(v)
		if err != nil {
			return nil, fmt.Errorf("chat id %v: %w", v, err)
		}

		ids = append(ids, id)
	}

	return ids, nil
}

func (a *Adapter) send(ctx context.Context, chatID int64, replyTo int, reply domain.Reply,
	parseMode models.ParseMode) error {
	a.mu.RLock()
	client := a.client
	a.mu.RUnlock()

	if client == nil {
		return fmt.Errorf("%w: %w", domain.ErrSendingReplyFailed, errNotConnected)
	}

	text := reply.String()
	if r, ok := reply.(domain.Rich); ok {
		if m, ok := r.Message.(Message); ok && m.ParseMode != "" {
			parseMode = m.ParseMode
		}
	}

	for _, chunk := range chunk(text, MessageLimit) {
		params := &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      chunk,
			ParseMode: parseMode,
		}

		if replyTo != 0 {
			params.ReplyParameters = &models.ReplyParameters{
				MessageID: replyTo,
				ChatID:    chatID,
			}
		}

		_, err := client.SendMessage(ctx, params)
		if err != nil {
			log.Error().Err(err).Int64("chatID", chatID).Msg("failed to send message")
			return fmt.Errorf("%w: %w", domain.ErrSendingReplyFailed, err)
		}
	}

	return nil
}

func chunk(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	var chunks []string
	for len(runes) > 0 {
		n := min(limit, len(runes))
		chunks = append(chunks, string(runes[:n]))
		runes = runes[n:]
	}

	return chunks
}
