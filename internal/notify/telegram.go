// Package notify delivers owner-facing messages over Telegram. Every send is
// paced by a shared token bucket and bounded by a timeout, so one slow
// recipient cannot hold up the rest of a scheduler tick.
package notify

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	apperrors "github.com/hray3182/remindbot/internal/errors"
	"github.com/hray3182/remindbot/internal/format"
	"github.com/hray3182/remindbot/internal/logging"
)

// Button is an inline control carrying callback data.
type Button struct {
	Text string
	Data string
}

// Message is what gets delivered to a chat.
type Message struct {
	Text     string
	Markdown bool // legacy Telegram markup: *bold*, _italic_, `code`
	Buttons  []Button
}

// API is the subset of *tgbotapi.BotAPI the notifier needs.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Config tunes pacing and timeouts.
type Config struct {
	Rate    float64       // messages per second across all chats
	Timeout time.Duration // per send, including the wait for a token
}

// Telegram is the notification capability backed by the Bot API.
type Telegram struct {
	api     API
	limiter *rate.Limiter
	timeout time.Duration
	log     zerolog.Logger
	after   func(time.Duration, func()) *time.Timer
}

func NewTelegram(api API, cfg Config, log zerolog.Logger) *Telegram {
	if cfg.Rate <= 0 {
		cfg.Rate = 25
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	burst := int(cfg.Rate)
	if burst < 1 {
		burst = 1
	}
	return &Telegram{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), burst),
		timeout: cfg.Timeout,
		log:     logging.Component(log, "notify"),
		after:   time.AfterFunc,
	}
}

// Notify delivers msg and reports only whether it was accepted.
func (t *Telegram) Notify(ctx context.Context, recipient int64, msg Message) error {
	_, err := t.Send(ctx, recipient, msg)
	return err
}

// Send delivers msg and returns the Telegram message id. Failures are
// DeliveryFailed errors.
func (t *Telegram) Send(ctx context.Context, chatID int64, msg Message) (int, error) {
	out := tgbotapi.NewMessage(chatID, msg.Text)
	if msg.Markdown {
		parsed := format.ParseMarkdown(msg.Text)
		out.Text = parsed.Text
		out.Entities = parsed.Entities
	}
	if len(msg.Buttons) > 0 {
		out.ReplyMarkup = keyboard(msg.Buttons)
	}

	sent, err := t.do(ctx, out)
	if err != nil {
		return 0, apperrors.NewDeliveryFailure(chatID, err)
	}
	return sent.MessageID, nil
}

// SendExpiring delivers msg and, after ttl, edits it down to collapsed,
// which also drops its buttons. The edit runs on its own timer, detached
// from ctx, and a failed edit is only logged.
func (t *Telegram) SendExpiring(ctx context.Context, chatID int64, msg Message, collapsed string, ttl time.Duration) (int, error) {
	id, err := t.Send(ctx, chatID, msg)
	if err != nil {
		return 0, err
	}

	t.after(ttl, func() {
		if err := t.Collapse(context.Background(), chatID, id, collapsed); err != nil {
			t.log.Debug().Err(err).Int64("chat_id", chatID).Int("message_id", id).Msg("failed to collapse message")
		}
	})
	return id, nil
}

// Collapse replaces a message's text with plain text and removes its buttons.
func (t *Telegram) Collapse(ctx context.Context, chatID int64, messageID int, text string) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	_, err := t.request(ctx, edit)
	return err
}

// Answer acknowledges a callback query, optionally as an alert.
func (t *Telegram) Answer(ctx context.Context, callbackID, text string, alert bool) error {
	cb := tgbotapi.NewCallback(callbackID, text)
	cb.ShowAlert = alert
	_, err := t.request(ctx, cb)
	return err
}

func (t *Telegram) do(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	return bounded(ctx, t, func() (tgbotapi.Message, error) { return t.api.Send(c) })
}

func (t *Telegram) request(ctx context.Context, c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return bounded(ctx, t, func() (*tgbotapi.APIResponse, error) { return t.api.Request(c) })
}

// bounded waits for a rate token and runs call under the send timeout. The Bot
// API client takes no context, so a call that outlives the timeout is
// abandoned rather than cancelled.
func bounded[T any](ctx context.Context, t *Telegram, call func() (T, error)) (T, error) {
	var zero T
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if err := t.limiter.Wait(ctx); err != nil {
		return zero, err
	}

	var (
		v   T
		err error
	)
	done := make(chan struct{})
	go func() {
		v, err = call()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-done:
		return v, err
	}
}

func keyboard(buttons []Button) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
