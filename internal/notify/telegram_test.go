package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/hray3182/remindbot/internal/errors"
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	sendErr  error
	block    chan struct{}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func newTestNotifier(api API) *Telegram {
	return NewTelegram(api, Config{Rate: 1000, Timeout: time.Second}, zerolog.Nop())
}

func TestSend_PlainText(t *testing.T) {
	api := &fakeAPI{}
	n := newTestNotifier(api)

	id, err := n.Send(context.Background(), 42, Message{Text: "hi *there*"})
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	require.Len(t, api.sent, 1)
	msg := api.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, int64(42), msg.ChatID)
	assert.Equal(t, "hi *there*", msg.Text)
	assert.Empty(t, msg.Entities)
	assert.Nil(t, msg.ReplyMarkup)
}

func TestSend_MarkdownAndButtons(t *testing.T) {
	api := &fakeAPI{}
	n := newTestNotifier(api)

	_, err := n.Send(context.Background(), 42, Message{
		Text:     "hi *there*",
		Markdown: true,
		Buttons:  []Button{{Text: "again", Data: "recreate_r1"}},
	})
	require.NoError(t, err)

	msg := api.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, "hi there", msg.Text)
	assert.Equal(t, []tgbotapi.MessageEntity{{Type: "bold", Offset: 3, Length: 5}}, msg.Entities)

	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, markup.InlineKeyboard, 1)
	assert.Equal(t, "again", markup.InlineKeyboard[0][0].Text)
	assert.Equal(t, "recreate_r1", *markup.InlineKeyboard[0][0].CallbackData)
}

func TestSend_FailureIsDeliveryFailed(t *testing.T) {
	api := &fakeAPI{sendErr: errors.New("Forbidden: bot was blocked by the user")}
	n := newTestNotifier(api)

	err := n.Notify(context.Background(), 42, Message{Text: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.DeliveryFailed))
}

func TestSend_Timeout(t *testing.T) {
	api := &fakeAPI{block: make(chan struct{})}
	defer close(api.block)
	n := NewTelegram(api, Config{Rate: 1000, Timeout: 20 * time.Millisecond}, zerolog.Nop())

	err := n.Notify(context.Background(), 42, Message{Text: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.DeliveryFailed))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestSendExpiring_CollapsesAfterTTL(t *testing.T) {
	api := &fakeAPI{}
	n := newTestNotifier(api)

	var (
		gotTTL time.Duration
		fire   func()
	)
	n.after = func(d time.Duration, f func()) *time.Timer {
		gotTTL, fire = d, f
		return nil
	}

	id, err := n.SendExpiring(context.Background(), 42, Message{
		Text:    "created\n\ndetails",
		Buttons: []Button{{Text: "delete", Data: "delete_reminder_r1"}},
	}, "created", 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, gotTTL)
	require.NotNil(t, fire)
	assert.Empty(t, api.requests)

	fire()

	require.Len(t, api.requests, 1)
	edit := api.requests[0].(tgbotapi.EditMessageTextConfig)
	assert.Equal(t, int64(42), edit.ChatID)
	assert.Equal(t, id, edit.MessageID)
	assert.Equal(t, "created", edit.Text)
	assert.Nil(t, edit.ReplyMarkup)
}

func TestAnswer(t *testing.T) {
	api := &fakeAPI{}
	n := newTestNotifier(api)

	require.NoError(t, n.Answer(context.Background(), "cb1", "not found", true))

	cb := api.requests[0].(tgbotapi.CallbackConfig)
	assert.Equal(t, "cb1", cb.CallbackQueryID)
	assert.Equal(t, "not found", cb.Text)
	assert.True(t, cb.ShowAlert)
}
