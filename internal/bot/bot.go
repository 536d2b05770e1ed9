package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/hray3182/remindbot/internal/bot/handlers"
	"github.com/hray3182/remindbot/internal/logging"
)

// Updates is the subset of *tgbotapi.BotAPI the update loop needs.
type Updates interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type Bot struct {
	api      Updates
	handlers *handlers.Handlers
	log      zerolog.Logger
}

func New(api Updates, h *handlers.Handlers, log zerolog.Logger) *Bot {
	return &Bot{
		api:      api,
		handlers: h,
		log:      logging.Component(log, "bot"),
	}
}

// Start long-polls for updates until ctx is cancelled. Each update is handled
// on its own goroutine.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	b.log.Info().Msg("receiving updates")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().Interface("panic", r).Int("update_id", update.UpdateID).Msg("update handler panicked")
		}
	}()

	if update.CallbackQuery != nil {
		b.handlers.HandleCallbackQuery(ctx, update.CallbackQuery)
		return
	}

	if update.Message == nil || update.Message.Chat == nil {
		return
	}

	if update.Message.IsCommand() {
		b.handlers.HandleCommand(ctx, update.Message)
		return
	}

	b.handlers.HandleMessage(ctx, update.Message)
}
