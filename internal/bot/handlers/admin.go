package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hray3182/remindbot/internal/format"
	"github.com/hray3182/remindbot/internal/models"
	"github.com/hray3182/remindbot/internal/notify"
)

const recentUsers = 10

func (h *Handlers) handleUsers(ctx context.Context, msg *tgbotapi.Message) {
	if !h.isAdmin(msg.From) {
		h.sendMessage(ctx, msg.Chat.ID, "У вас нет прав для выполнения этой команды")
		return
	}

	var (
		total  int
		recent []*models.User
	)
	err := h.store(ctx, func(ctx context.Context) error {
		var err error
		if total, err = h.repos.User.Count(ctx); err != nil {
			return err
		}
		recent, err = h.repos.User.Recent(ctx, recentUsers)
		return err
	})
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list users")
		h.sendMessage(ctx, msg.Chat.ID, "Ошибка при получении списка пользователей")
		return
	}
	h.sendMessage(ctx, msg.Chat.ID, format.Users(total, recent))
}

// handleNotification broadcasts the command argument to every known user.
// Each send goes through the shared rate limiter; failures are counted, not
// retried.
func (h *Handlers) handleNotification(ctx context.Context, msg *tgbotapi.Message) {
	if !h.isAdmin(msg.From) {
		h.sendMessage(ctx, msg.Chat.ID, "У вас нет прав для выполнения этой команды")
		return
	}

	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		h.sendMessage(ctx, msg.Chat.ID, "Укажите текст: /notification ТЕКСТ")
		return
	}

	var users []*models.User
	err := h.store(ctx, func(ctx context.Context) error {
		var err error
		users, err = h.repos.User.All(ctx)
		return err
	})
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load users for broadcast")
		h.sendMessage(ctx, msg.Chat.ID, "Ошибка при отправке уведомления")
		return
	}

	sent := 0
	for _, u := range users {
		if _, err := h.msgr.Send(ctx, u.UserID, notify.Message{Text: text}); err != nil {
			h.log.Warn().Err(err).Int64("user_id", u.UserID).Msg("broadcast delivery failed")
			continue
		}
		sent++
	}

	h.log.Info().Int("sent", sent).Int("total", len(users)).Msg("broadcast complete")
	h.sendMessage(ctx, msg.Chat.ID, fmt.Sprintf("Уведомление отправлено %d пользователям из %d", sent, len(users)))
}
