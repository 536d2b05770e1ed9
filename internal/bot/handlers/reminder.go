package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hray3182/remindbot/internal/format"
	"github.com/hray3182/remindbot/internal/models"
	"github.com/hray3182/remindbot/internal/notify"
	"github.com/hray3182/remindbot/internal/reminder"
)

// DeletePrefix marks the callback data of the delete control on a creation reply.
const DeletePrefix = "delete_reminder_"

func (h *Handlers) handleCreate(ctx context.Context, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	shorthand := text
	if !reminder.LooksLikeShorthand(text) {
		out, err := h.translator.Translate(ctx, text)
		if err != nil {
			h.log.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("failed to translate message")
			h.sendMessage(ctx, msg.Chat.ID, "❌ Не удалось разобрать запрос. Попробуйте структурированный формат, см. /help")
			return
		}
		h.log.Debug().Str("text", text).Str("shorthand", out).Msg("translated message")
		shorthand = out
	}

	rule, err := h.createRule(ctx, msg.Chat.ID, shorthand)
	if err != nil {
		h.sendMessage(ctx, msg.Chat.ID, userError(err))
		return
	}

	reply := notify.Message{
		Text:     format.CreatedMessage(rule),
		Markdown: true,
		Buttons:  []notify.Button{{Text: "🗑️ Удалить", Data: DeletePrefix + rule.ID}},
	}
	if _, err := h.msgr.SendExpiring(ctx, msg.Chat.ID, reply, format.Created, h.cfg.ControlsTTL); err != nil {
		h.log.Warn().Err(err).Str("rule_id", rule.ID).Msg("failed to send creation reply")
	}
}

// createRule normalizes shorthand and stores the rule for ownerID.
func (h *Handlers) createRule(ctx context.Context, ownerID int64, shorthand string) (*models.RecurrenceRule, error) {
	rule, err := reminder.FromShorthand(h.log.WithContext(ctx), shorthand)
	if err != nil {
		h.log.Info().Err(err).Int64("owner_id", ownerID).Str("shorthand", shorthand).Msg("rejected rule")
		return nil, err
	}
	rule.ID = h.newID()
	rule.OwnerID = ownerID
	rule.CreatedAt = h.now()

	if err := h.store(ctx, func(ctx context.Context) error {
		return h.repos.Rule.Create(ctx, rule)
	}); err != nil {
		h.log.Error().Err(err).Int64("owner_id", ownerID).Msg("failed to store rule")
		return nil, err
	}

	h.log.Info().
		Str("rule_id", rule.ID).
		Int64("owner_id", ownerID).
		Str("shorthand", reminder.Shorthand(rule)).
		Msg("rule created")
	return rule, nil
}

func (h *Handlers) handleManual(ctx context.Context, msg *tgbotapi.Message) {
	if !h.isAdmin(msg.From) {
		h.sendMessage(ctx, msg.Chat.ID, "У вас нет прав для выполнения этой команды")
		return
	}

	args := strings.TrimSpace(msg.CommandArguments())
	if !strings.Contains(args, "text=") || !strings.Contains(args, "time=") {
		h.sendMessage(ctx, msg.Chat.ID, "Ошибка: необходимо указать как минимум параметры text и time")
		return
	}

	if _, err := h.createRule(ctx, msg.Chat.ID, args); err != nil {
		h.sendMessage(ctx, msg.Chat.ID, userError(err))
		return
	}
	h.sendMessage(ctx, msg.Chat.ID, format.Created)
}

func (h *Handlers) handleList(ctx context.Context, msg *tgbotapi.Message) {
	var rules []*models.RecurrenceRule
	err := h.store(ctx, func(ctx context.Context) error {
		var err error
		rules, err = h.repos.Rule.ListByOwner(ctx, msg.Chat.ID)
		return err
	})
	if err != nil {
		h.log.Error().Err(err).Int64("owner_id", msg.Chat.ID).Msg("failed to list rules")
		h.sendMessage(ctx, msg.Chat.ID, "Ошибка при получении списка уведомлений")
		return
	}
	if len(rules) == 0 {
		h.sendMessage(ctx, msg.Chat.ID, format.List(nil, h.now()))
		return
	}
	h.sendMarkdown(ctx, msg.Chat.ID, format.List(rules, h.now().In(h.cfg.Location)))
}

func (h *Handlers) handleDelete(ctx context.Context, msg *tgbotapi.Message) {
	id := strings.TrimSpace(msg.CommandArguments())
	if id == "" {
		h.sendMessage(ctx, msg.Chat.ID, "Укажите ID уведомления: /delete ID\nID можно узнать в /list")
		return
	}

	var removed bool
	err := h.store(ctx, func(ctx context.Context) error {
		var err error
		removed, err = h.repos.Rule.Delete(ctx, id, msg.Chat.ID)
		return err
	})
	switch {
	case err != nil:
		h.log.Error().Err(err).Str("rule_id", id).Msg("failed to delete rule")
		h.sendMessage(ctx, msg.Chat.ID, "❌ Ошибка при удалении уведомления")
	case removed:
		h.sendMessage(ctx, msg.Chat.ID, "✅ Уведомление успешно удалено!")
	default:
		h.sendMessage(ctx, msg.Chat.ID, "🔍 Уведомление не найдено или не принадлежит вам")
	}
}

func (h *Handlers) handleDeleteAll(ctx context.Context, msg *tgbotapi.Message) {
	var n int64
	err := h.store(ctx, func(ctx context.Context) error {
		var err error
		n, err = h.repos.Rule.DeleteAllByOwner(ctx, msg.Chat.ID)
		return err
	})
	if err != nil {
		h.log.Error().Err(err).Int64("owner_id", msg.Chat.ID).Msg("failed to delete rules")
		h.sendMessage(ctx, msg.Chat.ID, "❌ Ошибка при удалении уведомлений")
		return
	}
	h.sendMessage(ctx, msg.Chat.ID, fmt.Sprintf("🧹 Удалено %d уведомлений!", n))
}
