package handlers

import (
	"context"
	"errors"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	apperrors "github.com/hray3182/remindbot/internal/errors"
	"github.com/hray3182/remindbot/internal/scheduler"
)

func (h *Handlers) HandleCallbackQuery(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	owner := callbackOwner(cb)

	switch {
	case strings.HasPrefix(cb.Data, scheduler.RecreatePrefix):
		h.handleRecreate(ctx, cb, owner, strings.TrimPrefix(cb.Data, scheduler.RecreatePrefix))
	case strings.HasPrefix(cb.Data, DeletePrefix):
		h.handleDeleteButton(ctx, cb, owner, strings.TrimPrefix(cb.Data, DeletePrefix))
	default:
		h.answer(ctx, cb.ID, "", false)
	}
}

// callbackOwner is the chat the pressed message lives in, which is the owner
// of any rule it refers to.
func callbackOwner(cb *tgbotapi.CallbackQuery) int64 {
	if cb.Message != nil && cb.Message.Chat != nil {
		return cb.Message.Chat.ID
	}
	if cb.From != nil {
		return cb.From.ID
	}
	return 0
}

func (h *Handlers) handleRecreate(ctx context.Context, cb *tgbotapi.CallbackQuery, owner int64, ruleID string) {
	_, err := h.reviver.Revive(ctx, ruleID, owner)
	switch {
	case err == nil:
		h.answer(ctx, cb.ID, "✅ Уведомление успешно создано!", false)
	case errors.Is(err, apperrors.NotFound):
		h.answer(ctx, cb.ID, "Ошибка: шаблон уведомления не найден", true)
	default:
		h.log.Error().Err(err).Str("rule_id", ruleID).Int64("owner_id", owner).Msg("failed to revive rule")
		h.answer(ctx, cb.ID, "Ошибка при создании напоминания", true)
	}
}

func (h *Handlers) handleDeleteButton(ctx context.Context, cb *tgbotapi.CallbackQuery, owner int64, ruleID string) {
	var removed bool
	err := h.store(ctx, func(ctx context.Context) error {
		var err error
		removed, err = h.repos.Rule.Delete(ctx, ruleID, owner)
		return err
	})
	switch {
	case err != nil:
		h.log.Error().Err(err).Str("rule_id", ruleID).Msg("failed to delete rule")
		h.answer(ctx, cb.ID, "❌ Ошибка при удалении уведомления", true)
		return
	case !removed:
		h.answer(ctx, cb.ID, "🔍 Уведомление не найдено или не принадлежит вам", false)
		return
	}

	h.answer(ctx, cb.ID, "🗑️ Уведомление удалено", false)
	if cb.Message != nil {
		if err := h.msgr.Collapse(ctx, owner, cb.Message.MessageID, "🗑️ Уведомление удалено"); err != nil {
			h.log.Debug().Err(err).Msg("failed to collapse creation reply")
		}
	}
}

func (h *Handlers) answer(ctx context.Context, callbackID, text string, alert bool) {
	if err := h.msgr.Answer(ctx, callbackID, text, alert); err != nil {
		h.log.Warn().Err(err).Msg("failed to answer callback")
	}
}
