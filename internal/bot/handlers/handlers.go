package handlers

import (
	"context"
	"errors"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "github.com/hray3182/remindbot/internal/errors"
	"github.com/hray3182/remindbot/internal/logging"
	"github.com/hray3182/remindbot/internal/models"
	"github.com/hray3182/remindbot/internal/notify"
	"github.com/hray3182/remindbot/internal/translate"
)

// RuleStore is what the chat surface needs from the rule store.
type RuleStore interface {
	Create(ctx context.Context, rule *models.RecurrenceRule) error
	ListByOwner(ctx context.Context, ownerID int64) ([]*models.RecurrenceRule, error)
	Delete(ctx context.Context, id string, ownerID int64) (bool, error)
	DeleteAllByOwner(ctx context.Context, ownerID int64) (int64, error)
}

type UserStore interface {
	InsertOrIgnore(ctx context.Context, user *models.User) (bool, error)
	Count(ctx context.Context) (int, error)
	Recent(ctx context.Context, limit int) ([]*models.User, error)
	All(ctx context.Context) ([]*models.User, error)
}

type Repositories struct {
	Rule RuleStore
	User UserStore
}

// Messenger sends replies. *notify.Telegram implements it.
type Messenger interface {
	Send(ctx context.Context, chatID int64, msg notify.Message) (int, error)
	SendExpiring(ctx context.Context, chatID int64, msg notify.Message, collapsed string, ttl time.Duration) (int, error)
	Collapse(ctx context.Context, chatID int64, messageID int, text string) error
	Answer(ctx context.Context, callbackID, text string, alert bool) error
}

// Reviver recreates a retired rule as a one-shot.
type Reviver interface {
	Revive(ctx context.Context, ruleID string, ownerID int64) (*models.RecurrenceRule, error)
}

type Config struct {
	AdminID      int64
	Location     *time.Location
	ControlsTTL  time.Duration // how long creation controls stay visible
	StoreTimeout time.Duration
}

type Handlers struct {
	msgr       Messenger
	repos      *Repositories
	reviver    Reviver
	translator translate.Translator
	cfg        Config
	log        zerolog.Logger
	newID      func() string
	now        func() time.Time
}

func New(msgr Messenger, repos *Repositories, reviver Reviver, translator translate.Translator, cfg Config, log zerolog.Logger) *Handlers {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.ControlsTTL <= 0 {
		cfg.ControlsTTL = 10 * time.Second
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	return &Handlers{
		msgr:       msgr,
		repos:      repos,
		reviver:    reviver,
		translator: translator,
		cfg:        cfg,
		log:        logging.Component(log, "handlers"),
		newID:      uuid.NewString,
		now:        time.Now,
	}
}

func (h *Handlers) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		h.handleStart(ctx, msg)
	case "help":
		h.handleHelp(ctx, msg)
	case "list":
		h.handleList(ctx, msg)
	case "delete":
		h.handleDelete(ctx, msg)
	case "delete_all":
		h.handleDeleteAll(ctx, msg)
	case "manual":
		h.handleManual(ctx, msg)
	case "users":
		h.handleUsers(ctx, msg)
	case "notification":
		h.handleNotification(ctx, msg)
	default:
		h.sendMessage(ctx, msg.Chat.ID, "Неизвестная команда. Используйте /help для списка команд")
	}
}

// HandleMessage creates a rule from shorthand or, failing that, from free
// text run through the translator.
func (h *Handlers) HandleMessage(ctx context.Context, msg *tgbotapi.Message) {
	h.handleCreate(ctx, msg)
}

func (h *Handlers) isAdmin(from *tgbotapi.User) bool {
	return from != nil && h.cfg.AdminID != 0 && from.ID == h.cfg.AdminID
}

func (h *Handlers) sendMessage(ctx context.Context, chatID int64, text string) {
	h.send(ctx, chatID, notify.Message{Text: text})
}

func (h *Handlers) sendMarkdown(ctx context.Context, chatID int64, text string) {
	h.send(ctx, chatID, notify.Message{Text: text, Markdown: true})
}

func (h *Handlers) send(ctx context.Context, chatID int64, msg notify.Message) {
	if _, err := h.msgr.Send(ctx, chatID, msg); err != nil {
		h.log.Warn().Err(err).Int64("chat_id", chatID).Msg("failed to send reply")
	}
}

// store runs fn under the store timeout.
func (h *Handlers) store(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, h.cfg.StoreTimeout)
	defer cancel()
	return fn(ctx)
}

// userError is the text shown to the owner for err. Validation errors carry
// their own message; anything else is reported generically.
func userError(err error) string {
	var e *apperrors.Error
	if errors.As(err, &e) && (e.Code == apperrors.ErrMissingField || e.Code == apperrors.ErrInvalidValue) {
		return "❌ Ошибка: " + e.Message
	}
	return "❌ Ошибка при создании напоминания"
}

func (h *Handlers) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From != nil {
		user := &models.User{
			UserID:    msg.From.ID,
			UserName:  msg.From.UserName,
			FirstName: msg.From.FirstName,
			LastName:  msg.From.LastName,
		}
		err := h.store(ctx, func(ctx context.Context) error {
			created, err := h.repos.User.InsertOrIgnore(ctx, user)
			if created {
				h.log.Info().Int64("user_id", user.UserID).Str("username", user.UserName).Msg("user registered")
			}
			return err
		})
		if err != nil {
			h.log.Error().Err(err).Int64("user_id", user.UserID).Msg("failed to register user")
		}
	}
	h.handleHelp(ctx, msg)
}

func (h *Handlers) handleHelp(ctx context.Context, msg *tgbotapi.Message) {
	h.sendMessage(ctx, msg.Chat.ID, helpText(h.isAdmin(msg.From)))
}

func helpText(admin bool) string {
	text := `👋 Привет! Я бот для отправки уведомлений.

✅ Вы можете создать напоминание двумя способами:

1️⃣ Напишите запрос на естественном языке, например:
   - "Напомни завтра в 18:00 выгулять собаку"
   - "Напомни в 9 утра принять таблетки"
   - "Напомни мне каждый понедельник в 10:00 про планерку"
   - "Через 30 минут напомни про встречу"

2️⃣ Используйте структурированный формат:
text=Текст уведомления&time=14:00&days=пн,чт,пт&countInDays=10&everyWeek=0
`
	if admin {
		text += `
3️⃣ Команда для прямого создания без обработки текста (только для администратора):
/manual text=Митинг&time=14:00&countInDays=99999&days=вт&everyWeek=1
`
	}
	text += `
📝 Параметры структурированного формата:
- text: Текст уведомления (обязательно)
- time: Время отправки в формате ЧЧ:ММ (обязательно). Можно указать несколько значений через запятую, например: 09:00,12:30,18:00
- days: Дни недели для отправки (пн,вт,ср,чт,пт,сб,вс), если не указано - каждый день
- countInDays: Количество отправок (обязательно), для бесконечных отправок укажите 99999
- everyWeek или countInWeeks: Периодичность в неделях:
  * 0 - каждую неделю
  * 1 - через неделю
  * 2 - каждые 3 недели и т.д.

⌨️ Команды:
🔍 /help - показать эту справку
📋 /list - показать список всех ваших уведомлений
🗑️ /delete ID - удалить уведомление по ID
🧹 /delete_all - удалить все ваши уведомления
`
	if admin {
		text += `
👑 Команды администратора:
👥 /users - показать список пользователей бота
📢 /notification ТЕКСТ - отправить сообщение всем пользователям бота
📝 /manual ПАРАМЕТРЫ - создать напоминание вручную
`
	}
	return text
}
