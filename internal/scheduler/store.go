package scheduler

import (
	"context"

	"github.com/hray3182/remindbot/internal/models"
	"github.com/hray3182/remindbot/internal/notify"
)

// RuleStore is the active rule set. Both the Postgres and SQLite
// repositories satisfy it.
type RuleStore interface {
	ListAll(ctx context.Context) ([]*models.RecurrenceRule, error)
	Create(ctx context.Context, rule *models.RecurrenceRule) error
	UpdateRemaining(ctx context.Context, id string, remaining int) error
	Delete(ctx context.Context, id string, ownerID int64) (bool, error)
}

// TemplateStore keeps the snapshots of retired rules.
type TemplateStore interface {
	Save(ctx context.Context, tpl *models.ReminderTemplate) error
	Get(ctx context.Context, id string, ownerID int64) (*models.ReminderTemplate, error)
}

// Notifier delivers a message to a rule's owner.
type Notifier interface {
	Notify(ctx context.Context, recipient int64, msg notify.Message) error
}
