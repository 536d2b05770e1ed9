package repository

import (
	"context"

	"github.com/hray3182/remindbot/internal/database"
	"github.com/hray3182/remindbot/internal/models"
)

type TemplateRepository struct {
	db *database.DB
}

func NewTemplateRepository(db *database.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Save upserts the template under its deterministic key.
func (r *TemplateRepository) Save(ctx context.Context, tpl *models.ReminderTemplate) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO reminder_templates (id, user_id, text, time, days, every_week)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   user_id = EXCLUDED.user_id, text = EXCLUDED.text, time = EXCLUDED.time,
		   days = EXCLUDED.days, every_week = EXCLUDED.every_week
		 RETURNING created_at`,
		tpl.ID, tpl.OwnerID, tpl.Message, joinTimes(tpl.Times), models.JoinWeekdays(tpl.Days), tpl.WeekStride,
	).Scan(&tpl.CreatedAt)
}

// Get loads a template owned by ownerID. A template owned by someone else is
// reported as not found.
func (r *TemplateRepository) Get(ctx context.Context, id string, ownerID int64) (*models.ReminderTemplate, error) {
	var (
		tpl   models.ReminderTemplate
		times string
		days  string
	)
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, user_id, text, time, days, every_week, created_at
		 FROM reminder_templates WHERE id = $1 AND user_id = $2`,
		id, ownerID,
	).Scan(&tpl.ID, &tpl.OwnerID, &tpl.Message, &times, &days, &tpl.WeekStride, &tpl.CreatedAt)
	if err != nil {
		return nil, notFoundOr(err, "template", id)
	}
	tpl.Times = models.SplitTimes(times)
	tpl.Days = models.SplitWeekdays(days)
	return &tpl, nil
}
