package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hray3182/remindbot/internal/database"
	apperrors "github.com/hray3182/remindbot/internal/errors"
	"github.com/hray3182/remindbot/internal/models"
)

const reminderColumns = `id, user_id, text, time, days, count_in_days, every_week, created_at`

type ReminderRepository struct {
	db *database.DB
}

func NewReminderRepository(db *database.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) Create(ctx context.Context, rule *models.RecurrenceRule) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO reminders (id, user_id, text, time, days, count_in_days, every_week)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at`,
		rule.ID, rule.OwnerID, rule.Message, rule.TimesString(), rule.DaysString(),
		rule.RemainingFires, rule.WeekStride,
	).Scan(&rule.CreatedAt)
}

// ListAll returns every active rule; the scheduler reads it once per tick.
func (r *ReminderRepository) ListAll(ctx context.Context) ([]*models.RecurrenceRule, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+reminderColumns+` FROM reminders`)
	if err != nil {
		return nil, err
	}
	return collectRules(rows)
}

func (r *ReminderRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*models.RecurrenceRule, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE user_id = $1 ORDER BY time, created_at`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	return collectRules(rows)
}

// UpdateRemaining stores a decremented countdown.
func (r *ReminderRepository) UpdateRemaining(ctx context.Context, id string, remaining int) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET count_in_days = $1 WHERE id = $2`,
		remaining, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NewNotFound("reminder", id)
	}
	return nil
}

// Delete removes the rule if it belongs to ownerID and reports whether it did.
func (r *ReminderRepository) Delete(ctx context.Context, id string, ownerID int64) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM reminders WHERE id = $1 AND user_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ReminderRepository) DeleteAllByOwner(ctx context.Context, ownerID int64) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM reminders WHERE user_id = $1`, ownerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanRule(row pgx.Row) (*models.RecurrenceRule, error) {
	var (
		rule  models.RecurrenceRule
		times string
		days  string
	)
	if err := row.Scan(&rule.ID, &rule.OwnerID, &rule.Message, &times, &days,
		&rule.RemainingFires, &rule.WeekStride, &rule.CreatedAt); err != nil {
		return nil, err
	}
	rule.Times = models.SplitTimes(times)
	rule.Days = models.SplitWeekdays(days)
	return &rule, nil
}

func collectRules(rows pgx.Rows) ([]*models.RecurrenceRule, error) {
	defer rows.Close()

	var rules []*models.RecurrenceRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}
