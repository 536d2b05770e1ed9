// Package sqlite stores reminders in an embedded SQLite file. It mirrors the
// Postgres repositories method for method and is used for single-host
// deployments and store tests.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	apperrors "github.com/hray3182/remindbot/internal/errors"
	"github.com/hray3182/remindbot/internal/models"
)

//go:embed schema.sql
var schema string

// DB is an open SQLite database with the reminder schema applied.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Open opens (creating if needed) the database file at path and applies the schema.
func Open(ctx context.Context, path string) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	file, _, _ := strings.Cut(path, "?")
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite prefers a single writer.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	db := &DB{conn: conn, now: time.Now}
	if err := db.Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

const pragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

// dsn appends the connection pragmas to path, keeping any query it already has.
func dsn(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + pragmas
	}
	return path + "?" + pragmas
}

// Migrate applies the idempotent schema.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) stamp(t time.Time) int64 {
	if t.IsZero() {
		t = db.now()
	}
	return t.UnixMilli()
}

// ==================== Reminders ====================

const reminderColumns = `id, user_id, text, time, days, count_in_days, every_week, created_at`

type ReminderRepository struct {
	db *DB
}

func NewReminderRepository(db *DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) Create(ctx context.Context, rule *models.RecurrenceRule) error {
	created := r.db.stamp(rule.CreatedAt)
	_, err := r.db.conn.ExecContext(ctx,
		`INSERT INTO reminders (id, user_id, text, time, days, count_in_days, every_week, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, rule.OwnerID, rule.Message, rule.TimesString(), rule.DaysString(),
		rule.RemainingFires, rule.WeekStride, created,
	)
	if err != nil {
		return err
	}
	rule.CreatedAt = time.UnixMilli(created)
	return nil
}

func (r *ReminderRepository) ListAll(ctx context.Context) ([]*models.RecurrenceRule, error) {
	rows, err := r.db.conn.QueryContext(ctx, `SELECT `+reminderColumns+` FROM reminders`)
	if err != nil {
		return nil, err
	}
	return collectRules(rows)
}

func (r *ReminderRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*models.RecurrenceRule, error) {
	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE user_id = ? ORDER BY time, created_at`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	return collectRules(rows)
}

func (r *ReminderRepository) UpdateRemaining(ctx context.Context, id string, remaining int) error {
	res, err := r.db.conn.ExecContext(ctx,
		`UPDATE reminders SET count_in_days = ? WHERE id = ?`,
		remaining, id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.NewNotFound("reminder", id)
	}
	return nil
}

func (r *ReminderRepository) Delete(ctx context.Context, id string, ownerID int64) (bool, error) {
	res, err := r.db.conn.ExecContext(ctx,
		`DELETE FROM reminders WHERE id = ? AND user_id = ?`,
		id, ownerID,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *ReminderRepository) DeleteAllByOwner(ctx context.Context, ownerID int64) (int64, error) {
	res, err := r.db.conn.ExecContext(ctx, `DELETE FROM reminders WHERE user_id = ?`, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRule(row scanner) (*models.RecurrenceRule, error) {
	var (
		rule    models.RecurrenceRule
		times   string
		days    string
		created int64
	)
	if err := row.Scan(&rule.ID, &rule.OwnerID, &rule.Message, &times, &days,
		&rule.RemainingFires, &rule.WeekStride, &created); err != nil {
		return nil, err
	}
	rule.Times = models.SplitTimes(times)
	rule.Days = models.SplitWeekdays(days)
	rule.CreatedAt = time.UnixMilli(created)
	return &rule, nil
}

func collectRules(rows *sql.Rows) ([]*models.RecurrenceRule, error) {
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

// ==================== Templates ====================

type TemplateRepository struct {
	db *DB
}

func NewTemplateRepository(db *DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

func (r *TemplateRepository) Save(ctx context.Context, tpl *models.ReminderTemplate) error {
	created := r.db.stamp(tpl.CreatedAt)
	_, err := r.db.conn.ExecContext(ctx,
		`INSERT INTO reminder_templates (id, user_id, text, time, days, every_week, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   user_id = excluded.user_id, text = excluded.text, time = excluded.time,
		   days = excluded.days, every_week = excluded.every_week`,
		tpl.ID, tpl.OwnerID, tpl.Message, strings.Join(tpl.Times, ","), models.JoinWeekdays(tpl.Days),
		tpl.WeekStride, created,
	)
	if err != nil {
		return err
	}
	tpl.CreatedAt = time.UnixMilli(created)
	return nil
}

func (r *TemplateRepository) Get(ctx context.Context, id string, ownerID int64) (*models.ReminderTemplate, error) {
	var (
		tpl     models.ReminderTemplate
		times   string
		days    string
		created int64
	)
	err := r.db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, text, time, days, every_week, created_at
		 FROM reminder_templates WHERE id = ? AND user_id = ?`,
		id, ownerID,
	).Scan(&tpl.ID, &tpl.OwnerID, &tpl.Message, &times, &days, &tpl.WeekStride, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("template", id)
	}
	if err != nil {
		return nil, err
	}
	tpl.Times = models.SplitTimes(times)
	tpl.Days = models.SplitWeekdays(days)
	tpl.CreatedAt = time.UnixMilli(created)
	return &tpl, nil
}

// ==================== Users ====================

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) InsertOrIgnore(ctx context.Context, user *models.User) (bool, error) {
	res, err := r.db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO users (id, username, first_name, last_name, created_at) VALUES (?, ?, ?, ?, ?)`,
		user.UserID, user.UserName, user.FirstName, user.LastName, r.db.stamp(user.CreatedAt),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (r *UserRepository) Recent(ctx context.Context, limit int) ([]*models.User, error) {
	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT id, username, first_name, last_name, created_at FROM users ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

func (r *UserRepository) All(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.conn.QueryContext(ctx,
		`SELECT id, username, first_name, last_name, created_at FROM users ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

func collectUsers(rows *sql.Rows) ([]*models.User, error) {
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var (
			user    models.User
			created int64
		)
		if err := rows.Scan(&user.UserID, &user.UserName, &user.FirstName, &user.LastName, &created); err != nil {
			return nil, err
		}
		user.CreatedAt = time.UnixMilli(created)
		users = append(users, &user)
	}
	return users, rows.Err()
}
