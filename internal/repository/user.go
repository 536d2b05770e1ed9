package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/hray3182/remindbot/internal/database"
	"github.com/hray3182/remindbot/internal/models"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// InsertOrIgnore registers the user once and reports whether a row was added.
func (r *UserRepository) InsertOrIgnore(ctx context.Context, user *models.User) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`INSERT INTO users (id, username, first_name, last_name) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO NOTHING`,
		user.UserID, user.UserName, user.FirstName, user.LastName,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n)
	return n, err
}

func (r *UserRepository) Recent(ctx context.Context, limit int) ([]*models.User, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, username, first_name, last_name, created_at FROM users ORDER BY created_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

func (r *UserRepository) All(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, username, first_name, last_name, created_at FROM users ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	return collectUsers(rows)
}

func collectUsers(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(&user.UserID, &user.UserName, &user.FirstName, &user.LastName, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}
