package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/hray3182/remindbot/internal/errors"
)

func notFoundOr(err error, kind, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(kind, id)
	}
	return err
}

func joinTimes(times []string) string {
	return strings.Join(times, ",")
}
