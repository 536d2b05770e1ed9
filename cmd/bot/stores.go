package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hray3182/remindbot/internal/bot/handlers"
	"github.com/hray3182/remindbot/internal/config"
	"github.com/hray3182/remindbot/internal/database"
	"github.com/hray3182/remindbot/internal/repository"
	"github.com/hray3182/remindbot/internal/repository/sqlite"
	"github.com/hray3182/remindbot/internal/scheduler"
)

// ruleStore is the union of what the scheduler and the chat surface need.
type ruleStore interface {
	scheduler.RuleStore
	handlers.RuleStore
}

type stores struct {
	Rules     ruleStore
	Templates scheduler.TemplateStore
	Users     handlers.UserStore
	close     func()
}

func (s *stores) Close() { s.close() }

// openStores connects the backend selected by DATABASE_URI and brings its
// schema up to date.
func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	backend, err := cfg.Backend()
	if err != nil {
		return nil, err
	}

	switch backend {
	case config.BackendPostgres:
		db, err := database.New(ctx, cfg.DatabaseURI, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info().Str("backend", string(backend)).Msg("connected to database")
		return &stores{
			Rules:     repository.NewReminderRepository(db),
			Templates: repository.NewTemplateRepository(db),
			Users:     repository.NewUserRepository(db),
			close:     db.Close,
		}, nil

	default:
		path := cfg.SQLitePath()
		db, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		log.Info().Str("backend", string(backend)).Str("path", path).Msg("opened database")
		return &stores{
			Rules:     sqlite.NewReminderRepository(db),
			Templates: sqlite.NewTemplateRepository(db),
			Users:     sqlite.NewUserRepository(db),
			close: func() {
				if err := db.Close(); err != nil {
					log.Warn().Err(err).Msg("failed to close database")
				}
			},
		}, nil
	}
}
