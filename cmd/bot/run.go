package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hray3182/remindbot/internal/bot"
	"github.com/hray3182/remindbot/internal/bot/handlers"
	"github.com/hray3182/remindbot/internal/config"
	"github.com/hray3182/remindbot/internal/logging"
	"github.com/hray3182/remindbot/internal/notify"
	"github.com/hray3182/remindbot/internal/scheduler"
	"github.com/hray3182/remindbot/internal/translate"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bot and the reminder scheduler (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), opts)
		},
	}
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load(opts)
			if err != nil {
				return err
			}
			st, err := openStores(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer st.Close()
			log.Info().Msg("schema is up to date")
			return nil
		},
	}
}

func load(opts *rootOptions) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(opts.EnvFile)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}
	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	return cfg, log, nil
}

func runBot(parent context.Context, opts *rootOptions) error {
	cfg, log, err := load(opts)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("failed to create Telegram API: %w", err)
	}
	log.Info().Str("username", api.Self.UserName).Msg("authorized on Telegram")

	tg := notify.NewTelegram(api, notify.Config{Rate: cfg.NotifyRate, Timeout: cfg.NotifyTimeout}, log)
	coordinator := scheduler.NewCoordinator(st.Rules, st.Templates, tg, cfg.StoreTimeout, log)
	sched := scheduler.New(st.Rules, coordinator, scheduler.Config{
		Location:     cfg.Location,
		Workers:      cfg.DeliveryWorkers,
		StoreTimeout: cfg.StoreTimeout,
	}, log)

	h := handlers.New(tg, &handlers.Repositories{Rule: st.Rules, User: st.Users}, coordinator, newTranslator(cfg, log), handlers.Config{
		AdminID:      cfg.AdminID,
		Location:     cfg.Location,
		ControlsTTL:  cfg.ControlsTTL,
		StoreTimeout: cfg.StoreTimeout,
	}, log)
	b := bot.New(api, h, log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Start(ctx) })
	g.Go(func() error { return b.Start(ctx) })

	err = g.Wait()
	log.Info().Msg("shutting down")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// newTranslator wires the LLM translator with the local parser behind it, or
// the local parser alone when no AI key is configured.
func newTranslator(cfg *config.Config, log zerolog.Logger) translate.Translator {
	local := translate.NewLocal(cfg.Location)
	if cfg.AIAPIKey == "" {
		log.Info().Msg("AI translator not configured, using local parser only")
		return local
	}

	var cred translate.Credential = translate.StaticCredential(cfg.AIAPIKey)
	if cfg.UsesOAuth() {
		cred = translate.NewOAuthCredential(translate.OAuthConfig{
			AuthURL: cfg.AIAuthURL,
			Key:     cfg.AIAPIKey,
			Scope:   cfg.AIScope,
		})
	}

	llm := translate.NewLLM(translate.LLMConfig{
		BaseURL:    cfg.AIBaseURL,
		Model:      cfg.AIModel,
		Credential: cred,
		Location:   cfg.Location,
	}, local, log)
	log.Info().Str("model", cfg.AIModel).Bool("oauth", cfg.UsesOAuth()).Msg("AI translator initialized")

	return &translate.Fallback{Primary: llm, Secondary: local, Log: log}
}
