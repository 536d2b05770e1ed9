package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/hray3182/remindbot/internal/errors"
	"github.com/hray3182/remindbot/internal/logging"
	"github.com/hray3182/remindbot/internal/models"
	"github.com/hray3182/remindbot/internal/reminder"
)

// Cadence is the tick schedule: every minute, on the minute.
const Cadence = "* * * * *"

// Config holds the scheduler settings.
type Config struct {
	Location     *time.Location // civil time for due evaluation
	Workers      int            // concurrent deliveries per tick
	StoreTimeout time.Duration  // bound on listing the active set
}

// TickReport summarizes one tick.
type TickReport struct {
	At        time.Time
	Due       int
	Delivered int
	Failed    int
	Errors    int
	Err       error // set when the active set could not be read
}

// Scheduler drives the due evaluation once a minute.
type Scheduler struct {
	rules       RuleStore
	coordinator *Coordinator
	cfg         Config
	log         zerolog.Logger
	now         func() time.Time
}

func New(rules RuleStore, coordinator *Coordinator, cfg Config, log zerolog.Logger) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 8
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	return &Scheduler{
		rules:       rules,
		coordinator: coordinator,
		cfg:         cfg,
		log:         logging.Component(log, "scheduler"),
		now:         time.Now,
	}
}

// Start runs ticks until ctx is cancelled. A tick still running when the
// next one is due causes that next one to be skipped, so ticks never overlap.
func (s *Scheduler) Start(ctx context.Context) error {
	c, err := newCron(Cadence, s.cfg.Location, s.log, func() {
		s.Tick(ctx, s.now())
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("location", s.cfg.Location.String()).Int("workers", s.cfg.Workers).Msg("scheduler started")
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
	return nil
}

// newCron registers job under cadence on a cron evaluating in loc. A panic in
// job is logged and recovered; a run that is due while the previous one is
// still going is skipped.
func newCron(cadence string, loc *time.Location, log zerolog.Logger, job func()) (*cron.Cron, error) {
	logger := cronLogger{log: log}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(cadence, job); err != nil {
		return nil, fmt.Errorf("invalid cadence %q: %w", cadence, err)
	}
	return c, nil
}

// Tick evaluates the active set at now and delivers every due rule. now is
// captured once by the caller; rules are processed concurrently and one
// rule's failure never stops the others.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) TickReport {
	now = now.In(s.cfg.Location)
	report := TickReport{At: now}

	rules, err := s.listAll(ctx)
	if err != nil {
		report.Err = err
		s.log.Error().Err(err).Time("at", now).Msg("failed to read active rules, skipping tick")
		return report
	}

	due := reminder.DueSet(now, rules)
	report.Due = len(due)
	if len(due) == 0 {
		return report
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.cfg.Workers)
	for _, rule := range due {
		g.Go(func() error {
			outcome, err := s.coordinator.Deliver(ctx, rule)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case outcome == OutcomeFailed:
				report.Failed++
			case err != nil:
				report.Errors++
			default:
				report.Delivered++
			}
			return nil
		})
	}
	_ = g.Wait()

	s.log.Debug().
		Time("at", now).
		Int("due", report.Due).
		Int("delivered", report.Delivered).
		Int("failed", report.Failed).
		Int("errors", report.Errors).
		Msg("tick complete")
	return report
}

func (s *Scheduler) listAll(ctx context.Context) ([]*models.RecurrenceRule, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	rules, err := s.rules.ListAll(ctx)
	if err != nil {
		return nil, apperrors.NewStoreError("list rules", err)
	}
	return rules, nil
}

// cronLogger routes cron's own logging through zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
