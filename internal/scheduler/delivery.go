package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "github.com/hray3182/remindbot/internal/errors"
	"github.com/hray3182/remindbot/internal/format"
	"github.com/hray3182/remindbot/internal/logging"
	"github.com/hray3182/remindbot/internal/models"
	"github.com/hray3182/remindbot/internal/notify"
)

// Outcome is the transition a due rule went through.
type Outcome int

const (
	OutcomeFailed      Outcome = iota // delivery refused, rule untouched
	OutcomeUnbounded                  // delivered, no countdown
	OutcomeDecremented                // delivered, one fewer fire left
	OutcomeRetired                    // delivered for the last time, moved to a template
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFailed:
		return "failed"
	case OutcomeUnbounded:
		return "unbounded"
	case OutcomeDecremented:
		return "decremented"
	case OutcomeRetired:
		return "retired"
	default:
		return "unknown"
	}
}

// RecreatePrefix prefixes the callback data of the revival control.
const RecreatePrefix = "recreate_"

// Coordinator applies the per-rule state machine after a due evaluation and
// revives retired rules on request.
type Coordinator struct {
	rules        RuleStore
	templates    TemplateStore
	notifier     Notifier
	storeTimeout time.Duration
	log          zerolog.Logger

	newID func() string
	now   func() time.Time
}

func NewCoordinator(rules RuleStore, templates TemplateStore, notifier Notifier, storeTimeout time.Duration, log zerolog.Logger) *Coordinator {
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &Coordinator{
		rules:        rules,
		templates:    templates,
		notifier:     notifier,
		storeTimeout: storeTimeout,
		log:          logging.Component(log, "delivery"),
		newID:        uuid.NewString,
		now:          time.Now,
	}
}

// Deliver notifies the owner of a due rule and applies the resulting
// transition. A delivery failure leaves the rule untouched. On a store error
// the returned outcome is the transition that was attempted.
func (c *Coordinator) Deliver(ctx context.Context, rule *models.RecurrenceRule) (Outcome, error) {
	log := c.log.With().Str("rule_id", rule.ID).Int64("owner_id", rule.OwnerID).Logger()

	msg := notify.Message{Text: Decorate(rule.Message)}
	if err := c.notifier.Notify(ctx, rule.OwnerID, msg); err != nil {
		if apperrors.CodeOf(err) != apperrors.ErrDeliveryFailed {
			err = apperrors.NewDeliveryFailure(rule.OwnerID, err)
		}
		log.Warn().Err(err).Str("outcome", OutcomeFailed.String()).Msg("reminder not delivered")
		return OutcomeFailed, err
	}

	var (
		outcome Outcome
		err     error
	)
	switch {
	case rule.IsUnbounded():
		outcome = OutcomeUnbounded
	case rule.RemainingFires > 1:
		outcome = OutcomeDecremented
		err = c.store(ctx, "decrement counter", func(ctx context.Context) error {
			return c.rules.UpdateRemaining(ctx, rule.ID, rule.RemainingFires-1)
		})
	default:
		outcome = OutcomeRetired
		err = c.retire(ctx, rule, log)
	}

	if err != nil {
		log.Error().Err(err).Str("outcome", outcome.String()).Msg("reminder delivered but state not updated")
		return outcome, err
	}
	log.Info().Str("outcome", outcome.String()).Int("remaining", rule.RemainingFires).Msg("reminder delivered")
	return outcome, nil
}

// retire snapshots the rule as a template, removes it from the active set and
// tells the owner the series is over. The template is written first so a
// failed delete leaves a rule that fires again rather than one that is lost.
func (c *Coordinator) retire(ctx context.Context, rule *models.RecurrenceRule, log zerolog.Logger) error {
	tpl := rule.Template()
	tpl.CreatedAt = c.now()
	if err := c.store(ctx, "save template", func(ctx context.Context) error {
		return c.templates.Save(ctx, tpl)
	}); err != nil {
		return err
	}

	if err := c.store(ctx, "delete rule", func(ctx context.Context) error {
		_, err := c.rules.Delete(ctx, rule.ID, rule.OwnerID)
		return err
	}); err != nil {
		return err
	}

	notice := notify.Message{
		Text:     strings.TrimSpace(format.SeriesEnded),
		Markdown: true,
		Buttons:  []notify.Button{{Text: format.ReviveButton, Data: RecreatePrefix + rule.ID}},
	}
	if err := c.notifier.Notify(ctx, rule.OwnerID, notice); err != nil {
		log.Warn().Err(err).Msg("failed to send series-ended notice")
	}
	return nil
}

// Revive creates a one-shot copy of the rule retired under ruleID. It fails
// with NotFound when no template exists for that rule and owner.
func (c *Coordinator) Revive(ctx context.Context, ruleID string, ownerID int64) (*models.RecurrenceRule, error) {
	var tpl *models.ReminderTemplate
	err := c.store(ctx, "load template", func(ctx context.Context) error {
		var err error
		tpl, err = c.templates.Get(ctx, models.TemplateIDFor(ruleID), ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	rule := &models.RecurrenceRule{
		ID:             c.newID(),
		OwnerID:        ownerID,
		Message:        tpl.Message,
		Times:          append([]string(nil), tpl.Times...),
		Days:           append([]models.Weekday(nil), tpl.Days...),
		RemainingFires: 1,
		WeekStride:     tpl.WeekStride,
		CreatedAt:      c.now(),
	}
	if err := c.store(ctx, "create rule", func(ctx context.Context) error {
		return c.rules.Create(ctx, rule)
	}); err != nil {
		return nil, err
	}

	c.log.Info().
		Str("template_id", tpl.ID).
		Str("rule_id", rule.ID).
		Int64("owner_id", ownerID).
		Msg("rule revived")
	return rule, nil
}

// store runs op under the store timeout. NotFound passes through; anything
// else becomes a StoreError.
func (c *Coordinator) store(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()

	err := fn(ctx)
	switch {
	case err == nil:
		return nil
	case apperrors.CodeOf(err) == apperrors.ErrNotFound:
		return err
	default:
		return apperrors.NewStoreError(op, err)
	}
}
