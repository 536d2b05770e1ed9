package reminder

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	apperrors "github.com/hray3182/remindbot/internal/errors"
	"github.com/hray3182/remindbot/internal/models"
)

var timeRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// leadingIntRe takes a stride from its leading digits, so "2abc" reads as 2.
var leadingIntRe = regexp.MustCompile(`^[+-]?\d+`)

// strideSynonyms maps the accepted everyWeek words to a stride.
var strideSynonyms = map[string]int{
	"каждую":           0,
	"каждую неделю":    0,
	"every week":       0,
	"через":            1,
	"через неделю":     1,
	"every other week": 1,
	"две":              2,
	"two":              2,
	"каждые 2 недели":  2,
	"три":              3,
	"three":            3,
	"каждые 3 недели":  3,
}

// Normalize validates raw fields and builds a rule. ID, OwnerID and CreatedAt are
// left zero for the caller. The only side effect is a warning logged through
// zerolog.Ctx(ctx) when everyWeek is unrecognized.
func Normalize(ctx context.Context, f Fields) (*models.RecurrenceRule, error) {
	text, ok := f[KeyText]
	if !ok || strings.TrimSpace(text) == "" {
		return nil, apperrors.NewMissingField(KeyText)
	}
	rawTime, ok := f[KeyTime]
	if !ok || strings.TrimSpace(rawTime) == "" {
		return nil, apperrors.NewMissingField(KeyTime)
	}
	rawCount, ok := f[KeyCountInDays]
	if !ok || strings.TrimSpace(rawCount) == "" {
		return nil, apperrors.NewMissingField(KeyCountInDays)
	}

	times, err := ParseTimes(rawTime)
	if err != nil {
		return nil, err
	}

	days := models.AllWeekdays
	if raw, ok := f[KeyDays]; ok {
		if days, err = ParseDays(raw); err != nil {
			return nil, err
		}
	}

	count, err := parseCount(rawCount)
	if err != nil {
		return nil, err
	}

	stride := 0
	if raw, ok := f[KeyEveryWeek]; ok {
		stride, err = parseStride(ctx, KeyEveryWeek, raw)
	} else if raw, ok := f[KeyCountInWeeks]; ok {
		stride, err = parseStride(ctx, KeyCountInWeeks, raw)
	}
	if err != nil {
		return nil, err
	}

	return &models.RecurrenceRule{
		Message:        strings.TrimSpace(text),
		Times:          times,
		Days:           append([]models.Weekday(nil), days...),
		RemainingFires: count,
		WeekStride:     stride,
	}, nil
}

// FromShorthand parses and normalizes a shorthand string.
func FromShorthand(ctx context.Context, s string) (*models.RecurrenceRule, error) {
	return Normalize(ctx, ParseShorthand(s))
}

// ParseTimes parses comma-separated H:MM/HH:MM values into zero-padded,
// de-duplicated HH:MM strings in input order.
func ParseTimes(raw string) ([]string, error) {
	var times []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		m := timeRe.FindStringSubmatch(part)
		if m == nil {
			return nil, apperrors.NewInvalidValue(KeyTime, part, "expected HH:MM")
		}
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return nil, apperrors.NewInvalidValue(KeyTime, part, "out of range")
		}
		hhmm := fmt.Sprintf("%02d:%02d", hour, minute)
		if !seen[hhmm] {
			seen[hhmm] = true
			times = append(times, hhmm)
		}
	}
	if len(times) == 0 {
		return nil, apperrors.NewMissingField(KeyTime)
	}
	return times, nil
}

// ParseDays parses comma-separated weekday tags. An empty list means every day.
func ParseDays(raw string) ([]models.Weekday, error) {
	var days []models.Weekday
	seen := make(map[models.Weekday]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		day := models.Weekday(Fold(part))
		if !day.Valid() {
			return nil, apperrors.NewInvalidValue(KeyDays, part, "expected one of пн,вт,ср,чт,пт,сб,вс")
		}
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	if len(days) == 0 {
		return models.AllWeekdays, nil
	}
	return days, nil
}

func parseCount(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.NewInvalidValue(KeyCountInDays, raw, "expected an integer")
	}
	if n < 1 {
		return 0, apperrors.NewInvalidValue(KeyCountInDays, raw, "must be at least 1")
	}
	if n >= models.UnboundedFires {
		return models.UnboundedFires, nil
	}
	return n, nil
}

func parseStride(ctx context.Context, key, raw string) (int, error) {
	folded := Fold(strings.Join(strings.Fields(raw), " "))
	if n, ok := strideSynonyms[folded]; ok {
		return n, nil
	}
	n, err := strconv.Atoi(leadingIntRe.FindString(folded))
	if err != nil {
		zerolog.Ctx(ctx).Warn().
			Str("field", key).
			Str("value", raw).
			Msg("unrecognized week stride, using every week")
		return 0, nil
	}
	if n < 0 {
		return 0, apperrors.NewInvalidValue(key, raw, "must not be negative")
	}
	return n, nil
}

// Fold lower-cases s with Russian casing rules. A Caser is not safe for
// concurrent use, so one is built per call.
func Fold(s string) string {
	return cases.Lower(language.Russian).String(s)
}
