package reminder

import (
	"math"
	"slices"
	"time"

	"github.com/hray3182/remindbot/internal/models"
)

// WeekNumber numbers weeks from January 1 of t's year: the days elapsed since
// Jan 1 00:00 (fractional, in t's location) plus Jan 1's weekday offset
// (Sunday = 0) plus one, divided by seven and rounded up. It is not ISO 8601
// and restarts every year, so a rule with a week stride may skip or repeat a
// week around New Year.
func WeekNumber(t time.Time) int {
	jan1 := time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
	elapsed := t.Sub(jan1).Hours() / 24
	return int(math.Ceil((elapsed + float64(jan1.Weekday()) + 1) / 7))
}

// Instant is "now" reduced to the three keys a rule is matched on.
type Instant struct {
	Time string // HH:MM
	Day  models.Weekday
	Week int
}

// At captures the matching keys of now, truncated to the minute.
func At(now time.Time) Instant {
	now = now.Truncate(time.Minute)
	return Instant{
		Time: now.Format("15:04"),
		Day:  models.WeekdayOf(now.Weekday()),
		Week: WeekNumber(now),
	}
}

// Matches reports whether rule is due at i.
func (i Instant) Matches(rule *models.RecurrenceRule) bool {
	if !slices.Contains(rule.Times, i.Time) {
		return false
	}
	if !slices.Contains(rule.Days, i.Day) {
		return false
	}
	return rule.WeekStride <= 0 || i.Week%(rule.WeekStride+1) == 0
}

// IsDue reports whether rule fires at now.
func IsDue(rule *models.RecurrenceRule, now time.Time) bool {
	return At(now).Matches(rule)
}

// DueSet returns the rules due at now, in input order, each at most once.
func DueSet(now time.Time, rules []*models.RecurrenceRule) []*models.RecurrenceRule {
	at := At(now)
	seen := make(map[string]bool)
	var due []*models.RecurrenceRule
	for _, rule := range rules {
		if rule == nil || seen[rule.ID] {
			continue
		}
		if at.Matches(rule) {
			seen[rule.ID] = true
			due = append(due, rule)
		}
	}
	return due
}
