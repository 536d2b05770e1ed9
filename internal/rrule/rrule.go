// Package rrule previews when a reminder fires next. The day and time part of
// a rule expands as RFC 5545 weekly recurrences; the week stride is applied on
// top by the same predicate the scheduler uses, so a preview never disagrees
// with delivery.
package rrule

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/hray3182/remindbot/internal/models"
	"github.com/hray3182/remindbot/internal/reminder"
)

// horizon bounds the search. A stride that never lines up with the week
// numbering inside a year will not line up in the next one either.
const horizon = 54 * 7 * 24 * time.Hour

var weekdays = map[models.Weekday]rrule.Weekday{
	models.Monday:    rrule.MO,
	models.Tuesday:   rrule.TU,
	models.Wednesday: rrule.WE,
	models.Thursday:  rrule.TH,
	models.Friday:    rrule.FR,
	models.Saturday:  rrule.SA,
	models.Sunday:    rrule.SU,
}

// Options returns one weekly option set per distinct fire time of the rule,
// starting at dtstart. BYHOUR and BYMINUTE expand as a cross product, which is
// why the times are not folded into a single RRULE.
func Options(rule *models.RecurrenceRule, dtstart time.Time) []rrule.ROption {
	var byday []rrule.Weekday
	for _, d := range rule.Days {
		if wd, ok := weekdays[d]; ok {
			byday = append(byday, wd)
		}
	}
	if len(byday) == 0 {
		return nil
	}

	var opts []rrule.ROption
	for _, hhmm := range rule.Times {
		hour, minute, ok := splitClock(hhmm)
		if !ok {
			continue
		}
		opts = append(opts, rrule.ROption{
			Freq:      rrule.WEEKLY,
			Dtstart:   dtstart,
			Byweekday: byday,
			Byhour:    []int{hour},
			Byminute:  []int{minute},
			Bysecond:  []int{0},
		})
	}
	return opts
}

// Describe renders the rule's day and time part as RRULE strings.
func Describe(rule *models.RecurrenceRule) []string {
	opts := Options(rule, time.Time{})
	out := make([]string, 0, len(opts))
	for i := range opts {
		s := opts[i].RRuleString()
		if rule.WeekStride > 0 {
			// The stride follows the calendar-year week number, not an RRULE
			// INTERVAL anchored at DTSTART, so it is annotated rather than encoded.
			s += ";X-WEEK-STRIDE=" + strconv.Itoa(rule.WeekStride)
		}
		out = append(out, s)
	}
	return out
}

// Next returns the first instant strictly after from at which rule is due,
// in from's location. ok is false when the rule never fires.
func Next(rule *models.RecurrenceRule, from time.Time) (time.Time, bool) {
	next := NextN(rule, from, 1)
	if len(next) == 0 {
		return time.Time{}, false
	}
	return next[0], true
}

// NextN returns up to n upcoming fire instants after from.
func NextN(rule *models.RecurrenceRule, from time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}

	start := from.Truncate(time.Minute).Add(time.Minute)
	opt, ok := expansion(rule, start)
	if !ok {
		return nil
	}
	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil
	}

	var out []time.Time
	next := r.Iterator()
	for len(out) < n {
		t, ok := next()
		if !ok {
			break
		}
		if reminder.IsDue(rule, t) {
			out = append(out, t)
		}
	}
	return out
}

// expansion folds every fire time into one weekly option bounded by horizon.
// The hour/minute cross product over-generates; candidates are filtered by
// reminder.IsDue, which also applies the week stride.
func expansion(rule *models.RecurrenceRule, start time.Time) (rrule.ROption, bool) {
	opts := Options(rule, start)
	if len(opts) == 0 {
		return rrule.ROption{}, false
	}

	hours := map[int]bool{}
	minutes := map[int]bool{}
	for _, o := range opts {
		hours[o.Byhour[0]] = true
		minutes[o.Byminute[0]] = true
	}

	opt := opts[0]
	opt.Byhour = sortedKeys(hours)
	opt.Byminute = sortedKeys(minutes)
	opt.Until = start.Add(horizon)
	return opt, true
}

func sortedKeys(m map[int]bool) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func splitClock(hhmm string) (hour, minute int, ok bool) {
	h, m, found := strings.Cut(hhmm, ":")
	if !found {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}
