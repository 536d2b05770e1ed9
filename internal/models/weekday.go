package models

import (
	"strings"
	"time"
)

// Weekday is a two-letter Russian day tag as used in the shorthand.
type Weekday string

const (
	Monday    Weekday = "пн"
	Tuesday   Weekday = "вт"
	Wednesday Weekday = "ср"
	Thursday  Weekday = "чт"
	Friday    Weekday = "пт"
	Saturday  Weekday = "сб"
	Sunday    Weekday = "вс"
)

// AllWeekdays lists the tags Monday first, the order used for display and defaults.
var AllWeekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var byTimeWeekday = map[time.Weekday]Weekday{
	time.Sunday:    Sunday,
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
}

// WeekdayOf maps a time.Weekday to its tag.
func WeekdayOf(d time.Weekday) Weekday {
	return byTimeWeekday[d]
}

// TimeWeekday maps a tag back to time.Weekday.
func (w Weekday) TimeWeekday() (time.Weekday, bool) {
	for tw, tag := range byTimeWeekday {
		if tag == w {
			return tw, true
		}
	}
	return 0, false
}

// Valid reports whether w is one of the seven tags.
func (w Weekday) Valid() bool {
	_, ok := w.TimeWeekday()
	return ok
}

// JoinWeekdays renders tags comma-joined.
func JoinWeekdays(days []Weekday) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = string(d)
	}
	return strings.Join(parts, ",")
}

// SplitWeekdays parses a persisted comma-joined days column. Unknown tags are kept
// so that a corrupted row never matches rather than silently matching everything.
func SplitWeekdays(s string) []Weekday {
	var days []Weekday
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			days = append(days, Weekday(part))
		}
	}
	return days
}

// IsEveryDay reports whether days covers the whole week.
func IsEveryDay(days []Weekday) bool {
	seen := make(map[Weekday]bool, len(days))
	for _, d := range days {
		seen[d] = true
	}
	for _, d := range AllWeekdays {
		if !seen[d] {
			return false
		}
	}
	return true
}
