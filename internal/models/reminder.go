package models

import (
	"strings"
	"time"
)

// UnboundedFires is the RemainingFires sentinel for a rule that never runs out.
const UnboundedFires = 99999

// TemplatePrefix prefixes the template key derived from a retired rule's id.
const TemplatePrefix = "template_"

// RecurrenceRule is a persisted reminder schedule.
type RecurrenceRule struct {
	ID             string    `json:"id"`
	OwnerID        int64     `json:"user_id"`
	Message        string    `json:"text"`
	Times          []string  `json:"time"` // HH:MM, 24h, distinct
	Days           []Weekday `json:"days"`
	RemainingFires int       `json:"count_in_days"`
	WeekStride     int       `json:"every_week"`
	CreatedAt      time.Time `json:"created_at"`
}

// IsUnbounded returns true if the rule has no countdown.
func (r *RecurrenceRule) IsUnbounded() bool {
	return r.RemainingFires == UnboundedFires
}

// TemplateID returns the deterministic template key for this rule.
func (r *RecurrenceRule) TemplateID() string {
	return TemplateIDFor(r.ID)
}

// TemplateIDFor returns the template key for a rule id.
func TemplateIDFor(ruleID string) string {
	return TemplatePrefix + ruleID
}

// Template mirrors the rule into a ReminderTemplate.
func (r *RecurrenceRule) Template() *ReminderTemplate {
	return &ReminderTemplate{
		ID:         r.TemplateID(),
		OwnerID:    r.OwnerID,
		Message:    r.Message,
		Times:      append([]string(nil), r.Times...),
		Days:       append([]Weekday(nil), r.Days...),
		WeekStride: r.WeekStride,
	}
}

// TimesString joins Times the way they are persisted.
func (r *RecurrenceRule) TimesString() string {
	return strings.Join(r.Times, ",")
}

// DaysString joins Days the way they are persisted.
func (r *RecurrenceRule) DaysString() string {
	return JoinWeekdays(r.Days)
}

// ReminderTemplate is the snapshot left behind by a rule that exhausted its countdown.
type ReminderTemplate struct {
	ID         string    `json:"id"`
	OwnerID    int64     `json:"user_id"`
	Message    string    `json:"text"`
	Times      []string  `json:"time"`
	Days       []Weekday `json:"days"`
	WeekStride int       `json:"every_week"`
	CreatedAt  time.Time `json:"created_at"`
}

// SplitTimes parses a persisted comma-joined times column.
func SplitTimes(s string) []string {
	var times []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			times = append(times, part)
		}
	}
	return times
}
