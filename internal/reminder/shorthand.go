// Package reminder holds the recurrence rule model: shorthand parsing,
// normalization into models.RecurrenceRule, and the due-set evaluator.
package reminder

import (
	"slices"
	"strconv"
	"strings"

	"github.com/hray3182/remindbot/internal/models"
)

// Shorthand keys.
const (
	KeyText         = "text"
	KeyTime         = "time"
	KeyDays         = "days"
	KeyCountInDays  = "countInDays"
	KeyEveryWeek    = "everyWeek"
	KeyCountInWeeks = "countInWeeks"
)

// Fields are raw key/value pairs from the shorthand or the translator.
type Fields map[string]string

// ParseShorthand splits "key=value&key=value" into Fields. Pairs with an empty
// key or value are dropped; a repeated key keeps its last value. Values are not
// unescaped, and everything after the first '=' belongs to the value.
func ParseShorthand(s string) Fields {
	fields := make(Fields)
	for _, part := range strings.Split(s, "&") {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		fields[key] = value
	}
	return fields
}

var keyOrder = []string{KeyText, KeyTime, KeyDays, KeyCountInDays, KeyEveryWeek, KeyCountInWeeks}

// Encode renders f as shorthand. Known keys come first in their usual order,
// then any others sorted by name.
func (f Fields) Encode() string {
	var parts []string
	for _, key := range keyOrder {
		if v, ok := f[key]; ok && v != "" {
			parts = append(parts, key+"="+v)
		}
	}
	var extra []string
	for key, v := range f {
		if !slices.Contains(keyOrder, key) && v != "" {
			extra = append(extra, key+"="+v)
		}
	}
	slices.Sort(extra)
	return strings.Join(append(parts, extra...), "&")
}

// LooksLikeShorthand reports whether text should be parsed as shorthand rather
// than handed to the translator.
func LooksLikeShorthand(text string) bool {
	return strings.Contains(text, "=") && strings.Contains(text, "&")
}

// Shorthand renders a rule back into canonical shorthand.
func Shorthand(r *models.RecurrenceRule) string {
	var sb strings.Builder
	sb.WriteString(KeyText + "=" + r.Message)
	sb.WriteString("&" + KeyTime + "=" + r.TimesString())
	if !models.IsEveryDay(r.Days) {
		sb.WriteString("&" + KeyDays + "=" + r.DaysString())
	}
	sb.WriteString("&" + KeyCountInDays + "=" + strconv.Itoa(r.RemainingFires))
	sb.WriteString("&" + KeyEveryWeek + "=" + strconv.Itoa(r.WeekStride))
	return sb.String()
}
