package rrule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hray3182/remindbot/internal/models"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04", s, time.UTC)
	require.NoError(t, err)
	return ts
}

func TestNextN_MultipleTimesAndDays(t *testing.T) {
	rule := &models.RecurrenceRule{
		Times: []string{"09:00", "18:30"},
		Days:  []models.Weekday{models.Tuesday, models.Friday},
	}

	got := NextN(rule, mustTime(t, "2026-01-26 00:00"), 4)

	assert.Equal(t, []time.Time{
		mustTime(t, "2026-01-27 09:00"),
		mustTime(t, "2026-01-27 18:30"),
		mustTime(t, "2026-01-30 09:00"),
		mustTime(t, "2026-01-30 18:30"),
	}, got)
}

func TestNext_IsStrictlyAfter(t *testing.T) {
	rule := &models.RecurrenceRule{
		Times: []string{"09:00"},
		Days:  models.AllWeekdays,
	}

	next, ok := Next(rule, mustTime(t, "2026-01-27 09:00"))
	require.True(t, ok)
	assert.Equal(t, mustTime(t, "2026-01-28 09:00"), next)
}

func TestNext_AppliesWeekStride(t *testing.T) {
	rule := &models.RecurrenceRule{
		Times:      []string{"09:00"},
		Days:       []models.Weekday{models.Tuesday},
		WeekStride: 1,
	}

	next, ok := Next(rule, mustTime(t, "2026-01-26 00:00"))
	require.True(t, ok)
	assert.Equal(t, mustTime(t, "2026-02-03 09:00"), next, "week 5 is skipped")
}

func TestNext_AcrossYearBoundary(t *testing.T) {
	rule := &models.RecurrenceRule{
		Times:      []string{"09:00"},
		Days:       []models.Weekday{models.Thursday, models.Friday},
		WeekStride: 1,
	}

	next, ok := Next(rule, mustTime(t, "2026-12-30 00:00"))
	require.True(t, ok)
	assert.Equal(t, mustTime(t, "2027-01-07 09:00"), next)
}

func TestNext_NeverFires(t *testing.T) {
	rule := &models.RecurrenceRule{
		Times:      []string{"09:00"},
		Days:       models.AllWeekdays,
		WeekStride: 60,
	}

	_, ok := Next(rule, mustTime(t, "2026-01-01 00:00"))
	assert.False(t, ok)

	_, ok = Next(&models.RecurrenceRule{Times: []string{"09:00"}}, mustTime(t, "2026-01-01 00:00"))
	assert.False(t, ok, "no days")
}

func TestDescribe(t *testing.T) {
	rule := &models.RecurrenceRule{
		Times:      []string{"09:00", "18:30"},
		Days:       []models.Weekday{models.Monday, models.Friday},
		WeekStride: 1,
	}

	assert.Equal(t, []string{
		"FREQ=WEEKLY;BYDAY=MO,FR;BYHOUR=9;BYMINUTE=0;BYSECOND=0;X-WEEK-STRIDE=1",
		"FREQ=WEEKLY;BYDAY=MO,FR;BYHOUR=18;BYMINUTE=30;BYSECOND=0;X-WEEK-STRIDE=1",
	}, Describe(rule))
}
