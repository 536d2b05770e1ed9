package reminder

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/hray3182/remindbot/internal/errors"
	"github.com/hray3182/remindbot/internal/models"
)

func TestNormalize_MissingFields(t *testing.T) {
	tests := []struct {
		name  string
		in    Fields
		field string
	}{
		{name: "only text", in: Fields{"text": "X"}, field: KeyTime},
		{name: "no text", in: Fields{"time": "09:00", "countInDays": "1"}, field: KeyText},
		{name: "blank text", in: Fields{"text": "  ", "time": "09:00", "countInDays": "1"}, field: KeyText},
		{name: "no count", in: Fields{"text": "X", "time": "09:00"}, field: KeyCountInDays},
		{name: "empty", in: Fields{}, field: KeyText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(context.Background(), tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.MissingField))

			var e *apperrors.Error
			require.True(t, errors.As(err, &e))
			assert.Equal(t, tt.field, e.Field)
		})
	}
}

func TestNormalize_Defaults(t *testing.T) {
	rule, err := Normalize(context.Background(), Fields{"text": "Walk dog", "time": "18:00", "countInDays": "2"})
	require.NoError(t, err)

	assert.Equal(t, "Walk dog", rule.Message)
	assert.Equal(t, []string{"18:00"}, rule.Times)
	assert.Equal(t, models.AllWeekdays, rule.Days)
	assert.Equal(t, 2, rule.RemainingFires)
	assert.Equal(t, 0, rule.WeekStride)
	assert.Empty(t, rule.ID)
}

func TestNormalize_StrideSynonyms(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"через неделю", 1},
		{"Через  Неделю", 1},
		{"через", 1},
		{"каждую неделю", 0},
		{"каждую", 0},
		{"две", 2},
		{"two", 2},
		{"каждые 2 недели", 2},
		{"три", 3},
		{"three", 3},
		{"каждые 3 недели", 3},
		{"every other week", 1},
		{"4", 4},
		{"0", 0},
		{"2abc", 2},
		{"+3", 3},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			rule, err := Normalize(context.Background(), Fields{
				"text": "X", "time": "09:00", "countInDays": "1", "everyWeek": tt.value,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, rule.WeekStride)
		})
	}
}

func TestNormalize_UnrecognizedStrideWarnsAndDefaults(t *testing.T) {
	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())

	rule, err := Normalize(ctx, Fields{"text": "X", "time": "09:00", "countInDays": "1", "everyWeek": "иногда"})
	require.NoError(t, err)

	assert.Equal(t, 0, rule.WeekStride)
	assert.Contains(t, buf.String(), "unrecognized week stride")
	assert.Contains(t, buf.String(), "иногда")
}

func TestNormalize_NegativeStrideRejected(t *testing.T) {
	for _, v := range []string{"-1", "-2 weeks"} {
		_, err := Normalize(context.Background(), Fields{"text": "X", "time": "09:00", "countInDays": "1", "everyWeek": v})
		assert.True(t, errors.Is(err, apperrors.InvalidValue), v)
	}
}

func TestNormalize_StrideAlias(t *testing.T) {
	ctx := context.Background()

	rule, err := Normalize(ctx, Fields{"text": "X", "time": "09:00", "countInDays": "1", "countInWeeks": "1"})
	require.NoError(t, err)
	assert.Equal(t, 1, rule.WeekStride)

	rule, err = Normalize(ctx, Fields{"text": "X", "time": "09:00", "countInDays": "1", "countInWeeks": "1", "everyWeek": "3"})
	require.NoError(t, err)
	assert.Equal(t, 3, rule.WeekStride, "everyWeek wins over the alias")
}

func TestNormalize_Times(t *testing.T) {
	rule, err := Normalize(context.Background(), Fields{"text": "X", "time": "9:00, 12:30,09:00,18:05", "countInDays": "1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "12:30", "18:05"}, rule.Times)

	for _, bad := range []string{"24:00", "12:60", "noon", "9", "12:3"} {
		_, err := Normalize(context.Background(), Fields{"text": "X", "time": bad, "countInDays": "1"})
		assert.True(t, errors.Is(err, apperrors.InvalidValue), bad)
	}
}

func TestNormalize_Days(t *testing.T) {
	rule, err := Normalize(context.Background(), Fields{"text": "X", "time": "09:00", "countInDays": "1", "days": "ВТ, пт,вт"})
	require.NoError(t, err)
	assert.Equal(t, []models.Weekday{models.Tuesday, models.Friday}, rule.Days)

	_, err = Normalize(context.Background(), Fields{"text": "X", "time": "09:00", "countInDays": "1", "days": "mon"})
	assert.True(t, errors.Is(err, apperrors.InvalidValue))

	rule, err = Normalize(context.Background(), Fields{"text": "X", "time": "09:00", "countInDays": "1", "days": " , "})
	require.NoError(t, err)
	assert.Equal(t, models.AllWeekdays, rule.Days)
}

func TestNormalize_Count(t *testing.T) {
	ctx := context.Background()

	rule, err := Normalize(ctx, Fields{"text": "X", "time": "09:00", "countInDays": "99999"})
	require.NoError(t, err)
	assert.True(t, rule.IsUnbounded())

	rule, err = Normalize(ctx, Fields{"text": "X", "time": "09:00", "countInDays": "999999"})
	require.NoError(t, err)
	assert.True(t, rule.IsUnbounded())

	for _, bad := range []string{"0", "-3", "many"} {
		_, err := Normalize(ctx, Fields{"text": "X", "time": "09:00", "countInDays": bad})
		assert.True(t, errors.Is(err, apperrors.InvalidValue), bad)
	}
}

func TestNormalize_DaysSliceIsNotShared(t *testing.T) {
	rule, err := Normalize(context.Background(), Fields{"text": "X", "time": "09:00", "countInDays": "1"})
	require.NoError(t, err)

	rule.Days[0] = models.Sunday
	assert.Equal(t, models.Monday, models.AllWeekdays[0])
}
