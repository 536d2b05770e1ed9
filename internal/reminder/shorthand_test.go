package reminder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseShorthand(t *testing.T) {
	got := ParseShorthand("text=Митинг в синтезе&time=14:00&countInDays=999999&days=вт&countInWeeks=1")

	assert.Equal(t, Fields{
		"text":         "Митинг в синтезе",
		"time":         "14:00",
		"countInDays":  "999999",
		"days":         "вт",
		"countInWeeks": "1",
	}, got)
}

func TestParseShorthand_DropsEmptyAndMalformedPairs(t *testing.T) {
	got := ParseShorthand(" text = Hi & time= &=x&garbage&days=пн")

	assert.Equal(t, Fields{"text": "Hi", "days": "пн"}, got)
}

func TestParseShorthand_LastKeyWins(t *testing.T) {
	got := ParseShorthand("text=a&text=b")
	assert.Equal(t, "b", got["text"])
}

func TestLooksLikeShorthand(t *testing.T) {
	assert.True(t, LooksLikeShorthand("text=a&time=09:00"))
	assert.False(t, LooksLikeShorthand("напомни в 9 утра принять таблетки"))
	assert.False(t, LooksLikeShorthand("a=b"))
}

func TestShorthand_RoundTrip(t *testing.T) {
	ctx := context.Background()
	in := "text=Планерка&time=09:00,17:30&days=пн,пт&countInDays=5&everyWeek=1"

	rule, err := FromShorthand(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, in, Shorthand(rule))

	rule, err = FromShorthand(ctx, "text=Вода&time=13:00&countInDays=99999")
	require.NoError(t, err)
	assert.Equal(t, "text=Вода&time=13:00&countInDays=99999&everyWeek=0", Shorthand(rule))
}

func TestFields_Encode(t *testing.T) {
	f := Fields{
		"countInDays": "1",
		"zeta":        "z",
		"time":        "09:00",
		"text":        "Вода",
		"alpha":       "a",
		"days":        "",
	}

	assert.Equal(t, "text=Вода&time=09:00&countInDays=1&alpha=a&zeta=z", f.Encode())
	assert.Equal(t, f["text"], ParseShorthand(f.Encode())["text"])
}
