package format

import (
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hray3182/remindbot/internal/models"
)

func TestParseMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		text     string
		entities []tgbotapi.MessageEntity
	}{
		{
			name: "plain",
			in:   "hello",
			text: "hello",
		},
		{
			name: "bold after emoji counts utf16 units",
			in:   "⏰ Walk dog" + SeriesEnded,
			text: "⏰ Walk dog\n\n⚠️ Это было последнее уведомление из серии!",
			entities: []tgbotapi.MessageEntity{
				{Type: "bold", Offset: 15, Length: 40},
			},
		},
		{
			name: "code and italic",
			in:   "id `abc` _x_",
			text: "id abc x",
			entities: []tgbotapi.MessageEntity{
				{Type: "code", Offset: 3, Length: 3},
				{Type: "italic", Offset: 7, Length: 1},
			},
		},
		{
			name: "unmatched marker stays literal",
			in:   "2*3 = 6",
			text: "2*3 = 6",
		},
		{
			name: "empty pair stays literal",
			in:   "a ** b",
			text: "a ** b",
		},
		{
			name: "escaped markers are literal",
			in:   `*x:* send\_report \*now\* \\ *y:*`,
			text: `x: send_report *now* \ y:`,
			entities: []tgbotapi.MessageEntity{
				{Type: "bold", Offset: 0, Length: 2},
				{Type: "bold", Offset: 23, Length: 2},
			},
		},
		{
			name: "lone backslash stays literal",
			in:   `a\b`,
			text: `a\b`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseMarkdown(tt.in)
			assert.Equal(t, tt.text, got.Text)
			assert.Equal(t, tt.entities, got.Entities)
		})
	}
}

func TestEscapeMarkdown_RoundTripsUserText(t *testing.T) {
	for _, in := range []string{"send_report", "2*3", "`rm -rf`", `C:\tmp\_x`, "plain"} {
		got := ParseMarkdown(EscapeMarkdown(in))
		assert.Equal(t, in, got.Text, in)
		assert.Empty(t, got.Entities, in)
	}
}

func TestUTF16Len(t *testing.T) {
	assert.Equal(t, 5, UTF16Len("hello"))
	assert.Equal(t, 6, UTF16Len("привет"))
	assert.Equal(t, 2, UTF16Len("📞"))
}

func TestPeriodText(t *testing.T) {
	assert.Equal(t, "каждую неделю", PeriodText(0))
	assert.Equal(t, "через неделю", PeriodText(1))
	assert.Equal(t, "каждые 3 недели", PeriodText(2))
	assert.Equal(t, "-1", PeriodText(-1))
}

func TestSummary(t *testing.T) {
	rule := &models.RecurrenceRule{
		Message:        "Планерка",
		Times:          []string{"09:00", "17:30"},
		Days:           []models.Weekday{models.Monday, models.Friday},
		RemainingFires: 5,
	}
	assert.Equal(t,
		"📝 Текст: Планерка\n🕒 Время: 09:00, 17:30\n📅 Дни: пн, пт\n⏳ Количество отправок: 5",
		Summary(rule))

	rule.Days = models.AllWeekdays
	rule.RemainingFires = models.UnboundedFires
	assert.Equal(t,
		"📝 Текст: Планерка\n🕒 Время: 09:00, 17:30\n⏳ Количество отправок: ♾️ (бесконечно)",
		Summary(rule))
}

func TestList(t *testing.T) {
	now := time.Date(2026, 1, 26, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "У вас нет активных уведомлений", List(nil, now))

	out := List([]*models.RecurrenceRule{{
		ID:             "r1",
		Message:        "Walk dog",
		Times:          []string{"18:00"},
		Days:           []models.Weekday{models.Tuesday},
		RemainingFires: 2,
		WeekStride:     1,
	}}, now)

	assert.Contains(t, out, "🆔 *ID:* `r1`")
	assert.Contains(t, out, "📅 *Дни недели:* вт")
	assert.Contains(t, out, "🔄 *Периодичность:* через неделю")
	assert.Contains(t, out, "⏭ *Следующее:* 03.02.2026 18:00")
}

func TestList_UserTextDoesNotBreakMarkup(t *testing.T) {
	now := time.Date(2026, 1, 26, 12, 0, 0, 0, time.UTC)
	rules := []*models.RecurrenceRule{
		{ID: "r1", Message: "send_report", Times: []string{"18:00"}, Days: models.AllWeekdays, RemainingFires: 1},
		{ID: "r2", Message: "fix_bug *now*", Times: []string{"19:00"}, Days: models.AllWeekdays, RemainingFires: 1},
	}

	got := ParseMarkdown(List(rules, now))

	assert.Contains(t, got.Text, "Сообщение: send_report\n")
	assert.Contains(t, got.Text, "Сообщение: fix_bug *now*\n")
	for _, e := range got.Entities {
		assert.NotEqual(t, "italic", e.Type)
	}

	// The second rule's labels keep their bold.
	idx := strings.Index(got.Text, "🕒 Время: 19:00")
	require.GreaterOrEqual(t, idx, 0)
	assert.Contains(t, got.Entities, tgbotapi.MessageEntity{
		Type:   "bold",
		Offset: UTF16Len(got.Text[:idx]) + UTF16Len("🕒 "),
		Length: UTF16Len("Время:"),
	})
}

func TestCreatedMessage_EscapesUserText(t *testing.T) {
	rule := &models.RecurrenceRule{
		Message:        "send_report",
		Times:          []string{"09:00"},
		Days:           models.AllWeekdays,
		RemainingFires: 1,
	}
	assert.Contains(t, CreatedMessage(rule), `send\_report`)
	assert.Contains(t, Summary(rule), "send_report")
	assert.Contains(t, ParseMarkdown(CreatedMessage(rule)).Text, "📝 Текст: send_report")
}

func TestUsers(t *testing.T) {
	assert.Equal(t, "Всего пользователей: 0\n\nСписок пользователей пуст.", Users(0, nil))

	out := Users(2, []*models.User{{UserID: 5, FirstName: "Ann"}})
	assert.Equal(t, "Всего пользователей: 2\n\nПоследние пользователи:\nID: 5, Username: -, Имя: Ann\n", out)
}
