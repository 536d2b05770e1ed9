package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hray3182/remindbot/internal/models"
	"github.com/hray3182/remindbot/internal/rrule"
)

// Created is the short confirmation a creation reply collapses to.
const Created = "✅ Напоминание создано!"

// PeriodText describes a week stride in words.
func PeriodText(stride int) string {
	switch {
	case stride == 0:
		return "каждую неделю"
	case stride == 1:
		return "через неделю"
	case stride >= 2:
		return fmt.Sprintf("каждые %d недели", stride+1)
	default:
		return strconv.Itoa(stride)
	}
}

// Remaining renders the fire countdown.
func Remaining(rule *models.RecurrenceRule) string {
	if rule.IsUnbounded() {
		return "♾️ (бесконечно)"
	}
	return strconv.Itoa(rule.RemainingFires)
}

// Summary is the plain-text body of a creation reply.
func Summary(rule *models.RecurrenceRule) string {
	return summary(rule, rule.Message)
}

func summary(rule *models.RecurrenceRule, message string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📝 Текст: %s\n", message)
	fmt.Fprintf(&b, "🕒 Время: %s\n", strings.Join(rule.Times, ", "))
	if !models.IsEveryDay(rule.Days) {
		fmt.Fprintf(&b, "📅 Дни: %s\n", strings.Join(weekdayStrings(rule.Days), ", "))
	}
	fmt.Fprintf(&b, "⏳ Количество отправок: %s", Remaining(rule))
	return b.String()
}

// CreatedMessage is the full creation reply shown before it collapses to
// Created. It is Markdown with the user's text escaped.
func CreatedMessage(rule *models.RecurrenceRule) string {
	return Created + "\n\n" + summary(rule, EscapeMarkdown(rule.Message))
}

// List renders an owner's rules as Markdown with their next fire instant relative to now.
func List(rules []*models.RecurrenceRule, now time.Time) string {
	if len(rules) == 0 {
		return "У вас нет активных уведомлений"
	}

	var b strings.Builder
	b.WriteString("📋 *Ваши уведомления:*\n\n")
	for _, rule := range rules {
		fmt.Fprintf(&b, "📝 *Сообщение:* %s\n", EscapeMarkdown(rule.Message))
		fmt.Fprintf(&b, "🕒 *Время:* %s\n", strings.Join(rule.Times, ", "))
		fmt.Fprintf(&b, "🆔 *ID:* `%s`\n", rule.ID)
		fmt.Fprintf(&b, "⏳ *Осталось:* %s\n", Remaining(rule))
		if !models.IsEveryDay(rule.Days) {
			fmt.Fprintf(&b, "📅 *Дни недели:* %s\n", models.JoinWeekdays(rule.Days))
		}
		fmt.Fprintf(&b, "🔄 *Периодичность:* %s\n", PeriodText(rule.WeekStride))
		if next, ok := rrule.Next(rule, now); ok {
			fmt.Fprintf(&b, "⏭ *Следующее:* %s\n", next.Format("02.01.2006 15:04"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// SeriesEnded is appended to the last delivery of a bounded rule.
const SeriesEnded = "\n\n⚠️ *Это было последнее уведомление из серии!*\n"

// ReviveButton labels the control offered with SeriesEnded.
const ReviveButton = "📝 Создать такое же уведомление еще на 1 отправку?"

// Users renders the admin user report.
func Users(total int, recent []*models.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Всего пользователей: %d\n\n", total)
	if len(recent) == 0 {
		b.WriteString("Список пользователей пуст.")
		return b.String()
	}
	b.WriteString("Последние пользователи:\n")
	for _, u := range recent {
		fmt.Fprintf(&b, "ID: %d, Username: %s, Имя: %s\n", u.UserID, orDash(u.UserName), orDash(u.FirstName))
	}
	return b.String()
}

func weekdayStrings(days []models.Weekday) []string {
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = string(d)
	}
	return out
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
