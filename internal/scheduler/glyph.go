package scheduler

import (
	"strings"

	"github.com/hray3182/remindbot/internal/reminder"
)

// DefaultGlyph prefixes messages that match no category.
const DefaultGlyph = "⏰"

var glyphs = []struct {
	glyph    string
	keywords []string
}{
	{"📞", []string{"звонок", "звонить", "позвонить"}},
	{"👥", []string{"встреча", "митинг", "собрание"}},
	{"💊", []string{"лекарств", "таблетк", "принять"}},
	{"🛒", []string{"купить", "заказать", "оплатить"}},
	{"🎂", []string{"день рождения", "праздник"}},
	{"🍽️", []string{"поесть", "еда", "покушать", "обед"}},
}

// Glyph picks the category glyph for a message. Categories are tried in
// order and the first keyword hit wins.
func Glyph(message string) string {
	folded := reminder.Fold(message)
	for _, g := range glyphs {
		for _, kw := range g.keywords {
			if strings.Contains(folded, kw) {
				return g.glyph
			}
		}
	}
	return DefaultGlyph
}

// Decorate prefixes message with its glyph. Decoration is display only and
// never reaches the store.
func Decorate(message string) string {
	return Glyph(message) + " " + message
}
