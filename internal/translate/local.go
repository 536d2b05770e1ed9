package translate

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/hray3182/remindbot/internal/models"
	"github.com/hray3182/remindbot/internal/reminder"
)

// DefaultText replaces a reminder text that is empty after cleanup.
const DefaultText = "Напоминание"

var (
	atRe       = regexp.MustCompile(`(?i)в (\d{1,2})(?:[:.](\d{2}))?(?:\s+(утра|дня|вечера|ночи))?`)
	relativeRe = regexp.MustCompile(`(?i)через (\d+) ?(минут\p{L}*|час\p{L}*)`)
	everyDayRe = regexp.MustCompile(`(?i)кажд\p{L}* день|ежедневно|бесконечно|всегда|постоянно`)
)

// partsOfDay map a vague time of day to a clock time.
var partsOfDay = []struct {
	word string
	at   string
}{
	{"утром", "09:00"},
	{"днем", "13:00"},
	{"днём", "13:00"},
	{"вечером", "19:00"},
	{"ночью", "23:00"},
}

var dayNames = []struct {
	name string
	day  models.Weekday
}{
	{"понедельник", models.Monday},
	{"вторник", models.Tuesday},
	{"среду", models.Wednesday},
	{"среда", models.Wednesday},
	{"четверг", models.Thursday},
	{"пятницу", models.Friday},
	{"пятница", models.Friday},
	{"субботу", models.Saturday},
	{"суббота", models.Saturday},
	{"воскресенье", models.Sunday},
}

var recurringWords = []string{"по", "еженедельно", "регулярно"}

var fillerWords = map[string]bool{
	"напомни": true, "напомнить": true, "напоминай": true, "мне": true,
	"завтра": true, "сегодня": true, "послезавтра": true,
	"утром": true, "днем": true, "днём": true, "вечером": true, "ночью": true,
	"ежедневно": true, "еженедельно": true, "регулярно": true, "по": true,
}

// Local is a best-effort rule-based translator. It never fails; anything it
// cannot place defaults to a one-shot reminder five minutes from now.
type Local struct {
	loc *time.Location
	now func() time.Time
}

func NewLocal(loc *time.Location) *Local {
	if loc == nil {
		loc = time.Local
	}
	return &Local{loc: loc, now: time.Now}
}

func (l *Local) Translate(ctx context.Context, text string) (string, error) {
	return l.Fields(text).Encode(), nil
}

// Fields extracts shorthand fields from free text.
func (l *Local) Fields(text string) reminder.Fields {
	now := l.now().In(l.loc)
	folded := reminder.Fold(text)
	words := tokens(folded)

	at := clockTimes(text)
	if len(at) == 0 {
		for _, p := range partsOfDay {
			if slices.Contains(words, p.word) {
				at = []string{p.at}
				break
			}
		}
	}
	if m := relativeRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		unit := time.Minute
		if strings.HasPrefix(reminder.Fold(m[2]), "час") {
			unit = time.Hour
		}
		at = []string{now.Add(time.Duration(n) * unit).Format("15:04")}
	}
	if len(at) == 0 {
		at = []string{now.Add(5 * time.Minute).Format("15:04")}
	}

	count := "1"
	var days []models.Weekday
	for _, d := range dayNames {
		if strings.Contains(folded, d.name) && !slices.Contains(days, d.day) {
			days = append(days, d.day)
		}
	}
	if len(days) > 0 && isRecurring(words) {
		count = strconv.Itoa(models.UnboundedFires)
	}
	if everyDayRe.MatchString(text) {
		count = strconv.Itoa(models.UnboundedFires)
	}
	if slices.Contains(words, "завтра") {
		days = []models.Weekday{models.WeekdayOf(now.AddDate(0, 0, 1).Weekday())}
		count = "1"
	}

	fields := reminder.Fields{
		reminder.KeyText:        cleanText(text),
		reminder.KeyTime:        strings.Join(at, ","),
		reminder.KeyCountInDays: count,
	}
	if len(days) > 0 && !models.IsEveryDay(days) {
		fields[reminder.KeyDays] = models.JoinWeekdays(days)
	}
	return fields
}

// clockTimes finds "в 9", "в 9:30", "в 5 вечера". An afternoon qualifier
// moves a morning hour past noon.
func clockTimes(text string) []string {
	var out []string
	for _, m := range atRe.FindAllStringSubmatch(text, -1) {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		switch reminder.Fold(m[3]) {
		case "дня", "вечера":
			if hour < 12 {
				hour += 12
			}
		case "ночи":
			if hour == 12 {
				hour = 0
			}
		}
		hhmm := fmt.Sprintf("%02d:%02d", hour, minute)
		if !slices.Contains(out, hhmm) {
			out = append(out, hhmm)
		}
	}
	return out
}

func isRecurring(words []string) bool {
	for _, w := range words {
		if strings.HasPrefix(w, "кажд") || slices.Contains(recurringWords, w) {
			return true
		}
	}
	return false
}

// cleanText strips scheduling words and leaves what the reminder is about.
func cleanText(text string) string {
	s := relativeRe.ReplaceAllString(text, " ")
	s = atRe.ReplaceAllString(s, " ")

	raw := strings.Fields(s)
	kept := make([]string, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		w := reminder.Fold(trimPunct(raw[i]))
		if strings.HasPrefix(w, "кажд") {
			if i+1 < len(raw) && reminder.Fold(trimPunct(raw[i+1])) == "день" {
				i++
			}
			continue
		}
		if w == "" || fillerWords[w] || isDayName(w) {
			continue
		}
		kept = append(kept, raw[i])
	}

	out := strings.TrimFunc(strings.Join(kept, " "), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	if utf8.RuneCountInString(out) < 3 {
		return DefaultText
	}
	return out
}

func isDayName(w string) bool {
	for _, d := range dayNames {
		if w == d.name {
			return true
		}
	}
	return false
}

func tokens(folded string) []string {
	raw := strings.Fields(folded)
	out := make([]string, 0, len(raw))
	for _, w := range raw {
		if w = trimPunct(w); w != "" {
			out = append(out, w)
		}
	}
	return out
}

func trimPunct(w string) string {
	return strings.TrimFunc(w, unicode.IsPunct)
}
