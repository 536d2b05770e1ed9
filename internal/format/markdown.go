package format

import (
	"strings"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ParseResult contains plain text and message entities
type ParseResult struct {
	Text     string
	Entities []tgbotapi.MessageEntity
}

// UTF16Len returns the length of s in UTF-16 code units, the unit Telegram
// uses for entity offsets.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

var entityTypes = map[byte]string{
	'*': "bold",
	'_': "italic",
	'`': "code",
}

const escape = '\\'

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`_`, `\_`,
	"`", "\\`",
)

// EscapeMarkdown makes s render literally when composed into a message that
// goes through ParseMarkdown. User text must be escaped before it is mixed
// with markup.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func isSpecial(c byte) bool {
	_, ok := entityTypes[c]
	return ok || c == escape
}

// closing finds the index in s of the first unescaped marker, or -1.
func closing(s string, marker byte) int {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case escape:
			i++
		case marker:
			return i
		}
	}
	return -1
}

// ParseMarkdown converts legacy Telegram Markdown into plain text plus
// entities, so a stray marker in user text degrades to a literal character
// instead of a rejected message.
// Supported formats:
// - *bold*
// - _italic_
// - `code`
// - \* \_ \` \\ for a literal character
// Markers do not nest. An unmatched marker is kept as is.
func ParseMarkdown(text string) ParseResult {
	var (
		out      strings.Builder
		entities []tgbotapi.MessageEntity
		offset   int
	)

	for i := 0; i < len(text); {
		if text[i] == escape && i+1 < len(text) && isSpecial(text[i+1]) {
			out.WriteByte(text[i+1])
			offset++
			i += 2
			continue
		}

		typ, isMarker := entityTypes[text[i]]
		if !isMarker {
			j := i + 1
			for j < len(text) && !isSpecial(text[j]) {
				j++
			}
			out.WriteString(text[i:j])
			offset += UTF16Len(text[i:j])
			i = j
			continue
		}

		end := closing(text[i+1:], text[i])
		if end <= 0 {
			out.WriteByte(text[i])
			offset++
			i++
			continue
		}

		inner := unescape(text[i+1 : i+1+end])
		length := UTF16Len(inner)
		entities = append(entities, tgbotapi.MessageEntity{
			Type:   typ,
			Offset: offset,
			Length: length,
		})
		out.WriteString(inner)
		offset += length
		i += end + 2
	}

	return ParseResult{
		Text:     strings.TrimRight(out.String(), " \n"),
		Entities: entities,
	}
}

func unescape(s string) string {
	if strings.IndexByte(s, escape) < 0 {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == escape && i+1 < len(s) && isSpecial(s[i+1]) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
