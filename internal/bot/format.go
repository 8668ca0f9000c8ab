package bot

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"tenderbot/internal/model"
)

// MaxMessageLen is the Telegram message size limit.
const MaxMessageLen = 4096

// BuildNotification renders a matched tender as an HTML-parse-mode
// message. All feed-sourced and user-sourced text is escaped.
func BuildNotification(e model.FeedEntry, summary, keyword string, isUpdate bool) string {
	title := e.Title
	if isUpdate {
		title += " (Updated)"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📝 <b>%s</b>\n", html.EscapeString(title))
	b.WriteString(html.EscapeString(summary))
	fmt.Fprintf(&b, "\n🔍 <code>%s</code>", html.EscapeString(keyword))
	fmt.Fprintf(&b, "\n\n🔗 <a href=\"%s\">View tender</a>", html.EscapeString(e.Link))
	return b.String()
}

// SplitMessage splits text into chunks that each fit the Telegram
// limit. The split point is the latest paragraph break or tag start
// before the limit; failing that, a hard cut on a rune boundary.
// Continuation chunks have leading whitespace trimmed; apart from that
// trimming, concatenating the chunks reproduces the input.
func SplitMessage(text string) []string {
	if len(text) <= MaxMessageLen {
		return []string{text}
	}

	var parts []string
	for len(text) > MaxMessageLen {
		head := text[:MaxMessageLen]
		cut := strings.LastIndex(head, "\n\n")
		if tag := strings.LastIndex(head, "<p"); tag > cut {
			cut = tag
		}
		if cut <= 0 {
			cut = MaxMessageLen
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		}
		parts = append(parts, text[:cut])
		text = strings.TrimLeft(text[cut:], " \t\r\n")
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}
