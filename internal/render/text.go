// Package render turns raw comment and title text into something safe
// for a one-line terminal display.
package render

import (
	"html"
	"strings"

	xhtml "golang.org/x/net/html"
)

// Plain strips any markup from raw, collapses whitespace and truncates
// to limit runes (0 = no limit). Comment content occasionally carries
// embedded tags and entities; titles carry newlines.
func Plain(raw string, limit int) string {
	if raw == "" {
		return ""
	}
	raw = html.UnescapeString(raw)

	var sb strings.Builder
	tokenizer := xhtml.NewTokenizer(strings.NewReader(raw))
loop:
	for {
		switch tokenizer.Next() {
		case xhtml.ErrorToken:
			break loop
		case xhtml.TextToken:
			sb.Write(tokenizer.Text())
		}
	}

	text := strings.Join(strings.Fields(sb.String()), " ")
	return Truncate(text, limit)
}

// Truncate bounds s to limit runes, appending an ellipsis when cut.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
