package spam

import (
	"html"
	"strings"

	xhtml "golang.org/x/net/html"
)

// Sanitize trims s, strips markup and escapes what remains for HTML output.
func Sanitize(s string) string {
	return html.EscapeString(strings.TrimSpace(StripTags(strings.TrimSpace(s))))
}

// StripTags removes tags and comments, keeping text content.
func StripTags(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	var b strings.Builder
	z := xhtml.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case xhtml.ErrorToken:
			// io.EOF or a malformed tail; either way the text so far is kept.
			return b.String()
		case xhtml.TextToken:
			b.Write(z.Text())
		}
	}
}
