package extract

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`[\s\p{Zs}]+`)

// CleanText strips zero-width characters, collapses whitespace runs to a
// single space and trims.
func CleanText(text string) string {
	text = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff', '\u00ad':
			return -1
		}
		return r
	}, text)
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// joinParts joins the non-empty parts with a blank line.
func joinParts(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n\n")
}
