package analysis

import (
	"regexp"
	"strings"
)

// Uncategorized is the sentinel category used when nothing better is known.
const Uncategorized = "uncategorized"

var summaryRe = regexp.MustCompile(`(?is)SUMMARY:\s*(.*?)(?:CATEGORIES:|$)`)

// ExtractSummary returns the text after "SUMMARY:" up to "CATEGORIES:" or
// the end of the response, trimmed. Both markers are case-insensitive.
// No marker yields "".
func ExtractSummary(response string) string {
	m := summaryRe.FindStringSubmatch(response)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// categoryStrategies are tried in order; the first whose capture group is
// non-empty decides the category list.
var categoryStrategies = []*regexp.Regexp{
	regexp.MustCompile(`(?i)CATEGORIES:\s*(.*?)(?:\n|$)`),
	regexp.MustCompile(`\[(.*?)\]`),
	regexp.MustCompile(`([\w\s,-]+)(?:\n|$)`),
}

var itemSep = regexp.MustCompile(`[,\n]`)

var alphaWord = regexp.MustCompile(`^[A-Za-z]+$`)

// ExtractCategories parses a category list out of a free-form response.
// The result is never empty; Uncategorized stands in when nothing usable
// is found.
func ExtractCategories(response string) []string {
	if cats, ok := matchStrategies(response); ok {
		if len(cats) == 0 {
			return []string{Uncategorized}
		}
		return cats
	}
	if kw := keywords(response, 3); len(kw) > 0 {
		return kw
	}
	return []string{Uncategorized}
}

func matchStrategies(response string) ([]string, bool) {
	for _, re := range categoryStrategies {
		m := re.FindStringSubmatch(response)
		if m == nil || m[1] == "" {
			continue
		}
		var out []string
		for _, item := range itemSep.Split(m[1], -1) {
			item = strings.TrimSpace(item)
			if item == "" || item == "." || len([]rune(item)) <= 1 {
				continue
			}
			out = append(out, item)
		}
		return out, true
	}
	return nil, false
}

// keywords returns up to n purely alphabetic words longer than five letters.
func keywords(response string, n int) []string {
	var out []string
	for _, w := range strings.Fields(response) {
		if len(w) > 5 && alphaWord.MatchString(w) {
			out = append(out, w)
			if len(out) == n {
				break
			}
		}
	}
	return out
}
