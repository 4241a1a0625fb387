package search

import (
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/notemind/pkg/utils"
)

// Highlight returns about maxLen characters of content around the first occurrence of any
// query term (case-insensitive), with "..." marking cut edges. Without a match it returns
// the beginning of content.
func Highlight(content, query string, maxLen int) string {
	if maxLen <= 0 || utf8.RuneCountInString(content) <= maxLen {
		return content
	}
	lower := strings.ToLower(content)
	pos := -1
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if i := strings.Index(lower, term); i >= 0 && (pos < 0 || i < pos) {
			pos = i
		}
	}
	if pos < 0 || len(lower) != len(content) {
		// No match, or lowercasing changed byte offsets.
		return utils.Truncate(content, maxLen)
	}

	runes := []rune(content)
	center := utf8.RuneCountInString(content[:pos])
	start := center - maxLen/4
	if start < 0 {
		start = 0
	}
	end := start + maxLen
	if end > len(runes) {
		end = len(runes)
		start = end - maxLen
	}
	out := string(runes[start:end])
	if start > 0 {
		out = "..." + out
	}
	if end < len(runes) {
		out += "..."
	}
	return out
}
