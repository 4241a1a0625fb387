// Package utils provides shared utilities for text, math, and logging.
package utils

// Truncate returns s truncated to maxLen characters, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged. Multi-byte characters are never split.
func Truncate(s string, maxLen int) string {
	head := FirstRunes(s, maxLen)
	if len(head) == len(s) {
		return s
	}
	return head + "..."
}

// FirstRunes returns at most the first n characters of s.
// If n is 0 or negative, returns s unchanged.
func FirstRunes(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
