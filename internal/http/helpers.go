package http

import "strings"

// sanitizeInput drops control characters other than tab and newlines.
// Surrounding whitespace is kept: validation decides what blank means.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
