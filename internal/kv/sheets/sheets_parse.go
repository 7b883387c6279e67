package sheets

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// Below the 50,000 character cell limit, counted in bytes so it holds
	// for any text.
	chunkSize = 40000
	// Columns B..Z.
	maxChunks  = 25
	lastColumn = "Z"
)

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = fmt.Sprint(v)
	}
	return out
}

// findRow returns the index of the row whose first cell equals key, or -1.
func findRow(rows [][]string, key string) int {
	for i, row := range rows {
		if len(row) > 0 && strings.TrimSpace(row[0]) == key {
			return i
		}
	}
	return -1
}

// joinChunks concatenates every cell after the key.
func joinChunks(row []string) string {
	if len(row) < 2 {
		return ""
	}
	return strings.Join(row[1:], "")
}

// splitChunks cuts s into pieces of at most size bytes without splitting
// a UTF-8 sequence. An empty string yields one empty chunk so the row
// still records the key.
func splitChunks(s string, size int) []string {
	if s == "" {
		return []string{""}
	}
	var out []string
	for len(s) > size {
		cut := size
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if cut == 0 {
			cut = size
		}
		out = append(out, s[:cut])
		s = s[cut:]
	}
	return append(out, s)
}
