// Package report renders transaction lists as downloadable CSV.
package report

import (
	"io"
	"strconv"
	"strings"
	"time"

	"cashbook/internal/core"
)

// Header is the first line of every export.
const Header = "Date,Type,Amount,Note"

// Labels are the words written in the Type column.
type Labels struct {
	Income  string
	Expense string
}

// DefaultLabels are the Bengali labels for income and expense.
var DefaultLabels = Labels{Income: "আয়", Expense: "খরচ"}

func (l Labels) label(t core.TransactionType) string {
	switch t {
	case core.Income:
		return l.Income
	case core.Expense:
		return l.Expense
	default:
		return string(t)
	}
}

// Lines returns the header followed by one row per transaction, in order.
// Fields are written as-is: a comma in a note shifts that row's columns.
func Lines(txs []core.Transaction, labels Labels) []string {
	lines := make([]string, 0, len(txs)+1)
	lines = append(lines, Header)
	for _, t := range txs {
		lines = append(lines, strings.Join([]string{
			t.Date.String(),
			labels.label(t.Type),
			strconv.FormatFloat(t.Amount, 'f', -1, 64),
			t.Note,
		}, ","))
	}
	return lines
}

// WriteCSV writes the export to w. Lines are separated by "\n" with no
// trailing newline.
func WriteCSV(w io.Writer, txs []core.Transaction, labels Labels) error {
	_, err := io.WriteString(w, strings.Join(Lines(txs, labels), "\n"))
	return err
}

// Filename is the download name for an export made at now.
func Filename(now time.Time) string {
	return "cashbook-report-" + now.UTC().Format(core.DateLayout) + ".csv"
}
