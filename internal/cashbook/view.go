package cashbook

import (
	"errors"
	"sort"
	"strings"

	"cashbook/internal/core"
)

// TypeFilter narrows a view to one transaction type, or to none with All.
type TypeFilter string

// All keeps both income and expense.
const All TypeFilter = "all"

var ErrInvalidTypeFilter = errors.New("invalid type filter")

// ParseTypeFilter accepts "all", "income" or "expense". Empty means All.
func ParseTypeFilter(s string) (TypeFilter, error) {
	switch f := TypeFilter(strings.ToLower(strings.TrimSpace(s))); f {
	case "", All:
		return All, nil
	case TypeFilter(core.Income), TypeFilter(core.Expense):
		return f, nil
	default:
		return "", ErrInvalidTypeFilter
	}
}

func (f TypeFilter) matches(t core.TransactionType) bool {
	return f == All || f == "" || core.TransactionType(f) == t
}

// Summary holds the totals of a set of transactions.
type Summary struct {
	TotalIncome  float64 `json:"totalIncome"`
	TotalExpense float64 `json:"totalExpense"`
	Balance      float64 `json:"balance"`
}

// ForAccount keeps the transactions of accountID, in collection order.
func ForAccount(txs []core.Transaction, accountID string) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out
}

// Filter keeps the transactions of accountID whose note contains search,
// ignoring case, and whose type passes typeFilter.
func Filter(txs []core.Transaction, accountID, search string, typeFilter TypeFilter) []core.Transaction {
	needle := strings.ToLower(search)
	out := make([]core.Transaction, 0, len(txs))
	for _, t := range ForAccount(txs, accountID) {
		if !typeFilter.matches(t.Type) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(t.Note), needle) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// SortByDateDesc orders txs newest first in place. Equal dates keep their
// relative order.
func SortByDateDesc(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.After(txs[j].Date.Time)
	})
}

// Visible is Filter followed by SortByDateDesc: the list as displayed and
// exported.
func Visible(txs []core.Transaction, accountID, search string, typeFilter TypeFilter) []core.Transaction {
	out := Filter(txs, accountID, search, typeFilter)
	SortByDateDesc(out)
	return out
}

// Aggregate totals txs by type. Balance is always income minus expense.
func Aggregate(txs []core.Transaction) Summary {
	var s Summary
	for _, t := range txs {
		switch t.Type {
		case core.Income:
			s.TotalIncome += t.Amount
		case core.Expense:
			s.TotalExpense += t.Amount
		}
	}
	s.Balance = s.TotalIncome - s.TotalExpense
	return s
}

// View returns the current account's transactions as displayed.
func (b *Book) View(search string, typeFilter TypeFilter) []core.Transaction {
	return Visible(b.transactions, b.current, search, typeFilter)
}

// Summary totals every transaction of the current account, ignoring the
// search and type filter.
func (b *Book) Summary() Summary {
	return Aggregate(ForAccount(b.transactions, b.current))
}
