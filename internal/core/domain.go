package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	Personal AccountType = "personal"
	Business AccountType = "business"

	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

// DateLayout is the ISO calendar date format used on the wire and in reports.
const DateLayout = "2006-01-02"

type (
	AccountType     string
	TransactionType string

	// Date is a calendar date without time of day.
	Date struct {
		time.Time
	}

	Account struct {
		ID        string      `json:"id"`
		Name      string      `json:"name"`
		Type      AccountType `json:"type"`
		CreatedAt time.Time   `json:"createdAt"`
	}

	Transaction struct {
		ID        string          `json:"id"`
		AccountID string          `json:"accountId"`
		Type      TransactionType `json:"type"`
		Amount    float64         `json:"amount"`
		Note      string          `json:"note"`
		Date      Date            `json:"date"`
		CreatedAt time.Time       `json:"createdAt"`
	}
)

var (
	ErrEmptyName              = errors.New("empty account name")
	ErrInvalidAccountType     = errors.New("invalid account type")
	ErrInvalidTransactionType = errors.New("invalid transaction type")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidDate            = errors.New("invalid date")
	ErrNoCurrentAccount       = errors.New("no current account selected")
	ErrTransactionNotFound    = errors.New("transaction not found")
)

func (t AccountType) Valid() bool {
	return t == Personal || t == Business
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

// Today returns the calendar date of now in UTC.
func Today(now time.Time) Date {
	y, m, d := now.UTC().Date()
	return NewDate(y, int(m), d)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts the plain date form and, for snapshots written by
// other clients, a full RFC 3339 timestamp.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	if parsed, err := ParseDate(s); err == nil {
		*d = parsed
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return ErrInvalidDate
	}
	*d = Today(t)
	return nil
}

// Validate checks the fields a caller controls; the id and timestamps are
// assigned by the book.
func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if !a.Type.Valid() {
		return ErrInvalidAccountType
	}
	return nil
}
