package core

import "time"

// TransactionInput is the raw form data for a new transaction.
type TransactionInput struct {
	Type   TransactionType
	Amount string
	Note   string
	Date   string
}

// TransactionPatch holds the fields of an edit. A nil field keeps the
// current value.
type TransactionPatch struct {
	Type   *TransactionType
	Amount *string
	Note   *string
	Date   *string
}

// NewTransaction validates the input and builds a transaction for the
// given account. An empty date means today.
func (in TransactionInput) NewTransaction(id, accountID string, now time.Time) (Transaction, error) {
	if accountID == "" {
		return Transaction{}, ErrNoCurrentAccount
	}
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return Transaction{}, err
	}
	if !in.Type.Valid() {
		return Transaction{}, ErrInvalidTransactionType
	}
	date := Today(now)
	if in.Date != "" {
		if date, err = ParseDate(in.Date); err != nil {
			return Transaction{}, err
		}
	}
	return Transaction{
		ID:        id,
		AccountID: accountID,
		Type:      in.Type,
		Amount:    amount,
		Note:      in.Note,
		Date:      date,
		CreatedAt: now,
	}, nil
}

// Apply merges the patch over base. Patch values win; ID, AccountID and
// CreatedAt always come from base. On error base is returned unchanged.
func (p TransactionPatch) Apply(base Transaction) (Transaction, error) {
	out := base
	if p.Amount != nil {
		amount, err := ParseAmount(*p.Amount)
		if err != nil {
			return base, err
		}
		out.Amount = amount
	}
	if p.Type != nil {
		if !p.Type.Valid() {
			return base, ErrInvalidTransactionType
		}
		out.Type = *p.Type
	}
	if p.Note != nil {
		out.Note = *p.Note
	}
	if p.Date != nil {
		date, err := ParseDate(*p.Date)
		if err != nil {
			return base, err
		}
		out.Date = date
	}
	return out, nil
}
