// Package cashbook holds the application state of a cashbook: the ordered
// accounts and transactions, the current account selection, and the rules
// that mutate them.
//
// A Book is not safe for concurrent use. Callers that share one across
// goroutines must serialize access.
package cashbook

import (
	"context"
	"time"

	"cashbook/internal/core"
	"cashbook/internal/kv"
	"cashbook/internal/log"

	"github.com/google/uuid"
)

// Notifier is told about every applied mutation. Failures are logged and
// otherwise ignored.
type Notifier interface {
	PublishChange(ctx context.Context, kind, id, accountID string) error
}

// Change kinds passed to Notifier.
const (
	AccountCreated     = "account.created"
	TransactionCreated = "transaction.created"
	TransactionUpdated = "transaction.updated"
	TransactionDeleted = "transaction.deleted"
)

type Book struct {
	accounts     []core.Account
	transactions []core.Transaction
	current      string

	store    kv.Store
	notifier Notifier
	logger   *log.Logger
	now      func() time.Time
	newID    func() string

	lastErr error
}

type Option func(*Book)

// WithNotifier publishes a change event after each mutation.
func WithNotifier(n Notifier) Option {
	return func(b *Book) { b.notifier = n }
}

// WithClock replaces time.Now for CreatedAt stamps and default dates.
func WithClock(now func() time.Time) Option {
	return func(b *Book) { b.now = now }
}

// WithIDGenerator replaces the UUIDv7 generator.
func WithIDGenerator(gen func() string) Option {
	return func(b *Book) { b.newID = gen }
}

func WithLogger(l *log.Logger) Option {
	return func(b *Book) { b.logger = l.WithComponent(log.ComponentCashbook) }
}

// New returns an empty book persisting to store. Call Load to restore a
// saved snapshot.
func New(store kv.Store, opts ...Option) *Book {
	b := &Book{
		store:  store,
		now:    time.Now,
		newID:  newTimeOrderedID,
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// newTimeOrderedID returns a UUIDv7, which embeds the creation time in
// milliseconds and stays unique when two records share a millisecond.
func newTimeOrderedID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// LastError reports why the most recent operation was blocked, or nil if
// it went through.
func (b *Book) LastError() error {
	return b.lastErr
}

// Accounts returns the accounts in creation order.
func (b *Book) Accounts() []core.Account {
	return append([]core.Account(nil), b.accounts...)
}

// Transactions returns every transaction of every account in creation order.
func (b *Book) Transactions() []core.Transaction {
	return append([]core.Transaction(nil), b.transactions...)
}

// CurrentAccount returns the selected account id, or "" when none is.
func (b *Book) CurrentAccount() string {
	return b.current
}

// Transaction looks up a transaction by id.
func (b *Book) Transaction(id string) (core.Transaction, bool) {
	for _, t := range b.transactions {
		if t.ID == id {
			return t, true
		}
	}
	return core.Transaction{}, false
}

// CreateAccount appends a new account and selects it if nothing is
// selected yet. It reports false and changes nothing when the name is
// blank or the type is unknown.
func (b *Book) CreateAccount(ctx context.Context, name string, accountType core.AccountType) (core.Account, bool) {
	acc := core.Account{Name: name, Type: accountType}
	if err := acc.Validate(); err != nil {
		return core.Account{}, b.block(ctx, log.OpCreate, err)
	}
	acc.ID = b.newID()
	acc.CreatedAt = b.now().UTC()

	accounts := make([]core.Account, len(b.accounts), len(b.accounts)+1)
	copy(accounts, b.accounts)
	b.accounts = append(accounts, acc)
	if b.current == "" {
		b.current = acc.ID
	}
	b.lastErr = nil

	b.logger.InfoContext(ctx, "Account created",
		log.NewFields().WithOperation(log.OpCreate).WithAccount(acc.ID, string(acc.Type)).ToSlice()...)
	b.commit(ctx, AccountCreated, acc.ID, acc.ID)
	return acc, true
}

// SelectAccount makes id the current account. The id is not checked
// against the account list.
func (b *Book) SelectAccount(ctx context.Context, id string) {
	b.current = id
	b.logger.DebugContext(ctx, "Account selected", log.FieldOperation, log.OpSelect, log.FieldAccountID, id)
}

// CreateTransaction records a transaction against the current account.
// It reports false and changes nothing when no account is selected or the
// input does not parse.
func (b *Book) CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, bool) {
	tx, err := in.NewTransaction("", b.current, b.now().UTC())
	if err != nil {
		return core.Transaction{}, b.block(ctx, log.OpCreate, err)
	}
	tx.ID = b.newID()

	txs := make([]core.Transaction, len(b.transactions), len(b.transactions)+1)
	copy(txs, b.transactions)
	b.transactions = append(txs, tx)
	b.lastErr = nil

	b.logger.InfoContext(ctx, "Transaction created",
		log.NewFields().WithOperation(log.OpCreate).
			WithTransaction(tx.ID, tx.AccountID, string(tx.Type), tx.Amount).ToSlice()...)
	b.commit(ctx, TransactionCreated, tx.ID, tx.AccountID)
	return tx, true
}

// UpdateTransaction replaces transaction id with patch merged over it.
// It reports false and changes nothing when id is unknown or the patch
// does not parse.
func (b *Book) UpdateTransaction(ctx context.Context, id string, patch core.TransactionPatch) (core.Transaction, bool) {
	idx := b.indexOf(id)
	if idx < 0 {
		return core.Transaction{}, b.block(ctx, log.OpUpdate, core.ErrTransactionNotFound)
	}
	updated, err := patch.Apply(b.transactions[idx])
	if err != nil {
		return core.Transaction{}, b.block(ctx, log.OpUpdate, err)
	}

	txs := make([]core.Transaction, len(b.transactions))
	copy(txs, b.transactions)
	txs[idx] = updated
	b.transactions = txs
	b.lastErr = nil

	b.logger.InfoContext(ctx, "Transaction updated",
		log.NewFields().WithOperation(log.OpUpdate).
			WithTransaction(updated.ID, updated.AccountID, string(updated.Type), updated.Amount).ToSlice()...)
	b.commit(ctx, TransactionUpdated, updated.ID, updated.AccountID)
	return updated, true
}

// DeleteTransaction removes transaction id. Unknown ids are a no-op, but
// the collections are still saved. It reports whether anything was removed.
func (b *Book) DeleteTransaction(ctx context.Context, id string) bool {
	txs := make([]core.Transaction, 0, len(b.transactions))
	var removed core.Transaction
	found := false
	for _, t := range b.transactions {
		if t.ID == id {
			removed, found = t, true
			continue
		}
		txs = append(txs, t)
	}
	b.transactions = txs
	b.lastErr = nil

	if !found {
		b.Save(ctx)
		return false
	}
	b.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldOperation, log.OpDelete, log.FieldTransactionID, id, log.FieldAccountID, removed.AccountID)
	b.commit(ctx, TransactionDeleted, id, removed.AccountID)
	return true
}

func (b *Book) indexOf(id string) int {
	for i, t := range b.transactions {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// block records why an operation did not happen. It always returns false.
func (b *Book) block(ctx context.Context, op string, err error) bool {
	b.lastErr = err
	b.logger.DebugContext(ctx, "Operation blocked",
		log.NewFields().WithOperation(op).WithError(err, log.ErrorTypeValidation).ToSlice()...)
	return false
}

// commit saves both collections and announces the change.
func (b *Book) commit(ctx context.Context, kind, id, accountID string) {
	b.Save(ctx)
	if b.notifier == nil {
		return
	}
	if err := b.notifier.PublishChange(ctx, kind, id, accountID); err != nil {
		b.logger.ErrorContext(ctx, "Failed to publish change",
			log.NewFields().WithOperation(kind).WithError(err, log.ErrorTypeNetwork).ToSlice()...)
	}
}
