package cashbook

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"cashbook/internal/core"
	"cashbook/internal/kv"
	"cashbook/internal/kv/memory"
)

var fixedNow = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestBook(store kv.Store, opts ...Option) *Book {
	opts = append([]Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(sequentialIDs()),
	}, opts...)
	return New(store, opts...)
}

type change struct {
	kind, id, accountID string
}

type recordingNotifier struct {
	changes []change
	err     error
}

func (n *recordingNotifier) PublishChange(_ context.Context, kind, id, accountID string) error {
	n.changes = append(n.changes, change{kind, id, accountID})
	return n.err
}

type failingStore struct {
	getErr error
	setErr error
	sets   []string
}

func (s *failingStore) Get(context.Context, string) (*kv.Record, error) {
	return nil, s.getErr
}

func (s *failingStore) Set(_ context.Context, key, _ string) error {
	s.sets = append(s.sets, key)
	return s.setErr
}

func strPtr(s string) *string { return &s }

func TestEndToEndBalance(t *testing.T) {
	ctx := context.Background()
	b := newTestBook(memory.New())

	if _, ok := b.CreateAccount(ctx, "Personal", core.Personal); !ok {
		t.Fatalf("create account blocked: %v", b.LastError())
	}
	if _, ok := b.CreateTransaction(ctx, core.TransactionInput{Type: core.Income, Amount: "500", Note: "Salary", Date: "2024-01-01"}); !ok {
		t.Fatalf("income blocked: %v", b.LastError())
	}
	if _, ok := b.CreateTransaction(ctx, core.TransactionInput{Type: core.Expense, Amount: "120.50", Note: "Groceries", Date: "2024-01-02"}); !ok {
		t.Fatalf("expense blocked: %v", b.LastError())
	}

	got := b.Summary()
	want := Summary{TotalIncome: 500, TotalExpense: 120.5, Balance: 379.5}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestCreateAccount(t *testing.T) {
	ctx := context.Background()
	b := newTestBook(memory.New())

	acc, ok := b.CreateAccount(ctx, "Shop", core.Business)
	if !ok {
		t.Fatalf("unexpected block: %v", b.LastError())
	}
	if acc.Name != "Shop" || acc.Type != core.Business || acc.ID != "id-1" || !acc.CreatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected account %+v", acc)
	}
	if len(b.Accounts()) != 1 || b.CurrentAccount() != acc.ID {
		t.Fatalf("first account should be stored and selected")
	}

	second, _ := b.CreateAccount(ctx, "Home", core.Personal)
	if len(b.Accounts()) != 2 || b.CurrentAccount() != acc.ID {
		t.Fatalf("second account must not steal the selection")
	}
	if second.ID != "id-2" {
		t.Fatalf("expected id-2, got %s", second.ID)
	}
}

func TestCreateAccountBlocked(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{}
	b := newTestBook(store)

	cases := []struct {
		name string
		typ  core.AccountType
		err  error
	}{
		{"", core.Personal, core.ErrEmptyName},
		{"   ", core.Business, core.ErrEmptyName},
		{"Shop", core.AccountType("savings"), core.ErrInvalidAccountType},
	}
	for _, tc := range cases {
		if _, ok := b.CreateAccount(ctx, tc.name, tc.typ); ok {
			t.Fatalf("%q should be blocked", tc.name)
		}
		if !errors.Is(b.LastError(), tc.err) {
			t.Fatalf("%q expected %v, got %v", tc.name, tc.err, b.LastError())
		}
	}
	if len(b.Accounts()) != 0 || b.CurrentAccount() != "" {
		t.Fatalf("blocked creates must not change state")
	}
	if len(store.sets) != 0 {
		t.Fatalf("blocked creates must not save, got %v", store.sets)
	}

	acc, _ := b.CreateAccount(ctx, "Shop", core.Business)
	if acc.ID != "id-1" {
		t.Fatalf("blocked creates must not consume ids, got %s", acc.ID)
	}
}

func TestCreateTransactionBlocked(t *testing.T) {
	ctx := context.Background()
	b := newTestBook(memory.New())

	if _, ok := b.CreateTransaction(ctx, core.TransactionInput{Type: core.Income, Amount: "10"}); ok {
		t.Fatalf("no current account should block")
	}
	if !errors.Is(b.LastError(), core.ErrNoCurrentAccount) {
		t.Fatalf("unexpected error %v", b.LastError())
	}

	b.CreateAccount(ctx, "Personal", core.Personal)
	cases := []struct {
		in  core.TransactionInput
		err error
	}{
		{core.TransactionInput{Type: core.Income, Amount: ""}, core.ErrInvalidAmount},
		{core.TransactionInput{Type: core.Income, Amount: "abc"}, core.ErrInvalidAmount},
		{core.TransactionInput{Type: "transfer", Amount: "1"}, core.ErrInvalidTransactionType},
		{core.TransactionInput{Type: core.Expense, Amount: "1", Date: "yesterday"}, core.ErrInvalidDate},
	}
	for _, tc := range cases {
		if _, ok := b.CreateTransaction(ctx, tc.in); ok {
			t.Fatalf("%+v should be blocked", tc.in)
		}
		if !errors.Is(b.LastError(), tc.err) {
			t.Fatalf("%+v expected %v, got %v", tc.in, tc.err, b.LastError())
		}
	}
	if len(b.Transactions()) != 0 {
		t.Fatalf("blocked creates must not change state")
	}
}

func TestCreateTransactionDefaults(t *testing.T) {
	ctx := context.Background()
	b := newTestBook(memory.New())
	acc, _ := b.CreateAccount(ctx, "Personal", core.Personal)

	tx, ok := b.CreateTransaction(ctx, core.TransactionInput{Type: core.Expense, Amount: "-4,25", Note: "refund fix"})
	if !ok {
		t.Fatalf("unexpected block: %v", b.LastError())
	}
	if tx.AccountID != acc.ID || tx.Amount != -4.25 || tx.Date.String() != "2024-05-10" {
		t.Fatalf("unexpected transaction %+v", tx)
	}
	if b.LastError() != nil {
		t.Fatalf("successful create must clear the last error")
	}
}

func TestUpdateTransaction(t *testing.T) {
	ctx := context.Background()
	b := newTestBook(memory.New())
	acc, _ := b.CreateAccount(ctx, "Personal", core.Personal)
	orig, _ := b.CreateTransaction(ctx, core.TransactionInput{Type: core.Income, Amount: "500", Note: "Salary", Date: "2024-01-01"})
	other, _ := b.CreateTransaction(ctx, core.TransactionInput{Type: core.Expense, Amount: "5", Note: "Tea", Date: "2024-01-03"})

	expense := core.Expense
	updated, ok := b.UpdateTransaction(ctx, orig.ID, core.TransactionPatch{
		Type:   &expense,
		Amount: strPtr("42.5"),
		Note:   strPtr("Rent"),
		Date:   strPtr("2024-02-01"),
	})
	if !ok {
		t.Fatalf("unexpected block: %v", b.LastError())
	}
	if updated.ID != orig.ID || updated.AccountID != acc.ID || !updated.CreatedAt.Equal(orig.CreatedAt) {
		t.Fatalf("identity not preserved: %+v", updated)
	}
	if updated.Type != core.Expense || updated.Amount != 42.5 || updated.Note != "Rent" || updated.Date.String() != "2024-02-01" {
		t.Fatalf("patch not applied: %+v", updated)
	}

	stored, _ := b.Transaction(orig.ID)
	if stored != updated {
		t.Fatalf("stored %+v differs from returned %+v", stored, updated)
	}
	if got, _ := b.Transaction(other.ID); got != other {
		t.Fatalf("other transaction changed: %+v", got)
	}

	// A nil amount keeps the stored one.
	again, ok := b.UpdateTransaction(ctx, orig.ID, core.TransactionPatch{Note: strPtr("Rent March")})
	if !ok || again.Amount != 42.5 || again.Note != "Rent March" {
		t.Fatalf("partial patch failed: %+v ok=%v", again, ok)
	}
}

func TestUpdateTransactionBlocked(t *testing.T) {
	ctx := context.Background()
	b := newTestBook(memory.New())
	b.CreateAccount(ctx, "Personal", core.Personal)
	tx, _ := b.CreateTransaction(ctx, core.TransactionInput{Type: core.Income, Amount: "10", Note: "a", Date: "2024-01-01"})

	cases := []struct {
		id    string
		patch core.TransactionPatch
		err   error
	}{
		{"missing", core.TransactionPatch{Note: strPtr("x")}, core.ErrTransactionNotFound},
		{tx.ID, core.TransactionPatch{Amount: strPtr("")}, core.ErrInvalidAmount},
		{tx.ID, core.TransactionPatch{Amount: strPtr("ten")}, core.ErrInvalidAmount},
		{tx.ID, core.TransactionPatch{Date: strPtr("2024-13-40")}, core.ErrInvalidDate},
	}
	for _, tc := range cases {
		if _, ok := b.UpdateTransaction(ctx, tc.id, tc.patch); ok {
			t.Fatalf("update of %s should be blocked", tc.id)
		}
		if !errors.Is(b.LastError(), tc.err) {
			t.Fatalf("expected %v, got %v", tc.err, b.LastError())
		}
	}
	if got, _ := b.Transaction(tx.ID); got != tx {
		t.Fatalf("blocked update changed the transaction: %+v", got)
	}
}

func TestDeleteTransactionIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	n := &recordingNotifier{}
	b := newTestBook(store, WithNotifier(n))
	b.CreateAccount(ctx, "Personal", core.Personal)
	a, _ := b.CreateTransaction(ctx, core.TransactionInput{Type: core.Income, Amount: "1", Date: "2024-01-01"})
	c, _ := b.CreateTransaction(ctx, core.TransactionInput{Type: core.Income, Amount: "2", Date: "2024-01-02"})

	if !b.DeleteTransaction(ctx, a.ID) {
		t.Fatalf("first delete should remove the transaction")
	}
	after := b.Transactions()
	if b.DeleteTransaction(ctx, a.ID) {
		t.Fatalf("second delete should report nothing removed")
	}
	if !reflect.DeepEqual(after, b.Transactions()) {
		t.Fatalf("second delete changed the collection")
	}
	if len(after) != 1 || after[0].ID != c.ID {
		t.Fatalf("unexpected remaining transactions %+v", after)
	}

	deletes := 0
	for _, ch := range n.changes {
		if ch.kind == TransactionDeleted {
			deletes++
		}
	}
	if deletes != 1 {
		t.Fatalf("expected one delete event, got %d", deletes)
	}
}

func TestMutationsPersistBothKeys(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	b := newTestBook(store)
	b.CreateAccount(ctx, "Personal", core.Personal)
	b.CreateTransaction(ctx, core.TransactionInput{Type: core.Income, Amount: "7", Note: "tip", Date: "2024-01-01"})

	accRec, _ := store.Get(ctx, kv.AccountsKey)
	txRec, _ := store.Get(ctx, kv.TransactionsKey)
	if accRec == nil || txRec == nil {
		t.Fatalf("both keys must be written")
	}

	reloaded := newTestBook(store)
	reloaded.Load(ctx)
	if !reflect.DeepEqual(reloaded.Accounts(), b.Accounts()) {
		t.Fatalf("accounts differ after reload: %+v vs %+v", reloaded.Accounts(), b.Accounts())
	}
	if !reflect.DeepEqual(reloaded.Transactions(), b.Transactions()) {
		t.Fatalf("transactions differ after reload")
	}
	if reloaded.CurrentAccount() != b.Accounts()[0].ID {
		t.Fatalf("first account should be selected after load")
	}
}

func TestEmptyCollectionsPersistAsArrays(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	b := newTestBook(store)
	b.DeleteTransaction(ctx, "nothing")

	rec, _ := store.Get(ctx, kv.TransactionsKey)
	if rec == nil || rec.Value != "[]" {
		t.Fatalf("expected [], got %+v", rec)
	}
}

func TestSaveFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{setErr: errors.New("disk full")}
	b := newTestBook(store)

	acc, ok := b.CreateAccount(ctx, "Personal", core.Personal)
	if !ok || len(b.Accounts()) != 1 || b.CurrentAccount() != acc.ID {
		t.Fatalf("state must be updated even when saving fails")
	}
	if b.LastError() != nil {
		t.Fatalf("save failures are not operation errors")
	}
	if !reflect.DeepEqual(store.sets, []string{kv.AccountsKey}) {
		t.Fatalf("transactions write should be skipped after accounts fail, got %v", store.sets)
	}
}

func TestNotifierFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	n := &recordingNotifier{err: errors.New("broker down")}
	b := newTestBook(memory.New(), WithNotifier(n))

	acc, ok := b.CreateAccount(ctx, "Personal", core.Personal)
	if !ok {
		t.Fatalf("publish failure must not block")
	}
	tx, _ := b.CreateTransaction(ctx, core.TransactionInput{Type: core.Income, Amount: "3", Date: "2024-01-01"})
	b.UpdateTransaction(ctx, tx.ID, core.TransactionPatch{Note: strPtr("n")})

	want := []change{
		{AccountCreated, acc.ID, acc.ID},
		{TransactionCreated, tx.ID, acc.ID},
		{TransactionUpdated, tx.ID, acc.ID},
	}
	if !reflect.DeepEqual(n.changes, want) {
		t.Fatalf("expected %+v, got %+v", want, n.changes)
	}
}
