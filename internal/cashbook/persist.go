package cashbook

import (
	"context"
	"encoding/json"
	"fmt"

	"cashbook/internal/core"
	"cashbook/internal/kv"
	"cashbook/internal/log"

	"golang.org/x/sync/errgroup"
)

// Load replaces the in-memory collections with the stored snapshot.
//
// Both keys are read before anything is decoded. A failed read, or an
// accounts value that does not decode, leaves the book empty. A
// transactions value that does not decode keeps the decoded accounts.
// None of these are errors for the caller: the book simply starts fresh.
// The first account becomes current when nothing is selected.
func (b *Book) Load(ctx context.Context) {
	b.accounts, b.transactions = nil, nil

	accRec, txRec, err := fetchSnapshot(ctx, b.store)
	if err != nil {
		b.coldStart(ctx, err)
		return
	}

	if accRec != nil {
		accounts, err := DecodeAccounts(accRec.Value)
		if err != nil {
			b.coldStart(ctx, fmt.Errorf("decode accounts: %w", err))
			return
		}
		b.accounts = accounts
		if len(accounts) > 0 && b.current == "" {
			b.current = accounts[0].ID
		}
	}

	if txRec != nil {
		txs, err := DecodeTransactions(txRec.Value)
		if err != nil {
			b.coldStart(ctx, fmt.Errorf("decode transactions: %w", err))
			return
		}
		b.transactions = txs
	}

	b.logger.InfoContext(ctx, "Cashbook loaded",
		log.FieldOperation, log.OpLoad,
		"accounts", len(b.accounts),
		"transactions", len(b.transactions))
}

// fetchSnapshot reads both keys concurrently.
func fetchSnapshot(ctx context.Context, store kv.Getter) (accounts, transactions *kv.Record, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rec, err := store.Get(gctx, kv.AccountsKey)
		if err != nil {
			return fmt.Errorf("get %s: %w", kv.AccountsKey, err)
		}
		accounts = rec
		return nil
	})
	g.Go(func() error {
		rec, err := store.Get(gctx, kv.TransactionsKey)
		if err != nil {
			return fmt.Errorf("get %s: %w", kv.TransactionsKey, err)
		}
		transactions = rec
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return accounts, transactions, nil
}

func (b *Book) coldStart(ctx context.Context, err error) {
	b.logger.InfoContext(ctx, "No previous data found, starting fresh",
		log.NewFields().WithOperation(log.OpLoad).WithError(err, log.ErrorTypeStorage).ToSlice()...)
}

// Save writes accounts then transactions. If the first write fails the
// second is skipped. Failures are logged and swallowed: the in-memory
// state stays authoritative.
func (b *Book) Save(ctx context.Context) {
	if err := b.save(ctx); err != nil {
		b.logger.ErrorContext(ctx, "Error saving data",
			log.NewFields().WithOperation(log.OpSave).WithError(err, log.ErrorTypeStorage).ToSlice()...)
	}
}

func (b *Book) save(ctx context.Context) error {
	accounts, err := encodeCollection(b.accounts)
	if err != nil {
		return fmt.Errorf("encode accounts: %w", err)
	}
	transactions, err := encodeCollection(b.transactions)
	if err != nil {
		return fmt.Errorf("encode transactions: %w", err)
	}
	if err := b.store.Set(ctx, kv.AccountsKey, accounts); err != nil {
		return fmt.Errorf("set %s: %w", kv.AccountsKey, err)
	}
	if err := b.store.Set(ctx, kv.TransactionsKey, transactions); err != nil {
		return fmt.Errorf("set %s: %w", kv.TransactionsKey, err)
	}
	return nil
}

// encodeCollection always yields a JSON array, never null.
func encodeCollection[T any](items []T) (string, error) {
	if items == nil {
		items = []T{}
	}
	out, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// EncodeAccounts serializes accounts in the persisted layout.
func EncodeAccounts(accounts []core.Account) (string, error) {
	return encodeCollection(accounts)
}

// EncodeTransactions serializes transactions in the persisted layout.
func EncodeTransactions(txs []core.Transaction) (string, error) {
	return encodeCollection(txs)
}

// DecodeAccounts parses a persisted accounts value.
func DecodeAccounts(s string) ([]core.Account, error) {
	var out []core.Account
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeTransactions parses a persisted transactions value.
func DecodeTransactions(s string) ([]core.Transaction, error) {
	var out []core.Transaction
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, err
	}
	return out, nil
}
