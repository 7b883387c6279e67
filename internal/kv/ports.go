// Package kv defines the key-value persistence port used to save and load
// the cashbook collections, plus decorators shared by every adapter.
package kv

import "context"

// Fixed keys the cashbook collections are stored under.
const (
	AccountsKey     = "cashbook-accounts"
	TransactionsKey = "cashbook-transactions"
)

// Record is a stored value.
type Record struct {
	Value string
}

// Ports for outbound adapters.
type (
	Getter interface {
		// Get returns nil with a nil error when nothing is stored under key.
		Get(ctx context.Context, key string) (*Record, error)
	}

	Setter interface {
		Set(ctx context.Context, key, value string) error
	}

	Store interface {
		Getter
		Setter
	}
)

// Keys lists every key the cashbook writes, in save order.
func Keys() []string {
	return []string{AccountsKey, TransactionsKey}
}
