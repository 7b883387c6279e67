// Package backend builds the key-value store selected by configuration.
package backend

import (
	"context"
	"time"

	"cashbook/internal/kv"
	"cashbook/internal/kv/sheets"
)

// CleanupFunc releases whatever the store holds open.
type CleanupFunc func() error

// StoreResult contains the store and an optional cleanup function
type StoreResult struct {
	Store   kv.Store
	Cleanup CleanupFunc
}

// Factory creates stores based on configuration
type Factory interface {
	CreateStore(ctx context.Context, config Config) (*StoreResult, error)
}

// Config holds configuration for store creation
type Config struct {
	Type BackendType

	// File specific
	DataFile string

	// SQLite specific
	SQLiteDBPath string

	// Google Sheets specific
	Sheets sheets.Config

	// Read cache, applied to the sheets backend only
	CacheTTL  time.Duration
	CacheSize int
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	FileBackend   BackendType = "file"
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, FileBackend, SQLiteBackend, SheetsBackend:
		return true
	default:
		return false
	}
}
