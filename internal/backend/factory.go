package backend

import (
	"context"
	"fmt"

	"cashbook/internal/kv"
	"cashbook/internal/kv/file"
	"cashbook/internal/kv/memory"
	"cashbook/internal/kv/sheets"
	"cashbook/internal/kv/sqlite"
	"cashbook/internal/log"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateStore implements Factory.CreateStore
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (*StoreResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		return f.createMemoryStore()
	case FileBackend:
		return f.createFileStore(config)
	case SQLiteBackend:
		return f.createSQLiteStore(config)
	case SheetsBackend:
		return f.createSheetsStore(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createMemoryStore() (*StoreResult, error) {
	f.logger.Warn("Initialized memory backend, data is lost on restart")
	return &StoreResult{Store: memory.New()}, nil
}

func (f *DefaultFactory) createFileStore(config Config) (*StoreResult, error) {
	store := file.New(config.DataFile)
	f.logger.Info("Initialized file backend", "path", store.Path())
	return &StoreResult{Store: store}, nil
}

func (f *DefaultFactory) createSQLiteStore(config Config) (*StoreResult, error) {
	store, err := sqlite.New(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &StoreResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}

// createSheetsStore puts a read cache in front of the Sheets API, which is
// slow and rate limited.
func (f *DefaultFactory) createSheetsStore(ctx context.Context, config Config) (*StoreResult, error) {
	client, err := sheets.New(ctx, config.Sheets)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	size := config.CacheSize
	if size < 1 {
		size = len(kv.Keys())
	}

	f.logger.Info("Initialized Google Sheets backend",
		"spreadsheet_id", config.Sheets.SpreadsheetID,
		"sheet", config.Sheets.SheetName,
		"cache_ttl", config.CacheTTL)

	return &StoreResult{
		Store: kv.NewCached(client, size, config.CacheTTL),
	}, nil
}
