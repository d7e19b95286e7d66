// Package factory creates storage backends based on configuration.
package factory

import (
	"context"
	"fmt"

	"github.com/rkoval/taskforge/internal/storage"
	"github.com/rkoval/taskforge/internal/storage/memory"
	"github.com/rkoval/taskforge/internal/storage/postgres"
	"github.com/rkoval/taskforge/internal/storage/sqlite"
)

// Backend name constants
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Options configures how the storage backend is opened.
type Options struct {
	// Path is the database file path (sqlite).
	Path string
	// DSN is the connection string (postgres).
	DSN string
}

// New creates a storage backend by name. Empty backend defaults to sqlite.
func New(ctx context.Context, backend string, opts Options) (storage.Storage, error) {
	switch backend {
	case "", BackendSQLite:
		if opts.Path == "" {
			return nil, fmt.Errorf("sqlite backend requires a database path: %w", storage.ErrNotInitialized)
		}
		return sqlite.New(ctx, opts.Path)
	case BackendPostgres:
		if opts.DSN == "" {
			return nil, fmt.Errorf("postgres backend requires a connection string: %w", storage.ErrNotInitialized)
		}
		return postgres.New(ctx, opts.DSN)
	case BackendMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: sqlite, postgres, memory)", backend)
	}
}
