package factory

import (
	"context"
	"errors"
	"testing"

	"github.com/rkoval/taskforge/internal/storage"
)

func TestNewMemory(t *testing.T) {
	s, err := New(context.Background(), BackendMemory, Options{})
	if err != nil {
		t.Fatalf("New(memory) error: %v", err)
	}
	defer s.Close()
}

func TestNewSQLiteRequiresPath(t *testing.T) {
	_, err := New(context.Background(), BackendSQLite, Options{})
	if !errors.Is(err, storage.ErrNotInitialized) {
		t.Errorf("New(sqlite, no path) error = %v, want ErrNotInitialized", err)
	}
}

func TestNewPostgresRequiresDSN(t *testing.T) {
	_, err := New(context.Background(), BackendPostgres, Options{})
	if !errors.Is(err, storage.ErrNotInitialized) {
		t.Errorf("New(postgres, no dsn) error = %v, want ErrNotInitialized", err)
	}
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New(context.Background(), "couchdb", Options{})
	if err == nil {
		t.Error("New(couchdb) did not error")
	}
}
