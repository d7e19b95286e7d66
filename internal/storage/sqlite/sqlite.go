// Package sqlite implements the storage interface using SQLite.
//
// The store is split into focused files:
//   - sqlite.go: Store struct, New() constructor, schema, Close
//   - tasks.go: task CRUD and list queries
//   - subtasks.go: subtask CRUD and ordered list queries
//   - assignments.go: work assignment upserts and work session rows
//   - history.go: status history append, retract, list
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rkoval/taskforge/internal/storage"
	"github.com/rkoval/taskforge/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    project TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL CHECK(length(title) <= 500),
    description TEXT NOT NULL DEFAULT '',
    estimated_minutes INTEGER NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    priority TEXT NOT NULL DEFAULT 'medium',
    sequential INTEGER NOT NULL DEFAULT 0,
    assignees TEXT NOT NULL DEFAULT '[]',
    start_date DATETIME,
    deadline DATETIME,
    feedback TEXT,
    notes TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS subtasks (
    id TEXT PRIMARY KEY,
    task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
    title TEXT NOT NULL CHECK(length(title) <= 500),
    description TEXT NOT NULL DEFAULT '',
    estimated_minutes INTEGER NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    sequence_order INTEGER CHECK(sequence_order IS NULL OR sequence_order >= 1),
    assignee TEXT NOT NULL DEFAULT '',
    start_date DATETIME,
    deadline DATETIME,
    feedback TEXT,
    notes TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_subtasks_task ON subtasks(task_id);
CREATE INDEX IF NOT EXISTS idx_subtasks_status ON subtasks(status);

CREATE TABLE IF NOT EXISTS work_assignments (
    user TEXT NOT NULL,
    date TEXT NOT NULL,
    kind TEXT NOT NULL,
    item_id TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'assigned',
    estimated_minutes INTEGER NOT NULL DEFAULT 0,
    actual_minutes INTEGER,
    breakdown TEXT,
    note TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user, date, kind, item_id)
);
CREATE INDEX IF NOT EXISTS idx_assignments_item ON work_assignments(kind, item_id);

CREATE TABLE IF NOT EXISTS work_sessions (
    id TEXT PRIMARY KEY,
    user TEXT NOT NULL,
    date TEXT NOT NULL,
    kind TEXT NOT NULL,
    item_id TEXT NOT NULL,
    minutes INTEGER NOT NULL,
    note TEXT NOT NULL DEFAULT '',
    logged_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_sessions_user_item ON work_sessions(user, kind, item_id);

CREATE TABLE IF NOT EXISTS status_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    kind TEXT NOT NULL,
    item_id TEXT NOT NULL,
    task_id TEXT NOT NULL DEFAULT '',
    changed_by TEXT,
    previous_status TEXT NOT NULL,
    new_status TEXT NOT NULL,
    changed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    metadata TEXT
);
CREATE INDEX IF NOT EXISTS idx_history_item ON status_history(kind, item_id, id);
`

// Store implements storage.Storage on a SQLite database file.
type Store struct {
	db   *sql.DB
	path string
}

var _ storage.Storage = (*Store)(nil)

// New opens (creating if needed) a SQLite database at path and initializes
// the schema. Use ":memory:" for an ephemeral database.
func New(ctx context.Context, path string) (*Store, error) {
	var connStr string
	if path == ":memory:" {
		connStr = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		connStr = "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(30000)"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == ":memory:" {
		// In-memory databases are per-connection; keep the pool at one so
		// every query sees the same data.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	} else {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// marshalJSON encodes a value as a nullable JSON column. Nil pointers map
// to NULL.
func marshalJSON(v interface{}) (sql.NullString, error) {
	switch x := v.(type) {
	case *types.Feedback:
		if x == nil {
			return sql.NullString{}, nil
		}
	case *types.TimeBreakdown:
		if x == nil {
			return sql.NullString{}, nil
		}
	case *types.HistoryMetadata:
		if x == nil {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func marshalNote(n *types.Note) (sql.NullString, error) {
	data, err := types.EncodeNote(n)
	if err != nil {
		return sql.NullString{}, err
	}
	if data == nil {
		return sql.NullString{}, nil
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalNote(col sql.NullString) (*types.Note, error) {
	if !col.Valid {
		return nil, nil
	}
	return types.DecodeNote([]byte(col.String))
}

func marshalAssignees(assignees []string) (string, error) {
	if assignees == nil {
		assignees = []string{}
	}
	data, err := json.Marshal(assignees)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalAssignees(col string) ([]string, error) {
	if strings.TrimSpace(col) == "" || col == "[]" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(col), &out); err != nil {
		return nil, fmt.Errorf("failed to decode assignees: %w", err)
	}
	return out, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
