// Package postgres implements the storage interface on PostgreSQL via pgx.
// It is the shared-database backend for teams running taskforge against a
// central server; the sqlite backend remains the single-machine default.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rkoval/taskforge/internal/storage"
	"github.com/rkoval/taskforge/internal/types"
)

// Store implements storage.Storage on a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Storage = (*Store)(nil)

// New connects to PostgreSQL with the given DSN and ensures the schema.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id                TEXT PRIMARY KEY,
			project           TEXT NOT NULL DEFAULT '',
			title             TEXT NOT NULL CHECK(length(title) <= 500),
			description       TEXT NOT NULL DEFAULT '',
			estimated_minutes INTEGER NOT NULL,
			status            TEXT NOT NULL DEFAULT 'pending',
			priority          TEXT NOT NULL DEFAULT 'medium',
			sequential        BOOLEAN NOT NULL DEFAULT FALSE,
			assignees         JSONB NOT NULL DEFAULT '[]',
			start_date        TIMESTAMPTZ,
			deadline          TIMESTAMPTZ,
			feedback          JSONB,
			notes             JSONB,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS subtasks (
			id                TEXT PRIMARY KEY,
			task_id           TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
			title             TEXT NOT NULL CHECK(length(title) <= 500),
			description       TEXT NOT NULL DEFAULT '',
			estimated_minutes INTEGER NOT NULL,
			status            TEXT NOT NULL DEFAULT 'pending',
			sequence_order    INTEGER CHECK(sequence_order IS NULL OR sequence_order >= 1),
			assignee          TEXT NOT NULL DEFAULT '',
			start_date        TIMESTAMPTZ,
			deadline          TIMESTAMPTZ,
			feedback          JSONB,
			notes             JSONB,
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_subtasks_task ON subtasks(task_id)`,
		`CREATE TABLE IF NOT EXISTS work_assignments (
			"user"            TEXT NOT NULL,
			date              TEXT NOT NULL,
			kind              TEXT NOT NULL,
			item_id           TEXT NOT NULL,
			status            TEXT NOT NULL DEFAULT 'assigned',
			estimated_minutes INTEGER NOT NULL DEFAULT 0,
			actual_minutes    INTEGER,
			breakdown         JSONB,
			note              TEXT NOT NULL DEFAULT '',
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY ("user", date, kind, item_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_item ON work_assignments(kind, item_id)`,
		`CREATE TABLE IF NOT EXISTS work_sessions (
			id        TEXT PRIMARY KEY,
			"user"    TEXT NOT NULL,
			date      TEXT NOT NULL,
			kind      TEXT NOT NULL,
			item_id   TEXT NOT NULL,
			minutes   INTEGER NOT NULL,
			note      TEXT NOT NULL DEFAULT '',
			logged_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_item ON work_sessions("user", kind, item_id)`,
		`CREATE TABLE IF NOT EXISTS status_history (
			id              BIGSERIAL PRIMARY KEY,
			kind            TEXT NOT NULL,
			item_id         TEXT NOT NULL,
			task_id         TEXT NOT NULL DEFAULT '',
			changed_by      TEXT,
			previous_status TEXT NOT NULL,
			new_status      TEXT NOT NULL,
			changed_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			metadata        JSONB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_item ON status_history(kind, item_id, id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func jsonOrNil(v interface{}, isNil bool) ([]byte, error) {
	if isNil {
		return nil, nil
	}
	return json.Marshal(v)
}

// CreateTask inserts a new task row.
func (s *Store) CreateTask(ctx context.Context, task *types.Task) error {
	assignees, err := json.Marshal(orEmpty(task.Assignees))
	if err != nil {
		return err
	}
	feedback, err := jsonOrNil(task.Feedback, task.Feedback == nil)
	if err != nil {
		return err
	}
	notes, err := types.EncodeNote(task.Notes)
	if err != nil {
		return err
	}

	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	_, err = s.pool.Exec(ctx, `
		INSERT INTO tasks (id, project, title, description, estimated_minutes, status, priority,
			sequential, assignees, start_date, deadline, feedback, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		task.ID, task.Project, task.Title, task.Description, task.EstimatedMinutes,
		string(task.Status), string(task.Priority), task.Sequential, assignees,
		task.StartDate, task.Deadline, feedback, notes, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task %s: %w", task.ID, err)
	}
	return nil
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

const taskColumns = `id, project, title, description, estimated_minutes, status, priority,
	sequential, assignees, start_date, deadline, feedback, notes, created_at, updated_at`

// GetTask retrieves a task by ID.
func (s *Store) GetTask(ctx context.Context, id string) (*types.Task, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return task, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*types.Task, error) {
	var t types.Task
	var status, priority string
	var assignees, feedback, notes []byte

	err := row.Scan(&t.ID, &t.Project, &t.Title, &t.Description, &t.EstimatedMinutes,
		&status, &priority, &t.Sequential, &assignees, &t.StartDate, &t.Deadline,
		&feedback, &notes, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	t.Status = types.Status(status)
	t.Priority = types.Priority(priority)
	var names []string
	if err := json.Unmarshal(assignees, &names); err != nil {
		return nil, fmt.Errorf("failed to decode assignees: %w", err)
	}
	if len(names) > 0 {
		t.Assignees = names
	}
	if len(feedback) > 0 {
		var f types.Feedback
		if err := json.Unmarshal(feedback, &f); err != nil {
			return nil, fmt.Errorf("failed to decode feedback: %w", err)
		}
		t.Feedback = &f
	}
	if t.Notes, err = types.DecodeNote(notes); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTask applies field updates to a task. Unknown keys are rejected.
func (s *Store) UpdateTask(ctx context.Context, id string, updates map[string]interface{}) error {
	setClauses := []string{"updated_at = $1"}
	args := []interface{}{time.Now()}

	appendClause := func(col string, v interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, len(args)+1))
		args = append(args, v)
	}

	for k, v := range updates {
		switch k {
		case "title", "description", "project":
			appendClause(k, v.(string))
		case "status":
			appendClause("status", string(v.(types.Status)))
		case "priority":
			appendClause("priority", string(v.(types.Priority)))
		case "estimated_minutes":
			appendClause("estimated_minutes", v.(int))
		case "sequential":
			appendClause("sequential", v.(bool))
		case "assignees":
			encoded, err := json.Marshal(orEmpty(v.([]string)))
			if err != nil {
				return err
			}
			appendClause("assignees", encoded)
		case "start_date":
			appendClause("start_date", v.(*time.Time))
		case "deadline":
			appendClause("deadline", v.(*time.Time))
		case "feedback":
			f := v.(*types.Feedback)
			encoded, err := jsonOrNil(f, f == nil)
			if err != nil {
				return err
			}
			appendClause("feedback", encoded)
		case "notes":
			encoded, err := types.EncodeNote(v.(*types.Note))
			if err != nil {
				return err
			}
			appendClause("notes", encoded)
		default:
			return fmt.Errorf("unknown task field: %s", k)
		}
	}

	args = append(args, id)
	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE tasks SET %s WHERE id = $%d`, strings.Join(setClauses, ", "), len(args)),
		args...)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteTask removes a task row. Subtask rows cascade.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListTasks returns tasks matching the filter, ordered by creation time.
func (s *Store) ListTasks(ctx context.Context, filter types.TaskFilter) ([]*types.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE TRUE`
	var args []interface{}
	arg := func(v interface{}) int {
		args = append(args, v)
		return len(args)
	}

	if filter.Status != nil {
		query += fmt.Sprintf(` AND status = $%d`, arg(string(*filter.Status)))
	}
	if filter.Priority != nil {
		query += fmt.Sprintf(` AND priority = $%d`, arg(string(*filter.Priority)))
	}
	if filter.Project != "" {
		query += fmt.Sprintf(` AND project = $%d`, arg(filter.Project))
	}
	if filter.Sequential != nil {
		query += fmt.Sprintf(` AND sequential = $%d`, arg(*filter.Sequential))
	}
	if filter.Assignee != nil {
		query += fmt.Sprintf(` AND assignees ? $%d`, arg(*filter.Assignee))
	}
	if filter.TitleSearch != "" {
		query += fmt.Sprintf(` AND title ILIKE $%d`, arg("%"+filter.TitleSearch+"%"))
	}
	query += ` ORDER BY created_at, id`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, arg(filter.Limit))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var out []*types.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateSubtask inserts a new subtask row. The parent task must exist.
func (s *Store) CreateSubtask(ctx context.Context, sub *types.Subtask) error {
	var exists int
	err := s.pool.QueryRow(ctx, `SELECT 1 FROM tasks WHERE id = $1`, sub.TaskID).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return err
	}

	feedback, err := jsonOrNil(sub.Feedback, sub.Feedback == nil)
	if err != nil {
		return err
	}
	notes, err := types.EncodeNote(sub.Notes)
	if err != nil {
		return err
	}

	now := time.Now()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	_, err = s.pool.Exec(ctx, `
		INSERT INTO subtasks (id, task_id, title, description, estimated_minutes, status,
			sequence_order, assignee, start_date, deadline, feedback, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		sub.ID, sub.TaskID, sub.Title, sub.Description, sub.EstimatedMinutes,
		string(sub.Status), sub.SequenceOrder, sub.Assignee, sub.StartDate, sub.Deadline,
		feedback, notes, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create subtask %s: %w", sub.ID, err)
	}
	return nil
}

const subtaskColumns = `id, task_id, title, description, estimated_minutes, status,
	sequence_order, assignee, start_date, deadline, feedback, notes, created_at, updated_at`

// GetSubtask retrieves a subtask by ID.
func (s *Store) GetSubtask(ctx context.Context, id string) (*types.Subtask, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+subtaskColumns+` FROM subtasks WHERE id = $1`, id)
	sub, err := scanSubtask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return sub, err
}

func scanSubtask(row rowScanner) (*types.Subtask, error) {
	var sub types.Subtask
	var status string
	var feedback, notes []byte

	err := row.Scan(&sub.ID, &sub.TaskID, &sub.Title, &sub.Description, &sub.EstimatedMinutes,
		&status, &sub.SequenceOrder, &sub.Assignee, &sub.StartDate, &sub.Deadline,
		&feedback, &notes, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}

	sub.Status = types.Status(status)
	if len(feedback) > 0 {
		var f types.Feedback
		if err := json.Unmarshal(feedback, &f); err != nil {
			return nil, fmt.Errorf("failed to decode feedback: %w", err)
		}
		sub.Feedback = &f
	}
	if sub.Notes, err = types.DecodeNote(notes); err != nil {
		return nil, err
	}
	return &sub, nil
}

// UpdateSubtask applies field updates to a subtask. Unknown keys are rejected.
func (s *Store) UpdateSubtask(ctx context.Context, id string, updates map[string]interface{}) error {
	setClauses := []string{"updated_at = $1"}
	args := []interface{}{time.Now()}

	appendClause := func(col string, v interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", col, len(args)+1))
		args = append(args, v)
	}

	for k, v := range updates {
		switch k {
		case "title", "description", "assignee":
			appendClause(k, v.(string))
		case "status":
			appendClause("status", string(v.(types.Status)))
		case "estimated_minutes":
			appendClause("estimated_minutes", v.(int))
		case "sequence_order":
			appendClause("sequence_order", v.(*int))
		case "start_date":
			appendClause("start_date", v.(*time.Time))
		case "deadline":
			appendClause("deadline", v.(*time.Time))
		case "feedback":
			f := v.(*types.Feedback)
			encoded, err := jsonOrNil(f, f == nil)
			if err != nil {
				return err
			}
			appendClause("feedback", encoded)
		case "notes":
			encoded, err := types.EncodeNote(v.(*types.Note))
			if err != nil {
				return err
			}
			appendClause("notes", encoded)
		default:
			return fmt.Errorf("unknown subtask field: %s", k)
		}
	}

	args = append(args, id)
	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE subtasks SET %s WHERE id = $%d`, strings.Join(setClauses, ", "), len(args)),
		args...)
	if err != nil {
		return fmt.Errorf("failed to update subtask %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteSubtask removes a subtask row.
func (s *Store) DeleteSubtask(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM subtasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subtask %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListSubtasks returns subtasks matching the filter, ordered by sequence
// level (unordered last) then creation time.
func (s *Store) ListSubtasks(ctx context.Context, filter types.SubtaskFilter) ([]*types.Subtask, error) {
	query := `SELECT ` + subtaskColumns + ` FROM subtasks WHERE TRUE`
	var args []interface{}
	arg := func(v interface{}) int {
		args = append(args, v)
		return len(args)
	}

	if filter.TaskID != "" {
		query += fmt.Sprintf(` AND task_id = $%d`, arg(filter.TaskID))
	}
	if filter.Status != nil {
		query += fmt.Sprintf(` AND status = $%d`, arg(string(*filter.Status)))
	}
	if filter.Assignee != nil {
		query += fmt.Sprintf(` AND assignee = $%d`, arg(*filter.Assignee))
	}
	query += ` ORDER BY sequence_order NULLS LAST, created_at, id`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, arg(filter.Limit))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list subtasks: %w", err)
	}
	defer rows.Close()

	var out []*types.Subtask
	for rows.Next() {
		sub, err := scanSubtask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}
