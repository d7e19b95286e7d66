package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rkoval/taskforge/internal/storage"
	"github.com/rkoval/taskforge/internal/types"
)

const taskColumns = `id, project, title, description, estimated_minutes, status, priority,
	sequential, assignees, start_date, deadline, feedback, notes, created_at, updated_at`

// CreateTask inserts a new task row.
func (s *Store) CreateTask(ctx context.Context, task *types.Task) error {
	assignees, err := marshalAssignees(task.Assignees)
	if err != nil {
		return fmt.Errorf("failed to encode assignees: %w", err)
	}
	feedback, err := marshalJSON(task.Feedback)
	if err != nil {
		return fmt.Errorf("failed to encode feedback: %w", err)
	}
	notes, err := marshalNote(task.Notes)
	if err != nil {
		return fmt.Errorf("failed to encode notes: %w", err)
	}

	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, project, title, description, estimated_minutes, status, priority,
			sequential, assignees, start_date, deadline, feedback, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Project, task.Title, task.Description, task.EstimatedMinutes,
		string(task.Status), string(task.Priority), task.Sequential, assignees,
		nullTime(task.StartDate), nullTime(task.Deadline), feedback, notes,
		task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create task %s: %w", task.ID, err)
	}
	return nil
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(ctx context.Context, id string) (*types.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return task, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*types.Task, error) {
	var t types.Task
	var status, priority, assignees string
	var sequential bool
	var startDate, deadline sql.NullTime
	var feedback, notes sql.NullString

	err := row.Scan(&t.ID, &t.Project, &t.Title, &t.Description, &t.EstimatedMinutes,
		&status, &priority, &sequential, &assignees, &startDate, &deadline,
		&feedback, &notes, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	t.Status = types.Status(status)
	t.Priority = types.Priority(priority)
	t.Sequential = sequential
	t.StartDate = timePtr(startDate)
	t.Deadline = timePtr(deadline)
	if t.Assignees, err = unmarshalAssignees(assignees); err != nil {
		return nil, err
	}
	if feedback.Valid {
		var f types.Feedback
		if err := json.Unmarshal([]byte(feedback.String), &f); err != nil {
			return nil, fmt.Errorf("failed to decode feedback: %w", err)
		}
		t.Feedback = &f
	}
	if t.Notes, err = unmarshalNote(notes); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateTask applies field updates to a task. Unknown keys are rejected.
func (s *Store) UpdateTask(ctx context.Context, id string, updates map[string]interface{}) error {
	setClauses, args, err := buildTaskUpdate(updates)
	if err != nil {
		return err
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET `+strings.Join(setClauses, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func buildTaskUpdate(updates map[string]interface{}) ([]string, []interface{}, error) {
	var setClauses []string
	var args []interface{}

	for k, v := range updates {
		switch k {
		case "title", "description", "project":
			setClauses = append(setClauses, k+" = ?")
			args = append(args, v.(string))
		case "status":
			setClauses = append(setClauses, "status = ?")
			args = append(args, string(v.(types.Status)))
		case "priority":
			setClauses = append(setClauses, "priority = ?")
			args = append(args, string(v.(types.Priority)))
		case "estimated_minutes":
			setClauses = append(setClauses, "estimated_minutes = ?")
			args = append(args, v.(int))
		case "sequential":
			setClauses = append(setClauses, "sequential = ?")
			args = append(args, v.(bool))
		case "assignees":
			encoded, err := marshalAssignees(v.([]string))
			if err != nil {
				return nil, nil, err
			}
			setClauses = append(setClauses, "assignees = ?")
			args = append(args, encoded)
		case "start_date":
			setClauses = append(setClauses, "start_date = ?")
			args = append(args, nullTime(v.(*time.Time)))
		case "deadline":
			setClauses = append(setClauses, "deadline = ?")
			args = append(args, nullTime(v.(*time.Time)))
		case "feedback":
			encoded, err := marshalJSON(v.(*types.Feedback))
			if err != nil {
				return nil, nil, err
			}
			setClauses = append(setClauses, "feedback = ?")
			args = append(args, encoded)
		case "notes":
			encoded, err := marshalNote(v.(*types.Note))
			if err != nil {
				return nil, nil, err
			}
			setClauses = append(setClauses, "notes = ?")
			args = append(args, encoded)
		default:
			return nil, nil, fmt.Errorf("unknown task field: %s", k)
		}
	}

	setClauses = append(setClauses, "updated_at = ?")
	args = append(args, time.Now())
	return setClauses, args, nil
}

// DeleteTask removes a task row. Subtask rows cascade via the foreign key.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListTasks returns tasks matching the filter, ordered by creation time.
func (s *Store) ListTasks(ctx context.Context, filter types.TaskFilter) ([]*types.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []interface{}

	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*filter.Status))
	}
	if filter.Priority != nil {
		query += ` AND priority = ?`
		args = append(args, string(*filter.Priority))
	}
	if filter.Project != "" {
		query += ` AND project = ?`
		args = append(args, filter.Project)
	}
	if filter.Sequential != nil {
		query += ` AND sequential = ?`
		args = append(args, *filter.Sequential)
	}
	if filter.Assignee != nil {
		// Assignees is a JSON array column; match the quoted element.
		query += ` AND assignees LIKE ?`
		args = append(args, `%"`+*filter.Assignee+`"%`)
	}
	if filter.TitleSearch != "" {
		query += ` AND title LIKE ?`
		args = append(args, "%"+filter.TitleSearch+"%")
	}
	query += ` ORDER BY created_at, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
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
