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

const subtaskColumns = `id, task_id, title, description, estimated_minutes, status,
	sequence_order, assignee, start_date, deadline, feedback, notes, created_at, updated_at`

// CreateSubtask inserts a new subtask row. The parent task must exist.
func (s *Store) CreateSubtask(ctx context.Context, sub *types.Subtask) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM tasks WHERE id = ?`, sub.TaskID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return err
	}

	feedback, err := marshalJSON(sub.Feedback)
	if err != nil {
		return fmt.Errorf("failed to encode feedback: %w", err)
	}
	notes, err := marshalNote(sub.Notes)
	if err != nil {
		return fmt.Errorf("failed to encode notes: %w", err)
	}

	now := time.Now()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	var seq sql.NullInt64
	if sub.SequenceOrder != nil {
		seq = sql.NullInt64{Int64: int64(*sub.SequenceOrder), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO subtasks (id, task_id, title, description, estimated_minutes, status,
			sequence_order, assignee, start_date, deadline, feedback, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.TaskID, sub.Title, sub.Description, sub.EstimatedMinutes,
		string(sub.Status), seq, sub.Assignee, nullTime(sub.StartDate), nullTime(sub.Deadline),
		feedback, notes, sub.CreatedAt, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create subtask %s: %w", sub.ID, err)
	}
	return nil
}

// GetSubtask retrieves a subtask by ID.
func (s *Store) GetSubtask(ctx context.Context, id string) (*types.Subtask, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+subtaskColumns+` FROM subtasks WHERE id = ?`, id)
	sub, err := scanSubtask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return sub, err
}

func scanSubtask(row rowScanner) (*types.Subtask, error) {
	var sub types.Subtask
	var status string
	var seq sql.NullInt64
	var startDate, deadline sql.NullTime
	var feedback, notes sql.NullString

	err := row.Scan(&sub.ID, &sub.TaskID, &sub.Title, &sub.Description, &sub.EstimatedMinutes,
		&status, &seq, &sub.Assignee, &startDate, &deadline, &feedback, &notes,
		&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}

	sub.Status = types.Status(status)
	if seq.Valid {
		order := int(seq.Int64)
		sub.SequenceOrder = &order
	}
	sub.StartDate = timePtr(startDate)
	sub.Deadline = timePtr(deadline)
	if feedback.Valid {
		var f types.Feedback
		if err := json.Unmarshal([]byte(feedback.String), &f); err != nil {
			return nil, fmt.Errorf("failed to decode feedback: %w", err)
		}
		sub.Feedback = &f
	}
	if sub.Notes, err = unmarshalNote(notes); err != nil {
		return nil, err
	}
	return &sub, nil
}

// UpdateSubtask applies field updates to a subtask. Unknown keys are rejected.
func (s *Store) UpdateSubtask(ctx context.Context, id string, updates map[string]interface{}) error {
	var setClauses []string
	var args []interface{}

	for k, v := range updates {
		switch k {
		case "title", "description", "assignee":
			setClauses = append(setClauses, k+" = ?")
			args = append(args, v.(string))
		case "status":
			setClauses = append(setClauses, "status = ?")
			args = append(args, string(v.(types.Status)))
		case "estimated_minutes":
			setClauses = append(setClauses, "estimated_minutes = ?")
			args = append(args, v.(int))
		case "sequence_order":
			var seq sql.NullInt64
			if p := v.(*int); p != nil {
				seq = sql.NullInt64{Int64: int64(*p), Valid: true}
			}
			setClauses = append(setClauses, "sequence_order = ?")
			args = append(args, seq)
		case "start_date":
			setClauses = append(setClauses, "start_date = ?")
			args = append(args, nullTime(v.(*time.Time)))
		case "deadline":
			setClauses = append(setClauses, "deadline = ?")
			args = append(args, nullTime(v.(*time.Time)))
		case "feedback":
			encoded, err := marshalJSON(v.(*types.Feedback))
			if err != nil {
				return err
			}
			setClauses = append(setClauses, "feedback = ?")
			args = append(args, encoded)
		case "notes":
			encoded, err := marshalNote(v.(*types.Note))
			if err != nil {
				return err
			}
			setClauses = append(setClauses, "notes = ?")
			args = append(args, encoded)
		default:
			return fmt.Errorf("unknown subtask field: %s", k)
		}
	}

	setClauses = append(setClauses, "updated_at = ?")
	args = append(args, time.Now(), id)

	res, err := s.db.ExecContext(ctx,
		`UPDATE subtasks SET `+strings.Join(setClauses, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update subtask %s: %w", id, err)
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

// DeleteSubtask removes a subtask row.
func (s *Store) DeleteSubtask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM subtasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subtask %s: %w", id, err)
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

// ListSubtasks returns subtasks matching the filter, ordered by sequence
// level (unordered last) then creation time.
func (s *Store) ListSubtasks(ctx context.Context, filter types.SubtaskFilter) ([]*types.Subtask, error) {
	query := `SELECT ` + subtaskColumns + ` FROM subtasks WHERE 1=1`
	var args []interface{}

	if filter.TaskID != "" {
		query += ` AND task_id = ?`
		args = append(args, filter.TaskID)
	}
	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*filter.Status))
	}
	if filter.Assignee != nil {
		query += ` AND assignee = ?`
		args = append(args, *filter.Assignee)
	}
	query += ` ORDER BY sequence_order IS NULL, sequence_order, created_at, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
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
