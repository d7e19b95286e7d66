package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rkoval/taskforge/internal/storage"
	"github.com/rkoval/taskforge/internal/types"
)

// UpsertAssignment inserts or replaces the assignment row for its key.
func (s *Store) UpsertAssignment(ctx context.Context, a *types.WorkAssignment) error {
	breakdown, err := marshalJSON(a.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to encode breakdown: %w", err)
	}
	var actual sql.NullInt64
	if a.ActualMinutes != nil {
		actual = sql.NullInt64{Int64: int64(*a.ActualMinutes), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO work_assignments (user, date, kind, item_id, status, estimated_minutes,
			actual_minutes, breakdown, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (user, date, kind, item_id) DO UPDATE SET
			status = excluded.status,
			estimated_minutes = excluded.estimated_minutes,
			actual_minutes = excluded.actual_minutes,
			breakdown = excluded.breakdown,
			note = excluded.note,
			updated_at = CURRENT_TIMESTAMP`,
		a.Key.User, a.Key.Date, string(a.Key.Kind), a.Key.ItemID, string(a.Status),
		a.EstimatedMinutes, actual, breakdown, a.Note)
	if err != nil {
		return fmt.Errorf("failed to upsert assignment %s: %w", a.Key, err)
	}
	return nil
}

const assignmentColumns = `user, date, kind, item_id, status, estimated_minutes,
	actual_minutes, breakdown, note, created_at, updated_at`

// GetAssignment retrieves the assignment row for a key.
func (s *Store) GetAssignment(ctx context.Context, key types.AssignmentKey) (*types.WorkAssignment, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+assignmentColumns+` FROM work_assignments
		WHERE user = ? AND date = ? AND kind = ? AND item_id = ?`,
		key.User, key.Date, string(key.Kind), key.ItemID)
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return a, err
}

func scanAssignment(row rowScanner) (*types.WorkAssignment, error) {
	var a types.WorkAssignment
	var kind, status string
	var actual sql.NullInt64
	var breakdown sql.NullString

	err := row.Scan(&a.Key.User, &a.Key.Date, &kind, &a.Key.ItemID, &status,
		&a.EstimatedMinutes, &actual, &breakdown, &a.Note, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}

	a.Key.Kind = types.ItemKind(kind)
	a.Status = types.AssignmentStatus(status)
	if actual.Valid {
		minutes := int(actual.Int64)
		a.ActualMinutes = &minutes
	}
	if breakdown.Valid {
		var tb types.TimeBreakdown
		if err := json.Unmarshal([]byte(breakdown.String), &tb); err != nil {
			return nil, fmt.Errorf("failed to decode breakdown: %w", err)
		}
		a.Breakdown = &tb
	}
	return &a, nil
}

// ListAssignments returns assignment rows matching the filter.
func (s *Store) ListAssignments(ctx context.Context, filter types.AssignmentFilter) ([]*types.WorkAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM work_assignments WHERE 1=1`
	var args []interface{}

	if filter.User != "" {
		query += ` AND user = ?`
		args = append(args, filter.User)
	}
	if filter.Date != "" {
		query += ` AND date = ?`
		args = append(args, filter.Date)
	}
	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(filter.Kind))
	}
	if filter.ItemID != "" {
		query += ` AND item_id = ?`
		args = append(args, filter.ItemID)
	}
	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*filter.Status))
	}
	query += ` ORDER BY date, user, item_id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var out []*types.WorkAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteAssignments removes all of one user's assignment rows for an item.
func (s *Store) DeleteAssignments(ctx context.Context, user string, ref types.ItemRef) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM work_assignments WHERE user = ? AND kind = ? AND item_id = ?`,
		user, string(ref.Kind), ref.ID)
	return err
}

// DeleteAssignmentsForItem removes every assignment row for an item.
func (s *Store) DeleteAssignmentsForItem(ctx context.Context, ref types.ItemRef) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM work_assignments WHERE kind = ? AND item_id = ?`,
		string(ref.Kind), ref.ID)
	return err
}

// AddWorkSession records a logged work session.
func (s *Store) AddWorkSession(ctx context.Context, session *types.WorkSession) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO work_sessions (id, user, date, kind, item_id, minutes, note, logged_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.User, session.Date, string(session.Kind), session.ItemID,
		session.Minutes, session.Note, session.LoggedAt)
	if err != nil {
		return fmt.Errorf("failed to add work session: %w", err)
	}
	return nil
}

// HasWorkSessions reports whether the user has logged any work on the item.
func (s *Store) HasWorkSessions(ctx context.Context, user string, ref types.ItemRef) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM work_sessions WHERE user = ? AND kind = ? AND item_id = ? LIMIT 1`,
		user, string(ref.Kind), ref.ID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListWorkSessions returns sessions for a user/item pair in logged order.
func (s *Store) ListWorkSessions(ctx context.Context, user string, ref types.ItemRef) ([]*types.WorkSession, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user, date, kind, item_id, minutes, note, logged_at
		FROM work_sessions WHERE user = ? AND kind = ? AND item_id = ?
		ORDER BY logged_at, id`,
		user, string(ref.Kind), ref.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list work sessions: %w", err)
	}
	defer rows.Close()

	var out []*types.WorkSession
	for rows.Next() {
		var ws types.WorkSession
		var kind string
		if err := rows.Scan(&ws.ID, &ws.User, &ws.Date, &kind, &ws.ItemID,
			&ws.Minutes, &ws.Note, &ws.LoggedAt); err != nil {
			return nil, err
		}
		ws.Kind = types.ItemKind(kind)
		out = append(out, &ws)
	}
	return out, rows.Err()
}

// DeleteWorkSessions removes one user's sessions for an item.
func (s *Store) DeleteWorkSessions(ctx context.Context, user string, ref types.ItemRef) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM work_sessions WHERE user = ? AND kind = ? AND item_id = ?`,
		user, string(ref.Kind), ref.ID)
	return err
}

// DeleteWorkSessionsForItem removes every session row for an item.
func (s *Store) DeleteWorkSessionsForItem(ctx context.Context, ref types.ItemRef) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM work_sessions WHERE kind = ? AND item_id = ?`,
		string(ref.Kind), ref.ID)
	return err
}
