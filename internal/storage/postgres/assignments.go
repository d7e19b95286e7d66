package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rkoval/taskforge/internal/storage"
	"github.com/rkoval/taskforge/internal/types"
)

// UpsertAssignment inserts or replaces the assignment row for its key.
func (s *Store) UpsertAssignment(ctx context.Context, a *types.WorkAssignment) error {
	breakdown, err := jsonOrNil(a.Breakdown, a.Breakdown == nil)
	if err != nil {
		return fmt.Errorf("failed to encode breakdown: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO work_assignments ("user", date, kind, item_id, status, estimated_minutes,
			actual_minutes, breakdown, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT ("user", date, kind, item_id) DO UPDATE SET
			status = EXCLUDED.status,
			estimated_minutes = EXCLUDED.estimated_minutes,
			actual_minutes = EXCLUDED.actual_minutes,
			breakdown = EXCLUDED.breakdown,
			note = EXCLUDED.note,
			updated_at = NOW()`,
		a.Key.User, a.Key.Date, string(a.Key.Kind), a.Key.ItemID, string(a.Status),
		a.EstimatedMinutes, a.ActualMinutes, breakdown, a.Note)
	if err != nil {
		return fmt.Errorf("failed to upsert assignment %s: %w", a.Key, err)
	}
	return nil
}

const assignmentColumns = `"user", date, kind, item_id, status, estimated_minutes,
	actual_minutes, breakdown, note, created_at, updated_at`

// GetAssignment retrieves the assignment row for a key.
func (s *Store) GetAssignment(ctx context.Context, key types.AssignmentKey) (*types.WorkAssignment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+assignmentColumns+` FROM work_assignments
		WHERE "user" = $1 AND date = $2 AND kind = $3 AND item_id = $4`,
		key.User, key.Date, string(key.Kind), key.ItemID)
	a, err := scanAssignment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return a, err
}

func scanAssignment(row rowScanner) (*types.WorkAssignment, error) {
	var a types.WorkAssignment
	var kind, status string
	var breakdown []byte

	err := row.Scan(&a.Key.User, &a.Key.Date, &kind, &a.Key.ItemID, &status,
		&a.EstimatedMinutes, &a.ActualMinutes, &breakdown, &a.Note, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}

	a.Key.Kind = types.ItemKind(kind)
	a.Status = types.AssignmentStatus(status)
	if len(breakdown) > 0 {
		var tb types.TimeBreakdown
		if err := json.Unmarshal(breakdown, &tb); err != nil {
			return nil, fmt.Errorf("failed to decode breakdown: %w", err)
		}
		a.Breakdown = &tb
	}
	return &a, nil
}

// ListAssignments returns assignment rows matching the filter.
func (s *Store) ListAssignments(ctx context.Context, filter types.AssignmentFilter) ([]*types.WorkAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM work_assignments WHERE TRUE`
	var args []interface{}
	arg := func(v interface{}) int {
		args = append(args, v)
		return len(args)
	}

	if filter.User != "" {
		query += fmt.Sprintf(` AND "user" = $%d`, arg(filter.User))
	}
	if filter.Date != "" {
		query += fmt.Sprintf(` AND date = $%d`, arg(filter.Date))
	}
	if filter.Kind != "" {
		query += fmt.Sprintf(` AND kind = $%d`, arg(string(filter.Kind)))
	}
	if filter.ItemID != "" {
		query += fmt.Sprintf(` AND item_id = $%d`, arg(filter.ItemID))
	}
	if filter.Status != nil {
		query += fmt.Sprintf(` AND status = $%d`, arg(string(*filter.Status)))
	}
	query += ` ORDER BY date, "user", item_id`
	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, arg(filter.Limit))
	}

	rows, err := s.pool.Query(ctx, query, args...)
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
	_, err := s.pool.Exec(ctx,
		`DELETE FROM work_assignments WHERE "user" = $1 AND kind = $2 AND item_id = $3`,
		user, string(ref.Kind), ref.ID)
	return err
}

// DeleteAssignmentsForItem removes every assignment row for an item.
func (s *Store) DeleteAssignmentsForItem(ctx context.Context, ref types.ItemRef) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM work_assignments WHERE kind = $1 AND item_id = $2`,
		string(ref.Kind), ref.ID)
	return err
}

// AddWorkSession records a logged work session.
func (s *Store) AddWorkSession(ctx context.Context, session *types.WorkSession) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO work_sessions (id, "user", date, kind, item_id, minutes, note, logged_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
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
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM work_sessions WHERE "user" = $1 AND kind = $2 AND item_id = $3 LIMIT 1`,
		user, string(ref.Kind), ref.ID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListWorkSessions returns sessions for a user/item pair in logged order.
func (s *Store) ListWorkSessions(ctx context.Context, user string, ref types.ItemRef) ([]*types.WorkSession, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, "user", date, kind, item_id, minutes, note, logged_at
		FROM work_sessions WHERE "user" = $1 AND kind = $2 AND item_id = $3
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
	_, err := s.pool.Exec(ctx,
		`DELETE FROM work_sessions WHERE "user" = $1 AND kind = $2 AND item_id = $3`,
		user, string(ref.Kind), ref.ID)
	return err
}

// DeleteWorkSessionsForItem removes every session row for an item.
func (s *Store) DeleteWorkSessionsForItem(ctx context.Context, ref types.ItemRef) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM work_sessions WHERE kind = $1 AND item_id = $2`,
		string(ref.Kind), ref.ID)
	return err
}

// AppendHistory inserts a status history entry.
func (s *Store) AppendHistory(ctx context.Context, e *types.StatusHistoryEntry) error {
	meta, err := jsonOrNil(e.Metadata, e.Metadata == nil)
	if err != nil {
		return fmt.Errorf("failed to encode history metadata: %w", err)
	}

	err = s.pool.QueryRow(ctx, `
		INSERT INTO status_history (kind, item_id, task_id, changed_by,
			previous_status, new_status, changed_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		string(e.Kind), e.ItemID, e.TaskID, e.ChangedBy,
		string(e.PreviousStatus), string(e.NewStatus), e.ChangedAt, meta).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to append history for %s: %w", e.ItemID, err)
	}
	return nil
}

// RetractHistory deletes the most recent entry for ref whose new_status
// matches. No matching entry is a no-op.
func (s *Store) RetractHistory(ctx context.Context, ref types.ItemRef, newStatus types.Status) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM status_history WHERE id = (
			SELECT id FROM status_history
			WHERE kind = $1 AND item_id = $2 AND new_status = $3
			ORDER BY id DESC LIMIT 1
		)`,
		string(ref.Kind), ref.ID, string(newStatus))
	if err != nil {
		return fmt.Errorf("failed to retract history for %s: %w", ref, err)
	}
	return nil
}

// ListHistory returns an item's history, most recent first.
func (s *Store) ListHistory(ctx context.Context, ref types.ItemRef, limit int) ([]*types.StatusHistoryEntry, error) {
	query := `
		SELECT id, kind, item_id, task_id, changed_by, previous_status, new_status, changed_at, metadata
		FROM status_history WHERE kind = $1 AND item_id = $2
		ORDER BY id DESC`
	args := []interface{}{string(ref.Kind), ref.ID}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var out []*types.StatusHistoryEntry
	for rows.Next() {
		var e types.StatusHistoryEntry
		var kind, prev, next string
		var meta []byte
		if err := rows.Scan(&e.ID, &kind, &e.ItemID, &e.TaskID, &e.ChangedBy,
			&prev, &next, &e.ChangedAt, &meta); err != nil {
			return nil, err
		}
		e.Kind = types.ItemKind(kind)
		e.PreviousStatus = types.Status(prev)
		e.NewStatus = types.Status(next)
		if len(meta) > 0 {
			var m types.HistoryMetadata
			if err := json.Unmarshal(meta, &m); err != nil {
				return nil, fmt.Errorf("failed to decode history metadata: %w", err)
			}
			e.Metadata = &m
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// DeleteHistoryForItem removes every history row for an item.
func (s *Store) DeleteHistoryForItem(ctx context.Context, ref types.ItemRef) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM status_history WHERE kind = $1 AND item_id = $2`,
		string(ref.Kind), ref.ID)
	return err
}
