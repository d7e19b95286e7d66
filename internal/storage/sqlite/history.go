package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rkoval/taskforge/internal/types"
)

// AppendHistory inserts a status history entry.
func (s *Store) AppendHistory(ctx context.Context, e *types.StatusHistoryEntry) error {
	meta, err := marshalJSON(e.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode history metadata: %w", err)
	}
	var changedBy sql.NullString
	if e.ChangedBy != nil {
		changedBy = sql.NullString{String: *e.ChangedBy, Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO status_history (kind, item_id, task_id, changed_by,
			previous_status, new_status, changed_at, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(e.Kind), e.ItemID, e.TaskID, changedBy,
		string(e.PreviousStatus), string(e.NewStatus), e.ChangedAt, meta)
	if err != nil {
		return fmt.Errorf("failed to append history for %s: %w", e.ItemID, err)
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return nil
}

// RetractHistory deletes the most recent entry for ref whose new_status
// matches. No matching entry is a no-op.
func (s *Store) RetractHistory(ctx context.Context, ref types.ItemRef, newStatus types.Status) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM status_history WHERE id = (
			SELECT id FROM status_history
			WHERE kind = ? AND item_id = ? AND new_status = ?
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
		FROM status_history WHERE kind = ? AND item_id = ?
		ORDER BY id DESC`
	args := []interface{}{string(ref.Kind), ref.ID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var out []*types.StatusHistoryEntry
	for rows.Next() {
		var e types.StatusHistoryEntry
		var kind, prev, next string
		var changedBy, meta sql.NullString
		if err := rows.Scan(&e.ID, &kind, &e.ItemID, &e.TaskID, &changedBy,
			&prev, &next, &e.ChangedAt, &meta); err != nil {
			return nil, err
		}
		e.Kind = types.ItemKind(kind)
		e.PreviousStatus = types.Status(prev)
		e.NewStatus = types.Status(next)
		if changedBy.Valid {
			by := changedBy.String
			e.ChangedBy = &by
		}
		if meta.Valid {
			var m types.HistoryMetadata
			if err := json.Unmarshal([]byte(meta.String), &m); err != nil {
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
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM status_history WHERE kind = ? AND item_id = ?`,
		string(ref.Kind), ref.ID)
	return err
}
