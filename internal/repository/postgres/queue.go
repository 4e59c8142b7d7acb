package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	apperrors "github.com/jwalitptl/hospital-queue-api/pkg/errors"

	"github.com/jwalitptl/hospital-queue-api/internal/model"
)

const queueEntryColumns = `id, department, checkin_id, status, priority, position, created_at, updated_at`

// effectiveOrder is the serving order for every lane listing. Ties on equal
// priority and position fall back to arrival recency.
const effectiveOrder = ` ORDER BY priority DESC, position ASC, updated_at ASC`

// CreateFromCheckIn originates a queue entry for a check-in, appended to the
// tail of the department's waiting lane. The duplicate check, position
// computation and first event share one transaction so two concurrent
// originations can neither double-queue a visit nor collide on position.
func (r *queueRepository) CreateFromCheckIn(ctx context.Context, checkInID uuid.UUID, department string, priority int) (*model.QueueEntry, error) {
	var entry model.QueueEntry
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var exists bool
		err := tx.GetContext(ctx, &exists,
			`SELECT EXISTS (SELECT 1 FROM check_ins WHERE id = $1)`, checkInID)
		if err != nil {
			return fmt.Errorf("failed to verify check-in: %w", err)
		}
		if !exists {
			return apperrors.NotFound("check-in", nil)
		}

		// The check-in lock serializes originations of the same visit across
		// departments; the lane lock alone only covers one department.
		if err := lockCheckIn(ctx, tx, checkInID); err != nil {
			return fmt.Errorf("failed to lock check-in: %w", err)
		}
		if err := lockLane(ctx, tx, department, string(model.QueueStatusWaiting)); err != nil {
			return fmt.Errorf("failed to lock lane: %w", err)
		}

		var active bool
		err = tx.GetContext(ctx, &active, `
			SELECT EXISTS (
				SELECT 1 FROM queue_entries
				WHERE checkin_id = $1
				AND status NOT IN ($2, $3)
			)`, checkInID, model.QueueStatusDone, model.QueueStatusCancelled)
		if err != nil {
			return fmt.Errorf("failed to check active entry: %w", err)
		}
		if active {
			return apperrors.Conflict("check-in already has an active queue entry", nil)
		}

		var nextPosition int
		err = tx.GetContext(ctx, &nextPosition, `
			SELECT COALESCE(MAX(position), 0) + 1
			FROM queue_entries
			WHERE department = $1 AND status = $2`,
			department, model.QueueStatusWaiting)
		if err != nil {
			return fmt.Errorf("failed to compute next position: %w", err)
		}

		now := time.Now()
		entry = model.QueueEntry{
			ID:         uuid.New(),
			Department: department,
			CheckInID:  checkInID,
			Status:     model.QueueStatusWaiting,
			Priority:   priority,
			Position:   nextPosition,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO queue_entries (
				id, department, checkin_id, status, priority, position,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			entry.ID, entry.Department, entry.CheckInID, entry.Status,
			entry.Priority, entry.Position, entry.CreatedAt, entry.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create queue entry: %w", err)
		}

		return appendEvent(ctx, tx, entry.ID, nil, model.QueueStatusWaiting, now)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *queueRepository) Get(ctx context.Context, id uuid.UUID) (*model.QueueEntry, error) {
	query := `SELECT ` + queueEntryColumns + ` FROM queue_entries WHERE id = $1`

	var entry model.QueueEntry
	err := r.db.GetContext(ctx, &entry, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("queue entry", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get queue entry: %w", err)
	}
	return &entry, nil
}

func (r *queueRepository) ListLane(ctx context.Context, filters *model.QueueFilters) ([]*model.QueueEntry, error) {
	query := `SELECT ` + queueEntryColumns + ` FROM queue_entries WHERE status = $1`
	args := []interface{}{filters.Status}

	if filters.Department != "" {
		query += " AND department = $2"
		args = append(args, filters.Department)
	}

	query += effectiveOrder

	var entries []*model.QueueEntry
	err := r.db.SelectContext(ctx, &entries, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list lane: %w", err)
	}
	return entries, nil
}

// Transition applies a status-changing action and appends the paired event in
// one transaction: both become visible together or not at all.
func (r *queueRepository) Transition(ctx context.Context, id uuid.UUID, action model.QueueAction) (*model.QueueEntry, error) {
	target, ok := model.QueueTarget(action)
	if !ok {
		return nil, apperrors.BadRequest(fmt.Sprintf("unknown queue action %q", action), nil)
	}

	var entry model.QueueEntry
	err := withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &entry,
			`SELECT `+queueEntryColumns+` FROM queue_entries WHERE id = $1 FOR UPDATE`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("queue entry", err)
		}
		if err != nil {
			return fmt.Errorf("failed to lock queue entry: %w", err)
		}

		if !model.ValidQueueTransition(action, entry.Status) {
			return apperrors.Conflict(
				fmt.Sprintf("action %q not allowed from status %q", action, entry.Status), nil)
		}

		from := entry.Status
		now := time.Now()
		entry.Status = target
		entry.UpdatedAt = now

		// A recall back to waiting re-enters the lane at the tail.
		if target == model.QueueStatusWaiting {
			if err := lockLane(ctx, tx, entry.Department, string(model.QueueStatusWaiting)); err != nil {
				return fmt.Errorf("failed to lock lane: %w", err)
			}
			err = tx.GetContext(ctx, &entry.Position, `
				SELECT COALESCE(MAX(position), 0) + 1
				FROM queue_entries
				WHERE department = $1 AND status = $2`,
				entry.Department, model.QueueStatusWaiting)
			if err != nil {
				return fmt.Errorf("failed to compute next position: %w", err)
			}
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE queue_entries
			SET status = $1, position = $2, updated_at = $3
			WHERE id = $4`,
			entry.Status, entry.Position, entry.UpdatedAt, id)
		if err != nil {
			return fmt.Errorf("failed to update queue entry status: %w", err)
		}

		return appendEvent(ctx, tx, id, &from, target, now)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// SetPriority overwrites the priority directly. Priority changes are not
// status transitions and do not append a queue event.
func (r *queueRepository) SetPriority(ctx context.Context, id uuid.UUID, priority int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE queue_entries
		SET priority = $1, updated_at = $2
		WHERE id = $3 AND status NOT IN ($4, $5)`,
		priority, time.Now(), id, model.QueueStatusDone, model.QueueStatusCancelled)
	if err != nil {
		return fmt.Errorf("failed to set priority: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return r.explainMissing(ctx, id)
	}
	return nil
}

// MoveToTop shifts every other entry in the lane down one slot and puts the
// target at position 1.
func (r *queueRepository) MoveToTop(ctx context.Context, id uuid.UUID, department string, status model.QueueStatus) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := lockLane(ctx, tx, department, string(status)); err != nil {
			return fmt.Errorf("failed to lock lane: %w", err)
		}

		if err := requireInLane(ctx, tx, id, department, status); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx, `
			UPDATE queue_entries
			SET position = position + 1
			WHERE department = $1 AND status = $2 AND id != $3`,
			department, status, id)
		if err != nil {
			return fmt.Errorf("failed to shift lane positions: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE queue_entries
			SET position = 1, updated_at = $1
			WHERE id = $2`,
			time.Now(), id)
		if err != nil {
			return fmt.Errorf("failed to move entry to top: %w", err)
		}
		return nil
	})
}

// MoveRelative reinserts the entry immediately before or after target in the
// lane's effective order, then renumbers the whole lane 1..N. Full
// renumbering guarantees no position collisions regardless of prior drift.
func (r *queueRepository) MoveRelative(ctx context.Context, id, targetID uuid.UUID, place model.ReorderPlace, department string, status model.QueueStatus) error {
	if place != model.ReorderBefore && place != model.ReorderAfter {
		return apperrors.BadRequest(fmt.Sprintf("unknown place %q", place), nil)
	}

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := lockLane(ctx, tx, department, string(status)); err != nil {
			return fmt.Errorf("failed to lock lane: %w", err)
		}

		var lane []*model.QueueEntry
		err := tx.SelectContext(ctx, &lane, `
			SELECT `+queueEntryColumns+` FROM queue_entries
			WHERE department = $1 AND status = $2`,
			department, status)
		if err != nil {
			return fmt.Errorf("failed to read lane: %w", err)
		}

		sort.SliceStable(lane, func(i, j int) bool {
			return effectiveLess(lane[i], lane[j])
		})
		ids := make([]uuid.UUID, len(lane))
		for i, e := range lane {
			ids[i] = e.ID
		}

		ordered, ok := spliceIDs(ids, id, targetID, place)
		if !ok {
			return apperrors.BadRequest("entry or reorder target not in lane", nil)
		}

		now := time.Now()
		for i, entryID := range ordered {
			if entryID == id {
				_, err = tx.ExecContext(ctx, `
					UPDATE queue_entries SET position = $1, updated_at = $2 WHERE id = $3`,
					i+1, now, entryID)
			} else {
				_, err = tx.ExecContext(ctx, `
					UPDATE queue_entries SET position = $1 WHERE id = $2`,
					i+1, entryID)
			}
			if err != nil {
				return fmt.Errorf("failed to renumber lane: %w", err)
			}
		}
		return nil
	})
}

// MoveToEnd assigns max(position)+1 without renumbering the rest of the lane,
// the cheap path for the common "send to back" case.
func (r *queueRepository) MoveToEnd(ctx context.Context, id uuid.UUID, department string, status model.QueueStatus) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := lockLane(ctx, tx, department, string(status)); err != nil {
			return fmt.Errorf("failed to lock lane: %w", err)
		}

		if err := requireInLane(ctx, tx, id, department, status); err != nil {
			return err
		}

		var nextPosition int
		err := tx.GetContext(ctx, &nextPosition, `
			SELECT COALESCE(MAX(position), 0) + 1
			FROM queue_entries
			WHERE department = $1 AND status = $2`,
			department, status)
		if err != nil {
			return fmt.Errorf("failed to compute next position: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE queue_entries
			SET position = $1, updated_at = $2
			WHERE id = $3`,
			nextPosition, time.Now(), id)
		if err != nil {
			return fmt.Errorf("failed to move entry to end: %w", err)
		}
		return nil
	})
}

// Delete removes an entry only once it is done. Events are retained: the log
// is append-only and never deleted.
func (r *queueRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var status model.QueueStatus
		err := tx.GetContext(ctx, &status,
			`SELECT status FROM queue_entries WHERE id = $1 FOR UPDATE`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("queue entry", err)
		}
		if err != nil {
			return fmt.Errorf("failed to lock queue entry: %w", err)
		}

		if status != model.QueueStatusDone {
			return apperrors.Conflict(
				fmt.Sprintf("only completed entries can be removed, current status is %q", status), nil)
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM queue_entries WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete queue entry: %w", err)
		}
		return nil
	})
}

// DeleteDoneBefore removes done entries last touched before cutoff.
func (r *queueRepository) DeleteDoneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM queue_entries
		WHERE status = $1 AND updated_at < $2`,
		model.QueueStatusDone, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete done entries: %w", err)
	}
	return result.RowsAffected()
}

// explainMissing distinguishes a missing entry from a terminal one so the
// caller gets the right failure kind.
func (r *queueRepository) explainMissing(ctx context.Context, id uuid.UUID) error {
	var status model.QueueStatus
	err := r.db.GetContext(ctx, &status,
		`SELECT status FROM queue_entries WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound("queue entry", err)
	}
	if err != nil {
		return fmt.Errorf("failed to get queue entry: %w", err)
	}
	return apperrors.Conflict(
		fmt.Sprintf("queue entry is %q and can no longer be modified", status), nil)
}

func requireInLane(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, department string, status model.QueueStatus) error {
	var inLane bool
	err := tx.GetContext(ctx, &inLane, `
		SELECT EXISTS (
			SELECT 1 FROM queue_entries
			WHERE id = $1 AND department = $2 AND status = $3
		)`, id, department, status)
	if err != nil {
		return fmt.Errorf("failed to verify lane membership: %w", err)
	}
	if !inLane {
		return apperrors.BadRequest("queue entry not in the given lane", nil)
	}
	return nil
}

func appendEvent(ctx context.Context, tx *sqlx.Tx, entryID uuid.UUID, from *model.QueueStatus, to model.QueueStatus, at time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO queue_events (id, queue_entry_id, from_status, to_status, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), entryID, from, to, at)
	if err != nil {
		return fmt.Errorf("failed to append queue event: %w", err)
	}
	return nil
}
