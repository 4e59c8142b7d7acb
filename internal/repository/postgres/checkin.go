package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	apperrors "github.com/jwalitptl/hospital-queue-api/pkg/errors"

	"github.com/jwalitptl/hospital-queue-api/internal/model"
)

func (r *checkInRepository) Create(ctx context.Context, checkIn *model.CheckIn) error {
	query := `
		INSERT INTO check_ins (
			id, patient_id, appointment_id, status, department,
			checked_in_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	checkIn.ID = uuid.New()
	checkIn.Status = model.CheckInStatusArrived
	checkIn.CreatedAt = time.Now()
	checkIn.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		checkIn.ID,
		checkIn.PatientID,
		checkIn.AppointmentID,
		checkIn.Status,
		checkIn.Department,
		checkIn.CheckedInBy,
		checkIn.CreatedAt,
		checkIn.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create check-in: %w", err)
	}
	return nil
}

func (r *checkInRepository) Get(ctx context.Context, id uuid.UUID) (*model.CheckIn, error) {
	query := `
		SELECT id, patient_id, appointment_id, status, department,
			   checked_in_by, created_at, updated_at
		FROM check_ins
		WHERE id = $1
	`
	var checkIn model.CheckIn
	err := r.db.GetContext(ctx, &checkIn, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("check-in", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get check-in: %w", err)
	}
	return &checkIn, nil
}

func (r *checkInRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.CheckInStatus) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var current model.CheckInStatus
		err := tx.GetContext(ctx, &current,
			`SELECT status FROM check_ins WHERE id = $1 FOR UPDATE`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("check-in", err)
		}
		if err != nil {
			return fmt.Errorf("failed to lock check-in: %w", err)
		}

		if !current.CanAdvanceTo(status) {
			return apperrors.Conflict(
				fmt.Sprintf("check-in cannot move from %s to %s", current, status), nil)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE check_ins SET status = $1, updated_at = $2 WHERE id = $3`,
			status, time.Now(), id)
		if err != nil {
			return fmt.Errorf("failed to update check-in status: %w", err)
		}
		return nil
	})
}

func (r *checkInRepository) List(ctx context.Context, filters *model.CheckInFilters) ([]*model.CheckIn, error) {
	query := `
		SELECT id, patient_id, appointment_id, status, department,
			   checked_in_by, created_at, updated_at
		FROM check_ins
		WHERE 1=1
	`
	args := []interface{}{}
	argCount := 1

	if filters.Department != "" {
		query += fmt.Sprintf(" AND department = $%d", argCount)
		args = append(args, filters.Department)
		argCount++
	}

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}

	if !filters.Since.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argCount)
		args = append(args, filters.Since)
		argCount++
	}

	query += " ORDER BY created_at ASC"

	var checkIns []*model.CheckIn
	err := r.db.SelectContext(ctx, &checkIns, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list check-ins: %w", err)
	}
	return checkIns, nil
}

// DeleteTerminalBefore removes complete and cancelled check-ins older than
// cutoff. Administrative bulk cleanup only; active visits are never touched.
func (r *checkInRepository) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM check_ins
		WHERE status IN ($1, $2)
		AND updated_at < $3
	`
	result, err := r.db.ExecContext(ctx, query,
		model.CheckInStatusComplete, model.CheckInStatusCancelled, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete terminal check-ins: %w", err)
	}
	return result.RowsAffected()
}
