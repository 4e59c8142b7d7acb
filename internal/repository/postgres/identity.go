package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/jwalitptl/hospital-queue-api/pkg/errors"

	"github.com/jwalitptl/hospital-queue-api/internal/model"
)

// Patient and staff rows are owned by the identity system; this repository
// only reads display fields, plus the single category mirror write.

func (r *identityRepository) GetPatient(ctx context.Context, id uuid.UUID) (*model.PatientSummary, error) {
	query := `
		SELECT id, name, patient_number, category
		FROM patients
		WHERE id = $1
	`
	var patient model.PatientSummary
	err := r.db.GetContext(ctx, &patient, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("patient", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *identityRepository) GetStaff(ctx context.Context, id uuid.UUID) (*model.StaffSummary, error) {
	query := `
		SELECT id, name, role
		FROM staff
		WHERE id = $1
	`
	var staff model.StaffSummary
	err := r.db.GetContext(ctx, &staff, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("staff", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get staff: %w", err)
	}
	return &staff, nil
}

// SetPatientCategory mirrors the most recent assessment's category onto the
// patient row for quick lookup. The assessments remain the source of truth.
func (r *identityRepository) SetPatientCategory(ctx context.Context, patientID uuid.UUID, category model.TriageCategory) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE patients SET category = $1, updated_at = $2 WHERE id = $3`,
		category, time.Now(), patientID)
	if err != nil {
		return fmt.Errorf("failed to set patient category: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("patient", nil)
	}
	return nil
}
