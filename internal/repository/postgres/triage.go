package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/jwalitptl/hospital-queue-api/pkg/errors"

	"github.com/jwalitptl/hospital-queue-api/internal/model"
)

// triageRow flattens the assessment for storage: the vitals snapshot and the
// clinical context travel as jsonb documents.
type triageRow struct {
	ID             uuid.UUID            `db:"id"`
	PatientID      uuid.UUID            `db:"patient_id"`
	RecordedBy     uuid.UUID            `db:"recorded_by"`
	Mode           model.TriageMode     `db:"mode"`
	Vitals         []byte               `db:"vitals"`
	Discriminators []byte               `db:"discriminators"`
	Context        []byte               `db:"context"`
	Metadata       []byte               `db:"metadata"`
	ChiefComplaint string               `db:"chief_complaint"`
	Category       model.TriageCategory `db:"category"`
	CreatedAt      time.Time            `db:"created_at"`
}

func (row *triageRow) toModel() (*model.TriageAssessment, error) {
	assessment := &model.TriageAssessment{
		ID:             row.ID,
		PatientID:      row.PatientID,
		RecordedBy:     row.RecordedBy,
		Mode:           row.Mode,
		ChiefComplaint: row.ChiefComplaint,
		Category:       row.Category,
		CreatedAt:      row.CreatedAt,
	}
	if err := json.Unmarshal(row.Vitals, &assessment.Vitals); err != nil {
		return nil, fmt.Errorf("failed to decode vitals: %w", err)
	}
	if err := json.Unmarshal(row.Discriminators, &assessment.Discriminators); err != nil {
		return nil, fmt.Errorf("failed to decode discriminators: %w", err)
	}
	if err := json.Unmarshal(row.Context, &assessment.Context); err != nil {
		return nil, fmt.Errorf("failed to decode context: %w", err)
	}
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &assessment.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}
	return assessment, nil
}

func (r *triageRepository) Create(ctx context.Context, assessment *model.TriageAssessment) error {
	vitals, err := json.Marshal(assessment.Vitals)
	if err != nil {
		return fmt.Errorf("failed to encode vitals: %w", err)
	}
	discriminators, err := json.Marshal(assessment.Discriminators)
	if err != nil {
		return fmt.Errorf("failed to encode discriminators: %w", err)
	}
	context_, err := json.Marshal(assessment.Context)
	if err != nil {
		return fmt.Errorf("failed to encode context: %w", err)
	}
	metadata, err := json.Marshal(assessment.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	assessment.ID = uuid.New()
	assessment.CreatedAt = time.Now()

	query := `
		INSERT INTO triage_assessments (
			id, patient_id, recorded_by, mode, vitals, discriminators,
			context, metadata, chief_complaint, category, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.db.ExecContext(ctx, query,
		assessment.ID,
		assessment.PatientID,
		assessment.RecordedBy,
		assessment.Mode,
		vitals,
		discriminators,
		context_,
		metadata,
		assessment.ChiefComplaint,
		assessment.Category,
		assessment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create triage assessment: %w", err)
	}
	return nil
}

const triageColumns = `id, patient_id, recorded_by, mode, vitals, discriminators, context, metadata, chief_complaint, category, created_at`

func (r *triageRepository) Get(ctx context.Context, id uuid.UUID) (*model.TriageAssessment, error) {
	query := `SELECT ` + triageColumns + ` FROM triage_assessments WHERE id = $1`

	var row triageRow
	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("triage assessment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get triage assessment: %w", err)
	}
	return row.toModel()
}

func (r *triageRepository) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.TriageAssessment, error) {
	query := `
		SELECT ` + triageColumns + `
		FROM triage_assessments
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`
	var rows []triageRow
	err := r.db.SelectContext(ctx, &rows, query, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list triage assessments: %w", err)
	}

	assessments := make([]*model.TriageAssessment, 0, len(rows))
	for i := range rows {
		assessment, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		assessments = append(assessments, assessment)
	}
	return assessments, nil
}

func (r *triageRepository) LatestForPatient(ctx context.Context, patientID uuid.UUID) (*model.TriageAssessment, error) {
	query := `
		SELECT ` + triageColumns + `
		FROM triage_assessments
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	var row triageRow
	err := r.db.GetContext(ctx, &row, query, patientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("triage assessment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest triage assessment: %w", err)
	}
	return row.toModel()
}
