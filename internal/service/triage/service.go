package triage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/hospital-queue-api/pkg/errors"

	"github.com/jwalitptl/hospital-queue-api/internal/model"
	"github.com/jwalitptl/hospital-queue-api/internal/repository"
	"github.com/jwalitptl/hospital-queue-api/internal/service/identity"
	"github.com/jwalitptl/hospital-queue-api/internal/triage"
	"github.com/jwalitptl/hospital-queue-api/pkg/metrics"
	"github.com/jwalitptl/hospital-queue-api/pkg/validator"
)

type Service struct {
	repo        repository.TriageRepository
	identitySvc *identity.Service
	validate    validator.Validator
	metrics     *metrics.Metrics
}

func NewService(repo repository.TriageRepository, identitySvc *identity.Service, m *metrics.Metrics) *Service {
	return &Service{
		repo:        repo,
		identitySvc: identitySvc,
		validate:    validator.New(),
		metrics:     m,
	}
}

// Classify runs the pure classifier without persisting anything.
func (s *Service) Classify(input model.TriageInput) model.TriageCategory {
	return triage.Classify(input)
}

// CreateAssessment persists a new assessment with its computed category and
// mirrors that category onto the patient's current-state row. The category is
// always derived from the inputs; callers cannot supply one.
func (s *Service) CreateAssessment(ctx context.Context, req *model.CreateTriageAssessmentRequest, actorID uuid.UUID) (*model.TriageAssessment, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, apperrors.BadRequest(err.Error(), nil)
	}

	if _, err := s.identitySvc.GetPatient(ctx, req.PatientID); err != nil {
		return nil, fmt.Errorf("invalid patient reference: %w", err)
	}

	assessment := &model.TriageAssessment{
		PatientID:      req.PatientID,
		RecordedBy:     actorID,
		Mode:           req.Mode,
		Vitals:         req.Vitals,
		Discriminators: req.Discriminators,
		Context:        req.Context,
		ChiefComplaint: req.ChiefComplaint,
		Metadata:       req.Metadata,
	}
	assessment.Category = triage.Classify(assessment.Input())

	if err := s.repo.Create(ctx, assessment); err != nil {
		return nil, fmt.Errorf("failed to create assessment: %w", err)
	}

	// Mirror failure is logged but does not undo the assessment: the
	// assessments themselves remain the source of truth.
	if err := s.identitySvc.SetPatientCategory(ctx, req.PatientID, assessment.Category); err != nil {
		log.Error().Err(err).
			Str("patient_id", req.PatientID.String()).
			Msg("failed to mirror triage category onto patient")
	}

	if s.metrics != nil {
		s.metrics.TriageAssessments.WithLabelValues(string(assessment.Category)).Inc()
	}

	log.Info().
		Str("assessment_id", assessment.ID.String()).
		Str("patient_id", assessment.PatientID.String()).
		Str("category", string(assessment.Category)).
		Msg("triage assessment recorded")

	return assessment, nil
}

func (s *Service) GetAssessment(ctx context.Context, id uuid.UUID) (*model.TriageAssessment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.TriageAssessment, error) {
	assessments, err := s.repo.ListForPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	return assessments, nil
}

// LatestCategory returns the patient's most recent category, or ok=false when
// the patient has never been assessed.
func (s *Service) LatestCategory(ctx context.Context, patientID uuid.UUID) (model.TriageCategory, bool, error) {
	latest, err := s.repo.LatestForPatient(ctx, patientID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return latest.Category, true, nil
}
