package checkin

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/hospital-queue-api/internal/model"
	"github.com/jwalitptl/hospital-queue-api/internal/repository"
	"github.com/jwalitptl/hospital-queue-api/internal/service/identity"
)

type Service struct {
	repo        repository.CheckInRepository
	identitySvc *identity.Service
}

func NewService(repo repository.CheckInRepository, identitySvc *identity.Service) *Service {
	return &Service{
		repo:        repo,
		identitySvc: identitySvc,
	}
}

// CreateCheckIn records a patient's arrival. actorID identifies the staff
// member performing the check-in and is passed explicitly by the handler.
func (s *Service) CreateCheckIn(ctx context.Context, req *model.CreateCheckInRequest, actorID uuid.UUID) (*model.CheckIn, error) {
	if _, err := s.identitySvc.GetPatient(ctx, req.PatientID); err != nil {
		return nil, fmt.Errorf("invalid patient reference: %w", err)
	}

	checkIn := &model.CheckIn{
		PatientID:     req.PatientID,
		AppointmentID: req.AppointmentID,
		Department:    req.Department,
	}
	if actorID != uuid.Nil {
		if _, err := s.identitySvc.GetStaff(ctx, actorID); err != nil {
			return nil, fmt.Errorf("invalid staff reference: %w", err)
		}
		checkIn.CheckedInBy = &actorID
	}

	if err := s.repo.Create(ctx, checkIn); err != nil {
		return nil, fmt.Errorf("failed to create check-in: %w", err)
	}

	log.Info().
		Str("checkin_id", checkIn.ID.String()).
		Str("patient_id", checkIn.PatientID.String()).
		Msg("patient checked in")

	return checkIn, nil
}

func (s *Service) GetCheckIn(ctx context.Context, id uuid.UUID) (*model.CheckIn, error) {
	return s.repo.Get(ctx, id)
}

// UpdateStatus advances a check-in. The repository enforces the monotonic
// progression; there is no defined reverse transition.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status model.CheckInStatus) error {
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return err
	}

	log.Info().
		Str("checkin_id", id.String()).
		Str("status", string(status)).
		Msg("check-in status updated")

	return nil
}

func (s *Service) ListCheckIns(ctx context.Context, filters *model.CheckInFilters) ([]*model.CheckIn, error) {
	checkIns, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list check-ins: %w", err)
	}
	return checkIns, nil
}
