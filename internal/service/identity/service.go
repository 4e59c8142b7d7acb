// Package identity is the read-side boundary to the patient/staff identity
// system. Queue and triage flows only need display fields, so lookups are
// cached briefly to keep lane listings cheap.
package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/jwalitptl/hospital-queue-api/internal/model"
	"github.com/jwalitptl/hospital-queue-api/internal/repository"
)

const (
	cacheTTL     = 5 * time.Minute
	cacheCleanup = 10 * time.Minute
)

type Service struct {
	repo  repository.IdentityRepository
	cache *gocache.Cache
}

func NewService(repo repository.IdentityRepository) *Service {
	return &Service{
		repo:  repo,
		cache: gocache.New(cacheTTL, cacheCleanup),
	}
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*model.PatientSummary, error) {
	key := "patient:" + id.String()
	if cached, found := s.cache.Get(key); found {
		return cached.(*model.PatientSummary), nil
	}

	patient, err := s.repo.GetPatient(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up patient: %w", err)
	}

	s.cache.Set(key, patient, gocache.DefaultExpiration)
	return patient, nil
}

func (s *Service) GetStaff(ctx context.Context, id uuid.UUID) (*model.StaffSummary, error) {
	key := "staff:" + id.String()
	if cached, found := s.cache.Get(key); found {
		return cached.(*model.StaffSummary), nil
	}

	staff, err := s.repo.GetStaff(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up staff: %w", err)
	}

	s.cache.Set(key, staff, gocache.DefaultExpiration)
	return staff, nil
}

// SetPatientCategory mirrors the latest triage category onto the patient row
// and drops the stale cache entry.
func (s *Service) SetPatientCategory(ctx context.Context, patientID uuid.UUID, category model.TriageCategory) error {
	if err := s.repo.SetPatientCategory(ctx, patientID, category); err != nil {
		return err
	}
	s.cache.Delete("patient:" + patientID.String())
	return nil
}
