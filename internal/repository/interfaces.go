package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-queue-api/internal/model"
)

// All repository interfaces in one file
type (
	// CheckInRepository handles check-in records
	CheckInRepository interface {
		Create(ctx context.Context, checkIn *model.CheckIn) error
		Get(ctx context.Context, id uuid.UUID) (*model.CheckIn, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.CheckInStatus) error
		List(ctx context.Context, filters *model.CheckInFilters) ([]*model.CheckIn, error)
		DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}

	// QueueRepository is the lane store: entries keyed by (department, status)
	// with priority/position ordering and transactional transitions.
	QueueRepository interface {
		CreateFromCheckIn(ctx context.Context, checkInID uuid.UUID, department string, priority int) (*model.QueueEntry, error)
		Get(ctx context.Context, id uuid.UUID) (*model.QueueEntry, error)
		ListLane(ctx context.Context, filters *model.QueueFilters) ([]*model.QueueEntry, error)
		Transition(ctx context.Context, id uuid.UUID, action model.QueueAction) (*model.QueueEntry, error)
		SetPriority(ctx context.Context, id uuid.UUID, priority int) error
		MoveToTop(ctx context.Context, id uuid.UUID, department string, status model.QueueStatus) error
		MoveRelative(ctx context.Context, id, targetID uuid.UUID, place model.ReorderPlace, department string, status model.QueueStatus) error
		MoveToEnd(ctx context.Context, id uuid.UUID, department string, status model.QueueStatus) error
		Delete(ctx context.Context, id uuid.UUID) error
		DeleteDoneBefore(ctx context.Context, cutoff time.Time) (int64, error)
	}

	// QueueEventRepository reads the append-only transition log. Appends happen
	// inside the queue repository's transition transaction.
	QueueEventRepository interface {
		ListForEntry(ctx context.Context, queueEntryID uuid.UUID) ([]*model.QueueEvent, error)
		LatestForEntry(ctx context.Context, queueEntryID uuid.UUID, toStatus model.QueueStatus) (*model.QueueEvent, error)
		LaneMetrics(ctx context.Context, filters *model.MetricsFilters) (*model.LaneMetrics, error)
	}

	// TriageRepository persists immutable triage assessments
	TriageRepository interface {
		Create(ctx context.Context, assessment *model.TriageAssessment) error
		Get(ctx context.Context, id uuid.UUID) (*model.TriageAssessment, error)
		ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.TriageAssessment, error)
		LatestForPatient(ctx context.Context, patientID uuid.UUID) (*model.TriageAssessment, error)
	}

	// IdentityRepository is the read-only collaborator boundary for patient and
	// staff display lookups; this service never writes identity rows.
	IdentityRepository interface {
		GetPatient(ctx context.Context, id uuid.UUID) (*model.PatientSummary, error)
		GetStaff(ctx context.Context, id uuid.UUID) (*model.StaffSummary, error)
		SetPatientCategory(ctx context.Context, patientID uuid.UUID, category model.TriageCategory) error
	}
)
