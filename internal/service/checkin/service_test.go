package checkin

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/hospital-queue-api/internal/model"
	"github.com/jwalitptl/hospital-queue-api/internal/service/identity"
	apperrors "github.com/jwalitptl/hospital-queue-api/pkg/errors"
)

type fakeCheckInRepo struct {
	checkIns map[uuid.UUID]*model.CheckIn
}

func newFakeCheckInRepo() *fakeCheckInRepo {
	return &fakeCheckInRepo{checkIns: make(map[uuid.UUID]*model.CheckIn)}
}

func (r *fakeCheckInRepo) Create(_ context.Context, checkIn *model.CheckIn) error {
	checkIn.ID = uuid.New()
	checkIn.Status = model.CheckInStatusArrived
	checkIn.CreatedAt = time.Now()
	checkIn.UpdatedAt = checkIn.CreatedAt
	r.checkIns[checkIn.ID] = checkIn
	return nil
}

func (r *fakeCheckInRepo) Get(_ context.Context, id uuid.UUID) (*model.CheckIn, error) {
	checkIn, ok := r.checkIns[id]
	if !ok {
		return nil, apperrors.NotFound("check-in", nil)
	}
	return checkIn, nil
}

func (r *fakeCheckInRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.CheckInStatus) error {
	checkIn, ok := r.checkIns[id]
	if !ok {
		return apperrors.NotFound("check-in", nil)
	}
	if !checkIn.Status.CanAdvanceTo(status) {
		return apperrors.Conflict("invalid check-in progression", nil)
	}
	checkIn.Status = status
	checkIn.UpdatedAt = time.Now()
	return nil
}

func (r *fakeCheckInRepo) List(_ context.Context, _ *model.CheckInFilters) ([]*model.CheckIn, error) {
	out := make([]*model.CheckIn, 0, len(r.checkIns))
	for _, c := range r.checkIns {
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeCheckInRepo) DeleteTerminalBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type fakeIdentityRepo struct {
	patients map[uuid.UUID]bool
	staff    map[uuid.UUID]bool
}

func (r *fakeIdentityRepo) GetPatient(_ context.Context, id uuid.UUID) (*model.PatientSummary, error) {
	if !r.patients[id] {
		return nil, apperrors.NotFound("patient", nil)
	}
	return &model.PatientSummary{ID: id, Name: "Test Patient"}, nil
}

func (r *fakeIdentityRepo) GetStaff(_ context.Context, id uuid.UUID) (*model.StaffSummary, error) {
	if !r.staff[id] {
		return nil, apperrors.NotFound("staff", nil)
	}
	return &model.StaffSummary{ID: id, Name: "Test Staff", Role: "receptionist"}, nil
}

func (r *fakeIdentityRepo) SetPatientCategory(_ context.Context, _ uuid.UUID, _ model.TriageCategory) error {
	return nil
}

func newService(patientIDs []uuid.UUID, staffIDs []uuid.UUID) (*Service, *fakeCheckInRepo) {
	identityRepo := &fakeIdentityRepo{
		patients: make(map[uuid.UUID]bool),
		staff:    make(map[uuid.UUID]bool),
	}
	for _, id := range patientIDs {
		identityRepo.patients[id] = true
	}
	for _, id := range staffIDs {
		identityRepo.staff[id] = true
	}
	repo := newFakeCheckInRepo()
	return NewService(repo, identity.NewService(identityRepo)), repo
}

func TestCreateCheckInRecordsArrivalAndActor(t *testing.T) {
	patientID := uuid.New()
	staffID := uuid.New()
	svc, _ := newService([]uuid.UUID{patientID}, []uuid.UUID{staffID})

	checkIn, err := svc.CreateCheckIn(context.Background(), &model.CreateCheckInRequest{
		PatientID: patientID,
	}, staffID)
	require.NoError(t, err)

	assert.Equal(t, model.CheckInStatusArrived, checkIn.Status)
	require.NotNil(t, checkIn.CheckedInBy)
	assert.Equal(t, staffID, *checkIn.CheckedInBy)
}

func TestCreateCheckInWithoutActor(t *testing.T) {
	patientID := uuid.New()
	svc, _ := newService([]uuid.UUID{patientID}, nil)

	checkIn, err := svc.CreateCheckIn(context.Background(), &model.CreateCheckInRequest{
		PatientID: patientID,
	}, uuid.Nil)
	require.NoError(t, err)
	assert.Nil(t, checkIn.CheckedInBy)
}

func TestCreateCheckInUnknownPatient(t *testing.T) {
	svc, _ := newService(nil, nil)

	_, err := svc.CreateCheckIn(context.Background(), &model.CreateCheckInRequest{
		PatientID: uuid.New(),
	}, uuid.Nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCreateCheckInUnknownStaff(t *testing.T) {
	patientID := uuid.New()
	svc, _ := newService([]uuid.UUID{patientID}, nil)

	_, err := svc.CreateCheckIn(context.Background(), &model.CreateCheckInRequest{
		PatientID: patientID,
	}, uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdateStatusProgression(t *testing.T) {
	patientID := uuid.New()
	svc, repo := newService([]uuid.UUID{patientID}, nil)

	checkIn, err := svc.CreateCheckIn(context.Background(), &model.CreateCheckInRequest{
		PatientID: patientID,
	}, uuid.Nil)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateStatus(context.Background(), checkIn.ID, model.CheckInStatusWithNurse))
	require.NoError(t, svc.UpdateStatus(context.Background(), checkIn.ID, model.CheckInStatusInRoom))
	assert.Equal(t, model.CheckInStatusInRoom, repo.checkIns[checkIn.ID].Status)

	// No reverse transitions.
	err = svc.UpdateStatus(context.Background(), checkIn.ID, model.CheckInStatusArrived)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}
