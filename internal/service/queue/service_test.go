package queue

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/hospital-queue-api/pkg/errors"

	"github.com/jwalitptl/hospital-queue-api/internal/model"
	"github.com/jwalitptl/hospital-queue-api/internal/service/identity"
	triageService "github.com/jwalitptl/hospital-queue-api/internal/service/triage"
)

// fakeQueueRepo is an in-memory lane store mirroring the postgres semantics:
// one active entry per check-in, transactional transition+event append,
// max+1 appends and full renumbering on relative moves.
type fakeQueueRepo struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*model.QueueEntry
	events  []*model.QueueEvent
}

func newFakeQueueRepo() *fakeQueueRepo {
	return &fakeQueueRepo{entries: make(map[uuid.UUID]*model.QueueEntry)}
}

func (f *fakeQueueRepo) appendEvent(entryID uuid.UUID, from *model.QueueStatus, to model.QueueStatus) {
	f.events = append(f.events, &model.QueueEvent{
		ID:           uuid.New(),
		QueueEntryID: entryID,
		FromStatus:   from,
		ToStatus:     to,
		CreatedAt:    time.Now(),
	})
}

func (f *fakeQueueRepo) CreateFromCheckIn(_ context.Context, checkInID uuid.UUID, department string, priority int) (*model.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, e := range f.entries {
		if e.CheckInID == checkInID && !e.Status.IsTerminal() {
			return nil, apperrors.Conflict("check-in already has an active queue entry", nil)
		}
	}

	maxPos := 0
	for _, e := range f.entries {
		if e.Department == department && e.Status == model.QueueStatusWaiting && e.Position > maxPos {
			maxPos = e.Position
		}
	}

	now := time.Now()
	entry := &model.QueueEntry{
		ID:         uuid.New(),
		Department: department,
		CheckInID:  checkInID,
		Status:     model.QueueStatusWaiting,
		Priority:   priority,
		Position:   maxPos + 1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.entries[entry.ID] = entry
	f.appendEvent(entry.ID, nil, model.QueueStatusWaiting)
	return entry, nil
}

func (f *fakeQueueRepo) Get(_ context.Context, id uuid.UUID) (*model.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[id]
	if !ok {
		return nil, apperrors.NotFound("queue entry", nil)
	}
	copied := *entry
	return &copied, nil
}

func (f *fakeQueueRepo) laneLocked(department string, status model.QueueStatus) []*model.QueueEntry {
	var lane []*model.QueueEntry
	for _, e := range f.entries {
		if e.Department == department && e.Status == status {
			lane = append(lane, e)
		}
	}
	sort.Slice(lane, func(i, j int) bool {
		a, b := lane[i], lane[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.UpdatedAt.Before(b.UpdatedAt)
	})
	return lane
}

func (f *fakeQueueRepo) ListLane(_ context.Context, filters *model.QueueFilters) ([]*model.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lane := f.laneLocked(filters.Department, filters.Status)
	out := make([]*model.QueueEntry, len(lane))
	for i, e := range lane {
		copied := *e
		out[i] = &copied
	}
	return out, nil
}

func (f *fakeQueueRepo) Transition(_ context.Context, id uuid.UUID, action model.QueueAction) (*model.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.entries[id]
	if !ok {
		return nil, apperrors.NotFound("queue entry", nil)
	}
	if !model.ValidQueueTransition(action, entry.Status) {
		return nil, apperrors.Conflict("illegal transition", nil)
	}

	target, _ := model.QueueTarget(action)
	from := entry.Status
	entry.Status = target
	entry.UpdatedAt = time.Now()
	f.appendEvent(id, &from, target)

	copied := *entry
	return &copied, nil
}

func (f *fakeQueueRepo) SetPriority(_ context.Context, id uuid.UUID, priority int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[id]
	if !ok {
		return apperrors.NotFound("queue entry", nil)
	}
	if entry.Status.IsTerminal() {
		return apperrors.Conflict("terminal entry", nil)
	}
	entry.Priority = priority
	entry.UpdatedAt = time.Now()
	return nil
}

func (f *fakeQueueRepo) MoveToTop(_ context.Context, id uuid.UUID, department string, status model.QueueStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	target, ok := f.entries[id]
	if !ok || target.Department != department || target.Status != status {
		return apperrors.BadRequest("queue entry not in the given lane", nil)
	}
	for _, e := range f.entries {
		if e.Department == department && e.Status == status && e.ID != id {
			e.Position++
		}
	}
	target.Position = 1
	target.UpdatedAt = time.Now()
	return nil
}

func (f *fakeQueueRepo) MoveRelative(_ context.Context, id, targetID uuid.UUID, place model.ReorderPlace, department string, status model.QueueStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	lane := f.laneLocked(department, status)
	var moving *model.QueueEntry
	targetIdx := -1
	rest := make([]*model.QueueEntry, 0, len(lane))
	for _, e := range lane {
		if e.ID == id {
			moving = e
			continue
		}
		rest = append(rest, e)
	}
	for i, e := range rest {
		if e.ID == targetID {
			targetIdx = i
		}
	}
	if moving == nil || targetIdx == -1 {
		return apperrors.BadRequest("entry or reorder target not in lane", nil)
	}

	insertAt := targetIdx
	if place == model.ReorderAfter {
		insertAt++
	}
	ordered := make([]*model.QueueEntry, 0, len(lane))
	ordered = append(ordered, rest[:insertAt]...)
	ordered = append(ordered, moving)
	ordered = append(ordered, rest[insertAt:]...)

	for i, e := range ordered {
		e.Position = i + 1
	}
	moving.UpdatedAt = time.Now()
	return nil
}

func (f *fakeQueueRepo) MoveToEnd(_ context.Context, id uuid.UUID, department string, status model.QueueStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	target, ok := f.entries[id]
	if !ok || target.Department != department || target.Status != status {
		return apperrors.BadRequest("queue entry not in the given lane", nil)
	}
	maxPos := 0
	for _, e := range f.entries {
		if e.Department == department && e.Status == status && e.Position > maxPos {
			maxPos = e.Position
		}
	}
	target.Position = maxPos + 1
	target.UpdatedAt = time.Now()
	return nil
}

func (f *fakeQueueRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[id]
	if !ok {
		return apperrors.NotFound("queue entry", nil)
	}
	if entry.Status != model.QueueStatusDone {
		return apperrors.Conflict("only completed entries can be removed", nil)
	}
	delete(f.entries, id)
	return nil
}

func (f *fakeQueueRepo) DeleteDoneBefore(context.Context, time.Time) (int64, error) { return 0, nil }

func (f *fakeQueueRepo) eventsFor(id uuid.UUID) []*model.QueueEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.QueueEvent
	for _, e := range f.events {
		if e.QueueEntryID == id {
			out = append(out, e)
		}
	}
	return out
}

// fakeEventRepo serves reads from the fake queue repo's log.
type fakeEventRepo struct {
	queue *fakeQueueRepo
}

func (f *fakeEventRepo) ListForEntry(_ context.Context, id uuid.UUID) ([]*model.QueueEvent, error) {
	return f.queue.eventsFor(id), nil
}

func (f *fakeEventRepo) LatestForEntry(_ context.Context, id uuid.UUID, toStatus model.QueueStatus) (*model.QueueEvent, error) {
	events := f.queue.eventsFor(id)
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].ToStatus == toStatus {
			return events[i], nil
		}
	}
	return nil, apperrors.NotFound("queue event", nil)
}

func (f *fakeEventRepo) LaneMetrics(context.Context, *model.MetricsFilters) (*model.LaneMetrics, error) {
	return &model.LaneMetrics{}, nil
}

type fakeCheckInRepo struct {
	mu       sync.Mutex
	checkIns map[uuid.UUID]*model.CheckIn
}

func newFakeCheckInRepo() *fakeCheckInRepo {
	return &fakeCheckInRepo{checkIns: make(map[uuid.UUID]*model.CheckIn)}
}

func (f *fakeCheckInRepo) add(checkIn *model.CheckIn) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checkIns[checkIn.ID] = checkIn
}

func (f *fakeCheckInRepo) Create(_ context.Context, checkIn *model.CheckIn) error {
	checkIn.ID = uuid.New()
	checkIn.CreatedAt = time.Now()
	f.add(checkIn)
	return nil
}

func (f *fakeCheckInRepo) Get(_ context.Context, id uuid.UUID) (*model.CheckIn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	checkIn, ok := f.checkIns[id]
	if !ok {
		return nil, apperrors.NotFound("check-in", nil)
	}
	return checkIn, nil
}

func (f *fakeCheckInRepo) UpdateStatus(context.Context, uuid.UUID, model.CheckInStatus) error {
	return nil
}

func (f *fakeCheckInRepo) List(context.Context, *model.CheckInFilters) ([]*model.CheckIn, error) {
	return nil, nil
}

func (f *fakeCheckInRepo) DeleteTerminalBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// recordingBroker captures publishes and can be told to fail.
type recordingBroker struct {
	mu        sync.Mutex
	published []string
	fail      bool
	done      chan struct{}
}

func (b *recordingBroker) Publish(_ context.Context, channel string, _ interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done != nil {
		defer close(b.done)
		b.done = nil
	}
	if b.fail {
		return errors.New("broker unavailable")
	}
	b.published = append(b.published, channel)
	return nil
}

func (b *recordingBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, nil
}

func (b *recordingBroker) Close() error { return nil }

func newTestService(t *testing.T) (*Service, *fakeQueueRepo, *fakeCheckInRepo) {
	t.Helper()
	queueRepo := newFakeQueueRepo()
	checkIns := newFakeCheckInRepo()
	svc := NewService(queueRepo, &fakeEventRepo{queue: queueRepo}, checkIns, nil, nil, nil, DefaultPriorityBands())
	return svc, queueRepo, checkIns
}

func dept(s string) *string { return &s }

func addCheckIn(repo *fakeCheckInRepo, department string) *model.CheckIn {
	checkIn := &model.CheckIn{
		ID:         uuid.New(),
		PatientID:  uuid.New(),
		Status:     model.CheckInStatusArrived,
		Department: dept(department),
		CreatedAt:  time.Now().Add(-30 * time.Minute),
	}
	repo.add(checkIn)
	return checkIn
}

func TestCreateFromCheckInAppendsToTail(t *testing.T) {
	svc, _, checkIns := newTestService(t)
	ctx := context.Background()

	first := addCheckIn(checkIns, "radiology")
	second := addCheckIn(checkIns, "radiology")

	e1, err := svc.CreateFromCheckIn(ctx, first.ID, "", nil)
	require.NoError(t, err)
	e2, err := svc.CreateFromCheckIn(ctx, second.ID, "", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, e1.Position)
	assert.Equal(t, 2, e2.Position)
	assert.Equal(t, "radiology", e1.Department)
	assert.Equal(t, 0, e1.Priority)
}

func TestCreateFromCheckInDuplicateActiveFails(t *testing.T) {
	svc, _, checkIns := newTestService(t)
	ctx := context.Background()

	checkIn := addCheckIn(checkIns, "er")
	_, err := svc.CreateFromCheckIn(ctx, checkIn.ID, "", nil)
	require.NoError(t, err)

	_, err = svc.CreateFromCheckIn(ctx, checkIn.ID, "", nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

func TestCreateFromCheckInAfterTerminalSucceeds(t *testing.T) {
	svc, _, checkIns := newTestService(t)
	ctx := context.Background()

	checkIn := addCheckIn(checkIns, "er")
	entry, err := svc.CreateFromCheckIn(ctx, checkIn.ID, "", nil)
	require.NoError(t, err)

	_, err = svc.Transition(ctx, entry.ID, model.QueueActionCancel)
	require.NoError(t, err)

	// The prior entry is terminal, so re-queueing the same visit is allowed.
	_, err = svc.CreateFromCheckIn(ctx, checkIn.ID, "", nil)
	assert.NoError(t, err)
}

func TestCreateFromCheckInExplicitPriorityWins(t *testing.T) {
	svc, _, checkIns := newTestService(t)
	ctx := context.Background()

	checkIn := addCheckIn(checkIns, "er")
	priority := 42
	entry, err := svc.CreateFromCheckIn(ctx, checkIn.ID, "", &priority)
	require.NoError(t, err)
	assert.Equal(t, 42, entry.Priority)
}

func TestCreateFromCheckInMissingDepartment(t *testing.T) {
	svc, _, checkIns := newTestService(t)
	ctx := context.Background()

	checkIn := &model.CheckIn{ID: uuid.New(), PatientID: uuid.New(), CreatedAt: time.Now()}
	checkIns.add(checkIn)

	_, err := svc.CreateFromCheckIn(ctx, checkIn.ID, "", nil)
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
}

func TestCreateFromCheckInUnknownCheckIn(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.CreateFromCheckIn(context.Background(), uuid.New(), "er", nil)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestTransitionAppendsPairedEvent(t *testing.T) {
	svc, queueRepo, checkIns := newTestService(t)
	ctx := context.Background()

	checkIn := addCheckIn(checkIns, "er")
	entry, err := svc.CreateFromCheckIn(ctx, checkIn.ID, "", nil)
	require.NoError(t, err)

	_, err = svc.Transition(ctx, entry.ID, model.QueueActionStart)
	require.NoError(t, err)
	_, err = svc.Transition(ctx, entry.ID, model.QueueActionDone)
	require.NoError(t, err)

	events := queueRepo.eventsFor(entry.ID)
	require.Len(t, events, 3)

	assert.Nil(t, events[0].FromStatus)
	assert.Equal(t, model.QueueStatusWaiting, events[0].ToStatus)

	require.NotNil(t, events[1].FromStatus)
	assert.Equal(t, model.QueueStatusWaiting, *events[1].FromStatus)
	assert.Equal(t, model.QueueStatusInService, events[1].ToStatus)

	require.NotNil(t, events[2].FromStatus)
	assert.Equal(t, model.QueueStatusInService, *events[2].FromStatus)
	assert.Equal(t, model.QueueStatusDone, events[2].ToStatus)
}

func TestTransitionTerminalImmutable(t *testing.T) {
	svc, queueRepo, checkIns := newTestService(t)
	ctx := context.Background()

	checkIn := addCheckIn(checkIns, "er")
	entry, err := svc.CreateFromCheckIn(ctx, checkIn.ID, "", nil)
	require.NoError(t, err)

	_, err = svc.Transition(ctx, entry.ID, model.QueueActionCancel)
	require.NoError(t, err)
	eventsBefore := len(queueRepo.eventsFor(entry.ID))

	for _, action := range []model.QueueAction{
		model.QueueActionStart, model.QueueActionDone,
		model.QueueActionCancel, model.QueueActionWaiting,
	} {
		_, err := svc.Transition(ctx, entry.ID, action)
		assert.True(t, apperrors.IsConflict(err), "action %s should conflict", action)
	}

	// No transition means no new events.
	assert.Equal(t, eventsBefore, len(queueRepo.eventsFor(entry.ID)))
}

func TestTransitionUnknownAction(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Transition(context.Background(), uuid.New(), model.QueueAction("promote"))
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
}

func TestLaneOrderInvariant(t *testing.T) {
	svc, _, checkIns := newTestService(t)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		checkIn := addCheckIn(checkIns, "lab")
		entry, err := svc.CreateFromCheckIn(ctx, checkIn.ID, "", nil)
		require.NoError(t, err)
		ids = append(ids, entry.ID)
	}

	// Bump one entry's priority and shuffle another to the back.
	require.NoError(t, svc.SetPriority(ctx, ids[3], 20))
	require.NoError(t, svc.Reorder(ctx, ids[0], &model.ReorderRequest{
		Department: "lab", Status: model.QueueStatusWaiting, AppendToEnd: true,
	}))

	lane, err := svc.ListLane(ctx, &model.QueueFilters{Department: "lab", Status: model.QueueStatusWaiting})
	require.NoError(t, err)
	require.Len(t, lane, 5)

	// Priority entry serves first; no duplicates; order strictly decreasing.
	assert.Equal(t, ids[3], lane[0].ID)
	seen := make(map[uuid.UUID]bool)
	for _, e := range lane {
		assert.False(t, seen[e.ID])
		seen[e.ID] = true
	}
	for i := 1; i < len(lane); i++ {
		a, b := lane[i-1], lane[i]
		higher := a.Priority > b.Priority ||
			(a.Priority == b.Priority && a.Position < b.Position) ||
			(a.Priority == b.Priority && a.Position == b.Position && !a.UpdatedAt.After(b.UpdatedAt))
		assert.True(t, higher, "lane order violated at index %d", i)
	}
}

func TestReorderRelativeRenumbers(t *testing.T) {
	svc, _, checkIns := newTestService(t)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		checkIn := addCheckIn(checkIns, "er")
		entry, err := svc.CreateFromCheckIn(ctx, checkIn.ID, "", nil)
		require.NoError(t, err)
		ids = append(ids, entry.ID)
	}
	a, b, c := ids[0], ids[1], ids[2]

	// Lane [A, B, C]; move C before A.
	place := model.ReorderBefore
	err := svc.Reorder(ctx, c, &model.ReorderRequest{
		Department: "er",
		Status:     model.QueueStatusWaiting,
		TargetID:   &a,
		Place:      &place,
	})
	require.NoError(t, err)

	lane, err := svc.ListLane(ctx, &model.QueueFilters{Department: "er", Status: model.QueueStatusWaiting})
	require.NoError(t, err)
	require.Len(t, lane, 3)

	assert.Equal(t, []uuid.UUID{c, a, b}, []uuid.UUID{lane[0].ID, lane[1].ID, lane[2].ID})
	assert.Equal(t, []int{1, 2, 3}, []int{lane[0].Position, lane[1].Position, lane[2].Position})
}

func TestReorderMoveToTop(t *testing.T) {
	svc, _, checkIns := newTestService(t)
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		checkIn := addCheckIn(checkIns, "er")
		entry, err := svc.CreateFromCheckIn(ctx, checkIn.ID, "", nil)
		require.NoError(t, err)
		ids = append(ids, entry.ID)
	}

	err := svc.Reorder(ctx, ids[2], &model.ReorderRequest{
		Department: "er",
		Status:     model.QueueStatusWaiting,
		MoveToTop:  true,
	})
	require.NoError(t, err)

	lane, err := svc.ListLane(ctx, &model.QueueFilters{Department: "er", Status: model.QueueStatusWaiting})
	require.NoError(t, err)
	assert.Equal(t, ids[2], lane[0].ID)
	assert.Equal(t, 1, lane[0].Position)
}

func TestReorderRequiresExactlyOneSelector(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	target := uuid.New()

	cases := []*model.ReorderRequest{
		{Department: "er", Status: model.QueueStatusWaiting},
		{Department: "er", Status: model.QueueStatusWaiting, MoveToTop: true, AppendToEnd: true},
		{Department: "er", Status: model.QueueStatusWaiting, MoveToTop: true, TargetID: &target},
	}
	for _, req := range cases {
		err := svc.Reorder(ctx, uuid.New(), req)
		appErr, ok := apperrors.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
	}
}

func TestReorderTargetNotInLane(t *testing.T) {
	svc, _, checkIns := newTestService(t)
	ctx := context.Background()

	checkIn := addCheckIn(checkIns, "er")
	entry, err := svc.CreateFromCheckIn(ctx, checkIn.ID, "", nil)
	require.NoError(t, err)

	stranger := uuid.New()
	place := model.ReorderAfter
	err = svc.Reorder(ctx, entry.ID, &model.ReorderRequest{
		Department: "er",
		Status:     model.QueueStatusWaiting,
		TargetID:   &stranger,
		Place:      &place,
	})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
}

func TestDeleteOnlyDoneEntries(t *testing.T) {
	svc, queueRepo, checkIns := newTestService(t)
	ctx := context.Background()

	checkIn := addCheckIn(checkIns, "er")
	entry, err := svc.CreateFromCheckIn(ctx, checkIn.ID, "", nil)
	require.NoError(t, err)

	// Waiting entry: refuse and keep it.
	err = svc.DeleteEntry(ctx, entry.ID)
	assert.True(t, apperrors.IsConflict(err))
	_, err = queueRepo.Get(ctx, entry.ID)
	assert.NoError(t, err)

	_, err = svc.Transition(ctx, entry.ID, model.QueueActionStart)
	require.NoError(t, err)
	_, err = svc.Transition(ctx, entry.ID, model.QueueActionDone)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteEntry(ctx, entry.ID))
	_, err = queueRepo.Get(ctx, entry.ID)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestConcurrentOriginationsDistinctPositions(t *testing.T) {
	svc, _, checkIns := newTestService(t)
	ctx := context.Background()

	first := addCheckIn(checkIns, "imaging")
	second := addCheckIn(checkIns, "imaging")

	var wg sync.WaitGroup
	results := make([]*model.QueueEntry, 2)
	errs := make([]error, 2)
	for i, id := range []uuid.UUID{first.ID, second.ID} {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			results[i], errs[i] = svc.CreateFromCheckIn(ctx, id, "", nil)
		}(i, id)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	positions := map[int]bool{results[0].Position: true, results[1].Position: true}
	assert.Equal(t, map[int]bool{1: true, 2: true}, positions)
}

func TestConcurrentCrossDepartmentOriginationSingleEntry(t *testing.T) {
	svc, queueRepo, checkIns := newTestService(t)
	ctx := context.Background()

	// One visit raced into two departments must yield exactly one active
	// entry; the loser sees the duplicate conflict.
	checkIn := addCheckIn(checkIns, "er")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, department := range []string{"er", "imaging"} {
		wg.Add(1)
		go func(i int, department string) {
			defer wg.Done()
			_, errs[i] = svc.CreateFromCheckIn(ctx, checkIn.ID, department, nil)
		}(i, department)
	}
	wg.Wait()

	var conflicts, successes int
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		require.True(t, apperrors.IsConflict(err), "unexpected error: %v", err)
		conflicts++
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)

	queueRepo.mu.Lock()
	defer queueRepo.mu.Unlock()
	active := 0
	for _, e := range queueRepo.entries {
		if e.CheckInID == checkIn.ID && !e.Status.IsTerminal() {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestBrokerFailureDoesNotFailMutation(t *testing.T) {
	queueRepo := newFakeQueueRepo()
	checkIns := newFakeCheckInRepo()
	broker := &recordingBroker{fail: true, done: make(chan struct{})}
	done := broker.done
	svc := NewService(queueRepo, &fakeEventRepo{queue: queueRepo}, checkIns, nil, broker, nil, DefaultPriorityBands())

	checkIn := addCheckIn(checkIns, "er")
	entry, err := svc.CreateFromCheckIn(context.Background(), checkIn.ID, "", nil)
	require.NoError(t, err)
	require.NotNil(t, entry)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish was never attempted")
	}
}

// fakeTriageRepo returns a canned latest assessment per patient.
type fakeTriageRepo struct {
	latest map[uuid.UUID]*model.TriageAssessment
}

func (f *fakeTriageRepo) Create(context.Context, *model.TriageAssessment) error { return nil }

func (f *fakeTriageRepo) Get(context.Context, uuid.UUID) (*model.TriageAssessment, error) {
	return nil, apperrors.NotFound("triage assessment", nil)
}

func (f *fakeTriageRepo) ListForPatient(context.Context, uuid.UUID) ([]*model.TriageAssessment, error) {
	return nil, nil
}

func (f *fakeTriageRepo) LatestForPatient(_ context.Context, patientID uuid.UUID) (*model.TriageAssessment, error) {
	assessment, ok := f.latest[patientID]
	if !ok {
		return nil, apperrors.NotFound("triage assessment", nil)
	}
	return assessment, nil
}

type fakeIdentityRepo struct{}

func (fakeIdentityRepo) GetPatient(_ context.Context, id uuid.UUID) (*model.PatientSummary, error) {
	return &model.PatientSummary{ID: id, Name: "Test Patient"}, nil
}

func (fakeIdentityRepo) GetStaff(_ context.Context, id uuid.UUID) (*model.StaffSummary, error) {
	return &model.StaffSummary{ID: id, Name: "Test Staff"}, nil
}

func (fakeIdentityRepo) SetPatientCategory(context.Context, uuid.UUID, model.TriageCategory) error {
	return nil
}

func TestCreateFromCheckInTriageBandApplied(t *testing.T) {
	queueRepo := newFakeQueueRepo()
	checkIns := newFakeCheckInRepo()
	ctx := context.Background()

	checkIn := addCheckIn(checkIns, "er")
	triageRepo := &fakeTriageRepo{latest: map[uuid.UUID]*model.TriageAssessment{
		checkIn.PatientID: {PatientID: checkIn.PatientID, Category: model.TriageCategoryEmergency},
	}}
	triageSvc := triageService.NewService(triageRepo, identity.NewService(fakeIdentityRepo{}), nil)

	svc := NewService(queueRepo, &fakeEventRepo{queue: queueRepo}, checkIns, triageSvc, nil, nil, DefaultPriorityBands())
	entry, err := svc.CreateFromCheckIn(ctx, checkIn.ID, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 30, entry.Priority)

	// An explicit priority still overrides the band.
	other := addCheckIn(checkIns, "er")
	triageRepo.latest[other.PatientID] = &model.TriageAssessment{
		PatientID: other.PatientID, Category: model.TriageCategoryEmergency,
	}
	priority := 5
	entry, err = svc.CreateFromCheckIn(ctx, other.ID, "", &priority)
	require.NoError(t, err)
	assert.Equal(t, 5, entry.Priority)
}

func TestCreateFromCheckInBandsDisabled(t *testing.T) {
	queueRepo := newFakeQueueRepo()
	checkIns := newFakeCheckInRepo()
	ctx := context.Background()

	checkIn := addCheckIn(checkIns, "er")
	triageRepo := &fakeTriageRepo{latest: map[uuid.UUID]*model.TriageAssessment{
		checkIn.PatientID: {PatientID: checkIn.PatientID, Category: model.TriageCategoryEmergency},
	}}
	triageSvc := triageService.NewService(triageRepo, identity.NewService(fakeIdentityRepo{}), nil)

	svc := NewService(queueRepo, &fakeEventRepo{queue: queueRepo}, checkIns, triageSvc, nil, nil, PriorityBands{})
	entry, err := svc.CreateFromCheckIn(ctx, checkIn.ID, "", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, entry.Priority)
}

func TestCurrentWaitForWaitingEntry(t *testing.T) {
	svc, _, checkIns := newTestService(t)
	ctx := context.Background()

	checkIn := addCheckIn(checkIns, "er") // created 30 minutes ago
	entry, err := svc.CreateFromCheckIn(ctx, checkIn.ID, "", nil)
	require.NoError(t, err)

	wait, err := svc.CurrentWait(ctx, entry.ID)
	require.NoError(t, err)
	assert.InDelta(t, 30*time.Minute, wait, float64(5*time.Second))
}

func TestCurrentWaitTerminalEntryConflicts(t *testing.T) {
	svc, _, checkIns := newTestService(t)
	ctx := context.Background()

	checkIn := addCheckIn(checkIns, "er")
	entry, err := svc.CreateFromCheckIn(ctx, checkIn.ID, "", nil)
	require.NoError(t, err)
	_, err = svc.Transition(ctx, entry.ID, model.QueueActionCancel)
	require.NoError(t, err)

	_, err = svc.CurrentWait(ctx, entry.ID)
	assert.True(t, apperrors.IsConflict(err))
}

func TestLaneMetricsValidatesRange(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.LaneMetrics(ctx, &model.MetricsFilters{})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)

	now := time.Now()
	_, err = svc.LaneMetrics(ctx, &model.MetricsFilters{From: now, To: now.Add(-time.Hour)})
	appErr, ok = apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
}
