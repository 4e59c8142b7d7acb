// Package queue is the orchestrator for department lanes: it originates
// entries from check-ins, executes staff actions and reorders, and exposes
// the wait-time analytics derived from the event log.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/hospital-queue-api/pkg/errors"
	"github.com/jwalitptl/hospital-queue-api/pkg/messaging"
	"github.com/jwalitptl/hospital-queue-api/pkg/metrics"

	"github.com/jwalitptl/hospital-queue-api/internal/model"
	"github.com/jwalitptl/hospital-queue-api/internal/repository"
	triageService "github.com/jwalitptl/hospital-queue-api/internal/service/triage"
)

const publishTimeout = 2 * time.Second

// PriorityBands maps triage categories to queue priority values at
// origination. Whether the mapping applies at all is an integration policy,
// so it is configuration, not a fixed rule.
type PriorityBands struct {
	Enabled bool
	Bands   map[model.TriageCategory]int
}

// DefaultPriorityBands spaces the categories so staff can slot manual
// priorities between bands.
func DefaultPriorityBands() PriorityBands {
	return PriorityBands{
		Enabled: true,
		Bands: map[model.TriageCategory]int{
			model.TriageCategoryEmergency:  30,
			model.TriageCategoryVeryUrgent: 20,
			model.TriageCategoryUrgent:     10,
			model.TriageCategoryRoutine:    0,
		},
	}
}

type Service struct {
	repo        repository.QueueRepository
	events      repository.QueueEventRepository
	checkInRepo repository.CheckInRepository
	triageSvc   *triageService.Service
	broker      messaging.Broker
	metrics     *metrics.Metrics
	bands       PriorityBands
}

func NewService(
	repo repository.QueueRepository,
	events repository.QueueEventRepository,
	checkInRepo repository.CheckInRepository,
	triageSvc *triageService.Service,
	broker messaging.Broker,
	m *metrics.Metrics,
	bands PriorityBands,
) *Service {
	return &Service{
		repo:        repo,
		events:      events,
		checkInRepo: checkInRepo,
		triageSvc:   triageSvc,
		broker:      broker,
		metrics:     m,
		bands:       bands,
	}
}

// CreateFromCheckIn originates a queue entry for a check-in. An explicit
// priority always wins; otherwise the patient's current triage category
// selects a band when that mapping is enabled; otherwise priority is 0.
func (s *Service) CreateFromCheckIn(ctx context.Context, checkInID uuid.UUID, department string, priority *int) (*model.QueueEntry, error) {
	defer s.timeOp("create")()

	checkIn, err := s.checkInRepo.Get(ctx, checkInID)
	if err != nil {
		return nil, err
	}

	if department == "" {
		if checkIn.Department == nil || *checkIn.Department == "" {
			return nil, apperrors.BadRequest("department is required when the check-in has no department tag", nil)
		}
		department = *checkIn.Department
	}

	resolved := 0
	switch {
	case priority != nil:
		resolved = *priority
	case s.bands.Enabled && s.triageSvc != nil:
		category, assessed, err := s.triageSvc.LatestCategory(ctx, checkIn.PatientID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve triage category: %w", err)
		}
		if assessed {
			resolved = s.bands.Bands[category]
		}
	}

	entry, err := s.repo.CreateFromCheckIn(ctx, checkInID, department, resolved)
	if err != nil {
		s.count("create", "error")
		return nil, err
	}
	s.count("create", "success")

	log.Info().
		Str("queue_entry_id", entry.ID.String()).
		Str("checkin_id", checkInID.String()).
		Str("department", department).
		Int("priority", entry.Priority).
		Int("position", entry.Position).
		Msg("queue entry created")

	s.publishLaneChange(entry, "create")
	return entry, nil
}

func (s *Service) GetEntry(ctx context.Context, id uuid.UUID) (*model.QueueEntry, error) {
	return s.repo.Get(ctx, id)
}

// ListLane returns a lane in effective serving order.
func (s *Service) ListLane(ctx context.Context, filters *model.QueueFilters) ([]*model.QueueEntry, error) {
	if filters.Status == "" {
		return nil, apperrors.BadRequest("status is required", nil)
	}

	entries, err := s.repo.ListLane(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list lane: %w", err)
	}

	if s.metrics != nil && filters.Department != "" && filters.Status == model.QueueStatusWaiting {
		s.metrics.LaneDepth.WithLabelValues(filters.Department).Set(float64(len(entries)))
	}
	return entries, nil
}

// Transition applies a staff action. The repository writes the status change
// and its event atomically; terminal entries are rejected before any write.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, action model.QueueAction) (*model.QueueEntry, error) {
	defer s.timeOp("transition")()

	if !model.ValidQueueAction(action) {
		return nil, apperrors.BadRequest(fmt.Sprintf("unknown queue action %q", action), nil)
	}

	entry, err := s.repo.Transition(ctx, id, action)
	if err != nil {
		s.count("transition", "error")
		return nil, err
	}
	s.count("transition", "success")
	if s.metrics != nil {
		s.metrics.QueueTransitions.WithLabelValues(string(entry.Status)).Inc()
	}

	log.Info().
		Str("queue_entry_id", id.String()).
		Str("action", string(action)).
		Str("status", string(entry.Status)).
		Msg("queue entry transitioned")

	s.publishLaneChange(entry, string(action))
	return entry, nil
}

func (s *Service) SetPriority(ctx context.Context, id uuid.UUID, priority int) error {
	if priority < 0 {
		return apperrors.BadRequest("priority must not be negative", nil)
	}
	if err := s.repo.SetPriority(ctx, id, priority); err != nil {
		s.count("set_priority", "error")
		return err
	}
	s.count("set_priority", "success")
	return nil
}

// Reorder executes exactly one reordering command on a lane.
func (s *Service) Reorder(ctx context.Context, id uuid.UUID, req *model.ReorderRequest) error {
	defer s.timeOp("reorder")()

	selectors := 0
	if req.MoveToTop {
		selectors++
	}
	if req.TargetID != nil {
		selectors++
	}
	if req.AppendToEnd {
		selectors++
	}
	if selectors != 1 {
		return apperrors.BadRequest("reorder requires exactly one of move_to_top, target_id or append_to_end", nil)
	}
	if req.Status.IsTerminal() {
		return apperrors.BadRequest("terminal lanes cannot be reordered", nil)
	}

	var err error
	switch {
	case req.MoveToTop:
		err = s.repo.MoveToTop(ctx, id, req.Department, req.Status)
	case req.TargetID != nil:
		if req.Place == nil {
			return apperrors.BadRequest("place is required with target_id", nil)
		}
		err = s.repo.MoveRelative(ctx, id, *req.TargetID, *req.Place, req.Department, req.Status)
	default:
		err = s.repo.MoveToEnd(ctx, id, req.Department, req.Status)
	}
	if err != nil {
		s.count("reorder", "error")
		return err
	}
	s.count("reorder", "success")

	s.publishLaneChange(&model.QueueEntry{
		ID:         id,
		Department: req.Department,
		Status:     req.Status,
	}, "reorder")
	return nil
}

// DeleteEntry removes a completed entry. Non-terminal entries are refused.
func (s *Service) DeleteEntry(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.count("delete", "error")
		return err
	}
	s.count("delete", "success")
	return nil
}

// LaneMetrics aggregates wait/service durations over a period.
func (s *Service) LaneMetrics(ctx context.Context, filters *model.MetricsFilters) (*model.LaneMetrics, error) {
	if filters.From.IsZero() || filters.To.IsZero() {
		return nil, apperrors.BadRequest("from and to are required", nil)
	}
	if !filters.To.After(filters.From) {
		return nil, apperrors.BadRequest("to must be after from", nil)
	}
	return s.events.LaneMetrics(ctx, filters)
}

// EntryEvents returns the full transition history for one entry.
func (s *Service) EntryEvents(ctx context.Context, id uuid.UUID) ([]*model.QueueEvent, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.events.ListForEntry(ctx, id)
}

// CurrentWait reports how long a waiting entry has been waiting, measured
// from check-in creation. For an in-service entry it reports time since the
// most recent entry into service.
func (s *Service) CurrentWait(ctx context.Context, id uuid.UUID) (time.Duration, error) {
	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, err
	}

	switch entry.Status {
	case model.QueueStatusWaiting:
		checkIn, err := s.checkInRepo.Get(ctx, entry.CheckInID)
		if err != nil {
			return 0, err
		}
		return time.Since(checkIn.CreatedAt), nil
	case model.QueueStatusInService:
		event, err := s.events.LatestForEntry(ctx, id, model.QueueStatusInService)
		if err != nil {
			return 0, err
		}
		return time.Since(event.CreatedAt), nil
	default:
		return 0, apperrors.Conflict(
			fmt.Sprintf("entry is %q, no live duration to report", entry.Status), nil)
	}
}

func (s *Service) count(operation, status string) {
	if s.metrics != nil {
		s.metrics.QueueOperations.WithLabelValues(operation, status).Inc()
	}
}

// timeOp returns a stop function observing the operation's duration.
func (s *Service) timeOp(operation string) func() {
	if s.metrics == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		s.metrics.QueueOperationTime.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

// publishLaneChange notifies subscribers that a lane mutated. Fire and
// forget: a failed publish is logged and counted, never rolled back into the
// queue mutation.
func (s *Service) publishLaneChange(entry *model.QueueEntry, operation string) {
	if s.broker == nil {
		return
	}

	msg := messaging.Message{
		Type: messaging.ChannelLaneChanged,
		Payload: messaging.LaneChanged{
			Department:   entry.Department,
			Status:       string(entry.Status),
			QueueEntryID: entry.ID.String(),
			Operation:    operation,
		},
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := s.broker.Publish(ctx, messaging.ChannelLaneChanged, msg); err != nil {
			if s.metrics != nil {
				s.metrics.BrokerPublishErrors.Inc()
			}
			log.Error().Err(err).
				Str("queue_entry_id", entry.ID.String()).
				Msg("failed to publish lane change")
		}
	}()
}
