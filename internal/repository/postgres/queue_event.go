package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	apperrors "github.com/jwalitptl/hospital-queue-api/pkg/errors"

	"github.com/jwalitptl/hospital-queue-api/internal/model"
)

func (r *queueEventRepository) ListForEntry(ctx context.Context, queueEntryID uuid.UUID) ([]*model.QueueEvent, error) {
	query := `
		SELECT id, queue_entry_id, from_status, to_status, created_at
		FROM queue_events
		WHERE queue_entry_id = $1
		ORDER BY created_at ASC
	`
	var events []*model.QueueEvent
	err := r.db.SelectContext(ctx, &events, query, queueEntryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue events: %w", err)
	}
	return events, nil
}

func (r *queueEventRepository) LatestForEntry(ctx context.Context, queueEntryID uuid.UUID, toStatus model.QueueStatus) (*model.QueueEvent, error) {
	query := `
		SELECT id, queue_entry_id, from_status, to_status, created_at
		FROM queue_events
		WHERE queue_entry_id = $1 AND to_status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	var event model.QueueEvent
	err := r.db.GetContext(ctx, &event, query, queueEntryID, toStatus)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("queue event", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest queue event: %w", err)
	}
	return &event, nil
}

// LaneMetrics derives wait and service averages purely from the event log and
// check-in creation times. Entries without a matching in_service event are
// excluded from the service average rather than erroring.
func (r *queueEventRepository) LaneMetrics(ctx context.Context, filters *model.MetricsFilters) (*model.LaneMetrics, error) {
	metrics := &model.LaneMetrics{}

	deptClause := ""
	args := []interface{}{model.QueueStatusInService, filters.From, filters.To}
	if filters.Department != "" {
		deptClause = " AND q.department = $4"
		args = append(args, filters.Department)
	}

	// Average wait: time from check-in creation to the entry's entry into
	// service, over all in_service events in range.
	waitQuery := `
		SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (e.created_at - c.created_at)) / 60), 0),
			   COUNT(*)
		FROM queue_events e
		JOIN queue_entries q ON q.id = e.queue_entry_id
		JOIN check_ins c ON c.id = q.checkin_id
		WHERE e.to_status = $1
		AND e.created_at >= $2 AND e.created_at < $3` + deptClause

	row := r.db.QueryRowxContext(ctx, waitQuery, args...)
	if err := row.Scan(&metrics.AvgWaitMinutes, &metrics.Serviced); err != nil {
		return nil, fmt.Errorf("failed to compute average wait: %w", err)
	}

	// Average service: each done event paired with the latest in_service
	// event for the same entry at or before it.
	svcArgs := []interface{}{model.QueueStatusDone, filters.From, filters.To, model.QueueStatusInService}
	svcDeptClause := ""
	if filters.Department != "" {
		svcDeptClause = " AND q.department = $5"
		svcArgs = append(svcArgs, filters.Department)
	}
	serviceQuery := `
		SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (d.created_at - s.started_at)) / 60), 0)
		FROM queue_events d
		JOIN queue_entries q ON q.id = d.queue_entry_id
		JOIN LATERAL (
			SELECT created_at AS started_at
			FROM queue_events
			WHERE queue_entry_id = d.queue_entry_id
			AND to_status = $4
			AND created_at <= d.created_at
			ORDER BY created_at DESC
			LIMIT 1
		) s ON true
		WHERE d.to_status = $1
		AND d.created_at >= $2 AND d.created_at < $3` + svcDeptClause

	if err := r.db.GetContext(ctx, &metrics.AvgServiceMinutes, serviceQuery, svcArgs...); err != nil {
		return nil, fmt.Errorf("failed to compute average service time: %w", err)
	}

	// Completed counts every done event in range, including entries that
	// went straight from waiting to done.
	doneArgs := []interface{}{model.QueueStatusDone, filters.From, filters.To}
	doneDeptClause := ""
	if filters.Department != "" {
		doneDeptClause = " AND q.department = $4"
		doneArgs = append(doneArgs, filters.Department)
	}
	completedQuery := `
		SELECT COUNT(*)
		FROM queue_events e
		JOIN queue_entries q ON q.id = e.queue_entry_id
		WHERE e.to_status = $1
		AND e.created_at >= $2 AND e.created_at < $3` + doneDeptClause

	if err := r.db.GetContext(ctx, &metrics.Completed, completedQuery, doneArgs...); err != nil {
		return nil, fmt.Errorf("failed to count completed: %w", err)
	}

	// Arrivals: first events (origination into waiting) in range.
	arrArgs := []interface{}{model.QueueStatusWaiting, filters.From, filters.To}
	arrDeptClause := ""
	if filters.Department != "" {
		arrDeptClause = " AND q.department = $4"
		arrArgs = append(arrArgs, filters.Department)
	}
	arrivalsQuery := `
		SELECT COUNT(*)
		FROM queue_events e
		JOIN queue_entries q ON q.id = e.queue_entry_id
		WHERE e.to_status = $1
		AND e.from_status IS NULL
		AND e.created_at >= $2 AND e.created_at < $3` + arrDeptClause

	if err := r.db.GetContext(ctx, &metrics.Arrivals, arrivalsQuery, arrArgs...); err != nil {
		return nil, fmt.Errorf("failed to count arrivals: %w", err)
	}

	return metrics, nil
}
