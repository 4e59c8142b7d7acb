package model

import (
	"time"

	"github.com/google/uuid"
)

type QueueStatus string

const (
	QueueStatusWaiting   QueueStatus = "waiting"
	QueueStatusInService QueueStatus = "in_service"
	QueueStatusDone      QueueStatus = "done"
	QueueStatusCancelled QueueStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are permitted.
func (s QueueStatus) IsTerminal() bool {
	return s == QueueStatusDone || s == QueueStatusCancelled
}

type QueueAction string

const (
	QueueActionAdvance QueueAction = "advance"
	QueueActionStart   QueueAction = "start"
	QueueActionDone    QueueAction = "done"
	QueueActionCancel  QueueAction = "cancel"
	QueueActionWaiting QueueAction = "waiting"
)

// queueTransitions maps each action to the statuses it may be applied from.
// advance and start are synonyms for the same waiting -> in_service move.
var queueTransitions = map[QueueAction][]QueueStatus{
	QueueActionAdvance: {QueueStatusWaiting},
	QueueActionStart:   {QueueStatusWaiting},
	QueueActionDone:    {QueueStatusWaiting, QueueStatusInService},
	QueueActionCancel:  {QueueStatusWaiting, QueueStatusInService},
	QueueActionWaiting: {QueueStatusInService},
}

// queueTargets maps each action to the status it produces.
var queueTargets = map[QueueAction]QueueStatus{
	QueueActionAdvance: QueueStatusInService,
	QueueActionStart:   QueueStatusInService,
	QueueActionDone:    QueueStatusDone,
	QueueActionCancel:  QueueStatusCancelled,
	QueueActionWaiting: QueueStatusWaiting,
}

// ValidQueueAction reports whether action names a known transition.
func ValidQueueAction(action QueueAction) bool {
	_, ok := queueTargets[action]
	return ok
}

// QueueTarget returns the status an action transitions to.
func QueueTarget(action QueueAction) (QueueStatus, bool) {
	target, ok := queueTargets[action]
	return target, ok
}

// ValidQueueTransition reports whether action may be applied from the given status.
func ValidQueueTransition(action QueueAction, from QueueStatus) bool {
	allowed, ok := queueTransitions[action]
	if !ok {
		return false
	}
	for _, status := range allowed {
		if status == from {
			return true
		}
	}
	return false
}

// QueueEntry is one patient's place in a department lane. Position only orders
// entries within the waiting lane; the effective serving order is
// priority DESC, position ASC, updated_at ASC.
type QueueEntry struct {
	ID         uuid.UUID   `db:"id" json:"id"`
	Department string      `db:"department" json:"department"`
	CheckInID  uuid.UUID   `db:"checkin_id" json:"checkin_id"`
	Status     QueueStatus `db:"status" json:"status"`
	Priority   int         `db:"priority" json:"priority"`
	Position   int         `db:"position" json:"position"`
	CreatedAt  time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updated_at"`
}

// QueueEvent is one row of the append-only transition log. FromStatus is nil
// on the first event of an entry. The log is never mutated or deleted.
type QueueEvent struct {
	ID           uuid.UUID    `db:"id" json:"id"`
	QueueEntryID uuid.UUID    `db:"queue_entry_id" json:"queue_entry_id"`
	FromStatus   *QueueStatus `db:"from_status" json:"from_status,omitempty"`
	ToStatus     QueueStatus  `db:"to_status" json:"to_status"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
}

// LaneMetrics aggregates wait and service durations over a period, derived
// purely from the event log plus check-in creation times.
type LaneMetrics struct {
	AvgWaitMinutes    float64 `json:"avg_wait_minutes"`
	AvgServiceMinutes float64 `json:"avg_service_minutes"`
	Arrivals          int     `json:"arrivals"`
	Serviced          int     `json:"serviced"`
	Completed         int     `json:"completed"`
}

type ReorderPlace string

const (
	ReorderBefore ReorderPlace = "before"
	ReorderAfter  ReorderPlace = "after"
)

// CreateQueueEntryRequest originates a lane entry for a check-in. Department
// falls back to the check-in's tag when omitted; priority defaults to the
// triage band or zero.
type CreateQueueEntryRequest struct {
	Department string `json:"department" binding:"omitempty,max=64"`
	Priority   *int   `json:"priority" binding:"omitempty,gte=0,lte=100"`
}

type TransitionRequest struct {
	Action QueueAction `json:"action" binding:"required"`
}

type SetPriorityRequest struct {
	Priority int `json:"priority" binding:"gte=0,lte=100"`
}

// ReorderRequest selects exactly one of: move to top, move relative to a
// target entry in the same lane, or append to the end of the lane.
type ReorderRequest struct {
	Department  string        `json:"department" binding:"required,max=64"`
	Status      QueueStatus   `json:"status" binding:"required"`
	MoveToTop   bool          `json:"move_to_top"`
	TargetID    *uuid.UUID    `json:"target_id"`
	Place       *ReorderPlace `json:"place" binding:"omitempty,oneof=before after"`
	AppendToEnd bool          `json:"append_to_end"`
}

type QueueFilters struct {
	Department string
	Status     QueueStatus
}

type MetricsFilters struct {
	Department string
	From       time.Time
	To         time.Time
}
