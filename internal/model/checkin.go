package model

import (
	"time"

	"github.com/google/uuid"
)

type CheckInStatus string

const (
	CheckInStatusArrived   CheckInStatus = "arrived"
	CheckInStatusWithNurse CheckInStatus = "with_nurse"
	CheckInStatusInRoom    CheckInStatus = "in_room"
	CheckInStatusComplete  CheckInStatus = "complete"
	CheckInStatusCancelled CheckInStatus = "cancelled"
)

// checkInOrder defines the monotonic progression of a visit. Cancelled is
// reachable from any non-terminal status; nothing leaves complete or cancelled.
var checkInOrder = map[CheckInStatus]int{
	CheckInStatusArrived:   0,
	CheckInStatusWithNurse: 1,
	CheckInStatusInRoom:    2,
	CheckInStatusComplete:  3,
}

// CanAdvanceTo reports whether a check-in may move from its current status to next.
func (s CheckInStatus) CanAdvanceTo(next CheckInStatus) bool {
	if s == CheckInStatusComplete || s == CheckInStatusCancelled {
		return false
	}
	if next == CheckInStatusCancelled {
		return true
	}
	cur, ok := checkInOrder[s]
	if !ok {
		return false
	}
	nxt, ok := checkInOrder[next]
	if !ok {
		return false
	}
	return nxt > cur
}

// CheckIn records a patient's physical arrival for a visit. Created once at the
// front desk and advanced by staff as the visit progresses.
type CheckIn struct {
	ID            uuid.UUID     `db:"id" json:"id"`
	PatientID     uuid.UUID     `db:"patient_id" json:"patient_id"`
	AppointmentID *uuid.UUID    `db:"appointment_id" json:"appointment_id,omitempty"`
	Status        CheckInStatus `db:"status" json:"status"`
	Department    *string       `db:"department" json:"department,omitempty"`
	CheckedInBy   *uuid.UUID    `db:"checked_in_by" json:"checked_in_by,omitempty"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

type CreateCheckInRequest struct {
	PatientID     uuid.UUID  `json:"patient_id" binding:"required"`
	AppointmentID *uuid.UUID `json:"appointment_id"`
	Department    *string    `json:"department"`
}

type UpdateCheckInStatusRequest struct {
	Status CheckInStatus `json:"status" binding:"required"`
}

type CheckInFilters struct {
	Department string
	Status     CheckInStatus
	Since      time.Time
}
