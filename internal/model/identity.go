package model

import "github.com/google/uuid"

// PatientSummary is the read-only view the identity collaborator returns.
// Category mirrors the latest triage assessment; assessments stay the source
// of truth.
type PatientSummary struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	PatientNumber string          `db:"patient_number" json:"patient_number"`
	Category      *TriageCategory `db:"category" json:"category,omitempty"`
}

// StaffSummary is the read-only staff view the identity collaborator returns.
type StaffSummary struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
	Role string    `db:"role" json:"role"`
}
