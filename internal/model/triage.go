package model

import (
	"time"

	"github.com/google/uuid"
)

type TriageCategory string

const (
	TriageCategoryEmergency  TriageCategory = "emergency"
	TriageCategoryVeryUrgent TriageCategory = "very_urgent"
	TriageCategoryUrgent     TriageCategory = "urgent"
	TriageCategoryRoutine    TriageCategory = "routine"
)

type TriageMode string

const (
	TriageModeAdult TriageMode = "adult"
	TriageModeChild TriageMode = "child"
)

// AVPU consciousness scale values.
const (
	AVPUAlert        = "A"
	AVPUVoice        = "V"
	AVPUPain         = "P"
	AVPUUnresponsive = "U"
)

// Vitals is the clinical snapshot captured during a triage assessment.
// Pointer fields distinguish "not measured" from a zero reading.
type Vitals struct {
	SystolicBP      *int     `db:"systolic_bp" json:"systolic_bp,omitempty"`
	DiastolicBP     *int     `db:"diastolic_bp" json:"diastolic_bp,omitempty"`
	HeartRate       *int     `db:"heart_rate" json:"heart_rate,omitempty"`
	RespiratoryRate *int     `db:"respiratory_rate" json:"respiratory_rate,omitempty"`
	Temperature     *float64 `db:"temperature" json:"temperature,omitempty"`
	OxygenSat       *int     `db:"oxygen_sat" json:"oxygen_sat,omitempty"`
	AVPU            *string  `db:"avpu" json:"avpu,omitempty"`
	Mobility        *string  `db:"mobility" json:"mobility,omitempty"`
}

// Discriminators are the yes/no clinical findings the triage nurse ticks off.
type Discriminators struct {
	SevereBleeding      bool `json:"severe_bleeding"`
	RespiratoryDistress bool `json:"respiratory_distress"`
	ChestPain           bool `json:"chest_pain"`
}

// TriageContext carries obstetric, trauma and pain context for an assessment.
type TriageContext struct {
	Pregnant       bool    `json:"pregnant"`
	PostpartumDays *int    `json:"postpartum_days,omitempty"`
	TraumaType     *string `json:"trauma_type,omitempty"`
	BurnsPercent   *int    `json:"burns_percent,omitempty"`
	PainLevel      *int    `json:"pain_level,omitempty"`
}

// Trauma type values recognised by the classifier.
const (
	TraumaPenetrating = "penetrating"
	TraumaRoadTraffic = "road_traffic"
	TraumaBurns       = "burns"
)

// TriageInput is the full field set the classifier evaluates.
type TriageInput struct {
	Mode           TriageMode     `json:"mode"`
	Vitals         Vitals         `json:"vitals"`
	Discriminators Discriminators `json:"discriminators"`
	Context        TriageContext  `json:"context"`
	ChiefComplaint string         `json:"chief_complaint"`
}

// TriageAssessment is one clinical assessment event. Immutable once created;
// a new assessment is the only way to revise a patient's category.
type TriageAssessment struct {
	ID             uuid.UUID      `db:"id" json:"id"`
	PatientID      uuid.UUID      `db:"patient_id" json:"patient_id"`
	RecordedBy     uuid.UUID      `db:"recorded_by" json:"recorded_by"`
	Mode           TriageMode     `db:"mode" json:"mode"`
	Vitals         Vitals         `json:"vitals"`
	Discriminators Discriminators `json:"discriminators"`
	Context        TriageContext  `json:"context"`
	ChiefComplaint string         `db:"chief_complaint" json:"chief_complaint"`
	Category       TriageCategory `db:"category" json:"category"`
	Metadata       Metadata       `json:"metadata,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

// Metadata is a free-form bag for notes the structured fields do not cover
// (referral source, interpreter needed, and so on). Never consulted by the
// classifier.
type Metadata map[string]interface{}

// Input returns the classifier input for this assessment.
func (a *TriageAssessment) Input() TriageInput {
	return TriageInput{
		Mode:           a.Mode,
		Vitals:         a.Vitals,
		Discriminators: a.Discriminators,
		Context:        a.Context,
		ChiefComplaint: a.ChiefComplaint,
	}
}

type CreateTriageAssessmentRequest struct {
	PatientID      uuid.UUID      `json:"patient_id" binding:"required"`
	Mode           TriageMode     `json:"mode" binding:"required,oneof=adult child"`
	Vitals         Vitals         `json:"vitals"`
	Discriminators Discriminators `json:"discriminators"`
	Context        TriageContext  `json:"context"`
	ChiefComplaint string         `json:"chief_complaint" binding:"max=2000"`
	Metadata       Metadata       `json:"metadata"`
}
