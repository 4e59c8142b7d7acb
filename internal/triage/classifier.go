// Package triage implements the deterministic severity classifier used when a
// patient is assessed. Rules are evaluated top to bottom and the first match
// wins; later rules are weaker conditions, so the ordering is load-bearing.
package triage

import (
	"github.com/jwalitptl/hospital-queue-api/internal/model"
)

// Adult and pediatric vital thresholds. Mode selects the set; computed age is
// never consulted.
const (
	spo2EmergencyBelow = 90

	tempVeryUrgentHigh = 40.0
	tempVeryUrgentLow  = 35.0
	tempUrgentHigh     = 38.5

	adultHRLow   = 40
	adultHRHigh  = 130
	childHRLow   = 60
	childHRHigh  = 160
	hrUrgentHigh = 100

	systolicLow  = 90
	systolicHigh = 180

	adultRRLow  = 10
	adultRRHigh = 30
	childRRLow  = 15
	childRRHigh = 40

	burnsEmergencyPercent = 20
	burnsUrgentPercent    = 10

	painUrgentLevel = 7

	postpartumWindowDays = 7
)

// Classify maps a full assessment input to a severity category. Pure and
// deterministic: no I/O, no clock, missing vitals simply fail to trigger
// their rule.
func Classify(in model.TriageInput) model.TriageCategory {
	if isEmergency(in) {
		return model.TriageCategoryEmergency
	}
	if isVeryUrgent(in) {
		return model.TriageCategoryVeryUrgent
	}
	if isUrgent(in) {
		return model.TriageCategoryUrgent
	}
	return model.TriageCategoryRoutine
}

func isEmergency(in model.TriageInput) bool {
	if in.Vitals.AVPU != nil && *in.Vitals.AVPU == model.AVPUUnresponsive {
		return true
	}
	if in.Vitals.OxygenSat != nil && *in.Vitals.OxygenSat < spo2EmergencyBelow {
		return true
	}
	if in.Discriminators.SevereBleeding {
		return true
	}
	if in.Context.BurnsPercent != nil && *in.Context.BurnsPercent > burnsEmergencyPercent {
		return true
	}
	return false
}

func isVeryUrgent(in model.TriageInput) bool {
	if t := in.Vitals.Temperature; t != nil && (*t >= tempVeryUrgentHigh || *t < tempVeryUrgentLow) {
		return true
	}
	hrLow, hrHigh := adultHRLow, adultHRHigh
	if in.Mode == model.TriageModeChild {
		hrLow, hrHigh = childHRLow, childHRHigh
	}
	if hr := in.Vitals.HeartRate; hr != nil && (*hr < hrLow || *hr > hrHigh) {
		return true
	}
	if sys := in.Vitals.SystolicBP; sys != nil && (*sys < systolicLow || *sys > systolicHigh) {
		return true
	}
	if in.Discriminators.RespiratoryDistress {
		return true
	}
	rrLow, rrHigh := adultRRLow, adultRRHigh
	if in.Mode == model.TriageModeChild {
		rrLow, rrHigh = childRRLow, childRRHigh
	}
	if rr := in.Vitals.RespiratoryRate; rr != nil && (*rr < rrLow || *rr > rrHigh) {
		return true
	}
	if in.Context.Pregnant && in.Discriminators.ChestPain {
		return true
	}
	if in.Context.Pregnant && in.Discriminators.RespiratoryDistress {
		return true
	}
	if pp := in.Context.PostpartumDays; pp != nil && *pp <= postpartumWindowDays && in.Discriminators.ChestPain {
		return true
	}
	if tt := in.Context.TraumaType; tt != nil {
		if *tt == model.TraumaPenetrating || *tt == model.TraumaRoadTraffic {
			return true
		}
	}
	return false
}

func isUrgent(in model.TriageInput) bool {
	if p := in.Context.PainLevel; p != nil && *p >= painUrgentLevel {
		return true
	}
	if in.Discriminators.ChestPain {
		return true
	}
	if tt := in.Context.TraumaType; tt != nil && *tt == model.TraumaBurns {
		if bp := in.Context.BurnsPercent; bp != nil && *bp > burnsUrgentPercent {
			return true
		}
	}
	if t := in.Vitals.Temperature; t != nil && *t >= tempUrgentHigh {
		return true
	}
	if hr := in.Vitals.HeartRate; hr != nil && *hr > hrUrgentHigh {
		return true
	}
	return false
}
