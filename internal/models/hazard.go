package models

import "time"

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

type HazardStatus string

const (
	HazardStatusActive  HazardStatus = "active"
	HazardStatusFixed   HazardStatus = "fixed"
	HazardStatusRemoved HazardStatus = "removed"
)

// Hazard is a reported road defect. Severity and status are authoritative
// from the hazard backend; the engine treats them as read-only for the
// duration of a journey.
type Hazard struct {
	ID        string       `json:"id"`
	Latitude  float64      `json:"latitude"`
	Longitude float64      `json:"longitude"`
	Severity  Severity     `json:"severity"`
	Status    HazardStatus `json:"status"`
	Note      string       `json:"note,omitempty"`
}

func (h *Hazard) Coordinate() Coordinate {
	return Coordinate{
		Latitude:  h.Latitude,
		Longitude: h.Longitude,
	}
}

// PositionFix is a single reading from the location provider. SpeedMPS is
// the instantaneous speed in m/s when the provider reports one.
type PositionFix struct {
	Coordinate Coordinate `json:"coordinate"`
	SpeedMPS   *float64   `json:"speed_mps,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}
