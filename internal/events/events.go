package events

import (
	"time"

	"github.com/jobin2005/roadgaurd-dark/internal/models"
)

type Type string

const (
	TypeSpeedUpdated     Type = "speed_updated"
	TypeDistanceToDest   Type = "distance_to_destination_updated"
	TypeWarningTriggered Type = "warning_triggered"
	TypeHazardPassed     Type = "hazard_passed"
	TypeFlagWindowOpened Type = "flag_window_opened"
	TypeFlagWindowClosed Type = "flag_window_closed"
	TypeStatusChanged    Type = "status_changed"
	TypeJourneyStarted   Type = "journey_started"
	TypeJourneyStopped   Type = "journey_stopped"
)

// Window close reasons.
const (
	CloseReasonExpired = "expired"
	CloseReasonFlagged = "flagged"
	CloseReasonStopped = "stopped"
)

// Tracking status values carried by status_changed events.
const (
	StatusTracking = "tracking"
	StatusDegraded = "degraded"
	StatusStopped  = "stopped"
)

// Event is one discrete signal for the presentation collaborator. Fields
// beyond Type/At are populated per event type; warnings are ephemeral and
// carry no display duration.
type Event struct {
	Type      Type      `json:"type"`
	At        time.Time `json:"at"`
	SessionID string    `json:"session_id,omitempty"`

	// Not omitempty: a known 0 km/h speed must stay distinguishable from
	// an unknown one on the wire.
	SpeedKMH   float64 `json:"speed_kmh"`
	SpeedKnown bool    `json:"speed_known"`
	DistanceM  float64 `json:"distance_m,omitempty"`

	Hazard      *models.Hazard         `json:"hazard,omitempty"`
	SecondsAway int                    `json:"seconds_away,omitempty"`
	Vehicle     *models.VehicleProfile `json:"vehicle,omitempty"`

	WindowExpiresAt *time.Time `json:"window_expires_at,omitempty"`
	Reason          string     `json:"reason,omitempty"`
	Status          string     `json:"status,omitempty"`
	Detail          string     `json:"detail,omitempty"`
}
