package models

type PriorityTier string

const (
	PriorityHigh     PriorityTier = "HIGH"
	PriorityElevated PriorityTier = "ELEVATED"
	PriorityStandard PriorityTier = "STANDARD"
)

type VehicleKey string

const (
	VehicleTwoWheeler   VehicleKey = "two_wheeler"
	VehicleThreeWheeler VehicleKey = "three_wheeler"
	VehicleFourWheeler  VehicleKey = "four_wheeler"
	VehicleTruck        VehicleKey = "truck"
)

// VehicleProfile holds the alerting parameters for one vehicle class.
// Profiles are statically defined and looked up by key, never constructed
// at runtime. Tone and vibration parameters are device-capability-gated
// hints for the presentation layer.
type VehicleProfile struct {
	Key             VehicleKey   `json:"key"`
	Label           string       `json:"label"`
	Description     string       `json:"description"`
	WarningSeconds  float64      `json:"warning_seconds"`
	PassageRadiusM  float64      `json:"passage_radius_m"`
	ToneFrequencyHz float64      `json:"tone_frequency_hz"`
	ToneDurationS   float64      `json:"tone_duration_s"`
	VibrationMS     []int        `json:"vibration_ms"`
	Color           string       `json:"color"`
	Priority        PriorityTier `json:"priority"`
}
