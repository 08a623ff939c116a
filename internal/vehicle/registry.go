package vehicle

import (
	"fmt"

	"github.com/jobin2005/roadgaurd-dark/internal/models"
)

// profiles is the process-wide registry. Lighter vehicles get longer lead
// times and wider passage tolerances; there is no mutation API.
var profiles = map[models.VehicleKey]models.VehicleProfile{
	models.VehicleTwoWheeler: {
		Key:             models.VehicleTwoWheeler,
		Label:           "Two Wheeler",
		Description:     "Motorcycle, scooter, bicycle",
		WarningSeconds:  15,
		PassageRadiusM:  40,
		ToneFrequencyHz: 1000,
		ToneDurationS:   0.9,
		VibrationMS:     []int{300, 100, 300, 100, 300},
		Color:           "#ef4444",
		Priority:        models.PriorityHigh,
	},
	models.VehicleThreeWheeler: {
		Key:             models.VehicleThreeWheeler,
		Label:           "Three Wheeler",
		Description:     "Auto rickshaw, tuk-tuk",
		WarningSeconds:  13,
		PassageRadiusM:  35,
		ToneFrequencyHz: 880,
		ToneDurationS:   0.7,
		VibrationMS:     []int{200, 100, 200},
		Color:           "#f59e0b",
		Priority:        models.PriorityElevated,
	},
	models.VehicleFourWheeler: {
		Key:             models.VehicleFourWheeler,
		Label:           "Four Wheeler",
		Description:     "Car, SUV, van",
		WarningSeconds:  10,
		PassageRadiusM:  30,
		ToneFrequencyHz: 660,
		ToneDurationS:   0.5,
		VibrationMS:     []int{150},
		Color:           "#3b82f6",
		Priority:        models.PriorityStandard,
	},
	models.VehicleTruck: {
		Key:             models.VehicleTruck,
		Label:           "Truck",
		Description:     "Lorry, heavy vehicle",
		WarningSeconds:  10,
		PassageRadiusM:  30,
		ToneFrequencyHz: 660,
		ToneDurationS:   0.5,
		VibrationMS:     []int{150},
		Color:           "#8b5cf6",
		Priority:        models.PriorityStandard,
	},
}

// keys fixes the listing order.
var keys = []models.VehicleKey{
	models.VehicleTwoWheeler,
	models.VehicleThreeWheeler,
	models.VehicleFourWheeler,
	models.VehicleTruck,
}

// Lookup returns the profile for a vehicle class.
func Lookup(key models.VehicleKey) (models.VehicleProfile, error) {
	p, ok := profiles[key]
	if !ok {
		return models.VehicleProfile{}, fmt.Errorf("unknown vehicle key: %q", key)
	}
	return p, nil
}

// All returns every profile in stable order.
func All() []models.VehicleProfile {
	out := make([]models.VehicleProfile, 0, len(keys))
	for _, k := range keys {
		out = append(out, profiles[k])
	}
	return out
}
