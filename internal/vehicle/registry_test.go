package vehicle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobin2005/roadgaurd-dark/internal/models"
)

func TestLookup_AllKnownKeys(t *testing.T) {
	tests := []struct {
		key            models.VehicleKey
		warningSeconds float64
		passageRadius  float64
		priority       models.PriorityTier
	}{
		{models.VehicleTwoWheeler, 15, 40, models.PriorityHigh},
		{models.VehicleThreeWheeler, 13, 35, models.PriorityElevated},
		{models.VehicleFourWheeler, 10, 30, models.PriorityStandard},
		{models.VehicleTruck, 10, 30, models.PriorityStandard},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			p, err := Lookup(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.warningSeconds, p.WarningSeconds)
			assert.Equal(t, tt.passageRadius, p.PassageRadiusM)
			assert.Equal(t, tt.priority, p.Priority)
		})
	}
}

func TestLookup_UnknownKey(t *testing.T) {
	_, err := Lookup("hovercraft")
	assert.Error(t, err)
}

func TestAll_StableOrder(t *testing.T) {
	first := All()
	second := All()
	require.Len(t, first, 4)
	assert.Equal(t, first, second)
	assert.Equal(t, models.VehicleTwoWheeler, first[0].Key)
	assert.Equal(t, models.VehicleTruck, first[3].Key)
}

func TestPassageRadiusWithinWarningDistance(t *testing.T) {
	// Warning lead distance at the 50 km/h fallback speed must exceed the
	// passage radius so warnings always evaluate before passage.
	for _, p := range All() {
		assert.LessOrEqual(t, p.PassageRadiusM, p.WarningSeconds*(50.0/3.6))
	}
}
