package risk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobin2005/roadgaurd-dark/internal/models"
)

// testRoute runs due east along a parallel; offsets below place hazards at
// controlled lateral distances (1e-5 deg latitude is ~1.11 m).
func testRoute() models.Route {
	return models.Route{
		ID: "r1",
		Points: []models.Coordinate{
			{Latitude: 12.9700, Longitude: 77.5900},
			{Latitude: 12.9700, Longitude: 77.6000},
			{Latitude: 12.9700, Longitude: 77.6100},
		},
	}
}

func hazardAtOffset(id string, offsetMeters float64, severity models.Severity) models.Hazard {
	return models.Hazard{
		ID:        id,
		Latitude:  12.9700 + offsetMeters/111320.0,
		Longitude: 77.6000,
		Severity:  severity,
		Status:    models.HazardStatusActive,
	}
}

func TestAnalyzeRoute_ThresholdAndScore(t *testing.T) {
	hazards := []models.Hazard{
		hazardAtOffset("h1", 10, models.SeverityHigh),
		hazardAtOffset("h2", 40, models.SeverityHigh), // outside 35 m threshold
		hazardAtOffset("h3", 20, models.SeverityMedium),
	}

	a := NewAnalyzer(DefaultThresholdMeters)
	got, err := a.AnalyzeRoute(context.Background(), testRoute(), hazards)
	require.NoError(t, err)

	require.Len(t, got.Matches, 2)
	assert.Equal(t, "h1", got.Matches[0].Hazard.ID)
	assert.Equal(t, "h3", got.Matches[1].Hazard.ID)
	assert.Equal(t, 1, got.HighCount)
	assert.Equal(t, 1, got.MediumCount)
	assert.Equal(t, 3, got.RiskScore)

	assert.InDelta(t, 10, got.Matches[0].DistanceFromRoute, 0.5)
	assert.InDelta(t, 20, got.Matches[1].DistanceFromRoute, 0.5)
}

func TestAnalyzeRoute_LowSeverityScoresZero(t *testing.T) {
	hazards := []models.Hazard{
		hazardAtOffset("h1", 5, models.SeverityLow),
	}

	a := NewAnalyzer(DefaultThresholdMeters)
	got, err := a.AnalyzeRoute(context.Background(), testRoute(), hazards)
	require.NoError(t, err)

	assert.Len(t, got.Matches, 1)
	assert.Equal(t, 0, got.RiskScore)
}

func TestAnalyzeRoute_RejectsShortRoute(t *testing.T) {
	a := NewAnalyzer(DefaultThresholdMeters)
	_, err := a.AnalyzeRoute(context.Background(), models.Route{
		Points: []models.Coordinate{{Latitude: 12.97, Longitude: 77.59}},
	}, nil)
	assert.Error(t, err)
}

func TestSafest_LowestScoreWins(t *testing.T) {
	assessments := []Assessment{
		{RouteID: "a", RiskScore: 4},
		{RouteID: "b", RiskScore: 1},
		{RouteID: "c", RiskScore: 3},
	}
	assert.Equal(t, 1, Safest(assessments))
}

func TestSafest_TieGoesToFirst(t *testing.T) {
	assessments := []Assessment{
		{RouteID: "a", RiskScore: 2},
		{RouteID: "b", RiskScore: 2},
	}
	assert.Equal(t, 0, Safest(assessments))
}

func TestSafest_Empty(t *testing.T) {
	assert.Equal(t, -1, Safest(nil))
}
