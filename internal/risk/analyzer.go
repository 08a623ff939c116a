package risk

import (
	"context"
	"errors"
	"math"

	"github.com/jobin2005/roadgaurd-dark/internal/geo"
	"github.com/jobin2005/roadgaurd-dark/internal/models"
)

// DefaultThresholdMeters is the lateral distance within which a hazard is
// considered to lie on a route.
const DefaultThresholdMeters = 35.0

// Match is a hazard found near a route, annotated with its minimum
// distance from the polyline.
type Match struct {
	Hazard            models.Hazard `json:"hazard"`
	DistanceFromRoute float64       `json:"distance_from_route_m"`
}

// Assessment summarizes the hazards near one candidate route.
type Assessment struct {
	RouteID     string  `json:"route_id"`
	Matches     []Match `json:"matches"`
	HighCount   int     `json:"high_count"`
	MediumCount int     `json:"medium_count"`
	RiskScore   int     `json:"risk_score"`
}

// Analyzer ranks candidate routes against a hazard set. Implementations
// with a spatial index can be swapped in without changing callers.
type Analyzer interface {
	AnalyzeRoute(ctx context.Context, route models.Route, hazards []models.Hazard) (Assessment, error)
}

type linearAnalyzer struct {
	thresholdM float64
}

// NewAnalyzer returns the linear O(hazards x segments) analyzer, adequate
// for routes of a few hundred points against a few hundred hazards.
func NewAnalyzer(thresholdMeters float64) Analyzer {
	if thresholdMeters <= 0 {
		thresholdMeters = DefaultThresholdMeters
	}
	return &linearAnalyzer{thresholdM: thresholdMeters}
}

func (a *linearAnalyzer) AnalyzeRoute(ctx context.Context, route models.Route, hazards []models.Hazard) (Assessment, error) {
	if !route.Valid() {
		return Assessment{}, errors.New("route must have at least 2 points")
	}

	assessment := Assessment{RouteID: route.ID}

	for _, h := range hazards {
		minDist := math.Inf(1)
		for i := 0; i < len(route.Points)-1; i++ {
			d := geo.PointToSegment(h.Coordinate(), route.Points[i], route.Points[i+1])
			if d < minDist {
				minDist = d
			}
		}

		if minDist > a.thresholdM {
			continue
		}

		assessment.Matches = append(assessment.Matches, Match{
			Hazard:            h,
			DistanceFromRoute: minDist,
		})
		switch h.Severity {
		case models.SeverityHigh:
			assessment.HighCount++
		case models.SeverityMedium:
			assessment.MediumCount++
		}
	}

	assessment.RiskScore = assessment.HighCount*2 + assessment.MediumCount
	return assessment, nil
}

// Safest returns the index of the lowest-scoring assessment. Ties go to the
// first-discovered route so ranking stays stable.
func Safest(assessments []Assessment) int {
	best := -1
	for i, a := range assessments {
		if best < 0 || a.RiskScore < assessments[best].RiskScore {
			best = i
		}
	}
	return best
}
