package geo

import (
	"errors"
	"math"

	"github.com/twpayne/go-polyline"

	"github.com/jobin2005/roadgaurd-dark/internal/models"
)

const (
	earthRadiusMeters = 6371000.0

	// Equirectangular scale factors, valid for segments up to a few km.
	metersPerDegreeLat = 111320.0
)

// Haversine returns the great-circle distance between two coordinates in
// meters. Symmetric, zero for identical points.
func Haversine(a, b models.Coordinate) float64 {
	if a == b {
		return 0
	}

	dLat := toRad(b.Latitude - a.Latitude)
	dLng := toRad(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Latitude))*math.Cos(toRad(b.Latitude))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// PointToSegment returns the distance in meters from a point to a line
// segment, computed in a locally-flattened equirectangular projection. The
// projection parameter is clamped to [0,1] so the nearest point lies on the
// segment itself, and a zero-length segment falls back to the endpoint
// distance.
func PointToSegment(p, segStart, segEnd models.Coordinate) float64 {
	latScale := metersPerDegreeLat
	lngScale := metersPerDegreeLat * math.Cos(toRad((segStart.Latitude+segEnd.Latitude)/2))

	px := (p.Longitude - segStart.Longitude) * lngScale
	py := (p.Latitude - segStart.Latitude) * latScale
	dx := (segEnd.Longitude - segStart.Longitude) * lngScale
	dy := (segEnd.Latitude - segStart.Latitude) * latScale

	lenSq := dx*dx + dy*dy
	t := 0.0
	if lenSq > 0 {
		t = math.Max(0, math.Min(1, (px*dx+py*dy)/lenSq))
	}

	nearX := dx*t - px
	nearY := dy*t - py
	return math.Sqrt(nearX*nearX + nearY*nearY)
}

// PointToPolyline returns the minimum distance in meters from a point to
// any segment of the polyline.
func PointToPolyline(p models.Coordinate, points []models.Coordinate) (float64, error) {
	if len(points) == 0 {
		return 0, errors.New("polyline has no points")
	}
	if len(points) == 1 {
		return Haversine(p, points[0]), nil
	}

	minDist := math.Inf(1)
	for i := 0; i < len(points)-1; i++ {
		if d := PointToSegment(p, points[i], points[i+1]); d < minDist {
			minDist = d
		}
	}
	return minDist, nil
}

// PathLength returns the cumulative haversine length of a polyline in meters.
func PathLength(points []models.Coordinate) float64 {
	total := 0.0
	for i := 0; i < len(points)-1; i++ {
		total += Haversine(points[i], points[i+1])
	}
	return total
}

// DecodePolyline decodes a Google encoded polyline into coordinates.
func DecodePolyline(encoded string) ([]models.Coordinate, error) {
	if encoded == "" {
		return nil, errors.New("encoded polyline is empty")
	}

	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, errors.New("failed to decode polyline: " + err.Error())
	}

	points := make([]models.Coordinate, len(coords))
	for i, c := range coords {
		points[i] = models.Coordinate{Latitude: c[0], Longitude: c[1]}
		if !validCoordinate(points[i]) {
			return nil, errors.New("decoded polyline contains invalid coordinates")
		}
	}
	return points, nil
}

func validCoordinate(p models.Coordinate) bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
