package models

// Coordinate is a WGS84 position in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Route is an ordered polyline plus aggregate metadata, immutable once
// selected for a journey. A usable route has at least 2 points.
type Route struct {
	ID        string       `json:"id"`
	Points    []Coordinate `json:"points"`
	DistanceM float64      `json:"distance_m"`
	DurationS float64      `json:"duration_s"`
}

func (r *Route) Valid() bool {
	return r != nil && len(r.Points) >= 2
}

func (r *Route) Start() Coordinate {
	return r.Points[0]
}
