package repository

import (
	"context"
	"time"

	"github.com/jobin2005/roadgaurd-dark/internal/models"
)

// JourneyRecord is the locally persisted trace of one journey session.
type JourneyRecord struct {
	ID           string
	TravelerID   string
	Vehicle      models.VehicleKey
	RouteID      string
	HazardCount  int
	StartedAt    time.Time
	EndedAt      *time.Time
	PassageCount int
	FlagCount    int
}

type PassageRecord struct {
	JourneyID string
	HazardID  string
	At        time.Time
}

type FlagRecord struct {
	JourneyID string
	HazardID  string
	Accepted  bool
	Removed   bool
	At        time.Time
}

type Filter struct {
	Limit      int
	TravelerID *string
	Since      *time.Time
}

// JourneyStore records journey history and locally-observed passage/flag
// telemetry. The backend stays authoritative for hazard state; this is a
// device-side journal.
type JourneyStore interface {
	CreateJourney(ctx context.Context, j *JourneyRecord) error
	EndJourney(ctx context.Context, id string, endedAt time.Time) error
	RecordPassage(ctx context.Context, p *PassageRecord) error
	RecordFlag(ctx context.Context, f *FlagRecord) error
	ListJourneys(ctx context.Context, opts Filter) ([]JourneyRecord, error)
}
