package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jobin2005/roadgaurd-dark/internal/models"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS journeys (
			id TEXT PRIMARY KEY,
			traveler_id TEXT NOT NULL,
			vehicle TEXT NOT NULL,
			route_id TEXT,
			hazard_count INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		);

		CREATE TABLE IF NOT EXISTS journey_passages (
			journey_id TEXT NOT NULL,
			hazard_id TEXT NOT NULL,
			passed_at DATETIME NOT NULL,
			FOREIGN KEY (journey_id) REFERENCES journeys(id)
		);

		CREATE TABLE IF NOT EXISTS journey_flags (
			journey_id TEXT NOT NULL,
			hazard_id TEXT NOT NULL,
			accepted INTEGER NOT NULL,
			removed INTEGER NOT NULL,
			flagged_at DATETIME NOT NULL,
			FOREIGN KEY (journey_id) REFERENCES journeys(id)
		);

		CREATE INDEX IF NOT EXISTS idx_journeys_started_at ON journeys(started_at);
		CREATE INDEX IF NOT EXISTS idx_passages_journey_id ON journey_passages(journey_id);
		CREATE INDEX IF NOT EXISTS idx_flags_journey_id ON journey_flags(journey_id);
  	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) CreateJourney(ctx context.Context, j *JourneyRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO journeys (id, traveler_id, vehicle, route_id, hazard_count, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		j.ID, j.TravelerID, string(j.Vehicle), j.RouteID, j.HazardCount, j.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting journey: %w", err)
	}
	return nil
}

func (s *SQLiteDB) EndJourney(ctx context.Context, id string, endedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE journeys SET ended_at = ? WHERE id = ? AND ended_at IS NULL`,
		endedAt, id,
	)
	if err != nil {
		return fmt.Errorf("error ending journey: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("journey not found or already ended: %s", id)
	}
	return nil
}

func (s *SQLiteDB) RecordPassage(ctx context.Context, p *PassageRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO journey_passages (journey_id, hazard_id, passed_at)
		VALUES (?, ?, ?)`,
		p.JourneyID, p.HazardID, p.At,
	)
	if err != nil {
		return fmt.Errorf("error inserting passage: %w", err)
	}
	return nil
}

func (s *SQLiteDB) RecordFlag(ctx context.Context, f *FlagRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO journey_flags (journey_id, hazard_id, accepted, removed, flagged_at)
		VALUES (?, ?, ?, ?, ?)`,
		f.JourneyID, f.HazardID, f.Accepted, f.Removed, f.At,
	)
	if err != nil {
		return fmt.Errorf("error inserting flag: %w", err)
	}
	return nil
}

func (s *SQLiteDB) ListJourneys(ctx context.Context, opts Filter) ([]JourneyRecord, error) {
	query := `
		SELECT j.id, j.traveler_id, j.vehicle, j.route_id, j.hazard_count, j.started_at, j.ended_at,
			(SELECT COUNT(*) FROM journey_passages p WHERE p.journey_id = j.id),
			(SELECT COUNT(*) FROM journey_flags f WHERE f.journey_id = j.id)
		FROM journeys j
		WHERE 1=1`
	args := []any{}

	if opts.TravelerID != nil {
		query += " AND j.traveler_id = ?"
		args = append(args, *opts.TravelerID)
	}
	if opts.Since != nil {
		query += " AND j.started_at >= ?"
		args = append(args, *opts.Since)
	}

	query += " ORDER BY j.started_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing journeys: %w", err)
	}
	defer rows.Close()

	var journeys []JourneyRecord
	for rows.Next() {
		var (
			j       JourneyRecord
			vehicle string
			routeID sql.NullString
			endedAt sql.NullTime
		)
		if err := rows.Scan(&j.ID, &j.TravelerID, &vehicle, &routeID, &j.HazardCount,
			&j.StartedAt, &endedAt, &j.PassageCount, &j.FlagCount); err != nil {
			return nil, fmt.Errorf("error scanning journey: %w", err)
		}
		j.Vehicle = models.VehicleKey(vehicle)
		if routeID.Valid {
			j.RouteID = routeID.String
		}
		if endedAt.Valid {
			t := endedAt.Time
			j.EndedAt = &t
		}
		journeys = append(journeys, j)
	}
	return journeys, rows.Err()
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
