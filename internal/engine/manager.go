package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jobin2005/roadgaurd-dark/internal/backend"
	"github.com/jobin2005/roadgaurd-dark/internal/events"
	"github.com/jobin2005/roadgaurd-dark/internal/location"
	"github.com/jobin2005/roadgaurd-dark/internal/models"
	"github.com/jobin2005/roadgaurd-dark/internal/repository"
	"github.com/jobin2005/roadgaurd-dark/internal/vehicle"
)

var (
	ErrNoRoute         = errors.New("journey requires a route with at least 2 points")
	ErrNoVehicle       = errors.New("journey requires a vehicle profile")
	ErrNoTraveler      = errors.New("journey requires a traveler id")
	ErrNoActiveJourney = errors.New("no active journey")
)

// StartParams binds everything a journey session needs: one route, its
// hazard subset, one vehicle profile, and the traveler on whose behalf
// passages and flags are reported.
type StartParams struct {
	Route       models.Route
	Hazards     []models.Hazard
	VehicleKey  models.VehicleKey
	Destination *models.Coordinate
	TravelerID  string
}

// ManagerOptions wires the manager's collaborators. Provider, Store, Flags
// and Dispatcher are each optional; what is absent simply isn't done.
type ManagerOptions struct {
	Provider   location.Provider
	Flags      FlagSubmitter
	Dispatcher PassageDispatcher
	Store      repository.JourneyStore
	Events     *events.Broadcaster
	Settings   Settings
}

// Manager enforces the single-active-session rule: starting a new journey
// stops any prior one first.
type Manager struct {
	provider   location.Provider
	flags      FlagSubmitter
	dispatcher PassageDispatcher
	store      repository.JourneyStore
	events     *events.Broadcaster
	settings   Settings

	mu      sync.Mutex
	current *Session
}

func NewManager(opts ManagerOptions) *Manager {
	if opts.Events == nil {
		opts.Events = events.NewBroadcaster()
	}
	if opts.Settings == (Settings{}) {
		opts.Settings = DefaultSettings()
	}
	return &Manager{
		provider:   opts.Provider,
		flags:      opts.Flags,
		dispatcher: opts.Dispatcher,
		store:      opts.Store,
		events:     opts.Events,
		settings:   opts.Settings,
	}
}

// StartJourney validates inputs, stops any running session, and begins
// tracking. Validation failures reject synchronously; the session never
// enters TRACKING.
func (m *Manager) StartJourney(ctx context.Context, params StartParams) (*Session, error) {
	if !params.Route.Valid() {
		return nil, ErrNoRoute
	}
	if params.TravelerID == "" {
		return nil, ErrNoTraveler
	}
	if params.VehicleKey == "" {
		return nil, ErrNoVehicle
	}
	profile, err := vehicle.Lookup(params.VehicleKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoVehicle, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopCurrentLocked(ctx)

	session := newSession(uuid.NewString(), params.TravelerID, params.Route, params.Hazards,
		params.Destination, profile, m.settings, m.events, m.dispatcher, m.flags)
	session.state = SessionTracking

	if m.store != nil {
		if err := m.store.CreateJourney(ctx, &repository.JourneyRecord{
			ID:          session.ID,
			TravelerID:  params.TravelerID,
			Vehicle:     params.VehicleKey,
			RouteID:     params.Route.ID,
			HazardCount: len(params.Hazards),
			StartedAt:   time.Now(),
		}); err != nil {
			slog.Error("journey journal write failed", "journey_id", session.ID, "error", err)
		}
	}

	session.emit(events.Event{
		Type:    events.TypeJourneyStarted,
		Vehicle: &profile,
		Status:  events.StatusTracking,
	})

	if m.provider != nil {
		sub, err := m.provider.Watch(session.HandleFix, session.OnProviderError)
		if err != nil {
			// Tracking continues degraded; fixes can still arrive over the
			// ingestion API.
			slog.Error("location provider watch failed", "journey_id", session.ID, "error", err)
			session.OnProviderError(err)
		} else {
			session.mu.Lock()
			session.sub = sub
			session.mu.Unlock()
		}
	}

	m.current = session
	return session, nil
}

// StopJourney ends the active session. Always succeeds, even when no
// journey was ever started.
func (m *Manager) StopJourney(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCurrentLocked(ctx)
}

func (m *Manager) stopCurrentLocked(ctx context.Context) {
	if m.current == nil {
		return
	}

	session := m.current
	session.Stop()

	if m.store != nil {
		if err := m.store.EndJourney(ctx, session.ID, time.Now()); err != nil {
			slog.Error("journey journal close failed", "journey_id", session.ID, "error", err)
		}
	}

	session.emit(events.Event{Type: events.TypeJourneyStopped})
	m.current = nil
}

// Current returns the active session, or nil.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// HandleFix routes a fix to the active session.
func (m *Manager) HandleFix(fix models.PositionFix) error {
	session := m.Current()
	if session == nil {
		return ErrNoActiveJourney
	}
	session.HandleFix(fix)
	return nil
}

// RequestFlag routes a user flag to the active session and journals the
// verdict locally.
func (m *Manager) RequestFlag(ctx context.Context, hazardID string) (backend.FlagResult, error) {
	session := m.Current()
	if session == nil {
		return backend.FlagResult{}, ErrNoActiveJourney
	}

	result, err := session.RequestFlag(ctx, hazardID)
	if err != nil {
		return backend.FlagResult{}, err
	}

	if m.store != nil {
		if jerr := m.store.RecordFlag(ctx, &repository.FlagRecord{
			JourneyID: session.ID,
			HazardID:  hazardID,
			Accepted:  true,
			Removed:   result.Removed,
			At:        time.Now(),
		}); jerr != nil {
			slog.Error("flag journal write failed", "hazard_id", hazardID, "error", jerr)
		}
	}

	return result, nil
}
