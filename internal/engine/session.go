package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jobin2005/roadgaurd-dark/internal/backend"
	"github.com/jobin2005/roadgaurd-dark/internal/events"
	"github.com/jobin2005/roadgaurd-dark/internal/feedback"
	"github.com/jobin2005/roadgaurd-dark/internal/geo"
	"github.com/jobin2005/roadgaurd-dark/internal/location"
	"github.com/jobin2005/roadgaurd-dark/internal/models"
)

type SessionState string

const (
	SessionNotStarted SessionState = "NOT_STARTED"
	SessionTracking   SessionState = "TRACKING"
	SessionStopped    SessionState = "STOPPED"
)

// TrackState is the per-hazard lifecycle. It only moves forward:
// UNSEEN -> WARNED -> PASSED, with WARNED skippable when the traveler is
// already inside the passage radius on first sight.
type TrackState string

const (
	TrackUnseen TrackState = "UNSEEN"
	TrackWarned TrackState = "WARNED"
	TrackPassed TrackState = "PASSED"
)

var (
	ErrNotTracking     = errors.New("journey is not tracking")
	ErrUnknownHazard   = errors.New("hazard is not part of this journey")
	ErrNoOpenWindow    = errors.New("no open flag window for this hazard")
	ErrFlagUnavailable = errors.New("flag submission is not configured")
)

// Settings are the engine's timing knobs.
type Settings struct {
	FlagDelay        time.Duration // passage detection -> window opens
	FlagWindow       time.Duration // window opens -> window expires
	FallbackSpeedKMH float64       // substituted when speed is unknown or below the floor
	MinSpeedKMH      float64       // below this, the reading is treated as GPS noise
}

func DefaultSettings() Settings {
	return Settings{
		FlagDelay:        20 * time.Second,
		FlagWindow:       60 * time.Second,
		FallbackSpeedKMH: 50,
		MinSpeedKMH:      1,
	}
}

// FlagSubmitter posts a user's flag to the hazard backend.
type FlagSubmitter interface {
	SubmitFlag(ctx context.Context, hazardID, travelerID string) (backend.FlagResult, error)
}

// PassageDispatcher accepts passage jobs without blocking.
type PassageDispatcher interface {
	Submit(job feedback.PassageJob)
}

type hazardTrack struct {
	hazard models.Hazard
	state  TrackState

	warnedAt time.Time
	passedAt time.Time

	windowOpen      bool
	windowExpiresAt time.Time
	openTimer       *time.Timer
	closeTimer      *time.Timer
}

// Session owns all per-journey state. Fixes are processed to completion one
// at a time under the session lock; outbound passage reports go through the
// dispatcher so the fix path never waits on the network.
type Session struct {
	ID         string
	travelerID string

	route       models.Route
	destination *models.Coordinate
	profile     models.VehicleProfile
	settings    Settings

	broadcaster *events.Broadcaster
	dispatcher  PassageDispatcher
	flags       FlagSubmitter

	mu        sync.Mutex
	state     SessionState
	tracks    []*hazardTrack
	trackByID map[string]*hazardTrack
	lastFix   *models.PositionFix
	sub       location.Subscription
}

func newSession(id, travelerID string, route models.Route, hazards []models.Hazard,
	destination *models.Coordinate, profile models.VehicleProfile, settings Settings,
	broadcaster *events.Broadcaster, dispatcher PassageDispatcher, flags FlagSubmitter) *Session {

	s := &Session{
		ID:          id,
		travelerID:  travelerID,
		route:       route,
		destination: destination,
		profile:     profile,
		settings:    settings,
		broadcaster: broadcaster,
		dispatcher:  dispatcher,
		flags:       flags,
		state:       SessionNotStarted,
		trackByID:   make(map[string]*hazardTrack, len(hazards)),
	}

	// Track order follows the hazard list so per-fix processing is
	// deterministic.
	for _, h := range hazards {
		track := &hazardTrack{hazard: h, state: TrackUnseen}
		s.tracks = append(s.tracks, track)
		s.trackByID[h.ID] = track
	}

	return s
}

// State returns the session lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TrackStates is a snapshot of every hazard's lifecycle state.
func (s *Session) TrackStates() map[string]TrackState {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]TrackState, len(s.tracks))
	for _, t := range s.tracks {
		out[t.hazard.ID] = t.state
	}
	return out
}

// HandleFix consumes one position fix. Fixes must arrive in delivery order;
// the engine does not deduplicate or reorder them.
func (s *Session) HandleFix(fix models.PositionFix) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionTracking {
		return
	}

	speedMPS, speedKnown := s.resolveSpeed(fix)
	s.emit(events.Event{
		Type:       events.TypeSpeedUpdated,
		SpeedKMH:   speedMPS * 3.6,
		SpeedKnown: speedKnown,
	})

	if s.destination != nil {
		s.emit(events.Event{
			Type:      events.TypeDistanceToDest,
			DistanceM: geo.Haversine(fix.Coordinate, *s.destination),
		})
	}

	effectiveMPS := s.effectiveSpeed(speedMPS, speedKnown)

	for _, track := range s.tracks {
		if track.state == TrackPassed {
			continue
		}

		dist := geo.Haversine(fix.Coordinate, track.hazard.Coordinate())

		if dist <= s.profile.PassageRadiusM {
			s.passLocked(track, fix.Timestamp)
			continue
		}

		if track.state != TrackUnseen {
			continue
		}

		secondsToReach := dist / effectiveMPS
		if secondsToReach <= s.profile.WarningSeconds {
			track.state = TrackWarned
			track.warnedAt = fix.Timestamp

			h := track.hazard
			p := s.profile
			s.emit(events.Event{
				Type:        events.TypeWarningTriggered,
				Hazard:      &h,
				SecondsAway: int(math.Round(secondsToReach)),
				Vehicle:     &p,
			})
		}
	}

	f := fix
	s.lastFix = &f
}

// resolveSpeed prefers the fix's own speed, then derives one from the
// previous fix. On the very first fix the speed is unknown and reported as
// such; the fallback only feeds lead-time math.
func (s *Session) resolveSpeed(fix models.PositionFix) (mps float64, known bool) {
	if fix.SpeedMPS != nil {
		return *fix.SpeedMPS, true
	}

	if s.lastFix != nil {
		dt := fix.Timestamp.Sub(s.lastFix.Timestamp).Seconds()
		if dt > 0 {
			return geo.Haversine(s.lastFix.Coordinate, fix.Coordinate) / dt, true
		}
	}

	return 0, false
}

// effectiveSpeed floors the timing speed: a near-stationary reading usually
// means GPS noise, so the fallback speed is substituted rather than letting
// the time-to-reach estimate blow up.
func (s *Session) effectiveSpeed(mps float64, known bool) float64 {
	if known && mps*3.6 > s.settings.MinSpeedKMH {
		return mps
	}
	return s.settings.FallbackSpeedKMH / 3.6
}

func (s *Session) passLocked(track *hazardTrack, at time.Time) {
	track.state = TrackPassed
	track.passedAt = at

	h := track.hazard
	s.emit(events.Event{
		Type:   events.TypeHazardPassed,
		Hazard: &h,
	})

	if s.dispatcher != nil {
		s.dispatcher.Submit(feedback.PassageJob{
			JourneyID:  s.ID,
			HazardID:   track.hazard.ID,
			TravelerID: s.travelerID,
			At:         at,
		})
	}

	// The flag affordance is held back briefly so it never overlaps the
	// passage instant.
	hazardID := track.hazard.ID
	track.openTimer = time.AfterFunc(s.settings.FlagDelay, func() {
		s.openFlagWindow(hazardID)
	})
}

func (s *Session) openFlagWindow(hazardID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionTracking {
		return
	}
	track, ok := s.trackByID[hazardID]
	if !ok || track.state != TrackPassed {
		return
	}

	expires := time.Now().Add(s.settings.FlagWindow)
	track.windowOpen = true
	track.windowExpiresAt = expires

	h := track.hazard
	s.emit(events.Event{
		Type:            events.TypeFlagWindowOpened,
		Hazard:          &h,
		WindowExpiresAt: &expires,
	})

	track.closeTimer = time.AfterFunc(s.settings.FlagWindow, func() {
		s.closeFlagWindow(hazardID, events.CloseReasonExpired)
	})
}

func (s *Session) closeFlagWindow(hazardID, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeFlagWindowLocked(hazardID, reason)
}

func (s *Session) closeFlagWindowLocked(hazardID, reason string) {
	track, ok := s.trackByID[hazardID]
	if !ok || !track.windowOpen {
		return
	}

	track.windowOpen = false
	if track.closeTimer != nil {
		track.closeTimer.Stop()
	}

	h := track.hazard
	s.emit(events.Event{
		Type:   events.TypeFlagWindowClosed,
		Hazard: &h,
		Reason: reason,
	})
}

// RequestFlag submits a falsely-reported-hazard flag. Only valid while the
// hazard's flag window is open; a failed submission leaves the window open
// so the user can retry within the remaining time.
func (s *Session) RequestFlag(ctx context.Context, hazardID string) (backend.FlagResult, error) {
	s.mu.Lock()
	if s.state != SessionTracking {
		s.mu.Unlock()
		return backend.FlagResult{}, ErrNotTracking
	}
	track, ok := s.trackByID[hazardID]
	if !ok {
		s.mu.Unlock()
		return backend.FlagResult{}, ErrUnknownHazard
	}
	if !track.windowOpen || time.Now().After(track.windowExpiresAt) {
		s.mu.Unlock()
		return backend.FlagResult{}, ErrNoOpenWindow
	}
	travelerID := s.travelerID
	s.mu.Unlock()

	if s.flags == nil {
		return backend.FlagResult{}, ErrFlagUnavailable
	}

	result, err := s.flags.SubmitFlag(ctx, hazardID, travelerID)
	if err != nil {
		return backend.FlagResult{}, fmt.Errorf("flag submission failed: %w", err)
	}

	s.closeFlagWindow(hazardID, events.CloseReasonFlagged)
	return result, nil
}

// OnProviderError degrades tracking without terminating it: the last-known
// position is retained and no new transitions are computed until fixes
// resume.
func (s *Session) OnProviderError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionTracking {
		return
	}
	s.emit(events.Event{
		Type:   events.TypeStatusChanged,
		Status: events.StatusDegraded,
		Detail: err.Error(),
	})
}

// Stop tears the session down: every timer and the position subscription
// is cancelled synchronously, per-hazard state is cleared, and the call is
// idempotent.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SessionStopped {
		return
	}

	for _, track := range s.tracks {
		if track.openTimer != nil {
			track.openTimer.Stop()
		}
		if track.windowOpen {
			s.closeFlagWindowLocked(track.hazard.ID, events.CloseReasonStopped)
		} else if track.closeTimer != nil {
			track.closeTimer.Stop()
		}
	}

	if s.sub != nil {
		s.sub.Unsubscribe()
		s.sub = nil
	}

	s.state = SessionStopped
	s.emit(events.Event{
		Type:   events.TypeStatusChanged,
		Status: events.StatusStopped,
	})
}

func (s *Session) emit(e events.Event) {
	e.SessionID = s.ID
	if e.At.IsZero() {
		e.At = time.Now()
	}
	s.broadcaster.Broadcast(e)
}
