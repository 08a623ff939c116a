package engine

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/jobin2005/roadgaurd-dark/internal/backend"
	"github.com/jobin2005/roadgaurd-dark/internal/events"
	"github.com/jobin2005/roadgaurd-dark/internal/feedback"
	"github.com/jobin2005/roadgaurd-dark/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	baseLat = 12.9700
	baseLng = 77.5900
)

// lngAt converts meters east of the route origin into a longitude on the
// test parallel.
func lngAt(meters float64) float64 {
	return baseLng + meters/(111320*math.Cos(baseLat*math.Pi/180))
}

func coordAt(meters float64) models.Coordinate {
	return models.Coordinate{Latitude: baseLat, Longitude: lngAt(meters)}
}

// eastRoute runs 1.2 km due east.
func eastRoute() models.Route {
	return models.Route{
		ID: "route_1",
		Points: []models.Coordinate{
			coordAt(0),
			coordAt(600),
			coordAt(1200),
		},
	}
}

func hazardAt(id string, meters float64, severity models.Severity) models.Hazard {
	c := coordAt(meters)
	return models.Hazard{
		ID:        id,
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
		Severity:  severity,
		Status:    models.HazardStatusActive,
	}
}

func fixAt(meters float64, at time.Time, speedMPS *float64) models.PositionFix {
	return models.PositionFix{
		Coordinate: coordAt(meters),
		SpeedMPS:   speedMPS,
		Timestamp:  at,
	}
}

func mps(v float64) *float64 { return &v }

// eventRecorder drains a broadcaster subscription so no event is dropped.
// Pending events are drained synchronously at read time so assertions made
// immediately after an emit always observe it, even on a single CPU.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
	ch     chan events.Event
}

func record(b *events.Broadcaster) (*eventRecorder, func()) {
	id, ch := b.Subscribe()
	r := &eventRecorder{ch: ch}
	stop := func() {
		b.Unsubscribe(id)
	}
	return r, stop
}

// drainLocked moves every buffered event into the recorder. Callers hold mu.
func (r *eventRecorder) drainLocked() {
	for {
		select {
		case e, ok := <-r.ch:
			if !ok {
				return
			}
			r.events = append(r.events, e)
		default:
			return
		}
	}
}

func (r *eventRecorder) ofType(t events.Type) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drainLocked()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (r *eventRecorder) forHazard(t events.Type, hazardID string) []events.Event {
	var out []events.Event
	for _, e := range r.ofType(t) {
		if e.Hazard != nil && e.Hazard.ID == hazardID {
			out = append(out, e)
		}
	}
	return out
}

func (r *eventRecorder) waitFor(t *testing.T, typ events.Type, hazardID string, timeout time.Duration) events.Event {
	t.Helper()
	deadline := time.After(timeout)
	for {
		if got := r.forHazard(typ, hazardID); len(got) > 0 {
			return got[0]
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s on hazard %s", typ, hazardID)
		case <-time.After(2 * time.Millisecond):
		}
	}
}

type fakeFlags struct {
	mu     sync.Mutex
	result backend.FlagResult
	err    error
	calls  []string
}

func (f *fakeFlags) SubmitFlag(ctx context.Context, hazardID, travelerID string) (backend.FlagResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, hazardID)
	return f.result, f.err
}

type fakeDispatcher struct {
	mu   sync.Mutex
	jobs []feedback.PassageJob
}

func (f *fakeDispatcher) Submit(job feedback.PassageJob) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
}

func (f *fakeDispatcher) hazardIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, j := range f.jobs {
		out = append(out, j.HazardID)
	}
	return out
}

func testSettings() Settings {
	return Settings{
		FlagDelay:        20 * time.Millisecond,
		FlagWindow:       80 * time.Millisecond,
		FallbackSpeedKMH: 50,
		MinSpeedKMH:      1,
	}
}

func newTestManager(flags FlagSubmitter, dispatcher PassageDispatcher) (*Manager, *events.Broadcaster) {
	b := events.NewBroadcaster()
	m := NewManager(ManagerOptions{
		Flags:      flags,
		Dispatcher: dispatcher,
		Events:     b,
		Settings:   testSettings(),
	})
	return m, b
}

func startJourney(t *testing.T, m *Manager, hazards []models.Hazard, key models.VehicleKey) *Session {
	t.Helper()
	dest := coordAt(1200)
	session, err := m.StartJourney(context.Background(), StartParams{
		Route:       eastRoute(),
		Hazards:     hazards,
		VehicleKey:  key,
		Destination: &dest,
		TravelerID:  "traveler_1",
	})
	if err != nil {
		t.Fatalf("StartJourney failed: %v", err)
	}
	return session
}

func TestStartJourney_Validation(t *testing.T) {
	m, _ := newTestManager(nil, nil)
	defer m.StopJourney(context.Background())

	tests := []struct {
		name    string
		params  StartParams
		wantErr error
	}{
		{
			name:    "no route",
			params:  StartParams{VehicleKey: models.VehicleTruck, TravelerID: "t"},
			wantErr: ErrNoRoute,
		},
		{
			name: "single point route",
			params: StartParams{
				Route:      models.Route{Points: []models.Coordinate{coordAt(0)}},
				VehicleKey: models.VehicleTruck, TravelerID: "t",
			},
			wantErr: ErrNoRoute,
		},
		{
			name:    "no vehicle",
			params:  StartParams{Route: eastRoute(), TravelerID: "t"},
			wantErr: ErrNoVehicle,
		},
		{
			name:    "unknown vehicle",
			params:  StartParams{Route: eastRoute(), VehicleKey: "skateboard", TravelerID: "t"},
			wantErr: ErrNoVehicle,
		},
		{
			name:    "no traveler",
			params:  StartParams{Route: eastRoute(), VehicleKey: models.VehicleTruck},
			wantErr: ErrNoTraveler,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.StartJourney(context.Background(), tt.params)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if m.Current() != nil {
				t.Error("rejected start must not leave an active session")
			}
		})
	}
}

func TestWarning_FiresOnceAtLeadTime(t *testing.T) {
	// four_wheeler: warningSeconds=10, passageRadius=30. A hazard 300 m
	// ahead at 30 m/s is exactly 10 s away.
	m, b := newTestManager(nil, nil)
	defer m.StopJourney(context.Background())

	rec, stopRec := record(b)
	defer stopRec()

	session := startJourney(t, m, []models.Hazard{hazardAt("h1", 500, models.SeverityHigh)}, models.VehicleFourWheeler)

	start := time.Now()

	// 330 m short of the hazard: 11 s away, no warning yet.
	session.HandleFix(fixAt(170, start, mps(30)))
	if got := rec.forHazard(events.TypeWarningTriggered, "h1"); len(got) != 0 {
		t.Fatalf("warning fired early at 330 m: %+v", got)
	}

	// 295 m short: under the 10 s lead time.
	session.HandleFix(fixAt(205, start.Add(time.Second), mps(30)))
	warnings := rec.forHazard(events.TypeWarningTriggered, "h1")
	if len(warnings) != 1 {
		t.Fatalf("expected exactly 1 warning, got %d", len(warnings))
	}
	if warnings[0].SecondsAway != 10 {
		t.Errorf("expected ~10 seconds away, got %d", warnings[0].SecondsAway)
	}
	if warnings[0].Hazard.Severity != models.SeverityHigh {
		t.Errorf("warning must carry hazard severity, got %s", warnings[0].Hazard.Severity)
	}
	if warnings[0].Vehicle == nil || warnings[0].Vehicle.Priority != models.PriorityStandard {
		t.Error("warning must carry the vehicle priority tier")
	}

	// Slowing down recomputes a larger estimate; the hazard must not
	// re-warn.
	session.HandleFix(fixAt(210, start.Add(2*time.Second), mps(2)))
	session.HandleFix(fixAt(215, start.Add(3*time.Second), mps(30)))
	if got := rec.forHazard(events.TypeWarningTriggered, "h1"); len(got) != 1 {
		t.Fatalf("hazard re-warned: %d warnings", len(got))
	}

	if session.TrackStates()["h1"] != TrackWarned {
		t.Errorf("expected WARNED, got %s", session.TrackStates()["h1"])
	}
}

func TestPassage_DirectFromUnseenOnFirstFix(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	m, b := newTestManager(nil, dispatcher)
	defer m.StopJourney(context.Background())

	rec, stopRec := record(b)
	defer stopRec()

	session := startJourney(t, m, []models.Hazard{hazardAt("h1", 100, models.SeverityMedium)}, models.VehicleFourWheeler)

	// First fix already inside the 30 m passage radius: WARNED is skipped.
	session.HandleFix(fixAt(90, time.Now(), mps(10)))

	if got := session.TrackStates()["h1"]; got != TrackPassed {
		t.Fatalf("expected PASSED, got %s", got)
	}
	if got := rec.forHazard(events.TypeWarningTriggered, "h1"); len(got) != 0 {
		t.Error("no warning should fire for a hazard passed on first sight")
	}
	if got := rec.forHazard(events.TypeHazardPassed, "h1"); len(got) != 1 {
		t.Fatalf("expected 1 passed event, got %d", len(got))
	}
	if ids := dispatcher.hazardIDs(); len(ids) != 1 || ids[0] != "h1" {
		t.Errorf("expected passage job for h1, got %v", ids)
	}
}

func TestPassage_BehindTravelerStillPasses(t *testing.T) {
	// Direction of travel is not modeled: moving away from a hazard still
	// marks it passed once inside the radius.
	m, _ := newTestManager(nil, nil)
	defer m.StopJourney(context.Background())

	session := startJourney(t, m, []models.Hazard{hazardAt("h1", 100, models.SeverityLow)}, models.VehicleFourWheeler)

	start := time.Now()
	session.HandleFix(fixAt(300, start, mps(10)))                  // far east of the hazard
	session.HandleFix(fixAt(110, start.Add(time.Second), mps(10))) // within radius, moving backwards
	if got := session.TrackStates()["h1"]; got != TrackPassed {
		t.Errorf("expected PASSED regardless of travel direction, got %s", got)
	}
}

func TestLifecycle_MonotonicUnderRandomFixes(t *testing.T) {
	rank := map[TrackState]int{TrackUnseen: 0, TrackWarned: 1, TrackPassed: 2}

	for seed := int64(0); seed < 5; seed++ {
		rng := rand.New(rand.NewSource(seed))
		m, _ := newTestManager(nil, nil)

		hazards := []models.Hazard{
			hazardAt("h1", 200, models.SeverityHigh),
			hazardAt("h2", 600, models.SeverityMedium),
			hazardAt("h3", 900, models.SeverityLow),
		}
		session := startJourney(t, m, hazards, models.VehicleTwoWheeler)

		last := session.TrackStates()
		at := time.Now()
		for i := 0; i < 200; i++ {
			at = at.Add(time.Duration(1+rng.Intn(5)) * time.Second)
			pos := rng.Float64() * 1200
			var speed *float64
			if rng.Intn(3) > 0 {
				speed = mps(rng.Float64() * 40)
			}
			session.HandleFix(fixAt(pos, at, speed))

			current := session.TrackStates()
			for id, state := range current {
				if rank[state] < rank[last[id]] {
					t.Fatalf("seed %d: hazard %s regressed %s -> %s", seed, id, last[id], state)
				}
			}
			last = current
		}

		m.StopJourney(context.Background())
	}
}

func TestSpeed_FirstFixUnknownUsesFallback(t *testing.T) {
	m, b := newTestManager(nil, nil)
	defer m.StopJourney(context.Background())

	rec, stopRec := record(b)
	defer stopRec()

	// Hazard 130 m ahead. With the 50 km/h (13.9 m/s) fallback the
	// estimate is ~9.4 s, inside the four_wheeler 10 s lead time.
	session := startJourney(t, m, []models.Hazard{hazardAt("h1", 230, models.SeverityHigh)}, models.VehicleFourWheeler)
	session.HandleFix(fixAt(100, time.Now(), nil))

	speeds := rec.ofType(events.TypeSpeedUpdated)
	if len(speeds) != 1 {
		t.Fatalf("expected 1 speed event, got %d", len(speeds))
	}
	if speeds[0].SpeedKnown {
		t.Error("first fix without a speed field must report speed as unknown")
	}

	if got := rec.forHazard(events.TypeWarningTriggered, "h1"); len(got) != 1 {
		t.Fatalf("expected fallback-speed warning, got %d", len(got))
	}
}

func TestSpeed_DerivedFromConsecutiveFixes(t *testing.T) {
	m, b := newTestManager(nil, nil)
	defer m.StopJourney(context.Background())

	rec, stopRec := record(b)
	defer stopRec()

	session := startJourney(t, m, nil, models.VehicleFourWheeler)

	start := time.Now()
	session.HandleFix(fixAt(0, start, nil))
	session.HandleFix(fixAt(20, start.Add(2*time.Second), nil)) // 10 m/s derived

	speeds := rec.ofType(events.TypeSpeedUpdated)
	if len(speeds) != 2 {
		t.Fatalf("expected 2 speed events, got %d", len(speeds))
	}
	if !speeds[1].SpeedKnown {
		t.Fatal("derived speed should be known")
	}
	if math.Abs(speeds[1].SpeedKMH-36) > 0.5 {
		t.Errorf("expected ~36 km/h derived, got %.2f", speeds[1].SpeedKMH)
	}
}

func TestSpeed_NearStationaryUsesFallbackForTiming(t *testing.T) {
	m, b := newTestManager(nil, nil)
	defer m.StopJourney(context.Background())

	rec, stopRec := record(b)
	defer stopRec()

	// Hazard 130 m ahead; at a true 0.1 m/s it is ~22 min away, but the
	// near-stationary reading is treated as noise and the fallback makes
	// it ~9.4 s away.
	session := startJourney(t, m, []models.Hazard{hazardAt("h1", 230, models.SeverityHigh)}, models.VehicleFourWheeler)
	session.HandleFix(fixAt(100, time.Now(), mps(0.1)))

	if got := rec.forHazard(events.TypeWarningTriggered, "h1"); len(got) != 1 {
		t.Fatalf("expected warning using fallback speed, got %d", len(got))
	}
}

func TestFlagWindow_OpensAfterDelayAndExpires(t *testing.T) {
	m, b := newTestManager(&fakeFlags{}, nil)
	defer m.StopJourney(context.Background())

	rec, stopRec := record(b)
	defer stopRec()

	session := startJourney(t, m, []models.Hazard{hazardAt("h1", 100, models.SeverityHigh)}, models.VehicleFourWheeler)
	session.HandleFix(fixAt(95, time.Now(), mps(10)))

	// Window must not be open before the delay elapses.
	if _, err := session.RequestFlag(context.Background(), "h1"); !errors.Is(err, ErrNoOpenWindow) {
		t.Errorf("expected ErrNoOpenWindow before the delay, got %v", err)
	}

	opened := rec.waitFor(t, events.TypeFlagWindowOpened, "h1", time.Second)
	if opened.WindowExpiresAt == nil {
		t.Error("opened event must carry the expiry deadline")
	}

	closed := rec.waitFor(t, events.TypeFlagWindowClosed, "h1", time.Second)
	if closed.Reason != events.CloseReasonExpired {
		t.Errorf("expected expired close reason, got %s", closed.Reason)
	}

	// The expired window rejects late flags.
	if _, err := session.RequestFlag(context.Background(), "h1"); !errors.Is(err, ErrNoOpenWindow) {
		t.Errorf("expected ErrNoOpenWindow after expiry, got %v", err)
	}
}

func TestFlagWindow_MultipleOpenIndependently(t *testing.T) {
	m, b := newTestManager(&fakeFlags{}, nil)
	defer m.StopJourney(context.Background())

	rec, stopRec := record(b)
	defer stopRec()

	hazards := []models.Hazard{
		hazardAt("h1", 100, models.SeverityHigh),
		hazardAt("h2", 140, models.SeverityMedium),
	}
	session := startJourney(t, m, hazards, models.VehicleTwoWheeler) // 40 m radius

	// One fix lands inside both passage radii.
	session.HandleFix(fixAt(120, time.Now(), mps(10)))

	rec.waitFor(t, events.TypeFlagWindowOpened, "h1", time.Second)
	rec.waitFor(t, events.TypeFlagWindowOpened, "h2", time.Second)

	rec.waitFor(t, events.TypeFlagWindowClosed, "h1", time.Second)
	rec.waitFor(t, events.TypeFlagWindowClosed, "h2", time.Second)
}

func TestRequestFlag_SuccessClosesWindow(t *testing.T) {
	flags := &fakeFlags{result: backend.FlagResult{FlagCount: 2}}
	m, b := newTestManager(flags, nil)
	defer m.StopJourney(context.Background())

	rec, stopRec := record(b)
	defer stopRec()

	session := startJourney(t, m, []models.Hazard{hazardAt("h1", 100, models.SeverityHigh)}, models.VehicleFourWheeler)
	session.HandleFix(fixAt(95, time.Now(), mps(10)))

	rec.waitFor(t, events.TypeFlagWindowOpened, "h1", time.Second)

	result, err := m.RequestFlag(context.Background(), "h1")
	if err != nil {
		t.Fatalf("RequestFlag failed: %v", err)
	}
	if result.FlagCount != 2 {
		t.Errorf("expected flag count 2, got %d", result.FlagCount)
	}

	closed := rec.waitFor(t, events.TypeFlagWindowClosed, "h1", time.Second)
	if closed.Reason != events.CloseReasonFlagged {
		t.Errorf("expected flagged close reason, got %s", closed.Reason)
	}

	// Window is gone; a second flag attempt is rejected.
	if _, err := m.RequestFlag(context.Background(), "h1"); !errors.Is(err, ErrNoOpenWindow) {
		t.Errorf("expected ErrNoOpenWindow after success, got %v", err)
	}
}

func TestRequestFlag_FailureKeepsWindowOpen(t *testing.T) {
	flags := &fakeFlags{err: errors.New("backend unreachable")}
	m, b := newTestManager(flags, nil)
	defer m.StopJourney(context.Background())

	rec, stopRec := record(b)
	defer stopRec()

	session := startJourney(t, m, []models.Hazard{hazardAt("h1", 100, models.SeverityHigh)}, models.VehicleFourWheeler)
	session.HandleFix(fixAt(95, time.Now(), mps(10)))

	rec.waitFor(t, events.TypeFlagWindowOpened, "h1", time.Second)

	if _, err := m.RequestFlag(context.Background(), "h1"); err == nil {
		t.Fatal("expected flag submission error")
	}

	// Retry within the window succeeds once the backend recovers.
	flags.mu.Lock()
	flags.err = nil
	flags.result = backend.FlagResult{Removed: true}
	flags.mu.Unlock()

	result, err := m.RequestFlag(context.Background(), "h1")
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if !result.Removed {
		t.Error("expected removal verdict to surface")
	}
}

func TestStop_CancelsWindowsAndRejectsFlags(t *testing.T) {
	m, b := newTestManager(&fakeFlags{}, nil)

	rec, stopRec := record(b)
	defer stopRec()

	session := startJourney(t, m, []models.Hazard{hazardAt("h1", 100, models.SeverityHigh)}, models.VehicleFourWheeler)
	session.HandleFix(fixAt(95, time.Now(), mps(10)))

	rec.waitFor(t, events.TypeFlagWindowOpened, "h1", time.Second)

	m.StopJourney(context.Background())

	closed := rec.forHazard(events.TypeFlagWindowClosed, "h1")
	if len(closed) != 1 || closed[0].Reason != events.CloseReasonStopped {
		t.Fatalf("expected one stopped-close, got %+v", closed)
	}

	if _, err := session.RequestFlag(context.Background(), "h1"); !errors.Is(err, ErrNotTracking) {
		t.Errorf("expected ErrNotTracking after stop, got %v", err)
	}
	if session.State() != SessionStopped {
		t.Errorf("expected STOPPED, got %s", session.State())
	}
}

func TestStop_Idempotent(t *testing.T) {
	m, _ := newTestManager(nil, nil)

	// Stopping with no journey is fine.
	m.StopJourney(context.Background())

	session := startJourney(t, m, nil, models.VehicleTruck)
	m.StopJourney(context.Background())
	m.StopJourney(context.Background())
	session.Stop()

	if session.State() != SessionStopped {
		t.Errorf("expected STOPPED, got %s", session.State())
	}
	if m.Current() != nil {
		t.Error("expected no current session")
	}
}

func TestStop_IgnoresLateFixes(t *testing.T) {
	m, b := newTestManager(nil, nil)

	rec, stopRec := record(b)
	defer stopRec()

	session := startJourney(t, m, []models.Hazard{hazardAt("h1", 100, models.SeverityHigh)}, models.VehicleFourWheeler)
	m.StopJourney(context.Background())

	session.HandleFix(fixAt(95, time.Now(), mps(10)))

	if got := rec.forHazard(events.TypeHazardPassed, "h1"); len(got) != 0 {
		t.Error("stopped session must not process fixes")
	}
}

func TestStartJourney_ReplacesPriorSession(t *testing.T) {
	m, _ := newTestManager(nil, nil)
	defer m.StopJourney(context.Background())

	first := startJourney(t, m, nil, models.VehicleTruck)
	second := startJourney(t, m, nil, models.VehicleTwoWheeler)

	if first.State() != SessionStopped {
		t.Error("starting a new journey must stop the prior one")
	}
	if m.Current() != second {
		t.Error("expected the new session to be current")
	}
}

func TestProviderError_DegradesWithoutStopping(t *testing.T) {
	m, b := newTestManager(nil, nil)
	defer m.StopJourney(context.Background())

	rec, stopRec := record(b)
	defer stopRec()

	session := startJourney(t, m, []models.Hazard{hazardAt("h1", 500, models.SeverityHigh)}, models.VehicleFourWheeler)
	session.OnProviderError(errors.New("gps signal lost"))

	status := rec.ofType(events.TypeStatusChanged)
	if len(status) != 1 || status[0].Status != events.StatusDegraded {
		t.Fatalf("expected one degraded status event, got %+v", status)
	}
	if session.State() != SessionTracking {
		t.Error("provider errors must not terminate the session")
	}

	// Tracking resumes when fixes return.
	session.HandleFix(fixAt(205, time.Now(), mps(30)))
	if got := rec.forHazard(events.TypeWarningTriggered, "h1"); len(got) != 1 {
		t.Error("expected tracking to resume after degradation")
	}
}

func TestEndToEnd_ConstantSpeedJourney(t *testing.T) {
	// Route with hazard A at the 500 m mark (high) and B at 1000 m
	// (medium); four_wheeler at a constant 36 km/h (10 m/s). Warnings are
	// expected at <=100 m, passages at <=30 m.
	dispatcher := &fakeDispatcher{}
	m, b := newTestManager(&fakeFlags{}, dispatcher)
	defer m.StopJourney(context.Background())

	rec, stopRec := record(b)
	defer stopRec()

	hazards := []models.Hazard{
		hazardAt("A", 500, models.SeverityHigh),
		hazardAt("B", 1000, models.SeverityMedium),
	}
	session := startJourney(t, m, hazards, models.VehicleFourWheeler)

	start := time.Now()
	positions := map[events.Type]map[string]float64{}
	note := func(typ events.Type, pos float64) {
		if positions[typ] == nil {
			positions[typ] = map[string]float64{}
		}
		for _, id := range []string{"A", "B"} {
			if len(rec.forHazard(typ, id)) > 0 {
				if _, seen := positions[typ][id]; !seen {
					positions[typ][id] = pos
				}
			}
		}
	}

	for i := 0; i <= 110; i++ {
		pos := float64(i * 10)
		session.HandleFix(fixAt(pos, start.Add(time.Duration(i)*time.Second), mps(10)))
		note(events.TypeWarningTriggered, pos)
		note(events.TypeHazardPassed, pos)
	}

	for _, tt := range []struct {
		hazard string
		mark   float64
	}{
		{"A", 500},
		{"B", 1000},
	} {
		warnPos, ok := positions[events.TypeWarningTriggered][tt.hazard]
		if !ok {
			t.Fatalf("hazard %s never warned", tt.hazard)
		}
		// 100 m lead at 10 m/s with 10 m steps: warned 90-100 m before.
		lead := tt.mark - warnPos
		if lead < 85 || lead > 105 {
			t.Errorf("hazard %s warned %f m ahead, expected ~100", tt.hazard, lead)
		}

		passPos, ok := positions[events.TypeHazardPassed][tt.hazard]
		if !ok {
			t.Fatalf("hazard %s never passed", tt.hazard)
		}
		gap := tt.mark - passPos
		if gap < 15 || gap > 35 {
			t.Errorf("hazard %s passed %f m ahead, expected ~30", tt.hazard, gap)
		}

		if warns := rec.forHazard(events.TypeWarningTriggered, tt.hazard); len(warns) != 1 {
			t.Errorf("hazard %s warned %d times", tt.hazard, len(warns))
		}
	}

	if ids := dispatcher.hazardIDs(); len(ids) != 2 {
		t.Errorf("expected 2 passage jobs, got %v", ids)
	}

	// Flag windows open after the delay and expire on their own.
	rec.waitFor(t, events.TypeFlagWindowOpened, "A", time.Second)
	closedA := rec.waitFor(t, events.TypeFlagWindowClosed, "A", time.Second)
	if closedA.Reason != events.CloseReasonExpired {
		t.Errorf("expected A's window to expire, got %s", closedA.Reason)
	}

	// Distance-to-destination updates accompanied every fix.
	if got := rec.ofType(events.TypeDistanceToDest); len(got) != 111 {
		t.Errorf("expected 111 destination updates, got %d", len(got))
	}
}
