package events

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestEvent_StationarySpeedSerializes(t *testing.T) {
	// A traveler standing still reports a known 0 km/h; the wire form must
	// keep that distinguishable from an unknown speed.
	payload, err := json.Marshal(Event{
		Type:       TypeSpeedUpdated,
		SpeedKMH:   0,
		SpeedKnown: true,
	})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	body := string(payload)
	if !strings.Contains(body, `"speed_kmh":0`) {
		t.Errorf("expected speed_kmh present at zero, got %s", body)
	}
	if !strings.Contains(body, `"speed_known":true`) {
		t.Errorf("expected speed_known present, got %s", body)
	}

	var decoded Event
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !decoded.SpeedKnown {
		t.Error("known zero speed must round-trip as known")
	}
}
