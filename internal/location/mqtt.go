package location

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/jobin2005/roadgaurd-dark/internal/models"
)

// fixMessage is the wire format devices publish on the location topic.
type fixMessage struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	SpeedMPS  *float64 `json:"speed_mps,omitempty"`
	Timestamp int64    `json:"timestamp"`
}

// MQTTProvider subscribes to a broker topic carrying position fixes. Broker
// disconnects are surfaced to the active watch's error handler while the
// client keeps reconnecting in the background.
type MQTTProvider struct {
	client mqtt.Client
	topic  string

	mu      sync.Mutex
	onError ErrorHandler
}

// NewMQTTProvider owns its client so the broker's lifecycle callbacks can be
// routed to whatever watch is active at the time.
func NewMQTTProvider(broker, clientID, topic string) *MQTTProvider {
	p := &MQTTProvider{topic: topic}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetResumeSubs(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			p.notifyError(fmt.Errorf("position feed connection lost: %w", err))
		})
	p.client = mqtt.NewClient(opts)

	return p
}

// newMQTTProviderWithClient injects a prebuilt client, for tests.
func newMQTTProviderWithClient(client mqtt.Client, topic string) *MQTTProvider {
	return &MQTTProvider{client: client, topic: topic}
}

func (p *MQTTProvider) Connect() error {
	token := p.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("error connecting to broker: %w", err)
	}
	return nil
}

func (p *MQTTProvider) Disconnect() {
	p.client.Disconnect(250)
}

func (p *MQTTProvider) Watch(onFix FixHandler, onError ErrorHandler) (Subscription, error) {
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		fix, err := parseFixMessage(msg.Payload())
		if err != nil {
			slog.Warn("dropping invalid position fix", "topic", msg.Topic(), "error", err)
			return
		}
		onFix(fix)
	}

	token := p.client.Subscribe(p.topic, 1, handler)
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("error subscribing to %s: %w", p.topic, err)
	}

	p.mu.Lock()
	p.onError = onError
	p.mu.Unlock()

	return &mqttSubscription{provider: p}, nil
}

// notifyError delivers a provider-side failure to the active watch. With no
// watch active the failure is only logged.
func (p *MQTTProvider) notifyError(err error) {
	p.mu.Lock()
	onError := p.onError
	p.mu.Unlock()

	if onError == nil {
		slog.Warn("position feed error with no active watch", "error", err)
		return
	}
	onError(err)
}

type mqttSubscription struct {
	provider *MQTTProvider
	once     sync.Once
}

func (s *mqttSubscription) Unsubscribe() {
	s.once.Do(func() {
		p := s.provider

		p.mu.Lock()
		p.onError = nil
		p.mu.Unlock()

		token := p.client.Unsubscribe(p.topic)
		token.Wait()
		if err := token.Error(); err != nil {
			slog.Warn("error unsubscribing from location topic", "topic", p.topic, "error", err)
		}
	})
}

func parseFixMessage(payload []byte) (models.PositionFix, error) {
	var raw fixMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return models.PositionFix{}, fmt.Errorf("invalid fix payload: %w", err)
	}

	if raw.Latitude < -90 || raw.Latitude > 90 {
		return models.PositionFix{}, fmt.Errorf("latitude: must be between -90 and 90")
	}
	if raw.Longitude < -180 || raw.Longitude > 180 {
		return models.PositionFix{}, fmt.Errorf("longitude: must be between -180 and 180")
	}
	if raw.Timestamp <= 0 {
		return models.PositionFix{}, fmt.Errorf("timestamp: must be positive")
	}
	if raw.SpeedMPS != nil && *raw.SpeedMPS < 0 {
		return models.PositionFix{}, fmt.Errorf("speed_mps: must be non-negative")
	}

	return models.PositionFix{
		Coordinate: models.Coordinate{
			Latitude:  raw.Latitude,
			Longitude: raw.Longitude,
		},
		SpeedMPS:  raw.SpeedMPS,
		Timestamp: time.Unix(raw.Timestamp, 0),
	}, nil
}
