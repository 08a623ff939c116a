// journey-sim publishes synthetic position fixes on the MQTT location topic,
// driving the engine as if a device were moving along a straight path.
package main

import (
	"encoding/json"
	"flag"
	"log/slog"
	"math"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/joho/godotenv"

	"github.com/jobin2005/roadgaurd-dark/internal/config"
	"github.com/jobin2005/roadgaurd-dark/internal/logging"
)

type fixMessage struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	SpeedMPS  float64 `json:"speed_mps"`
	Timestamp int64   `json:"timestamp"`
}

func main() {
	_ = godotenv.Load()

	lat := flag.Float64("lat", 12.9700, "start latitude")
	lng := flag.Float64("lng", 77.5900, "start longitude")
	heading := flag.Float64("heading", 90, "heading in degrees, 0=north")
	speed := flag.Float64("speed", 10, "speed in m/s")
	distance := flag.Float64("distance", 2000, "total distance in meters")
	interval := flag.Duration("interval", time.Second, "time between fixes")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTT.Broker).
		SetClientID(cfg.MQTT.ClientID + "-sim")
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		logging.Fatalf("MQTT connect error: %v", token.Error())
	}
	defer client.Disconnect(250)

	slog.Info("simulating journey", "topic", cfg.MQTT.Topic,
		"speed_mps", *speed, "distance_m", *distance)

	headingRad := *heading * math.Pi / 180
	stepM := *speed * interval.Seconds()
	steps := int(*distance / stepM)

	for i := 0; i <= steps; i++ {
		traveled := float64(i) * stepM
		msg := fixMessage{
			Latitude:  *lat + traveled*math.Cos(headingRad)/111320,
			Longitude: *lng + traveled*math.Sin(headingRad)/(111320*math.Cos(*lat*math.Pi/180)),
			SpeedMPS:  *speed,
			Timestamp: time.Now().Unix(),
		}

		payload, err := json.Marshal(msg)
		if err != nil {
			logging.Fatalf("encode error: %v", err)
		}
		if token := client.Publish(cfg.MQTT.Topic, 1, false, payload); token.Wait() && token.Error() != nil {
			slog.Error("publish failed", "error", token.Error())
		}

		time.Sleep(*interval)
	}

	slog.Info("journey complete", "fixes", steps+1)
}
