package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server  ServerConfig
	Backend BackendConfig
	MQTT    MQTTConfig
	Engine  EngineConfig
	Worker  WorkerConfig
	DB      DatabaseConfig
	Logging LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	RateLimitRPS int
}

// BackendConfig points at the hazard backend service that owns pothole
// reports, passages and flag tallies.
type BackendConfig struct {
	BaseURL        string
	Timeout        time.Duration
	NearbyRadiusKM float64
}

// MQTTConfig drives the optional live position feed. When disabled, fixes
// arrive only over the ingestion endpoint.
type MQTTConfig struct {
	Enabled  bool
	Broker   string
	Topic    string
	ClientID string
}

type EngineConfig struct {
	FlagDelay        time.Duration
	FlagWindow       time.Duration
	FallbackSpeedKMH float64
	RiskThresholdM   float64
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "localhost"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			RateLimitRPS: getEnvInt("RATE_LIMIT_RPS", 50),
		},
		Backend: BackendConfig{
			BaseURL:        getEnv("BACKEND_URL", "http://localhost:5000"),
			Timeout:        getEnvDuration("BACKEND_TIMEOUT", 15*time.Second),
			NearbyRadiusKM: getEnvFloat("NEARBY_RADIUS_KM", 15),
		},
		MQTT: MQTTConfig{
			Enabled:  getEnvBool("MQTT_ENABLED", false),
			Broker:   getEnv("MQTT_BROKER", "tcp://localhost:1883"),
			Topic:    getEnv("MQTT_TOPIC", "roadguard/position"),
			ClientID: getEnv("MQTT_CLIENT_ID", "roadguard-engine"),
		},
		Engine: EngineConfig{
			FlagDelay:        getEnvDuration("FLAG_DELAY", 20*time.Second),
			FlagWindow:       getEnvDuration("FLAG_WINDOW", 60*time.Second),
			FallbackSpeedKMH: getEnvFloat("FALLBACK_SPEED_KMH", 50),
			RiskThresholdM:   getEnvFloat("RISK_THRESHOLD_M", 35),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 20),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/roadguard.db"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend URL must not be empty")
	}
	if c.Engine.FlagWindow < time.Second {
		return fmt.Errorf("flag window must be at least 1 second")
	}
	if c.Engine.FallbackSpeedKMH <= 0 {
		return fmt.Errorf("fallback speed must be positive")
	}
	if c.Engine.RiskThresholdM <= 0 {
		return fmt.Errorf("risk threshold must be positive")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
