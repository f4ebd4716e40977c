// v0
// config.go
package config

import (
	"os"
	"strings"
	"time"
)

// AppConfig holds runtime configuration for the optimizer service.
type AppConfig struct {
	HTTPBind        string        // address:port for HTTP server
	KafkaBrokers    []string      // list of bootstrap servers; empty disables kafka adapters
	BookingsTopic   string        // topic carrying booking batches
	OccupancyTopic  string        // topic carrying occupancy snapshot batches
	EnergyTopic     string        // topic carrying energy reading batches
	EventsTopic     string        // topic new conflicts/recommendations are published to
	ConsumerGroup   string        // kafka consumer group id
	MQTTBroker      string        // mqtt broker URL; empty disables the mqtt adapter
	MQTTTopic       string        // mqtt topic for sensor occupancy snapshots
	MQTTClientID    string        // mqtt client id
	CatalogPath     string        // JSON strategy catalog overriding the built-in one; empty uses default
	CacheTTL        time.Duration // TTL for cached query responses
	LogFile         string        // append-only log file path; empty logs to stdout only
	ShutdownTimeout time.Duration // bound on graceful HTTP shutdown
}

// FromEnv reads configuration from the environment with defaults suitable for
// local runs. Kafka and MQTT are opt-in: their adapters start only when a
// broker is configured.
func FromEnv() AppConfig {
	return AppConfig{
		HTTPBind:        getEnv("OPTIMIZER_BIND_ADDR", ":8080"),
		KafkaBrokers:    splitAndTrim(os.Getenv("KAFKA_BROKERS"), ","),
		BookingsTopic:   getEnv("BOOKINGS_TOPIC", "workspace.bookings"),
		OccupancyTopic:  getEnv("OCCUPANCY_TOPIC", "workspace.occupancy"),
		EnergyTopic:     getEnv("ENERGY_TOPIC", "workspace.energy"),
		EventsTopic:     getEnv("EVENTS_TOPIC", "workspace.events"),
		ConsumerGroup:   getEnv("KAFKA_GROUP", "optimizer"),
		MQTTBroker:      os.Getenv("MQTT_BROKER"),
		MQTTTopic:       getEnv("MQTT_OCCUPANCY_TOPIC", "sensors/occupancy/#"),
		MQTTClientID:    getEnv("MQTT_CLIENT_ID", "optimizer-core"),
		CatalogPath:     os.Getenv("STRATEGY_CATALOG_PATH"),
		CacheTTL:        getEnvDuration("CACHE_TTL", 15*time.Second),
		LogFile:         getEnv("OPTIMIZER_LOGFILE", "./optimizer.log"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s, sep string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
