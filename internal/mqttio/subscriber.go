// v0
// subscriber.go
package mqttio

import (
	"encoding/json"
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/synergy-ai/optimizer/internal/config"
	"github.com/synergy-ai/optimizer/internal/core"
	"github.com/synergy-ai/optimizer/internal/model"
	"github.com/synergy-ai/optimizer/internal/observability"
)

// Subscriber feeds occupancy snapshots published by sensor gateways into the
// core. Each MQTT message carries one snapshot; malformed payloads are logged
// and dropped, never fatal to the subscription.
type Subscriber struct {
	lg     *slog.Logger
	client mqtt.Client
	topic  string
	eng    *core.Engine
	met    *observability.Metrics
}

func NewSubscriber(cfg config.AppConfig, lg *slog.Logger, eng *core.Engine, met *observability.Metrics) (*Subscriber, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID).
		SetAutoReconnect(true)
	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect mqtt broker %s: %w", cfg.MQTTBroker, token.Error())
	}
	return &Subscriber{lg: lg, client: c, topic: cfg.MQTTTopic, eng: eng, met: met}, nil
}

// Start subscribes to the occupancy topic. Messages are handled on paho's
// callback goroutine; the core serializes ingestion internally.
func (s *Subscriber) Start() error {
	token := s.client.Subscribe(s.topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var snap model.OccupancySnapshot
		if err := json.Unmarshal(msg.Payload(), &snap); err != nil {
			s.lg.Warn("dropping undecodable occupancy message", "topic", msg.Topic(), "error", err)
			return
		}
		s.eng.IngestOccupancy(map[string]model.OccupancySnapshot{snap.SpaceID: snap})
		s.met.Ingested("occupancy_mqtt", 1)
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", s.topic, token.Error())
	}
	s.lg.Info("mqtt occupancy subscription active", "topic", s.topic)
	return nil
}

func (s *Subscriber) Close() {
	s.client.Disconnect(250)
	s.lg.Info("mqtt client disconnected")
}
