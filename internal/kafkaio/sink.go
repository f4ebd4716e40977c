// v0
// sink.go
package kafkaio

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/synergy-ai/optimizer/internal/breaker"
	"github.com/synergy-ai/optimizer/internal/config"
	"github.com/synergy-ai/optimizer/internal/model"
	"github.com/synergy-ai/optimizer/internal/observability"
	"github.com/synergy-ai/optimizer/internal/recommend"
)

// envelope is the wire record on the events topic. Kind distinguishes conflict
// and recommendation payloads for downstream consumers.
type envelope struct {
	Kind      string          `json:"kind"` // "conflict" | "recommendation"
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Sink publishes new conflicts and recommendations to the events topic. A
// circuit breaker fronts the writer so a dead broker fast-fails instead of
// stalling every ingest pass; dropped events are logged, publication is
// best-effort by contract.
type Sink struct {
	lg  *slog.Logger
	w   *kafka.Writer
	cb  *breaker.Breaker
	met *observability.Metrics
}

func NewSink(cfg config.AppConfig, lg *slog.Logger, met *observability.Metrics) *Sink {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.EventsTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return &Sink{
		lg:  lg,
		w:   w,
		cb:  breaker.New("events", breaker.Config{MaxFailures: 5, ResetTimeout: 10 * time.Second}, lg, met),
		met: met,
	}
}

func (s *Sink) PublishConflict(c model.Conflict) {
	s.met.ConflictDetected(string(c.Type), string(c.Severity))
	s.publish("conflict", c.ID, c)
}

func (s *Sink) PublishRecommendation(r recommend.Recommendation) {
	s.publish("recommendation", r.ID, r)
}

func (s *Sink) publish(kind, key string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.lg.Error("event payload marshal failed", "kind", kind, "error", err)
		return
	}
	env, err := json.Marshal(envelope{Kind: kind, Timestamp: time.Now().UTC(), Payload: raw})
	if err != nil {
		s.lg.Error("event envelope marshal failed", "kind", kind, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	err = s.cb.Execute(ctx, func(ctx context.Context) error {
		return s.w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: env})
	})
	s.met.PublishObserved(time.Since(start), err == nil)
	if err != nil {
		s.lg.Warn("event publish dropped", "kind", kind, "key", key, "error", err)
	}
}

func (s *Sink) Close() {
	_ = s.w.Close()
	s.lg.Info("event writer closed")
}
