// v1
// io.go
package kafkaio

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/synergy-ai/optimizer/internal/config"
	"github.com/synergy-ai/optimizer/internal/core"
	"github.com/synergy-ai/optimizer/internal/model"
	"github.com/synergy-ai/optimizer/internal/observability"
)

// IO encapsulates the kafka readers bridging external event streams into the
// core's ingest surface. One reader per input topic; batches are JSON arrays
// (occupancy arrives as spaceId-keyed maps).
type IO struct {
	cfg config.AppConfig
	lg  *slog.Logger
	eng *core.Engine
	met *observability.Metrics

	bookingsReader  *kafka.Reader
	occupancyReader *kafka.Reader
	energyReader    *kafka.Reader
}

func New(cfg config.AppConfig, lg *slog.Logger, eng *core.Engine, met *observability.Metrics) *IO {
	newReader := func(topic string) *kafka.Reader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.KafkaBrokers,
			GroupID:  cfg.ConsumerGroup,
			Topic:    topic,
			MinBytes: 1,
			MaxBytes: 10e6,
			MaxWait:  200 * time.Millisecond,
		})
	}
	return &IO{
		cfg:             cfg,
		lg:              lg,
		eng:             eng,
		met:             met,
		bookingsReader:  newReader(cfg.BookingsTopic),
		occupancyReader: newReader(cfg.OccupancyTopic),
		energyReader:    newReader(cfg.EnergyTopic),
	}
}

// Run consumes all three input topics until the context is cancelled. Messages
// that fail to decode are logged and skipped; one bad message never stops a
// consumer loop.
func (ioh *IO) Run(ctx context.Context) {
	go ioh.consume(ctx, ioh.bookingsReader, "bookings", func(value []byte) error {
		var batch []model.Booking
		if err := json.Unmarshal(value, &batch); err != nil {
			return err
		}
		ioh.eng.IngestBookings(batch)
		ioh.met.Ingested("bookings", len(batch))
		return nil
	})
	go ioh.consume(ctx, ioh.occupancyReader, "occupancy", func(value []byte) error {
		var batch map[string]model.OccupancySnapshot
		if err := json.Unmarshal(value, &batch); err != nil {
			return err
		}
		ioh.eng.IngestOccupancy(batch)
		ioh.met.Ingested("occupancy", len(batch))
		return nil
	})
	go ioh.consume(ctx, ioh.energyReader, "energy", func(value []byte) error {
		var batch []model.EnergyReading
		if err := json.Unmarshal(value, &batch); err != nil {
			return err
		}
		ioh.eng.IngestEnergyReadings(batch)
		ioh.met.Ingested("energy", len(batch))
		return nil
	})
}

func (ioh *IO) consume(ctx context.Context, r *kafka.Reader, stream string, handle func(value []byte) error) {
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			ioh.lg.Warn("kafka read failed", "stream", stream, "error", err)
			time.Sleep(time.Second)
			continue
		}
		if err := handle(msg.Value); err != nil {
			ioh.lg.Warn("skipping undecodable message", "stream", stream, "offset", msg.Offset, "error", err)
		}
	}
}

func (ioh *IO) Close() {
	_ = ioh.bookingsReader.Close()
	_ = ioh.occupancyReader.Close()
	_ = ioh.energyReader.Close()
	ioh.lg.Info("kafka readers closed")
}
