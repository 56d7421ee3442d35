package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/firms-hotspot-service/internal/config"
	"github.com/couchcryptid/firms-hotspot-service/internal/domain"
	"github.com/couchcryptid/firms-hotspot-service/internal/observability"
)

// messageWriter is the subset of *kafkago.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes freshly fetched hotspot records to a Kafka topic.
// It implements domain.Sink.
type Writer struct {
	writer  messageWriter
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Producer limits. A publish gives up well inside the cache's publish timeout.
const (
	writeTimeout = 10 * time.Second
	maxAttempts  = 3
)

// NewWriter creates a Kafka producer for the configured hotspot topic.
func NewWriter(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
		WriteTimeout:           writeTimeout,
		MaxAttempts:            maxAttempts,
	}
	return &Writer{writer: w, metrics: metrics, logger: logger}
}

// hotspotMessage is the JSON value of one published record.
type hotspotMessage struct {
	domain.HotspotRecord
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// PublishDataset serializes every record of ds and publishes them in a single
// WriteMessages call. Empty datasets publish nothing.
func (w *Writer) PublishDataset(ctx context.Context, ds domain.Dataset) error {
	if ds.Empty() {
		return nil
	}
	msgs := make([]kafkago.Message, len(ds.Records))
	for i := range ds.Records {
		msg, err := serializeToMessage(ds.Records[i], ds.Query.Source, ds.FetchedAt)
		if err != nil {
			w.metrics.PublishErrors.Inc()
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		w.metrics.PublishErrors.Inc()
		return fmt.Errorf("publish %d hotspots: %w", len(msgs), err)
	}
	w.metrics.RecordsPublished.Add(float64(len(msgs)))
	w.logger.Debug("hotspots published", "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a HotspotRecord into a Kafka message keyed by record ID.
func serializeToMessage(rec domain.HotspotRecord, source string, fetchedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(hotspotMessage{HotspotRecord: rec, Source: source, FetchedAt: fetchedAt})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize hotspot %s: %w", rec.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(rec.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "satellite", Value: []byte(rec.Satellite)},
			{Key: "fetched_at", Value: []byte(fetchedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
