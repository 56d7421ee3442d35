package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/firms-hotspot-service/internal/config"
	"github.com/couchcryptid/firms-hotspot-service/internal/domain"
	"github.com/couchcryptid/firms-hotspot-service/internal/observability"
)

type fakeWriter struct {
	batches [][]kafkago.Message
	err     error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.batches = append(f.batches, msgs)
	return f.err
}

func (f *fakeWriter) Close() error { return nil }

func testWriter(fw *fakeWriter) *Writer {
	return &Writer{
		writer:  fw,
		metrics: observability.NewMetricsForTesting(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func frp(v float64) *float64 { return &v }

func testDataset() domain.Dataset {
	fetched := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	acquired := time.Date(2024, 7, 1, 9, 30, 0, 0, time.UTC)
	return domain.NewDataset(
		domain.Query{Days: 3, Source: "VIIRS_NOAA20_NRT"},
		"https://firms.example/****/VIIRS_NOAA20_NRT",
		fetched,
		domain.ParseResult{Records: []domain.HotspotRecord{
			{ID: "hs-a", Latitude: 37.5, Longitude: 14.0, FRP: frp(12.4), Satellite: "N20", AcquiredAtUTC: acquired},
			{ID: "hs-b", Latitude: 38.1, Longitude: 13.3, Satellite: "N21", AcquiredAtUTC: acquired},
		}},
	)
}

func TestSerializeToMessage(t *testing.T) {
	fetched := time.Date(2024, 7, 1, 14, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	rec := domain.HotspotRecord{ID: "hs-a", Latitude: 37.5, Longitude: 14.0, FRP: frp(12.4), Satellite: "N20"}

	msg, err := serializeToMessage(rec, "VIIRS_NOAA20_NRT", fetched)
	require.NoError(t, err)

	assert.Equal(t, []byte("hs-a"), msg.Key)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "satellite", msg.Headers[0].Key)
	assert.Equal(t, []byte("N20"), msg.Headers[0].Value)
	assert.Equal(t, "fetched_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2024-07-01T12:00:00Z"), msg.Headers[1].Value)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "hs-a", body["id"])
	assert.Equal(t, 12.4, body["frp"])
	assert.Equal(t, "VIIRS_NOAA20_NRT", body["source"])
	assert.NotContains(t, body, "bright_ti4", "missing measurements are omitted")
}

func TestPublishDataset(t *testing.T) {
	fw := &fakeWriter{}
	w := testWriter(fw)

	require.NoError(t, w.PublishDataset(context.Background(), testDataset()))

	require.Len(t, fw.batches, 1, "one WriteMessages call per dataset")
	require.Len(t, fw.batches[0], 2)
	assert.Equal(t, []byte("hs-a"), fw.batches[0][0].Key)
	assert.Equal(t, []byte("hs-b"), fw.batches[0][1].Key)
}

func TestPublishDataset_Empty(t *testing.T) {
	fw := &fakeWriter{}
	w := testWriter(fw)

	require.NoError(t, w.PublishDataset(context.Background(), domain.Dataset{}))
	assert.Empty(t, fw.batches)
}

func TestPublishDataset_WriteError(t *testing.T) {
	fw := &fakeWriter{err: errors.New("leader not available")}
	w := testWriter(fw)

	err := w.PublishDataset(context.Background(), testDataset())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish 2 hotspots")
	assert.Contains(t, err.Error(), "leader not available")
}

func TestNewWriter_BoundsEachPublish(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "firms-hotspots"}
	w := NewWriter(cfg, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { _ = w.Close() })

	kw, ok := w.writer.(*kafkago.Writer)
	require.True(t, ok)
	assert.Equal(t, "firms-hotspots", kw.Topic)
	assert.Equal(t, writeTimeout, kw.WriteTimeout)
	assert.Equal(t, maxAttempts, kw.MaxAttempts)
	assert.Less(t, writeTimeout*maxAttempts, 30*time.Second)
}
