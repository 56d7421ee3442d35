package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "firms_hotspots"

// Metrics holds the Prometheus counters, histograms, and gauges for the hotspot service.
type Metrics struct {
	// Upstream FIRMS metrics.
	UpstreamRequests *prometheus.CounterVec // labels: outcome={success,error,circuit_open}
	UpstreamDuration prometheus.Histogram

	// Retrieval cache metrics.
	CacheLookups *prometheus.CounterVec // labels: result={hit,miss,coalesced,forced}
	CacheEntries prometheus.Gauge

	// Dataset metrics.
	DatasetRecords prometheus.Gauge
	RowsRejected   prometheus.Counter
	Selections     *prometheus.CounterVec // labels: result={hit,miss}

	// Kafka sink metrics.
	RecordsPublished prometheus.Counter
	PublishErrors    prometheus.Counter
	SinkEnabled      prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "FIRMS area API requests by outcome.",
		}, []string{"outcome"}),
		UpstreamDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_duration_seconds",
			Help:      "FIRMS area API request duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Retrieval cache lookups by result.",
		}, []string{"result"}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Datasets currently held by the retrieval cache.",
		}),
		DatasetRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_records",
			Help:      "Records in the most recently fetched dataset.",
		}),
		RowsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_rejected_total",
			Help:      "CSV rows dropped during normalization.",
		}),
		Selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selections_total",
			Help:      "Map click lookups by result.",
		}, []string{"result"}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_published_total",
			Help:      "Hotspot records written to the Kafka topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed dataset publishes to Kafka.",
		}),
		SinkEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sink_enabled",
			Help:      "1 when the Kafka sink is enabled, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.UpstreamRequests,
		m.UpstreamDuration,
		m.CacheLookups,
		m.CacheEntries,
		m.DatasetRecords,
		m.RowsRejected,
		m.Selections,
		m.RecordsPublished,
		m.PublishErrors,
		m.SinkEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "upstream_requests_total"}, []string{"outcome"}),
		UpstreamDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: namespace, Name: "upstream_duration_seconds"}),
		CacheLookups:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "cache_lookups_total"}, []string{"result"}),
		CacheEntries:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "cache_entries"}),
		DatasetRecords:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "dataset_records"}),
		RowsRejected:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "rows_rejected_total"}),
		Selections:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: "selections_total"}, []string{"result"}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "records_published_total"}),
		PublishErrors:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "publish_errors_total"}),
		SinkEnabled:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: "sink_enabled"}),
	}
}
