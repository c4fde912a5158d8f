// Package metrics provides Prometheus metrics for observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voice_capture"

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Ingest metrics
	IngestsTotal      prometheus.Counter
	IngestsByOutcome  *prometheus.CounterVec
	IngestRejected    *prometheus.CounterVec
	IngestBytes       prometheus.Counter
	ConnectionsActive prometheus.Gauge

	// Gate metrics
	GateRejections *prometheus.CounterVec

	// Transcription metrics
	TranscriptionLatency prometheus.Histogram
	TranscriptionErrors  prometheus.Counter

	// Privacy metrics
	PIIFindings *prometheus.CounterVec

	// Integrity chain metrics
	IntegrityEventsAppended prometheus.Counter

	// Enrichment metrics
	EnrichQueueDepth    prometheus.Gauge
	EnrichDropped       prometheus.Counter
	EnrichAttempts      prometheus.Counter
	EnrichFailures      prometheus.Counter
	EnrichDegraded      prometheus.Counter
	EnrichLatency       prometheus.Histogram

	// Kafka publish metrics
	KafkaPublishTotal   *prometheus.CounterVec
	KafkaPublishErrors  *prometheus.CounterVec
	KafkaPublishLatency *prometheus.HistogramVec
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics()

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		IngestsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingests_total",
			Help:      "Total number of audio segments accepted for processing",
		}),
		IngestsByOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingests_outcome_total",
			Help:      "Terminal ingest outcomes by status",
		}, []string{"status"}),
		IngestRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingests_rejected_total",
			Help:      "Uploads rejected before persistence by validation check",
		}, []string{"check"}),
		IngestBytes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_bytes_total",
			Help:      "Total audio bytes received",
		}),
		ConnectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connections_active",
			Help:      "Number of currently active WebSocket connections",
		}),

		GateRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_rejections_total",
			Help:      "Segments rejected by an admission gate or filter",
		}, []string{"reason"}),

		TranscriptionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_latency_seconds",
			Help:      "Latency of the external transcription call",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		TranscriptionErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_errors_total",
			Help:      "Total transcription engine failures",
		}),

		PIIFindings: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pii_findings_total",
			Help:      "PII findings by redaction outcome",
		}, []string{"reason"}),

		IntegrityEventsAppended: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "integrity_events_total",
			Help:      "Total integrity chain events appended",
		}),

		EnrichQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "enrich_queue_depth",
			Help:      "Current depth of the enrichment work queue",
		}),
		EnrichDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrich_dropped_total",
			Help:      "Enrichment jobs dropped because the queue was full",
		}),
		EnrichAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrich_attempts_total",
			Help:      "Total external analyzer attempts including retries",
		}),
		EnrichFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrich_failures_total",
			Help:      "Total external analyzer failures",
		}),
		EnrichDegraded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrich_degraded_total",
			Help:      "Enrichments completed with locally derived fields only",
		}),
		EnrichLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enrich_latency_seconds",
			Help:      "End-to-end enrichment latency including retries",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		KafkaPublishTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_total",
			Help:      "Total Kafka publish operations",
		}, []string{"topic", "event_type"}),
		KafkaPublishErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_publish_errors_total",
			Help:      "Total Kafka publish failures",
		}, []string{"topic", "event_type"}),
		KafkaPublishLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "kafka_publish_latency_seconds",
			Help:      "Latency of Kafka publish operations",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"topic", "event_type"}),
	}
}

// RecordKafkaPublish records one publish outcome with latency.
func (m *Metrics) RecordKafkaPublish(topic, eventType string, err error, seconds float64) {
	m.KafkaPublishTotal.WithLabelValues(topic, eventType).Inc()
	if err != nil {
		m.KafkaPublishErrors.WithLabelValues(topic, eventType).Inc()
	}
	m.KafkaPublishLatency.WithLabelValues(topic, eventType).Observe(seconds)
}
