// Package metrics exposes ingestion counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "greenhouse"

// Ingest groups the collectors updated by the write path. A nil *Ingest is
// valid and records nothing.
type Ingest struct {
	registry *prometheus.Registry

	messages        *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	droppedFields   *prometheus.CounterVec
	insertDuration  prometheus.Histogram
	subscriberState prometheus.Gauge
	reconnects      prometheus.Counter
	liveClients     prometheus.Gauge
}

// NewIngest registers the collectors on a fresh registry.
func NewIngest() *Ingest {
	m := &Ingest{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "messages_total",
			Help:      "Ingested messages by source and outcome.",
		}, []string{"source", "outcome"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "rejections_total",
			Help:      "Malformed payloads by rejection reason.",
		}, []string{"reason"}),
		droppedFields: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "dropped_fields_total",
			Help:      "Sensor fields ignored because their value was not numeric.",
		}, []string{"field"}),
		insertDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "insert_duration_seconds",
			Help:      "Latency of measurement inserts.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		subscriberState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mqtt",
			Name:      "subscriber_state",
			Help:      "Subscriber connection state: 0 disconnected, 1 connecting, 2 connected.",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mqtt",
			Name:      "reconnects_total",
			Help:      "Connection attempts made after the first one.",
		}),
		liveClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "clients",
			Help:      "Connected live feed websocket clients.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.messages,
		m.rejections,
		m.droppedFields,
		m.insertDuration,
		m.subscriberState,
		m.reconnects,
		m.liveClients,
	)
	return m
}

// Handler serves the registry for GET /metrics.
func (m *Ingest) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Message counts one processed message.
func (m *Ingest) Message(source, outcome string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(source, outcome).Inc()
}

// Rejection counts one malformed payload.
func (m *Ingest) Rejection(reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

// DroppedFields counts sensor fields ignored in one payload.
func (m *Ingest) DroppedFields(fields []string) {
	if m == nil {
		return
	}
	for _, f := range fields {
		m.droppedFields.WithLabelValues(f).Inc()
	}
}

// InsertDuration records how long a store call took.
func (m *Ingest) InsertDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.insertDuration.Observe(d.Seconds())
}

// SubscriberState publishes the numeric subscriber state.
func (m *Ingest) SubscriberState(state int) {
	if m == nil {
		return
	}
	m.subscriberState.Set(float64(state))
}

// Reconnect counts a reconnect attempt.
func (m *Ingest) Reconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

// LiveClients publishes the live feed audience size.
func (m *Ingest) LiveClients(n int) {
	if m == nil {
		return
	}
	m.liveClients.Set(float64(n))
}
