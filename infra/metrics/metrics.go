// Package metrics exposes the sequencer's Prometheus collectors. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sequencer"

type Metrics struct {
	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	replayed       prometheus.Counter
	checkpoints    prometheus.Counter
	lastSequence   prometheus.Gauge
	inflight       prometheus.Gauge
	broadcastLag   prometheus.Gauge
	broadcastFails prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Requests processed, by type and sequencer error.",
		}, []string{"type", "error"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "processing_seconds",
			Help:      "Time spent in the processor per request.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"type"}),
		replayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replayed_requests_total",
			Help:      "Requests re-processed during recovery whose response was already committed.",
		}),
		checkpoints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkpoints_total",
			Help:      "Checkpoints written.",
		}),
		lastSequence: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_sequence",
			Help:      "Last input sequence processed.",
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gateway_inflight",
			Help:      "Gateway calls waiting for their response.",
		}),
		broadcastLag: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "broadcast_lag",
			Help:      "Committed responses not yet published.",
		}),
		broadcastFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_failures_total",
			Help:      "Failed publish attempts.",
		}),
	}
	m.registry.MustRegister(
		m.requests, m.latency, m.replayed, m.checkpoints, m.lastSequence,
		m.inflight, m.broadcastLag, m.broadcastFails,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveRequest(requestType, sequencerError string, sequence uint64, took time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(requestType, sequencerError).Inc()
	m.latency.WithLabelValues(requestType).Observe(took.Seconds())
	m.lastSequence.Set(float64(sequence))
}

func (m *Metrics) Replayed() {
	if m == nil {
		return
	}
	m.replayed.Inc()
}

func (m *Metrics) CheckpointWritten() {
	if m == nil {
		return
	}
	m.checkpoints.Inc()
}

// GatewayCall marks a call in flight and returns the func that ends it.
func (m *Metrics) GatewayCall() func() {
	if m == nil {
		return func() {}
	}
	m.inflight.Inc()
	return m.inflight.Dec
}

func (m *Metrics) BroadcastLag(n uint64) {
	if m == nil {
		return
	}
	m.broadcastLag.Set(float64(n))
}

func (m *Metrics) BroadcastFailed() {
	if m == nil {
		return
	}
	m.broadcastFails.Inc()
}
