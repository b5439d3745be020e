package server

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are cheap atomics that the hot path can bump without locking.
// Prometheus reads them lazily through GaugeFunc collectors when /metrics
// is scraped.
type Metrics struct {
	FramesSubmitted  atomic.Uint64
	FramesRejected   atomic.Uint64
	DetectionsFound  atomic.Uint64
	AlertsRaised     atomic.Uint64
	ResultsPublished atomic.Uint64

	registry *prometheus.Registry
}

func NewMetrics(subscribers func() float64, dropped func() float64) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "roadwatch_frames_submitted_total",
			Help: "Total frames accepted by /api/detect",
		},
		func() float64 { return float64(m.FramesSubmitted.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "roadwatch_frames_rejected_total",
			Help: "Total frames rejected (missing, empty, oversized, unauthorized)",
		},
		func() float64 { return float64(m.FramesRejected.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "roadwatch_detections_total",
			Help: "Total objects detected above the confidence threshold",
		},
		func() float64 { return float64(m.DetectionsFound.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "roadwatch_alerts_total",
			Help: "Total detections promoted to alerts",
		},
		func() float64 { return float64(m.AlertsRaised.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "roadwatch_results_published_total",
			Help: "Total detection results published to stream subscribers",
		},
		func() float64 { return float64(m.ResultsPublished.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "roadwatch_stream_subscribers",
			Help: "Number of connected stream subscribers",
		},
		subscribers,
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "roadwatch_stream_dropped_total",
			Help: "Total results dropped on slow subscriber channels",
		},
		dropped,
	))

	return m
}

// Handler returns the scrape endpoint handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
