package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the Prometheus collectors fed by the Board.
type Metrics struct {
	frames        prometheus.Counter
	transmissions *prometheus.CounterVec
	fingers       prometheus.Gauge
	detect        prometheus.Histogram
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fingerled",
			Name:      "frames_total",
			Help:      "Camera frames processed.",
		}),
		transmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fingerled",
			Name:      "transmissions_total",
			Help:      "Bytes written to the LED controller.",
		}, []string{"reason"}),
		fingers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fingerled",
			Name:      "fingers",
			Help:      "Extended fingers in the latest frame.",
		}),
		detect: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fingerled",
			Name:      "detect_seconds",
			Help:      "Hand landmark detection latency.",
			Buckets:   []float64{.005, .01, .02, .04, .08, .16, .32},
		}),
	}

	reg.MustRegister(m.frames, m.transmissions, m.fingers, m.detect)
	return m
}
