package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes of a recalculation.
const (
	outcomeSuccess          = "success"
	outcomePrecondition     = "precondition"
	outcomeMissingReference = "missing_reference_data"
	outcomeError            = "error"
)

// Metrics are the recalculation metrics, in a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fintrack_recalculation_duration_seconds",
				Help:    "Duration of recalculation runs by outcome.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		total: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_recalculations_total",
				Help: "Total recalculation runs by outcome.",
			},
			[]string{"outcome"},
		),
	}
}

func (m *Metrics) observe(outcome string, d time.Duration) {
	m.duration.WithLabelValues(outcome).Observe(d.Seconds())
	m.total.WithLabelValues(outcome).Inc()
}
