package metrics

import (
	"time"

	"github.com/berfenger/mercury2mqtt/pkg/mercury236"

	"github.com/prometheus/client_golang/prometheus"
)

// ExchangeMetrics counts exchange outcomes per parameter and times the reader.
type ExchangeMetrics struct {
	Exchanges *prometheus.CounterVec
	Latency   *prometheus.HistogramVec
}

func NewExchangeMetrics() *ExchangeMetrics {
	return &ExchangeMetrics{
		Exchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchanges_total",
			Help:      "Request/response exchanges with the meter by parameter and outcome",
		}, []string{"parameter", "outcome"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reader_duration_seconds",
			Help:      "Time spent in reader operations",
			Buckets:   []float64{0.05, 0.1, 0.15, 0.2, 0.5, 1, 2, 5, 10, 30},
		}, []string{"fn"}),
	}
}

func (m *ExchangeMetrics) Register(reg prometheus.Registerer) error {
	if err := reg.Register(m.Exchanges); err != nil {
		return err
	}
	return reg.Register(m.Latency)
}

// Instrument feeds the reader hooks into the vectors.
func (m *ExchangeMetrics) Instrument() mercury236.Instrument {
	return mercury236.Instrument{
		RecordTime: func(fnName string, elapsed time.Duration) {
			m.Latency.WithLabelValues(fnName).Observe(elapsed.Seconds())
		},
		RecordOutcome: func(parameterId string, outcome mercury236.Outcome) {
			m.Exchanges.WithLabelValues(parameterId, outcome.String()).Inc()
		},
	}
}
