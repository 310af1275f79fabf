package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the Prometheus metrics of the indicator engine and
// implements ports.RecomputeObserver and ports.StreamObserver.
type Recorder struct {
	registry *prometheus.Registry

	RecomputesTotal *prometheus.CounterVec   // labels: indicator, result
	RecomputeDur    *prometheus.HistogramVec // labels: indicator
	SeriesPoints    *prometheus.GaugeVec     // labels: indicator
	PriceUpdates    prometheus.Counter
	StreamErrors    prometheus.Counter
}

// NewRecorder creates the metrics on a dedicated registry so several
// recorders can coexist (tests, multiple services in one process).
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		RecomputesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indicators_recomputes_total",
			Help: "Indicator recompute passes by outcome",
		}, []string{"indicator", "result"}),
		RecomputeDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "indicators_recompute_duration_seconds",
			Help:    "Full-series recompute latency",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"indicator"}),
		SeriesPoints: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "indicators_series_points",
			Help: "Length of the last derived series",
		}, []string{"indicator"}),
		PriceUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indicators_price_updates_total",
			Help: "Price points applied to the source series",
		}),
		StreamErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indicators_stream_errors_total",
			Help: "Errors reported by the live kline stream",
		}),
	}

	r.registry.MustRegister(
		r.RecomputesTotal,
		r.RecomputeDur,
		r.SeriesPoints,
		r.PriceUpdates,
		r.StreamErrors,
	)
	return r
}

// ObserveRecompute records one recompute pass.
func (r *Recorder) ObserveRecompute(indicator string, elapsed time.Duration, points int, err error) {
	if err != nil {
		r.RecomputesTotal.WithLabelValues(indicator, "error").Inc()
		return
	}
	r.RecomputesTotal.WithLabelValues(indicator, "ok").Inc()
	r.RecomputeDur.WithLabelValues(indicator).Observe(elapsed.Seconds())
	r.SeriesPoints.WithLabelValues(indicator).Set(float64(points))
}

// ObservePriceUpdate counts one price point applied from the stream.
func (r *Recorder) ObservePriceUpdate() {
	r.PriceUpdates.Inc()
}

// ObserveStreamError counts one stream failure.
func (r *Recorder) ObserveStreamError(error) {
	r.StreamErrors.Inc()
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the recorder's metrics in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
