// Package metric provides Prometheus metrics for confkit.
//
// A Recorder counts resolutions by source and outcome, loader failures and
// backend loads. All methods are safe on a nil *Recorder, so components
// can hold one unconditionally.
package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resolution outcomes.
const (
	OutcomeLoader  = "loader"
	OutcomeDefault = "default"
	OutcomeAbsent  = "absent"
	OutcomeError   = "error"
)

// Recorder holds the confkit metrics.
type Recorder struct {
	resolutions     *prometheus.CounterVec
	resolveDuration prometheus.Histogram
	loaderErrors    *prometheus.CounterVec
	loads           *prometheus.CounterVec
	cacheEntries    *prometheus.GaugeVec
}

// NewRecorder creates the metrics and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "confkit",
			Name:      "resolutions_total",
			Help:      "Key resolutions by winning source and outcome",
		}, []string{"source", "outcome"}),
		resolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "confkit",
			Name:      "resolve_duration_seconds",
			Help:      "Time spent resolving a single key",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		loaderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "confkit",
			Subsystem: "loader",
			Name:      "errors_total",
			Help:      "Loader lookups that failed",
		}, []string{"loader"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "confkit",
			Subsystem: "loader",
			Name:      "loads_total",
			Help:      "Backend loads performed by caching loaders",
		}, []string{"loader", "result"}),
		cacheEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "confkit",
			Subsystem: "loader",
			Name:      "cache_entries",
			Help:      "Entries held by a caching loader after its last load",
		}, []string{"loader"}),
	}

	for _, c := range []prometheus.Collector{
		r.resolutions,
		r.resolveDuration,
		r.loaderErrors,
		r.loads,
		r.cacheEntries,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// ObserveResolution records one key resolution.
func (r *Recorder) ObserveResolution(source, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.resolutions.WithLabelValues(source, outcome).Inc()
	r.resolveDuration.Observe(d.Seconds())
}

// LoaderError records a failed loader lookup.
func (r *Recorder) LoaderError(loaderType string) {
	if r == nil {
		return
	}
	r.loaderErrors.WithLabelValues(loaderType).Inc()
}

// Load records a backend load and, on success, the resulting cache size.
func (r *Recorder) Load(loaderType string, entries int, err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.loads.WithLabelValues(loaderType, "error").Inc()
		return
	}
	r.loads.WithLabelValues(loaderType, "ok").Inc()
	r.cacheEntries.WithLabelValues(loaderType).Set(float64(entries))
}

// Handler returns an HTTP handler exposing the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
