// Package metrics records pipeline run statistics as Prometheus metrics.
// A batch run has no scrape endpoint, so the registry is written to a
// textfile for the node exporter's textfile collector.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/san-kum/trajstitch/internal/tracer"
)

const namespace = "trajstitch"

// Recorder is safe for concurrent use. A nil *Recorder discards everything.
type Recorder struct {
	reg *prometheus.Registry

	joined       prometheus.Counter
	failed       *prometheus.CounterVec
	rows         prometheus.Counter
	joinDuration prometheus.Histogram
	buildSeconds prometheus.Gauge
	lastComplete prometheus.Gauge
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		reg: reg,
		joined: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracers_joined_total",
			Help:      "Tracers joined and written",
		}),
		failed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tracers_failed_total",
			Help:      "Tracers that could not be joined, by failure class",
		}, []string{"reason"}),
		rows: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Trajectory rows written",
		}),
		joinDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "join_duration_seconds",
			Help:      "Time to load, join and write one tracer",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		buildSeconds: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "mapped_set_build_seconds",
			Help:      "Time spent building the mapped tracer set",
		}),
		lastComplete: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_completion_timestamp_seconds",
			Help:      "Unix time the last run finished",
		}),
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

func (r *Recorder) ObserveJoin(rows int, d time.Duration) {
	if r == nil {
		return
	}
	r.joined.Inc()
	r.rows.Add(float64(rows))
	r.joinDuration.Observe(d.Seconds())
}

func (r *Recorder) ObserveFailure(err error) {
	if r == nil {
		return
	}
	r.failed.WithLabelValues(Reason(err)).Inc()
}

func (r *Recorder) ObserveBuild(d time.Duration) {
	if r == nil {
		return
	}
	r.buildSeconds.Set(d.Seconds())
}

func (r *Recorder) MarkComplete(t time.Time) {
	if r == nil {
		return
	}
	r.lastComplete.Set(float64(t.Unix()))
}

// WriteTextfile writes the registry in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.reg)
}

// Reason classifies err for the failure counter.
func Reason(err error) string {
	switch {
	case errors.Is(err, tracer.ErrIO):
		return "io"
	case errors.Is(err, tracer.ErrFormat):
		return "format"
	case errors.Is(err, tracer.ErrShapeMismatch):
		return "shape"
	case errors.Is(err, tracer.ErrOutOfRange):
		return "range"
	case errors.Is(err, tracer.ErrNonMonotonic):
		return "monotonic"
	default:
		return "other"
	}
}
