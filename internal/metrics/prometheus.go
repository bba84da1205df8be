// Package metrics provides Prometheus metrics for isochrone processing
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder owns the isochrone collectors and the registry they live in.
// Each Recorder has its own registry so that tests and one-shot CLI runs
// never collide on the global default registry.
type Recorder struct {
	registry *prometheus.Registry

	RowsLoaded        *prometheus.CounterVec
	HeaderRowsDropped *prometheus.CounterVec
	LoadDuration      *prometheus.HistogramVec
	ErrorsTotal       *prometheus.CounterVec
	FiguresRendered   *prometheus.CounterVec
	RowsExported      *prometheus.CounterVec
	ExportDuration    *prometheus.HistogramVec
}

// NewRecorder creates a recorder with all collectors registered
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		RowsLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "isochrone_rows_loaded_total",
				Help: "Total number of model rows loaded from isochrone tables",
			},
			[]string{"source"},
		),

		HeaderRowsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "isochrone_header_rows_dropped_total",
				Help: "Total number of embedded header rows discarded while loading",
			},
			[]string{"source"},
		),

		LoadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "isochrone_load_duration_seconds",
				Help:    "Time taken to load and transform an isochrone table",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"source"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "isochrone_errors_total",
				Help: "Total number of errors",
			},
			[]string{"stage", "type"},
		),

		FiguresRendered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "isochrone_figures_rendered_total",
				Help: "Total number of colour-magnitude diagrams rendered",
			},
			[]string{"backend"},
		),

		RowsExported: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "isochrone_rows_exported_total",
				Help: "Total number of rows exported",
			},
			[]string{"sink"},
		),

		ExportDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "isochrone_export_duration_seconds",
				Help:    "Time taken to export a table",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"sink"},
		),
	}

	r.registry.MustRegister(
		r.RowsLoaded,
		r.HeaderRowsDropped,
		r.LoadDuration,
		r.ErrorsTotal,
		r.FiguresRendered,
		r.RowsExported,
		r.ExportDuration,
	)

	return r
}

// Registry returns the registry the collectors are registered with
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordLoad records a completed table load
func (r *Recorder) RecordLoad(source string, rows, headerRows int, duration time.Duration) {
	r.RowsLoaded.WithLabelValues(source).Add(float64(rows))
	r.HeaderRowsDropped.WithLabelValues(source).Add(float64(headerRows))
	r.LoadDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordError records an error
func (r *Recorder) RecordError(stage, errorType string) {
	r.ErrorsTotal.WithLabelValues(stage, errorType).Inc()
}

// RecordRender records a rendered figure
func (r *Recorder) RecordRender(backend string) {
	r.FiguresRendered.WithLabelValues(backend).Inc()
}

// RecordExport records rows written to a sink
func (r *Recorder) RecordExport(sink string, rows int64, duration time.Duration) {
	r.RowsExported.WithLabelValues(sink).Add(float64(rows))
	r.ExportDuration.WithLabelValues(sink).Observe(duration.Seconds())
}

// WriteTextfile writes the current values in the node-exporter textfile format
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// Timer is a helper for measuring duration
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
