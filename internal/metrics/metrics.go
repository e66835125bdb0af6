// Package metrics holds the counters of one datacatalog run. Each run owns a
// registry; nothing is registered globally.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/KaramelBytes/datacatalog-cli/internal/loader"
)

// Load outcomes used as the "result" label.
const (
	ResultOK          = "ok"
	ResultLoadError   = "load_error"
	ResultNotFound    = "not_found"
	ResultUnsupported = "unsupported"
	ResultOther       = "error"
)

// Metrics groups the collectors of a run. A nil *Metrics is a valid no-op.
type Metrics struct {
	Registry *prometheus.Registry

	LoadsTotal      *prometheus.CounterVec
	LoadDuration    *prometheus.HistogramVec
	AbsorbedTotal   *prometheus.CounterVec
	ColumnsProfiled prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		LoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "datacatalog",
				Subsystem: "loader",
				Name:      "files_total",
				Help:      "files loaded by format and result",
			}, []string{"format", "result"}),
		LoadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "datacatalog",
				Subsystem: "loader",
				Name:      "duration_seconds",
				Help:      "file load durations",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2.0, 16),
			}, []string{"format"}),
		AbsorbedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "datacatalog",
				Subsystem: "sampler",
				Name:      "absorbed_total",
				Help:      "full loads whose failure was absorbed into an empty sample map",
			}, []string{"format"}),
		ColumnsProfiled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "datacatalog",
				Subsystem: "profile",
				Name:      "columns_total",
				Help:      "columns profiled",
			}),
	}
	m.Registry.MustRegister(m.LoadsTotal, m.LoadDuration, m.AbsorbedTotal, m.ColumnsProfiled)
	return m
}

// ObserveLoad records one load attempt.
func (m *Metrics) ObserveLoad(format loader.Format, started time.Time, err error) {
	if m == nil {
		return
	}
	m.LoadsTotal.WithLabelValues(string(format), Result(err)).Inc()
	m.LoadDuration.WithLabelValues(string(format)).Observe(time.Since(started).Seconds())
}

// ObserveAbsorbed records a load error that the sampler swallowed.
func (m *Metrics) ObserveAbsorbed(format loader.Format) {
	if m == nil {
		return
	}
	m.AbsorbedTotal.WithLabelValues(string(format)).Inc()
}

// ObserveColumns adds n profiled columns.
func (m *Metrics) ObserveColumns(n int) {
	if m == nil {
		return
	}
	m.ColumnsProfiled.Add(float64(n))
}

// WriteFile dumps the registry in the text exposition format.
func (m *Metrics) WriteFile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}

// Result classifies a load error into a label value.
func Result(err error) string {
	var le *loader.LoadError
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, loader.ErrFileNotFound):
		return ResultNotFound
	case errors.Is(err, loader.ErrUnsupportedFormat):
		return ResultUnsupported
	case errors.As(err, &le):
		return ResultLoadError
	}
	return ResultOther
}
