// Package metrics counts what a normalization run did and can export the
// counters in the Prometheus text format for the node-exporter textfile collector.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Skip reasons used as the "reason" label.
const (
	ReasonNoMatch   = "no_match"
	ReasonTimestamp = "timestamp"
	ReasonNoParser  = "no_parser"
)

// Metrics holds the run counters on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Files   *prometheus.CounterVec
	Lines   prometheus.Counter
	Records *prometheus.CounterVec
	Skipped *prometheus.CounterVec
}

// New creates the counters on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	return &Metrics{
		registry: registry,
		Files: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ecsify_files_total",
				Help: "Input files processed, by detected type",
			},
			[]string{"type"},
		),
		Lines: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "ecsify_lines_total",
				Help: "Non-blank input lines read",
			},
		),
		Records: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ecsify_records_total",
				Help: "Normalized records emitted, by dataset",
			},
			[]string{"type"},
		),
		Skipped: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "ecsify_lines_skipped_total",
				Help: "Lines that produced no record",
			},
			[]string{"type", "reason"},
		),
	}
}

// WriteTextfile atomically writes all counters to path.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
