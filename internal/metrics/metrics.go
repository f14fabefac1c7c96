// Package metrics holds the Prometheus collectors of a screener run.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all collectors, registered on a private registry so a run
// can dump exactly its own counters.
type Metrics struct {
	Registry *prometheus.Registry

	// Indicator stage
	FilesProcessed *prometheus.CounterVec // labels: timeframe
	FilesSkipped   *prometheus.CounterVec // labels: timeframe, reason
	PluginErrors   *prometheus.CounterVec // labels: plugin

	// Scan stage
	CriterionErrors *prometheus.CounterVec // labels: criterion
	ScanMatches     *prometheus.CounterVec // labels: scan
	TickersScanned  prometheus.Counter

	// Durations
	RunDuration *prometheus.HistogramVec // labels: stage

	// Data source
	FetchRetries prometheus.Counter
}

// New registers and returns all collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		FilesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_indicator_files_processed_total",
			Help: "Frames written by the indicator stage",
		}, []string{"timeframe"}),
		FilesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_indicator_files_skipped_total",
			Help: "Frames skipped by the indicator stage",
		}, []string{"timeframe", "reason"}),
		PluginErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_indicator_plugin_errors_total",
			Help: "Indicator plugin failures",
		}, []string{"plugin"}),
		CriterionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_criterion_errors_total",
			Help: "Criterion failures counted as no match",
		}, []string{"criterion"}),
		ScanMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "screener_scan_matches_total",
			Help: "Result rows emitted per scan",
		}, []string{"scan"}),
		TickersScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "screener_tickers_scanned_total",
			Help: "Tickers evaluated by the scan engine",
		}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "screener_run_duration_seconds",
			Help:    "Wall time of a stage run",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"stage"}),
		FetchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "screener_fetch_retries_total",
			Help: "Data source requests retried",
		}),
	}

	m.Registry.MustRegister(
		m.FilesProcessed,
		m.FilesSkipped,
		m.PluginErrors,
		m.CriterionErrors,
		m.ScanMatches,
		m.TickersScanned,
		m.RunDuration,
		m.FetchRetries,
	)
	return m
}

// WriteFile dumps the registry in the text exposition format.
func (m *Metrics) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
