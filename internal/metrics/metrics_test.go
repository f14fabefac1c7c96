package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dump(t *testing.T, m *Metrics) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "screener.prom")
	require.NoError(t, m.WriteFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestCountersAndDump(t *testing.T) {
	m := New()
	m.FilesProcessed.WithLabelValues("daily").Add(3)
	m.ScanMatches.WithLabelValues("ob_support").Inc()
	m.RunDuration.WithLabelValues("scan").Observe(0.2)

	out := dump(t, m)
	assert.Contains(t, out, `screener_indicator_files_processed_total{timeframe="daily"} 3`)
	assert.Contains(t, out, `screener_scan_matches_total{scan="ob_support"} 1`)
	assert.Contains(t, out, `screener_run_duration_seconds_count{stage="scan"} 1`)
}

func TestIndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.TickersScanned.Inc()
	assert.Contains(t, dump(t, a), "screener_tickers_scanned_total 1")
	assert.Contains(t, dump(t, b), "screener_tickers_scanned_total 0")
}
