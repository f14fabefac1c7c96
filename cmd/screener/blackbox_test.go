//go:build blackbox

package main

import (
	"database/sql"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/screener/market"
)

var screenerBin string

func TestMain(m *testing.M) {
	tmp, err := os.MkdirTemp("", "screener-blackbox-*")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(tmp)

	screenerBin = filepath.Join(tmp, "screener")

	// Build the binary once for all tests.
	cmd := exec.Command("go", "build", "-o", screenerBin, ".")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		panic(err)
	}

	os.Exit(m.Run())
}

func run(t *testing.T, args ...string) string {
	t.Helper()

	cmd := exec.Command(screenerBin, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("command failed: %v\nargs: %v\noutput:\n%s", err, args, string(out))
	}
	return string(out)
}

func writeFixture(t *testing.T, dir string) string {
	t.Helper()

	files := map[string]string{
		"screener.yaml": `
dirs:
  tickers: ` + filepath.Join(dir, "tickers") + `
  indicators: ` + filepath.Join(dir, "indicators") + `
  scans: ` + filepath.Join(dir, "scans") + `
  indicator_configs: ` + dir + `
  scan_configs: ` + dir + `
log:
  level: warn
  format: json
journal:
  type: sqlite
  db_path: ` + filepath.Join(dir, "journal.db") + `
`,
		"ind_conf_1.yaml": `
indicators:
  daily: [SMA]
params:
  daily:
    SMA: {periods: [2]}
`,
		"scan_conf_test.yaml": `
near_sma:
  criteria: SMA
  timeframe: daily
  params:
    SMA: {sma_periods: [2]}
`,
		"scan_lists.yaml": "daily: [near_sma]\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	tickers := filepath.Join(dir, "tickers")
	if err := os.MkdirAll(tickers, 0o755); err != nil {
		t.Fatal(err)
	}
	base := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)
	for _, ticker := range []string{"AAA", "BBB"} {
		bars := make([]market.Bar, 10)
		for i := range bars {
			c := 100 + float64(i)
			bars[i] = market.Bar{Time: base.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
		}
		f := market.NewOHLCVFrame(ticker, market.Daily, bars)
		if err := market.WriteCSVFile(filepath.Join(tickers, market.FileName(ticker, market.Daily, "050324")), f); err != nil {
			t.Fatal(err)
		}
	}
	return filepath.Join(dir, "screener.yaml")
}

func TestIndicatorsThenScanList(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFixture(t, dir)
	metricsPath := filepath.Join(dir, "metrics.prom")

	out := run(t, "--config", cfg, "config", "validate", "-f", cfg)
	if !strings.Contains(out, "Configuration valid") {
		t.Fatalf("expected validation, got:\n%s", out)
	}

	out = run(t, "--config", cfg, "--metrics-file", metricsPath, "indicators", "run", "--version", "1")
	if !strings.Contains(out, "Written: 2 files") {
		t.Fatalf("expected 2 files written, got:\n%s", out)
	}

	out = run(t, "--config", cfg, "scan", "list", "daily")
	if !strings.Contains(out, "Scan near_sma: 2 matches") {
		t.Fatalf("expected 2 matches, got:\n%s", out)
	}

	prom, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(prom), `screener_indicator_files_processed_total{timeframe="daily"} 2`) {
		t.Fatalf("unexpected metrics:\n%s", prom)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM scan_matches`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 journaled matches, got %d", n)
	}

	out = run(t, "--config", cfg, "journal", "today")
	if !strings.Contains(out, "near_sma") {
		t.Fatalf("expected today's run, got:\n%s", out)
	}
}

func TestScanCriteria(t *testing.T) {
	out := run(t, "scan", "criteria")
	for _, name := range []string{"OB_aVWAP", "QQEMOD", "StDev"} {
		if !strings.Contains(out, name) {
			t.Fatalf("missing criterion %s in:\n%s", name, out)
		}
	}
}
