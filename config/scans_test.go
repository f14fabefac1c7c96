package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rustyeddy/screener/indicators"
	"github.com/rustyeddy/screener/internal/params"
	"github.com/rustyeddy/screener/market"
	"github.com/rustyeddy/screener/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDir = "../configs"

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestParseIndicatorConfig(t *testing.T) {
	t.Parallel()

	cfg, err := ParseIndicatorConfig("2", []byte(`
indicators:
  d: [SMA, OB]
  1h: [OB]
params:
  daily:
    SMA: {periods: [50, 20]}
`))
	require.NoError(t, err)
	assert.Equal(t, "2", cfg.ID)
	assert.Equal(t, []market.Timeframe{market.Daily, market.OneHour}, cfg.Timeframes())
	assert.Equal(t, []string{"SMA", "OB"}, cfg.Indicators[market.Daily])
	assert.Equal(t, params.Raw{"periods": []any{50, 20}}, cfg.Params[market.Daily]["SMA"])
	assert.Nil(t, cfg.Params[market.OneHour])
}

func TestParseIndicatorConfigErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"no indicators", "params: {}"},
		{"bad timeframe", "indicators: {fortnight: [SMA]}"},
		{"bad params timeframe", "indicators: {daily: [SMA]}\nparams: {fortnight: {SMA: {}}}"},
		{"params without indicators", "indicators: {daily: [SMA]}\nparams: {weekly: {SMA: {}}}"},
		{"not yaml", "indicators: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseIndicatorConfig("x", []byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadIndicatorConfigMissingListsAvailable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "ind_conf_2.yaml", "indicators: {daily: [SMA]}")
	writeFile(t, dir, "ind_conf_1.yaml", "indicators: {daily: [RSI]}")

	ids, err := ListIndicatorConfigs(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids)

	cfg, err := LoadIndicatorConfig(dir, "2")
	require.NoError(t, err)
	assert.Equal(t, []string{"SMA"}, cfg.Indicators[market.Daily])

	_, err = LoadIndicatorConfig(dir, "9")
	var ce *Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, []string{"1", "2"}, ce.Available)
	assert.Contains(t, err.Error(), "(available: 1, 2)")
}

func TestLoadScans(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "scan_conf_a.yaml", "one:\n  criteria: StDev\n")
	writeFile(t, dir, "scan_conf_b.yaml", "two:\n  criteria: {daily: OB, weekly: supertrend}\n  logic: or\n")
	writeFile(t, dir, "scan_lists.yaml", "both: [one, two]\nbroken: [one, three]\n")

	scans, err := LoadScans(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, scans.Names())

	two, err := scans.Get("two")
	require.NoError(t, err)
	assert.Equal(t, scanner.Advanced, two.Mode)
	assert.Equal(t, scanner.Or, two.Logic)

	_, err = scans.Get("three")
	var ce *Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "scan", ce.Kind)

	lists, err := LoadScanLists(dir)
	require.NoError(t, err)
	got, err := lists.Get("both")
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, got)
	_, err = lists.Get("none")
	assert.Error(t, err)

	err = lists.Check(scans)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan list broken")
}

func TestLoadScansDuplicateName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "scan_conf_a.yaml", "one:\n  criteria: StDev\n")
	writeFile(t, dir, "scan_conf_b.yaml", "one:\n  criteria: OB\n")

	_, err := LoadScans(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scan_conf_a.yaml and scan_conf_b.yaml")
}

func TestLoadScanListsMissingFile(t *testing.T) {
	t.Parallel()

	lists, err := LoadScanLists(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, lists)
}

func TestSampleConfigsBind(t *testing.T) {
	t.Parallel()

	ids, err := ListIndicatorConfigs(sampleDir)
	require.NoError(t, err)
	require.NotEmpty(t, ids)
	comp := indicators.NewCompositor(nil)
	for _, id := range ids {
		cfg, err := LoadIndicatorConfig(sampleDir, id)
		require.NoError(t, err)
		for _, tf := range cfg.Timeframes() {
			_, err := comp.Prepare(cfg.Indicators[tf], cfg.Params[tf])
			assert.NoError(t, err, "ind_conf_%s %s", id, tf)
		}
	}

	scans, err := LoadScans(sampleDir)
	require.NoError(t, err)
	require.NotEmpty(t, scans)
	engine := scanner.New(scanner.Options{})
	for _, name := range scans.Names() {
		_, err := engine.Prepare(name, scans[name])
		assert.NoError(t, err, name)
	}

	lists, err := LoadScanLists(sampleDir)
	require.NoError(t, err)
	assert.NoError(t, lists.Check(scans))
}
