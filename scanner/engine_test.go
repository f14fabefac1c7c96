package scanner

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/screener/criteria"
	"github.com/rustyeddy/screener/internal/logger"
	"github.com/rustyeddy/screener/internal/params"
	"github.com/rustyeddy/screener/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFrame writes a frame file holding the given columns.
func writeFrame(t *testing.T, dir, ticker string, tf market.Timeframe, stamp string, cols map[string][]float64) {
	t.Helper()
	n := len(cols[market.Close])
	dates := make([]time.Time, n)
	for i := range dates {
		dates[i] = time.Date(2024, 3, 1+i, 0, 0, 0, 0, time.UTC)
	}
	f := market.NewFrame(ticker, tf, dates)
	for _, name := range []string{market.Close, "StDev_Mean", "StDev", "OB", "OB_High", "OB_Low"} {
		if v, ok := cols[name]; ok {
			require.NoError(t, f.Set(name, v))
		}
	}
	require.NoError(t, market.WriteCSVFile(filepath.Join(dir, market.FileName(ticker, tf, stamp)), f))
}

func stdevCols(close float64) map[string][]float64 {
	return map[string][]float64{
		market.Close: {100, close},
		"StDev_Mean": {100, 100},
		"StDev":      {4, 4},
	}
}

// obCols holds a bullish block spanning 100..105 on row 1.
func obCols(close float64) map[string][]float64 {
	return map[string][]float64{
		market.Close: {100, 104, close},
		"OB":         {0, 1, 0},
		"OB_High":    {0, 105, 0},
		"OB_Low":     {0, 100, 0},
	}
}

func newEngine() *Engine {
	return New(Options{Workers: 2})
}

func run(t *testing.T, e *Engine, spec *Spec, dir string) *Table {
	t.Helper()
	p, err := e.Prepare("test", spec)
	require.NoError(t, err)
	tbl, err := e.RunDir(context.Background(), p, dir)
	require.NoError(t, err)
	return tbl
}

func TestSimpleScan(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "AAA", market.Daily, "010324", stdevCols(90))
	writeFrame(t, dir, "BBB", market.Daily, "010324", stdevCols(91))
	writeFrame(t, dir, "CCC", market.Daily, "010324", stdevCols(99))

	spec := NewSimple("StDev")
	spec.Params["StDev"] = Param{Entry: Entry{Flat: params.Raw{"threshold": 2, "mode": "oversold"}}}
	tbl := run(t, newEngine(), spec, dir)

	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"AAA", "BBB"}, tbl.Tickers())
	assert.Equal(t, []string{
		"date", "Ticker", "Timeframe", "Close",
		"StDev_StDev_Mean", "StDev_StDev", "StDev_ZScore",
	}, tbl.Header())

	rec := tbl.Records()
	assert.Equal(t, []string{"2024-03-02", "AAA", "daily", "90", "100", "4", "-2.5"}, rec[0])
	assert.Equal(t, market.Daily, tbl.Rows[1].Timeframe)
	assert.Equal(t, 91.0, tbl.Rows[1].Close)
}

func TestSimpleScanTimeframeFilterAndNewestStamp(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "AAA", market.Daily, "010324", stdevCols(90))
	writeFrame(t, dir, "AAA", market.Daily, "050324", stdevCols(99))
	writeFrame(t, dir, "AAA", market.OneHour, "050324", stdevCols(90))
	writeFrame(t, dir, "BBB", market.Weekly, "050324", stdevCols(90))

	tbl := run(t, newEngine(), NewSimple("StDev"), dir)
	require.Equal(t, 2, tbl.Len())
	assert.Equal(t, market.OneHour, tbl.Rows[0].Timeframe)
	assert.Equal(t, "BBB", tbl.Rows[1].Ticker)

	spec := NewSimple("StDev")
	spec.Timeframe = market.Weekly
	tbl = run(t, newEngine(), spec, dir)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "BBB", tbl.Rows[0].Ticker)
}

func TestListScanDuplicateCriteria(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "AAA", market.Daily, "010324", obCols(103))

	spec := NewList("OB", "OB")
	spec.Params["OB"] = Param{Entry: Entry{List: []params.Raw{
		{"mode": "bullish"},
		{"mode": "support"},
	}}}
	tbl := run(t, newEngine(), spec, dir)
	require.Equal(t, 1, tbl.Len())
	assert.Contains(t, tbl.Columns, "OB_OB_Index")
	assert.Contains(t, tbl.Columns, "OB_1_OB_Index")
	assert.Contains(t, tbl.Columns, "OB_1_Tolerance")
	assert.NotContains(t, tbl.Columns, "OB_Tolerance")

	// The second occurrence fails on its own parameters.
	spec.Params["OB"] = Param{Entry: Entry{List: []params.Raw{
		{"mode": "bullish"},
		{"mode": "resistance"},
	}}}
	assert.Equal(t, 0, run(t, newEngine(), spec, dir).Len())
}

func TestPrepareErrors(t *testing.T) {
	e := newEngine()

	short := NewList("OB", "OB")
	short.Params["OB"] = Param{Entry: Entry{List: []params.Raw{{"mode": "bullish"}}}}
	_, err := e.Prepare("short", short)
	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "OB", ce.Criterion)

	_, err = e.Prepare("unknown", NewList("OB", "nope"))
	var nf *criteria.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "nope", nf.Name)

	bad := NewSimple("OB")
	bad.Params["OB"] = Param{Entry: Entry{Flat: params.Raw{"mode": "sideways"}}}
	_, err = e.Prepare("bad", bad)
	require.True(t, errors.As(err, &ce))

	_, err = e.Prepare("empty", NewList())
	assert.Error(t, err)
}

func advancedDir(t *testing.T) string {
	dir := t.TempDir()
	// AAA passes both timeframes.
	writeFrame(t, dir, "AAA", market.Daily, "010324", obCols(103))
	writeFrame(t, dir, "AAA", market.OneHour, "010324", obCols(101))
	// BBB has no 1hour file.
	writeFrame(t, dir, "BBB", market.Daily, "010324", obCols(103))
	// CCC fails on 1hour.
	writeFrame(t, dir, "CCC", market.Daily, "010324", obCols(103))
	writeFrame(t, dir, "CCC", market.OneHour, "010324", obCols(120))
	return dir
}

func advancedSpec(logic Logic) *Spec {
	s := NewAdvanced(logic,
		Step{Timeframe: market.Daily, Criteria: []string{"OB"}},
		Step{Timeframe: market.OneHour, Criteria: []string{"OB"}},
	)
	s.Params["OB"] = Param{Entry: Entry{Flat: params.Raw{"mode": "support"}}}
	return s
}

func TestAdvancedScanAnd(t *testing.T) {
	var buf bytes.Buffer
	e := New(Options{Logger: logger.NewWriter(&buf, zerolog.DebugLevel)})
	tbl := run(t, e, advancedSpec(And), advancedDir(t))

	require.Equal(t, 2, tbl.Len())
	for _, r := range tbl.Rows {
		assert.Equal(t, "AAA", r.Ticker)
	}
	assert.Equal(t, market.Daily, tbl.Rows[0].Timeframe)
	assert.Equal(t, market.OneHour, tbl.Rows[1].Timeframe)
	assert.Equal(t, 101.0, tbl.Rows[1].Close)
	assert.Contains(t, buf.String(), `"ticker":"BBB"`)
}

func TestAdvancedScanOrContainsAnd(t *testing.T) {
	dir := advancedDir(t)
	and := run(t, newEngine(), advancedSpec(And), dir)
	or := run(t, newEngine(), advancedSpec(Or), dir)

	type key struct {
		ticker string
		tf     market.Timeframe
	}
	orKeys := make(map[key]bool)
	for _, r := range or.Rows {
		orKeys[key{r.Ticker, r.Timeframe}] = true
	}
	for _, r := range and.Rows {
		assert.True(t, orKeys[key{r.Ticker, r.Timeframe}])
	}

	// CCC passes daily only; BBB is still skipped.
	assert.Equal(t, 3, or.Len())
	assert.Equal(t, []string{"AAA", "CCC"}, or.Tickers())
	assert.Equal(t, market.Daily, or.Rows[2].Timeframe)
}

func TestPerTimeframeParams(t *testing.T) {
	dir := advancedDir(t)
	spec := advancedSpec(And)
	spec.Params["OB"] = Param{
		Entry: Entry{Flat: params.Raw{"mode": "support"}},
		ByTimeframe: map[market.Timeframe]Entry{
			market.OneHour: {Flat: params.Raw{"mode": "bearish"}},
		},
	}
	assert.Equal(t, 0, run(t, newEngine(), spec, dir).Len())
}

type failParams struct{}

func TestCriterionErrorIsNoMatch(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "AAA", market.Daily, "010324", stdevCols(90))

	reg := criteria.NewRegistry()
	reg.Register(criteria.New("explode", func(*market.Frame, *failParams) (*criteria.Match, error) {
		panic("boom")
	}))
	e := New(Options{Registry: reg})
	tbl := run(t, e, NewSimple("explode"), dir)
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, BaseColumns, tbl.Header())
}

func TestRunCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFrame(t, dir, "AAA", market.Daily, "010324", stdevCols(90))
	e := newEngine()
	p, err := e.Prepare("test", NewSimple("StDev"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.RunDir(ctx, p, dir)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "1.5", FormatValue(1.5))
	assert.Equal(t, "3", FormatValue(3))
	assert.Equal(t, "True", FormatValue(true))
	assert.Equal(t, "x", FormatValue("x"))
	assert.Equal(t, "2024-03-01", FormatValue(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
}
