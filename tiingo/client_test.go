package tiingo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rustyeddy/screener/config"
	"github.com/rustyeddy/screener/criteria"
	"github.com/rustyeddy/screener/internal/metrics"
	"github.com/rustyeddy/screener/market"
	"github.com/rustyeddy/screener/scanner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &Client{
		BaseURL:         srv.URL,
		Token:           "token",
		HTTP:            srv.Client(),
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		Metrics:         metrics.New(),
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNewFromConfig(t *testing.T) {
	t.Setenv("TIINGO_API_KEY", "env-key")
	c, err := New(config.Default().Tiingo, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "env-key", c.Token)
	assert.Equal(t, DefaultURL, c.BaseURL)
	assert.Equal(t, 30*time.Second, c.HTTP.Timeout)

	_, err = New(config.TiingoConfig{Timeout: "later"}, nil, nil)
	assert.Error(t, err)
}

func TestPricesDaily(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tiingo/daily/AAPL/prices", r.URL.Path)
		assert.Equal(t, "2024-03-01", r.URL.Query().Get("startDate"))
		assert.Equal(t, "2024-03-05", r.URL.Query().Get("endDate"))
		assert.Equal(t, "daily", r.URL.Query().Get("resampleFreq"))
		assert.Equal(t, "Token token", r.Header.Get("Authorization"))
		writeJSON(t, w, []map[string]any{
			{"date": "2024-03-01T00:00:00.000Z", "adjOpen": 10, "adjHigh": 12, "adjLow": 9, "adjClose": 11, "adjVolume": 1000, "close": 99},
			{"date": "2024-03-04T00:00:00.000Z", "adjOpen": 11, "adjHigh": 13, "adjLow": 10, "adjClose": 12.5, "adjVolume": 1500, "close": 99},
		})
	}))

	f, err := c.Prices(context.Background(), PricesRequest{
		Ticker:    "AAPL",
		Timeframe: market.Daily,
		Start:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, f.Len())
	assert.Equal(t, "AAPL", f.Ticker)
	last, _ := f.Last(market.Close)
	assert.Equal(t, 12.5, last)
	assert.True(t, f.LastDate().Equal(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)))
}

func TestPricesIntraday(t *testing.T) {
	t.Parallel()

	end := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/iex/MSFT/prices", r.URL.Path)
		assert.Equal(t, "1hour", r.URL.Query().Get("resampleFreq"))
		assert.Equal(t, "open,high,low,close,volume", r.URL.Query().Get("columns"))
		assert.Equal(t, end.Add(-5000*time.Hour).Format("2006-01-02"), r.URL.Query().Get("startDate"))
		writeJSON(t, w, []map[string]any{
			{"date": "2024-03-04T14:30:00.000Z", "open": 1, "high": 2, "low": 0.5, "close": 1.5, "volume": 10},
			{"date": "2024-03-04T15:30:00.000Z", "open": 1.5, "high": 2.5, "low": 1, "close": 2, "volume": 20},
		})
	}))

	f, err := c.Prices(context.Background(), PricesRequest{Ticker: "MSFT", Timeframe: market.OneHour, End: end})
	require.NoError(t, err)
	assert.Equal(t, 2, f.Len())
	v, _ := f.Value(market.High, 1)
	assert.Equal(t, 2.5, v)
}

func TestPricesMissingInputs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		client Client
		req    PricesRequest
		want   string
	}{
		{"missing token", Client{BaseURL: "http://example.com"}, PricesRequest{Ticker: "A", Timeframe: market.Daily}, "missing token"},
		{"missing base url", Client{Token: "t"}, PricesRequest{Ticker: "A", Timeframe: market.Daily}, "missing base url"},
		{"missing ticker", Client{Token: "t", BaseURL: "http://example.com"}, PricesRequest{Timeframe: market.Daily}, "missing ticker"},
		{"bad timeframe", Client{Token: "t", BaseURL: "http://example.com"}, PricesRequest{Ticker: "A", Timeframe: "2day"}, "unknown timeframe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.client.Prices(context.Background(), tt.req)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		writeJSON(t, w, []map[string]any{{"date": "2024-03-01T00:00:00Z", "adjClose": 5}})
	}))

	f, err := c.Prices(context.Background(), PricesRequest{Ticker: "A", Timeframe: market.Daily})
	require.NoError(t, err)
	assert.Equal(t, 1, f.Len())
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetriesExhausted(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))

	_, err := c.Prices(context.Background(), PricesRequest{Ticker: "A", Timeframe: market.Daily})
	var herr *HTTPError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, http.StatusTooManyRequests, herr.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unknown ticker", http.StatusNotFound)
	}))

	_, err := c.Prices(context.Background(), PricesRequest{Ticker: "NOPE", Timeframe: market.Daily})
	var herr *HTTPError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, http.StatusNotFound, herr.Status)
	assert.Equal(t, "unknown ticker", herr.Body)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDownload(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/tiingo/daily/BAD/prices" && r.URL.Query().Get("resampleFreq") == "daily" {
			http.Error(w, "nope", http.StatusNotFound)
			return
		}
		writeJSON(t, w, []map[string]any{
			{"date": "2024-03-01T00:00:00Z", "adjOpen": 1, "adjHigh": 2, "adjLow": 0.5, "adjClose": 1.5, "adjVolume": 100},
		})
	}))

	dir := filepath.Join(t.TempDir(), "tickers")
	runDate := time.Date(2024, 3, 5, 18, 0, 0, 0, time.UTC)
	res, err := c.Download(context.Background(), dir, []string{"AAA", "BAD"}, []market.Timeframe{market.Daily, market.Weekly}, runDate, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "AAA_daily_050324.csv"),
		filepath.Join(dir, "AAA_weekly_050324.csv"),
		filepath.Join(dir, "BAD_weekly_050324.csv"),
	}, res.Written)
	require.Len(t, res.Failed, 1)
	assert.Contains(t, res.Failed, "BAD_daily")

	_, err = os.Stat(res.Written[0])
	assert.NoError(t, err)
	keys, err := market.ListFiles(dir)
	require.NoError(t, err)
	assert.Len(t, keys, 3)
}

func TestFundamentalsCells(t *testing.T) {
	t.Parallel()

	v := func(x float64) *float64 { return &x }
	f := Fundamentals{MarketCap: v(2_345_678_900_000), EnterpriseVal: v(1.5e9), PERatio: v(28.456), TrailingPEG1Y: v(-0.5)}
	assert.Equal(t, map[string]string{
		"marketCap":     "$2,345.68B",
		"enterpriseVal": "$1.50B",
		"peRatio":       "28.46",
		"trailingPEG1Y": "-0.50",
	}, f.Cells())
}

func TestAttachFundamentals(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tiingo/fundamentals/AAA/daily":
			writeJSON(t, w, []map[string]any{
				{"date": "2024-03-01", "marketCap": 1e9, "peRatio": 10},
				{"date": "2024-03-04", "marketCap": 1.2e9, "peRatio": 12, "pbRatio": nil},
			})
		default:
			http.Error(w, "no fundamentals", http.StatusNotFound)
		}
	}))

	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	tbl := scanner.NewTable([]scanner.Row{
		{Date: date, Ticker: "AAA", Timeframe: market.Daily, Close: 10, Fields: []criteria.Field{{Name: "OB_OB", Value: 1.0}}},
		{Date: date, Ticker: "BBB", Timeframe: market.Daily, Close: 20, Fields: []criteria.Field{{Name: "OB_OB", Value: 1.0}}},
	})
	require.NoError(t, AttachFundamentals(context.Background(), c, tbl, nil))

	assert.Equal(t, []string{"date", "Ticker", "Timeframe", "Close", "OB_OB",
		"marketCap", "enterpriseVal", "peRatio", "pbRatio", "trailingPEG1Y"}, tbl.Header())
	rec := tbl.Records()
	assert.Equal(t, []string{"2024-03-04", "AAA", "daily", "10", "1", "$1.20B", "", "12.00", "", ""}, rec[0])
	assert.Equal(t, []string{"2024-03-04", "BBB", "daily", "20", "1", "", "", "", "", ""}, rec[1])
}
