package tiingo

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/screener/internal/logger"
	"github.com/rustyeddy/screener/market"
)

const dateFormat = "2006-01-02"

// defaultStart is the earliest daily and weekly history requested.
var defaultStart = time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

// intradayHistory bounds the history requested per intraday timeframe.
var intradayHistory = map[market.Timeframe]time.Duration{
	market.FourHour:   15000 * time.Hour,
	market.OneHour:    5000 * time.Hour,
	market.ThirtyMin:  3000 * time.Hour,
	market.FifteenMin: 3000 * time.Hour,
	market.FiveMin:    100 * time.Hour,
	market.OneMin:     100 * time.Hour,
}

// PricesRequest selects the bars to download.
type PricesRequest struct {
	Ticker    string
	Timeframe market.Timeframe
	Start     time.Time // optional
	End       time.Time // optional, defaults to now
}

// eodBar is a row of /tiingo/daily/{ticker}/prices. Adjusted prices are
// used.
type eodBar struct {
	Date      string  `json:"date"`
	AdjOpen   float64 `json:"adjOpen"`
	AdjHigh   float64 `json:"adjHigh"`
	AdjLow    float64 `json:"adjLow"`
	AdjClose  float64 `json:"adjClose"`
	AdjVolume float64 `json:"adjVolume"`
}

// iexBar is a row of /iex/{ticker}/prices.
type iexBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Prices downloads the bars of one ticker and timeframe as a frame.
func (c *Client) Prices(ctx context.Context, req PricesRequest) (*market.Frame, error) {
	if req.Ticker == "" {
		return nil, fmt.Errorf("tiingo: missing ticker")
	}
	if !req.Timeframe.Valid() {
		return nil, fmt.Errorf("tiingo: unknown timeframe %q", req.Timeframe)
	}

	end := req.End
	if end.IsZero() {
		end = time.Now()
	}
	start := req.Start
	if start.IsZero() {
		start = defaultStart
		if h, ok := intradayHistory[req.Timeframe]; ok {
			start = end.Add(-h)
		}
	}

	q := url.Values{}
	q.Set("startDate", start.UTC().Format(dateFormat))
	q.Set("endDate", end.UTC().Format(dateFormat))

	var bars []market.Bar
	if req.Timeframe.Intraday() {
		q.Set("resampleFreq", string(req.Timeframe))
		q.Set("columns", "open,high,low,close,volume")
		rows, err := get[[]iexBar](ctx, c, "/iex/"+url.PathEscape(req.Ticker)+"/prices", q)
		if err != nil {
			return nil, err
		}
		bars = make([]market.Bar, 0, len(rows))
		for _, r := range rows {
			t, err := time.Parse(time.RFC3339, r.Date)
			if err != nil {
				return nil, fmt.Errorf("parse date %s: %w", r.Date, err)
			}
			bars = append(bars, market.Bar{Time: t.UTC(), Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume})
		}
	} else {
		q.Set("resampleFreq", string(req.Timeframe))
		rows, err := get[[]eodBar](ctx, c, "/tiingo/daily/"+url.PathEscape(req.Ticker)+"/prices", q)
		if err != nil {
			return nil, err
		}
		bars = make([]market.Bar, 0, len(rows))
		for _, r := range rows {
			t, err := time.Parse(time.RFC3339, r.Date)
			if err != nil {
				return nil, fmt.Errorf("parse date %s: %w", r.Date, err)
			}
			bars = append(bars, market.Bar{Time: t.UTC(), Open: r.AdjOpen, High: r.AdjHigh, Low: r.AdjLow, Close: r.AdjClose, Volume: r.AdjVolume})
		}
	}

	f := market.NewOHLCVFrame(req.Ticker, req.Timeframe, bars)
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Ticker, req.Timeframe, err)
	}
	return f, nil
}

// DownloadResult lists the files written by Download and the failures.
type DownloadResult struct {
	Written []string
	Failed  map[string]error // keyed by "TICKER_TIMEFRAME"
}

// Download fetches every ticker on every timeframe and writes
// {TICKER}_{TIMEFRAME}_{stamp}.csv into dir, stamped with runDate. A
// failing pair is logged and recorded; the others still run.
func (c *Client) Download(ctx context.Context, dir string, tickers []string, timeframes []market.Timeframe, runDate time.Time, workers int) (*DownloadResult, error) {
	type job struct {
		ticker string
		tf     market.Timeframe
	}
	var jobs []job
	for _, t := range tickers {
		for _, tf := range timeframes {
			jobs = append(jobs, job{t, tf})
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create tickers dir: %w", err)
	}
	stamp := market.DateStamp(runDate)
	paths := make([]string, len(jobs))
	errs := make([]error, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, j := range jobs {
		g.Go(func() error {
			f, err := c.Prices(gctx, PricesRequest{Ticker: j.ticker, Timeframe: j.tf, End: runDate})
			if err == nil {
				path := filepath.Join(dir, market.FileName(j.ticker, j.tf, stamp))
				if err = market.WriteCSVFile(path, f); err == nil {
					paths[i] = path
					return nil
				}
			}
			if gctx.Err() != nil {
				return gctx.Err()
			}
			errs[i] = err
			if c.Log != nil {
				c.Log.Warn("download failed",
					logger.String("ticker", j.ticker),
					logger.String("timeframe", string(j.tf)),
					logger.Err(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &DownloadResult{Failed: make(map[string]error)}
	for i, j := range jobs {
		if paths[i] != "" {
			res.Written = append(res.Written, paths[i])
		}
		if errs[i] != nil {
			res.Failed[j.ticker+"_"+string(j.tf)] = errs[i]
		}
	}
	return res, nil
}
