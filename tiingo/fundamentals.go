package tiingo

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dustin/go-humanize"

	"github.com/rustyeddy/screener/internal/logger"
	"github.com/rustyeddy/screener/scanner"
)

// Fundamentals is the latest daily fundamentals row of a ticker. Missing
// metrics are nil.
type Fundamentals struct {
	Date          string   `json:"date"`
	MarketCap     *float64 `json:"marketCap"`
	EnterpriseVal *float64 `json:"enterpriseVal"`
	PERatio       *float64 `json:"peRatio"`
	PBRatio       *float64 `json:"pbRatio"`
	TrailingPEG1Y *float64 `json:"trailingPEG1Y"`
}

// FundamentalColumns are appended to a scan table, in this order.
var FundamentalColumns = []string{"marketCap", "enterpriseVal", "peRatio", "pbRatio", "trailingPEG1Y"}

// Fundamentals fetches the most recent daily fundamentals of ticker.
func (c *Client) Fundamentals(ctx context.Context, ticker string) (*Fundamentals, error) {
	rows, err := get[[]Fundamentals](ctx, c, "/tiingo/fundamentals/"+url.PathEscape(ticker)+"/daily", url.Values{})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("tiingo: no fundamentals for %s", ticker)
	}
	return &rows[len(rows)-1], nil
}

// Cells renders the metrics: billions with thousands separators for the
// values, two decimals for the ratios. Missing metrics are omitted.
func (f *Fundamentals) Cells() map[string]string {
	out := make(map[string]string, len(FundamentalColumns))
	billions := func(name string, v *float64) {
		if v != nil {
			out[name] = "$" + humanize.FormatFloat("#,###.##", *v/1e9) + "B"
		}
	}
	ratio := func(name string, v *float64) {
		if v != nil {
			out[name] = fmt.Sprintf("%.2f", *v)
		}
	}
	billions("marketCap", f.MarketCap)
	billions("enterpriseVal", f.EnterpriseVal)
	ratio("peRatio", f.PERatio)
	ratio("pbRatio", f.PBRatio)
	ratio("trailingPEG1Y", f.TrailingPEG1Y)
	return out
}

// FundamentalsSource fetches fundamentals. *Client implements it.
type FundamentalsSource interface {
	Fundamentals(ctx context.Context, ticker string) (*Fundamentals, error)
}

// AttachFundamentals adds the fundamentals columns to every ticker of t.
// A ticker whose fetch fails is logged and keeps blank cells.
func AttachFundamentals(ctx context.Context, src FundamentalsSource, t *scanner.Table, log *logger.Logger) error {
	if log == nil {
		log = logger.Nop()
	}
	byTicker := make(map[string]map[string]string)
	for _, ticker := range t.Tickers() {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := src.Fundamentals(ctx, ticker)
		if err != nil {
			log.Warn("fundamentals unavailable",
				logger.String("ticker", ticker),
				logger.Err(err))
			continue
		}
		byTicker[ticker] = f.Cells()
	}
	t.SetExtra(FundamentalColumns, byTicker)
	return nil
}
