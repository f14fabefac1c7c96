package criteria

import (
	"fmt"
	"math"
	"strings"

	"github.com/rustyeddy/screener/indicators"
	"github.com/rustyeddy/screener/market"
)

// SMAParams configures the SMA criterion.
type SMAParams struct {
	SMAPeriods   []int   `yaml:"sma_periods" default:"[50, 20, 10]" validate:"min=1,dive,gt=0"`
	DistancePct  float64 `yaml:"distance_pct" default:"1" validate:"gte=0"`
	Mode         string  `yaml:"mode" default:"within" validate:"oneof=within above below order"`
	OutsideRange bool    `yaml:"outside_range"`
}

// SMA matches the latest Close against one or more SMA_{period} columns.
//
// In order mode the SMAs must be strictly increasing in the listed order.
// Otherwise every period must pass: within tests the distance only, above
// and below also need Close on that side of the average. outside_range
// flips the distance test to the far side.
func SMA(f *market.Frame, p *SMAParams) (*Match, error) {
	n := f.Len()
	values := make([]float64, len(p.SMAPeriods))
	for k, period := range p.SMAPeriods {
		v, ok := f.Last(fmt.Sprintf("SMA_%d", period))
		if !ok || isNaN(v) {
			return nil, nil
		}
		values[k] = v
	}

	if p.Mode == "order" {
		if len(values) < 2 {
			return nil, nil
		}
		names := make([]string, len(values))
		for k := range values {
			if k > 0 && values[k-1] >= values[k] {
				return nil, nil
			}
			names[k] = fmt.Sprintf("SMA_%d", p.SMAPeriods[k])
		}
		return at(f, n-1).
			Add("Distance_Pct", 0.0).
			Add("Position", "Order: "+strings.Join(names, " < ")), nil
	}

	close, _ := f.Last(market.Close)
	m := at(f, n-1)
	for k, sma := range values {
		d := math.Abs(close-sma) / close * 100
		position := "Below"
		if close > sma {
			position = "Above"
		}

		pass := false
		switch p.Mode {
		case "within":
			position = "Within"
			pass = d <= p.DistancePct
			if p.OutsideRange {
				position = "Outside"
				pass = d > p.DistancePct
			}
		case "above", "below":
			if (p.Mode == "above" && close > sma) || (p.Mode == "below" && close < sma) {
				pass = d <= p.DistancePct
				if p.OutsideRange {
					position += " (Extended)"
					pass = d > p.DistancePct
				}
			}
		}
		if !pass {
			return nil, nil
		}
		prefix := fmt.Sprintf("SMA_%d_", p.SMAPeriods[k])
		m.Add(prefix+"Distance_Pct", d).Add(prefix+"Position", position)
	}
	return m, nil
}

// SupertrendParams configures the supertrend criterion.
type SupertrendParams struct {
	Mode string `yaml:"mode" default:"bullish" validate:"oneof=bullish bearish"`
}

// Supertrend matches when the latest Supertrend_Direction agrees with mode.
func Supertrend(f *market.Frame, p *SupertrendParams) (*Match, error) {
	dir, ok := f.Last("Supertrend_Direction")
	if !ok || dir != direction(p.Mode == "bullish") {
		return nil, nil
	}
	return at(f, f.Len()-1).Add("Direction", dir), nil
}

// BankerRSIParams configures the banker_RSI criterion.
type BankerRSIParams struct {
	ThresholdLower float64 `yaml:"threshold_lower" default:"1"`
	ThresholdUpper float64 `yaml:"threshold_upper" default:"20" validate:"gtfield=ThresholdLower"`
}

// BankerRSI matches when the latest banker_RSI lies strictly between the
// thresholds.
func BankerRSI(f *market.Frame, p *BankerRSIParams) (*Match, error) {
	v, ok := f.Last("banker_RSI")
	if !ok || !(v > p.ThresholdLower && v < p.ThresholdUpper) {
		return nil, nil
	}
	return at(f, f.Len()-1).Add("banker_RSI", v), nil
}

// TTMSqueezeParams configures the TTM_squeeze criterion.
type TTMSqueezeParams struct {
	Mode           string `yaml:"mode" default:"active" validate:"oneof=active breakout"`
	MinSqueezeBars int    `yaml:"min_squeeze_bars" default:"5" validate:"gte=0"`
	MaxSqueezeBars *int   `yaml:"max_squeeze_bars" validate:"omitempty,gt=0"`
}

// squeezeDurations counts, per row, the consecutive squeeze bars ending at
// that row. Rows outside a squeeze hold 0.
func squeezeDurations(active []float64) []int {
	out := make([]int, len(active))
	for i, v := range active {
		if !indicators.Truthy(v) {
			continue
		}
		out[i] = 1
		if i > 0 {
			out[i] += out[i-1]
		}
	}
	return out
}

// TTMSqueeze matches a squeeze that has lasted at least min_squeeze_bars
// (active) or one of that length that ended on the latest bar (breakout).
func TTMSqueeze(f *market.Frame, p *TTMSqueezeParams) (*Match, error) {
	active, ok := f.Col("TTM_squeeze_Active")
	if !ok {
		return nil, nil
	}
	n := len(active)
	dur := squeezeDurations(active)

	switch p.Mode {
	case "active":
		d := dur[n-1]
		if d == 0 || d < p.MinSqueezeBars {
			return nil, nil
		}
		if p.MaxSqueezeBars != nil && d > *p.MaxSqueezeBars {
			return nil, nil
		}
		return at(f, n-1).Add("Squeeze_Duration", d).Add("Status", "active"), nil
	default:
		if n < 2 || dur[n-2] == 0 || dur[n-1] != 0 || dur[n-2] < p.MinSqueezeBars {
			return nil, nil
		}
		return at(f, n-1).Add("Squeeze_Duration", dur[n-2]).Add("Status", "breakout"), nil
	}
}

// LiquidityParams configures the liquidity criterion.
type LiquidityParams struct {
	DistancePct float64 `yaml:"distance_pct" default:"1" validate:"gte=0"`
}

// Liquidity matches when the latest Close is within distance_pct of the
// most recent liquidity zone.
func Liquidity(f *market.Frame, p *LiquidityParams) (*Match, error) {
	liq, ok := f.Col("Liquidity")
	if !ok || !f.Has("Liquidity_Level") {
		return nil, nil
	}
	i := latestWhere(liq, 0, indicators.Truthy)
	if i < 0 {
		return nil, nil
	}
	level, _ := f.Value("Liquidity_Level", i)
	close, _ := f.Last(market.Close)
	d := math.Abs(close-level) / close * 100
	if level == 0 || !(d <= p.DistancePct) {
		return nil, nil
	}
	return at(f, f.Len()-1).
		Add("Liquidity", liq[i]).
		Add("Liquidity_Level", level).
		Add("Distance_Pct", d), nil
}

func init() {
	Register("SMA", SMA)
	Register("supertrend", Supertrend)
	Register("banker_RSI", BankerRSI)
	Register("TTM_squeeze", TTMSqueeze)
	Register("liquidity", Liquidity)
}
