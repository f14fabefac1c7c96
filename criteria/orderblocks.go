package criteria

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/screener/indicators"
	"github.com/rustyeddy/screener/market"
)

// lookbackStart returns the first row inside the last limit rows of an
// n-row frame. A nil limit covers the whole frame.
func lookbackStart(n int, limit *int) int {
	if limit == nil || *limit >= n {
		return 0
	}
	return n - *limit
}

// latestWhere returns the latest row in [from, len(col)) for which keep
// holds, or -1.
func latestWhere(col []float64, from int, keep func(v float64) bool) int {
	for i := len(col) - 1; i >= from; i-- {
		if keep(col[i]) {
			return i
		}
	}
	return -1
}

func direction(bullish bool) float64 {
	if bullish {
		return 1
	}
	return -1
}

// OBParams configures the OB criterion.
type OBParams struct {
	Mode           string   `yaml:"mode" default:"bullish" validate:"oneof=bullish bearish support resistance"`
	ATRThreshold   *float64 `yaml:"atr_threshold" validate:"omitempty,gte=0"`
	MaxLookback    *int     `yaml:"max_lookback" validate:"omitempty,gt=0"`
	StDevThreshold *float64 `yaml:"stdev_threshold" validate:"omitempty,gte=0"`
	StDevMode      string   `yaml:"stdev_mode" default:"overbought" validate:"oneof=overbought oversold"`
}

// stdevAt applies the optional StDev filter to the order block at row i.
// Without the StDev columns the filter never passes.
func (p *OBParams) stdevAt(f *market.Frame, i int) bool {
	if p.StDevThreshold == nil {
		return true
	}
	if !f.Has("StDev", "StDev_Mean") {
		return false
	}
	close, _ := f.Value(market.Close, i)
	centre, _ := f.Value("StDev_Mean", i)
	std, _ := f.Value("StDev", i)
	return beyondBand(close, centre, std, *p.StDevThreshold, p.StDevMode)
}

// OB matches on order blocks.
//
// In bullish and bearish mode the most recent block of either kind must be
// of the wanted kind. In support and resistance mode the latest Close must
// sit inside the most recent bullish (support) or bearish (resistance)
// block, widened on both sides by atr_threshold times the latest ATR. The
// match is dated at the block row.
func OB(f *market.Frame, p *OBParams) (*Match, error) {
	if !f.Has("OB", "OB_High", "OB_Low", market.Close) {
		return nil, nil
	}
	ob, _ := f.Col("OB")
	n := f.Len()
	start := lookbackStart(n, p.MaxLookback)

	var i int
	switch p.Mode {
	case "bullish", "bearish":
		i = latestWhere(ob, start, indicators.Truthy)
		if i < 0 || ob[i] != direction(p.Mode == "bullish") {
			return nil, nil
		}
	default:
		want := direction(p.Mode == "support")
		i = latestWhere(ob, start, func(v float64) bool { return v == want })
		if i < 0 {
			return nil, nil
		}
	}
	if !p.stdevAt(f, i) {
		return nil, nil
	}

	top, _ := f.Value("OB_High", i)
	bottom, _ := f.Value("OB_Low", i)
	m := at(f, i).
		Add("OB", ob[i]).
		Add("OB_High", top).
		Add("OB_Low", bottom).
		Add("OB_Index", i)
	if p.Mode == "bullish" || p.Mode == "bearish" {
		return m, nil
	}

	tolerance := 0.0
	if p.ATRThreshold != nil {
		atr, ok := f.Last("ATR")
		if !ok {
			high, _ := f.Col(market.High)
			low, _ := f.Col(market.Low)
			close, _ := f.Col(market.Close)
			if high == nil || low == nil {
				return nil, nil
			}
			hybrid := indicators.HybridATR(high[start:], low[start:], close[start:], 7)
			atr = hybrid[len(hybrid)-1]
		}
		tolerance = atr * *p.ATRThreshold
	}

	close, _ := f.Last(market.Close)
	if close < bottom-tolerance || close > top+tolerance {
		return nil, nil
	}
	return m.Add("Tolerance", tolerance), nil
}

// OBAVWAPParams configures the OB_aVWAP criterion.
type OBAVWAPParams struct {
	Mode           string  `yaml:"mode" default:"bullish" validate:"oneof=bullish bearish"`
	DistancePct    float64 `yaml:"distance_pct" default:"1" validate:"gte=0"`
	Direction      string  `yaml:"direction" default:"within" validate:"oneof=below above within"`
	RequireInRange bool    `yaml:"require_in_range"`
	MaxLookback    *int    `yaml:"max_lookback" validate:"omitempty,gt=0"`
}

// OBAVWAP matches when the latest Close is near the anchored VWAP of the
// most recent order block of the wanted kind. The VWAP is read from the
// aVWAP_OB_bull_{row} or aVWAP_OB_bear_{row} column of that block.
func OBAVWAP(f *market.Frame, p *OBAVWAPParams) (*Match, error) {
	if !f.Has("OB", "OB_High", "OB_Low", market.Close) {
		return nil, nil
	}
	ob, _ := f.Col("OB")
	n := f.Len()
	bullish := p.Mode == "bullish"
	want := direction(bullish)

	i := latestWhere(ob, lookbackStart(n, p.MaxLookback), func(v float64) bool { return v == want })
	if i < 0 {
		return nil, nil
	}
	kind := "bear"
	if bullish {
		kind = "bull"
	}
	vwap, ok := f.Last(fmt.Sprintf("aVWAP_OB_%s_%d", kind, i))
	if !ok || isNaN(vwap) {
		return nil, nil
	}

	close, _ := f.Last(market.Close)
	top, _ := f.Value("OB_High", i)
	bottom, _ := f.Value("OB_Low", i)
	d := distancePct(close, vwap)
	if p.RequireInRange && (close < bottom || close > top) {
		return nil, nil
	}
	if !nearLevel(d, p.DistancePct, p.Direction, false) {
		return nil, nil
	}

	return at(f, n-1).
		Add("Signal", fmt.Sprintf("%sOB_aVWAP_%s", capitalize(p.Mode), p.Direction)).
		Add("OB_aVWAP", vwap).
		Add("OB_High", top).
		Add("OB_Low", bottom).
		Add("Distance_Pct", d).
		Add("Position", side(d)).
		Add("OB_Index", i).
		Add("OB_Mode", p.Mode), nil
}

// BoSCHoCHParams configures the BoS_CHoCH criterion.
type BoSCHoCHParams struct {
	Mode         string `yaml:"mode" default:"BoS_bullish" validate:"oneof=BoS_bullish BoS_bearish CHoCH_bullish CHoCH_bearish"`
	LookbackBars int    `yaml:"lookback_bars" default:"200" validate:"gt=0"`
}

// BoSCHoCH matches when the most recent structure event before the latest
// bar, within lookback_bars, is of the wanted type and direction. A frame
// shorter than lookback_bars never matches.
func BoSCHoCH(f *market.Frame, p *BoSCHoCHParams) (*Match, error) {
	n := f.Len()
	if n < p.LookbackBars || !f.Has("BoS", "CHoCH", market.Close) {
		return nil, nil
	}
	bos, _ := f.Col("BoS")
	choch, _ := f.Col("CHoCH")

	event := "CHoCH"
	if strings.HasPrefix(p.Mode, "BoS") {
		event = "BoS"
	}
	bullish := strings.HasSuffix(p.Mode, "bullish")

	lo := 0
	if n > p.LookbackBars {
		lo = n - p.LookbackBars - 1
	}
	for i := n - 2; i >= lo; i-- {
		var kind string
		var dir float64
		switch {
		case indicators.Truthy(bos[i]):
			kind, dir = "BoS", bos[i]
		case indicators.Truthy(choch[i]):
			kind, dir = "CHoCH", choch[i]
		default:
			continue
		}
		if kind != event || dir != direction(bullish) {
			return nil, nil
		}
		label := "Bearish"
		if bullish {
			label = "Bullish"
		}
		return at(f, n-1).
			Add("Event_Type", event).
			Add("Event_Direction", label).
			Add("Bars_Since_Event", n-1-i), nil
	}
	return nil, nil
}

func init() {
	Register("OB", OB)
	Register("OB_aVWAP", OBAVWAP)
	Register("BoS_CHoCH", BoSCHoCH)
}
