package criteria

import (
	"github.com/rustyeddy/screener/indicators"
	"github.com/rustyeddy/screener/market"
)

// QQEMODParams configures the QQEMOD criterion.
type QQEMODParams struct {
	Mode                string `yaml:"mode" default:"overbought" validate:"oneof=overbought oversold bullish_reversal bearish_reversal"`
	MinConsecutive      int    `yaml:"min_consecutive" default:"3" validate:"gt=0"`
	RequireConfirmation bool   `yaml:"require_confirmation" default:"true"`
}

var qqeColumns = []string{
	"QQE1_Above_Upper",
	"QQE1_Below_Lower",
	"QQE2_Above_Threshold",
	"QQE2_Below_Threshold",
	"QQE2_Above_TL",
}

// qqeRow holds the QQEMOD flags of one bar.
type qqeRow struct {
	aboveUpper, belowLower, aboveThr, belowThr, aboveTL bool
}

func (r qqeRow) overbought() bool { return r.aboveUpper && r.aboveThr && r.aboveTL }
func (r qqeRow) oversold() bool   { return r.belowLower && r.belowThr && !r.aboveTL }

func qqeAt(f *market.Frame, i int) qqeRow {
	flag := func(name string) bool {
		v, _ := f.Value(name, i)
		return indicators.Truthy(v)
	}
	return qqeRow{
		aboveUpper: flag("QQE1_Above_Upper"),
		belowLower: flag("QQE1_Below_Lower"),
		aboveThr:   flag("QQE2_Above_Threshold"),
		belowThr:   flag("QQE2_Below_Threshold"),
		aboveTL:    flag("QQE2_Above_TL"),
	}
}

// QQEMOD matches overbought and oversold states of the QQEMOD oscillator
// on the latest bar, or a reversal: the latest bar has lost (bearish) or
// gained (bullish) the second trend line after min_consecutive bars of the
// opposite extreme. With require_confirmation a reversal also needs Close
// to move in its direction against the previous bar.
func QQEMOD(f *market.Frame, p *QQEMODParams) (*Match, error) {
	if !f.Has(qqeColumns...) {
		return nil, nil
	}
	n := f.Len()
	cur := qqeAt(f, n-1)

	switch p.Mode {
	case "overbought":
		if !cur.overbought() {
			return nil, nil
		}
		return at(f, n-1).Add("Signal", "Overbought"), nil
	case "oversold":
		if !cur.oversold() {
			return nil, nil
		}
		return at(f, n-1).Add("Signal", "Oversold"), nil
	}

	if n < p.MinConsecutive+1 {
		return nil, nil
	}
	bearish := p.Mode == "bearish_reversal"

	var now bool
	if bearish {
		now = cur.aboveUpper && cur.aboveThr && !cur.aboveTL
	} else {
		now = cur.belowLower && cur.belowThr && cur.aboveTL
	}
	if !now {
		return nil, nil
	}
	for i := n - 1 - p.MinConsecutive; i < n-1; i++ {
		prev := qqeAt(f, i)
		if (bearish && !prev.overbought()) || (!bearish && !prev.oversold()) {
			return nil, nil
		}
	}

	if p.RequireConfirmation {
		c, _ := f.Value(market.Close, n-1)
		pc, _ := f.Value(market.Close, n-2)
		if (bearish && c > pc) || (!bearish && c < pc) {
			return nil, nil
		}
	}

	strength := 0
	last := qqeAt(f, n-2)
	if bearish && !cur.aboveTL && last.aboveTL {
		strength = 1
	}
	if !bearish && cur.aboveTL && !last.aboveTL {
		strength = 1
	}
	signal := "Bullish_Reversal"
	if bearish {
		signal = "Bearish_Reversal"
	}
	return at(f, n-1).
		Add("Signal", signal).
		Add("Consecutive", p.MinConsecutive).
		Add("Strength", strength), nil
}

func init() {
	Register("QQEMOD", QQEMOD)
}
