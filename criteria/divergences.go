package criteria

import (
	"fmt"

	"github.com/rustyeddy/screener/indicators"
	"github.com/rustyeddy/screener/market"
)

// DivergencesParams configures the divergences criterion.
type DivergencesParams struct {
	DivergenceTypes     []string `yaml:"divergence_types" default:"[\"RSI\"]" validate:"min=1,dive,required"`
	Mode                string   `yaml:"mode" default:"bearish" validate:"oneof=bearish bullish"`
	MaxBarsBack         *int     `yaml:"max_bars_back" default:"20" validate:"omitempty,gt=0"`
	RequireConfirmation bool     `yaml:"require_confirmation" default:"true"`
}

func divergenceColumns(types []string, mode string) []string {
	var out []string
	for _, t := range types {
		out = append(out,
			fmt.Sprintf("%s_Regular_%s", t, capitalize(mode)),
			fmt.Sprintf("%s_Hidden_%s", t, capitalize(mode)))
	}
	return out
}

// Divergences matches while the most recent divergence of the wanted
// direction is still valid. The divergence must lie within the last
// max_bars_back bars, no divergence of the opposite direction may have
// fired since, and with require_confirmation the divergence bar's High
// (bearish) or Low (bullish) must not have been exceeded.
func Divergences(f *market.Frame, p *DivergencesParams) (*Match, error) {
	n := f.Len()
	if n < 2 {
		return nil, nil
	}
	opposite := "bullish"
	if p.Mode == "bullish" {
		opposite = "bearish"
	}

	from := 0
	if p.MaxBarsBack != nil && n > *p.MaxBarsBack {
		from = n - *p.MaxBarsBack - 1
	}

	idx, name := -1, ""
	for _, c := range divergenceColumns(p.DivergenceTypes, p.Mode) {
		col, ok := f.Col(c)
		if !ok {
			continue
		}
		if i := latestWhere(col, from, indicators.Truthy); i > idx {
			idx, name = i, c
		}
	}
	if idx < 0 {
		return nil, nil
	}

	for _, c := range divergenceColumns(p.DivergenceTypes, opposite) {
		col, ok := f.Col(c)
		if ok && latestWhere(col, idx, indicators.Truthy) >= 0 {
			return nil, nil
		}
	}

	if p.RequireConfirmation {
		extreme, want := market.High, 1.0
		if p.Mode == "bullish" {
			extreme, want = market.Low, -1.0
		}
		col, ok := f.Col(extreme)
		if !ok {
			return nil, nil
		}
		for _, v := range col[idx:] {
			if (v-col[idx])*want > 0 {
				return nil, nil
			}
		}
	}

	return at(f, n-1).
		Add("Divergence", name).
		Add("Divergence_Date", f.Dates[idx]).
		Add("Bars_Since", n-1-idx), nil
}

func init() {
	Register("divergences", Divergences)
}
