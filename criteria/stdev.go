package criteria

import (
	"math"

	"github.com/rustyeddy/screener/market"
)

// StDevParams configures the StDev criterion.
type StDevParams struct {
	Threshold float64 `yaml:"threshold" default:"2" validate:"gte=0"`
	Mode      string  `yaml:"mode" default:"oversold" validate:"oneof=oversold overbought"`
}

// beyondBand reports whether close sits more than threshold deviations
// below (oversold) or above (overbought) the centreline.
func beyondBand(close, centre, std, threshold float64, mode string) bool {
	switch mode {
	case "oversold":
		return close < centre-threshold*std
	case "overbought":
		return close > centre+threshold*std
	}
	return false
}

// StDev matches when the latest Close lies outside the StDev band.
func StDev(f *market.Frame, p *StDevParams) (*Match, error) {
	if !f.Has(market.Close, "StDev", "StDev_Mean") {
		return nil, nil
	}
	i := f.Len() - 1
	close, _ := f.Value(market.Close, i)
	centre, _ := f.Value("StDev_Mean", i)
	std, _ := f.Value("StDev", i)
	if !beyondBand(close, centre, std, p.Threshold, p.Mode) {
		return nil, nil
	}

	m := at(f, i).
		Add("StDev_Mean", centre).
		Add("StDev", std)
	if std != 0 {
		m.Add("ZScore", (close-centre)/std)
	} else {
		m.Add("ZScore", math.NaN())
	}
	return m, nil
}

func init() {
	Register("StDev", StDev)
}
