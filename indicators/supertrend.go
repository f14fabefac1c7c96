package indicators

import (
	"github.com/rustyeddy/screener/market"
)

// SupertrendParams configures the supertrend plugin.
type SupertrendParams struct {
	Periods    int     `yaml:"periods" default:"14" validate:"gt=0"`
	Multiplier float64 `yaml:"multiplier" default:"3" validate:"gt=0"`
}

// Supertrend trails ATR bands around the bar midpoint. While the trend is
// up the lower band may only rise; while it is down the upper band may only
// fall. Supertrend_Direction is 1 or -1.
func Supertrend(f *market.Frame, p *SupertrendParams) (market.Columns, error) {
	cols, err := columns(f, market.High, market.Low, market.Close)
	if err != nil {
		return nil, err
	}
	high, low, close := cols[0], cols[1], cols[2]
	n := len(close)

	atr := FillNaN(RollingMean(TrueRange(high, low, close), p.Periods), 0)
	upper := make([]float64, n)
	lower := make([]float64, n)
	for i := range close {
		hl2 := (high[i] + low[i]) / 2
		upper[i] = hl2 + p.Multiplier*atr[i]
		lower[i] = hl2 - p.Multiplier*atr[i]
	}

	finalUpper := make([]float64, n)
	finalLower := make([]float64, n)
	direction := make([]float64, n)
	if n > 0 {
		finalUpper[0], finalLower[0], direction[0] = upper[0], lower[0], 1
	}
	for i := 1; i < n; i++ {
		switch {
		case close[i-1] > finalUpper[i-1]:
			direction[i] = 1
		case close[i-1] < finalLower[i-1]:
			direction[i] = -1
		default:
			direction[i] = direction[i-1]
		}

		if direction[i] == 1 {
			finalLower[i] = max(lower[i], finalLower[i-1])
			finalUpper[i] = upper[i]
		} else {
			finalUpper[i] = min(upper[i], finalUpper[i-1])
			finalLower[i] = lower[i]
		}

		switch {
		case direction[i] == 1 && close[i] < finalLower[i]:
			direction[i] = -1
			finalUpper[i] = upper[i]
		case direction[i] == -1 && close[i] > finalUpper[i]:
			direction[i] = 1
			finalLower[i] = lower[i]
		}
	}

	var out market.Columns
	out.Add("Supertrend_Upper", finalUpper)
	out.Add("Supertrend_Lower", finalLower)
	out.Add("Supertrend_Direction", direction)
	return out, nil
}

func init() {
	Register("supertrend", Supertrend)
}
