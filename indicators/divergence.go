package indicators

import (
	"github.com/rustyeddy/screener/market"
)

// DivergenceRSIParams configures the divergence_RSI plugin.
type DivergenceRSIParams struct {
	RSIPeriod int `yaml:"rsi_period" default:"14" validate:"gt=0"`
	Lookback  int `yaml:"lookback" default:"10" validate:"gt=0"`
}

// DivergenceRSI compares price pivots with a simple RSI lookback rows
// earlier. A pivot is a row equal to the centred max (peak) or min (valley)
// over lookback rows.
//
//	Regular_Bullish  valley, lower price, higher RSI
//	Regular_Bearish  peak, higher price, lower RSI
//	Hidden_Bullish   valley, higher price, lower RSI
//	Hidden_Bearish   peak, lower price, higher RSI
func DivergenceRSI(f *market.Frame, p *DivergenceRSIParams) (market.Columns, error) {
	cols, err := columns(f, market.Close)
	if err != nil {
		return nil, err
	}
	close := cols[0]
	n := len(close)

	gain, loss := GainLoss(close)
	rsi := rsiFromAverages(RollingMean(gain, p.RSIPeriod), RollingMean(loss, p.RSIPeriod))

	peakMax := CenteredMax(close, p.Lookback)
	valleyMin := CenteredMin(close, p.Lookback)
	prevPrice := Shift(close, p.Lookback)
	prevRSI := Shift(rsi, p.Lookback)

	regBull := make([]bool, n)
	regBear := make([]bool, n)
	hidBull := make([]bool, n)
	hidBear := make([]bool, n)
	for i := 0; i < n; i++ {
		peak := peakMax[i] == close[i]
		valley := valleyMin[i] == close[i]
		regBull[i] = valley && close[i] < prevPrice[i] && rsi[i] > prevRSI[i]
		regBear[i] = peak && close[i] > prevPrice[i] && rsi[i] < prevRSI[i]
		hidBull[i] = valley && close[i] > prevPrice[i] && rsi[i] < prevRSI[i]
		hidBear[i] = peak && close[i] < prevPrice[i] && rsi[i] > prevRSI[i]
	}

	var out market.Columns
	out.Add("RSI", rsi)
	out.AddBool("RSI_Regular_Bullish", regBull)
	out.AddBool("RSI_Regular_Bearish", regBear)
	out.AddBool("RSI_Hidden_Bullish", hidBull)
	out.AddBool("RSI_Hidden_Bearish", hidBear)
	return out, nil
}

func init() {
	Register("divergence_RSI", DivergenceRSI)
}
