package indicators

import (
	"math"

	"github.com/rustyeddy/screener/market"
)

// BankerRSIParams configures the banker_RSI plugin.
type BankerRSIParams struct {
	RSIPeriod   int     `yaml:"rsi_period" default:"50" validate:"gt=0"`
	RSIBase     float64 `yaml:"rsi_base" default:"50"`
	Sensitivity float64 `yaml:"sensitivity" default:"1.5" validate:"gt=0"`
}

// BankerRSI rescales a Wilder RSI above rsi_base into the 0..20 band.
func BankerRSI(f *market.Frame, p *BankerRSIParams) (market.Columns, error) {
	cols, err := columns(f, market.Close)
	if err != nil {
		return nil, err
	}
	gain, loss := GainLoss(cols[0])
	alpha := 1 / float64(p.RSIPeriod)
	avgGain := EWM(gain, alpha, p.RSIPeriod)
	avgLoss := EWM(loss, alpha, p.RSIPeriod)

	rsi := rsiFromAverages(avgGain, avgLoss)
	scaled := make([]float64, len(rsi))
	for i, v := range rsi {
		if avgLoss[i] == 0 {
			v = 100
		}
		scaled[i] = p.Sensitivity * (v - p.RSIBase)
		if math.IsNaN(v) {
			scaled[i] = math.NaN()
		}
	}

	var out market.Columns
	out.Add("banker_RSI", Clip(scaled, 0, 20))
	return out, nil
}

func init() {
	Register("banker_RSI", BankerRSI)
}
