package indicators

import (
	"github.com/rustyeddy/screener/market"
)

// TTMSqueezeParams configures the TTM_squeeze plugin.
type TTMSqueezeParams struct {
	BBLength     int     `yaml:"bb_length" default:"20" validate:"gt=1"`
	BBStdDev     float64 `yaml:"bb_std_dev" default:"2" validate:"gt=0"`
	KCLength     int     `yaml:"kc_length" default:"20" validate:"gt=0"`
	KCMult       float64 `yaml:"kc_mult" default:"1.5" validate:"gt=0"`
	UseTrueRange bool    `yaml:"use_true_range" default:"true"`
}

// TTMSqueeze flags rows where the Bollinger bands sit inside the Keltner
// channel. TTM_squeeze_Active is 1 during a squeeze and 0 otherwise.
func TTMSqueeze(f *market.Frame, p *TTMSqueezeParams) (market.Columns, error) {
	cols, err := columns(f, market.High, market.Low, market.Close)
	if err != nil {
		return nil, err
	}
	high, low, close := cols[0], cols[1], cols[2]

	basis := RollingMean(close, p.BBLength)
	dev := RollingStd(close, p.BBLength)

	rng := TrueRange(high, low, close)
	if !p.UseTrueRange {
		for i := range rng {
			rng[i] = high[i] - low[i]
		}
	}
	atr := RollingMean(rng, p.KCLength)
	middle := EWMSpan(close, p.KCLength)

	active := make([]bool, len(close))
	for i := range close {
		bbUpper := basis[i] + p.BBStdDev*dev[i]
		bbLower := basis[i] - p.BBStdDev*dev[i]
		kcUpper := middle[i] + p.KCMult*atr[i]
		kcLower := middle[i] - p.KCMult*atr[i]
		active[i] = bbUpper < kcUpper && bbLower > kcLower
	}

	var out market.Columns
	out.AddBool("TTM_squeeze_Active", active)
	return out, nil
}

func init() {
	Register("TTM_squeeze", TTMSqueeze)
}
