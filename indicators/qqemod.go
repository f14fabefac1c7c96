package indicators

import (
	"math"

	"github.com/rustyeddy/screener/market"
)

// QQEParams configures the QQEMOD plugin. The second pass is independent of
// the first; it only feeds the threshold and trend-line flags.
type QQEParams struct {
	RSIPeriod  int     `yaml:"rsi_period" default:"6" validate:"gt=0"`
	RSIPeriod2 int     `yaml:"rsi_period2" default:"6" validate:"gt=0"`
	SF         int     `yaml:"sf" default:"5" validate:"gt=0"`
	SF2        int     `yaml:"sf2" default:"5" validate:"gt=0"`
	QQEFactor  float64 `yaml:"qqe_factor" default:"3.0"`
	QQEFactor2 float64 `yaml:"qqe_factor2" default:"1.61"`
	Threshold  float64 `yaml:"threshold" default:"3"`
	BBLength   int     `yaml:"bb_length" default:"50" validate:"gt=0"`
	BBMulti    float64 `yaml:"bb_multi" default:"0.35"`
}

// qqePass is the result of one smoothed-RSI trend pass.
type qqePass struct {
	rsiMA     []float64
	longband  []float64
	shortband []float64
	trend     []int
	tl        []float64
}

// bandState is the fold state of the dynamic trend bands.
type bandState struct {
	long  float64
	short float64
	trend int
}

// step advances the bands by one bar. prevMA and ma are the smoothed RSI
// at the previous and current bar, dar the band width. Comparisons against
// NaN are false, so the bands take the new values until both are defined.
func (s bandState) step(prevMA, ma, dar float64) bandState {
	newLong := ma - dar
	newShort := ma + dar

	next := bandState{trend: s.trend}
	if prevMA > s.long && ma > s.long {
		next.long = s.long
		if newLong > s.long {
			next.long = newLong
		}
	} else {
		next.long = newLong
	}

	if prevMA < s.short && ma < s.short {
		next.short = s.short
		if newShort < s.short {
			next.short = newShort
		}
	} else {
		next.short = newShort
	}

	switch {
	case ma > s.short:
		next.trend = 1
	case ma < s.long:
		next.trend = -1
	}
	return next
}

func runQQE(close []float64, rsiPeriod, sf int, factor float64) qqePass {
	n := len(close)
	wp := rsiPeriod*2 - 1

	rsi := WilderRSI(close, wp)
	rsiMA := EWMSpan(rsi, sf)

	atrRSI := Diff(rsiMA)
	for i, v := range atrRSI {
		atrRSI[i] = math.Abs(v)
	}
	dar := EWMSpan(EWMSpan(atrRSI, wp), wp)
	for i := range dar {
		dar[i] *= factor
	}

	p := qqePass{
		rsiMA:     rsiMA,
		longband:  NaNs(n),
		shortband: NaNs(n),
		trend:     make([]int, n),
		tl:        make([]float64, n),
	}

	state := bandState{long: math.NaN(), short: math.NaN(), trend: 1}
	if n > 0 {
		p.trend[0] = 1
	}
	for i := 1; i < n; i++ {
		state = state.step(rsiMA[i-1], rsiMA[i], dar[i])
		p.longband[i] = state.long
		p.shortband[i] = state.short
		p.trend[i] = state.trend
	}

	for i := range p.tl {
		if p.trend[i] == 1 {
			p.tl[i] = p.longband[i]
		} else {
			p.tl[i] = p.shortband[i]
		}
	}
	return p
}

// QQEMOD computes the dual QQE oscillator with a Bollinger filter on the
// first pass trend line.
func QQEMOD(f *market.Frame, p *QQEParams) (market.Columns, error) {
	cols, err := columns(f, market.Close)
	if err != nil {
		return nil, err
	}
	close := cols[0]
	n := len(close)

	q1 := runQQE(close, p.RSIPeriod, p.SF, p.QQEFactor)
	q2 := runQQE(close, p.RSIPeriod2, p.SF2, p.QQEFactor2)

	centred := make([]float64, n)
	for i, v := range q1.tl {
		centred[i] = v - 50
	}
	basis := RollingMean(centred, p.BBLength)
	dev := RollingStd(centred, p.BBLength)

	aboveUpper := make([]bool, n)
	belowLower := make([]bool, n)
	aboveThr := make([]bool, n)
	belowThr := make([]bool, n)
	aboveTL := make([]bool, n)
	for i := 0; i < n; i++ {
		d := p.BBMulti * dev[i]
		m1 := q1.rsiMA[i] - 50
		m2 := q2.rsiMA[i] - 50
		aboveUpper[i] = m1 > basis[i]+d
		belowLower[i] = m1 < basis[i]-d
		aboveThr[i] = m2 > p.Threshold
		belowThr[i] = m2 < -p.Threshold
		aboveTL[i] = q2.rsiMA[i] >= q2.tl[i]
	}

	var out market.Columns
	out.Add("QQEMOD", q1.rsiMA)
	out.Add("QQE1_Value", centred)
	out.AddBool("QQE1_Above_Upper", aboveUpper)
	out.AddBool("QQE1_Below_Lower", belowLower)
	out.AddBool("QQE2_Above_Threshold", aboveThr)
	out.AddBool("QQE2_Below_Threshold", belowThr)
	out.AddBool("QQE2_Above_TL", aboveTL)
	return out, nil
}

func init() {
	Register("QQEMOD", QQEMOD)
}
