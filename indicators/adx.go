package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/screener/market"
)

// ADX implements Wilder's Average Directional Index (trend strength).
// Usage:
//
//	adx := indicators.NewADX(14)
//	adx.Update(bar)
//	if adx.Ready() && adx.Value() >= 20 { ... }
type ADX struct {
	Period int

	prev     market.Bar
	havePrev bool

	// Wilder-smoothed values after warmup
	trS  float64
	pdmS float64
	mdmS float64

	adx   float64
	dxSum float64

	// bars processed, including the first seed
	count int
	ready bool
}

func NewADX(period int) *ADX {
	return &ADX{Period: period}
}

func (a *ADX) Name() string {
	return fmt.Sprintf("ADX(%d)", a.Period)
}

// Warmup is the seed bar plus Period bars for TR/DM and Period DX values.
func (a *ADX) Warmup() int {
	return 2*a.Period + 1
}

func (a *ADX) Reset() {
	*a = ADX{Period: a.Period}
}

func (a *ADX) Value() float64 {
	return a.adx
}

func (a *ADX) Ready() bool {
	return a.ready
}

// Update consumes the next bar.
// Ready becomes true after enough bars to compute a stable ADX:
// - Period bars to initialize smoothed TR/+DM/-DM
// - then Period DX values to initialize ADX
func (a *ADX) Update(b market.Bar) {
	if !a.havePrev {
		a.prev = b
		a.havePrev = true
		a.count = 1
		return
	}

	upMove := b.High - a.prev.High
	downMove := a.prev.Low - b.Low

	var pdm, mdm float64
	if upMove > downMove && upMove > 0 {
		pdm = upMove
	}
	if downMove > upMove && downMove > 0 {
		mdm = downMove
	}

	tr := trueRange(b, a.prev)

	a.prev = b
	a.count++

	// Warmup phase A: simple averages seed the Wilder smoothing.
	if a.count <= a.Period+1 {
		a.trS += tr
		a.pdmS += pdm
		a.mdmS += mdm

		if a.count == a.Period+1 {
			p := float64(a.Period)
			a.trS /= p
			a.pdmS /= p
			a.mdmS /= p
		}
		return
	}

	p := float64(a.Period)
	a.trS = (a.trS*(p-1) + tr) / p
	a.pdmS = (a.pdmS*(p-1) + pdm) / p
	a.mdmS = (a.mdmS*(p-1) + mdm) / p

	if a.trS == 0 {
		return
	}

	pdi := 100.0 * (a.pdmS / a.trS)
	mdi := 100.0 * (a.mdmS / a.trS)
	den := pdi + mdi
	if den == 0 {
		return
	}

	dx := 100 * math.Abs(pdi-mdi) / den

	// Warmup phase B: the first DX arrives at count Period+2 and ADX is
	// seeded from Period of them.
	firstDXCount := a.Period + 2
	seedADXCount := 2*a.Period + 1

	if !a.ready {
		if a.count >= firstDXCount && a.count <= seedADXCount {
			a.dxSum += dx
		}
		if a.count == seedADXCount {
			a.adx = a.dxSum / p
			a.ready = true
		}
		return
	}

	a.adx = (a.adx*(p-1) + dx) / p
}

// ADXParams configures the ADX plugin.
type ADXParams struct {
	Period int `yaml:"period" default:"14" validate:"gt=0"`
}

// ADXColumns emits the ADX column.
func ADXColumns(f *market.Frame, p *ADXParams) (market.Columns, error) {
	var cols market.Columns
	cols.Add("ADX", Stream(f, NewADX(p.Period)))
	return cols, nil
}

func init() {
	Register("ADX", ADXColumns)
}
