package indicators

import (
	"math"

	"github.com/rustyeddy/screener/market"
)

// Swings marks alternating swing highs (1) and swing lows (-1). Level holds
// the High of a swing high or the Low of a swing low, NaN elsewhere.
type Swings struct {
	HighLow []float64
	Level   []float64
}

// Positions returns the rows holding a swing, in order.
func (s Swings) Positions() []int {
	var out []int
	for i, v := range s.HighLow {
		if !math.IsNaN(v) {
			out = append(out, i)
		}
	}
	return out
}

// SwingHighsLows detects swing points. A bar is a swing high when its High
// is the maximum of the window [i-length+1, i+length], a swing low when its
// Low is the minimum of that window. Consecutive swings of the same kind are
// reduced to the most extreme one, and the first and last rows are set to
// the opposite kind of the nearest swing so every sequence starts and ends
// with a counter point.
func SwingHighsLows(high, low []float64, length int) Swings {
	n := len(high)
	hl := NaNs(n)

	for i := 0; i < n; i++ {
		lo, hi := i-length+1, i+length
		if lo < 0 || hi >= n {
			continue
		}
		hw, lw := high[lo:hi+1], low[lo:hi+1]
		if !hasNaN(hw) && high[i] == maxOf(hw) {
			hl[i] = 1
		} else if !hasNaN(lw) && low[i] == minOf(lw) {
			hl[i] = -1
		}
	}

	for {
		pos := Swings{HighLow: hl}.Positions()
		if len(pos) < 2 {
			break
		}
		remove := make([]bool, len(pos))
		changed := false
		for k := 0; k+1 < len(pos); k++ {
			a, b := pos[k], pos[k+1]
			switch {
			case hl[a] == 1 && hl[b] == 1:
				if high[a] < high[b] {
					remove[k] = true
				} else {
					remove[k+1] = true
				}
				changed = true
			case hl[a] == -1 && hl[b] == -1:
				if low[a] > low[b] {
					remove[k] = true
				} else {
					remove[k+1] = true
				}
				changed = true
			}
		}
		if !changed {
			break
		}
		for k, r := range remove {
			if r {
				hl[pos[k]] = math.NaN()
			}
		}
	}

	if pos := (Swings{HighLow: hl}).Positions(); len(pos) > 0 {
		first, last := pos[0], pos[len(pos)-1]
		if hl[first] == 1 {
			hl[0] = -1
		}
		if hl[first] == -1 {
			hl[0] = 1
		}
		if hl[last] == -1 {
			hl[n-1] = 1
		}
		if hl[last] == 1 {
			hl[n-1] = -1
		}
	}

	level := NaNs(n)
	for i, v := range hl {
		switch v {
		case 1:
			level[i] = high[i]
		case -1:
			level[i] = low[i]
		}
	}
	return Swings{HighLow: hl, Level: level}
}

// PeaksValleysParams configures the peaks_valleys plugin.
type PeaksValleysParams struct {
	Periods int `yaml:"periods" default:"25" validate:"gt=0"`
}

// PeaksValleys flags bars whose High (Low) equals the centred rolling
// maximum (minimum) over periods bars.
func PeaksValleys(f *market.Frame, p *PeaksValleysParams) (market.Columns, error) {
	cols, err := columns(f, market.High, market.Low)
	if err != nil {
		return nil, err
	}
	high, low := cols[0], cols[1]

	maxH := CenteredMax(high, p.Periods)
	minL := CenteredMin(low, p.Periods)
	peaks := make([]bool, len(high))
	valleys := make([]bool, len(low))
	for i := range high {
		peaks[i] = maxH[i] == high[i]
		valleys[i] = minL[i] == low[i]
	}

	var out market.Columns
	out.AddBool("Valleys", valleys)
	out.AddBool("Peaks", peaks)
	return out, nil
}

// GapsParams has no options.
type GapsParams struct{}

// Gaps flags bars that open a gap: Low above the previous High (Gap_Up) or
// High below the previous Low (Gap_Down).
func Gaps(f *market.Frame, _ *GapsParams) (market.Columns, error) {
	cols, err := columns(f, market.High, market.Low)
	if err != nil {
		return nil, err
	}
	high, low := cols[0], cols[1]

	up := make([]bool, len(high))
	down := make([]bool, len(high))
	for i := 1; i < len(high); i++ {
		up[i] = low[i] > high[i-1]
		down[i] = high[i] < low[i-1]
	}

	var out market.Columns
	out.AddBool("Gap_Up", up)
	out.AddBool("Gap_Down", down)
	return out, nil
}

// LiquidityParams configures the liquidity plugin.
type LiquidityParams struct {
	SwingLength  int     `yaml:"swing_length" default:"25" validate:"gt=0"`
	RangePercent float64 `yaml:"range_percent" default:"0.1" validate:"gt=0"`
}

// Liquidity groups swing highs (lows) that sit within a band of each other
// before price sweeps the band. A group of two or more swings marks a
// liquidity zone at its first swing: Liquidity is 1 for highs and -1 for
// lows, Liquidity_Level the mean level of the group. Rows without a zone
// hold 0.
func Liquidity(f *market.Frame, p *LiquidityParams) (market.Columns, error) {
	cols, err := columns(f, market.High, market.Low)
	if err != nil {
		return nil, err
	}
	high, low := cols[0], cols[1]
	n := len(high)

	var out market.Columns
	liq := make([]float64, n)
	level := make([]float64, n)
	if n == 0 {
		out.Add("Liquidity", liq)
		out.Add("Liquidity_Level", level)
		return out, nil
	}

	sw := SwingHighsLows(high, low, p.SwingLength)
	hl := append([]float64(nil), sw.HighLow...)
	band := (nanMaxSlice(high) - nanMinSlice(low)) * p.RangePercent

	group := func(kind float64, swept func(j int, lo, hi float64) bool) {
		var idx []int
		for i, v := range hl {
			if v == kind {
				idx = append(idx, i)
			}
		}
		for _, i := range idx {
			if hl[i] != kind {
				continue
			}
			lvl := sw.Level[i]
			lo, hi := lvl-band, lvl+band

			sweptAt := 0
			for j := i + 1; j < n; j++ {
				if swept(j, lo, hi) {
					sweptAt = j
					break
				}
			}

			levels := []float64{lvl}
			for _, j := range idx {
				if j <= i {
					continue
				}
				if sweptAt != 0 && j >= sweptAt {
					break
				}
				if hl[j] == kind && sw.Level[j] >= lo && sw.Level[j] <= hi {
					levels = append(levels, sw.Level[j])
					hl[j] = 0
				}
			}
			if len(levels) > 1 {
				liq[i] = kind
				level[i] = mean(levels)
			}
		}
	}

	group(1, func(j int, _, hi float64) bool { return high[j] >= hi })
	group(-1, func(j int, lo, _ float64) bool { return low[j] <= lo })

	out.Add("Liquidity", liq)
	out.Add("Liquidity_Level", level)
	return out, nil
}

func nanMaxSlice(x []float64) float64 { return nanMax(x...) }

func nanMinSlice(x []float64) float64 {
	m := math.NaN()
	for _, v := range x {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(m) || v < m {
			m = v
		}
	}
	return m
}

func init() {
	Register("peaks_valleys", PeaksValleys)
	Register("gaps", Gaps)
	Register("liquidity", Liquidity)
}
