package indicators

import (
	"math"
	"sort"

	"github.com/rustyeddy/screener/market"
)

// OBParams configures the OB plugin.
type OBParams struct {
	Periods int `yaml:"periods" default:"25" validate:"gt=0"`
}

// orderBlocks holds the OB outputs while the two passes fill them in.
type orderBlocks struct {
	ob        []float64
	top       []float64
	bottom    []float64
	mitigated []float64
	breaker   []bool
}

func (o *orderBlocks) reset(idx int) {
	o.ob[idx] = 0
	o.top[idx] = 0
	o.bottom[idx] = 0
	o.mitigated[idx] = 0
}

// lastBefore returns the last entry of sorted idx that is < i, or -1.
func lastBefore(idx []int, i int) int {
	k := sort.SearchInts(idx, i)
	if k == 0 {
		return -1
	}
	return idx[k-1]
}

// OB detects order blocks from swing structure.
//
// A bullish block forms when Close breaks above the most recent uncrossed
// swing high: the block is the bar with the lowest Low between that swing
// and the breaking bar (the latest one on ties), or the previous bar when
// none lies between. A bullish block turns into a breaker once Low trades
// below its bottom, recording the row before in OB_Mitigated_Index; a
// breaker is cleared entirely when High later trades above its top.
// Bearish blocks mirror this with swing lows. Rows without a block hold 0.
func OB(f *market.Frame, p *OBParams) (market.Columns, error) {
	cols, err := columns(f, market.High, market.Low, market.Close)
	if err != nil {
		return nil, err
	}
	high, low, close := cols[0], cols[1], cols[2]
	n := len(high)

	sw := SwingHighsLows(high, low, p.Periods)
	var highs, lows []int
	for i, v := range sw.HighLow {
		switch v {
		case 1:
			highs = append(highs, i)
		case -1:
			lows = append(lows, i)
		}
	}

	o := &orderBlocks{
		ob:        make([]float64, n),
		top:       make([]float64, n),
		bottom:    make([]float64, n),
		mitigated: make([]float64, n),
		breaker:   make([]bool, n),
	}

	crossed := make([]bool, n)
	var active []int
	for i := 0; i < n; i++ {
		kept := active[:0]
		for _, idx := range active {
			if o.breaker[idx] {
				if high[i] > o.top[idx] {
					o.reset(idx)
					continue
				}
			} else if low[i] < o.bottom[idx] {
				o.breaker[idx] = true
				o.mitigated[idx] = float64(i - 1)
			}
			kept = append(kept, idx)
		}
		active = kept

		top := lastBefore(highs, i)
		if top < 0 || crossed[top] || !(close[i] > high[top]) {
			continue
		}
		crossed[top] = true

		obIdx := i - 1
		if i-top > 1 {
			seg := low[top+1 : i]
			m := minOf(seg)
			for k := len(seg) - 1; k >= 0; k-- {
				if seg[k] == m {
					obIdx = top + 1 + k
					break
				}
			}
		}
		o.ob[obIdx] = 1
		o.top[obIdx] = high[obIdx]
		o.bottom[obIdx] = low[obIdx]
		active = append(active, obIdx)
	}

	active = active[:0]
	for i := 0; i < n; i++ {
		kept := active[:0]
		for _, idx := range active {
			if o.breaker[idx] {
				if low[i] < o.bottom[idx] {
					o.reset(idx)
					continue
				}
			} else if high[i] > o.top[idx] {
				o.breaker[idx] = true
				o.mitigated[idx] = float64(i - 1)
			}
			kept = append(kept, idx)
		}
		active = kept

		btm := lastBefore(lows, i)
		if btm < 0 || crossed[btm] || !(close[i] < low[btm]) {
			continue
		}
		crossed[btm] = true

		obIdx := i - 1
		if i-btm > 1 {
			seg := high[btm+1 : i]
			m := maxOf(seg)
			for k := len(seg) - 1; k >= 0; k-- {
				if seg[k] == m {
					obIdx = btm + 1 + k
					break
				}
			}
		}
		o.ob[obIdx] = -1
		o.top[obIdx] = high[obIdx]
		o.bottom[obIdx] = low[obIdx]
		o.breaker[obIdx] = false
		active = append(active, obIdx)
	}

	for i := range o.ob {
		for _, s := range [][]float64{o.ob, o.top, o.bottom, o.mitigated} {
			if math.IsNaN(s[i]) {
				s[i] = 0
			}
		}
	}

	var out market.Columns
	out.Add("OB", o.ob)
	out.Add("OB_High", o.top)
	out.Add("OB_Low", o.bottom)
	out.Add("OB_Mitigated_Index", o.mitigated)
	return out, nil
}

// BoSCHoCHParams configures the BoS_CHoCH plugin.
type BoSCHoCHParams struct {
	SwingLength int `yaml:"swing_length" default:"25" validate:"gt=0"`
}

// BoSCHoCH detects breaks of structure and changes of character from the
// last four swings. A signal is placed on the second to last swing with the
// level of that swing, and survives only if a later Close (from two bars
// after the signal) breaks the level. A signal whose break comes at or after
// the break of a newer signal is dropped. Rows without a signal hold 0.
func BoSCHoCH(f *market.Frame, p *BoSCHoCHParams) (market.Columns, error) {
	cols, err := columns(f, market.High, market.Low, market.Close)
	if err != nil {
		return nil, err
	}
	high, low, close := cols[0], cols[1], cols[2]
	n := len(high)

	sw := SwingHighsLows(high, low, p.SwingLength)

	bos := make([]float64, n)
	choch := make([]float64, n)
	level := make([]float64, n)
	broken := make([]float64, n)

	var kinds, levels []float64
	var positions []int
	for i, v := range sw.HighLow {
		if math.IsNaN(v) {
			continue
		}
		kinds = append(kinds, v)
		levels = append(levels, sw.Level[i])
		if len(levels) >= 4 {
			k := kinds[len(kinds)-4:]
			l := levels[len(levels)-4:]
			at := positions[len(positions)-2]
			up := k[0] == -1 && k[1] == 1 && k[2] == -1 && k[3] == 1
			down := k[0] == 1 && k[1] == -1 && k[2] == 1 && k[3] == -1

			bos[at], choch[at] = 0, 0
			switch {
			case up && l[0] < l[2] && l[2] < l[1] && l[1] < l[3]:
				bos[at] = 1
			case down && l[0] > l[2] && l[2] > l[1] && l[1] > l[3]:
				bos[at] = -1
			}
			switch {
			case up && l[3] > l[1] && l[1] > l[0] && l[0] > l[2]:
				choch[at] = 1
			case down && l[3] < l[1] && l[1] < l[0] && l[0] < l[2]:
				choch[at] = -1
			}
			level[at] = 0
			if bos[at] != 0 || choch[at] != 0 {
				level[at] = l[1]
			}
		}
		positions = append(positions, i)
	}

	var signals []int
	for i := range bos {
		if bos[i] != 0 || choch[i] != 0 {
			signals = append(signals, i)
		}
	}

	for _, i := range signals {
		bull := bos[i] == 1 || choch[i] == 1
		bear := bos[i] == -1 || choch[i] == -1
		if !bull && !bear {
			continue
		}
		j := -1
		for c := i + 2; c < n; c++ {
			if (bull && close[c] > level[i]) || (!bull && close[c] < level[i]) {
				j = c
				break
			}
		}
		if j < 0 {
			continue
		}
		broken[i] = float64(j)
		for _, k := range signals {
			if k < i && broken[k] >= float64(j) {
				bos[k], choch[k], level[k], broken[k] = 0, 0, 0, 0
			}
		}
	}

	for _, i := range signals {
		if broken[i] == 0 {
			bos[i], choch[i], level[i] = 0, 0, 0
		}
	}

	var out market.Columns
	out.Add("BoS", bos)
	out.Add("CHoCH", choch)
	out.Add("BoS_CHoCH_Price", level)
	out.Add("BoS_CHoCH_Break_Index", broken)
	return out, nil
}

func init() {
	Register("OB", OB)
	Register("BoS_CHoCH", BoSCHoCH)
}
