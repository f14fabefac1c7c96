package indicators

import (
	"fmt"
	"math"
	"sort"

	"github.com/rustyeddy/screener/market"
)

// PeriodAnchors selects structural anchors found with a lookback window.
// MaxAVWAPs keeps only the most recent anchors; nil keeps all of them.
type PeriodAnchors struct {
	Periods   int  `yaml:"periods" json:"periods" default:"25" validate:"gt=0"`
	MaxAVWAPs *int `yaml:"max_aVWAPs" json:"max_aVWAPs" validate:"omitempty,gt=0"`
}

// GapAnchors caps the gap anchors.
type GapAnchors struct {
	MaxAVWAPs *int `yaml:"max_aVWAPs" json:"max_aVWAPs" validate:"omitempty,gt=0"`
}

// OBAnchors selects order block anchors.
type OBAnchors struct {
	Periods        int  `yaml:"periods" json:"periods" default:"25" validate:"gt=0"`
	MaxAVWAPs      *int `yaml:"max_aVWAPs" json:"max_aVWAPs" validate:"omitempty,gt=0"`
	IncludeBullish bool `yaml:"include_bullish" json:"include_bullish" default:"true"`
	IncludeBearish bool `yaml:"include_bearish" json:"include_bearish" default:"true"`
}

// SwingAnchors selects break of structure anchors.
type SwingAnchors struct {
	SwingLength int  `yaml:"swing_length" json:"swing_length" default:"25" validate:"gt=0"`
	MaxAVWAPs   *int `yaml:"max_aVWAPs" json:"max_aVWAPs" validate:"omitempty,gt=0"`
}

// AVWAPParams configures the aVWAP plugin. The flags pick which anchor
// families are computed and which lines and averages are emitted.
type AVWAPParams struct {
	PeaksValleys    bool `yaml:"peaks_valleys"`
	PeaksValleysAvg bool `yaml:"peaks_valleys_avg"`
	PeaksAvg        bool `yaml:"peaks_avg"`
	ValleysAvg      bool `yaml:"valleys_avg"`
	Gaps            bool `yaml:"gaps"`
	GapsAvg         bool `yaml:"gaps_avg"`
	OB              bool `yaml:"OB"`
	OBAvg           bool `yaml:"OB_avg"`
	BoSCHoCH        bool `yaml:"BoS_CHoCH"`
	BoSCHoCHAvg     bool `yaml:"BoS_CHoCH_avg"`
	AllAvg          bool `yaml:"All_avg"`
	KeepOBColumn    bool `yaml:"keep_OB_column"`
	Channel         bool `yaml:"aVWAP_channel"`
	AvgLookback     int  `yaml:"avg_lookback" default:"25" validate:"gt=0"`

	PeaksValleysParams PeriodAnchors `yaml:"peaks_valleys_params"`
	GapsParams         GapAnchors    `yaml:"gaps_params"`
	OBParams           OBAnchors     `yaml:"OB_params"`
	BoSCHoCHParams     SwingAnchors  `yaml:"BoS_CHoCH_params"`
}

// line is one anchored VWAP column. key orders lines when averaging,
// newest first.
type line struct {
	name   string
	key    int
	values []float64
}

type lines []line

// AnchoredVWAP returns the VWAP of the typical price (H+L+C)/3 accumulated
// from anchor onward. Rows before the anchor are NaN.
func AnchoredVWAP(high, low, close, volume []float64, anchor int) []float64 {
	out := NaNs(len(close))
	if anchor < 0 {
		return out
	}
	var pv, vol float64
	for i := anchor; i < len(close); i++ {
		tp := (high[i] + low[i] + close[i]) / 3
		term := volume[i] * tp
		if math.IsNaN(term) || math.IsNaN(volume[i]) {
			continue
		}
		pv += term
		vol += volume[i]
		out[i] = pv / vol
	}
	return out
}

// latestAnchors orders anchors newest first and keeps at most limit of them.
func latestAnchors(idx []int, limit *int) []int {
	out := append([]int(nil), idx...)
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	if limit != nil && len(out) > *limit {
		out = out[:*limit]
	}
	return out
}

// averageLines is the row-wise mean of the newest lookback non-NaN values,
// ordering lines by key descending. Rows with no value are NaN.
func averageLines(ls lines, n, lookback int) []float64 {
	sorted := append(lines(nil), ls...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].key > sorted[j].key })

	out := NaNs(n)
	for i := 0; i < n; i++ {
		sum, cnt := 0.0, 0
		for _, l := range sorted {
			v := l.values[i]
			if math.IsNaN(v) {
				continue
			}
			sum += v
			cnt++
			if cnt == lookback {
				break
			}
		}
		if cnt > 0 {
			out[i] = sum / float64(cnt)
		}
	}
	return out
}

func flagged(col []float64, want float64) []int {
	var out []int
	for i, v := range col {
		if v == want {
			out = append(out, i)
		}
	}
	return out
}

// extremeIndex returns the first row of the greatest (sign 1) or least
// (sign -1) value of x among idx, or -1 when idx is empty.
func extremeIndex(x []float64, idx []int, sign float64) int {
	best := -1
	for _, i := range idx {
		if best < 0 || sign*x[i] > sign*x[best] {
			best = i
		}
	}
	return best
}

func atOrAfter(idx []int, from int) []int {
	if from < 0 {
		return nil
	}
	var out []int
	for _, i := range idx {
		if i >= from {
			out = append(out, i)
		}
	}
	return out
}

// AVWAP computes anchored VWAP lines from peaks and valleys, gaps, order
// blocks and breaks of structure, plus row-wise averages of those lines.
//
// In channel mode only peaks at or after the highest peak and valleys at
// or after the lowest valley anchor lines, order blocks must form after
// those extremes, and Peaks_Valleys_avg starts once both extremes exist.
func AVWAP(f *market.Frame, p *AVWAPParams) (market.Columns, error) {
	cols, err := columns(f, market.High, market.Low, market.Close, market.Volume)
	if err != nil {
		return nil, err
	}
	high, low, close, volume := cols[0], cols[1], cols[2], cols[3]
	n := len(close)

	usePV := p.PeaksValleys || p.PeaksValleysAvg || p.PeaksAvg || p.ValleysAvg || p.AllAvg
	useGaps := p.Gaps || p.GapsAvg || p.AllAvg
	useOB := p.OB || p.OBAvg || p.AllAvg
	useBoS := p.BoSCHoCH || p.BoSCHoCHAvg || p.AllAvg

	var steps []Bound
	if usePV {
		steps = append(steps, Bind("peaks_valleys", PeaksValleys, &PeaksValleysParams{Periods: p.PeaksValleysParams.Periods}))
	}
	if useGaps {
		steps = append(steps, Bind("gaps", Gaps, &GapsParams{}))
	}
	if useOB {
		steps = append(steps, Bind("OB", OB, &OBParams{Periods: p.OBParams.Periods}))
	}
	if useBoS {
		steps = append(steps, Bind("BoS_CHoCH", BoSCHoCH, &BoSCHoCHParams{SwingLength: p.BoSCHoCHParams.SwingLength}))
	}
	if len(steps) == 0 {
		return nil, nil
	}

	sub, err := NewPipeline(steps...).Apply(f)
	if err != nil {
		return nil, err
	}
	col := func(name string) []float64 {
		v, _ := sub.Col(name)
		return v
	}
	anchorLines := func(prefix string, idx []int) lines {
		out := make(lines, 0, len(idx))
		for _, a := range idx {
			out = append(out, line{
				name:   fmt.Sprintf("%s_%d", prefix, a),
				key:    a,
				values: AnchoredVWAP(high, low, close, volume, a),
			})
		}
		return out
	}

	var peaks, valleys lines
	highestPeak, lowestValley := -1, -1
	if usePV {
		peakIdx := flagged(col("Peaks"), 1)
		valleyIdx := flagged(col("Valleys"), 1)
		if p.Channel {
			highestPeak = extremeIndex(high, peakIdx, 1)
			lowestValley = extremeIndex(low, valleyIdx, -1)
			peakIdx = atOrAfter(peakIdx, highestPeak)
			valleyIdx = atOrAfter(valleyIdx, lowestValley)
		}
		limit := p.PeaksValleysParams.MaxAVWAPs
		peaks = anchorLines("aVWAP_peak", latestAnchors(peakIdx, limit))
		valleys = anchorLines("aVWAP_valley", latestAnchors(valleyIdx, limit))
	}

	var gapLines lines
	if useGaps {
		limit := p.GapsParams.MaxAVWAPs
		gapLines = append(gapLines, anchorLines("Gap_Up_aVWAP", latestAnchors(flagged(col("Gap_Up"), 1), limit))...)
		gapLines = append(gapLines, anchorLines("Gap_Down_aVWAP", latestAnchors(flagged(col("Gap_Down"), 1), limit))...)
	}

	var obBull, obBear lines
	if useOB {
		ob := col("OB")
		bull, bear := flagged(ob, 1), flagged(ob, -1)
		if p.Channel {
			bull = atOrAfter(bull, lowestValley)
			bear = atOrAfter(bear, highestPeak)
		} else {
			if !p.OBParams.IncludeBullish {
				bull = nil
			}
			if !p.OBParams.IncludeBearish {
				bear = nil
			}
		}
		limit := p.OBParams.MaxAVWAPs
		obBull = anchorLines("aVWAP_OB_bull", latestAnchors(bull, limit))
		obBear = anchorLines("aVWAP_OB_bear", latestAnchors(bear, limit))
	}

	var bosLines lines
	if useBoS {
		bos, choch, brk := col("BoS"), col("CHoCH"), col("BoS_CHoCH_Break_Index")
		build := func(dir float64, label string, series []float64, sign float64) lines {
			var signals []int
			for i := range bos {
				if bos[i] != dir && choch[i] != dir {
					continue
				}
				if b := brk[i]; math.IsNaN(b) || b == 0 || int(b) <= i || int(b) >= n {
					continue
				}
				signals = append(signals, i)
			}
			var out lines
			for _, s := range latestAnchors(signals, p.BoSCHoCHParams.MaxAVWAPs) {
				b := brk[s]
				span := make([]int, 0, int(b)-s+1)
				for k := s; k <= int(b); k++ {
					span = append(span, k)
				}
				anchor := extremeIndex(series, span, sign)
				out = append(out, line{
					name:   fmt.Sprintf("aVWAP_BoS_CHoCH_%s_%d", label, s),
					key:    s,
					values: AnchoredVWAP(high, low, close, volume, anchor),
				})
			}
			return out
		}
		bosLines = append(bosLines, build(1, "bull", low, -1)...)
		bosLines = append(bosLines, build(-1, "bear", high, 1)...)
	}

	pv := append(append(lines(nil), peaks...), valleys...)
	obLines := append(append(lines(nil), obBull...), obBear...)
	all := append(append(append(append(lines(nil), pv...), gapLines...), obLines...), bosLines...)
	if len(all) == 0 {
		return nil, nil
	}

	var out market.Columns
	emit := func(ls lines) {
		for _, l := range ls {
			out.Add(l.name, l.values)
		}
	}
	if p.PeaksValleys {
		emit(pv)
	}
	if p.Gaps {
		emit(gapLines)
	}
	if p.OB {
		if p.OBParams.IncludeBullish {
			emit(obBull)
		}
		if p.OBParams.IncludeBearish {
			emit(obBear)
		}
	}
	if p.BoSCHoCH {
		emit(bosLines)
	}
	if p.KeepOBColumn && useOB {
		for _, name := range []string{"OB", "OB_High", "OB_Low", "OB_Mitigated_Index"} {
			out.Add(name, col(name))
		}
	}

	avg := func(ls lines) []float64 { return averageLines(ls, n, p.AvgLookback) }
	if p.PeaksValleysAvg && len(pv) > 0 {
		v := avg(pv)
		if p.Channel {
			if highestPeak < 0 || lowestValley < 0 {
				v = NaNs(n)
			} else {
				start := highestPeak
				if lowestValley > start {
					start = lowestValley
				}
				for i := 0; i < start && i < n; i++ {
					v[i] = math.NaN()
				}
			}
		}
		out.Add("Peaks_Valleys_avg", v)
	}
	if p.PeaksAvg && len(peaks) > 0 {
		out.Add("Peaks_avg", avg(peaks))
	}
	if p.ValleysAvg && len(valleys) > 0 {
		out.Add("Valleys_avg", avg(valleys))
	}
	if p.GapsAvg && len(gapLines) > 0 {
		out.Add("Gaps_avg", avg(gapLines))
	}
	if p.OBAvg && len(obLines) > 0 {
		out.Add("OB_avg", avg(obLines))
	}
	if p.BoSCHoCHAvg && len(bosLines) > 0 {
		out.Add("BoS_CHoCH_avg", avg(bosLines))
	}
	if p.AllAvg {
		out.Add("All_avg", avg(all))
	}
	return out, nil
}

func init() {
	Register("aVWAP", AVWAP)
}
