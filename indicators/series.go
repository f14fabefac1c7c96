package indicators

import (
	"math"
)

// Series helpers operate on whole columns. NaN marks a missing value and
// propagates the way the rolling and exponential windows of a dataframe
// library would: rolling windows need every slot filled, exponential
// averages skip leading gaps and decay across interior ones.

// NaNs returns a slice of n NaN values.
func NaNs(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// Diff returns x[i] - x[i-1], NaN at the first row.
func Diff(x []float64) []float64 {
	out := NaNs(len(x))
	for i := 1; i < len(x); i++ {
		out[i] = x[i] - x[i-1]
	}
	return out
}

// Shift moves values n rows later (n > 0) or earlier (n < 0), filling with NaN.
func Shift(x []float64, n int) []float64 {
	out := NaNs(len(x))
	for i := range x {
		j := i - n
		if j >= 0 && j < len(x) {
			out[i] = x[j]
		}
	}
	return out
}

// GainLoss splits the first difference of x into positive gains and
// positive losses. The first row, and any NaN difference, counts as 0.
func GainLoss(x []float64) (gain, loss []float64) {
	d := Diff(x)
	gain = make([]float64, len(x))
	loss = make([]float64, len(x))
	for i, v := range d {
		if v > 0 {
			gain[i] = v
		} else if v < 0 {
			loss[i] = -v
		}
	}
	return gain, loss
}

// SpanAlpha converts an EWM span into its smoothing factor.
func SpanAlpha(span int) float64 {
	return 2 / (float64(span) + 1)
}

// EWM is the recursive (non adjusted) exponential average
// y[i] = (1-alpha)*y[i-1] + alpha*x[i].
//
// Leading NaN rows stay NaN. An interior NaN repeats the previous average
// and the weight of that average keeps decaying, so the next observation
// after k gaps is combined with weight (1-alpha)^(k+1). Rows before
// minPeriods observations have been seen are NaN.
func EWM(x []float64, alpha float64, minPeriods int) []float64 {
	if minPeriods < 1 {
		minPeriods = 1
	}
	out := NaNs(len(x))
	if len(x) == 0 {
		return out
	}

	weighted := x[0]
	nobs := 0
	if !math.IsNaN(weighted) {
		nobs = 1
	}
	if nobs >= minPeriods {
		out[0] = weighted
	}

	oldWt := 1.0
	for i := 1; i < len(x); i++ {
		cur := x[i]
		obs := !math.IsNaN(cur)
		if obs {
			nobs++
		}
		if !math.IsNaN(weighted) {
			oldWt *= 1 - alpha
			if obs {
				if weighted != cur {
					weighted = (oldWt*weighted + alpha*cur) / (oldWt + alpha)
				}
				oldWt = 1
			}
		} else if obs {
			weighted = cur
		}
		if nobs >= minPeriods {
			out[i] = weighted
		}
	}
	return out
}

// EWMSpan is EWM with alpha derived from span.
func EWMSpan(x []float64, span int) []float64 {
	return EWM(x, SpanAlpha(span), 0)
}

// window returns the inclusive bounds of the rolling window ending at i, or
// ok=false when the window does not fit inside x.
func window(n, w, i int, centered bool) (lo, hi int, ok bool) {
	hi = i
	if centered {
		hi = i + (w-1)/2
	}
	lo = hi - w + 1
	return lo, hi, lo >= 0 && hi < n
}

func rolling(x []float64, w int, centered bool, fn func([]float64) float64) []float64 {
	out := NaNs(len(x))
	if w <= 0 {
		return out
	}
	for i := range x {
		lo, hi, ok := window(len(x), w, i, centered)
		if !ok {
			continue
		}
		win := x[lo : hi+1]
		if hasNaN(win) {
			continue
		}
		out[i] = fn(win)
	}
	return out
}

func hasNaN(x []float64) bool {
	for _, v := range x {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

func mean(x []float64) float64 {
	s := 0.0
	for _, v := range x {
		s += v
	}
	return s / float64(len(x))
}

// sampleStd is the standard deviation with one degree of freedom removed.
func sampleStd(x []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	m := mean(x)
	ss := 0.0
	for _, v := range x {
		ss += (v - m) * (v - m)
	}
	return math.Sqrt(ss / float64(len(x)-1))
}

func maxOf(x []float64) float64 {
	m := x[0]
	for _, v := range x[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(x []float64) float64 {
	m := x[0]
	for _, v := range x[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// RollingMean is the trailing mean over w rows.
func RollingMean(x []float64, w int) []float64 { return rolling(x, w, false, mean) }

// RollingStd is the trailing sample standard deviation over w rows.
func RollingStd(x []float64, w int) []float64 { return rolling(x, w, false, sampleStd) }

// RollingMax is the trailing maximum over w rows.
func RollingMax(x []float64, w int) []float64 { return rolling(x, w, false, maxOf) }

// RollingMin is the trailing minimum over w rows.
func RollingMin(x []float64, w int) []float64 { return rolling(x, w, false, minOf) }

// CenteredMax is the maximum over a window of w rows centred on each row.
// For even w the window reaches one row further back than forward.
func CenteredMax(x []float64, w int) []float64 { return rolling(x, w, true, maxOf) }

// CenteredMin is the centred counterpart of RollingMin.
func CenteredMin(x []float64, w int) []float64 { return rolling(x, w, true, minOf) }

// TrueRange is max(H-L, |H-prevC|, |L-prevC|), skipping terms that are NaN.
// The first row is H-L.
func TrueRange(high, low, close []float64) []float64 {
	out := make([]float64, len(high))
	for i := range high {
		tr := high[i] - low[i]
		if i > 0 {
			tr = nanMax(tr, math.Abs(high[i]-close[i-1]), math.Abs(low[i]-close[i-1]))
		}
		out[i] = tr
	}
	return out
}

func nanMax(vals ...float64) float64 {
	m := math.NaN()
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if math.IsNaN(m) || v > m {
			m = v
		}
	}
	return m
}

// Clip bounds every value into [lo, hi]. NaN stays NaN.
func Clip(x []float64, lo, hi float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		switch {
		case math.IsNaN(v):
			out[i] = v
		case v < lo:
			out[i] = lo
		case v > hi:
			out[i] = hi
		default:
			out[i] = v
		}
	}
	return out
}

// FillNaN replaces NaN with v.
func FillNaN(x []float64, v float64) []float64 {
	out := make([]float64, len(x))
	for i, xv := range x {
		if math.IsNaN(xv) {
			out[i] = v
		} else {
			out[i] = xv
		}
	}
	return out
}

// Bools converts a predicate result into a 0/1 column.
func Bools(b []bool) []float64 {
	out := make([]float64, len(b))
	for i, v := range b {
		if v {
			out[i] = 1
		}
	}
	return out
}

// Truthy reports whether a stored flag value is set. NaN is false.
func Truthy(v float64) bool {
	return !math.IsNaN(v) && v != 0
}

// rsiFromAverages computes 100 - 100/(1+g/l). A zero loss with a positive
// gain gives 100, both zero gives NaN.
func rsiFromAverages(avgGain, avgLoss []float64) []float64 {
	out := make([]float64, len(avgGain))
	for i := range avgGain {
		out[i] = 100 - 100/(1+avgGain[i]/avgLoss[i])
	}
	return out
}

// WilderRSI is the RSI smoothed with EWM alpha = 1/period.
func WilderRSI(close []float64, period int) []float64 {
	gain, loss := GainLoss(close)
	alpha := 1 / float64(period)
	return rsiFromAverages(EWM(gain, alpha, 0), EWM(loss, alpha, 0))
}
