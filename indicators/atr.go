package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/screener/market"
)

// ATRFunc calculates the Average True Range of the last bar.
// Returns an error if there aren't enough bars for the period.
func ATRFunc(bars []market.Bar, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(bars) < period+1 {
		return 0, fmt.Errorf("not enough bars: need %d, got %d", period+1, len(bars))
	}

	a := NewATR(period)
	for _, b := range bars {
		a.Update(b)
	}
	return a.Value(), nil
}

// ATR is a streaming Average True Range indicator with Wilder smoothing.
type ATR struct {
	period      int
	atr         float64
	count       int
	warmupSum   float64
	prev        market.Bar
	hasPrevious bool
}

// NewATR creates a new Average True Range indicator with the given period
func NewATR(period int) *ATR {
	return &ATR{
		period: period,
	}
}

func (a *ATR) Name() string {
	return fmt.Sprintf("ATR(%d)", a.period)
}

func (a *ATR) Warmup() int {
	// TR needs the previous bar
	return a.period + 1
}

func (a *ATR) Reset() {
	a.atr = 0
	a.count = 0
	a.warmupSum = 0
	a.hasPrevious = false
}

func (a *ATR) Update(b market.Bar) {
	if !a.hasPrevious {
		a.prev = b
		a.hasPrevious = true
		return
	}

	tr := trueRange(b, a.prev)
	if a.count < a.period {
		a.warmupSum += tr
		a.count++
		if a.count == a.period {
			a.atr = a.warmupSum / float64(a.period)
		}
	} else {
		a.atr = (a.atr*float64(a.period-1) + tr) / float64(a.period)
	}
	a.prev = b
}

func (a *ATR) Ready() bool {
	return a.count >= a.period
}

func (a *ATR) Value() float64 {
	if !a.Ready() {
		return 0
	}
	return a.atr
}

// trueRange calculates the True Range for a bar given the previous bar
func trueRange(current, previous market.Bar) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)

	return math.Max(highLow, math.Max(highClose, lowClose))
}

// ATRParams configures the ATR plugin.
type ATRParams struct {
	Period int `yaml:"period" default:"14" validate:"gt=0"`
}

// ATRColumns emits a Wilder ATR column named ATR.
func ATRColumns(f *market.Frame, p *ATRParams) (market.Columns, error) {
	var cols market.Columns
	cols.Add("ATR", Stream(f, NewATR(p.Period)))
	return cols, nil
}

// HybridATR averages the true range with a simple mean over the first
// length rows and an exponential average (span=length) after that.
func HybridATR(high, low, close []float64, length int) []float64 {
	tr := TrueRange(high, low, close)
	out := RollingMean(tr, length)
	ewm := EWMSpan(tr, length)
	for i := length; i < len(out); i++ {
		out[i] = ewm[i]
	}
	return out
}

func init() {
	Register("ATR", ATRColumns)
}
