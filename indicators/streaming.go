package indicators

import (
	"fmt"

	"github.com/rustyeddy/screener/market"
)

// ExponentialMA is a streaming Exponential Moving Average of Close, seeded
// with the simple average of the first period bars.
type ExponentialMA struct {
	period     int
	multiplier float64
	ema        float64
	count      int
	warmupSum  float64
}

// NewEMA creates a new Exponential Moving Average indicator with the given period
func NewEMA(period int) *ExponentialMA {
	return &ExponentialMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *ExponentialMA) Name() string {
	return fmt.Sprintf("EMA(%d)", e.period)
}

func (e *ExponentialMA) Warmup() int {
	return e.period
}

func (e *ExponentialMA) Reset() {
	e.ema = 0
	e.count = 0
	e.warmupSum = 0
}

func (e *ExponentialMA) Update(b market.Bar) {
	if e.count < e.period {
		e.warmupSum += b.Close
		e.count++
		if e.count == e.period {
			e.ema = e.warmupSum / float64(e.period)
		}
		return
	}
	e.ema = (b.Close-e.ema)*e.multiplier + e.ema
}

func (e *ExponentialMA) Ready() bool {
	return e.count >= e.period
}

func (e *ExponentialMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.ema
}

// EMAParams configures the EMA plugin.
type EMAParams struct {
	Periods []int `yaml:"periods" default:"[20]" validate:"min=1,dive,gt=0"`
}

// EMAColumns emits EMA_{p} for every period.
func EMAColumns(f *market.Frame, p *EMAParams) (market.Columns, error) {
	var cols market.Columns
	for _, period := range p.Periods {
		cols.Add(fmt.Sprintf("EMA_%d", period), Stream(f, NewEMA(period)))
	}
	return cols, nil
}

func init() {
	Register("EMA", EMAColumns)
}
