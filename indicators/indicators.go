// Package indicators computes technical indicator columns over OHLCV frames.
//
// Every indicator is a plugin registered by name. A plugin reads a frame and
// returns new columns; the Compositor runs an ordered list of plugins and
// merges their outputs into a copy of the frame. A few indicators are also
// available as streaming types that consume one bar at a time.
package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/screener/market"
)

// Indicator computes a single streaming value from bars.
// It is deterministic and safe to replay over historical data.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)" or "ADX(14)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next closed bar and updates internal state.
	Update(b market.Bar)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool
}

type ValueF64 interface {
	// Value returns the current indicator value. If !Ready(), it returns 0.
	Value() float64
}

// Streamer is an Indicator with a float value.
type Streamer interface {
	Indicator
	ValueF64
}

// Stream resets ind, feeds it every bar of f and returns the value after
// each bar. Rows before the indicator is ready are NaN.
func Stream(f *market.Frame, ind Streamer) []float64 {
	ind.Reset()
	out := make([]float64, f.Len())
	for i := range out {
		ind.Update(f.Bar(i))
		if ind.Ready() {
			out[i] = ind.Value()
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// columns fetches the named columns or reports the first one missing.
func columns(f *market.Frame, names ...string) ([][]float64, error) {
	out := make([][]float64, len(names))
	for i, n := range names {
		c, ok := f.Col(n)
		if !ok {
			return nil, fmt.Errorf("missing %s column", n)
		}
		out[i] = c
	}
	return out, nil
}
