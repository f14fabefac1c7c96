package indicators

import (
	"testing"
	"time"

	"github.com/rustyeddy/screener/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hourly(bars []market.Bar) []market.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i].Time = base.Add(time.Duration(i) * time.Hour)
	}
	return bars
}

func TestExponentialMAStreaming(t *testing.T) {
	bars := hourly([]market.Bar{
		{Close: 102}, {Close: 105}, {Close: 106}, {Close: 108},
		{Close: 110}, {Close: 111}, {Close: 113},
	})

	t.Run("basic functionality", func(t *testing.T) {
		ema := NewEMA(3)
		assert.Equal(t, "EMA(3)", ema.Name())
		assert.Equal(t, 3, ema.Warmup())
		assert.False(t, ema.Ready())
		assert.Equal(t, 0.0, ema.Value())

		ema.Update(bars[0])
		ema.Update(bars[1])
		assert.False(t, ema.Ready())

		// Third bar seeds with the simple average
		ema.Update(bars[2])
		assert.True(t, ema.Ready())
		seed := (102.0 + 105.0 + 106.0) / 3.0
		assert.InDelta(t, seed, ema.Value(), 0.001)

		// multiplier = 2/(3+1) = 0.5
		ema.Update(bars[3])
		assert.InDelta(t, (108.0-seed)*0.5+seed, ema.Value(), 0.001)
	})

	t.Run("reset functionality", func(t *testing.T) {
		ema := NewEMA(2)
		ema.Update(bars[0])
		ema.Update(bars[1])
		assert.True(t, ema.Ready())

		ema.Reset()
		assert.False(t, ema.Ready())
		assert.Equal(t, 0.0, ema.Value())
	})

	t.Run("column matches streaming", func(t *testing.T) {
		f := market.NewOHLCVFrame("T", market.Daily, bars)
		cols, err := EMAColumns(f, &EMAParams{Periods: []int{3, 5}})
		require.NoError(t, err)
		assert.Equal(t, []string{"EMA_3", "EMA_5"}, cols.Names())

		ema := NewEMA(5)
		for _, b := range bars {
			ema.Update(b)
		}
		got, _ := cols.Get("EMA_5")
		assert.True(t, isNaN(got[3]))
		assert.InDelta(t, ema.Value(), got[len(got)-1], 1e-9)
	})
}

func TestAverageTrueRangeStreaming(t *testing.T) {
	bars := hourly([]market.Bar{
		{High: 10, Low: 8, Close: 9},
		{High: 11, Low: 9, Close: 10},
		{High: 12, Low: 10, Close: 11},
		{High: 11, Low: 9, Close: 10},
		{High: 12, Low: 10, Close: 11},
		{High: 13, Low: 11, Close: 12},
	})

	t.Run("basic functionality", func(t *testing.T) {
		atr := NewATR(3)
		assert.Equal(t, "ATR(3)", atr.Name())
		assert.Equal(t, 4, atr.Warmup())
		assert.False(t, atr.Ready())

		for _, b := range bars[:3] {
			atr.Update(b)
			assert.False(t, atr.Ready())
		}
		atr.Update(bars[3])
		assert.True(t, atr.Ready())
		assert.InDelta(t, 2.0, atr.Value(), 0.001)
	})

	t.Run("reset functionality", func(t *testing.T) {
		atr := NewATR(2)
		for _, b := range bars[:3] {
			atr.Update(b)
		}
		assert.True(t, atr.Ready())
		atr.Reset()
		assert.False(t, atr.Ready())
		assert.Equal(t, 0.0, atr.Value())
	})

	t.Run("batch function", func(t *testing.T) {
		v, err := ATRFunc(bars, 3)
		require.NoError(t, err)
		assert.InDelta(t, 2.0, v, 0.001)

		_, err = ATRFunc(bars[:2], 3)
		assert.Error(t, err)
		_, err = ATRFunc(bars, 0)
		assert.Error(t, err)
	})

	t.Run("true range uses previous close", func(t *testing.T) {
		tr := trueRange(market.Bar{High: 110, Low: 100}, market.Bar{Close: 120})
		assert.Equal(t, 20.0, tr)
	})
}

func TestADXStreaming(t *testing.T) {
	var bars []market.Bar
	price := 100.0
	for i := 0; i < 40; i++ {
		price += 1
		bars = append(bars, market.Bar{High: price + 1, Low: price - 1, Close: price})
	}
	bars = hourly(bars)

	adx := NewADX(5)
	assert.Equal(t, "ADX(5)", adx.Name())
	assert.Equal(t, 11, adx.Warmup())
	for i, b := range bars {
		adx.Update(b)
		assert.Equal(t, i+1 >= adx.Warmup(), adx.Ready(), "bar %d", i)
	}
	// A steady uptrend has no downward movement.
	assert.InDelta(t, 100.0, adx.Value(), 1e-9)

	adx.Reset()
	assert.False(t, adx.Ready())
}

func TestIndicatorInterface(t *testing.T) {
	var _ Streamer = &ExponentialMA{}
	var _ Streamer = &ATR{}
	var _ Streamer = &ADX{}

	bars := hourly([]market.Bar{
		{High: 105, Low: 99, Close: 102},
		{High: 107, Low: 101, Close: 105},
		{High: 108, Low: 104, Close: 106},
		{High: 110, Low: 105, Close: 108},
		{High: 112, Low: 107, Close: 110},
	})

	for _, ind := range []Streamer{NewEMA(3), NewATR(2), NewADX(2)} {
		assert.False(t, ind.Ready(), "indicator %s should not be ready initially", ind.Name())
		for _, b := range bars {
			ind.Update(b)
		}
		assert.True(t, ind.Ready(), "indicator %s should be ready after warmup", ind.Name())
		assert.Greater(t, ind.Value(), 0.0, "indicator %s should have positive value", ind.Name())
		ind.Reset()
		assert.False(t, ind.Ready(), "indicator %s should not be ready after reset", ind.Name())
	}
}
