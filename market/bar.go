package market

import "time"

// Bar is a single OHLCV row read from a Frame.
type Bar struct {
	time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// TypicalPrice returns (H+L+C)/3.
func (b Bar) TypicalPrice() float64 {
	return (b.High + b.Low + b.Close) / 3
}

// Range returns High - Low.
func (b Bar) Range() float64 {
	return b.High - b.Low
}
