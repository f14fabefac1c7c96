package indicators

import (
	"fmt"

	"github.com/rustyeddy/screener/market"
)

// SMAParams configures the SMA plugin.
type SMAParams struct {
	Periods []int `yaml:"periods" default:"[200]" validate:"min=1,dive,gt=0"`
}

// SMA emits SMA_{p}, the trailing mean of Close, for every period.
func SMA(f *market.Frame, p *SMAParams) (market.Columns, error) {
	closes, ok := f.Col(market.Close)
	if !ok {
		return nil, fmt.Errorf("missing %s column", market.Close)
	}
	var cols market.Columns
	for _, period := range p.Periods {
		cols.Add(fmt.Sprintf("SMA_%d", period), RollingMean(closes, period))
	}
	return cols, nil
}

// RSIParams configures the RSI plugin.
type RSIParams struct {
	Periods int `yaml:"periods" default:"14" validate:"gt=0"`
}

// RSI emits Wilder's RSI of Close.
func RSI(f *market.Frame, p *RSIParams) (market.Columns, error) {
	closes, ok := f.Col(market.Close)
	if !ok {
		return nil, fmt.Errorf("missing %s column", market.Close)
	}
	var cols market.Columns
	cols.Add("RSI", WilderRSI(closes, p.Periods))
	return cols, nil
}

func init() {
	Register("SMA", SMA)
	Register("RSI", RSI)
}
