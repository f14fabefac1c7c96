package indicators

import (
	"github.com/rustyeddy/screener/market"
)

// StDevParams configures the StDev plugin.
type StDevParams struct {
	Centreline    string `yaml:"centreline" default:"peaks_valleys_avg" validate:"oneof=peaks_valleys_avg OB_avg gaps_avg SMA"`
	StDevLookback int    `yaml:"stdev_lookback" default:"75" validate:"gt=1"`
	AvgLookback   int    `yaml:"avg_lookback" default:"20" validate:"gt=0"`
	SMAPeriods    *int   `yaml:"sma_periods" validate:"omitempty,gt=0"`

	PeaksValleysParams PeriodAnchors `yaml:"peaks_valleys_params" default:"{\"periods\": 20}"`
	OBParams           OBAnchors     `yaml:"OB_params" default:"{\"periods\": 20}"`
	GapsParams         GapAnchors    `yaml:"gaps_params" default:"{\"max_aVWAPs\": 10}"`
}

// centreline returns the mean the deviation is measured from.
func (p *StDevParams) centreline(f *market.Frame, close []float64) ([]float64, error) {
	if p.Centreline == "SMA" {
		periods := p.StDevLookback
		if p.SMAPeriods != nil {
			periods = *p.SMAPeriods
		}
		return RollingMean(close, periods), nil
	}

	ap := &AVWAPParams{AvgLookback: p.AvgLookback}
	var name string
	switch p.Centreline {
	case "peaks_valleys_avg":
		ap.PeaksValleysAvg = true
		ap.PeaksValleysParams = p.PeaksValleysParams
		name = "Peaks_Valleys_avg"
	case "OB_avg":
		ap.OBAvg = true
		ap.OBParams = p.OBParams
		name = "OB_avg"
	case "gaps_avg":
		ap.GapsAvg = true
		ap.GapsParams = p.GapsParams
		name = "Gaps_avg"
	}
	cols, err := AVWAP(f, ap)
	if err != nil {
		return nil, err
	}
	if v, ok := cols.Get(name); ok {
		return v, nil
	}
	return NaNs(len(close)), nil
}

// StDev measures how far Close sits from a centreline in units of its
// rolling standard deviation. It emits StDev, StDev_Mean and StdDev_ZScore.
func StDev(f *market.Frame, p *StDevParams) (market.Columns, error) {
	cols, err := columns(f, market.Close)
	if err != nil {
		return nil, err
	}
	close := cols[0]

	std := RollingStd(close, p.StDevLookback)
	centre, err := p.centreline(f, close)
	if err != nil {
		return nil, err
	}
	z := make([]float64, len(close))
	for i := range close {
		z[i] = (close[i] - centre[i]) / std[i]
	}

	var out market.Columns
	out.Add("StDev", std)
	out.Add("StDev_Mean", centre)
	out.Add("StdDev_ZScore", z)
	return out, nil
}

func init() {
	Register("StDev", StDev)
}
