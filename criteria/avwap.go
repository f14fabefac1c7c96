package criteria

import (
	"math"
	"strings"

	"github.com/rustyeddy/screener/market"
)

func isNaN(v float64) bool { return math.IsNaN(v) }

// distancePct is the signed distance of price from level in percent of
// level.
func distancePct(price, level float64) float64 {
	return (price - level) / level * 100
}

func side(d float64) string {
	if d < 0 {
		return "below"
	}
	return "above"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// nearLevel tests a signed percent distance d against pct. Without
// outside, below and above accept [-pct, 0] and [0, pct] and within accepts
// |d| <= pct. With outside each test is inverted to the far side.
func nearLevel(d, pct float64, direction string, outside bool) bool {
	switch direction {
	case "below":
		if outside {
			return d < -pct
		}
		return -pct <= d && d <= 0
	case "above":
		if outside {
			return d > pct
		}
		return 0 <= d && d <= pct
	default:
		if outside {
			return math.Abs(d) > pct
		}
		return math.Abs(d) <= pct
	}
}

// AVWAPChannelParams configures the aVWAP_channel criterion.
type AVWAPChannelParams struct {
	Mode         string  `yaml:"mode" default:"support" validate:"oneof=support resistance"`
	DistancePct  float64 `yaml:"distance_pct" default:"5" validate:"gte=0"`
	Direction    string  `yaml:"direction" default:"within" validate:"oneof=below above within"`
	OutsideRange bool    `yaml:"outside_range"`
}

// latestLines returns the latest non-NaN values of the columns whose name
// starts with prefix.
func latestLines(f *market.Frame, prefix string) []float64 {
	var out []float64
	for _, name := range f.Names() {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if v, _ := f.Last(name); !isNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// AVWAPChannel matches the latest Close against the channel edge. Support
// is the lowest live valley line, resistance the highest live peak line;
// when no such line exists every aVWAP_ column is considered.
func AVWAPChannel(f *market.Frame, p *AVWAPChannelParams) (*Match, error) {
	prefix, pick, signal := "aVWAP_valley_", math.Min, "aVWAP_Support"
	if p.Mode == "resistance" {
		prefix, pick, signal = "aVWAP_peak_", math.Max, "aVWAP_Resistance"
	}
	levels := latestLines(f, prefix)
	if len(levels) == 0 {
		levels = latestLines(f, "aVWAP_")
	}
	close, ok := f.Last(market.Close)
	if len(levels) == 0 || !ok || isNaN(close) {
		return nil, nil
	}
	level := levels[0]
	for _, v := range levels[1:] {
		level = pick(level, v)
	}

	d := distancePct(close, level)
	if !nearLevel(d, p.DistancePct, p.Direction, p.OutsideRange) {
		return nil, nil
	}

	var position string
	switch {
	case p.Direction == "within" && p.OutsideRange:
		position = "Outside Range"
	case p.Direction == "within":
		position = "Within Range"
	case p.Direction == "below" && p.OutsideRange:
		position = "Extended Below"
	case p.Direction == "below":
		position = "Below (Near)"
	case p.OutsideRange:
		position = "Extended Above"
	default:
		position = "Above (Near)"
	}

	return at(f, f.Len()-1).
		Add("Signal", signal+"_"+p.Direction).
		Add("aVWAP_Level", level).
		Add("Distance_Pct", d).
		Add("Threshold_Pct", p.DistancePct).
		Add("Position", position).
		Add("Outside_Range", p.OutsideRange), nil
}

// AVWAPAvgParams configures the aVWAP_avg criterion.
type AVWAPAvgParams struct {
	Mode         string  `yaml:"mode" default:"combined" validate:"oneof=combined peaks valleys"`
	DistancePct  float64 `yaml:"distance_pct" default:"1" validate:"gte=0"`
	Direction    string  `yaml:"direction" default:"within" validate:"oneof=below above within"`
	OutsideRange bool    `yaml:"outside_range"`
}

var avgColumns = map[string]struct{ column, signal string }{
	"combined": {"Peaks_Valleys_avg", "aVWAP_avg"},
	"peaks":    {"Peaks_avg", "Peaks_avg"},
	"valleys":  {"Valleys_avg", "Valleys_avg"},
}

// AVWAPAvg matches the latest Close against one of the aVWAP averages.
func AVWAPAvg(f *market.Frame, p *AVWAPAvgParams) (*Match, error) {
	spec := avgColumns[p.Mode]
	avg, ok := f.Last(spec.column)
	if !ok || isNaN(avg) {
		return nil, nil
	}
	close, _ := f.Last(market.Close)
	if isNaN(close) {
		return nil, nil
	}

	d := distancePct(close, avg)
	if !nearLevel(d, p.DistancePct, p.Direction, p.OutsideRange) {
		return nil, nil
	}

	subject := p.Mode
	if p.Mode == "combined" {
		subject = "aVWAP"
	}
	position := map[string]string{"below": "Below ", "above": "Above "}[p.Direction]
	if position == "" {
		position = "Near "
	}
	position += subject
	signal := spec.signal + "_" + p.Direction
	if p.OutsideRange {
		position += " (Extended)"
		signal += "_extended"
	}

	return at(f, f.Len()-1).
		Add("Signal", signal).
		Add("Average_Level", avg).
		Add("Distance_Pct", d).
		Add("Position", position).
		Add("Mode", p.Mode), nil
}

func init() {
	Register("aVWAP_channel", AVWAPChannel)
	Register("aVWAP_avg", AVWAPAvg)
}
