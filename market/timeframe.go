package market

import (
	"fmt"
	"strings"
)

// Timeframe is the bar aggregation period a Frame represents.
type Timeframe string

const (
	Weekly     Timeframe = "weekly"
	Daily      Timeframe = "daily"
	FourHour   Timeframe = "4hour"
	OneHour    Timeframe = "1hour"
	ThirtyMin  Timeframe = "30min"
	FifteenMin Timeframe = "15min"
	FiveMin    Timeframe = "5min"
	OneMin     Timeframe = "1min"
)

// timeframes is ordered from the slowest to the fastest period.
var timeframes = []Timeframe{Weekly, Daily, FourHour, OneHour, ThirtyMin, FifteenMin, FiveMin, OneMin}

var timeframeAliases = map[string]Timeframe{
	"weekly": Weekly, "week": Weekly, "1week": Weekly, "w": Weekly,
	"daily": Daily, "day": Daily, "1day": Daily, "d": Daily,
	"4hour": FourHour, "4h": FourHour,
	"1hour": OneHour, "hour": OneHour, "hourly": OneHour, "h": OneHour, "1h": OneHour,
	"30min": ThirtyMin, "30m": ThirtyMin, "30minutes": ThirtyMin,
	"15min": FifteenMin, "15m": FifteenMin, "15minutes": FifteenMin,
	"5min": FiveMin, "5m": FiveMin, "5minutes": FiveMin,
	"1min": OneMin, "1m": OneMin, "min": OneMin, "minute": OneMin, "m": OneMin,
}

// ParseTimeframe normalises a timeframe name or alias.
func ParseTimeframe(s string) (Timeframe, error) {
	tf, ok := timeframeAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("unknown timeframe %q", s)
	}
	return tf, nil
}

// Timeframes returns every supported timeframe, slowest first.
func Timeframes() []Timeframe {
	out := make([]Timeframe, len(timeframes))
	copy(out, timeframes)
	return out
}

// Valid reports whether t is a canonical timeframe name.
func (t Timeframe) Valid() bool {
	return t.Rank() >= 0
}

// Rank orders timeframes from slowest (0) to fastest. Unknown values rank -1.
func (t Timeframe) Rank() int {
	for i, tf := range timeframes {
		if tf == t {
			return i
		}
	}
	return -1
}

// Intraday reports whether bars are shorter than a day.
func (t Timeframe) Intraday() bool {
	return t.Rank() > Daily.Rank()
}

func (t Timeframe) String() string {
	return string(t)
}
