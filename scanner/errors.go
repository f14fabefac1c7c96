package scanner

import (
	"fmt"

	"github.com/rustyeddy/screener/market"
)

// ConfigError reports a scan that cannot be prepared.
type ConfigError struct {
	Scan      string
	Criterion string
	Timeframe market.Timeframe
	Err       error
}

func (e *ConfigError) Error() string {
	where := e.Scan
	if e.Criterion != "" {
		where += " " + e.Criterion
	}
	if e.Timeframe != "" {
		where += " (" + string(e.Timeframe) + ")"
	}
	return fmt.Sprintf("scan %s: %v", where, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
