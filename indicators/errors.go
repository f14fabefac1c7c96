package indicators

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/screener/market"
)

// PluginNotFoundError is returned when an indicator name has no registered
// plugin.
type PluginNotFoundError struct {
	Name      string
	Available []string
}

func (e *PluginNotFoundError) Error() string {
	return fmt.Sprintf("indicator %q not found (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// ConfigError reports parameters that failed to bind to a plugin.
type ConfigError struct {
	Plugin string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("indicator %s: invalid params: %v", e.Plugin, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ComputationError wraps a plugin failure with the frame it ran on.
type ComputationError struct {
	Ticker    string
	Timeframe market.Timeframe
	Plugin    string
	Err       error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("indicator %s on %s %s: %v", e.Plugin, e.Ticker, e.Timeframe, e.Err)
}

func (e *ComputationError) Unwrap() error { return e.Err }
