package criteria

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/screener/market"
)

// NotFoundError is returned when a scan names an unregistered criterion.
type NotFoundError struct {
	Name      string
	Available []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("criterion %q not found (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// ConfigError reports parameters that failed to bind to a criterion.
type ConfigError struct {
	Criterion string
	Err       error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("criterion %s: invalid params: %v", e.Criterion, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// EvaluationError wraps a criterion failure with the frame it ran on.
type EvaluationError struct {
	Ticker    string
	Timeframe market.Timeframe
	Criterion string
	Err       error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("criterion %s on %s %s: %v", e.Criterion, e.Ticker, e.Timeframe, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }
