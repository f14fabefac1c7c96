package indicators

import (
	"fmt"

	"github.com/rustyeddy/screener/internal/params"
	"github.com/rustyeddy/screener/market"
)

// Compositor runs an ordered list of indicators over a frame and merges
// their columns into a new frame.
type Compositor struct {
	Registry *Registry
}

// NewCompositor returns a compositor over r. A nil registry uses Default.
func NewCompositor(r *Registry) *Compositor {
	if r == nil {
		r = Default
	}
	return &Compositor{Registry: r}
}

// Pipeline is an ordered list of bound indicators.
type Pipeline struct {
	steps []Bound
}

// NewPipeline builds a pipeline from bound steps.
func NewPipeline(steps ...Bound) *Pipeline {
	return &Pipeline{steps: steps}
}

// Prepare resolves names and binds their parameters. Names without an entry
// in raw run with their defaults.
func (c *Compositor) Prepare(names []string, raw map[string]params.Raw) (*Pipeline, error) {
	steps := make([]Bound, 0, len(names))
	for _, name := range names {
		p, err := c.Registry.Get(name)
		if err != nil {
			return nil, err
		}
		b, err := p.Bind(raw[name])
		if err != nil {
			return nil, err
		}
		steps = append(steps, b)
	}
	return &Pipeline{steps: steps}, nil
}

// Names returns the indicator names in run order.
func (p *Pipeline) Names() []string {
	out := make([]string, len(p.steps))
	for i, s := range p.steps {
		out[i] = s.Name()
	}
	return out
}

// Apply runs every step on f and merges the outputs in one pass. Every
// step sees f as given, never the output of an earlier step. f itself is
// left untouched.
func (p *Pipeline) Apply(f *market.Frame) (*market.Frame, error) {
	var buffered market.Columns
	for _, s := range p.steps {
		cols, err := compute(s, f)
		if err != nil {
			return nil, &ComputationError{
				Ticker:    f.Ticker,
				Timeframe: f.Timeframe,
				Plugin:    s.Name(),
				Err:       err,
			}
		}
		buffered = append(buffered, cols...)
	}
	return f.Merge(buffered)
}

// Apply prepares and runs names on f in one call.
func (c *Compositor) Apply(f *market.Frame, names []string, raw map[string]params.Raw) (*market.Frame, error) {
	p, err := c.Prepare(names, raw)
	if err != nil {
		return nil, err
	}
	return p.Apply(f)
}

// Apply runs names from the default registry on f.
func Apply(f *market.Frame, names []string, raw map[string]params.Raw) (*market.Frame, error) {
	return NewCompositor(Default).Apply(f, names, raw)
}

func compute(s Bound, f *market.Frame) (cols market.Columns, err error) {
	defer func() {
		if r := recover(); r != nil {
			cols, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	cols, err = s.Compute(f)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate output column %s", c.Name)
		}
		seen[c.Name] = true
		if len(c.Values) != f.Len() {
			return nil, fmt.Errorf("column %s has %d rows, frame has %d", c.Name, len(c.Values), f.Len())
		}
	}
	return cols, nil
}
