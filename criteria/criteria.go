// Package criteria holds the scan rules evaluated against indicator frames.
//
// A criterion reads an indicator-augmented frame and reports at most one
// match. It never modifies the frame. A frame that lacks a column the
// criterion needs is simply not a match.
package criteria

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rustyeddy/screener/internal/params"
	"github.com/rustyeddy/screener/market"
)

// Field is one named diagnostic value attached to a match.
type Field struct {
	Name  string
	Value any
}

// Match is a positive criterion result.
type Match struct {
	// Date is the bar the criterion matched on.
	Date   time.Time
	Fields []Field
}

// Add appends a diagnostic field.
func (m *Match) Add(name string, v any) *Match {
	m.Fields = append(m.Fields, Field{Name: name, Value: v})
	return m
}

// Get returns the value of the named field.
func (m *Match) Get(name string) (any, bool) {
	for _, fld := range m.Fields {
		if fld.Name == name {
			return fld.Value, true
		}
	}
	return nil, false
}

// at returns a match dated at row i of f.
func at(f *market.Frame, i int) *Match {
	return &Match{Date: f.Dates[i]}
}

// Func is the typed form of a criterion. A nil match means no match.
type Func[P any] func(f *market.Frame, p *P) (*Match, error)

// Criterion is a registered rule that can bind raw parameters.
type Criterion interface {
	Name() string
	Bind(raw params.Raw) (Bound, error)
}

// Bound is a criterion with validated parameters.
type Bound interface {
	Name() string
	Evaluate(f *market.Frame) (*Match, error)
}

type criterion[P any] struct {
	name string
	fn   Func[P]
}

// New wraps a typed criterion function.
func New[P any](name string, fn Func[P]) Criterion {
	return criterion[P]{name: name, fn: fn}
}

func (c criterion[P]) Name() string { return c.name }

func (c criterion[P]) Bind(raw params.Raw) (Bound, error) {
	v, err := params.New[P](raw)
	if err != nil {
		return nil, &ConfigError{Criterion: c.name, Err: err}
	}
	return bound[P]{criterion: c, params: v}, nil
}

type bound[P any] struct {
	criterion[P]
	params *P
}

func (b bound[P]) Evaluate(f *market.Frame) (*Match, error) {
	if f.Len() == 0 {
		return nil, nil
	}
	return b.fn(f, b.params)
}

// Evaluate runs b on f and turns a failure or a panic into an
// EvaluationError.
func Evaluate(b Bound, f *market.Frame) (m *Match, err error) {
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, &EvaluationError{
				Ticker:    f.Ticker,
				Timeframe: f.Timeframe,
				Criterion: b.Name(),
				Err:       fmt.Errorf("panic: %v", r),
			}
		}
	}()

	m, err = b.Evaluate(f)
	if err != nil {
		return nil, &EvaluationError{
			Ticker:    f.Ticker,
			Timeframe: f.Timeframe,
			Criterion: b.Name(),
			Err:       err,
		}
	}
	return m, nil
}

// Registry maps criterion names to criteria.
type Registry struct {
	mu       sync.RWMutex
	criteria map[string]Criterion
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{criteria: make(map[string]Criterion)}
}

// Default holds every built-in criterion.
var Default = NewRegistry()

// Register adds c. Registering the same name twice panics.
func (r *Registry) Register(c Criterion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.criteria[c.Name()]; dup {
		panic(fmt.Sprintf("criterion %s registered twice", c.Name()))
	}
	r.criteria[c.Name()] = c
}

// Get resolves a criterion by name.
func (r *Registry) Get(name string) (Criterion, error) {
	r.mu.RLock()
	c, ok := r.criteria[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{Name: name, Available: r.Names()}
	}
	return c, nil
}

// Bind resolves name and binds raw onto its parameters.
func (r *Registry) Bind(name string, raw params.Raw) (Bound, error) {
	c, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return c.Bind(raw)
}

// Names lists registered criteria in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.criteria))
	for n := range r.criteria {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Register adds a typed criterion to the default registry.
func Register[P any](name string, fn Func[P]) {
	Default.Register(New(name, fn))
}
