package indicators

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rustyeddy/screener/internal/params"
	"github.com/rustyeddy/screener/market"
)

// Func is the typed form of an indicator plugin. It reads the frame and
// returns new columns aligned to it. It must not modify the frame.
type Func[P any] func(f *market.Frame, p *P) (market.Columns, error)

// Plugin is a registered indicator that can bind raw parameters.
type Plugin interface {
	Name() string
	Bind(raw params.Raw) (Bound, error)
}

// Bound is a plugin with validated parameters, ready to run on any frame.
type Bound interface {
	Name() string
	Compute(f *market.Frame) (market.Columns, error)
}

type plugin[P any] struct {
	name string
	fn   Func[P]
}

// New wraps a typed plugin function.
func New[P any](name string, fn Func[P]) Plugin {
	return plugin[P]{name: name, fn: fn}
}

func (p plugin[P]) Name() string { return p.name }

func (p plugin[P]) Bind(raw params.Raw) (Bound, error) {
	v, err := params.New[P](raw)
	if err != nil {
		return nil, &ConfigError{Plugin: p.name, Err: err}
	}
	return bound[P]{plugin: p, params: v}, nil
}

// Bind pairs a typed plugin function with already built parameters. It is
// used when one indicator composes others with parameters it derived itself.
func Bind[P any](name string, fn Func[P], p *P) Bound {
	return bound[P]{plugin: plugin[P]{name: name, fn: fn}, params: p}
}

type bound[P any] struct {
	plugin[P]
	params *P
}

func (b bound[P]) Compute(f *market.Frame) (market.Columns, error) {
	return b.fn(f, b.params)
}

// Registry maps indicator names to plugins.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]Plugin)}
}

// Default holds every built-in indicator.
var Default = NewRegistry()

// Register adds p. Registering the same name twice panics.
func (r *Registry) Register(p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.plugins[p.Name()]; dup {
		panic(fmt.Sprintf("indicator %s registered twice", p.Name()))
	}
	r.plugins[p.Name()] = p
}

// Get resolves a plugin by name.
func (r *Registry) Get(name string) (Plugin, error) {
	r.mu.RLock()
	p, ok := r.plugins[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &PluginNotFoundError{Name: name, Available: r.Names()}
	}
	return p, nil
}

// Names lists registered indicators in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.plugins))
	for n := range r.plugins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Register adds a typed plugin to the default registry.
func Register[P any](name string, fn Func[P]) {
	Default.Register(New(name, fn))
}
