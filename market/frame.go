package market

import (
	"fmt"
	"math"
	"time"
)

// Canonical OHLCV column names.
const (
	Open   = "Open"
	High   = "High"
	Low    = "Low"
	Close  = "Close"
	Volume = "Volume"
)

// OHLCV lists the canonical price columns in file order.
var OHLCV = []string{Open, High, Low, Close, Volume}

// Column is one named series aligned to a frame's dates.
type Column struct {
	Name   string
	Values []float64
}

// Columns is an ordered bundle of named series. It is the single output
// type of every indicator plugin.
type Columns []Column

// Add appends a column.
func (c *Columns) Add(name string, values []float64) {
	*c = append(*c, Column{Name: name, Values: values})
}

// AddBool appends a boolean column stored as 0/1.
func (c *Columns) AddBool(name string, values []bool) {
	out := make([]float64, len(values))
	for i, v := range values {
		if v {
			out[i] = 1
		}
	}
	c.Add(name, out)
}

// Get returns the values for name.
func (c Columns) Get(name string) ([]float64, bool) {
	for _, col := range c {
		if col.Name == name {
			return col.Values, true
		}
	}
	return nil, false
}

// Names returns the column names in order.
func (c Columns) Names() []string {
	out := make([]string, len(c))
	for i, col := range c {
		out[i] = col.Name
	}
	return out
}

// Frame is a time indexed OHLCV table for one ticker and timeframe.
//
// Column slices are shared between a frame and its clones and must never be
// written in place. Set and Merge replace whole slices, so every derived
// frame is copy-on-write with respect to its parent.
type Frame struct {
	Ticker    string
	Timeframe Timeframe
	Dates     []time.Time

	names []string
	index map[string]int
	data  [][]float64
}

// NewFrame returns an empty frame over dates.
func NewFrame(ticker string, tf Timeframe, dates []time.Time) *Frame {
	return &Frame{
		Ticker:    ticker,
		Timeframe: tf,
		Dates:     dates,
		index:     make(map[string]int),
	}
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	return len(f.Dates)
}

// Names returns a copy of the column names in order.
func (f *Frame) Names() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Has reports whether every named column exists.
func (f *Frame) Has(names ...string) bool {
	for _, n := range names {
		if _, ok := f.index[n]; !ok {
			return false
		}
	}
	return true
}

// Col returns the named column. Callers must treat it as read-only.
func (f *Frame) Col(name string) ([]float64, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.data[i], true
}

// Value returns the value of name at row i.
func (f *Frame) Value(name string, i int) (float64, bool) {
	col, ok := f.Col(name)
	if !ok || i < 0 || i >= len(col) {
		return math.NaN(), false
	}
	return col[i], true
}

// Last returns the value of name at the latest row.
func (f *Frame) Last(name string) (float64, bool) {
	return f.Value(name, f.Len()-1)
}

// LastDate returns the date of the latest row.
func (f *Frame) LastDate() time.Time {
	if f.Len() == 0 {
		return time.Time{}
	}
	return f.Dates[f.Len()-1]
}

// Bar returns row i as a Bar. Missing price columns read as NaN.
func (f *Frame) Bar(i int) Bar {
	get := func(name string) float64 {
		v, _ := f.Value(name, i)
		return v
	}
	return Bar{
		Time:   f.Dates[i],
		Open:   get(Open),
		High:   get(High),
		Low:    get(Low),
		Close:  get(Close),
		Volume: get(Volume),
	}
}

// Set adds or replaces a column on f.
func (f *Frame) Set(name string, values []float64) error {
	if len(values) != f.Len() {
		return fmt.Errorf("column %s has %d rows, frame has %d", name, len(values), f.Len())
	}
	if f.index == nil {
		f.index = make(map[string]int)
	}
	if i, ok := f.index[name]; ok {
		f.data[i] = values
		return nil
	}
	f.index[name] = len(f.names)
	f.names = append(f.names, name)
	f.data = append(f.data, values)
	return nil
}

// Clone returns a frame sharing f's column slices but not its column index.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		Ticker:    f.Ticker,
		Timeframe: f.Timeframe,
		Dates:     f.Dates,
		names:     make([]string, len(f.names)),
		index:     make(map[string]int, len(f.index)),
		data:      make([][]float64, len(f.data)),
	}
	copy(out.names, f.names)
	copy(out.data, f.data)
	for k, v := range f.index {
		out.index[k] = v
	}
	return out
}

// Merge returns a new frame holding f's columns followed by cols. The
// column index is grown once for the whole bundle. A column whose name
// already exists replaces the earlier one in place.
func (f *Frame) Merge(cols Columns) (*Frame, error) {
	out := &Frame{
		Ticker:    f.Ticker,
		Timeframe: f.Timeframe,
		Dates:     f.Dates,
		names:     make([]string, len(f.names), len(f.names)+len(cols)),
		index:     make(map[string]int, len(f.index)+len(cols)),
		data:      make([][]float64, len(f.data), len(f.data)+len(cols)),
	}
	copy(out.names, f.names)
	copy(out.data, f.data)
	for k, v := range f.index {
		out.index[k] = v
	}
	for _, c := range cols {
		if err := out.Set(c.Name, c.Values); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Validate checks that dates are strictly increasing and that every column
// matches the row count.
func (f *Frame) Validate() error {
	for i := 1; i < len(f.Dates); i++ {
		if !f.Dates[i].After(f.Dates[i-1]) {
			return fmt.Errorf("dates not strictly increasing at row %d (%s)", i, f.Dates[i].Format(time.RFC3339))
		}
	}
	for i, name := range f.names {
		if len(f.data[i]) != f.Len() {
			return fmt.Errorf("column %s has %d rows, frame has %d", name, len(f.data[i]), f.Len())
		}
	}
	return nil
}

// NewOHLCVFrame builds a frame from bars.
func NewOHLCVFrame(ticker string, tf Timeframe, bars []Bar) *Frame {
	dates := make([]time.Time, len(bars))
	o := make([]float64, len(bars))
	h := make([]float64, len(bars))
	l := make([]float64, len(bars))
	c := make([]float64, len(bars))
	v := make([]float64, len(bars))
	for i, b := range bars {
		dates[i] = b.Time
		o[i], h[i], l[i], c[i], v[i] = b.Open, b.High, b.Low, b.Close, b.Volume
	}
	f := NewFrame(ticker, tf, dates)
	_ = f.Set(Open, o)
	_ = f.Set(High, h)
	_ = f.Set(Low, l)
	_ = f.Set(Close, c)
	_ = f.Set(Volume, v)
	return f
}
