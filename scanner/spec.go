// Package scanner runs criteria over indicator files and collects the
// matching tickers into a result table.
package scanner

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/screener/internal/params"
	"github.com/rustyeddy/screener/market"
	"gopkg.in/yaml.v3"
)

// Mode is the shape of a scan.
type Mode string

const (
	// Simple applies one criterion to every file.
	Simple Mode = "SIMPLE"
	// List applies an ordered list of criteria to every file; all must pass.
	List Mode = "LIST"
	// Advanced applies criteria per timeframe and joins the timeframes of a
	// ticker with Logic.
	Advanced Mode = "ADVANCED"
)

// Logic joins per-timeframe results in an advanced scan.
type Logic string

const (
	And Logic = "AND"
	Or  Logic = "OR"
)

// Step is the list of criteria one timeframe must pass.
type Step struct {
	Timeframe market.Timeframe
	Criteria  []string
}

// Spec describes one named scan.
type Spec struct {
	Mode Mode
	// Criteria is used by Simple and List scans.
	Criteria []string
	// Timeframe restricts a Simple or List scan to one timeframe. Empty
	// scans every file.
	Timeframe market.Timeframe
	// Steps is used by Advanced scans, in configuration order.
	Steps  []Step
	Logic  Logic
	Params Params
}

// NewSimple returns a scan of one criterion.
func NewSimple(name string) *Spec {
	return &Spec{Mode: Simple, Criteria: []string{name}, Logic: And, Params: Params{}}
}

// NewList returns a scan where every criterion in names must pass.
func NewList(names ...string) *Spec {
	return &Spec{Mode: List, Criteria: names, Logic: And, Params: Params{}}
}

// NewAdvanced returns a per-timeframe scan joined with logic.
func NewAdvanced(logic Logic, steps ...Step) *Spec {
	return &Spec{Mode: Advanced, Steps: steps, Logic: logic, Params: Params{}}
}

// Timeframes returns the timeframes an advanced scan requires.
func (s *Spec) Timeframes() []market.Timeframe {
	out := make([]market.Timeframe, len(s.Steps))
	for i, st := range s.Steps {
		out[i] = st.Timeframe
	}
	return out
}

// Validate checks the shape of s.
func (s *Spec) Validate() error {
	switch s.Logic {
	case And, Or:
	default:
		return fmt.Errorf("logic must be AND or OR, got %q", s.Logic)
	}
	switch s.Mode {
	case Simple:
		if len(s.Criteria) != 1 {
			return fmt.Errorf("simple scan needs exactly one criterion, got %d", len(s.Criteria))
		}
	case List:
		if len(s.Criteria) == 0 {
			return fmt.Errorf("criteria list is empty")
		}
	case Advanced:
		if len(s.Steps) == 0 {
			return fmt.Errorf("criteria mapping is empty")
		}
		seen := make(map[market.Timeframe]bool)
		for _, st := range s.Steps {
			if len(st.Criteria) == 0 {
				return fmt.Errorf("timeframe %s has no criteria", st.Timeframe)
			}
			if seen[st.Timeframe] {
				return fmt.Errorf("timeframe %s listed twice", st.Timeframe)
			}
			seen[st.Timeframe] = true
		}
	default:
		return fmt.Errorf("unknown scan mode %q", s.Mode)
	}
	return nil
}

type rawSpec struct {
	Criteria  yaml.Node            `yaml:"criteria"`
	Logic     string               `yaml:"logic"`
	Timeframe string               `yaml:"timeframe"`
	Params    map[string]yaml.Node `yaml:"params"`
}

// UnmarshalYAML decodes the criteria shape (a name, a list of names, or a
// timeframe mapping), the logic and the params of a scan.
func (s *Spec) UnmarshalYAML(value *yaml.Node) error {
	var raw rawSpec
	if err := value.Decode(&raw); err != nil {
		return err
	}

	*s = Spec{Logic: And, Params: Params{}}
	if raw.Logic != "" {
		s.Logic = Logic(strings.ToUpper(raw.Logic))
	}
	if raw.Timeframe != "" {
		tf, err := market.ParseTimeframe(raw.Timeframe)
		if err != nil {
			return err
		}
		s.Timeframe = tf
	}

	c := &raw.Criteria
	switch c.Kind {
	case yaml.ScalarNode:
		s.Mode = Simple
		s.Criteria = []string{c.Value}
	case yaml.SequenceNode:
		s.Mode = List
		if err := c.Decode(&s.Criteria); err != nil {
			return err
		}
	case yaml.MappingNode:
		s.Mode = Advanced
		for i := 0; i+1 < len(c.Content); i += 2 {
			tf, err := market.ParseTimeframe(c.Content[i].Value)
			if err != nil {
				return fmt.Errorf("line %d: %w", c.Content[i].Line, err)
			}
			names, err := nameList(c.Content[i+1])
			if err != nil {
				return err
			}
			s.Steps = append(s.Steps, Step{Timeframe: tf, Criteria: names})
		}
	case 0:
		return fmt.Errorf("criteria is required")
	default:
		return fmt.Errorf("line %d: criteria must be a name, a list or a timeframe mapping", c.Line)
	}

	for name, node := range raw.Params {
		p, err := decodeParam(&node)
		if err != nil {
			return fmt.Errorf("params.%s: %w", name, err)
		}
		s.Params[name] = p
	}
	return s.Validate()
}

func nameList(n *yaml.Node) ([]string, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		return []string{n.Value}, nil
	case yaml.SequenceNode:
		var out []string
		err := n.Decode(&out)
		return out, err
	}
	return nil, fmt.Errorf("line %d: expected a criterion name or list", n.Line)
}

// Entry is a parameter set shared by every occurrence (Flat) or one map
// per occurrence (List).
type Entry struct {
	Flat params.Raw
	List []params.Raw
}

// Param holds the parameters of one criterion name, optionally split by
// timeframe.
type Param struct {
	Entry
	ByTimeframe map[market.Timeframe]Entry
}

// Params maps criterion names to their parameters.
type Params map[string]Param

func decodeEntry(n *yaml.Node) (Entry, error) {
	var e Entry
	switch n.Kind {
	case yaml.MappingNode:
		e.Flat = params.Raw{}
		return e, n.Decode(&e.Flat)
	case yaml.SequenceNode:
		return e, n.Decode(&e.List)
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return e, nil
		}
	}
	return e, fmt.Errorf("line %d: expected a parameter map or a list of maps", n.Line)
}

// decodeParam reads a flat map, a list of maps, or a mapping whose keys are
// all timeframes. A mapping that mixes timeframe keys with other keys is an
// error.
func decodeParam(n *yaml.Node) (Param, error) {
	if n.Kind != yaml.MappingNode || len(n.Content) == 0 {
		e, err := decodeEntry(n)
		return Param{Entry: e}, err
	}

	timeframes := 0
	for i := 0; i < len(n.Content); i += 2 {
		if _, err := market.ParseTimeframe(n.Content[i].Value); err == nil {
			timeframes++
		}
	}
	switch timeframes {
	case 0:
		e, err := decodeEntry(n)
		return Param{Entry: e}, err
	case len(n.Content) / 2:
	default:
		return Param{}, fmt.Errorf("line %d: parameter keys mix timeframes and options", n.Line)
	}

	p := Param{ByTimeframe: make(map[market.Timeframe]Entry)}
	for i := 0; i+1 < len(n.Content); i += 2 {
		tf, _ := market.ParseTimeframe(n.Content[i].Value)
		e, err := decodeEntry(n.Content[i+1])
		if err != nil {
			return Param{}, fmt.Errorf("%s: %w", tf, err)
		}
		p.ByTimeframe[tf] = e
	}
	return p, nil
}

func (e Entry) pick(occ int) (raw params.Raw, found bool, err error) {
	switch {
	case e.List != nil:
		if occ >= len(e.List) {
			return nil, true, fmt.Errorf("parameter list has %d entries, occurrence %d needs %d", len(e.List), occ, occ+1)
		}
		return e.List[occ], true, nil
	case e.Flat != nil:
		return e.Flat, true, nil
	}
	return nil, false, nil
}

// Resolve returns the parameters for occurrence occ of criterion name on
// timeframe tf. A per-timeframe entry wins over the top-level one; within
// an entry a list is indexed by occurrence and a flat map is shared. A nil
// map means the criterion's defaults. tf may be empty.
func (p Params) Resolve(name string, tf market.Timeframe, occ int) (params.Raw, error) {
	param, ok := p[name]
	if !ok {
		return nil, nil
	}
	if e, ok := param.ByTimeframe[tf]; ok && tf != "" {
		raw, found, err := e.pick(occ)
		if found || err != nil {
			return raw, err
		}
	}
	raw, _, err := param.Entry.pick(occ)
	return raw, err
}
