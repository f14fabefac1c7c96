package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rustyeddy/screener/scanner"
	"gopkg.in/yaml.v3"
)

// Scans maps scan names to their definitions.
type Scans map[string]*scanner.Spec

// Names returns the scan names, sorted.
func (s Scans) Names() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Get returns a scan by name.
func (s Scans) Get(name string) (*scanner.Spec, error) {
	spec, ok := s[name]
	if !ok {
		return nil, &Error{Kind: "scan", Name: name, Available: s.Names()}
	}
	return spec, nil
}

// LoadScans reads every scan_conf_*.yaml in dir. A scan name defined in two
// files is an error.
func LoadScans(dir string) (Scans, error) {
	files, err := filepath.Glob(filepath.Join(dir, scanPrefix+"*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	out := make(Scans)
	from := make(map[string]string)
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read scan config: %w", err)
		}
		var specs map[string]*scanner.Spec
		if err := yaml.Unmarshal(data, &specs); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
		for name, spec := range specs {
			if prev, ok := from[name]; ok {
				return nil, fmt.Errorf("scan %s defined in %s and %s", name, prev, filepath.Base(path))
			}
			from[name] = filepath.Base(path)
			out[name] = spec
		}
	}
	return out, nil
}

// ScanLists maps list names to the scans they run, in order.
type ScanLists map[string][]string

// Names returns the list names, sorted.
func (l ScanLists) Names() []string {
	out := make([]string, 0, len(l))
	for n := range l {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Get returns the scans of a list.
func (l ScanLists) Get(name string) ([]string, error) {
	scans, ok := l[name]
	if !ok {
		return nil, &Error{Kind: "scan list", Name: name, Available: l.Names()}
	}
	return scans, nil
}

// Check reports the first list entry that names no scan in s.
func (l ScanLists) Check(s Scans) error {
	for _, list := range l.Names() {
		for _, name := range l[list] {
			if _, err := s.Get(name); err != nil {
				return fmt.Errorf("scan list %s: %w", list, err)
			}
		}
	}
	return nil
}

// LoadScanLists reads scan_lists.yaml from dir. A missing file yields no
// lists.
func LoadScanLists(dir string) (ScanLists, error) {
	data, err := os.ReadFile(filepath.Join(dir, scanListsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return ScanLists{}, nil
		}
		return nil, fmt.Errorf("read scan lists: %w", err)
	}
	var out ScanLists
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse %s: %w", scanListsFile, err)
	}
	if out == nil {
		out = ScanLists{}
	}
	return out, nil
}
