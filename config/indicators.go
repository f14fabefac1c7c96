package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rustyeddy/screener/internal/params"
	"github.com/rustyeddy/screener/market"
	"gopkg.in/yaml.v3"
)

// Error reports a named configuration item that does not exist.
type Error struct {
	Kind      string
	Name      string
	Available []string
}

func (e *Error) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
	}
	return fmt.Sprintf("%s %q not found (available: %s)", e.Kind, e.Name, strings.Join(e.Available, ", "))
}

const (
	indicatorPrefix = "ind_conf_"
	scanPrefix      = "scan_conf_"
	scanListsFile   = "scan_lists.yaml"
)

// IndicatorConfig lists the indicators to compute per timeframe and their
// parameters.
type IndicatorConfig struct {
	ID         string
	Indicators map[market.Timeframe][]string
	Params     map[market.Timeframe]map[string]params.Raw
}

type rawIndicatorConfig struct {
	Indicators map[string][]string              `yaml:"indicators"`
	Params     map[string]map[string]params.Raw `yaml:"params"`
}

// Timeframes returns the configured timeframes, slowest first.
func (c *IndicatorConfig) Timeframes() []market.Timeframe {
	var out []market.Timeframe
	for _, tf := range market.Timeframes() {
		if _, ok := c.Indicators[tf]; ok {
			out = append(out, tf)
		}
	}
	return out
}

// ParseIndicatorConfig decodes an indicator configuration. Timeframe keys
// accept every alias and are normalised.
func ParseIndicatorConfig(id string, data []byte) (*IndicatorConfig, error) {
	var raw rawIndicatorConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse indicator config %s: %w", id, err)
	}
	if len(raw.Indicators) == 0 {
		return nil, fmt.Errorf("indicator config %s: indicators is required", id)
	}

	cfg := &IndicatorConfig{
		ID:         id,
		Indicators: make(map[market.Timeframe][]string, len(raw.Indicators)),
		Params:     make(map[market.Timeframe]map[string]params.Raw, len(raw.Params)),
	}
	for key, names := range raw.Indicators {
		tf, err := market.ParseTimeframe(key)
		if err != nil {
			return nil, fmt.Errorf("indicator config %s: %w", id, err)
		}
		cfg.Indicators[tf] = names
	}
	for key, ps := range raw.Params {
		tf, err := market.ParseTimeframe(key)
		if err != nil {
			return nil, fmt.Errorf("indicator config %s params: %w", id, err)
		}
		if _, ok := cfg.Indicators[tf]; !ok {
			return nil, fmt.Errorf("indicator config %s: params for %s, which lists no indicators", id, tf)
		}
		cfg.Params[tf] = ps
	}
	return cfg, nil
}

// IndicatorConfigPath returns the file holding configuration id.
func IndicatorConfigPath(dir, id string) string {
	return filepath.Join(dir, indicatorPrefix+id+".yaml")
}

// LoadIndicatorConfig reads ind_conf_{id}.yaml from dir. A missing file is
// reported as an *Error listing the ids that exist.
func LoadIndicatorConfig(dir, id string) (*IndicatorConfig, error) {
	data, err := os.ReadFile(IndicatorConfigPath(dir, id))
	if err != nil {
		if os.IsNotExist(err) {
			ids, _ := ListIndicatorConfigs(dir)
			return nil, &Error{Kind: "indicator config", Name: id, Available: ids}
		}
		return nil, fmt.Errorf("read indicator config: %w", err)
	}
	return ParseIndicatorConfig(id, data)
}

// ListIndicatorConfigs returns the ids of the indicator configs in dir.
func ListIndicatorConfigs(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, indicatorPrefix+"*.yaml"))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		base := filepath.Base(m)
		ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(base, indicatorPrefix), ".yaml"))
	}
	sort.Strings(ids)
	return ids, nil
}
