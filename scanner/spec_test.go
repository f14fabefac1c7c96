package scanner

import (
	"testing"

	"github.com/rustyeddy/screener/internal/params"
	"github.com/rustyeddy/screener/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const scanYAML = `
simple:
  criteria: StDev
  params:
    StDev: {threshold: 2, mode: oversold}
list:
  criteria: [OB_aVWAP, OB_aVWAP]
  timeframe: d
  params:
    OB_aVWAP:
      - {mode: bearish, direction: below}
      - {mode: bullish, direction: above}
advanced:
  logic: or
  criteria:
    weekly: supertrend
    d: [OB, QQEMOD]
  params:
    OB:
      daily: {mode: support}
      weekly:
        - {mode: bullish}
    QQEMOD: {mode: oversold}
`

func TestSpecUnmarshal(t *testing.T) {
	var specs map[string]*Spec
	require.NoError(t, yaml.Unmarshal([]byte(scanYAML), &specs))

	s := specs["simple"]
	assert.Equal(t, Simple, s.Mode)
	assert.Equal(t, []string{"StDev"}, s.Criteria)
	assert.Equal(t, And, s.Logic)
	assert.Equal(t, params.Raw{"threshold": 2, "mode": "oversold"}, s.Params["StDev"].Flat)

	l := specs["list"]
	assert.Equal(t, List, l.Mode)
	assert.Equal(t, market.Daily, l.Timeframe)
	require.Len(t, l.Params["OB_aVWAP"].List, 2)
	assert.Equal(t, "bullish", l.Params["OB_aVWAP"].List[1]["mode"])

	a := specs["advanced"]
	assert.Equal(t, Advanced, a.Mode)
	assert.Equal(t, Or, a.Logic)
	assert.Equal(t, []Step{
		{Timeframe: market.Weekly, Criteria: []string{"supertrend"}},
		{Timeframe: market.Daily, Criteria: []string{"OB", "QQEMOD"}},
	}, a.Steps)
	assert.Equal(t, []market.Timeframe{market.Weekly, market.Daily}, a.Timeframes())
	ob := a.Params["OB"]
	assert.Nil(t, ob.Flat)
	assert.Equal(t, params.Raw{"mode": "support"}, ob.ByTimeframe[market.Daily].Flat)
	assert.Len(t, ob.ByTimeframe[market.Weekly].List, 1)
}

func TestSpecUnmarshalErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing criteria", "logic: AND"},
		{"bad logic", "criteria: OB\nlogic: XOR"},
		{"bad timeframe key", "criteria: {fortnight: OB}"},
		{"empty list", "criteria: []"},
		{"mixed params", "criteria: OB\nparams:\n  OB: {daily: {mode: support}, mode: bullish}"},
		{"scalar params", "criteria: OB\nparams:\n  OB: bullish"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Spec
			assert.Error(t, yaml.Unmarshal([]byte(tt.yaml), &s))
		})
	}
}

func TestParamsResolve(t *testing.T) {
	ps := Params{
		"A": {
			Entry: Entry{List: []params.Raw{{"k": 1}, {"k": 2}}},
			ByTimeframe: map[market.Timeframe]Entry{
				market.Daily:  {List: []params.Raw{{"k": 10}}},
				market.Weekly: {Flat: params.Raw{"k": 20}},
			},
		},
		"B": {Entry: Entry{Flat: params.Raw{"k": 3}}},
	}

	tests := []struct {
		name string
		crit string
		tf   market.Timeframe
		occ  int
		want params.Raw
		err  bool
	}{
		{"timeframe list", "A", market.Daily, 0, params.Raw{"k": 10}, false},
		{"timeframe list too short", "A", market.Daily, 1, nil, true},
		{"timeframe flat shared", "A", market.Weekly, 1, params.Raw{"k": 20}, false},
		{"top list", "A", market.OneHour, 1, params.Raw{"k": 2}, false},
		{"top list without timeframe", "A", "", 0, params.Raw{"k": 1}, false},
		{"top list too short", "A", "", 2, nil, true},
		{"flat", "B", market.Daily, 4, params.Raw{"k": 3}, false},
		{"defaults", "C", market.Daily, 0, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ps.Resolve(tt.crit, tt.tf, tt.occ)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConstructors(t *testing.T) {
	assert.NoError(t, NewSimple("OB").Validate())
	assert.NoError(t, NewList("OB", "OB").Validate())
	assert.Error(t, NewList().Validate())
	assert.NoError(t, NewAdvanced(And, Step{Timeframe: market.Daily, Criteria: []string{"OB"}}).Validate())
	assert.Error(t, NewAdvanced(And,
		Step{Timeframe: market.Daily, Criteria: []string{"OB"}},
		Step{Timeframe: market.Daily, Criteria: []string{"SMA"}}).Validate())
	assert.Error(t, NewAdvanced("XOR", Step{Timeframe: market.Daily, Criteria: []string{"OB"}}).Validate())
}
