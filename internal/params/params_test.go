package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type subParams struct {
	Periods        int  `yaml:"periods" default:"25" validate:"gt=0"`
	MaxLines       *int `yaml:"max_lines" validate:"omitempty,gt=0"`
	IncludeBullish bool `yaml:"include_bullish" default:"true"`
}

type testParams struct {
	Period  int       `yaml:"period" default:"14" validate:"gt=0"`
	Factor  float64   `yaml:"factor" default:"1.5"`
	Mode    string    `yaml:"mode" default:"within" validate:"oneof=within above below"`
	Periods []int     `yaml:"periods" default:"[200]" validate:"min=1,dive,gt=0"`
	Sub     subParams `yaml:"sub"`
}

func TestBindDefaults(t *testing.T) {
	p, err := New[testParams](nil)
	require.NoError(t, err)
	assert.Equal(t, 14, p.Period)
	assert.Equal(t, 1.5, p.Factor)
	assert.Equal(t, "within", p.Mode)
	assert.Equal(t, []int{200}, p.Periods)
	assert.Equal(t, 25, p.Sub.Periods)
	assert.Nil(t, p.Sub.MaxLines)
	assert.True(t, p.Sub.IncludeBullish)
}

func TestBindOverrides(t *testing.T) {
	p, err := New[testParams](Raw{
		"period":  7,
		"periods": []any{20, 50},
		"sub": map[string]any{
			"include_bullish": false,
			"max_lines":       3,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, p.Period)
	assert.Equal(t, []int{20, 50}, p.Periods)
	assert.False(t, p.Sub.IncludeBullish)
	assert.Equal(t, 25, p.Sub.Periods)
	require.NotNil(t, p.Sub.MaxLines)
	assert.Equal(t, 3, *p.Sub.MaxLines)
}

func TestBindErrors(t *testing.T) {
	tests := []struct {
		name   string
		raw    Raw
		errMsg string
	}{
		{"negative period", Raw{"period": -1}, "period must be greater than 0"},
		{"bad mode", Raw{"mode": "sideways"}, "mode must be one of: within, above, below"},
		{"unknown key", Raw{"perod": 3}, "perod"},
		{"nested", Raw{"sub": map[string]any{"periods": 0}}, "sub.periods must be greater than 0"},
		{"wrong type", Raw{"period": "abc"}, "decode params"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New[testParams](tt.raw)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
