package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/screener/config"
	"github.com/rustyeddy/screener/market"
)

func TestParseTimeframes(t *testing.T) {
	tfs, err := parseTimeframes([]string{"daily", "1h", "weekly"})
	require.NoError(t, err)
	assert.Equal(t, []market.Timeframe{market.Daily, market.OneHour, market.Weekly}, tfs)

	_, err = parseTimeframes([]string{"2day"})
	assert.Error(t, err)
}

func TestConfigInitThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screener.yaml")

	rootCmd.SetArgs([]string{"config", "init", "-o", path})
	require.NoError(t, rootCmd.Execute())

	cfgFile = path
	t.Cleanup(func() { cfgFile = "" })
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestCommandTree(t *testing.T) {
	for _, args := range [][]string{
		{"indicators", "run"},
		{"indicators", "list"},
		{"scan", "run"},
		{"scan", "list"},
		{"scan", "criteria"},
		{"fetch"},
		{"journal", "run"},
		{"journal", "today"},
		{"journal", "day"},
		{"watch"},
		{"version"},
	} {
		c, _, err := rootCmd.Find(args)
		require.NoError(t, err, args)
		assert.Equal(t, args[len(args)-1], c.Name())
	}
}
