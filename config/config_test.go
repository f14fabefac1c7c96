package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, "data/tickers", cfg.Dirs.Tickers)
	assert.Equal(t, "none", cfg.Journal.Type)
	assert.Equal(t, 3, cfg.Tiingo.MaxRetries)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	with := func(mut func(*Config)) *Config {
		c := Default()
		mut(c)
		return c
	}

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			config:  Default(),
			wantErr: false,
		},
		{
			name:    "missing tickers dir",
			config:  with(func(c *Config) { c.Dirs.Tickers = "" }),
			wantErr: true,
			errMsg:  "dirs.tickers is required",
		},
		{
			name:    "missing scan configs dir",
			config:  with(func(c *Config) { c.Dirs.ScanConfigs = "" }),
			wantErr: true,
			errMsg:  "dirs.scan_configs is required",
		},
		{
			name:    "bad log format",
			config:  with(func(c *Config) { c.Log.Format = "xml" }),
			wantErr: true,
			errMsg:  "log.format must be 'console' or 'json'",
		},
		{
			name:    "bad journal type",
			config:  with(func(c *Config) { c.Journal.Type = "csv" }),
			wantErr: true,
			errMsg:  "journal.type must be 'none' or 'sqlite'",
		},
		{
			name:    "sqlite without path",
			config:  with(func(c *Config) { c.Journal.Type = "sqlite" }),
			wantErr: true,
			errMsg:  "journal db_path required for SQLite type",
		},
		{
			name:    "negative workers",
			config:  with(func(c *Config) { c.Workers = -1 }),
			wantErr: true,
			errMsg:  "workers must not be negative",
		},
		{
			name:    "bad timeout",
			config:  with(func(c *Config) { c.Tiingo.Timeout = "soon" }),
			wantErr: true,
			errMsg:  "tiingo.timeout must be a positive duration",
		},
		{
			name:    "negative retries",
			config:  with(func(c *Config) { c.Tiingo.MaxRetries = -2 }),
			wantErr: true,
			errMsg:  "tiingo.max_retries must not be negative",
		},
		{
			name: "bad cron",
			config: with(func(c *Config) {
				c.Schedule.Cron = "every day"
				c.Schedule.ScanList = "daily"
			}),
			wantErr: true,
			errMsg:  "schedule.cron",
		},
		{
			name:    "cron with nothing to run",
			config:  with(func(c *Config) { c.Schedule.Cron = "0 17 * * 1-5" }),
			wantErr: true,
			errMsg:  "schedule needs indicator_config or scan_list",
		},
		{
			name: "bad schedule timeframe",
			config: with(func(c *Config) {
				c.Schedule.Timeframes = []string{"daily", "fortnight"}
			}),
			wantErr: true,
			errMsg:  "schedule.timeframes",
		},
		{
			name: "valid schedule",
			config: with(func(c *Config) {
				c.Schedule.Cron = "30 16 * * 1-5"
				c.Schedule.IndicatorConfig = "1"
				c.Schedule.Timeframes = []string{"d", "w"}
			}),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Workers = 4
			cfg.Journal = JournalConfig{Type: "sqlite", DBPath: "journal.db"}
			path := filepath.Join(tmpDir, "test"+tt.ext)

			err := cfg.SaveToFile(path)
			require.NoError(t, err)

			_, err = os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)

			assert.Equal(t, cfg.Dirs, loaded.Dirs)
			assert.Equal(t, cfg.Journal, loaded.Journal)
			assert.Equal(t, 4, loaded.Workers)
			assert.Equal(t, cfg.Tiingo.BaseURL, loaded.Tiingo.BaseURL)
		})
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "screener.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 2\ndirs:\n  tickers: prices\n"), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "prices", cfg.Dirs.Tickers)
	assert.Equal(t, "data/indicators", cfg.Dirs.Indicators)
	assert.Equal(t, "30s", cfg.Tiingo.Timeout)
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("journal:\n  type: csv\n"), 0o644))
	_, err = LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestTiingoKey(t *testing.T) {
	t.Setenv("TIINGO_API_KEY", "from-env")
	assert.Equal(t, "from-env", TiingoConfig{}.Key())
	assert.Equal(t, "explicit", TiingoConfig{APIKey: "explicit"}.Key())
}

func TestParseTimeout(t *testing.T) {
	tests := []struct {
		timeout  string
		expected string
		wantErr  bool
	}{
		{"30s", "30s", false},
		{"1m", "1m0s", false},
		{"", "0s", false},
		{"invalid", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.timeout, func(t *testing.T) {
			d, err := TiingoConfig{Timeout: tt.timeout}.ParseTimeout()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, d.String())
			}
		})
	}
}

func TestSampleAppConfig(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join("..", "configs", "screener.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Journal.Type)
	assert.Equal(t, "daily", cfg.Schedule.ScanList)
}
