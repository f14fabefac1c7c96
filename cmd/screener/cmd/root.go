package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/screener/config"
	"github.com/rustyeddy/screener/internal/app"
	"github.com/rustyeddy/screener/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "screener",
	Short: "Multi-timeframe stock screener",
	Long: `Screener computes technical indicators over per-ticker OHLCV files and
runs configurable scans across timeframes.

It provides tools for:
  - Applying indicator configurations to ticker files
  - Running SIMPLE, LIST and ADVANCED (AND/OR) scans
  - Downloading prices and fundamentals from Tiingo
  - Journaling scan runs in SQLite
  - Running the pipeline on a cron schedule`,
	SilenceUsage: true,
}

var (
	cfgFile     string
	logLevel    string
	metricsFile string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (defaults are used when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level: debug|info|warn|error")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(cfgFile)
}

// withApp builds the app for the duration of run and writes the metrics
// file afterwards.
func withApp(run func(ctx context.Context, a *app.App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		log, err := logger.New(cfg.Log.Logger())
		if err != nil {
			return err
		}
		a, err := app.New(cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			if metricsFile != "" {
				err = errors.Join(err, a.Metrics.WriteFile(metricsFile))
			}
			err = errors.Join(err, a.Close())
		}()
		return run(cmd.Context(), a, args)
	}
}

func check(format string, args ...any) {
	fmt.Printf("✓ "+format+"\n", args...)
}
