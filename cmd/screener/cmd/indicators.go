package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/screener/config"
	"github.com/rustyeddy/screener/indicators"
	"github.com/rustyeddy/screener/internal/app"
	"github.com/rustyeddy/screener/market"
)

var indicatorsCmd = &cobra.Command{
	Use:   "indicators",
	Short: "Compute indicators over ticker files",
	Long: `Apply an indicator configuration (ind_conf_{version}.yaml) to the newest
file of every ticker and timeframe, writing the enriched frames to the
indicators directory.

Examples:
  screener indicators run --version 1
  screener indicators run --version 1 --timeframe daily --timeframe weekly
  screener indicators list`,
}

var indicatorsRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an indicator configuration",
	Args:  cobra.NoArgs,
	RunE:  withApp(runIndicators),
}

var indicatorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indicator configurations and plugins",
	Args:  cobra.NoArgs,
	RunE:  runIndicatorsList,
}

var (
	indicatorsVersion    string
	indicatorsTimeframes []string
)

func init() {
	rootCmd.AddCommand(indicatorsCmd)
	indicatorsCmd.AddCommand(indicatorsRunCmd)
	indicatorsCmd.AddCommand(indicatorsListCmd)

	indicatorsRunCmd.Flags().StringVar(&indicatorsVersion, "version", "1", "indicator configuration id")
	indicatorsRunCmd.Flags().StringSliceVarP(&indicatorsTimeframes, "timeframe", "t", nil, "timeframes to compute (default: all configured)")
}

func parseTimeframes(names []string) ([]market.Timeframe, error) {
	out := make([]market.Timeframe, 0, len(names))
	for _, n := range names {
		tf, err := market.ParseTimeframe(n)
		if err != nil {
			return nil, err
		}
		out = append(out, tf)
	}
	return out, nil
}

func runIndicators(ctx context.Context, a *app.App, args []string) error {
	tfs, err := parseTimeframes(indicatorsTimeframes)
	if err != nil {
		return err
	}
	res, err := a.RunIndicators(ctx, indicatorsVersion, tfs...)
	if err != nil {
		return err
	}

	check("Indicators computed with config %s", indicatorsVersion)
	fmt.Printf("  Written: %d files to %s\n", len(res.Written), a.Config.Dirs.Indicators)
	if len(res.Skipped) > 0 {
		fmt.Printf("  Skipped: %d\n", len(res.Skipped))
		for _, s := range res.Skipped {
			fmt.Printf("    %s %s (%s): %v\n", s.Key.Ticker, s.Key.Timeframe, s.Reason, s.Err)
		}
	}
	return nil
}

func runIndicatorsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ids, err := config.ListIndicatorConfigs(cfg.Dirs.IndicatorConfigs)
	if err != nil {
		return err
	}

	fmt.Printf("Indicator configs in %s:\n", cfg.Dirs.IndicatorConfigs)
	for _, id := range ids {
		ic, err := config.LoadIndicatorConfig(cfg.Dirs.IndicatorConfigs, id)
		if err != nil {
			fmt.Printf("  %s: %v\n", id, err)
			continue
		}
		for _, tf := range ic.Timeframes() {
			fmt.Printf("  %s %-6s %s\n", id, tf, strings.Join(ic.Indicators[tf], ", "))
		}
	}
	fmt.Printf("\nPlugins: %s\n", strings.Join(indicators.Default.Names(), ", "))
	return nil
}
