package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/screener/internal/app"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the scheduled pipeline until interrupted",
	Long: `Run the indicator configuration and scan list of the schedule section
on its cron spec until SIGINT or SIGTERM.

Example config:
  schedule:
    cron: "30 16 * * 1-5"
    indicator_config: "1"
    scan_list: daily
    timeframes: [weekly, daily]`,
	Args: cobra.NoArgs,
	RunE: withApp(runWatch),
}

var watchNow bool

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchNow, "now", false, "run the pipeline once before waiting")
}

func runWatch(ctx context.Context, a *app.App, args []string) error {
	if watchNow {
		if err := a.Scheduled(ctx); err != nil {
			return err
		}
		check("Pipeline finished")
	}
	return a.Watch(ctx)
}
