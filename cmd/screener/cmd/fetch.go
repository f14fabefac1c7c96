package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/screener/internal/app"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download price files from Tiingo",
	Long: `Download OHLCV bars for each ticker and timeframe into the tickers
directory as {TICKER}_{TIMEFRAME}_{ddmmyy}.csv.

The API key comes from tiingo.api_key or the TIINGO_API_KEY environment
variable.

Example:
  screener fetch --tickers AAPL,MSFT --timeframe daily --timeframe weekly`,
	Args: cobra.NoArgs,
	RunE: withApp(runFetch),
}

var (
	fetchTickers    []string
	fetchTimeframes []string
)

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringSliceVar(&fetchTickers, "tickers", nil, "tickers to download (required)")
	fetchCmd.Flags().StringSliceVarP(&fetchTimeframes, "timeframe", "t", []string{"daily"}, "timeframes to download")
	fetchCmd.MarkFlagRequired("tickers")
}

func runFetch(ctx context.Context, a *app.App, args []string) error {
	tfs, err := parseTimeframes(fetchTimeframes)
	if err != nil {
		return err
	}
	res, err := a.Fetch(ctx, fetchTickers, tfs)
	if err != nil {
		return err
	}

	check("Downloaded %d files to %s", len(res.Written), a.Config.Dirs.Tickers)
	if len(res.Failed) > 0 {
		keys := make([]string, 0, len(res.Failed))
		for k := range res.Failed {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Printf("  Failed: %d\n", len(keys))
		for _, k := range keys {
			fmt.Printf("    %s: %v\n", k, res.Failed[k])
		}
	}
	return nil
}
