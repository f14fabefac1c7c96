package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/screener/criteria"
	"github.com/rustyeddy/screener/internal/app"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run scans over indicator files",
	Long: `Run named scans from the scan_conf_*.yaml files, or every scan of a
list from scan_lists.yaml. Results are written to the scans directory as
scan_results_{ddmmyy}_{scan}.csv and recorded in the journal.

Examples:
  screener scan run ob_support_qqe
  screener scan list daily --fundamentals
  screener scan criteria`,
}

var scanRunCmd = &cobra.Command{
	Use:   "run <scan-name>",
	Short: "Run one scan",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runScan),
}

var scanListCmd = &cobra.Command{
	Use:   "list <list-name>",
	Short: "Run every scan of a scan list",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runScanList),
}

var scanCriteriaCmd = &cobra.Command{
	Use:   "criteria",
	Short: "List the available criteria",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range criteria.Default.Names() {
			fmt.Println(name)
		}
	},
}

var scanFundamentals bool

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.AddCommand(scanRunCmd)
	scanCmd.AddCommand(scanListCmd)
	scanCmd.AddCommand(scanCriteriaCmd)

	scanCmd.PersistentFlags().BoolVar(&scanFundamentals, "fundamentals", false, "append Tiingo fundamentals columns")
}

func printReport(r *app.ScanReport) {
	check("Scan %s: %d matches", r.Run.Scan, r.Run.Matches)
	fmt.Printf("  Run: %s\n", r.Run.RunID)
	fmt.Printf("  Output: %s\n", r.Run.OutputPath)
	if tickers := r.Table.Tickers(); len(tickers) > 0 {
		fmt.Printf("  Tickers: %s\n", strings.Join(tickers, ", "))
	}
}

func runScan(ctx context.Context, a *app.App, args []string) error {
	rep, err := a.RunScan(ctx, args[0], app.ScanOptions{Fundamentals: scanFundamentals})
	if err != nil {
		return err
	}
	printReport(rep)
	return nil
}

func runScanList(ctx context.Context, a *app.App, args []string) error {
	reps, err := a.RunScanList(ctx, args[0], app.ScanOptions{Fundamentals: scanFundamentals})
	for _, r := range reps {
		printReport(r)
	}
	return err
}
