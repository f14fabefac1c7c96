package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/screener/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the scan journal",
	Long: `Query and display scan runs recorded in the SQLite journal.

Subcommands:
  run    - Show a run and its matches by run ID
  today  - List runs started today
  day    - List runs started on a specific day
  ticker - List every recorded match of a ticker

Examples:
  screener journal run 01HQ3K9Z6W2V7C8X0Y1Z2A3B4C
  screener journal today
  screener journal day 2024-01-15
  screener journal ticker AAPL`,
}

var journalRunCmd = &cobra.Command{
	Use:   "run <run-id>",
	Short: "Show a run and its matches",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalRun,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List runs started today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List runs started on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalTickerCmd = &cobra.Command{
	Use:   "ticker <TICKER>",
	Short: "List the recorded matches of a ticker",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTicker,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalTickerCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "", "path to SQLite journal DB (default: journal.db_path)")
}

func openJournal() (*journal.SQLite, error) {
	path := journalDBPath
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		path = cfg.Journal.DBPath
	}
	if path == "" {
		return nil, fmt.Errorf("no journal database: set journal.db_path or --db")
	}
	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func runJournalRun(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	ctx := cmd.Context()
	run, err := j.GetRun(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get run: %w", err)
	}
	matches, err := j.ListMatchesByRunID(ctx, run.RunID)
	if err != nil {
		return fmt.Errorf("query matches: %w", err)
	}

	fmt.Println(journal.FormatRunOrg(run, matches))
	return nil
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	return listRunsOn(cmd, time.Now().Format("2006-01-02"))
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	return listRunsOn(cmd, args[0])
}

func listRunsOn(cmd *cobra.Command, day string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	t, err := time.ParseInLocation("2006-01-02", day, time.Local)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}
	runs, err := j.ListRunsOn(cmd.Context(), t)
	if err != nil {
		return fmt.Errorf("query runs: %w", err)
	}

	fmt.Println(journal.FormatRunsOrg(runs))
	return nil
}

func runJournalTicker(cmd *cobra.Command, args []string) error {
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer j.Close()

	matches, err := j.ListMatchesByTicker(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("query matches: %w", err)
	}
	for _, m := range matches {
		fmt.Printf("%s  %-6s %s  %.2f  run %s\n",
			m.Date.Format("2006-01-02"), m.Timeframe, m.Ticker, m.Close, m.RunID)
	}
	return nil
}
