package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/screener/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage the screener configuration file.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate a configuration file and the indicator and scan
             configurations it points to

Examples:
  screener config init -o screener.yaml
  screener config validate -f screener.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Args:  cobra.NoArgs,
	RunE:  runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "screener.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	check("Created default configuration: %s", configInitOutput)
	fmt.Println("\nEdit the file and run with:")
	fmt.Printf("  screener --config %s scan list daily\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	ids, err := config.ListIndicatorConfigs(cfg.Dirs.IndicatorConfigs)
	if err != nil {
		return fmt.Errorf("indicator configs: %w", err)
	}
	for _, id := range ids {
		if _, err := config.LoadIndicatorConfig(cfg.Dirs.IndicatorConfigs, id); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}
	scans, err := config.LoadScans(cfg.Dirs.ScanConfigs)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	lists, err := config.LoadScanLists(cfg.Dirs.ScanConfigs)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if err := lists.Check(scans); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	check("Configuration valid: %s", configValidatePath)
	fmt.Printf("  Tickers: %s\n", cfg.Dirs.Tickers)
	fmt.Printf("  Indicator configs: %v\n", ids)
	fmt.Printf("  Scans: %d, scan lists: %v\n", len(scans), lists.Names())
	fmt.Printf("  Journal: %s\n", cfg.Journal.Type)
	if cfg.Schedule.Cron != "" {
		fmt.Printf("  Schedule: %q (indicators %q, scan list %q)\n",
			cfg.Schedule.Cron, cfg.Schedule.IndicatorConfig, cfg.Schedule.ScanList)
	}
	return nil
}
