package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/datacatalog-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set datacatalog configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			loadConfig()
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "default_format: %s\n", cfg.DefaultFormat)
		fmt.Fprintf(w, "csv_delimiter: %q\n", cfg.CSVDelimiter)
		if cfg.XLSXSheetName != "" {
			fmt.Fprintf(w, "xlsx_sheet_name: %s\n", cfg.XLSXSheetName)
		}
		fmt.Fprintf(w, "xlsx_sheet_index: %d\n", cfg.XLSXSheetIndex)
		fmt.Fprintf(w, "batch_concurrency: %d\n", cfg.BatchConcurrency)
		fmt.Fprintf(w, "catalog_driver: %s\n", cfg.CatalogDriver)
		fmt.Fprintf(w, "catalog_path: %s\n", cfg.CatalogPath)
		fmt.Fprintf(w, "log_level: %s\n", cfg.LogLevel)
		if cfg.MetricsFile != "" {
			fmt.Fprintf(w, "metrics_file: %s\n", cfg.MetricsFile)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Reload without flag overrides so they are not persisted.
		c, err := cfgpkg.Load(cfgFile)
		if err != nil {
			return err
		}
		if err := c.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		cfg = c
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
