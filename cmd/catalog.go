package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/datacatalog-cli/internal/catalog"
	"github.com/KaramelBytes/datacatalog-cli/internal/utils"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect stored profiles and samples",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openCatalog(cmd)
		if err != nil {
			return err
		}
		defer st.Close()
		entries, err := st.List(cmd.Context())
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(w, "(no entries)")
			return nil
		}
		for _, e := range entries {
			cols := 0
			if e.Samples != nil {
				cols = e.Samples.Len()
			}
			prof := ""
			if len(e.Profile) > 0 {
				prof = ", profiled"
			}
			fmt.Fprintf(w, "- %s/%s (%s) columns=%d%s  %s\n", e.Folder, e.File, e.Format, cols, prof, e.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

var catalogShowCmd = &cobra.Command{
	Use:   "show <folder> <file>",
	Short: "Print one catalog entry as JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openCatalog(cmd)
		if err != nil {
			return err
		}
		defer st.Close()
		folder, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		e, err := st.Get(cmd.Context(), folder, args[1])
		if err != nil {
			return fmt.Errorf("%s/%s: %w", args[0], args[1], err)
		}
		b, err := utils.PrettyJSON(e)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

func openCatalog(cmd *cobra.Command) (catalog.Store, error) {
	if cfg == nil {
		loadConfig()
	}
	return catalog.Open(cmd.Context(), cfg.CatalogDriver, cfg.CatalogPath)
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogShowCmd)
}
