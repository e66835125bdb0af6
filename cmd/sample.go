package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/datacatalog-cli/internal/catalog"
	"github.com/KaramelBytes/datacatalog-cli/internal/loader"
	"github.com/KaramelBytes/datacatalog-cli/internal/normalize"
	"github.com/KaramelBytes/datacatalog-cli/internal/sampler"
	"github.com/KaramelBytes/datacatalog-cli/internal/utils"
)

var (
	smpConcurrency int
	smpCatalog     bool
	smpOutput      string
	smpLoader      loaderFlags
)

var sampleCmd = &cobra.Command{
	Use:   "sample <folder> [files...]",
	Short: "Extract three sample values per column from files in a folder",
	Long: `sample reads each file (all supported files in the folder when none are
named) and prints a JSON object mapping file -> column -> three sample values.
Files whose full load fails yield an empty mapping and a logged warning.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		folder := args[0]
		files := args[1:]
		if len(files) == 0 {
			found, err := sampler.Discover(folder)
			if err != nil {
				return err
			}
			if len(found) == 0 {
				return fmt.Errorf("no supported files in %s (want %v)", folder, loader.Extensions())
			}
			files = found
		}
		sess, err := newSession()
		if err != nil {
			return err
		}
		defer sess.close()

		opt, err := smpLoader.options(cfg)
		if err != nil {
			return err
		}
		conc := cfg.BatchConcurrency
		if smpConcurrency > 0 {
			conc = smpConcurrency
		}
		s := &sampler.Sampler{Options: opt, Log: sess.log, Metrics: sess.metrics}
		results, batchErr := s.SampleAll(cmd.Context(), folder, files, conc)

		out := normalize.NewOrderedMap()
		ok := 0
		for _, r := range results {
			if r.Err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %s: %v\n", r.File, r.Err)
				continue
			}
			out.Set(r.File, r.Samples)
			ok++
		}
		sess.log.Info("sampled folder", zap.String("folder", folder), zap.Int("files", len(files)), zap.Int("ok", ok))

		if smpCatalog && ok > 0 {
			if err := storeSamples(cmd, folder, results); err != nil {
				return err
			}
		}
		data, err := utils.PrettyJSON(out)
		if err != nil {
			return err
		}
		if smpOutput != "" {
			if err := utils.SafeWriteFile(smpOutput, data); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote samples for %d file(s) to %s\n", ok, smpOutput)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
		}
		if ok == 0 && batchErr != nil {
			return errors.New("no file could be sampled")
		}
		return nil
	},
}

func storeSamples(cmd *cobra.Command, folder string, results []sampler.FileSamples) error {
	abs, err := filepath.Abs(folder)
	if err != nil {
		return err
	}
	st, err := catalog.Open(cmd.Context(), cfg.CatalogDriver, cfg.CatalogPath)
	if err != nil {
		return err
	}
	defer st.Close()
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		ff, _ := loader.FormatFromPath(r.File)
		e := catalog.NewEntry(abs, r.File, string(ff))
		e.Samples = r.Samples
		if err := st.Put(cmd.Context(), e); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Stored samples in catalog (%s)\n", cfg.CatalogDriver)
	return nil
}

func init() {
	rootCmd.AddCommand(sampleCmd)
	sampleCmd.Flags().IntVar(&smpConcurrency, "concurrency", 0, "files sampled in parallel (default from config)")
	sampleCmd.Flags().BoolVar(&smpCatalog, "catalog", false, "store the sample maps in the catalog")
	sampleCmd.Flags().StringVarP(&smpOutput, "output", "o", "", "optional path to write the JSON samples")
	smpLoader.register(sampleCmd)
}
