package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/datacatalog-cli/internal/analysis"
	"github.com/KaramelBytes/datacatalog-cli/internal/catalog"
	"github.com/KaramelBytes/datacatalog-cli/internal/loader"
	"github.com/KaramelBytes/datacatalog-cli/internal/sampler"
	"github.com/KaramelBytes/datacatalog-cli/internal/utils"
)

var (
	profFormat  string
	profOutput  string
	profCatalog bool
	profLoader  loaderFlags
)

var profileCmd = &cobra.Command{
	Use:   "profile <file>",
	Short: "Profile a CSV/XLSX/XLS/Parquet/JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		sess, err := newSession()
		if err != nil {
			return err
		}
		defer sess.close()
		log := sess.log.With(zap.String("file", path))

		name := cfg.DefaultFormat
		if profFormat != "" {
			name = profFormat
		}
		if name == "" {
			name = string(analysis.FormatTabular)
		}
		format, err := analysis.ParseFormat(name)
		if err != nil {
			return err
		}
		opt, err := profLoader.options(cfg)
		if err != nil {
			return err
		}
		ff, err := loader.FormatFromPath(path)
		if err != nil {
			return err
		}

		started := time.Now()
		t, err := loader.Load(cmd.Context(), path, opt)
		sess.metrics.ObserveLoad(ff, started, err)
		if err != nil {
			return err
		}
		p := analysis.ProfileTable(t, analysis.Options{OnColumn: func(done, total int, col string) {
			log.Debug("profiled column", zap.String("column", col), zap.Int("done", done), zap.Int("total", total))
		}})
		sess.metrics.ObserveColumns(len(p.Columns))

		out, err := analysis.Render(p, format)
		if err != nil {
			return err
		}
		text := out.String()
		log.Info("profile rendered",
			zap.String("format", string(format)),
			zap.Int("rows", t.NumRows()),
			zap.Int("columns", len(p.Columns)),
			zap.Int("est_tokens", utils.CountTokens(text)))

		if profCatalog {
			if err := storeProfile(cmd, path, ff, p, sampler.Extract(t)); err != nil {
				return err
			}
		}
		if profOutput != "" {
			if err := utils.SafeWriteFile(profOutput, []byte(text)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote profile to %s\n", profOutput)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

func storeProfile(cmd *cobra.Command, path string, ff loader.Format, p *analysis.Profile, samples *sampler.SampleMap) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	st, err := catalog.Open(cmd.Context(), cfg.CatalogDriver, cfg.CatalogPath)
	if err != nil {
		return err
	}
	defer st.Close()
	e := catalog.NewEntry(filepath.Dir(abs), filepath.Base(abs), string(ff))
	e.Profile = raw
	e.Samples = samples
	if err := st.Put(cmd.Context(), e); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Stored %s in catalog (%s)\n", e.File, cfg.CatalogDriver)
	return nil
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.Flags().StringVarP(&profFormat, "format", "f", "", "output format: structured | tabular_text | prose_text (default from config)")
	profileCmd.Flags().StringVarP(&profOutput, "output", "o", "", "optional path to write the rendered profile")
	profileCmd.Flags().BoolVar(&profCatalog, "catalog", false, "store the profile and column samples in the catalog")
	profLoader.register(profileCmd)
}
