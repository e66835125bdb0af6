package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "github.com/KaramelBytes/datacatalog-cli/internal/config"
	"github.com/KaramelBytes/datacatalog-cli/internal/logging"
	"github.com/KaramelBytes/datacatalog-cli/internal/metrics"
)

var (
	cfgFile     string
	debug       bool
	logLevel    string
	metricsFile string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "datacatalog",
	Short: "Profile tabular files and sample their columns for data dictionaries",
	Long: `datacatalog loads CSV, Excel, Parquet and JSON files, computes per-column
statistics and renders them as structured data, a text table or prose, ready to
be handed to a text-generation pipeline.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.datacatalog/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "write run metrics in Prometheus text format to this path (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v; using defaults\n", err)
		c = cfgpkg.Default()
	}
	cfg = c
	f := rootCmd.PersistentFlags()
	if f.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if f.Changed("metrics-file") {
		cfg.MetricsFile = metricsFile
	}
}

// session bundles the per-invocation logger and metrics.
type session struct {
	log     *zap.Logger
	metrics *metrics.Metrics
}

func newSession() (*session, error) {
	if cfg == nil {
		loadConfig()
	}
	log, err := logging.New(cfg.LogLevel, debug)
	if err != nil {
		return nil, err
	}
	return &session{log: log, metrics: metrics.New()}, nil
}

// close flushes the logger and writes the metrics file when configured.
func (r *session) close() {
	if err := r.metrics.WriteFile(cfg.MetricsFile); err != nil {
		r.log.Warn("write metrics file", zap.String("path", cfg.MetricsFile), zap.Error(err))
	}
	_ = r.log.Sync()
}
