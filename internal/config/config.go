package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Profile rendering: structured | tabular_text | prose_text
	DefaultFormat string `mapstructure:"default_format" yaml:"default_format"`

	// Loader defaults
	CSVDelimiter   string `mapstructure:"csv_delimiter" yaml:"csv_delimiter"`
	XLSXSheetName  string `mapstructure:"xlsx_sheet_name" yaml:"xlsx_sheet_name"`
	XLSXSheetIndex int    `mapstructure:"xlsx_sheet_index" yaml:"xlsx_sheet_index"`

	// Multi-file sampling
	BatchConcurrency int `mapstructure:"batch_concurrency" yaml:"batch_concurrency"`

	// Catalog persistence: json | sqlite
	CatalogDriver string `mapstructure:"catalog_driver" yaml:"catalog_driver"`
	CatalogPath   string `mapstructure:"catalog_path" yaml:"catalog_path"`

	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
	MetricsFile string `mapstructure:"metrics_file" yaml:"metrics_file"`

	// set when CatalogPath was derived from the driver; such a path is not saved
	derivedPath bool
}

// Dir returns ~/.datacatalog.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".datacatalog"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.datacatalog/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	out := *c
	if out.derivedPath {
		out.CatalogPath = ""
	}
	b, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func defaults() Global {
	return Global{
		DefaultFormat:    "tabular_text",
		CSVDelimiter:     ",",
		XLSXSheetIndex:   1,
		BatchConcurrency: 4,
		CatalogDriver:    "json",
		LogLevel:         "info",
	}
}

// Default returns the built-in configuration, as Load would with no file and
// no environment. The catalog path is left empty when the home directory
// cannot be resolved.
func Default() *Global {
	c := defaults()
	if dir, err := Dir(); err == nil {
		c.CatalogPath = defaultCatalogPath(dir, c.CatalogDriver)
		c.derivedPath = true
	}
	return &c
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("DATACATALOG")
	v.AutomaticEnv()

	d := defaults()
	v.SetDefault("default_format", d.DefaultFormat)
	v.SetDefault("csv_delimiter", d.CSVDelimiter)
	v.SetDefault("xlsx_sheet_name", d.XLSXSheetName)
	v.SetDefault("xlsx_sheet_index", d.XLSXSheetIndex)
	v.SetDefault("batch_concurrency", d.BatchConcurrency)
	v.SetDefault("catalog_driver", d.CatalogDriver)
	v.SetDefault("catalog_path", d.CatalogPath)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("metrics_file", d.MetricsFile)

	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.CatalogPath == "" {
		c.CatalogPath = defaultCatalogPath(dir, c.CatalogDriver)
		c.derivedPath = true
	}
	return &c, nil
}

func defaultCatalogPath(dir, driver string) string {
	if driver == "sqlite" {
		return filepath.Join(dir, "catalog.db")
	}
	return filepath.Join(dir, "catalog.json")
}

// Delimiter converts CSVDelimiter to a rune. "tab" and "\t" mean a tab.
func (c *Global) Delimiter() (rune, error) {
	return ParseDelimiter(c.CSVDelimiter)
}

// ParseDelimiter accepts a single character, "tab" or "\t". Empty means ','.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return ',', nil
	case "\t", `\t`, "tab":
		return '\t', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, fmt.Errorf("unsupported delimiter: %q", s)
	}
	return r[0], nil
}

// Set assigns one key from its string form, validating the value.
func (c *Global) Set(key, val string) error {
	switch key {
	case "default_format":
		switch strings.ToLower(val) {
		case "structured", "tabular_text", "prose_text":
			c.DefaultFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid default_format: %s (use structured, tabular_text or prose_text)", val)
		}
	case "csv_delimiter":
		if _, err := ParseDelimiter(val); err != nil {
			return err
		}
		c.CSVDelimiter = val
	case "xlsx_sheet_name":
		c.XLSXSheetName = val
	case "xlsx_sheet_index":
		i, err := strconv.Atoi(val)
		if err != nil || i < 1 {
			return fmt.Errorf("invalid int for xlsx_sheet_index: %v", val)
		}
		c.XLSXSheetIndex = i
	case "batch_concurrency":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for batch_concurrency: %v", val)
		}
		c.BatchConcurrency = i
	case "catalog_driver":
		switch val {
		case "json", "sqlite":
			c.CatalogDriver = val
			if c.derivedPath {
				c.CatalogPath = defaultCatalogPath(filepath.Dir(c.CatalogPath), val)
			}
		default:
			return fmt.Errorf("invalid catalog_driver: %s (use json or sqlite)", val)
		}
	case "catalog_path":
		c.CatalogPath = val
		c.derivedPath = false
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s", val)
		}
	case "metrics_file":
		c.MetricsFile = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}
