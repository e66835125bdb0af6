package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "tabular_text", c.DefaultFormat)
	require.Equal(t, ",", c.CSVDelimiter)
	require.Equal(t, 1, c.XLSXSheetIndex)
	require.Equal(t, 4, c.BatchConcurrency)
	require.Equal(t, "json", c.CatalogDriver)
	require.Equal(t, "catalog.json", filepath.Base(c.CatalogPath))
	require.Equal(t, "info", c.LogLevel)
}

func TestSaveThenLoad(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	c, err := Load("")
	require.NoError(t, err)
	require.NoError(t, c.Set("catalog_driver", "sqlite"))
	require.NoError(t, c.Set("catalog_path", ""))
	require.NoError(t, c.Set("batch_concurrency", "8"))
	require.NoError(t, c.Set("csv_delimiter", "tab"))
	require.NoError(t, Save(c, ""))

	_, err = os.Stat(filepath.Join(home, ".datacatalog", "config.yaml"))
	require.NoError(t, err)

	again, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "sqlite", again.CatalogDriver)
	require.Equal(t, "catalog.db", filepath.Base(again.CatalogPath))
	require.Equal(t, 8, again.BatchConcurrency)
	d, err := again.Delimiter()
	require.NoError(t, err)
	require.Equal(t, '\t', d)
}

func TestEnvOverridesFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfgFile := filepath.Join(home, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("default_format: prose_text\nlog_level: warn\n"), 0o644))
	t.Setenv("DATACATALOG_LOG_LEVEL", "error")

	c, err := Load(cfgFile)
	require.NoError(t, err)
	require.Equal(t, "prose_text", c.DefaultFormat)
	require.Equal(t, "error", c.LogLevel)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	cfgFile := filepath.Join(home, "bad.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("default_format: [unclosed\n"), 0o644))
	_, err := Load(cfgFile)
	require.Error(t, err)
}

func TestSetValidation(t *testing.T) {
	c := &Global{}
	require.Error(t, c.Set("default_format", "xml"))
	require.Error(t, c.Set("catalog_driver", "mongo"))
	require.Error(t, c.Set("xlsx_sheet_index", "0"))
	require.Error(t, c.Set("csv_delimiter", ";;"))
	require.Error(t, c.Set("nope", "1"))
	require.NoError(t, c.Set("default_format", "STRUCTURED"))
	require.Equal(t, "structured", c.DefaultFormat)
}

func TestDerivedCatalogPathFollowsDriver(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	c, err := Load("")
	require.NoError(t, err)
	require.NoError(t, c.Set("catalog_driver", "sqlite"))
	require.Equal(t, filepath.Join(home, ".datacatalog", "catalog.db"), c.CatalogPath)
	require.NoError(t, Save(c, ""))

	b, err := os.ReadFile(filepath.Join(home, ".datacatalog", "config.yaml"))
	require.NoError(t, err)
	require.Contains(t, string(b), `catalog_path: ""`)

	c, err = Load("")
	require.NoError(t, err)
	require.NoError(t, c.Set("catalog_path", "/tmp/elsewhere.db"))
	require.NoError(t, c.Set("catalog_driver", "json"))
	require.Equal(t, "/tmp/elsewhere.db", c.CatalogPath)
}

func TestDefaultMatchesLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	loaded, err := Load("")
	require.NoError(t, err)
	require.Equal(t, loaded, Default())
}
