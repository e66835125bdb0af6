package cmd

import (
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/datacatalog-cli/internal/config"
	"github.com/KaramelBytes/datacatalog-cli/internal/loader"
)

// loaderFlags are the decoder flags shared by profile and sample.
type loaderFlags struct {
	delimiter  string
	sheetName  string
	sheetIndex int
}

func (f *loaderFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (overrides config)")
	cmd.Flags().StringVar(&f.sheetName, "sheet-name", "", "XLSX/XLS: sheet name to load")
	cmd.Flags().IntVar(&f.sheetIndex, "sheet-index", 0, "XLSX/XLS: 1-based sheet index (used if --sheet-name not provided)")
}

// options merges flags over the loaded configuration.
func (f *loaderFlags) options(c *cfgpkg.Global) (loader.Options, error) {
	r, err := c.Delimiter()
	if f.delimiter != "" {
		r, err = cfgpkg.ParseDelimiter(f.delimiter)
	}
	if err != nil {
		return loader.Options{}, err
	}
	opt := loader.Options{Delimiter: r, Sheet: c.XLSXSheetName, SheetIndex: c.XLSXSheetIndex}
	if f.sheetName != "" {
		opt.Sheet = f.sheetName
	}
	if f.sheetIndex > 0 {
		opt.Sheet = f.sheetName
		opt.SheetIndex = f.sheetIndex
	}
	return opt, nil
}

func (f *loaderFlags) reset() {
	*f = loaderFlags{}
}
