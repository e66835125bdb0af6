// Package loader decodes tabular files into in-memory tables. The decoder is
// chosen from the file extension through a closed lookup table.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/KaramelBytes/datacatalog-cli/internal/table"
)

// Format identifies a supported file encoding.
type Format string

const (
	CSV     Format = "csv"
	XLSX    Format = "xlsx"
	XLS     Format = "xls"
	Parquet Format = "parquet"
	JSON    Format = "json"
)

var extensions = map[string]Format{
	".csv":     CSV,
	".xlsx":    XLSX,
	".xls":     XLS,
	".parquet": Parquet,
	".json":    JSON,
}

var (
	// ErrUnsupportedFormat is returned for extensions outside the lookup table.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrFileNotFound is returned when the path does not exist.
	ErrFileNotFound = errors.New("file not found")
)

// LoadError wraps a failure raised by a format decoder.
type LoadError struct {
	Path   string
	Format Format
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s (%s): %v", filepath.Base(e.Path), e.Format, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Options tunes decoding. The zero value loads the whole file with defaults.
type Options struct {
	// HeaderOnly returns the column names with zero rows.
	HeaderOnly bool
	// Delimiter is the CSV field separator; 0 means ','.
	Delimiter rune
	// Sheet selects an xlsx/xls sheet by name (case-insensitive).
	Sheet string
	// SheetIndex selects a sheet by 1-based position when Sheet is empty.
	SheetIndex int
}

// Decoder turns one file format into a table.
type Decoder interface {
	Decode(ctx context.Context, path string, opt Options) (*table.Table, error)
}

var registry = map[Format]Decoder{}

// register installs the decoder for f, replacing any previous one.
func register(f Format, d Decoder) {
	registry[f] = d
}

func init() {
	register(CSV, csvDecoder{})
	register(XLSX, xlsxDecoder{})
	register(XLS, xlsDecoder{})
	register(Parquet, parquetDecoder{})
	register(JSON, jsonDecoder{})
}

// FormatFromPath maps the file extension to a Format without touching the file.
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	f, ok := extensions[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return f, nil
}

// Supported reports whether path has a loadable extension.
func Supported(path string) bool {
	_, err := FormatFromPath(path)
	return err == nil
}

// Extensions lists the supported extensions in sorted order.
func Extensions() []string {
	out := make([]string, 0, len(extensions))
	for ext := range extensions {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Load reads the file at path into a table.
func Load(ctx context.Context, path string, opt Options) (*table.Table, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	if err := Exists(path); err != nil {
		if errors.Is(err, ErrFileNotFound) {
			return nil, err
		}
		return nil, &LoadError{Path: path, Format: f, Err: err}
	}
	d, ok := registry[f]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}
	if err := ctx.Err(); err != nil {
		return nil, &LoadError{Path: path, Format: f, Err: err}
	}
	t, err := d.Decode(ctx, path, opt)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			return nil, err
		}
		return nil, &LoadError{Path: path, Format: f, Err: err}
	}
	return t, nil
}

// LoadHeader loads only the column names of path.
func LoadHeader(ctx context.Context, path string, opt Options) (*table.Table, error) {
	opt.HeaderOnly = true
	return Load(ctx, path, opt)
}

// Exists returns ErrFileNotFound when nothing exists at path.
func Exists(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return err
	}
	return nil
}

// checkEvery is how many rows decoders read between context checks.
const checkEvery = 1024

func headerTable(names []string, types []table.DType) *table.Table {
	cols := make([]*table.Column, len(names))
	for i, n := range names {
		dt := table.Object
		if types != nil {
			dt = types[i]
		}
		cols[i] = &table.Column{Name: n, Type: dt, Values: []any{}}
	}
	return &table.Table{Columns: cols}
}
