package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/format"

	"github.com/KaramelBytes/datacatalog-cli/internal/table"
)

// parquetDecoder reads every leaf column across all row groups. Native
// int32/float32 values are kept as stored; normalization happens downstream.
type parquetDecoder struct{}

func (parquetDecoder) Decode(ctx context.Context, path string, opt Options) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat parquet: %w", err)
	}
	pf, err := parquet.OpenFile(f, st.Size(), parquet.SkipPageIndex(true), parquet.SkipBloomFilters(true))
	if err != nil {
		return nil, fmt.Errorf("read parquet footer: %w", err)
	}

	leaves := leafColumns(pf.Root())
	names := make([]string, len(leaves))
	types := make([]table.DType, len(leaves))
	for i, c := range leaves {
		names[i] = strings.Join(c.Path(), ".")
		types[i] = parquetDType(c)
	}
	if opt.HeaderOnly {
		return headerTable(names, types), nil
	}

	cols := make([]*table.Column, len(leaves))
	for i, c := range leaves {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vals, err := readParquetColumn(c, pf.NumRows())
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", names[i], err)
		}
		cols[i] = &table.Column{Name: names[i], Type: types[i], Values: vals}
	}
	return table.New(cols...)
}

func leafColumns(c *parquet.Column) []*parquet.Column {
	if c.Leaf() {
		return []*parquet.Column{c}
	}
	var out []*parquet.Column
	for _, child := range c.Columns() {
		out = append(out, leafColumns(child)...)
	}
	return out
}

func parquetDType(c *parquet.Column) table.DType {
	if c.MaxRepetitionLevel() > 0 {
		return table.Object
	}
	if lt := c.Type().LogicalType(); lt != nil && (lt.Timestamp != nil || lt.Date != nil) {
		return table.DateTime
	}
	switch c.Type().Kind() {
	case parquet.Boolean:
		return table.Bool
	case parquet.Int32, parquet.Int64:
		return table.Int64
	case parquet.Float, parquet.Double:
		return table.Float64
	case parquet.Int96:
		return table.DateTime
	}
	return table.Object
}

func readParquetColumn(c *parquet.Column, numRows int64) ([]any, error) {
	lt := c.Type().LogicalType()
	repeated := c.MaxRepetitionLevel() > 0
	out := make([]any, 0, numRows)

	pages := c.Pages()
	defer pages.Close()
	buf := make([]parquet.Value, 512)
	for {
		page, err := pages.ReadPage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		r := page.Values()
		for {
			n, err := r.ReadValues(buf)
			for _, v := range buf[:n] {
				if !repeated {
					out = append(out, parquetValue(v, lt))
					continue
				}
				if v.RepetitionLevel() == 0 {
					out = append(out, []any{})
				}
				last := len(out) - 1
				if v.IsNull() && !(c.Optional() && v.DefinitionLevel() == c.MaxDefinitionLevel()-1) {
					// an empty or null list contributes no element
					continue
				}
				out[last] = append(out[last].([]any), parquetValue(v, lt))
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, err
			}
		}
	}
	if int64(len(out)) != numRows {
		return nil, fmt.Errorf("read %d values for %d rows", len(out), numRows)
	}
	return out, nil
}

func parquetValue(v parquet.Value, lt *format.LogicalType) any {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		if lt != nil && lt.Date != nil {
			return time.Unix(int64(v.Int32())*86400, 0).UTC()
		}
		return v.Int32()
	case parquet.Int64:
		if lt != nil && lt.Timestamp != nil {
			return timestampValue(v.Int64(), lt.Timestamp)
		}
		return v.Int64()
	case parquet.Int96:
		i := v.Int96()
		nanos := int64(uint64(i[1])<<32 | uint64(i[0]))
		days := int64(i[2]) - 2440588
		return time.Unix(days*86400, nanos).UTC()
	case parquet.Float:
		return v.Float()
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	}
	return nil
}

func timestampValue(x int64, ts *format.TimestampType) time.Time {
	switch {
	case ts.Unit.Millis != nil:
		return time.UnixMilli(x).UTC()
	case ts.Unit.Micros != nil:
		return time.UnixMicro(x).UTC()
	default:
		return time.Unix(0, x).UTC()
	}
}
