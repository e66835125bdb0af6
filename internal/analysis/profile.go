// Package analysis computes per-column dataset profiles and renders them for
// downstream text generation.
package analysis

import (
	"encoding/json"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KaramelBytes/datacatalog-cli/internal/normalize"
	"github.com/KaramelBytes/datacatalog-cli/internal/table"
)

// nullTokens are text values that conventionally stand for a missing value.
// Matching is exact and case-sensitive.
var nullTokens = map[string]struct{}{
	"NA": {}, "Na": {}, "na": {},
	"NULL": {}, "Null": {}, "null": {},
	"NAN": {}, "Nan": {}, "nan": {},
}

// Options configures ProfileTable.
type Options struct {
	// OnColumn is called after each column with a 1-based progress count.
	OnColumn func(done, total int, name string)
}

// NumericStats holds rounded summary statistics. A nil field means the
// statistic is undefined for the column.
type NumericStats struct {
	Mean   *float64
	Median *float64
	Std    *float64
	Min    *float64
	Max    *float64
}

// ColumnStats is the profile record of one column.
type ColumnStats struct {
	Name           string
	DType          table.DType
	Sample         any
	TotalCount     int
	NullCount      int
	NullPercentage string
	UniqueCount    int
	// Numeric is set iff DType is numeric.
	Numeric *NumericStats
	// AlternativeNullCount is set iff the column is text and holds at least
	// one null-like token.
	AlternativeNullCount *int
}

// Map returns the record as a key-ordered mapping of portable primitives.
func (c ColumnStats) Map() *normalize.OrderedMap {
	m := normalize.NewOrderedMap()
	m.Set("dtype", string(c.DType))
	m.Set("sample", c.Sample)
	m.Set("total_count", int64(c.TotalCount))
	m.Set("null_count", int64(c.NullCount))
	m.Set("null_percentage", c.NullPercentage)
	m.Set("unique_count", int64(c.UniqueCount))
	if c.Numeric != nil {
		m.Set("mean", optional(c.Numeric.Mean))
		m.Set("median", optional(c.Numeric.Median))
		m.Set("std", optional(c.Numeric.Std))
		m.Set("min", optional(c.Numeric.Min))
		m.Set("max", optional(c.Numeric.Max))
	}
	if c.AlternativeNullCount != nil {
		m.Set("alternative_null_count", int64(*c.AlternativeNullCount))
	}
	return m
}

func optional(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func (c ColumnStats) MarshalJSON() ([]byte, error) { return json.Marshal(c.Map()) }

// Profile is the ordered set of column records for one table.
type Profile struct {
	Columns []ColumnStats
}

// Names returns the column names in source order.
func (p *Profile) Names() []string {
	out := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		out[i] = c.Name
	}
	return out
}

// Column returns the record for name.
func (p *Profile) Column(name string) (ColumnStats, bool) {
	for _, c := range p.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnStats{}, false
}

// Map returns column name -> record mapping in source order.
func (p *Profile) Map() *normalize.OrderedMap {
	m := normalize.NewOrderedMap()
	for _, c := range p.Columns {
		m.Set(c.Name, c.Map())
	}
	return m
}

func (p *Profile) MarshalJSON() ([]byte, error) { return json.Marshal(p.Map()) }

// ProfileTable computes one record per column, in column order.
func ProfileTable(t *table.Table, opt Options) *Profile {
	p := &Profile{Columns: make([]ColumnStats, 0, len(t.Columns))}
	for i, c := range t.Columns {
		p.Columns = append(p.Columns, profileColumn(c))
		if opt.OnColumn != nil {
			opt.OnColumn(i+1, len(t.Columns), c.Name)
		}
	}
	return p
}

func profileColumn(c *table.Column) ColumnStats {
	values := c.NonNull()
	s := ColumnStats{
		Name:       c.Name,
		DType:      c.Type,
		TotalCount: c.Len(),
		NullCount:  c.Len() - len(values),
	}
	if len(values) > 0 {
		s.Sample = roundSample(normalize.Normalize(values[0]))
	}
	s.NullPercentage = "0.0%"
	if s.TotalCount > 0 {
		s.NullPercentage = fmt.Sprintf("%.1f%%", float64(s.NullCount)/float64(s.TotalCount)*100)
	}
	distinct := make(map[string]struct{}, len(values))
	for _, v := range values {
		distinct[uniqueKey(v)] = struct{}{}
	}
	s.UniqueCount = len(distinct)

	if c.Type.Numeric() {
		s.Numeric = numericStats(values)
	}
	if c.Type.Text() {
		n := 0
		for _, v := range values {
			if str, ok := v.(string); ok {
				if _, hit := nullTokens[str]; hit {
					n++
				}
			}
		}
		if n > 0 {
			s.AlternativeNullCount = &n
		}
	}
	return s
}

func numericStats(values []any) *NumericStats {
	xs := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := toFloat(v); ok {
			xs = append(xs, f)
		}
	}
	ns := &NumericStats{}
	if len(xs) == 0 {
		return ns
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	ns.Mean = round2(stat.Mean(xs, nil))
	ns.Median = round2(quantile(sorted, 0.5))
	if len(xs) > 1 {
		ns.Std = round2(stat.StdDev(xs, nil))
	}
	ns.Min = round2(floats.Min(xs))
	ns.Max = round2(floats.Max(xs))
	return ns
}
