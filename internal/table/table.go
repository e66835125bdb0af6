package table

import (
	"fmt"
	"math"
	"strconv"
)

// DType labels a column's storage type, using the usual dataframe dtype names so
// downstream prompts can rely on them.
type DType string

const (
	Int64    DType = "int64"
	Float64  DType = "float64"
	Bool     DType = "bool"
	Object   DType = "object"
	DateTime DType = "datetime64[ns]"
)

// Numeric reports whether the type carries numeric statistics. Booleans count
// as 0 and 1.
func (d DType) Numeric() bool { return d == Int64 || d == Float64 || d == Bool }

// Text reports whether the type holds free-form values.
func (d DType) Text() bool { return d == Object }

// Column is a named, typed sequence of cells. A nil cell or a NaN float is null.
type Column struct {
	Name   string
	Type   DType
	Values []any
}

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.Values) }

// NonNull returns the non-null cells in source order.
func (c *Column) NonNull() []any {
	out := make([]any, 0, len(c.Values))
	for _, v := range c.Values {
		if !IsNull(v) {
			out = append(out, v)
		}
	}
	return out
}

// Table is an ordered set of equally long columns.
type Table struct {
	Columns []*Column
}

// New validates that every column has the same length and that names are unique.
func New(cols ...*Column) (*Table, error) {
	seen := make(map[string]struct{}, len(cols))
	for i, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("column %d is nil", i)
		}
		if _, ok := seen[c.Name]; ok {
			return nil, fmt.Errorf("duplicate column name %q", c.Name)
		}
		seen[c.Name] = struct{}{}
		if i > 0 && c.Len() != cols[0].Len() {
			return nil, fmt.Errorf("column %q has %d values, want %d", c.Name, c.Len(), cols[0].Len())
		}
	}
	return &Table{Columns: cols}, nil
}

// NumRows returns the row count (0 for a table without columns).
func (t *Table) NumRows() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// Names returns the column names in source order.
func (t *Table) Names() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// column looks a column up by name.
func (t *Table) column(name string) (*Column, bool) {
	if t == nil {
		return nil, false
	}
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// IsNull reports whether v is a missing value.
func IsNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	}
	return false
}

// UniqueNames de-duplicates header names the way spreadsheet readers do:
// blanks become "Unnamed: i" and repeats get a ".n" suffix.
func UniqueNames(header []string) []string {
	out := make([]string, len(header))
	used := make(map[string]bool, len(header))
	next := make(map[string]int)
	for i, h := range header {
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		for used[name] {
			next[h]++
			name = h + "." + strconv.Itoa(next[h])
		}
		used[name] = true
		out[i] = name
	}
	return out
}
