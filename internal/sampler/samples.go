package sampler

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/KaramelBytes/datacatalog-cli/internal/normalize"
	"github.com/KaramelBytes/datacatalog-cli/internal/table"
)

// Slots is the number of sample values kept per column.
const Slots = 3

// Samples holds the sample slots of one column. A nil slot is the null
// placeholder.
type Samples [Slots]*string

// Strings renders the slots, with "None" for empty ones.
func (s Samples) Strings() []string {
	out := make([]string, Slots)
	for i, v := range s {
		if v == nil {
			out[i] = "None"
			continue
		}
		out[i] = *v
	}
	return out
}

// ColumnSamples pairs a column name with its samples.
type ColumnSamples struct {
	Name   string
	Values Samples
}

// SampleMap is the ordered column name -> samples mapping of one file. The
// zero value is the empty map returned for unreadable files.
type SampleMap struct {
	Columns []ColumnSamples
}

// Len returns the number of columns.
func (m *SampleMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.Columns)
}

// Names returns the column names in source order.
func (m *SampleMap) Names() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.Columns))
	for i, c := range m.Columns {
		out[i] = c.Name
	}
	return out
}

// Get returns the samples of name.
func (m *SampleMap) Get(name string) (Samples, bool) {
	if m == nil {
		return Samples{}, false
	}
	for _, c := range m.Columns {
		if c.Name == name {
			return c.Values, true
		}
	}
	return Samples{}, false
}

func (m *SampleMap) MarshalJSON() ([]byte, error) {
	om := normalize.NewOrderedMap()
	if m != nil {
		for _, c := range m.Columns {
			om.Set(c.Name, c.Values)
		}
	}
	return json.Marshal(om)
}

func (m *SampleMap) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	m.Columns = nil
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("sample map: expected object, got %v", tok)
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var vals []*string
		if err := dec.Decode(&vals); err != nil {
			return fmt.Errorf("sample map %q: %w", name, err)
		}
		var s Samples
		copy(s[:], vals)
		m.Columns = append(m.Columns, ColumnSamples{Name: name, Values: s})
	}
	_, err = dec.Token()
	return err
}

// Extract takes the first Slots non-null values of every column, in order.
func Extract(t *table.Table) *SampleMap {
	m := &SampleMap{Columns: make([]ColumnSamples, 0, len(t.Columns))}
	for _, c := range t.Columns {
		var s Samples
		n := 0
		for _, v := range c.Values {
			if n == Slots {
				break
			}
			if table.IsNull(v) {
				continue
			}
			str := normalize.String(v)
			s[n] = &str
			n++
		}
		m.Columns = append(m.Columns, ColumnSamples{Name: c.Name, Values: s})
	}
	return m
}
