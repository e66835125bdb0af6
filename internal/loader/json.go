package loader

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/KaramelBytes/datacatalog-cli/internal/normalize"
	"github.com/KaramelBytes/datacatalog-cli/internal/table"
)

// jsonDecoder accepts a root array of records, a root object in column
// orientation ({"col": [...]} or {"col": {"idx": v}}), or a sequence of
// record objects (JSON lines). Key order is first-seen order.
type jsonDecoder struct{}

func (jsonDecoder) Decode(ctx context.Context, path string, opt Options) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open json: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(bufio.NewReader(f))
	dec.UseNumber()

	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty json document")
	}
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil, fmt.Errorf("expected array or object at top level, got %v", tok)
	}

	b := newRecordBuilder()
	switch delim {
	case '[':
		for n := 1; dec.More(); n++ {
			if n%checkEvery == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			b.add(v)
			if opt.HeaderOnly {
				return headerTable(b.keys, nil), nil
			}
		}
		if _, err := dec.Token(); err != nil {
			return nil, fmt.Errorf("read json: %w", err)
		}
	case '{':
		first, err := decodeObjectBody(dec)
		if err != nil {
			return nil, err
		}
		if !dec.More() && columnOriented(first) {
			if opt.HeaderOnly {
				return headerTable(first.Keys(), nil), nil
			}
			return fromColumns(first)
		}
		b.add(first)
		if opt.HeaderOnly {
			return headerTable(b.keys, nil), nil
		}
		for n := 1; dec.More(); n++ {
			if n%checkEvery == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			b.add(v)
		}
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", delim)
	}
	return b.table()
}

// decodeValue reads one JSON value, keeping object key order.
func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	switch x := tok.(type) {
	case json.Delim:
		switch x {
		case '{':
			return decodeObjectBody(dec)
		case '[':
			arr := []any{}
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, fmt.Errorf("read json: %w", err)
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", x)
	default:
		return x, nil
	}
}

// decodeObjectBody reads the members of an object whose '{' was consumed.
func decodeObjectBody(dec *json.Decoder) (*normalize.OrderedMap, error) {
	m := normalize.NewOrderedMap()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read json: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		m.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read json: %w", err)
	}
	return m, nil
}

// columnOriented reports whether every member is itself a collection, which
// marks {"col": {...}} / {"col": [...]} documents.
func columnOriented(m *normalize.OrderedMap) bool {
	if m.Len() == 0 {
		return false
	}
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		switch v.(type) {
		case *normalize.OrderedMap, []any:
		default:
			return false
		}
	}
	return true
}

func fromColumns(m *normalize.OrderedMap) (*table.Table, error) {
	// rows are keyed by index label; list columns use their position
	var index []string
	seen := map[string]int{}
	byCol := make([]map[string]any, 0, m.Len())
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		cells := map[string]any{}
		switch x := v.(type) {
		case *normalize.OrderedMap:
			for _, idx := range x.Keys() {
				cells[idx], _ = x.Get(idx)
				if _, ok := seen[idx]; !ok {
					seen[idx] = len(index)
					index = append(index, idx)
				}
			}
		case []any:
			for i, e := range x {
				idx := fmt.Sprint(i)
				cells[idx] = e
				if _, ok := seen[idx]; !ok {
					seen[idx] = len(index)
					index = append(index, idx)
				}
			}
		}
		byCol = append(byCol, cells)
	}
	keys := m.Keys()
	cols := make([]*table.Column, len(keys))
	for j, k := range keys {
		vals := make([]any, len(index))
		for i, idx := range index {
			vals[i] = byCol[j][idx]
		}
		cols[j] = inferValues(k, vals, temporalName(k))
	}
	return table.New(cols...)
}

// recordBuilder accumulates record objects into columns.
type recordBuilder struct {
	keys []string
	cols map[string][]any
	rows int
}

func newRecordBuilder() *recordBuilder {
	return &recordBuilder{cols: map[string][]any{}}
}

func (b *recordBuilder) add(v any) {
	rec, ok := v.(*normalize.OrderedMap)
	if !ok {
		// scalar rows land in a single unnamed column
		rec = normalize.NewOrderedMap()
		rec.Set("0", v)
	}
	for _, k := range rec.Keys() {
		col, exists := b.cols[k]
		if !exists {
			b.keys = append(b.keys, k)
			col = make([]any, b.rows)
		}
		x, _ := rec.Get(k)
		b.cols[k] = append(col, x)
	}
	b.rows++
	for _, k := range b.keys {
		if len(b.cols[k]) < b.rows {
			b.cols[k] = append(b.cols[k], nil)
		}
	}
}

func (b *recordBuilder) table() (*table.Table, error) {
	cols := make([]*table.Column, len(b.keys))
	for j, k := range b.keys {
		cols[j] = inferValues(k, b.cols[k], temporalName(k))
	}
	return table.New(cols...)
}
