package loader

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/datacatalog-cli/internal/table"
)

// inferText types a column of raw text cells. Empty cells are null; every
// other token is kept, so "NA" and friends survive as text.
func inferText(name string, raw []string) *table.Column {
	col := &table.Column{Name: name, Values: make([]any, len(raw))}
	nonEmpty := 0
	ints, floats, bools := true, true, true
	for _, s := range raw {
		if s == "" {
			continue
		}
		nonEmpty++
		t := strings.TrimSpace(s)
		if ints {
			if _, err := strconv.ParseInt(t, 10, 64); err != nil {
				ints = false
			}
		}
		if floats {
			if _, ok := parseFinite(t); !ok {
				floats = false
			}
		}
		if bools {
			if _, ok := parseBool(t); !ok {
				bools = false
			}
		}
		if !ints && !floats && !bools {
			break
		}
	}
	switch {
	case len(raw) == 0:
		col.Type = table.Object
	case nonEmpty == 0:
		col.Type = table.Float64
	case ints:
		col.Type = table.Int64
		for i, s := range raw {
			if s != "" {
				col.Values[i], _ = strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			}
		}
	case floats:
		col.Type = table.Float64
		for i, s := range raw {
			if s != "" {
				col.Values[i], _ = parseFinite(strings.TrimSpace(s))
			}
		}
	case bools:
		col.Type = table.Bool
		for i, s := range raw {
			if s != "" {
				col.Values[i], _ = parseBool(strings.TrimSpace(s))
			}
		}
	default:
		col.Type = table.Object
		for i, s := range raw {
			if s != "" {
				col.Values[i] = s
			}
		}
	}
	return col
}

// parseFinite accepts decimal literals only: no hex, no inf/nan spellings.
func parseFinite(s string) (float64, bool) {
	if s == "" || strings.ContainsAny(s, "xXpP_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// inferValues types a column of already decoded cells (xlsx, json).
// Integral-only numbers become int64, mixed numbers float64.
func inferValues(name string, vals []any, temporal bool) *table.Column {
	col := &table.Column{Name: name, Values: vals}
	var nInt, nFloat, nBool, nTime, nStr, nonNull int
	for _, v := range vals {
		switch x := v.(type) {
		case nil:
			continue
		case int64:
			nInt++
		case float64:
			nFloat++
		case json.Number:
			if _, err := x.Int64(); err == nil {
				nInt++
			} else {
				nFloat++
			}
		case bool:
			nBool++
		case time.Time:
			nTime++
		case string:
			nStr++
		}
		nonNull++
	}
	switch {
	case len(vals) == 0:
		col.Type = table.Object
	case nonNull == 0:
		col.Type = table.Float64
	case nInt == nonNull:
		col.Type = table.Int64
		for i, v := range vals {
			if n, ok := v.(json.Number); ok {
				vals[i], _ = n.Int64()
			}
		}
	case nInt+nFloat == nonNull:
		col.Type = table.Float64
		for i, v := range vals {
			switch x := v.(type) {
			case int64:
				vals[i] = float64(x)
			case json.Number:
				vals[i], _ = x.Float64()
			}
		}
	case nBool == nonNull:
		col.Type = table.Bool
	case nTime == nonNull:
		col.Type = table.DateTime
	case temporal && nStr == nonNull:
		times := make([]any, len(vals))
		for i, v := range vals {
			if v == nil {
				continue
			}
			t, ok := parseTimeMaybe(v.(string))
			if !ok {
				col.Type = table.Object
				return col
			}
			times[i] = t
		}
		col.Type = table.DateTime
		col.Values = times
	default:
		col.Type = table.Object
	}
	return col
}

func parseTimeMaybe(s string) (time.Time, bool) {
	layouts := []string{
		time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02", "2006/01/02", "02/01/2006", "01/02/2006",
		"2006-01-02 15:04", "2006-01-02 15:04:05", "1/2/2006 15:04", "1/2/2006 15:04:05",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// temporalName mirrors the column names a JSON reader treats as dates.
func temporalName(name string) bool {
	n := strings.ToLower(name)
	return strings.HasSuffix(n, "_at") || strings.HasSuffix(n, "_time") ||
		strings.HasPrefix(n, "timestamp") || n == "modified" || n == "date" || n == "datetime"
}
