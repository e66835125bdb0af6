package analysis

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/KaramelBytes/datacatalog-cli/internal/normalize"
)

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// round2 rounds half away from zero to two decimals. Non-finite input yields nil.
func round2(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	r := decimal.NewFromFloat(f).Round(2).InexactFloat64()
	return &r
}

func roundSample(v any) any {
	if f, ok := v.(float64); ok {
		if r := round2(f); r != nil {
			return *r
		}
		return nil
	}
	return v
}

func toFloat(v any) (float64, bool) {
	switch x := normalize.Normalize(v).(type) {
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// uniqueKey maps a value to a comparable key. Integral floats share the key of
// the equal integer.
func uniqueKey(v any) string {
	switch x := normalize.Normalize(v).(type) {
	case int64:
		return "i" + strconv.FormatInt(x, 10)
	case uint64:
		return "i" + strconv.FormatUint(x, 10)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<63 {
			return "i" + strconv.FormatInt(int64(x), 10)
		}
		return "f" + strconv.FormatFloat(x, 'g', -1, 64)
	case string:
		if t, ok := v.(time.Time); ok {
			return "t" + t.UTC().Format(time.RFC3339Nano)
		}
		return "s" + x
	case bool:
		return "b" + strconv.FormatBool(x)
	case nil:
		return "n"
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return "?"
		}
		return "j" + string(b)
	}
}
