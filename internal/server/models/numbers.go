package models

import (
	"encoding/json"
	"math"
	"strconv"
)

// NormalizeNumbers walks decoded JSON-like data and renders numbers by their
// exactness: integral values become int64, everything else float64.
// Maps and slices are rewritten in place.
func NormalizeNumbers(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = NormalizeNumbers(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = NormalizeNumbers(item)
		}
		return val
	case json.Number:
		if i, err := strconv.ParseInt(val.String(), 10, 64); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return normalizeFloat(f)
		}
		return val.String()
	case float64:
		return normalizeFloat(val)
	case float32:
		return normalizeFloat(float64(val))
	default:
		return v
	}
}

func normalizeFloat(f float64) any {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1<<53 {
		return int64(f)
	}
	return f
}
