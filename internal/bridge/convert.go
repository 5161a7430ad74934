package bridge

import (
	"encoding/json"
	"math"
)

// toFloats normalizes a script payload into a fresh slice of finite
// numbers. It accepts numeric sequences and JSON array strings.
func toFloats(v any) ([]float64, bool) {
	out, ok := decode(v)
	if !ok {
		return nil, false
	}
	for _, f := range out {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
	}
	return out, true
}

func decode(v any) ([]float64, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case []float64:
		return append([]float64(nil), x...), true
	case []int:
		out := make([]float64, len(x))
		for i, n := range x {
			out[i] = float64(n)
		}
		return out, true
	case []any:
		out := make([]float64, len(x))
		for i, e := range x {
			f, ok := toFloat(e)
			if !ok {
				return nil, false
			}
			out[i] = f
		}
		return out, true
	case string:
		var out []float64
		if err := json.Unmarshal([]byte(x), &out); err != nil {
			return nil, false
		}
		return out, true
	}
	return nil, false
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	default:
		return 0, false
	}
	return f, true
}

// fixed pads or truncates v to n entries.
func fixed(v []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, v)
	return out
}
