package workflow

import (
	"encoding/json"
	"strconv"
	"strings"
)

// transforms are the named value transforms a binding may request. A
// transform that cannot apply returns its input unchanged, and an unknown
// transform name is a no-op; bindings and templates may drift and that must
// never be fatal.
var transforms = map[string]func(any) any{
	"number":    toNumber,
	"string":    toString,
	"lowercase": caseFold(strings.ToLower),
	"uppercase": caseFold(strings.ToUpper),
	"json":      toJSON,
}

// ApplyTransform applies the named transform to v. Unknown names return v
// unchanged.
func ApplyTransform(name string, v any) any {
	fn, ok := transforms[strings.TrimSpace(name)]
	if !ok {
		return v
	}
	return fn(v)
}

func toNumber(v any) any {
	switch t := v.(type) {
	case float64, int, int64:
		return v
	case bool:
		if t {
			return float64(1)
		}
		return float64(0)
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return v
		}
		return n
	default:
		return v
	}
}

func toString(v any) any {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return v
		}
		return string(b)
	}
}

func caseFold(fold func(string) string) func(any) any {
	return func(v any) any {
		if s, ok := v.(string); ok {
			return fold(s)
		}
		return v
	}
}

func toJSON(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	var out any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return v
	}
	return out
}
