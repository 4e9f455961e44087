package component

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Kind tags the runtime type of a parameter value.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindBool
	KindURL
	KindJSON
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindURL:
		return "url"
	case KindJSON:
		return "json"
	default:
		return "unknown"
	}
}

// Value is a tagged variant for parameter values. Every value carries its
// kind and every conversion is explicit and total.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	raw  any
}

// FromAny classifies an arbitrary decoded JSON value. It never fails:
// anything unrecognized is kept as a JSON value.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Value{kind: KindJSON, raw: nil}
	case string:
		if isURL(t) {
			return Value{kind: KindURL, str: t}
		}
		return Value{kind: KindString, str: t}
	case bool:
		return Value{kind: KindBool, b: t}
	case float64:
		return Value{kind: KindNumber, num: t}
	case float32:
		return Value{kind: KindNumber, num: float64(t)}
	case int:
		return Value{kind: KindNumber, num: float64(t)}
	case int64:
		return Value{kind: KindNumber, num: float64(t)}
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return Value{kind: KindString, str: t.String()}
		}
		return Value{kind: KindNumber, num: n}
	default:
		return Value{kind: KindJSON, raw: v}
	}
}

// Kind returns the tag of the value.
func (v Value) Kind() Kind { return v.kind }

// AsString renders the value as a string. Total: every kind has a string
// form.
func (v Value) AsString() string {
	switch v.kind {
	case KindString, KindURL:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		b, err := json.Marshal(v.raw)
		if err != nil {
			return fmt.Sprintf("%v", v.raw)
		}
		return string(b)
	}
}

// AsNumber converts to float64 where a numeric reading exists.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		n, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		return n, err == nil
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// AsBool converts to bool where a boolean reading exists.
func (v Value) AsBool() (bool, bool) {
	switch v.kind {
	case KindBool:
		return v.b, true
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.str)) {
		case "1", "true", "yes", "on":
			return true, true
		case "0", "false", "no", "off":
			return false, true
		}
		return false, false
	case KindNumber:
		return v.num != 0, true
	default:
		return false, false
	}
}

// Interface returns the value in its natural Go representation, the form
// written into workflow node inputs.
func (v Value) Interface() any {
	switch v.kind {
	case KindString, KindURL:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	default:
		return v.raw
	}
}

// conformsTo reports whether the value satisfies a declared parameter type.
func (v Value) conformsTo(t ParamType) bool {
	switch t {
	case TypeString:
		return v.kind == KindString || v.kind == KindURL
	case TypeNumber:
		_, ok := v.AsNumber()
		return ok && v.kind != KindBool
	case TypeBoolean:
		_, ok := v.AsBool()
		return ok && v.kind != KindNumber
	case TypeURL:
		return v.kind == KindURL
	case TypeJSON:
		if v.kind == KindJSON {
			return true
		}
		if v.kind == KindString {
			return json.Valid([]byte(v.str))
		}
		return false
	default:
		// Undeclared types never reject a value.
		return true
	}
}

func isURL(s string) bool {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Host != ""
}
