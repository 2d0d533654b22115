// Package typeutil provides the comma-ok coercions the engine applies to
// loosely typed values: call arguments, decoded scenario documents and
// configuration maps.
package typeutil

import (
	"fmt"
	"math"
	"reflect"
)

// SafeString asserts value to string.
func SafeString(value any) (string, bool) {
	s, ok := value.(string)
	return s, ok
}

// SafeStringDefault asserts value to string with a default fallback.
func SafeStringDefault(value any, defaultVal string) string {
	if s, ok := SafeString(value); ok {
		return s
	}
	return defaultVal
}

// SafeBool asserts value to bool.
func SafeBool(value any) (bool, bool) {
	b, ok := value.(bool)
	return b, ok
}

// SafeBoolDefault asserts value to bool with a default fallback.
func SafeBoolDefault(value any, defaultVal bool) bool {
	if b, ok := SafeBool(value); ok {
		return b
	}
	return defaultVal
}

// SafeInt converts any integral or floating value to int. Floats are accepted
// because JSON decoding produces float64 for every number.
func SafeInt(value any) (int, bool) {
	n, ok := Number(value)
	if !ok {
		return 0, false
	}
	return int(n), true
}

// SafeIntDefault converts value to int with a default fallback.
func SafeIntDefault(value any, defaultVal int) int {
	if i, ok := SafeInt(value); ok {
		return i
	}
	return defaultVal
}

// Number widens any Go numeric kind to float64.
func Number(value any) (float64, bool) {
	if value == nil {
		return 0, false
	}
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}

// NumbersEqual reports whether a and b are both numeric and hold the same
// value regardless of their Go kind. Integers compare exactly; an integer
// equals a float only when the float is a whole number in the integer's
// range. NaN never equals anything.
func NumbersEqual(a, b any) bool {
	x, ok := toNumber(a)
	if !ok {
		return false
	}
	y, ok := toNumber(b)
	if !ok {
		return false
	}
	if x.kind == numFloat {
		x, y = y, x
	}
	if x.kind == numUnsigned && y.kind == numSigned {
		x, y = y, x
	}

	switch {
	case x.kind == numFloat:
		return x.f == y.f
	case y.kind == numFloat:
		return integerEqualsFloat(x, y.f)
	case x.kind == numSigned && y.kind == numSigned:
		return x.i == y.i
	case x.kind == numUnsigned && y.kind == numUnsigned:
		return x.u == y.u
	default:
		// signed against unsigned
		return x.i >= 0 && uint64(x.i) == y.u
	}
}

type numKind int

const (
	numSigned numKind = iota
	numUnsigned
	numFloat
)

type number struct {
	kind numKind
	i    int64
	u    uint64
	f    float64
}

func toNumber(value any) (number, bool) {
	if value == nil {
		return number{}, false
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return number{kind: numSigned, i: rv.Int()}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return number{kind: numUnsigned, u: rv.Uint()}, true
	case reflect.Float32, reflect.Float64:
		return number{kind: numFloat, f: rv.Float()}, true
	default:
		return number{}, false
	}
}

const (
	twoPow63 = 9223372036854775808.0
	twoPow64 = 18446744073709551616.0
)

func integerEqualsFloat(n number, f float64) bool {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return false
	}
	if n.kind == numSigned {
		if f < -twoPow63 || f >= twoPow63 {
			return false
		}
		return int64(f) == n.i
	}
	if f < 0 || f >= twoPow64 {
		return false
	}
	return uint64(f) == n.u
}

// StringKeyedMap converts any map whose keys are strings into map[string]any.
// The input map is never returned as-is unless it already has that type.
func StringKeyedMap(value any) (map[string]any, bool) {
	if value == nil {
		return nil, false
	}
	if m, ok := value.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// SafeSlice converts any slice or array into []any.
func SafeSlice(value any) ([]any, bool) {
	if value == nil {
		return nil, false
	}
	if s, ok := value.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// SafeStringSlice converts value to []string. []any is accepted when every
// element is a string.
func SafeStringSlice(value any) ([]string, bool) {
	if s, ok := value.([]string); ok {
		return s, true
	}
	items, ok := SafeSlice(value)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		str, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, str)
	}
	return out, true
}

// NormalizeDecoded rewrites a decoded YAML or JSON tree so that every map has
// string keys. Non-string keys are rendered with fmt.Sprint.
func NormalizeDecoded(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = NormalizeDecoded(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[fmt.Sprint(k)] = NormalizeDecoded(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = NormalizeDecoded(item)
		}
		return out
	default:
		return value
	}
}
