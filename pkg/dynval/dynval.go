// Package dynval implements a closed tagged-union value for decoding JSON
// documents whose schema is not known ahead of time (the diagnosis report).
// Decoding is total: any well-formed JSON document decodes without error, and
// every accessor returns a zero value plus an ok flag instead of panicking or
// erroring when the shape does not match.
package dynval

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindDouble
	KindString
	KindArray
	KindMap
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	}
	return "unknown"
}

// Value is an immutable JSON value. The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	arr  []Value
	obj  map[string]Value
}

// Constructors.

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps an integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Double wraps a floating-point number.
func Double(f float64) Value { return Value{kind: KindDouble, f: f} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array wraps a slice of values.
func Array(items ...Value) Value { return Value{kind: KindArray, arr: items} }

// Map wraps a map of values.
func Map(fields map[string]Value) Value { return Value{kind: KindMap, obj: fields} }

// Kind returns the variant held by this value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Str returns the string variant.
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// Int64 returns the integer variant.
func (v Value) Int64() (int64, bool) {
	if v.kind != KindInt {
		return 0, false
	}
	return v.i, true
}

// Float returns the numeric value of an int or double variant. Integers are
// widened so callers reading report metrics do not care which way the backend
// serialized a number.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindDouble:
		return v.f, true
	}
	return 0, false
}

// BoolVal returns the boolean variant.
func (v Value) BoolVal() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// Items returns the array elements, or nil when the value is not an array.
func (v Value) Items() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.arr
}

// Fields returns the map entries, or nil when the value is not a map.
func (v Value) Fields() map[string]Value {
	if v.kind != KindMap {
		return nil
	}
	return v.obj
}

// Keys returns the map keys in sorted order for deterministic iteration.
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the map entry for key, or Null when absent or not a map.
func (v Value) Get(key string) Value {
	val, _ := v.Lookup(key)
	return val
}

// Lookup walks a key path through nested maps. The second result is false as
// soon as any step is missing or not a map.
func (v Value) Lookup(path ...string) (Value, bool) {
	cur := v
	for _, key := range path {
		if cur.kind != KindMap {
			return Null(), false
		}
		next, ok := cur.obj[key]
		if !ok {
			return Null(), false
		}
		cur = next
	}
	return cur, true
}

// At returns the array element at index i, or Null when out of range.
func (v Value) At(i int) Value {
	if v.kind != KindArray || i < 0 || i >= len(v.arr) {
		return Null()
	}
	return v.arr[i]
}

// Len returns the number of elements for arrays and maps, 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindMap:
		return len(v.obj)
	}
	return 0
}

// Convenience accessors with defaults. These keep report projection code flat.

// StrOr returns the string variant or def.
func (v Value) StrOr(def string) string {
	if s, ok := v.Str(); ok {
		return s
	}
	return def
}

// FloatOr returns the numeric value or def.
func (v Value) FloatOr(def float64) float64 {
	if f, ok := v.Float(); ok {
		return f
	}
	return def
}

// IntOr returns the integer value or def. Doubles holding integral values are
// not truncated; the caller gets def instead.
func (v Value) IntOr(def int64) int64 {
	if i, ok := v.Int64(); ok {
		return i
	}
	return def
}

// BoolOr returns the boolean value or def.
func (v Value) BoolOr(def bool) bool {
	if b, ok := v.BoolVal(); ok {
		return b
	}
	return def
}

// UnmarshalJSON decodes arbitrary JSON into the union. Variant priority is
// fixed (null, bool, int, double, string, array, map) so that a boolean never
// decodes as a number and an integral number never loses its integer kind.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		*v = Null()
		return nil
	}

	switch trimmed[0] {
	case 'n':
		*v = Null()
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return fmt.Errorf("dynval: invalid bool literal: %w", err)
		}
		*v = Bool(b)
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("dynval: invalid string literal: %w", err)
		}
		*v = String(s)
		return nil
	case '[':
		var arr []Value
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return fmt.Errorf("dynval: invalid array: %w", err)
		}
		if arr == nil {
			arr = []Value{}
		}
		*v = Value{kind: KindArray, arr: arr}
		return nil
	case '{':
		var obj map[string]Value
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return fmt.Errorf("dynval: invalid object: %w", err)
		}
		if obj == nil {
			obj = map[string]Value{}
		}
		*v = Value{kind: KindMap, obj: obj}
		return nil
	}

	// Number: integer first, then double.
	var i int64
	if err := json.Unmarshal(trimmed, &i); err == nil {
		*v = Int(i)
		return nil
	}
	var f float64
	if err := json.Unmarshal(trimmed, &f); err == nil {
		*v = Double(f)
		return nil
	}
	return fmt.Errorf("dynval: unrecognized JSON token %q", string(trimmed))
}

// MarshalJSON encodes the union back to plain JSON.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindInt:
		return json.Marshal(v.i)
	case KindDouble:
		return appendDouble(v.f), nil
	case KindString:
		return json.Marshal(v.s)
	case KindArray:
		return json.Marshal(v.arr)
	case KindMap:
		return json.Marshal(v.obj)
	}
	return nil, fmt.Errorf("dynval: unknown kind %d", v.kind)
}

// appendDouble formats a double so it re-decodes as a double: an integral
// float keeps a trailing ".0" instead of collapsing to an integer literal.
// Non-finite values have no JSON representation and encode as null.
func appendDouble(f float64) []byte {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null")
	}
	out := strconv.AppendFloat(nil, f, 'g', -1, 64)
	if !bytes.ContainsAny(out, ".eE") {
		out = append(out, '.', '0')
	}
	return out
}

// Parse decodes a JSON document into a Value.
func Parse(data []byte) (Value, error) {
	var v Value
	if err := json.Unmarshal(data, &v); err != nil {
		return Null(), err
	}
	return v, nil
}
