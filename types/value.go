// Package types contains the data model shared by the host bridge, the mock
// dispatcher and the simulated chain: dynamic JSON values, balances,
// transactions, results and the per-call execution context.
package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	NullKind Kind = iota
	BoolKind
	NumberKind
	StringKind
	ArrayKind
	MapKind
)

func (k Kind) String() string {
	switch k {
	case NullKind:
		return "null"
	case BoolKind:
		return "bool"
	case NumberKind:
		return "number"
	case StringKind:
		return "string"
	case ArrayKind:
		return "array"
	case MapKind:
		return "map"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is an arbitrary JSON value. Contract state, call arguments and mock
// parameters have shapes the host cannot know ahead of time, so they travel as
// Values. The zero Value is null.
//
// Map and array Values share their backing storage when copied.
type Value struct {
	kind Kind
	b    bool
	n    json.Number
	s    string
	a    []Value
	m    map[string]Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: BoolKind, b: b} }

// Int wraps an integer.
func Int(i int64) Value {
	return Value{kind: NumberKind, n: json.Number(strconv.FormatInt(i, 10))}
}

// Uint wraps an unsigned integer.
func Uint(u uint64) Value {
	return Value{kind: NumberKind, n: json.Number(strconv.FormatUint(u, 10))}
}

// Float wraps a floating point number.
func Float(f float64) Value {
	return Value{kind: NumberKind, n: json.Number(strconv.FormatFloat(f, 'g', -1, 64))}
}

// String wraps a string.
func String(s string) Value { return Value{kind: StringKind, s: s} }

// Array builds an array value.
func Array(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: ArrayKind, a: items}
}

// Map builds a map value. A nil map yields an empty object.
func Map(m map[string]Value) Value {
	if m == nil {
		m = make(map[string]Value)
	}
	return Value{kind: MapKind, m: m}
}

// Object is shorthand for an empty map value.
func Object() Value { return Map(nil) }

// ValueOf converts any JSON-encodable Go value to a Value.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case Value:
		return x, nil
	case *Value:
		if x == nil {
			return Null(), nil
		}
		return *x, nil
	case nil:
		return Null(), nil
	case json.RawMessage:
		return ParseValue(x)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Null(), fmt.Errorf("failed to encode %T: %w", v, err)
	}
	return ParseValue(data)
}

// MustValue is ValueOf for literals known to encode.
func MustValue(v any) Value {
	out, err := ValueOf(v)
	if err != nil {
		panic(err)
	}
	return out
}

// ParseValue decodes a JSON document.
func ParseValue(data []byte) (Value, error) {
	var v Value
	if err := json.Unmarshal(data, &v); err != nil {
		return Null(), err
	}
	return v, nil
}

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsNull() bool  { return v.kind == NullKind }
func (v Value) IsMap() bool   { return v.kind == MapKind }
func (v Value) IsArray() bool { return v.kind == ArrayKind }

// AsBool returns the boolean and whether v is one.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == BoolKind }

// AsString returns the string and whether v is one.
func (v Value) AsString() (string, bool) { return v.s, v.kind == StringKind }

// AsInt64 returns v as an integer when it is an integral number.
func (v Value) AsInt64() (int64, bool) {
	if v.kind != NumberKind {
		return 0, false
	}
	i, err := v.n.Int64()
	return i, err == nil
}

// AsFloat64 returns v as a float when it is a number.
func (v Value) AsFloat64() (float64, bool) {
	if v.kind != NumberKind {
		return 0, false
	}
	f, err := v.n.Float64()
	return f, err == nil
}

// Number returns the literal of a number value.
func (v Value) Number() (json.Number, bool) { return v.n, v.kind == NumberKind }

// Len is the number of elements of an array or entries of a map.
func (v Value) Len() int {
	switch v.kind {
	case ArrayKind:
		return len(v.a)
	case MapKind:
		return len(v.m)
	}
	return 0
}

// Index returns the i-th element of an array, or null.
func (v Value) Index(i int) Value {
	if v.kind != ArrayKind || i < 0 || i >= len(v.a) {
		return Null()
	}
	return v.a[i]
}

// Items returns the elements of an array.
func (v Value) Items() []Value {
	if v.kind != ArrayKind {
		return nil
	}
	return v.a
}

// Get looks up key in a map value.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != MapKind {
		return Null(), false
	}
	item, ok := v.m[key]
	return item, ok
}

// Has reports whether a map value holds key.
func (v Value) Has(key string) bool {
	_, ok := v.Get(key)
	return ok
}

// Keys returns the sorted keys of a map value.
func (v Value) Keys() []string {
	if v.kind != MapKind {
		return nil
	}
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set stores key in a map value. It panics when v is not a map.
func (v Value) Set(key string, item Value) {
	if v.kind != MapKind {
		panic("types: Set on " + v.kind.String() + " value")
	}
	v.m[key] = item
}

// Equal compares two values structurally. Numbers compare by value.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case NullKind:
		return true
	case BoolKind:
		return v.b == other.b
	case NumberKind:
		if v.n == other.n {
			return true
		}
		a, errA := v.n.Float64()
		b, errB := other.n.Float64()
		return errA == nil && errB == nil && a == b
	case StringKind:
		return v.s == other.s
	case ArrayKind:
		if len(v.a) != len(other.a) {
			return false
		}
		for i := range v.a {
			if !v.a[i].Equal(other.a[i]) {
				return false
			}
		}
		return true
	case MapKind:
		if len(v.m) != len(other.m) {
			return false
		}
		for k, item := range v.m {
			o, ok := other.m[k]
			if !ok || !item.Equal(o) {
				return false
			}
		}
		return true
	}
	return false
}

// Interface converts v to plain Go values (nil, bool, json.Number, string,
// []any, map[string]any).
func (v Value) Interface() any {
	switch v.kind {
	case BoolKind:
		return v.b
	case NumberKind:
		return v.n
	case StringKind:
		return v.s
	case ArrayKind:
		out := make([]any, len(v.a))
		for i, item := range v.a {
			out[i] = item.Interface()
		}
		return out
	case MapKind:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = item.Interface()
		}
		return out
	}
	return nil
}

// Clone returns a deep copy of v.
func (v Value) Clone() Value {
	switch v.kind {
	case ArrayKind:
		items := make([]Value, len(v.a))
		for i, item := range v.a {
			items[i] = item.Clone()
		}
		return Value{kind: ArrayKind, a: items}
	case MapKind:
		m := make(map[string]Value, len(v.m))
		for k, item := range v.m {
			m[k] = item.Clone()
		}
		return Value{kind: MapKind, m: m}
	}
	return v
}

// Decode unmarshals v into dst.
func (v Value) Decode(dst any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// String renders v as compact JSON.
func (v Value) String() string {
	data, err := json.Marshal(v)
	if err != nil {
		return "<invalid value: " + err.Error() + ">"
	}
	return string(data)
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case NullKind:
		return []byte("null"), nil
	case BoolKind:
		return json.Marshal(v.b)
	case NumberKind:
		return []byte(v.n), nil
	case StringKind:
		return json.Marshal(v.s)
	case ArrayKind:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, item := range v.a {
			if i > 0 {
				buf.WriteByte(',')
			}
			data, err := item.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(data)
		}
		buf.WriteByte(']')
		return buf.Bytes(), nil
	case MapKind:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range v.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			data, err := v.m[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(data)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("types: cannot encode value of %s", v.kind)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	*v = fromInterface(raw)
	return nil
}

func fromInterface(raw any) Value {
	switch x := raw.(type) {
	case bool:
		return Bool(x)
	case json.Number:
		return Value{kind: NumberKind, n: x}
	case string:
		return String(x)
	case []any:
		items := make([]Value, len(x))
		for i, item := range x {
			items[i] = fromInterface(item)
		}
		return Array(items...)
	case map[string]any:
		m := make(map[string]Value, len(x))
		for k, item := range x {
			m[k] = fromInterface(item)
		}
		return Map(m)
	}
	return Null()
}
