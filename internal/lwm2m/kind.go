package lwm2m

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind is the declared value type of a data resource.
type Kind uint8

// Value kinds. The set is closed.
const (
	KindUndefined Kind = iota
	KindString
	KindInteger
	KindFloat
	KindBoolean
	KindOpaque
)

var kindNames = map[Kind]string{
	KindUndefined: "undefined",
	KindString:    "string",
	KindInteger:   "integer",
	KindFloat:     "float",
	KindBoolean:   "boolean",
	KindOpaque:    "opaque",
}

// String returns the lower-case kind name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsData reports whether a data resource may be declared with this kind.
func (k Kind) IsData() bool {
	switch k {
	case KindString, KindInteger, KindFloat, KindBoolean, KindOpaque:
		return true
	default:
		return false
	}
}

// ParseKind parses a kind name as returned by Kind.String.
func ParseKind(s string) (Kind, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == want {
			return k, nil
		}
	}
	return KindUndefined, fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

// Value is an immutable tagged value. Its Go representation always matches
// its kind: string, int64, float64, bool or []byte.
// The zero Value has KindUndefined.
type Value struct {
	kind Kind
	s    string
	i    int64
	f    float64
	b    bool
	o    []byte
}

// StringValue returns a string value.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// IntValue returns an integer value.
func IntValue(i int64) Value { return Value{kind: KindInteger, i: i} }

// FloatValue returns a float value.
func FloatValue(f float64) Value { return Value{kind: KindFloat, f: f} }

// BoolValue returns a boolean value.
func BoolValue(b bool) Value { return Value{kind: KindBoolean, b: b} }

// OpaqueValue returns an opaque value holding a copy of p.
func OpaqueValue(p []byte) Value { return Value{kind: KindOpaque, o: bytes.Clone(p)} }

// Kind returns the kind of v.
func (v Value) Kind() Kind { return v.kind }

// IsUndefined reports whether v carries no value.
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }

// Str returns the string payload. Empty unless v is a string.
func (v Value) Str() string { return v.s }

// Int returns the integer payload. Zero unless v is an integer.
func (v Value) Int() int64 { return v.i }

// Float returns the float payload. Zero unless v is a float.
func (v Value) Float() float64 { return v.f }

// Bool returns the boolean payload. False unless v is a boolean.
func (v Value) Bool() bool { return v.b }

// Bytes returns a copy of the opaque payload. Nil unless v is opaque.
func (v Value) Bytes() []byte { return bytes.Clone(v.o) }

// Interface returns the native Go value, or nil for an undefined value.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindInteger:
		return v.i
	case KindFloat:
		return v.f
	case KindBoolean:
		return v.b
	case KindOpaque:
		return bytes.Clone(v.o)
	default:
		return nil
	}
}

// Equal reports whether v and other hold the same kind and value.
// Opaque values compare byte-for-byte. Two NaN floats are equal so that
// rewriting NaN is not reported as a change.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == other.s
	case KindInteger:
		return v.i == other.i
	case KindFloat:
		if math.IsNaN(v.f) && math.IsNaN(other.f) {
			return true
		}
		return v.f == other.f
	case KindBoolean:
		return v.b == other.b
	case KindOpaque:
		return bytes.Equal(v.o, other.o)
	default:
		return true
	}
}

// String formats v for logs and CLI output.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBoolean:
		return strconv.FormatBool(v.b)
	case KindOpaque:
		return fmt.Sprintf("%x", v.o)
	default:
		return "<undefined>"
	}
}

// Coerce converts candidate into a Value of the given kind.
//
// Accepted inputs per kind:
//   - Integer: Go integers (range checked), finite floats (truncated toward
//     zero), booleans (0/1) and decimal strings.
//   - Float: Go integers and floats, booleans (0/1) and finite numeric strings.
//   - String: strings, UTF-8 byte slices, fmt.Stringer, numbers and booleans.
//   - Boolean: booleans, numbers (non-zero is true) and strconv.ParseBool strings.
//   - Opaque: byte slices (copied), strings and []int with elements in 0-255.
//
// A Value candidate is unwrapped first. Anything else fails with
// ErrTypeMismatch. KindUndefined fails with ErrInvalidKind.
func Coerce(kind Kind, candidate any) (Value, error) {
	if !kind.IsData() {
		return Value{}, fmt.Errorf("%w: cannot hold a value of kind %s", ErrInvalidKind, kind)
	}
	if v, ok := candidate.(Value); ok {
		if v.kind == kind {
			return v, nil
		}
		candidate = v.Interface()
	}
	if n, ok := candidate.(json.Number); ok {
		candidate = string(n)
	}

	var (
		v  Value
		ok bool
	)
	switch kind {
	case KindInteger:
		v, ok = toInteger(candidate)
	case KindFloat:
		v, ok = toFloat(candidate)
	case KindString:
		v, ok = toString(candidate)
	case KindBoolean:
		v, ok = toBoolean(candidate)
	case KindOpaque:
		v, ok = toOpaque(candidate)
	}
	if !ok {
		return Value{}, fmt.Errorf("%w: cannot convert %T to %s", ErrTypeMismatch, candidate, kind)
	}
	return v, nil
}

// numeric classifies Go numeric types. isInt reports a signed value in i,
// isUint an unsigned value in u, isFloat a float value in f.
func numeric(c any) (i int64, u uint64, f float64, isInt, isUint, isFloat bool) {
	switch n := c.(type) {
	case int:
		return int64(n), 0, 0, true, false, false
	case int8:
		return int64(n), 0, 0, true, false, false
	case int16:
		return int64(n), 0, 0, true, false, false
	case int32:
		return int64(n), 0, 0, true, false, false
	case int64:
		return n, 0, 0, true, false, false
	case uint:
		return 0, uint64(n), 0, false, true, false
	case uint8:
		return 0, uint64(n), 0, false, true, false
	case uint16:
		return 0, uint64(n), 0, false, true, false
	case uint32:
		return 0, uint64(n), 0, false, true, false
	case uint64:
		return 0, n, 0, false, true, false
	case float32:
		return 0, 0, float64(n), false, false, true
	case float64:
		return 0, 0, n, false, false, true
	}
	return 0, 0, 0, false, false, false
}

// Bounds of float64 values that truncate into an int64.
const (
	minInt64Float = -9223372036854775808.0
	maxInt64Float = 9223372036854775808.0
)

func toInteger(c any) (Value, bool) {
	i, u, f, isInt, isUint, isFloat := numeric(c)
	switch {
	case isInt:
		return IntValue(i), true
	case isUint:
		if u > math.MaxInt64 {
			return Value{}, false
		}
		return IntValue(int64(u)), true
	case isFloat:
		if math.IsNaN(f) || f < minInt64Float || f >= maxInt64Float {
			return Value{}, false
		}
		return IntValue(int64(f)), true
	}
	switch x := c.(type) {
	case bool:
		if x {
			return IntValue(1), true
		}
		return IntValue(0), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return Value{}, false
		}
		return IntValue(n), true
	}
	return Value{}, false
}

func toFloat(c any) (Value, bool) {
	i, u, f, isInt, isUint, isFloat := numeric(c)
	switch {
	case isInt:
		return FloatValue(float64(i)), true
	case isUint:
		return FloatValue(float64(u)), true
	case isFloat:
		return FloatValue(f), true
	}
	switch x := c.(type) {
	case bool:
		if x {
			return FloatValue(1), true
		}
		return FloatValue(0), true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return Value{}, false
		}
		return FloatValue(n), true
	}
	return Value{}, false
}

func toString(c any) (Value, bool) {
	i, u, f, isInt, isUint, isFloat := numeric(c)
	switch {
	case isInt:
		return StringValue(strconv.FormatInt(i, 10)), true
	case isUint:
		return StringValue(strconv.FormatUint(u, 10)), true
	case isFloat:
		return StringValue(strconv.FormatFloat(f, 'g', -1, 64)), true
	}
	switch x := c.(type) {
	case string:
		return StringValue(x), true
	case []byte:
		if !utf8.Valid(x) {
			return Value{}, false
		}
		return StringValue(string(x)), true
	case bool:
		return StringValue(strconv.FormatBool(x)), true
	case fmt.Stringer:
		return StringValue(x.String()), true
	}
	return Value{}, false
}

func toBoolean(c any) (Value, bool) {
	i, u, f, isInt, isUint, isFloat := numeric(c)
	switch {
	case isInt:
		return BoolValue(i != 0), true
	case isUint:
		return BoolValue(u != 0), true
	case isFloat:
		if math.IsNaN(f) {
			return Value{}, false
		}
		return BoolValue(f != 0), true
	}
	switch x := c.(type) {
	case bool:
		return BoolValue(x), true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return Value{}, false
		}
		return BoolValue(b), true
	}
	return Value{}, false
}

func toOpaque(c any) (Value, bool) {
	switch x := c.(type) {
	case []byte:
		return OpaqueValue(x), true
	case string:
		return Value{kind: KindOpaque, o: []byte(x)}, true
	case []int:
		out := make([]byte, len(x))
		for idx, n := range x {
			if n < 0 || n > math.MaxUint8 {
				return Value{}, false
			}
			out[idx] = byte(n)
		}
		return Value{kind: KindOpaque, o: out}, true
	}
	return Value{}, false
}
