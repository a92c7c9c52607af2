// Package jsonutil holds helpers for the loosely typed json served by unofficial apis.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Value is a json value of unknown shape, it is decoded lazily by its accessors.
//
// Remote apis frequently send numbers as strings and wrap scalars in 1-element arrays
// (ex. `"w": ["220", 0]`), the scalar accessors look through both.
type Value struct {
	raw json.RawMessage
}

// Raw creates a Value out of raw json bytes.
func Raw(b []byte) Value {
	return Value{raw: json.RawMessage(b)}
}

// Of creates a Value by encoding v.
func Of(v any) Value {
	b, err := json.Marshal(v)
	if err != nil {
		return Value{}
	}
	return Value{raw: b}
}

func (v *Value) UnmarshalJSON(b []byte) error {
	v.raw = append(v.raw[:0], b...)
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	if v.IsNull() {
		return []byte("null"), nil
	}
	return v.raw, nil
}

// Bytes returns the raw json of the value.
func (v Value) Bytes() []byte {
	return v.raw
}

func (v Value) IsNull() bool {
	trimmed := bytes.TrimSpace(v.raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func (v Value) kind() byte {
	trimmed := bytes.TrimSpace(v.raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

// Decode unmarshals the value into out.
func (v Value) Decode(out any) error {
	if v.IsNull() {
		return json.Unmarshal([]byte("null"), out)
	}
	return json.Unmarshal(v.raw, out)
}

// Array decodes the value as an array.
func (v Value) Array() ([]Value, bool) {
	if v.kind() != '[' {
		return nil, false
	}
	var out []Value
	if err := json.Unmarshal(v.raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

// Map decodes the value as an object.
func (v Value) Map() (map[string]Value, bool) {
	if v.kind() != '{' {
		return nil, false
	}
	var out map[string]Value
	if err := json.Unmarshal(v.raw, &out); err != nil {
		return nil, false
	}
	return out, true
}

// Get returns the member `key` of an object value, a null Value is returned otherwise.
func (v Value) Get(key string) Value {
	m, ok := v.Map()
	if !ok {
		return Value{}
	}
	return m[key]
}

// Scalar unwraps arrays to their first element, empty arrays become null.
func (v Value) Scalar() Value {
	for v.kind() == '[' {
		arr, ok := v.Array()
		if !ok || len(arr) == 0 {
			return Value{}
		}
		v = arr[0]
	}
	return v
}

// Str returns the value as a string, numbers and booleans are formatted.
func (v Value) Str() (string, bool) {
	s := v.Scalar()
	switch s.kind() {
	case '"':
		var out string
		if err := json.Unmarshal(s.raw, &out); err != nil {
			return "", false
		}
		return out, true
	case 0, 'n', '{':
		return "", false
	default:
		return string(bytes.TrimSpace(s.raw)), true
	}
}

// Float returns the value as a number, numeric strings are parsed.
func (v Value) Float() (float64, bool) {
	s := v.Scalar()
	switch s.kind() {
	case 0, 'n', '{', 't', 'f':
		return 0, false
	case '"':
		str, _ := s.Str()
		str = strings.ReplaceAll(strings.TrimSpace(str), ",", "")
		f, err := strconv.ParseFloat(str, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		f, err := strconv.ParseFloat(string(bytes.TrimSpace(s.raw)), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
}

// Int returns the value as an integer, fractions are truncated.
func (v Value) Int() (int, bool) {
	f, ok := v.Float()
	if !ok {
		return 0, false
	}
	return int(f), true
}

// String implements fmt.Stringer, null values become "".
func (v Value) String() string {
	s, _ := v.Str()
	return s
}
