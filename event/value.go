package event

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// ValueKind identifies which variant a Value holds.
type ValueKind int

// Value kinds.
const (
	KindNone ValueKind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindBytes
	KindMap
)

// String returns a human-readable representation of the value kind.
func (k ValueKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is a small tagged union carried in event and knowledge base
// attribute maps. Parser plugins can attach any named fact to an event
// while the pipeline stays statically checkable.
type Value struct {
	kind ValueKind
	i    int64
	f    float64
	b    bool
	s    string
	by   []byte
	m    Map
}

// Map is an open-ended attribute map from name to Value.
type Map map[string]Value

// Int creates an integer value.
func Int(v int64) Value { return Value{kind: KindInt, i: v} }

// Float creates a float value.
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

// Bool creates a boolean value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// String creates a string value.
func String(v string) Value { return Value{kind: KindString, s: v} }

// Bytes creates a byte-slice value.
func Bytes(v []byte) Value { return Value{kind: KindBytes, by: v} }

// Nested creates a nested map value.
func Nested(v Map) Value { return Value{kind: KindMap, m: v} }

// Kind returns the variant held by the value.
func (v Value) Kind() ValueKind { return v.kind }

// IsZero reports whether the value holds nothing.
func (v Value) IsZero() bool { return v.kind == KindNone }

// AsInt returns the integer variant and whether the value holds one.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the float variant and whether the value holds one.
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsBool returns the boolean variant and whether the value holds one.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsString returns the string variant and whether the value holds one.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsBytes returns the bytes variant and whether the value holds one.
func (v Value) AsBytes() ([]byte, bool) { return v.by, v.kind == KindBytes }

// AsMap returns the nested map variant and whether the value holds one.
func (v Value) AsMap() (Map, bool) { return v.m, v.kind == KindMap }

// Text renders any variant as a string for display and storage.
func (v Value) Text() string {
	switch v.kind {
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindString:
		return v.s
	case KindBytes:
		return fmt.Sprintf("%x", v.by)
	case KindMap:
		return v.m.Text()
	default:
		return ""
	}
}

// MarshalJSON renders the variant as its natural JSON type.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return json.Marshal(v.i)
	case KindFloat:
		return json.Marshal(v.f)
	case KindBool:
		return json.Marshal(v.b)
	case KindString:
		return json.Marshal(v.s)
	case KindBytes:
		return json.Marshal(v.by)
	case KindMap:
		return json.Marshal(v.m)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON maps JSON scalars onto the closest variant. Numbers become
// ints when they round-trip exactly, floats otherwise.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*v = Value{}
	case bool:
		*v = Bool(t)
	case string:
		*v = String(t)
	case float64:
		if t == float64(int64(t)) {
			*v = Int(int64(t))
		} else {
			*v = Float(t)
		}
	case map[string]any:
		nested := make(Map, len(t))
		for key, elem := range t {
			elemData, err := json.Marshal(elem)
			if err != nil {
				return err
			}
			var elemValue Value
			if err := elemValue.UnmarshalJSON(elemData); err != nil {
				return err
			}
			nested[key] = elemValue
		}
		*v = Nested(nested)
	default:
		return fmt.Errorf("unsupported attribute value type %T", raw)
	}
	return nil
}

// GetString returns the string held under key, or "" when absent or not a
// string.
func (m Map) GetString(key string) string {
	s, _ := m[key].AsString()
	return s
}

// GetInt returns the integer held under key, or 0 when absent or not an
// integer.
func (m Map) GetInt(key string) int64 {
	i, _ := m[key].AsInt()
	return i
}

// Has reports whether key is present.
func (m Map) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// Copy returns a shallow copy of the map. Nested maps are shared; values
// are immutable so sharing is safe.
func (m Map) Copy() Map {
	if m == nil {
		return nil
	}
	result := make(Map, len(m))
	for key, value := range m {
		result[key] = value
	}
	return result
}

// Text renders the map as "key: value; ..." with keys sorted, for the
// storage layer's extra column and for log output.
func (m Map) Text() string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", key, m[key].Text()))
	}
	return strings.Join(parts, "; ")
}
