package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ValueKind discriminates the variants a metadata or needs value can hold.
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueNumber
	ValueList
	ValueMap
)

// Value is a tagged variant for the open key/value mappings carried in
// embedding metadata and customer needs. Field access through the As*
// accessors never panics on a wrong kind.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	list []string
	obj  map[string]Value
}

func StringValue(s string) Value { return Value{kind: ValueString, str: s} }

func NumberValue(n float64) Value { return Value{kind: ValueNumber, num: n} }

func ListValue(items ...string) Value {
	return Value{kind: ValueList, list: append([]string(nil), items...)}
}

func MapValue(m map[string]Value) Value { return Value{kind: ValueMap, obj: m} }

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) AsString() (string, bool) { return v.str, v.kind == ValueString }

func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == ValueNumber }

func (v Value) AsList() ([]string, bool) { return v.list, v.kind == ValueList }

func (v Value) AsMap() (map[string]Value, bool) { return v.obj, v.kind == ValueMap }

// String renders a display form used in reasoning text and product text
// blocks. Maps render as "key: value" pairs in key order.
func (v Value) String() string {
	switch v.kind {
	case ValueString:
		return v.str
	case ValueNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case ValueList:
		return strings.Join(v.list, ", ")
	case ValueMap:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+v.obj[k].String())
		}
		return strings.Join(parts, "; ")
	}
	return ""
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case ValueString:
		return json.Marshal(v.str)
	case ValueNumber:
		return json.Marshal(v.num)
	case ValueList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case ValueMap:
		if v.obj == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.obj)
	}
	return []byte("null"), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromAny(raw)
	return nil
}

// FromAny converts a decoded JSON or YAML value into a Value. Unknown types
// fall back to their fmt representation so a loose payload never fails.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return StringValue("")
	case string:
		return StringValue(t)
	case float64:
		return NumberValue(t)
	case float32:
		return NumberValue(float64(t))
	case int:
		return NumberValue(float64(t))
	case int64:
		return NumberValue(float64(t))
	case bool:
		return StringValue(strconv.FormatBool(t))
	case []string:
		return ListValue(t...)
	case []any:
		items := make([]string, 0, len(t))
		for _, it := range t {
			items = append(items, FromAny(it).String())
		}
		return ListValue(items...)
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, val := range t {
			m[k] = FromAny(val)
		}
		return MapValue(m)
	case map[string]Value:
		return MapValue(t)
	}
	return StringValue(fmt.Sprint(x))
}
