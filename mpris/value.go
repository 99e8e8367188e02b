// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package mpris

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/samber/lo"
)

// Kind is the shape of a Value.
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindInt
	KindUint
	KindFloat
	KindBool
	KindArray
	KindMap
	// KindOther holds a wire value with no closer shape, kept as-is.
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	case KindOther:
		return "other"
	default:
		return "invalid"
	}
}

// Value is a loosely-typed wire value. Only the metadata translator and the
// signal decoder look inside one.
type Value struct {
	kind Kind
	s    string
	i    int64
	u    uint64
	f    float64
	b    bool
	arr  []Value
	m    map[string]Value
	raw  interface{}
}

func String(s string) Value   { return Value{kind: KindString, s: s} }
func Int(i int64) Value       { return Value{kind: KindInt, i: i} }
func Uint(u uint64) Value     { return Value{kind: KindUint, u: u} }
func Float(f float64) Value   { return Value{kind: KindFloat, f: f} }
func Bool(b bool) Value       { return Value{kind: KindBool, b: b} }
func Array(vs ...Value) Value { return Value{kind: KindArray, arr: vs} }

func Strings(ss ...string) Value {
	return Value{kind: KindArray, arr: lo.Map(ss, func(s string, _ int) Value { return String(s) })}
}

func Map(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindMap, m: m}
}

// ValueOf converts a value as produced by godbus. Variants are unwrapped and
// object paths become strings.
func ValueOf(v interface{}) Value {
	switch t := v.(type) {
	case nil:
		return Value{}
	case Value:
		return t
	case dbus.Variant:
		return ValueOf(t.Value())
	case *dbus.Variant:
		if t == nil {
			return Value{}
		}
		return ValueOf(t.Value())
	case string:
		return String(t)
	case dbus.ObjectPath:
		return String(string(t))
	case dbus.Signature:
		return String(t.String())
	case bool:
		return Bool(t)
	case int8:
		return Int(int64(t))
	case int:
		return Int(int64(t))
	case int16:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case uint:
		return Uint(uint64(t))
	case uint8:
		return Uint(uint64(t))
	case uint16:
		return Uint(uint64(t))
	case uint32:
		return Uint(uint64(t))
	case uint64:
		return Uint(t)
	case float32:
		return Float(float64(t))
	case float64:
		return Float(t)
	case []string:
		return Strings(t...)
	case []interface{}:
		return Array(lo.Map(t, func(e interface{}, _ int) Value { return ValueOf(e) })...)
	case []dbus.Variant:
		return Array(lo.Map(t, func(e dbus.Variant, _ int) Value { return ValueOf(e) })...)
	case map[string]dbus.Variant:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			m[k] = ValueOf(e)
		}
		return Map(m)
	case map[string]interface{}:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			m[k] = ValueOf(e)
		}
		return Map(m)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			// byte arrays have no useful array shape
			break
		}
		out := make([]Value, rv.Len())
		for i := range out {
			out[i] = ValueOf(rv.Index(i).Interface())
		}
		return Array(out...)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		m := make(map[string]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = ValueOf(iter.Value().Interface())
		}
		return Map(m)
	}
	return Value{kind: KindOther, raw: v}
}

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsValid() bool { return v.kind != KindInvalid }

func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsInt64 accepts signed and unsigned integers. Unsigned values beyond the
// int64 range saturate.
func (v Value) AsInt64() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindUint:
		if v.u > math.MaxInt64 {
			return math.MaxInt64, true
		}
		return int64(v.u), true
	}
	return 0, false
}

// AsFloat64 accepts reals and integers.
func (v Value) AsFloat64() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	case KindUint:
		return float64(v.u), true
	}
	return 0, false
}

func (v Value) AsArray() ([]Value, bool) {
	return v.arr, v.kind == KindArray
}

// AsStrings succeeds for arrays whose elements are all strings.
func (v Value) AsStrings() ([]string, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	out := make([]string, 0, len(v.arr))
	for _, e := range v.arr {
		s, ok := e.AsString()
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func (v Value) AsMap() (map[string]Value, bool) {
	return v.m, v.kind == KindMap
}

// Interface returns the value as plain Go data: string, int64, uint64,
// float64, bool, []interface{}, map[string]interface{} or the raw value.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return v.i
	case KindUint:
		return v.u
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindArray:
		return lo.Map(v.arr, func(e Value, _ int) interface{} { return e.Interface() })
	case KindMap:
		m := make(map[string]interface{}, len(v.m))
		for k, e := range v.m {
			m[k] = e.Interface()
		}
		return m
	case KindOther:
		return v.raw
	}
	return nil
}

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInvalid:
		return true
	case KindString:
		return v.s == o.s
	case KindInt:
		return v.i == o.i
	case KindUint:
		return v.u == o.u
	case KindFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindBool:
		return v.b == o.b
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return mapsEqual(v.m, o.m)
	}
	return reflect.DeepEqual(v.raw, o.raw)
}

func mapsEqual(a, b map[string]Value) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !av.Equal(bv) {
			return false
		}
	}
	return true
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindArray:
		parts := lo.Map(v.arr, func(e Value, _ int) string { return e.String() })
		return "[" + strings.Join(parts, " ") + "]"
	case KindMap:
		keys := lo.Keys(v.m)
		sort.Strings(keys)
		parts := lo.Map(keys, func(k string, _ int) string { return k + ":" + v.m[k].String() })
		return "{" + strings.Join(parts, " ") + "}"
	case KindInvalid:
		return "<invalid>"
	}
	return fmt.Sprint(v.Interface())
}
