// Copyright 2023 The STMPS Authors
// SPDX-License-Identifier: GPL-3.0-only

package mpris

import (
	"math"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
)

func TestValueOf(t *testing.T) {
	testCases := []struct {
		name string
		in   interface{}
		want Value
	}{
		{"nil", nil, Value{}},
		{"variant", dbus.MakeVariant("x"), String("x")},
		{"nested variant", dbus.MakeVariant(dbus.MakeVariant(int32(7))), Int(7)},
		{"object path", dbus.ObjectPath("/a/b"), String("/a/b")},
		{"byte is unsigned", byte(3), Uint(3)},
		{"uint32", uint32(9), Uint(9)},
		{"float32", float32(0.5), Float(0.5)},
		{"string list", []string{"a", "b"}, Strings("a", "b")},
		{"variant list", []dbus.Variant{dbus.MakeVariant("a"), dbus.MakeVariant(true)}, Array(String("a"), Bool(true))},
		{"int list", []int32{1, 2}, Array(Int(1), Int(2))},
		{"variant map", map[string]dbus.Variant{"k": dbus.MakeVariant(1.5)}, Map(map[string]Value{"k": Float(1.5)})},
		{"typed map", map[string]int64{"n": 4}, Map(map[string]Value{"n": Int(4)})},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ValueOf(tc.in)
			assert.True(t, tc.want.Equal(got), "want %v, got %v", tc.want, got)
		})
	}
}

func TestValueOfOpaque(t *testing.T) {
	raw := []byte{1, 2, 3}
	v := ValueOf(raw)
	assert.Equal(t, KindOther, v.Kind())
	assert.Equal(t, raw, v.Interface())

	v = ValueOf(map[int]string{1: "x"})
	assert.Equal(t, KindOther, v.Kind())
}

func TestValueAccessors(t *testing.T) {
	i, ok := Uint(math.MaxUint64).AsInt64()
	assert.True(t, ok)
	assert.Equal(t, int64(math.MaxInt64), i)

	f, ok := Int(3).AsFloat64()
	assert.True(t, ok)
	assert.Equal(t, 3.0, f)

	_, ok = Float(1).AsInt64()
	assert.False(t, ok, "floats are not integers")

	_, ok = String("1").AsInt64()
	assert.False(t, ok)

	_, ok = Array(String("a"), Int(1)).AsStrings()
	assert.False(t, ok)

	ss, ok := Array().AsStrings()
	assert.True(t, ok)
	assert.Empty(t, ss)
}

func TestValueEqual(t *testing.T) {
	assert.True(t, Float(math.NaN()).Equal(Float(math.NaN())))
	assert.False(t, Int(1).Equal(Uint(1)), "kinds differ")
	assert.False(t, Strings("a").Equal(Strings("a", "b")))
	assert.True(t, Map(map[string]Value{"a": Strings("x")}).Equal(Map(map[string]Value{"a": Strings("x")})))
	assert.False(t, Map(map[string]Value{"a": Int(1)}).Equal(Map(map[string]Value{"b": Int(1)})))
}
