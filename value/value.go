/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package value implements the tagged variant payload stored under node keys.
package value

import (
	"fmt"
	"strings"

	"golang.org/x/exp/constraints"
)

// Kind tags the live variant of a Value.
type Kind uint8

// Recognized variants.
const (
	KindString Kind = iota
	KindBoolean
	KindInteger
	KindFloat
	KindIntegers
	KindFloats
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindIntegers:
		return "integers"
	case KindFloats:
		return "floats"
	}
	return "unknown"
}

// Value is an immutable tagged variant: scalar string/bool/int64/float64 or
// an ordered sequence of int64/float64. The zero Value is the empty string.
type Value struct {
	kind Kind
	str  string
	b    bool
	i    int64
	f    float64
	is   []int64
	fs   []float64
}

// NewString returns a String value.
func NewString(v string) Value {
	return Value{kind: KindString, str: v}
}

// NewBool returns a Boolean value.
func NewBool(v bool) Value {
	return Value{kind: KindBoolean, b: v}
}

// NewInt returns an Integer value, widening any integer width to 64 bits.
func NewInt[T constraints.Integer](v T) Value {
	return Value{kind: KindInteger, i: int64(v)}
}

// NewFloat returns a Float value, widening any float width to 64 bits.
func NewFloat[T constraints.Float](v T) Value {
	return Value{kind: KindFloat, f: float64(v)}
}

// NewInts returns an Integers value. The input is copied and widened.
func NewInts[T constraints.Integer](v []T) Value {
	is := make([]int64, len(v))
	for i, n := range v {
		is[i] = int64(n)
	}
	return Value{kind: KindIntegers, is: is}
}

// NewFloats returns a Floats value. The input is copied and widened.
func NewFloats[T constraints.Float](v []T) Value {
	fs := make([]float64, len(v))
	for i, n := range v {
		fs[i] = float64(n)
	}
	return Value{kind: KindFloats, fs: fs}
}

// Kind returns the live variant tag.
func (v Value) Kind() Kind {
	return v.kind
}

// AsString returns the string and true iff the String variant is live.
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

// AsBool returns the bool and true iff the Boolean variant is live.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBoolean
}

// AsInteger returns the int64 and true iff the Integer variant is live.
func (v Value) AsInteger() (int64, bool) {
	return v.i, v.kind == KindInteger
}

// AsFloat returns the float64 and true iff the Float variant is live.
func (v Value) AsFloat() (float64, bool) {
	return v.f, v.kind == KindFloat
}

// AsIntegers returns the sequence and true iff the Integers variant is live.
// The returned slice must not be modified.
func (v Value) AsIntegers() ([]int64, bool) {
	if v.kind != KindIntegers {
		return nil, false
	}
	return v.is, true
}

// AsFloats returns the sequence and true iff the Floats variant is live.
// The returned slice must not be modified.
func (v Value) AsFloats() ([]float64, bool) {
	if v.kind != KindFloats {
		return nil, false
	}
	return v.fs, true
}

// Equal reports structural equality: same variant, element-wise equal.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindBoolean:
		return v.b == o.b
	case KindInteger:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindIntegers:
		if len(v.is) != len(o.is) {
			return false
		}
		for i := range v.is {
			if v.is[i] != o.is[i] {
				return false
			}
		}
		return true
	case KindFloats:
		if len(v.fs) != len(o.fs) {
			return false
		}
		for i := range v.fs {
			if v.fs[i] != o.fs[i] {
				return false
			}
		}
		return true
	}
	return false
}

// Clone returns a deep copy; sequence variants get their own backing array.
func (v Value) Clone() Value {
	c := v
	if v.is != nil {
		c.is = append([]int64(nil), v.is...)
	}
	if v.fs != nil {
		c.fs = append([]float64(nil), v.fs...)
	}
	return c
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return fmt.Sprintf("%q", v.str)
	case KindBoolean:
		return fmt.Sprintf("%t", v.b)
	case KindInteger:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindIntegers:
		return strings.Trim(fmt.Sprint(v.is), " ")
	case KindFloats:
		return strings.Trim(fmt.Sprint(v.fs), " ")
	}
	return "<invalid>"
}
