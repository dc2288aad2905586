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

package value

import (
	"encoding/json"
	"fmt"
)

// jsonValue keys the payload by variant tag so that Integer 1 and Float 1.0
// survive the wire distinctly.
type jsonValue struct {
	String   *string    `json:"string,omitempty"`
	Boolean  *bool      `json:"boolean,omitempty"`
	Integer  *int64     `json:"integer,omitempty"`
	Float    *float64   `json:"float,omitempty"`
	Integers *[]int64   `json:"integers,omitempty"`
	Floats   *[]float64 `json:"floats,omitempty"`
}

// MarshalJSON encodes the value as a single-key object named after the
// variant tag.
func (v Value) MarshalJSON() ([]byte, error) {
	var j jsonValue
	switch v.kind {
	case KindString:
		j.String = &v.str
	case KindBoolean:
		j.Boolean = &v.b
	case KindInteger:
		j.Integer = &v.i
	case KindFloat:
		j.Float = &v.f
	case KindIntegers:
		is := v.is
		if is == nil {
			is = []int64{}
		}
		j.Integers = &is
	case KindFloats:
		fs := v.fs
		if fs == nil {
			fs = []float64{}
		}
		j.Floats = &fs
	default:
		return nil, fmt.Errorf("unknown value kind %d", v.kind)
	}
	return json.Marshal(j)
}

// UnmarshalJSON decodes a tagged variant object. Exactly one tag must be set.
func (v *Value) UnmarshalJSON(data []byte) error {
	var j jsonValue
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	tags := 0
	for _, set := range []bool{j.String != nil, j.Boolean != nil, j.Integer != nil,
		j.Float != nil, j.Integers != nil, j.Floats != nil} {
		if set {
			tags++
		}
	}
	if tags > 1 {
		return fmt.Errorf("value with more than one variant tag: %s", data)
	}
	switch {
	case j.String != nil:
		*v = NewString(*j.String)
	case j.Boolean != nil:
		*v = NewBool(*j.Boolean)
	case j.Integer != nil:
		*v = NewInt(*j.Integer)
	case j.Float != nil:
		*v = NewFloat(*j.Float)
	case j.Integers != nil:
		*v = NewInts(*j.Integers)
	case j.Floats != nil:
		*v = NewFloats(*j.Floats)
	default:
		return fmt.Errorf("value with no recognized variant tag: %s", data)
	}
	return nil
}
