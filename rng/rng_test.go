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

package rng

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSeededDeterminism(t *testing.T) {
	a := NewSeeded(42)
	b := NewSeeded(42)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Uint64(), b.Uint64())
	}
}

func TestFloat64Bounds(t *testing.T) {
	r := NewSeeded(1)
	for i := 0; i < 1000; i++ {
		f := r.Float64()
		require.GreaterOrEqual(t, f, 0.0)
		require.Less(t, f, 1.0)
	}
}

func TestRangeBounds(t *testing.T) {
	r := NewSeeded(7)
	for i := 0; i < 1000; i++ {
		v := r.Range(10, 20)
		require.GreaterOrEqual(t, v, uint64(10))
		require.Less(t, v, uint64(20))
	}
	// single-value range
	require.Equal(t, uint64(5), r.Range(5, 6))
}

func TestShuffleKeepsElements(t *testing.T) {
	r := NewSeeded(3)
	s := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	Shuffle(r, s, len(s))
	require.ElementsMatch(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, s)
}

func TestShufflePartial(t *testing.T) {
	r := NewSeeded(3)
	s := make([]int, 100)
	for i := range s {
		s[i] = i
	}
	Shuffle(r, s, 2)
	// only the first two positions are guaranteed randomized; the tail past
	// any swapped-in values keeps its relative order
	require.Equal(t, 100, len(s))
	seen := make(map[int]bool, 100)
	for _, v := range s {
		seen[v] = true
	}
	require.Equal(t, 100, len(seen))
}

func TestShuffleShortSlices(t *testing.T) {
	r := NewSeeded(3)

	// must not panic on slices shorter than two elements
	Shuffle(r, []int{}, 4)
	one := []int{9}
	Shuffle(r, one, 4)
	require.Equal(t, []int{9}, one)

	two := []int{1, 2}
	Shuffle(r, two, 4)
	require.ElementsMatch(t, []int{1, 2}, two)
}

func TestChoose(t *testing.T) {
	r := NewSeeded(11)
	s := []string{"a", "b", "c"}
	counts := map[string]int{}
	for i := 0; i < 300; i++ {
		counts[Choose(r, s)]++
	}
	for _, key := range s {
		require.Greater(t, counts[key], 0)
	}
	require.Equal(t, "only", Choose(r, []string{"only"}))
}
