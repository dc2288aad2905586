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

// Package rng provides the seedable PRNG used for gossip target selection.
// The generator is owned by the caller and passed down explicitly; the core
// keeps no global randomness.
package rng

import (
	crand "crypto/rand"
	"encoding/binary"
	"os"
	"time"

	"golang.org/x/exp/rand"
)

// Rand is a seedable 64-bit PRNG (PCG).
type Rand struct {
	src *rand.Rand
}

// New returns a Rand seeded from OS entropy.
func New() *Rand {
	return NewSeeded(seed())
}

// NewSeeded returns a Rand with a fixed seed, for reproducible runs.
func NewSeeded(seed uint64) *Rand {
	return &Rand{src: rand.New(rand.NewSource(seed))}
}

func seed() uint64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		// as a fallback, use the system time and process id
		return uint64(time.Now().UnixNano()) ^ uint64(os.Getpid())
	}
	return binary.BigEndian.Uint64(b[:])
}

// Uint64 returns a uniform 64-bit value.
func (r *Rand) Uint64() uint64 {
	return r.src.Uint64()
}

// Float64 returns a uniform value in [0, 1).
func (r *Rand) Float64() float64 {
	return r.src.Float64()
}

// Range returns a uniform value in [lo, hi). lo must be less than hi.
func (r *Rand) Range(lo, hi uint64) uint64 {
	return lo + r.src.Uint64n(hi-lo)
}

// Shuffle performs a partial Fisher–Yates shuffle, randomizing the first
// max positions of s. Passing max >= len(s) shuffles the whole slice.
func Shuffle[T any](r *Rand, s []T, max int) {
	m := len(s) - 1
	if max < m {
		m = max
	}
	for i := 0; i < m; i++ {
		j := int(r.Range(uint64(i), uint64(len(s))))
		s[i], s[j] = s[j], s[i]
	}
}

// Choose picks one element of s uniformly. s must be non-empty.
func Choose[T any](r *Rand, s []T) T {
	return s[r.Range(0, uint64(len(s)))]
}
