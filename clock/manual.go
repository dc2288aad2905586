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

package clock

import "sync"

// manualClock is the process-wide time driven by SetNow/Advance.
var manualClock struct {
	mu  sync.Mutex
	now float64
}

func manualNow() float64 {
	manualClock.mu.Lock()
	defer manualClock.mu.Unlock()
	return manualClock.now
}

// SetNow sets the process-wide manual time to the given seconds value.
// Tests that use Manual touches should call SetNow(0) first to isolate
// themselves from other tests sharing the process.
func SetNow(seconds float64) {
	manualClock.mu.Lock()
	defer manualClock.mu.Unlock()
	manualClock.now = seconds
}

// Advance moves the process-wide manual time forward. All live Manual
// touches age by the same amount.
func Advance(seconds float64) {
	manualClock.mu.Lock()
	defer manualClock.mu.Unlock()
	manualClock.now += seconds
}

// Manual is a Touch whose age is an internal counter plus the process-wide
// manual time. It drives deterministic tests of time-dependent behavior.
type Manual struct {
	base  float64
	local float64
}

// NewManual returns a Manual touch captured at the current manual time.
func NewManual() *Manual {
	return &Manual{base: manualNow()}
}

// Age returns the per-touch counter plus manual time elapsed since capture.
func (m *Manual) Age() float64 {
	return m.local + manualNow() - m.base
}

// Update returns Age and resets the touch to the current manual time.
func (m *Manual) Update() float64 {
	age := m.Age()
	m.local = 0
	m.base = manualNow()
	return age
}

// Adjust ages this touch by the given seconds without moving manual time.
func (m *Manual) Adjust(seconds float64) {
	m.local += seconds
}

// Reset re-captures the touch at the current manual time.
func (m *Manual) Reset() {
	m.local = 0
	m.base = manualNow()
}
