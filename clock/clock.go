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

// Package clock provides the monotonic time source used by the gossip core.
// A Touch captures an instant; everything that reasons about elapsed wall
// time (failure detectors, peer retention) does so through a Touch, which
// keeps time mockable in tests.
package clock

import "time"

// Touch captures a monotonic instant.
type Touch interface {
	// Age returns seconds elapsed since the instant. Never negative.
	Age() float64
	// Update returns Age and resets the instant to now.
	Update() float64
}

type touch struct {
	last time.Time
}

// New returns a Touch bound to the OS monotonic clock, captured at now.
func New() Touch {
	return &touch{last: time.Now()}
}

func (t *touch) Age() float64 {
	age := time.Since(t.last).Seconds()
	if age < 0 {
		return 0
	}
	return age
}

func (t *touch) Update() float64 {
	now := time.Now()
	elapsed := now.Sub(t.last).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	t.last = now
	return elapsed
}
