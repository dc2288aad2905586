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

// Package detector implements a Phi Accrual failure detector over the
// inter-arrival times of successful gossip exchanges. The suspicion level
// phi is linear in the time since the last update: age / (mean + 2*stddev).
package detector

import (
	"fmt"
	"math"

	"github.com/scuttlenet/scuttle/clock"
)

// Config holds the estimator tuning knobs.
type Config struct {
	// Threshold is the phi level above which the peer is considered failed.
	Threshold float64
	// Weight is the exponential decay applied to the interval estimate.
	Weight float64
	// Interval seeds the estimate before any update is observed.
	Interval float64
}

// DefaultConfig returns the standard tuning: threshold 8, weight 0.9,
// interval seed 1s.
func DefaultConfig() Config {
	return Config{Threshold: 8.0, Weight: 0.9, Interval: 1.0}
}

// Detector keeps an exponentially-weighted moving estimate of the interval
// between updates and derives a suspicion level from it.
type Detector struct {
	cfg             Config
	mean            float64
	squaredInterval float64
	touch           clock.Touch
}

// New returns a Detector seeded so that the expected interval starts at
// cfg.Interval with zero variance. The touch marks "last heard from" time.
func New(cfg Config, touch clock.Touch) *Detector {
	return &Detector{
		cfg:             cfg,
		mean:            cfg.Interval,
		squaredInterval: cfg.Interval * cfg.Interval,
		touch:           touch,
	}
}

// Default returns a Detector with DefaultConfig bound to the OS clock.
func Default() *Detector {
	return New(DefaultConfig(), clock.New())
}

// Update folds the interval since the previous update into the estimate and
// resets the touch.
func (d *Detector) Update() {
	interval := d.touch.Update()
	weighted := (1.0 - d.cfg.Weight) * interval
	d.mean = d.cfg.Weight*d.mean + weighted
	d.squaredInterval = d.cfg.Weight*d.squaredInterval + weighted*interval
}

// Mean returns the current interval estimate in seconds.
func (d *Detector) Mean() float64 {
	return d.mean
}

// Variance returns the estimate's variance.
func (d *Detector) Variance() float64 {
	return d.squaredInterval - d.mean*d.mean
}

func (d *Detector) standardDeviation() float64 {
	return math.Sqrt(d.Variance())
}

// Phi is the suspicion level: time since the last update over the expected
// envelope mean + 2*stddev.
func (d *Detector) Phi() float64 {
	return d.touch.Age() / (d.mean + 2.0*d.standardDeviation())
}

// Failed reports whether phi has crossed the threshold.
func (d *Detector) Failed() bool {
	return d.Phi() > d.cfg.Threshold
}

func (d *Detector) String() string {
	return fmt.Sprintf("detector{phi: %g, failed: %t, mean: %g, variance: %g}",
		d.Phi(), d.Failed(), d.mean, d.Variance())
}
