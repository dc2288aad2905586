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

package detector

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scuttlenet/scuttle/clock"
)

func newManualDetector(t *testing.T) (*Detector, *clock.Manual) {
	t.Helper()
	clock.SetNow(0)
	touch := clock.NewManual()
	return New(DefaultConfig(), touch), touch
}

func TestWithNoVariancePhiIncreasesSinceTheLastUpdate(t *testing.T) {
	d, touch := newManualDetector(t)
	require.Equal(t, 0.0, d.Phi())

	touch.Adjust(0.5)
	require.Equal(t, 0.5, d.Phi())

	touch.Adjust(0.5)
	require.Equal(t, 1.0, d.Phi())

	touch.Adjust(1.0)
	require.Equal(t, 2.0, d.Phi())
	require.False(t, d.Failed())

	touch.Adjust(10.0)
	require.Equal(t, 12.0, d.Phi())
	require.True(t, d.Failed())
}

func TestWithSomeVariancePhiIncreasesMoreSlowly(t *testing.T) {
	d, touch := newManualDetector(t)
	touch.Adjust(2.0)
	d.Update()
	require.InDelta(t, 0.0899999, d.Variance(), 1e-7)
	require.Equal(t, 0.0, d.Phi())

	touch.Adjust(0.5)
	require.InDelta(t, 0.2941176, d.Phi(), 1e-7)

	touch.Adjust(0.5)
	require.InDelta(t, 0.5882353, d.Phi(), 1e-7)

	touch.Adjust(1.0)
	require.InDelta(t, 1.1764706, d.Phi(), 1e-7)

	touch.Adjust(10.0)
	require.InDelta(t, 7.0588235, d.Phi(), 1e-7)
}

func TestUpdateIntervalConsistencyAffectsVariance(t *testing.T) {
	d, touch := newManualDetector(t)

	steps := []struct {
		interval string
		adjust   float64
		variance float64
		mean     float64
	}{
		{"tiny", 0.01, 0.0882089, 0.901},
		{"slow", 1.5, 0.1116801, 0.9609},
		{"outlier", 10.0, 7.4539917, 1.8648099},
		{"fast", 0.2, 6.9580358, 1.698329},
		{"steady", 1.0, 6.3061220, 1.6284961},
		{"steady", 1.0, 5.7110604, 1.5656464},
		{"steady", 1.0, 5.1687504, 1.5090818},
		{"steady", 1.0, 4.6752002, 1.4581736},
		{"converged", 1.4582, 4.2076801, 1.4581762},
		{"converged", 1.4582, 3.7869121, 1.4581786},
	}
	for _, step := range steps {
		touch.Adjust(step.adjust)
		d.Update()
		require.InDelta(t, step.variance, d.Variance(), 1e-7, "variance after %s interval", step.interval)
		require.InDelta(t, step.mean, d.Mean(), 1e-7, "mean after %s interval", step.interval)
	}
}
