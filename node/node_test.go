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

package node

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scuttlenet/scuttle/clock"
	"github.com/scuttlenet/scuttle/value"
)

func testAddr(t *testing.T) netip.AddrPort {
	t.Helper()
	return netip.MustParseAddrPort("127.1.1.11:3322")
}

// useManualClock makes every touch created by this package manual for the
// duration of the test, so that clock.Advance drives detector and retention
// behavior deterministically.
func useManualClock(t *testing.T) {
	t.Helper()
	clock.SetNow(0)
	orig := newTouch
	newTouch = func() clock.Touch { return clock.NewManual() }
	t.Cleanup(func() { newTouch = orig })
}

func hasChange(diff []Diff, key string, v value.Value, sequence uint64) bool {
	for _, d := range diff {
		if d.Key == key && d.Value.Equal(v) && d.Sequence == sequence {
			return true
		}
	}
	return false
}

func TestSelfNodeIsNode(t *testing.T) {
	n := NewSelf("root", testAddr(t))
	require.Equal(t, "root", n.Identifier())
	require.Equal(t, "127.1.1.11:3322", n.Address().String())
	require.Equal(t, uint64(0), n.Sequence())

	require.Equal(t, Digest{Identifier: "root", Sequence: 0}, n.Digest())
	_, ok := n.Get("buckets")
	require.False(t, ok)
	require.Empty(t, n.Diff(0))
}

func TestSelfNodeSet(t *testing.T) {
	n := NewSelf("root", testAddr(t))
	n.Set("buckets", value.NewInts([]int64{1, 5, 6}))
	require.Equal(t, uint64(1), n.Sequence())
	require.Equal(t, Digest{Identifier: "root", Sequence: 1}, n.Digest())

	v, ok := n.Get("buckets")
	require.True(t, ok)
	is, ok := v.AsIntegers()
	require.True(t, ok)
	require.Equal(t, []int64{1, 5, 6}, is)

	d := n.Diff(0)
	require.Len(t, d, 1)
	require.Equal(t, "buckets", d[0].Key)
	require.Equal(t, uint64(1), d[0].Sequence)
	is, ok = d[0].Value.AsIntegers()
	require.True(t, ok)
	require.Equal(t, []int64{1, 5, 6}, is)

	require.Empty(t, n.Diff(1))
}

func TestSelfNodeMultipleSets(t *testing.T) {
	n := NewSelf("root", testAddr(t))

	n.Set("key1", value.NewInt(10))
	n.Set("key2", value.NewString("value"))
	n.Set("key1", value.NewInt(20)) // overwrite key1

	require.Equal(t, uint64(3), n.Sequence())
	v, ok := n.Get("key1")
	require.True(t, ok)
	require.True(t, v.Equal(value.NewInt(20)))
	v, ok = n.Get("key2")
	require.True(t, ok)
	require.True(t, v.Equal(value.NewString("value")))

	diff := n.Diff(0)
	require.Len(t, diff, 2)
	require.True(t, hasChange(diff, "key1", value.NewInt(20), 3))
	require.True(t, hasChange(diff, "key2", value.NewString("value"), 2))
}

func TestSelfNodePartialDiff(t *testing.T) {
	n := NewSelf("root", testAddr(t))
	n.Set("key1", value.NewInt(10))
	n.Set("key2", value.NewString("value"))
	n.Set("key3", value.NewBool(true))

	diff := n.Diff(1)
	require.Len(t, diff, 2)
	require.True(t, hasChange(diff, "key2", value.NewString("value"), 2))
	require.True(t, hasChange(diff, "key3", value.NewBool(true), 3))
}

func TestSelfNodeIsNotDiscardable(t *testing.T) {
	n := NewSelf("root", testAddr(t))
	require.False(t, n.Discardable())
}

func TestPeerNodeIsNode(t *testing.T) {
	n := NewPeer("peer1", testAddr(t))
	require.Equal(t, "peer1", n.Identifier())
	require.Equal(t, "127.1.1.11:3322", n.Address().String())
	require.Equal(t, uint64(0), n.Sequence())

	require.Equal(t, Digest{Identifier: "peer1", Sequence: 0}, n.Digest())
	_, ok := n.Get("buckets")
	require.False(t, ok)
	require.Empty(t, n.Diff(0))
}

func TestPeerNodeApply(t *testing.T) {
	n := NewPeer("peer1", testAddr(t))
	n.Apply(2, []Diff{
		{Key: "key1", Value: value.NewInt(10), Sequence: 1},
		{Key: "key2", Value: value.NewString("value"), Sequence: 2},
	})

	require.Equal(t, uint64(2), n.Sequence())
	v, ok := n.Get("key1")
	require.True(t, ok)
	require.True(t, v.Equal(value.NewInt(10)))
	v, ok = n.Get("key2")
	require.True(t, ok)
	require.True(t, v.Equal(value.NewString("value")))
}

func TestPeerNodeApplyOutdated(t *testing.T) {
	n := NewPeer("peer1", testAddr(t))
	n.Apply(5, []Diff{{Key: "key1", Value: value.NewInt(10), Sequence: 5}})
	n.Apply(3, []Diff{{Key: "key2", Value: value.NewInt(20), Sequence: 3}})
	n.Apply(6, []Diff{{Key: "key1", Value: value.NewInt(99), Sequence: 5}})

	require.Equal(t, uint64(6), n.Sequence())
	v, ok := n.Get("key1")
	require.True(t, ok)
	require.True(t, v.Equal(value.NewInt(10)))
	_, ok = n.Get("key2")
	require.False(t, ok)
}

func TestPeerNodeApplyStaleBatchIsNoOp(t *testing.T) {
	n := NewPeer("peer1", testAddr(t))
	n.Apply(5, []Diff{{Key: "key1", Value: value.NewInt(10), Sequence: 5}})
	require.True(t, n.Active())

	// a stale batch changes neither state nor sequence, and an equal batch
	// sequence counts as stale too
	n.Apply(3, []Diff{{Key: "key9", Value: value.NewInt(1), Sequence: 3}})
	n.Apply(5, []Diff{{Key: "key9", Value: value.NewInt(1), Sequence: 5}})
	require.Equal(t, uint64(5), n.Sequence())
	_, ok := n.Get("key9")
	require.False(t, ok)
}

func TestPeerNodeApplyTracksMaxAcceptedBatch(t *testing.T) {
	n := NewPeer("peer1", testAddr(t))
	for _, seq := range []uint64{1, 4, 2, 9, 9, 7} {
		n.Apply(seq, nil)
	}
	require.Equal(t, uint64(9), n.Sequence())
}

func TestPeerNodeDiff(t *testing.T) {
	n := NewPeer("peer1", testAddr(t))
	n.Apply(3, []Diff{
		{Key: "key1", Value: value.NewInt(10), Sequence: 1},
		{Key: "key2", Value: value.NewInt(20), Sequence: 2},
		{Key: "key3", Value: value.NewInt(30), Sequence: 3},
	})

	diff := n.Diff(1)
	require.Len(t, diff, 2)
	require.True(t, hasChange(diff, "key2", value.NewInt(20), 2))
	require.True(t, hasChange(diff, "key3", value.NewInt(30), 3))
}

func TestPeerNodeActive(t *testing.T) {
	n := NewPeer("peer1", testAddr(t))

	// starts as inactive
	require.False(t, n.Active())

	// becomes active when the detector receives an update
	n.updateDetector()
	n.updateDetector()
	require.True(t, n.Active())

	// becomes inactive when marked as inactive
	n.markInactive()
	require.False(t, n.Active())
}

func TestPeerNodeDiscardable(t *testing.T) {
	useManualClock(t)
	n := NewPeer("peer1", testAddr(t))

	// with recent activity: active and not discardable
	n.updateDetector()
	require.True(t, n.Active())
	require.False(t, n.Discardable())
	require.True(t, n.Active())
	require.False(t, n.detector.Failed())

	// time passes, the detector trips: not discardable but now inactive
	clock.Advance(1e2)
	require.True(t, n.detector.Failed())
	require.False(t, n.Discardable())
	require.False(t, n.Active())

	// time passes beyond retention: discardable
	clock.Advance(1e6)
	require.True(t, n.Discardable())

	// with new activity: active again and no longer discardable
	n.updateDetector()
	require.False(t, n.Discardable())
	require.True(t, n.Active())
}
