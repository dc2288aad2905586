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

	"github.com/scuttlenet/scuttle/clock"
	"github.com/scuttlenet/scuttle/detector"
)

// DefaultRetention is how long an inactive peer is kept before it becomes
// discardable, in seconds.
const DefaultRetention = 86_400.0

// newTouch is the touch constructor, replaced in tests.
var newTouch = clock.New

// PeerNode is a remote participant. It starts inactive; the first applied
// batch activates it by creating a failure detector. A failing detector
// marks the peer inactive again, and only prolonged inactivity makes it
// discardable.
type PeerNode struct {
	base
	detector      *detector.Detector
	inactiveSince clock.Touch
	detectorCfg   detector.Config
	retention     float64
}

// NewPeer returns an inactive peer with default detector tuning.
func NewPeer(identifier string, address netip.AddrPort) *PeerNode {
	return NewPeerConfigured(identifier, address, detector.DefaultConfig(), DefaultRetention)
}

// NewPeerConfigured returns an inactive peer with explicit detector tuning
// and retention (seconds of inactivity before the peer is discardable).
func NewPeerConfigured(identifier string, address netip.AddrPort, cfg detector.Config, retention float64) *PeerNode {
	return &PeerNode{
		base:          newBase(identifier, address),
		inactiveSince: newTouch(),
		detectorCfg:   cfg,
		retention:     retention,
	}
}

// Active reports whether the peer currently has a failure detector.
func (n *PeerNode) Active() bool {
	return n.detector != nil
}

// Phi returns the peer's current suspicion level, false when inactive.
func (n *PeerNode) Phi() (float64, bool) {
	if n.detector == nil {
		return 0, false
	}
	return n.detector.Phi(), true
}

func (n *PeerNode) markInactive() {
	n.detector = nil
	n.inactiveSince = newTouch()
}

func (n *PeerNode) updateDetector() {
	if n.detector != nil {
		n.detector.Update()
		return
	}
	n.detector = detector.New(n.detectorCfg, newTouch())
}

func (n *PeerNode) currentSequence(key string) uint64 {
	return n.values[key].sequence
}

// Apply folds a batch of updates into the peer. Batches at or below the
// current sequence are stale and discarded whole. An accepted batch updates
// the failure detector (activating the peer if needed), overwrites each key
// whose inbound sequence is strictly newer than the stored one, and raises
// the peer's sequence to the batch sequence.
func (n *PeerNode) Apply(sequence uint64, updates []Diff) {
	if sequence <= n.sequence {
		return
	}

	n.updateDetector()

	for _, u := range updates {
		if u.Sequence > n.currentSequence(u.Key) {
			n.values[u.Key] = sequenced{value: u.Value, sequence: u.Sequence}
		}
	}

	n.sequence = sequence
}

// Discardable reports whether the peer can be pruned. An active peer is
// never discardable: a failing detector only flips it to inactive, so two
// separate observations are needed before a peer can actually be dropped.
func (n *PeerNode) Discardable() bool {
	if n.detector != nil {
		if n.detector.Failed() {
			n.markInactive()
		}
		return false
	}
	return n.inactiveSince.Age() > n.retention
}
