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

// Package gossip implements the three-phase anti-entropy reconciliation:
// a digest of everything we know is sent out each tick; a receiver splits
// it into requests for state it is missing and diffs for state the sender
// is missing; diffs are applied as they arrive, feeding each peer's
// failure detector.
//
// The core is synchronous and never returns errors; protocol anomalies are
// logged and swallowed. Callers serialize access (see the server package).
package gossip

import (
	"net/netip"

	log "github.com/sirupsen/logrus"

	"github.com/scuttlenet/scuttle/detector"
	"github.com/scuttlenet/scuttle/node"
	"github.com/scuttlenet/scuttle/peers"
	"github.com/scuttlenet/scuttle/rng"
	"github.com/scuttlenet/scuttle/value"
)

// Config carries the knobs applied to peers created by reconciliation.
type Config struct {
	// Detector tunes the failure detector of newly created peers.
	Detector detector.Config
	// Retention is how long an inactive peer survives, in seconds.
	Retention float64
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{Detector: detector.DefaultConfig(), Retention: node.DefaultRetention}
}

// Gossip owns the local node and the peer table and drives reconciliation
// over them. Randomness is threaded in by the caller.
type Gossip struct {
	self  *node.SelfNode
	peers *peers.Peers
	cfg   Config
}

// New returns a Gossip over the given self node and peer table with default
// tuning.
func New(self *node.SelfNode, table *peers.Peers) *Gossip {
	return NewConfigured(self, table, DefaultConfig())
}

// NewConfigured returns a Gossip with explicit tuning for created peers.
func NewConfigured(self *node.SelfNode, table *peers.Peers, cfg Config) *Gossip {
	return &Gossip{self: self, peers: table, cfg: cfg}
}

// Self returns the local node.
func (g *Gossip) Self() *node.SelfNode {
	return g.self
}

// Peers returns the membership table.
func (g *Gossip) Peers() *peers.Peers {
	return g.peers
}

// Set writes a key on the local node.
func (g *Gossip) Set(key string, v value.Value) {
	g.self.Set(key, v)
}

// Digest summarizes the local view: self first, then known peers in table
// order.
func (g *Gossip) Digest() []node.Digest {
	out := make([]node.Digest, 0, g.peers.Len()+1)
	out = append(out, g.self.Digest())
	return append(out, g.peers.Digest()...)
}

// Tick produces one round of outbound gossip: the destinations to contact
// and the digest to send to each.
func (g *Gossip) Tick(r *rng.Rand) ([]netip.AddrPort, []node.Digest) {
	return g.peers.Targets(r), g.Digest()
}

// Prune drops discardable peers from the table.
func (g *Gossip) Prune() {
	g.peers.Prune()
}

// ProcessDigest splits an incoming digest into requests for state the
// sender has newer versions of, and deltas for state we have newer versions
// of. Nodes we know that the sender did not mention are pushed whole, with
// their address attached so the sender can construct peers for them.
func (g *Gossip) ProcessDigest(incoming []node.Digest) ([]node.Digest, []node.Delta) {
	var requests []node.Digest
	var deltas []node.Delta
	actives := g.peers.Actives()
	seenSelf := false

	for _, d := range incoming {
		if d.Identifier == g.self.Identifier() {
			seenSelf = true
			selfSequence := g.self.Sequence()
			if d.Sequence > selfSequence {
				// a peer claims a newer version of us; never mutate self
				log.Errorf("received digest for ourself with a higher sequence (%s @ %d > %d)",
					d.Identifier, d.Sequence, selfSequence)
			} else if d.Sequence < selfSequence {
				deltas = append(deltas, node.Delta{
					Digest:  g.self.Digest(),
					Updates: g.self.Diff(d.Sequence),
				})
			}
			continue
		}

		if n, ok := g.peers.Get(d.Identifier); ok {
			delete(actives, n.Identifier())
			sequence := n.Sequence()
			if sequence < d.Sequence {
				requests = append(requests, node.Digest{Identifier: d.Identifier, Sequence: sequence})
			} else if sequence > d.Sequence {
				deltas = append(deltas, node.Delta{Digest: n.Digest(), Updates: n.Diff(d.Sequence)})
			}
			continue
		}

		// unknown node, so request all info on it
		requests = append(requests, node.Digest{Identifier: d.Identifier})
	}

	// push ourself if we weren't in the digest
	if !seenSelf {
		deltas = append(deltas, node.Delta{
			Digest:  g.self.Digest(),
			Updates: g.self.Diff(0),
			Address: g.self.Address(),
		})
	}

	// push any active nodes of ours the sender did not mention
	for _, n := range actives {
		deltas = append(deltas, node.Delta{
			Digest:  n.Digest(),
			Updates: n.Diff(0),
			Address: n.Address(),
		})
	}

	return requests, deltas
}

// ProcessDiffs applies incoming deltas to the peer table, creating peers
// for unknown nodes whose delta carries an address.
func (g *Gossip) ProcessDiffs(deltas []node.Delta) {
	for _, d := range deltas {
		if d.Digest.Identifier == g.self.Identifier() {
			// a peer tried to update us; never mutate self
			log.Errorf("received diffs to update ourself (%s @ %d)",
				d.Digest.Identifier, d.Digest.Sequence)
			continue
		}

		if n, ok := g.peers.Get(d.Digest.Identifier); ok {
			n.Apply(d.Digest.Sequence, d.Updates)
			continue
		}

		if !d.Address.IsValid() {
			log.Debugf("dropping diffs for unknown node %s with no address", d.Digest.Identifier)
			continue
		}

		n := node.NewPeerConfigured(d.Digest.Identifier, d.Address, g.cfg.Detector, g.cfg.Retention)
		n.Apply(d.Digest.Sequence, d.Updates)
		g.peers.Add(n)
	}
}

// ProcessRequests answers requests with deltas of everything newer than the
// requested sequence. A request from sequence zero gets the node's address
// attached, since the requester cannot know it yet.
func (g *Gossip) ProcessRequests(requests []node.Digest) []node.Delta {
	var deltas []node.Delta

	add := func(n node.Node, sequence uint64) {
		if n.Sequence() <= sequence {
			return
		}
		d := node.Delta{Digest: n.Digest(), Updates: n.Diff(sequence)}
		if sequence == 0 {
			d.Address = n.Address()
		}
		deltas = append(deltas, d)
	}

	for _, req := range requests {
		if req.Identifier == g.self.Identifier() {
			add(g.self, req.Sequence)
			continue
		}
		if n, ok := g.peers.Get(req.Identifier); ok {
			add(n, req.Sequence)
			continue
		}
		log.Debugf("ignoring request for unknown node %s", req.Identifier)
	}

	return deltas
}
