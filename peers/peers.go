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

// Package peers maintains the membership table: an insertion-ordered index
// of known peers, a round-robin cursor over it, and randomized selection of
// gossip targets mixing active peers, inactive peers, and seed addresses.
package peers

import (
	"net/netip"

	"github.com/scuttlenet/scuttle/node"
	"github.com/scuttlenet/scuttle/rng"
)

// Config controls target selection.
type Config struct {
	// Fanout caps the number of gossip destinations per tick.
	Fanout int
	// RootChance is the probability of adding a seed address to a tick.
	RootChance float64
	// InactiveChance is the probability of adding one inactive peer.
	InactiveChance float64
}

// DefaultConfig returns the standard selection tuning.
func DefaultConfig() Config {
	return Config{Fanout: 4, RootChance: 0.2, InactiveChance: 0.1}
}

// Peers is the insertion-ordered membership table. Replacing a peer keeps
// its position; the cursor survives insertions and removals by wrapping
// modulo the current size.
type Peers struct {
	list   map[string]*node.PeerNode
	order  []string
	offset int
	roots  []netip.AddrPort
	cfg    Config
}

// New returns an empty table with the given seed addresses and default
// selection tuning.
func New(roots []netip.AddrPort) *Peers {
	return NewConfigured(roots, DefaultConfig())
}

// NewConfigured returns an empty table with explicit selection tuning.
func NewConfigured(roots []netip.AddrPort, cfg Config) *Peers {
	return &Peers{
		list:  make(map[string]*node.PeerNode),
		roots: append([]netip.AddrPort(nil), roots...),
		cfg:   cfg,
	}
}

// Len returns the number of known peers.
func (p *Peers) Len() int {
	return len(p.order)
}

// Get returns the peer with the given identifier.
func (p *Peers) Get(identifier string) (*node.PeerNode, bool) {
	n, ok := p.list[identifier]
	return n, ok
}

// Add inserts the peer, replacing in place any existing peer with the same
// identifier.
func (p *Peers) Add(n *node.PeerNode) {
	id := n.Identifier()
	if _, ok := p.list[id]; !ok {
		p.order = append(p.order, id)
	}
	p.list[id] = n
}

// Digest returns each peer's digest in insertion order.
func (p *Peers) Digest() []node.Digest {
	out := make([]node.Digest, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.list[id].Digest())
	}
	return out
}

// Prune drops every discardable peer. Evaluating discardability may flip a
// failed active peer to inactive as a side effect.
func (p *Peers) Prune() {
	kept := p.order[:0]
	for _, id := range p.order {
		if p.list[id].Discardable() {
			delete(p.list, id)
			continue
		}
		kept = append(kept, id)
	}
	p.order = kept
}

func (p *Peers) partition() (actives, inactives []*node.PeerNode) {
	for _, id := range p.order {
		n := p.list[id]
		if n.Active() {
			actives = append(actives, n)
		} else {
			inactives = append(inactives, n)
		}
	}
	return actives, inactives
}

// Actives returns the subset of active peers keyed by identifier.
func (p *Peers) Actives() map[string]*node.PeerNode {
	actives, _ := p.partition()
	out := make(map[string]*node.PeerNode, len(actives))
	for _, n := range actives {
		out[n.Identifier()] = n
	}
	return out
}

// Next advances the round-robin cursor and returns the peer under it, or
// false on an empty table.
func (p *Peers) Next() (*node.PeerNode, bool) {
	if len(p.order) == 0 {
		return nil, false
	}
	p.offset++
	return p.list[p.order[p.offset%len(p.order)]], true
}

// Roots returns a copy of the seed addresses.
func (p *Peers) Roots() []netip.AddrPort {
	return append([]netip.AddrPort(nil), p.roots...)
}

// Targets produces the destination set for one gossip tick: the next
// round-robin peer, occasionally a root or an inactive peer, then random
// active peers until the fanout ceiling is reached. Duplicate addresses
// collapse. With no known peers the seed addresses are returned as-is.
func (p *Peers) Targets(r *rng.Rand) []netip.AddrPort {
	if p.Len() == 0 {
		return p.Roots()
	}

	sample := make(map[netip.AddrPort]struct{})

	// cycle through all peer nodes
	if n, ok := p.Next(); ok {
		sample[n.Address()] = struct{}{}
	}

	// sometimes, add a root
	if len(p.roots) > 0 && r.Float64() < p.cfg.RootChance {
		sample[rng.Choose(r, p.roots)] = struct{}{}
	}

	actives, inactives := p.partition()

	// sometimes, add an inactive
	if len(inactives) > 0 && r.Float64() < p.cfg.InactiveChance {
		sample[rng.Choose(r, inactives).Address()] = struct{}{}
	}

	// add random actives to fill
	count := p.cfg.Fanout - len(sample)
	if count > len(actives) {
		count = len(actives)
	}
	if count > 0 {
		rng.Shuffle(r, actives, count)
		for _, n := range actives[:count] {
			sample[n.Address()] = struct{}{}
		}
	}

	out := make([]netip.AddrPort, 0, len(sample))
	for a := range sample {
		out = append(out, a)
	}
	return out
}
