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

// Package node models gossip participants: the local SelfNode whose state we
// own, and PeerNodes learned through reconciliation. Every stored value
// carries the sequence number it was written at; a node's sequence bounds
// the sequence of everything it stores.
package node

import (
	"net/netip"

	"github.com/scuttlenet/scuttle/value"
)

// Digest is a compact summary of how recent a participant's state is.
type Digest struct {
	Identifier string `json:"identifier"`
	Sequence   uint64 `json:"sequence"`
}

// Diff is a single versioned key/value update.
type Diff struct {
	Key      string      `json:"key"`
	Value    value.Value `json:"value"`
	Sequence uint64      `json:"sequence"`
}

// Delta is a batch of updates for one node: its digest at batch time, the
// updates themselves, and optionally the node's address so a receiver that
// has never seen the node can construct a peer for it. A zero Address means
// no address was attached.
type Delta struct {
	Digest  Digest         `json:"digest"`
	Updates []Diff         `json:"updates"`
	Address netip.AddrPort `json:"address,omitempty"`
}

// Node is the capability set shared by SelfNode and PeerNode.
type Node interface {
	Identifier() string
	Address() netip.AddrPort
	Sequence() uint64
	Digest() Digest
	Get(key string) (value.Value, bool)
	Diff(from uint64) []Diff
	Discardable() bool
}

type sequenced struct {
	value    value.Value
	sequence uint64
}

// base is the substrate shared by both node flavors.
type base struct {
	identifier string
	address    netip.AddrPort
	sequence   uint64
	values     map[string]sequenced
}

func newBase(identifier string, address netip.AddrPort) base {
	return base{
		identifier: identifier,
		address:    address,
		values:     make(map[string]sequenced),
	}
}

// Identifier returns the node's unique name. Immutable.
func (b *base) Identifier() string {
	return b.identifier
}

// Address returns the node's network address. Immutable.
func (b *base) Address() netip.AddrPort {
	return b.address
}

// Sequence returns the node's current sequence number.
func (b *base) Sequence() uint64 {
	return b.sequence
}

// Digest returns the (identifier, sequence) summary of the node.
func (b *base) Digest() Digest {
	return Digest{Identifier: b.identifier, Sequence: b.sequence}
}

// Get returns the value stored under key, if any.
func (b *base) Get(key string) (value.Value, bool) {
	sv, ok := b.values[key]
	return sv.value, ok
}

// Len returns the number of stored keys.
func (b *base) Len() int {
	return len(b.values)
}

// Diff returns every update with a sequence strictly greater than from.
// Order is unspecified.
func (b *base) Diff(from uint64) []Diff {
	var out []Diff
	for k, sv := range b.values {
		if sv.sequence > from {
			out = append(out, Diff{Key: k, Value: sv.value, Sequence: sv.sequence})
		}
	}
	return out
}
