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

	"github.com/scuttlenet/scuttle/value"
)

// SelfNode is the local participant. It is the only node whose state is
// written locally; every Set bumps the sequence, giving local writes a total
// order that peers reconcile against.
type SelfNode struct {
	base
}

// NewSelf returns the local node. Created once at startup, lives for the
// process lifetime.
func NewSelf(identifier string, address netip.AddrPort) *SelfNode {
	return &SelfNode{base: newBase(identifier, address)}
}

// Set stores value under key at the next sequence number.
func (n *SelfNode) Set(key string, v value.Value) {
	n.sequence++
	n.values[key] = sequenced{value: v, sequence: n.sequence}
}

// Discardable is always false for the local node.
func (n *SelfNode) Discardable() bool {
	return false
}
