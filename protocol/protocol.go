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

// Package protocol defines the three gossip message kinds and their wire
// encoding. Messages are symmetric over the wire: every message carries the
// sender's identifier and optionally the sender's address for bootstrap.
package protocol

import (
	"encoding/json"
	"fmt"
	"net/netip"

	"github.com/scuttlenet/scuttle/node"
)

// Type tags a message kind.
type Type string

// The three message kinds.
const (
	TypeDigest  Type = "digest"
	TypeRequest Type = "request"
	TypeDiff    Type = "diff"
)

// MaxMessageSize bounds an encoded message to what fits a UDP datagram.
const MaxMessageSize = 65507

// Message is a single gossip datagram. Digests carries the payload for both
// digest and request kinds; Deltas carries diff payloads.
type Message struct {
	Type    Type           `json:"type"`
	Sender  string         `json:"sender"`
	Address netip.AddrPort `json:"address,omitempty"`
	Digests []node.Digest  `json:"digests,omitempty"`
	Deltas  []node.Delta   `json:"deltas,omitempty"`
}

// Digest builds a DIGEST message.
func Digest(sender string, address netip.AddrPort, digests []node.Digest) *Message {
	return &Message{Type: TypeDigest, Sender: sender, Address: address, Digests: digests}
}

// Request builds a REQUEST message.
func Request(sender string, requests []node.Digest) *Message {
	return &Message{Type: TypeRequest, Sender: sender, Digests: requests}
}

// Diff builds a DIFF message.
func Diff(sender string, deltas []node.Delta) *Message {
	return &Message{Type: TypeDiff, Sender: sender, Deltas: deltas}
}

// Encode serializes the message, rejecting anything too large for a single
// datagram.
func Encode(m *Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding %s message: %w", m.Type, err)
	}
	if len(data) > MaxMessageSize {
		return nil, fmt.Errorf("%s message of %d bytes exceeds datagram limit", m.Type, len(data))
	}
	return data, nil
}

// Decode parses and validates a message.
func Decode(data []byte) (*Message, error) {
	if len(data) > MaxMessageSize {
		return nil, fmt.Errorf("message of %d bytes exceeds datagram limit", len(data))
	}
	m := &Message{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("decoding message: %w", err)
	}
	switch m.Type {
	case TypeDigest, TypeRequest, TypeDiff:
	default:
		return nil, fmt.Errorf("unknown message type %q", m.Type)
	}
	if m.Sender == "" {
		return nil, fmt.Errorf("message without sender")
	}
	return m, nil
}
