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

/*
Package server runs the gossip daemon: a UDP listener and the periodic
tick that drives anti-entropy exchanges, plus pruning, stats reporting and
the http monitoring endpoint. The gossip core itself is synchronous; the
server serializes every call into it behind one mutex.
*/
package server

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	sd "github.com/coreos/go-systemd/daemon"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/scuttlenet/scuttle/clock"
	"github.com/scuttlenet/scuttle/detector"
	"github.com/scuttlenet/scuttle/gossip"
	"github.com/scuttlenet/scuttle/node"
	"github.com/scuttlenet/scuttle/peers"
	"github.com/scuttlenet/scuttle/protocol"
	"github.com/scuttlenet/scuttle/rng"
	"github.com/scuttlenet/scuttle/stats"
	"github.com/scuttlenet/scuttle/value"
)

// Server is the scuttle gossip daemon.
type Server struct {
	Config *Config
	Stats  *stats.JSONStats

	mu     sync.Mutex
	gossip *gossip.Gossip
	rng    *rng.Rand

	conn     *net.UDPConn
	exchange clock.Touch
}

// New builds a Server from a validated config.
func New(cfg *Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	addr, err := cfg.ListenAddrPort()
	if err != nil {
		return nil, err
	}
	roots, err := cfg.RootAddrs()
	if err != nil {
		return nil, err
	}

	table := peers.NewConfigured(roots, peers.Config{
		Fanout:         cfg.Fanout,
		RootChance:     cfg.RootChance,
		InactiveChance: cfg.InactiveChance,
	})
	g := gossip.NewConfigured(node.NewSelf(cfg.Identifier, addr), table, gossip.Config{
		Detector: detector.Config{
			Threshold: cfg.Threshold,
			Weight:    cfg.Weight,
			Interval:  cfg.IntervalSeed,
		},
		Retention: cfg.Retention,
	})

	r := rng.New()
	if cfg.Seed != 0 {
		r = rng.NewSeeded(cfg.Seed)
	}

	return &Server{
		Config:   cfg,
		Stats:    stats.NewJSONStats(),
		gossip:   g,
		rng:      r,
		exchange: clock.New(),
	}, nil
}

// Set writes a key on the local node, visible to the cluster on the next
// exchange.
func (s *Server) Set(key string, v value.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gossip.Set(key, v)
}

// Start binds the socket and runs the server loops until ctx is canceled
// or one of the routines fails.
func (s *Server) Start(ctx context.Context) error {
	uaddr, err := net.ResolveUDPAddr("udp", s.Config.ListenAddr)
	if err != nil {
		return fmt.Errorf("resolving listen address: %w", err)
	}
	conn, err := net.ListenUDP("udp", uaddr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", s.Config.ListenAddr, err)
	}
	s.conn = conn
	defer conn.Close()

	if err := enableDSCP(conn, s.Config.DSCP); err != nil {
		log.Warningf("Failed to set DSCP %d: %v", s.Config.DSCP, err)
	}

	s.Stats.SetPeersFunc(s.peerSummaries)
	log.Infof("Listening on %s as %q", conn.LocalAddr(), s.Config.Identifier)

	if _, err := sd.SdNotify(false, sd.SdNotifyReady); err != nil {
		log.Warningf("Failed to notify systemd: %v", err)
	}

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		<-ctx.Done()
		// unblock the receive loop
		conn.Close()
		return ctx.Err()
	})

	eg.Go(func() error { return s.receiveLoop(ctx) })

	eg.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.Config.Interval):
				s.tick()
			}
		}
	})

	eg.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.Config.PruneInterval):
				s.mu.Lock()
				s.gossip.Prune()
				s.mu.Unlock()
			}
		}
	})

	eg.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.Config.MetricInterval):
				s.snapshot()
			}
		}
	})

	eg.Go(func() error {
		s.Stats.Start(s.Config.MonitoringPort)
		return fmt.Errorf("monitoring server finished")
	})

	return eg.Wait()
}

func (s *Server) receiveLoop(ctx context.Context) error {
	buf := make([]byte, protocol.MaxMessageSize)
	for {
		n, from, err := s.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading from socket: %w", err)
		}
		data := make([]byte, n)
		copy(data, buf[:n])
		for _, reply := range s.handle(data, from) {
			s.send(reply, from)
		}
	}
}

// tick runs one round of outbound gossip.
func (s *Server) tick() {
	s.mu.Lock()
	targets, digest := s.gossip.Tick(s.rng)
	identifier := s.gossip.Self().Identifier()
	address := s.gossip.Self().Address()
	s.mu.Unlock()

	if len(targets) == 0 {
		log.Debug("no gossip targets this tick")
		return
	}

	msg := protocol.Digest(identifier, address, digest)
	for _, target := range targets {
		s.send(msg, target)
	}
}

// handle dispatches one decoded datagram into the core and returns the
// replies to send back to the sender.
func (s *Server) handle(data []byte, from netip.AddrPort) []*protocol.Message {
	msg, err := protocol.Decode(data)
	if err != nil {
		s.Stats.IncDecodeError()
		log.Debugf("Dropping bad datagram from %s: %v", from, err)
		return nil
	}
	s.Stats.IncRX(msg.Type)

	s.mu.Lock()
	defer s.mu.Unlock()

	identifier := s.gossip.Self().Identifier()
	var replies []*protocol.Message

	switch msg.Type {
	case protocol.TypeDigest:
		requests, deltas := s.gossip.ProcessDigest(msg.Digests)
		if len(requests) > 0 {
			replies = append(replies, protocol.Request(identifier, requests))
		}
		if len(deltas) > 0 {
			replies = append(replies, protocol.Diff(identifier, deltas))
		}
	case protocol.TypeRequest:
		if deltas := s.gossip.ProcessRequests(msg.Digests); len(deltas) > 0 {
			replies = append(replies, protocol.Diff(identifier, deltas))
		}
	case protocol.TypeDiff:
		s.account(msg.Deltas)
		s.gossip.ProcessDiffs(msg.Deltas)
		s.Stats.ObserveExchange(s.exchange.Update())
	}

	return replies
}

// account mirrors the core's drop decisions into counters before the
// deltas are applied. Callers hold s.mu.
func (s *Server) account(deltas []node.Delta) {
	for _, d := range deltas {
		if d.Digest.Identifier == s.gossip.Self().Identifier() {
			s.Stats.IncAnomaly()
			continue
		}
		if _, known := s.gossip.Peers().Get(d.Digest.Identifier); !known && !d.Address.IsValid() {
			s.Stats.IncDropped()
		}
	}
}

func (s *Server) send(msg *protocol.Message, to netip.AddrPort) {
	data, err := protocol.Encode(msg)
	if err != nil {
		log.Errorf("Failed to encode %s message: %v", msg.Type, err)
		return
	}
	if _, err := s.conn.WriteToUDPAddrPort(data, to); err != nil {
		log.Debugf("Failed to send %s message to %s: %v", msg.Type, to, err)
		return
	}
	s.Stats.IncTX(msg.Type)
}

// snapshot refreshes the monitoring report.
func (s *Server) snapshot() {
	s.mu.Lock()
	total := s.gossip.Peers().Len()
	active := len(s.gossip.Peers().Actives())
	s.mu.Unlock()

	s.Stats.SetPeers(total, active)
	s.Stats.Snapshot()
}

// peerSummaries renders the peer table for the /peers endpoint.
func (s *Server) peerSummaries() []stats.PeerSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	table := s.gossip.Peers()
	out := make([]stats.PeerSummary, 0, table.Len())
	for _, d := range table.Digest() {
		p, ok := table.Get(d.Identifier)
		if !ok {
			continue
		}
		phi, active := p.Phi()
		out = append(out, stats.PeerSummary{
			Identifier: p.Identifier(),
			Address:    p.Address().String(),
			Sequence:   p.Sequence(),
			Active:     active,
			Phi:        phi,
			Keys:       p.Len(),
		})
	}
	return out
}
