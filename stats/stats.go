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

// Package stats collects and reports counters of the gossip daemon: message
// traffic per kind, protocol anomalies, membership gauges, and the observed
// distribution of exchange intervals. Counters are served as JSON on
// /counters and as Prometheus gauges on /metrics.
package stats

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/eclesh/welford"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/scuttlenet/scuttle/protocol"
)

// PeerSummary is one row of the /peers monitoring endpoint.
type PeerSummary struct {
	Identifier string  `json:"identifier"`
	Address    string  `json:"address"`
	Sequence   uint64  `json:"sequence"`
	Active     bool    `json:"active"`
	Phi        float64 `json:"phi"`
	Keys       int     `json:"keys"`
}

// JSONStats is what we want to report as stats via http.
type JSONStats struct {
	rxDigest  atomic.Int64
	rxRequest atomic.Int64
	rxDiff    atomic.Int64
	txDigest  atomic.Int64
	txRequest atomic.Int64
	txDiff    atomic.Int64

	anomalies    atomic.Int64
	dropped      atomic.Int64
	decodeErrors atomic.Int64

	peersTotal  atomic.Int64
	peersActive atomic.Int64

	mu        sync.Mutex
	intervals *welford.Stats

	reportMu sync.RWMutex
	report   map[string]int64

	registry *prometheus.Registry
	gauges   map[string]prometheus.Gauge

	peersFunc func() []PeerSummary

	sys *SysStats
}

// NewJSONStats returns a new JSONStats.
func NewJSONStats() *JSONStats {
	return &JSONStats{
		intervals: welford.New(),
		report:    make(map[string]int64),
		registry:  prometheus.NewRegistry(),
		gauges:    make(map[string]prometheus.Gauge),
		sys:       &SysStats{},
	}
}

// IncRX counts one received message of the given kind.
func (s *JSONStats) IncRX(t protocol.Type) {
	switch t {
	case protocol.TypeDigest:
		s.rxDigest.Add(1)
	case protocol.TypeRequest:
		s.rxRequest.Add(1)
	case protocol.TypeDiff:
		s.rxDiff.Add(1)
	}
}

// IncTX counts one sent message of the given kind.
func (s *JSONStats) IncTX(t protocol.Type) {
	switch t {
	case protocol.TypeDigest:
		s.txDigest.Add(1)
	case protocol.TypeRequest:
		s.txRequest.Add(1)
	case protocol.TypeDiff:
		s.txDiff.Add(1)
	}
}

// IncAnomaly counts one protocol invariant violation.
func (s *JSONStats) IncAnomaly() {
	s.anomalies.Add(1)
}

// IncDropped counts one dropped inbound payload.
func (s *JSONStats) IncDropped() {
	s.dropped.Add(1)
}

// IncDecodeError counts one undecodable datagram.
func (s *JSONStats) IncDecodeError() {
	s.decodeErrors.Add(1)
}

// SetPeers records the current membership gauges.
func (s *JSONStats) SetPeers(total, active int) {
	s.peersTotal.Store(int64(total))
	s.peersActive.Store(int64(active))
}

// ObserveExchange folds one inter-arrival interval (seconds) between
// successful exchanges into the running estimate.
func (s *JSONStats) ObserveExchange(seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intervals.Add(seconds)
}

// SetPeersFunc installs the provider behind the /peers endpoint.
func (s *JSONStats) SetPeersFunc(f func() []PeerSummary) {
	s.peersFunc = f
}

// Snapshot captures the counter values so they can be reported atomically.
func (s *JSONStats) Snapshot() {
	report := map[string]int64{
		"rx.digest":     s.rxDigest.Load(),
		"rx.request":    s.rxRequest.Load(),
		"rx.diff":       s.rxDiff.Load(),
		"tx.digest":     s.txDigest.Load(),
		"tx.request":    s.txRequest.Load(),
		"tx.diff":       s.txDiff.Load(),
		"anomalies":     s.anomalies.Load(),
		"dropped":       s.dropped.Load(),
		"decode_errors": s.decodeErrors.Load(),
		"peers.total":   s.peersTotal.Load(),
		"peers.active":  s.peersActive.Load(),
	}

	s.mu.Lock()
	if s.intervals.Count() > 0 {
		report["exchange.count"] = int64(s.intervals.Count())
		report["exchange.interval_ms.mean"] = int64(s.intervals.Mean() * 1000)
		report["exchange.interval_ms.stddev"] = int64(s.intervals.Stddev() * 1000)
		report["exchange.interval_ms.min"] = int64(s.intervals.Min() * 1000)
		report["exchange.interval_ms.max"] = int64(s.intervals.Max() * 1000)
	}
	s.mu.Unlock()

	for k, v := range s.sys.Collect() {
		report[k] = v
	}

	s.updateGauges(report)

	s.reportMu.Lock()
	s.report = report
	s.reportMu.Unlock()
}

func flattenKey(key string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(key)
}

func (s *JSONStats) updateGauges(report map[string]int64) {
	for key, val := range report {
		g, ok := s.gauges[key]
		if !ok {
			g = prometheus.NewGauge(prometheus.GaugeOpts{
				Name: fmt.Sprintf("scuttle_%s", flattenKey(key)),
			})
			if err := s.registry.Register(g); err != nil {
				log.Errorf("Failed to register gauge for %q: %v", key, err)
				continue
			}
			s.gauges[key] = g
		}
		g.Set(float64(val))
	}
}

// handleCounters is the handler used for /counters requests.
func (s *JSONStats) handleCounters(w http.ResponseWriter, _ *http.Request) {
	s.reportMu.RLock()
	js, err := json.Marshal(s.report)
	s.reportMu.RUnlock()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err = w.Write(js); err != nil {
		log.Errorf("Failed to reply: %v", err)
	}
}

// handlePeers is the handler used for /peers requests.
func (s *JSONStats) handlePeers(w http.ResponseWriter, _ *http.Request) {
	var summaries []PeerSummary
	if s.peersFunc != nil {
		summaries = s.peersFunc()
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Identifier < summaries[j].Identifier
	})
	js, err := json.Marshal(summaries)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err = w.Write(js); err != nil {
		log.Errorf("Failed to reply: %v", err)
	}
}

// Start runs the http monitoring server.
func (s *JSONStats) Start(monitoringPort int) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleCounters)
	mux.HandleFunc("/counters", s.handleCounters)
	mux.HandleFunc("/peers", s.handlePeers)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	addr := fmt.Sprintf(":%d", monitoringPort)
	log.Infof("Starting http json server on %s", addr)
	err := http.ListenAndServe(addr, mux)
	if err != nil {
		log.Fatalf("Failed to start listener: %v", err)
	}
}
