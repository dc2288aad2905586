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

package server

import (
	"fmt"
	"net/netip"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// Config specifies scuttled run options.
type Config struct {
	Identifier     string        `yaml:"identifier"`      // unique node name in the cluster
	ListenAddr     string        `yaml:"listen_addr"`     // host:port to bind and advertise
	Roots          []string      `yaml:"roots"`           // seed addresses for bootstrap
	Interval       time.Duration `yaml:"interval"`        // gossip tick cadence
	PruneInterval  time.Duration `yaml:"prune_interval"`  // how often discardable peers are dropped
	MetricInterval time.Duration `yaml:"metric_interval"` // how often stats are snapshotted
	MonitoringPort int           `yaml:"monitoring_port"` // port of the http monitoring server
	DSCP           int           `yaml:"dscp"`            // DSCP for gossip packets, 0-63
	Seed           uint64        `yaml:"seed"`            // PRNG seed, 0 means seed from OS entropy
	Fanout         int           `yaml:"fanout"`          // gossip destinations per tick
	RootChance     float64       `yaml:"root_chance"`     // probability of adding a root per tick
	InactiveChance float64       `yaml:"inactive_chance"` // probability of adding an inactive peer per tick
	Threshold      float64       `yaml:"threshold"`       // failure detector phi threshold
	Weight         float64       `yaml:"weight"`          // failure detector decay weight
	IntervalSeed   float64       `yaml:"interval_seed"`   // failure detector initial interval, seconds
	Retention      float64       `yaml:"retention"`       // seconds an inactive peer is kept
}

// DefaultConfig returns the standard run options.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:     ":3322",
		Interval:       time.Second,
		PruneInterval:  10 * time.Second,
		MetricInterval: time.Minute,
		MonitoringPort: 8889,
		Fanout:         4,
		RootChance:     0.2,
		InactiveChance: 0.1,
		Threshold:      8.0,
		Weight:         0.9,
		IntervalSeed:   1.0,
		Retention:      86_400,
	}
}

// ReadConfig reads config from the file, on top of defaults.
func ReadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	cData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	err = yaml.Unmarshal(cData, c)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Validate checks the config for unusable values.
func (c *Config) Validate() error {
	if c.Identifier == "" {
		return fmt.Errorf("identifier must be set")
	}
	if _, err := c.ListenAddrPort(); err != nil {
		return fmt.Errorf("bad listen_addr %q: %w", c.ListenAddr, err)
	}
	if _, err := c.RootAddrs(); err != nil {
		return err
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if c.Fanout <= 0 {
		return fmt.Errorf("fanout must be positive")
	}
	if c.DSCP < 0 || c.DSCP > 63 {
		return fmt.Errorf("unsupported DSCP value %v", c.DSCP)
	}
	if c.RootChance < 0 || c.RootChance > 1 {
		return fmt.Errorf("root_chance must be within [0, 1]")
	}
	if c.InactiveChance < 0 || c.InactiveChance > 1 {
		return fmt.Errorf("inactive_chance must be within [0, 1]")
	}
	if c.Weight <= 0 || c.Weight >= 1 {
		return fmt.Errorf("weight must be within (0, 1)")
	}
	return nil
}

// ListenAddrPort parses the listen address. A missing host binds all
// interfaces and advertises the unspecified address.
func (c *Config) ListenAddrPort() (netip.AddrPort, error) {
	addr := c.ListenAddr
	if len(addr) > 0 && addr[0] == ':' {
		addr = "0.0.0.0" + addr
	}
	return netip.ParseAddrPort(addr)
}

// RootAddrs parses the configured seed addresses.
func (c *Config) RootAddrs() ([]netip.AddrPort, error) {
	out := make([]netip.AddrPort, 0, len(c.Roots))
	for _, r := range c.Roots {
		a, err := netip.ParseAddrPort(r)
		if err != nil {
			return nil, fmt.Errorf("bad root %q: %w", r, err)
		}
		out = append(out, a)
	}
	return out, nil
}
