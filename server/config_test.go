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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scuttled.yaml")
	data := `identifier: node1
listen_addr: 127.0.0.1:3322
roots:
  - 127.1.1.11:3322
  - 127.1.1.12:3322
fanout: 6
threshold: 12.5
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	c, err := ReadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "node1", c.Identifier)
	require.Equal(t, "127.0.0.1:3322", c.ListenAddr)
	require.Equal(t, []string{"127.1.1.11:3322", "127.1.1.12:3322"}, c.Roots)
	require.Equal(t, 6, c.Fanout)
	require.Equal(t, 12.5, c.Threshold)

	// untouched fields keep their defaults
	require.Equal(t, 0.9, c.Weight)
	require.Equal(t, 8889, c.MonitoringPort)
}

func TestReadConfigMissingFile(t *testing.T) {
	_, err := ReadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	good := func() *Config {
		c := DefaultConfig()
		c.Identifier = "node1"
		c.ListenAddr = "127.0.0.1:3322"
		c.Roots = []string{"127.1.1.11:3322"}
		return c
	}
	require.NoError(t, good().Validate())

	c := good()
	c.Identifier = ""
	require.Error(t, c.Validate())

	c = good()
	c.ListenAddr = "not an address"
	require.Error(t, c.Validate())

	c = good()
	c.Roots = []string{"missing-port"}
	require.Error(t, c.Validate())

	c = good()
	c.DSCP = 64
	require.Error(t, c.Validate())

	c = good()
	c.Fanout = 0
	require.Error(t, c.Validate())

	c = good()
	c.RootChance = 1.5
	require.Error(t, c.Validate())

	c = good()
	c.Weight = 1.0
	require.Error(t, c.Validate())
}

func TestListenAddrPortDefaultHost(t *testing.T) {
	c := DefaultConfig()
	addr, err := c.ListenAddrPort()
	require.NoError(t, err)
	require.Equal(t, uint16(3322), addr.Port())
}
