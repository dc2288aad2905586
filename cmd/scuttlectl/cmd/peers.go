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

package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/scuttlenet/scuttle/stats"
)

func init() {
	RootCmd.AddCommand(peersCmd)
}

func runPeers() error {
	var peers []stats.PeerSummary
	if err := fetchJSON("/peers", &peers); err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"identifier", "address", "state", "phi", "sequence", "keys"})
	for _, p := range peers {
		state := color.YellowString("INACTIVE")
		phi := ""
		if p.Active {
			state = color.GreenString("ACTIVE")
			phi = fmt.Sprintf("%.3f", p.Phi)
		}
		table.Append([]string{
			p.Identifier,
			p.Address,
			state,
			phi,
			fmt.Sprintf("%d", p.Sequence),
			fmt.Sprintf("%d", p.Keys),
		})
	}
	table.Render()
	return nil
}

var peersCmd = &cobra.Command{
	Use:   "peers",
	Short: "Print the peer table of the running scuttled",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		if err := runPeers(); err != nil {
			log.Fatal(err)
		}
	},
}
