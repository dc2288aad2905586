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
	"sort"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(statusCmd)
}

func runStatus() error {
	counters := map[string]int64{}
	if err := fetchJSON("/counters", &counters); err != nil {
		return err
	}

	keys := make([]string, 0, len(counters))
	for k := range counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		line := fmt.Sprintf("%s: %d", k, counters[k])
		switch {
		case (k == "anomalies" || k == "decode_errors" || k == "dropped") && counters[k] > 0:
			fmt.Println(color.YellowString(line))
		default:
			fmt.Println(line)
		}
	}

	if counters["peers.active"] == 0 {
		fmt.Println(color.RedString("no active peers"))
	} else {
		fmt.Println(color.GreenString("%d/%d peers active", counters["peers.active"], counters["peers.total"]))
	}
	return nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print counters of the running scuttled",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		if err := runStatus(); err != nil {
			log.Fatal(err)
		}
	},
}
