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

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/scuttlenet/scuttle/server"
)

func main() {
	c := server.DefaultConfig()

	var configFile string
	var logLevel string
	var roots string

	flag.StringVar(&configFile, "config", "", "Path to a config file; overrides the other flags")
	flag.StringVar(&c.Identifier, "identifier", "", "Unique node name in the cluster")
	flag.StringVar(&c.ListenAddr, "addr", c.ListenAddr, "host:port to bind and advertise")
	flag.StringVar(&roots, "roots", "", "Comma-separated seed addresses")
	flag.DurationVar(&c.Interval, "interval", c.Interval, "Gossip tick cadence")
	flag.IntVar(&c.MonitoringPort, "monitoringport", c.MonitoringPort, "Port to run monitoring server on")
	flag.IntVar(&c.DSCP, "dscp", c.DSCP, "DSCP for gossip packets, valid values are between 0-63")
	flag.Uint64Var(&c.Seed, "seed", 0, "PRNG seed; 0 seeds from OS entropy")
	flag.StringVar(&logLevel, "loglevel", "info", "Set a log level. Can be: debug, info, warning, error")
	flag.Parse()

	switch logLevel {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warning":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.Fatalf("Unrecognized log level: %v", logLevel)
	}

	if roots != "" {
		c.Roots = strings.Split(roots, ",")
	}

	if configFile != "" {
		fc, err := server.ReadConfig(configFile)
		if err != nil {
			log.Fatalf("Failed to read config: %v", err)
		}
		c = fc
	}

	s, err := server.New(c)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Infof("Starting scuttled with a %v gossip interval", c.Interval.Round(time.Millisecond))
	if err := s.Start(ctx); err != nil && ctx.Err() == nil {
		log.Fatal(err)
	}
}
