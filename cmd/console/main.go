// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/relabs-tech/gnss_reports/internal/app"
	"github.com/relabs-tech/gnss_reports/internal/gnss"
)

func main() {
	systems := flag.String("systems", "GPS,GLONASS,GALILEO", "comma separated systems to simulate")
	interval := flag.Duration("interval", time.Second, "time between epochs")
	flag.Parse()

	log.Println("starting gnss-reports (mock console)")

	activated, err := gnss.ParseSystems(*systems)
	if err != nil {
		log.Fatalf("invalid -systems: %v", err)
	}

	if err := app.RunMockConsole(activated, *interval, os.Stdout); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
