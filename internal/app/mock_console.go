// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/relabs-tech/gnss_reports/internal/gnss"
	"github.com/relabs-tech/gnss_reports/internal/gps"
)

// RunMockConsole prints mock epochs to stdout without any broker.
func RunMockConsole(activated gnss.System, interval time.Duration, w io.Writer) error {
	src := gps.NewMockSource(activated)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		if err := printEpoch(w, src); err != nil {
			return err
		}
	}
	return nil
}

func printEpoch(w io.Writer, src gps.Source) error {
	e, err := src.Next()
	if err != nil {
		return err
	}
	if err := e.Check(); err != nil {
		log.Printf("mock console: inconsistent epoch: %v", err)
	}
	_, err = fmt.Fprintf(w, "%s\n%s\n%s\n\n",
		FormatTime(e.Time),
		FormatPosition(e.Position),
		FormatSatellites(e.Satellites),
	)
	return err
}
