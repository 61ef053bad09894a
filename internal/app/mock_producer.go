// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"log"
	"time"

	"github.com/relabs-tech/gnss_reports/internal/config"
	"github.com/relabs-tech/gnss_reports/internal/gps"
)

// RunMockProducer publishes epochs from the mock receiver at MOCK_INTERVAL.
func RunMockProducer() error {
	cfg := config.Get()

	pub, err := NewEpochPublisher(cfg, cfg.MQTTClientIDProducer, "producer")
	if err != nil {
		return err
	}
	defer pub.Close()

	src := gps.NewMockSource(cfg.GNSSActivatedSystems)
	ticker := time.NewTicker(time.Duration(cfg.MockInterval) * time.Millisecond)
	defer ticker.Stop()

	ctx := context.Background()
	for t := range ticker.C {
		e, err := src.Next()
		if err != nil {
			log.Printf("producer: error from mock source: %v", err)
			continue
		}
		if err := pub.Publish(ctx, e); err != nil {
			log.Printf("producer: %v", err)
			continue
		}
		lat, lon, _ := e.Position.LatLon()
		log.Printf("%s published epoch: lat=%.6f lon=%.6f sats=%d", t.Format(time.RFC3339), lat, lon, len(e.Satellites))
	}
	return nil
}
