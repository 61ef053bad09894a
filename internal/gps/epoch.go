// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"errors"
	"fmt"

	"github.com/relabs-tech/gnss_reports/internal/gnss"
)

// Epoch holds the reports of one acquisition cycle. It is complete and
// never modified once returned by a Source or an Assembler.
type Epoch struct {
	Time       gnss.Time              `json:"time"`
	Position   gnss.Position          `json:"position"`
	Satellites []gnss.SatelliteDetail `json:"satellites"`
}

// Source is anything that can provide epochs over time: the mock source,
// a serial receiver, a replay of recorded NMEA.
type Source interface {
	Next() (Epoch, error)
}

// Check runs the advisory consistency checks of all reports in the epoch.
func (e Epoch) Check() error {
	var errs []error
	if err := e.Time.Check(); err != nil {
		errs = append(errs, fmt.Errorf("time: %w", err))
	}
	if err := e.Position.Check(); err != nil {
		errs = append(errs, fmt.Errorf("position: %w", err))
	}
	for _, s := range e.Satellites {
		if err := s.Check(); err != nil {
			errs = append(errs, fmt.Errorf("satellite %s/%s: %w", s.System(), s.ID(), err))
		}
	}
	return errors.Join(errs...)
}
