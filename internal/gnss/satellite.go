// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gnss

import (
	"errors"
	"fmt"
)

// SatelliteFlag holds the status flags packed into one word of a
// SatelliteDetail.
type SatelliteFlag uint32

const (
	SatelliteUsed               SatelliteFlag = 0x00000001 // used for the fix
	SatelliteEphemerisAvailable SatelliteFlag = 0x00000002
)

// SatelliteValidity marks which fields of a SatelliteDetail hold a value.
// Each status flag has a validity bit of its own.
type SatelliteValidity uint32

const (
	SatSystemValid             SatelliteValidity = 0x00000001
	SatIDValid                 SatelliteValidity = 0x00000002
	SatAzimuthValid            SatelliteValidity = 0x00000004
	SatElevationValid          SatelliteValidity = 0x00000008
	SatCNoValid                SatelliteValidity = 0x00000010
	SatUsedValid               SatelliteValidity = 0x00000020
	SatEphemerisAvailableValid SatelliteValidity = 0x00000040
	SatResidualValid           SatelliteValidity = 0x00000080
)

// SatelliteDetail describes one satellite seen in an acquisition cycle.
//
// Satellite IDs are unique only within their system. Usual ranges are
// 1-32 for GPS PRNs, 33-64 for SBAS, 65-96 for GLONASS and 1-64 for
// Galileo.
type SatelliteDetail struct {
	timestamp          uint64
	system             Optional[System]
	id                 Optional[uint16]
	azimuth            Optional[uint16]
	elevation          Optional[uint16]
	cno                Optional[uint16]
	used               Optional[bool]
	ephemerisAvailable Optional[bool]
	residual           Optional[int16]
}

// NewSatelliteDetail starts a detail record acquired at timestamp [ms].
func NewSatelliteDetail(timestamp uint64) SatelliteDetail {
	return SatelliteDetail{timestamp: timestamp}
}

func (s SatelliteDetail) WithSystem(sys System) SatelliteDetail {
	s.system = Some(sys)
	return s
}

func (s SatelliteDetail) WithID(id uint16) SatelliteDetail {
	s.id = Some(id)
	return s
}

// WithAzimuth sets the azimuth [degree], 0-359.
func (s SatelliteDetail) WithAzimuth(deg uint16) SatelliteDetail {
	s.azimuth = Some(deg)
	return s
}

// WithElevation sets the elevation [degree], 0-90.
func (s SatelliteDetail) WithElevation(deg uint16) SatelliteDetail {
	s.elevation = Some(deg)
	return s
}

// WithCNo sets C/No [dBHz], 0-99. Zero means the satellite is not tracked.
func (s SatelliteDetail) WithCNo(dbhz uint16) SatelliteDetail {
	s.cno = Some(dbhz)
	return s
}

func (s SatelliteDetail) WithUsed(used bool) SatelliteDetail {
	s.used = Some(used)
	return s
}

func (s SatelliteDetail) WithEphemerisAvailable(avail bool) SatelliteDetail {
	s.ephemerisAvailable = Some(avail)
	return s
}

// WithResidual sets the position residual [m], -999 to 999. Zero means
// the satellite is not tracked.
func (s SatelliteDetail) WithResidual(m int16) SatelliteDetail {
	s.residual = Some(m)
	return s
}

func (s SatelliteDetail) Timestamp() uint64 { return s.timestamp }
func (s SatelliteDetail) System() Optional[System] { return s.system }
func (s SatelliteDetail) ID() Optional[uint16] { return s.id }
func (s SatelliteDetail) Azimuth() Optional[uint16] { return s.azimuth }
func (s SatelliteDetail) Elevation() Optional[uint16] { return s.elevation }
func (s SatelliteDetail) CNo() Optional[uint16] { return s.cno }
func (s SatelliteDetail) Used() Optional[bool] { return s.used }
func (s SatelliteDetail) EphemerisAvailable() Optional[bool] { return s.ephemerisAvailable }
func (s SatelliteDetail) Residual() Optional[int16] { return s.residual }

// Tracked reports whether the receiver has a signal from the satellite.
func (s SatelliteDetail) Tracked() Optional[bool] {
	cno, ok := s.cno.Get()
	return optionalIf(ok, cno > 0)
}

// ValidityBits derives the mask from the populated fields.
func (s SatelliteDetail) ValidityBits() SatelliteValidity {
	var v SatelliteValidity
	set := func(ok bool, bit SatelliteValidity) {
		if ok {
			v |= bit
		}
	}
	set(s.system.Valid(), SatSystemValid)
	set(s.id.Valid(), SatIDValid)
	set(s.azimuth.Valid(), SatAzimuthValid)
	set(s.elevation.Valid(), SatElevationValid)
	set(s.cno.Valid(), SatCNoValid)
	set(s.used.Valid(), SatUsedValid)
	set(s.ephemerisAvailable.Valid(), SatEphemerisAvailableValid)
	set(s.residual.Valid(), SatResidualValid)
	return v
}

// Check reports values outside their documented ranges. The result is
// advisory.
func (s SatelliteDetail) Check() error {
	var errs []error
	if sys, ok := s.system.Get(); ok && sys.Count() != 1 {
		errs = append(errs, fmt.Errorf("system %s is not a single system", sys))
	}
	if az, ok := s.azimuth.Get(); ok && az > 359 {
		errs = append(errs, fmt.Errorf("azimuth %d out of range 0-359", az))
	}
	if el, ok := s.elevation.Get(); ok && el > 90 {
		errs = append(errs, fmt.Errorf("elevation %d out of range 0-90", el))
	}
	if cno, ok := s.cno.Get(); ok && cno > 99 {
		errs = append(errs, fmt.Errorf("CNo %d out of range 0-99", cno))
	}
	if r, ok := s.residual.Get(); ok && (r < -999 || r > 999) {
		errs = append(errs, fmt.Errorf("residual %d out of range -999..999", r))
	}
	return errors.Join(errs...)
}

// RawSatelliteDetail is the wire layout of a SatelliteDetail.
type RawSatelliteDetail struct {
	Timestamp    uint64            `json:"timestamp"`
	System       System            `json:"system"`
	SatelliteID  uint16            `json:"satelliteId"`
	Azimuth      uint16            `json:"azimuth"`
	Elevation    uint16            `json:"elevation"`
	CNo          uint16            `json:"CNo"`
	StatusBits   SatelliteFlag     `json:"statusBits"`
	PosResidual  int16             `json:"posResidual"`
	ValidityBits SatelliteValidity `json:"validityBits"`
}

// Raw returns the wire form. Fields and flags without a validity bit are
// zero.
func (s SatelliteDetail) Raw() RawSatelliteDetail {
	r := RawSatelliteDetail{
		Timestamp:    s.timestamp,
		System:       s.system.Or(0),
		SatelliteID:  s.id.Or(0),
		Azimuth:      s.azimuth.Or(0),
		Elevation:    s.elevation.Or(0),
		CNo:          s.cno.Or(0),
		PosResidual:  s.residual.Or(0),
		ValidityBits: s.ValidityBits(),
	}
	if s.used.Or(false) {
		r.StatusBits |= SatelliteUsed
	}
	if s.ephemerisAvailable.Or(false) {
		r.StatusBits |= SatelliteEphemerisAvailable
	}
	return r
}

// SatelliteDetailFromRaw reads the fields whose validity bit is set. The
// two status flags are read independently of each other.
func SatelliteDetailFromRaw(r RawSatelliteDetail) SatelliteDetail {
	v := r.ValidityBits
	return SatelliteDetail{
		timestamp:          r.Timestamp,
		system:             optionalIf(v&SatSystemValid != 0, r.System),
		id:                 optionalIf(v&SatIDValid != 0, r.SatelliteID),
		azimuth:            optionalIf(v&SatAzimuthValid != 0, r.Azimuth),
		elevation:          optionalIf(v&SatElevationValid != 0, r.Elevation),
		cno:                optionalIf(v&SatCNoValid != 0, r.CNo),
		used:               optionalIf(v&SatUsedValid != 0, r.StatusBits&SatelliteUsed != 0),
		ephemerisAvailable: optionalIf(v&SatEphemerisAvailableValid != 0, r.StatusBits&SatelliteEphemerisAvailable != 0),
		residual:           optionalIf(v&SatResidualValid != 0, r.PosResidual),
	}
}
