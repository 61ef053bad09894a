// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"math"
	"time"

	"github.com/relabs-tech/gnss_reports/internal/gnss"
)

const (
	mockLat      = 48.137154
	mockLon      = 11.576124
	mockRadiusM  = 50.0
	mockAltMSL   = 519.0
	mockGeoidSep = 47.5
	mockPeriod   = 60.0 // seconds per lap

	mockSatsPerSystem = 6
	mockUsedPerSystem = 4

	earthRadiusM = 6371000.0
)

// mockSystems lists the primary constellations the mock can simulate, with
// the satellite ID range start for each.
var mockSystems = []struct {
	sys     gnss.System
	firstID uint16
}{
	{gnss.SystemGPS, 1},
	{gnss.SystemGLONASS, 65},
	{gnss.SystemGalileo, 1},
	{gnss.SystemBeiDou, 1},
}

type mockSource struct {
	start     time.Time
	now       func() time.Time
	activated gnss.System
}

// NewMockSource creates a mock receiver that drives slowly around a
// circle and reports a 3D fix with every activated primary system in use.
func NewMockSource(activated gnss.System) Source {
	if activated.Primary() == 0 {
		activated |= gnss.SystemGPS
	}
	return &mockSource{start: time.Now(), now: time.Now, activated: activated}
}

func (m *mockSource) Next() (Epoch, error) {
	now := m.now().UTC()
	elapsed := now.Sub(m.start).Seconds()
	ts := uint64(now.UnixMilli())

	tm := gnss.NewTime(ts).
		WithClock(gnss.Clock{
			Hour:        uint8(now.Hour()),
			Minute:      uint8(now.Minute()),
			Second:      uint8(now.Second()),
			Millisecond: uint16(now.Nanosecond() / int(time.Millisecond)),
		}).
		WithDate(gnss.Date{Year: uint16(now.Year()), Month: uint8(now.Month() - 1), Day: uint8(now.Day())}).
		WithScale(gnss.TimeScaleUTC)

	angle := 2 * math.Pi * elapsed / mockPeriod
	dNorth := mockRadiusM * math.Cos(angle)
	dEast := mockRadiusM * math.Sin(angle)
	lat := mockLat + dNorth/earthRadiusM*180/math.Pi
	lon := mockLon + dEast/(earthRadiusM*math.Cos(mockLat*math.Pi/180))*180/math.Pi

	speed := 2 * math.Pi * mockRadiusM / mockPeriod
	// Moving counterclockwise seen from above: heading leads the bearing by 90°.
	heading := math.Mod(angle*180/math.Pi+90, 360)

	var (
		sats    []gnss.SatelliteDetail
		used    uint16
		tracked uint16
		usedSys gnss.System
	)
	for i, ms := range mockSystems {
		if !m.activated.Has(ms.sys) {
			continue
		}
		usedSys |= ms.sys
		for j := 0; j < mockSatsPerSystem; j++ {
			// The last satellite of each system is in view but not tracked.
			cno := uint16(0)
			if j < mockSatsPerSystem-1 {
				cno = uint16(30 + (j*7+i*3)%20)
				tracked++
			}
			isUsed := j < mockUsedPerSystem
			if isUsed {
				used++
			}
			az := math.Mod(float64(j*60+i*15)+elapsed, 360)
			el := 15 + float64((j*13+i*11)%70)
			sats = append(sats, gnss.NewSatelliteDetail(ts).
				WithSystem(ms.sys).
				WithID(ms.firstID+uint16(j*3+i)).
				WithAzimuth(uint16(az)).
				WithElevation(uint16(el)).
				WithCNo(cno).
				WithUsed(isUsed))
		}
	}

	hdop := 0.8 + 0.2*math.Sin(elapsed/10)
	vdop := 1.2 + 0.2*math.Cos(elapsed/10)
	pdop := math.Sqrt(hdop*hdop + vdop*vdop)

	fixType := gnss.FixTypeSingleFrequency
	if usedSys.Count() > 1 {
		fixType |= gnss.FixTypeMultiConstellation
	}

	pos := gnss.NewPosition(ts).
		WithLatitude(lat).
		WithLongitude(lon).
		WithAltitudeMSL(float32(mockAltMSL + 2*math.Sin(angle))).
		WithAltitudeEll(float32(mockAltMSL + mockGeoidSep + 2*math.Sin(angle))).
		WithHSpeed(float32(speed)).
		WithVSpeed(float32(2 * math.Cos(angle) * 2 * math.Pi / mockPeriod)).
		WithHeading(wrapHeading(heading)).
		WithPDOP(float32(pdop)).
		WithHDOP(float32(hdop)).
		WithVDOP(float32(vdop)).
		WithUsedSatellites(used).
		WithTrackedSatellites(tracked).
		WithVisibleSatellites(uint16(len(sats))).
		WithSigmaHPosition(float32(2.5 * hdop)).
		WithSigmaAltitude(float32(4 * vdop)).
		WithFixStatus(gnss.Fix3D).
		WithFixType(fixType).
		WithActivatedSystems(m.activated).
		WithUsedSystems(usedSys)

	return Epoch{Time: tm, Position: pos, Satellites: sats}, nil
}
