// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gnss

import (
	"errors"
	"fmt"
	"math"
)

// PositionValidity marks which fields of a Position hold a value.
type PositionValidity uint32

const (
	// position
	PosLatitudeValid    PositionValidity = 0x00000001
	PosLongitudeValid   PositionValidity = 0x00000002
	PosAltitudeMSLValid PositionValidity = 0x00000004
	PosAltitudeEllValid PositionValidity = 0x00000008
	// velocity
	PosHSpeedValid  PositionValidity = 0x00000010
	PosVSpeedValid  PositionValidity = 0x00000020
	PosHeadingValid PositionValidity = 0x00000040
	// satellite constellation
	PosPDOPValid PositionValidity = 0x00000080
	PosHDOPValid PositionValidity = 0x00000100
	PosVDOPValid PositionValidity = 0x00000200
	PosUSatValid PositionValidity = 0x00000400 // used satellites
	PosTSatValid PositionValidity = 0x00000800 // tracked satellites
	PosVSatValid PositionValidity = 0x00001000 // visible satellites
	// error estimates
	PosSigmaHPosValid    PositionValidity = 0x00002000
	PosSigmaAltValid     PositionValidity = 0x00004000
	PosSigmaHSpeedValid  PositionValidity = 0x00008000
	PosSigmaVSpeedValid  PositionValidity = 0x00010000
	PosSigmaHeadingValid PositionValidity = 0x00020000
	// fix status and type
	PosStatusValid  PositionValidity = 0x00040000
	PosFixTypeValid PositionValidity = 0x00080000
	// systems
	PosActivatedSystemsValid PositionValidity = 0x00100000
	PosUsedSystemsValid      PositionValidity = 0x00200000
	// correction data
	PosCorrectionAgeValid PositionValidity = 0x00400000
)

const (
	posHorizontalBits = PosLatitudeValid | PosLongitudeValid
	posAltitudeBits   = PosAltitudeMSLValid | PosAltitudeEllValid
	posVelocityBits   = PosHSpeedValid | PosVSpeedValid | PosHeadingValid
)

// Position is a GNSS position and velocity fix with its quality data. It
// carries what a GNSS/dead reckoning fusion needs from the receiver.
type Position struct {
	timestamp uint64

	latitude    Optional[float64] // WGS84 [degree]
	longitude   Optional[float64] // WGS84 [degree]
	altitudeMSL Optional[float32] // above mean sea level [m]
	altitudeEll Optional[float32] // above WGS84 ellipsoid [m]

	hSpeed  Optional[float32] // [m/s] along heading
	vSpeed  Optional[float32] // [m/s], positive upwards
	heading Optional[float32] // course over ground [degree], 0 north, 90 east

	pdop              Optional[float32]
	hdop              Optional[float32]
	vdop              Optional[float32]
	usedSatellites    Optional[uint16]
	trackedSatellites Optional[uint16]
	visibleSatellites Optional[uint16]

	sigmaHPosition Optional[float32] // [m]
	sigmaAltitude  Optional[float32] // [m]
	sigmaHSpeed    Optional[float32] // [m/s]
	sigmaVSpeed    Optional[float32] // [m/s]
	sigmaHeading   Optional[float32] // [degree]

	fixStatus Optional[FixStatus]
	fixType   Optional[FixType]

	activatedSystems Optional[System]
	usedSystems      Optional[System]

	correctionAge Optional[uint16] // [s]
}

// NewPosition starts a fix acquired at timestamp [ms].
func NewPosition(timestamp uint64) Position {
	return Position{timestamp: timestamp}
}

func (p Position) WithLatitude(deg float64) Position {
	p.latitude = Some(deg)
	return p
}

func (p Position) WithLongitude(deg float64) Position {
	p.longitude = Some(deg)
	return p
}

func (p Position) WithAltitudeMSL(m float32) Position {
	p.altitudeMSL = Some(m)
	return p
}

func (p Position) WithAltitudeEll(m float32) Position {
	p.altitudeEll = Some(m)
	return p
}

func (p Position) WithHSpeed(mps float32) Position {
	p.hSpeed = Some(mps)
	return p
}

func (p Position) WithVSpeed(mps float32) Position {
	p.vSpeed = Some(mps)
	return p
}

func (p Position) WithHeading(deg float32) Position {
	p.heading = Some(deg)
	return p
}

func (p Position) WithPDOP(v float32) Position {
	p.pdop = Some(v)
	return p
}

func (p Position) WithHDOP(v float32) Position {
	p.hdop = Some(v)
	return p
}

func (p Position) WithVDOP(v float32) Position {
	p.vdop = Some(v)
	return p
}

func (p Position) WithUsedSatellites(n uint16) Position {
	p.usedSatellites = Some(n)
	return p
}

func (p Position) WithTrackedSatellites(n uint16) Position {
	p.trackedSatellites = Some(n)
	return p
}

func (p Position) WithVisibleSatellites(n uint16) Position {
	p.visibleSatellites = Some(n)
	return p
}

func (p Position) WithSigmaHPosition(m float32) Position {
	p.sigmaHPosition = Some(m)
	return p
}

func (p Position) WithSigmaAltitude(m float32) Position {
	p.sigmaAltitude = Some(m)
	return p
}

func (p Position) WithSigmaHSpeed(mps float32) Position {
	p.sigmaHSpeed = Some(mps)
	return p
}

func (p Position) WithSigmaVSpeed(mps float32) Position {
	p.sigmaVSpeed = Some(mps)
	return p
}

func (p Position) WithSigmaHeading(deg float32) Position {
	p.sigmaHeading = Some(deg)
	return p
}

func (p Position) WithFixStatus(s FixStatus) Position {
	p.fixStatus = Some(s)
	return p
}

func (p Position) WithFixType(f FixType) Position {
	p.fixType = Some(f)
	return p
}

func (p Position) WithActivatedSystems(s System) Position {
	p.activatedSystems = Some(s)
	return p
}

func (p Position) WithUsedSystems(s System) Position {
	p.usedSystems = Some(s)
	return p
}

func (p Position) WithCorrectionAge(sec uint16) Position {
	p.correctionAge = Some(sec)
	return p
}

func (p Position) Timestamp() uint64 { return p.timestamp }
func (p Position) Latitude() Optional[float64] { return p.latitude }
func (p Position) Longitude() Optional[float64] { return p.longitude }
func (p Position) AltitudeMSL() Optional[float32] { return p.altitudeMSL }
func (p Position) AltitudeEll() Optional[float32] { return p.altitudeEll }
func (p Position) HSpeed() Optional[float32] { return p.hSpeed }
func (p Position) VSpeed() Optional[float32] { return p.vSpeed }
func (p Position) Heading() Optional[float32] { return p.heading }
func (p Position) PDOP() Optional[float32] { return p.pdop }
func (p Position) HDOP() Optional[float32] { return p.hdop }
func (p Position) VDOP() Optional[float32] { return p.vdop }
func (p Position) UsedSatellites() Optional[uint16] { return p.usedSatellites }
func (p Position) TrackedSatellites() Optional[uint16] { return p.trackedSatellites }
func (p Position) VisibleSatellites() Optional[uint16] { return p.visibleSatellites }
func (p Position) SigmaHPosition() Optional[float32] { return p.sigmaHPosition }
func (p Position) SigmaAltitude() Optional[float32] { return p.sigmaAltitude }
func (p Position) SigmaHSpeed() Optional[float32] { return p.sigmaHSpeed }
func (p Position) SigmaVSpeed() Optional[float32] { return p.sigmaVSpeed }
func (p Position) SigmaHeading() Optional[float32] { return p.sigmaHeading }
func (p Position) FixStatus() Optional[FixStatus] { return p.fixStatus }
func (p Position) FixType() Optional[FixType] { return p.fixType }
func (p Position) ActivatedSystems() Optional[System] { return p.activatedSystems }
func (p Position) UsedSystems() Optional[System] { return p.usedSystems }
func (p Position) CorrectionAge() Optional[uint16] { return p.correctionAge }

// LatLon returns the horizontal position when both coordinates are valid.
func (p Position) LatLon() (lat, lon float64, ok bool) {
	lat, okLat := p.latitude.Get()
	lon, okLon := p.longitude.Get()
	return lat, lon, okLat && okLon
}

// ValidityBits derives the mask from the populated fields.
func (p Position) ValidityBits() PositionValidity {
	var v PositionValidity
	for _, f := range []struct {
		ok  bool
		bit PositionValidity
	}{
		{p.latitude.Valid(), PosLatitudeValid},
		{p.longitude.Valid(), PosLongitudeValid},
		{p.altitudeMSL.Valid(), PosAltitudeMSLValid},
		{p.altitudeEll.Valid(), PosAltitudeEllValid},
		{p.hSpeed.Valid(), PosHSpeedValid},
		{p.vSpeed.Valid(), PosVSpeedValid},
		{p.heading.Valid(), PosHeadingValid},
		{p.pdop.Valid(), PosPDOPValid},
		{p.hdop.Valid(), PosHDOPValid},
		{p.vdop.Valid(), PosVDOPValid},
		{p.usedSatellites.Valid(), PosUSatValid},
		{p.trackedSatellites.Valid(), PosTSatValid},
		{p.visibleSatellites.Valid(), PosVSatValid},
		{p.sigmaHPosition.Valid(), PosSigmaHPosValid},
		{p.sigmaAltitude.Valid(), PosSigmaAltValid},
		{p.sigmaHSpeed.Valid(), PosSigmaHSpeedValid},
		{p.sigmaVSpeed.Valid(), PosSigmaVSpeedValid},
		{p.sigmaHeading.Valid(), PosSigmaHeadingValid},
		{p.fixStatus.Valid(), PosStatusValid},
		{p.fixType.Valid(), PosFixTypeValid},
		{p.activatedSystems.Valid(), PosActivatedSystemsValid},
		{p.usedSystems.Valid(), PosUsedSystemsValid},
		{p.correctionAge.Valid(), PosCorrectionAgeValid},
	} {
		if f.ok {
			v |= f.bit
		}
	}
	return v
}

// dopTolerance bounds |pdop² - (hdop² + vdop²)| relative to pdop².
const dopTolerance = 0.1

// Check reports relationships a well-formed fix is expected to keep:
// value ranges, used <= tracked <= visible satellites, used systems within
// the activated ones, no position or velocity beyond what the fix status
// claims, and a correction age only with correction data in the fix type.
// None of these are enforced when a Position is built or decoded.
func (p Position) Check() error {
	var errs []error
	bits := p.ValidityBits()

	if lat, ok := p.latitude.Get(); ok && (lat < -90 || lat > 90 || math.IsNaN(lat)) {
		errs = append(errs, fmt.Errorf("latitude %v out of range", lat))
	}
	if lon, ok := p.longitude.Get(); ok && (lon < -180 || lon > 180 || math.IsNaN(lon)) {
		errs = append(errs, fmt.Errorf("longitude %v out of range", lon))
	}
	if h, ok := p.heading.Get(); ok && !(h >= 0 && h < 360) {
		errs = append(errs, fmt.Errorf("heading %v out of range [0, 360)", h))
	}

	used, okU := p.usedSatellites.Get()
	tracked, okT := p.trackedSatellites.Get()
	visible, okV := p.visibleSatellites.Get()
	if okU && okT && used > tracked {
		errs = append(errs, fmt.Errorf("used satellites %d exceed tracked %d", used, tracked))
	}
	if okT && okV && tracked > visible {
		errs = append(errs, fmt.Errorf("tracked satellites %d exceed visible %d", tracked, visible))
	}
	if okU && okV && !okT && used > visible {
		errs = append(errs, fmt.Errorf("used satellites %d exceed visible %d", used, visible))
	}

	usedSys, okUS := p.usedSystems.Get()
	activeSys, okAS := p.activatedSystems.Get()
	if okUS && okAS && !usedSys.SubsetOf(activeSys) {
		errs = append(errs, fmt.Errorf("used systems %s not activated (%s)", usedSys, activeSys))
	}

	if status, ok := p.fixStatus.Get(); ok {
		if !status.HasHorizontal() && bits&(posHorizontalBits|posVelocityBits) != 0 {
			errs = append(errs, fmt.Errorf("fix status %s with position or velocity", status))
		}
		if !status.HasAltitude() && bits&posAltitudeBits != 0 {
			errs = append(errs, fmt.Errorf("fix status %s with altitude", status))
		}
		if status > Fix3D {
			errs = append(errs, fmt.Errorf("unknown fix status %d", uint32(status)))
		}
	}

	if ft, ok := p.fixType.Get(); ok && p.correctionAge.Valid() && !ft.Corrected() {
		errs = append(errs, fmt.Errorf("correction age without correction data in fix type %s", ft))
	}

	pd, okP := p.pdop.Get()
	hd, okH := p.hdop.Get()
	vd, okVd := p.vdop.Get()
	if okP && okH && okVd {
		want := float64(hd)*float64(hd) + float64(vd)*float64(vd)
		got := float64(pd) * float64(pd)
		if math.Abs(got-want) > dopTolerance*got+0.01 {
			errs = append(errs, fmt.Errorf("pdop %.2f inconsistent with hdop %.2f and vdop %.2f", pd, hd, vd))
		}
	}

	return errors.Join(errs...)
}

// RawPosition is the wire layout of a Position.
type RawPosition struct {
	Timestamp         uint64           `json:"timestamp"`
	Latitude          float64          `json:"latitude"`
	Longitude         float64          `json:"longitude"`
	AltitudeMSL       float32          `json:"altitudeMSL"`
	AltitudeEll       float32          `json:"altitudeEll"`
	HSpeed            float32          `json:"hSpeed"`
	VSpeed            float32          `json:"vSpeed"`
	Heading           float32          `json:"heading"`
	PDOP              float32          `json:"pdop"`
	HDOP              float32          `json:"hdop"`
	VDOP              float32          `json:"vdop"`
	UsedSatellites    uint16           `json:"usedSatellites"`
	TrackedSatellites uint16           `json:"trackedSatellites"`
	VisibleSatellites uint16           `json:"visibleSatellites"`
	SigmaHPosition    float32          `json:"sigmaHPosition"`
	SigmaAltitude     float32          `json:"sigmaAltitude"`
	SigmaHSpeed       float32          `json:"sigmaHSpeed"`
	SigmaVSpeed       float32          `json:"sigmaVSpeed"`
	SigmaHeading      float32          `json:"sigmaHeading"`
	FixStatus         FixStatus        `json:"fixStatus"`
	FixTypeBits       FixType          `json:"fixTypeBits"`
	ActivatedSystems  System           `json:"activatedSystems"`
	UsedSystems       System           `json:"usedSystems"`
	CorrectionAge     uint16           `json:"correctionAge"`
	ValidityBits      PositionValidity `json:"validityBits"`
}

// Raw returns the wire form. Fields without a validity bit are zero.
func (p Position) Raw() RawPosition {
	return RawPosition{
		Timestamp:         p.timestamp,
		Latitude:          p.latitude.Or(0),
		Longitude:         p.longitude.Or(0),
		AltitudeMSL:       p.altitudeMSL.Or(0),
		AltitudeEll:       p.altitudeEll.Or(0),
		HSpeed:            p.hSpeed.Or(0),
		VSpeed:            p.vSpeed.Or(0),
		Heading:           p.heading.Or(0),
		PDOP:              p.pdop.Or(0),
		HDOP:              p.hdop.Or(0),
		VDOP:              p.vdop.Or(0),
		UsedSatellites:    p.usedSatellites.Or(0),
		TrackedSatellites: p.trackedSatellites.Or(0),
		VisibleSatellites: p.visibleSatellites.Or(0),
		SigmaHPosition:    p.sigmaHPosition.Or(0),
		SigmaAltitude:     p.sigmaAltitude.Or(0),
		SigmaHSpeed:       p.sigmaHSpeed.Or(0),
		SigmaVSpeed:       p.sigmaVSpeed.Or(0),
		SigmaHeading:      p.sigmaHeading.Or(0),
		FixStatus:         p.fixStatus.Or(FixNone),
		FixTypeBits:       p.fixType.Or(0),
		ActivatedSystems:  p.activatedSystems.Or(0),
		UsedSystems:       p.usedSystems.Or(0),
		CorrectionAge:     p.correctionAge.Or(0),
		ValidityBits:      p.ValidityBits(),
	}
}

// PositionFromRaw reads the fields whose validity bit is set and ignores
// the content of all others.
func PositionFromRaw(r RawPosition) Position {
	v := r.ValidityBits
	has := func(bit PositionValidity) bool { return v&bit != 0 }
	return Position{
		timestamp:         r.Timestamp,
		latitude:          optionalIf(has(PosLatitudeValid), r.Latitude),
		longitude:         optionalIf(has(PosLongitudeValid), r.Longitude),
		altitudeMSL:       optionalIf(has(PosAltitudeMSLValid), r.AltitudeMSL),
		altitudeEll:       optionalIf(has(PosAltitudeEllValid), r.AltitudeEll),
		hSpeed:            optionalIf(has(PosHSpeedValid), r.HSpeed),
		vSpeed:            optionalIf(has(PosVSpeedValid), r.VSpeed),
		heading:           optionalIf(has(PosHeadingValid), r.Heading),
		pdop:              optionalIf(has(PosPDOPValid), r.PDOP),
		hdop:              optionalIf(has(PosHDOPValid), r.HDOP),
		vdop:              optionalIf(has(PosVDOPValid), r.VDOP),
		usedSatellites:    optionalIf(has(PosUSatValid), r.UsedSatellites),
		trackedSatellites: optionalIf(has(PosTSatValid), r.TrackedSatellites),
		visibleSatellites: optionalIf(has(PosVSatValid), r.VisibleSatellites),
		sigmaHPosition:    optionalIf(has(PosSigmaHPosValid), r.SigmaHPosition),
		sigmaAltitude:     optionalIf(has(PosSigmaAltValid), r.SigmaAltitude),
		sigmaHSpeed:       optionalIf(has(PosSigmaHSpeedValid), r.SigmaHSpeed),
		sigmaVSpeed:       optionalIf(has(PosSigmaVSpeedValid), r.SigmaVSpeed),
		sigmaHeading:      optionalIf(has(PosSigmaHeadingValid), r.SigmaHeading),
		fixStatus:         optionalIf(has(PosStatusValid), r.FixStatus),
		fixType:           optionalIf(has(PosFixTypeValid), r.FixTypeBits),
		activatedSystems:  optionalIf(has(PosActivatedSystemsValid), r.ActivatedSystems),
		usedSystems:       optionalIf(has(PosUsedSystemsValid), r.UsedSystems),
		correctionAge:     optionalIf(has(PosCorrectionAgeValid), r.CorrectionAge),
	}
}
