// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"math"
	"strconv"
	"time"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/relabs-tech/gnss_reports/internal/gnss"
)

const (
	knotsToMPS = 0.514444
	kphToMPS   = 1 / 3.6
)

// GGA fix quality indicators.
const (
	qualityInvalid   = "0"
	qualityDGPS      = "2"
	qualityRTKFixed  = "4"
	qualityRTKFloat  = "5"
	qualityEstimated = "6"
	qualityManual    = "7"
	qualitySimulated = "8"
)

// Assembler collects the NMEA sentences of one receiver cycle and turns
// them into an Epoch. A cycle ends when a sentence carrying a different UTC
// time of day arrives, or on Flush.
//
// NMEA never reports vertical speed, leap seconds, ephemeris availability
// or residuals; those fields are left without their validity bit.
type Assembler struct {
	now       func() uint64
	activated gnss.System
	pending   *cycle
}

// NewAssembler returns an Assembler. activated is the set of systems the
// receiver is configured for; zero leaves activatedSystems invalid.
func NewAssembler(activated gnss.System) *Assembler {
	return &Assembler{
		now:       func() uint64 { return uint64(time.Now().UnixMilli()) },
		activated: activated,
	}
}

// SetClock replaces the timestamp source [ms].
func (a *Assembler) SetClock(now func() uint64) {
	a.now = now
}

// satKey identifies a satellite within a cycle. The talker only takes part
// when the system is unknown.
type satKey struct {
	system gnss.System
	talker string
	prn    int64
}

func keyFor(talker string, sys gnss.System, prn int64) satKey {
	if sys != 0 {
		talker = ""
	}
	return satKey{system: sys, talker: talker, prn: prn}
}

type satState struct {
	talker             string
	elevation, azimuth gnss.Optional[int64]
	snr                int64
}

// cycle is the mutable state of the epoch being assembled.
type cycle struct {
	timestamp uint64
	key       nmea.Time
	keyed     bool

	clock gnss.Optional[gnss.Clock]
	date  gnss.Optional[gnss.Date]

	lat, lon        gnss.Optional[float64]
	altMSL, geoid   gnss.Optional[float64]
	hSpeed, heading gnss.Optional[float64]

	pdop, hdop, vdop gnss.Optional[float64]
	sigmaH, sigmaAlt gnss.Optional[float64]

	ggaQuality gnss.Optional[string]
	ggaUsed    gnss.Optional[uint16]
	dgpsAge    gnss.Optional[float64]
	gsaStatus  gnss.Optional[gnss.FixStatus]
	rmcValid   gnss.Optional[bool]

	gsaTalkers map[string]bool
	used       map[satKey]bool
	usedSys    gnss.System

	visible map[string]int64
	sats    map[satKey]satState
	order   []satKey
}

func newCycle(ts uint64) *cycle {
	return &cycle{
		timestamp:  ts,
		gsaTalkers: make(map[string]bool),
		used:       make(map[satKey]bool),
		visible:    make(map[string]int64),
		sats:       make(map[satKey]satState),
	}
}

// Add feeds one sentence. When the sentence opens a new cycle, the
// previous one is returned as a complete Epoch.
func (a *Assembler) Add(s nmea.Sentence) (Epoch, bool) {
	var (
		done  Epoch
		ready bool
	)

	if t, ok := sentenceTime(s); ok && t.Valid {
		if a.pending != nil && a.pending.keyed && a.pending.key != t {
			done, ready = a.Flush()
		}
		if a.pending == nil {
			a.pending = newCycle(a.now())
		}
		if !a.pending.keyed {
			a.pending.key = t
			a.pending.keyed = true
		}
	}
	if a.pending == nil {
		a.pending = newCycle(a.now())
	}

	a.pending.add(s)
	return done, ready
}

// Flush closes the pending cycle. It returns false when nothing is pending.
func (a *Assembler) Flush() (Epoch, bool) {
	if a.pending == nil {
		return Epoch{}, false
	}
	c := a.pending
	a.pending = nil
	return c.build(a.activated), true
}

func sentenceTime(s nmea.Sentence) (nmea.Time, bool) {
	switch m := s.(type) {
	case nmea.RMC:
		return m.Time, true
	case nmea.GGA:
		return m.Time, true
	case nmea.ZDA:
		return m.Time, true
	case GST:
		return m.Time, true
	}
	return nmea.Time{}, false
}

func clockOf(t nmea.Time) gnss.Clock {
	return gnss.Clock{
		Hour:        uint8(t.Hour),
		Minute:      uint8(t.Minute),
		Second:      uint8(t.Second),
		Millisecond: uint16(t.Millisecond),
	}
}

func (c *cycle) add(s nmea.Sentence) {
	switch m := s.(type) {
	case nmea.RMC:
		if m.Time.Valid {
			c.clock = gnss.Some(clockOf(m.Time))
		}
		if m.Date.Valid {
			c.date = gnss.Some(gnss.Date{
				Year:  uint16(2000 + m.Date.YY),
				Month: uint8(m.Date.MM - 1),
				Day:   uint8(m.Date.DD),
			})
		}
		valid := m.Validity == "A"
		c.rmcValid = gnss.Some(valid)
		if valid {
			if fieldPresent(m.BaseSentence, 2) && fieldPresent(m.BaseSentence, 4) {
				c.lat = gnss.Some(m.Latitude)
				c.lon = gnss.Some(m.Longitude)
			}
			if v, ok := fieldFloat(m.BaseSentence, 6).Get(); ok {
				c.hSpeed = gnss.Some(v * knotsToMPS)
			}
			if v, ok := fieldFloat(m.BaseSentence, 7).Get(); ok {
				c.heading = gnss.Some(v)
			}
		}

	case nmea.GGA:
		if m.Time.Valid {
			c.clock = gnss.Some(clockOf(m.Time))
		}
		c.ggaQuality = gnss.Some(m.FixQuality)
		if m.FixQuality != qualityInvalid {
			if fieldPresent(m.BaseSentence, 1) && fieldPresent(m.BaseSentence, 3) {
				c.lat = gnss.Some(m.Latitude)
				c.lon = gnss.Some(m.Longitude)
			}
			if v, ok := fieldFloat(m.BaseSentence, 8).Get(); ok {
				c.altMSL = gnss.Some(v)
			}
			if v, ok := fieldFloat(m.BaseSentence, 10).Get(); ok {
				c.geoid = gnss.Some(v)
			}
			if v, ok := fieldFloat(m.BaseSentence, 7).Get(); ok && !c.hdop.Valid() {
				c.hdop = gnss.Some(v)
			}
		}
		if n, ok := fieldInt(m.BaseSentence, 6).Get(); ok {
			c.ggaUsed = gnss.Some(uint16(n))
		}
		if age, err := strconv.ParseFloat(m.DGPSAge, 64); err == nil {
			c.dgpsAge = gnss.Some(age)
		}

	case nmea.GSA:
		talker := m.TalkerID()
		c.gsaTalkers[talker] = true
		switch m.FixType {
		case "1":
			c.gsaStatus = gnss.Some(gnss.FixNone)
		case "2":
			c.gsaStatus = gnss.Some(gnss.Fix2D)
		case "3":
			c.gsaStatus = gnss.Some(gnss.Fix3D)
		}
		for _, sv := range m.SV {
			prn, err := strconv.ParseInt(sv, 10, 64)
			if err != nil {
				continue
			}
			sys := systemForID(m.SystemID, talker, prn)
			c.used[keyFor(talker, sys, prn)] = true
			c.usedSys |= sys
		}
		if m.FixType == "2" || m.FixType == "3" {
			if v, ok := fieldFloat(m.BaseSentence, 14).Get(); ok {
				c.pdop = gnss.Some(v)
			}
			// GSA wins over the GGA value
			if v, ok := fieldFloat(m.BaseSentence, 15).Get(); ok {
				c.hdop = gnss.Some(v)
			}
			if v, ok := fieldFloat(m.BaseSentence, 16).Get(); ok {
				c.vdop = gnss.Some(v)
			}
		}

	case nmea.GSV:
		talker := m.TalkerID()
		c.visible[talker] = m.NumberSVsInView
		for i, info := range m.Info {
			base := 3 + i*4
			// the trailing GSV field of NMEA 4.10 is a signal ID, the talker names the system
			sys := systemFor(talker, info.SVPRNNumber)
			key := keyFor(talker, sys, info.SVPRNNumber)
			if _, seen := c.sats[key]; !seen {
				c.order = append(c.order, key)
			}
			c.sats[key] = satState{
				talker:    talker,
				elevation: fieldInt(m.BaseSentence, base+1),
				azimuth:   fieldInt(m.BaseSentence, base+2),
				snr:       info.SNR, // empty when not tracking, reported as CNo 0
			}
		}

	case nmea.VTG:
		if v, ok := fieldFloat(m.BaseSentence, 0).Get(); ok {
			c.heading = gnss.Some(v)
		}
		if v, ok := fieldFloat(m.BaseSentence, 6).Get(); ok {
			c.hSpeed = gnss.Some(v * kphToMPS)
		}

	case nmea.ZDA:
		if m.Time.Valid {
			c.clock = gnss.Some(clockOf(m.Time))
		}
		if m.Year > 0 && m.Month >= 1 && m.Month <= 12 && m.Day >= 1 {
			c.date = gnss.Some(gnss.Date{Year: uint16(m.Year), Month: uint8(m.Month - 1), Day: uint8(m.Day)})
		}

	case GST:
		if m.StdDevLat.Valid && m.StdDevLong.Valid {
			c.sigmaH = gnss.Some(math.Hypot(m.StdDevLat.Value, m.StdDevLong.Value))
		}
		c.sigmaAlt = optFloat(m.StdDevAlt)
	}
}

// status derives the fix level: GSA when present, else GGA quality, else
// RMC validity.
func (c *cycle) status() gnss.Optional[gnss.FixStatus] {
	if c.gsaStatus.Valid() {
		st, _ := c.gsaStatus.Get()
		if st == gnss.FixNone && c.clock.Valid() {
			return gnss.Some(gnss.FixTime)
		}
		return c.gsaStatus
	}
	if q, ok := c.ggaQuality.Get(); ok && q != qualityInvalid {
		if c.altMSL.Valid() {
			return gnss.Some(gnss.Fix3D)
		}
		return gnss.Some(gnss.Fix2D)
	}
	if valid, ok := c.rmcValid.Get(); ok && valid {
		return gnss.Some(gnss.Fix2D)
	}
	if c.ggaQuality.Valid() || c.rmcValid.Valid() {
		if c.clock.Valid() {
			return gnss.Some(gnss.FixTime)
		}
		return gnss.Some(gnss.FixNone)
	}
	return gnss.None[gnss.FixStatus]()
}

func (c *cycle) fixType() gnss.Optional[gnss.FixType] {
	q, ok := c.ggaQuality.Get()
	if !ok {
		return gnss.None[gnss.FixType]()
	}
	var ft gnss.FixType
	switch q {
	case qualityDGPS:
		if c.usedSys.Augmentation() != 0 {
			ft |= gnss.FixTypeSBAS
		} else {
			ft |= gnss.FixTypeDGNSS
		}
	case qualityRTKFixed:
		ft |= gnss.FixTypeRTKFixed
	case qualityRTKFloat:
		ft |= gnss.FixTypeRTKFloat
	case qualityEstimated:
		ft |= gnss.FixTypeEstimated
	case qualityManual:
		ft |= gnss.FixTypeManual
	case qualitySimulated:
		ft |= gnss.FixTypeSimulatorMode
	}
	if c.usedSys.Primary().Count() > 1 {
		ft |= gnss.FixTypeMultiConstellation
	}
	return gnss.Some(ft)
}

func (c *cycle) build(activated gnss.System) Epoch {
	ts := c.timestamp

	tm := gnss.NewTime(ts)
	if clk, ok := c.clock.Get(); ok {
		tm = tm.WithClock(clk).WithScale(gnss.TimeScaleUTC)
	}
	if d, ok := c.date.Get(); ok {
		tm = tm.WithDate(d)
	}

	pos := gnss.NewPosition(ts)
	status := c.status()
	st, haveStatus := status.Get()
	if haveStatus {
		pos = pos.WithFixStatus(st)
	}
	// Fields are only published when the fix level supports them.
	horizontal := !haveStatus || st.HasHorizontal()
	vertical := !haveStatus || st.HasAltitude()

	if horizontal {
		if v, ok := c.lat.Get(); ok {
			pos = pos.WithLatitude(v)
		}
		if v, ok := c.lon.Get(); ok {
			pos = pos.WithLongitude(v)
		}
		if v, ok := c.hSpeed.Get(); ok {
			pos = pos.WithHSpeed(float32(v))
		}
		if v, ok := c.heading.Get(); ok {
			pos = pos.WithHeading(wrapHeading(v))
		}
	}
	if vertical {
		if msl, ok := c.altMSL.Get(); ok {
			pos = pos.WithAltitudeMSL(float32(msl))
			if sep, ok := c.geoid.Get(); ok {
				pos = pos.WithAltitudeEll(float32(msl + sep))
			}
		}
	}

	if v, ok := c.pdop.Get(); ok {
		pos = pos.WithPDOP(float32(v))
	}
	if v, ok := c.hdop.Get(); ok {
		pos = pos.WithHDOP(float32(v))
	}
	if v, ok := c.vdop.Get(); ok {
		pos = pos.WithVDOP(float32(v))
	}
	if v, ok := c.sigmaH.Get(); ok {
		pos = pos.WithSigmaHPosition(float32(v))
	}
	if v, ok := c.sigmaAlt.Get(); ok {
		pos = pos.WithSigmaAltitude(float32(v))
	}

	if len(c.gsaTalkers) > 0 {
		pos = pos.WithUsedSatellites(uint16(len(c.used))).WithUsedSystems(c.usedSys)
	} else if n, ok := c.ggaUsed.Get(); ok {
		pos = pos.WithUsedSatellites(n)
	}
	if activated != 0 {
		pos = pos.WithActivatedSystems(activated)
	}

	ft := c.fixType()
	if f, ok := ft.Get(); ok {
		pos = pos.WithFixType(f)
		if age, ok := c.dgpsAge.Get(); ok && f.Corrected() {
			pos = pos.WithCorrectionAge(uint16(math.Round(age)))
		}
	}

	var sats []gnss.SatelliteDetail
	if len(c.visible) > 0 {
		var visible int64
		for _, n := range c.visible {
			visible += n
		}
		var tracked uint16
		for _, key := range c.order {
			s := c.sats[key]
			if s.snr > 0 {
				tracked++
			}
			sats = append(sats, c.satellite(ts, key, s))
		}
		pos = pos.WithVisibleSatellites(uint16(visible)).WithTrackedSatellites(tracked)
	}

	return Epoch{Time: tm, Position: pos, Satellites: sats}
}

func (c *cycle) satellite(ts uint64, key satKey, s satState) gnss.SatelliteDetail {
	d := gnss.NewSatelliteDetail(ts).
		WithID(uint16(key.prn)).
		WithCNo(uint16(s.snr))
	if v, ok := s.elevation.Get(); ok {
		d = d.WithElevation(uint16(v))
	}
	if v, ok := s.azimuth.Get(); ok {
		d = d.WithAzimuth(uint16(v))
	}
	if key.system != 0 {
		d = d.WithSystem(key.system)
	}
	if c.gsaTalkers[s.talker] || c.gsaTalkers["GN"] {
		d = d.WithUsed(c.used[key])
	}
	return d
}

// wrapHeading folds v into [0, 360) after narrowing to float32.
func wrapHeading(v float64) float32 {
	h := float32(math.Mod(v, 360))
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h = 0
	}
	return h
}
