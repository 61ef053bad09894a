// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gnss

import (
	"errors"
	"fmt"
	"time"
)

// TimeScale is the time scale a Time report is given in.
type TimeScale uint32

const (
	TimeScaleUTC TimeScale = 0 // preferred, includes leap seconds
	TimeScaleGPS TimeScale = 1 // only used when UTC is unavailable
)

func (s TimeScale) String() string {
	switch s {
	case TimeScaleUTC:
		return "UTC"
	case TimeScaleGPS:
		return "GPS"
	default:
		return fmt.Sprintf("TimeScale(%d)", uint32(s))
	}
}

// TimeValidity marks which field groups of a Time report hold a value.
// Date and time have separate bits since a receiver may know the time of
// day before it knows the date.
type TimeValidity uint32

const (
	TimeValid        TimeValidity = 0x00000001 // hour, minute, second, ms
	DateValid        TimeValidity = 0x00000002 // year, month, day
	ScaleValid       TimeValidity = 0x00000004
	LeapSecondsValid TimeValidity = 0x00000008
)

// Clock is the time-of-day group. Second is 60 during a leap second.
type Clock struct {
	Hour        uint8
	Minute      uint8
	Second      uint8
	Millisecond uint16
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d.%03d", c.Hour, c.Minute, c.Second, c.Millisecond)
}

// Date is the calendar group. Month counts from 0 (January) to 11 and Day
// from 1 to 31, the numbering of struct tm in the C library.
type Date struct {
	Year  uint16
	Month uint8
	Day   uint8
}

// CalendarMonth converts the 0-based month to a time.Month.
func (d Date) CalendarMonth() time.Month {
	return time.Month(d.Month) + 1
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month)+1, d.Day)
}

// Time is the date and time reported by the GNSS receiver. The zero value
// has no valid field.
type Time struct {
	timestamp   uint64
	clock       Optional[Clock]
	date        Optional[Date]
	scale       Optional[TimeScale]
	leapSeconds Optional[int8]
}

// NewTime starts a Time report acquired at timestamp [ms].
func NewTime(timestamp uint64) Time {
	return Time{timestamp: timestamp}
}

// WithClock returns a copy with the time-of-day group set.
func (t Time) WithClock(c Clock) Time {
	t.clock = Some(c)
	return t
}

// WithDate returns a copy with the date group set.
func (t Time) WithDate(d Date) Time {
	t.date = Some(d)
	return t
}

func (t Time) WithScale(s TimeScale) Time {
	t.scale = Some(s)
	return t
}

// WithLeapSeconds returns a copy with the GPS-UTC offset set.
func (t Time) WithLeapSeconds(n int8) Time {
	t.leapSeconds = Some(n)
	return t
}

// Timestamp is the acquisition time [ms] in the clock domain shared by all
// reports.
func (t Time) Timestamp() uint64 { return t.timestamp }

func (t Time) Clock() Optional[Clock] { return t.clock }
func (t Time) Date() Optional[Date] { return t.date }
func (t Time) Scale() Optional[TimeScale] { return t.scale }
func (t Time) LeapSeconds() Optional[int8] { return t.leapSeconds }

// ValidityBits derives the mask from the populated groups.
func (t Time) ValidityBits() TimeValidity {
	var v TimeValidity
	if t.clock.Valid() {
		v |= TimeValid
	}
	if t.date.Valid() {
		v |= DateValid
	}
	if t.scale.Valid() {
		v |= ScaleValid
	}
	if t.leapSeconds.Valid() {
		v |= LeapSecondsValid
	}
	return v
}

// UTC combines date and clock into a time.Time. A leap second is folded
// into the following minute by time.Date.
func (t Time) UTC() (time.Time, bool) {
	c, okC := t.clock.Get()
	d, okD := t.date.Get()
	if !okC || !okD {
		return time.Time{}, false
	}
	return time.Date(int(d.Year), d.CalendarMonth(), int(d.Day),
		int(c.Hour), int(c.Minute), int(c.Second), int(c.Millisecond)*int(time.Millisecond),
		time.UTC), true
}

// Check reports values outside their documented ranges. The result is
// advisory.
func (t Time) Check() error {
	var errs []error
	if c, ok := t.clock.Get(); ok {
		if c.Hour > 23 {
			errs = append(errs, fmt.Errorf("hour %d out of range 0-23", c.Hour))
		}
		if c.Minute > 59 {
			errs = append(errs, fmt.Errorf("minute %d out of range 0-59", c.Minute))
		}
		if c.Second > 60 {
			errs = append(errs, fmt.Errorf("second %d out of range 0-60", c.Second))
		}
		if c.Millisecond > 999 {
			errs = append(errs, fmt.Errorf("ms %d out of range 0-999", c.Millisecond))
		}
	}
	if d, ok := t.date.Get(); ok {
		if d.Month > 11 {
			errs = append(errs, fmt.Errorf("month %d out of range 0-11", d.Month))
		}
		if d.Day < 1 || d.Day > 31 {
			errs = append(errs, fmt.Errorf("day %d out of range 1-31", d.Day))
		}
	}
	if s, ok := t.scale.Get(); ok && s != TimeScaleUTC && s != TimeScaleGPS {
		errs = append(errs, fmt.Errorf("unknown time scale %d", uint32(s)))
	}
	return errors.Join(errs...)
}

// RawTime is the wire layout of a Time report.
type RawTime struct {
	Timestamp    uint64       `json:"timestamp"`
	Year         uint16       `json:"year"`
	Month        uint8        `json:"month"`
	Day          uint8        `json:"day"`
	Hour         uint8        `json:"hour"`
	Minute       uint8        `json:"minute"`
	Second       uint8        `json:"second"`
	Ms           uint16       `json:"ms"`
	Scale        TimeScale    `json:"scale"`
	LeapSeconds  int8         `json:"leapSeconds"`
	ValidityBits TimeValidity `json:"validityBits"`
}

// Raw returns the wire form. Fields of unset groups are zero.
func (t Time) Raw() RawTime {
	r := RawTime{Timestamp: t.timestamp, ValidityBits: t.ValidityBits()}
	if c, ok := t.clock.Get(); ok {
		r.Hour, r.Minute, r.Second, r.Ms = c.Hour, c.Minute, c.Second, c.Millisecond
	}
	if d, ok := t.date.Get(); ok {
		r.Year, r.Month, r.Day = d.Year, d.Month, d.Day
	}
	r.Scale = t.scale.Or(0)
	r.LeapSeconds = t.leapSeconds.Or(0)
	return r
}

// TimeFromRaw reads the groups whose validity bit is set and ignores the
// content of all others.
func TimeFromRaw(r RawTime) Time {
	v := r.ValidityBits
	return Time{
		timestamp:   r.Timestamp,
		clock:       optionalIf(v&TimeValid != 0, Clock{Hour: r.Hour, Minute: r.Minute, Second: r.Second, Millisecond: r.Ms}),
		date:        optionalIf(v&DateValid != 0, Date{Year: r.Year, Month: r.Month, Day: r.Day}),
		scale:       optionalIf(v&ScaleValid != 0, r.Scale),
		leapSeconds: optionalIf(v&LeapSecondsValid != 0, r.LeapSeconds),
	}
}
