// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gnss

import (
	"fmt"
	"math/bits"
	"strings"
)

// System identifies a satellite system and signal. Values are single bits
// so they can be or'ed into sets, e.g. the activated and used systems of a
// Position.
type System uint32

const (
	SystemGPS       System = 0x00000001 // L1
	SystemGLONASS   System = 0x00000002 // L1
	SystemGalileo   System = 0x00000004 // E1
	SystemBeiDou    System = 0x00000008 // B1
	SystemGPSL2     System = 0x00000010
	SystemGPSL5     System = 0x00000020
	SystemGLONASSL2 System = 0x00000040
	SystemBeiDouB2  System = 0x00000080

	// Values from 0x00010000 up identify augmentation (SBAS) systems. The
	// bits in between are reserved for further primary constellations.
	SystemSBASWAAS     System = 0x00010000 // North America
	SystemSBASEGNOS    System = 0x00020000 // Europe
	SystemSBASMSAS     System = 0x00040000 // Japan
	SystemSBASQZSSSAIF System = 0x00080000 // Japan
	SystemSBASSDCM     System = 0x00100000 // Russia
	SystemSBASGAGAN    System = 0x00200000 // India
)

const (
	PrimarySystems      System = 0x0000FFFF
	AugmentationSystems System = 0xFFFF0000
)

var systemNames = []struct {
	sys  System
	name string
}{
	{SystemGPS, "GPS"},
	{SystemGLONASS, "GLONASS"},
	{SystemGalileo, "GALILEO"},
	{SystemBeiDou, "BEIDOU"},
	{SystemGPSL2, "GPS_L2"},
	{SystemGPSL5, "GPS_L5"},
	{SystemGLONASSL2, "GLONASS_L2"},
	{SystemBeiDouB2, "BEIDOU_B2"},
	{SystemSBASWAAS, "SBAS_WAAS"},
	{SystemSBASEGNOS, "SBAS_EGNOS"},
	{SystemSBASMSAS, "SBAS_MSAS"},
	{SystemSBASQZSSSAIF, "SBAS_QZSS_SAIF"},
	{SystemSBASSDCM, "SBAS_SDCM"},
	{SystemSBASGAGAN, "SBAS_GAGAN"},
}

// Has reports whether all bits of o are set in s.
func (s System) Has(o System) bool { return s&o == o }

// SubsetOf reports whether every bit of s is also set in o.
func (s System) SubsetOf(o System) bool { return s&^o == 0 }

// IsAugmentation reports whether s contains only SBAS bits.
func (s System) IsAugmentation() bool { return s != 0 && s&PrimarySystems == 0 }

// Primary returns the primary constellation bits of s.
func (s System) Primary() System { return s & PrimarySystems }

// Augmentation returns the SBAS bits of s.
func (s System) Augmentation() System { return s & AugmentationSystems }

// Count returns the number of systems in the set.
func (s System) Count() int { return bits.OnesCount32(uint32(s)) }

func (s System) String() string {
	if s == 0 {
		return "none"
	}
	var names []string
	rest := s
	for _, n := range systemNames {
		if s&n.sys != 0 {
			names = append(names, n.name)
			rest &^= n.sys
		}
	}
	if rest != 0 {
		names = append(names, fmt.Sprintf("0x%08x", uint32(rest)))
	}
	return strings.Join(names, "|")
}

// ParseSystem looks up a single system by its name, e.g. "GALILEO" or
// "SBAS_EGNOS". Matching is case-insensitive.
func ParseSystem(name string) (System, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	for _, n := range systemNames {
		if n.name == name {
			return n.sys, nil
		}
	}
	return 0, fmt.Errorf("unknown GNSS system %q", name)
}

// ParseSystems parses a comma separated list of system names into a set.
// An empty string yields the empty set.
func ParseSystems(list string) (System, error) {
	var set System
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		sys, err := ParseSystem(part)
		if err != nil {
			return 0, err
		}
		set |= sys
	}
	return set, nil
}
