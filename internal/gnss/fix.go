// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gnss

import (
	"fmt"
	"strings"
)

// FixStatus is the overall fix level. Levels are ordered and each one
// carries the guarantees of the levels below it.
type FixStatus uint32

const (
	FixNone FixStatus = iota // position, velocity and time undetermined
	FixTime                  // time only
	Fix2D                    // horizontal position, velocity and time
	Fix3D                    // 2D plus altitude
)

func (s FixStatus) String() string {
	switch s {
	case FixNone:
		return "NO"
	case FixTime:
		return "TIME"
	case Fix2D:
		return "2D"
	case Fix3D:
		return "3D"
	default:
		return fmt.Sprintf("FixStatus(%d)", uint32(s))
	}
}

// AtLeast reports whether s provides the guarantees of level o.
func (s FixStatus) AtLeast(o FixStatus) bool { return s >= o }

func (s FixStatus) HasTime() bool { return s.AtLeast(FixTime) }
func (s FixStatus) HasHorizontal() bool { return s.AtLeast(Fix2D) }
func (s FixStatus) HasAltitude() bool { return s.AtLeast(Fix3D) }

// FixType is an or'ed set of flags naming the sources used for a fix. The
// flags fall into groups with room for future values. Flags of different
// groups combine freely; within a group not every combination makes sense
// and none is rejected.
type FixType uint32

const (
	// satellite signals
	FixTypeSingleFrequency    FixType = 0x00000001
	FixTypeMultiFrequency     FixType = 0x00000002
	FixTypeMultiConstellation FixType = 0x00000004

	// improvement techniques on the satellite signals
	FixTypePPP              FixType = 0x00000010 // precise point positioning
	FixTypeIntegrityChecked FixType = 0x00000020

	// correction data
	FixTypeSBAS     FixType = 0x00001000
	FixTypeDGNSS    FixType = 0x00002000
	FixTypeRTKFixed FixType = 0x00004000
	FixTypeRTKFloat FixType = 0x00008000
	FixTypeSSR      FixType = 0x00010000 // state space representation

	// position propagation
	FixTypeEstimated     FixType = 0x00100000 // without sensor input
	FixTypeDeadReckoning FixType = 0x00200000 // with inertial or vehicle sensors

	// artificial fixes
	FixTypeManual        FixType = 0x10000000
	FixTypeSimulatorMode FixType = 0x20000000
)

// Group masks of FixType.
const (
	FixTypeGroupSignal      FixType = 0x0000000F
	FixTypeGroupTechnique   FixType = 0x00000FF0
	FixTypeGroupCorrection  FixType = 0x000FF000
	FixTypeGroupPropagation FixType = 0x0FF00000
	FixTypeGroupArtificial  FixType = 0xF0000000
)

var fixTypeNames = []struct {
	flag FixType
	name string
}{
	{FixTypeSingleFrequency, "SINGLE_FREQUENCY"},
	{FixTypeMultiFrequency, "MULTI_FREQUENCY"},
	{FixTypeMultiConstellation, "MULTI_CONSTELLATION"},
	{FixTypePPP, "PPP"},
	{FixTypeIntegrityChecked, "INTEGRITY_CHECKED"},
	{FixTypeSBAS, "SBAS"},
	{FixTypeDGNSS, "DGNSS"},
	{FixTypeRTKFixed, "RTK_FIXED"},
	{FixTypeRTKFloat, "RTK_FLOAT"},
	{FixTypeSSR, "SSR"},
	{FixTypeEstimated, "ESTIMATED"},
	{FixTypeDeadReckoning, "DEAD_RECKONING"},
	{FixTypeManual, "MANUAL"},
	{FixTypeSimulatorMode, "SIMULATOR_MODE"},
}

// Has reports whether all flags of o are set in f.
func (f FixType) Has(o FixType) bool { return f&o == o }

// In returns the flags of f that belong to group.
func (f FixType) In(group FixType) FixType { return f & group }

// Corrected reports whether any correction data flag is set.
func (f FixType) Corrected() bool { return f.In(FixTypeGroupCorrection) != 0 }

func (f FixType) String() string {
	if f == 0 {
		return "none"
	}
	var names []string
	rest := f
	for _, n := range fixTypeNames {
		if f&n.flag != 0 {
			names = append(names, n.name)
			rest &^= n.flag
		}
	}
	if rest != 0 {
		names = append(names, fmt.Sprintf("0x%08x", uint32(rest)))
	}
	return strings.Join(names, "|")
}
