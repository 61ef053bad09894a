// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import "github.com/relabs-tech/gnss_reports/internal/gnss"

// sbasByID maps NMEA SBAS satellite IDs (PRN - 87) to their system.
var sbasByID = map[int64]gnss.System{
	// WAAS: PRN 131, 133, 135, 138
	44: gnss.SystemSBASWAAS, 46: gnss.SystemSBASWAAS, 48: gnss.SystemSBASWAAS, 51: gnss.SystemSBASWAAS,
	// EGNOS: PRN 120, 123, 124, 126, 136
	33: gnss.SystemSBASEGNOS, 36: gnss.SystemSBASEGNOS, 37: gnss.SystemSBASEGNOS, 39: gnss.SystemSBASEGNOS, 49: gnss.SystemSBASEGNOS,
	// MSAS: PRN 129, 137
	42: gnss.SystemSBASMSAS, 50: gnss.SystemSBASMSAS,
	// GAGAN: PRN 127, 128, 132
	40: gnss.SystemSBASGAGAN, 41: gnss.SystemSBASGAGAN, 45: gnss.SystemSBASGAGAN,
	// SDCM: PRN 125, 140, 141
	38: gnss.SystemSBASSDCM, 53: gnss.SystemSBASSDCM, 54: gnss.SystemSBASSDCM,
}

// systemFor identifies the system of a satellite from the NMEA talker and
// satellite ID. It returns 0 when the system cannot be told, e.g. an SBAS
// ID without a known operator.
func systemFor(talker string, id int64) gnss.System {
	switch talker {
	case "GL":
		return gnss.SystemGLONASS
	case "GA":
		return gnss.SystemGalileo
	case "GB", "BD":
		return gnss.SystemBeiDou
	case "GP", "GN":
		switch {
		case id >= 1 && id <= 32:
			return gnss.SystemGPS
		case id >= 33 && id <= 64:
			return sbasByID[id]
		case id >= 65 && id <= 96:
			return gnss.SystemGLONASS
		}
	}
	return 0
}

// systemForID is systemFor honouring the system ID that NMEA 4.10 appends
// to GSA. GPS and SBAS share ID 1, so the satellite ID still decides
// between them.
func systemForID(nmeaID int64, talker string, id int64) gnss.System {
	switch nmeaID {
	case 1:
		return systemFor("GP", id)
	case 2:
		return gnss.SystemGLONASS
	case 3:
		return gnss.SystemGalileo
	case 4:
		return gnss.SystemBeiDou
	}
	return systemFor(talker, id)
}
