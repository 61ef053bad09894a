package app

import (
	"fmt"
	"strings"

	"github.com/relabs-tech/gnss_reports/internal/gnss"
)

// optf formats a present value with format and an absent one as "n/a".
func optf[T any](o gnss.Optional[T], format string) string {
	v, ok := o.Get()
	if !ok {
		return "n/a"
	}
	return fmt.Sprintf(format, v)
}

// FormatTime renders a time report on one console line.
func FormatTime(t gnss.Time) string {
	return fmt.Sprintf(
		"[TIME] date=%s time=%s scale=%s leap=%s",
		t.Date(), t.Clock(), t.Scale(), optf(t.LeapSeconds(), "%+ds"),
	)
}

// FormatPosition renders a position report on one console line.
func FormatPosition(p gnss.Position) string {
	return fmt.Sprintf(
		"[POS ] fix=%s type=%s lat=%s lon=%s alt=%s/%s hspeed=%s vspeed=%s heading=%s "+
			"dop=%s/%s/%s sigma=%s/%s sats=%s/%s/%s systems=%s of %s corr=%s",
		p.FixStatus(), p.FixType(),
		optf(p.Latitude(), "%.6f"), optf(p.Longitude(), "%.6f"),
		optf(p.AltitudeMSL(), "%.1fm"), optf(p.AltitudeEll(), "%.1fm"),
		optf(p.HSpeed(), "%.2fm/s"), optf(p.VSpeed(), "%.2fm/s"), optf(p.Heading(), "%.1f°"),
		optf(p.PDOP(), "%.1f"), optf(p.HDOP(), "%.1f"), optf(p.VDOP(), "%.1f"),
		optf(p.SigmaHPosition(), "%.1fm"), optf(p.SigmaAltitude(), "%.1fm"),
		p.UsedSatellites(), p.TrackedSatellites(), p.VisibleSatellites(),
		p.UsedSystems(), p.ActivatedSystems(),
		optf(p.CorrectionAge(), "%ds"),
	)
}

// FormatSatellites renders one console line per satellite.
func FormatSatellites(sats []gnss.SatelliteDetail) string {
	if len(sats) == 0 {
		return "[SAT ] none in view"
	}
	var b strings.Builder
	for i, s := range sats {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b,
			"[SAT ] %-12s id=%3s az=%3s el=%2s cno=%2s used=%s eph=%s res=%s",
			s.System(), s.ID(), s.Azimuth(), s.Elevation(), s.CNo(),
			s.Used(), s.EphemerisAvailable(), optf(s.Residual(), "%dm"),
		)
	}
	return b.String()
}
