package gps

import (
	nmea "github.com/adrianmo/go-nmea"

	"github.com/relabs-tech/gnss_reports/internal/gnss"
)

// TypeGST is the NMEA type of pseudorange error statistics sentences.
const TypeGST = "GST"

// GST carries the receiver's error estimates for the current fix.
//
// Format: $--GST,hhmmss.ss,x.x,x.x,x.x,x.x,x.x,x.x,x.x*hh<CR><LF>
type GST struct {
	nmea.BaseSentence
	Time        nmea.Time
	RMS         nmea.Float64 // RMS of the pseudorange residuals [m]
	SemiMajor   nmea.Float64 // error ellipse semi-major axis [m]
	SemiMinor   nmea.Float64 // error ellipse semi-minor axis [m]
	Orientation nmea.Float64 // error ellipse orientation [deg from true north]
	StdDevLat   nmea.Float64 // [m]
	StdDevLong  nmea.Float64 // [m]
	StdDevAlt   nmea.Float64 // [m]
}

func init() {
	nmea.MustRegisterParser(TypeGST, newGST)
}

func newGST(s nmea.BaseSentence) (nmea.Sentence, error) {
	p := nmea.NewParser(s)
	p.AssertType(TypeGST)
	return GST{
		BaseSentence: s,
		Time:         p.Time(0, "time"),
		RMS:          p.NullFloat64(1, "rms"),
		SemiMajor:    p.NullFloat64(2, "semi-major"),
		SemiMinor:    p.NullFloat64(3, "semi-minor"),
		Orientation:  p.NullFloat64(4, "orientation"),
		StdDevLat:    p.NullFloat64(5, "latitude error"),
		StdDevLong:   p.NullFloat64(6, "longitude error"),
		StdDevAlt:    p.NullFloat64(7, "altitude error"),
	}, p.Err()
}

// Empty NMEA fields are parsed as zero by go-nmea's typed sentences. The
// helpers below re-read the raw field so an empty one stays absent.

func fieldFloat(s nmea.BaseSentence, i int) gnss.Optional[float64] {
	return optFloat(nmea.NewParser(s).NullFloat64(i, "field"))
}

func fieldInt(s nmea.BaseSentence, i int) gnss.Optional[int64] {
	v := nmea.NewParser(s).NullInt64(i, "field")
	if !v.Valid {
		return gnss.None[int64]()
	}
	return gnss.Some(v.Value)
}

func fieldPresent(s nmea.BaseSentence, i int) bool {
	return i < len(s.Fields) && s.Fields[i] != ""
}

func optFloat(v nmea.Float64) gnss.Optional[float64] {
	if !v.Valid {
		return gnss.None[float64]()
	}
	return gnss.Some(v.Value)
}
