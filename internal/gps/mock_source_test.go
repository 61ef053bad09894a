package gps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gnss_reports/internal/gnss"
)

func TestMockSourceEpochsAreConsistent(t *testing.T) {
	activated := gnss.SystemGPS | gnss.SystemGalileo | gnss.SystemSBASEGNOS
	src := NewMockSource(activated).(*mockSource)

	start := time.Date(2024, time.December, 31, 23, 59, 0, 0, time.UTC)
	src.start = start

	// one full lap in 1.5 s steps
	for step := 0; step < 40; step++ {
		now := start.Add(time.Duration(step) * 1500 * time.Millisecond)
		src.now = func() time.Time { return now }

		e, err := src.Next()
		require.NoError(t, err)
		require.NoError(t, e.Check(), "step %d", step)

		assert.Equal(t, uint64(now.UnixMilli()), e.Time.Timestamp())
		assert.Equal(t, gnss.TimeValid|gnss.DateValid|gnss.ScaleValid, e.Time.ValidityBits())

		p := e.Position
		assert.Equal(t, gnss.Some(gnss.Fix3D), p.FixStatus())
		assert.Equal(t, gnss.Some(activated), p.ActivatedSystems())
		assert.Equal(t, gnss.Some(gnss.SystemGPS|gnss.SystemGalileo), p.UsedSystems())
		assert.Equal(t, gnss.Some(gnss.FixTypeSingleFrequency|gnss.FixTypeMultiConstellation), p.FixType())
		assert.False(t, p.CorrectionAge().Valid())

		assert.Equal(t, gnss.Some(uint16(8)), p.UsedSatellites())
		assert.Equal(t, gnss.Some(uint16(10)), p.TrackedSatellites())
		assert.Equal(t, gnss.Some(uint16(12)), p.VisibleSatellites())
		assert.Len(t, e.Satellites, 12)

		lat, lon, ok := p.LatLon()
		require.True(t, ok)
		assert.InDelta(t, mockLat, lat, 0.001)
		assert.InDelta(t, mockLon, lon, 0.001)
	}
}

func TestMockSourceDefaultsToGPS(t *testing.T) {
	e, err := NewMockSource(0).Next()
	require.NoError(t, err)
	require.NoError(t, e.Check())

	assert.Equal(t, gnss.Some(gnss.SystemGPS), e.Position.UsedSystems())
	assert.Equal(t, gnss.Some(gnss.FixTypeSingleFrequency), e.Position.FixType())
	for _, s := range e.Satellites {
		assert.Equal(t, gnss.Some(gnss.SystemGPS), s.System())
	}
}
