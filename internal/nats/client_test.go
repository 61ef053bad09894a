package nats

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gnss_reports/internal/gnss"
	"github.com/relabs-tech/gnss_reports/internal/gps"
)

type fakeConn struct {
	published  map[string][]byte
	order      []string
	publishErr error
	flushErr   error
	flushed    bool
	closed     bool
}

func (f *fakeConn) Publish(subj string, data []byte) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	if f.published == nil {
		f.published = map[string][]byte{}
	}
	f.published[subj] = data
	f.order = append(f.order, subj)
	return nil
}

func (f *fakeConn) FlushTimeout(time.Duration) error {
	f.flushed = true
	return f.flushErr
}

func (f *fakeConn) Close() { f.closed = true }

func testEpoch() gps.Epoch {
	return gps.Epoch{
		Time: gnss.NewTime(10).WithScale(gnss.TimeScaleGPS),
		Position: gnss.NewPosition(10).
			WithLatitude(48.1).
			WithLongitude(11.5).
			WithFixStatus(gnss.Fix2D),
		Satellites: []gnss.SatelliteDetail{
			gnss.NewSatelliteDetail(10).WithSystem(gnss.SystemGPS).WithID(7),
		},
	}
}

func TestPublishEpoch(t *testing.T) {
	fc := &fakeConn{}
	c := &Client{conn: fc}

	e := testEpoch()
	require.NoError(t, c.PublishEpoch(e))

	assert.Equal(t, []string{SubjectTime, SubjectPosition, SubjectSatellites}, fc.order)
	assert.True(t, fc.flushed)

	var pos gnss.Position
	require.NoError(t, json.Unmarshal(fc.published[SubjectPosition], &pos))
	assert.Equal(t, e.Position, pos)

	var sats []gnss.SatelliteDetail
	require.NoError(t, json.Unmarshal(fc.published[SubjectSatellites], &sats))
	assert.Equal(t, e.Satellites, sats)
}

func TestPublishEpochErrors(t *testing.T) {
	boom := errors.New("boom")

	c := &Client{conn: &fakeConn{publishErr: boom}}
	assert.ErrorIs(t, c.PublishEpoch(testEpoch()), boom)

	c = &Client{conn: &fakeConn{flushErr: boom}}
	assert.ErrorIs(t, c.PublishEpoch(testEpoch()), boom)
}

func TestNewInvalidURL(t *testing.T) {
	client, err := New("invalid://url:12345")
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestClose(t *testing.T) {
	// nil connection must not panic
	(&Client{}).Close()

	fc := &fakeConn{}
	(&Client{conn: fc}).Close()
	assert.True(t, fc.closed)
}
