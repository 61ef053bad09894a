package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gnss_reports/internal/gnss"
	"github.com/relabs-tech/gnss_reports/internal/gps"
)

// fakeRedis is an in-memory RedisClientInterface.
type fakeRedis struct {
	data   map[string]string
	ttls   map[string]time.Duration
	setErr error
	getErr error
	closed bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	default:
		f.data[key] = fmt.Sprint(v)
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Close() error {
	f.closed = true
	return nil
}

func testEpoch() gps.Epoch {
	return gps.Epoch{
		Time: gnss.NewTime(1700000000000).
			WithClock(gnss.Clock{Hour: 22, Minute: 13, Second: 20}).
			WithDate(gnss.Date{Year: 2023, Month: 10, Day: 14}).
			WithScale(gnss.TimeScaleUTC),
		Position: gnss.NewPosition(1700000000000).
			WithLatitude(-33.8688).
			WithLongitude(151.2093).
			WithAltitudeMSL(58).
			WithFixStatus(gnss.Fix3D).
			WithUsedSystems(gnss.SystemGPS | gnss.SystemSBASMSAS),
		Satellites: []gnss.SatelliteDetail{
			gnss.NewSatelliteDetail(1700000000000).WithSystem(gnss.SystemGPS).WithID(3).WithCNo(40).WithUsed(true),
			gnss.NewSatelliteDetail(1700000000000).WithSystem(gnss.SystemSBASMSAS).WithID(42),
		},
	}
}

func TestStoreAndLoadEpoch(t *testing.T) {
	fake := newFakeRedis()
	c := NewWithClient(fake, 10*time.Second)
	ctx := context.Background()

	e := testEpoch()
	require.NoError(t, c.StoreEpoch(ctx, e))
	assert.Equal(t, 10*time.Second, fake.ttls[KeyPosition])

	tm, ok, err := c.LatestTime(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, e.Time, tm)

	pos, ok, err := c.LatestPosition(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, e.Position, pos)

	sats, ok, err := c.LatestSatellites(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, e.Satellites, sats)
}

func TestLatestMissing(t *testing.T) {
	c := NewWithClient(newFakeRedis(), 0)

	_, ok, err := c.LatestPosition(context.Background())
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	fake := newFakeRedis()
	c := NewWithClient(fake, 0)
	ctx := context.Background()

	require.NoError(t, c.StoreEpoch(ctx, testEpoch()))
	require.NoError(t, c.Clear(ctx))
	assert.Empty(t, fake.data)

	_, ok, err := c.LatestTime(ctx)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestErrors(t *testing.T) {
	boom := errors.New("connection reset")
	ctx := context.Background()

	fake := newFakeRedis()
	fake.setErr = boom
	assert.ErrorIs(t, NewWithClient(fake, 0).StoreEpoch(ctx, testEpoch()), boom)

	fake = newFakeRedis()
	fake.getErr = boom
	_, _, err := NewWithClient(fake, 0).LatestSatellites(ctx)
	assert.ErrorIs(t, err, boom)

	fake = newFakeRedis()
	fake.data[KeyTime] = "{not json"
	_, ok, err := NewWithClient(fake, 0).LatestTime(ctx)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestClose(t *testing.T) {
	fake := newFakeRedis()
	require.NoError(t, NewWithClient(fake, 0).Close())
	assert.True(t, fake.closed)
}
