package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gnss_reports/internal/gnss"
	"github.com/relabs-tech/gnss_reports/internal/gps"
)

type fakeToken struct{ err error }

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Error() error                   { return t.err }
func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeMQTT struct {
	msgs []published
	err  error
}

func (f *fakeMQTT) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.msgs = append(f.msgs, published{topic: topic, retained: retained, payload: payload.([]byte)})
	return fakeToken{err: f.err}
}

type fakeBus struct {
	epochs []gps.Epoch
	err    error
}

func (f *fakeBus) PublishEpoch(e gps.Epoch) error {
	f.epochs = append(f.epochs, e)
	return f.err
}

type fakeCache struct {
	epochs []gps.Epoch
	err    error
}

func (f *fakeCache) StoreEpoch(_ context.Context, e gps.Epoch) error {
	f.epochs = append(f.epochs, e)
	return f.err
}

var testTopics = Topics{Time: "t/time", Position: "t/position", Satellites: "t/satellites"}

func mockEpoch(t *testing.T) gps.Epoch {
	t.Helper()
	e, err := gps.NewMockSource(gnss.SystemGPS | gnss.SystemGLONASS).Next()
	require.NoError(t, err)
	return e
}

func TestEpochPublisherPublishesRetainedReports(t *testing.T) {
	fm := &fakeMQTT{}
	bus := &fakeBus{}
	cache := &fakeCache{}
	p := &EpochPublisher{component: "test", mqtt: fm, topics: testTopics, bus: bus, cache: cache}

	e := mockEpoch(t)
	require.NoError(t, p.Publish(context.Background(), e))

	require.Len(t, fm.msgs, 3)
	assert.Equal(t, "t/time", fm.msgs[0].topic)
	assert.Equal(t, "t/position", fm.msgs[1].topic)
	assert.Equal(t, "t/satellites", fm.msgs[2].topic)
	for _, m := range fm.msgs {
		assert.True(t, m.retained, m.topic)
	}

	var pos gnss.Position
	require.NoError(t, json.Unmarshal(fm.msgs[1].payload, &pos))
	assert.Equal(t, e.Position, pos)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(fm.msgs[1].payload, &raw))
	assert.Contains(t, raw, "validityBits")
	assert.Contains(t, raw, "fixTypeBits")

	assert.Len(t, bus.epochs, 1)
	assert.Len(t, cache.epochs, 1)
}

func TestEpochPublisherKeepsGoingOnSinkErrors(t *testing.T) {
	fm := &fakeMQTT{err: errors.New("not connected")}
	cache := &fakeCache{}
	bus := &fakeBus{err: errors.New("nats down")}
	p := &EpochPublisher{component: "test", mqtt: fm, topics: testTopics, bus: bus, cache: cache}

	err := p.Publish(context.Background(), mockEpoch(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish t/time")
	assert.Contains(t, err.Error(), "nats down")

	// every sink was still tried
	assert.Len(t, fm.msgs, 3)
	assert.Len(t, bus.epochs, 1)
	assert.Len(t, cache.epochs, 1)
}

func TestEpochPublisherWithoutOptionalSinks(t *testing.T) {
	fm := &fakeMQTT{}
	p := &EpochPublisher{component: "test", mqtt: fm, topics: testTopics}

	assert.NoError(t, p.Publish(context.Background(), mockEpoch(t)))
	assert.Len(t, fm.msgs, 3)
}

func TestEpochPublisherCloseOrder(t *testing.T) {
	var order []string
	p := &EpochPublisher{closers: []func(){
		func() { order = append(order, "mqtt") },
		func() { order = append(order, "nats") },
	}}
	p.Close()
	p.Close()
	assert.Equal(t, []string{"nats", "mqtt"}, order)
}

func TestPrintEpoch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printEpoch(&buf, gps.NewMockSource(gnss.SystemGPS)))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "[TIME] "))
	assert.Contains(t, out, "[POS ] fix=3D")
	assert.Contains(t, out, "[SAT ] GPS")
}
