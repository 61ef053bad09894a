package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/gnss_reports/internal/gnss"
)

type fakeStore struct {
	time     gnss.Optional[gnss.Time]
	position gnss.Optional[gnss.Position]
	err      error
}

func (f *fakeStore) LatestTime(context.Context) (gnss.Time, bool, error) {
	t, ok := f.time.Get()
	return t, ok, f.err
}

func (f *fakeStore) LatestPosition(context.Context) (gnss.Position, bool, error) {
	p, ok := f.position.Get()
	return p, ok, f.err
}

func (f *fakeStore) LatestSatellites(context.Context) ([]gnss.SatelliteDetail, bool, error) {
	return nil, false, f.err
}

func get(t *testing.T, h http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func TestWebNoDataYet(t *testing.T) {
	h := NewWebServer(nil).Handler()

	for _, url := range []string{"/api/gnss/time", "/api/gnss/position", "/api/gnss/satellites"} {
		assert.Equal(t, http.StatusServiceUnavailable, get(t, h, url).Code, url)
	}
}

func TestWebServesLatestFromMQTT(t *testing.T) {
	srv := NewWebServer(nil)
	h := srv.Handler()
	e := mockEpoch(t)

	posJSON, err := json.Marshal(e.Position)
	require.NoError(t, err)
	require.NoError(t, srv.HandlePositionPayload(posJSON))

	satJSON, err := json.Marshal(e.Satellites)
	require.NoError(t, err)
	require.NoError(t, srv.HandleSatellitesPayload(satJSON))

	rec := get(t, h, "/api/gnss/position")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var pos gnss.Position
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pos))
	assert.Equal(t, e.Position, pos)

	rec = get(t, h, "/api/gnss/position?format=binary")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rec.Body.Bytes(), gnss.PositionBinarySize)
	var fromBin gnss.Position
	require.NoError(t, fromBin.UnmarshalBinary(rec.Body.Bytes()))
	assert.Equal(t, e.Position, fromBin)

	rec = get(t, h, "/api/gnss/satellites?format=binary")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rec.Body.Bytes(), len(e.Satellites)*gnss.SatelliteDetailBinarySize)

	// time was never received
	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/api/gnss/time").Code)
}

func TestWebRejectsBadPayload(t *testing.T) {
	srv := NewWebServer(nil)
	assert.Error(t, srv.HandleTimePayload([]byte("{")))
	assert.Error(t, srv.HandlePositionPayload([]byte("[]")))
	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv.Handler(), "/api/gnss/time").Code)
}

func TestWebFallsBackToStore(t *testing.T) {
	tm := gnss.NewTime(5).WithScale(gnss.TimeScaleGPS)
	store := &fakeStore{time: gnss.Some(tm)}
	h := NewWebServer(store).Handler()

	rec := get(t, h, "/api/gnss/time")
	require.Equal(t, http.StatusOK, rec.Code)
	var got gnss.Time
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, tm, got)

	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/api/gnss/position").Code)

	store.err = errors.New("redis down")
	assert.Equal(t, http.StatusBadGateway, get(t, h, "/api/gnss/time").Code)
}

func TestWebMQTTWinsOverStore(t *testing.T) {
	store := &fakeStore{time: gnss.Some(gnss.NewTime(1))}
	srv := NewWebServer(store)

	fresh := gnss.NewTime(2).WithLeapSeconds(18)
	data, err := json.Marshal(fresh)
	require.NoError(t, err)
	require.NoError(t, srv.HandleTimePayload(data))

	var got gnss.Time
	require.NoError(t, json.Unmarshal(get(t, srv.Handler(), "/api/gnss/time").Body.Bytes(), &got))
	assert.Equal(t, fresh, got)
}

func TestWebSocketSnapshotAndUpdates(t *testing.T) {
	srv := NewWebServer(nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	e := mockEpoch(t)
	timeJSON, err := json.Marshal(e.Time)
	require.NoError(t, err)
	require.NoError(t, srv.HandleTimePayload(timeJSON))

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/gnss"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	if resp != nil && resp.Body != nil {
		io.Copy(io.Discard, resp.Body)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// snapshot
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "time", msg.Type)
	var tm gnss.Time
	require.NoError(t, json.Unmarshal(msg.Data, &tm))
	assert.Equal(t, e.Time, tm)

	// update pushed after the client registered
	posJSON, err := json.Marshal(e.Position)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		srv.clientsMu.Lock()
		defer srv.clientsMu.Unlock()
		return len(srv.clients) == 1
	}, time.Second, 10*time.Millisecond)
	require.NoError(t, srv.HandlePositionPayload(posJSON))

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "position", msg.Type)
	var pos gnss.Position
	require.NoError(t, json.Unmarshal(msg.Data, &pos))
	assert.Equal(t, e.Position, pos)

	// closing the client unregisters it
	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	assert.Eventually(t, func() bool {
		srv.clientsMu.Lock()
		defer srv.clientsMu.Unlock()
		return len(srv.clients) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebBroadcastMatchesAPI(t *testing.T) {
	srv := NewWebServer(nil)
	h := srv.Handler()
	ch := srv.register()
	defer srv.unregister(ch)

	// values behind unset validity bits must not reach any client
	payload := []byte(`{"timestamp":5,"latitude":99.5,"longitude":1.25,"heading":400,"validityBits":0}`)
	require.NoError(t, srv.HandlePositionPayload(payload))

	var msg WSMessage
	select {
	case msg = <-ch:
	default:
		t.Fatal("no websocket message queued")
	}
	assert.Equal(t, "position", msg.Type)

	var raw gnss.RawPosition
	require.NoError(t, json.Unmarshal(msg.Data, &raw))
	assert.Equal(t, uint64(5), raw.Timestamp)
	assert.Zero(t, raw.Latitude)
	assert.Zero(t, raw.Longitude)
	assert.Zero(t, raw.Heading)

	rec := get(t, h, "/api/gnss/position")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, rec.Body.String(), string(msg.Data))
}
