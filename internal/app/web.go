package app

import (
	"context"
	"encoding"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/gnss_reports/internal/config"
	"github.com/relabs-tech/gnss_reports/internal/gnss"
	"github.com/relabs-tech/gnss_reports/internal/redis"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

const (
	wsSendBuffer   = 16
	wsWriteTimeout = 5 * time.Second
)

// latestStore is where the web server looks when it has not received a
// report over MQTT yet.
type latestStore interface {
	LatestTime(ctx context.Context) (gnss.Time, bool, error)
	LatestPosition(ctx context.Context) (gnss.Position, bool, error)
	LatestSatellites(ctx context.Context) ([]gnss.SatelliteDetail, bool, error)
}

// WSMessage is pushed to websocket clients for every received report.
type WSMessage struct {
	Type string          `json:"type"` // time, position, satellites
	Data json.RawMessage `json:"data"`
}

// WebServer keeps the latest reports and serves them over HTTP and
// websocket.
type WebServer struct {
	mu         sync.RWMutex
	time       gnss.Optional[gnss.Time]
	position   gnss.Optional[gnss.Position]
	satellites gnss.Optional[[]gnss.SatelliteDetail]

	store latestStore // optional

	clientsMu sync.Mutex
	clients   map[chan WSMessage]struct{}
}

// NewWebServer returns a server with no reports. store may be nil.
func NewWebServer(store latestStore) *WebServer {
	return &WebServer{
		store:   store,
		clients: make(map[chan WSMessage]struct{}),
	}
}

// RunWeb subscribes to the GNSS topics and serves the latest reports.
func RunWeb() error {
	cfg := config.Get()

	var store latestStore
	if cfg.RedisAddr != "" {
		rc, err := redis.New(cfg.RedisAddr, time.Duration(cfg.RedisTTLSeconds)*time.Second)
		if err != nil {
			// MQTT alone is enough to serve data
			log.Printf("web: redis unavailable, no fallback: %v", err)
		} else {
			defer rc.Close()
			store = rc
		}
	}

	srv := NewWebServer(store)

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb, "web")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	topics := topicsFrom(cfg)
	handlers := map[string]func([]byte) error{
		topics.Time:       srv.HandleTimePayload,
		topics.Position:   srv.HandlePositionPayload,
		topics.Satellites: srv.HandleSatellitesPayload,
	}
	for topic, handle := range handlers {
		handle := handle
		err := subscribe(client, topic, "web", func(payload []byte) {
			if err := handle(payload); err != nil {
				log.Printf("web: %v", err)
			}
		})
		if err != nil {
			return err
		}
	}

	mux := srv.Handler()
	// Static files from ./web as the root
	mux.Handle("/", http.FileServer(http.Dir("web")))

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web: listening on %s", addr)
	return http.ListenAndServe(addr, mux)
}

// Handler returns the API and websocket routes.
func (s *WebServer) Handler() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/gnss/time", s.handleTime)
	mux.HandleFunc("/api/gnss/position", s.handlePosition)
	mux.HandleFunc("/api/gnss/satellites", s.handleSatellites)
	mux.HandleFunc("/ws/gnss", s.handleWS)
	return mux
}

// HandleTimePayload decodes a time report received over MQTT.
func (s *WebServer) HandleTimePayload(payload []byte) error {
	var t gnss.Time
	if err := json.Unmarshal(payload, &t); err != nil {
		return fmt.Errorf("time unmarshal: %w", err)
	}
	s.mu.Lock()
	s.time = gnss.Some(t)
	s.mu.Unlock()
	return s.broadcast("time", t)
}

// HandlePositionPayload decodes a position report received over MQTT.
func (s *WebServer) HandlePositionPayload(payload []byte) error {
	var p gnss.Position
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("position unmarshal: %w", err)
	}
	s.mu.Lock()
	s.position = gnss.Some(p)
	s.mu.Unlock()
	return s.broadcast("position", p)
}

// HandleSatellitesPayload decodes a satellite list received over MQTT.
func (s *WebServer) HandleSatellitesPayload(payload []byte) error {
	var sats []gnss.SatelliteDetail
	if err := json.Unmarshal(payload, &sats); err != nil {
		return fmt.Errorf("satellites unmarshal: %w", err)
	}
	s.mu.Lock()
	s.satellites = gnss.Some(sats)
	s.mu.Unlock()
	return s.broadcast("satellites", sats)
}

func (s *WebServer) latestTime(ctx context.Context) (gnss.Time, bool, error) {
	s.mu.RLock()
	t, ok := s.time.Get()
	s.mu.RUnlock()
	if ok || s.store == nil {
		return t, ok, nil
	}
	return s.store.LatestTime(ctx)
}

func (s *WebServer) latestPosition(ctx context.Context) (gnss.Position, bool, error) {
	s.mu.RLock()
	p, ok := s.position.Get()
	s.mu.RUnlock()
	if ok || s.store == nil {
		return p, ok, nil
	}
	return s.store.LatestPosition(ctx)
}

func (s *WebServer) latestSatellites(ctx context.Context) ([]gnss.SatelliteDetail, bool, error) {
	s.mu.RLock()
	sats, ok := s.satellites.Get()
	s.mu.RUnlock()
	if ok || s.store == nil {
		return sats, ok, nil
	}
	return s.store.LatestSatellites(ctx)
}

func (s *WebServer) handleTime(w http.ResponseWriter, r *http.Request) {
	t, ok, err := s.latestTime(r.Context())
	writeReport(w, r, t, ok, err)
}

func (s *WebServer) handlePosition(w http.ResponseWriter, r *http.Request) {
	p, ok, err := s.latestPosition(r.Context())
	writeReport(w, r, p, ok, err)
}

func (s *WebServer) handleSatellites(w http.ResponseWriter, r *http.Request) {
	sats, ok, err := s.latestSatellites(r.Context())
	if err != nil || !ok {
		writeReport[any](w, r, nil, ok, err)
		return
	}
	if r.URL.Query().Get("format") == "binary" {
		// one fixed-size record per satellite
		w.Header().Set("Content-Type", "application/octet-stream")
		for _, sat := range sats {
			data, err := sat.MarshalBinary()
			if err != nil {
				log.Printf("web: satellite binary encode error: %v", err)
				return
			}
			w.Write(data)
		}
		return
	}
	writeJSON(w, sats)
}

// writeReport answers with the report as JSON, or as its packed binary
// layout when ?format=binary is given.
func writeReport[T any](w http.ResponseWriter, r *http.Request, v T, ok bool, err error) {
	if err != nil {
		log.Printf("web: store error: %v", err)
		http.Error(w, "store unavailable", http.StatusBadGateway)
		return
	}
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	if r.URL.Query().Get("format") == "binary" {
		m, isBinary := any(v).(encoding.BinaryMarshaler)
		if !isBinary {
			http.Error(w, "binary format not supported", http.StatusBadRequest)
			return
		}
		data, err := m.MarshalBinary()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write(data)
		return
	}

	writeJSON(w, v)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// broadcast pushes the decoded report, re-encoded so websocket clients get
// the same form as the API endpoints.
func (s *WebServer) broadcast(kind string, report any) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("%s marshal: %w", kind, err)
	}
	msg := WSMessage{Type: kind, Data: data}

	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	for ch := range s.clients {
		select {
		case ch <- msg:
		default:
			// slow client, drop this update
		}
	}
	return nil
}

func (s *WebServer) register() chan WSMessage {
	ch := make(chan WSMessage, wsSendBuffer)
	s.clientsMu.Lock()
	s.clients[ch] = struct{}{}
	s.clientsMu.Unlock()
	return ch
}

func (s *WebServer) unregister(ch chan WSMessage) {
	s.clientsMu.Lock()
	delete(s.clients, ch)
	s.clientsMu.Unlock()
}

// snapshot returns the reports known so far, in time, position,
// satellites order.
func (s *WebServer) snapshot(ctx context.Context) []WSMessage {
	var msgs []WSMessage
	add := func(kind string, v any, ok bool, err error) {
		if err != nil || !ok {
			return
		}
		data, err := json.Marshal(v)
		if err != nil {
			return
		}
		msgs = append(msgs, WSMessage{Type: kind, Data: data})
	}

	t, ok, err := s.latestTime(ctx)
	add("time", t, ok, err)
	p, ok, err := s.latestPosition(ctx)
	add("position", p, ok, err)
	sats, ok, err := s.latestSatellites(ctx)
	add("satellites", sats, ok, err)
	return msgs
}

// handleWS sends the current snapshot, then every new report.
func (s *WebServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	// register before the snapshot so no update falls in between
	ch := s.register()
	defer s.unregister(ch)

	for _, msg := range s.snapshot(r.Context()) {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}

	// The reader only watches for the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("web: websocket error: %v", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case msg := <-ch:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
