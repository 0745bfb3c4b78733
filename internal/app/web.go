package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/motionkit/internal/config"
	"github.com/relabs-tech/motionkit/internal/motion"
	"github.com/relabs-tech/motionkit/internal/telemetry"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local network use
	},
}

// wsBuffer is how many messages a slow websocket client may lag behind
// before messages are dropped for it.
const wsBuffer = 32

// motionStore keeps the latest message per kind and fans every update out
// to websocket listeners.
type motionStore struct {
	mu        sync.RWMutex
	latest    map[string]telemetry.Message
	listeners map[chan telemetry.Message]struct{}
}

func newMotionStore() *motionStore {
	return &motionStore{
		latest:    make(map[string]telemetry.Message),
		listeners: make(map[chan telemetry.Message]struct{}),
	}
}

func (s *motionStore) update(kind motion.Kind, m telemetry.Message) {
	if m.Kind == "" {
		m.Kind = kind.String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[kind.String()] = m
	for ch := range s.listeners {
		select {
		case ch <- m:
		default:
		}
	}
}

func (s *motionStore) snapshot() map[string]telemetry.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]telemetry.Message, len(s.latest))
	for k, v := range s.latest {
		out[k] = v
	}
	return out
}

func (s *motionStore) listen() (<-chan telemetry.Message, func()) {
	ch := make(chan telemetry.Message, wsBuffer)
	s.mu.Lock()
	s.listeners[ch] = struct{}{}
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		delete(s.listeners, ch)
		s.mu.Unlock()
	}
}

func (s *motionStore) handleAPI(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot()
	if len(snap) == 0 {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// handleWS sends the current snapshot, then every new message, until the
// client goes away.
func (s *motionStore) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := s.listen()
	defer cancel()

	// Reader goroutine only to notice the client closing.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("web: websocket error: %v", err)
				}
				return
			}
		}
	}()

	for _, m := range s.snapshot() {
		if err := conn.WriteJSON(m); err != nil {
			return
		}
	}

	for {
		select {
		case <-gone:
			return
		case m := <-updates:
			if err := conn.WriteJSON(m); err != nil {
				log.Printf("web: websocket write error: %v", err)
				return
			}
		}
	}
}

func (s *motionStore) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/motion", s.handleAPI)
	mux.HandleFunc("/ws", s.handleWS)
	mux.Handle("/", http.FileServer(http.Dir("web")))
	return mux
}

// RunWeb serves the latest samples from MQTT as JSON and as a websocket
// stream, plus the static files under ./web.
func RunWeb(cfg *config.Config) error {
	store := newMotionStore()

	client, err := telemetry.Connect(cfg.MQTTBroker, cfg.MQTTClientIDWeb)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	if err := telemetry.Subscribe(client, telemetry.TopicsFromConfig(cfg), store.update); err != nil {
		return err
	}

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web: server listening on %s", addr)
	return http.ListenAndServe(addr, store.routes())
}
