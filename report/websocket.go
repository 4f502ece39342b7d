package report

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/safing/portbase/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebsocketSink broadcasts every report as JSON to connected clients.
// It is safe for concurrent registration of new clients while reports
// are being broadcast.
type WebsocketSink struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewWebsocketSink returns an empty broadcaster.
func NewWebsocketSink() *WebsocketSink {
	return &WebsocketSink{clients: make(map[*websocket.Conn]struct{})}
}

// HandleUpgrade upgrades an HTTP request to a websocket connection and
// registers it to receive future Report calls until it disconnects.
func (s *WebsocketSink) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warningf("tunneldetect: websocket upgrade failed: %s", err)
		return
	}
	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	go s.drainUntilClosed(conn)
}

// drainUntilClosed reads (and discards) incoming frames only to detect
// disconnects, since this sink is send-only from the server side.
func (s *WebsocketSink) drainUntilClosed(conn *websocket.Conn) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Report implements Sink.
func (s *WebsocketSink) Report(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			_ = conn.Close()
			delete(s.clients, conn)
		}
	}
}
