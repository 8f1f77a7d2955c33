package dashboard

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// ReloadMessage is pushed to browsers over the livereload socket.
type ReloadMessage struct {
	Type string `json:"type"`
}

// ReloadServer manages the websocket connections behind /livereload. Pages
// reload themselves when the registry changes on disk.
type ReloadServer struct {
	clients  map[*websocket.Conn]bool
	mu       sync.RWMutex
	upgrader websocket.Upgrader
}

// NewReloadServer creates a reload server.
func NewReloadServer() *ReloadServer {
	return &ReloadServer{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// The dashboard binds to loopback; cross-origin pages
				// cannot reach it anyway.
				return true
			},
		},
	}
}

// HandleWebSocket upgrades the request and parks the connection until the
// client goes away.
func (s *ReloadServer) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	conn.Close()
}

// NotifyChanged tells every connected page that the registry changed.
func (s *ReloadServer) NotifyChanged() {
	s.broadcast(ReloadMessage{Type: "registry-changed"})
}

func (s *ReloadServer) broadcast(msg ReloadMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}

	s.mu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.mu.RUnlock()

	for _, client := range clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			s.mu.Lock()
			delete(s.clients, client)
			s.mu.Unlock()
			client.Close()
		}
	}
}

// ClientCount returns the number of connected pages.
func (s *ReloadServer) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Close drops every client connection.
func (s *ReloadServer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		client.Close()
		delete(s.clients, client)
	}
}
