package bridge

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var diagnosticsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // operator console, not a public-facing endpoint
	},
}

// SensorEvent is pushed to every connected diagnostics client whenever a
// sensor's boolean value changes, so an ops console can show live state
// without polling Status()/Diagnostics().
type SensorEvent struct {
	CameraID  string    `json:"camera_id"`
	Kind      Kind      `json:"kind"`
	Carrier   string    `json:"carrier,omitempty"`
	Active    bool      `json:"active"`
	EventID   string    `json:"event_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DiagnosticsHub fans out SensorEvents to every connected WebSocket client.
// Grounded on the teacher's internal/api/sfu_ws_handlers.go (upgrader shape,
// read-loop-until-error client handling), adapted from an inbound
// ICE-candidate relay to an outbound broadcast-only push channel — this
// hub has no inbound message handling since diagnostics clients are
// read-only observers.
type DiagnosticsHub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

func NewDiagnosticsHub() *DiagnosticsHub {
	return &DiagnosticsHub{clients: make(map[*websocket.Conn]struct{})}
}

// ServeWS upgrades the connection and registers it for broadcasts until the
// client disconnects or a write fails.
func (h *DiagnosticsHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := diagnosticsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ERROR] bridge: diagnostics ws upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	// Diagnostics clients are observers only; drain and discard any inbound
	// frames (ping/pong, stray messages) until the connection closes so the
	// read deadline/close handshake behaves correctly.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Broadcast pushes evt to every currently connected client, dropping any
// connection whose write fails (it will be cleaned up by its own
// read-loop's next failed read).
func (h *DiagnosticsHub) Broadcast(evt SensorEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("[WARN] bridge: diagnostics ws write failed, dropping client: %v", err)
			go conn.Close()
			delete(h.clients, conn)
		}
	}
}
