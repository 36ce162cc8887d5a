package socket

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"newsnotes/internal/note/model"
	"newsnotes/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	SessionType      = "SESSION"       // Sent once when a connection joins
	NotesChangedType = "NOTES_CHANGED" // The user's note row was written
	SignedOutType    = "SIGNED_OUT"    // The account is gone; client should drop its session
)

type WSMessage struct {
	Type    string          `json:"type"`
	UserID  string          `json:"user_id"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ConnectionGauge tracks open connections. Implemented by metrics.Metrics.
type ConnectionGauge interface {
	LiveConnectionOpened()
	LiveConnectionClosed()
}

// Hub is the process-wide session holder: one room per signed-in user, with
// every open tab of that user subscribed to it.
type Hub struct {
	Rooms      map[string]map[*Client]bool
	Broadcast  chan WSMessage
	Register   chan *Client
	Unregister chan *Client

	Gauge ConnectionGauge

	// AllowedOrigins lists browser origins that may open a connection. A "*"
	// entry allows any origin. Requests without an Origin header are not
	// from a browser and are always accepted.
	AllowedOrigins []string

	mu   sync.Mutex
	quit chan struct{}
	once sync.Once
}

type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	UserID string
	Email  string
	Send   chan []byte
}

func NewHub() *Hub {
	return &Hub{
		Rooms:      make(map[string]map[*Client]bool),
		Broadcast:  make(chan WSMessage),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		quit:       make(chan struct{}),
	}
}

// Run processes registrations and broadcasts until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			h.closeAll()
			return

		case client := <-h.Register:
			payload, _ := json.Marshal(map[string]string{"user_id": client.UserID, "email": client.Email})
			msg, _ := json.Marshal(WSMessage{Type: SessionType, UserID: client.UserID, Payload: payload})

			h.mu.Lock()
			if h.Rooms[client.UserID] == nil {
				h.Rooms[client.UserID] = make(map[*Client]bool)
			}
			h.Rooms[client.UserID][client] = true
			// Fresh buffer, cannot block.
			client.Send <- msg
			if h.Gauge != nil {
				h.Gauge.LiveConnectionOpened()
			}
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case msg := <-h.Broadcast:
			payload, err := json.Marshal(msg)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling broadcast message: %v", err)
				continue
			}

			// Sends are non-blocking, so they happen under the lock; a
			// concurrent RemoveUser cannot close a channel mid-send.
			h.mu.Lock()
			for client := range h.Rooms[msg.UserID] {
				select {
				case client.Send <- payload:
				default:
					logger.Sugar.Warnf("Client of user %s has a full send buffer. Unregistering.", client.UserID)
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Stop ends Run and disconnects every client.
func (h *Hub) Stop() {
	h.once.Do(func() { close(h.quit) })
}

// NotesChanged queues a NOTES_CHANGED event for every connection of userID.
func (h *Hub) NotesChanged(userID string, change model.NotesChanged) {
	payload, err := json.Marshal(change)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling notes change: %v", err)
		return
	}
	h.publish(WSMessage{Type: NotesChangedType, UserID: userID, Payload: payload})
}

// RemoveUser tells the user's connections they are signed out and closes
// them. Called after account deletion.
func (h *Hub) RemoveUser(userID string) {
	msg, _ := json.Marshal(WSMessage{Type: SignedOutType, UserID: userID})

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.Rooms[userID] {
		select {
		case client.Send <- msg:
		default:
		}
		h.removeLocked(client)
	}
}

// Connections returns how many connections userID has open.
func (h *Hub) Connections(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.Rooms[userID])
}

func (h *Hub) publish(msg WSMessage) {
	select {
	case h.Broadcast <- msg:
	case <-h.quit:
	}
}

// removeLocked drops client from its room and closes its send channel, which
// makes writePump close the socket. Must hold h.mu.
func (h *Hub) removeLocked(client *Client) {
	room, ok := h.Rooms[client.UserID]
	if !ok || !room[client] {
		return
	}
	delete(room, client)
	close(client.Send)
	if len(room) == 0 {
		delete(h.Rooms, client.UserID)
	}
	if h.Gauge != nil {
		h.Gauge.LiveConnectionClosed()
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range h.Rooms {
		for client := range room {
			h.removeLocked(client)
		}
	}
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.AllowedOrigins {
		if o == "*" || strings.TrimRight(o, "/") == origin {
			return true
		}
	}
	logger.Sugar.Infof("Rejected websocket upgrade from origin %s", origin)
	return false
}

// pingPeriod is how often writePump pings an idle connection.
var pingPeriod = 30 * time.Second
