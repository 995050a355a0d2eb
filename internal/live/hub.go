// Package live pushes redemption events to lecturers watching an open QR
// session over a WebSocket. Delivery is fire-and-forget; a slow watcher is
// dropped rather than allowed to block the hub.
package live

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
)

// CheckIn is one redemption event broadcast to watchers.
type CheckIn struct {
	QrSessionID  string    `json:"qr_session_id"`
	StudentID    string    `json:"student_id"`
	StudentName  string    `json:"student_name"`
	Status       string    `json:"status"`
	AutoEnrolled bool      `json:"auto_enrolled"`
	At           time.Time `json:"at"`
}

type client struct {
	qrSessionID string
	conn        *websocket.Conn
	send        chan []byte
}

type broadcast struct {
	qrSessionID string
	payload     []byte
}

// Hub fans redemption events out to watchers keyed by QR session.
type Hub struct {
	register   chan *client
	unregister chan *client
	events     chan broadcast
	watchers   map[string]map[*client]struct{}
}

// NewHub creates a hub; call Run in a goroutine to start it.
func NewHub() *Hub {
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		events:     make(chan broadcast, 256),
		watchers:   make(map[string]map[*client]struct{}),
	}
}

// Run owns all watcher state; it is the only goroutine touching the maps.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			if h.watchers[c.qrSessionID] == nil {
				h.watchers[c.qrSessionID] = make(map[*client]struct{})
			}
			h.watchers[c.qrSessionID][c] = struct{}{}
		case c := <-h.unregister:
			if set, ok := h.watchers[c.qrSessionID]; ok {
				if _, ok := set[c]; ok {
					delete(set, c)
					close(c.send)
					if len(set) == 0 {
						delete(h.watchers, c.qrSessionID)
					}
				}
			}
		case ev := <-h.events:
			for c := range h.watchers[ev.qrSessionID] {
				select {
				case c.send <- ev.payload:
				default:
					delete(h.watchers[ev.qrSessionID], c)
					close(c.send)
				}
			}
		}
	}
}

// Publish broadcasts a check-in to everyone watching its QR session.
func (h *Hub) Publish(ev CheckIn) {
	if h == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case h.events <- broadcast{qrSessionID: ev.QrSessionID, payload: payload}:
	default:
	}
}

// Serve attaches an accepted WebSocket connection as a watcher of the given
// QR session and blocks until it disconnects.
func (h *Hub) Serve(qrSessionID string, conn *websocket.Conn) {
	c := &client{qrSessionID: qrSessionID, conn: conn, send: make(chan []byte, 16)}
	h.register <- c

	done := make(chan struct{})
	go func() {
		defer close(done)
		for payload := range c.send {
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}()

	// Reads are discarded; the socket is one-way. A read error means the
	// watcher went away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.unregister <- c
	<-done
	conn.Close()
}
