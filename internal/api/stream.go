package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"plantscan/internal/session"
)

// wsClient wraps a websocket connection with write locking.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// CaptureNotifier keeps track of websocket clients and pushes state transitions to them.
type CaptureNotifier struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	last    *session.Event
}

// NewCaptureNotifier constructs a notifier instance.
func NewCaptureNotifier() *CaptureNotifier {
	return &CaptureNotifier{clients: make(map[*wsClient]struct{})}
}

// Register attaches a websocket connection and replays the latest transition.
func (n *CaptureNotifier) Register(conn *websocket.Conn) *wsClient {
	client := &wsClient{conn: conn}
	n.mu.Lock()
	n.clients[client] = struct{}{}
	last := n.last
	n.mu.Unlock()

	if last != nil {
		_ = client.writeJSON(*last)
	}
	return client
}

// Unregister removes the websocket client from the notifier and closes the socket.
func (n *CaptureNotifier) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	n.mu.Lock()
	delete(n.clients, client)
	n.mu.Unlock()
	_ = client.conn.Close()
}

// Broadcast sends the event to all registered clients. It satisfies
// session.Observer.
func (n *CaptureNotifier) Broadcast(event session.Event) {
	n.mu.Lock()
	snapshot := event
	n.last = &snapshot
	for client := range n.clients {
		if err := client.writeJSON(event); err != nil {
			delete(n.clients, client)
			_ = client.conn.Close()
		}
	}
	n.mu.Unlock()
}

// LastEvent returns a copy of the most recent transition.
func (n *CaptureNotifier) LastEvent() *session.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.last == nil {
		return nil
	}
	copy := *n.last
	return &copy
}

func (c *wsClient) writeJSON(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}
