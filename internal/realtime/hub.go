// Package realtime fans organization events out to connected websocket clients.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"flowfin/internal/metrics"

	"github.com/gorilla/websocket"
)

const (
	EventInvoiceCreated     = "invoice.created"
	EventInvoiceSent        = "invoice.sent"
	EventInvoicePaid        = "invoice.paid"
	EventInvoiceVoided      = "invoice.voided"
	EventInvoiceOverdue     = "invoice.overdue"
	EventGoalCompleted      = "goal.completed"
	EventTransactionCreated = "transaction.created"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Event is the message pushed to clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type envelope struct {
	orgID uint
	data  []byte
}

// Client is one websocket connection bound to an organization.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	orgID  uint
	userID uint
}

// Hub tracks clients per organization.
type Hub struct {
	clients    map[uint]map[*Client]bool
	broadcast  chan envelope
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// GlobalHub is the process-wide hub.
var GlobalHub = NewHub()

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint]map[*Client]bool),
		broadcast:  make(chan envelope, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run serves registrations and broadcasts until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for _, set := range h.clients {
				for client := range set {
					close(client.send)
				}
			}
			h.clients = make(map[uint]map[*Client]bool)
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.orgID] == nil {
				h.clients[client.orgID] = make(map[*Client]bool)
			}
			h.clients[client.orgID][client] = true
			h.mu.Unlock()
			metrics.WSClientsDelta(1)
			slog.Info("Websocket client registered", "user_id", client.userID, "org_id", client.orgID)

		case client := <-h.unregister:
			h.remove(client)

		case env := <-h.broadcast:
			h.deliver(env)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[client.orgID]
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.orgID)
	}
	close(client.send)
	metrics.WSClientsDelta(-1)
	slog.Info("Websocket client unregistered", "user_id", client.userID, "org_id", client.orgID)
}

func (h *Hub) deliver(env envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients[env.orgID] {
		select {
		case client.send <- env.data:
		default:
			// slow consumer
			delete(h.clients[env.orgID], client)
			close(client.send)
			metrics.WSClientsDelta(-1)
		}
	}
}

// Publish queues an event for every client of the organization. It never
// blocks the caller; when the queue is full the event is dropped.
func (h *Hub) Publish(orgID uint, eventType string, payload interface{}) {
	data, err := json.Marshal(Event{Type: eventType, Payload: payload})
	if err != nil {
		slog.Error("Failed to marshal event", "type", eventType, "error", err)
		return
	}
	select {
	case h.broadcast <- envelope{orgID: orgID, data: data}:
	default:
		slog.Warn("Event queue full, dropping event", "type", eventType, "org_id", orgID)
	}
}

// ClientCount returns the number of clients connected for an organization.
func (h *Hub) ClientCount(orgID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[orgID])
}

// Attach registers an upgraded connection and starts its pumps.
func (h *Hub) Attach(conn *websocket.Conn, orgID, userID uint) {
	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 64),
		orgID:  orgID,
		userID: userID,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump only drains control frames; clients do not send events.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("Unexpected websocket close error", "error", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Error("Failed to write message to websocket", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
