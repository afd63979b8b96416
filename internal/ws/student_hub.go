package ws

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zaqqye/placement_backend/internal/notify"
)

type studentNotification struct {
	userID  string
	payload []byte
}

// StudentHub keeps at most one live connection per student account.
type StudentHub struct {
	register   chan *studentClient
	unregister chan *studentClient
	notify     chan studentNotification
	clients    map[string]*studentClient
}

func NewStudentHub() *StudentHub {
	return &StudentHub{
		register:   make(chan *studentClient),
		unregister: make(chan *studentClient),
		notify:     make(chan studentNotification, sendBufferSize),
		clients:    make(map[string]*studentClient),
	}
}

func (h *StudentHub) Run() {
	for {
		select {
		case client := <-h.register:
			if existing, ok := h.clients[client.userID]; ok {
				existing.conn.Close()
			}
			h.clients[client.userID] = client
		case client := <-h.unregister:
			if stored, ok := h.clients[client.userID]; ok && stored == client {
				delete(h.clients, client.userID)
			}
		case msg := <-h.notify:
			if client, ok := h.clients[msg.userID]; ok {
				select {
				case client.send <- msg.payload:
				default:
					client.conn.Close()
					delete(h.clients, msg.userID)
				}
			}
		}
	}
}

// Notify never blocks; events are dropped when the hub is saturated.
func (h *StudentHub) Notify(userID string, e notify.Event) {
	if h == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	select {
	case h.notify <- studentNotification{userID: userID, payload: data}:
	default:
	}
}

type studentClient struct {
	hub    *StudentHub
	conn   *websocket.Conn
	send   chan []byte
	userID string
}

func newStudentClient(hub *StudentHub, conn *websocket.Conn, userID string) *studentClient {
	return &studentClient{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 64),
		userID: userID,
	}
}

func (c *studentClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *studentClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
