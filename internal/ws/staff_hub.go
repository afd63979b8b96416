package ws

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zaqqye/placement_backend/internal/notify"
)

type staffMessage struct {
	collegeID  string
	department string
	payload    []byte
}

// StaffHub handles dashboards of moderators and admins listening for
// verification and application events.
type StaffHub struct {
	register   chan *staffClient
	unregister chan *staffClient
	broadcast  chan staffMessage
	clients    map[*staffClient]struct{}
}

func NewStaffHub() *StaffHub {
	return &StaffHub{
		register:   make(chan *staffClient),
		unregister: make(chan *staffClient),
		broadcast:  make(chan staffMessage, sendBufferSize),
		clients:    make(map[*staffClient]struct{}),
	}
}

func (h *StaffHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = struct{}{}
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				client.conn.Close()
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				if !client.accepts(msg) {
					continue
				}
				select {
				case client.send <- msg.payload:
				default:
					delete(h.clients, client)
					close(client.send)
					client.conn.Close()
				}
			}
		}
	}
}

// Broadcast never blocks; events are dropped when the hub is saturated.
func (h *StaffHub) Broadcast(e notify.Event) {
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
	case h.broadcast <- staffMessage{collegeID: e.CollegeID, department: e.Department, payload: data}:
	default:
	}
}

type staffClient struct {
	hub        *StaffHub
	conn       *websocket.Conn
	send       chan []byte
	allowAll   bool
	collegeID  string
	department string
}

func newStaffClient(hub *StaffHub, conn *websocket.Conn, allowAll bool, collegeID, department string) *staffClient {
	return &staffClient{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufferSize),
		allowAll:   allowAll,
		collegeID:  collegeID,
		department: department,
	}
}

// accepts: same college, and same department unless either side is
// department-less.
func (c *staffClient) accepts(msg staffMessage) bool {
	if c.allowAll {
		return true
	}
	if msg.collegeID == "" || msg.collegeID != c.collegeID {
		return false
	}
	if c.department == "" || msg.department == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(c.department), strings.TrimSpace(msg.department))
}

func (c *staffClient) readPump() {
	defer func() {
		c.hub.unregister <- c
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

func (c *staffClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
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
