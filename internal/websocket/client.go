package websocket

import (
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendBuffer   = 16
	readLimit    = 512
	pongWait     = 60 * time.Second
	pingInterval = 50 * time.Second
	writeWait    = 10 * time.Second
)

type Client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewClient returns a client with a send buffer but no connection. It is used
// to register listeners that are drained by the caller.
func NewClient() *Client {
	return &Client{send: make(chan []byte, sendBuffer)}
}

// Messages exposes the client's outbound queue.
func (c *Client) Messages() <-chan []byte {
	return c.send
}

// Upgrader accepts connections from the allowed origins; "*" allows any.
func Upgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || slices.Contains(allowedOrigins, "*") {
				return true
			}
			return slices.Contains(allowedOrigins, origin)
		},
	}
}

func ServeWS(w http.ResponseWriter, r *http.Request, upgrader websocket.Upgrader, hub *Hub, ownerID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := NewClient()
	client.conn = conn
	hub.Register(ownerID, client)
	go client.writePump(hub, ownerID)
	client.readPump(hub, ownerID)
}

func (c *Client) readPump(hub *Hub, ownerID string) {
	defer func() {
		hub.Unregister(ownerID, c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump(hub *Hub, ownerID string) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		hub.Unregister(ownerID, c)
		_ = c.conn.Close()
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
