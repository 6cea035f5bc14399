package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is one player's live connection. Gorilla connections allow a
// single concurrent writer, so every write goes through the mutex.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex

	RoomId   string
	PlayerId string
}

func newClient(conn *websocket.Conn, roomId, playerId string) *Client {
	return &Client{conn: conn, RoomId: roomId, PlayerId: playerId}
}

func (c *Client) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *Client) Ping(deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, deadline)
}

func (c *Client) Close() error {
	return c.conn.Close()
}
