package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// Time allowed to flush a frame to the peer
	writeWait = 10 * time.Second
	// Time allowed to read the next pong before the connection is dead
	pongWait = 60 * time.Second
	// Ping period, must be less than pongWait
	pingPeriod = (pongWait * 9) / 10
	// Per-connection send queue depth; a client that falls this far behind
	// is treated as dead rather than buffered indefinitely
	sendQueueSize = 16
)

// Client represents a single live connection of an authenticated user
type Client struct {
	UserID primitive.ObjectID

	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
	done      chan struct{}
}

// NewClient wraps an upgraded connection for the given user
func NewClient(userID primitive.ObjectID, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		conn:   conn,
		send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// enqueue hands a frame to the writer goroutine. Frames for one connection
// are delivered in enqueue order. Returns false if the queue is full or the
// connection is already closed.
func (c *Client) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// close tears the connection down. Idempotent; pending sends are abandoned.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// writePump drains the send queue onto the wire. The single writer goroutine
// satisfies gorilla's one-concurrent-writer rule and gives per-connection
// FIFO delivery. A write failure unregisters the connection; there is no
// retry.
func (c *Client) writePump(hub *Hub) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		hub.Unregister(c)
	}()

	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// readPump consumes inbound frames until the peer goes away. The push
// channel is server-to-client only, so inbound payloads are discarded; the
// read loop exists to detect disconnects and answer pings.
func (c *Client) readPump(hub *Hub) {
	defer hub.Unregister(c)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
