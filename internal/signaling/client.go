package signaling

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/johnEmman/server-v3/internal/rooms"
)

const wsWriteWait = 1 * time.Second

// client is one WebSocket connection. It implements rooms.Conn: outbound
// events go through a bounded queue drained by a dedicated writer goroutine,
// so the coordinator never blocks on a slow reader.
type client struct {
	conn *websocket.Conn
	send chan rooms.Event

	closeOnce sync.Once
	closed    chan struct{}
}

func newClient(conn *websocket.Conn, queueSize int) *client {
	return &client{
		conn:   conn,
		send:   make(chan rooms.Event, queueSize),
		closed: make(chan struct{}),
	}
}

// Deliver enqueues ev without blocking. It reports false when the connection
// is closed or the queue is full; the caller decides what to count.
func (c *client) Deliver(ev rooms.Event) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- ev:
		return true
	case <-c.closed:
		return false
	default:
		return false
	}
}

// writePump is the sole writer of data frames on the connection. It also
// sends keepalive pings; the read side extends its deadline on pong.
func (c *client) writePump(pingInterval time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

// close tears down the transport. Safe to call from any goroutine, any
// number of times.
func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
	})
}
