package realtime

import (
	"sync"
	"time"

	"github.com/chatapp/realtime-chat/internal/logging"
	"github.com/chatapp/realtime-chat/internal/metrics"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait = 10 * time.Second
	// PongWait is how long a connection may stay silent before reads fail.
	PongWait   = 60 * time.Second
	pingPeriod = (PongWait * 9) / 10

	// MaxMessageSize bounds a single inbound frame.
	MaxMessageSize = 64 * 1024
	sendQueueSize  = 256
)

// Conn is the part of a WebSocket connection the write pump needs.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is one authenticated realtime connection. Outbound frames go
// through a buffered queue drained by WritePump, the only writer to conn.
type Client struct {
	id     string
	userID string
	email  string
	conn   Conn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(userID, email string, conn Conn) *Client {
	return &Client{
		id:     uuid.New().String(),
		userID: userID,
		email:  email,
		conn:   conn,
		send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
	}
}

func (c *Client) ID() string     { return c.id }
func (c *Client) UserID() string { return c.userID }
func (c *Client) Email() string  { return c.email }

// Enqueue queues a frame without blocking. It reports false when the
// client is closed or its queue is full; a full queue drops the frame.
func (c *Client) Enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		metrics.DroppedFrames.Inc()
		logging.Warn().
			Str("conn_id", c.id).
			Str("user_id", c.userID).
			Msg("send queue full, dropping frame")
		return false
	}
}

// Close stops the write pump. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Done is closed once Close has been called.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// WritePump writes queued frames and periodic pings until Close is called
// or a write fails, then closes the connection so a blocked reader returns.
// Run it in its own goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case frame := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				logging.Error().Err(err).Str("conn_id", c.id).Msg("failed to set write deadline")
				c.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logging.Debug().Err(err).Str("conn_id", c.id).Msg("write failed")
				c.Close()
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
