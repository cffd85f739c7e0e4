package ws

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var ErrConnClosed = errors.New("connection closed")

// Handle is anything a presence entry can push to.
type Handle interface {
	Send(v any) error
	Close() error
}

// Conn wraps a websocket connection with serialized writes.
// gorilla/websocket allows one concurrent writer, so every write goes through mu.
type Conn struct {
	conn      *websocket.Conn
	writeWait time.Duration

	mu        sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

func NewConn(conn *websocket.Conn, writeWait time.Duration) *Conn {
	if writeWait <= 0 {
		writeWait = 10 * time.Second
	}
	return &Conn{
		conn:      conn,
		writeWait: writeWait,
		done:      make(chan struct{}),
	}
}

// Send writes v as a JSON text frame.
func (c *Conn) Send(v any) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := c.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	return nil
}

// Ping writes a ping control frame.
func (c *Conn) Ping() error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeWait)); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

// Done is closed once Close has been called.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Close sends a close frame and closes the connection. Safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.mu.Unlock()

		err = c.conn.Close()
	})
	return err
}
