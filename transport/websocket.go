package transport

import (
	"github.com/gorilla/websocket"
	"io"
	"sync"
	"time"
)

type wsConn struct {
	conn     *websocket.Conn
	readMux  sync.Mutex
	reader   io.Reader
	writeMux sync.Mutex
}

// WebSocket adapts a websocket connection to an [io.ReadWriteCloser] for use with [NewChannel].
// Each Write is sent as one binary message, and reads continue across message boundaries.
func WebSocket(conn *websocket.Conn) io.ReadWriteCloser {
	return &wsConn{conn: conn}
}

func (c *wsConn) Read(p []byte) (int, error) {
	c.readMux.Lock()
	defer c.readMux.Unlock()
	for {
		if c.reader == nil {
			_, r, err := c.conn.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			c.reader = r
		}
		n, err := c.reader.Read(p)
		if err == io.EOF {
			c.reader = nil
			if n == 0 {
				continue
			}
			err = nil
		}
		return n, err
	}
}

func (c *wsConn) Write(p []byte) (int, error) {
	c.writeMux.Lock()
	defer c.writeMux.Unlock()
	if err := c.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *wsConn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

// Close sends a close message to the peer before closing the connection.
func (c *wsConn) Close() error {
	c.writeMux.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMux.Unlock()
	return c.conn.Close()
}
