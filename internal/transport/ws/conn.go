// Package ws provides WebSocket transport implementation for peer sessions.
package ws

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// Side tells which end of the handshake a connection is.
// Client frames are masked and server frames are not.
type Side int

const (
	SideServer Side = iota
	SideClient
)

const closeTimeout = time.Second

type readResult struct {
	data []byte
	err  error
}

// Conn adapts a gobwas/ws connection to chat.Conn interface.
// A reader goroutine owns the socket's read side, so a Read that gives up
// at its deadline leaves the next message intact.
type Conn struct {
	conn    net.Conn
	side    Side
	recv    chan readResult
	done    chan struct{}
	once    sync.Once
	readMu  sync.Mutex
	readErr error
	writeMu sync.Mutex
}

// NewConn wraps an upgraded connection and starts reading from it.
func NewConn(conn net.Conn, side Side) *Conn {
	c := &Conn{
		conn: conn,
		side: side,
		recv: make(chan readResult, 16),
		done: make(chan struct{}),
	}
	go c.readLoop()
	return c
}

func (c *Conn) readLoop() {
	for {
		var (
			data []byte
			err  error
		)
		if c.side == SideServer {
			data, err = wsutil.ReadClientBinary(c.conn)
		} else {
			data, err = wsutil.ReadServerBinary(c.conn)
		}
		var closed wsutil.ClosedError
		if errors.As(err, &closed) {
			err = io.EOF
		}

		select {
		case c.recv <- readResult{data: data, err: err}:
		case <-c.done:
			return
		}
		if err != nil {
			return
		}
	}
}

// Read implements chat.Conn.
// Reads one binary message, waiting until ctx is done.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if c.readErr != nil {
		return nil, c.readErr
	}
	select {
	case r := <-c.recv:
		c.readErr = r.err
		return r.data, r.err
	case <-c.done:
		return nil, net.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Write implements chat.Conn.
// Writes one binary message.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, _ := ctx.Deadline()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if c.side == SideServer {
		return wsutil.WriteServerBinary(c.conn, data)
	}
	return wsutil.WriteClientBinary(c.conn, data)
}

// Close implements chat.Conn.
// Sends a close frame before closing the socket.
func (c *Conn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.done)
		c.writeMu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(closeTimeout))
		if c.side == SideServer {
			_ = wsutil.WriteServerMessage(c.conn, ws.OpClose, nil)
		} else {
			_ = wsutil.WriteClientMessage(c.conn, ws.OpClose, nil)
		}
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
