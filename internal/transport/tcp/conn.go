// Package tcp provides the TCP transport implementation for peer sessions.
package tcp

import (
	"context"
	"net"
	"sync"

	"github.com/omochice/peerchat/pkg/protocol"
)

const readBufferSize = 4096

// Conn adapts net.Conn to chat.Conn interface.
// Bytes of a frame that has not fully arrived are kept for the next Read,
// so a Read that times out never loses data.
type Conn struct {
	conn    net.Conn
	framer  protocol.Framer
	buf     []byte
	pending []byte
	readMu  sync.Mutex
	writeMu sync.Mutex
}

// NewConn wraps a net.Conn.
func NewConn(conn net.Conn, framer protocol.Framer) *Conn {
	return &Conn{
		conn:   conn,
		framer: framer,
		buf:    make([]byte, readBufferSize),
	}
}

// Read implements chat.Conn.
// The ctx deadline becomes the socket read deadline.
func (c *Conn) Read(ctx context.Context) ([]byte, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	for {
		if frame, ok, err := c.nextFrame(); ok || err != nil {
			return frame, err
		}

		deadline, _ := ctx.Deadline()
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return nil, err
		}

		n, err := c.conn.Read(c.buf)
		c.pending = append(c.pending, c.buf[:n]...)
		if err != nil {
			if frame, ok, ferr := c.nextFrame(); ok || ferr != nil {
				return frame, ferr
			}
			return nil, err
		}
	}
}

func (c *Conn) nextFrame() ([]byte, bool, error) {
	payload, n, err := c.framer.NextFrame(c.pending)
	if err != nil || n == 0 {
		return nil, false, err
	}
	frame := make([]byte, len(payload))
	copy(frame, payload)
	c.pending = c.pending[n:]
	return frame, true, nil
}

// Write implements chat.Conn.
func (c *Conn) Write(ctx context.Context, data []byte) error {
	frame, err := c.framer.AppendFrame(nil, data)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, _ := ctx.Deadline()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	_, err = c.conn.Write(frame)
	return err
}

// Close implements chat.Conn.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
