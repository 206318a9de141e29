// Package chat provides the domain types shared by the connection roles and transports.
package chat

import (
	"context"
	"errors"
	"net"
	"os"
)

// Conn abstracts a bidirectional frame connection for both TCP and WebSocket.
// This interface isolates transport details from session logic.
type Conn interface {
	// Read reads a single frame payload.
	// It gives up at the ctx deadline with an error for which IsTimeout is true,
	// and returns io.EOF when the peer closed the connection.
	Read(ctx context.Context) ([]byte, error)

	// Write sends a single frame payload.
	Write(ctx context.Context, data []byte) error

	// Close closes the connection.
	Close() error

	// RemoteAddr returns the remote address for logging.
	RemoteAddr() string
}

// Acceptor is a bound listening socket that hands out inbound connections.
type Acceptor interface {
	// Accept waits for one inbound connection until ctx is done.
	Accept(ctx context.Context) (Conn, error)

	// Addr returns the bound local address.
	Addr() string

	// Close releases the listening socket.
	Close() error
}

// Network creates listening and outbound connections of one transport kind.
type Network interface {
	Listen(address string) (Acceptor, error)
	Dial(ctx context.Context, address string) (Conn, error)
}

// IsTimeout reports whether err means a bounded wait ran out.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
