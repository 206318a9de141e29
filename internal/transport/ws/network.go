package ws

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"time"

	"github.com/gobwas/ws"

	"github.com/omochice/peerchat/internal/chat"
	"github.com/omochice/peerchat/internal/transport/tcp"
)

// Network opens WebSocket listeners and outbound WebSocket connections.
// Each chat message travels as one binary WebSocket message.
type Network struct {
	dialer ws.Dialer
}

// NewNetwork creates a WebSocket Network.
func NewNetwork() *Network {
	return &Network{}
}

// Listen binds address and returns an Acceptor that upgrades inbound connections.
func (n *Network) Listen(address string) (chat.Acceptor, error) {
	l, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	return &Listener{listener: l.(*net.TCPListener)}, nil
}

// Dial performs the WebSocket handshake with address until ctx is done.
func (n *Network) Dial(ctx context.Context, address string) (chat.Conn, error) {
	conn, br, _, err := n.dialer.Dial(ctx, "ws://"+address+"/")
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", address, err)
	}
	if br != nil {
		// The server may have sent frames right after the handshake response.
		conn = &bufferedConn{Conn: conn, reader: br}
	}
	return NewConn(conn, SideClient), nil
}

// Listener is a bound TCP socket that speaks WebSocket.
type Listener struct {
	listener *net.TCPListener
}

// Accept implements chat.Acceptor.
// The handshake shares the ctx deadline with the wait for a connection.
func (l *Listener) Accept(ctx context.Context) (chat.Conn, error) {
	conn, err := tcp.AcceptContext(ctx, l.listener)
	if err != nil {
		return nil, err
	}

	deadline, _ := ctx.Deadline()
	_ = conn.SetDeadline(deadline)
	if _, err := ws.Upgrade(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to upgrade connection from %s: %w", conn.RemoteAddr(), err)
	}
	_ = conn.SetDeadline(time.Time{})

	return NewConn(conn, SideServer), nil
}

// Addr implements chat.Acceptor.
func (l *Listener) Addr() string {
	return l.listener.Addr().String()
}

// Close implements chat.Acceptor.
func (l *Listener) Close() error {
	return l.listener.Close()
}

// bufferedConn wraps a net.Conn with a bufio.Reader to preserve buffered data
type bufferedConn struct {
	net.Conn
	reader *bufio.Reader
}

func (bc *bufferedConn) Read(p []byte) (int, error) {
	return bc.reader.Read(p)
}
