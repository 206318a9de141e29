package tcp

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"

	"golang.org/x/net/proxy"

	"github.com/omochice/peerchat/internal/chat"
	"github.com/omochice/peerchat/pkg/protocol"
)

// Options configures a Network.
type Options struct {
	// Framer splits the stream into messages. Defaults to the length-prefixed framer.
	Framer protocol.Framer

	// ProxyURL routes outbound dials through a proxy such as socks5://127.0.0.1:9050.
	ProxyURL string
}

// Network opens TCP listeners and outbound TCP connections.
type Network struct {
	framer protocol.Framer
	dialer proxy.ContextDialer
}

// NewNetwork creates a TCP Network.
func NewNetwork(opts Options) (*Network, error) {
	framer := opts.Framer
	if framer == nil {
		framer = protocol.LengthPrefixFramer{}
	}

	var dialer proxy.ContextDialer = &net.Dialer{}
	if opts.ProxyURL != "" {
		u, err := url.Parse(opts.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse proxy url: %w", err)
		}
		d, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create proxy dialer: %w", err)
		}
		cd, ok := d.(proxy.ContextDialer)
		if !ok {
			return nil, fmt.Errorf("proxy %s does not support dialing with context", u.Scheme)
		}
		dialer = cd
	}

	return &Network{framer: framer, dialer: dialer}, nil
}

// Listen binds address and returns an Acceptor.
func (n *Network) Listen(address string) (chat.Acceptor, error) {
	l, err := net.Listen("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
	}
	return &Listener{listener: l.(*net.TCPListener), framer: n.framer}, nil
}

// Dial connects to address until ctx is done.
func (n *Network) Dial(ctx context.Context, address string) (chat.Conn, error) {
	conn, err := n.dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", address, err)
	}
	return NewConn(conn, n.framer), nil
}

// Listener is a bound TCP socket.
type Listener struct {
	listener *net.TCPListener
	framer   protocol.Framer
}

// Accept implements chat.Acceptor.
func (l *Listener) Accept(ctx context.Context) (chat.Conn, error) {
	conn, err := AcceptContext(ctx, l.listener)
	if err != nil {
		return nil, err
	}
	return NewConn(conn, l.framer), nil
}

// AcceptContext waits for one connection on l.
// The ctx deadline bounds the wait, and canceling ctx unblocks it.
func AcceptContext(ctx context.Context, l *net.TCPListener) (net.Conn, error) {
	deadline, _ := ctx.Deadline()
	if err := l.SetDeadline(deadline); err != nil {
		return nil, err
	}
	stop := context.AfterFunc(ctx, func() {
		_ = l.SetDeadline(time.Now())
	})
	defer stop()

	conn, err := l.Accept()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("failed to accept: %w", ctxErr)
		}
		return nil, fmt.Errorf("failed to accept: %w", err)
	}
	return conn, nil
}

// Addr implements chat.Acceptor.
func (l *Listener) Addr() string {
	return l.listener.Addr().String()
}

// Close implements chat.Acceptor.
func (l *Listener) Close() error {
	return l.listener.Close()
}
