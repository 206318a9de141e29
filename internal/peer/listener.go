package peer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/omochice/peerchat/internal/chat"
)

// Listener is the server role of a connection attempt: it binds a local
// port and accepts exactly one inbound connection.
type Listener struct {
	network  chat.Network
	host     string
	logger   *logrus.Logger
	acceptor chat.Acceptor
	conn     chat.Conn
}

// NewListener creates a Listener that binds host. An empty host means the
// address the local hostname resolves to.
func NewListener(network chat.Network, host string, logger *logrus.Logger) *Listener {
	return &Listener{
		network: network,
		host:    host,
		logger:  logger,
	}
}

// Bind opens the listening socket on port.
func (l *Listener) Bind(port int) error {
	address := net.JoinHostPort(bindHost(l.host), strconv.Itoa(port))
	acceptor, err := l.network.Listen(address)
	if err != nil {
		return fmt.Errorf("failed to bind listener: %w", err)
	}
	l.acceptor = acceptor
	l.logger.WithField("address", acceptor.Addr()).Debug("listener bound")
	return nil
}

// Accept waits in the background for one inbound connection until ctx is
// done and reports the result through sig.
func (l *Listener) Accept(ctx context.Context, sig *signal, log *logrus.Entry) {
	acceptor := l.acceptor
	if acceptor == nil {
		sig.report(Outcome{Err: errors.New("listener is not bound")})
		return
	}

	go func() {
		conn, err := acceptor.Accept(ctx)
		switch {
		case err == nil:
			log.WithField("remote", conn.RemoteAddr()).Info("accepted inbound connection")
			if !sig.report(Outcome{Conn: conn}) {
				log.Debug("attempt already over, closed inbound connection")
			}
			return
		case chat.IsTimeout(err):
			err = fmt.Errorf("accept: %w", ErrAttemptTimeout)
			log.WithError(err).Warn("no inbound connection")
		case errors.Is(err, context.Canceled), errors.Is(err, net.ErrClosed):
			log.WithError(err).Debug("accept abandoned")
		default:
			log.WithError(err).Error("failed to accept inbound connection")
		}
		if !sig.report(Outcome{Err: err}) {
			log.Debug("attempt already over, dropped accept result")
		}
	}()
}

func (l *Listener) adopt(conn chat.Conn) {
	l.conn = conn
}

// Receive reads one frame from the accepted connection.
func (l *Listener) Receive(ctx context.Context) ([]byte, error) {
	if l.conn == nil {
		return nil, ErrNotConnected
	}
	return l.conn.Read(ctx)
}

// Addr returns the bound address, or "" before Bind.
func (l *Listener) Addr() string {
	if l.acceptor == nil {
		return ""
	}
	return l.acceptor.Addr()
}

// Close releases the accepted connection and the listening socket.
// Failures are logged only.
func (l *Listener) Close() {
	if l.conn != nil {
		if err := l.conn.Close(); err != nil {
			l.logger.WithError(err).Debug("failed to close inbound connection")
		}
		l.conn = nil
	}
	if l.acceptor != nil {
		if err := l.acceptor.Close(); err != nil {
			l.logger.WithError(err).Debug("failed to close listening socket")
		}
		l.acceptor = nil
	}
}

// bindHost picks the interface to listen on.
func bindHost(host string) string {
	if host != "" {
		return host
	}
	name, err := hostname()
	if err != nil {
		return ""
	}
	addrs, err := net.LookupHost(name)
	if err != nil || len(addrs) == 0 {
		return ""
	}
	return addrs[0]
}
