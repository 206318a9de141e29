package peer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/omochice/peerchat/internal/chat"
	"github.com/omochice/peerchat/pkg/protocol"
)

// terminateTimeout bounds the courtesy terminate frame sent on Close.
const terminateTimeout = time.Second

// hostname is swapped in tests.
var hostname = os.Hostname

// Dialer is the client role of a connection attempt: it connects to the
// peer's listener and owns the outbound connection used for sending.
type Dialer struct {
	network chat.Network
	codec   protocol.Codec
	name    string
	logger  *logrus.Logger
	conn    chat.Conn
}

// NewDialer creates a Dialer that signs outgoing messages with name.
func NewDialer(network chat.Network, codec protocol.Codec, name string, logger *logrus.Logger) *Dialer {
	return &Dialer{
		network: network,
		codec:   codec,
		name:    name,
		logger:  logger,
	}
}

// Connect dials ep in the background until ctx is done and reports the
// result through sig. It never retries.
func (d *Dialer) Connect(ctx context.Context, ep chat.Endpoint, sig *signal, log *logrus.Entry) {
	if ep.Address == "localhost" {
		if name, err := hostname(); err == nil {
			ep.Address = name
		}
	}
	address := ep.HostPort()

	go func() {
		conn, err := d.network.Dial(ctx, address)
		if err != nil {
			if chat.IsTimeout(err) {
				err = fmt.Errorf("dial %s: %w", address, ErrAttemptTimeout)
			}
			log.WithError(err).Debug("dial failed")
			if !sig.report(Outcome{Err: err}) {
				log.Debug("attempt already over, dropped dial result")
			}
			return
		}
		log.WithField("remote", conn.RemoteAddr()).Info("connected to peer")
		if !sig.report(Outcome{Conn: conn}) {
			log.Debug("attempt already over, closed outbound connection")
		}
	}()
}

func (d *Dialer) adopt(conn chat.Conn) {
	d.conn = conn
}

// Send writes msg to the peer.
func (d *Dialer) Send(ctx context.Context, msg protocol.Message) error {
	if d.conn == nil {
		return ErrNotConnected
	}
	data, err := d.codec.Encode(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	if err := d.conn.Write(ctx, data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Close tells the peer the session is over and closes the connection
// without waiting for the peer.
func (d *Dialer) Close() {
	if d.conn == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), terminateTimeout)
	defer cancel()
	if err := d.Send(ctx, protocol.Terminate(d.name)); err != nil && !errors.Is(err, ErrNotConnected) {
		d.logger.WithError(err).Debug("failed to send terminate")
	}
	d.release()
}

// release closes the connection without notifying the peer.
func (d *Dialer) release() {
	if d.conn == nil {
		return
	}
	if err := d.conn.Close(); err != nil {
		d.logger.WithError(err).Debug("failed to close outbound connection")
	}
	d.conn = nil
}
