// Package peer establishes and runs a one-to-one chat session.
//
// Each side of a session both listens and dials: a Listener accepts the
// peer's outbound connection, which carries incoming messages, and a Dialer
// connects to the peer's listener, which carries outgoing messages. The
// Controller runs both roles concurrently and is driven by a host loop that
// polls it once per tick.
package peer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/omochice/peerchat/internal/chat"
	"github.com/omochice/peerchat/pkg/protocol"
)

const (
	DefaultAttemptTimeout = 30 * time.Second
	DefaultPollTimeout    = 100 * time.Microsecond
	DefaultLocalName      = "ME"

	sendTimeout = 5 * time.Second
)

// Display lines written by the controller.
const (
	LineConnected        = "Connected!"
	LineConnectionFailed = "Connection failed!"
	LineDisconnected     = "Disconnected"
)

// Options configures a Controller.
type Options struct {
	Network chat.Network
	Codec   protocol.Codec
	Display chat.Display
	Logger  *logrus.Logger

	// LocalName labels this side's own lines and outgoing messages.
	LocalName string

	ListenHost string
	ListenPort int

	// AttemptTimeout bounds both accept and dial of one attempt.
	AttemptTimeout time.Duration

	// PollTimeout bounds each receive of PollIncomingMessage.
	PollTimeout time.Duration

	// MaxReceiveErrors consecutive receive errors end the session. 0 disables the limit.
	MaxReceiveErrors int

	Retry RetryPolicy

	// OnTransition, if set, observes every state change.
	OnTransition func(from, to State)
}

// Controller drives the connection state machine. It is not safe for
// concurrent use: a single host loop calls all of its methods.
type Controller struct {
	opts    Options
	logger  *logrus.Logger
	log     *logrus.Entry
	now     func() time.Time
	state   State
	signals *SignalPair

	peer     chat.Endpoint
	listener *Listener
	dialer   *Dialer
	session  *Session

	ctx        context.Context
	cancel     context.CancelFunc
	deadline   time.Time
	dials      int
	redialAt   time.Time
	listenerUp bool
	dialerUp   bool
	recvErrors int
}

// NewController creates an idle Controller.
func NewController(opts Options) (*Controller, error) {
	if opts.Network == nil {
		return nil, errors.New("network is required")
	}
	if opts.Display == nil {
		return nil, errors.New("display is required")
	}
	if opts.Codec == nil {
		opts.Codec = protocol.ProtoCodec{}
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.LocalName == "" {
		opts.LocalName = DefaultLocalName
	}
	if opts.ListenPort == 0 {
		opts.ListenPort = chat.DefaultPort
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = DefaultAttemptTimeout
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}

	return &Controller{
		opts:    opts,
		logger:  opts.Logger,
		log:     logrus.NewEntry(opts.Logger),
		now:     time.Now,
		state:   StateIdle,
		signals: newSignalPair(),
	}, nil
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Peer returns the endpoint of the current or last attempt.
func (c *Controller) Peer() chat.Endpoint {
	return c.peer
}

// ListenAddr returns the address the listener is bound to during an
// attempt or session, or "" otherwise.
func (c *Controller) ListenAddr() string {
	if c.listener == nil {
		return ""
	}
	return c.listener.Addr()
}

// Connect starts a connection attempt to ep. Accept and dial run in the
// background; PollConnectionState reports how the attempt resolves.
func (c *Controller) Connect(ctx context.Context, ep chat.Endpoint) error {
	if c.state != StateIdle {
		return ErrAlreadyConnected
	}
	if err := ep.Validate(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.peer = ep
	c.log = c.logger.WithFields(logrus.Fields{
		"attempt": uuid.NewString(),
		"peer":    ep.Name,
	})
	c.signals.reset()
	c.ctx, c.cancel = context.WithTimeout(ctx, c.opts.AttemptTimeout)
	c.deadline = c.now().Add(c.opts.AttemptTimeout)
	c.dials = 0
	c.redialAt = time.Time{}
	c.listenerUp, c.dialerUp = false, false
	c.listener = NewListener(c.opts.Network, c.opts.ListenHost, c.logger)
	c.dialer = NewDialer(c.opts.Network, c.opts.Codec, c.opts.LocalName, c.logger)

	c.transition(StateConnecting)
	c.log.WithField("address", ep.HostPort()).Info("connecting")

	if err := c.listener.Bind(c.opts.ListenPort); err != nil {
		c.log.WithError(err).Error("failed to bind listener")
		c.signals.listener.report(Outcome{Err: err})
	} else {
		c.listener.Accept(c.ctx, c.signals.listener, c.log)
	}
	c.dial()
	return nil
}

func (c *Controller) dial() {
	c.dials++
	c.log.WithField("dial", c.dials).Debug("dialing peer")
	c.dialer.Connect(c.ctx, c.peer, c.signals.dialer, c.log)
}

// PollConnectionState checks both roles once without blocking and advances
// the attempt. It returns StateFailed for the poll that ends a failed
// attempt, after which State reports StateIdle.
func (c *Controller) PollConnectionState() State {
	if c.state != StateConnecting {
		return c.state
	}

	if !c.redialAt.IsZero() && !c.now().Before(c.redialAt) {
		c.redialAt = time.Time{}
		c.dial()
	}

	lo, lok := c.signals.listener.poll()
	do, dok := c.signals.dialer.poll()

	// Adopt first so a failing poll still closes whatever did connect.
	if lok && lo.Err == nil && !c.listenerUp {
		c.listener.adopt(lo.Conn)
		c.listenerUp = true
	}
	if dok && do.Err == nil && !c.dialerUp {
		c.dialer.adopt(do.Conn)
		c.dialerUp = true
	}

	if lok && lo.Err != nil {
		return c.fail(lo.Err)
	}
	if dok && do.Err != nil && !c.scheduleRedial(do.Err) {
		return c.fail(do.Err)
	}
	if c.listenerUp && c.dialerUp {
		c.connected()
	}
	return c.state
}

// scheduleRedial arranges another dial after a backoff if the retry policy
// and the attempt deadline allow it.
func (c *Controller) scheduleRedial(err error) bool {
	if errors.Is(err, ErrAttemptTimeout) || c.ctx.Err() != nil {
		return false
	}
	if !c.opts.Retry.Allows(c.dials) {
		return false
	}
	backoff := c.opts.Retry.Backoff(c.dials)
	at := c.now().Add(backoff)
	if !at.Before(c.deadline) {
		return false
	}
	c.log.WithError(err).WithField("backoff", backoff).Info("dial failed, retrying")
	c.signals.resetDialer()
	c.redialAt = at
	return true
}

func (c *Controller) connected() {
	c.signals.reset()
	c.cancel()
	c.session = NewSession(c.listener, c.opts.Codec, c.opts.PollTimeout)
	c.recvErrors = 0
	c.opts.Display.Append(LineConnected)
	c.transition(StateConnected)
	c.log.Info("connected")
}

func (c *Controller) fail(err error) State {
	c.log.WithError(err).Warn("connection attempt failed")
	c.teardown(false)
	c.opts.Display.Append(LineConnectionFailed)
	c.transition(StateFailed)
	c.transition(StateIdle)
	return StateFailed
}

// teardown stops the attempt and closes both roles.
func (c *Controller) teardown(terminate bool) {
	if c.cancel != nil {
		c.cancel()
	}
	c.signals.reset()
	c.redialAt = time.Time{}
	c.session = nil
	if c.dialer != nil {
		if terminate {
			c.dialer.Close()
		} else {
			c.dialer.release()
		}
		c.dialer = nil
	}
	if c.listener != nil {
		c.listener.Close()
		c.listener = nil
	}
}

// Disconnect ends the session and tells the peer.
func (c *Controller) Disconnect() error {
	if c.state != StateConnected {
		return ErrNotConnected
	}
	c.log.Info("disconnecting")
	c.end(true)
	return nil
}

func (c *Controller) end(terminate bool) {
	c.teardown(terminate)
	c.opts.Display.Append(LineDisconnected)
	c.transition(StateDisconnected)
	c.transition(StateIdle)
}

// Send writes text to the peer and echoes it to the display.
func (c *Controller) Send(text string) error {
	if c.state != StateConnected {
		return ErrNotConnected
	}

	msg := protocol.NewText(c.opts.LocalName, text)
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := c.dialer.Send(ctx, msg); err != nil {
		c.log.WithError(err).Error("failed to send message")
		return fmt.Errorf("failed to send message: %w", err)
	}
	c.opts.Display.Append(chat.FormatLine(c.now(), c.opts.LocalName, text))
	return nil
}

// PollIncomingMessage performs one bounded receive while connected and
// applies its effect: data is displayed, a terminate ends the session, and
// too many consecutive errors end it too.
func (c *Controller) PollIncomingMessage() Event {
	if c.state != StateConnected || c.session == nil {
		return Event{Kind: EventEmpty}
	}

	ev := c.session.Poll(context.Background())
	switch ev.Kind {
	case EventData:
		c.recvErrors = 0
		c.opts.Display.Append(chat.FormatLine(c.now(), c.peer.Name, ev.Message.Text))
	case EventSentinel:
		c.recvErrors = 0
		c.log.Info("peer ended the session")
		c.end(false)
	case EventEmpty:
		c.recvErrors = 0
	case EventError:
		c.recvErrors++
		c.log.WithError(ev.Err).WithField("consecutive", c.recvErrors).Warn("failed to receive message")
		if c.opts.MaxReceiveErrors > 0 && c.recvErrors >= c.opts.MaxReceiveErrors {
			c.end(false)
		}
	}
	return ev
}

// Close releases everything the controller holds. A live session is
// disconnected first.
func (c *Controller) Close() {
	switch c.state {
	case StateConnected:
		_ = c.Disconnect()
	case StateConnecting:
		c.log.Info("abandoning connection attempt")
		c.teardown(false)
		c.transition(StateIdle)
	}
}

func (c *Controller) transition(to State) {
	from := c.state
	c.state = to
	c.log.WithFields(logrus.Fields{"from": from, "to": to}).Debug("state changed")
	if c.opts.OnTransition != nil {
		c.opts.OnTransition(from, to)
	}
}
