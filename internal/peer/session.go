package peer

import (
	"context"
	"time"

	"github.com/omochice/peerchat/internal/chat"
	"github.com/omochice/peerchat/pkg/protocol"
)

// EventKind classifies one receive of a session.
type EventKind int

const (
	EventEmpty EventKind = iota
	EventData
	EventSentinel
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventEmpty:
		return "EMPTY"
	case EventData:
		return "DATA"
	case EventSentinel:
		return "SENTINEL"
	case EventError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event is the result of one session poll.
type Event struct {
	Kind    EventKind
	Message protocol.Message
	Err     error
}

// Session drains the inbound connection of an established session.
type Session struct {
	listener *Listener
	codec    protocol.Codec
	timeout  time.Duration
}

// NewSession creates a Session reading from listener's accepted connection.
// Each poll waits at most timeout.
func NewSession(listener *Listener, codec protocol.Codec, timeout time.Duration) *Session {
	return &Session{
		listener: listener,
		codec:    codec,
		timeout:  timeout,
	}
}

// Poll performs one bounded receive and classifies it.
func (s *Session) Poll(ctx context.Context) Event {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	data, err := s.listener.Receive(ctx)
	if err != nil {
		if chat.IsTimeout(err) {
			return Event{Kind: EventEmpty}
		}
		return Event{Kind: EventError, Err: err}
	}

	msg, err := s.codec.Decode(data)
	if err != nil {
		return Event{Kind: EventError, Err: err}
	}
	if msg.Type == protocol.MessageTypeTerminate {
		return Event{Kind: EventSentinel, Message: msg}
	}
	return Event{Kind: EventData, Message: msg}
}
