package peer

import (
	"sync"

	"github.com/omochice/peerchat/internal/chat"
)

// Outcome is what a role reports at the end of its attempt.
type Outcome struct {
	Conn chat.Conn
	Err  error
}

// signal carries one role's outcome from its goroutine to the control loop.
// It is written at most once and read without blocking.
type signal struct {
	mu        sync.Mutex
	ch        chan Outcome
	observed  *Outcome
	abandoned bool
}

func newSignal() *signal {
	return &signal{ch: make(chan Outcome, 1)}
}

// report delivers the outcome and returns false if the control loop will
// never see it. A connection nobody will take is closed.
func (s *signal) report(o Outcome) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.abandoned {
		select {
		case s.ch <- o:
			return true
		default:
		}
	}
	if o.Conn != nil {
		o.Conn.Close()
	}
	return false
}

// poll returns the outcome once one is available. Later polls see the same value.
func (s *signal) poll() (Outcome, bool) {
	if s.observed != nil {
		return *s.observed, true
	}
	select {
	case o := <-s.ch:
		s.observed = &o
		return o, true
	default:
		return Outcome{}, false
	}
}

// abandon detaches the signal from the control loop. A connection reported
// but never observed is closed, now or when it arrives.
func (s *signal) abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.abandoned = true
	if s.observed != nil {
		return
	}
	select {
	case o := <-s.ch:
		if o.Conn != nil {
			o.Conn.Close()
		}
	default:
	}
}

// SignalPair holds the outcome of each role for the current attempt.
type SignalPair struct {
	listener *signal
	dialer   *signal
}

func newSignalPair() *SignalPair {
	return &SignalPair{listener: newSignal(), dialer: newSignal()}
}

// reset abandons both signals and starts fresh ones for the next attempt.
func (p *SignalPair) reset() {
	p.listener.abandon()
	p.dialer.abandon()
	p.listener = newSignal()
	p.dialer = newSignal()
}

// resetDialer replaces only the dialer signal, for a redial.
func (p *SignalPair) resetDialer() {
	p.dialer.abandon()
	p.dialer = newSignal()
}
