package peer

import "errors"

var (
	// ErrAttemptTimeout is reported when accept or dial outlives the attempt bound.
	ErrAttemptTimeout = errors.New("connection attempt timed out")

	// ErrNotConnected is returned by operations that need an established session.
	ErrNotConnected = errors.New("not connected")

	// ErrAlreadyConnected is returned by Connect outside the idle state.
	ErrAlreadyConnected = errors.New("connection already in progress or established")
)
