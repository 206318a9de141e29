package chat

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// DefaultPort is used when a contact or the local listener names no port.
const DefaultPort = 1500

// ErrInvalidPort is returned for ports outside 1-65535.
var ErrInvalidPort = errors.New("port must be between 1 and 65535")

// Endpoint identifies a peer to connect to.
type Endpoint struct {
	Name    string
	Address string
	Port    int
}

// Validate checks that the endpoint can be dialed.
func (e Endpoint) Validate() error {
	if e.Address == "" {
		return errors.New("endpoint address is empty")
	}
	if e.Port < 1 || e.Port > 65535 {
		return fmt.Errorf("endpoint %s: %w", e.Name, ErrInvalidPort)
	}
	return nil
}

// HostPort returns the address in host:port form.
func (e Endpoint) HostPort() string {
	return net.JoinHostPort(e.Address, strconv.Itoa(e.Port))
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s (%s)", e.Name, e.HostPort())
}
