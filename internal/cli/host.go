package cli

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/omochice/peerchat/internal/chat"
	"github.com/omochice/peerchat/internal/peer"
)

// Console commands.
const (
	cmdQuit       = "/quit"
	cmdDisconnect = "/disconnect"
	cmdConnect    = "/connect"
)

// controller is the part of peer.Controller the host loop drives.
type controller interface {
	Connect(ctx context.Context, ep chat.Endpoint) error
	Disconnect() error
	Send(text string) error
	PollConnectionState() peer.State
	PollIncomingMessage() peer.Event
	Close()
}

// Host is the single control loop that owns a controller: it feeds typed
// lines in and polls the controller once per tick.
type Host struct {
	ctrl    controller
	console *Console
	logger  *logrus.Logger
	tick    time.Duration
}

// NewHost creates a Host.
func NewHost(ctrl controller, console *Console, logger *logrus.Logger, tick time.Duration) *Host {
	return &Host{
		ctrl:    ctrl,
		console: console,
		logger:  logger,
		tick:    tick,
	}
}

// Run connects to ep and serves the session until ctx is done, lines is
// closed, or the user quits.
func (h *Host) Run(ctx context.Context, ep chat.Endpoint, lines <-chan string) error {
	defer h.ctrl.Close()

	h.console.Notice("Connecting to %s...", ep)
	if err := h.ctrl.Connect(ctx, ep); err != nil {
		return err
	}

	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			var quit bool
			h.guard("line failed", func() {
				quit = h.handleLine(ctx, ep, line)
			})
			if quit {
				return nil
			}
		case <-ticker.C:
			h.guard("tick failed", h.poll)
		}
	}
}

// handleLine acts on one typed line and reports whether to quit.
func (h *Host) handleLine(ctx context.Context, ep chat.Endpoint, line string) bool {
	text := strings.TrimRight(line, "\r\n")
	switch strings.TrimSpace(text) {
	case "":
		return false
	case cmdQuit:
		return true
	case cmdDisconnect:
		if err := h.ctrl.Disconnect(); err != nil {
			h.console.Notice("Not connected.")
		}
		return false
	case cmdConnect:
		if err := h.ctrl.Connect(ctx, ep); err != nil {
			h.console.Notice("Cannot connect: %v", err)
		}
		return false
	}

	if err := h.ctrl.Send(text); err != nil {
		if errors.Is(err, peer.ErrNotConnected) {
			h.console.Notice("Not connected. Type %s to try again or %s to leave.", cmdConnect, cmdQuit)
		} else {
			h.console.Notice("Message not sent: %v", err)
		}
	}
	return false
}

// guard runs fn, logging a panic as msg so the loop keeps going.
func (h *Host) guard(msg string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.WithField("panic", r).Error(msg)
		}
	}()
	fn()
}

// poll runs one tick.
func (h *Host) poll() {
	if h.ctrl.PollConnectionState() == peer.StateConnected {
		h.ctrl.PollIncomingMessage()
	}
}
