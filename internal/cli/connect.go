package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/omochice/peerchat/internal/chat"
	"github.com/omochice/peerchat/internal/config"
	"github.com/omochice/peerchat/internal/contacts"
	"github.com/omochice/peerchat/internal/peer"
	"github.com/omochice/peerchat/internal/transport/tcp"
	"github.com/omochice/peerchat/internal/transport/ws"
	"github.com/omochice/peerchat/pkg/protocol"
)

type connectOptions struct {
	address    string
	port       int
	peerName   string
	name       string
	listenHost string
	listenPort int
	transport  string
	wire       string
	proxy      string
}

func newConnectCommand(a *app) *cobra.Command {
	o := &connectOptions{}

	cmd := &cobra.Command{
		Use:   "connect [contact]",
		Short: "Chat with a contact or an address",
		Long: `Connect to a peer and chat. The peer must connect back to you at the same time.
Type a line to send it, /disconnect to end the session, /connect to try again and /quit to leave.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConnect(cmd, o, args)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.address, "address", "a", "", "Peer address when no contact is given")
	f.IntVarP(&o.port, "port", "p", chat.DefaultPort, "Peer port when no contact is given")
	f.StringVar(&o.peerName, "peer-name", "", "Name shown for the peer's lines")
	f.StringVarP(&o.name, "name", "n", "", "Name shown for your own lines")
	f.StringVar(&o.listenHost, "listen-host", "", "Local address to listen on")
	f.IntVarP(&o.listenPort, "listen-port", "l", 0, "Local port to listen on")
	f.StringVar(&o.transport, "transport", "", "Transport: tcp or ws")
	f.StringVar(&o.wire, "wire", "", "Wire mode: framed or legacy")
	f.StringVar(&o.proxy, "proxy", "", "SOCKS5 proxy URL for outbound tcp dials")
	return cmd
}

func (o *connectOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("name") {
		cfg.Name = o.name
	}
	if flags.Changed("listen-host") {
		cfg.ListenHost = o.listenHost
	}
	if flags.Changed("listen-port") {
		cfg.ListenPort = o.listenPort
	}
	if flags.Changed("transport") {
		cfg.Transport = o.transport
	}
	if flags.Changed("wire") {
		cfg.Wire = o.wire
	}
	if flags.Changed("proxy") {
		cfg.ProxyURL = o.proxy
	}
}

func (a *app) runConnect(cmd *cobra.Command, o *connectOptions, args []string) error {
	cfg := a.cfg
	o.apply(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ep, err := a.resolveEndpoint(o, args)
	if err != nil {
		return err
	}

	wire, err := protocol.ParseWire(cfg.Wire)
	if err != nil {
		return err
	}
	network, err := newNetwork(cfg, wire)
	if err != nil {
		return err
	}

	console := NewConsole(cmd.OutOrStdout(), cfg.Name)
	ctrl, err := peer.NewController(peer.Options{
		Network:          network,
		Codec:            wire.Codec(),
		Display:          console,
		Logger:           a.logger,
		LocalName:        cfg.Name,
		ListenHost:       cfg.ListenHost,
		ListenPort:       cfg.ListenPort,
		AttemptTimeout:   cfg.AttemptTimeout,
		PollTimeout:      cfg.PollTimeout,
		MaxReceiveErrors: cfg.MaxReceiveErrors,
		Retry:            cfg.Retry,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	host := NewHost(ctrl, console, a.logger, cfg.TickInterval)
	return host.Run(ctx, ep, readLines(ctx, cmd.InOrStdin()))
}

func (a *app) resolveEndpoint(o *connectOptions, args []string) (chat.Endpoint, error) {
	if len(args) == 1 {
		store, err := contacts.Open(a.cfg.ContactsDB)
		if err != nil {
			return chat.Endpoint{}, err
		}
		defer store.Close()

		c, err := store.Get(args[0])
		if err != nil {
			return chat.Endpoint{}, err
		}
		ep := c.Endpoint()
		if o.peerName != "" {
			ep.Name = o.peerName
		}
		return ep, nil
	}

	if o.address == "" {
		return chat.Endpoint{}, errors.New("give a contact name or --address")
	}
	ep := chat.Endpoint{Name: o.peerName, Address: o.address, Port: o.port}
	if ep.Name == "" {
		ep.Name = o.address
	}
	return ep, ep.Validate()
}

func newNetwork(cfg config.Config, wire protocol.Wire) (chat.Network, error) {
	switch cfg.Transport {
	case config.TransportWebSocket:
		return ws.NewNetwork(), nil
	case config.TransportTCP:
		n, err := tcp.NewNetwork(tcp.Options{Framer: wire.Framer(), ProxyURL: cfg.ProxyURL})
		if err != nil {
			return nil, err
		}
		return n, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

// readLines forwards lines of r until EOF or ctx is done.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}
