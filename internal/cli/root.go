// Package cli implements the peerchat command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/omochice/peerchat/internal/config"
	"github.com/omochice/peerchat/internal/logging"
)

// app carries what the persistent pre-run sets up for subcommands.
type app struct {
	cfg     config.Config
	logger  *logrus.Logger
	logFile io.Closer

	verbose    bool
	logLevel   string
	logPath    string
	contactsDB string
}

// NewRootCommand builds the peerchat command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "peerchat",
		Short:         "Peer-to-peer chat over TCP or WebSocket",
		Long:          `peerchat connects two users directly: each side listens for the other and dials the other at the same time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.teardown()
		},
	}

	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging (debug level)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logPath, "log-file", "", "Log file path, \"-\" for stderr")
	root.PersistentFlags().StringVar(&a.contactsDB, "contacts", "", "Contacts database path")

	root.AddCommand(newConnectCommand(a))
	root.AddCommand(newContactsCommand(a))
	return root
}

// Execute runs the root command
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}
	if flags.Changed("log-file") {
		cfg.LogFile = a.logPath
	}
	if flags.Changed("contacts") {
		cfg.ContactsDB = a.contactsDB
	}
	a.cfg = cfg

	var out io.Writer = cmd.ErrOrStderr()
	if cfg.LogFile != "" && cfg.LogFile != "-" {
		f, err := logging.OpenFile(cfg.LogFile)
		if err != nil {
			return err
		}
		a.logFile = f
		out = f
	}
	a.logger = logging.New(cfg.LogLevel, out)
	a.logger.WithField("command", cmd.Name()).Debug("starting")
	return nil
}

func (a *app) teardown() {
	if a.logFile != nil {
		_ = a.logFile.Close()
		a.logFile = nil
	}
}
