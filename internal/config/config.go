// Package config holds peerchat settings and their defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/omochice/peerchat/internal/chat"
	"github.com/omochice/peerchat/internal/peer"
	"github.com/omochice/peerchat/pkg/protocol"
)

// Transport names.
const (
	TransportTCP       = "tcp"
	TransportWebSocket = "ws"
)

// Config holds settings for one peerchat process.
type Config struct {
	// Name labels this side's own lines.
	Name string

	ListenHost string
	ListenPort int

	AttemptTimeout time.Duration
	PollTimeout    time.Duration
	TickInterval   time.Duration

	// Transport is "tcp" or "ws".
	Transport string

	// Wire is "framed" or "legacy".
	Wire string

	Retry            peer.RetryPolicy
	MaxReceiveErrors int

	LogFile    string
	LogLevel   string
	ContactsDB string

	// ProxyURL routes tcp dials through a SOCKS5 proxy when set.
	ProxyURL string
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Name:             peer.DefaultLocalName,
		ListenHost:       "",
		ListenPort:       chat.DefaultPort,
		AttemptTimeout:   peer.DefaultAttemptTimeout,
		PollTimeout:      peer.DefaultPollTimeout,
		TickInterval:     10 * time.Millisecond,
		Transport:        TransportTCP,
		Wire:             string(protocol.WireFramed),
		Retry:            peer.DefaultRetryPolicy(),
		MaxReceiveErrors: 5,
		LogFile:          "log/chat_program.log",
		LogLevel:         "info",
		ContactsDB:       "contacts.db",
	}
}

// Load returns the defaults overlaid with PEERCHAT_* environment variables.
func Load() (Config, error) {
	c := Default()
	var errs []error

	c.Name = getEnvOrDefault("PEERCHAT_NAME", c.Name)
	c.ListenHost = getEnvOrDefault("PEERCHAT_LISTEN_HOST", c.ListenHost)
	c.Transport = getEnvOrDefault("PEERCHAT_TRANSPORT", c.Transport)
	c.Wire = getEnvOrDefault("PEERCHAT_WIRE", c.Wire)
	c.LogFile = getEnvOrDefault("PEERCHAT_LOG_FILE", c.LogFile)
	c.LogLevel = getEnvOrDefault("PEERCHAT_LOG_LEVEL", c.LogLevel)
	c.ContactsDB = getEnvOrDefault("PEERCHAT_CONTACTS_DB", c.ContactsDB)
	c.ProxyURL = getEnvOrDefault("PEERCHAT_PROXY_URL", c.ProxyURL)

	ints := []struct {
		key string
		dst *int
	}{
		{"PEERCHAT_LISTEN_PORT", &c.ListenPort},
		{"PEERCHAT_MAX_RECEIVE_ERRORS", &c.MaxReceiveErrors},
		{"PEERCHAT_RETRY_MAX_ATTEMPTS", &c.Retry.MaxAttempts},
	}
	for _, v := range ints {
		if err := envInt(v.key, v.dst); err != nil {
			errs = append(errs, err)
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"PEERCHAT_ATTEMPT_TIMEOUT", &c.AttemptTimeout},
		{"PEERCHAT_POLL_TIMEOUT", &c.PollTimeout},
		{"PEERCHAT_TICK_INTERVAL", &c.TickInterval},
		{"PEERCHAT_RETRY_DELAY", &c.Retry.Delay},
		{"PEERCHAT_RETRY_MAX_DELAY", &c.Retry.MaxDelay},
	}
	for _, v := range durations {
		if err := envDuration(v.key, v.dst); err != nil {
			errs = append(errs, err)
		}
	}

	return c, errors.Join(errs...)
}

// Validate reports every invalid setting in one error.
func (c *Config) Validate() error {
	var problems []string

	if c.ListenPort < 1 || c.ListenPort > 65535 {
		problems = append(problems, fmt.Sprintf("listen port %d out of range", c.ListenPort))
	}
	if c.Transport != TransportTCP && c.Transport != TransportWebSocket {
		problems = append(problems, fmt.Sprintf("unknown transport %q", c.Transport))
	}
	if _, err := protocol.ParseWire(c.Wire); err != nil {
		problems = append(problems, err.Error())
	}
	if c.AttemptTimeout <= 0 {
		problems = append(problems, "attempt timeout must be positive")
	}
	if c.PollTimeout <= 0 {
		problems = append(problems, "poll timeout must be positive")
	}
	if c.TickInterval <= 0 {
		problems = append(problems, "tick interval must be positive")
	}
	if c.MaxReceiveErrors < 0 {
		problems = append(problems, "max receive errors must not be negative")
	}
	if c.Retry.Delay < 0 || c.Retry.MaxDelay < 0 {
		problems = append(problems, "retry delays must not be negative")
	}
	if c.ProxyURL != "" && c.Transport != TransportTCP {
		problems = append(problems, "proxy is only supported with the tcp transport")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// getEnvOrDefault retrieves an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func envInt(key string, dst *int) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}
