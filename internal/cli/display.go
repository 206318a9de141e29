package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/omochice/peerchat/internal/peer"
)

// Console is a chat.Display that prints styled lines to a terminal.
type Console struct {
	out       io.Writer
	localName string

	status  lipgloss.Style
	failure lipgloss.Style
	own     lipgloss.Style
	theirs  lipgloss.Style
	notice  lipgloss.Style
}

// NewConsole creates a Console writing to out. Lines sent by localName are
// styled apart from the peer's.
func NewConsole(out io.Writer, localName string) *Console {
	r := lipgloss.NewRenderer(out)
	return &Console{
		out:       out,
		localName: localName,
		status:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		failure:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		own:       r.NewStyle().Foreground(lipgloss.Color("245")),
		theirs:    r.NewStyle().Foreground(lipgloss.Color("229")),
		notice:    r.NewStyle().Italic(true).Foreground(lipgloss.Color("244")),
	}
}

// Append implements chat.Display.
func (c *Console) Append(line string) {
	fmt.Fprintln(c.out, c.style(line).Render(line))
}

// Notice prints a line that is not part of the conversation.
func (c *Console) Notice(format string, args ...any) {
	fmt.Fprintln(c.out, c.notice.Render(fmt.Sprintf(format, args...)))
}

func (c *Console) style(line string) lipgloss.Style {
	switch line {
	case peer.LineConnected, peer.LineDisconnected:
		return c.status
	case peer.LineConnectionFailed:
		return c.failure
	}
	if _, rest, ok := strings.Cut(line, " "); ok && strings.HasPrefix(rest, c.localName+": ") {
		return c.own
	}
	return c.theirs
}
