package chat

import (
	"strings"
	"sync"
	"time"
)

// Display receives lines for the chat window.
type Display interface {
	Append(line string)
}

// FormatLine renders a chat line the way the message window shows it.
func FormatLine(ts time.Time, sender, text string) string {
	return ts.Format(time.TimeOnly) + " " + sender + ": " + text
}

// Transcript is an in-memory Display that keeps every line in order.
type Transcript struct {
	lines []string
	mu    sync.RWMutex
}

// NewTranscript creates an empty Transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append implements Display.
func (t *Transcript) Append(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
}

// Lines returns a copy of the lines appended so far.
func (t *Transcript) Lines() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}

// Len returns number of lines.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.lines)
}

// String returns the transcript as the multi-line text of the message box.
func (t *Transcript) String() string {
	return strings.Join(t.Lines(), "\n")
}
