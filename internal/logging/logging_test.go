package logging_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/omochice/peerchat/internal/logging"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"INFO", logrus.InfoLevel},
		{"warn", logrus.WarnLevel},
		{"warning", logrus.WarnLevel},
		{" error ", logrus.ErrorLevel},
		{"", logrus.InfoLevel},
		{"loud", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := logging.ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNew_LineFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New("info", &buf)

	logger.WithFields(logrus.Fields{"peer": "bob", "attempt": "a1"}).Info("connected")

	line := strings.TrimSuffix(buf.String(), "\n")
	pattern := `^INFO \d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2} connected attempt=a1 peer=bob$`
	if !regexp.MustCompile(pattern).MatchString(line) {
		t.Errorf("log line = %q, want match %q", line, pattern)
	}
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New("warn", &buf)

	logger.Info("hidden")
	logger.WithError(errors.New("boom")).Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("output %q contains a filtered entry", out)
	}
	if !strings.HasPrefix(out, "WARNING ") || !strings.Contains(out, "error=boom") {
		t.Errorf("output = %q, want a WARNING line with error=boom", out)
	}
}

func TestOpenFile_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log", "chat_program.log")

	for _, msg := range []string{"first", "second"} {
		f, err := logging.OpenFile(path)
		if err != nil {
			t.Fatalf("OpenFile() error = %v", err)
		}
		logging.New("info", f).Info(msg)
		f.Close()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got := strings.Count(string(data), "\n"); got != 2 {
		t.Errorf("log file has %d lines, want 2:\n%s", got, data)
	}
}
