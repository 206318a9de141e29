package protocol_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/omochice/peerchat/pkg/protocol"
)

func TestLengthPrefixFramer_SplitsCoalescedFrames(t *testing.T) {
	f := protocol.LengthPrefixFramer{MaxSize: protocol.MaxFrameSize}

	var stream []byte
	var err error
	for _, p := range []string{"one", "", "three"} {
		stream, err = f.AppendFrame(stream, []byte(p))
		if err != nil {
			t.Fatalf("AppendFrame(%q) error = %v", p, err)
		}
	}

	var got []string
	for len(stream) > 0 {
		payload, n, err := f.NextFrame(stream)
		if err != nil {
			t.Fatalf("NextFrame() error = %v", err)
		}
		if n == 0 {
			t.Fatalf("NextFrame() wants more data with %d bytes left", len(stream))
		}
		got = append(got, string(payload))
		stream = stream[n:]
	}

	want := []string{"one", "", "three"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("frames = %q, want %q", got, want)
	}
}

func TestLengthPrefixFramer_PartialFrame(t *testing.T) {
	f := protocol.LengthPrefixFramer{}
	frame, err := f.AppendFrame(nil, []byte("hello"))
	if err != nil {
		t.Fatalf("AppendFrame() error = %v", err)
	}

	for i := 0; i < len(frame); i++ {
		_, n, err := f.NextFrame(frame[:i])
		if err != nil {
			t.Fatalf("NextFrame(%d bytes) error = %v", i, err)
		}
		if n != 0 {
			t.Fatalf("NextFrame(%d bytes) consumed %d, want 0", i, n)
		}
	}

	payload, n, err := f.NextFrame(frame)
	if err != nil || n != len(frame) || string(payload) != "hello" {
		t.Errorf("NextFrame(full) = %q, %d, %v", payload, n, err)
	}
}

func TestLengthPrefixFramer_TooLarge(t *testing.T) {
	f := protocol.LengthPrefixFramer{MaxSize: 8}

	if _, err := f.AppendFrame(nil, make([]byte, 9)); !errors.Is(err, protocol.ErrFrameTooLarge) {
		t.Errorf("AppendFrame() error = %v, want %v", err, protocol.ErrFrameTooLarge)
	}

	big := protocol.LengthPrefixFramer{MaxSize: 64}
	frame, err := big.AppendFrame(nil, make([]byte, 32))
	if err != nil {
		t.Fatalf("AppendFrame() error = %v", err)
	}
	if _, _, err := f.NextFrame(frame); !errors.Is(err, protocol.ErrFrameTooLarge) {
		t.Errorf("NextFrame() error = %v, want %v", err, protocol.ErrFrameTooLarge)
	}
}

func TestRawFramer_NextFrame(t *testing.T) {
	f := protocol.RawFramer{}

	if _, n, err := f.NextFrame(nil); n != 0 || err != nil {
		t.Errorf("NextFrame(empty) = %d, %v", n, err)
	}

	coalesced := []byte("hiho")
	payload, n, err := f.NextFrame(coalesced)
	if err != nil || n != 4 || string(payload) != "hiho" {
		t.Errorf("NextFrame(coalesced) = %q, %d, %v", payload, n, err)
	}

	long := make([]byte, protocol.MaxTextSize+10)
	_, n, _ = f.NextFrame(long)
	if n != protocol.MaxTextSize {
		t.Errorf("NextFrame(long) consumed %d, want %d", n, protocol.MaxTextSize)
	}
}
