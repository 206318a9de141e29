package tcp_test

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/omochice/peerchat/internal/chat"
	"github.com/omochice/peerchat/internal/transport/tcp"
	"github.com/omochice/peerchat/pkg/protocol"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestConn_ImplementsInterface(t *testing.T) {
	var _ chat.Conn = (*tcp.Conn)(nil)
}

func TestConn_Read_Raw(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	conn := tcp.NewConn(client, protocol.RawFramer{})

	go func() {
		server.Write([]byte("test message"))
		server.Close()
	}()

	data, err := conn.Read(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "test message" {
		t.Errorf("Read() = %q, want %q", string(data), "test message")
	}
}

func TestConn_Read_FrameSplitAcrossWrites(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	conn := tcp.NewConn(client, protocol.LengthPrefixFramer{})
	frame := protowire.AppendBytes(nil, []byte("hello"))

	go func() {
		server.Write(frame[:3])
		time.Sleep(10 * time.Millisecond)
		server.Write(frame[3:])
	}()

	data, err := conn.Read(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("Read() = %q, want %q", string(data), "hello")
	}
}

func TestConn_Read_CoalescedFrames(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	conn := tcp.NewConn(client, protocol.LengthPrefixFramer{})
	var frames []byte
	frames = protowire.AppendBytes(frames, []byte("one"))
	frames = protowire.AppendBytes(frames, []byte("two"))

	go server.Write(frames)

	for _, want := range []string{"one", "two"} {
		data, err := conn.Read(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != want {
			t.Errorf("Read() = %q, want %q", string(data), want)
		}
	}
}

func TestConn_Read_TimeoutKeepsPartialFrame(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	conn := tcp.NewConn(client, protocol.LengthPrefixFramer{})
	frame := protowire.AppendBytes(nil, []byte("later"))

	go server.Write(frame[:2])

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	_, err := conn.Read(ctx)
	cancel()
	if !chat.IsTimeout(err) {
		t.Fatalf("Read() error = %v, want timeout", err)
	}

	go server.Write(frame[2:])

	data, err := conn.Read(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "later" {
		t.Errorf("Read() = %q, want %q", string(data), "later")
	}
}

// loopbackPair returns both ends of a real TCP connection on 127.0.0.1.
func loopbackPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer l.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := l.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- conn
	}()

	client, err := net.Dial("tcp", l.Addr().String())
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	server, ok := <-accepted
	if !ok {
		client.Close()
		t.Fatal("failed to accept")
	}
	return server, client
}

func TestConn_Read_EOF(t *testing.T) {
	server, client := loopbackPair(t)
	defer client.Close()

	conn := tcp.NewConn(client, protocol.LengthPrefixFramer{})
	server.Close()

	_, err := conn.Read(context.Background())
	if !errors.Is(err, io.EOF) {
		t.Errorf("Read() error = %v, want %v", err, io.EOF)
	}
}

func TestConn_Write(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	conn := tcp.NewConn(client, protocol.LengthPrefixFramer{})

	go func() {
		err := conn.Write(context.Background(), []byte("hello"))
		if err != nil {
			t.Errorf("Write() error = %v", err)
		}
	}()

	buf := make([]byte, 1024)
	n, err := server.Read(buf)
	if err != nil {
		t.Fatalf("server read error: %v", err)
	}
	want := protowire.AppendBytes(nil, []byte("hello"))
	if string(buf[:n]) != string(want) {
		t.Errorf("server received %q, want %q", buf[:n], want)
	}
}

func TestConn_Write_TooLarge(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	conn := tcp.NewConn(client, protocol.RawFramer{})

	err := conn.Write(context.Background(), make([]byte, protocol.MaxTextSize+1))
	if !errors.Is(err, protocol.ErrFrameTooLarge) {
		t.Errorf("Write() error = %v, want %v", err, protocol.ErrFrameTooLarge)
	}
}

func TestConn_Close(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	conn := tcp.NewConn(client, protocol.RawFramer{})

	err := conn.Close()
	if err != nil {
		t.Errorf("Close() error = %v", err)
	}

	_, err = client.Read(make([]byte, 1))
	if err == nil {
		t.Error("expected error after close, got nil")
	}
}

func TestConn_RemoteAddr(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	conn := tcp.NewConn(client, protocol.RawFramer{})

	addr := conn.RemoteAddr()
	if addr == "" {
		t.Error("RemoteAddr() returned empty string")
	}
}
