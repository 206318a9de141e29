package peer

import (
	"context"
	"io"
	"sync"
)

// mockConn is a chat.Conn fed from a queue of reads.
type mockConn struct {
	mu      sync.Mutex
	reads   [][]byte
	readErr error
	written [][]byte
	closed  bool
}

func (m *mockConn) Read(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, io.EOF
	}
	if len(m.reads) > 0 {
		data := m.reads[0]
		m.reads = m.reads[1:]
		return data, nil
	}
	if m.readErr != nil {
		return nil, m.readErr
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (m *mockConn) Write(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return io.ErrClosedPipe
	}
	m.written = append(m.written, data)
	return nil
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConn) RemoteAddr() string {
	return "mock"
}

func (m *mockConn) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
