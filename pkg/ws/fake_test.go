package ws

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeTransport 记录发送内容的内存传输
type fakeTransport struct {
	mu      sync.Mutex
	frames  [][]byte
	pings   int
	closed  bool
	sendErr error
	pingErr error
}

func (f *fakeTransport) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrConnectionClosed
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeTransport) Ping() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pings++
	return f.pingErr
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) RemoteAddr() string { return "pipe" }

func (f *fakeTransport) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeTransport) pingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pings
}

// decoded 解析已发送的全部帧
func (f *fakeTransport) decoded(t *testing.T) []Frame {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Frame, 0, len(f.frames))
	for _, raw := range f.frames {
		var fr Frame
		require.NoError(t, json.Unmarshal(raw, &fr))
		out = append(out, fr)
	}
	return out
}

// last 最后一帧
func (f *fakeTransport) last(t *testing.T) Frame {
	t.Helper()
	frames := f.decoded(t)
	require.NotEmpty(t, frames)
	return frames[len(frames)-1]
}

func newTestConn(t *testing.T, r *Registry) (*Connection, *fakeTransport) {
	t.Helper()
	ft := &fakeTransport{}
	c, err := r.Register(ft)
	require.NoError(t, err)
	return c, ft
}
