package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errDial = errors.New("connection refused")

// fakeClock 手动触发的定时器
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// active 指定时长的未触发定时器
func (c *fakeClock) active(d time.Duration) *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.timers) - 1; i >= 0; i-- {
		t := c.timers[i]
		if t.d == d && !t.stopped && !t.fired {
			return t
		}
	}
	return nil
}

// fire 同步触发指定时长的定时器
func (c *fakeClock) fire(t *testing.T, d time.Duration) {
	t.Helper()
	tm := c.active(d)
	require.NotNil(t, tm, "no active timer for %v", d)
	c.mu.Lock()
	tm.fired = true
	c.mu.Unlock()
	tm.f()
}

// delays 全部已创建定时器的时长
func (c *fakeClock) delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, 0, len(c.timers))
	for _, t := range c.timers {
		out = append(out, t.d)
	}
	return out
}

// fakeConn 内存连接
type fakeConn struct {
	in       chan []byte
	done     chan struct{}
	once     sync.Once
	mu       sync.Mutex
	writes   [][]byte
	writeErr error
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan []byte, 16), done: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.in:
		return data, nil
	case <-c.done:
		return nil, io.EOF
	}
}

func (c *fakeConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		return io.ErrClosedPipe
	default:
	}
	if c.writeErr != nil {
		return c.writeErr
	}
	c.writes = append(c.writes, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *fakeConn) push(t *testing.T, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	c.in <- data
}

// sent 已写出的消息
func (c *fakeConn) sent(t *testing.T) []map[string]any {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.writes))
	for _, raw := range c.writes {
		var m map[string]any
		require.NoError(t, json.Unmarshal(raw, &m))
		out = append(out, m)
	}
	return out
}

func (c *fakeConn) sentTypes(t *testing.T) []string {
	var types []string
	for _, m := range c.sent(t) {
		types = append(types, m["type"].(string))
	}
	return types
}

// fakeDialer 按 fail 决定是否拨号成功
type fakeDialer struct {
	mu    sync.Mutex
	fail  bool
	dials int
	conns []*fakeConn
}

func (d *fakeDialer) Dial(_ context.Context, _ string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.fail {
		return nil, errDial
	}
	c := newFakeConn()
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) setFail(fail bool) {
	d.mu.Lock()
	d.fail = fail
	d.mu.Unlock()
}

func (d *fakeDialer) last() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.URL = "ws://fintrack.test/ws"
	cfg.Token = "T"
	return cfg
}

func newTestSession(t *testing.T, cfg *Config) (*Session, *fakeDialer, *fakeClock) {
	t.Helper()
	d := &fakeDialer{}
	clk := &fakeClock{}
	s, err := New(cfg, WithDialer(d), WithClock(clk))
	require.NoError(t, err)
	t.Cleanup(s.Disconnect)
	return s, d, clk
}

func waitStatus(t *testing.T, s *Session, want Status) {
	t.Helper()
	require.Eventually(t, func() bool { return s.Status() == want }, time.Second, 5*time.Millisecond,
		"status stuck at %s, want %s", s.Status(), want)
}

// connectAndAuth 连接并完成认证
func connectAndAuth(t *testing.T, s *Session, d *fakeDialer) *fakeConn {
	t.Helper()
	require.NoError(t, s.Connect(context.Background()))
	conn := d.last()
	require.NotNil(t, conn)
	conn.push(t, map[string]string{"type": "welcome", "connectionId": "c1"})
	conn.push(t, map[string]string{"type": "authenticated", "userId": "u1"})
	waitStatus(t, s, StatusAuthenticated)
	return conn
}
