package ws

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestMonitorEvictsOnSecondMiss 测试未响应连接在第二轮被驱逐
func TestMonitorEvictsOnSecondMiss(t *testing.T) {
	r := NewRegistry(10, nil, nil)
	m := NewLivenessMonitor(r, time.Second, nil, nil)
	c, ft := newTestConn(t, r)

	assert.Equal(t, 0, m.Sweep())
	assert.Equal(t, 1, ft.pingCount())
	assert.False(t, c.IsAlive())
	assert.False(t, ft.isClosed())
	assert.Equal(t, 1, r.Count())

	assert.Equal(t, 1, m.Sweep())
	assert.True(t, ft.isClosed())
	assert.Equal(t, 0, r.Count())
	assert.Equal(t, 1, ft.pingCount())
}

// TestMonitorKeepsResponsive 测试收到 pong 的连接保持存活
func TestMonitorKeepsResponsive(t *testing.T) {
	r := NewRegistry(10, nil, nil)
	m := NewLivenessMonitor(r, time.Second, nil, nil)
	c, ft := newTestConn(t, r)

	for i := 0; i < 5; i++ {
		assert.Equal(t, 0, m.Sweep())
		c.MarkAlive()
	}
	assert.Equal(t, 5, ft.pingCount())
	assert.False(t, ft.isClosed())
	assert.Equal(t, 1, r.Count())
}

// TestMonitorPingFailure 测试探测失败时按未响应处理
func TestMonitorPingFailure(t *testing.T) {
	r := NewRegistry(10, nil, nil)
	m := NewLivenessMonitor(r, time.Second, nil, nil)
	_, ft := newTestConn(t, r)
	ft.pingErr = ErrConnectionClosed

	assert.Equal(t, 0, m.Sweep())
	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 0, r.Count())
}

// TestMonitorRemovesFromUserIndex 测试驱逐后不再出现在用户索引中
func TestMonitorRemovesFromUserIndex(t *testing.T) {
	r := NewRegistry(10, nil, nil)
	m := NewLivenessMonitor(r, time.Second, nil, nil)
	dead, _ := newTestConn(t, r)
	live, _ := newTestConn(t, r)
	_ = r.Authenticate(dead.ID, "u1")
	_ = r.Authenticate(live.ID, "u1")

	m.Sweep()
	live.MarkAlive()
	m.Sweep()

	assert.Equal(t, []string{live.ID}, ids(r.FindByUser("u1")))
}

// TestMonitorRun 测试周期运行与取消
func TestMonitorRun(t *testing.T) {
	r := NewRegistry(10, nil, nil)
	m := NewLivenessMonitor(r, 10*time.Millisecond, nil, nil)
	_, ft := newTestConn(t, r)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, ft.isClosed, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, r.Count())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}
