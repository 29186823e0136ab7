package syncbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokmz/fintrack/pkg/request"
	"github.com/tokmz/fintrack/pkg/ws"
	"github.com/tokmz/fintrack/pkg/wsclient"
)

// stepClock 每次调用前进一秒
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	return &stepClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type mapFetcher struct {
	mu    sync.Mutex
	data  map[ws.Entity][]json.RawMessage
	err   error
	calls int
}

func (f *mapFetcher) Fetch(_ context.Context, entity ws.Entity) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.data[entity], nil
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }

// TestServerWinsConflict 测试本地修改晚于同步点时以服务端为准
func TestServerWinsConflict(t *testing.T) {
	clk := newStepClock()
	var conflicts []Conflict
	state := NewMemoryState()
	b := New(state, &mapFetcher{}, WithNow(clk.Now), WithConflictHandler(func(c Conflict) {
		conflicts = append(conflicts, c)
	}))

	require.NoError(t, b.OnServerEvent("transaction:added", raw(`{"id":"t1","amount":"10.00"}`)))
	synced := b.Timestamps().Get(ws.EntityTransaction)
	assert.Empty(t, conflicts)

	b.RecordLocalEdit(ws.EntityTransaction, "t1", raw(`{"id":"t1","amount":"99.00"}`))
	local, _ := state.Get(ws.EntityTransaction, "t1")
	require.True(t, local.ModifiedAt.After(synced))

	server := raw(`{"id":"t1","amount":"12.50"}`)
	require.NoError(t, b.OnServerEvent("transaction:updated", server))

	got, ok := state.Get(ws.EntityTransaction, "t1")
	require.True(t, ok)
	assert.Equal(t, string(server), string(got.Data))

	require.Len(t, conflicts, 1)
	assert.Equal(t, "t1", conflicts[0].ID)
	assert.Equal(t, ws.ActionUpdated, conflicts[0].Action)
	assert.JSONEq(t, `{"id":"t1","amount":"99.00"}`, string(conflicts[0].Local.Data))

	after := b.Timestamps().Get(ws.EntityTransaction)
	assert.True(t, after.After(local.ModifiedAt))
	assert.Equal(t, got.ModifiedAt, after)
}

// TestNoConflictForSyncedRecord 测试本地未修改时不产生冲突
func TestNoConflictForSyncedRecord(t *testing.T) {
	clk := newStepClock()
	conflicts := 0
	state := NewMemoryState()
	b := New(state, &mapFetcher{}, WithNow(clk.Now), WithConflictHandler(func(Conflict) { conflicts++ }))

	require.NoError(t, b.OnServerEvent("budget:added", raw(`{"id":"b1","limit":"100"}`)))
	require.NoError(t, b.OnServerEvent("budget:updated", raw(`{"id":"b1","limit":"200"}`)))
	assert.Equal(t, 0, conflicts)

	got, _ := state.Get(ws.EntityBudget, "b1")
	assert.JSONEq(t, `{"id":"b1","limit":"200"}`, string(got.Data))
}

// TestDeleteEvent 测试删除事件
func TestDeleteEvent(t *testing.T) {
	clk := newStepClock()
	state := NewMemoryState()
	b := New(state, &mapFetcher{}, WithNow(clk.Now))

	require.NoError(t, b.OnServerEvent("savingsGoal:added", raw(`{"id":7,"name":"car"}`)))
	_, ok := state.Get(ws.EntitySavingsGoal, "7")
	require.True(t, ok)

	before := b.Timestamps().Get(ws.EntitySavingsGoal)
	require.NoError(t, b.OnServerEvent("savingsGoal:deleted", raw(`{"id":7}`)))
	_, ok = state.Get(ws.EntitySavingsGoal, "7")
	assert.False(t, ok)
	assert.True(t, b.Timestamps().Get(ws.EntitySavingsGoal).After(before))
}

// TestInvalidEvents 测试未知事件和无效 payload
func TestInvalidEvents(t *testing.T) {
	state := NewMemoryState()
	b := New(state, &mapFetcher{})

	assert.ErrorIs(t, b.OnServerEvent("user:added", raw(`{"id":"u1"}`)), ErrUnknownEvent)
	assert.ErrorIs(t, b.OnServerEvent("transaction:added", raw(`{"amount":"1"}`)), ErrInvalidPayload)
	assert.ErrorIs(t, b.OnServerEvent("transaction:added", raw(`{"id":""}`)), ErrInvalidPayload)
	assert.ErrorIs(t, b.OnServerEvent("transaction:added", raw(`[]`)), ErrInvalidPayload)
	assert.True(t, b.Timestamps().Get(ws.EntityTransaction).IsZero())
}

// TestSyncTimestampsMonotonic 测试同步时间单调不减
func TestSyncTimestampsMonotonic(t *testing.T) {
	ts := NewSyncTimestamps()
	t0 := time.Now()

	assert.Equal(t, t0, ts.Advance(ws.EntityBudget, t0))
	assert.Equal(t, t0, ts.Advance(ws.EntityBudget, t0.Add(-time.Minute)))
	assert.Equal(t, t0.Add(time.Minute), ts.Advance(ws.EntityBudget, t0.Add(time.Minute)))
	assert.True(t, ts.Get(ws.EntityTransaction).IsZero())

	ts.AdvanceAll(t0.Add(time.Hour))
	for _, e := range ws.Entities {
		assert.Equal(t, t0.Add(time.Hour), ts.Get(e))
	}
}

// TestResyncReplacesState 测试全量同步整体替换本地状态
func TestResyncReplacesState(t *testing.T) {
	clk := newStepClock()
	state := NewMemoryState()
	fetcher := &mapFetcher{data: map[ws.Entity][]json.RawMessage{
		ws.EntityTransaction: {raw(`{"id":"t1"}`), raw(`{"id":"t2"}`)},
		ws.EntityBudget:      {raw(`{"id":"b1"}`)},
	}}
	b := New(state, fetcher, WithNow(clk.Now))

	b.RecordLocalEdit(ws.EntityTransaction, "stale", raw(`{"id":"stale"}`))
	b.RecordLocalEdit(ws.EntitySavingsGoal, "g1", raw(`{"id":"g1"}`))

	require.NoError(t, b.Resync(context.Background()))
	assert.Equal(t, 3, fetcher.calls)

	ids := func(e ws.Entity) []string {
		var out []string
		for _, r := range state.List(e) {
			out = append(out, r.ID)
		}
		return out
	}
	assert.Equal(t, []string{"t1", "t2"}, ids(ws.EntityTransaction))
	assert.Equal(t, []string{"b1"}, ids(ws.EntityBudget))
	assert.Empty(t, ids(ws.EntitySavingsGoal))

	synced := b.Timestamps().Get(ws.EntityTransaction)
	for _, e := range ws.Entities {
		assert.Equal(t, synced, b.Timestamps().Get(e))
	}
	rec, _ := state.Get(ws.EntityTransaction, "t1")
	assert.Equal(t, synced, rec.ModifiedAt)
}

// TestResyncFailureKeepsState 测试拉取失败时不修改本地状态
func TestResyncFailureKeepsState(t *testing.T) {
	state := NewMemoryState()
	fetcher := &mapFetcher{err: fmt.Errorf("offline")}
	b := New(state, fetcher)
	b.RecordLocalEdit(ws.EntityBudget, "b1", raw(`{"id":"b1"}`))

	err := b.Resync(context.Background())
	assert.ErrorIs(t, err, ErrResync)
	_, ok := state.Get(ws.EntityBudget, "b1")
	assert.True(t, ok)
	assert.True(t, b.Timestamps().Get(ws.EntityBudget).IsZero())
}

// gateFetcher 首次拉取 transaction 时阻塞，直到 release 关闭
type gateFetcher struct {
	data    map[ws.Entity][]json.RawMessage
	started chan struct{}
	release chan struct{}
	once    sync.Once

	mu    sync.Mutex
	calls int
}

func newGateFetcher(data map[ws.Entity][]json.RawMessage) *gateFetcher {
	return &gateFetcher{data: data, started: make(chan struct{}), release: make(chan struct{})}
}

func (f *gateFetcher) Fetch(ctx context.Context, entity ws.Entity) ([]json.RawMessage, error) {
	if entity == ws.EntityTransaction {
		f.mu.Lock()
		f.calls++
		f.mu.Unlock()
		f.once.Do(func() { close(f.started) })
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.data[entity], nil
}

func (f *gateFetcher) transactionCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// TestResyncReplaysConcurrentEvents 测试拉取期间收到的事件不被旧快照覆盖
func TestResyncReplaysConcurrentEvents(t *testing.T) {
	clk := newStepClock()
	state := NewMemoryState()
	fetcher := newGateFetcher(map[ws.Entity][]json.RawMessage{
		ws.EntityTransaction: {raw(`{"id":"t0"}`)},
		ws.EntityBudget:      {raw(`{"id":"b1","limit":"100"}`)},
	})
	b := New(state, fetcher, WithNow(clk.Now))

	done := make(chan error, 1)
	go func() { done <- b.Resync(context.Background()) }()
	<-fetcher.started

	require.NoError(t, b.OnServerEvent("transaction:added", raw(`{"id":"t1"}`)))
	require.NoError(t, b.OnServerEvent("budget:deleted", raw(`{"id":"b1"}`)))
	close(fetcher.release)
	require.NoError(t, <-done)

	_, ok := state.Get(ws.EntityTransaction, "t0")
	assert.True(t, ok)
	_, ok = state.Get(ws.EntityTransaction, "t1")
	assert.True(t, ok, "拉取期间新增的记录应保留")
	_, ok = state.Get(ws.EntityBudget, "b1")
	assert.False(t, ok, "拉取期间删除的记录不应被快照恢复")

	// 重放只针对该次同步
	require.NoError(t, b.Resync(context.Background()))
	_, ok = state.Get(ws.EntityTransaction, "t1")
	assert.False(t, ok)
}

// TestAttachCoalescesResync 测试同步进行中的多次重连只追加一次同步
func TestAttachCoalescesResync(t *testing.T) {
	state := NewMemoryState()
	fetcher := newGateFetcher(map[ws.Entity][]json.RawMessage{
		ws.EntityTransaction: {raw(`{"id":"t1"}`)},
	})
	resynced := make(chan error, 4)
	b := New(state, fetcher, WithResyncHandler(func(err error) { resynced <- err }))
	sub := &fakeSubscriber{}
	detach := b.Attach(context.Background(), sub)
	defer detach()

	resumed := wsclient.StatusEvent{Status: wsclient.StatusConnected, Resumed: true}
	sub.emit(wsclient.EventStatus, resumed)
	<-fetcher.started
	sub.emit(wsclient.EventStatus, resumed)
	sub.emit(wsclient.EventStatus, resumed)
	close(fetcher.release)

	for i := 0; i < 2; i++ {
		select {
		case err := <-resynced:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("resync not triggered")
		}
	}
	assert.Never(t, func() bool { return len(resynced) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, 2, fetcher.transactionCalls())
}

// fakeSubscriber 记录持久处理器
type fakeSubscriber struct {
	mu       sync.Mutex
	next     wsclient.HandlerID
	handlers map[string]map[wsclient.HandlerID]wsclient.Handler
}

func (s *fakeSubscriber) OnPersistent(event string, h wsclient.Handler) wsclient.HandlerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handlers == nil {
		s.handlers = make(map[string]map[wsclient.HandlerID]wsclient.Handler)
	}
	if s.handlers[event] == nil {
		s.handlers[event] = make(map[wsclient.HandlerID]wsclient.Handler)
	}
	s.next++
	s.handlers[event][s.next] = h
	return s.next
}

func (s *fakeSubscriber) Off(event string, id wsclient.HandlerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.handlers[event][id]; !ok {
		return false
	}
	delete(s.handlers[event], id)
	return true
}

func (s *fakeSubscriber) emit(name string, payload any) {
	data, _ := json.Marshal(payload)
	s.mu.Lock()
	var hs []wsclient.Handler
	for _, h := range s.handlers[name] {
		hs = append(hs, h)
	}
	s.mu.Unlock()
	for _, h := range hs {
		h(&wsclient.Message{Name: name, Payload: data})
	}
}

func (s *fakeSubscriber) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.handlers {
		n += len(m)
	}
	return n
}

// TestAttach 测试订阅事件与重连后全量同步
func TestAttach(t *testing.T) {
	state := NewMemoryState()
	fetcher := &mapFetcher{data: map[ws.Entity][]json.RawMessage{
		ws.EntityTransaction: {raw(`{"id":"t9"}`)},
	}}
	resynced := make(chan error, 1)
	b := New(state, fetcher, WithResyncHandler(func(err error) { resynced <- err }))
	sub := &fakeSubscriber{}

	detach := b.Attach(context.Background(), sub)
	assert.Equal(t, 10, sub.count())

	sub.emit("transaction:added", map[string]string{"id": "t1"})
	_, ok := state.Get(ws.EntityTransaction, "t1")
	assert.True(t, ok)

	// 首次连接不触发同步
	sub.emit(wsclient.EventStatus, wsclient.StatusEvent{Status: wsclient.StatusConnected})
	sub.emit(wsclient.EventStatus, wsclient.StatusEvent{Status: wsclient.StatusAuthenticated})
	assert.Equal(t, 0, fetcher.calls)

	sub.emit(wsclient.EventStatus, wsclient.StatusEvent{Status: wsclient.StatusConnected, Resumed: true})
	select {
	case err := <-resynced:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("resync not triggered")
	}
	_, ok = state.Get(ws.EntityTransaction, "t9")
	assert.True(t, ok)
	_, ok = state.Get(ws.EntityTransaction, "t1")
	assert.False(t, ok)

	detach()
	assert.Equal(t, 0, sub.count())
}

// TestRESTFetcher 测试通过 REST 接口拉取集合
func TestRESTFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/savings-goals", r.URL.Path)
		assert.Equal(t, "Bearer T", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":200,"data":[{"id":"g1"},{"id":"g2"}],"message":"ok"}`))
	}))
	defer srv.Close()

	f := NewRESTFetcher(request.New(request.WithBaseURL(srv.URL)), func() string { return "T" })
	items, err := f.Fetch(context.Background(), ws.EntitySavingsGoal)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.JSONEq(t, `{"id":"g2"}`, string(items[1]))

	_, err = f.Fetch(context.Background(), ws.Entity("user"))
	assert.ErrorIs(t, err, ErrUnknownEvent)
}
