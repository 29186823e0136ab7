package syncbridge

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/tokmz/fintrack/pkg/ws"
)

// Record 本地保存的一条实体
type Record struct {
	ID         string
	Data       json.RawMessage
	ModifiedAt time.Time
}

// State 本地状态容器
type State interface {
	Get(entity ws.Entity, id string) (Record, bool)
	Put(entity ws.Entity, rec Record)
	Delete(entity ws.Entity, id string)
	Replace(entity ws.Entity, recs []Record)
}

// MemoryState 内存实现
type MemoryState struct {
	mu   sync.RWMutex
	data map[ws.Entity]map[string]Record
}

// NewMemoryState 创建内存状态
func NewMemoryState() *MemoryState {
	return &MemoryState{data: make(map[ws.Entity]map[string]Record)}
}

func (s *MemoryState) Get(entity ws.Entity, id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[entity][id]
	return rec, ok
}

func (s *MemoryState) Put(entity ws.Entity, rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.data[entity]
	if !ok {
		m = make(map[string]Record)
		s.data[entity] = m
	}
	m[rec.ID] = rec
}

func (s *MemoryState) Delete(entity ws.Entity, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data[entity], id)
}

func (s *MemoryState) Replace(entity ws.Entity, recs []Record) {
	m := make(map[string]Record, len(recs))
	for _, rec := range recs {
		m[rec.ID] = rec
	}
	s.mu.Lock()
	s.data[entity] = m
	s.mu.Unlock()
}

// List 按 ID 排序列出实体
func (s *MemoryState) List(entity ws.Entity) []Record {
	s.mu.RLock()
	recs := make([]Record, 0, len(s.data[entity]))
	for _, rec := range s.data[entity] {
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	return recs
}

// SyncTimestamps 每类实体最近一次同步时间，单调不减
type SyncTimestamps struct {
	mu sync.RWMutex
	ts map[ws.Entity]time.Time
}

// NewSyncTimestamps 创建同步时间表
func NewSyncTimestamps() *SyncTimestamps {
	return &SyncTimestamps{ts: make(map[ws.Entity]time.Time)}
}

// Get 获取同步时间，未同步过为零值
func (t *SyncTimestamps) Get(entity ws.Entity) time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ts[entity]
}

// Advance 推进同步时间，早于当前值时忽略
func (t *SyncTimestamps) Advance(entity ws.Entity, at time.Time) time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur := t.ts[entity]; at.After(cur) {
		t.ts[entity] = at
	}
	return t.ts[entity]
}

// AdvanceAll 推进全部实体的同步时间
func (t *SyncTimestamps) AdvanceAll(at time.Time) {
	for _, e := range ws.Entities {
		t.Advance(e, at)
	}
}
