package syncbridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tokmz/fintrack/pkg/logger"
	"github.com/tokmz/fintrack/pkg/ws"
	"github.com/tokmz/fintrack/pkg/wsclient"
)

// Conflict 本地修改晚于最近同步点时收到服务端变更
type Conflict struct {
	Entity   ws.Entity
	Action   ws.Action
	ID       string
	Local    Record
	Server   json.RawMessage
	SyncedAt time.Time
}

// Bridge 将服务端事件映射为本地状态变更
// 冲突固定以服务端为准，OnConflict 只用于通知
type Bridge struct {
	state   State
	fetcher Fetcher
	ts      *SyncTimestamps
	log     logger.Logger
	now     func() time.Time

	onConflict func(Conflict)
	onResync   func(error)

	// 串行化事件应用与全量同步
	mu sync.Mutex
	// journal 非 nil 表示全量拉取进行中，期间应用的事件在替换后重放
	journal []journalEntry

	// resyncMu 同一时刻只有一次全量同步
	resyncMu sync.Mutex
}

type journalEntry struct {
	entity ws.Entity
	action ws.Action
	record Record
}

// Option Bridge 选项
type Option func(*Bridge)

// WithLogger 设置日志
func WithLogger(log logger.Logger) Option {
	return func(b *Bridge) { b.log = log }
}

// WithConflictHandler 冲突通知
func WithConflictHandler(fn func(Conflict)) Option {
	return func(b *Bridge) { b.onConflict = fn }
}

// WithResyncHandler 全量同步完成通知，err 为空表示成功
func WithResyncHandler(fn func(error)) Option {
	return func(b *Bridge) { b.onResync = fn }
}

// WithNow 设置时间来源
func WithNow(now func() time.Time) Option {
	return func(b *Bridge) { b.now = now }
}

// New 创建 Bridge
func New(state State, fetcher Fetcher, opts ...Option) *Bridge {
	b := &Bridge{
		state:   state,
		fetcher: fetcher,
		ts:      NewSyncTimestamps(),
		log:     logger.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.Named("syncbridge")
	return b
}

// Timestamps 同步时间表
func (b *Bridge) Timestamps() *SyncTimestamps {
	return b.ts
}

// OnServerEvent 应用一条服务端事件
func (b *Bridge) OnServerEvent(eventName string, payload json.RawMessage) error {
	entity, action, ok := ws.ParseEventKind(eventName)
	if !ok {
		return ErrUnknownEvent.WithMessage("unknown event: " + eventName)
	}
	id, err := recordID(payload)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	receivedAt := b.now()
	synced := b.ts.Get(entity)
	if local, exists := b.state.Get(entity, id); exists && local.ModifiedAt.After(synced) {
		b.log.Warn("local edit overwritten by server",
			zap.String("entity", string(entity)),
			zap.String("id", id),
			zap.String("action", string(action)),
			zap.Time("local_modified_at", local.ModifiedAt),
			zap.Time("synced_at", synced),
		)
		if b.onConflict != nil {
			b.onConflict(Conflict{
				Entity:   entity,
				Action:   action,
				ID:       id,
				Local:    local,
				Server:   payload,
				SyncedAt: synced,
			})
		}
	}

	rec := Record{ID: id, Data: payload, ModifiedAt: receivedAt}
	b.apply(entity, action, rec)
	if b.journal != nil {
		b.journal = append(b.journal, journalEntry{entity: entity, action: action, record: rec})
	}
	b.ts.Advance(entity, receivedAt)
	return nil
}

// apply 调用方持有 mu
func (b *Bridge) apply(entity ws.Entity, action ws.Action, rec Record) {
	switch action {
	case ws.ActionAdded, ws.ActionUpdated:
		b.state.Put(entity, rec)
	case ws.ActionDeleted:
		b.state.Delete(entity, rec.ID)
	}
}

// RecordLocalEdit 记录本地修改
func (b *Bridge) RecordLocalEdit(entity ws.Entity, id string, data json.RawMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state.Put(entity, Record{ID: id, Data: data, ModifiedAt: b.now()})
}

// Resync 并发拉取全部实体并整体替换本地状态
// 任一拉取失败时不修改本地状态；拉取期间收到的事件在替换后按序重放
func (b *Bridge) Resync(ctx context.Context) error {
	b.resyncMu.Lock()
	defer b.resyncMu.Unlock()

	b.mu.Lock()
	b.journal = []journalEntry{}
	b.mu.Unlock()

	results := make([][]Record, len(ws.Entities))

	g, gctx := errgroup.WithContext(ctx)
	for i, entity := range ws.Entities {
		g.Go(func() error {
			items, err := b.fetcher.Fetch(gctx, entity)
			if err != nil {
				return ErrResync.WithMessage("resync " + string(entity) + " failed").WithError(err)
			}
			recs := make([]Record, 0, len(items))
			for _, item := range items {
				id, err := recordID(item)
				if err != nil {
					return err
				}
				recs = append(recs, Record{ID: id, Data: item})
			}
			results[i] = recs
			return nil
		})
	}
	err := g.Wait()

	b.mu.Lock()
	defer b.mu.Unlock()
	journal := b.journal
	b.journal = nil
	if err != nil {
		b.log.Error("resync failed", zap.Error(err))
		return err
	}

	now := b.now()
	for i, entity := range ws.Entities {
		for j := range results[i] {
			results[i][j].ModifiedAt = now
		}
		b.state.Replace(entity, results[i])
	}
	for _, e := range journal {
		b.apply(e.entity, e.action, e.record)
	}
	b.ts.AdvanceAll(now)
	b.log.Info("resync completed",
		zap.Int("transactions", len(results[0])),
		zap.Int("budgets", len(results[1])),
		zap.Int("savings_goals", len(results[2])),
		zap.Int("replayed", len(journal)),
	)
	return nil
}

// Subscriber 会话订阅接口，由 wsclient.Session 实现
type Subscriber interface {
	OnPersistent(event string, h wsclient.Handler) wsclient.HandlerID
	Off(event string, id wsclient.HandlerID) bool
}

// Attach 订阅领域事件，并在曾认证的会话重连后触发全量同步
// 重连触发的同步由单个协程执行，执行期间的多次触发合并为一次
// 返回取消订阅函数
func (b *Bridge) Attach(ctx context.Context, s Subscriber) func() {
	ctx, cancel := context.WithCancel(ctx)
	trigger := make(chan struct{}, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-trigger:
				err := b.Resync(ctx)
				if b.onResync != nil {
					b.onResync(err)
				}
			}
		}
	}()

	type sub struct {
		event string
		id    wsclient.HandlerID
	}
	var subs []sub

	for _, entity := range ws.Entities {
		for _, action := range []ws.Action{ws.ActionAdded, ws.ActionUpdated, ws.ActionDeleted} {
			event := string(ws.NewEventKind(entity, action))
			id := s.OnPersistent(event, func(msg *wsclient.Message) {
				if err := b.OnServerEvent(msg.Name, msg.Payload); err != nil {
					b.log.Warn("discard server event", zap.String("event", msg.Name), zap.Error(err))
				}
			})
			subs = append(subs, sub{event, id})
		}
	}

	id := s.OnPersistent(wsclient.EventStatus, func(msg *wsclient.Message) {
		ev, err := wsclient.DecodeStatus(msg)
		if err != nil || ev.Status != wsclient.StatusConnected || !ev.Resumed {
			return
		}
		select {
		case trigger <- struct{}{}:
		default:
		}
	})
	subs = append(subs, sub{wsclient.EventStatus, id})

	return func() {
		cancel()
		for _, it := range subs {
			s.Off(it.event, it.id)
		}
	}
}

// recordID 提取 payload 中的 id，支持字符串和数字
func recordID(payload json.RawMessage) (string, error) {
	var p struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return "", ErrInvalidPayload.WithError(err)
	}
	if len(p.ID) == 0 || string(p.ID) == "null" {
		return "", ErrInvalidPayload.WithMessage("event payload has no id")
	}
	var id string
	if err := json.Unmarshal(p.ID, &id); err == nil {
		if id == "" {
			return "", ErrInvalidPayload.WithMessage("event payload has no id")
		}
		return id, nil
	}
	return string(p.ID), nil
}
