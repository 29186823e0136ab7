package ws

import (
	"sync"

	"go.uber.org/zap"

	"github.com/tokmz/fintrack/pkg/logger"
)

// Registry 连接注册表
// 维护连接 ID 索引和用户索引，是实时通道唯一的共享可变状态
type Registry struct {
	mu     sync.RWMutex
	conns  map[string]*Connection
	byUser map[string]map[string]*Connection

	maxConns int
	log      logger.Logger
	metrics  Metrics
}

// NewRegistry 创建注册表
func NewRegistry(maxConns int, log logger.Logger, metrics Metrics) *Registry {
	if log == nil {
		log = logger.NewNop()
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Registry{
		conns:    make(map[string]*Connection),
		byUser:   make(map[string]map[string]*Connection),
		maxConns: maxConns,
		log:      log,
		metrics:  metrics,
	}
}

// Register 为新的传输句柄创建未认证连接
func (r *Registry) Register(t Transport) (*Connection, error) {
	c := newConnection(t)

	r.mu.Lock()
	if r.maxConns > 0 && len(r.conns) >= r.maxConns {
		r.mu.Unlock()
		return nil, ErrTooManyConnections
	}
	r.conns[c.ID] = c
	r.mu.Unlock()

	r.metrics.ConnectionOpened()
	r.log.Debug("connection registered",
		zap.String("conn_id", c.ID),
		zap.String("remote_addr", t.RemoteAddr()),
	)
	return c, nil
}

// Authenticate 绑定用户身份
// 连接已不存在时记录日志并返回 ErrConnectionClosed
func (r *Registry) Authenticate(connID, userID string) error {
	if userID == "" {
		return ErrUnauthenticated
	}

	r.mu.Lock()
	c, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		r.log.Warn("authenticate on unknown connection", zap.String("conn_id", connID))
		return ErrConnectionClosed
	}

	if prev, bound := c.UserID(); bound && prev != userID {
		r.unindex(prev, connID)
	}
	c.bind(userID)
	set, ok := r.byUser[userID]
	if !ok {
		set = make(map[string]*Connection)
		r.byUser[userID] = set
	}
	set[connID] = c
	n := r.authenticatedLocked()
	r.mu.Unlock()

	r.metrics.SetAuthenticated(n)
	return nil
}

// Remove 移除连接，重复移除返回 false
func (r *Registry) Remove(connID string) bool {
	r.mu.Lock()
	c, ok := r.conns[connID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.conns, connID)
	if uid, bound := c.UserID(); bound {
		r.unindex(uid, connID)
	}
	n := r.authenticatedLocked()
	r.mu.Unlock()

	r.metrics.ConnectionClosed()
	r.metrics.SetAuthenticated(n)
	r.log.Debug("connection removed", zap.String("conn_id", connID))
	return true
}

// FindByUser 获取用户的全部连接
func (r *Registry) FindByUser(userID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byUser[userID]
	conns := make([]*Connection, 0, len(set))
	for _, c := range set {
		conns = append(conns, c)
	}
	return conns
}

// AllAuthenticated 获取全部已认证连接
func (r *Registry) AllAuthenticated() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connection, 0, len(r.conns))
	for _, set := range r.byUser {
		for _, c := range set {
			conns = append(conns, c)
		}
	}
	return conns
}

// Get 获取连接
func (r *Registry) Get(connID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[connID]
	return c, ok
}

// Count 连接数
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// AuthenticatedCount 已认证连接数
func (r *Registry) AuthenticatedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.authenticatedLocked()
}

// Snapshot 全部连接快照
func (r *Registry) Snapshot() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	return conns
}

func (r *Registry) unindex(userID, connID string) {
	set := r.byUser[userID]
	delete(set, connID)
	if len(set) == 0 {
		delete(r.byUser, userID)
	}
}

func (r *Registry) authenticatedLocked() int {
	n := 0
	for _, set := range r.byUser {
		n += len(set)
	}
	return n
}
