package ws

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Transport 底层传输句柄
// Send 必须非阻塞，队列满或已关闭时直接返回错误
type Transport interface {
	Send(data []byte) error
	Ping() error
	Close() error
	RemoteAddr() string
}

// Connection 一条实时连接
// userID 非空当且仅当已认证，身份只由 Registry 修改
type Connection struct {
	ID          string
	ConnectedAt time.Time

	transport Transport
	alive     atomic.Bool
	malformed atomic.Int32

	mu     sync.RWMutex
	userID string
}

func newConnection(t Transport) *Connection {
	c := &Connection{
		ID:          uuid.NewString(),
		ConnectedAt: time.Now(),
		transport:   t,
	}
	c.alive.Store(true)
	return c
}

// UserID 绑定的用户，未认证时返回 false
func (c *Connection) UserID() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID, c.userID != ""
}

// Authenticated 是否已认证
func (c *Connection) Authenticated() bool {
	_, ok := c.UserID()
	return ok
}

// MarkAlive 收到存活响应
func (c *Connection) MarkAlive() {
	c.alive.Store(true)
}

// IsAlive 存活标记
func (c *Connection) IsAlive() bool {
	return c.alive.Load()
}

// RemoteAddr 远端地址
func (c *Connection) RemoteAddr() string {
	return c.transport.RemoteAddr()
}

// Send 序列化并投递一帧
func (c *Connection) Send(f *Frame) error {
	data, err := f.Encode()
	if err != nil {
		return err
	}
	return c.transport.Send(data)
}

// SendRaw 投递已序列化的数据
func (c *Connection) SendRaw(data []byte) error {
	return c.transport.Send(data)
}

// Close 关闭底层传输
func (c *Connection) Close() error {
	return c.transport.Close()
}

func (c *Connection) bind(userID string) {
	c.mu.Lock()
	c.userID = userID
	c.mu.Unlock()
}
