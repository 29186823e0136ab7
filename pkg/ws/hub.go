package ws

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tokmz/fintrack/pkg/logger"
)

// Hub 实时通道核心
// 组合注册表、存活检测、认证握手、事件分发和消息路由
type Hub struct {
	config   *Config
	upgrader *websocket.Upgrader
	log      logger.Logger
	metrics  Metrics

	registry   *Registry
	monitor    *LivenessMonitor
	auth       *Authenticator
	dispatcher *Dispatcher
	router     *Router

	// 生命周期
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
	closed  atomic.Bool
	// admit 串行化连接准入与关闭，关闭开始后不再有 wg.Add
	admit sync.Mutex
}

// HubOption Hub 选项
type HubOption func(*Hub)

// WithLogger 设置日志
func WithLogger(log logger.Logger) HubOption {
	return func(h *Hub) { h.log = log }
}

// WithMetrics 设置监控
func WithMetrics(m Metrics) HubOption {
	return func(h *Hub) { h.metrics = m }
}

// NewHub 创建 Hub
func NewHub(cfg *Config, verifier TokenVerifier, opts ...HubOption) (*Hub, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if verifier == nil {
		return nil, ErrInvalidConfig.WithMessage("token verifier is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		config:   cfg,
		upgrader: newUpgrader(cfg),
		log:      logger.NewNop(),
		metrics:  NoopMetrics{},
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.Named("ws")

	h.registry = NewRegistry(cfg.MaxConnections, h.log, h.metrics)
	h.monitor = NewLivenessMonitor(h.registry, cfg.HeartbeatInterval, h.log, h.metrics)
	h.auth = NewAuthenticator(h.registry, verifier, h.log, h.metrics)
	h.dispatcher = NewDispatcher(h.registry, h.log, h.metrics)
	h.router = NewRouter(h.log)

	if err := h.registerBuiltins(); err != nil {
		cancel()
		return nil, err
	}
	return h, nil
}

func (h *Hub) registerBuiltins() error {
	if err := h.router.Register(KindAuthenticate, func(ctx context.Context, c *Connection, msg *Inbound) error {
		// 认证结果已由 Authenticator 回复
		_, _ = h.auth.Handle(ctx, c, msg.Token)
		return nil
	}); err != nil {
		return err
	}
	return h.router.Register(KindPing, func(_ context.Context, c *Connection, _ *Inbound) error {
		c.MarkAlive()
		return c.Send(pongFrame())
	})
}

// Registry 连接注册表
func (h *Hub) Registry() *Registry { return h.registry }

// Dispatcher 事件分发器
func (h *Hub) Dispatcher() *Dispatcher { return h.dispatcher }

// Router 消息路由器，用于注册领域变更处理器
func (h *Hub) Router() *Router { return h.router }

// Monitor 存活检测器
func (h *Hub) Monitor() *LivenessMonitor { return h.monitor }

// Run 启动存活检测
func (h *Hub) Run() error {
	h.admit.Lock()
	defer h.admit.Unlock()
	if h.closed.Load() {
		return ErrConnectionClosed
	}
	if !h.running.CompareAndSwap(false, true) {
		return nil
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.monitor.Run(h.ctx)
	}()
	return nil
}

// ServeHTTP 实现 http.Handler
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.HandleUpgrade(w, r); err != nil {
		h.log.Debug("upgrade failed", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
	}
}

// HandleUpgrade 升级连接并启动读写协程
func (h *Hub) HandleUpgrade(w http.ResponseWriter, r *http.Request) error {
	if h.closed.Load() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return ErrConnectionClosed
	}
	if h.registry.Count() >= h.config.MaxConnections {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return ErrTooManyConnections
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	t := newTransport(conn, h.config)

	h.admit.Lock()
	defer h.admit.Unlock()
	if h.closed.Load() {
		_ = conn.Close()
		return ErrConnectionClosed
	}
	c, err := h.registry.Register(t)
	if err != nil {
		_ = t.Close()
		return err
	}

	// welcome 先于读协程入队，客户端收到的第一帧总是 welcome
	if err := c.Send(welcomeFrame(c.ID)); err != nil {
		h.log.Debug("send welcome failed", zap.String("conn_id", c.ID), zap.Error(err))
	}

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		t.writePump()
	}()
	go func() {
		defer h.wg.Done()
		h.readPump(c, conn)
	}()
	return nil
}

// readPump 读取上行消息直到连接断开
func (h *Hub) readPump(c *Connection, conn *websocket.Conn) {
	defer func() {
		_ = c.Close()
		h.registry.Remove(c.ID)
	}()

	conn.SetReadLimit(h.config.MaxMessageSize)
	conn.SetPongHandler(func(string) error {
		c.MarkAlive()
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				h.log.Debug("connection read error", zap.String("conn_id", c.ID), zap.Error(err))
			}
			return
		}

		msg, err := DecodeInbound(data)
		if err != nil {
			h.metrics.InvalidMessage()
			if int(c.malformed.Add(1)) > h.config.MaxMalformed {
				h.log.Warn("too many malformed messages, closing", zap.String("conn_id", c.ID))
				return
			}
			_ = c.Send(errorFrame("", ErrInvalidMessage.Message))
			continue
		}
		c.malformed.Store(0)

		ctx := logger.WithConnID(h.ctx, c.ID)
		if uid, ok := c.UserID(); ok {
			ctx = logger.WithUserID(ctx, uid)
		}
		if err := h.router.Route(ctx, c, msg); err != nil {
			h.log.DebugContext(ctx, "message rejected", zap.String("type", string(msg.Kind())), zap.Error(err))
		}
	}
}

// Shutdown 优雅关闭：停止检测、关闭全部连接并等待协程退出
func (h *Hub) Shutdown(ctx context.Context) error {
	h.admit.Lock()
	swapped := h.closed.CompareAndSwap(false, true)
	h.admit.Unlock()
	if !swapped {
		return nil
	}
	h.cancel()

	for _, c := range h.registry.Snapshot() {
		_ = c.Close()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
