package wsclient

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tokmz/fintrack/pkg/logger"
)

// Session 客户端实时会话
// 负责连接、认证、指数退避重连、心跳检测和离线消息排队
type Session struct {
	cfg    *Config
	dialer Dialer
	clock  Clock
	log    logger.Logger

	handlers *handlerSet

	mu                sync.Mutex
	status            Status
	conn              Conn
	gen               uint64 // 每次建立或丢弃连接递增，过期回调据此忽略
	token             string
	connectionID      string
	attempts          int
	authFailures      int // 连续认证失败次数，只在认证成功或更换凭据时清零
	missed            int
	queue             [][]byte
	dialing           bool
	closed            bool
	everAuthenticated bool
	reconnectTimer    Timer
	heartbeatTimer    Timer
	authTimer         Timer
	pending           []StatusEvent
}

// Option 会话选项
type Option func(*Session)

// WithDialer 设置拨号器
func WithDialer(d Dialer) Option {
	return func(s *Session) { s.dialer = d }
}

// WithClock 设置定时器来源
func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithLogger 设置日志
func WithLogger(log logger.Logger) Option {
	return func(s *Session) { s.log = log }
}

// New 创建会话
func New(cfg *Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		return nil, ErrInvalidConfig.WithMessage("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		cfg:      cfg,
		dialer:   &WebsocketDialer{},
		clock:    realClock{},
		log:      logger.NewNop(),
		handlers: newHandlerSet(),
		status:   StatusDisconnected,
		token:    cfg.Token,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("wsclient")
	return s, nil
}

// Connect 建立连接，失败时进入自动重连
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	s.closed = false
	s.mu.Unlock()
	return s.dial(ctx, false)
}

// Reconnect 手动重连，重置重连计数
// 重连次数耗尽进入 error 状态后只能通过它恢复
func (s *Session) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	s.closed = false
	s.attempts = 0
	s.authFailures = 0
	stopTimer(&s.reconnectTimer)
	if s.conn != nil {
		s.dropLocked(nil)
	}
	s.unlockAndNotify()
	return s.dial(ctx, false)
}

// Disconnect 主动断开，取消重连和心跳
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.closed = true
	stopTimer(&s.reconnectTimer)
	if s.conn != nil {
		s.dropLocked(nil)
	} else if s.status != StatusDisconnected {
		s.setStatusLocked(StatusDisconnected, nil)
	}
	s.unlockAndNotify()
}

// Destroy 断开并清空临时处理器和离线队列，持久处理器保留
func (s *Session) Destroy() {
	s.Disconnect()
	s.handlers.clearTransient()

	s.mu.Lock()
	s.queue = nil
	s.mu.Unlock()
}

// SetToken 设置认证令牌，已连接未认证时立即认证
// 因认证失败停在 error 状态时用新令牌重新连接
func (s *Session) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.authFailures = 0
	switch {
	case s.conn != nil && s.status == StatusConnected:
		s.authenticateLocked(s.gen)
	case s.conn == nil && s.status == StatusError && !s.closed && !s.dialing && s.reconnectTimer == nil:
		s.attempts = 0
		s.unlockAndNotify()
		go func() { _ = s.dial(context.Background(), false) }()
		return
	}
	s.unlockAndNotify()
}

// Emit 发送应用消息，未认证时进入离线队列，返回请求 ID
func (s *Session) Emit(msgType string, data any) (string, error) {
	requestID := uuid.NewString()
	raw, err := json.Marshal(outbound{Type: msgType, RequestID: requestID, Data: data})
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	if s.status == StatusAuthenticated && s.conn != nil {
		if err := s.conn.WriteMessage(raw); err != nil {
			s.enqueueLocked(raw)
			s.failLocked(err)
		}
		s.unlockAndNotify()
		return requestID, nil
	}
	s.enqueueLocked(raw)
	s.unlockAndNotify()
	return requestID, nil
}

// On 注册临时处理器
func (s *Session) On(event string, h Handler) HandlerID {
	return s.handlers.add(event, h, false)
}

// OnPersistent 注册持久处理器，跨重连和 Destroy 保留
func (s *Session) OnPersistent(event string, h Handler) HandlerID {
	return s.handlers.add(event, h, true)
}

// Off 注销处理器
func (s *Session) Off(event string, id HandlerID) bool {
	return s.handlers.remove(event, id)
}

// Status 当前状态
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ReconnectAttempts 连续失败的重连次数
func (s *Session) ReconnectAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// AuthFailures 连续认证失败次数
func (s *Session) AuthFailures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authFailures
}

// MissedHeartbeats 未得到响应的心跳数
func (s *Session) MissedHeartbeats() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.missed
}

// QueueLen 离线队列长度
func (s *Session) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// ConnectionID 服务端分配的连接 ID
func (s *Session) ConnectionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectionID
}

// BackoffDelay 第 attempt 次重连的等待时间
func (s *Session) BackoffDelay(attempt int) time.Duration {
	return s.cfg.Delay(attempt)
}

type outbound struct {
	Type      string `json:"type"`
	Token     string `json:"token,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// dial 一次连接尝试，retry 为自动重连触发
func (s *Session) dial(ctx context.Context, retry bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.dialing || s.conn != nil {
		s.mu.Unlock()
		return nil
	}
	s.dialing = true
	s.setStatusLocked(StatusConnecting, nil)
	s.unlockAndNotify()

	dctx, cancel := context.WithTimeout(ctx, s.cfg.DialTimeout)
	conn, err := s.dialer.Dial(dctx, s.cfg.URL)
	cancel()

	s.mu.Lock()
	s.dialing = false
	if s.closed {
		s.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return ErrClosed
	}
	if err != nil {
		if retry {
			s.attempts++
		}
		s.log.Warn("connect failed", zap.Int("attempts", s.attempts), zap.Error(err))
		s.setStatusLocked(StatusError, err)
		s.scheduleReconnectLocked()
		s.unlockAndNotify()
		return err
	}

	s.connectedLocked(conn)
	s.unlockAndNotify()
	return nil
}

func (s *Session) reconnect() {
	s.mu.Lock()
	s.reconnectTimer = nil
	s.mu.Unlock()
	_ = s.dial(context.Background(), true)
}

// scheduleReconnectLocked 同一时间最多一个待执行的重连定时器
// 连接失败与认证失败分别计数，任一达到上限即停在 error
func (s *Session) scheduleReconnectLocked() {
	if s.closed || s.reconnectTimer != nil {
		return
	}
	if s.authFailures >= s.cfg.MaxAttempts {
		s.log.Error("authentication keeps failing, waiting for new token", zap.Int("failures", s.authFailures))
		s.setStatusLocked(StatusError, ErrUnauthorized.WithMessage("authentication failed repeatedly"))
		return
	}
	if s.attempts >= s.cfg.MaxAttempts {
		s.log.Error("reconnect attempts exhausted", zap.Int("attempts", s.attempts))
		s.setStatusLocked(StatusError, ErrMaxAttempts)
		return
	}

	delay := s.cfg.Delay(max(s.attempts, s.authFailures))
	s.setStatusLocked(StatusReconnecting, nil)
	s.reconnectTimer = s.clock.AfterFunc(delay, s.reconnect)
	s.log.Info("reconnect scheduled", zap.Duration("delay", delay), zap.Int("attempts", s.attempts))
}

func (s *Session) connectedLocked(conn Conn) {
	s.conn = conn
	s.gen++
	s.attempts = 0
	s.missed = 0
	s.setStatusLocked(StatusConnected, nil)

	gen := s.gen
	go s.readLoop(gen, conn)
	s.armHeartbeatLocked(gen)
	s.authenticateLocked(gen)
}

// authenticateLocked 没有令牌时等待 SetToken
func (s *Session) authenticateLocked(gen uint64) {
	if s.token == "" {
		return
	}
	raw, err := json.Marshal(outbound{Type: "authenticate", Token: s.token})
	if err != nil {
		return
	}
	if err := s.conn.WriteMessage(raw); err != nil {
		s.failLocked(err)
		return
	}

	stopTimer(&s.authTimer)
	s.authTimer = s.clock.AfterFunc(s.cfg.AuthTimeout, func() {
		s.mu.Lock()
		if gen != s.gen || s.conn == nil {
			s.mu.Unlock()
			return
		}
		s.authFailures++
		s.failLocked(ErrAuthTimeout)
		s.unlockAndNotify()
	})
}

func (s *Session) armHeartbeatLocked(gen uint64) {
	s.heartbeatTimer = s.clock.AfterFunc(s.cfg.HeartbeatInterval, func() {
		s.heartbeat(gen)
	})
}

func (s *Session) heartbeat(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.conn == nil {
		s.mu.Unlock()
		return
	}
	if s.missed >= s.cfg.MissedHeartbeats {
		s.log.Warn("heartbeat lost", zap.Int("missed", s.missed))
		s.failLocked(ErrHeartbeatTimeout)
		s.unlockAndNotify()
		return
	}

	s.missed++
	if err := s.conn.WriteMessage(pingFrame); err != nil {
		s.failLocked(err)
		s.unlockAndNotify()
		return
	}
	s.armHeartbeatLocked(gen)
	s.unlockAndNotify()
}

var pingFrame = []byte(`{"type":"ping"}`)

func (s *Session) readLoop(gen uint64, conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			s.fail(gen, err)
			return
		}
		s.handleFrame(gen, data)
	}
}

func (s *Session) handleFrame(gen uint64, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		s.log.Warn("discard malformed frame", zap.Error(err))
		return
	}
	msg.Name = msg.Type
	if msg.Name == "" {
		msg.Name = msg.Event
	}
	if msg.Name == "" {
		s.log.Warn("discard frame without type")
		return
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	switch msg.Name {
	case "welcome":
		s.connectionID = msg.ConnectionID
	case "authenticated":
		stopTimer(&s.authTimer)
		s.authFailures = 0
		s.everAuthenticated = true
		s.setStatusLocked(StatusAuthenticated, nil)
		s.drainLocked()
	case "unauthorized":
		s.authFailures++
		s.log.Warn("authentication rejected", zap.String("reason", msg.Message), zap.Int("failures", s.authFailures))
		s.failLocked(ErrUnauthorized.WithMessage(msg.Message))
	case "pong":
		s.missed = 0
	}
	s.unlockAndNotify()

	s.handlers.dispatch(&msg)
}

// drainLocked 按原顺序发送离线队列，失败的消息重新入队
func (s *Session) drainLocked() {
	queued := s.queue
	s.queue = nil
	for i, raw := range queued {
		if err := s.conn.WriteMessage(raw); err != nil {
			for _, rest := range queued[i:] {
				s.enqueueLocked(rest)
			}
			s.failLocked(err)
			return
		}
	}
}

func (s *Session) enqueueLocked(raw []byte) {
	s.queue = append(s.queue, raw)
	if over := len(s.queue) - s.cfg.QueueSize; over > 0 {
		s.log.Warn("message queue full, dropping oldest", zap.Int("dropped", over))
		s.queue = append([][]byte(nil), s.queue[over:]...)
	}
}

func (s *Session) fail(gen uint64, err error) {
	s.mu.Lock()
	if gen != s.gen || s.conn == nil {
		s.mu.Unlock()
		return
	}
	s.failLocked(err)
	s.unlockAndNotify()
}

// failLocked 丢弃当前连接并进入重连
func (s *Session) failLocked(err error) {
	s.log.Info("connection lost", zap.Error(err))
	s.dropLocked(err)
	s.scheduleReconnectLocked()
}

func (s *Session) dropLocked(err error) {
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.gen++
	s.missed = 0
	s.connectionID = ""
	stopTimer(&s.heartbeatTimer)
	stopTimer(&s.authTimer)
	s.setStatusLocked(StatusDisconnected, err)
}

func (s *Session) setStatusLocked(st Status, err error) {
	ev := StatusEvent{
		Status:   st,
		Previous: s.status,
		Attempts: s.attempts,
		Resumed:  st == StatusConnected && s.everAuthenticated,
	}
	if err != nil {
		ev.Error = err.Error()
	}
	s.status = st
	s.pending = append(s.pending, ev)
}

// unlockAndNotify 释放锁后投递状态事件
func (s *Session) unlockAndNotify() {
	events := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		s.handlers.dispatch(&Message{Name: EventStatus, Type: EventStatus, Payload: payload})
	}
}

func stopTimer(t *Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}
