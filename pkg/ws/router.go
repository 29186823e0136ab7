package ws

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/tokmz/fintrack/pkg/errors"
	"github.com/tokmz/fintrack/pkg/logger"
)

// Handler 消息处理器，返回的错误以 error 帧回复给发送方
type Handler func(ctx context.Context, c *Connection, msg *Inbound) error

// Router 上行消息路由
// 以消息类型查表分发；未认证连接只允许 authenticate 和 ping
type Router struct {
	mu       sync.RWMutex
	handlers map[InboundKind]Handler
	log      logger.Logger
}

// NewRouter 创建路由器
func NewRouter(log logger.Logger) *Router {
	if log == nil {
		log = logger.NewNop()
	}
	return &Router{
		handlers: make(map[InboundKind]Handler),
		log:      log,
	}
}

// Register 注册处理器，类型必须属于封闭集合
func (r *Router) Register(kind InboundKind, h Handler) error {
	if !kind.Known() {
		return ErrUnknownType.WithMessage("unknown message type: " + string(kind))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[kind]; exists {
		return ErrHandlerExists
	}
	r.handlers[kind] = h
	return nil
}

// Route 路由消息，所有失败都已回复给发送方
func (r *Router) Route(ctx context.Context, c *Connection, msg *Inbound) error {
	kind := msg.Kind()

	if !kind.Public() && !c.Authenticated() {
		r.reply(ctx, c, msg.RequestID, ErrUnauthenticated)
		return ErrUnauthenticated
	}

	r.mu.RLock()
	h, ok := r.handlers[kind]
	r.mu.RUnlock()
	if !ok {
		r.reply(ctx, c, msg.RequestID, ErrUnknownType)
		return ErrUnknownType
	}

	if err := h(ctx, c, msg); err != nil {
		r.reply(ctx, c, msg.RequestID, err)
		return err
	}
	return nil
}

func (r *Router) reply(ctx context.Context, c *Connection, requestID string, err error) {
	bizErr := errors.From(err)
	if sendErr := c.Send(errorFrame(requestID, bizErr.Message)); sendErr != nil {
		r.log.DebugContext(ctx, "send error reply failed", zap.String("conn_id", c.ID), zap.Error(sendErr))
	}
}

// HandlerFunc 泛型处理器函数（有请求有响应）
type HandlerFunc[Req any, Resp any] func(ctx context.Context, c *Connection, req *Req) (*Resp, error)

// Handle 注册泛型处理器，成功时回复 ack{requestId, data}
func Handle[Req any, Resp any](r *Router, kind InboundKind, fn HandlerFunc[Req, Resp]) error {
	return r.Register(kind, func(ctx context.Context, c *Connection, msg *Inbound) error {
		var req Req
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				return ErrInvalidMessage.WithMessage("invalid request data").WithError(err)
			}
		}

		resp, err := fn(ctx, c, &req)
		if err != nil {
			return err
		}
		return c.Send(ackFrame(msg.RequestID, resp))
	})
}
