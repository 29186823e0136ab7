package ws

import "github.com/tokmz/fintrack/pkg/errors"

// 2000 段错误码：实时通道
// Message 会原样写入 error/unauthorized 帧，统一使用英文
var (
	ErrTooManyConnections = errors.New(2001, 503, "too many connections", nil)
	ErrConnectionClosed   = errors.New(2002, 410, "connection closed", nil)
	ErrSendQueueFull      = errors.New(2003, 503, "send queue full", nil)
	ErrInvalidMessage     = errors.New(2004, 400, "invalid message format", nil)
	ErrUnknownType        = errors.New(2005, 400, "unknown message type", nil)
	ErrUnauthenticated    = errors.New(2006, 401, "unauthenticated", nil)
	ErrMissingToken       = errors.New(2007, 401, "missing token", nil)
	ErrHandlerExists      = errors.New(2008, 500, "handler already registered", nil)
	ErrInvalidConfig      = errors.New(2009, 500, "invalid realtime config", nil)
)

// ErrUnknownEvent 领域事件名不在封闭集合内
var ErrUnknownEvent = errors.New(2010, 500, "unknown event", nil)
