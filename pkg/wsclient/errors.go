package wsclient

import "github.com/tokmz/fintrack/pkg/errors"

// 2100 段错误码：客户端会话
// 与服务端错误码同为英文，状态事件的 error 字段直接使用 Message
var (
	ErrInvalidConfig    = errors.New(2101, 500, "invalid session config", nil)
	ErrClosed           = errors.New(2102, 410, "session closed", nil)
	ErrAuthTimeout      = errors.New(2103, 504, "authentication timeout", nil)
	ErrUnauthorized     = errors.New(2104, 401, "unauthorized", nil)
	ErrHeartbeatTimeout = errors.New(2105, 504, "heartbeat timeout", nil)
	ErrMaxAttempts      = errors.New(2106, 503, "reconnect attempts exhausted", nil)
)
