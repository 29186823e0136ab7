package request

import "github.com/tokmz/fintrack/pkg/errors"

// 4000 段错误码：API 客户端
var (
	// ErrTransport 网络层失败，请求可能未到达服务端
	ErrTransport = errors.New(4001, 502, "request failed", nil)
	// ErrTimeout 超时或上下文取消
	ErrTimeout = errors.New(4002, 504, "request timed out", nil)
	// ErrEncode 请求体序列化失败
	ErrEncode = errors.New(4003, 400, "encode request body", nil)
	// ErrDecode 响应不是合法的统一响应结构
	ErrDecode = errors.New(4004, 502, "decode response", nil)
	// ErrStatus 服务端返回了非统一结构的错误响应
	ErrStatus = errors.New(4005, 502, "unexpected response", nil)
	// ErrInvalidURL 基础地址或路径无效
	ErrInvalidURL = errors.New(4006, 400, "invalid url", nil)
)
