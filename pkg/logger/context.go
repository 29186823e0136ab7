package logger

import "context"

// contextKey 日志上下文键
type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	userIDKey  contextKey = "user_id"
	connIDKey  contextKey = "conn_id"
)

// WithTraceID 写入链路追踪 ID
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// WithUserID 写入用户 ID
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// WithConnID 写入实时连接 ID
func WithConnID(ctx context.Context, connID string) context.Context {
	return context.WithValue(ctx, connIDKey, connID)
}

// TraceIDFrom 读取链路追踪 ID
func TraceIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(traceIDKey).(string)
	return v
}

// UserIDFrom 读取用户 ID
func UserIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}

// ConnIDFrom 读取实时连接 ID
func ConnIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(connIDKey).(string)
	return v
}
