package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tokmz/fintrack/pkg/errors"
	"github.com/tokmz/fintrack/pkg/logger"
)

const (
	// ContextTraceIDKey 链路追踪 trace_id 键
	ContextTraceIDKey = "trace_id"
	// ContextUserIDKey 已认证用户 id 键
	ContextUserIDKey = "user_id"
)

// HandlerFunc 路由处理函数和中间件函数
type HandlerFunc func(*Context)

// Context 包装 gin.Context
type Context struct {
	ctx *gin.Context
}

// NewContext 创建上下文（测试用）
func NewContext(c *gin.Context) *Context {
	return &Context{ctx: c}
}

func wrap(fn HandlerFunc) gin.HandlerFunc {
	if fn == nil {
		panic("server: handler/middleware cannot be nil")
	}
	return func(c *gin.Context) { fn(&Context{ctx: c}) }
}

func wrapAll(fns ...HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, len(fns))
	for i, fn := range fns {
		out[i] = wrap(fn)
	}
	return out
}

// Request 原始请求
func (c *Context) Request() *http.Request { return c.ctx.Request }

// Writer 响应写入器
func (c *Context) Writer() gin.ResponseWriter { return c.ctx.Writer }

// Param 路径参数
func (c *Context) Param(key string) string { return c.ctx.Param(key) }

// Query 查询参数
func (c *Context) Query(key string) string { return c.ctx.Query(key) }

// FullPath 匹配的路由模板
func (c *Context) FullPath() string { return c.ctx.FullPath() }

// ClientIP 客户端 IP
func (c *Context) ClientIP() string { return c.ctx.ClientIP() }

// GetHeader 读取请求头
func (c *Context) GetHeader(key string) string { return c.ctx.GetHeader(key) }

// Header 设置响应头
func (c *Context) Header(key, value string) { c.ctx.Header(key, value) }

// Set 存储上下文值
func (c *Context) Set(key string, value any) { c.ctx.Set(key, value) }

// GetString 读取字符串上下文值
func (c *Context) GetString(key string) string { return c.ctx.GetString(key) }

// Next 执行后续处理
func (c *Context) Next() { c.ctx.Next() }

// Abort 中止后续处理
func (c *Context) Abort() { c.ctx.Abort() }

// AbortWithStatus 中止并写入状态码
func (c *Context) AbortWithStatus(code int) { c.ctx.AbortWithStatus(code) }

// IsAborted 是否已中止
func (c *Context) IsAborted() bool { return c.ctx.IsAborted() }

// ShouldBind 按 Content-Type 绑定
func (c *Context) ShouldBind(obj any) error { return c.ctx.ShouldBind(obj) }

// ShouldBindQuery 绑定查询参数
func (c *Context) ShouldBindQuery(obj any) error { return c.ctx.ShouldBindQuery(obj) }

// ShouldBindUri 绑定路径参数
func (c *Context) ShouldBindUri(obj any) error { return c.ctx.ShouldBindUri(obj) }

// TraceID 当前请求的 trace id
func (c *Context) TraceID() string { return c.ctx.GetString(ContextTraceIDKey) }

// SetTraceID 设置 trace id
func (c *Context) SetTraceID(traceID string) { c.ctx.Set(ContextTraceIDKey, traceID) }

// UserID 已认证的用户 id，未认证时为空
func (c *Context) UserID() string { return c.ctx.GetString(ContextUserIDKey) }

// SetUserID 设置已认证用户
func (c *Context) SetUserID(userID string) { c.ctx.Set(ContextUserIDKey, userID) }

// Success 成功响应
func (c *Context) Success(data any) {
	c.respond(http.StatusOK, Success(data))
}

// Nil 成功响应（无数据）
func (c *Context) Nil() {
	c.Success(nil)
}

// Fail 失败响应
func (c *Context) Fail(httpCode, code int, message string) {
	c.respond(httpCode, Fail(code, message))
}

// RespondError 错误响应，业务错误按 HttpCode 返回，其它错误按 ErrServer
func (c *Context) RespondError(err error) {
	bizErr := errors.From(err)
	if bizErr == nil {
		bizErr = errors.ErrServer
	}
	c.respond(bizErr.HttpCode, NewResponse(bizErr.Code, nil, bizErr.Message))
}

func (c *Context) respond(status int, resp *Response) {
	if traceID := c.TraceID(); traceID != "" {
		resp.WithTraceID(traceID)
	}
	c.ctx.JSON(status, resp)
}

// RequestContext 返回注入了 trace id 与用户 id 的 context.Context，用于传递给 Service 层
func (c *Context) RequestContext() context.Context {
	ctx := c.ctx.Request.Context()
	if traceID := c.TraceID(); traceID != "" {
		ctx = logger.WithTraceID(ctx, traceID)
	}
	if userID := c.UserID(); userID != "" {
		ctx = logger.WithUserID(ctx, userID)
	}
	return ctx
}

// SetRequestContext 更新请求的 context（中间件注入 SpanContext 用）
func (c *Context) SetRequestContext(ctx context.Context) {
	c.ctx.Request = c.ctx.Request.WithContext(ctx)
}
