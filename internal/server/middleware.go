package server

import (
	stderrors "errors"
	"net"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tokmz/fintrack/pkg/errors"
	"github.com/tokmz/fintrack/pkg/logger"
)

// Logger 请求日志中间件
// 按状态码选择级别，excludePaths 中的路径不记录
func Logger(log logger.Logger, excludePaths ...string) HandlerFunc {
	skip := make(map[string]bool, len(excludePaths))
	for _, p := range excludePaths {
		skip[p] = true
	}

	return func(c *Context) {
		path := c.Request().URL.Path
		if skip[path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		status := c.Writer().Status()
		fields := []zap.Field{
			zap.String("method", c.Request().Method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		ctx := c.RequestContext()
		switch {
		case status >= 500:
			log.ErrorContext(ctx, "request", fields...)
		case status >= 400:
			log.WarnContext(ctx, "request", fields...)
		default:
			log.InfoContext(ctx, "request", fields...)
		}
	}
}

// Recovery panic 恢复中间件，返回统一 500 响应
func Recovery(log logger.Logger) HandlerFunc {
	return func(c *Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if isBrokenPipe(rec) {
				log.Warn("broken pipe", zap.Any("error", rec), zap.String("path", c.Request().URL.Path))
				c.Abort()
				return
			}

			log.Error("panic recovered",
				zap.Any("error", rec),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.String("stack", string(debug.Stack())),
			)
			c.RespondError(errors.ErrServer)
			c.Abort()
		}()
		c.Next()
	}
}

func isBrokenPipe(rec any) bool {
	err, ok := rec.(error)
	if !ok {
		return false
	}
	var ne *net.OpError
	if !stderrors.As(err, &ne) {
		return false
	}
	var se *os.SyscallError
	if !stderrors.As(ne.Err, &se) {
		return false
	}
	msg := strings.ToLower(se.Error())
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
}
