package middleware

import (
	"strings"

	"go.uber.org/zap"

	"github.com/tokmz/fintrack/internal/server"
	"github.com/tokmz/fintrack/pkg/errors"
	"github.com/tokmz/fintrack/pkg/logger"
	"github.com/tokmz/fintrack/pkg/ws"
)

// ErrMissingBearer 缺少 Authorization: Bearer 头
var ErrMissingBearer = errors.ErrUnauthorized.WithMessage("missing bearer token")

// Auth Bearer 认证中间件，与实时通道握手共用同一个校验器
// 成功后用户 id 写入上下文，失败以统一响应格式返回 401
func Auth(verifier ws.TokenVerifier, log logger.Logger) server.HandlerFunc {
	if log == nil {
		log = logger.NewNop()
	}
	return func(c *server.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.RespondError(ErrMissingBearer)
			c.Abort()
			return
		}

		userID, err := verifier.Verify(c.RequestContext(), token)
		if err != nil {
			bizErr := errors.From(err)
			if bizErr.HttpCode != 401 {
				bizErr = errors.ErrUnauthorized.WithMessage(bizErr.Message).WithError(err)
			}
			log.DebugContext(c.RequestContext(), "bearer rejected", zap.String("path", c.Request().URL.Path), zap.Error(err))
			c.RespondError(bizErr)
			c.Abort()
			return
		}

		c.SetUserID(userID)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
