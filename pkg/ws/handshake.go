package ws

import (
	"context"

	"go.uber.org/zap"

	"github.com/tokmz/fintrack/pkg/errors"
	"github.com/tokmz/fintrack/pkg/logger"
)

// TokenVerifier 令牌校验，返回令牌绑定的用户
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// TokenVerifierFunc 函数适配器
type TokenVerifierFunc func(ctx context.Context, token string) (string, error)

// Verify 实现 TokenVerifier
func (f TokenVerifierFunc) Verify(ctx context.Context, token string) (string, error) {
	return f(ctx, token)
}

// Authenticator 连接认证握手
// 失败时回复 unauthorized 并保持连接，客户端可换新令牌重试
type Authenticator struct {
	registry *Registry
	verifier TokenVerifier
	log      logger.Logger
	metrics  Metrics
}

// NewAuthenticator 创建认证器
func NewAuthenticator(registry *Registry, verifier TokenVerifier, log logger.Logger, metrics Metrics) *Authenticator {
	if log == nil {
		log = logger.NewNop()
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Authenticator{
		registry: registry,
		verifier: verifier,
		log:      log,
		metrics:  metrics,
	}
}

// Handle 校验令牌并绑定身份
func (a *Authenticator) Handle(ctx context.Context, c *Connection, token string) (string, error) {
	if token == "" {
		return "", a.reject(ctx, c, ErrMissingToken)
	}

	userID, err := a.verifier.Verify(ctx, token)
	if err != nil {
		return "", a.reject(ctx, c, err)
	}

	if err := a.registry.Authenticate(c.ID, userID); err != nil {
		return "", err
	}
	a.metrics.AuthResult(true)
	a.log.InfoContext(ctx, "connection authenticated",
		zap.String("conn_id", c.ID),
		zap.String("user_id", userID),
	)

	if err := c.Send(authenticatedFrame(userID)); err != nil {
		a.log.DebugContext(ctx, "send authenticated failed", zap.String("conn_id", c.ID), zap.Error(err))
	}
	return userID, nil
}

func (a *Authenticator) reject(ctx context.Context, c *Connection, cause error) error {
	a.metrics.AuthResult(false)

	message := "invalid token"
	var bizErr *errors.Error
	if errors.As(cause, &bizErr) {
		message = bizErr.Message
	}
	a.log.WarnContext(ctx, "authentication rejected",
		zap.String("conn_id", c.ID),
		zap.String("reason", message),
		zap.Error(cause),
	)

	if err := c.Send(unauthorizedFrame(message)); err != nil {
		a.log.DebugContext(ctx, "send unauthorized failed", zap.String("conn_id", c.ID), zap.Error(err))
	}
	return ErrUnauthenticated.WithMessage(message).WithError(cause)
}
