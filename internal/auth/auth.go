package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tokmz/fintrack/pkg/errors"
)

// 6000 段错误码：认证
var (
	ErrInvalidConfig = errors.New(6001, 500, "auth config invalid", nil)
	ErrTokenExpired  = errors.New(6002, 401, "token expired", nil)
	ErrTokenInvalid  = errors.New(6003, 401, "invalid token", nil)
	ErrMissingToken  = errors.New(6004, 401, "missing token", nil)
)

// Config 令牌配置
type Config struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
	Leeway time.Duration `mapstructure:"leeway"`
}

// DefaultConfig 默认配置，Secret 必须另行提供
func DefaultConfig() *Config {
	return &Config{
		Issuer: "fintrack",
		TTL:    24 * time.Hour,
		Leeway: 30 * time.Second,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if len(c.Secret) < 16 {
		return fmt.Errorf("%w: secret must be at least 16 bytes", ErrInvalidConfig)
	}
	if c.TTL <= 0 {
		return fmt.Errorf("%w: ttl must be positive", ErrInvalidConfig)
	}
	return nil
}

// Claims 令牌声明，Subject 为用户 id
type Claims struct {
	jwt.RegisteredClaims
}

// Tokens HS256 令牌签发与校验
type Tokens struct {
	cfg    *Config
	key    []byte
	now    func() time.Time
	parser *jwt.Parser
}

// Option Tokens 选项
type Option func(*Tokens)

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(t *Tokens) { t.now = now }
}

// New 创建 Tokens
func New(cfg *Config, opts ...Option) (*Tokens, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &Tokens{
		cfg: cfg,
		key: []byte(cfg.Secret),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(cfg.Issuer))
	}
	t.parser = jwt.NewParser(parserOpts...)
	return t, nil
}

// Issue 为用户签发令牌，ttl 为 0 时使用配置值
func (t *Tokens) Issue(userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", ErrTokenInvalid.WithMessage("user id is required")
	}
	if ttl <= 0 {
		ttl = t.cfg.TTL
	}
	now := t.now()
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    t.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", errors.ErrServer.WithError(err)
	}
	return signed, nil
}

// Verify 校验令牌并返回用户 id，实现 ws.TokenVerifier
func (t *Tokens) Verify(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrMissingToken
	}

	var claims Claims
	_, err := t.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.key, nil
	})
	switch {
	case err == nil:
	case stderrors.Is(err, jwt.ErrTokenExpired):
		return "", ErrTokenExpired.WithError(err)
	default:
		return "", ErrTokenInvalid.WithError(err)
	}

	if claims.Subject == "" {
		return "", ErrTokenInvalid.WithMessage("token has no subject")
	}
	return claims.Subject, nil
}
