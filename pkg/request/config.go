package request

import (
	"net/http"
	"time"

	"github.com/tokmz/fintrack/pkg/logger"
)

// Config API 客户端配置
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string

	// TokenSource 每次调用读取，令牌轮换后无需重建客户端
	TokenSource func() string

	// Retry 为 nil 时不重试
	Retry *RetryConfig

	Logger    logger.Logger
	Tracing   bool
	Transport http.RoundTripper

	// MaxBodySize 响应体上限，超出部分丢弃
	MaxBodySize int64
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Timeout:     15 * time.Second,
		UserAgent:   "fintrack-client",
		MaxBodySize: 8 << 20,
	}
}

// Option 配置选项
type Option func(*Config)

// WithBaseURL 设置服务端地址
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithTimeout 设置单次请求超时
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithUserAgent 设置 User-Agent
func WithUserAgent(ua string) Option {
	return func(c *Config) { c.UserAgent = ua }
}

// WithTokenSource 设置令牌来源
func WithTokenSource(fn func() string) Option {
	return func(c *Config) { c.TokenSource = fn }
}

// WithRetry 设置重试策略
func WithRetry(cfg *RetryConfig) Option {
	return func(c *Config) { c.Retry = cfg }
}

// WithLogger 设置日志
func WithLogger(l logger.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithTracing 为每次调用创建 client span 并注入 traceparent
func WithTracing(enable bool) Option {
	return func(c *Config) { c.Tracing = enable }
}

// WithTransport 设置底层 RoundTripper
func WithTransport(t http.RoundTripper) Option {
	return func(c *Config) { c.Transport = t }
}
