package ws

import (
	"fmt"
	"time"
)

// Config 实时通道配置
type Config struct {
	MaxConnections   int           `mapstructure:"max_connections"`
	ReadBufferSize   int           `mapstructure:"read_buffer_size"`
	WriteBufferSize  int           `mapstructure:"write_buffer_size"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	MaxMessageSize   int64         `mapstructure:"max_message_size"`
	WriteWait        time.Duration `mapstructure:"write_wait"`
	SendQueueSize    int           `mapstructure:"send_queue_size"`

	// 存活探测间隔，连续两次未响应即驱逐
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`

	// 连续无效消息上限，超过后关闭连接
	MaxMalformed int `mapstructure:"max_malformed"`

	// Origin 白名单，为空时只允许同源
	AllowedOrigins    []string `mapstructure:"allowed_origins"`
	EnableCompression bool     `mapstructure:"enable_compression"`

	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		MaxConnections:    10000,
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		HandshakeTimeout:  10 * time.Second,
		MaxMessageSize:    64 * 1024,
		WriteWait:         10 * time.Second,
		SendQueueSize:     256,
		HeartbeatInterval: 30 * time.Second,
		MaxMalformed:      10,
		ShutdownTimeout:   5 * time.Second,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	switch {
	case c.MaxConnections <= 0:
		return fmt.Errorf("%w: max_connections must be positive, got %d", ErrInvalidConfig, c.MaxConnections)
	case c.ReadBufferSize <= 0 || c.WriteBufferSize <= 0:
		return fmt.Errorf("%w: buffer sizes must be positive", ErrInvalidConfig)
	case c.MaxMessageSize <= 0:
		return fmt.Errorf("%w: max_message_size must be positive, got %d", ErrInvalidConfig, c.MaxMessageSize)
	case c.WriteWait <= 0:
		return fmt.Errorf("%w: write_wait must be positive, got %v", ErrInvalidConfig, c.WriteWait)
	case c.SendQueueSize <= 0:
		return fmt.Errorf("%w: send_queue_size must be positive, got %d", ErrInvalidConfig, c.SendQueueSize)
	case c.HeartbeatInterval <= 0:
		return fmt.Errorf("%w: heartbeat_interval must be positive, got %v", ErrInvalidConfig, c.HeartbeatInterval)
	case c.MaxMalformed <= 0:
		return fmt.Errorf("%w: max_malformed must be positive, got %d", ErrInvalidConfig, c.MaxMalformed)
	}
	return nil
}

// Option 配置选项
type Option func(*Config)

// WithMaxConnections 设置最大连接数
func WithMaxConnections(n int) Option {
	return func(c *Config) { c.MaxConnections = n }
}

// WithHeartbeatInterval 设置存活探测间隔
func WithHeartbeatInterval(d time.Duration) Option {
	return func(c *Config) { c.HeartbeatInterval = d }
}

// WithSendQueueSize 设置每连接发送队列长度
func WithSendQueueSize(n int) Option {
	return func(c *Config) { c.SendQueueSize = n }
}

// WithMaxMalformed 设置连续无效消息上限
func WithMaxMalformed(n int) Option {
	return func(c *Config) { c.MaxMalformed = n }
}

// WithAllowedOrigins 设置 Origin 白名单
func WithAllowedOrigins(origins ...string) Option {
	return func(c *Config) { c.AllowedOrigins = origins }
}

// WithMaxMessageSize 设置最大消息大小
func WithMaxMessageSize(n int64) Option {
	return func(c *Config) { c.MaxMessageSize = n }
}
