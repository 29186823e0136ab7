package server

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Config HTTP 服务配置
type Config struct {
	// Mode 运行模式：debug, release, test
	Mode string `mapstructure:"mode"`

	Addr           string        `mapstructure:"addr"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`

	// ShutdownTimeout 优雅关机等待时间
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Mode:            gin.ReleaseMode,
		Addr:            ":8080",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     60 * time.Second,
		MaxHeaderBytes:  1 << 20, // 1MB
		ShutdownTimeout: 10 * time.Second,
	}
}

// Option 配置选项
type Option func(*Config)

// WithConfig 整体替换配置，空字段保留默认值
func WithConfig(cfg *Config) Option {
	return func(c *Config) {
		if cfg == nil {
			return
		}
		if cfg.Mode != "" {
			c.Mode = cfg.Mode
		}
		if cfg.Addr != "" {
			c.Addr = cfg.Addr
		}
		if cfg.ReadTimeout > 0 {
			c.ReadTimeout = cfg.ReadTimeout
		}
		if cfg.WriteTimeout > 0 {
			c.WriteTimeout = cfg.WriteTimeout
		}
		if cfg.IdleTimeout > 0 {
			c.IdleTimeout = cfg.IdleTimeout
		}
		if cfg.MaxHeaderBytes > 0 {
			c.MaxHeaderBytes = cfg.MaxHeaderBytes
		}
		if cfg.ShutdownTimeout > 0 {
			c.ShutdownTimeout = cfg.ShutdownTimeout
		}
		c.TrustedProxies = cfg.TrustedProxies
	}
}

// WithMode 设置运行模式
func WithMode(mode string) Option {
	return func(c *Config) { c.Mode = mode }
}

// WithAddr 设置监听地址
func WithAddr(addr string) Option {
	return func(c *Config) { c.Addr = addr }
}

// WithReadTimeout 设置读取超时
func WithReadTimeout(d time.Duration) Option {
	return func(c *Config) { c.ReadTimeout = d }
}

// WithWriteTimeout 设置写入超时
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Config) { c.WriteTimeout = d }
}

// WithShutdownTimeout 设置关机超时
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *Config) { c.ShutdownTimeout = d }
}

// WithTrustedProxies 设置信任的代理
func WithTrustedProxies(proxies ...string) Option {
	return func(c *Config) { c.TrustedProxies = proxies }
}
