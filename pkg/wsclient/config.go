package wsclient

import (
	"fmt"
	"math"
	"time"
)

// Config 会话配置
type Config struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`

	// 重连退避 delay(n) = min(MaxDelay, BaseDelay * BackoffRate^n)
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	BackoffRate float64       `mapstructure:"backoff_rate"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
	MaxAttempts int           `mapstructure:"max_attempts"`

	// 心跳，连续 MissedHeartbeats 次未收到 pong 视为断线
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	MissedHeartbeats  int           `mapstructure:"missed_heartbeats"`

	AuthTimeout time.Duration `mapstructure:"auth_timeout"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`

	// 离线消息队列上限，超出丢弃最旧的消息
	QueueSize int `mapstructure:"queue_size"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		BaseDelay:         time.Second,
		BackoffRate:       1.5,
		MaxDelay:          30 * time.Second,
		MaxAttempts:       10,
		HeartbeatInterval: 25 * time.Second,
		MissedHeartbeats:  3,
		AuthTimeout:       10 * time.Second,
		DialTimeout:       10 * time.Second,
		QueueSize:         100,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	switch {
	case c.URL == "":
		return fmt.Errorf("%w: url is required", ErrInvalidConfig)
	case c.BaseDelay <= 0 || c.MaxDelay < c.BaseDelay:
		return fmt.Errorf("%w: invalid delay range %v..%v", ErrInvalidConfig, c.BaseDelay, c.MaxDelay)
	case c.BackoffRate < 1:
		return fmt.Errorf("%w: backoff_rate must be >= 1, got %v", ErrInvalidConfig, c.BackoffRate)
	case c.MaxAttempts <= 0:
		return fmt.Errorf("%w: max_attempts must be positive, got %d", ErrInvalidConfig, c.MaxAttempts)
	case c.HeartbeatInterval <= 0 || c.MissedHeartbeats <= 0:
		return fmt.Errorf("%w: invalid heartbeat settings", ErrInvalidConfig)
	case c.AuthTimeout <= 0 || c.DialTimeout <= 0:
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	case c.QueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	}
	return nil
}

// Delay 第 attempt 次重连前的等待时间
func (c *Config) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := float64(c.BaseDelay) * math.Pow(c.BackoffRate, float64(attempt))
	if math.IsInf(d, 0) || d >= float64(c.MaxDelay) {
		return c.MaxDelay
	}
	return time.Duration(d)
}
