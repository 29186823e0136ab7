package cache

import "time"

// DriverType 驱动类型
type DriverType string

const (
	DriverRedis  DriverType = "redis"
	DriverMemory DriverType = "memory"
)

// RedisMode Redis 部署模式
type RedisMode string

const (
	RedisStandalone RedisMode = "standalone"
	RedisCluster    RedisMode = "cluster"
	RedisSentinel   RedisMode = "sentinel"
)

// Config 缓存配置
type Config struct {
	Driver     DriverType    `mapstructure:"driver"`
	KeyPrefix  string        `mapstructure:"key_prefix"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	Tracing    bool          `mapstructure:"tracing"`

	Redis  *RedisConfig  `mapstructure:"redis"`
	Memory *MemoryConfig `mapstructure:"memory"`

	Serializer Serializer `mapstructure:"-"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Mode         RedisMode     `mapstructure:"mode"`
	Addr         string        `mapstructure:"addr"`  // 单机
	Addrs        []string      `mapstructure:"addrs"` // 集群/哨兵
	MasterName   string        `mapstructure:"master_name"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// MemoryConfig 内存缓存配置
type MemoryConfig struct {
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Driver:     DriverMemory,
		Serializer: JSONSerializer{},
		DefaultTTL: 10 * time.Minute,
		Memory:     DefaultMemoryConfig(),
	}
}

// DefaultRedisConfig 返回默认 Redis 配置
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		Mode:         RedisStandalone,
		Addr:         "localhost:6379",
		PoolSize:     50,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// DefaultMemoryConfig 返回默认 Memory 配置
func DefaultMemoryConfig() *MemoryConfig {
	return &MemoryConfig{CleanupInterval: 5 * time.Minute}
}

// Option 配置选项
type Option func(*Config)

// WithRedis 使用 Redis 驱动
func WithRedis(cfg *RedisConfig) Option {
	return func(c *Config) {
		c.Driver = DriverRedis
		c.Redis = cfg
	}
}

// WithMemory 使用内存驱动
func WithMemory(cfg *MemoryConfig) Option {
	return func(c *Config) {
		c.Driver = DriverMemory
		c.Memory = cfg
	}
}

// WithKeyPrefix 设置键前缀
func WithKeyPrefix(prefix string) Option {
	return func(c *Config) { c.KeyPrefix = prefix }
}

// WithDefaultTTL 设置默认 TTL
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Config) { c.DefaultTTL = ttl }
}

// WithTracing 开启链路追踪装饰
func WithTracing(enabled bool) Option {
	return func(c *Config) { c.Tracing = enabled }
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Serializer == nil {
		return ErrCacheInvalidConfig.WithMessage("serializer is required")
	}

	switch c.Driver {
	case DriverMemory:
		if c.Memory == nil {
			c.Memory = DefaultMemoryConfig()
		}
		return nil
	case DriverRedis:
	default:
		return ErrCacheInvalidConfig.WithMessage("unsupported cache driver " + string(c.Driver))
	}

	if c.Redis == nil {
		return ErrCacheInvalidConfig.WithMessage("redis config is required")
	}
	switch c.Redis.Mode {
	case RedisStandalone, "":
		if c.Redis.Addr == "" {
			return ErrCacheInvalidConfig.WithMessage("redis addr is required")
		}
	case RedisCluster:
		if len(c.Redis.Addrs) == 0 {
			return ErrCacheInvalidConfig.WithMessage("redis cluster requires addrs")
		}
	case RedisSentinel:
		if len(c.Redis.Addrs) == 0 || c.Redis.MasterName == "" {
			return ErrCacheInvalidConfig.WithMessage("redis sentinel requires addrs and master name")
		}
	default:
		return ErrCacheInvalidConfig.WithMessage("unsupported redis mode " + string(c.Redis.Mode))
	}
	return nil
}
