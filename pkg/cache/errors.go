package cache

import "github.com/tokmz/fintrack/pkg/errors"

// 3100 段错误码：缓存
var (
	ErrCacheNotFound      = errors.New(3101, 404, "缓存不存在", nil)
	ErrCacheConnection    = errors.New(3102, 500, "缓存连接失败", nil)
	ErrCacheSerialization = errors.New(3103, 500, "缓存序列化失败", nil)
	ErrCacheInvalidConfig = errors.New(3104, 500, "缓存配置无效", nil)
	ErrCacheOperation     = errors.New(3105, 500, "缓存操作失败", nil)
)
