package cache

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"
)

// Remember 读穿缓存：命中直接返回，未命中执行 fn 并回填
// 回填失败不影响返回值
func Remember[T any](ctx context.Context, c Cache, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var result T
	if err := c.Get(ctx, key, &result); err == nil {
		return result, nil
	} else if !errors.Is(err, ErrCacheNotFound) {
		return fn(ctx)
	}

	result, err := fn(ctx)
	if err != nil {
		return result, err
	}
	_ = c.Set(ctx, key, result, ttl)
	return result, nil
}

// Group 合并同一 key 的并发回源请求
type Group struct {
	sf singleflight.Group
}

// RememberShared 与 Remember 相同，但同一 key 的并发未命中只回源一次
func RememberShared[T any](ctx context.Context, g *Group, c Cache, key string, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	v, err, _ := g.sf.Do(key, func() (any, error) {
		return Remember(ctx, c, key, ttl, fn)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Forget 丢弃 key 的在途结果，写操作失效缓存后调用
func (g *Group) Forget(key string) {
	g.sf.Forget(key)
}
