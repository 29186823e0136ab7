package cache

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "fintrack.cache"

// tracedCache 链路追踪装饰器
type tracedCache struct {
	Cache
	tracer trace.Tracer
	system string
}

// NewTracing 为缓存操作创建 client span
func NewTracing(c Cache, system string) Cache {
	return &tracedCache{
		Cache:  c,
		tracer: otel.Tracer(tracerName),
		system: system,
	}
}

func (t *tracedCache) observe(ctx context.Context, op string, keys []string, fn func(context.Context) error) error {
	ctx, span := t.tracer.Start(ctx, "cache."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("db.system", t.system),
		attribute.String("cache.operation", op),
		attribute.String("cache.key", strings.Join(keys, ",")),
	)

	err := fn(ctx)
	if err != nil && err != ErrCacheNotFound {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetAttributes(attribute.Bool("cache.hit", err == nil))
	return err
}

func (t *tracedCache) Get(ctx context.Context, key string, value any) error {
	return t.observe(ctx, "get", []string{key}, func(ctx context.Context) error {
		return t.Cache.Get(ctx, key, value)
	})
}

func (t *tracedCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return t.observe(ctx, "set", []string{key}, func(ctx context.Context) error {
		return t.Cache.Set(ctx, key, value, ttl)
	})
}

func (t *tracedCache) Delete(ctx context.Context, keys ...string) error {
	return t.observe(ctx, "delete", keys, func(ctx context.Context) error {
		return t.Cache.Delete(ctx, keys...)
	})
}
