package tracing

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Provider 链路追踪提供者
type Provider struct {
	sdk *sdktrace.TracerProvider
}

// Option Provider 选项
type Option func(*providerOptions)

type providerOptions struct {
	stdout     io.Writer
	processors []sdktrace.SpanProcessor
}

// WithStdoutWriter stdout 导出器的输出目标
func WithStdoutWriter(w io.Writer) Option {
	return func(o *providerOptions) { o.stdout = w }
}

// WithSpanProcessor 追加 SpanProcessor
func WithSpanProcessor(p sdktrace.SpanProcessor) Option {
	return func(o *providerOptions) { o.processors = append(o.processors, p) }
}

// NewProvider 创建 TracerProvider 并注册为全局
// 禁用时注册 noop provider，Shutdown 为空操作
func NewProvider(ctx context.Context, cfg *Config, opts ...Option) (*Provider, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o providerOptions
	for _, opt := range opts {
		opt(&o)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return &Provider{}, nil
	}

	exporter, err := newExporter(ctx, cfg, o.stdout)
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithSampler(newSampler(cfg)),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(cfg.BatchTimeout),
			sdktrace.WithMaxExportBatchSize(cfg.MaxExportBatchSize),
			sdktrace.WithMaxQueueSize(cfg.MaxQueueSize),
		),
	}
	for _, p := range o.processors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(p))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)
	return &Provider{sdk: tp}, nil
}

func newResource(ctx context.Context, cfg *Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	}
	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.Environment))
	}
	for k, v := range cfg.ResourceAttributes {
		attrs = append(attrs, attribute.String(k, v))
	}

	// OTEL_RESOURCE_ATTRIBUTES 由 WithFromEnv 解析
	return resource.New(ctx,
		resource.WithAttributes(attrs...),
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
	)
}

// Tracer 获取命名 Tracer
func (p *Provider) Tracer(name string) trace.Tracer {
	if p.sdk == nil {
		return otel.Tracer(name)
	}
	return p.sdk.Tracer(name)
}

// Enabled 是否启用了真实导出
func (p *Provider) Enabled() bool {
	return p.sdk != nil
}

// ForceFlush 导出所有缓冲中的 Span
func (p *Provider) ForceFlush(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return p.sdk.ForceFlush(ctx)
}

// Shutdown 优雅关闭，确保 Span 导出完成
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return p.sdk.Shutdown(ctx)
}
