package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger 日志接口
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)

	// *Context 方法附加 trace_id、span_id、user_id、conn_id，级别未开启时不提取
	DebugContext(ctx context.Context, msg string, fields ...zap.Field)
	InfoContext(ctx context.Context, msg string, fields ...zap.Field)
	WarnContext(ctx context.Context, msg string, fields ...zap.Field)
	ErrorContext(ctx context.Context, msg string, fields ...zap.Field)

	With(fields ...zap.Field) Logger
	WithContext(ctx context.Context) Logger
	Named(name string) Logger
	Sync() error

	// SetLevel 对所有派生 Logger 同时生效
	SetLevel(level Level)
	Level() Level
}

type zapLogger struct {
	z     *zap.Logger
	level zap.AtomicLevel
}

// New 按配置创建 Logger，config 为 nil 时输出 info 级 JSON 到控制台
func New(config *Config) (Logger, error) {
	var cfg Config
	if config != nil {
		cfg = *config
	}
	cfg = cfg.normalize()
	if !cfg.Format.IsValid() {
		return nil, ErrInvalidConfig.WithMessage("unknown log format " + string(cfg.Format))
	}

	level := zap.NewAtomicLevelAt(cfg.Level.toZapLevel())
	core, err := buildCore(cfg, level)
	if err != nil {
		return nil, err
	}

	var opts []zap.Option
	if cfg.EnableCaller {
		opts = append(opts, zap.AddCaller(), zap.AddCallerSkip(1))
	}
	if cfg.EnableStacktrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}
	z := zap.New(core, opts...)
	if cfg.Name != "" {
		z = z.Named(cfg.Name)
	}
	return &zapLogger{z: z, level: level}, nil
}

// NewWithOptions 以选项方式创建
func NewWithOptions(opts ...Option) (Logger, error) {
	cfg := &Config{}
	for _, opt := range opts {
		opt(cfg)
	}
	return New(cfg)
}

// NewNop 丢弃全部输出
func NewNop() Logger {
	return &zapLogger{z: zap.NewNop(), level: zap.NewAtomicLevelAt(zapcore.FatalLevel)}
}

func (l *zapLogger) Debug(msg string, fields ...zap.Field) { l.z.Debug(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...zap.Field)  { l.z.Info(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...zap.Field)  { l.z.Warn(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...zap.Field) { l.z.Error(msg, fields...) }

func (l *zapLogger) DebugContext(ctx context.Context, msg string, fields ...zap.Field) {
	if ce := l.z.Check(zapcore.DebugLevel, msg); ce != nil {
		ce.Write(ctxFields(ctx, fields)...)
	}
}

func (l *zapLogger) InfoContext(ctx context.Context, msg string, fields ...zap.Field) {
	if ce := l.z.Check(zapcore.InfoLevel, msg); ce != nil {
		ce.Write(ctxFields(ctx, fields)...)
	}
}

func (l *zapLogger) WarnContext(ctx context.Context, msg string, fields ...zap.Field) {
	if ce := l.z.Check(zapcore.WarnLevel, msg); ce != nil {
		ce.Write(ctxFields(ctx, fields)...)
	}
}

func (l *zapLogger) ErrorContext(ctx context.Context, msg string, fields ...zap.Field) {
	if ce := l.z.Check(zapcore.ErrorLevel, msg); ce != nil {
		ce.Write(ctxFields(ctx, fields)...)
	}
}

// ctxFields 上下文字段排在调用方字段之前
func ctxFields(ctx context.Context, fields []zap.Field) []zap.Field {
	if ctx == nil {
		return fields
	}
	out := make([]zap.Field, 0, len(fields)+4)

	sc := trace.SpanContextFromContext(ctx)
	traceID := TraceIDFrom(ctx)
	if traceID == "" && sc.HasTraceID() {
		traceID = sc.TraceID().String()
	}
	if traceID != "" {
		out = append(out, zap.String("trace_id", traceID))
	}
	if sc.HasSpanID() {
		out = append(out, zap.String("span_id", sc.SpanID().String()))
	}
	if uid := UserIDFrom(ctx); uid != "" {
		out = append(out, zap.String("user_id", uid))
	}
	if cid := ConnIDFrom(ctx); cid != "" {
		out = append(out, zap.String("conn_id", cid))
	}
	return append(out, fields...)
}

func (l *zapLogger) With(fields ...zap.Field) Logger {
	return &zapLogger{z: l.z.With(fields...), level: l.level}
}

func (l *zapLogger) WithContext(ctx context.Context) Logger {
	return l.With(ctxFields(ctx, nil)...)
}

func (l *zapLogger) Named(name string) Logger {
	return &zapLogger{z: l.z.Named(name), level: l.level}
}

func (l *zapLogger) Sync() error { return l.z.Sync() }

func (l *zapLogger) SetLevel(level Level) { l.level.SetLevel(level.toZapLevel()) }

func (l *zapLogger) Level() Level { return fromZapLevel(l.level.Level()) }
