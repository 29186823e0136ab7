package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tokmz/fintrack/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Exporter = "zipkin"
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))

	cfg = DefaultConfig()
	cfg.SamplingRate = 1.5
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))

	cfg = DefaultConfig()
	cfg.ServiceName = ""
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))
}

func TestDisabledProvider(t *testing.T) {
	p, err := NewProvider(context.Background(), DefaultConfig())
	require.NoError(t, err)
	assert.False(t, p.Enabled())

	ctx, span := StartSpan(context.Background(), "noop")
	span.End()
	assert.Empty(t, TraceID(ctx))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestStdoutProvider(t *testing.T) {
	var out bytes.Buffer
	rec := tracetest.NewSpanRecorder()

	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Exporter = ExporterStdout
	cfg.SamplingType = "always"

	p, err := NewProvider(context.Background(), cfg, WithStdoutWriter(&out), WithSpanProcessor(rec))
	require.NoError(t, err)
	require.True(t, p.Enabled())

	ctx, span := StartSpan(context.Background(), "sync.dispatch")
	span.SetAttributes(Attrs(map[string]any{"user.id": "u1", "recipients": 2})...)
	RecordError(span, errors.ErrServer)
	assert.Len(t, TraceID(ctx), 32)
	assert.Len(t, SpanID(ctx), 16)
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
	assert.Contains(t, out.String(), "sync.dispatch")

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Contains(t, ended[0].Attributes(), attribute.String("user.id", "u1"))
}
