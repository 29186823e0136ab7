package orm

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tokmz/fintrack/pkg/errors"
	"github.com/tokmz/fintrack/pkg/logger"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type account struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func memoryConfig() *Config {
	cfg := DefaultConfig()
	cfg.DSN = "file::memory:?cache=shared"
	cfg.MaxOpenConns = 1
	return cfg
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.DSN = ""
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))

	cfg = DefaultConfig()
	cfg.Type = "oracle"
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))

	cfg = DefaultConfig()
	cfg.ReadWriteSplit = &ReadWriteSplitConfig{}
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))
}

func TestNewSQLite(t *testing.T) {
	db, err := New(memoryConfig(), nil)
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, db.AutoMigrate(&account{}))
	require.NoError(t, db.Create(&account{Name: "checking"}).Error)

	var got account
	require.NoError(t, db.First(&got).Error)
	assert.Equal(t, "checking", got.Name)
}

func TestLoggerSlowQuery(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.NewWithOptions(logger.WithOutput(&buf), logger.WithLevel(logger.DebugLevel))
	require.NoError(t, err)

	l := NewLogger(log, time.Nanosecond, false)
	l.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) {
		return "SELECT 1", 1
	}, nil)
	assert.Contains(t, buf.String(), "slow sql")
	assert.Contains(t, buf.String(), "SELECT 1")

	buf.Reset()
	l.LogMode(1).Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT 2", 1
	}, nil)
	assert.Empty(t, buf.String())
}

func TestTracingPlugin(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	cfg := memoryConfig()
	cfg.DSN = "file:tracing?mode=memory&cache=shared"
	cfg.Tracing = true
	cfg.TraceSQL = true
	db, err := New(cfg, nil)
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, db.AutoMigrate(&account{}))
	require.NoError(t, db.Create(&account{Name: "savings"}).Error)

	var names []string
	for _, s := range rec.Ended() {
		names = append(names, s.Name())
	}
	assert.Contains(t, names, "gorm.create")
}
