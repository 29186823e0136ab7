package tracing

import (
	"fmt"
	"time"

	"github.com/tokmz/fintrack/pkg/errors"
)

// ExporterType 导出器类型
type ExporterType string

const (
	ExporterOTLP     ExporterType = "otlp"     // OTLP over HTTP
	ExporterOTLPGRPC ExporterType = "otlpgrpc" // OTLP over gRPC
	ExporterStdout   ExporterType = "stdout"
	ExporterNoop     ExporterType = "noop"
)

// ErrInvalidConfig 追踪配置无效
var ErrInvalidConfig = errors.New(1101, 500, "链路追踪配置无效", nil)

// Config 链路追踪配置
type Config struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
	Environment    string `mapstructure:"environment"`

	Exporter ExporterType      `mapstructure:"exporter"`
	Endpoint string            `mapstructure:"endpoint"`
	Headers  map[string]string `mapstructure:"headers"`
	Insecure bool              `mapstructure:"insecure"`

	// 采样：always | never | ratio | parent_based
	SamplingType string  `mapstructure:"sampling_type"`
	SamplingRate float64 `mapstructure:"sampling_rate"`

	ResourceAttributes map[string]string `mapstructure:"resource_attributes"`

	BatchTimeout       time.Duration `mapstructure:"batch_timeout"`
	MaxExportBatchSize int           `mapstructure:"max_export_batch_size"`
	MaxQueueSize       int           `mapstructure:"max_queue_size"`
}

// DefaultConfig 返回默认配置（禁用）
func DefaultConfig() *Config {
	return &Config{
		Enabled:            false,
		ServiceName:        "fintrack",
		ServiceVersion:     "dev",
		Environment:        "development",
		Exporter:           ExporterNoop,
		SamplingType:       "parent_based",
		SamplingRate:       1.0,
		BatchTimeout:       5 * time.Second,
		MaxExportBatchSize: 512,
		MaxQueueSize:       2048,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("%w: service name is required", ErrInvalidConfig)
	}
	if c.SamplingRate < 0 || c.SamplingRate > 1 {
		return fmt.Errorf("%w: sampling rate must be within [0, 1]", ErrInvalidConfig)
	}
	switch c.Exporter {
	case ExporterOTLP, ExporterOTLPGRPC, ExporterStdout, ExporterNoop:
	default:
		return fmt.Errorf("%w: unknown exporter %q", ErrInvalidConfig, c.Exporter)
	}
	return nil
}
