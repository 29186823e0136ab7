package app

import (
	"time"

	"github.com/tokmz/fintrack/internal/auth"
	"github.com/tokmz/fintrack/internal/server"
	"github.com/tokmz/fintrack/middleware"
	"github.com/tokmz/fintrack/pkg/cache"
	"github.com/tokmz/fintrack/pkg/config"
	"github.com/tokmz/fintrack/pkg/logger"
	"github.com/tokmz/fintrack/pkg/orm"
	"github.com/tokmz/fintrack/pkg/tracing"
	"github.com/tokmz/fintrack/pkg/ws"
)

// EnvPrefix 环境变量前缀，例如 FINTRACK_AUTH_SECRET 覆盖 auth.secret
const EnvPrefix = "FINTRACK"

// Config 应用配置
type Config struct {
	Server   *server.Config         `mapstructure:"server"`
	Log      *logger.Config         `mapstructure:"log"`
	Database *orm.Config            `mapstructure:"database"`
	Cache    *cache.Config          `mapstructure:"cache"`
	Auth     *auth.Config           `mapstructure:"auth"`
	WS       *ws.Config             `mapstructure:"ws"`
	Tracing  *tracing.Config        `mapstructure:"tracing"`
	CORS     *middleware.CORSConfig `mapstructure:"cors"`
	Insights InsightsConfig         `mapstructure:"insights"`
	Metrics  MetricsConfig          `mapstructure:"metrics"`
}

// InsightsConfig 月度汇总缓存
type InsightsConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// MetricsConfig Prometheus 指标
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:   server.DefaultConfig(),
		Log:      &logger.Config{Level: logger.InfoLevel, Format: logger.JSONFormat, Console: true},
		Database: orm.DefaultConfig(),
		Cache:    cache.DefaultConfig(),
		Auth:     auth.DefaultConfig(),
		WS:       ws.DefaultConfig(),
		Tracing:  tracing.DefaultConfig(),
		CORS:     middleware.DefaultCORSConfig(),
		Insights: InsightsConfig{CacheTTL: 5 * time.Minute},
		Metrics:  MetricsConfig{Enabled: true, Namespace: "fintrack"},
	}
}

// envKeys 需要能被环境变量单独覆盖的键
// viper 只为已知键读取环境变量，因此在这里登记默认值
func envKeys(cfg *Config) map[string]any {
	return map[string]any{
		"server.addr":      cfg.Server.Addr,
		"server.mode":      cfg.Server.Mode,
		"log.level":        cfg.Log.Level.String(),
		"log.format":       string(cfg.Log.Format),
		"log.file":         cfg.Log.File,
		"database.type":    string(cfg.Database.Type),
		"database.dsn":     cfg.Database.DSN,
		"cache.driver":     string(cfg.Cache.Driver),
		"cache.key_prefix": cfg.Cache.KeyPrefix,
		"auth.secret":      cfg.Auth.Secret,
		"auth.issuer":      cfg.Auth.Issuer,
		"auth.ttl":         cfg.Auth.TTL.String(),
		"tracing.enabled":  cfg.Tracing.Enabled,
		"tracing.exporter": string(cfg.Tracing.Exporter),
		"tracing.endpoint": cfg.Tracing.Endpoint,
		"metrics.enabled":  cfg.Metrics.Enabled,
	}
}

// Load 读取配置文件与 FINTRACK_* 环境变量
// path 为空时只使用默认值与环境变量，返回的 Source 用于热更新，调用方负责 Close
func Load(path string, opts ...config.Option) (*Config, *config.Source, error) {
	cfg := DefaultConfig()

	base := []config.Option{
		config.WithEnv(EnvPrefix),
		config.WithDefaults(envKeys(cfg)),
	}
	if path != "" {
		base = append(base, config.WithFile(path))
	}
	source := config.New(append(base, opts...)...)
	if err := source.Load(); err != nil {
		return nil, nil, err
	}
	if err := source.Decode(cfg); err != nil {
		source.Close()
		return nil, nil, err
	}
	return cfg, source, nil
}

// LogLevel 从配置源重新读取日志级别
func LogLevel(source *config.Source) (logger.Level, error) {
	return logger.ParseLevel(source.GetString("log.level"))
}
