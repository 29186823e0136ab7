package orm

import (
	"fmt"
	"time"
)

// DBType 数据库类型
type DBType string

const (
	MySQL      DBType = "mysql"
	PostgreSQL DBType = "postgres"
	SQLite     DBType = "sqlite"
	SQLServer  DBType = "sqlserver"
)

// Config 数据库配置
type Config struct {
	Type DBType `mapstructure:"type"`
	DSN  string `mapstructure:"dsn"`

	// 连接池
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`

	SkipDefaultTransaction bool `mapstructure:"skip_default_transaction"`
	PrepareStmt            bool `mapstructure:"prepare_stmt"`

	// 日志
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
	LogSQL        bool          `mapstructure:"log_sql"` // 以 debug 级别输出每条 SQL

	// 命名策略
	TablePrefix string `mapstructure:"table_prefix"`

	// 链路追踪
	Tracing  bool `mapstructure:"tracing"`
	TraceSQL bool `mapstructure:"trace_sql"` // span 中记录完整 SQL

	// 读写分离（可选）
	ReadWriteSplit *ReadWriteSplitConfig `mapstructure:"read_write_split"`
}

// ReadWriteSplitConfig 读写分离配置
type ReadWriteSplitConfig struct {
	Replicas     []string `mapstructure:"replicas"` // 从库 DSN 列表
	Policy       string   `mapstructure:"policy"`   // random | round_robin
	MaxIdleConns int      `mapstructure:"max_idle_conns"`
	MaxOpenConns int      `mapstructure:"max_open_conns"`
}

// DefaultConfig 返回默认配置（本地 sqlite 文件）
func DefaultConfig() *Config {
	return &Config{
		Type:            SQLite,
		DSN:             "fintrack.db",
		MaxIdleConns:    10,
		MaxOpenConns:    50,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
		PrepareStmt:     true,
		SlowThreshold:   200 * time.Millisecond,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("%w: dsn is required", ErrInvalidConfig)
	}
	switch c.Type {
	case MySQL, PostgreSQL, SQLite, SQLServer:
	default:
		return fmt.Errorf("%w: unsupported database type %q", ErrInvalidConfig, c.Type)
	}
	if rw := c.ReadWriteSplit; rw != nil && len(rw.Replicas) == 0 {
		return fmt.Errorf("%w: read-write split requires replicas", ErrInvalidConfig)
	}
	return nil
}
