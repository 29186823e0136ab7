package orm

import (
	"fmt"

	"github.com/tokmz/fintrack/pkg/errors"
	"github.com/tokmz/fintrack/pkg/logger"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
	"gorm.io/plugin/dbresolver"
)

// 5000 段错误码：存储
var (
	ErrInvalidConfig = errors.New(5001, 500, "数据库配置无效", nil)
	ErrConnect       = errors.New(5002, 500, "数据库连接失败", nil)
)

// New 创建 GORM 实例
func New(cfg *Config, log logger.Logger) (*gorm.DB, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}

	dialector, err := dialectorFor(cfg.Type, cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: cfg.SkipDefaultTransaction,
		PrepareStmt:            cfg.PrepareStmt,
		Logger:                 NewLogger(log.Named("gorm"), cfg.SlowThreshold, cfg.LogSQL),
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: cfg.TablePrefix,
		},
	})
	if err != nil {
		return nil, ErrConnect.WithError(err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, ErrConnect.WithError(err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if cfg.ReadWriteSplit != nil {
		if err := useReplicas(db, cfg); err != nil {
			return nil, fmt.Errorf("setup read-write split: %w", err)
		}
	}

	if cfg.Tracing {
		if err := db.Use(NewTracingPlugin(WithSQLTrace(cfg.TraceSQL))); err != nil {
			return nil, fmt.Errorf("register tracing plugin: %w", err)
		}
	}

	return db, nil
}

// Close 关闭底层连接池
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dialectorFor(t DBType, dsn string) (gorm.Dialector, error) {
	switch t {
	case MySQL:
		return mysql.Open(dsn), nil
	case PostgreSQL:
		return postgres.Open(dsn), nil
	case SQLite:
		return sqlite.Open(dsn), nil
	case SQLServer:
		return sqlserver.Open(dsn), nil
	default:
		return nil, fmt.Errorf("%w: unsupported database type %q", ErrInvalidConfig, t)
	}
}

// useReplicas 注册 dbresolver，读请求走从库
func useReplicas(db *gorm.DB, cfg *Config) error {
	rw := cfg.ReadWriteSplit
	replicas := make([]gorm.Dialector, 0, len(rw.Replicas))
	for _, dsn := range rw.Replicas {
		d, err := dialectorFor(cfg.Type, dsn)
		if err != nil {
			return err
		}
		replicas = append(replicas, d)
	}

	var policy dbresolver.Policy = dbresolver.RandomPolicy{}
	if rw.Policy == "round_robin" {
		policy = dbresolver.RoundRobinPolicy()
	}

	resolver := dbresolver.Register(dbresolver.Config{
		Replicas: replicas,
		Policy:   policy,
	})
	if rw.MaxIdleConns > 0 {
		resolver.SetMaxIdleConns(rw.MaxIdleConns)
	}
	if rw.MaxOpenConns > 0 {
		resolver.SetMaxOpenConns(rw.MaxOpenConns)
	}
	return db.Use(resolver)
}
