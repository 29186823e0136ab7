package app

import (
	"context"
	"net"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tokmz/fintrack/internal/api"
	"github.com/tokmz/fintrack/internal/auth"
	"github.com/tokmz/fintrack/internal/server"
	"github.com/tokmz/fintrack/internal/service"
	"github.com/tokmz/fintrack/internal/store"
	"github.com/tokmz/fintrack/pkg/cache"
	"github.com/tokmz/fintrack/pkg/config"
	"github.com/tokmz/fintrack/pkg/errors"
	"github.com/tokmz/fintrack/pkg/logger"
	"github.com/tokmz/fintrack/pkg/orm"
	"github.com/tokmz/fintrack/pkg/tracing"
	"github.com/tokmz/fintrack/pkg/ws"
)

// App 组装完成的服务
type App struct {
	cfg *Config
	log logger.Logger

	tracer  *tracing.Provider
	db      *gorm.DB
	store   *store.Store
	cache   cache.Cache
	tokens  *auth.Tokens
	hub     *ws.Hub
	finance *service.Finance
	engine  *server.Engine
	metrics *prometheus.Registry

	mu      sync.Mutex
	closers []func(context.Context) error
}

// Option App 选项
type Option func(*App)

// WithLogger 使用外部日志，不再按配置创建
func WithLogger(log logger.Logger) Option {
	return func(a *App) { a.log = log }
}

// New 按配置创建全部组件
// 任一组件失败时释放已创建的资源
func New(ctx context.Context, cfg *Config, opts ...Option) (_ *App, err error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	a := &App{cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}
	defer func() {
		if err != nil {
			_ = a.close(context.Background())
		}
	}()

	if a.log == nil {
		if a.log, err = logger.New(cfg.Log); err != nil {
			return nil, err
		}
	}

	if a.tracer, err = tracing.NewProvider(ctx, cfg.Tracing); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.tracer.Shutdown)

	if a.db, err = orm.New(cfg.Database, a.log); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return orm.Close(a.db) })
	a.store = store.New(a.db)

	if a.cache, err = cache.New(cfg.Cache); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return a.cache.Close() })

	if a.tokens, err = auth.New(cfg.Auth); err != nil {
		return nil, err
	}

	hubOpts := []ws.HubOption{ws.WithLogger(a.log)}
	if cfg.Metrics.Enabled {
		a.metrics = prometheus.NewRegistry()
		a.metrics.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		hubOpts = append(hubOpts, ws.WithMetrics(ws.NewPrometheusMetrics(cfg.Metrics.Namespace, a.metrics)))
	}
	if a.hub, err = ws.NewHub(cfg.WS, a.tokens, hubOpts...); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.hub.Shutdown)

	a.finance = service.New(a.store,
		service.WithPublisher(a.hub.Dispatcher()),
		service.WithCache(a.cache, cfg.Insights.CacheTTL),
		service.WithLogger(a.log),
	)

	a.engine = server.New(a.log, server.WithConfig(cfg.Server))
	apiOpts := []api.Option{
		api.WithLogger(a.log),
		api.WithHealthCheck("database", a.store),
		api.WithHealthCheck("cache", a.cache),
		api.WithCORS(cfg.CORS),
	}
	if a.metrics != nil {
		apiOpts = append(apiOpts, api.WithMetricsHandler(promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{})))
	}
	if err = api.New(a.finance, a.tokens, a.hub, apiOpts...).Register(a.engine); err != nil {
		return nil, err
	}
	return a, nil
}

// Logger 应用日志
func (a *App) Logger() logger.Logger { return a.log }

// Store 数据存储
func (a *App) Store() *store.Store { return a.store }

// Tokens 令牌签发与校验
func (a *App) Tokens() *auth.Tokens { return a.tokens }

// Hub 实时通道
func (a *App) Hub() *ws.Hub { return a.hub }

// Engine HTTP 服务
func (a *App) Engine() *server.Engine { return a.engine }

// Migrate 同步表结构
func (a *App) Migrate(ctx context.Context) error {
	return a.store.Migrate(ctx)
}

// Run 启动实时通道与 HTTP 服务，ctx 结束后优雅关闭
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.Addr)
	if err != nil {
		return err
	}
	return a.Serve(ctx, ln)
}

// Serve 在给定监听器上运行
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	if err := a.hub.Run(); err != nil {
		_ = ln.Close()
		return err
	}
	a.engine.OnShutdown(func(ctx context.Context) {
		if err := a.close(ctx); err != nil {
			a.log.Error("release resources", zap.Error(err))
		}
	})
	return a.engine.Serve(ctx, ln)
}

// Watch 配置文件变更时热更新日志级别，直到 ctx 结束
func (a *App) Watch(ctx context.Context, source *config.Source) error {
	return source.Watch(ctx, func() {
		level, err := LogLevel(source)
		if err != nil {
			a.log.Warn("ignore invalid log level", zap.Error(err))
			return
		}
		if level != a.log.Level() {
			a.log.SetLevel(level)
			a.log.Info("log level changed", zap.String("level", level.String()))
		}
	})
}

// Close 释放全部资源，用于未调用 Serve 的场景
func (a *App) Close(ctx context.Context) error {
	return a.close(ctx)
}

// close 逆序释放资源，只执行一次
func (a *App) close(ctx context.Context) error {
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
	return errors.Join(errs...)
}
