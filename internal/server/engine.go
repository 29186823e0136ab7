package server

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tokmz/fintrack/pkg/logger"
)

// Engine HTTP 服务，包装 gin.Engine 并负责优雅关机
type Engine struct {
	config *Config
	engine *gin.Engine
	log    logger.Logger

	mu         sync.Mutex
	server     *http.Server
	onShutdown []func(context.Context)
}

// New 创建 Engine
func New(log logger.Logger, opts ...Option) *Engine {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	if log == nil {
		log = logger.NewNop()
	}
	log = log.Named("http")

	// gin.SetMode 是全局状态
	if config.Mode != "" && gin.Mode() != config.Mode {
		gin.SetMode(config.Mode)
	}

	ginEngine := gin.New()
	ginEngine.Use(wrap(Recovery(log)))
	if err := ginEngine.SetTrustedProxies(config.TrustedProxies); err != nil {
		log.Warn("set trusted proxies failed", zap.Error(err))
	}

	return &Engine{
		config: config,
		engine: ginEngine,
		log:    log,
	}
}

// Use 注册全局中间件
func (e *Engine) Use(middlewares ...HandlerFunc) {
	e.engine.Use(wrapAll(middlewares...)...)
}

// Group 返回路由组
func (e *Engine) Group(path string, middlewares ...HandlerFunc) *RouterGroup {
	return &RouterGroup{group: e.engine.Group(path, wrapAll(middlewares...)...)}
}

// Router 返回根路由组
func (e *Engine) Router() *RouterGroup {
	return &RouterGroup{group: &e.engine.RouterGroup}
}

// Handler 返回 http.Handler（测试用）
func (e *Engine) Handler() http.Handler {
	return e.engine
}

// OnShutdown 注册关机回调，在 HTTP 服务停止接收新请求后按注册顺序执行
func (e *Engine) OnShutdown(fn func(context.Context)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onShutdown = append(e.onShutdown, fn)
}

// Run 启动服务，ctx 取消后优雅关机
func (e *Engine) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", e.config.Addr)
	if err != nil {
		return err
	}
	return e.Serve(ctx, ln)
}

// Serve 在给定 listener 上提供服务，ctx 取消后优雅关机
func (e *Engine) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:        e.engine,
		ReadTimeout:    e.config.ReadTimeout,
		WriteTimeout:   e.config.WriteTimeout,
		IdleTimeout:    e.config.IdleTimeout,
		MaxHeaderBytes: e.config.MaxHeaderBytes,
	}
	e.mu.Lock()
	e.server = srv
	e.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	e.log.Info("http server started", zap.String("addr", ln.Addr().String()), zap.String("mode", e.config.Mode))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	e.log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), e.config.ShutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// Shutdown 关闭服务并执行关机回调
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	srv := e.server
	hooks := append([]func(context.Context){}, e.onShutdown...)
	e.mu.Unlock()

	var err error
	if srv != nil {
		if err = srv.Shutdown(ctx); err != nil {
			e.log.Error("http server forced to close", zap.Error(err))
		}
	}
	for _, fn := range hooks {
		fn(ctx)
	}
	if err == nil {
		e.log.Info("http server stopped")
	}
	return err
}
