package api

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/tokmz/fintrack/internal/model"
	"github.com/tokmz/fintrack/internal/server"
	"github.com/tokmz/fintrack/internal/service"
	"github.com/tokmz/fintrack/middleware"
	"github.com/tokmz/fintrack/pkg/errors"
	"github.com/tokmz/fintrack/pkg/logger"
	"github.com/tokmz/fintrack/pkg/ws"
)

// Pinger 健康检查依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// API REST 与实时通道的路由装配
type API struct {
	finance  *service.Finance
	verifier ws.TokenVerifier
	hub      *ws.Hub
	log      logger.Logger

	pingers map[string]Pinger
	metrics http.Handler
	cors    *middleware.CORSConfig
}

// Option API 选项
type Option func(*API)

// WithLogger 设置日志
func WithLogger(log logger.Logger) Option {
	return func(a *API) { a.log = log }
}

// WithHealthCheck 注册健康检查项
func WithHealthCheck(name string, p Pinger) Option {
	return func(a *API) { a.pingers[name] = p }
}

// WithMetricsHandler 挂载 /metrics
func WithMetricsHandler(h http.Handler) Option {
	return func(a *API) { a.metrics = h }
}

// WithCORS 设置跨域配置
func WithCORS(cfg *middleware.CORSConfig) Option {
	return func(a *API) { a.cors = cfg }
}

// New 创建 API
func New(finance *service.Finance, verifier ws.TokenVerifier, hub *ws.Hub, opts ...Option) *API {
	a := &API{
		finance:  finance,
		verifier: verifier,
		hub:      hub,
		log:      logger.NewNop(),
		pingers:  make(map[string]Pinger),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.Named("api")
	return a
}

// Register 注册全部 HTTP 路由与实时通道消息处理器
func (a *API) Register(e *server.Engine) error {
	e.Use(middleware.Tracing(&middleware.TracingConfig{
		TracerName:   "fintrack.http",
		ExcludePaths: []string{"/healthz", "/metrics", "/ws"},
	}))
	e.Use(server.Logger(a.log, "/healthz", "/metrics"))
	e.Use(middleware.CORS(a.cors))

	root := e.Router()
	root.GET("/healthz", a.health)
	if a.metrics != nil {
		root.Raw(http.MethodGet, "/metrics", a.metrics)
	}
	if a.hub != nil {
		root.Raw(http.MethodGet, "/ws", a.hub)
		if err := RegisterSocket(a.hub.Router(), a.finance); err != nil {
			return err
		}
	}

	v1 := e.Group("/api/v1", middleware.Auth(a.verifier, a.log))
	mountREST(v1, "/"+model.EntityTransaction.Collection(), operations[model.Transaction]{
		list:   a.finance.ListTransactions,
		create: a.finance.CreateTransaction,
		update: a.finance.UpdateTransaction,
		remove: a.finance.DeleteTransaction,
	})
	mountREST(v1, "/"+model.EntityBudget.Collection(), operations[model.Budget]{
		list:   a.finance.ListBudgets,
		create: a.finance.CreateBudget,
		update: a.finance.UpdateBudget,
		remove: a.finance.DeleteBudget,
	})
	mountREST(v1, "/"+model.EntitySavingsGoal.Collection(), operations[model.SavingsGoal]{
		list:   a.finance.ListSavingsGoals,
		create: a.finance.CreateSavingsGoal,
		update: a.finance.UpdateSavingsGoal,
		remove: a.finance.DeleteSavingsGoal,
	})
	server.Handle[insightsQuery, service.Insights](v1.GET, "/insights", a.insights)
	return nil
}

type insightsQuery struct {
	Month string `form:"month"`
}

func (a *API) insights(c *server.Context, q *insightsQuery) (*service.Insights, error) {
	return a.finance.Insights(c.RequestContext(), c.UserID(), q.Month)
}

// HealthStatus 健康检查结果
type HealthStatus struct {
	Status      string            `json:"status"`
	Checks      map[string]string `json:"checks,omitempty"`
	Connections int               `json:"connections"`
}

// ErrUnhealthy 依赖不可用
var ErrUnhealthy = errors.New(1010, http.StatusServiceUnavailable, "unhealthy", nil)

func (a *API) health(c *server.Context) {
	status := HealthStatus{Status: "ok", Checks: make(map[string]string, len(a.pingers))}
	if a.hub != nil {
		status.Connections = a.hub.Registry().Count()
	}

	var failed []string
	for name, p := range a.pingers {
		if err := p.Ping(c.Request().Context()); err != nil {
			a.log.WarnContext(c.RequestContext(), "health check failed", zap.String("check", name), zap.Error(err))
			failed = append(failed, name)
			continue
		}
		status.Checks[name] = "ok"
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		c.RespondError(ErrUnhealthy.WithMessage("unhealthy: " + strings.Join(failed, ", ")))
		return
	}
	c.Success(status)
}
