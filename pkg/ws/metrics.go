package ws

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 监控接口
type Metrics interface {
	// 连接指标
	ConnectionOpened()
	ConnectionClosed()
	SetAuthenticated(count int)

	// 认证与存活
	AuthResult(ok bool)
	Evicted()

	// 投递指标
	Dispatched(event string, delivered int)
	Dropped()
	InvalidMessage()
}

// NoopMetrics 空实现（默认）
type NoopMetrics struct{}

func (NoopMetrics) ConnectionOpened()      {}
func (NoopMetrics) ConnectionClosed()      {}
func (NoopMetrics) SetAuthenticated(int)   {}
func (NoopMetrics) AuthResult(bool)        {}
func (NoopMetrics) Evicted()               {}
func (NoopMetrics) Dispatched(string, int) {}
func (NoopMetrics) Dropped()               {}
func (NoopMetrics) InvalidMessage()        {}

// PrometheusMetrics Prometheus 实现
type PrometheusMetrics struct {
	connections   prometheus.Gauge
	authenticated prometheus.Gauge
	authTotal     *prometheus.CounterVec
	evictions     prometheus.Counter
	dispatched    *prometheus.CounterVec
	dropped       prometheus.Counter
	invalid       prometheus.Counter
}

// NewPrometheusMetrics 创建并注册指标，reg 为空时使用默认注册表
func NewPrometheusMetrics(namespace string, reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	const subsystem = "ws"

	return &PrometheusMetrics{
		connections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "connections",
			Help:      "Number of open realtime connections",
		}),
		authenticated: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "authenticated_connections",
			Help:      "Number of authenticated realtime connections",
		}),
		authTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "auth_total",
			Help:      "Authentication attempts by result",
		}, []string{"result"}),
		evictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "evictions_total",
			Help:      "Connections evicted by the liveness monitor",
		}),
		dispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dispatched_total",
			Help:      "Domain event frames delivered to connections",
		}, []string{"event"}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "dropped_total",
			Help:      "Frames dropped because the connection was closed or its queue was full",
		}),
		invalid: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "invalid_messages_total",
			Help:      "Inbound messages that could not be decoded",
		}),
	}
}

func (m *PrometheusMetrics) ConnectionOpened()          { m.connections.Inc() }
func (m *PrometheusMetrics) ConnectionClosed()          { m.connections.Dec() }
func (m *PrometheusMetrics) SetAuthenticated(count int) { m.authenticated.Set(float64(count)) }
func (m *PrometheusMetrics) Evicted()                   { m.evictions.Inc() }
func (m *PrometheusMetrics) Dropped()                   { m.dropped.Inc() }
func (m *PrometheusMetrics) InvalidMessage()            { m.invalid.Inc() }

func (m *PrometheusMetrics) AuthResult(ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	m.authTotal.WithLabelValues(result).Inc()
}

func (m *PrometheusMetrics) Dispatched(event string, delivered int) {
	m.dispatched.WithLabelValues(event).Add(float64(delivered))
}
