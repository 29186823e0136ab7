package ws

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tokmz/fintrack/pkg/logger"
)

// LivenessMonitor 存活检测
// 每个周期先检查上一轮探测是否得到响应，未响应的连接被驱逐，其余重新探测
type LivenessMonitor struct {
	registry *Registry
	interval time.Duration
	log      logger.Logger
	metrics  Metrics
}

// NewLivenessMonitor 创建存活检测器
func NewLivenessMonitor(registry *Registry, interval time.Duration, log logger.Logger, metrics Metrics) *LivenessMonitor {
	if log == nil {
		log = logger.NewNop()
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &LivenessMonitor{
		registry: registry,
		interval: interval,
		log:      log,
		metrics:  metrics,
	}
}

// Sweep 执行一轮检测，返回驱逐数量
func (m *LivenessMonitor) Sweep() int {
	evicted := 0
	for _, c := range m.registry.Snapshot() {
		if !c.alive.CompareAndSwap(true, false) {
			_ = c.Close()
			if m.registry.Remove(c.ID) {
				evicted++
				m.metrics.Evicted()
				m.log.Info("connection evicted",
					zap.String("conn_id", c.ID),
					zap.Duration("age", time.Since(c.ConnectedAt)),
				)
			}
			continue
		}
		if err := c.transport.Ping(); err != nil {
			// 探测失败不立即驱逐，下一轮按未响应处理
			m.log.Debug("ping failed", zap.String("conn_id", c.ID), zap.Error(err))
		}
	}
	return evicted
}

// Run 按周期检测直到 ctx 取消
func (m *LivenessMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
