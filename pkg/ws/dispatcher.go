package ws

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tokmz/fintrack/pkg/logger"
	"github.com/tokmz/fintrack/pkg/tracing"
)

// Dispatcher 领域事件分发
// 投递是尽力而为且至多一次，关闭或队列满的连接直接错过该事件
type Dispatcher struct {
	registry *Registry
	log      logger.Logger
	metrics  Metrics

	// 串行化分发，保证同一实体的事件按提交顺序入队
	mu sync.Mutex
}

// NewDispatcher 创建分发器
func NewDispatcher(registry *Registry, log logger.Logger, metrics Metrics) *Dispatcher {
	if log == nil {
		log = logger.NewNop()
	}
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	return &Dispatcher{
		registry: registry,
		log:      log,
		metrics:  metrics,
	}
}

// Broadcast 分发给全部已认证连接
func (d *Dispatcher) Broadcast(ctx context.Context, ev Event) (int, error) {
	return d.fanOut(ctx, ev, "", d.registry.AllAuthenticated)
}

// DispatchToUser 分发给指定用户的全部连接
func (d *Dispatcher) DispatchToUser(ctx context.Context, userID string, ev Event) (int, error) {
	return d.fanOut(ctx, ev, userID, func() []*Connection {
		return d.registry.FindByUser(userID)
	})
}

// Dispatch 按事件的 TargetUserID 选择分发方式
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) (int, error) {
	if ev.TargetUserID == "" {
		return d.Broadcast(ctx, ev)
	}
	return d.DispatchToUser(ctx, ev.TargetUserID, ev)
}

func (d *Dispatcher) fanOut(ctx context.Context, ev Event, userID string, targets func() []*Connection) (int, error) {
	if !ev.Kind.Valid() {
		return 0, ErrUnknownEvent.WithMessage("unknown event: " + string(ev.Kind))
	}

	ctx, span := tracing.StartSpan(ctx, "ws.dispatch", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()

	data, err := ev.frame().Encode()
	if err != nil {
		tracing.RecordError(span, err)
		return 0, err
	}

	d.mu.Lock()
	conns := targets()
	delivered := 0
	for _, c := range conns {
		if err := c.SendRaw(data); err != nil {
			d.metrics.Dropped()
			d.log.DebugContext(ctx, "event dropped",
				zap.String("conn_id", c.ID),
				zap.String("event", string(ev.Kind)),
				zap.Error(err),
			)
			continue
		}
		delivered++
	}
	d.mu.Unlock()

	d.metrics.Dispatched(string(ev.Kind), delivered)
	span.SetAttributes(
		attribute.String("ws.event", string(ev.Kind)),
		attribute.String("ws.target_user", userID),
		attribute.Int("ws.targets", len(conns)),
		attribute.Int("ws.delivered", delivered),
	)
	d.log.DebugContext(ctx, "event dispatched",
		zap.String("event", string(ev.Kind)),
		zap.String("user_id", userID),
		zap.Int("targets", len(conns)),
		zap.Int("delivered", delivered),
	)
	return delivered, nil
}
