package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tokmz/fintrack/internal/model"
	"github.com/tokmz/fintrack/internal/store"
	"github.com/tokmz/fintrack/pkg/cache"
	"github.com/tokmz/fintrack/pkg/logger"
	"github.com/tokmz/fintrack/pkg/tracing"
	"github.com/tokmz/fintrack/pkg/ws"
)

// Publisher 领域事件投递，*ws.Dispatcher 满足该接口
type Publisher interface {
	DispatchToUser(ctx context.Context, userID string, ev ws.Event) (int, error)
}

// Finance 记账业务
// 每次持久化成功后同步构造领域事件并投递给该用户的全部连接
type Finance struct {
	store       *store.Store
	publisher   Publisher
	cache       cache.Cache
	group       cache.Group
	insightsTTL time.Duration
	log         logger.Logger
	now         func() time.Time

	transactions collection[model.Transaction, *model.Transaction]
	budgets      collection[model.Budget, *model.Budget]
	goals        collection[model.SavingsGoal, *model.SavingsGoal]
}

// Option Finance 选项
type Option func(*Finance)

// WithPublisher 设置事件投递
func WithPublisher(p Publisher) Option {
	return func(f *Finance) { f.publisher = p }
}

// WithCache 设置统计缓存
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(f *Finance) {
		f.cache = c
		f.insightsTTL = ttl
	}
}

// WithLogger 设置日志
func WithLogger(log logger.Logger) Option {
	return func(f *Finance) { f.log = log }
}

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(f *Finance) { f.now = now }
}

// New 创建 Finance
func New(st *store.Store, opts ...Option) *Finance {
	f := &Finance{
		store:       st,
		insightsTTL: 5 * time.Minute,
		log:         logger.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.log == nil {
		f.log = logger.NewNop()
	}
	f.log = f.log.Named("finance")

	f.transactions = collection[model.Transaction, *model.Transaction]{f: f, repo: st.Transactions}
	f.budgets = collection[model.Budget, *model.Budget]{f: f, repo: st.Budgets}
	f.goals = collection[model.SavingsGoal, *model.SavingsGoal]{f: f, repo: st.SavingsGoals}
	return f
}

// ListTransactions 列出收支记录
func (f *Finance) ListTransactions(ctx context.Context, userID string) ([]*model.Transaction, error) {
	return f.transactions.list(ctx, userID)
}

// CreateTransaction 新增收支记录，投递 transaction:added
func (f *Finance) CreateTransaction(ctx context.Context, userID string, in *model.Transaction) (*model.Transaction, error) {
	return f.transactions.create(ctx, userID, in)
}

// UpdateTransaction 修改收支记录，投递 transaction:updated
func (f *Finance) UpdateTransaction(ctx context.Context, userID, id string, in *model.Transaction) (*model.Transaction, error) {
	return f.transactions.update(ctx, userID, id, in)
}

// DeleteTransaction 删除收支记录，投递 transaction:deleted
func (f *Finance) DeleteTransaction(ctx context.Context, userID, id string) error {
	return f.transactions.remove(ctx, userID, id)
}

// ListBudgets 列出预算
func (f *Finance) ListBudgets(ctx context.Context, userID string) ([]*model.Budget, error) {
	return f.budgets.list(ctx, userID)
}

// CreateBudget 新增预算
func (f *Finance) CreateBudget(ctx context.Context, userID string, in *model.Budget) (*model.Budget, error) {
	return f.budgets.create(ctx, userID, in)
}

// UpdateBudget 修改预算
func (f *Finance) UpdateBudget(ctx context.Context, userID, id string, in *model.Budget) (*model.Budget, error) {
	return f.budgets.update(ctx, userID, id, in)
}

// DeleteBudget 删除预算
func (f *Finance) DeleteBudget(ctx context.Context, userID, id string) error {
	return f.budgets.remove(ctx, userID, id)
}

// ListSavingsGoals 列出储蓄目标
func (f *Finance) ListSavingsGoals(ctx context.Context, userID string) ([]*model.SavingsGoal, error) {
	return f.goals.list(ctx, userID)
}

// CreateSavingsGoal 新增储蓄目标
func (f *Finance) CreateSavingsGoal(ctx context.Context, userID string, in *model.SavingsGoal) (*model.SavingsGoal, error) {
	return f.goals.create(ctx, userID, in)
}

// UpdateSavingsGoal 修改储蓄目标
func (f *Finance) UpdateSavingsGoal(ctx context.Context, userID, id string, in *model.SavingsGoal) (*model.SavingsGoal, error) {
	return f.goals.update(ctx, userID, id, in)
}

// DeleteSavingsGoal 删除储蓄目标
func (f *Finance) DeleteSavingsGoal(ctx context.Context, userID, id string) error {
	return f.goals.remove(ctx, userID, id)
}

// publish 投递领域事件，失败只记录日志，已提交的变更不回滚
func (f *Finance) publish(ctx context.Context, userID string, kind ws.EventKind, payload any) {
	if f.publisher == nil {
		return
	}
	n, err := f.publisher.DispatchToUser(ctx, userID, ws.Event{Kind: kind, Payload: payload})
	if err != nil {
		f.log.ErrorContext(ctx, "publish event failed", zap.String("event", string(kind)), zap.Error(err))
		return
	}
	f.log.DebugContext(ctx, "event published", zap.String("event", string(kind)), zap.Int("delivered", n))
}

// collection 单类实体的增删改与事件投递
type collection[T any, PT interface {
	*T
	model.Record
}] struct {
	f    *Finance
	repo *store.Repository[T, PT]
}

func (c collection[T, PT]) entity() ws.Entity {
	return ws.Entity(PT(new(T)).Entity())
}

func (c collection[T, PT]) span(ctx context.Context, action ws.Action, userID string) (context.Context, trace.Span) {
	return tracing.StartSpan(ctx, "finance."+string(action),
		trace.WithAttributes(
			attribute.String("finance.entity", string(c.entity())),
			attribute.String("finance.user_id", userID),
		),
	)
}

func (c collection[T, PT]) list(ctx context.Context, userID string) ([]PT, error) {
	return c.repo.List(ctx, userID)
}

func (c collection[T, PT]) create(ctx context.Context, userID string, in PT) (PT, error) {
	ctx, span := c.span(ctx, ws.ActionAdded, userID)
	defer span.End()

	in.Prepare(userID)
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := c.repo.Create(ctx, in); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	c.f.invalidate(ctx, userID, in)
	c.f.publish(ctx, userID, ws.NewEventKind(c.entity(), ws.ActionAdded), in)
	return in, nil
}

func (c collection[T, PT]) update(ctx context.Context, userID, id string, in PT) (PT, error) {
	ctx, span := c.span(ctx, ws.ActionUpdated, userID)
	defer span.End()

	cur, err := c.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	before := monthsOf(cur)
	if err := cur.Apply(in); err != nil {
		return nil, err
	}
	if err := cur.Validate(); err != nil {
		return nil, err
	}
	if err := c.repo.Update(ctx, cur); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	c.f.invalidate(ctx, userID, cur, before...)
	c.f.publish(ctx, userID, ws.NewEventKind(c.entity(), ws.ActionUpdated), cur)
	return cur, nil
}

func (c collection[T, PT]) remove(ctx context.Context, userID, id string) error {
	ctx, span := c.span(ctx, ws.ActionDeleted, userID)
	defer span.End()

	cur, err := c.repo.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := c.repo.Delete(ctx, userID, id); err != nil {
		tracing.RecordError(span, err)
		return err
	}

	c.f.invalidate(ctx, userID, cur)
	c.f.publish(ctx, userID, ws.NewEventKind(c.entity(), ws.ActionDeleted), ws.DeletedPayload{ID: id})
	return nil
}
