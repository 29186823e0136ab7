package store

import (
	"context"
	stderrors "errors"
	"time"

	"gorm.io/gorm"

	"github.com/tokmz/fintrack/internal/model"
	"github.com/tokmz/fintrack/pkg/errors"
)

// 5200 段错误码：记录存储
var (
	ErrNotFound = errors.New(5201, 404, "record not found", nil)
	ErrStorage  = errors.New(5202, 500, "storage failure", nil)
)

// Scope 查询条件
type Scope = func(*gorm.DB) *gorm.DB

// Repository 按用户隔离的记录仓储
type Repository[T any, PT interface {
	*T
	model.Record
}] struct {
	db *gorm.DB
}

// NewRepository 创建仓储
func NewRepository[T any, PT interface {
	*T
	model.Record
}](db *gorm.DB) *Repository[T, PT] {
	return &Repository[T, PT]{db: db}
}

// Create 插入记录
func (r *Repository[T, PT]) Create(ctx context.Context, rec PT) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return ErrStorage.WithError(err)
	}
	return nil
}

// Get 读取用户的一条记录
func (r *Repository[T, PT]) Get(ctx context.Context, userID, id string) (PT, error) {
	rec := PT(new(T))
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(rec).Error
	if err != nil {
		return nil, translate(err)
	}
	return rec, nil
}

// List 列出用户的记录，按创建时间升序
func (r *Repository[T, PT]) List(ctx context.Context, userID string, scopes ...Scope) ([]PT, error) {
	var recs []PT
	err := r.db.WithContext(ctx).
		Scopes(scopes...).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&recs).Error
	if err != nil {
		return nil, ErrStorage.WithError(err)
	}
	if recs == nil {
		recs = []PT{}
	}
	return recs, nil
}

// Update 覆盖记录的全部可变列
func (r *Repository[T, PT]) Update(ctx context.Context, rec PT) error {
	res := r.db.WithContext(ctx).
		Model(rec).
		Where("user_id = ?", rec.Owner()).
		Select("*").
		Omit("id", "user_id", "created_at").
		Updates(rec)
	if res.Error != nil {
		return ErrStorage.WithError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete 删除用户的一条记录
func (r *Repository[T, PT]) Delete(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(PT(new(T)))
	if res.Error != nil {
		return ErrStorage.WithError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// OccurredBetween 按发生时间过滤收支记录，区间左闭右开
func OccurredBetween(from, to time.Time) Scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("occurred_at >= ? AND occurred_at < ?", from, to)
	}
}

func translate(err error) error {
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound.WithError(err)
	}
	return ErrStorage.WithError(err)
}

// Store 全部实体仓储
type Store struct {
	db           *gorm.DB
	Transactions *Repository[model.Transaction, *model.Transaction]
	Budgets      *Repository[model.Budget, *model.Budget]
	SavingsGoals *Repository[model.SavingsGoal, *model.SavingsGoal]
}

// New 创建 Store
func New(db *gorm.DB) *Store {
	return &Store{
		db:           db,
		Transactions: NewRepository[model.Transaction](db),
		Budgets:      NewRepository[model.Budget](db),
		SavingsGoals: NewRepository[model.SavingsGoal](db),
	}
}

// Migrate 同步表结构
func (s *Store) Migrate(ctx context.Context) error {
	return Migrate(s.db.WithContext(ctx))
}

// Ping 检查数据库连接
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return ErrStorage.WithError(err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return ErrStorage.WithError(err)
	}
	return nil
}

// Migrate 同步全部实体的表结构
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.Transaction{}, &model.Budget{}, &model.SavingsGoal{}); err != nil {
		return ErrStorage.WithMessage("migrate failed").WithError(err)
	}
	return nil
}
