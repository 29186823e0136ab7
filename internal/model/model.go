package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tokmz/fintrack/pkg/errors"
)

// EntityType 可同步的实体类型
type EntityType string

const (
	EntityTransaction EntityType = "transaction"
	EntityBudget      EntityType = "budget"
	EntitySavingsGoal EntityType = "savingsGoal"
)

// Collection REST 集合路径段
func (e EntityType) Collection() string {
	switch e {
	case EntityTransaction:
		return "transactions"
	case EntityBudget:
		return "budgets"
	case EntitySavingsGoal:
		return "savings-goals"
	}
	return ""
}

// Record 用户私有记录
// 实现方必须为指针类型
type Record interface {
	GetID() string
	Owner() string
	Entity() EntityType
	Validate() error

	// Prepare 创建前分配 id 并绑定用户
	Prepare(userID string)
	// Apply 以 src 的可变字段覆盖当前记录
	Apply(src Record) error
}

// ErrInvalidRecord 记录校验失败
var ErrInvalidRecord = errors.New(5101, 400, "invalid record", nil)

func invalid(msg string) error {
	return ErrInvalidRecord.WithMessage(msg)
}

// Base 公共字段
type Base struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:64;index;not null" json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GetID 记录 id
func (b *Base) GetID() string { return b.ID }

// Owner 所属用户
func (b *Base) Owner() string { return b.UserID }

// Prepare 实现 Record
func (b *Base) Prepare(userID string) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	b.UserID = userID
}

func mismatch(want EntityType, src Record) error {
	return invalid("cannot apply " + string(src.Entity()) + " to " + string(want))
}

func positive(d decimal.Decimal, field string) error {
	if !d.IsPositive() {
		return invalid(field + " must be positive")
	}
	return nil
}
