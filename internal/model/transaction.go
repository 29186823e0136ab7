package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType 收支类型
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Transaction 收支记录
type Transaction struct {
	Base
	Type        TransactionType `gorm:"size:16;not null" json:"type"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Category    string          `gorm:"size:64;index" json:"category"`
	Description string          `gorm:"size:255" json:"description"`
	OccurredAt  time.Time       `gorm:"index" json:"occurredAt"`
}

// Entity 实现 Record
func (*Transaction) Entity() EntityType { return EntityTransaction }

// Validate 实现 Record
func (t *Transaction) Validate() error {
	switch t.Type {
	case TransactionIncome, TransactionExpense:
	default:
		return invalid("type must be income or expense")
	}
	if err := positive(t.Amount, "amount"); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return invalid("category is required")
	}
	return nil
}

// Prepare 实现 Record，未提供发生时间时取当前时间
func (t *Transaction) Prepare(userID string) {
	t.Base.Prepare(userID)
	if t.OccurredAt.IsZero() {
		t.OccurredAt = time.Now()
	}
}

// Apply 实现 Record
func (t *Transaction) Apply(src Record) error {
	s, ok := src.(*Transaction)
	if !ok {
		return mismatch(EntityTransaction, src)
	}
	t.Type = s.Type
	t.Amount = s.Amount
	t.Category = s.Category
	t.Description = s.Description
	if !s.OccurredAt.IsZero() {
		t.OccurredAt = s.OccurredAt
	}
	return nil
}
