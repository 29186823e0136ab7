package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

// BudgetPeriod 预算周期
type BudgetPeriod string

const (
	PeriodWeekly  BudgetPeriod = "weekly"
	PeriodMonthly BudgetPeriod = "monthly"
	PeriodYearly  BudgetPeriod = "yearly"
)

// Budget 分类预算
type Budget struct {
	Base
	Category string          `gorm:"size:64;index;not null" json:"category"`
	Limit    decimal.Decimal `gorm:"column:limit_amount;type:decimal(18,2);not null" json:"limit"`
	Period   BudgetPeriod    `gorm:"size:16;not null" json:"period"`
}

// Entity 实现 Record
func (*Budget) Entity() EntityType { return EntityBudget }

// Validate 实现 Record，周期为空时按月
func (b *Budget) Validate() error {
	if b.Period == "" {
		b.Period = PeriodMonthly
	}
	switch b.Period {
	case PeriodWeekly, PeriodMonthly, PeriodYearly:
	default:
		return invalid("period must be weekly, monthly or yearly")
	}
	if strings.TrimSpace(b.Category) == "" {
		return invalid("category is required")
	}
	return positive(b.Limit, "limit")
}

// Apply 实现 Record
func (b *Budget) Apply(src Record) error {
	s, ok := src.(*Budget)
	if !ok {
		return mismatch(EntityBudget, src)
	}
	b.Category = s.Category
	b.Limit = s.Limit
	b.Period = s.Period
	return nil
}

// MonthlyLimit 折算为月度额度
func (b *Budget) MonthlyLimit() decimal.Decimal {
	switch b.Period {
	case PeriodWeekly:
		return b.Limit.Mul(decimal.NewFromInt(52)).Div(decimal.NewFromInt(12)).Round(2)
	case PeriodYearly:
		return b.Limit.Div(decimal.NewFromInt(12)).Round(2)
	}
	return b.Limit
}
