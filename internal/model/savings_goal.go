package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SavingsGoal 储蓄目标
type SavingsGoal struct {
	Base
	Name          string          `gorm:"size:128;not null" json:"name"`
	TargetAmount  decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"targetAmount"`
	CurrentAmount decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"currentAmount"`
	Deadline      *time.Time      `json:"deadline,omitempty"`
}

// Entity 实现 Record
func (*SavingsGoal) Entity() EntityType { return EntitySavingsGoal }

// Validate 实现 Record
func (g *SavingsGoal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return invalid("name is required")
	}
	if err := positive(g.TargetAmount, "targetAmount"); err != nil {
		return err
	}
	if g.CurrentAmount.IsNegative() {
		return invalid("currentAmount must not be negative")
	}
	return nil
}

// Apply 实现 Record
func (g *SavingsGoal) Apply(src Record) error {
	s, ok := src.(*SavingsGoal)
	if !ok {
		return mismatch(EntitySavingsGoal, src)
	}
	g.Name = s.Name
	g.TargetAmount = s.TargetAmount
	g.CurrentAmount = s.CurrentAmount
	g.Deadline = s.Deadline
	return nil
}

// Progress 完成百分比，保留两位小数，封顶 100
func (g *SavingsGoal) Progress() decimal.Decimal {
	if !g.TargetAmount.IsPositive() {
		return decimal.Zero
	}
	p := g.CurrentAmount.Div(g.TargetAmount).Mul(decimal.NewFromInt(100)).Round(2)
	if p.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.NewFromInt(100)
	}
	return p
}
