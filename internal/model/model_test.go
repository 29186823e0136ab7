package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokmz/fintrack/pkg/errors"
)

// TestTransactionValidate 测试收支记录校验
func TestTransactionValidate(t *testing.T) {
	ok := func() *Transaction {
		return &Transaction{Type: TransactionExpense, Amount: decimal.NewFromInt(12), Category: "food"}
	}

	tests := []struct {
		name   string
		mutate func(*Transaction)
		valid  bool
	}{
		{"合法", func(*Transaction) {}, true},
		{"未知类型", func(tx *Transaction) { tx.Type = "refund" }, false},
		{"金额为零", func(tx *Transaction) { tx.Amount = decimal.Zero }, false},
		{"金额为负", func(tx *Transaction) { tx.Amount = decimal.NewFromInt(-1) }, false},
		{"分类为空", func(tx *Transaction) { tx.Category = "  " }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := ok()
			tt.mutate(tx)
			err := tx.Validate()
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrInvalidRecord))
			assert.Equal(t, 400, errors.From(err).HttpCode)
		})
	}
}

// TestPrepare 测试创建前准备
func TestPrepare(t *testing.T) {
	tx := &Transaction{}
	tx.Prepare("u1")
	assert.Len(t, tx.ID, 36)
	assert.Equal(t, "u1", tx.Owner())
	assert.False(t, tx.OccurredAt.IsZero())

	b := &Budget{Base: Base{ID: "fixed"}}
	b.Prepare("u2")
	assert.Equal(t, "fixed", b.GetID())
	assert.Equal(t, "u2", b.UserID)
}

// TestApply 测试可变字段覆盖
func TestApply(t *testing.T) {
	dst := &Budget{Base: Base{ID: "b1", UserID: "u1"}, Category: "food", Limit: decimal.NewFromInt(100), Period: PeriodMonthly}
	src := &Budget{Base: Base{ID: "other", UserID: "u2"}, Category: "rent", Limit: decimal.NewFromInt(900), Period: PeriodYearly}

	require.NoError(t, dst.Apply(src))
	assert.Equal(t, "b1", dst.ID)
	assert.Equal(t, "u1", dst.UserID)
	assert.Equal(t, "rent", dst.Category)
	assert.Equal(t, PeriodYearly, dst.Period)

	err := dst.Apply(&Transaction{})
	assert.True(t, errors.Is(err, ErrInvalidRecord))
}

// TestBudgetValidate 测试预算默认周期
func TestBudgetValidate(t *testing.T) {
	b := &Budget{Category: "food", Limit: decimal.NewFromInt(100)}
	require.NoError(t, b.Validate())
	assert.Equal(t, PeriodMonthly, b.Period)

	b.Period = "daily"
	assert.Error(t, b.Validate())
}

// TestMonthlyLimit 测试预算月度折算
func TestMonthlyLimit(t *testing.T) {
	tests := []struct {
		period BudgetPeriod
		limit  int64
		want   string
	}{
		{PeriodMonthly, 300, "300"},
		{PeriodWeekly, 120, "520"},
		{PeriodYearly, 1200, "100"},
	}
	for _, tt := range tests {
		b := &Budget{Limit: decimal.NewFromInt(tt.limit), Period: tt.period}
		assert.Equal(t, tt.want, b.MonthlyLimit().String(), tt.period)
	}
}

// TestSavingsGoalProgress 测试储蓄进度
func TestSavingsGoalProgress(t *testing.T) {
	g := &SavingsGoal{Name: "trip", TargetAmount: decimal.NewFromInt(3), CurrentAmount: decimal.NewFromInt(1)}
	require.NoError(t, g.Validate())
	assert.Equal(t, "33.33", g.Progress().String())

	g.CurrentAmount = decimal.NewFromInt(5)
	assert.Equal(t, "100", g.Progress().String())

	g.CurrentAmount = decimal.NewFromInt(-1)
	assert.Error(t, g.Validate())
}

// TestJSONShape 测试对外字段名
func TestJSONShape(t *testing.T) {
	g := &SavingsGoal{Base: Base{ID: "g1", UserID: "u1"}, Name: "trip", TargetAmount: decimal.RequireFromString("10.50")}
	data, err := json.Marshal(g)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "g1", m["id"])
	assert.Equal(t, "u1", m["userId"])
	assert.Equal(t, "10.5", m["targetAmount"])
	assert.NotContains(t, m, "deadline")

	var back SavingsGoal
	require.NoError(t, json.Unmarshal([]byte(`{"name":"x","targetAmount":20,"currentAmount":"2.5"}`), &back))
	assert.True(t, back.TargetAmount.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, "2.5", back.CurrentAmount.String())
}

// TestCollection 测试集合路径
func TestCollection(t *testing.T) {
	assert.Equal(t, "transactions", EntityTransaction.Collection())
	assert.Equal(t, "budgets", EntityBudget.Collection())
	assert.Equal(t, "savings-goals", EntitySavingsGoal.Collection())
	assert.Empty(t, EntityType("x").Collection())
}
