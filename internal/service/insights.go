package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tokmz/fintrack/internal/model"
	"github.com/tokmz/fintrack/internal/store"
	"github.com/tokmz/fintrack/pkg/cache"
	"github.com/tokmz/fintrack/pkg/errors"
)

const monthLayout = "2006-01"

// ErrInvalidMonth 月份格式错误
var ErrInvalidMonth = errors.ErrBadRequest.WithMessage("month must be YYYY-MM")

// CategorySpend 分类支出与预算对比
type CategorySpend struct {
	Category   string           `json:"category"`
	Spent      decimal.Decimal  `json:"spent"`
	Limit      *decimal.Decimal `json:"limit,omitempty"`
	Remaining  *decimal.Decimal `json:"remaining,omitempty"`
	OverBudget bool             `json:"overBudget"`
}

// GoalProgress 储蓄目标进度
type GoalProgress struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Target   decimal.Decimal `json:"target"`
	Current  decimal.Decimal `json:"current"`
	Progress decimal.Decimal `json:"progress"`
}

// Insights 月度统计
type Insights struct {
	Month      string          `json:"month"`
	Income     decimal.Decimal `json:"income"`
	Expense    decimal.Decimal `json:"expense"`
	Net        decimal.Decimal `json:"net"`
	Categories []CategorySpend `json:"categories"`
	Goals      []GoalProgress  `json:"goals"`
}

// InsightsKey 统计缓存键
func InsightsKey(userID, month string) string {
	return "insights:" + userID + ":" + month
}

// Insights 计算用户某月统计，month 为空时取当月
// 结果按月缓存，该用户的变更会失效相关月份
func (f *Finance) Insights(ctx context.Context, userID, month string) (*Insights, error) {
	start, err := f.parseMonth(month)
	if err != nil {
		return nil, err
	}
	month = start.Format(monthLayout)

	compute := func(ctx context.Context) (*Insights, error) {
		return f.computeInsights(ctx, userID, start)
	}
	if f.cache == nil {
		return compute(ctx)
	}
	return cache.RememberShared(ctx, &f.group, f.cache, InsightsKey(userID, month), f.insightsTTL, compute)
}

func (f *Finance) parseMonth(month string) (time.Time, error) {
	if month == "" {
		now := f.now().UTC()
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.ParseInLocation(monthLayout, month, time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidMonth.WithError(err)
	}
	return t, nil
}

func (f *Finance) computeInsights(ctx context.Context, userID string, start time.Time) (*Insights, error) {
	txs, err := f.store.Transactions.List(ctx, userID, store.OccurredBetween(start, start.AddDate(0, 1, 0)))
	if err != nil {
		return nil, err
	}
	budgets, err := f.store.Budgets.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	goals, err := f.store.SavingsGoals.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &Insights{
		Month:      start.Format(monthLayout),
		Income:     decimal.Zero,
		Expense:    decimal.Zero,
		Categories: []CategorySpend{},
		Goals:      make([]GoalProgress, 0, len(goals)),
	}

	spent := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		switch tx.Type {
		case model.TransactionIncome:
			out.Income = out.Income.Add(tx.Amount)
		case model.TransactionExpense:
			out.Expense = out.Expense.Add(tx.Amount)
			spent[tx.Category] = spent[tx.Category].Add(tx.Amount)
		}
	}
	out.Net = out.Income.Sub(out.Expense)

	limits := make(map[string]decimal.Decimal)
	for _, b := range budgets {
		limits[b.Category] = limits[b.Category].Add(b.MonthlyLimit())
		if _, ok := spent[b.Category]; !ok {
			spent[b.Category] = decimal.Zero
		}
	}

	for category, amount := range spent {
		cs := CategorySpend{Category: category, Spent: amount}
		if limit, ok := limits[category]; ok {
			remaining := limit.Sub(amount)
			cs.Limit = &limit
			cs.Remaining = &remaining
			cs.OverBudget = remaining.IsNegative()
		}
		out.Categories = append(out.Categories, cs)
	}
	sort.Slice(out.Categories, func(i, j int) bool {
		return out.Categories[i].Category < out.Categories[j].Category
	})

	for _, g := range goals {
		out.Goals = append(out.Goals, GoalProgress{
			ID:       g.ID,
			Name:     g.Name,
			Target:   g.TargetAmount,
			Current:  g.CurrentAmount,
			Progress: g.Progress(),
		})
	}
	return out, nil
}

// monthsOf 收支记录影响的月份，其它实体影响当月
func monthsOf(rec model.Record) []string {
	if tx, ok := rec.(*model.Transaction); ok {
		return []string{tx.OccurredAt.UTC().Format(monthLayout)}
	}
	return nil
}

// invalidate 失效受变更影响的统计缓存
func (f *Finance) invalidate(ctx context.Context, userID string, rec model.Record, extra ...string) {
	if f.cache == nil {
		return
	}
	months := append(monthsOf(rec), extra...)
	months = append(months, f.now().UTC().Format(monthLayout))

	keys := make([]string, 0, len(months))
	seen := make(map[string]bool, len(months))
	for _, m := range months {
		key := InsightsKey(userID, m)
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
		f.group.Forget(key)
	}
	if err := f.cache.Delete(ctx, keys...); err != nil {
		f.log.WarnContext(ctx, "invalidate insights failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
