package storage

import (
	"context"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/docstore"
)

// Totals sums all of the owner's transactions by type. Missing types are zero.
func (r *Repository) Totals(ctx context.Context, userID string) (core.Totals, error) {
	groups, err := r.transactions().AggregateGroupSum(ctx, owned(userID),
		[]docstore.GroupKey{{Field: fType}}, fAmount)
	if err != nil {
		return core.Totals{}, mapErr("totals", err)
	}
	t := core.Totals{Income: decimal.Zero, Expense: decimal.Zero}
	for _, g := range groups {
		switch core.TxType(g.Keys[0]) {
		case core.Income:
			t.Income = core.RoundCents(g.Sum)
		case core.Expense:
			t.Expense = core.RoundCents(g.Sum)
		}
	}
	return t, nil
}

// SpendByCategory sums the owner's expenses dated within month, per category.
func (r *Repository) SpendByCategory(ctx context.Context, userID, month string) (map[string]decimal.Decimal, error) {
	if err := core.ValidateMonth(month); err != nil {
		return nil, err
	}
	f := owned(userID).And(
		docstore.Eq(fType, string(core.Expense)),
		docstore.HasPrefix(fDate, month),
	)
	groups, err := r.transactions().AggregateGroupSum(ctx, f,
		[]docstore.GroupKey{{Field: fCategory}}, fAmount)
	if err != nil {
		return nil, mapErr("spend by category", err)
	}
	out := make(map[string]decimal.Decimal, len(groups))
	for _, g := range groups {
		out[g.Keys[0]] = core.RoundCents(g.Sum)
	}
	return out, nil
}

// MonthIncomeExpense returns an entry for every requested month, zero when
// the month has no transactions.
func (r *Repository) MonthIncomeExpense(ctx context.Context, userID string, months []string) (map[string]core.Totals, error) {
	out := make(map[string]core.Totals, len(months))
	for _, m := range months {
		if err := core.ValidateMonth(m); err != nil {
			return nil, err
		}
		out[m] = core.Totals{Income: decimal.Zero, Expense: decimal.Zero}
	}
	if len(months) == 0 {
		return out, nil
	}

	f := owned(userID).And(docstore.HasPrefix(fDate, months...))
	groups, err := r.transactions().AggregateGroupSum(ctx, f,
		[]docstore.GroupKey{{Field: fDate, Prefix: len("2006-01")}, {Field: fType}}, fAmount)
	if err != nil {
		return nil, mapErr("month income expense", err)
	}
	for _, g := range groups {
		flow, ok := out[g.Keys[0]]
		if !ok {
			continue
		}
		switch core.TxType(g.Keys[1]) {
		case core.Income:
			flow.Income = core.RoundCents(g.Sum)
		case core.Expense:
			flow.Expense = core.RoundCents(g.Sum)
		}
		out[g.Keys[0]] = flow
	}
	return out, nil
}

// BudgetStatus pairs each budget of month with what was spent against it. A
// category budget is compared with that category's expenses, a whole-month
// budget with all expenses of the month.
func (r *Repository) BudgetStatus(ctx context.Context, userID, month string) ([]core.BudgetLine, error) {
	budgets, err := r.BudgetsForMonth(ctx, userID, month)
	if err != nil {
		return nil, err
	}
	spend, err := r.SpendByCategory(ctx, userID, month)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, v := range spend {
		total = total.Add(v)
	}

	lines := make([]core.BudgetLine, 0, len(budgets))
	for _, b := range budgets {
		spent := total
		if b.Category != nil {
			spent = spend[*b.Category]
		}
		lines = append(lines, core.BudgetLine{Category: b.Category, Limit: b.Limit, Spent: spent})
	}
	return lines, nil
}
