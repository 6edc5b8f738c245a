package core

import "github.com/shopspring/decimal"

// Totals holds income and expense sums reported separately.
type Totals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// Balance is income minus expense.
func (t Totals) Balance() decimal.Decimal {
	return t.Income.Sub(t.Expense)
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

// BudgetLine compares a budget with what was spent against it.
type BudgetLine struct {
	Category *string
	Limit    decimal.Decimal
	Spent    decimal.Decimal
}

// Remaining is negative when the budget is exceeded.
func (l BudgetLine) Remaining() decimal.Decimal {
	return l.Limit.Sub(l.Spent)
}

func (l BudgetLine) Exceeded() bool {
	return l.Spent.GreaterThan(l.Limit)
}

// Dashboard is the landing summary for one user and month.
type Dashboard struct {
	Month      string
	Totals     Totals
	Recent     []Transaction
	Budgets    []BudgetLine
	SpendByCat map[string]decimal.Decimal
}

// Report is the trend view: income and expense for a run of months plus the
// category breakdown of the last one.
type Report struct {
	Months       []string
	MonthIncome  []decimal.Decimal
	MonthExpense []decimal.Decimal
	CurrentMonth string
	Categories   []CategoryAmount // sorted by amount, largest first
}
