package storage

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/docstore"
)

func budgetFromDocument(d docstore.Document) core.Budget {
	return core.Budget{
		ID:       d.ID(),
		UserID:   d.String(fUserID),
		Month:    d.String(fMonth),
		Category: d.OptString(fCategory),
		Limit:    core.AmountFromFloat(d.Float(fLimit)),
	}
}

func budgetFields(b core.Budget) docstore.Document {
	var category any
	if b.Category != nil {
		category = *b.Category
	}
	return docstore.Document{
		fMonth:    b.Month,
		fCategory: category,
		fLimit:    b.Limit,
	}
}

func (r *Repository) listBudgets(ctx context.Context, op string, f docstore.Filter, sort ...docstore.SortField) ([]core.Budget, error) {
	docs, err := r.budgets().Find(ctx, f).Sort(sort...).All(ctx)
	if err != nil {
		return nil, mapErr(op, err)
	}
	out := make([]core.Budget, 0, len(docs))
	for _, d := range docs {
		out = append(out, budgetFromDocument(d))
	}
	return out, nil
}

// ListBudgets returns the owner's budgets, latest month first, then by category.
func (r *Repository) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	return r.listBudgets(ctx, "list budgets", owned(userID),
		docstore.Desc(fMonth), docstore.Asc(fCategory))
}

// BudgetsForMonth returns the owner's budgets of month ordered by category,
// the whole-month budget first.
func (r *Repository) BudgetsForMonth(ctx context.Context, userID, month string) ([]core.Budget, error) {
	if err := core.ValidateMonth(month); err != nil {
		return nil, err
	}
	return r.listBudgets(ctx, "budgets for month",
		owned(userID).And(docstore.Eq(fMonth, month)),
		docstore.Asc(fCategory))
}

// AddBudget stores a budget. When one already exists for the same owner,
// month and category it returns "" and core.ErrConstraintViolation, leaving
// the existing row untouched.
func (r *Repository) AddBudget(ctx context.Context, b core.Budget) (string, error) {
	b.Category = core.NormalizeBudgetCategory(b.Category)
	if err := b.Validate(); err != nil {
		return "", err
	}
	doc := budgetFields(b)
	doc[fUserID] = b.UserID
	id, err := r.budgets().Insert(ctx, doc)
	if err != nil {
		err = mapErr("add budget", err)
		if errors.Is(err, core.ErrConstraintViolation) {
			r.logger.InfoContext(ctx, "Budget already exists",
				"user_id", b.UserID, "month", b.Month, "category", b.CategoryLabel())
		}
		return "", err
	}
	return id, nil
}

func (r *Repository) FindBudget(ctx context.Context, userID, id string) (core.Budget, error) {
	f, ok := r.ownedByID(userID, id)
	if !ok {
		return core.Budget{}, fmt.Errorf("find budget: %w", core.ErrNotFound)
	}
	d, err := r.budgets().FindOne(ctx, f)
	if err != nil {
		return core.Budget{}, mapErr("find budget", err)
	}
	return budgetFromDocument(d), nil
}

// UpdateBudget replaces month, category and limit of an owned budget. It
// returns true only when the row existed and the new key did not collide with
// another budget; the error then tells which (core.ErrNotFound or
// core.ErrConstraintViolation). Rewriting a budget with its own key succeeds.
func (r *Repository) UpdateBudget(ctx context.Context, b core.Budget) (bool, error) {
	b.Category = core.NormalizeBudgetCategory(b.Category)
	if err := b.Validate(); err != nil {
		return false, err
	}
	f, ok := r.ownedByID(b.UserID, b.ID)
	if !ok {
		return false, fmt.Errorf("update budget: %w", core.ErrNotFound)
	}
	n, err := r.budgets().UpdateFields(ctx, f, budgetFields(b))
	if err != nil {
		return false, mapErr("update budget", err)
	}
	if n == 0 {
		return false, fmt.Errorf("update budget: %w", core.ErrNotFound)
	}
	return true, nil
}

// DeleteBudget reports whether a row was removed.
func (r *Repository) DeleteBudget(ctx context.Context, userID, id string) (bool, error) {
	f, ok := r.ownedByID(userID, id)
	if !ok {
		return false, nil
	}
	n, err := r.budgets().DeleteOne(ctx, f)
	if err != nil {
		return false, mapErr("delete budget", err)
	}
	return n > 0, nil
}
