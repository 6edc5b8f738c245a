package storage

import (
	"context"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/docstore"
)

// newestFirst orders by date, then by insertion for same-day entries.
var newestFirst = []docstore.SortField{docstore.Desc(fDate), docstore.Desc(docstore.FieldID)}

// ListOptions narrows and pages a transaction listing. Zero values mean no restriction.
type ListOptions struct {
	Type     core.TxType
	Category string
	Month    string
	Skip     int64
	Limit    int64
}

func transactionFromDocument(d docstore.Document) core.Transaction {
	return core.Transaction{
		ID:          d.ID(),
		UserID:      d.String(fUserID),
		Date:        d.String(fDate),
		Type:        core.TxType(d.String(fType)),
		Amount:      core.AmountFromFloat(d.Float(fAmount)),
		Category:    d.String(fCategory),
		Description: d.String(fDescription),
	}
}

func transactionsFromDocuments(docs []docstore.Document) []core.Transaction {
	out := make([]core.Transaction, 0, len(docs))
	for _, d := range docs {
		out = append(out, transactionFromDocument(d))
	}
	return out
}

// ListTransactions returns the owner's transactions, newest first.
func (r *Repository) ListTransactions(ctx context.Context, userID string, opts ListOptions) ([]core.Transaction, error) {
	f := owned(userID)
	if opts.Type != "" {
		if err := opts.Type.Validate(); err != nil {
			return nil, err
		}
		f = f.And(docstore.Eq(fType, string(opts.Type)))
	}
	if opts.Category != "" {
		f = f.And(docstore.Eq(fCategory, opts.Category))
	}
	if opts.Month != "" {
		if err := core.ValidateMonth(opts.Month); err != nil {
			return nil, err
		}
		f = f.And(docstore.HasPrefix(fDate, opts.Month))
	}
	docs, err := r.transactions().Find(ctx, f).
		Sort(newestFirst...).
		Skip(opts.Skip).
		Limit(opts.Limit).
		All(ctx)
	if err != nil {
		return nil, mapErr("list transactions", err)
	}
	return transactionsFromDocuments(docs), nil
}

// InsertTransaction stores tx for its owner after applying the category default.
func (r *Repository) InsertTransaction(ctx context.Context, tx core.Transaction) (string, error) {
	tx = tx.Normalize()
	if err := tx.Validate(); err != nil {
		return "", err
	}
	id, err := r.transactions().Insert(ctx, docstore.Document{
		fUserID:      tx.UserID,
		fDate:        tx.Date,
		fType:        string(tx.Type),
		fAmount:      tx.Amount,
		fCategory:    tx.Category,
		fDescription: tx.Description,
	})
	if err != nil {
		return "", mapErr("insert transaction", err)
	}
	r.logger.InfoContext(ctx, "Transaction saved",
		"id", id,
		"user_id", tx.UserID,
		"type", tx.Type,
		"date", tx.Date)
	return id, nil
}

func (r *Repository) FindTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	f, ok := r.ownedByID(userID, id)
	if !ok {
		return core.Transaction{}, fmt.Errorf("find transaction: %w", core.ErrNotFound)
	}
	d, err := r.transactions().FindOne(ctx, f)
	if err != nil {
		return core.Transaction{}, mapErr("find transaction", err)
	}
	return transactionFromDocument(d), nil
}

// UpdateTransaction writes only the fields set in patch.
func (r *Repository) UpdateTransaction(ctx context.Context, userID, id string, patch core.TransactionPatch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	f, ok := r.ownedByID(userID, id)
	if !ok {
		return fmt.Errorf("update transaction: %w", core.ErrNotFound)
	}

	fields := docstore.Document{}
	if patch.Date != nil {
		fields[fDate] = *patch.Date
	}
	if patch.Type != nil {
		fields[fType] = string(*patch.Type)
	}
	if patch.Amount != nil {
		fields[fAmount] = *patch.Amount
	}
	if patch.Category != nil {
		fields[fCategory] = core.NormalizeCategory(*patch.Category)
	}
	if patch.Description != nil {
		fields[fDescription] = *patch.Description
	}

	n, err := r.transactions().UpdateFields(ctx, f, fields)
	if err != nil {
		return mapErr("update transaction", err)
	}
	if n == 0 {
		return fmt.Errorf("update transaction: %w", core.ErrNotFound)
	}
	return nil
}

// DeleteTransaction reports whether a row was removed.
func (r *Repository) DeleteTransaction(ctx context.Context, userID, id string) (bool, error) {
	f, ok := r.ownedByID(userID, id)
	if !ok {
		return false, nil
	}
	n, err := r.transactions().DeleteOne(ctx, f)
	if err != nil {
		return false, mapErr("delete transaction", err)
	}
	return n > 0, nil
}

// RecentTransactions returns at most limit transactions, newest first.
func (r *Repository) RecentTransactions(ctx context.Context, userID string, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", core.ErrInvalidArgument)
	}
	return r.ListTransactions(ctx, userID, ListOptions{Limit: int64(limit)})
}
