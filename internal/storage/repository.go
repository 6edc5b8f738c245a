// Package storage is the domain query layer. It maps user, transaction and
// budget operations onto a docstore.Store and is independent of which
// backend is active.
//
// Every transaction and budget query is filtered by owner. Identifier decode
// failures and missing rows both surface as core.ErrNotFound, uniqueness
// conflicts as core.ErrConstraintViolation.
package storage

import (
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/core"
	"fintrack/internal/docstore"
)

// Field names of the persisted documents.
const (
	fUserID       = "user_id"
	fUsername     = "username"
	fPasswordHash = "password_hash"
	fDate         = "date"
	fType         = "type"
	fAmount       = "amount"
	fCategory     = "category"
	fDescription  = "description"
	fMonth        = "month"
	fLimit        = "limit"
)

// Repository exposes the data layer to the rest of the application.
type Repository struct {
	store  docstore.Store
	logger *slog.Logger
}

func NewRepository(store docstore.Store, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{store: store, logger: logger}
}

// Backend names the active storage engine.
func (r *Repository) Backend() string {
	return r.store.Backend()
}

func (r *Repository) users() docstore.Collection        { return r.store.Collection(docstore.Users) }
func (r *Repository) transactions() docstore.Collection { return r.store.Collection(docstore.Transactions) }
func (r *Repository) budgets() docstore.Collection      { return r.store.Collection(docstore.Budgets) }

// byID builds an _id filter, or reports false when id cannot be decoded.
func (r *Repository) byID(id string) (docstore.Filter, bool) {
	key, err := r.store.DecodeID(id)
	if err != nil {
		return nil, false
	}
	return docstore.Where(docstore.Eq(docstore.FieldID, key)), true
}

// ownedByID is byID restricted to one owner.
func (r *Repository) ownedByID(userID, id string) (docstore.Filter, bool) {
	f, ok := r.byID(id)
	if !ok {
		return nil, false
	}
	return f.And(docstore.Eq(fUserID, userID)), true
}

func owned(userID string) docstore.Filter {
	return docstore.Where(docstore.Eq(fUserID, userID))
}

// mapErr turns backend sentinels into the domain taxonomy.
func mapErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, docstore.ErrNoDocument), errors.Is(err, docstore.ErrInvalidID):
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	case errors.Is(err, docstore.ErrDuplicate):
		return fmt.Errorf("%s: %w", op, core.ErrConstraintViolation)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
