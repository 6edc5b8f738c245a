// Package docstore defines the storage-agnostic query surface shared by the
// document-store and relational backends.
//
// Every backend exposes the same collections (users, transactions, budgets)
// and the same operations: find with lazy sort/skip/limit, insert, partial
// update, delete and grouped sums. Returned documents always carry FieldID as
// the encoded string identifier, never a backend-native key.
package docstore

import (
	"context"
	"errors"
	"iter"

	"github.com/shopspring/decimal"
)

// Collection names.
const (
	Users        = "users"
	Transactions = "transactions"
	Budgets      = "budgets"
)

// FieldID is the primary key field of every document.
const FieldID = "_id"

var (
	// ErrNoDocument is returned by FindOne when nothing matches.
	ErrNoDocument = errors.New("no document")
	// ErrDuplicate is returned when a write violates a uniqueness rule.
	ErrDuplicate = errors.New("duplicate key")
	// ErrInvalidID is returned by DecodeID for malformed identifiers.
	ErrInvalidID = errors.New("invalid id")
	// ErrUnknownCollection is returned for names outside the fixed layout.
	ErrUnknownCollection = errors.New("unknown collection")
)

// Document maps field names to scalars: string, float64 or nil.
type Document map[string]any

// String returns the string value of field, or "" when absent or not a string.
func (d Document) String(field string) string {
	s, _ := d[field].(string)
	return s
}

// OptString returns nil for absent or null fields.
func (d Document) OptString(field string) *string {
	s, ok := d[field].(string)
	if !ok {
		return nil
	}
	return &s
}

// Float returns the numeric value of field, or 0.
func (d Document) Float(field string) float64 {
	switch v := d[field].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// ID returns the encoded identifier.
func (d Document) ID() string {
	return d.String(FieldID)
}

// IDCodec converts between external string identifiers and native keys.
type IDCodec interface {
	// DecodeID returns ErrInvalidID when s is not a structurally valid key.
	DecodeID(s string) (any, error)
	// EncodeID renders a native key as its external string form.
	EncodeID(key any) string
}

// SortField orders results on one field.
type SortField struct {
	Field string
	Desc  bool
}

func Asc(field string) SortField  { return SortField{Field: field} }
func Desc(field string) SortField { return SortField{Field: field, Desc: true} }

// GroupKey partitions rows on a field, or on its first Prefix characters when Prefix > 0.
type GroupKey struct {
	Field  string
	Prefix int
}

// Group is one partition of a grouped sum. Keys follow the order of the requested GroupKeys.
type Group struct {
	Keys []string
	Sum  decimal.Decimal
}

// Cursor is a lazily composed query. Sort, Skip and Limit return the cursor
// for chaining and take effect only when results are read.
type Cursor interface {
	Sort(fields ...SortField) Cursor
	Skip(n int64) Cursor
	Limit(n int64) Cursor
	// Iter runs the query; each call runs it again.
	Iter(ctx context.Context) iter.Seq2[Document, error]
	All(ctx context.Context) ([]Document, error)
}

// Collection is the per-collection query adapter.
type Collection interface {
	FindOne(ctx context.Context, filter Filter) (Document, error)
	Find(ctx context.Context, filter Filter) Cursor
	// Insert stores doc under a freshly generated key and returns it encoded.
	Insert(ctx context.Context, doc Document) (string, error)
	UpdateFields(ctx context.Context, filter Filter, fields Document) (matched int64, err error)
	DeleteOne(ctx context.Context, filter Filter) (deleted int64, err error)
	AggregateGroupSum(ctx context.Context, filter Filter, keys []GroupKey, sumField string) ([]Group, error)
}

// Store owns the connection pool of one backend.
type Store interface {
	IDCodec
	Collection(name string) Collection
	// EnsureIndexes is idempotent and safe to call on every startup.
	EnsureIndexes(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
	Backend() string
}

// CollectAll drains a cursor iterator into a slice.
func CollectAll(ctx context.Context, c Cursor) ([]Document, error) {
	var out []Document
	for doc, err := range c.Iter(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}
