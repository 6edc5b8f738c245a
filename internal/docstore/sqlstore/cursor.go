package sqlstore

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"fintrack/internal/docstore"
)

// cursor records sort/skip/limit and composes them into a single SELECT
// when iterated.
type cursor struct {
	coll   *collection
	filter docstore.Filter
	sort   []docstore.SortField
	skip   int64
	limit  int64
	err    error
}

func (c *cursor) Sort(fields ...docstore.SortField) docstore.Cursor {
	c.sort = append([]docstore.SortField(nil), fields...)
	return c
}

func (c *cursor) Skip(n int64) docstore.Cursor {
	c.skip = n
	return c
}

func (c *cursor) Limit(n int64) docstore.Cursor {
	c.limit = n
	return c
}

func (c *cursor) query() (string, []any, error) {
	t := c.coll.table
	a := &args{d: c.coll.store.dialect}
	where, err := c.coll.where(a, c.filter)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT " + c.coll.selectList() + " FROM " + t.name + where)
	if len(c.sort) > 0 {
		terms := make([]string, 0, len(c.sort))
		for _, s := range c.sort {
			col, err := t.column(s.Field)
			if err != nil {
				return "", nil, err
			}
			terms = append(terms, c.coll.store.dialect.orderTerm(col.name, s.Desc))
		}
		b.WriteString(" ORDER BY " + strings.Join(terms, ", "))
	}
	b.WriteString(c.coll.store.dialect.pagination(a, c.limit, c.skip))
	return b.String(), a.vals, nil
}

func (c *cursor) Iter(ctx context.Context) iter.Seq2[docstore.Document, error] {
	return func(yield func(docstore.Document, error) bool) {
		if c.err != nil {
			yield(nil, c.err)
			return
		}
		q, vals, err := c.query()
		if err != nil {
			yield(nil, err)
			return
		}
		rows, err := c.coll.store.db.QueryContext(ctx, q, vals...)
		if err != nil {
			yield(nil, fmt.Errorf("query %s: %w", c.coll.table.name, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			doc, err := c.coll.scanDocument(rows)
			if !yield(doc, err) || err != nil {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("query %s: %w", c.coll.table.name, err))
		}
	}
}

func (c *cursor) All(ctx context.Context) ([]docstore.Document, error) {
	return docstore.CollectAll(ctx, c)
}
