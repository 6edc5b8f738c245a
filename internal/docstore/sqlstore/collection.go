package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"fintrack/internal/docstore"
)

type collection struct {
	store *Store
	table *table
}

// where renders filter as a WHERE clause, or "" for an empty filter.
func (c *collection) where(a *args, filter docstore.Filter) (string, error) {
	if len(filter) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(filter))
	for _, cond := range filter {
		col, err := c.table.column(cond.Field)
		if err != nil {
			return "", err
		}
		switch cond.Op {
		case docstore.OpEq:
			v := docstore.Scalar(cond.Value)
			if v == nil {
				parts = append(parts, col.name+" IS NULL")
				continue
			}
			parts = append(parts, col.name+" = "+a.add(v))
		case docstore.OpPrefix:
			if len(cond.Prefixes) == 0 {
				parts = append(parts, "1 = 0")
				continue
			}
			alts := make([]string, 0, len(cond.Prefixes))
			for _, p := range cond.Prefixes {
				n := len([]rune(p))
				alts = append(alts, "substr("+col.name+", 1, "+strconv.Itoa(n)+") = "+a.add(p))
			}
			parts = append(parts, "("+strings.Join(alts, " OR ")+")")
		default:
			return "", fmt.Errorf("unsupported filter op %d", cond.Op)
		}
	}
	return " WHERE " + strings.Join(parts, " AND "), nil
}

func (c *collection) selectList() string {
	names := make([]string, len(c.table.columns))
	for i, col := range c.table.columns {
		names[i] = col.name
	}
	return strings.Join(names, ", ")
}

// scanDocument reads one row laid out as selectList.
func (c *collection) scanDocument(rows *sql.Rows) (docstore.Document, error) {
	dest := make([]any, len(c.table.columns))
	for i, col := range c.table.columns {
		if col.kind == kindReal {
			dest[i] = new(sql.NullFloat64)
		} else {
			dest[i] = new(sql.NullString)
		}
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan %s row: %w", c.table.name, err)
	}
	doc := make(docstore.Document, len(c.table.columns))
	for i, col := range c.table.columns {
		switch v := dest[i].(type) {
		case *sql.NullFloat64:
			if v.Valid {
				doc[col.field] = v.Float64
			} else {
				doc[col.field] = nil
			}
		case *sql.NullString:
			if v.Valid {
				doc[col.field] = v.String
			} else {
				doc[col.field] = nil
			}
		}
	}
	return doc, nil
}

func (c *collection) FindOne(ctx context.Context, filter docstore.Filter) (docstore.Document, error) {
	docs, err := c.Find(ctx, filter).Limit(1).All(ctx)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, docstore.ErrNoDocument
	}
	return docs[0], nil
}

func (c *collection) Find(_ context.Context, filter docstore.Filter) docstore.Cursor {
	return &cursor{coll: c, filter: filter}
}

func (c *collection) Insert(ctx context.Context, doc docstore.Document) (string, error) {
	for field := range doc {
		if _, err := c.table.column(field); err != nil {
			return "", err
		}
	}
	id, err := newID()
	if err != nil {
		return "", err
	}

	a := &args{d: c.store.dialect}
	cols := []string{"id"}
	vals := []string{a.add(id)}
	for _, col := range c.table.columns {
		if col.field == docstore.FieldID {
			continue
		}
		v, ok := doc[col.field]
		if !ok {
			continue
		}
		cols = append(cols, col.name)
		vals = append(vals, a.add(docstore.Scalar(v)))
	}

	q := "INSERT INTO " + c.table.name + " (" + strings.Join(cols, ", ") + ") VALUES (" + strings.Join(vals, ", ") + ")"
	if _, err := c.store.db.ExecContext(ctx, q, a.vals...); err != nil {
		if c.store.dialect.isDuplicate(err) {
			return "", fmt.Errorf("insert into %s: %w", c.table.name, docstore.ErrDuplicate)
		}
		return "", fmt.Errorf("insert into %s: %w", c.table.name, err)
	}
	return id, nil
}

// oneRow narrows a statement to the first row matched by filter.
func (c *collection) oneRow(a *args, filter docstore.Filter) (string, error) {
	where, err := c.where(a, filter)
	if err != nil {
		return "", err
	}
	return " WHERE id IN (SELECT id FROM " + c.table.name + where + " LIMIT 1)", nil
}

func (c *collection) UpdateFields(ctx context.Context, filter docstore.Filter, fields docstore.Document) (int64, error) {
	if len(fields) == 0 {
		return 0, fmt.Errorf("update %s: no fields", c.table.name)
	}

	// SET columns in sorted field order.
	names := make([]string, 0, len(fields))
	for f := range fields {
		if f == docstore.FieldID {
			return 0, fmt.Errorf("update %s: %s is immutable", c.table.name, docstore.FieldID)
		}
		names = append(names, f)
	}
	sort.Strings(names)

	a := &args{d: c.store.dialect}
	sets := make([]string, 0, len(names))
	for _, f := range names {
		col, err := c.table.column(f)
		if err != nil {
			return 0, err
		}
		sets = append(sets, col.name+" = "+a.add(docstore.Scalar(fields[f])))
	}
	where, err := c.oneRow(a, filter)
	if err != nil {
		return 0, err
	}

	q := "UPDATE " + c.table.name + " SET " + strings.Join(sets, ", ") + where
	res, err := c.store.db.ExecContext(ctx, q, a.vals...)
	if err != nil {
		if c.store.dialect.isDuplicate(err) {
			return 0, fmt.Errorf("update %s: %w", c.table.name, docstore.ErrDuplicate)
		}
		return 0, fmt.Errorf("update %s: %w", c.table.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update %s: rows affected: %w", c.table.name, err)
	}
	return n, nil
}

func (c *collection) DeleteOne(ctx context.Context, filter docstore.Filter) (int64, error) {
	a := &args{d: c.store.dialect}
	where, err := c.oneRow(a, filter)
	if err != nil {
		return 0, err
	}
	res, err := c.store.db.ExecContext(ctx, "DELETE FROM "+c.table.name+where, a.vals...)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", c.table.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete from %s: rows affected: %w", c.table.name, err)
	}
	return n, nil
}

// AggregateGroupSum scans the matching rows and sums them as decimals
// converted with docstore.DecimalFromDouble.
func (c *collection) AggregateGroupSum(ctx context.Context, filter docstore.Filter, keys []docstore.GroupKey, sumField string) ([]docstore.Group, error) {
	sumCol, err := c.table.column(sumField)
	if err != nil {
		return nil, err
	}
	if sumCol.kind != kindReal {
		return nil, fmt.Errorf("sum field %q on %s is not numeric", sumField, c.table.name)
	}
	keyCols := make([]string, len(keys))
	for i, k := range keys {
		col, err := c.table.column(k.Field)
		if err != nil {
			return nil, err
		}
		keyCols[i] = col.name
	}

	a := &args{d: c.store.dialect}
	where, err := c.where(a, filter)
	if err != nil {
		return nil, err
	}
	selectCols := append(append([]string{}, keyCols...), sumCol.name)
	q := "SELECT " + strings.Join(selectCols, ", ") + " FROM " + c.table.name + where

	rows, err := c.store.db.QueryContext(ctx, q, a.vals...)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", c.table.name, err)
	}
	defer rows.Close()

	type bucket struct {
		keys []string
		sum  decimal.Decimal
	}
	buckets := map[string]*bucket{}
	for rows.Next() {
		keyVals := make([]sql.NullString, len(keys))
		var amount sql.NullFloat64
		dest := make([]any, 0, len(keys)+1)
		for i := range keyVals {
			dest = append(dest, &keyVals[i])
		}
		dest = append(dest, &amount)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("aggregate %s: scan: %w", c.table.name, err)
		}

		groupKeys := make([]string, len(keys))
		for i, k := range keys {
			groupKeys[i] = truncate(keyVals[i].String, k.Prefix)
		}
		id := strings.Join(groupKeys, "\x00")
		b, ok := buckets[id]
		if !ok {
			b = &bucket{keys: groupKeys, sum: decimal.Zero}
			buckets[id] = b
		}
		if amount.Valid {
			b.sum = b.sum.Add(docstore.DecimalFromDouble(amount.Float64))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", c.table.name, err)
	}

	ids := make([]string, 0, len(buckets))
	for id := range buckets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]docstore.Group, 0, len(ids))
	for _, id := range ids {
		out = append(out, docstore.Group{Keys: buckets[id].keys, Sum: buckets[id].sum})
	}
	return out, nil
}

// truncate keeps the first n code points of s; n <= 0 keeps all of it.
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
