package mongostore

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fintrack/internal/docstore"
)

type collection struct {
	coll *mongo.Collection
	name string
	err  error
}

func wrapWrite(op, name string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s %s: %w", op, name, docstore.ErrDuplicate)
	}
	return fmt.Errorf("%s %s: %w", op, name, err)
}

func (c *collection) FindOne(ctx context.Context, filter docstore.Filter) (docstore.Document, error) {
	if c.err != nil {
		return nil, c.err
	}
	q, err := toFilter(filter)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := c.coll.FindOne(ctx, q).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, docstore.ErrNoDocument
		}
		return nil, fmt.Errorf("find one in %s: %w", c.name, err)
	}
	return normalize(m), nil
}

func (c *collection) Find(_ context.Context, filter docstore.Filter) docstore.Cursor {
	return &cursor{coll: c, filter: filter}
}

func (c *collection) Insert(ctx context.Context, doc docstore.Document) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	oid := primitive.NewObjectID()
	d := bson.D{{Key: docstore.FieldID, Value: oid}}
	for k, v := range doc {
		if k == docstore.FieldID {
			continue
		}
		d = append(d, bson.E{Key: k, Value: docstore.Scalar(v)})
	}
	if _, err := c.coll.InsertOne(ctx, d); err != nil {
		return "", wrapWrite("insert into", c.name, err)
	}
	return oid.Hex(), nil
}

func (c *collection) UpdateFields(ctx context.Context, filter docstore.Filter, fields docstore.Document) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	if len(fields) == 0 {
		return 0, fmt.Errorf("update %s: no fields", c.name)
	}
	q, err := toFilter(filter)
	if err != nil {
		return 0, err
	}
	set := bson.D{}
	for k, v := range fields {
		if k == docstore.FieldID {
			return 0, fmt.Errorf("update %s: %s is immutable", c.name, docstore.FieldID)
		}
		set = append(set, bson.E{Key: k, Value: docstore.Scalar(v)})
	}
	res, err := c.coll.UpdateOne(ctx, q, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return 0, wrapWrite("update", c.name, err)
	}
	return res.MatchedCount, nil
}

func (c *collection) DeleteOne(ctx context.Context, filter docstore.Filter) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	q, err := toFilter(filter)
	if err != nil {
		return 0, err
	}
	res, err := c.coll.DeleteOne(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", c.name, err)
	}
	return res.DeletedCount, nil
}

type groupRow struct {
	ID    bson.M        `bson:"_id"`
	Total bson.RawValue `bson:"total"`
}

// decimalFromRaw reads a $sum result. Sums of $toDecimal values come back as
// Decimal128; an all-null group sums to an integer zero.
func decimalFromRaw(v bson.RawValue) (decimal.Decimal, error) {
	switch v.Type {
	case bson.TypeDecimal128:
		return decimal.NewFromString(v.Decimal128().String())
	case bson.TypeDouble:
		return docstore.DecimalFromDouble(v.Double()), nil
	case bson.TypeInt32:
		return decimal.NewFromInt32(v.Int32()), nil
	case bson.TypeInt64:
		return decimal.NewFromInt(v.Int64()), nil
	case bson.TypeNull, bson.TypeUndefined, 0:
		return decimal.Zero, nil
	default:
		return decimal.Zero, fmt.Errorf("unexpected sum type %s", v.Type)
	}
}

func (c *collection) AggregateGroupSum(ctx context.Context, filter docstore.Filter, keys []docstore.GroupKey, sumField string) ([]docstore.Group, error) {
	if c.err != nil {
		return nil, c.err
	}
	pipeline, err := groupPipeline(filter, keys, sumField)
	if err != nil {
		return nil, err
	}
	cur, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", c.name, err)
	}
	defer cur.Close(ctx)

	var out []docstore.Group
	for cur.Next(ctx) {
		var row groupRow
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("aggregate %s: decode: %w", c.name, err)
		}
		sum, err := decimalFromRaw(row.Total)
		if err != nil {
			return nil, fmt.Errorf("aggregate %s: %w", c.name, err)
		}
		g := docstore.Group{Keys: make([]string, len(keys)), Sum: sum}
		for i := range keys {
			if s, ok := row.ID[groupKeyName(i)].(string); ok {
				g.Keys[i] = s
			}
		}
		out = append(out, g)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", c.name, err)
	}
	return out, nil
}

// cursor defers building find options until iteration.
type cursor struct {
	coll   *collection
	filter docstore.Filter
	sort   []docstore.SortField
	skip   int64
	limit  int64
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

func (c *cursor) findOptions() *options.FindOptions {
	opts := options.Find()
	if len(c.sort) > 0 {
		opts.SetSort(toSort(c.sort))
	}
	if c.skip > 0 {
		opts.SetSkip(c.skip)
	}
	if c.limit > 0 {
		opts.SetLimit(c.limit)
	}
	return opts
}

func (c *cursor) Iter(ctx context.Context) iter.Seq2[docstore.Document, error] {
	return func(yield func(docstore.Document, error) bool) {
		if c.coll.err != nil {
			yield(nil, c.coll.err)
			return
		}
		q, err := toFilter(c.filter)
		if err != nil {
			yield(nil, err)
			return
		}
		cur, err := c.coll.coll.Find(ctx, q, c.findOptions())
		if err != nil {
			yield(nil, fmt.Errorf("find in %s: %w", c.coll.name, err))
			return
		}
		defer cur.Close(ctx)

		for cur.Next(ctx) {
			var m bson.M
			if err := cur.Decode(&m); err != nil {
				yield(nil, fmt.Errorf("find in %s: decode: %w", c.coll.name, err))
				return
			}
			if !yield(normalize(m), nil) {
				return
			}
		}
		if err := cur.Err(); err != nil {
			yield(nil, fmt.Errorf("find in %s: %w", c.coll.name, err))
		}
	}
}

func (c *cursor) All(ctx context.Context) ([]docstore.Document, error) {
	return docstore.CollectAll(ctx, c)
}
