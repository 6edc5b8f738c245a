package mongostore

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"fintrack/internal/docstore"
)

// toFilter translates a docstore filter into a query document.
func toFilter(f docstore.Filter) (bson.D, error) {
	out := bson.D{}
	seen := map[string]bool{}
	repeated := false
	for _, cond := range f {
		e, err := toElement(cond)
		if err != nil {
			return nil, err
		}
		if seen[e.Key] {
			repeated = true
		}
		seen[e.Key] = true
		out = append(out, e)
	}
	if !repeated {
		return out, nil
	}
	// Conditions on the same field must not overwrite each other.
	all := make(bson.A, 0, len(out))
	for _, e := range out {
		all = append(all, bson.D{e})
	}
	return bson.D{{Key: "$and", Value: all}}, nil
}

func toElement(cond docstore.Cond) (bson.E, error) {
	switch cond.Op {
	case docstore.OpEq:
		return bson.E{Key: cond.Field, Value: docstore.Scalar(cond.Value)}, nil
	case docstore.OpPrefix:
		if len(cond.Prefixes) == 0 {
			return bson.E{Key: cond.Field, Value: bson.D{{Key: "$in", Value: bson.A{}}}}, nil
		}
		return bson.E{Key: cond.Field, Value: primitive.Regex{Pattern: prefixPattern(cond.Prefixes)}}, nil
	default:
		return bson.E{}, fmt.Errorf("unsupported filter op %d", cond.Op)
	}
}

// prefixPattern builds an anchored alternation of literal prefixes.
func prefixPattern(prefixes []string) string {
	quoted := make([]string, len(prefixes))
	for i, p := range prefixes {
		quoted[i] = regexp.QuoteMeta(p)
	}
	if len(quoted) == 1 {
		return "^" + quoted[0]
	}
	return "^(?:" + strings.Join(quoted, "|") + ")"
}

func toSort(fields []docstore.SortField) bson.D {
	out := make(bson.D, 0, len(fields))
	for _, f := range fields {
		dir := 1
		if f.Desc {
			dir = -1
		}
		out = append(out, bson.E{Key: f.Field, Value: dir})
	}
	return out
}

// groupKeyName is the name of the i-th key inside the $group _id document.
func groupKeyName(i int) string {
	return "k" + strconv.Itoa(i)
}

// groupPipeline matches, then groups on keys summing sumField server-side.
// Each value is converted with $toDecimal first so the sum is exact.
// Groups come back ordered by key.
func groupPipeline(filter docstore.Filter, keys []docstore.GroupKey, sumField string) (mongo.Pipeline, error) {
	match, err := toFilter(filter)
	if err != nil {
		return nil, err
	}
	id := bson.D{}
	order := bson.D{}
	for i, k := range keys {
		var expr any = "$" + k.Field
		if k.Prefix > 0 {
			expr = bson.D{{Key: "$substrCP", Value: bson.A{"$" + k.Field, 0, k.Prefix}}}
		}
		id = append(id, bson.E{Key: groupKeyName(i), Value: expr})
		order = append(order, bson.E{Key: "_id." + groupKeyName(i), Value: 1})
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: id},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$toDecimal", Value: "$" + sumField}}}}},
		}}},
	}
	if len(order) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$sort", Value: order}})
	}
	return pipeline, nil
}

// normalize converts a decoded document into plain scalars with an encoded _id.
func normalize(m bson.M) docstore.Document {
	doc := make(docstore.Document, len(m))
	for k, v := range m {
		switch x := v.(type) {
		case primitive.ObjectID:
			doc[k] = x.Hex()
		case int32:
			doc[k] = float64(x)
		case int64:
			doc[k] = float64(x)
		case primitive.Decimal128:
			f, err := strconv.ParseFloat(x.String(), 64)
			if err != nil {
				doc[k] = nil
				continue
			}
			doc[k] = f
		default:
			doc[k] = v
		}
	}
	if id, ok := m[docstore.FieldID]; ok {
		doc[docstore.FieldID] = encodeID(id)
	}
	return doc
}
