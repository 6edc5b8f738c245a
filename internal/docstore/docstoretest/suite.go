// Package docstoretest holds the behaviour every docstore.Store backend must
// share. Backends run it from their own tests with a factory that hands out
// an empty, isolated store.
package docstoretest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"fintrack/internal/docstore"
)

// Suite exercises a docstore.Store. Set NewStore before running it.
type Suite struct {
	suite.Suite

	// NewStore returns an empty store; register cleanup on the test it receives.
	NewStore func(s *Suite) docstore.Store

	Store docstore.Store
	ctx   context.Context
}

func (s *Suite) SetupTest() {
	s.Require().NotNil(s.NewStore, "NewStore must be set")
	s.ctx = context.Background()
	s.Store = s.NewStore(s)
}

func (s *Suite) tx(user, date, typ string, amount float64, category string) string {
	id, err := s.Store.Collection(docstore.Transactions).Insert(s.ctx, docstore.Document{
		"user_id":     user,
		"date":        date,
		"type":        typ,
		"amount":      amount,
		"category":    category,
		"description": "",
	})
	s.Require().NoError(err)
	return id
}

func (s *Suite) ids(docs []docstore.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID())
	}
	return out
}

func (s *Suite) TestInsertAndFindOne() {
	users := s.Store.Collection(docstore.Users)
	id, err := users.Insert(s.ctx, docstore.Document{"username": "alice", "password_hash": "h"})
	s.Require().NoError(err)
	s.NotEmpty(id)

	key, err := s.Store.DecodeID(id)
	s.Require().NoError(err)
	s.Equal(id, s.Store.EncodeID(key))

	doc, err := users.FindOne(s.ctx, docstore.Where(docstore.Eq(docstore.FieldID, key)))
	s.Require().NoError(err)
	s.Equal(id, doc.ID())
	s.Equal("alice", doc.String("username"))
	s.Equal("h", doc.String("password_hash"))
}

func (s *Suite) TestFindOneNoMatch() {
	_, err := s.Store.Collection(docstore.Users).FindOne(s.ctx,
		docstore.Where(docstore.Eq("username", "nobody")))
	s.ErrorIs(err, docstore.ErrNoDocument)
}

func (s *Suite) TestDecodeMalformedID() {
	for _, id := range []string{"", "abc", "not-an-id-at-all", "zzzzzzzzzzzzzzzzzzzzzzzz"} {
		_, err := s.Store.DecodeID(id)
		s.ErrorIs(err, docstore.ErrInvalidID, "id %q", id)
	}
}

func (s *Suite) TestUnknownCollection() {
	_, err := s.Store.Collection("ledgers").FindOne(s.ctx, nil)
	s.ErrorIs(err, docstore.ErrUnknownCollection)
}

func (s *Suite) TestUniqueUsername() {
	users := s.Store.Collection(docstore.Users)
	_, err := users.Insert(s.ctx, docstore.Document{"username": "bob", "password_hash": "x"})
	s.Require().NoError(err)
	_, err = users.Insert(s.ctx, docstore.Document{"username": "bob", "password_hash": "y"})
	s.ErrorIs(err, docstore.ErrDuplicate)

	// Usernames are case sensitive.
	_, err = users.Insert(s.ctx, docstore.Document{"username": "Bob", "password_hash": "z"})
	s.NoError(err)
}

func (s *Suite) TestBudgetUniquenessIncludesNullCategory() {
	budgets := s.Store.Collection(docstore.Budgets)
	food := "food"
	insert := func(category *string) error {
		_, err := budgets.Insert(s.ctx, docstore.Document{
			"user_id": "u1", "month": "2024-03", "category": category, "limit": 300.0,
		})
		return err
	}

	s.Require().NoError(insert(nil))
	s.ErrorIs(insert(nil), docstore.ErrDuplicate)
	s.Require().NoError(insert(&food))
	s.ErrorIs(insert(&food), docstore.ErrDuplicate)

	docs, err := budgets.Find(s.ctx, docstore.Where(docstore.Eq("user_id", "u1"))).All(s.ctx)
	s.Require().NoError(err)
	s.Len(docs, 2)

	whole, err := budgets.FindOne(s.ctx, docstore.Where(docstore.Eq("category", nil)))
	s.Require().NoError(err)
	s.Nil(whole.OptString("category"))
	s.Equal(300.0, whole.Float("limit"))
}

func (s *Suite) TestConcurrentDuplicateInsert() {
	budgets := s.Store.Collection(docstore.Budgets)
	var ok atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := budgets.Insert(s.ctx, docstore.Document{
				"user_id": "u1", "month": "2024-03", "category": "rent", "limit": 900.0,
			})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, docstore.ErrDuplicate):
			default:
				s.Failf("unexpected insert error", "%v", err)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), ok.Load())
}

func (s *Suite) TestSortSkipLimit() {
	a := s.tx("u1", "2024-03-01", "expense", 1, "a")
	b := s.tx("u1", "2024-03-05", "expense", 2, "b")
	c := s.tx("u1", "2024-03-05", "expense", 3, "c")
	d := s.tx("u1", "2024-03-09", "income", 4, "d")
	s.tx("u2", "2024-03-09", "income", 5, "e")

	coll := s.Store.Collection(docstore.Transactions)
	owned := docstore.Where(docstore.Eq("user_id", "u1"))
	newest := []docstore.SortField{docstore.Desc("date"), docstore.Desc(docstore.FieldID)}

	docs, err := coll.Find(s.ctx, owned).Sort(newest...).All(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{d, c, b, a}, s.ids(docs))

	docs, err = coll.Find(s.ctx, owned).Sort(newest...).Skip(1).Limit(2).All(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{c, b}, s.ids(docs))

	docs, err = coll.Find(s.ctx, owned).Sort(newest...).Skip(3).All(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{a}, s.ids(docs))

	docs, err = coll.Find(s.ctx, owned).Sort(docstore.Asc("amount")).Limit(1).All(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{a}, s.ids(docs))
}

func (s *Suite) TestIterStopsEarlyAndReruns() {
	for i := 0; i < 5; i++ {
		s.tx("u1", fmt.Sprintf("2024-01-%02d", i+1), "expense", float64(i), "x")
	}
	cur := s.Store.Collection(docstore.Transactions).
		Find(s.ctx, docstore.Where(docstore.Eq("user_id", "u1"))).
		Sort(docstore.Asc("date"))

	seen := 0
	for doc, err := range cur.Iter(s.ctx) {
		s.Require().NoError(err)
		s.Equal("2024-01-01", doc.String("date"))
		seen++
		break
	}
	s.Equal(1, seen)

	all, err := cur.All(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 5)
}

func (s *Suite) TestPrefixFilter() {
	s.tx("u1", "2024-01-15", "expense", 1, "x")
	s.tx("u1", "2024-02-15", "expense", 2, "x")
	s.tx("u1", "2024-03-15", "expense", 4, "x")
	coll := s.Store.Collection(docstore.Transactions)

	docs, err := coll.Find(s.ctx, docstore.Where(docstore.HasPrefix("date", "2024-01", "2024-03"))).All(s.ctx)
	s.Require().NoError(err)
	s.Len(docs, 2)

	docs, err = coll.Find(s.ctx, docstore.Where(docstore.HasPrefix("date"))).All(s.ctx)
	s.Require().NoError(err)
	s.Empty(docs)

	// Prefixes are literal, not patterns.
	docs, err = coll.Find(s.ctx, docstore.Where(docstore.HasPrefix("date", "2024.01"))).All(s.ctx)
	s.Require().NoError(err)
	s.Empty(docs)
}

func (s *Suite) TestUpdateFieldsTouchesOneRow() {
	s.tx("u1", "2024-01-01", "expense", 1, "same")
	s.tx("u1", "2024-01-02", "expense", 2, "same")
	coll := s.Store.Collection(docstore.Transactions)

	n, err := coll.UpdateFields(s.ctx, docstore.Where(docstore.Eq("category", "same")),
		docstore.Document{"category": "changed"})
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	changed, err := coll.Find(s.ctx, docstore.Where(docstore.Eq("category", "changed"))).All(s.ctx)
	s.Require().NoError(err)
	s.Len(changed, 1)

	n, err = coll.UpdateFields(s.ctx, docstore.Where(docstore.Eq("category", "missing")),
		docstore.Document{"category": "x"})
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *Suite) TestUpdateFieldsMatchesUnchangedRow() {
	id := s.tx("u1", "2024-01-01", "expense", 1, "same")
	key, err := s.Store.DecodeID(id)
	s.Require().NoError(err)

	n, err := s.Store.Collection(docstore.Transactions).UpdateFields(s.ctx,
		docstore.Where(docstore.Eq(docstore.FieldID, key)),
		docstore.Document{"category": "same"})
	s.Require().NoError(err)
	s.Equal(int64(1), n)
}

func (s *Suite) TestUpdateFieldsDuplicate() {
	budgets := s.Store.Collection(docstore.Budgets)
	_, err := budgets.Insert(s.ctx, docstore.Document{"user_id": "u1", "month": "2024-03", "category": "a", "limit": 1.0})
	s.Require().NoError(err)
	_, err = budgets.Insert(s.ctx, docstore.Document{"user_id": "u1", "month": "2024-03", "category": "b", "limit": 1.0})
	s.Require().NoError(err)

	_, err = budgets.UpdateFields(s.ctx, docstore.Where(docstore.Eq("category", "b")),
		docstore.Document{"category": "a"})
	s.ErrorIs(err, docstore.ErrDuplicate)
}

func (s *Suite) TestDeleteOne() {
	s.tx("u1", "2024-01-01", "expense", 1, "dup")
	s.tx("u1", "2024-01-02", "expense", 2, "dup")
	coll := s.Store.Collection(docstore.Transactions)
	f := docstore.Where(docstore.Eq("category", "dup"))

	n, err := coll.DeleteOne(s.ctx, f)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	left, err := coll.Find(s.ctx, f).All(s.ctx)
	s.Require().NoError(err)
	s.Len(left, 1)

	n, err = coll.DeleteOne(s.ctx, docstore.Where(docstore.Eq("category", "none")))
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *Suite) TestAggregateGroupSum() {
	s.tx("u1", "2024-01-10", "income", 1000, "salary")
	s.tx("u1", "2024-01-11", "expense", 0.1, "food")
	s.tx("u1", "2024-01-12", "expense", 0.2, "food")
	s.tx("u1", "2024-02-01", "expense", 50, "rent")
	s.tx("u2", "2024-01-10", "income", 99, "salary")
	coll := s.Store.Collection(docstore.Transactions)
	owned := docstore.Where(docstore.Eq("user_id", "u1"))

	groups, err := coll.AggregateGroupSum(s.ctx, owned, []docstore.GroupKey{{Field: "type"}}, "amount")
	s.Require().NoError(err)
	s.Require().Len(groups, 2)
	s.Equal([]string{"expense"}, groups[0].Keys)
	s.True(groups[0].Sum.Equal(decimal.RequireFromString("50.3")), groups[0].Sum.String())
	s.Equal([]string{"income"}, groups[1].Keys)
	s.True(groups[1].Sum.Equal(decimal.NewFromInt(1000)))

	groups, err = coll.AggregateGroupSum(s.ctx, owned,
		[]docstore.GroupKey{{Field: "date", Prefix: 7}, {Field: "type"}}, "amount")
	s.Require().NoError(err)
	s.Require().Len(groups, 3)
	s.Equal([]string{"2024-01", "expense"}, groups[0].Keys)
	s.True(groups[0].Sum.Equal(decimal.RequireFromString("0.3")), groups[0].Sum.String())
	s.Equal([]string{"2024-01", "income"}, groups[1].Keys)
	s.Equal([]string{"2024-02", "expense"}, groups[2].Keys)

	groups, err = coll.AggregateGroupSum(s.ctx, docstore.Where(docstore.Eq("user_id", "nobody")),
		[]docstore.GroupKey{{Field: "type"}}, "amount")
	s.Require().NoError(err)
	s.Empty(groups)
}

func (s *Suite) TestAggregateGroupSumSubCent() {
	for i := 0; i < 3; i++ {
		s.tx("u1", "2024-03-0"+fmt.Sprint(i+1), "expense", 1.005, "food")
	}
	groups, err := s.Store.Collection(docstore.Transactions).AggregateGroupSum(s.ctx,
		docstore.Where(docstore.Eq("user_id", "u1")), []docstore.GroupKey{{Field: "type"}}, "amount")
	s.Require().NoError(err)
	s.Require().Len(groups, 1)
	s.True(groups[0].Sum.Equal(decimal.RequireFromString("3.015")), groups[0].Sum.String())
	s.Equal("3.02", groups[0].Sum.Round(2).StringFixed(2))
}
