package sqlstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"fintrack/internal/docstore"
	"fintrack/internal/docstore/docstoretest"
)

func TestSQLiteContract(t *testing.T) {
	suite.Run(t, &docstoretest.Suite{
		NewStore: func(s *docstoretest.Suite) docstore.Store {
			return openSQLite(s.T())
		},
	})
}

func TestPostgresContract(t *testing.T) {
	dsn := os.Getenv("FINTRACK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FINTRACK_TEST_POSTGRES_DSN not set")
	}
	suite.Run(t, &docstoretest.Suite{
		NewStore: func(s *docstoretest.Suite) docstore.Store {
			t := s.T()
			st, err := Open(context.Background(), Config{Dialect: Postgres, DSN: dsn})
			require.NoError(t, err)
			_, err = st.db.Exec("TRUNCATE users, transactions, budgets")
			require.NoError(t, err)
			t.Cleanup(func() { st.Close(context.Background()) })
			return st
		},
	})
}

func openSQLite(t *testing.T) *Store {
	t.Helper()
	st, err := Open(context.Background(), Config{
		Dialect: SQLite,
		DSN:     filepath.Join(t.TempDir(), "nested", "fintrack.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close(context.Background()) })
	return st
}

func TestOpenRejectsMemoryAndUnknownDialect(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, Config{Dialect: SQLite, DSN: ":memory:"})
	assert.Error(t, err)

	_, err = Open(ctx, Config{Dialect: SQLite})
	assert.Error(t, err)

	_, err = Open(ctx, Config{Dialect: "mysql", DSN: "x"})
	assert.ErrorContains(t, err, "unsupported sql dialect")
}

func TestEnsureIndexesIsIdempotent(t *testing.T) {
	st := openSQLite(t)
	require.NoError(t, st.EnsureIndexes(context.Background()))
	require.NoError(t, st.EnsureIndexes(context.Background()))
	assert.Equal(t, SQLite, st.Backend())
	assert.NoError(t, st.Ping(context.Background()))
}

func TestInsertRejectsUnknownField(t *testing.T) {
	st := openSQLite(t)
	_, err := st.Collection(docstore.Users).Insert(context.Background(), docstore.Document{
		"username": "a", "password_hash": "b", "nickname": "c",
	})
	assert.Error(t, err)
}

func TestPlaceholders(t *testing.T) {
	lite := &args{d: dialects[SQLite]}
	assert.Equal(t, "?", lite.add(1))
	assert.Equal(t, "?", lite.add(2))

	pg := &args{d: dialects[Postgres]}
	assert.Equal(t, "$1", pg.add(1))
	assert.Equal(t, "$2", pg.add(2))
	assert.Equal(t, []any{1, 2}, pg.vals)
}

func TestPagination(t *testing.T) {
	tests := []struct {
		name        string
		dialect     string
		limit, skip int64
		want        string
	}{
		{"none", SQLite, 0, 0, ""},
		{"limit", SQLite, 10, 0, " LIMIT ?"},
		{"sqlite offset only", SQLite, 0, 5, " LIMIT -1 OFFSET ?"},
		{"postgres offset only", Postgres, 0, 5, " OFFSET $1"},
		{"postgres both", Postgres, 10, 5, " LIMIT $1 OFFSET $2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &args{d: dialects[tt.dialect]}
			assert.Equal(t, tt.want, a.d.pagination(a, tt.limit, tt.skip))
		})
	}
}

func TestOrderTerm(t *testing.T) {
	assert.Equal(t, "date DESC", dialects[SQLite].orderTerm("date", true))
	assert.Equal(t, "date ASC", dialects[SQLite].orderTerm("date", false))
	assert.Equal(t, "category DESC NULLS LAST", dialects[Postgres].orderTerm("category", true))
	assert.Equal(t, "category ASC NULLS FIRST", dialects[Postgres].orderTerm("category", false))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "2024-03", truncate("2024-03-15", 7))
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "càf", truncate("càfé", 3))
	assert.Equal(t, "all", truncate("all", 0))
}

func TestDecodeID(t *testing.T) {
	st := &Store{}
	id, err := newID()
	require.NoError(t, err)

	key, err := st.DecodeID(id)
	require.NoError(t, err)
	assert.Equal(t, id, st.EncodeID(key))

	_, err = st.DecodeID("{" + id + "}")
	assert.ErrorIs(t, err, docstore.ErrInvalidID)
}
