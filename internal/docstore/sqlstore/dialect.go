package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect names.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// dialect captures what differs between the embedded and networked engines.
type dialect struct {
	name   string
	driver string
	// numbered placeholders ($1) instead of ?
	numbered bool
	// engine sorts NULLs last on ASC, unlike MongoDB
	nullsLastOnAsc bool
	// OFFSET without LIMIT is a syntax error
	needsLimitForOffset bool
}

var dialects = map[string]dialect{
	SQLite: {
		name:                SQLite,
		driver:              "sqlite",
		needsLimitForOffset: true,
	},
	Postgres: {
		name:           Postgres,
		driver:         "postgres",
		numbered:       true,
		nullsLastOnAsc: true,
	},
}

func dialectFor(name string) (dialect, error) {
	d, ok := dialects[name]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported sql dialect: %s", name)
	}
	return d, nil
}

// args accumulates bind parameters and renders their placeholders.
type args struct {
	d    dialect
	vals []any
}

func (a *args) add(v any) string {
	a.vals = append(a.vals, v)
	if a.d.numbered {
		return "$" + strconv.Itoa(len(a.vals))
	}
	return "?"
}

func (d dialect) orderTerm(col string, desc bool) string {
	switch {
	case desc && d.nullsLastOnAsc:
		return col + " DESC NULLS LAST"
	case desc:
		return col + " DESC"
	case d.nullsLastOnAsc:
		return col + " ASC NULLS FIRST"
	default:
		return col + " ASC"
	}
}

func (d dialect) pagination(a *args, limit, skip int64) string {
	var b strings.Builder
	if limit > 0 {
		b.WriteString(" LIMIT " + a.add(limit))
	} else if skip > 0 && d.needsLimitForOffset {
		b.WriteString(" LIMIT -1")
	}
	if skip > 0 {
		b.WriteString(" OFFSET " + a.add(skip))
	}
	return b.String()
}

// isDuplicate reports whether err is a uniqueness violation of the engine.
func (d dialect) isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	switch d.name {
	case SQLite:
		var se *sqlite.Error
		if errors.As(err, &se) {
			code := se.Code()
			return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
		}
	case Postgres:
		var pe *pq.Error
		if errors.As(err, &pe) {
			return pe.Code == "23505"
		}
	}
	return false
}

func (d dialect) migrationDriver(db *sql.DB) (database.Driver, error) {
	switch d.name {
	case SQLite:
		return migratesqlite.WithInstance(db, &migratesqlite.Config{})
	case Postgres:
		return migratepg.WithInstance(db, &migratepg.Config{})
	default:
		return nil, fmt.Errorf("no migration driver for %s", d.name)
	}
}
