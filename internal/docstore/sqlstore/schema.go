package sqlstore

import (
	"fmt"

	"fintrack/internal/docstore"
)

type kind int

const (
	kindText kind = iota
	kindReal
)

type column struct {
	field string
	name  string
	kind  kind
}

// table maps the fields of one collection onto SQL columns.
type table struct {
	name    string
	columns []column
	byField map[string]column
}

func newTable(name string, cols ...column) *table {
	t := &table{name: name, columns: cols, byField: make(map[string]column, len(cols))}
	for _, c := range cols {
		t.byField[c.field] = c
	}
	return t
}

func (t *table) column(field string) (column, error) {
	c, ok := t.byField[field]
	if !ok {
		return column{}, fmt.Errorf("unknown field %q on %s", field, t.name)
	}
	return c, nil
}

var tables = map[string]*table{
	docstore.Users: newTable("users",
		column{docstore.FieldID, "id", kindText},
		column{"username", "username", kindText},
		column{"password_hash", "password_hash", kindText},
	),
	docstore.Transactions: newTable("transactions",
		column{docstore.FieldID, "id", kindText},
		column{"user_id", "user_id", kindText},
		column{"date", "date", kindText},
		column{"type", "type", kindText},
		column{"amount", "amount", kindReal},
		column{"category", "category", kindText},
		column{"description", "description", kindText},
	),
	docstore.Budgets: newTable("budgets",
		column{docstore.FieldID, "id", kindText},
		column{"user_id", "user_id", kindText},
		column{"month", "month", kindText},
		column{"category", "category", kindText},
		column{"limit", "budget_limit", kindReal},
	),
}
