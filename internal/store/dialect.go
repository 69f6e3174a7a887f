package store

import (
	"strconv"

	"github.com/pkg/errors"
)

type dialect struct {
	driver string
	like   string
	types  map[Kind]string
	pkey   string
}

var sqliteDialect = dialect{
	driver: "sqlite",
	like:   "LIKE",
	types: map[Kind]string{
		KindText: "TEXT",
		KindInt:  "INTEGER",
		KindBool: "INTEGER",
		KindJSON: "TEXT",
		KindTime: "TEXT",
	},
	pkey: "id INTEGER PRIMARY KEY AUTOINCREMENT",
}

var postgresDialect = dialect{
	driver: "postgres",
	like:   "ILIKE",
	types: map[Kind]string{
		KindText: "TEXT",
		KindInt:  "BIGINT",
		KindBool: "BOOLEAN",
		KindJSON: "JSONB",
		KindTime: "TIMESTAMPTZ",
	},
	pkey: "id BIGSERIAL PRIMARY KEY",
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "sqlite":
		return sqliteDialect, nil
	case "postgres":
		return postgresDialect, nil
	}
	return dialect{}, errors.Errorf("unsupported driver %q", driver)
}

// placeholder returns the n-th (1-based) bind parameter.
func (d dialect) placeholder(n int) string {
	if d.driver == "postgres" {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// builder accumulates a WHERE clause and its arguments.
type builder struct {
	d     dialect
	conds []string
	args  []any
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return b.d.placeholder(len(b.args))
}

func (b *builder) where() string {
	if len(b.conds) == 0 {
		return ""
	}
	out := " WHERE "
	for i, c := range b.conds {
		if i > 0 {
			out += " AND "
		}
		out += c
	}
	return out
}
