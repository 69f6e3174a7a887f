// Package store serves the viewer tables from SQLite or Postgres: paged,
// sorted and searched reads, per-table status, schema and inserts.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// TimeLayout is the stored and served form of timestamp columns. Fixed width
// so SQLite orders the text correctly.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// Row is one record keyed by column name.
type Row map[string]any

// Store wraps a database handle with the dialect of its driver.
type Store struct {
	db *sql.DB
	d  dialect
}

// Open opens driver ("sqlite" or "postgres") at dsn and checks the
// connection.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s database", driver)
	}
	if driver == "sqlite" {
		// One writer; also keeps a :memory: database alive across queries.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, "enabling WAL")
		}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "connecting to %s", driver)
	}
	return &Store{db: db, d: d}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns the database driver name.
func (s *Store) Driver() string {
	return s.d.driver
}

// TableStatus reports whether a table holds rows.
type TableStatus struct {
	HasData bool   `json:"has_data"`
	Count   int64  `json:"count"`
	Error   string `json:"error,omitempty"`
}

// Status counts the rows of every table. A failing table is reported in
// its entry instead of failing the whole call.
func (s *Store) Status(ctx context.Context) map[string]TableStatus {
	out := make(map[string]TableStatus, len(Tables))
	for _, t := range Tables {
		var n int64
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdent(t.Name)).Scan(&n)
		if err != nil {
			glog.Warningf("store: counting %s: %v", t.Name, err)
			out[t.Name] = TableStatus{Error: err.Error()}
			continue
		}
		out[t.Name] = TableStatus{HasData: n > 0, Count: n}
	}
	return out
}

// SchemaColumn is one entry of a table schema.
type SchemaColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Schema describes a table's served columns.
type Schema struct {
	Table   string         `json:"table"`
	Columns []SchemaColumn `json:"columns"`
}

// Schema returns the served columns of table.
func (s *Store) Schema(table string) (*Schema, error) {
	t, err := Lookup(table)
	if err != nil {
		return nil, err
	}
	sc := &Schema{Table: t.Name, Columns: make([]SchemaColumn, len(t.Columns))}
	for i, c := range t.Columns {
		sc.Columns[i] = SchemaColumn{Name: c.Name, Type: c.Kind.String()}
	}
	return sc, nil
}

// Insert adds row to table and returns its id. Columns missing from row are
// stored as NULL.
func (s *Store) Insert(ctx context.Context, table string, row Row) (int64, error) {
	t, err := Lookup(table)
	if err != nil {
		return 0, err
	}

	b := &builder{d: s.d}
	var cols, marks []string
	for name, v := range row {
		c, ok := t.Column(name)
		if !ok {
			return 0, errors.Wrapf(ErrUnknownColumn, "%s.%s", t.Name, name)
		}
		ev, err := s.encode(c, v)
		if err != nil {
			return 0, err
		}
		cols = append(cols, quoteIdent(name))
		marks = append(marks, b.arg(ev))
	}

	var q string
	if len(cols) == 0 {
		q = "INSERT INTO " + quoteIdent(t.Name) + " DEFAULT VALUES RETURNING id"
	} else {
		q = "INSERT INTO " + quoteIdent(t.Name) + " (" + strings.Join(cols, ", ") +
			") VALUES (" + strings.Join(marks, ", ") + ") RETURNING id"
	}
	var id int64
	if err := s.db.QueryRowContext(ctx, q, b.args...).Scan(&id); err != nil {
		return 0, errors.Wrapf(err, "inserting into %s", t.Name)
	}
	glog.V(2).Infof("store: inserted %s id=%d", t.Name, id)
	return id, nil
}

func (s *Store) encode(c Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch c.Kind {
	case KindJSON:
		switch x := v.(type) {
		case json.RawMessage:
			return string(x), nil
		case string:
			return x, nil
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, errors.Wrapf(err, "encoding %s", c.Name)
		}
		return string(b), nil
	case KindTime:
		switch x := v.(type) {
		case time.Time:
			if s.d.driver == "sqlite" {
				return x.UTC().Format(TimeLayout), nil
			}
			return x.UTC(), nil
		case string:
			ts, err := time.Parse(time.RFC3339Nano, x)
			if err != nil {
				return nil, errors.Wrapf(ErrInvalidQuery, "%s: %v", c.Name, err)
			}
			return s.encode(c, ts)
		}
		return nil, errors.Wrapf(ErrInvalidQuery, "%s: unsupported time value %T", c.Name, v)
	}
	return v, nil
}

// normalize converts a scanned driver value to its wire form.
func normalize(k Kind, v any) any {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	switch k {
	case KindJSON:
		if s, ok := v.(string); ok {
			if json.Valid([]byte(s)) {
				return json.RawMessage(s)
			}
			return s
		}
	case KindTime:
		if t, ok := v.(time.Time); ok {
			return t.UTC().Format(TimeLayout)
		}
	case KindBool:
		switch x := v.(type) {
		case int64:
			return x != 0
		case string:
			return x == "1" || x == "t" || x == "true"
		}
	}
	return v
}
