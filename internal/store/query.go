package store

import (
	"context"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Paging limits.
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
	// MaxPage keeps the row offset within an int.
	MaxPage = math.MaxInt / MaxPageSize
)

// Query selects one page of a table.
type Query struct {
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
	Search    string
	// Fields holds search_<field> values keyed by parameter name.
	Fields map[string]string
}

// ParseQuery reads a Query from request parameters. Empty values are
// ignored; out-of-range paging is clamped.
func ParseQuery(v url.Values) (Query, error) {
	q := Query{Page: 1, PageSize: DefaultPageSize, SortOrder: "desc"}

	if s := v.Get("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, errors.Wrapf(ErrInvalidQuery, "page %q", s)
		}
		if n > MaxPage {
			return q, errors.Wrapf(ErrInvalidQuery, "page %d out of range", n)
		}
		q.Page = n
	}
	if s := v.Get("page_size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, errors.Wrapf(ErrInvalidQuery, "page_size %q", s)
		}
		q.PageSize = n
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}

	q.SortBy = v.Get("sort_by")
	if s := strings.ToLower(v.Get("sort_order")); s != "" {
		if s != "asc" && s != "desc" {
			return q, errors.Wrapf(ErrInvalidQuery, "sort_order %q", s)
		}
		q.SortOrder = s
	}
	q.Search = strings.TrimSpace(v.Get("search"))

	for key, vals := range v {
		if !strings.HasPrefix(key, "search_") || len(vals) == 0 {
			continue
		}
		if s := strings.TrimSpace(vals[0]); s != "" {
			if q.Fields == nil {
				q.Fields = make(map[string]string)
			}
			q.Fields[key] = s
		}
	}
	return q, nil
}

// Page is one page of rows plus the total matching count.
type Page struct {
	Rows     []Row `json:"rows"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// Query returns one page of table matching q.
func (s *Store) Query(ctx context.Context, table string, q Query) (*Page, error) {
	t, err := Lookup(table)
	if err != nil {
		return nil, err
	}

	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = t.DefaultSort
	}
	if _, ok := t.Column(sortBy); !ok {
		return nil, errors.Wrapf(ErrUnknownColumn, "sort_by %q", sortBy)
	}
	dir := "DESC"
	if q.SortOrder == "asc" {
		dir = "ASC"
	}

	b := &builder{d: s.d}
	b.addSearch(t.Search, ParseSearch(q.Search))
	for param, val := range q.Fields {
		col, ok := t.Fields[param]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownColumn, "%s does not support %s", t.Name, param)
		}
		b.conds = append(b.conds, b.matchAny([]string{col}, val))
	}
	where := b.where()

	var total int64
	countSQL := "SELECT COUNT(*) FROM " + quoteIdent(t.Name) + where
	if err := s.db.QueryRowContext(ctx, countSQL, b.args...).Scan(&total); err != nil {
		return nil, errors.Wrapf(err, "counting %s", t.Name)
	}

	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = quoteIdent(c.Name)
	}
	limit := b.arg(q.PageSize)
	offset := b.arg((q.Page - 1) * q.PageSize)
	selectSQL := "SELECT " + strings.Join(cols, ", ") + " FROM " + quoteIdent(t.Name) + where +
		" ORDER BY " + quoteIdent(sortBy) + " " + dir + ", id " + dir +
		" LIMIT " + limit + " OFFSET " + offset

	rows, err := s.db.QueryContext(ctx, selectSQL, b.args...)
	if err != nil {
		return nil, errors.Wrapf(err, "querying %s", t.Name)
	}
	defer rows.Close()

	page := &Page{Rows: []Row{}, Total: total, Page: q.Page, PageSize: q.PageSize}
	vals := make([]any, len(t.Columns))
	ptrs := make([]any, len(t.Columns))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrapf(err, "scanning %s", t.Name)
		}
		r := make(Row, len(t.Columns))
		for i, c := range t.Columns {
			r[c.Name] = normalize(c.Kind, vals[i])
		}
		page.Rows = append(page.Rows, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading %s", t.Name)
	}
	return page, nil
}
