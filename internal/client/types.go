// Package client provides the HTTP client for the dataviewer query, schema
// and status endpoints. Types mirror the server wire format without
// importing server packages.
package client

import (
	"net/url"
	"strconv"
)

// Table names served by the backend.
const (
	TableMessages = "telegram_message"
	TableObjects  = "tg_objects"
)

// Sort orders.
const (
	SortDesc = "desc"
	SortAsc  = "asc"
)

// DefaultPageSize matches the server default.
const DefaultPageSize = 50

// PageSizes are the page sizes offered by the viewer.
var PageSizes = []int{25, 50, 100, 200}

// Row is one record keyed by column name.
type Row map[string]any

// TablePage is the response of GET /tables/{table}.
type TablePage struct {
	Rows     []Row `json:"rows"`
	Total    int   `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// TotalPages returns the number of pages for the page size in use.
func (p *TablePage) TotalPages() int {
	if p == nil || p.PageSize <= 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

// TableStatus is one entry of GET /tables/status.
type TableStatus struct {
	HasData bool   `json:"has_data"`
	Count   int    `json:"count"`
	Error   string `json:"error,omitempty"`
}

// Column describes one column of a table.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Schema is the response of GET /tables/{table}/schema.
type Schema struct {
	Table   string   `json:"table"`
	Columns []Column `json:"columns"`
}

// Names returns the column names in schema order.
func (s *Schema) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}

// Filters is the query state of one table view. It is comparable so it can
// key the query cache.
type Filters struct {
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
	Search    string

	Questions    string
	Emails       string
	TgLinks      string
	WwwLinks     string
	Mentions     string
	Hashtags     string
	Phones       string
	IntenseWords string
	Exclamations string
	Emojis       string
}

// DefaultFilters is the initial query of a freshly opened table.
func DefaultFilters() Filters {
	return Filters{Page: 1, PageSize: DefaultPageSize, SortOrder: SortDesc}
}

// SearchFields lists the per-field search parameters, in display order.
// They apply to telegram_message only.
var SearchFields = []string{
	"search_questions",
	"search_emails",
	"search_tg_links",
	"search_www_links",
	"search_mentions",
	"search_hashtags",
	"search_phones",
	"search_intense_words",
	"search_exclamations",
	"search_emojis",
}

// Field returns a pointer to the per-field search value for param, or nil
// for an unknown parameter.
func (f *Filters) Field(param string) *string {
	switch param {
	case "search_questions":
		return &f.Questions
	case "search_emails":
		return &f.Emails
	case "search_tg_links":
		return &f.TgLinks
	case "search_www_links":
		return &f.WwwLinks
	case "search_mentions":
		return &f.Mentions
	case "search_hashtags":
		return &f.Hashtags
	case "search_phones":
		return &f.Phones
	case "search_intense_words":
		return &f.IntenseWords
	case "search_exclamations":
		return &f.Exclamations
	case "search_emojis":
		return &f.Emojis
	}
	return nil
}

// ToggleSort sorts by column; selecting the current column again flips
// desc to asc. Sorting always returns to the first page.
func (f *Filters) ToggleSort(column string) {
	if f.SortBy == column && f.SortOrder == SortDesc {
		f.SortOrder = SortAsc
	} else {
		f.SortOrder = SortDesc
	}
	f.SortBy = column
	f.Page = 1
}

// Values encodes the filters as query parameters, omitting empty ones.
func (f Filters) Values() url.Values {
	v := url.Values{}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(f.PageSize))
	}
	if f.SortBy != "" {
		v.Set("sort_by", f.SortBy)
	}
	if f.SortOrder != "" {
		v.Set("sort_order", f.SortOrder)
	}
	if f.Search != "" {
		v.Set("search", f.Search)
	}
	for _, param := range SearchFields {
		if s := *f.Field(param); s != "" {
			v.Set(param, s)
		}
	}
	return v
}
