package store

import (
	"github.com/pkg/errors"
)

// Kind is the storage class of a column. It decides the DDL type, how
// values are encoded on insert and how scanned values are normalized.
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindBool
	KindJSON
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInt:
		return "integer"
	case KindBool:
		return "boolean"
	case KindJSON:
		return "json"
	case KindTime:
		return "timestamp"
	}
	return "unknown"
}

// Column is one served column.
type Column struct {
	Name string `json:"name"`
	Kind Kind   `json:"-"`
}

// Table describes a served table. Every table also carries an internal
// auto-increment id used as the sort tiebreaker; it is never returned.
type Table struct {
	Name    string
	Columns []Column
	// Search lists the columns matched by the global search parameter.
	Search []string
	// Fields maps search_<field> parameters to the column they match.
	Fields map[string]string
	// DefaultSort is used when the query names no sort column.
	DefaultSort string
}

// Column returns the named column.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Names returns the column names in declaration order.
func (t *Table) Names() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Channel is the notification channel for changes to the table.
func (t *Table) Channel() string {
	return t.Name + "_changes"
}

const (
	TableMessages = "telegram_message"
	TableObjects  = "tg_objects"
)

var messages = &Table{
	Name: TableMessages,
	Columns: []Column{
		{"labels", KindText},
		{"numeric_id", KindInt},
		{"msg_id", KindInt},
		{"account_id", KindText},
		{"author_is_bot", KindBool},
		{"media", KindText},
		{"views", KindInt},
		{"forwards", KindInt},
		{"reactions", KindJSON},
		{"reactions_text", KindText},
		{"comments_count", KindInt},
		{"comments_list", KindJSON},
		{"date", KindTime},
		{"text_markdown", KindText},
		{"text_clean", KindText},
		{"formatted_body", KindText},
		{"body", KindText},
		{"text_string", KindText},
		{"external_url", KindText},
		{"created_at", KindTime},
		{"updated_at", KindTime},
		{"diagnostics", KindJSON},
		{"email_addresses", KindJSON},
		{"tg_links", KindJSON},
		{"www_links", KindJSON},
		{"mentions", KindJSON},
		{"hashtags", KindJSON},
		{"phone_numbers", KindJSON},
		{"intense_words", KindJSON},
		{"questions", KindJSON},
		{"exclamations", KindJSON},
		{"emojis", KindJSON},
		{"topic_category", KindText},
	},
	Search: []string{"text_string", "text_clean", "text_markdown", "body", "external_url", "topic_category"},
	Fields: map[string]string{
		"search_questions":     "questions",
		"search_emails":        "email_addresses",
		"search_tg_links":      "tg_links",
		"search_www_links":     "www_links",
		"search_mentions":      "mentions",
		"search_hashtags":      "hashtags",
		"search_phones":        "phone_numbers",
		"search_intense_words": "intense_words",
		"search_exclamations":  "exclamations",
		"search_emojis":        "emojis",
	},
	DefaultSort: "date",
}

var objects = &Table{
	Name: TableObjects,
	Columns: []Column{
		{"labels", KindText},
		{"numeric_id", KindInt},
		{"username", KindText},
		{"meta", KindJSON},
		{"is_private", KindBool},
		{"status", KindText},
		{"created_at", KindTime},
		{"updated_at", KindTime},
		{"access_hash", KindInt},
	},
	Search:      []string{"username", "labels", "status", "meta"},
	Fields:      map[string]string{},
	DefaultSort: "created_at",
}

// Tables lists every served table in display order.
var Tables = []*Table{messages, objects}

// Lookup returns the table called name.
func Lookup(name string) (*Table, error) {
	for _, t := range Tables {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, errors.Wrapf(ErrUnknownTable, "%q", name)
}
