package grid

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tgate/dataviewer/internal/client"
)

const (
	maxCellRunes = 100
	dateLayout   = "2 Jan 2006 15:04"
)

var dateColumns = map[string]bool{
	"date":       true,
	"created_at": true,
	"updated_at": true,
}

var labels = map[string]string{
	"account_id":      "author",
	"date":            "published",
	"text_string":     "content",
	"text_markdown":   "content (markdown)",
	"external_url":    "source",
	"created_at":      "created",
	"updated_at":      "updated",
	"email_addresses": "email",
	"tg_links":        "telegram links",
	"www_links":       "web links",
	"mentions":        "mentions",
	"hashtags":        "hashtags",
	"phone_numbers":   "phone numbers",
	"intense_words":   "intense words",
	"questions":       "questions",
	"exclamations":    "exclamations",
	"emojis":          "emoji",
	"topic_category":  "topic",
	"numeric_id":      "ID",
	"username":        "username",
	"labels":          "labels",
	"status":          "status",
	"is_private":      "private",
}

// Label returns the header text for a column.
func Label(column string) string {
	if l, ok := labels[column]; ok {
		return l
	}
	return strings.ReplaceAll(column, "_", " ")
}

// FormatCell renders one value the way the grid shows it: nil as "-",
// objects and arrays as compact JSON, booleans as Yes/No, date columns as
// "2 Jan 2006 15:04" (UTC) and long strings cut to 100 runes.
func FormatCell(column string, v interface{}) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case bool:
		if x {
			return "Yes"
		}
		return "No"
	case string:
		if d, ok := FormatDate(column, x); ok {
			return d
		}
		return Truncate(x, maxCellRunes)
	case json.Number:
		return x.String()
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	default:
		return fmt.Sprint(x)
	}
}

// Truncate cuts s to max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "..."
}

// FormatDate formats s when column is a date column and s parses as a time.
func FormatDate(column, s string) (string, bool) {
	if !dateColumns[column] {
		return "", false
	}
	t, ok := parseTime(s)
	if !ok {
		return "", false
	}
	return t.UTC().Format(dateLayout), true
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// OrderColumns returns the columns to lay out: schema order when a schema is
// known, otherwise the sorted keys of the first row.
func OrderColumns(schema []string, rows []client.Row) []string {
	if len(schema) > 0 {
		return schema
	}
	if len(rows) == 0 {
		return nil
	}
	out := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
