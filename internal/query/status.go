package query

import (
	"time"

	"github.com/tgate/dataviewer/internal/client"
)

// DefaultStatusInterval is how often the viewer polls GET /tables/status.
const DefaultStatusInterval = 30 * time.Second

// PickTable returns the table to show. The active table is kept unless the
// status says it has no data and another table does.
func PickTable(active string, tables []string, status map[string]client.TableStatus) string {
	if status == nil {
		return active
	}
	if status[active].HasData {
		return active
	}
	for _, t := range tables {
		if status[t].HasData {
			return t
		}
	}
	return active
}

// AllEmpty reports whether none of tables has data.
func AllEmpty(tables []string, status map[string]client.TableStatus) bool {
	if status == nil {
		return false
	}
	for _, t := range tables {
		if status[t].HasData {
			return false
		}
	}
	return true
}

// Selectable reports whether table may be chosen. Before the first status
// arrives every table is selectable.
func Selectable(table string, status map[string]client.TableStatus) bool {
	if status == nil {
		return true
	}
	return status[table].HasData
}
