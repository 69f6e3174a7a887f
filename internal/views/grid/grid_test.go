package grid

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tgate/dataviewer/internal/client"
)

func TestFormatCell(t *testing.T) {
	long := strings.Repeat("я", 120)
	tests := []struct {
		name   string
		column string
		value  interface{}
		want   string
	}{
		{"nil", "text_string", nil, "-"},
		{"true", "is_private", true, "Yes"},
		{"false", "is_private", false, "No"},
		{"number", "numeric_id", json.Number("1001"), "1001"},
		{"object", "labels", map[string]interface{}{"a": "b"}, `{"a":"b"}`},
		{"array", "hashtags", []interface{}{"#go", "#db"}, `["#go","#db"]`},
		{"date column", "created_at", "2024-03-05T14:07:09.000000Z", "5 Mar 2024 14:07"},
		{"unparseable date", "date", "yesterday", "yesterday"},
		{"date-like non-date column", "username", "2024-03-05", "2024-03-05"},
		{"long string", "text_string", long, strings.Repeat("я", 100) + "..."},
		{"short string", "text_string", "hi", "hi"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCell(tt.column, tt.value))
		})
	}
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "author", Label("account_id"))
	assert.Equal(t, "ID", Label("numeric_id"))
	assert.Equal(t, "some new column", Label("some_new_column"))
}

func TestOrderColumns(t *testing.T) {
	rows := []client.Row{{"b": 1, "a": 2, "c": 3}}
	assert.Equal(t, []string{"a", "b", "c"}, OrderColumns(nil, rows))
	assert.Equal(t, []string{"c", "a"}, OrderColumns([]string{"c", "a"}, rows))
	assert.Nil(t, OrderColumns(nil, nil))
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "Showing 51 to 60 of 60 results",
		Summary(&client.TablePage{Total: 60, Page: 2, PageSize: 50}))
	assert.Equal(t, "Showing 1 to 25 of 60 results",
		Summary(&client.TablePage{Total: 60, Page: 1, PageSize: 25}))
	assert.Empty(t, Summary(&client.TablePage{Total: 0, Page: 1, PageSize: 25}))
	assert.Empty(t, Summary(nil))
}

func page(n, total, pageNo, size int) *client.TablePage {
	rows := make([]client.Row, n)
	for i := range rows {
		rows[i] = client.Row{
			"username":   "chan" + string(rune('a'+i)),
			"is_private": i%2 == 0,
			"numeric_id": json.Number("7"),
		}
	}
	return &client.TablePage{Rows: rows, Total: total, Page: pageNo, PageSize: size}
}

func newGrid() Model {
	m := New()
	m.SetSize(200, 30)
	return m
}

func TestViewStates(t *testing.T) {
	cols := []string{"numeric_id", "username", "is_private"}
	f := client.DefaultFilters()

	m := newGrid()
	m.SetData("tg_objects", cols, f, nil, nil)
	assert.Contains(t, m.View(), "Loading tg_objects")

	m.SetData("tg_objects", cols, f, nil, errors.New("connection refused"))
	out := m.View()
	assert.Contains(t, out, "Failed to load tg_objects")
	assert.Contains(t, out, "R:retry")

	m.SetData("tg_objects", cols, f, page(0, 0, 1, 50), nil)
	assert.Contains(t, m.View(), "No data found for table tg_objects")
}

func TestViewRowsAndPagination(t *testing.T) {
	cols := []string{"numeric_id", "username", "is_private"}
	f := client.DefaultFilters()
	f.SortBy = "username"

	m := newGrid()
	m.SetData("tg_objects", cols, f, page(3, 3, 1, 50), nil)
	out := m.View()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "username ▼")
	assert.Contains(t, out, "chana")
	assert.Contains(t, out, "Yes")
	assert.NotContains(t, out, "Showing", "single page hides pagination")

	m.SetData("tg_objects", cols, f, page(3, 120, 2, 50), nil)
	out = m.View()
	assert.Contains(t, out, "Showing 51 to 100 of 120 results")
	assert.Contains(t, out, "Page 2 of 3")
}

func TestRefreshErrorKeepsRows(t *testing.T) {
	m := newGrid()
	m.SetData("tg_objects", []string{"username"}, client.DefaultFilters(), page(2, 2, 1, 50), errors.New("timeout"))
	out := m.View()
	assert.Contains(t, out, "chana")
	assert.Contains(t, out, "refresh failed: timeout")
}

func TestSelectionAndSortCursor(t *testing.T) {
	cols := []string{"numeric_id", "username", "is_private"}
	m := newGrid()
	m.SetData("tg_objects", cols, client.DefaultFilters(), page(3, 3, 1, 50), nil)

	row, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "chana", row["username"])

	m.MoveDown(1)
	row, ok = m.Selected()
	require.True(t, ok)
	assert.Equal(t, "chanb", row["username"])

	target, ok := m.SortTarget()
	require.True(t, ok)
	assert.Equal(t, "numeric_id", target)
	m.MoveSortCursor(-1)
	target, _ = m.SortTarget()
	assert.Equal(t, "is_private", target)
	m.MoveSortCursor(2)
	target, _ = m.SortTarget()
	assert.Equal(t, "username", target)
}

func TestTableSwitchResetsCursor(t *testing.T) {
	m := newGrid()
	m.SetData("tg_objects", []string{"username"}, client.DefaultFilters(), page(3, 3, 1, 50), nil)
	m.MoveDown(2)
	m.SetData("telegram_message", []string{"username"}, client.DefaultFilters(), page(3, 3, 1, 50), nil)
	assert.Equal(t, 0, m.Cursor())
}

func TestRefreshKeepsCursor(t *testing.T) {
	m := newGrid()
	m.SetData("tg_objects", []string{"username"}, client.DefaultFilters(), page(3, 3, 1, 50), nil)
	m.MoveDown(2)
	m.SetData("tg_objects", []string{"username"}, client.DefaultFilters(), page(3, 3, 1, 50), nil)
	assert.Equal(t, 2, m.Cursor())

	m.SetData("tg_objects", []string{"username"}, client.DefaultFilters(), page(1, 1, 1, 50), nil)
	assert.Equal(t, 0, m.Cursor())
}
