// Package grid renders one page of table rows with bubbles/table.
package grid

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgate/dataviewer/internal/client"
	"github.com/tgate/dataviewer/internal/theme"
)

const (
	minColWidth = 4
	maxColWidth = 40
	// rows of chrome around the table body: header, border, pagination
	chrome = 4
)

// Model is the table grid. Columns are the visible columns in display order.
type Model struct {
	Table   string
	Columns []string
	Filters client.Filters

	page *client.TablePage
	err  error

	sortCursor int
	tbl        table.Model
	pager      paginator.Model
	width      int
	height     int
}

// New creates an empty grid.
func New() Model {
	tbl := table.New(table.WithFocused(true))
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.ColorBorder).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(theme.ColorBright).
		Background(theme.ColorTabActive).
		Bold(false)
	tbl.SetStyles(s)

	pager := paginator.New()
	pager.Type = paginator.Arabic
	pager.ArabicFormat = "Page %d of %d"

	return Model{tbl: tbl, pager: pager}
}

// SetSize resizes the grid viewport.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	h := height - chrome
	if h < 3 {
		h = 3
	}
	m.tbl.SetHeight(h)
	m.tbl.SetWidth(width)
}

// SetData replaces what the grid shows. A nil page with a nil error means
// the first fetch is still running.
func (m *Model) SetData(tableName string, columns []string, f client.Filters, page *client.TablePage, err error) {
	cursor := m.tbl.Cursor()
	if tableName != m.Table {
		m.sortCursor = 0
		cursor = 0
	}
	m.Table = tableName
	m.Columns = columns
	m.Filters = f
	m.page = page
	m.err = err
	if m.sortCursor >= len(columns) {
		m.sortCursor = 0
	}

	var rows []client.Row
	if page != nil {
		rows = page.Rows
	}

	// Rows must be cleared before columns shrink: the table indexes
	// columns by row cell position.
	m.tbl.SetRows(nil)
	m.tbl.SetColumns(m.columns(rows))
	m.tbl.SetRows(m.rows(rows))
	if cursor < 0 || cursor >= len(rows) {
		cursor = 0
	}
	m.tbl.SetCursor(cursor)

	if page != nil && page.PageSize > 0 {
		m.pager.PerPage = page.PageSize
		m.pager.SetTotalPages(page.Total)
		m.pager.Page = page.Page - 1
	}
}

func (m Model) columns(rows []client.Row) []table.Column {
	cols := make([]table.Column, len(m.Columns))
	for i, c := range m.Columns {
		title := Label(c)
		if m.Filters.SortBy == c {
			if m.Filters.SortOrder == client.SortAsc {
				title += " ▲"
			} else {
				title += " ▼"
			}
		}
		if i == m.sortCursor {
			title = "›" + title
		}
		w := lipgloss.Width(title)
		for _, r := range rows {
			if cw := lipgloss.Width(cell(c, r[c])); cw > w {
				w = cw
			}
		}
		if w < minColWidth {
			w = minColWidth
		}
		if w > maxColWidth {
			w = maxColWidth
		}
		cols[i] = table.Column{Title: title, Width: w}
	}
	return cols
}

func (m Model) rows(rows []client.Row) []table.Row {
	out := make([]table.Row, len(rows))
	for i, r := range rows {
		tr := make(table.Row, len(m.Columns))
		for j, c := range m.Columns {
			tr[j] = cell(c, r[c])
		}
		out[i] = tr
	}
	return out
}

// cell flattens a formatted value onto a single line.
func cell(column string, v interface{}) string {
	s := FormatCell(column, v)
	return strings.Join(strings.Fields(s), " ")
}

// Page returns the page on screen.
func (m Model) Page() *client.TablePage { return m.page }

// Selected returns the row under the cursor.
func (m Model) Selected() (client.Row, bool) {
	if m.page == nil || len(m.page.Rows) == 0 {
		return nil, false
	}
	i := m.tbl.Cursor()
	if i < 0 || i >= len(m.page.Rows) {
		return nil, false
	}
	return m.page.Rows[i], true
}

// Cursor returns the selected row index.
func (m Model) Cursor() int { return m.tbl.Cursor() }

// MoveUp moves the row cursor up.
func (m *Model) MoveUp(n int) { m.tbl.MoveUp(n) }

// MoveDown moves the row cursor down.
func (m *Model) MoveDown(n int) { m.tbl.MoveDown(n) }

// MoveSortCursor shifts the column the sort key acts on.
func (m *Model) MoveSortCursor(delta int) {
	n := len(m.Columns)
	if n == 0 {
		return
	}
	m.sortCursor = ((m.sortCursor+delta)%n + n) % n
	var rows []client.Row
	if m.page != nil {
		rows = m.page.Rows
	}
	m.tbl.SetColumns(m.columns(rows))
}

// SortTarget returns the column under the sort cursor.
func (m Model) SortTarget() (string, bool) {
	if m.sortCursor < 0 || m.sortCursor >= len(m.Columns) {
		return "", false
	}
	return m.Columns[m.sortCursor], true
}

// Summary returns "Showing X to Y of Z results", or "" for an empty page.
func Summary(p *client.TablePage) string {
	if p == nil || p.Total == 0 || p.PageSize <= 0 {
		return ""
	}
	from := (p.Page-1)*p.PageSize + 1
	to := p.Page * p.PageSize
	if to > p.Total {
		to = p.Total
	}
	return fmt.Sprintf("Showing %d to %d of %d results", from, to, p.Total)
}

// View renders the grid body.
func (m Model) View() string {
	switch {
	case m.page == nil && m.err != nil:
		msg := fmt.Sprintf("Failed to load %s: %v", m.Table, m.err)
		return lipgloss.JoinVertical(lipgloss.Left,
			theme.StyleError.Render(msg),
			theme.StyleDimmed.Render("R:retry"))
	case m.page == nil:
		return theme.StyleDimmed.Render("Loading " + m.Table + "...")
	case len(m.page.Rows) == 0:
		return theme.StyleDimmed.Render("No data found for table " + m.Table)
	}

	sections := []string{m.tbl.View()}
	if m.err != nil {
		sections = append(sections, theme.StyleError.Render("refresh failed: "+m.err.Error()+"  R:retry"))
	}
	if m.page.TotalPages() > 1 {
		sections = append(sections, theme.StyleDimmed.Render(Summary(m.page)+"   "+m.pager.View()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
