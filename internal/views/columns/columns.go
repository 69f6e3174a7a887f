// Package columns is the column visibility overlay.
package columns

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tgate/dataviewer/internal/client"
	"github.com/tgate/dataviewer/internal/theme"
	"github.com/tgate/dataviewer/internal/views/grid"
)

var defaults = map[string][]string{
	client.TableMessages: {
		"account_id", "date", "text_string", "external_url", "created_at", "updated_at",
		"email_addresses", "tg_links", "www_links", "mentions", "hashtags",
		"phone_numbers", "intense_words", "questions", "exclamations", "emojis",
		"topic_category",
	},
	client.TableObjects: {
		"numeric_id", "username", "labels", "status", "is_private", "created_at", "updated_at",
	},
}

// DefaultVisible returns the columns shown when table is first opened.
func DefaultVisible(table string) []string {
	return defaults[table]
}

// Model tracks which columns of the active table are shown.
type Model struct {
	Table   string
	All     []string
	visible map[string]bool
	cursor  int
	custom  bool
}

// New creates an empty selection.
func New() Model {
	return Model{visible: make(map[string]bool)}
}

// Reset switches to table and restores its default selection.
func (m *Model) Reset(table string) {
	m.Table = table
	m.All = nil
	m.cursor = 0
	m.custom = false
	m.visible = make(map[string]bool)
	for _, c := range DefaultVisible(table) {
		m.visible[c] = true
	}
}

// SetAll records the columns the table actually has. If none of the
// defaults exist and the user has not picked any, everything is shown.
func (m *Model) SetAll(all []string) {
	m.All = all
	if m.cursor >= len(all) {
		m.cursor = 0
	}
	if m.custom {
		return
	}
	for _, c := range all {
		if m.visible[c] {
			return
		}
	}
	for _, c := range all {
		m.visible[c] = true
	}
}

// SetVisible replaces the selection with a remembered one.
func (m *Model) SetVisible(cols []string) {
	m.visible = make(map[string]bool, len(cols))
	for _, c := range cols {
		m.visible[c] = true
	}
	m.custom = true
}

// Chosen returns the shown columns in no particular order.
func (m Model) Chosen() []string {
	out := make([]string, 0, len(m.visible))
	for c, on := range m.visible {
		if on {
			out = append(out, c)
		}
	}
	return out
}

// Visible filters ordered down to the shown columns, keeping its order.
func (m Model) Visible(ordered []string) []string {
	out := make([]string, 0, len(ordered))
	for _, c := range ordered {
		if m.visible[c] {
			out = append(out, c)
		}
	}
	return out
}

// IsVisible reports whether column is shown.
func (m Model) IsVisible(column string) bool { return m.visible[column] }

// Toggle flips the column under the cursor.
func (m *Model) Toggle() {
	if m.cursor < 0 || m.cursor >= len(m.All) {
		return
	}
	c := m.All[m.cursor]
	m.visible[c] = !m.visible[c]
	m.custom = true
}

// Up moves the cursor up.
func (m *Model) Up() {
	if m.cursor > 0 {
		m.cursor--
	}
}

// Down moves the cursor down.
func (m *Model) Down() {
	if m.cursor < len(m.All)-1 {
		m.cursor++
	}
}

// View renders the overlay.
func (m Model) View(width int) string {
	innerW := width - 4
	if innerW < 30 {
		innerW = 30
	}
	title := theme.StyleHeader.Render(" COLUMNS: " + m.Table + " ")
	help := theme.StyleDimmed.Render("j/k:move  space:toggle  esc:close")

	if len(m.All) == 0 {
		body := theme.StyleDimmed.Render("  Schema not loaded yet.")
		return theme.Panel(innerW).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", help))
	}

	lines := make([]string, len(m.All))
	for i, c := range m.All {
		box := "[ ]"
		if m.visible[c] {
			box = "[x]"
		}
		line := box + " " + grid.Label(c) + theme.StyleDimmed.Render("  "+c)
		if i == m.cursor {
			line = theme.StyleSelected.Render("> ") + line
		} else {
			line = "  " + line
		}
		lines[i] = line
	}
	return theme.Panel(innerW).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", strings.Join(lines, "\n"), "", help))
}
