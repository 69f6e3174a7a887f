// Package tabs renders the table selector.
package tabs

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tgate/dataviewer/internal/client"
	"github.com/tgate/dataviewer/internal/query"
	"github.com/tgate/dataviewer/internal/theme"
)

// Tab is one selectable table.
type Tab struct {
	Table string
	Title string
}

// DefaultTabs lists the tables the viewer knows about, in key order.
func DefaultTabs() []Tab {
	return []Tab{
		{Table: client.TableMessages, Title: "Messages"},
		{Table: client.TableObjects, Title: "Channels"},
	}
}

// Model is the tab bar. Status is nil until the first status poll lands.
type Model struct {
	Tabs   []Tab
	Active string
	Status map[string]client.TableStatus
	Width  int
}

// New creates a tab bar with the first tab active.
func New(tabs []Tab) Model {
	m := Model{Tabs: tabs}
	if len(tabs) > 0 {
		m.Active = tabs[0].Table
	}
	return m
}

// Tables returns the table names in tab order.
func (m Model) Tables() []string {
	out := make([]string, len(m.Tabs))
	for i, t := range m.Tabs {
		out[i] = t.Table
	}
	return out
}

// Index returns the position of the active tab.
func (m Model) Index() int {
	for i, t := range m.Tabs {
		if t.Table == m.Active {
			return i
		}
	}
	return 0
}

// Select activates the tab at index i. Empty tables are refused.
func (m *Model) Select(i int) bool {
	if i < 0 || i >= len(m.Tabs) {
		return false
	}
	t := m.Tabs[i].Table
	if t == m.Active || !query.Selectable(t, m.Status) {
		return false
	}
	m.Active = t
	return true
}

// Next activates the next selectable tab, wrapping around.
func (m *Model) Next() bool {
	n := len(m.Tabs)
	for step := 1; step < n; step++ {
		if m.Select((m.Index() + step) % n) {
			return true
		}
	}
	return false
}

// SetStatus stores a status poll result and moves off an empty active
// table. It reports whether the active table changed.
func (m *Model) SetStatus(status map[string]client.TableStatus) bool {
	m.Status = status
	next := query.PickTable(m.Active, m.Tables(), status)
	if next == m.Active {
		return false
	}
	m.Active = next
	return true
}

// AllEmpty reports whether the last status found no data anywhere.
func (m Model) AllEmpty() bool {
	return query.AllEmpty(m.Tables(), m.Status)
}

var (
	styleActive = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorBright).
			Background(theme.ColorTabActive).
			Padding(0, 1)

	styleInactive = lipgloss.NewStyle().
			Foreground(theme.ColorTabInactive).
			Padding(0, 1)

	styleEmpty = lipgloss.NewStyle().
			Foreground(theme.ColorTabEmpty).
			Padding(0, 1)

	styleBanner = lipgloss.NewStyle().
			Foreground(theme.ColorWarning).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.ColorWarning).
			Padding(0, 1)
)

// View renders the tab bar, plus a banner when every table is empty.
func (m Model) View() string {
	parts := make([]string, 0, len(m.Tabs))
	for i, t := range m.Tabs {
		label := fmt.Sprintf("%d %s", i+1, t.Title)
		if st, ok := m.Status[t.Table]; ok {
			if st.HasData {
				label += fmt.Sprintf(" (%d)", st.Count)
			} else {
				label += " [empty]"
			}
		}
		switch {
		case t.Table == m.Active:
			parts = append(parts, styleActive.Render(label))
		case !query.Selectable(t.Table, m.Status):
			parts = append(parts, styleEmpty.Render(label))
		default:
			parts = append(parts, styleInactive.Render(label))
		}
	}
	bar := strings.Join(parts, " ")
	if !m.AllEmpty() {
		return bar
	}
	banner := styleBanner.Render("No data in any table yet. Waiting for the writer to insert rows.")
	return lipgloss.JoinVertical(lipgloss.Left, bar, banner)
}
