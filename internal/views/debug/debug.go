// Package debug keeps the viewer's event log: connection changes, fetches
// and navigation, filterable by kind.
package debug

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tgate/dataviewer/internal/theme"
)

// Kind tags an entry with the subsystem that produced it.
type Kind string

const (
	KindWS    Kind = "ws"
	KindQuery Kind = "qry"
	KindNav   Kind = "nav"
	KindError Kind = "err"
)

// filterCycle is the order CycleFilter steps through. The empty kind shows
// everything.
var filterCycle = []Kind{"", KindWS, KindQuery, KindNav, KindError}

const capacity = 200

// Entry is one logged event.
type Entry struct {
	At   time.Time
	Kind Kind
	Text string
}

// Model is a bounded event log read from the newest entry backwards.
type Model struct {
	log    []Entry
	filter Kind
	back   int // filtered entries hidden below the view
	clock  func() time.Time
}

// New creates an empty log.
func New() Model {
	return Model{clock: time.Now}
}

// Addf records an event and jumps back to the newest entry.
func (m *Model) Addf(kind Kind, format string, args ...interface{}) {
	at := time.Now()
	if m.clock != nil {
		at = m.clock()
	}
	m.log = append(m.log, Entry{At: at, Kind: kind, Text: fmt.Sprintf(format, args...)})
	if over := len(m.log) - capacity; over > 0 {
		m.log = append(m.log[:0], m.log[over:]...)
	}
	m.back = 0
}

// Len is the number of retained entries, ignoring the filter.
func (m Model) Len() int { return len(m.log) }

// Entries returns the entries passing the current filter, oldest first.
func (m Model) Entries() []Entry {
	if m.filter == "" {
		return append([]Entry(nil), m.log...)
	}
	var out []Entry
	for _, e := range m.log {
		if e.Kind == m.filter {
			out = append(out, e)
		}
	}
	return out
}

// Filter is the kind currently shown, or "" for all kinds.
func (m Model) Filter() Kind { return m.filter }

// CycleFilter steps to the next kind filter.
func (m *Model) CycleFilter() {
	for i, k := range filterCycle {
		if k == m.filter {
			m.filter = filterCycle[(i+1)%len(filterCycle)]
			break
		}
	}
	m.back = 0
}

// Scroll moves the view by delta entries; positive is towards older ones.
func (m *Model) Scroll(delta int) {
	limit := max(len(m.Entries())-1, 0)
	m.back = min(max(m.back+delta, 0), limit)
}

// View renders the log as an overlay panel.
func (m Model) View(width, height int) string {
	inner := max(width-4, 20)
	rows := max(height-6, 3)
	shown := m.Entries()

	label := "all"
	if m.filter != "" {
		label = string(m.filter)
	}
	header := theme.StyleHeader.Render(" EVENT LOG ") + " " + theme.StyleDimmed.Render("showing "+label)
	footer := theme.StyleDimmed.Render(fmt.Sprintf("tab:filter  j/k:scroll  esc:close  %d/%d", len(shown), len(m.log)))

	var body string
	switch {
	case len(m.log) == 0:
		body = theme.StyleDimmed.Render("  No events recorded yet.")
	case len(shown) == 0:
		body = theme.StyleDimmed.Render(fmt.Sprintf("  No %s events.", m.filter))
	default:
		end := len(shown) - m.back
		lines := make([]string, 0, rows+1)
		for _, e := range shown[max(end-rows, 0):end] {
			lines = append(lines, e.render(inner))
		}
		if m.back > 0 {
			lines = append(lines, theme.StyleDimmed.Render(fmt.Sprintf(" ↓ %d newer", m.back)))
		}
		body = strings.Join(lines, "\n")
	}
	return theme.Panel(inner).Render(lipgloss.JoinVertical(lipgloss.Left, header, "", body, "", footer))
}

func (e Entry) render(width int) string {
	stamp := theme.StyleDimmed.Render(e.At.Format("15:04:05.000"))
	tag := lipgloss.NewStyle().Foreground(e.Kind.color()).Width(4).Render(string(e.Kind))
	return stamp + " " + tag + " " + clip(e.Text, width-18)
}

func (k Kind) color() lipgloss.Color {
	switch k {
	case KindWS:
		return theme.ColorEventWS
	case KindQuery:
		return theme.ColorEventQuery
	case KindNav:
		return theme.ColorEventNav
	case KindError:
		return theme.ColorDanger
	}
	return theme.ColorDimmed
}

func clip(s string, n int) string {
	r := []rune(s)
	if n < 4 || len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
