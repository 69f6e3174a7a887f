// Package detail renders the row detail overlay.
package detail

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/golang/glog"

	"github.com/tgate/dataviewer/internal/client"
	"github.com/tgate/dataviewer/internal/theme"
	"github.com/tgate/dataviewer/internal/views/grid"
)

const (
	labelWidth    = 22
	markdownField = "text_markdown"
	minWidth      = 40
)

var (
	styleLabel = lipgloss.NewStyle().
			Foreground(theme.ColorDimmed).
			Width(labelWidth)

	styleValue = lipgloss.NewStyle().
			Foreground(theme.ColorBright)

	styleSection = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorDimmed)
)

// Model holds the row on display and its pre-rendered lines.
type Model struct {
	Table  string
	Row    client.Row
	lines  []string
	offset int
	width  int
}

// New renders row for a panel of the given width. Columns fixes the field
// order; columns missing from the row are skipped.
func New(table string, row client.Row, columns []string, width int) Model {
	if width < minWidth {
		width = minWidth
	}
	m := Model{Table: table, Row: row, width: width}
	m.lines = render(row, columns, width-10)
	return m
}

func render(row client.Row, columns []string, width int) []string {
	var b strings.Builder
	valueW := width - labelWidth
	if valueW < 10 {
		valueW = 10
	}
	for _, c := range columns {
		if c == markdownField {
			continue
		}
		v, ok := row[c]
		if !ok {
			continue
		}
		val := styleValue.Width(valueW).Render(FormatFull(c, v))
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, styleLabel.Render(grid.Label(c)+":"), val) + "\n")
	}
	if md, ok := row[markdownField].(string); ok && md != "" {
		b.WriteString("\n" + styleSection.Render("CONTENT") + "\n")
		b.WriteString(renderMarkdown(md, width))
	}
	return strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
}

func renderMarkdown(md string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			return out
		}
	}
	glog.Warningf("detail: markdown render: %v", err)
	return md
}

// FormatFull renders a value without truncation; objects are indented JSON.
func FormatFull(column string, v interface{}) string {
	switch x := v.(type) {
	case map[string]interface{}, []interface{}:
		b, err := json.MarshalIndent(x, "", "  ")
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	case string:
		if d, ok := grid.FormatDate(column, x); ok {
			return d
		}
		return x
	default:
		return grid.FormatCell(column, v)
	}
}

// ScrollUp moves towards the first field.
func (m *Model) ScrollUp(n int) {
	m.offset -= n
	if m.offset < 0 {
		m.offset = 0
	}
}

// ScrollDown moves towards the last field.
func (m *Model) ScrollDown(n int) {
	m.offset += n
	if max := len(m.lines) - 1; m.offset > max {
		m.offset = max
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// View renders the panel within height lines.
func (m Model) View(height int) string {
	if m.Row == nil {
		return ""
	}
	visible := height - 8
	if visible < 3 {
		visible = 3
	}
	end := m.offset + visible
	if end > len(m.lines) {
		end = len(m.lines)
	}
	body := strings.Join(m.lines[m.offset:end], "\n")

	title := theme.StyleHeader.Render(" ROW " + m.Table + " ")
	footer := fmt.Sprintf("j/k:scroll  esc:close  %d/%d", end, len(m.lines))
	content := lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", theme.StyleDimmed.Render(footer))
	return theme.Panel(m.width - 4).Render(content)
}
