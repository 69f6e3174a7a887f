// Package filters is the search overlay: a global search box plus, for
// telegram_message, one box per extracted-entity column.
package filters

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tgate/dataviewer/internal/client"
	"github.com/tgate/dataviewer/internal/theme"
)

const (
	paramSearch = "search"
	labelWidth  = 16
	inputWidth  = 40
)

var fieldLabels = map[string]string{
	paramSearch:            "Search",
	"search_questions":     "Questions",
	"search_emails":        "Emails",
	"search_tg_links":      "Telegram links",
	"search_www_links":     "Web links",
	"search_mentions":      "Mentions",
	"search_hashtags":      "Hashtags",
	"search_phones":        "Phones",
	"search_intense_words": "Intense words",
	"search_exclamations":  "Exclamations",
	"search_emojis":        "Emoji",
}

// Extended reports whether table supports the per-field searches.
func Extended(table string) bool {
	return table == client.TableMessages
}

// Model holds the search inputs. Only the first input is used unless the
// overlay was opened in extended mode.
type Model struct {
	Table    string
	Extended bool

	params []string
	inputs []textinput.Model
	focus  int
}

// New creates the overlay with one input per search parameter.
func New() Model {
	params := append([]string{paramSearch}, client.SearchFields...)
	inputs := make([]textinput.Model, len(params))
	for i, p := range params {
		ti := textinput.New()
		ti.Prompt = ""
		ti.CharLimit = 256
		ti.Width = inputWidth
		if p == paramSearch {
			ti.Placeholder = `words, "phrase", -exclude, a OR b`
		}
		inputs[i] = ti
	}
	return Model{params: params, inputs: inputs}
}

// Open loads f into the inputs and focuses the global search box. extended
// is ignored for tables without per-field search.
func (m *Model) Open(table string, f client.Filters, extended bool) tea.Cmd {
	m.Table = table
	m.Extended = extended && Extended(table)
	for i, p := range m.params {
		m.inputs[i].SetValue(valueOf(&f, p))
		m.inputs[i].Blur()
	}
	m.focus = 0
	return m.inputs[0].Focus()
}

func valueOf(f *client.Filters, param string) string {
	if param == paramSearch {
		return f.Search
	}
	if v := f.Field(param); v != nil {
		return *v
	}
	return ""
}

func (m Model) count() int {
	if m.Extended {
		return len(m.inputs)
	}
	return 1
}

// Next focuses the next input.
func (m *Model) Next() tea.Cmd {
	return m.setFocus((m.focus + 1) % m.count())
}

// Prev focuses the previous input.
func (m *Model) Prev() tea.Cmd {
	n := m.count()
	return m.setFocus((m.focus - 1 + n) % n)
}

func (m *Model) setFocus(i int) tea.Cmd {
	m.inputs[m.focus].Blur()
	m.focus = i
	return m.inputs[i].Focus()
}

// Focused returns the parameter of the focused input.
func (m Model) Focused() string {
	return m.params[m.focus]
}

// Update forwards a message to the focused input.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return cmd
}

// Apply copies every input into f and returns to the first page. Per-field
// searches are cleared on tables that do not support them.
func (m Model) Apply(f client.Filters) client.Filters {
	f.Search = strings.TrimSpace(m.inputs[0].Value())
	for i, p := range m.params[1:] {
		v := ""
		if Extended(m.Table) {
			v = strings.TrimSpace(m.inputs[i+1].Value())
		}
		*f.Field(p) = v
	}
	f.Page = 1
	return f
}

// Clear empties every input.
func (m *Model) Clear() {
	for i := range m.inputs {
		m.inputs[i].Reset()
	}
}

// View renders the overlay.
func (m Model) View(width int) string {
	innerW := width - 4
	if innerW < 40 {
		innerW = 40
	}
	title := theme.StyleHeader.Render(" SEARCH " + m.Table + " ")
	label := lipgloss.NewStyle().Foreground(theme.ColorDimmed).Width(labelWidth)
	active := lipgloss.NewStyle().Foreground(theme.ColorBright).Bold(true).Width(labelWidth)

	lines := make([]string, 0, m.count())
	for i := 0; i < m.count(); i++ {
		style := label
		if i == m.focus {
			style = active
		}
		lines = append(lines, style.Render(fieldLabels[m.params[i]])+m.inputs[i].View())
	}

	help := "enter:apply  ctrl+u:clear all  esc:cancel"
	if m.Extended {
		help = "tab/shift+tab:field  " + help
	}
	content := lipgloss.JoinVertical(lipgloss.Left, title, "", strings.Join(lines, "\n"), "", theme.StyleDimmed.Render(help))
	return theme.Panel(innerW).Render(content)
}
