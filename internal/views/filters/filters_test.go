package filters

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/tgate/dataviewer/internal/client"
)

func typeText(m *Model, s string) {
	for _, r := range s {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestApplyGlobalSearchResetsPage(t *testing.T) {
	m := New()
	f := client.DefaultFilters()
	f.Page = 4
	m.Open(client.TableObjects, f, false)
	typeText(&m, "  durov ")

	got := m.Apply(f)
	assert.Equal(t, "durov", got.Search)
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, f.PageSize, got.PageSize)
}

func TestOpenLoadsCurrentValues(t *testing.T) {
	m := New()
	f := client.DefaultFilters()
	f.Search = "go"
	f.Hashtags = "#golang"
	m.Open(client.TableMessages, f, true)

	assert.True(t, m.Extended)
	assert.Equal(t, "search", m.Focused())
	got := m.Apply(f)
	assert.Equal(t, "go", got.Search)
	assert.Equal(t, "#golang", got.Hashtags)
}

func TestExtendedFieldCycle(t *testing.T) {
	m := New()
	m.Open(client.TableMessages, client.DefaultFilters(), true)

	m.Next()
	assert.Equal(t, "search_questions", m.Focused())
	typeText(&m, "why")
	m.Prev()
	m.Prev()
	assert.Equal(t, "search_emojis", m.Focused())

	got := m.Apply(client.DefaultFilters())
	assert.Equal(t, "why", got.Questions)
}

func TestNonExtendedTableClearsFieldSearches(t *testing.T) {
	m := New()
	f := client.DefaultFilters()
	f.Emails = "a@b.c"
	m.Open(client.TableObjects, f, true)

	assert.False(t, m.Extended)
	m.Next()
	assert.Equal(t, "search", m.Focused(), "only the global box is reachable")
	assert.Empty(t, m.Apply(f).Emails)
}

func TestClear(t *testing.T) {
	m := New()
	f := client.DefaultFilters()
	f.Search = "x"
	m.Open(client.TableMessages, f, true)
	m.Clear()
	assert.Empty(t, m.Apply(f).Search)
}

func TestViews(t *testing.T) {
	m := New()
	m.Open(client.TableMessages, client.DefaultFilters(), true)
	out := m.View(100)
	assert.Contains(t, out, "Telegram links")
	assert.Contains(t, out, "tab/shift+tab")

	assert.Contains(t, HelpView(100), `"green apple"`)
}
