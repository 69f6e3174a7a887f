package filters

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tgate/dataviewer/internal/theme"
)

var syntax = [][2]string{
	{`apple banana`, "rows containing both words"},
	{`"green apple"`, "rows containing the exact phrase"},
	{`apple -pie`, "apple, but not pie"},
	{`apple OR pear`, "either word"},
	{`apple AND pear`, "same as apple pear"},
}

// HelpView renders the search syntax reference.
func HelpView(width int) string {
	innerW := width - 4
	if innerW < 40 {
		innerW = 40
	}
	example := lipgloss.NewStyle().Foreground(theme.ColorAccent).Width(20)

	lines := make([]string, len(syntax))
	for i, s := range syntax {
		lines[i] = example.Render(s[0]) + s[1]
	}
	notes := theme.StyleDimmed.Render("Matching is case-insensitive. Per-field boxes use the same syntax\nagainst their own column only. Searching returns to page 1.")

	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.StyleHeader.Render(" SEARCH SYNTAX "), "",
		strings.Join(lines, "\n"), "",
		notes, "",
		theme.StyleDimmed.Render("esc:close"))
	return theme.Panel(innerW).Render(content)
}
