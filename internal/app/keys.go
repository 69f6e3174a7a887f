package app

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard bindings for the TUI.
type KeyMap struct {
	Up           key.Binding
	Down         key.Binding
	NextPage     key.Binding
	PrevPage     key.Binding
	SortLeft     key.Binding
	SortRight    key.Binding
	Sort         key.Binding
	PageSizeUp   key.Binding
	PageSizeDown key.Binding
	Tab          key.Binding
	Table1       key.Binding
	Table2       key.Binding
	Search       key.Binding
	Fields       key.Binding
	Columns      key.Binding
	Enter        key.Binding
	Reconnect    key.Binding
	Retry        key.Binding
	Debug        key.Binding
	Help         key.Binding
	Escape       key.Binding
	Quit         key.Binding

	// Overlay bindings.
	NextField key.Binding
	PrevField key.Binding
	ClearAll  key.Binding
	Toggle    key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "prev row"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "next row"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("n", "right", "pgdown"),
			key.WithHelp("n", "next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("p", "left", "pgup"),
			key.WithHelp("p", "prev page"),
		),
		SortLeft: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "sort column left"),
		),
		SortRight: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "sort column right"),
		),
		Sort: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "sort / flip order"),
		),
		PageSizeUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "more rows"),
		),
		PageSizeDown: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "fewer rows"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next table"),
		),
		Table1: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "messages"),
		),
		Table2: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "channels"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Fields: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "field search"),
		),
		Columns: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "columns"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "row detail"),
		),
		Reconnect: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reconnect"),
		),
		Retry: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "refetch"),
		),
		Debug: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "event log"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "search syntax"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close overlay"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev field"),
		),
		ClearAll: key.NewBinding(
			key.WithKeys("ctrl+u"),
			key.WithHelp("ctrl+u", "clear all"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "x"),
			key.WithHelp("space", "toggle"),
		),
	}
}
