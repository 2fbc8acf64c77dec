package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type keyMap struct {
	Quit              key.Binding
	Search            key.Binding
	FilterSeverity    key.Binding
	Sort              key.Binding
	ToggleIntentional key.Binding
	Copy              key.Binding
	ClearFilter       key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	FilterSeverity: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "severity"),
	),
	Sort: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "sort"),
	),
	ToggleIntentional: key.NewBinding(
		key.WithKeys("i"),
		key.WithHelp("i", "intentional"),
	),
	Copy: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "copy"),
	),
	ClearFilter: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "clear"),
	),
}

// action binds a key to a browser command. Actions are tried in order
// and the first match wins.
type action struct {
	binding key.Binding
	run     func(*Model) tea.Cmd
}

var browseActions = []action{
	{keys.Quit, func(*Model) tea.Cmd { return tea.Quit }},
	{keys.Search, (*Model).startSearch},
	{keys.FilterSeverity, (*Model).cycleSeverity},
	{keys.Sort, (*Model).cycleSort},
	{keys.ToggleIntentional, (*Model).toggleIntentional},
	{keys.Copy, (*Model).copySelected},
	{keys.ClearFilter, (*Model).clearFilters},
}
