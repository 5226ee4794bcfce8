package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	next       key.Binding
	submit     key.Binding
	back       key.Binding
	disconnect key.Binding
	retry      key.Binding
	quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		next:       key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "connect")),
		back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		disconnect: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "disconnect")),
		retry:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.next, k.submit},
		{k.back, k.disconnect},
		{k.retry, k.quit},
	}
}
