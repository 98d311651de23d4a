package keys

import "github.com/charmbracelet/bubbles/key"

// Common key bindings used across TUI commands
type CommonKeys struct {
	Quit key.Binding
	Help key.Binding
}

func NewCommonKeys() CommonKeys {
	return CommonKeys{
		Quit: key.NewBinding(
			key.WithKeys("q", "Q", "ctrl+c"),
			key.WithHelp("q/ctrl+c", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
	}
}

// DashboardKeys drives the live monitor
type DashboardKeys struct {
	CommonKeys
	Toggle  key.Binding
	Refresh key.Binding
	Range   key.Binding
	Up      key.Binding
	Down    key.Binding
}

func NewDashboardKeys() DashboardKeys {
	return DashboardKeys{
		CommonKeys: NewCommonKeys(),
		Toggle: key.NewBinding(
			key.WithKeys("s", " "),
			key.WithHelp("s/space", "start/stop"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh now"),
		),
		Range: key.NewBinding(
			key.WithKeys("tab", "t"),
			key.WithHelp("tab", "24h / 30d"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
	}
}

func (k DashboardKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Refresh, k.Range, k.Help, k.Quit}
}

func (k DashboardKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Refresh, k.Range},
		{k.Up, k.Down},
		{k.Help, k.Quit},
	}
}
