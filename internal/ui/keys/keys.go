// Package keys defines the key bindings shared by every view.
package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the application key bindings
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Enter    key.Binding
	Back     key.Binding
	Tab      key.Binding
	ShiftTab key.Binding
	Submit   key.Binding
	Quit     key.Binding
	Help     key.Binding

	New         key.Binding
	Edit        key.Binding
	EditProject key.Binding
	Reload      key.Binding

	StatusNext key.Binding
	StatusPrev key.Binding

	Organizations key.Binding
	SwitchOrg     key.Binding
	Invite        key.Binding
	Logout        key.Binding

	CopyCode key.Binding
	CopyLink key.Binding
	Another  key.Binding
}

// DefaultKeyMap returns the default bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("↵", "select")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		ShiftTab: key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous field")),
		Submit:   key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),

		New:         key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		Edit:        key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		EditProject: key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "edit project")),
		Reload:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),

		StatusNext: key.NewBinding(key.WithKeys(" ", "s"), key.WithHelp("space", "next status")),
		StatusPrev: key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "previous status")),

		Organizations: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "organizations")),
		SwitchOrg:     key.NewBinding(key.WithKeys("O"), key.WithHelp("O", "switch org")),
		Invite:        key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "invite")),
		Logout:        key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "log out")),

		CopyCode: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy code")),
		CopyLink: key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "copy link")),
		Another:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "invite another")),
	}
}
