package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Left  key.Binding
	Right key.Binding
	Down  key.Binding
	Up    key.Binding

	// Open the focused card
	Select key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Card actions
	Add    key.Binding
	Edit   key.Binding
	Delete key.Binding

	// Grab toggles carrying the focused card; dropping it on another
	// column moves it there.
	Grab key.Binding

	// Goals editor
	Goals key.Binding

	// Command palette
	Command key.Binding

	// Help toggle
	Help key.Binding

	// Manual reload from the store
	Reload key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Left: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h/←", "prev column"),
		),
		Right: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l/→", "next column"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open card"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Add: key.NewBinding(
			key.WithKeys("a", "n"),
			key.WithHelp("a", "add task"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit task"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete task"),
		),
		Grab: key.NewBinding(
			key.WithKeys(" ", "m"),
			key.WithHelp("space", "grab/drop"),
		),
		Goals: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "goals"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Left, k.Right, k.Up, k.Down,
		k.Add, k.Grab, k.Quit, k.Help,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Left, k.Right, k.Up, k.Down, k.Select},
		{k.Add, k.Edit, k.Delete, k.Grab},
		{k.Goals, k.Reload, k.Command, k.Help},
		{k.Back, k.Quit},
	}
}
