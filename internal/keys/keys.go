package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down  key.Binding
	Up    key.Binding
	Left  key.Binding
	Right key.Binding

	// Selection
	Select key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Search
	Search key.Binding

	// Command palette
	Command key.Binding

	// Help toggle
	Help key.Binding

	// Manual refresh
	Refresh key.Binding

	// Tabs and months
	NextTab key.Binding
	PrevTab key.Binding

	// View switching
	Boards  key.Binding
	MyTasks key.Binding
	Daily   key.Binding
	Goals   key.Binding
	Reports key.Binding
	Users   key.Binding
	Profile key.Binding

	// Actions
	New      key.Binding
	Edit     key.Binding
	Delete   key.Binding
	NewTask  key.Binding
	Status   key.Binding
	Reopen   key.Binding
	Progress key.Binding
	Today    key.Binding
	Complete key.Binding
	Chat     key.Binding
	Filter   key.Binding
	Password key.Binding
	Logout   key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Left: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h/←", "previous board"),
		),
		Right: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l/→", "next board"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open detail"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("tab", "]"),
			key.WithHelp("tab/]", "next tab"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("shift+tab", "["),
			key.WithHelp("shift+tab/[", "previous tab"),
		),
		Boards: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "boards"),
		),
		MyTasks: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "my tasks"),
		),
		Daily: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "all tasks"),
		),
		Goals: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "goals"),
		),
		Reports: key.NewBinding(
			key.WithKeys("5"),
			key.WithHelp("5", "reports"),
		),
		Users: key.NewBinding(
			key.WithKeys("6"),
			key.WithHelp("6", "users"),
		),
		Profile: key.NewBinding(
			key.WithKeys("7"),
			key.WithHelp("7", "profile"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Delete: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "delete task"),
		),
		NewTask: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add task"),
		),
		Status: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "change status"),
		),
		Reopen: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "reopen"),
		),
		Progress: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "update progress"),
		),
		Today: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "mark today"),
		),
		Complete: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "mark complete"),
		),
		Chat: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "write message"),
		),
		Filter: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "filters"),
		),
		Password: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "change password"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "log out"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Select, k.Back,
		k.Quit, k.Help, k.Search,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right, k.Select, k.Back, k.Quit},
		{k.Search, k.Command, k.Help, k.Refresh, k.NextTab, k.PrevTab},
		{k.Boards, k.MyTasks, k.Daily, k.Goals, k.Reports, k.Users, k.Profile},
		{k.New, k.Edit, k.Delete, k.NewTask, k.Status, k.Reopen, k.Progress},
		{k.Today, k.Complete, k.Chat, k.Filter, k.Password, k.Logout},
	}
}
