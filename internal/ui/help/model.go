package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/pmsterm/internal/keys"
	"github.com/nhle/pmsterm/internal/theme"
)

// Model is the help overlay view.
type Model struct {
	commands []string
	keys     *keys.KeyMap
	help     help.Model
	width    int
	height   int
}

// New creates a new help view model. commands lists the command palette
// entries shown below the key bindings.
func New(keys *keys.KeyMap, commands []string, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		commands: commands,
		keys:     keys,
		help:     h,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay.
func (m Model) View() string {
	title := theme.TitleStyle.Render("Keyboard Shortcuts")

	m.help.Width = m.width - 4
	m.help.ShowAll = true
	helpText := m.help.View(m.keys)

	content := lipgloss.JoinVertical(lipgloss.Left, title, helpText, "", m.commandHelp())

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(content)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}

func (m Model) commandHelp() string {
	if len(m.commands) == 0 {
		return ""
	}
	return theme.HelpStyle.Render("Commands (:) " + strings.Join(m.commands, ", "))
}
