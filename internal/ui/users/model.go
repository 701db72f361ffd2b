// Package users is the employee directory: a searchable table of accounts
// and the form that registers new ones.
package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nhle/pmsterm/internal/filter"
	"github.com/nhle/pmsterm/internal/keys"
	"github.com/nhle/pmsterm/internal/model"
	"github.com/nhle/pmsterm/internal/theme"
	"github.com/nhle/pmsterm/internal/ui"
	"github.com/nhle/pmsterm/internal/ui/actions"
	"github.com/nhle/pmsterm/internal/ui/forms"
)

// LoadedMsg carries the directory.
type LoadedMsg struct {
	Gen   int64
	Users []model.User
	Err   error
}

type registeredMsg struct {
	user *model.User
	err  error
}

// Model is the users view.
type Model struct {
	svc         *ui.Services
	keys        *keys.KeyMap
	loader      *ui.Loader
	users       []model.User
	visible     []model.User
	cursor      int
	query       string
	searchMode  bool
	searchInput textinput.Model
	form        forms.Model
	loading     bool
	banner      string
	err         error
	width       int
	height      int
}

// New creates the users view.
func New(svc *ui.Services, k *keys.KeyMap, width, height int) Model {
	si := textinput.New()
	si.Placeholder = "username or email..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		svc:         svc,
		keys:        k,
		loader:      ui.NewLoader(),
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// Init loads the directory.
func (m *Model) Init() tea.Cmd {
	return m.Load()
}

// Load fetches every user and refreshes the cached directory.
func (m *Model) Load() tea.Cmd {
	ctx, gen := m.loader.Begin()
	m.loading = true
	svc := m.svc
	return func() tea.Msg {
		users, err := svc.Client.ListUsers(ctx)
		if err != nil {
			return LoadedMsg{Gen: gen, Err: err}
		}
		if err := svc.Store.ReplaceUsers(ctx, users); err != nil {
			svc.Log.Warn().Err(err).Msg("caching users")
		}
		return LoadedMsg{Gen: gen, Users: users}
	}
}

// Leave cancels in-flight loads.
func (m *Model) Leave() {
	m.loader.Cancel()
	m.loading = false
}

// Capturing reports whether search or the register form holds the keys.
func (m Model) Capturing() bool {
	return m.searchMode || m.form.Active()
}

// Update handles messages for the users view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		if !m.loader.Current(msg.Gen) {
			return m, nil
		}
		m.loading = false
		m.err = msg.Err
		if msg.Err != nil {
			return m, ui.CheckAuth(msg.Err)
		}
		m.users = msg.Users
		m.applyFilter()
		return m, nil

	case registeredMsg:
		if msg.err != nil {
			m.banner = ui.ErrorText(msg.err)
			return m, ui.CheckAuth(msg.err)
		}
		m.banner = fmt.Sprintf("Registered %s", msg.user.Username)
		return m, m.Load()

	case actions.FormMsg:
		m.form = msg.Form
		m.form.SetSize(m.width, m.height)
		return m, m.form.Init()

	case forms.CancelMsg:
		return m, nil
	}

	if m.form.Active() {
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.query = m.searchInput.Value()
		m.applyFilter()
		return m, nil
	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.query = ""
		m.applyFilter()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.query = m.searchInput.Value()
	m.applyFilter()
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Down):
		if len(m.visible) > 0 {
			m.cursor = (m.cursor + 1) % len(m.visible)
		}
	case key.Matches(msg, m.keys.Up):
		if len(m.visible) > 0 {
			m.cursor = (m.cursor + len(m.visible) - 1) % len(m.visible)
		}
	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.SetValue(m.query)
		return m, m.searchInput.Focus()
	case key.Matches(msg, m.keys.Refresh):
		return m, m.Load()
	case key.Matches(msg, m.keys.New):
		m.banner = ""
		if !m.svc.User.IsManager() {
			m.banner = "Only managers can register users"
			return m, nil
		}
		return m, m.openRegister()
	}
	return m, nil
}

func (m Model) openRegister() tea.Cmd {
	client := m.svc.Client
	b := forms.NewRegisterBindings()
	f := forms.New("Register User", forms.NewRegisterForm(b), func() tea.Cmd {
		in, err := b.Input()
		if err != nil {
			return func() tea.Msg { return registeredMsg{err: ui.Local(err)} }
		}
		return func() tea.Msg {
			u, err := client.RegisterUser(context.Background(), in)
			return registeredMsg{user: u, err: err}
		}
	})
	return func() tea.Msg { return actions.FormMsg{Form: f} }
}

func (m *Model) applyFilter() {
	m.visible = filter.New(filter.UserQuery(m.query)).Apply(m.users)
	if m.cursor >= len(m.visible) {
		m.cursor = max(len(m.visible)-1, 0)
	}
}

// View renders the users view.
func (m Model) View() string {
	if m.form.Active() {
		return m.form.View()
	}

	var b strings.Builder
	b.WriteString(theme.TitleStyle.Render(fmt.Sprintf("Users (%d)", len(m.visible))))
	b.WriteString("\n")

	switch {
	case m.searchMode:
		b.WriteString(m.searchInput.View())
		b.WriteString("\n")
	case m.err != nil:
		b.WriteString(theme.ErrorStyle.Render(ui.ErrorText(m.err)))
		b.WriteString("\n")
	case m.banner != "":
		b.WriteString(theme.NoticeStyle.Render(m.banner))
		b.WriteString("\n")
	}

	switch {
	case m.loading && len(m.users) == 0:
		b.WriteString(ui.Placeholder(m.width, m.height-6, "Loading users..."))
	case len(m.visible) == 0 && m.query != "":
		b.WriteString(ui.Placeholder(m.width, m.height-6, "No matching users."))
	case len(m.visible) > 0:
		b.WriteString(m.renderTable())
	}

	b.WriteString("\n")
	hints := "/ search | r refresh"
	if m.svc.User.IsManager() {
		hints += " | n register"
	}
	b.WriteString(theme.HelpStyle.Render(hints))
	return lipgloss.NewStyle().Padding(0, 1).Render(b.String())
}

func (m Model) renderTable() string {
	rows := make([][]string, 0, len(m.visible))
	for _, u := range m.visible {
		active := "yes"
		if !u.Active {
			active = "no"
		}
		rows = append(rows, []string{
			u.Username,
			u.Email,
			u.Role.String(),
			model.DepartmentName(u.Department),
			active,
		})
	}

	cursor := m.cursor
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers("Username", "Email", "Role", "Department", "Active").
		Rows(rows...).
		Width(m.width - 2).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch row {
			case table.HeaderRow:
				return theme.TableHeaderStyle
			case cursor:
				return theme.TableCellStyle.Bold(true).Foreground(theme.ColorWhite).Background(theme.ColorSubtle)
			}
			return theme.TableCellStyle
		}).
		String()
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.searchInput.Width = width - 4
	m.form.SetSize(width, height)
}
