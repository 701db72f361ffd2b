// Package reports builds per-user task reports: pick an employee, narrow
// their tasks with the filter chain and read them grouped by board.
package reports

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/pmsterm/internal/filter"
	"github.com/nhle/pmsterm/internal/keys"
	"github.com/nhle/pmsterm/internal/model"
	"github.com/nhle/pmsterm/internal/theme"
	"github.com/nhle/pmsterm/internal/ui"
	"github.com/nhle/pmsterm/internal/ui/actions"
	"github.com/nhle/pmsterm/internal/ui/forms"
)

// UsersLoadedMsg carries the employee directory.
type UsersLoadedMsg struct {
	Gen   int64
	Users []model.User
	Err   error
}

// TasksLoadedMsg carries the tasks of the selected employee.
type TasksLoadedMsg struct {
	Gen    int64
	UserID string
	Tasks  []model.Task
	Err    error
}

type filtersAppliedMsg struct{}

// Model is the reports view.
type Model struct {
	svc     *ui.Services
	keys    *keys.KeyMap
	loader  *ui.Loader
	users   []model.User
	cursor  int
	user    *model.User
	tasks   []model.Task
	groups  []filter.BoardGroup
	filters *forms.ReportBindings
	form    forms.Model
	loading bool
	err     error
	width   int
	height  int
}

// New creates the reports view.
func New(svc *ui.Services, k *keys.KeyMap, width, height int) Model {
	return Model{
		svc:     svc,
		keys:    k,
		loader:  ui.NewLoader(),
		filters: &forms.ReportBindings{},
		width:   width,
		height:  height,
	}
}

// Init loads the employee directory.
func (m *Model) Init() tea.Cmd {
	if m.user != nil {
		return m.loadTasks(*m.user)
	}
	return m.loadUsers()
}

func (m *Model) loadUsers() tea.Cmd {
	ctx, gen := m.loader.Begin()
	m.loading = true
	svc := m.svc
	return func() tea.Msg {
		users, err := svc.Client.ListUsers(ctx)
		if err != nil {
			return UsersLoadedMsg{Gen: gen, Err: err}
		}
		if err := svc.Store.ReplaceUsers(ctx, users); err != nil {
			svc.Log.Warn().Err(err).Msg("caching users")
		}
		return UsersLoadedMsg{Gen: gen, Users: users}
	}
}

func (m *Model) loadTasks(u model.User) tea.Cmd {
	ctx, gen := m.loader.Begin()
	m.loading = true
	client := m.svc.Client
	return func() tea.Msg {
		tasks, err := client.ListUserTasks(ctx, u.ID)
		return TasksLoadedMsg{Gen: gen, UserID: u.ID, Tasks: tasks, Err: err}
	}
}

// Leave cancels in-flight loads.
func (m *Model) Leave() {
	m.loader.Cancel()
	m.loading = false
}

// Capturing reports whether the filter form is consuming keys.
func (m Model) Capturing() bool {
	return m.form.Active()
}

// Update handles messages for the reports view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case UsersLoadedMsg:
		if !m.loader.Current(msg.Gen) {
			return m, nil
		}
		m.loading = false
		m.err = msg.Err
		if msg.Err != nil {
			return m, ui.CheckAuth(msg.Err)
		}
		m.users = msg.Users
		sort.SliceStable(m.users, func(i, j int) bool {
			return strings.ToLower(m.users[i].Username) < strings.ToLower(m.users[j].Username)
		})
		if m.cursor >= len(m.users) {
			m.cursor = max(len(m.users)-1, 0)
		}
		return m, nil

	case TasksLoadedMsg:
		if !m.loader.Current(msg.Gen) {
			return m, nil
		}
		m.loading = false
		m.err = msg.Err
		if msg.Err != nil {
			return m, ui.CheckAuth(msg.Err)
		}
		m.tasks = msg.Tasks
		m.err = m.applyFilters()
		return m, nil

	case filtersAppliedMsg:
		m.err = m.applyFilters()
		return m, nil

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
		if m.user == nil {
			return m.handlePickerKey(msg)
		}
		return m.handleReportKey(msg)
	}
	return m, nil
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Down):
		if len(m.users) > 0 {
			m.cursor = (m.cursor + 1) % len(m.users)
		}
	case key.Matches(msg, m.keys.Up):
		if len(m.users) > 0 {
			m.cursor = (m.cursor + len(m.users) - 1) % len(m.users)
		}
	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadUsers()
	case key.Matches(msg, m.keys.Select):
		if len(m.users) == 0 {
			return m, nil
		}
		u := m.users[m.cursor]
		m.user = &u
		m.tasks = nil
		m.groups = nil
		return m, m.loadTasks(u)
	}
	return m, nil
}

func (m Model) handleReportKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.Leave()
		m.user = nil
		m.err = nil
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadTasks(*m.user)
	case key.Matches(msg, m.keys.Filter):
		return m, m.openFilters()
	}
	return m, nil
}

func (m Model) openFilters() tea.Cmd {
	b := m.filters
	f := forms.New("Report Filters", forms.NewReportForm(b, boardTitles(m.tasks)), func() tea.Cmd {
		return func() tea.Msg { return filtersAppliedMsg{} }
	})
	return func() tea.Msg { return actions.FormMsg{Form: f} }
}

// applyFilters runs the filter chain over the loaded tasks and regroups
// them by board.
func (m *Model) applyFilters() error {
	chain, err := m.filters.Chain(m.svc.Today())
	if err != nil {
		return ui.Local(err)
	}
	m.groups = filter.GroupByBoard(chain.Apply(m.tasks))
	return nil
}

func boardTitles(tasks []model.Task) []string {
	seen := make(map[string]bool)
	var titles []string
	for _, t := range tasks {
		if t.Board.Title == "" || seen[t.Board.Title] {
			continue
		}
		seen[t.Board.Title] = true
		titles = append(titles, t.Board.Title)
	}
	sort.Strings(titles)
	return titles
}

// View renders the reports view.
func (m Model) View() string {
	if m.form.Active() {
		return m.form.View()
	}

	var b strings.Builder
	if m.user == nil {
		b.WriteString(theme.TitleStyle.Render("Reports"))
		b.WriteString(theme.DimmedStyle.Render("  pick an employee"))
	} else {
		b.WriteString(theme.TitleStyle.Render("Report: " + m.user.Username))
		b.WriteString(theme.DimmedStyle.Render("  " + m.filters.Summary()))
	}
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(theme.ErrorStyle.Render(ui.ErrorText(m.err)))
		b.WriteString("\n")
	}

	if m.user == nil {
		b.WriteString(m.viewPicker())
		b.WriteString("\n")
		b.WriteString(theme.HelpStyle.Render("j/k move | enter load report | r refresh"))
	} else {
		b.WriteString(m.viewReport())
		b.WriteString("\n")
		b.WriteString(theme.HelpStyle.Render("f filters | r refresh | esc employees"))
	}
	return lipgloss.NewStyle().Padding(0, 1).Render(b.String())
}

func (m Model) viewPicker() string {
	switch {
	case m.loading && len(m.users) == 0:
		return ui.Placeholder(m.width, m.height-6, "Loading employees...")
	case len(m.users) == 0:
		return ui.Placeholder(m.width, m.height-6, "No employees.")
	}

	lines := make([]string, 0, len(m.users))
	for i, u := range m.users {
		line := fmt.Sprintf("%-24s %-32s %s", u.Username, u.Email, model.DepartmentName(u.Department))
		if i == m.cursor {
			lines = append(lines, theme.SelectedItemStyle.Render(line))
		} else {
			lines = append(lines, theme.ListItemStyle.Render(line))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) viewReport() string {
	switch {
	case m.loading:
		return ui.Placeholder(m.width, m.height-6, "Loading tasks...")
	case len(m.groups) == 0 && m.err == nil:
		return ui.Placeholder(m.width, m.height-6, "No tasks match.")
	}

	now := m.svc.Today()
	var b strings.Builder
	for _, g := range m.groups {
		b.WriteString(theme.TitleStyle.Render(fmt.Sprintf("%s (%d)", g.Label(), len(g.Tasks))))
		b.WriteString("\n")
		b.WriteString(RenderGroup(g, now, m.width-2))
		b.WriteString("\n")
	}
	return b.String()
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.form.SetSize(width, height)
}
