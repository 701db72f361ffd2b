// Package tasklist is the "my tasks" view: the current user's tasks split
// into status tabs.
package tasklist

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
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

// TasksLoadedMsg carries one status tab's tasks from the server.
type TasksLoadedMsg struct {
	Gen    int64
	Status string
	Tasks  []model.Task
	Err    error
}

var tabLabels = []string{"Pending", "In Progress", "Completed"}

// Model is the task list view component.
type Model struct {
	svc         *ui.Services
	keys        *keys.KeyMap
	list        list.Model
	loader      *ui.Loader
	tab         int
	tasks       []model.Task
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

// New creates a new task list model.
func New(svc *ui.Services, k *keys.KeyMap, width, height int) Model {
	delegate := ItemDelegate{Now: svc.Today}
	l := list.New([]list.Item{}, delegate, width, height-3)
	l.Title = "My Tasks"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search title, description, board..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		svc:         svc,
		keys:        k,
		list:        l,
		loader:      ui.NewLoader(),
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// Init loads the first tab.
func (m *Model) Init() tea.Cmd {
	return m.Load()
}

// Status returns the status shown by the active tab.
func (m Model) Status() string {
	return model.Statuses[m.tab]
}

// Load fetches the active tab's tasks, cancelling any earlier fetch.
func (m *Model) Load() tea.Cmd {
	ctx, gen := m.loader.Begin()
	m.loading = true
	status := m.Status()
	client := m.svc.Client
	return func() tea.Msg {
		tasks, err := client.ListTasksByStatus(ctx, status)
		return TasksLoadedMsg{Gen: gen, Status: status, Tasks: tasks, Err: err}
	}
}

// Leave cancels in-flight loads when the view is hidden.
func (m *Model) Leave() {
	m.loader.Cancel()
	m.loading = false
}

// Capturing reports whether the view is consuming keys itself, so the
// root model should not interpret global shortcuts.
func (m Model) Capturing() bool {
	return m.searchMode || m.form.Active()
}

// Update handles messages for the task list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
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
		return m, m.applyFilter()

	case actions.FormMsg:
		m.form = msg.Form
		m.form.SetSize(m.width, m.height)
		return m, m.form.Init()

	case actions.ResultMsg:
		banner, cmd := actions.Handle(msg)
		m.banner = banner
		return m, cmd

	case forms.CancelMsg:
		return m, nil

	case ui.TaskUpdatedMsg, ui.TaskDeletedMsg:
		return m, m.Load()
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
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode. Search runs
// on the loaded tab locally.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.query = m.searchInput.Value()
		return m, m.applyFilter()

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.query = ""
		return m, m.applyFilter()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.NextTab):
		m.tab = (m.tab + 1) % len(model.Statuses)
		return m, m.Load()

	case key.Matches(msg, m.keys.PrevTab):
		m.tab = (m.tab + len(model.Statuses) - 1) % len(model.Statuses)
		return m, m.Load()

	case key.Matches(msg, m.keys.Refresh):
		return m, m.Load()

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.SetValue(m.query)
		return m, m.searchInput.Focus()
	}

	t, ok := m.selected()
	if !ok {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	m.banner = ""
	switch {
	case key.Matches(msg, m.keys.Select):
		id := t.ID
		return m, func() tea.Msg { return ui.OpenTaskMsg{TaskID: id} }
	case key.Matches(msg, m.keys.Status):
		return m, actions.ChangeStatus(m.svc, t)
	case key.Matches(msg, m.keys.Reopen):
		return m, actions.Reopen(m.svc, t)
	case key.Matches(msg, m.keys.Progress):
		return m, actions.UpdateProgress(m.svc, t)
	case key.Matches(msg, m.keys.Edit):
		return m, actions.Edit(m.svc, t)
	case key.Matches(msg, m.keys.Delete):
		return m, actions.Delete(m.svc, t)
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) selected() (model.Task, bool) {
	item, ok := m.list.SelectedItem().(TaskItem)
	if !ok {
		return model.Task{}, false
	}
	return item.Task, true
}

// applyFilter narrows the loaded tasks by the search query.
func (m *Model) applyFilter() tea.Cmd {
	tasks := filter.New(filter.TaskQuery(m.query)).Apply(m.tasks)
	items := make([]list.Item, len(tasks))
	for i, t := range tasks {
		items[i] = TaskItem{Task: t}
	}
	return m.list.SetItems(items)
}

// View renders the task list view.
func (m Model) View() string {
	if m.form.Active() {
		return m.form.View()
	}

	parts := []string{ui.RenderTabs(tabLabels, m.tab)}

	switch {
	case m.searchMode:
		parts = append(parts, lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View()))
	case m.err != nil:
		parts = append(parts, theme.ErrorStyle.Render(" "+ui.ErrorText(m.err)))
	case m.banner != "":
		parts = append(parts, theme.NoticeStyle.Render(" "+m.banner))
	default:
		parts = append(parts, "")
	}

	body := m.list.View()
	switch {
	case m.loading && len(m.tasks) == 0:
		body = ui.Placeholder(m.width, m.height-3, "Loading tasks...")
	case len(m.list.Items()) == 0 && m.query != "":
		body = ui.Placeholder(m.width, m.height-3, "No matching tasks.", "Press / to change the search.")
	case len(m.list.Items()) == 0 && m.err == nil:
		body = ui.Placeholder(m.width, m.height-3, "No "+tabLabels[m.tab]+" tasks.")
	}

	return lipgloss.JoinVertical(lipgloss.Left, append(parts, body)...)
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-3)
	m.searchInput.Width = width - 4
	m.form.SetSize(width, height)
}
