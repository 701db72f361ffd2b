// Package daily is the "all tasks" view used for day planning: tasks and
// their subtasks in one list, with today's markers and the binary
// completion flags.
package daily

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/pmsterm/internal/filter"
	"github.com/nhle/pmsterm/internal/keys"
	"github.com/nhle/pmsterm/internal/model"
	"github.com/nhle/pmsterm/internal/theme"
	"github.com/nhle/pmsterm/internal/ui"
	"github.com/nhle/pmsterm/internal/ui/actions"
	"github.com/nhle/pmsterm/internal/ui/tasklist"
	"github.com/nhle/pmsterm/internal/workflow"
)

// LoadedMsg carries the user's tasks.
type LoadedMsg struct {
	Gen   int64
	Tasks []model.Task
	Err   error
}

// row is one selectable line: a task, or one of its subtasks.
type row struct {
	task    int
	subtask int // -1 for the task line
}

// Model is the daily view.
type Model struct {
	svc       *ui.Services
	keys      *keys.KeyMap
	loader    *ui.Loader
	tasks     []model.Task
	rows      []row
	cursor    int
	todayOnly bool
	loading   bool
	banner    string
	err       error
	width     int
	height    int
}

// New creates the daily view.
func New(svc *ui.Services, k *keys.KeyMap, width, height int) Model {
	return Model{svc: svc, keys: k, loader: ui.NewLoader(), width: width, height: height}
}

// Init loads the tasks.
func (m *Model) Init() tea.Cmd {
	return m.Load()
}

// Load fetches every task assigned to the user.
func (m *Model) Load() tea.Cmd {
	ctx, gen := m.loader.Begin()
	m.loading = true
	client := m.svc.Client
	return func() tea.Msg {
		tasks, err := client.ListMyTasks(ctx)
		return LoadedMsg{Gen: gen, Tasks: tasks, Err: err}
	}
}

// Leave cancels in-flight loads.
func (m *Model) Leave() {
	m.loader.Cancel()
	m.loading = false
}

// Update handles messages for the daily view.
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
		m.tasks = msg.Tasks
		m.rebuild()
		return m, nil

	case actions.ResultMsg:
		banner, cmd := actions.Handle(msg)
		m.banner = banner
		return m, cmd

	case ui.TaskUpdatedMsg:
		if m.replace(msg.Task) {
			m.rebuild()
			return m, nil
		}
		return m, m.Load()

	case ui.TaskDeletedMsg:
		return m, m.Load()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// replace swaps in a task the server returned after a mutation.
func (m *Model) replace(t model.Task) bool {
	for i := range m.tasks {
		if m.tasks[i].ID == t.ID {
			m.tasks[i] = t
			return true
		}
	}
	return false
}

// rebuild recomputes the visible rows from the tasks and the today filter.
func (m *Model) rebuild() {
	chain := filter.New[model.Task]()
	if m.todayOnly {
		chain.Add(filter.TaskToday())
	}
	keep := make(map[string]bool)
	for _, t := range chain.Apply(m.tasks) {
		keep[t.ID] = true
	}

	m.rows = nil
	for i, t := range m.tasks {
		if !keep[t.ID] {
			continue
		}
		m.rows = append(m.rows, row{task: i, subtask: -1})
		for j, s := range t.Subtasks {
			if m.todayOnly && !t.IsToday && !s.IsToday {
				continue
			}
			m.rows = append(m.rows, row{task: i, subtask: j})
		}
	}
	if m.cursor >= len(m.rows) {
		m.cursor = max(len(m.rows)-1, 0)
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Down):
		if len(m.rows) > 0 {
			m.cursor = (m.cursor + 1) % len(m.rows)
		}
		return m, nil
	case key.Matches(msg, m.keys.Up):
		if len(m.rows) > 0 {
			m.cursor = (m.cursor + len(m.rows) - 1) % len(m.rows)
		}
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, m.Load()
	case key.Matches(msg, m.keys.Filter):
		m.todayOnly = !m.todayOnly
		m.rebuild()
		return m, nil
	}

	if len(m.rows) == 0 {
		return m, nil
	}
	r := m.rows[m.cursor]
	t := m.tasks[r.task]
	m.banner = ""

	switch {
	case key.Matches(msg, m.keys.Select):
		id := t.ID
		return m, func() tea.Msg { return ui.OpenTaskMsg{TaskID: id} }

	case key.Matches(msg, m.keys.Today):
		if r.subtask >= 0 {
			return m, m.markSubtaskToday(t, t.Subtasks[r.subtask])
		}
		return m, m.markTaskToday(t)

	case key.Matches(msg, m.keys.Complete):
		if r.subtask >= 0 {
			return m, m.completeSubtask(t, t.Subtasks[r.subtask])
		}
		return m, m.completeTask(t)
	}
	return m, nil
}

func (m Model) markTaskToday(t model.Task) tea.Cmd {
	client := m.svc.Client
	return func() tea.Msg {
		out, err := client.MarkTaskToday(context.Background(), t.ID)
		return actions.ResultMsg{Action: fmt.Sprintf("%q marked for today", t.Title), Task: out, Err: err}
	}
}

func (m Model) markSubtaskToday(t model.Task, s model.Subtask) tea.Cmd {
	client := m.svc.Client
	return func() tea.Msg {
		out, err := client.MarkSubtaskToday(context.Background(), t.ID, s.ID)
		return actions.ResultMsg{Action: fmt.Sprintf("%q marked for today", s.Title), Task: out, Err: err}
	}
}

func (m Model) completeSubtask(t model.Task, s model.Subtask) tea.Cmd {
	if s.Completed {
		return func() tea.Msg {
			return actions.ResultMsg{Action: fmt.Sprintf("%q is already complete", s.Title)}
		}
	}
	client, log := m.svc.Client, m.svc.Log
	return func() tea.Msg {
		out, err := client.MarkSubtaskComplete(context.Background(), t.ID, s.ID)
		if err == nil && out != nil {
			if err := workflow.MarkSubtaskComplete(out, s.ID); err != nil {
				log.Warn().Err(err).Msg("completed subtask missing from reply")
			}
		}
		return actions.ResultMsg{Action: fmt.Sprintf("%q completed", s.Title), Task: out, Err: err}
	}
}

// completeTask is offered only once every subtask is complete. The reply
// is settled locally so every subtask shows completed even when the server
// returns the subtasks as they were.
func (m Model) completeTask(t model.Task) tea.Cmd {
	if !workflow.CanMarkComplete(t) {
		n := workflow.OpenSubtasks(t)
		return func() tea.Msg {
			return actions.ResultMsg{Action: "complete", Err: ui.Local(fmt.Errorf("%d subtask(s) still open: %w", n, workflow.ErrIncompleteSubtasks))}
		}
	}
	client := m.svc.Client
	return func() tea.Msg {
		out, err := client.MarkTaskComplete(context.Background(), t.ID)
		if err == nil && out != nil {
			workflow.SettleComplete(out)
		}
		return actions.ResultMsg{Action: fmt.Sprintf("%q completed", t.Title), Task: out, Err: err}
	}
}

// View renders the daily view.
func (m Model) View() string {
	var b strings.Builder

	title := "All Tasks"
	if m.todayOnly {
		title = "Today's Tasks"
	}
	b.WriteString(theme.TitleStyle.Render(title))
	b.WriteString("\n")

	switch {
	case m.err != nil:
		b.WriteString(theme.ErrorStyle.Render(ui.ErrorText(m.err)))
		b.WriteString("\n")
	case m.banner != "":
		b.WriteString(theme.NoticeStyle.Render(m.banner))
		b.WriteString("\n")
	}

	switch {
	case m.loading && len(m.tasks) == 0:
		b.WriteString(ui.Placeholder(m.width, m.height-6, "Loading tasks..."))
	case len(m.rows) == 0 && m.err == nil:
		b.WriteString(ui.Placeholder(m.width, m.height-6, "Nothing to show."))
	default:
		b.WriteString(m.viewRows())
	}

	b.WriteString("\n")
	b.WriteString(theme.HelpStyle.Render("t today | x complete | f today only | enter open | r refresh"))
	return lipgloss.NewStyle().Padding(0, 1).Render(b.String())
}

func (m Model) viewRows() string {
	now := m.svc.Today()
	visible := max(m.height-6, 1)
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}
	end := min(start+visible, len(m.rows))

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		r := m.rows[i]
		t := m.tasks[r.task]
		selected := i == m.cursor
		if r.subtask < 0 {
			line := tasklist.RenderLine(t, selected, now, true, m.width)
			if workflow.CanMarkComplete(t) && t.Status != model.StatusCompleted {
				line += theme.SuccessStyle.Render(" ready")
			}
			lines = append(lines, line)
			continue
		}
		lines = append(lines, renderSubtask(t.Subtasks[r.subtask], selected, now))
	}
	return strings.Join(lines, "\n")
}

func renderSubtask(s model.Subtask, selected bool, now time.Time) string {
	box := "[ ]"
	if s.Completed {
		box = "[x]"
	}
	star := " "
	if s.IsToday {
		star = "★"
	}
	assignee := ""
	if s.AssignedTo.ID != "" {
		assignee = theme.DimmedStyle.Render(" @" + s.AssignedTo.DisplayName())
	}
	due := ""
	if !s.DueDate.IsZero() {
		due = theme.DimmedStyle.Render(" " + s.DueDate.Format("Jan 02"))
		if !s.Completed && model.Day(s.DueDate).Before(model.Day(now)) {
			due += theme.OverdueStyle.Render(" OVERDUE")
		}
	}
	line := fmt.Sprintf("    %s %s %s%s%s", box, star, s.Title, assignee, due)
	if s.Completed {
		line = theme.DimmedStyle.Render(line)
	}
	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
