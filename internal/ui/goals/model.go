// Package goals shows the monthly per-user goals, with month navigation and
// a department filter.
package goals

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
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

// LoadedMsg carries one month's goals.
type LoadedMsg struct {
	Gen   int64
	Month time.Time
	Goals []model.Goal
	Users []model.User
	Err   error
}

type savedMsg struct {
	goal  *model.Goal
	isNew bool
	err   error
}

// Model is the goals view.
type Model struct {
	svc     *ui.Services
	keys    *keys.KeyMap
	loader  *ui.Loader
	month   time.Time
	dept    string
	goals   []model.Goal
	visible []model.Goal
	users   []model.User
	cursor  int
	form    forms.Model
	loading bool
	banner  string
	err     error
	width   int
	height  int
}

// New creates the goals view, starting at the current month.
func New(svc *ui.Services, k *keys.KeyMap, width, height int) Model {
	start, _ := model.MonthRange(svc.Today())
	return Model{
		svc:    svc,
		keys:   k,
		loader: ui.NewLoader(),
		month:  start,
		width:  width,
		height: height,
	}
}

// Init loads the current month.
func (m *Model) Init() tea.Cmd {
	return m.Load()
}

// Month returns the first day of the month on display.
func (m Model) Month() time.Time { return m.month }

// Load fetches the month's goals and the user directory for the form.
func (m *Model) Load() tea.Cmd {
	ctx, gen := m.loader.Begin()
	m.loading = true
	svc := m.svc
	month := m.month
	return func() tea.Msg {
		goals, err := svc.Client.ListGoals(ctx, month)
		if err != nil {
			return LoadedMsg{Gen: gen, Month: month, Err: err}
		}
		if err := svc.Store.ReplaceGoals(ctx, month.Format("2006-01"), goals); err != nil {
			svc.Log.Warn().Err(err).Msg("caching goals")
		}
		users, err := svc.Client.ListUsers(ctx)
		if err != nil {
			svc.Log.Warn().Err(err).Msg("listing users for goals")
			users, _ = svc.Store.GetUsers(ctx)
		}
		return LoadedMsg{Gen: gen, Month: month, Goals: goals, Users: users}
	}
}

// Leave cancels in-flight loads.
func (m *Model) Leave() {
	m.loader.Cancel()
	m.loading = false
}

// Capturing reports whether a form is consuming keys.
func (m Model) Capturing() bool {
	return m.form.Active()
}

// Update handles messages for the goals view.
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
		m.goals = msg.Goals
		if len(msg.Users) > 0 {
			m.users = msg.Users
		}
		m.applyFilter()
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.banner = ui.ErrorText(msg.err)
			return m, ui.CheckAuth(msg.err)
		}
		verb := "updated"
		if msg.isNew {
			verb = "created"
		}
		m.banner = fmt.Sprintf("Goal %q %s", msg.goal.Title, verb)
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
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.NextTab):
		m.month = m.month.AddDate(0, 1, 0)
		m.cursor = 0
		return m, m.Load()

	case key.Matches(msg, m.keys.PrevTab):
		m.month = m.month.AddDate(0, -1, 0)
		m.cursor = 0
		return m, m.Load()

	case key.Matches(msg, m.keys.Filter):
		m.dept = nextDepartment(m.dept)
		m.cursor = 0
		m.applyFilter()
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.Load()

	case key.Matches(msg, m.keys.Down):
		if len(m.visible) > 0 {
			m.cursor = (m.cursor + 1) % len(m.visible)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if len(m.visible) > 0 {
			m.cursor = (m.cursor + len(m.visible) - 1) % len(m.visible)
		}
		return m, nil

	case key.Matches(msg, m.keys.New):
		m.banner = ""
		return m, m.openForm(nil)

	case key.Matches(msg, m.keys.Edit):
		if len(m.visible) == 0 {
			return m, nil
		}
		m.banner = ""
		g := m.visible[m.cursor]
		return m, m.openForm(&g)
	}
	return m, nil
}

// nextDepartment cycles "" (all) through the department codes.
func nextDepartment(current string) string {
	codes := model.DepartmentCodes()
	if current == "" {
		return codes[0]
	}
	for i, c := range codes {
		if c == current && i+1 < len(codes) {
			return codes[i+1]
		}
	}
	return ""
}

func (m *Model) applyFilter() {
	m.visible = filter.New(
		filter.GoalInMonth(m.month),
		filter.GoalDepartment(m.dept),
	).Apply(m.goals)
	if m.cursor >= len(m.visible) {
		m.cursor = max(len(m.visible)-1, 0)
	}
}

func (m Model) openForm(editing *model.Goal) tea.Cmd {
	svc := m.svc
	refs := make([]model.UserRef, 0, len(m.users))
	for _, u := range m.users {
		refs = append(refs, u.Ref())
	}

	b := forms.NewGoalBindings()
	title := "New Goal"
	if editing != nil {
		b = forms.GoalBindingsFrom(*editing)
		title = "Edit Goal"
	}
	f := forms.New(title, forms.NewGoalForm(b, refs), func() tea.Cmd {
		in, err := b.Input()
		if err != nil {
			return func() tea.Msg { return savedMsg{err: ui.Local(err)} }
		}
		return func() tea.Msg {
			if editing == nil {
				out, err := svc.Client.CreateGoal(context.Background(), in)
				return savedMsg{goal: out, isNew: true, err: err}
			}
			out, err := svc.Client.UpdateGoal(context.Background(), editing.ID, in)
			return savedMsg{goal: out, err: err}
		}
	})
	return func() tea.Msg { return actions.FormMsg{Form: f} }
}

// View renders the goals view.
func (m Model) View() string {
	if m.form.Active() {
		return m.form.View()
	}

	var b strings.Builder
	dept := "All departments"
	if m.dept != "" {
		dept = model.DepartmentName(m.dept)
	}
	b.WriteString(theme.TitleStyle.Render("Goals " + m.month.Format("January 2006")))
	b.WriteString(theme.DimmedStyle.Render("  " + dept))
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
	case m.loading && len(m.goals) == 0:
		b.WriteString(ui.Placeholder(m.width, m.height-6, "Loading goals..."))
	case len(m.visible) == 0 && m.err == nil:
		b.WriteString(ui.Placeholder(m.width, m.height-6, "No goals for this month."))
	case len(m.visible) > 0:
		b.WriteString(m.renderTable())
	}

	b.WriteString("\n")
	b.WriteString(theme.HelpStyle.Render("[/] month | f department | n new | e edit | r refresh"))
	return lipgloss.NewStyle().Padding(0, 1).Render(b.String())
}

func (m Model) renderTable() string {
	rows := make([][]string, 0, len(m.visible))
	for _, g := range m.visible {
		rows = append(rows, []string{
			g.User.DisplayName(),
			g.Title,
			model.FormatDate(g.StartDate),
			model.FormatDate(g.DueDate),
			formatValue(g.TargetValue),
			formatValue(g.TargetValue - g.RemainingValue),
			g.Status,
		})
	}

	cursor := m.cursor
	statuses := m.visible
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers("Employee", "Target", "Start", "Due", "Goal", "Achieved", "Status").
		Rows(rows...).
		Width(m.width - 2).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return theme.TableHeaderStyle
			case row == cursor:
				return theme.TableCellStyle.Bold(true).Foreground(theme.ColorWhite).Background(theme.ColorSubtle)
			case col == 6:
				return theme.GoalStatusStyle(statuses[row].Status).Padding(0, 1)
			}
			return theme.TableCellStyle
		}).
		String()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.form.SetSize(width, height)
}
