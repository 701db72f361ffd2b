// Package boards is the boards dashboard: every board the user can see,
// with its tasks, read from the local snapshot the poller maintains.
package boards

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/pmsterm/internal/keys"
	"github.com/nhle/pmsterm/internal/model"
	"github.com/nhle/pmsterm/internal/theme"
	"github.com/nhle/pmsterm/internal/ui"
	"github.com/nhle/pmsterm/internal/ui/actions"
	"github.com/nhle/pmsterm/internal/ui/forms"
	"github.com/nhle/pmsterm/internal/ui/tasklist"
)

// EmptyBoardText is shown in place of the task list of a board with no
// tasks.
const EmptyBoardText = "No tasks on this board yet"

type boardsLoadedMsg struct {
	boards []model.Board
	err    error
}

type boardSavedMsg struct {
	board *model.Board
	isNew bool
	err   error
}

// Model is the Bubble Tea model for the boards dashboard.
type Model struct {
	svc       *ui.Services
	keys      *keys.KeyMap
	boards    []model.Board
	boardIdx  int
	taskIdx   int
	form      forms.Model
	loaded    bool
	statusMsg string
	err       error
	width     int
	height    int
}

// New creates a new boards model.
func New(svc *ui.Services, k *keys.KeyMap, width, height int) Model {
	return Model{svc: svc, keys: k, width: width, height: height}
}

// Init loads boards from the store.
func (m Model) Init() tea.Cmd {
	return m.loadBoards()
}

// Capturing reports whether a form is consuming keys.
func (m Model) Capturing() bool {
	return m.form.Active()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case boardsLoadedMsg:
		m.loaded = true
		m.err = msg.err
		if msg.err == nil {
			m.setBoards(msg.boards)
		}
		return m, nil

	case ui.StoreChangedMsg:
		return m, m.loadBoards()

	case boardSavedMsg:
		if msg.err != nil {
			m.statusMsg = ui.ErrorText(msg.err)
			return m, ui.CheckAuth(msg.err)
		}
		if msg.isNew {
			m.statusMsg = fmt.Sprintf("Board %q created", msg.board.Title)
		} else {
			m.statusMsg = fmt.Sprintf("Board %q saved", msg.board.Title)
		}
		m.svc.RequestSync()
		return m, nil

	case actions.FormMsg:
		m.form = msg.Form
		m.form.SetSize(m.width, m.height)
		return m, m.form.Init()

	case actions.ResultMsg:
		banner, cmd := actions.Handle(msg)
		m.statusMsg = banner
		return m, cmd

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

func (m *Model) setBoards(boards []model.Board) {
	m.boards = boards
	if m.boardIdx >= len(m.boards) {
		m.boardIdx = max(len(m.boards)-1, 0)
	}
	if b, ok := m.current(); ok && m.taskIdx >= len(b.Tasks) {
		m.taskIdx = max(len(b.Tasks)-1, 0)
	}
}

func (m Model) current() (model.Board, bool) {
	if len(m.boards) == 0 {
		return model.Board{}, false
	}
	return m.boards[m.boardIdx], true
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	board, hasBoard := m.current()

	switch {
	case key.Matches(msg, m.keys.Right):
		if len(m.boards) > 0 {
			m.boardIdx = (m.boardIdx + 1) % len(m.boards)
			m.taskIdx = 0
		}
		return m, nil

	case key.Matches(msg, m.keys.Left):
		if len(m.boards) > 0 {
			m.boardIdx = (m.boardIdx + len(m.boards) - 1) % len(m.boards)
			m.taskIdx = 0
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if hasBoard && len(board.Tasks) > 0 {
			m.taskIdx = (m.taskIdx + 1) % len(board.Tasks)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if hasBoard && len(board.Tasks) > 0 {
			m.taskIdx = (m.taskIdx + len(board.Tasks) - 1) % len(board.Tasks)
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		m.statusMsg = "Refreshing..."
		m.svc.RequestSync()
		return m, nil

	case key.Matches(msg, m.keys.New):
		if !m.svc.User.IsManager() {
			m.statusMsg = "Only managers can create boards"
			return m, nil
		}
		return m, m.openBoardForm(nil)

	case key.Matches(msg, m.keys.Edit):
		if !hasBoard {
			return m, nil
		}
		if !m.svc.User.IsManager() {
			m.statusMsg = "Only managers can edit boards"
			return m, nil
		}
		b := board
		return m, m.openBoardForm(&b)

	case key.Matches(msg, m.keys.NewTask):
		if !hasBoard {
			return m, nil
		}
		return m, actions.Create(m.svc, board)
	}

	if !hasBoard || len(board.Tasks) == 0 {
		return m, nil
	}
	t := board.Tasks[m.taskIdx]

	switch {
	case key.Matches(msg, m.keys.Select):
		id := t.ID
		return m, func() tea.Msg { return ui.OpenTaskMsg{TaskID: id} }
	case key.Matches(msg, m.keys.Status):
		return m, actions.ChangeStatus(m.svc, t)
	case key.Matches(msg, m.keys.Progress):
		return m, actions.UpdateProgress(m.svc, t)
	case key.Matches(msg, m.keys.Delete):
		return m, actions.Delete(m.svc, t)
	}
	return m, nil
}

// openBoardForm fetches the user directory for the member picker, then
// opens the board form. editing is nil for a new board.
func (m Model) openBoardForm(editing *model.Board) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx := context.Background()
		users, err := svc.Client.ListUsers(ctx)
		if err != nil {
			return boardSavedMsg{err: err}
		}
		if err := svc.Store.ReplaceUsers(ctx, users); err != nil {
			svc.Log.Warn().Err(err).Msg("caching users")
		}
		refs := make([]model.UserRef, 0, len(users))
		for _, u := range users {
			refs = append(refs, u.Ref())
		}

		b := &forms.BoardBindings{}
		title := "New Board"
		if editing != nil {
			b = forms.BoardBindingsFrom(*editing)
			title = "Edit Board"
		}
		f := forms.NewBoardForm(b, refs)
		return actions.FormMsg{Form: forms.New(title, f, func() tea.Cmd {
			in, err := b.Input()
			if err != nil {
				return func() tea.Msg { return boardSavedMsg{err: ui.Local(err)} }
			}
			return func() tea.Msg {
				if editing == nil {
					out, err := svc.Client.CreateBoard(context.Background(), in)
					return boardSavedMsg{board: out, isNew: true, err: err}
				}
				out, err := svc.Client.UpdateBoard(context.Background(), editing.ID, in)
				return boardSavedMsg{board: out, err: err}
			}
		})}
	}
}

// View renders the dashboard.
func (m Model) View() string {
	if m.form.Active() {
		return m.form.View()
	}

	switch {
	case m.err != nil:
		return ui.Placeholder(m.width, m.height, theme.ErrorStyle.Render(ui.ErrorText(m.err)))
	case !m.loaded:
		return ui.Placeholder(m.width, m.height, "Loading boards...")
	case len(m.boards) == 0:
		hint := "No boards yet."
		if m.svc.User.IsManager() {
			hint += " Press 'n' to create one."
		}
		return ui.Placeholder(m.width, m.height, hint)
	}

	sideWidth := min(28, m.width/3)
	side := m.viewBoards(sideWidth)
	main := m.viewTasks(m.width - sideWidth - 3)

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		theme.BorderStyle.Width(sideWidth).Height(m.height-4).Render(side),
		" ",
		lipgloss.NewStyle().Width(m.width-sideWidth-3).Render(main),
	)

	footer := m.footer()
	return lipgloss.JoinVertical(lipgloss.Left, body, footer)
}

func (m Model) viewBoards(width int) string {
	var b strings.Builder
	b.WriteString(theme.TitleStyle.Render("Boards"))
	b.WriteString("\n")
	for i, board := range m.boards {
		label := ui.Truncate(fmt.Sprintf("%s (%d)", board.Title, len(board.Tasks)), width-4)
		if i == m.boardIdx {
			b.WriteString(theme.SelectedItemStyle.Render(label))
		} else {
			b.WriteString(theme.ListItemStyle.Render(label))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewTasks(width int) string {
	board, _ := m.current()

	var b strings.Builder
	b.WriteString(theme.TitleStyle.Render(board.Title))
	b.WriteString("\n")

	members := make([]string, 0, len(board.Members))
	for _, u := range board.Members {
		members = append(members, u.DisplayName())
	}
	if len(members) > 0 {
		b.WriteString(theme.DimmedStyle.Render(ui.Truncate("Members: "+strings.Join(members, ", "), width)))
		b.WriteString("\n\n")
	}

	if len(board.Tasks) == 0 {
		b.WriteString(theme.DimmedStyle.Italic(true).Render(EmptyBoardText))
		return b.String()
	}

	now := m.svc.Today()
	for i, t := range board.Tasks {
		b.WriteString(tasklist.RenderLine(t, i == m.taskIdx, now, false, width))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) footer() string {
	var b strings.Builder
	if m.statusMsg != "" {
		b.WriteString(theme.NoticeStyle.Render(m.statusMsg))
		b.WriteString("\n")
	}
	hints := "h/l board | j/k task | enter open | a add task | s status | p progress | r refresh"
	if m.svc.User.IsManager() {
		hints += " | n new board | e edit board"
	}
	b.WriteString(theme.HelpStyle.Render(hints))
	return b.String()
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.form.SetSize(width, height)
}

func (m Model) loadBoards() tea.Cmd {
	s := m.svc.Store
	return func() tea.Msg {
		boards, err := s.GetBoards(context.Background())
		return boardsLoadedMsg{boards: boards, err: err}
	}
}
