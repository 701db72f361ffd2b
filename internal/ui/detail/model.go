// Package detail is the task detail view: fields, subtasks with progress
// bars, and the task's live activity feed.
package detail

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/pmsterm/internal/activity"
	"github.com/nhle/pmsterm/internal/api"
	"github.com/nhle/pmsterm/internal/keys"
	"github.com/nhle/pmsterm/internal/model"
	"github.com/nhle/pmsterm/internal/realtime"
	"github.com/nhle/pmsterm/internal/theme"
	"github.com/nhle/pmsterm/internal/ui"
	"github.com/nhle/pmsterm/internal/ui/actions"
	"github.com/nhle/pmsterm/internal/ui/forms"
	"github.com/nhle/pmsterm/internal/workflow"
)

// LoadedMsg carries the task and its activity history.
type LoadedMsg struct {
	Gen     int64
	Task    *model.Task
	History []model.ChatMessage
	Err     error
}

// IncomingMsg is a message received from the task's room. Closed is set
// when the subscription ended.
type IncomingMsg struct {
	Sub     *realtime.Subscription
	Message model.ChatMessage
	Closed  bool
}

// SentMsg reports the outcome of posting a message.
type SentMsg struct {
	Message *model.ChatMessage
	Err     error
}

type publishFailedMsg struct{ err error }

type chatFocus int

const (
	focusNone chatFocus = iota
	focusMessage
	focusAttachments
)

// Model is the task detail view component.
type Model struct {
	svc      *ui.Services
	keys     *keys.KeyMap
	loader   *ui.Loader
	taskID   string
	task     *model.Task
	feed     *activity.Feed
	sub      *realtime.Subscription
	live     bool
	active   bool
	viewport viewport.Model
	input    textarea.Model
	attach   textinput.Model
	focus    chatFocus
	sending  bool
	form     forms.Model
	loading  bool
	banner   string
	err      error
	width    int
	height   int
}

// New creates a new detail view model.
func New(svc *ui.Services, k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-chatHeight)
	vp.Style = lipgloss.NewStyle()

	ta := textarea.New()
	ta.Placeholder = "Write a message... (ctrl+s to send)"
	ta.ShowLineNumbers = false
	ta.SetHeight(3)
	ta.SetWidth(width - 4)

	ai := textinput.New()
	ai.Prompt = "Attach: "
	ai.Placeholder = "comma-separated file paths (optional)"
	ai.Width = width - 12

	return Model{
		svc:      svc,
		keys:     k,
		loader:   ui.NewLoader(),
		viewport: vp,
		input:    ta,
		attach:   ai,
		width:    width,
		height:   height,
	}
}

// chatHeight is the number of rows kept for the chat input below the
// viewport.
const chatHeight = 7

// Open shows taskID: it joins the task's room and loads the task and its
// history. Any previous task is closed first.
func (m *Model) Open(taskID string) tea.Cmd {
	m.Close()
	m.active = true
	m.taskID = taskID
	m.task = nil
	m.feed = activity.NewFeed(taskID)
	m.banner = ""
	m.err = nil
	m.loading = true
	m.viewport.SetContent("")

	var cmds []tea.Cmd
	if m.svc.Rooms != nil {
		sub, err := m.svc.Rooms.Subscribe(taskID)
		if err != nil {
			m.svc.Log.Warn().Err(err).Str("task", taskID).Msg("joining task room")
		} else {
			m.sub = sub
			m.live = true
			cmds = append(cmds, waitForMessage(sub))
		}
	}

	ctx, gen := m.loader.Begin()
	client := m.svc.Client
	cmds = append(cmds, func() tea.Msg {
		var (
			task    *model.Task
			history []model.ChatMessage
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			task, err = client.GetTask(gctx, taskID)
			return err
		})
		g.Go(func() error {
			var err error
			history, err = client.ListActivity(gctx, taskID)
			return err
		})
		err := g.Wait()
		return LoadedMsg{Gen: gen, Task: task, History: history, Err: err}
	})
	return tea.Batch(cmds...)
}

// Close leaves the task's room and cancels pending loads. It is safe to
// call more than once.
func (m *Model) Close() {
	m.loader.Cancel()
	if m.sub != nil {
		if err := m.sub.Close(); err != nil {
			m.svc.Log.Warn().Err(err).Str("task", m.sub.TaskID()).Msg("leaving task room")
		}
		m.sub = nil
	}
	m.live = false
	m.active = false
	m.focus = focusNone
	m.input.Blur()
	m.attach.Blur()
}

// Rejoin puts the open task back on the live feed once the realtime
// connection is up. A room joined before a drop is re-joined by the
// connection itself, so only a task opened while offline subscribes here.
func (m *Model) Rejoin() tea.Cmd {
	if !m.active || m.svc.Rooms == nil {
		return nil
	}
	if m.sub != nil {
		m.live = true
		m.refresh(false)
		return nil
	}
	sub, err := m.svc.Rooms.Subscribe(m.taskID)
	if err != nil {
		m.svc.Log.Warn().Err(err).Str("task", m.taskID).Msg("joining task room")
		return nil
	}
	m.sub = sub
	m.live = true
	m.refresh(false)
	return waitForMessage(sub)
}

// Offline marks the feed as not live until the next Rejoin.
func (m *Model) Offline() {
	m.live = false
	m.refresh(false)
}

// TaskID returns the task being shown.
func (m Model) TaskID() string {
	return m.taskID
}

// Capturing reports whether the view is consuming keys itself.
func (m Model) Capturing() bool {
	return m.focus != focusNone || m.form.Active()
}

// waitForMessage blocks on the subscription and delivers one message.
func waitForMessage(sub *realtime.Subscription) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-sub.Messages()
		return IncomingMsg{Sub: sub, Message: msg, Closed: !ok}
	}
}

// Update handles messages for the detail view.
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
		m.task = msg.Task
		m.feed.Merge(msg.History)
		m.refresh(true)
		return m, nil

	case IncomingMsg:
		if msg.Sub != m.sub {
			return m, nil
		}
		if msg.Closed {
			m.sub = nil
			m.live = false
			m.refresh(false)
			return m, nil
		}
		if m.feed.Append(msg.Message) {
			m.refresh(false)
			m.viewport.GotoBottom()
		}
		return m, waitForMessage(msg.Sub)

	case SentMsg:
		m.sending = false
		if msg.Err != nil {
			m.banner = ui.ErrorText(msg.Err)
			return m, ui.CheckAuth(msg.Err)
		}
		if msg.Message.TaskID != m.taskID {
			return m, nil
		}
		m.input.Reset()
		m.attach.Reset()
		m.banner = ""
		m.feed.Append(*msg.Message)
		m.refresh(false)
		m.viewport.GotoBottom()
		return m, m.publish(*msg.Message)

	case publishFailedMsg:
		m.banner = "Message saved, but live delivery failed"
		return m, nil

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

	case ui.TaskUpdatedMsg:
		if msg.Task.ID == m.taskID {
			t := msg.Task
			m.task = &t
			m.refresh(false)
		}
		return m, nil

	case ui.TaskDeletedMsg:
		if msg.TaskID == m.taskID {
			return m, func() tea.Msg { return ui.CloseMsg{} }
		}
		return m, nil
	}

	if m.form.Active() {
		var cmd tea.Cmd
		m.form, cmd = m.form.Update(msg)
		return m, cmd
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.focus != focusNone {
			return m.handleChatKeys(msg)
		}
		return m.handleKeys(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Back) {
		return m, func() tea.Msg { return ui.CloseMsg{} }
	}
	if key.Matches(msg, m.keys.Refresh) {
		return m, m.Open(m.taskID)
	}
	if m.task == nil {
		return m, nil
	}

	t := *m.task
	switch {
	case key.Matches(msg, m.keys.Chat):
		m.focus = focusMessage
		m.resize()
		return m, m.input.Focus()
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

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleChatKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.focus = focusNone
		m.input.Blur()
		m.attach.Blur()
		m.resize()
		return m, nil
	case "tab":
		if m.focus == focusMessage {
			m.focus = focusAttachments
			m.input.Blur()
			return m, m.attach.Focus()
		}
		m.focus = focusMessage
		m.attach.Blur()
		return m, m.input.Focus()
	case "ctrl+s":
		if m.sending {
			return m, nil
		}
		cmd := m.send()
		if cmd != nil {
			m.sending = true
		}
		return m, cmd
	}

	var cmd tea.Cmd
	if m.focus == focusMessage {
		m.input, cmd = m.input.Update(msg)
	} else {
		m.attach, cmd = m.attach.Update(msg)
	}
	return m, cmd
}

// send posts the typed message with its attachments. The returned message
// is appended locally and then broadcast to the room.
func (m Model) send() tea.Cmd {
	content := strings.TrimSpace(m.input.Value())
	if content == "" {
		return func() tea.Msg {
			return SentMsg{Err: ui.Local(fmt.Errorf("please type a message to continue"))}
		}
	}
	paths := splitPaths(m.attach.Value())
	in := api.SendActivityInput{TaskID: m.taskID, Content: content, SenderID: m.svc.User.ID}
	client := m.svc.Client
	log := m.svc.Log

	return func() tea.Msg {
		files, closeAll, err := api.OpenAttachments(paths)
		if err != nil {
			return SentMsg{Err: ui.Local(err)}
		}
		defer closeAll()
		in.Attachments = files

		out, err := client.SendActivity(context.Background(), in)
		if err != nil {
			log.Warn().Err(err).Str("task", in.TaskID).Msg("sending message")
			return SentMsg{Err: err}
		}
		return SentMsg{Message: out}
	}
}

func (m Model) publish(msg model.ChatMessage) tea.Cmd {
	rooms := m.svc.Rooms
	if rooms == nil || !m.live {
		return nil
	}
	log := m.svc.Log
	return func() tea.Msg {
		if err := rooms.Publish(msg); err != nil {
			log.Warn().Err(err).Str("task", msg.TaskID).Msg("broadcasting message")
			return publishFailedMsg{err: err}
		}
		return nil
	}
}

func splitPaths(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// View renders the detail view.
func (m Model) View() string {
	if m.form.Active() {
		return m.form.View()
	}
	if m.err != nil {
		return ui.Placeholder(m.width, m.height,
			theme.ErrorStyle.Render(ui.ErrorText(m.err)), "", "esc to go back | r to retry")
	}
	if m.loading && m.task == nil {
		return ui.Placeholder(m.width, m.height, "Loading task details...")
	}
	if m.task == nil {
		return ui.Placeholder(m.width, m.height, "No task selected")
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), m.viewChat())
}

func (m Model) viewChat() string {
	var lines []string
	if m.banner != "" {
		lines = append(lines, theme.NoticeStyle.Render(m.banner))
	}
	if m.focus == focusNone {
		hints := "c chat | s status | o reopen | p progress | e edit | D delete | r reload | esc back"
		lines = append(lines, theme.HelpStyle.Render(hints))
		return strings.Join(lines, "\n")
	}
	if m.sending {
		lines = append(lines, theme.DimmedStyle.Render("Sending..."))
	}
	lines = append(lines,
		theme.BorderStyle.Render(m.input.View()),
		m.attach.View(),
		theme.HelpStyle.Render("ctrl+s send | tab attachments | esc close chat"),
	)
	return strings.Join(lines, "\n")
}

// refresh re-renders the viewport content.
func (m *Model) refresh(top bool) {
	m.viewport.SetContent(m.renderContent())
	if top {
		m.viewport.GotoTop()
	}
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.task == nil {
		return ""
	}

	task := *m.task
	now := m.svc.Today()
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(task.Title))

	badgeLine := lipgloss.JoinHorizontal(
		lipgloss.Top,
		theme.StatusStyle(task.Status).Render(forms.StatusLabel(task.Status)),
		"  ",
		theme.PriorityStyle(task.Priority).Render(strings.ToUpper(orDash(task.Priority))),
	)
	if task.IsToday {
		badgeLine += theme.NoticeStyle.Render("  ★ today")
	}
	sections = append(sections, badgeLine, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	field := func(label, value string) {
		if value == "" {
			return
		}
		sections = append(sections, fmt.Sprintf("%s %s",
			metaStyle.Render(fmt.Sprintf("%-10s", label+":")), valStyle.Render(value)))
	}

	field("Board", task.Board.Title)
	field("Assignees", strings.Join(task.AssigneeNames(), ", "))
	due := model.FormatDate(task.DueDate)
	if task.IsPastDue(now) {
		due += theme.OverdueStyle.Render(" OVERDUE")
	}
	field("Due", due)
	if !task.CreatedAt.IsZero() {
		field("Created", task.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	if !task.UpdatedAt.IsZero() {
		field("Updated", task.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}

	barWidth := min(max(m.width-30, 10), 50)
	agg := model.DisplayProgress(model.AggregateProgress(task))
	sections = append(sections, "", fmt.Sprintf("%s %s",
		metaStyle.Render(fmt.Sprintf("%-10s", "Progress:")), progressBar(agg, barWidth)))

	if len(task.Subtasks) > 0 && task.Status == model.StatusInProgress && !workflow.CanComplete(task) {
		sections = append(sections, theme.DimmedStyle.Render(
			fmt.Sprintf("Completion needs more than %d%% overall progress.", workflow.CompletionThreshold)))
	}

	for _, d := range workflow.Divergences(task) {
		sections = append(sections, theme.WarningStyle.Render("⚠ "+d.String()))
	}

	separator := lipgloss.NewStyle().Foreground(theme.ColorSubtle).
		Render(strings.Repeat("─", max(min(m.width-4, 80), 1)))
	header := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)

	sections = append(sections, "", separator, "", header.Render("Description"))
	if task.Description == "" {
		sections = append(sections, theme.DimmedStyle.Italic(true).Render("No description"))
	} else {
		sections = append(sections, lipgloss.NewStyle().Width(max(m.width-4, 20)).Render(task.Description))
	}

	if len(task.Subtasks) > 0 {
		sections = append(sections, "", separator, "",
			header.Render(fmt.Sprintf("Subtasks (%d open)", workflow.OpenSubtasks(task))))
		for _, s := range task.Subtasks {
			sections = append(sections, renderSubtask(s, now, barWidth))
		}
	}

	sections = append(sections, "", separator, "", header.Render(m.activityTitle()))
	if m.feed == nil || m.feed.Len() == 0 {
		sections = append(sections, theme.DimmedStyle.Italic(true).Render("No messages yet"))
	} else {
		for _, msg := range m.feed.Sorted() {
			sections = append(sections, m.renderMessage(msg), "")
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) activityTitle() string {
	n := 0
	if m.feed != nil {
		n = m.feed.Len()
	}
	title := fmt.Sprintf("Activity (%d)", n)
	if !m.live {
		title += theme.DimmedStyle.Render("  offline")
	}
	return title
}

func renderSubtask(s model.Subtask, now time.Time, barWidth int) string {
	box := "[ ]"
	if s.Completed {
		box = "[x]"
	}
	meta := []string{}
	if s.AssignedTo.ID != "" {
		meta = append(meta, "@"+s.AssignedTo.DisplayName())
	}
	if !s.DueDate.IsZero() {
		d := model.FormatDate(s.DueDate)
		if !s.Completed && model.Day(s.DueDate).Before(model.Day(now)) {
			d += " overdue"
		}
		meta = append(meta, d)
	}
	if s.Priority != "" {
		meta = append(meta, s.Priority)
	}
	if s.IsToday {
		meta = append(meta, "★")
	}
	line := fmt.Sprintf("%s %s", box, s.Title)
	if len(meta) > 0 {
		line += theme.DimmedStyle.Render("  " + strings.Join(meta, " · "))
	}
	return line + "\n    " + progressBar(model.DisplayProgress(s.Progress), barWidth)
}

func (m Model) renderMessage(msg model.ChatMessage) string {
	author := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue).Render(msg.Sender.DisplayName())
	if msg.Sender.ID == m.svc.User.ID {
		author = lipgloss.NewStyle().Bold(true).Foreground(theme.ColorGreen).Render("You")
	}
	when := ""
	if !msg.CreatedAt.IsZero() {
		when = theme.DimmedStyle.Render(msg.CreatedAt.Local().Format("Jan 02 15:04"))
	}

	lines := []string{author + "  " + when}
	if msg.Content != "" {
		lines = append(lines, lipgloss.NewStyle().Width(max(m.width-6, 20)).Render(msg.Content))
	}
	for _, name := range msg.Attachments {
		kind := activity.Classify(name)
		label := lipgloss.NewStyle().Foreground(theme.ColorMagenta).Render("[" + kind.String() + "]")
		lines = append(lines, fmt.Sprintf("  %s %s %s", label, name,
			theme.DimmedStyle.Render(activity.AttachmentURL(m.svc.AssetBase, name))))
	}
	return strings.Join(lines, "\n")
}

// progressBar renders a static bar colored by completion band.
func progressBar(percent, width int) string {
	color := theme.ProgressColor(percent)
	bar := progress.New(
		progress.WithSolidFill(color.Dark),
		progress.WithWidth(width),
	)
	return bar.ViewAs(float64(percent) / 100)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (m *Model) resize() {
	h := m.height - 1
	if m.focus != focusNone {
		h = m.height - chatHeight
	}
	m.viewport.Width = m.width
	m.viewport.Height = max(h, 3)
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.SetWidth(width - 4)
	m.attach.Width = width - 12
	m.resize()
	m.form.SetSize(width, height)
	if m.task != nil {
		m.refresh(false)
	}
}
