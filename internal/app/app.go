package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nhle/pmsterm/internal/api"
	"github.com/nhle/pmsterm/internal/keys"
	"github.com/nhle/pmsterm/internal/logging"
	"github.com/nhle/pmsterm/internal/realtime"
	"github.com/nhle/pmsterm/internal/session"
	"github.com/nhle/pmsterm/internal/store"
	appsync "github.com/nhle/pmsterm/internal/sync"
	"github.com/nhle/pmsterm/internal/ui"
	authview "github.com/nhle/pmsterm/internal/ui/auth"
	"github.com/nhle/pmsterm/internal/ui/boards"
	"github.com/nhle/pmsterm/internal/ui/command"
	"github.com/nhle/pmsterm/internal/ui/daily"
	"github.com/nhle/pmsterm/internal/ui/detail"
	"github.com/nhle/pmsterm/internal/ui/goals"
	helpview "github.com/nhle/pmsterm/internal/ui/help"
	"github.com/nhle/pmsterm/internal/ui/profile"
	"github.com/nhle/pmsterm/internal/ui/reports"
	"github.com/nhle/pmsterm/internal/ui/tasklist"
	"github.com/nhle/pmsterm/internal/ui/users"
)

// Config is what the root model needs to open sessions.
type Config struct {
	Sessions *session.Manager
	Store    store.Store

	// SocketURL is the realtime endpoint. Empty disables live chat.
	SocketURL string

	// AssetBase is the server root used for attachment links.
	AssetBase string

	PollInterval time.Duration
	Log          zerolog.Logger
	Now          func() time.Time
}

// sessionRestoredMsg carries the outcome of the startup session check.
type sessionRestoredMsg struct {
	session *session.Session
	err     error
}

// roomsConnectedMsg reports the realtime connection attempt.
type roomsConnectedMsg struct {
	rooms *realtime.Manager
	err   error
}

// roomsDroppedMsg reports that an established realtime connection ended.
type roomsDroppedMsg struct {
	rooms *realtime.Manager
}

type roomsRetryMsg struct {
	rooms *realtime.Manager
}

// unreadCountMsg carries the number of unread notifications to the UI.
type unreadCountMsg struct {
	count  int
	latest string
}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewRestoring ViewState = iota
	ViewLogin
	ViewBoards
	ViewMyTasks
	ViewDaily
	ViewGoals
	ViewReports
	ViewUsers
	ViewProfile
	ViewDetail
	ViewHelp
	ViewCommand
)

var viewTitles = map[ViewState]string{
	ViewBoards:  "Boards",
	ViewMyTasks: "My Tasks",
	ViewDaily:   "All Tasks",
	ViewGoals:   "Goals",
	ViewReports: "Reports",
	ViewUsers:   "Users",
	ViewProfile: "Profile",
	ViewDetail:  "Task",
	ViewHelp:    "Help",
	ViewCommand: "Command",
}

// Commands lists the command palette entries.
var Commands = []string{
	"boards", "tasks", "daily", "goals", "reports", "users", "profile",
	"refresh", "read", "logout", "quit",
}

// Model is the root Bubble Tea model. It owns the session and routes
// messages to the active view.
type Model struct {
	cfg          Config
	log          zerolog.Logger
	keys         *keys.KeyMap
	layout       ui.Layout
	ready        bool
	currentView  ViewState
	previousView ViewState

	// detailReturn is the view the detail view goes back to.
	detailReturn ViewState

	session *session.Session
	svc     *ui.Services
	poller  *appsync.Poller
	rooms   *realtime.Manager
	live    bool

	auth        authview.Model
	boards      boards.Model
	tasks       tasklist.Model
	daily       daily.Model
	goals       goals.Model
	reports     reports.Model
	users       users.Model
	profile     profile.Model
	detail      detail.Model
	helpView    helpview.Model
	commandView command.Model

	unreadCount int
	latest      string
	syncErr     string
}

// New creates the root model. Nothing touches the network until Init.
func New(cfg Config) Model {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	k := keys.DefaultKeyMap()
	return Model{
		cfg:         cfg,
		log:         logging.Component(cfg.Log, "app"),
		keys:        k,
		layout:      ui.NewLayout(80, 24),
		currentView: ViewRestoring,
		helpView:    helpview.New(k, Commands, 80, 24),
		commandView: command.New(Commands, 80, 24),
	}
}

// Init restores the stored session, if any.
func (m Model) Init() tea.Cmd {
	sessions := m.cfg.Sessions
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s, err := sessions.Restore(ctx)
		return sessionRestoredMsg{session: s, err: err}
	}
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		m.resize()
		return m.updateActiveView(msg)

	case sessionRestoredMsg:
		if msg.err != nil {
			m.log.Info().Err(msg.err).Msg("session not restored")
			notice := ""
			if !errors.Is(msg.err, session.ErrLoginRequired) {
				notice = api.UserMessage(msg.err)
			}
			return m, m.showLogin(notice)
		}
		return m, m.startSession(msg.session)

	case authview.LoggedInMsg:
		return m, m.startSession(msg.Session)

	case roomsConnectedMsg, roomsDroppedMsg, roomsRetryMsg:
		return m.handleRooms(msg)

	case ui.AuthExpiredMsg:
		m.log.Info().Err(msg.Err).Msg("session rejected by server")
		if err := m.cfg.Sessions.Logout(); err != nil {
			m.log.Warn().Err(err).Msg("clearing rejected session")
		}
		return m, m.endSession(api.UserMessage(msg.Err))

	case ui.LogoutMsg:
		if err := m.cfg.Sessions.Logout(); err != nil {
			m.log.Warn().Err(err).Msg("logging out")
		}
		return m, m.endSession("Logged out.")

	case ui.ProfileUpdatedMsg:
		if m.svc != nil {
			m.svc.User = msg.User
			m.session.User = msg.User
		}
		return m, nil

	case appsync.SyncResultMsg:
		return m.handleSync(msg)

	case unreadCountMsg:
		m.unreadCount = msg.count
		m.latest = msg.latest
		return m, nil

	case ui.TaskUpdatedMsg:
		cmd := m.upsertTask(msg)
		next, viewCmd := m.updateActiveView(msg)
		return next, tea.Batch(cmd, viewCmd)

	case ui.TaskDeletedMsg:
		cmd := m.deleteTask(msg)
		next, viewCmd := m.updateActiveView(msg)
		return next, tea.Batch(cmd, viewCmd)

	case ui.StoreChangedMsg:
		if m.svc == nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.boards, cmd = m.boards.Update(msg)
		return m, cmd

	case ui.OpenTaskMsg:
		if m.currentView != ViewDetail {
			m.detailReturn = m.currentView
		}
		m.leave(m.currentView)
		m.currentView = ViewDetail
		return m, m.detail.Open(msg.TaskID)

	case ui.CloseMsg:
		if m.currentView == ViewDetail {
			return m, m.switchTo(m.detailReturn)
		}
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(string(msg))

	case command.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case tea.KeyMsg:
		if next, cmd, handled := m.handleGlobalKey(msg); handled {
			return next, cmd
		}
	}

	if next, cmd, ok := m.routeOwned(msg); ok {
		return next, cmd
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleGlobalKey handles keys that work regardless of the current view.
// Views that are capturing input (forms, search, chat) get the key instead.
func (m Model) handleGlobalKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		m.shutdown()
		return m, tea.Quit, true
	}
	if m.session == nil || m.capturing() {
		return m, nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.shutdown()
		return m, tea.Quit, true

	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil, true

	case key.Matches(msg, m.keys.Command):
		if m.currentView == ViewCommand {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m, m.commandView.Focus(), true

	case key.Matches(msg, m.keys.Back) && m.currentView == ViewHelp:
		m.currentView = m.previousView
		return m, nil, true
	}

	if m.currentView == ViewHelp || m.currentView == ViewCommand {
		return m, nil, false
	}

	for _, nav := range []struct {
		binding key.Binding
		view    ViewState
	}{
		{m.keys.Boards, ViewBoards},
		{m.keys.MyTasks, ViewMyTasks},
		{m.keys.Daily, ViewDaily},
		{m.keys.Goals, ViewGoals},
		{m.keys.Reports, ViewReports},
		{m.keys.Users, ViewUsers},
		{m.keys.Profile, ViewProfile},
	} {
		if key.Matches(msg, nav.binding) {
			return m, m.switchTo(nav.view), true
		}
	}
	return m, nil, false
}

// capturing reports whether the active view is consuming raw key input.
func (m Model) capturing() bool {
	switch m.currentView {
	case ViewLogin, ViewRestoring, ViewCommand:
		return true
	case ViewBoards:
		return m.boards.Capturing()
	case ViewMyTasks:
		return m.tasks.Capturing()
	case ViewGoals:
		return m.goals.Capturing()
	case ViewReports:
		return m.reports.Capturing()
	case ViewUsers:
		return m.users.Capturing()
	case ViewProfile:
		return m.profile.Capturing()
	case ViewDetail:
		return m.detail.Capturing()
	}
	return false
}

// routeOwned delivers load results to the view that started the load,
// whether or not it is still on screen. Stale generations are dropped by
// the view itself.
func (m Model) routeOwned(msg tea.Msg) (Model, tea.Cmd, bool) {
	if m.svc == nil {
		return m, nil, false
	}
	var cmd tea.Cmd
	switch msg.(type) {
	case tasklist.TasksLoadedMsg:
		m.tasks, cmd = m.tasks.Update(msg)
	case daily.LoadedMsg:
		m.daily, cmd = m.daily.Update(msg)
	case goals.LoadedMsg:
		m.goals, cmd = m.goals.Update(msg)
	case reports.UsersLoadedMsg, reports.TasksLoadedMsg:
		m.reports, cmd = m.reports.Update(msg)
	case users.LoadedMsg:
		m.users, cmd = m.users.Update(msg)
	case detail.LoadedMsg, detail.IncomingMsg, detail.SentMsg:
		m.detail, cmd = m.detail.Update(msg)
	default:
		return m, nil, false
	}
	return m, cmd, true
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin:
		m.auth, cmd = m.auth.Update(msg)
	case ViewBoards:
		m.boards, cmd = m.boards.Update(msg)
	case ViewMyTasks:
		m.tasks, cmd = m.tasks.Update(msg)
	case ViewDaily:
		m.daily, cmd = m.daily.Update(msg)
	case ViewGoals:
		m.goals, cmd = m.goals.Update(msg)
	case ViewReports:
		m.reports, cmd = m.reports.Update(msg)
	case ViewUsers:
		m.users, cmd = m.users.Update(msg)
	case ViewProfile:
		m.profile, cmd = m.profile.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// switchTo leaves the current view and loads v.
func (m *Model) switchTo(v ViewState) tea.Cmd {
	if v == m.currentView {
		return nil
	}
	m.leave(m.currentView)
	if m.currentView == ViewDetail {
		m.detail.Close()
	}
	m.currentView = v

	switch v {
	case ViewBoards:
		return m.boards.Init()
	case ViewMyTasks:
		return m.tasks.Init()
	case ViewDaily:
		return m.daily.Init()
	case ViewGoals:
		return m.goals.Init()
	case ViewReports:
		return m.reports.Init()
	case ViewUsers:
		return m.users.Init()
	}
	return nil
}

// leave cancels the in-flight loads of v. The detail view keeps its room
// subscription while help or the command palette is on top of it.
func (m *Model) leave(v ViewState) {
	switch v {
	case ViewMyTasks:
		m.tasks.Leave()
	case ViewDaily:
		m.daily.Leave()
	case ViewGoals:
		m.goals.Leave()
	case ViewReports:
		m.reports.Leave()
	case ViewUsers:
		m.users.Leave()
	}
}

func (m *Model) resize() {
	w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
	m.auth.SetSize(m.layout.Width, m.layout.Height)
	m.helpView.SetSize(w, h)
	m.commandView.SetSize(w, h)
	if m.svc == nil {
		return
	}
	m.boards.SetSize(w, h)
	m.tasks.SetSize(w, h)
	m.daily.SetSize(w, h)
	m.goals.SetSize(w, h)
	m.reports.SetSize(w, h)
	m.users.SetSize(w, h)
	m.profile.SetSize(w, h)
	m.detail.SetSize(w, h)
}

// executeCommand handles a command string from the command palette.
func (m *Model) executeCommand(cmd string) tea.Cmd {
	switch cmd {
	case "boards":
		return m.switchTo(ViewBoards)
	case "tasks", "my tasks":
		return m.switchTo(ViewMyTasks)
	case "daily", "all tasks":
		return m.switchTo(ViewDaily)
	case "goals":
		return m.switchTo(ViewGoals)
	case "reports":
		return m.switchTo(ViewReports)
	case "users":
		return m.switchTo(ViewUsers)
	case "profile":
		return m.switchTo(ViewProfile)
	case "refresh", "sync":
		if m.poller != nil {
			m.poller.Refresh()
		}
		return nil
	case "read", "mark read":
		return m.markAllRead()
	case "logout":
		return func() tea.Msg { return ui.LogoutMsg{} }
	case "quit", "q":
		m.shutdown()
		return tea.Quit
	default:
		m.log.Debug().Str("command", cmd).Msg("unknown command")
		return nil
	}
}

// shutdown stops background work before the program exits.
func (m *Model) shutdown() {
	if m.poller != nil {
		m.poller.Stop()
	}
	if m.svc != nil {
		m.detail.Close()
	}
	if m.rooms != nil {
		if err := m.rooms.Close(); err != nil {
			m.log.Debug().Err(err).Msg("closing realtime connection")
		}
	}
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	switch m.currentView {
	case ViewRestoring:
		return ui.Placeholder(m.layout.Width, m.layout.Height, "Restoring session...")
	case ViewLogin:
		return m.auth.View()
	}

	headerTitle := "pmsterm · " + viewTitles[m.currentView]
	if m.unreadCount > 0 {
		headerTitle = fmt.Sprintf("%s [%d new]", headerTitle, m.unreadCount)
	}
	header := m.layout.RenderHeader(headerTitle, m.sessionStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewBoards:
		return m.boards.View()
	case ViewMyTasks:
		return m.tasks.View()
	case ViewDaily:
		return m.daily.View()
	case ViewGoals:
		return m.goals.View()
	case ViewReports:
		return m.reports.View()
	case ViewUsers:
		return m.users.View()
	case ViewProfile:
		return m.profile.View()
	case ViewDetail:
		return m.detail.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

// sessionStatus describes the user, the sync state and the live
// connection for the header.
func (m Model) sessionStatus() string {
	if m.session == nil {
		return ""
	}
	sync := "idle"
	if m.poller != nil {
		st := m.poller.Status()
		switch {
		case st.State == appsync.SyncRunning:
			sync = "syncing"
		case m.syncErr != "":
			sync = "⚠ sync failed"
		case !st.LastSync.IsZero():
			sync = "synced " + st.LastSync.Format("15:04")
		}
	}
	live := "offline"
	if m.live {
		live = "live"
	}
	return fmt.Sprintf("%s | %s | %s", m.session.User.Username, sync, live)
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.syncErr != "" && m.currentView == ViewBoards {
		return m.syncErr
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | esc back"
	case ViewDetail:
		return "esc back | c chat | s status | p progress | e edit | j/k scroll"
	}
	if m.latest != "" {
		return m.latest + " | :read to dismiss"
	}
	return "1 boards | 2 my tasks | 3 all | 4 goals | 5 reports | 6 users | 7 profile | ? help | q quit"
}
