package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/pmsterm/internal/api"
	"github.com/nhle/pmsterm/internal/logging"
	"github.com/nhle/pmsterm/internal/realtime"
	"github.com/nhle/pmsterm/internal/session"
	appsync "github.com/nhle/pmsterm/internal/sync"
	"github.com/nhle/pmsterm/internal/ui"
	authview "github.com/nhle/pmsterm/internal/ui/auth"
	"github.com/nhle/pmsterm/internal/ui/boards"
	"github.com/nhle/pmsterm/internal/ui/daily"
	"github.com/nhle/pmsterm/internal/ui/detail"
	"github.com/nhle/pmsterm/internal/ui/goals"
	"github.com/nhle/pmsterm/internal/ui/profile"
	"github.com/nhle/pmsterm/internal/ui/reports"
	"github.com/nhle/pmsterm/internal/ui/tasklist"
	"github.com/nhle/pmsterm/internal/ui/users"
)

const (
	connectTimeout = 15 * time.Second
	reconnectDelay = 5 * time.Second
)

// showLogin switches to the signed-out screens.
func (m *Model) showLogin(notice string) tea.Cmd {
	m.auth = authview.New(m.cfg.Sessions, m.cfg.Sessions.Client(nil), notice, m.layout.Width, m.layout.Height)
	m.currentView = ViewLogin
	return m.auth.Init()
}

// startSession builds the per-session services and views, starts the
// poller and opens the realtime connection.
func (m *Model) startSession(s *session.Session) tea.Cmd {
	m.session = s
	client := m.cfg.Sessions.Client(s)

	m.poller = appsync.New(m.cfg.Store, client,
		appsync.WithInterval(m.cfg.PollInterval),
		appsync.WithUserID(s.User.ID),
		appsync.WithLogger(logging.Component(m.cfg.Log, "sync")),
	)
	poller := m.poller

	m.svc = &ui.Services{
		Client:    client,
		Store:     m.cfg.Store,
		User:      s.User,
		Log:       m.cfg.Log,
		Now:       m.cfg.Now,
		AssetBase: m.cfg.AssetBase,
		Resync:    func() { poller.Refresh() },
	}

	m.rooms = nil
	m.live = false
	if m.cfg.SocketURL != "" {
		rooms := realtime.NewManager(m.cfg.SocketURL, realtime.WithLogger(m.cfg.Log))
		m.rooms = rooms
		m.svc.Rooms = rooms
	}

	w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
	m.boards = boards.New(m.svc, m.keys, w, h)
	m.tasks = tasklist.New(m.svc, m.keys, w, h)
	m.daily = daily.New(m.svc, m.keys, w, h)
	m.goals = goals.New(m.svc, m.keys, w, h)
	m.reports = reports.New(m.svc, m.keys, w, h)
	m.users = users.New(m.svc, m.keys, w, h)
	m.profile = profile.New(m.svc, m.keys, w, h)
	m.detail = detail.New(m.svc, m.keys, w, h)

	m.unreadCount = 0
	m.latest = ""
	m.syncErr = ""
	m.currentView = ViewBoards
	m.previousView = ViewBoards
	m.detailReturn = ViewBoards

	m.log.Info().Str("user", s.User.Username).Msg("session started")

	return tea.Batch(
		m.boards.Init(),
		m.poller.Start(),
		m.connectRooms(),
		m.fetchUnreadCount(),
	)
}

// connectRooms dials the realtime connection for the current session.
func (m Model) connectRooms() tea.Cmd {
	if m.rooms == nil || m.session == nil {
		return nil
	}
	rooms, token := m.rooms, m.session.Token
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return roomsConnectedMsg{rooms: rooms, err: rooms.Connect(ctx, token)}
	}
}

// watchRooms reports when the connection behind rooms goes away. Closing
// the manager at session end releases it too.
func watchRooms(rooms *realtime.Manager) tea.Cmd {
	done := rooms.Done()
	if done == nil {
		return nil
	}
	return func() tea.Msg {
		<-done
		return roomsDroppedMsg{rooms: rooms}
	}
}

func retryRooms(rooms *realtime.Manager) tea.Cmd {
	return tea.Tick(reconnectDelay, func(time.Time) tea.Msg {
		return roomsRetryMsg{rooms: rooms}
	})
}

// handleRooms tracks the realtime connection: it marks the session live,
// puts an open detail view on the feed, and redials after a failure or a
// drop. A rejected handshake is not retried.
func (m Model) handleRooms(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case roomsConnectedMsg:
		if msg.rooms != m.rooms {
			return m, nil
		}
		if msg.err != nil {
			m.log.Warn().Err(msg.err).Msg("realtime connection failed")
			m.live = false
			if api.IsAuthError(msg.err) {
				return m, nil
			}
			return m, retryRooms(msg.rooms)
		}
		m.live = true
		return m, tea.Batch(watchRooms(msg.rooms), m.detail.Rejoin())

	case roomsDroppedMsg:
		if msg.rooms != m.rooms {
			return m, nil
		}
		m.log.Warn().Msg("realtime connection dropped")
		m.live = false
		m.detail.Offline()
		return m, retryRooms(msg.rooms)

	case roomsRetryMsg:
		if msg.rooms != m.rooms || m.live {
			return m, nil
		}
		return m, m.connectRooms()
	}
	return m, nil
}

// endSession stops everything the session started and returns to login.
func (m *Model) endSession(notice string) tea.Cmd {
	if m.session == nil {
		return m.showLogin(notice)
	}
	m.leave(m.currentView)
	m.shutdown()
	m.session = nil
	m.svc = nil
	m.poller = nil
	m.rooms = nil
	m.live = false
	m.unreadCount = 0
	m.latest = ""
	m.syncErr = ""
	return m.showLogin(notice)
}

// handleSync applies a poller result: the store already holds the new
// snapshot, so views reading from it are told to reload.
func (m Model) handleSync(msg appsync.SyncResultMsg) (tea.Model, tea.Cmd) {
	if m.poller == nil {
		return m, nil
	}
	wait := m.poller.WaitForNextResult()
	if !m.poller.Current(msg) {
		return m, wait
	}

	if msg.AuthExpired {
		if err := m.cfg.Sessions.Logout(); err != nil {
			m.log.Warn().Err(err).Msg("clearing rejected session")
		}
		return m, m.endSession("Your session has expired. Please log in again.")
	}

	if msg.Error != nil {
		m.syncErr = "⚠ " + ui.ErrorText(msg.Error)
		return m, wait
	}
	m.syncErr = ""

	var cmd tea.Cmd
	m.boards, cmd = m.boards.Update(ui.StoreChangedMsg{})
	return m, tea.Batch(cmd, wait, m.fetchUnreadCount())
}

// upsertTask writes a task returned by a mutation to the local snapshot.
func (m Model) upsertTask(msg ui.TaskUpdatedMsg) tea.Cmd {
	if m.svc == nil {
		return nil
	}
	s, log := m.cfg.Store, m.log
	return func() tea.Msg {
		if err := s.UpsertTask(context.Background(), msg.Task); err != nil {
			log.Warn().Err(err).Str("task", msg.Task.ID).Msg("caching updated task")
			return nil
		}
		return ui.StoreChangedMsg{}
	}
}

func (m Model) deleteTask(msg ui.TaskDeletedMsg) tea.Cmd {
	if m.svc == nil {
		return nil
	}
	s, log := m.cfg.Store, m.log
	return func() tea.Msg {
		if err := s.DeleteTask(context.Background(), msg.TaskID); err != nil {
			log.Warn().Err(err).Str("task", msg.TaskID).Msg("removing deleted task")
			return nil
		}
		return ui.StoreChangedMsg{}
	}
}

// fetchUnreadCount returns a tea.Cmd that queries the store for the
// number of unread notifications.
func (m Model) fetchUnreadCount() tea.Cmd {
	s := m.cfg.Store
	return func() tea.Msg {
		notifications, err := s.GetUnreadNotifications(context.Background())
		if err != nil || len(notifications) == 0 {
			return unreadCountMsg{count: 0}
		}
		return unreadCountMsg{
			count:  len(notifications),
			latest: notifications[0].Message,
		}
	}
}

// markAllRead dismisses every unread notification.
func (m Model) markAllRead() tea.Cmd {
	s, log := m.cfg.Store, m.log
	refresh := m.fetchUnreadCount()
	return func() tea.Msg {
		ctx := context.Background()
		notifications, err := s.GetUnreadNotifications(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("listing notifications")
			return refresh()
		}
		for _, n := range notifications {
			if err := s.MarkNotificationRead(ctx, n.ID); err != nil {
				log.Warn().Err(err).Str("notification", n.ID).Msg("marking notification read")
			}
		}
		return refresh()
	}
}
