package app

import (
	"context"
	"net/http"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/pmsterm/internal/api"
	"github.com/nhle/pmsterm/internal/credential"
	"github.com/nhle/pmsterm/internal/realtime"
	"github.com/nhle/pmsterm/internal/session"
	"github.com/nhle/pmsterm/internal/ui"
	"github.com/nhle/pmsterm/internal/ui/command"
	"github.com/nhle/pmsterm/tests/testutil"
)

const testHost = "pms.test"

type harness struct {
	fake  *testutil.FakeAPI
	creds *credential.Keyring
	model Model
}

type harnessOption func(*Config, *testutil.FakeAPI)

// withSocket points the session's realtime connection at the fake hub.
func withSocket() harnessOption {
	return func(cfg *Config, fake *testutil.FakeAPI) { cfg.SocketURL = fake.SocketURL() }
}

func newHarness(t *testing.T, token string, opts ...harnessOption) *harness {
	t.Helper()
	fake := testutil.NewFakeAPI(t)
	fake.Reply(http.MethodGet, "/api/users/profile", http.StatusOK, map[string]interface{}{
		"_id": "u1", "username": "ana", "email": "ana@corp.io", "role": "2", "department": "3",
	})

	creds := credential.NewMemory()
	if token != "" {
		require.NoError(t, creds.Set(credential.SessionKey(testHost), token))
	}

	cfg := Config{
		Sessions:     session.NewManager(creds, testHost, api.NewClient(fake.URL())),
		Store:        testutil.NewTestStore(t),
		PollInterval: time.Hour,
		Log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg, fake)
	}
	m := New(cfg)
	h := &harness{fake: fake, creds: creds, model: m}
	h.send(tea.WindowSizeMsg{Width: 120, Height: 40})
	h.send(m.Init()())

	t.Cleanup(func() { h.model.shutdown() })
	return h
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	next, cmd := h.model.Update(msg)
	h.model = next.(Model)
	return cmd
}

func (h *harness) press(k string) tea.Cmd {
	return h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
}

func TestInit_NoStoredSessionShowsLogin(t *testing.T) {
	h := newHarness(t, "")

	assert.Equal(t, ViewLogin, h.model.currentView)
	assert.Nil(t, h.model.session)
	assert.Empty(t, h.fake.Requests(), "no profile check without a token")
}

func TestInit_RestoredSessionOpensBoards(t *testing.T) {
	h := newHarness(t, "tok")

	require.NotNil(t, h.model.session)
	assert.Equal(t, ViewBoards, h.model.currentView)
	assert.Equal(t, "ana", h.model.svc.User.Username)
	assert.Contains(t, h.model.View(), "ana |")
}

func TestGlobalNavigation(t *testing.T) {
	h := newHarness(t, "tok")

	h.press("2")
	assert.Equal(t, ViewMyTasks, h.model.currentView)

	h.press("?")
	assert.Equal(t, ViewHelp, h.model.currentView)
	h.send(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewMyTasks, h.model.currentView)

	h.press("4")
	assert.Equal(t, ViewGoals, h.model.currentView)
}

func TestDetailReturnsToOpeningView(t *testing.T) {
	h := newHarness(t, "tok")
	h.press("3")

	h.send(ui.OpenTaskMsg{TaskID: "t1"})
	assert.Equal(t, ViewDetail, h.model.currentView)

	h.press("?")
	h.press("?")
	assert.Equal(t, ViewDetail, h.model.currentView)

	h.send(ui.CloseMsg{})
	assert.Equal(t, ViewDaily, h.model.currentView)
}

func TestAuthExpiredEndsSession(t *testing.T) {
	h := newHarness(t, "tok")

	h.send(ui.AuthExpiredMsg{Err: &api.AuthError{StatusCode: 401, Message: "jwt expired"}})

	assert.Equal(t, ViewLogin, h.model.currentView)
	assert.Nil(t, h.model.session)
	_, err := h.creds.Get(credential.SessionKey(testHost))
	assert.ErrorIs(t, err, credential.ErrNotFound)
}

func TestUnreadCountInHeader(t *testing.T) {
	h := newHarness(t, "tok")

	h.send(unreadCountMsg{count: 2, latest: "Task \"Copy\" is due today"})

	view := h.model.View()
	assert.Contains(t, view, "[2 new]")
	assert.Contains(t, view, ":read to dismiss")
}

func TestCommandPaletteSwitchesView(t *testing.T) {
	h := newHarness(t, "tok")

	h.press(":")
	assert.Equal(t, ViewCommand, h.model.currentView)

	h.send(command.CommandMsg("users"))
	assert.Equal(t, ViewUsers, h.model.currentView)
}

func TestRealtime_DropGoesOfflineAndReconnects(t *testing.T) {
	h := newHarness(t, "tok", withSocket())
	rooms := h.model.rooms
	require.NotNil(t, rooms)
	assert.False(t, h.model.live)

	// A task opened before the connection is up has no room yet.
	h.send(ui.OpenTaskMsg{TaskID: "t1"})
	assert.Equal(t, 0, h.fake.RoomSize("t1"))

	require.NoError(t, rooms.Connect(context.Background(), "tok"))
	cmd := h.send(roomsConnectedMsg{rooms: rooms})
	require.NotNil(t, cmd)
	assert.True(t, h.model.live)
	assert.Contains(t, h.model.View(), "| live")
	require.Eventually(t, func() bool { return h.fake.RoomSize("t1") == 1 }, 2*time.Second, 10*time.Millisecond)

	h.fake.DropConnections()
	require.Eventually(t, func() bool { return !rooms.Connected() }, 2*time.Second, 10*time.Millisecond)
	retry := h.send(roomsDroppedMsg{rooms: rooms})
	assert.NotNil(t, retry)
	assert.False(t, h.model.live)
	assert.Contains(t, h.model.View(), "| offline")
	require.Eventually(t, func() bool { return h.fake.RoomSize("t1") == 0 }, 2*time.Second, 10*time.Millisecond)

	connect := h.send(roomsRetryMsg{rooms: rooms})
	require.NotNil(t, connect)
	h.send(connect())
	assert.True(t, h.model.live)
	assert.Eventually(t, func() bool { return h.fake.RoomSize("t1") == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestRealtime_IgnoresOtherManagers(t *testing.T) {
	h := newHarness(t, "tok", withSocket())
	h.model.live = true

	h.send(roomsDroppedMsg{rooms: realtime.NewManager("ws://elsewhere.test/ws")})
	assert.True(t, h.model.live)
}
