package detail

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/pmsterm/internal/keys"
	"github.com/nhle/pmsterm/internal/model"
	"github.com/nhle/pmsterm/internal/ui"
)

func testServices() *ui.Services {
	return &ui.Services{
		User:      model.User{ID: "u1", Username: "ana"},
		Log:       zerolog.Nop(),
		AssetBase: "https://pms.test",
		Now:       func() time.Time { return time.Date(2024, 5, 10, 9, 0, 0, 0, time.Local) },
	}
}

func opened(t *testing.T, task model.Task, history ...model.ChatMessage) Model {
	t.Helper()
	m := New(testServices(), keys.DefaultKeyMap(), 100, 40)
	m.Open(task.ID)
	m, _ = m.Update(LoadedMsg{Gen: 1, Task: &task, History: history})
	require.NotNil(t, m.task)
	return m
}

func TestLoaded_RendersAggregateAndDivergences(t *testing.T) {
	m := opened(t, model.Task{
		ID: "t1", Title: "Launch", Status: model.StatusInProgress,
		Subtasks: []model.Subtask{
			{ID: "s1", Title: "Copy", Progress: 0},
			{ID: "s2", Title: "Images", Progress: 50, Completed: true},
			{ID: "s3", Title: "Deploy", Progress: 100},
		},
	})

	out := m.renderContent()
	assert.Contains(t, out, "Subtasks (2 open)")
	assert.Contains(t, out, "Images is marked complete at 50%")
	assert.Contains(t, out, "Deploy is at 100% but not marked complete")
	assert.Contains(t, out, "Completion needs more than 90% overall progress.")
	assert.Contains(t, out, "No messages yet")
}

func TestLoaded_StaleGenerationIgnored(t *testing.T) {
	m := New(testServices(), keys.DefaultKeyMap(), 100, 40)
	m.Open("t1")
	m.Open("t2")

	m, _ = m.Update(LoadedMsg{Gen: 1, Task: &model.Task{ID: "t1", Title: "Old"}})
	assert.Nil(t, m.task)
	assert.True(t, m.loading)
}

func TestSentMessage_EchoRendersOnce(t *testing.T) {
	m := opened(t, model.Task{ID: "t1", Title: "Launch"})

	sent := model.ChatMessage{
		ID: "m1", TaskID: "t1", Sender: model.UserRef{ID: "u1", Username: "ana"},
		Content: "shipped", Attachments: []string{"notes.pdf"},
		CreatedAt: time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC),
	}
	m, _ = m.Update(SentMsg{Message: &sent})
	require.Equal(t, 1, m.feed.Len())

	// The room echoes the message back to its sender.
	m, _ = m.Update(IncomingMsg{Sub: m.sub, Message: sent})
	assert.Equal(t, 1, m.feed.Len())

	out := m.renderContent()
	assert.Contains(t, out, "Activity (1)")
	assert.Contains(t, out, "You")
	assert.Contains(t, out, "[document] notes.pdf https://pms.test/uploads/notes.pdf")
}

func TestLoaded_KeepsMessagesReceivedDuringLoad(t *testing.T) {
	m := New(testServices(), keys.DefaultKeyMap(), 100, 40)
	m.Open("t1")

	live := model.ChatMessage{ID: "m2", TaskID: "t1", Content: "new", CreatedAt: time.Date(2024, 5, 10, 9, 5, 0, 0, time.UTC)}
	m, _ = m.Update(IncomingMsg{Sub: m.sub, Message: live})
	require.Equal(t, 1, m.feed.Len())

	old := model.ChatMessage{ID: "m1", TaskID: "t1", Content: "old", CreatedAt: time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)}
	m, _ = m.Update(LoadedMsg{Gen: 1, Task: &model.Task{ID: "t1", Title: "Launch"}, History: []model.ChatMessage{old}})

	require.Equal(t, 2, m.feed.Len())
	sorted := m.feed.Sorted()
	assert.Equal(t, "m1", sorted[0].ID)
	assert.Equal(t, "m2", sorted[1].ID)
}

func TestSentMessage_OtherTaskIgnored(t *testing.T) {
	m := opened(t, model.Task{ID: "t1", Title: "Launch"})

	m, _ = m.Update(SentMsg{Message: &model.ChatMessage{ID: "m9", TaskID: "t2", Content: "late"}})
	assert.Equal(t, 0, m.feed.Len())
}

func TestSend_EmptyMessageRejectedLocally(t *testing.T) {
	m := opened(t, model.Task{ID: "t1", Title: "Launch"})

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	require.True(t, m.Capturing())

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	assert.True(t, m.sending)

	m, _ = m.Update(cmd())
	assert.False(t, m.sending)
	assert.Equal(t, "please type a message to continue", m.banner)
}

func TestTaskDeleted_ClosesView(t *testing.T) {
	m := opened(t, model.Task{ID: "t1", Title: "Launch"})

	_, cmd := m.Update(ui.TaskDeletedMsg{TaskID: "t1"})
	require.NotNil(t, cmd)
	assert.Equal(t, ui.CloseMsg{}, cmd())
}

func TestSplitPaths(t *testing.T) {
	assert.Equal(t, []string{"a.png", "b c.pdf"}, splitPaths(" a.png, ,b c.pdf ,"))
	assert.Nil(t, splitPaths("  "))
}
