package daily

import (
	"errors"
	"net/http"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/pmsterm/internal/api"
	"github.com/nhle/pmsterm/internal/keys"
	"github.com/nhle/pmsterm/internal/model"
	"github.com/nhle/pmsterm/internal/ui"
	"github.com/nhle/pmsterm/internal/ui/actions"
	"github.com/nhle/pmsterm/internal/workflow"
	"github.com/nhle/pmsterm/tests/testutil"
)

func loaded(t *testing.T, svc *ui.Services, tasks []model.Task) Model {
	t.Helper()
	m := New(svc, keys.DefaultKeyMap(), 100, 30)
	m.Load()
	m, _ = m.Update(LoadedMsg{Gen: 1, Tasks: tasks})
	require.Len(t, m.tasks, len(tasks))
	return m
}

func press(m Model, k string) (Model, tea.Cmd) {
	return m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
}

func testServices(client *api.Client) *ui.Services {
	return &ui.Services{
		Client: client,
		Log:    zerolog.Nop(),
		Now:    func() time.Time { return time.Date(2024, 5, 10, 9, 0, 0, 0, time.Local) },
	}
}

func TestCompleteTask_BlockedByOpenSubtasks(t *testing.T) {
	m := loaded(t, testServices(nil), []model.Task{{
		ID: "t1", Title: "Release", Status: model.StatusInProgress,
		Subtasks: []model.Subtask{
			{ID: "s1", Title: "Notes", Completed: true},
			{ID: "s2", Title: "Tag", Completed: false},
		},
	}})

	_, cmd := press(m, "x")
	require.NotNil(t, cmd)
	msg, ok := cmd().(actions.ResultMsg)
	require.True(t, ok)
	assert.True(t, errors.Is(msg.Err, workflow.ErrIncompleteSubtasks))
	assert.Contains(t, msg.Err.Error(), "1 subtask(s) still open")
}

func TestCompleteSubtask_AlreadyComplete(t *testing.T) {
	m := loaded(t, testServices(nil), []model.Task{{
		ID: "t1", Title: "Release",
		Subtasks: []model.Subtask{{ID: "s1", Title: "Notes", Completed: true}},
	}})

	m, _ = press(m, "j")
	_, cmd := press(m, "x")
	require.NotNil(t, cmd)
	msg := cmd().(actions.ResultMsg)
	assert.NoError(t, msg.Err)
	assert.Nil(t, msg.Task)
	assert.Contains(t, msg.Action, "already complete")
}

func TestCompleteTask_CallsServerWhenAllSubtasksDone(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.ReplyRaw(http.MethodPut, "/api/tasks/t1/complete", http.StatusOK, `{"task":
		{"_id": "t1", "title": "Release", "status": "completed", "priority": "low", "progress": 100,
		 "subtasks": [{"_id": "s1", "title": "Notes", "progress": 100, "completed": true}]}}`)

	m := loaded(t, testServices(api.NewClient(fake.URL())), []model.Task{{
		ID: "t1", Title: "Release", Status: model.StatusInProgress,
		Subtasks: []model.Subtask{{ID: "s1", Title: "Notes", Completed: true}},
	}})

	_, cmd := press(m, "x")
	require.NotNil(t, cmd)
	msg := cmd().(actions.ResultMsg)
	require.NoError(t, msg.Err)
	require.NotNil(t, msg.Task)
	assert.Equal(t, model.StatusCompleted, msg.Task.Status)

	m, cmd = m.Update(msg)
	require.NotNil(t, cmd)
	updated, ok := cmd().(ui.TaskUpdatedMsg)
	require.True(t, ok)

	m, _ = m.Update(updated)
	assert.Equal(t, model.StatusCompleted, m.tasks[0].Status)
}

func TestCompleteTask_SettlesStaleSubtasksInReply(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.ReplyRaw(http.MethodPut, "/api/tasks/t1/complete", http.StatusOK, `{"task":
		{"_id": "t1", "title": "Release", "status": "in-progress", "priority": "low", "progress": 100,
		 "subtasks": [{"_id": "s1", "title": "Notes", "progress": 100, "completed": false},
		              {"_id": "s2", "title": "Tag", "progress": 100, "completed": false}]}}`)

	m := loaded(t, testServices(api.NewClient(fake.URL())), []model.Task{{
		ID: "t1", Title: "Release", Status: model.StatusInProgress,
		Subtasks: []model.Subtask{
			{ID: "s1", Title: "Notes", Completed: true},
			{ID: "s2", Title: "Tag", Completed: true},
		},
	}})

	_, cmd := press(m, "x")
	require.NotNil(t, cmd)
	msg := cmd().(actions.ResultMsg)
	require.NoError(t, msg.Err)
	require.NotNil(t, msg.Task)
	assert.Equal(t, model.StatusCompleted, msg.Task.Status)
	for _, s := range msg.Task.Subtasks {
		assert.True(t, s.Completed, s.ID)
	}
}

func TestCompleteSubtask_FlagsSubtaskWhenReplyIsStale(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.ReplyRaw(http.MethodPut, "/api/tasks/t1/subtasks/s2/complete", http.StatusOK, `{"task":
		{"_id": "t1", "title": "Release", "status": "in-progress", "priority": "low", "progress": 50,
		 "subtasks": [{"_id": "s1", "title": "Notes", "progress": 100, "completed": true},
		              {"_id": "s2", "title": "Tag", "progress": 0, "completed": false}]}}`)

	m := loaded(t, testServices(api.NewClient(fake.URL())), []model.Task{{
		ID: "t1", Title: "Release", Status: model.StatusInProgress,
		Subtasks: []model.Subtask{
			{ID: "s1", Title: "Notes", Completed: true},
			{ID: "s2", Title: "Tag"},
		},
	}})

	m, _ = press(m, "j")
	m, _ = press(m, "j")
	_, cmd := press(m, "x")
	require.NotNil(t, cmd)
	msg := cmd().(actions.ResultMsg)
	require.NoError(t, msg.Err)
	require.NotNil(t, msg.Task)
	assert.True(t, msg.Task.Subtasks[1].Completed)
	assert.Equal(t, model.StatusInProgress, msg.Task.Status, "status waits for the explicit task completion")
	assert.True(t, workflow.CanMarkComplete(*msg.Task))
}

func TestTodayFilter(t *testing.T) {
	m := loaded(t, testServices(nil), []model.Task{
		{ID: "t1", Title: "Flagged", IsToday: true},
		{ID: "t2", Title: "Later"},
		{ID: "t3", Title: "Parent", Subtasks: []model.Subtask{
			{ID: "s1", Title: "Today part", IsToday: true},
			{ID: "s2", Title: "Other part"},
		}},
	})
	assert.Len(t, m.rows, 5)

	m, _ = press(m, "f")
	assert.Len(t, m.rows, 3, "flagged task, parent of flagged subtask, flagged subtask")
	view := m.View()
	assert.Contains(t, view, "Today's Tasks")
	assert.NotContains(t, view, "Later")
	assert.NotContains(t, view, "Other part")
}

func TestStaleLoadIgnored(t *testing.T) {
	m := New(testServices(nil), keys.DefaultKeyMap(), 100, 30)
	m.Load()
	m.Load()

	m, _ = m.Update(LoadedMsg{Gen: 1, Tasks: []model.Task{{ID: "old"}}})
	assert.Empty(t, m.tasks)
}
