package reports

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/pmsterm/internal/filter"
	"github.com/nhle/pmsterm/internal/keys"
	"github.com/nhle/pmsterm/internal/model"
	"github.com/nhle/pmsterm/internal/ui"
)

var reportNow = time.Date(2024, 5, 10, 9, 0, 0, 0, time.Local)

func reportTasks() []model.Task {
	web := model.BoardRef{ID: "b1", Title: "Website"}
	ops := model.BoardRef{ID: "b2", Title: "Ops"}
	return []model.Task{
		{ID: "t1", Title: "Landing page", Status: model.StatusInProgress, Priority: model.PriorityHigh,
			Board: web, DueDate: reportNow.AddDate(0, 0, -2), Progress: 40},
		{ID: "t2", Title: "Backups", Status: model.StatusCompleted, Priority: model.PriorityLow,
			Board: ops, Progress: 100},
		{ID: "t3", Title: "Pricing", Status: model.StatusPending, Board: web,
			Subtasks: []model.Subtask{{ID: "s1", Progress: 100, Completed: true}, {ID: "s2", Progress: 0}}},
	}
}

func TestReportRow(t *testing.T) {
	tasks := reportTasks()

	row := reportRow(tasks[0], reportNow)
	assert.Equal(t, "Landing page", row[0])
	assert.True(t, strings.HasSuffix(row[3], " !"), "overdue marker")
	assert.Equal(t, "40%", row[4])
	assert.Empty(t, row[5])

	row = reportRow(tasks[2], reportNow)
	assert.Equal(t, "50%", row[4])
	assert.Equal(t, "1/2", row[5])
}

func TestRenderGroup(t *testing.T) {
	groups := filter.GroupByBoard(reportTasks())
	require.Len(t, groups, 2)

	out := RenderGroup(groups[0], reportNow, 0)
	assert.Contains(t, out, "Landing page")
	assert.Contains(t, out, "Pricing")
	assert.NotContains(t, out, "Backups")
	for _, h := range reportHeaders {
		assert.Contains(t, out, h)
	}
}

func TestPickEmployeeAndFilter(t *testing.T) {
	svc := &ui.Services{Log: zerolog.Nop(), Now: func() time.Time { return reportNow }}
	m := New(svc, keys.DefaultKeyMap(), 140, 40)
	m.Init()

	m, _ = m.Update(UsersLoadedMsg{Gen: 1, Users: []model.User{
		{ID: "u2", Username: "zoe"},
		{ID: "u1", Username: "Ana"},
	}})
	assert.Equal(t, "Ana", m.users[0].Username, "sorted case-insensitively")

	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	require.NotNil(t, m.user)
	assert.Equal(t, "u1", m.user.ID)

	m, _ = m.Update(TasksLoadedMsg{Gen: 2, UserID: "u1", Tasks: reportTasks()})
	require.Len(t, m.groups, 2)
	assert.Contains(t, m.View(), "Website (2)")

	m.filters.Completion = filter.CompletionOpen
	m, _ = m.Update(filtersAppliedMsg{})
	require.Len(t, m.groups, 1)
	assert.Equal(t, "Website", m.groups[0].Label())
	assert.Contains(t, m.View(), "not completed")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, m.user)
	assert.Contains(t, m.View(), "pick an employee")
}

func TestInvalidRangeShowsError(t *testing.T) {
	svc := &ui.Services{Log: zerolog.Nop(), Now: func() time.Time { return reportNow }}
	m := New(svc, keys.DefaultKeyMap(), 140, 40)
	m.filters.From = "2024-05-10"
	m.filters.To = "2024-05-01"

	m, _ = m.Update(filtersAppliedMsg{})
	require.Error(t, m.err)
	assert.Contains(t, ui.ErrorText(m.err), "before start date")
}
