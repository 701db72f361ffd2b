package forms

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/pmsterm/internal/api"
	"github.com/nhle/pmsterm/internal/model"
)

var members = []model.UserRef{
	{ID: "u1", Username: "ana"},
	{ID: "u2", Username: "bo"},
}

func TestParseSubtasks(t *testing.T) {
	got, err := ParseSubtasks("Draft | ana | 2026-03-10 | High\n\n  Review  ", members, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Draft", got[0].Title)
	assert.Equal(t, "u1", got[0].AssigneeID)
	assert.Equal(t, model.PriorityHigh, got[0].Priority)
	assert.True(t, model.SameDay(got[0].DueDate, time.Date(2026, 3, 10, 0, 0, 0, 0, time.Local)))

	assert.Equal(t, "Review", got[1].Title)
	assert.Empty(t, got[1].AssigneeID)
	assert.True(t, got[1].DueDate.IsZero())
}

func TestParseSubtasks_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"missing title", " | ana"},
		{"unknown assignee", "Draft | zed"},
		{"bad date", "Draft | ana | 10/03/2026"},
		{"bad priority", "Draft | | | urgent"},
		{"too many columns", "a | b | 2026-01-01 | low | extra"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSubtasks(tt.text, members, nil)
			assert.Error(t, err)
		})
	}
}

func TestParseSubtasks_KeepsExistingState(t *testing.T) {
	existing := []model.Subtask{{
		ID: "s1", Title: "Draft", Completed: true, Progress: 80,
		AssignedTo: model.UserRef{ID: "u9", Username: "former"},
	}}

	got, err := ParseSubtasks(FormatSubtasks(existing), members, existing)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].ID)
	assert.True(t, got[0].Completed)
	assert.Equal(t, 80.0, got[0].Progress)
	assert.Equal(t, "u9", got[0].AssigneeID)
}

func TestTaskBindings_SubtaskDueAfterTaskIsRejected(t *testing.T) {
	b := NewTaskBindings()
	b.Title = "Launch"
	b.DueDate = "2026-03-10"
	b.Subtasks = "Prep | | 2026-03-11"

	_, err := b.Input("b1", members)
	var verr *api.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "dueDate", verr.Field)

	b.Subtasks = "Prep | | 2026-03-10"
	in, err := b.Input("b1", members)
	require.NoError(t, err)
	assert.Equal(t, "b1", in.BoardID)
	assert.Len(t, in.Subtasks, 1)
}

func TestTaskBindingsFrom_RoundTripsTask(t *testing.T) {
	task := model.Task{
		ID: "t1", Title: "Ship", Board: model.BoardRef{ID: "b1"},
		Assignees: []model.UserRef{{ID: "u2", Username: "bo"}},
		Priority:  model.PriorityLow, Status: model.StatusInProgress, Progress: 35,
		Subtasks: []model.Subtask{{ID: "s1", Title: "One", AssignedTo: model.UserRef{ID: "u1", Username: "ana"}, Progress: 50}},
	}

	in, err := TaskBindingsFrom(task).Input("b1", members)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, in.AssigneeIDs)
	assert.Equal(t, model.StatusInProgress, in.Status)
	assert.Equal(t, 35.0, in.Progress)
	require.Len(t, in.Subtasks, 1)
	assert.Equal(t, "s1", in.Subtasks[0].ID)
	assert.Equal(t, "u1", in.Subtasks[0].AssigneeID)
}

func TestGoalBindings(t *testing.T) {
	b := NewGoalBindings()
	b.UserID = "u1"
	b.Title = "Articles"
	b.DueDate = "2026-03-31"
	b.TargetValue = "12"

	in, err := b.Input()
	require.NoError(t, err)
	assert.Equal(t, 12.0, in.TargetValue)
	assert.Equal(t, model.GoalStatusPending, in.Status)

	edit := GoalBindingsFrom(model.Goal{ID: "g1", User: model.UserRef{ID: "u1"}, Title: "x", DueDate: time.Now(), TargetValue: 3})
	_, err = edit.Input()
	assert.Error(t, err, "editing requires a start date")

	b.TargetValue = "0"
	_, err = b.Input()
	assert.Error(t, err)
}

func TestProgressBindingsFor(t *testing.T) {
	plain := ProgressBindingsFor(model.Task{Progress: 42.6})
	assert.Equal(t, WholeTask, plain.Target)
	assert.Equal(t, "43", plain.Value)

	withSubtasks := ProgressBindingsFor(model.Task{Subtasks: []model.Subtask{{ID: "s1", Progress: 10}}})
	assert.Equal(t, "s1", withSubtasks.Target)
	assert.Equal(t, "10", withSubtasks.Value)

	_, err := (&ProgressBindings{Value: "101"}).Percent()
	assert.Error(t, err)
	v, err := (&ProgressBindings{Value: " 55.5 "}).Percent()
	require.NoError(t, err)
	assert.Equal(t, 55.5, v)
}

func TestAccountBindings(t *testing.T) {
	reg := NewRegisterBindings()
	reg.Username, reg.Email, reg.Password, reg.Repeat = "cy", "cy@corp.io", "pw", "pw2"
	_, err := reg.Input()
	assert.Error(t, err)

	reg.Repeat = "pw"
	in, err := reg.Input()
	require.NoError(t, err)
	assert.Equal(t, model.RoleStaff, in.Role)

	_, err = (&PasswordBindings{Current: "a", New: "b", Repeat: "c"}).Input()
	assert.Error(t, err)

	_, err = (&ProfileBindings{Username: "ana", Email: "nope"}).Input()
	assert.Error(t, err)
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "In progress", StatusLabel(model.StatusInProgress))
	assert.Equal(t, "archived", StatusLabel("archived"))
}
