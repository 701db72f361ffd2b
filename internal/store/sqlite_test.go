package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/pmsterm/internal/model"
	"github.com/nhle/pmsterm/internal/store"
	"github.com/nhle/pmsterm/tests/testutil"
)

func sampleTask(id, boardID string, subtasks ...model.Subtask) model.Task {
	return model.Task{
		ID:        id,
		Title:     "Task " + id,
		Board:     model.BoardRef{ID: boardID, Title: "Board " + boardID},
		Assignees: []model.UserRef{{ID: "u1", Username: "ana"}},
		DueDate:   time.Date(2026, 3, 14, 0, 0, 0, 0, time.Local),
		Priority:  model.PriorityHigh,
		Status:    model.StatusInProgress,
		Progress:  25,
		Subtasks:  subtasks,
	}
}

func TestReplaceBoardTasks_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	require.NoError(t, s.ReplaceBoards(ctx, []model.Board{{ID: "b1", Title: "Launch", Slug: "launch"}}))
	require.NoError(t, s.ReplaceBoardTasks(ctx, "b1", []model.Task{
		sampleTask("t1", "b1",
			model.Subtask{ID: "s1", Title: "Draft", Progress: 40, AssignedTo: model.UserRef{ID: "u2"}},
			model.Subtask{ID: "s2", Title: "Review", Completed: true, Progress: 100},
		),
	}))

	got, err := s.GetTaskByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Board b1", got.Board.Title)
	assert.Equal(t, "ana", got.Assignees[0].Username)
	assert.True(t, model.SameDay(got.DueDate, time.Date(2026, 3, 14, 0, 0, 0, 0, time.Local)))
	require.Len(t, got.Subtasks, 2)
	assert.Equal(t, "s1", got.Subtasks[0].ID)
	assert.Equal(t, "u2", got.Subtasks[0].AssignedTo.ID)
	assert.True(t, got.Subtasks[1].Completed)
	assert.Equal(t, 70.0, model.AggregateProgress(*got))
}

func TestReplaceBoardTasks_OnlyTouchesItsBoard(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	require.NoError(t, s.ReplaceBoards(ctx, []model.Board{{ID: "b1", Title: "A"}, {ID: "b2", Title: "B"}}))
	require.NoError(t, s.ReplaceBoardTasks(ctx, "b1", []model.Task{sampleTask("t1", "b1")}))
	require.NoError(t, s.ReplaceBoardTasks(ctx, "b2", []model.Task{sampleTask("t2", "b2")}))

	// A later refresh of b1 must not disturb b2.
	require.NoError(t, s.ReplaceBoardTasks(ctx, "b1", []model.Task{sampleTask("t3", "b1")}))

	boards, err := s.GetBoards(ctx)
	require.NoError(t, err)
	require.Len(t, boards, 2)
	require.Len(t, boards[0].Tasks, 1)
	assert.Equal(t, "t3", boards[0].Tasks[0].ID)
	require.Len(t, boards[1].Tasks, 1)
	assert.Equal(t, "t2", boards[1].Tasks[0].ID)

	_, err = s.GetTaskByID(ctx, "t1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReplaceBoardTasks_RejectsForeignTask(t *testing.T) {
	s := testutil.NewTestStore(t)
	err := s.ReplaceBoardTasks(context.Background(), "b1", []model.Task{sampleTask("t1", "b2")})
	assert.Error(t, err)
}

func TestGetBoard_EmptyBoardHasNoTasks(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	require.NoError(t, s.ReplaceBoards(ctx, []model.Board{{
		ID: "b1", Title: "Empty", Members: []model.UserRef{{ID: "u1", Username: "ana"}},
	}}))

	b, err := s.GetBoard(ctx, "b1")
	require.NoError(t, err)
	assert.NotNil(t, b.Tasks)
	assert.Empty(t, b.Tasks)
	assert.Equal(t, []string{"u1"}, b.MemberIDs())

	_, err = s.GetBoard(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestReplaceBoards_DropsRemovedBoardsAndTheirTasks(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	require.NoError(t, s.ReplaceBoards(ctx, []model.Board{{ID: "b1", Title: "A"}, {ID: "b2", Title: "B"}}))
	require.NoError(t, s.ReplaceBoardTasks(ctx, "b2", []model.Task{sampleTask("t2", "b2")}))

	require.NoError(t, s.ReplaceBoards(ctx, []model.Board{{ID: "b1", Title: "A renamed"}}))

	boards, err := s.GetBoards(ctx)
	require.NoError(t, err)
	require.Len(t, boards, 1)
	assert.Equal(t, "A renamed", boards[0].Title)

	_, err = s.GetTaskByID(ctx, "t2")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.ReplaceBoards(ctx, nil))
	boards, err = s.GetBoards(ctx)
	require.NoError(t, err)
	assert.Empty(t, boards)
}

func TestUpsertTask_KeepsPositionAndReplacesSubtasks(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	require.NoError(t, s.ReplaceBoardTasks(ctx, "b1", []model.Task{
		sampleTask("t1", "b1", model.Subtask{ID: "s1", Title: "one"}),
		sampleTask("t2", "b1"),
	}))

	updated := sampleTask("t1", "b1")
	updated.Status = model.StatusCompleted
	require.NoError(t, s.UpsertTask(ctx, updated))
	require.NoError(t, s.UpsertTask(ctx, sampleTask("t9", "b1")))

	boardID := "b1"
	tasks, err := s.GetTasks(ctx, store.TaskFilter{BoardID: &boardID, SortBy: "position"})
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	assert.Equal(t, []string{"t1", "t2", "t9"}, []string{tasks[0].ID, tasks[1].ID, tasks[2].ID})
	assert.Equal(t, model.StatusCompleted, tasks[0].Status)
	assert.Empty(t, tasks[0].Subtasks)

	assert.Error(t, s.UpsertTask(ctx, model.Task{}))
}

func TestGetTasks_Filters(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	pending := sampleTask("t1", "b1")
	pending.Status = model.StatusPending
	pending.Title = "Write release notes"
	today := sampleTask("t2", "b1")
	today.IsToday = true
	today.Assignees = []model.UserRef{{ID: "u7"}}
	require.NoError(t, s.ReplaceBoardTasks(ctx, "b1", []model.Task{pending, today}))

	status := model.StatusPending
	got, err := s.GetTasks(ctx, store.TaskFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].ID)

	q := "release"
	got, err = s.GetTasks(ctx, store.TaskFilter{Query: &q})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].ID)

	assignee := "u7"
	got, err = s.GetTasks(ctx, store.TaskFilter{AssigneeID: &assignee})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t2", got[0].ID)

	yes := true
	got, err = s.GetTasks(ctx, store.TaskFilter{Today: &yes})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t2", got[0].ID)
}

func TestDeleteTask(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	require.NoError(t, s.ReplaceBoardTasks(ctx, "b1", []model.Task{
		sampleTask("t1", "b1", model.Subtask{ID: "s1", Title: "one"}),
	}))
	require.NoError(t, s.DeleteTask(ctx, "t1"))
	assert.ErrorIs(t, s.DeleteTask(ctx, "t1"), store.ErrNotFound)
}

func TestUsersAndGoals(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	require.NoError(t, s.ReplaceUsers(ctx, []model.User{
		{ID: "u2", Username: "bo", Role: model.RoleStaff, Department: "4", Active: true},
		{ID: "u1", Username: "ana", Role: model.RoleManager, Department: "3"},
	}))
	users, err := s.GetUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "bo", users[0].Username)
	assert.True(t, users[0].Active)
	assert.True(t, users[1].IsManager())

	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.Local)
	require.NoError(t, s.ReplaceGoals(ctx, "2026-03", []model.Goal{{
		ID: "g1", Title: "Ship", User: model.UserRef{ID: "u1", Department: "3"},
		StartDate: start, TargetValue: 10, RemainingValue: 4, Status: model.GoalStatusInProgress,
	}}))

	goals, err := s.GetGoals(ctx, "2026-03")
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, "3", goals[0].User.Department)
	assert.True(t, goals[0].DueDate.IsZero())
	assert.True(t, model.SameDay(start, goals[0].StartDate))

	goals, err = s.GetGoals(ctx, "2026-04")
	require.NoError(t, err)
	assert.Empty(t, goals)
}

func TestNotifications(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	require.NoError(t, s.CreateNotification(ctx, model.Notification{
		Kind: model.NotificationTaskAssigned, TaskID: "t1", Message: "You were assigned Task t1",
	}))

	has, err := s.HasNotification(ctx, model.NotificationTaskAssigned, "t1")
	require.NoError(t, err)
	assert.True(t, has)

	unread, err := s.GetUnreadNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.NotEmpty(t, unread[0].ID)
	assert.False(t, unread[0].Read)

	require.NoError(t, s.MarkNotificationRead(ctx, unread[0].ID))
	unread, err = s.GetUnreadNotifications(ctx)
	require.NoError(t, err)
	assert.Empty(t, unread)

	assert.ErrorIs(t, s.MarkNotificationRead(ctx, "nope"), store.ErrNotFound)
}
