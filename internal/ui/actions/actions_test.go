package actions

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/pmsterm/internal/api"
	"github.com/nhle/pmsterm/internal/model"
	"github.com/nhle/pmsterm/internal/ui"
	"github.com/nhle/pmsterm/internal/workflow"
	"github.com/nhle/pmsterm/tests/testutil"
)

func TestHandle(t *testing.T) {
	t.Run("updated task", func(t *testing.T) {
		banner, cmd := Handle(ResultMsg{Action: "Task saved", Task: &model.Task{ID: "t1"}})
		assert.Equal(t, "Task saved", banner)
		require.NotNil(t, cmd)
		msg, ok := cmd().(ui.TaskUpdatedMsg)
		require.True(t, ok)
		assert.Equal(t, "t1", msg.Task.ID)
	})

	t.Run("deleted task", func(t *testing.T) {
		banner, cmd := Handle(ResultMsg{Action: "delete", DeletedID: "t2"})
		assert.Equal(t, "Task deleted", banner)
		require.NotNil(t, cmd)
		assert.Equal(t, ui.TaskDeletedMsg{TaskID: "t2"}, cmd())
	})

	t.Run("plain failure", func(t *testing.T) {
		banner, cmd := Handle(ResultMsg{Action: "status", Err: errors.New("boom")})
		assert.NotEmpty(t, banner)
		assert.Nil(t, cmd)
	})

	t.Run("auth failure", func(t *testing.T) {
		_, cmd := Handle(ResultMsg{Err: &api.AuthError{StatusCode: 401}})
		require.NotNil(t, cmd)
		_, ok := cmd().(ui.AuthExpiredMsg)
		assert.True(t, ok)
	})
}

func TestReopen_RejectsOpenTask(t *testing.T) {
	svc := &ui.Services{Log: zerolog.Nop()}
	cmd := Reopen(svc, model.Task{ID: "t1", Status: model.StatusPending})

	msg, ok := cmd().(ResultMsg)
	require.True(t, ok)
	var terr *workflow.TransitionError
	assert.ErrorAs(t, msg.Err, &terr)
}

func TestChangeStatus_OpensFormWhenTransitionsExist(t *testing.T) {
	svc := &ui.Services{Log: zerolog.Nop()}
	cmd := ChangeStatus(svc, model.Task{ID: "t1", Title: "Ship", Status: model.StatusPending})

	_, ok := cmd().(FormMsg)
	assert.True(t, ok)
}

func TestCandidates(t *testing.T) {
	ctx := context.Background()
	me := model.User{ID: "me", Username: "me"}

	t.Run("board members first", func(t *testing.T) {
		s := testutil.NewSeededStore(t, testutil.Seed{
			Boards: []model.Board{{
				ID: "b1", Title: "Web", Members: []model.UserRef{{ID: "u1", Username: "alice"}},
			}},
			Users: []model.User{{ID: "u2", Username: "bob"}},
		})

		svc := &ui.Services{Store: s, User: me, Log: zerolog.Nop()}
		got := Candidates(ctx, svc, "b1", nil)
		require.Len(t, got, 1)
		assert.Equal(t, "alice", got[0].Username)
	})

	t.Run("directory when board unknown", func(t *testing.T) {
		s := testutil.NewSeededStore(t, testutil.Seed{Users: []model.User{{ID: "u2", Username: "bob"}}})

		svc := &ui.Services{Store: s, User: me, Log: zerolog.Nop()}
		got := Candidates(ctx, svc, "missing", nil)
		require.Len(t, got, 1)
		assert.Equal(t, "u2", got[0].ID)
	})

	t.Run("current assignees plus self", func(t *testing.T) {
		s := testutil.NewTestStore(t)
		svc := &ui.Services{Store: s, User: me, Log: zerolog.Nop()}

		got := Candidates(ctx, svc, "", []model.UserRef{{ID: "u3"}})
		require.Len(t, got, 2)
		assert.Equal(t, "u3", got[0].ID)
		assert.Equal(t, "me", got[1].ID)

		got = Candidates(ctx, svc, "", []model.UserRef{{ID: "me"}})
		assert.Len(t, got, 1)
	})
}
