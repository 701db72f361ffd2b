package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nhle/pmsterm/internal/model"
	"github.com/nhle/pmsterm/internal/store"
)

// NewTestStore opens an empty in-memory snapshot store, migrated and
// closed again when the test ends.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err, "opening snapshot store")
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing snapshot store: %v", err)
		}
	})
	return s
}

// Seed is the snapshot a test starts from. Tasks are filed under their
// Board.ID, the way a sync writes them.
type Seed struct {
	Boards []model.Board
	Tasks  []model.Task
	Users  []model.User
}

// NewSeededStore opens a test store holding seed.
func NewSeededStore(t *testing.T, seed Seed) *store.SQLiteStore {
	t.Helper()
	ctx := context.Background()
	s := NewTestStore(t)

	if len(seed.Boards) > 0 {
		require.NoError(t, s.ReplaceBoards(ctx, seed.Boards), "seeding boards")
	}
	byBoard := make(map[string][]model.Task)
	var order []string
	for _, task := range seed.Tasks {
		id := task.Board.ID
		if _, ok := byBoard[id]; !ok {
			order = append(order, id)
		}
		byBoard[id] = append(byBoard[id], task)
	}
	for _, id := range order {
		require.NoError(t, s.ReplaceBoardTasks(ctx, id, byBoard[id]), "seeding tasks of board %q", id)
	}
	if len(seed.Users) > 0 {
		require.NoError(t, s.ReplaceUsers(ctx, seed.Users), "seeding users")
	}
	return s
}
