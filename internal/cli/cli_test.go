package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/pmsterm/internal/filter"
	"github.com/nhle/pmsterm/internal/model"
)

func parsedTaskCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "tasks"}
	addTaskFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestTaskFilters(t *testing.T) {
	cmd := parsedTaskCmd(t, "--search", "login", "--board", "Web", "--due", "7D", "--open")

	b, err := taskFilters(cmd)
	require.NoError(t, err)
	assert.Equal(t, "login", b.Query)
	assert.Equal(t, "Web", b.Board)
	assert.Equal(t, filter.PresetLast7Days, b.Preset)
	assert.Equal(t, filter.CompletionOpen, b.Completion)
}

func TestTaskFilters_UnknownPreset(t *testing.T) {
	_, err := taskFilters(parsedTaskCmd(t, "--due", "fortnight"))
	assert.ErrorContains(t, err, "fortnight")
}

func TestTaskFilters_ChainAppliesCustomRange(t *testing.T) {
	b, err := taskFilters(parsedTaskCmd(t, "--from", "2024-05-01", "--to", "2024-05-31", "--done"))
	require.NoError(t, err)

	chain, err := b.Chain(time.Date(2024, 6, 1, 9, 0, 0, 0, time.Local))
	require.NoError(t, err)

	tasks := []model.Task{
		{ID: "in", Progress: 100, DueDate: time.Date(2024, 5, 15, 0, 0, 0, 0, time.Local)},
		{ID: "open", Progress: 40, DueDate: time.Date(2024, 5, 15, 0, 0, 0, 0, time.Local)},
		{ID: "late", Progress: 100, DueDate: time.Date(2024, 6, 15, 0, 0, 0, 0, time.Local)},
	}
	got := chain.Apply(tasks)
	require.Len(t, got, 1)
	assert.Equal(t, "in", got[0].ID)
}

func TestTaskFilters_ReversedRange(t *testing.T) {
	b, err := taskFilters(parsedTaskCmd(t, "--from", "2024-05-31", "--to", "2024-05-01"))
	require.NoError(t, err)

	_, err = b.Chain(time.Now())
	assert.Error(t, err)
}

func TestTaskFlags_DoneAndOpenExclusive(t *testing.T) {
	cmd := parsedTaskCmd(t, "--done", "--open")
	assert.Error(t, cmd.ValidateFlagGroups())
}

func TestPrintBoards(t *testing.T) {
	var buf bytes.Buffer
	boards := []model.Board{{
		Title:   "Website",
		Slug:    "website",
		Members: []model.UserRef{{ID: "u1", Username: "alice"}, {ID: "u2"}},
	}}

	require.NoError(t, printBoards(&buf, boards))
	out := buf.String()
	assert.Contains(t, out, "Website")
	assert.Contains(t, out, "alice, u2")
}

func TestPrintEmptyResults(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printBoards(&buf, nil))
	require.NoError(t, printUsers(&buf, nil))
	require.NoError(t, printGoals(&buf, time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local), nil))

	assert.Equal(t, "No boards\nNo users\nNo goals for March 2024\n", buf.String())
}

func TestPrintGoals_Achieved(t *testing.T) {
	var buf bytes.Buffer
	goals := []model.Goal{{
		User:           model.UserRef{Username: "bob"},
		Title:          "Close tickets",
		TargetValue:    40,
		RemainingValue: 12.5,
		Status:         model.GoalStatusInProgress,
	}}

	require.NoError(t, printGoals(&buf, time.Now(), goals))
	assert.Contains(t, buf.String(), "27.5")
	assert.Contains(t, buf.String(), "bob")
}
