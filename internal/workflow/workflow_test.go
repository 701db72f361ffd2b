package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/pmsterm/internal/model"
)

func TestAvailableTransitions(t *testing.T) {
	tests := []struct {
		name string
		task model.Task
		want []string
	}{
		{
			name: "pending can start",
			task: model.Task{Status: model.StatusPending},
			want: []string{model.StatusInProgress},
		},
		{
			name: "in progress at 90 cannot complete",
			task: model.Task{Status: model.StatusInProgress, Progress: 90},
			want: []string{model.StatusPending},
		},
		{
			name: "in progress above 90 can complete",
			task: model.Task{Status: model.StatusInProgress, Progress: 91},
			want: []string{model.StatusPending, model.StatusCompleted},
		},
		{
			name: "subtask aggregate governs completion",
			task: model.Task{
				Status:   model.StatusInProgress,
				Progress: 100,
				Subtasks: []model.Subtask{{Progress: 100}, {Progress: 80}},
			},
			want: []string{model.StatusPending},
		},
		{
			name: "completed can reopen or go back to pending",
			task: model.Task{Status: model.StatusCompleted, Progress: 100},
			want: []string{model.StatusPending, model.StatusInProgress},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AvailableTransitions(tt.task))
		})
	}
}

func TestTransition_RejectsCompletionAtOrBelowThreshold(t *testing.T) {
	task := model.Task{Status: model.StatusInProgress, Subtasks: []model.Subtask{{Progress: 90}, {Progress: 90}}}

	err := Transition(&task, model.StatusCompleted)

	var te *TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, model.StatusInProgress, task.Status)
	assert.Contains(t, te.Error(), "does not exceed 90%")
}

func TestTransition_PendingAlwaysAllowed(t *testing.T) {
	for _, from := range []string{model.StatusInProgress, model.StatusCompleted} {
		task := model.Task{Status: from, Progress: 40}
		require.NoError(t, Transition(&task, model.StatusPending))
		assert.Equal(t, model.StatusPending, task.Status)
		assert.Equal(t, 40.0, task.Progress)
	}
}

func TestReopen(t *testing.T) {
	task := model.Task{Status: model.StatusCompleted, Progress: 100}

	require.NoError(t, Reopen(&task))

	assert.Equal(t, model.StatusInProgress, task.Status)
	assert.Equal(t, 90.0, task.Progress)

	err := Reopen(&task)
	var te *TransitionError
	assert.ErrorAs(t, err, &te)
}

func TestTransition_UnknownStatus(t *testing.T) {
	task := model.Task{Status: model.StatusPending}
	assert.Error(t, Transition(&task, "archived"))
}
