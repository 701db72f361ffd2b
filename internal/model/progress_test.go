package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregateProgress(t *testing.T) {
	tests := []struct {
		name string
		task Task
		want float64
	}{
		{
			name: "no subtasks uses stored progress",
			task: Task{Progress: 37},
			want: 37,
		},
		{
			name: "no subtasks and no progress is zero",
			task: Task{},
			want: 0,
		},
		{
			name: "mean of subtasks",
			task: Task{Progress: 5, Subtasks: []Subtask{{Progress: 0}, {Progress: 50}, {Progress: 100}}},
			want: 50,
		},
		{
			name: "mean is not rounded",
			task: Task{Subtasks: []Subtask{{Progress: 10}, {Progress: 20}, {Progress: 20}}},
			want: 50.0 / 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, AggregateProgress(tt.task), 1e-9)
		})
	}
}

func TestDisplayProgress(t *testing.T) {
	assert.Equal(t, 17, DisplayProgress(50.0/3))
	assert.Equal(t, 67, DisplayProgress(66.5))
	assert.Equal(t, 100, DisplayProgress(100))
}

func TestApplySubtaskProgress_UsesServerAggregate(t *testing.T) {
	task := Task{
		ID:       "t1",
		Progress: 10,
		Subtasks: []Subtask{{ID: "s1", Progress: 0}, {ID: "s2", Progress: 20}},
	}
	server := Task{
		ID:       "t1",
		Progress: 33,
		Subtasks: []Subtask{{ID: "s1", Progress: 45}, {ID: "s2", Progress: 20}},
	}

	ok := ApplySubtaskProgress(&task, "s1", 45, server)

	assert.True(t, ok)
	assert.Equal(t, 45.0, task.Subtasks[0].Progress)
	assert.Equal(t, 33.0, task.Progress, "parent progress comes from the server reply")
}

func TestApplySubtaskProgress_UnknownSubtask(t *testing.T) {
	task := Task{Subtasks: []Subtask{{ID: "s1"}}}
	assert.False(t, ApplySubtaskProgress(&task, "nope", 50, Task{}))
}
