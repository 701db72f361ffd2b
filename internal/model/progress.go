package model

import "math"

// AggregateProgress returns the displayed completion percentage of a task.
// With subtasks it is the unweighted mean of their progress; otherwise it
// is the task's stored progress. The result is not rounded.
func AggregateProgress(t Task) float64 {
	if len(t.Subtasks) == 0 {
		return t.Progress
	}
	var sum float64
	for _, s := range t.Subtasks {
		sum += s.Progress
	}
	return sum / float64(len(t.Subtasks))
}

// DisplayProgress rounds an aggregate for rendering.
func DisplayProgress(p float64) int {
	return int(math.Round(p))
}

// ApplySubtaskProgress records a subtask progress update on t. The parent
// task's stored progress is taken from the server's reply rather than
// recomputed, so client and server rounding cannot drift.
func ApplySubtaskProgress(t *Task, subtaskID string, value float64, server Task) bool {
	i := t.FindSubtask(subtaskID)
	if i < 0 {
		return false
	}
	t.Subtasks[i].Progress = value
	if j := server.FindSubtask(subtaskID); j >= 0 {
		t.Subtasks[i].Progress = server.Subtasks[j].Progress
	}
	t.Progress = server.Progress
	return true
}
