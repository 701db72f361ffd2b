package model

import "time"

// Task status values as used by the API.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// Statuses lists task statuses in workflow order.
var Statuses = []string{StatusPending, StatusInProgress, StatusCompleted}

// Priority levels shared by tasks and subtasks.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Priorities lists priorities from lowest to highest.
var Priorities = []string{PriorityLow, PriorityMedium, PriorityHigh}

// ValidStatus reports whether s is a known task status.
func ValidStatus(s string) bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

// ValidPriority reports whether p is a known priority. The empty string is
// accepted because the API omits priority on some legacy records.
func ValidPriority(p string) bool {
	if p == "" {
		return true
	}
	for _, v := range Priorities {
		if v == p {
			return true
		}
	}
	return false
}

// Task is a unit of work on a board.
type Task struct {
	// ID is the server-assigned identifier.
	ID string `json:"id"`

	Title       string `json:"title"`
	Description string `json:"description"`

	// Board references the owning board. Title is empty when the API
	// returned an unpopulated reference.
	Board BoardRef `json:"board"`

	Assignees []UserRef `json:"assignees"`

	// DueDate is zero when the task has no due date.
	DueDate time.Time `json:"due_date"`

	// Priority is one of the Priority* constants.
	Priority string `json:"priority"`

	// Status is one of the Status* constants.
	Status string `json:"status"`

	// Progress is the stored task-level percentage (0-100). When the task
	// has subtasks, use AggregateProgress for display instead.
	Progress float64 `json:"progress"`

	// IsToday marks the task as one of the user's tasks for today.
	IsToday bool `json:"is_today"`

	Subtasks []Subtask `json:"subtasks,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Subtask is a child work item of a task with a single assignee.
type Subtask struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	AssignedTo UserRef   `json:"assigned_to"`
	DueDate    time.Time `json:"due_date"`
	Priority   string    `json:"priority"`

	// Completed is the binary completion flag used by the daily view.
	// It is independent of Progress.
	Completed bool `json:"completed"`

	Progress float64 `json:"progress"`
	IsToday  bool    `json:"is_today"`
}

// FindSubtask returns the index of the subtask with the given ID, or -1.
func (t Task) FindSubtask(id string) int {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == id {
			return i
		}
	}
	return -1
}

// IsPastDue reports whether the task's due day is before today and the task
// is not completed.
func (t Task) IsPastDue(now time.Time) bool {
	if t.DueDate.IsZero() || t.Status == StatusCompleted {
		return false
	}
	return Day(t.DueDate).Before(Day(now))
}

// HasAssignee reports whether userID is among the task's assignees.
func (t Task) HasAssignee(userID string) bool {
	for _, a := range t.Assignees {
		if a.ID == userID {
			return true
		}
	}
	return false
}

// AssigneeNames returns the display names of the task's assignees.
func (t Task) AssigneeNames() []string {
	names := make([]string, 0, len(t.Assignees))
	for _, a := range t.Assignees {
		names = append(names, a.DisplayName())
	}
	return names
}
