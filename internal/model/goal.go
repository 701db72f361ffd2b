package model

import "time"

// Goal status values.
const (
	GoalStatusPending    = "Pending"
	GoalStatusInProgress = "In Progress"
	GoalStatusCompleted  = "Completed"
)

// GoalStatuses lists goal statuses in order.
var GoalStatuses = []string{GoalStatusPending, GoalStatusInProgress, GoalStatusCompleted}

// Goal is a per-user numeric target tracked independently of boards.
type Goal struct {
	ID             string    `json:"id"`
	User           UserRef   `json:"user"`
	Title          string    `json:"title"`
	StartDate      time.Time `json:"start_date"`
	DueDate        time.Time `json:"due_date"`
	TargetValue    float64   `json:"target_value"`
	RemainingValue float64   `json:"remaining_value"`
	Status         string    `json:"status"`
}
