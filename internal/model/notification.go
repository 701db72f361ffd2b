package model

import "time"

// Notification kinds.
const (
	NotificationTaskAssigned = "task_assigned"
	NotificationNewMessage   = "new_message"
)

// Notification is a local notice about activity on a task.
type Notification struct {
	ID     string `json:"id" db:"id"`
	Kind   string `json:"kind" db:"kind"`
	TaskID string `json:"task_id" db:"task_id"`

	// Message is the human-readable notification text.
	Message string `json:"message" db:"message"`

	Read      bool      `json:"read" db:"read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
