package model

import "time"

// ChatMessage is one entry in a task's activity feed.
type ChatMessage struct {
	ID     string  `json:"id"`
	TaskID string  `json:"task_id"`
	Sender UserRef `json:"sender"`

	Content string `json:"content"`

	// Attachments holds server-side file names in upload order.
	Attachments []string `json:"attachments,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
