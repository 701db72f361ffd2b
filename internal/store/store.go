package store

import (
	"context"
	"errors"

	"github.com/nhle/pmsterm/internal/model"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// TaskFilter controls filtering, sorting, and pagination for task queries.
type TaskFilter struct {
	BoardID    *string
	Status     *string
	AssigneeID *string
	Today      *bool
	Query      *string // title + description
	SortBy     string  // "position", "title", "status", "priority", "due_date", "progress", "updated_at"
	SortDesc   bool
	Limit      int
	Offset     int
}

// Store is the local snapshot of server state. It is rebuilt from API
// responses and never written back to the server.
type Store interface {
	// === Boards ===

	ReplaceBoards(ctx context.Context, boards []model.Board) error
	GetBoards(ctx context.Context) ([]model.Board, error)
	GetBoard(ctx context.Context, id string) (*model.Board, error)

	// === Tasks ===

	ReplaceBoardTasks(ctx context.Context, boardID string, tasks []model.Task) error
	UpsertTask(ctx context.Context, task model.Task) error
	DeleteTask(ctx context.Context, id string) error
	GetTasks(ctx context.Context, opts TaskFilter) ([]model.Task, error)
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)

	// === Directory ===

	ReplaceUsers(ctx context.Context, users []model.User) error
	GetUsers(ctx context.Context) ([]model.User, error)
	ReplaceGoals(ctx context.Context, month string, goals []model.Goal) error
	GetGoals(ctx context.Context, month string) ([]model.Goal, error)

	// === Notifications ===

	CreateNotification(ctx context.Context, n model.Notification) error
	HasNotification(ctx context.Context, kind, taskID string) (bool, error)
	GetUnreadNotifications(ctx context.Context) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
}
