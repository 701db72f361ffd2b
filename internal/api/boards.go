package api

import (
	"context"
	"fmt"
	"net/url"

	"github.com/nhle/pmsterm/internal/model"
)

// ListBoards returns the boards visible to the current user.
func (c *Client) ListBoards(ctx context.Context) ([]model.Board, error) {
	const endpoint = "GET /api/boards"
	var env boardsEnvelope
	if err := c.get(ctx, "/api/boards", &env); err != nil {
		return nil, fmt.Errorf("listing boards: %w", err)
	}
	if env.Boards == nil {
		return nil, &SchemaError{Endpoint: endpoint, Field: "boards", Reason: "is missing"}
	}
	if err := validateBoards(endpoint, *env.Boards); err != nil {
		return nil, err
	}
	return mapSlice(*env.Boards, wireBoard.toModel), nil
}

// CreateBoard creates a board. The slug is derived from the title.
func (c *Client) CreateBoard(ctx context.Context, in BoardInput) (*model.Board, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var b wireBoard
	if err := c.post(ctx, "/api/boards", in.body(), &b); err != nil {
		return nil, fmt.Errorf("creating board: %w", err)
	}
	return checkedBoard("POST /api/boards", b)
}

// UpdateBoard replaces a board's title and members.
func (c *Client) UpdateBoard(ctx context.Context, id string, in BoardInput) (*model.Board, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	path := "/api/boards/" + url.PathEscape(id)
	var b wireBoard
	if err := c.put(ctx, path, in.body(), &b); err != nil {
		return nil, fmt.Errorf("updating board %s: %w", id, err)
	}
	return checkedBoard("PUT "+path, b)
}

// ListBoardTasks returns the tasks of one board.
func (c *Client) ListBoardTasks(ctx context.Context, boardID string) ([]model.Task, error) {
	path := "/api/boards/" + url.PathEscape(boardID) + "/tasks"
	tasks, err := c.listTasks(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("listing tasks of board %s: %w", boardID, err)
	}
	for i := range tasks {
		if tasks[i].Board.ID == "" {
			tasks[i].Board.ID = boardID
		}
	}
	return tasks, nil
}

// CreateTask adds a task to a board.
func (c *Client) CreateTask(ctx context.Context, boardID string, in TaskInput) (*model.Task, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	in.BoardID = boardID
	path := "/api/boards/" + url.PathEscape(boardID) + "/tasks"
	var t wireTask
	if err := c.post(ctx, path, in.body(), &t); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	task, err := checkedTask("POST "+path, t)
	if err != nil {
		return nil, err
	}
	if task.Board.ID == "" {
		task.Board.ID = boardID
	}
	return task, nil
}

func checkedBoard(endpoint string, b wireBoard) (*model.Board, error) {
	if err := validateOne(endpoint, b, (*validator).board); err != nil {
		return nil, err
	}
	board := b.toModel()
	return &board, nil
}
