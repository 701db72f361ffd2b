package api

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/nhle/pmsterm/internal/model"
)

// ListGoals returns goals for the calendar month containing month.
func (c *Client) ListGoals(ctx context.Context, month time.Time) ([]model.Goal, error) {
	path := "/api/goals?month=" + url.QueryEscape(month.Format("2006-01"))
	var goals []wireGoal
	if err := c.get(ctx, path, &goals); err != nil {
		return nil, fmt.Errorf("listing goals: %w", err)
	}
	if err := validateGoals("GET /api/goals", goals); err != nil {
		return nil, err
	}
	return mapSlice(goals, wireGoal.toModel), nil
}

// CreateGoal creates a goal.
func (c *Client) CreateGoal(ctx context.Context, in GoalInput) (*model.Goal, error) {
	if err := in.Validate(false); err != nil {
		return nil, err
	}
	var g wireGoal
	if err := c.post(ctx, "/api/goals", in.body(), &g); err != nil {
		return nil, fmt.Errorf("creating goal: %w", err)
	}
	return checkedGoal("POST /api/goals", g)
}

// UpdateGoal replaces a goal's fields.
func (c *Client) UpdateGoal(ctx context.Context, id string, in GoalInput) (*model.Goal, error) {
	if err := in.Validate(true); err != nil {
		return nil, err
	}
	path := "/api/goals/" + url.PathEscape(id)
	var g wireGoal
	if err := c.put(ctx, path, in.body(), &g); err != nil {
		return nil, fmt.Errorf("updating goal %s: %w", id, err)
	}
	return checkedGoal("PUT "+path, g)
}

func checkedGoal(endpoint string, g wireGoal) (*model.Goal, error) {
	if err := validateOne(endpoint, g, (*validator).goal); err != nil {
		return nil, err
	}
	goal := g.toModel()
	return &goal, nil
}
