package api

import (
	"context"
	"fmt"

	"github.com/nhle/pmsterm/internal/model"
)

// ListUsers returns every user account.
func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	const endpoint = "GET /api/users"
	var users []wireUser
	if err := c.get(ctx, "/api/users", &users); err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	if err := validateUsers(endpoint, users); err != nil {
		return nil, err
	}
	return mapSlice(users, wireUser.toModel), nil
}

// RegisterUser creates a user account.
func (c *Client) RegisterUser(ctx context.Context, in RegisterInput) (*model.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var u wireUser
	if err := c.post(ctx, "/api/users/register", in.body(), &u); err != nil {
		return nil, fmt.Errorf("registering user: %w", err)
	}
	if err := validateOne("POST /api/users/register", u, (*validator).user); err != nil {
		return nil, err
	}
	user := u.toModel()
	return &user, nil
}
