package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nhle/pmsterm/internal/model"
)

// LoginResult is the token and profile returned by a successful login.
type LoginResult struct {
	Token string
	User  model.User
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	const endpoint = "POST /api/auth/login"
	var resp loginResponse
	err := c.post(ctx, "/api/auth/login", map[string]string{"email": email, "password": password}, &resp)
	if err != nil {
		return nil, fmt.Errorf("logging in: %w", err)
	}
	if resp.Token == "" {
		return nil, &SchemaError{Endpoint: endpoint, Field: "token", Reason: "is missing"}
	}
	if resp.User == nil {
		return nil, &SchemaError{Endpoint: endpoint, Field: "user", Reason: "is missing"}
	}
	if err := validateLogin(endpoint, *resp.User); err != nil {
		return nil, err
	}
	return &LoginResult{Token: resp.Token, User: resp.User.toModel()}, nil
}

// Profile fetches the current user. It doubles as the session check.
func (c *Client) Profile(ctx context.Context) (*model.User, error) {
	var u wireUser
	if err := c.get(ctx, "/api/users/profile", &u); err != nil {
		return nil, fmt.Errorf("fetching profile: %w", err)
	}
	if err := validateOne("GET /api/users/profile", u, (*validator).user); err != nil {
		return nil, err
	}
	user := u.toModel()
	return &user, nil
}

// UpdateProfile changes the current user's username and email.
func (c *Client) UpdateProfile(ctx context.Context, in ProfileInput) (*model.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var u wireUser
	body := map[string]string{"username": in.Username, "email": in.Email}
	if err := c.put(ctx, "/api/users/profile", body, &u); err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	if err := validateOne("PUT /api/users/profile", u, (*validator).user); err != nil {
		return nil, err
	}
	user := u.toModel()
	return &user, nil
}

// ChangePassword changes the current user's password and returns the
// server's confirmation message.
func (c *Client) ChangePassword(ctx context.Context, in PasswordChange) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	var resp messageResponse
	body := map[string]string{"currentPassword": in.Current, "newPassword": in.New}
	if err := c.do(ctx, http.MethodPut, "/api/users/change-password", body, &resp); err != nil {
		return "", fmt.Errorf("changing password: %w", err)
	}
	return resp.Message, nil
}

// RequestPasswordReset asks the server to email a reset link.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	if email == "" {
		return "", &ValidationError{Field: "email", Message: "Email is required"}
	}
	var resp messageResponse
	if err := c.post(ctx, "/api/users/forgot-password", map[string]string{"email": email}, &resp); err != nil {
		return "", fmt.Errorf("requesting password reset: %w", err)
	}
	return resp.Message, nil
}

// ResetPassword sets a new password using the token from the reset email.
func (c *Client) ResetPassword(ctx context.Context, token, password, repeat string) (string, error) {
	switch {
	case token == "":
		return "", &ValidationError{Field: "token", Message: "Reset token is required"}
	case password == "":
		return "", &ValidationError{Field: "password", Message: "Password is required"}
	case password != repeat:
		return "", &ValidationError{Field: "repeatPassword", Message: "Passwords do not match"}
	}
	var resp messageResponse
	body := map[string]string{"token": token, "password": password}
	if err := c.post(ctx, "/api/users/reset-password", body, &resp); err != nil {
		return "", fmt.Errorf("resetting password: %w", err)
	}
	return resp.Message, nil
}
