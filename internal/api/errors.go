package api

import (
	"errors"
	"fmt"
)

// AuthError indicates the server rejected the session token (401/403).
// Views route the user to login when they see it.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("not authorized (%d)", e.StatusCode)
	}
	return fmt.Sprintf("not authorized (%d): %s", e.StatusCode, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// APIError is a non-2xx response other than an auth failure. Message holds
// the server-supplied text when the body carried one.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d) on %s %s: %s", e.StatusCode, e.Method, e.Path, e.Message)
}

// SchemaError reports a response body that did not match the expected
// shape. Endpoint is "METHOD /path"; Field is a dotted path into the body
// and empty when the top-level shape was wrong.
type SchemaError struct {
	Endpoint string
	Field    string
	Reason   string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("unexpected response from %s: %s", e.Endpoint, e.Reason)
	}
	return fmt.Sprintf("unexpected response from %s: %s %s", e.Endpoint, e.Field, e.Reason)
}

// IsSchemaError reports whether err (or any error in its chain) is a SchemaError.
func IsSchemaError(err error) bool {
	var schemaErr *SchemaError
	return errors.As(err, &schemaErr)
}

// UserMessage returns text suitable for an inline error banner: the
// server-supplied message when there is one, else a generic line.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return "Your session has expired. Please log in again."
	}
	if IsSchemaError(err) {
		return "The server returned data in an unexpected format."
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Error()
	}
	return "Something went wrong. Please try again."
}

// ValidationError is returned by request inputs that fail client-side
// checks before anything is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// errorResponse is the error body shape the server uses.
type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (r errorResponse) text() string {
	if r.Message != "" {
		return r.Message
	}
	return r.Error
}
