package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/pmsterm/internal/model"
)

// The server is document-oriented: identifiers are "_id" and references
// to users and boards arrive either as a bare ID string or as a populated
// object, depending on the endpoint. The ref types below accept exactly
// those two shapes and reject anything else.

// userRef decodes a user reference.
type userRef struct {
	ID         string   `json:"_id"`
	Username   string   `json:"username,omitempty"`
	Email      string   `json:"email,omitempty"`
	Department flexCode `json:"department,omitempty"`
}

func (r *userRef) UnmarshalJSON(data []byte) error {
	type plain userRef
	return decodeRef(data, &r.ID, (*plain)(r))
}

// boardRef decodes a board reference.
type boardRef struct {
	ID    string `json:"_id"`
	Title string `json:"title,omitempty"`
}

func (r *boardRef) UnmarshalJSON(data []byte) error {
	type plain boardRef
	return decodeRef(data, &r.ID, (*plain)(r))
}

// decodeRef fills id from a JSON string, or obj from a JSON object. null
// leaves both untouched.
func decodeRef(data []byte, id *string, obj interface{}) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		return nil
	case len(data) > 0 && data[0] == '"':
		return json.Unmarshal(data, id)
	case len(data) > 0 && data[0] == '{':
		return json.Unmarshal(data, obj)
	}
	return fmt.Errorf("reference must be an id string or an object, got %s", truncate(data))
}

// flexNumber accepts a JSON number or a numeric string. Form-submitted
// records store numbers as strings.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if strings.TrimSpace(s) == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		*n = flexNumber(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*n = flexNumber(f)
	return nil
}

// flexCode accepts a JSON string or integer and keeps it as a string. Roles
// and departments are sent both ways.
type flexCode string

func (c *flexCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = flexCode(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("code must be a string or number, got %s", truncate(data))
	}
	*c = flexCode(n.String())
	return nil
}

// wireTime accepts RFC 3339 timestamps, bare YYYY-MM-DD dates, "" and null.
type wireTime struct {
	time.Time
}

var wireTimeLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// Date returns the calendar date the server meant, as a local Day. Due and
// start dates arrive as UTC midnight.
func (t wireTime) Date() time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return model.Day(t.Time)
}

func (t *wireTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string, got %s", truncate(data))
	}
	if s == "" {
		return nil
	}
	for _, layout := range wireTimeLayouts {
		loc := time.UTC
		if layout == "2006-01-02" {
			loc = time.Local
		}
		if parsed, err := time.ParseInLocation(layout, s, loc); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

type wireUser struct {
	ID         string   `json:"_id"`
	Username   string   `json:"username"`
	Email      string   `json:"email"`
	Role       flexCode `json:"role"`
	Department flexCode `json:"department"`
	Status     *bool    `json:"status"`
}

type wireSubtask struct {
	ID         string     `json:"_id"`
	Title      string     `json:"title"`
	AssignedTo userRef    `json:"assignedTo"`
	DueDate    wireTime   `json:"dueDate"`
	Priority   string     `json:"priority"`
	Completed  bool       `json:"completed"`
	Progress   flexNumber `json:"progress"`
	IsToday    bool       `json:"isToday"`
}

type wireTask struct {
	ID          string        `json:"_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Board       boardRef      `json:"board"`
	Assignees   []userRef     `json:"assignees"`
	DueDate     wireTime      `json:"dueDate"`
	Priority    string        `json:"priority"`
	Status      string        `json:"status"`
	Progress    flexNumber    `json:"progress"`
	IsToday     bool          `json:"isToday"`
	Subtasks    []wireSubtask `json:"subtasks"`
	CreatedAt   wireTime      `json:"createdAt"`
	UpdatedAt   wireTime      `json:"updatedAt"`
}

type wireBoard struct {
	ID    string     `json:"_id"`
	Title string     `json:"title"`
	Slug  string     `json:"slug"`
	Users []userRef  `json:"users"`
	Tasks []wireTask `json:"tasks"`
}

type wireGoal struct {
	ID             string     `json:"_id"`
	UserID         userRef    `json:"userId"`
	TargetTitle    string     `json:"targetTitle"`
	StartDate      wireTime   `json:"startDate"`
	DueDate        wireTime   `json:"dueDate"`
	TargetValue    flexNumber `json:"targetValue"`
	RemainingValue flexNumber `json:"remainingTargetValue"`
	Status         string     `json:"status"`
}

type wireMessage struct {
	ID          string   `json:"_id"`
	TaskID      string   `json:"taskId"`
	Sender      userRef  `json:"sender"`
	Content     string   `json:"content"`
	Attachments []string `json:"attachments"`
	CreatedAt   wireTime `json:"createdAt"`
}

// Envelopes for endpoints that wrap their payload.

type boardsEnvelope struct {
	Boards *[]wireBoard `json:"boards"`
}

type taskEnvelope struct {
	Task *wireTask `json:"task"`
}

type messageEnvelope struct {
	NewMessage *wireMessage `json:"newMessage"`
}

type loginResponse struct {
	Token string    `json:"token"`
	User  *wireUser `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func truncate(b []byte) string {
	const max = 40
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
