package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nhle/pmsterm/internal/model"
)

// Attachment is a file uploaded with an activity message.
type Attachment struct {
	Name   string
	Reader io.Reader
}

// OpenAttachments opens each path for upload. Empty files are skipped.
// The returned func closes every opened file.
func OpenAttachments(paths []string) ([]Attachment, func(), error) {
	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}
	var out []Attachment
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("opening attachment: %w", err)
		}
		files = append(files, f)
		info, err := f.Stat()
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("reading attachment %s: %w", p, err)
		}
		if info.Size() == 0 {
			continue
		}
		out = append(out, Attachment{Name: filepath.Base(p), Reader: f})
	}
	return out, closeAll, nil
}

// SendActivityInput is one chat message to post on a task.
type SendActivityInput struct {
	TaskID      string
	Content     string
	SenderID    string
	Attachments []Attachment
}

// SendActivity posts a message as multipart form data and returns the
// stored message, including its server ID, attachment names and timestamp.
func (c *Client) SendActivity(ctx context.Context, in SendActivityInput) (*model.ChatMessage, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, &ValidationError{Field: "content", Message: "Please type a message to continue"}
	}
	if in.TaskID == "" || in.SenderID == "" {
		return nil, &ValidationError{Field: "sender", Message: "A task and sender are required"}
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := [][2]string{{"taskId", in.TaskID}, {"content", content}, {"sender", in.SenderID}}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("writing field %s: %w", f[0], err)
		}
	}
	for _, a := range in.Attachments {
		part, err := mw.CreateFormFile("attachments", a.Name)
		if err != nil {
			return nil, fmt.Errorf("adding attachment %s: %w", a.Name, err)
		}
		if _, err := io.Copy(part, a.Reader); err != nil {
			return nil, fmt.Errorf("copying attachment %s: %w", a.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	path := taskPath(in.TaskID) + "/activity"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var env messageEnvelope
	if err := c.send(req, &env); err != nil {
		return nil, fmt.Errorf("sending message: %w", err)
	}
	endpoint := "POST " + path
	if env.NewMessage == nil {
		return nil, &SchemaError{Endpoint: endpoint, Field: "newMessage", Reason: "is missing"}
	}
	if env.NewMessage.TaskID == "" {
		env.NewMessage.TaskID = in.TaskID
	}
	if err := validateOne(endpoint, *env.NewMessage, (*validator).message); err != nil {
		return nil, err
	}
	msg := env.NewMessage.toModel()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	return &msg, nil
}

// ListActivity returns a task's chat history, oldest first.
func (c *Client) ListActivity(ctx context.Context, taskID string) ([]model.ChatMessage, error) {
	path := taskPath(taskID) + "/activity"
	var msgs []wireMessage
	if err := c.get(ctx, path, &msgs); err != nil {
		return nil, fmt.Errorf("listing activity of task %s: %w", taskID, err)
	}
	for i := range msgs {
		if msgs[i].TaskID == "" {
			msgs[i].TaskID = taskID
		}
	}
	if err := validateMessages("GET "+path, msgs); err != nil {
		return nil, err
	}
	return mapSlice(msgs, wireMessage.toModel), nil
}

// DecodeMessage parses a realtime newMessage payload with the same schema
// and validation as the REST endpoints.
func DecodeMessage(data []byte) (model.ChatMessage, error) {
	var m wireMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return model.ChatMessage{}, &SchemaError{Endpoint: "event newMessage", Reason: err.Error()}
	}
	if err := validateOne("event newMessage", m, (*validator).message); err != nil {
		return model.ChatMessage{}, err
	}
	return m.toModel(), nil
}

// outgoingMessage is the newMessage payload broadcast to a room. The sender
// is sent populated so receivers can render a name without a lookup.
type outgoingMessage struct {
	ID          string         `json:"_id,omitempty"`
	TaskID      string         `json:"taskId"`
	Content     string         `json:"content"`
	Sender      outgoingSender `json:"sender"`
	Attachments []string       `json:"attachments"`
	CreatedAt   string         `json:"createdAt"`
}

type outgoingSender struct {
	ID         string `json:"_id"`
	Username   string `json:"username,omitempty"`
	Department string `json:"department,omitempty"`
}

// EncodeMessage renders m as a realtime newMessage payload.
func EncodeMessage(m model.ChatMessage) ([]byte, error) {
	attachments := m.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	out := outgoingMessage{
		ID:          m.ID,
		TaskID:      m.TaskID,
		Content:     m.Content,
		Sender:      outgoingSender{ID: m.Sender.ID, Username: m.Sender.Username, Department: m.Sender.Department},
		Attachments: attachments,
		CreatedAt:   m.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encoding message: %w", err)
	}
	return data, nil
}
