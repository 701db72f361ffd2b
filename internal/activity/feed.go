// Package activity holds the per-task chat feed.
package activity

import (
	"sort"
	"strings"
	"time"

	"github.com/nhle/pmsterm/internal/model"
)

// Feed is the ordered message list of one task. A message is kept once:
// messages are keyed by server ID, or by task, sender, timestamp and
// content when a broadcast arrives without an ID. This collapses the echo
// of a client's own broadcast onto the copy it appended after sending.
//
// Feed is not safe for concurrent use; it lives inside a Bubble Tea model.
type Feed struct {
	taskID   string
	messages []model.ChatMessage
	seen     map[string]struct{}
}

// NewFeed returns an empty feed for taskID.
func NewFeed(taskID string) *Feed {
	return &Feed{taskID: taskID, seen: make(map[string]struct{})}
}

// TaskID returns the feed's task.
func (f *Feed) TaskID() string { return f.taskID }

// Merge loads history ahead of the messages already held. Messages that
// arrived live while history was being fetched are kept after it, and
// those the history already contains collapse onto it.
func (f *Feed) Merge(history []model.ChatMessage) {
	live := f.messages
	f.messages = nil
	f.seen = make(map[string]struct{})
	for _, m := range history {
		f.Append(m)
	}
	for _, m := range live {
		f.Append(m)
	}
}

// Append adds m unless it belongs to another task or was already seen.
// It reports whether the message was added.
func (f *Feed) Append(m model.ChatMessage) bool {
	if m.TaskID != f.taskID {
		return false
	}
	content := contentKey(m)
	key := content
	if m.ID != "" {
		key = "id:" + m.ID
	}
	if _, dup := f.seen[key]; dup {
		return false
	}
	f.seen[key] = struct{}{}
	// An ID-less echo of this message must still match it.
	f.seen[content] = struct{}{}
	f.messages = append(f.messages, m)
	return true
}

// Messages returns the feed in append order.
func (f *Feed) Messages() []model.ChatMessage {
	return append([]model.ChatMessage(nil), f.messages...)
}

// Len returns the number of messages.
func (f *Feed) Len() int { return len(f.messages) }

// Sorted returns the feed ordered by creation time, keeping append order
// for equal timestamps.
func (f *Feed) Sorted() []model.ChatMessage {
	out := f.Messages()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func contentKey(m model.ChatMessage) string {
	return strings.Join([]string{
		"msg",
		m.TaskID,
		m.Sender.ID,
		m.CreatedAt.UTC().Format(time.RFC3339Nano),
		m.Content,
	}, "\x00")
}
