package model

import (
	"regexp"
	"strings"
)

// Board is a named collection of tasks shared by a set of users.
type Board struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	Slug    string    `json:"slug"`
	Members []UserRef `json:"members"`

	// Tasks is populated by store queries that load a board with its tasks.
	Tasks []Task `json:"tasks,omitempty"`
}

// BoardRef is a board reference embedded in a task.
type BoardRef struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// Ref returns a reference to the board.
func (b Board) Ref() BoardRef {
	return BoardRef{ID: b.ID, Title: b.Title}
}

// MemberIDs returns the IDs of the board's members.
func (b Board) MemberIDs() []string {
	ids := make([]string, 0, len(b.Members))
	for _, m := range b.Members {
		ids = append(ids, m.ID)
	}
	return ids
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Slugify derives a board slug: the lowercased title with each run of
// whitespace replaced by a single hyphen.
func Slugify(title string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "-")
}
