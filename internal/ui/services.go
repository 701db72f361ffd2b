package ui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nhle/pmsterm/internal/api"
	"github.com/nhle/pmsterm/internal/model"
	"github.com/nhle/pmsterm/internal/realtime"
	"github.com/nhle/pmsterm/internal/store"
)

// Rooms is the realtime side of a session: task chat rooms.
type Rooms interface {
	Subscribe(taskID string) (*realtime.Subscription, error)
	Publish(msg model.ChatMessage) error
}

// Services is what a view needs to reach the server and the local
// snapshot during one session.
type Services struct {
	Client *api.Client
	Store  store.Store
	Rooms  Rooms
	User   model.User
	Log    zerolog.Logger
	Now    func() time.Time

	// AssetBase is the server root used to build attachment URLs.
	AssetBase string

	// Resync asks the poller for an immediate refresh. It may be nil.
	Resync func()
}

// RequestSync triggers a refresh of the local snapshot when a poller is
// attached.
func (s Services) RequestSync() {
	if s.Resync != nil {
		s.Resync()
	}
}

// Today returns the current time from the configured clock.
func (s Services) Today() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// AuthExpiredMsg is emitted by any view whose request was rejected with an
// authentication error. The root model routes it to the login view.
type AuthExpiredMsg struct {
	Err error
}

// OpenTaskMsg asks the root model to open the task detail view.
type OpenTaskMsg struct {
	TaskID string
}

// TaskUpdatedMsg is emitted after a mutation returned a fresh task from the
// server. The root model writes it to the store and forwards it to the
// views that show it.
type TaskUpdatedMsg struct {
	Task model.Task
}

// TaskDeletedMsg is emitted after a task was deleted on the server.
type TaskDeletedMsg struct {
	TaskID string
}

// StoreChangedMsg is emitted after the root model wrote to the local
// snapshot. Views that read from the store reload on it.
type StoreChangedMsg struct{}

// CloseMsg asks the root model to leave the current view.
type CloseMsg struct{}

// LogoutMsg asks the root model to end the session.
type LogoutMsg struct{}

// ProfileUpdatedMsg carries the current user after a profile change.
type ProfileUpdatedMsg struct {
	User model.User
}

// CheckAuth returns a command emitting AuthExpiredMsg when err is an
// authentication error, and nil otherwise.
func CheckAuth(err error) tea.Cmd {
	if err == nil || !api.IsAuthError(err) {
		return nil
	}
	return func() tea.Msg { return AuthExpiredMsg{Err: err} }
}

// LocalError is a failure detected on the client before any request was
// sent, such as a rejected status transition. Its text is shown as is.
type LocalError struct {
	Err error
}

func (e *LocalError) Error() string { return e.Err.Error() }

func (e *LocalError) Unwrap() error { return e.Err }

// Local marks err as a client-side failure.
func Local(err error) error {
	if err == nil {
		return nil
	}
	return &LocalError{Err: err}
}

// ErrorText returns the message to show for a failed request.
func ErrorText(err error) string {
	var local *LocalError
	if errors.As(err, &local) {
		return local.Error()
	}
	return api.UserMessage(err)
}

// Loader tracks the in-flight loads of one view. Begin cancels whatever
// the previous load was doing and returns a new generation number. Result
// messages carry that number and are dropped unless Current reports them
// as the latest.
type Loader struct {
	gen    int64
	cancel context.CancelFunc
}

// NewLoader returns an idle Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Begin cancels the previous load and starts a new one.
func (l *Loader) Begin() (context.Context, int64) {
	l.Cancel()
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.gen++
	return ctx, l.gen
}

// Current reports whether gen belongs to the latest load.
func (l *Loader) Current(gen int64) bool {
	return gen == l.gen
}

// Cancel stops the current load, if any. Results it still delivers are
// stale from then on.
func (l *Loader) Cancel() {
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
		l.gen++
	}
}
