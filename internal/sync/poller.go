package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/pmsterm/internal/api"
	"github.com/nhle/pmsterm/internal/model"
	"github.com/nhle/pmsterm/internal/store"
)

// SyncState represents the current state of the poller.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

// SyncStatus holds the poller's last known state.
type SyncStatus struct {
	State    SyncState
	LastSync time.Time
	Error    error
}

// SyncResultMsg is a tea.Msg sent when a refresh completes.
type SyncResultMsg struct {
	Generation   int64
	Boards       []model.Board
	NewTaskCount int
	Error        error

	// AuthExpired is set when the server rejected the session token.
	AuthExpired bool
}

// Fetcher is the part of the API client the poller reads from.
type Fetcher interface {
	ListBoards(ctx context.Context) ([]model.Board, error)
	ListBoardTasks(ctx context.Context, boardID string) ([]model.Task, error)
}

const (
	// fetchTimeout is the maximum time allowed for a single refresh.
	fetchTimeout = 30 * time.Second

	defaultInterval = 60 * time.Second

	// maxParallelBoards bounds concurrent per-board task fetches.
	maxParallelBoards = 4
)

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the time between background refreshes.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithUserID enables assignment notifications for userID.
func WithUserID(userID string) Option {
	return func(p *Poller) { p.userID = userID }
}

// WithLogger sets the poller's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Poller) { p.log = l }
}

// Poller refreshes boards and their tasks into the store in the
// background.
type Poller struct {
	store    store.Store
	fetcher  Fetcher
	userID   string
	interval time.Duration
	log      zerolog.Logger

	resultCh  chan SyncResultMsg
	triggerCh chan struct{}
	stopped   chan struct{}
	stopOnce  gosync.Once

	generation atomic.Int64

	mu      gosync.Mutex
	status  SyncStatus
	cancel  context.CancelFunc
	running bool
	primed  bool
}

// New creates a new Poller over s, reading from f.
func New(s store.Store, f Fetcher, opts ...Option) *Poller {
	p := &Poller{
		store:     s,
		fetcher:   f,
		interval:  defaultInterval,
		log:       zerolog.Nop(),
		resultCh:  make(chan SyncResultMsg, 16),
		triggerCh: make(chan struct{}, 1),
		stopped:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the polling goroutine and returns a tea.Cmd that waits
// for the first result. A second Start while running, or any Start after
// Stop, returns nil.
func (p *Poller) Start() tea.Cmd {
	p.mu.Lock()
	if p.running || p.isStopped() {
		p.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.running = true
	p.mu.Unlock()

	go p.loop(ctx)

	return p.waitForResult()
}

// Stop halts polling, cancels any refresh in flight and releases every
// pending result wait. A stopped Poller cannot be restarted.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopped) })

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}

	p.cancel()
	p.running = false
}

func (p *Poller) isStopped() bool {
	select {
	case <-p.stopped:
		return true
	default:
		return false
	}
}

// Refresh asks for an immediate refresh. Requests made while one is
// already queued are merged.
func (p *Poller) Refresh() tea.Cmd {
	select {
	case p.triggerCh <- struct{}{}:
	default:
	}
	return nil
}

// Generation returns the number of the most recently started refresh.
func (p *Poller) Generation() int64 {
	return p.generation.Load()
}

// Current reports whether msg comes from the latest refresh. Results of
// superseded refreshes should be dropped.
func (p *Poller) Current(msg SyncResultMsg) bool {
	return msg.Generation == p.Generation()
}

// Status returns the poller's current sync status.
func (p *Poller) Status() SyncStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Poller) loop(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx)
		case <-p.triggerCh:
			p.refresh(ctx)
		}
	}
}

// refresh performs one full refresh and reports the result unless the
// poller was stopped meanwhile.
func (p *Poller) refresh(parent context.Context) {
	gen := p.generation.Add(1)
	p.setStatus(SyncRunning, nil)

	ctx, cancel := context.WithTimeout(parent, fetchTimeout)
	defer cancel()

	msg := p.sync(ctx)
	msg.Generation = gen

	if parent.Err() != nil {
		p.log.Debug().Int64("generation", gen).Msg("refresh cancelled")
		return
	}

	if msg.Error != nil {
		p.setStatus(SyncError, msg.Error)
		p.log.Warn().Err(msg.Error).Int64("generation", gen).Msg("refresh failed")
	} else {
		p.setStatus(SyncIdle, nil)
		p.log.Debug().Int64("generation", gen).Int("boards", len(msg.Boards)).Msg("refresh done")
	}

	p.sendResult(msg)
}

func (p *Poller) sync(ctx context.Context) SyncResultMsg {
	known, err := p.knownTaskIDs(ctx)
	if err != nil {
		return SyncResultMsg{Error: err}
	}

	boards, err := p.fetcher.ListBoards(ctx)
	if err != nil {
		return failure(err)
	}
	if err := p.store.ReplaceBoards(ctx, boards); err != nil {
		return SyncResultMsg{Error: err}
	}

	// Each board writes only its own rows, so completion order does not
	// matter.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelBoards)
	for _, b := range boards {
		boardID := b.ID
		g.Go(func() error {
			tasks, err := p.fetcher.ListBoardTasks(gctx, boardID)
			if err != nil {
				return fmt.Errorf("board %s: %w", boardID, err)
			}
			return p.store.ReplaceBoardTasks(gctx, boardID, tasks)
		})
	}
	if err := g.Wait(); err != nil {
		return failure(err)
	}

	stored, err := p.store.GetBoards(ctx)
	if err != nil {
		return SyncResultMsg{Error: err}
	}

	newCount, err := p.notifyAssigned(ctx, stored, known)
	if err != nil {
		p.log.Warn().Err(err).Msg("creating notifications")
	}

	return SyncResultMsg{Boards: stored, NewTaskCount: newCount}
}

func failure(err error) SyncResultMsg {
	return SyncResultMsg{Error: err, AuthExpired: api.IsAuthError(err)}
}

func (p *Poller) knownTaskIDs(ctx context.Context) (map[string]bool, error) {
	tasks, err := p.store.GetTasks(ctx, store.TaskFilter{})
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		ids[t.ID] = true
	}
	return ids, nil
}

// notifyAssigned records a notification for every task assigned to the
// current user that was not in the store before this refresh. The first
// refresh only seeds the store.
func (p *Poller) notifyAssigned(
	ctx context.Context,
	boards []model.Board,
	known map[string]bool,
) (int, error) {
	p.mu.Lock()
	primed := p.primed
	p.primed = true
	p.mu.Unlock()

	if p.userID == "" || !primed {
		return 0, nil
	}

	count := 0
	for _, b := range boards {
		for _, t := range b.Tasks {
			if known[t.ID] || !t.HasAssignee(p.userID) {
				continue
			}
			exists, err := p.store.HasNotification(ctx, model.NotificationTaskAssigned, t.ID)
			if err != nil {
				return count, err
			}
			if exists {
				continue
			}
			err = p.store.CreateNotification(ctx, model.Notification{
				Kind:    model.NotificationTaskAssigned,
				TaskID:  t.ID,
				Message: fmt.Sprintf("New task on %s: %s", b.Title, t.Title),
			})
			if err != nil {
				return count, err
			}
			count++
		}
	}

	return count, nil
}

func (p *Poller) setStatus(state SyncState, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.status.State = state
	p.status.Error = err
	if state == SyncIdle {
		p.status.LastSync = time.Now()
	}
}

// sendResult sends a SyncResultMsg on the result channel without blocking.
func (p *Poller) sendResult(msg SyncResultMsg) {
	select {
	case p.resultCh <- msg:
	default:
		p.log.Debug().Int64("generation", msg.Generation).Msg("result queue full, dropping")
	}
}

// waitForResult delivers the next result, or nil once the poller is
// stopped.
func (p *Poller) waitForResult() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-p.resultCh:
			return msg
		case <-p.stopped:
			return nil
		}
	}
}

// WaitForNextResult returns a tea.Cmd that waits for the next sync result.
// Call it after handling each SyncResultMsg to keep listening.
func (p *Poller) WaitForNextResult() tea.Cmd {
	return p.waitForResult()
}
