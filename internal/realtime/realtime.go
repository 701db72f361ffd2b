// Package realtime maintains the per-session WebSocket connection used for
// task chat rooms.
//
// A Manager owns one connection. Connect opens it at session start and
// Close tears it down at session end. Views call Subscribe(taskID) to join
// a task's room and receive its messages; the returned Subscription is
// released with Close, which leaves the room once no other subscriber
// remains. Join and leave are fire-and-forget: no acknowledgement is
// awaited.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/nhle/pmsterm/internal/api"
	"github.com/nhle/pmsterm/internal/model"
)

// Event names exchanged with the server.
const (
	EventJoinRoom   = "joinRoom"
	EventLeaveRoom  = "leaveRoom"
	EventNewMessage = "newMessage"
)

const (
	// subscriptionBuffer is the number of undelivered messages a
	// subscription holds before new ones are dropped.
	subscriptionBuffer = 64

	writeTimeout = 10 * time.Second

	// CloseMessageCode is the close frame status sent on Close.
	CloseMessageCode = websocket.CloseNormalClosure
)

var (
	ErrNotConnected = errors.New("realtime: not connected")
	ErrClosed       = errors.New("realtime: connection closed")
)

// envelope is one frame on the wire.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l.With().Str("component", "realtime").Logger() }
}

// WithDialer replaces the default websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(m *Manager) { m.dialer = d }
}

// Manager owns the realtime connection and its room subscriptions.
type Manager struct {
	url    string
	dialer *websocket.Dialer
	log    zerolog.Logger

	// connLock serializes writes; gorilla allows one concurrent writer.
	connLock sync.Mutex
	conn     *websocket.Conn

	mu    sync.Mutex
	rooms map[string]map[*Subscription]struct{}
	done  chan struct{}
}

// NewManager returns a disconnected manager for the given ws:// or wss://
// URL.
func NewManager(url string, opts ...Option) *Manager {
	m := &Manager{
		url:    url,
		dialer: websocket.DefaultDialer,
		log:    zerolog.Nop(),
		rooms:  make(map[string]map[*Subscription]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect dials the server, authenticating with token, and starts the
// reader. Rooms that already have subscribers are re-joined, so Connect
// may be called again after the connection drops.
func (m *Manager) Connect(ctx context.Context, token string) error {
	m.mu.Lock()
	if m.conn != nil {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := m.dialer.DialContext(ctx, m.url, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return &api.AuthError{StatusCode: resp.StatusCode, Message: "realtime handshake rejected"}
		}
		return fmt.Errorf("connecting to %s: %w", m.url, err)
	}

	m.mu.Lock()
	if m.conn != nil {
		m.mu.Unlock()
		conn.Close()
		return nil
	}
	m.conn = conn
	m.done = make(chan struct{})
	rooms := make([]string, 0, len(m.rooms))
	for room := range m.rooms {
		rooms = append(rooms, room)
	}
	done := m.done
	m.mu.Unlock()

	go m.readLoop(conn, done)

	for _, room := range rooms {
		if err := m.emit(EventJoinRoom, room); err != nil {
			m.log.Warn().Err(err).Str("room", room).Msg("rejoining room")
		}
	}
	m.log.Info().Str("url", m.url).Msg("connected")
	return nil
}

// Connected reports whether the connection is open.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

// Done returns a channel closed when the current connection ends, whether
// it dropped or was closed. It is nil while disconnected.
func (m *Manager) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return nil
	}
	return m.done
}

// Close sends a close frame, shuts the connection, and ends every
// subscription. It is safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	conn, done := m.conn, m.done
	m.mu.Unlock()
	if conn == nil {
		m.closeAllSubscriptions()
		return nil
	}

	m.connLock.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	werr := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(CloseMessageCode, ""))
	m.connLock.Unlock()

	err := conn.Close()
	<-done
	m.closeAllSubscriptions()

	if werr != nil && !errors.Is(werr, websocket.ErrCloseSent) {
		return fmt.Errorf("closing realtime connection: %w", werr)
	}
	if err != nil {
		return fmt.Errorf("closing realtime connection: %w", err)
	}
	return nil
}

// Subscribe joins the room for taskID and returns a handle that receives
// the room's new messages. Several subscriptions may share a room; the
// server is told to join only for the first.
func (m *Manager) Subscribe(taskID string) (*Subscription, error) {
	if taskID == "" {
		return nil, errors.New("realtime: empty task id")
	}
	m.mu.Lock()
	if m.conn == nil {
		m.mu.Unlock()
		return nil, ErrNotConnected
	}
	sub := &Subscription{
		taskID: taskID,
		ch:     make(chan model.ChatMessage, subscriptionBuffer),
		m:      m,
	}
	members, ok := m.rooms[taskID]
	if !ok {
		members = make(map[*Subscription]struct{})
		m.rooms[taskID] = members
	}
	members[sub] = struct{}{}
	first := len(members) == 1
	m.mu.Unlock()

	if first {
		if err := m.emit(EventJoinRoom, taskID); err != nil {
			m.release(sub)
			return nil, fmt.Errorf("joining room %s: %w", taskID, err)
		}
		m.log.Debug().Str("room", taskID).Msg("joined room")
	}
	return sub, nil
}

// Publish broadcasts msg to its task's room.
func (m *Manager) Publish(msg model.ChatMessage) error {
	data, err := api.EncodeMessage(msg)
	if err != nil {
		return err
	}
	return m.emitRaw(EventNewMessage, data)
}

// release removes sub from its room and reports whether the room is now
// empty.
func (m *Manager) release(sub *Subscription) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	members, ok := m.rooms[sub.taskID]
	if !ok {
		return false
	}
	if _, ok := members[sub]; !ok {
		return false
	}
	delete(members, sub)
	sub.closeChannel()
	if len(members) == 0 {
		delete(m.rooms, sub.taskID)
		return true
	}
	return false
}

func (m *Manager) emit(event string, data interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", event, err)
	}
	return m.emitRaw(event, raw)
}

func (m *Manager) emitRaw(event string, data json.RawMessage) error {
	frame, err := json.Marshal(envelope{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("encoding %s frame: %w", event, err)
	}

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	m.connLock.Lock()
	defer m.connLock.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("writing %s: %w", event, err)
	}
	return nil
}

// readLoop dispatches incoming frames until the connection fails or is
// closed, then marks the manager disconnected.
func (m *Manager) readLoop(conn *websocket.Conn, done chan struct{}) {
	defer func() {
		m.mu.Lock()
		if m.conn == conn {
			m.conn = nil
		}
		m.mu.Unlock()
		close(done)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !errors.Is(err, net.ErrClosed) {
				m.log.Warn().Err(err).Msg("realtime read failed")
			}
			return
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			m.log.Warn().Err(err).Msg("dropping malformed frame")
			continue
		}
		if env.Event != EventNewMessage {
			m.log.Debug().Str("event", env.Event).Msg("ignoring event")
			continue
		}
		msg, err := api.DecodeMessage(env.Data)
		if err != nil {
			m.log.Warn().Err(err).Msg("dropping invalid message")
			continue
		}
		m.dispatch(msg)
	}
}

func (m *Manager) dispatch(msg model.ChatMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for sub := range m.rooms[msg.TaskID] {
		select {
		case sub.ch <- msg:
		default:
			m.log.Warn().Str("room", msg.TaskID).Msg("subscription full, dropping message")
		}
	}
}

func (m *Manager) closeAllSubscriptions() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for room, members := range m.rooms {
		for sub := range members {
			sub.closeChannel()
		}
		delete(m.rooms, room)
	}
}

// Subscription is a disposable membership of one task room.
type Subscription struct {
	taskID string
	ch     chan model.ChatMessage
	m      *Manager

	closeOnce sync.Once
	chOnce    sync.Once
}

// TaskID returns the room's task identifier.
func (s *Subscription) TaskID() string { return s.taskID }

// Messages delivers the room's new messages. It is closed when the
// subscription or its Manager is closed.
func (s *Subscription) Messages() <-chan model.ChatMessage { return s.ch }

// Close leaves the room if this was its last subscriber. Calling Close more
// than once has no further effect.
func (s *Subscription) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.m.release(s) {
			if e := s.m.emit(EventLeaveRoom, s.taskID); e != nil && !errors.Is(e, ErrNotConnected) {
				err = fmt.Errorf("leaving room %s: %w", s.taskID, e)
			}
		}
	})
	return err
}

func (s *Subscription) closeChannel() {
	s.chOnce.Do(func() { close(s.ch) })
}
