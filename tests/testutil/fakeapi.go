package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// RecordedRequest is a request the fake API received.
type RecordedRequest struct {
	Method      string
	Path        string
	Query       string
	Auth        string
	ContentType string
	Body        []byte
}

// RoomEvent is a realtime frame the fake API received from a client.
type RoomEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// FakeAPI is an in-process stand-in for the project-management server. It
// serves canned JSON on registered routes, enforces a bearer token when one
// is set, and runs a room hub on /ws that relays newMessage frames to every
// member of the room, sender included.
type FakeAPI struct {
	Echo   *echo.Echo
	Server *httptest.Server

	mu       sync.Mutex
	token    string
	requests []RecordedRequest
	events   []RoomEvent
	rooms    map[string]map[*hubConn]bool
	conns    map[*hubConn]bool
}

type hubConn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *hubConn) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// NewFakeAPI starts a fake server that is shut down when the test ends.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		rooms: make(map[string]map[*hubConn]bool),
		conns: make(map[*hubConn]bool),
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(f.record, f.auth)
	e.GET("/ws", f.serveWS)
	f.Echo = e
	f.Server = httptest.NewServer(e)

	t.Cleanup(func() {
		f.mu.Lock()
		for c := range f.conns {
			c.ws.Close()
		}
		f.mu.Unlock()
		f.Server.Close()
	})
	return f
}

// URL returns the server root URL.
func (f *FakeAPI) URL() string { return f.Server.URL }

// SocketURL returns the ws:// URL of the room hub.
func (f *FakeAPI) SocketURL() string {
	return "ws" + strings.TrimPrefix(f.Server.URL, "http") + "/ws"
}

// RequireToken makes every route answer 401 unless the request carries
// "Bearer <token>". An empty token disables the check.
func (f *FakeAPI) RequireToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

// Reply registers a route that answers with status and body encoded as JSON.
// A nil body produces an empty response.
func (f *FakeAPI) Reply(method, path string, status int, body interface{}) {
	f.Echo.Add(method, path, func(c echo.Context) error {
		if body == nil {
			return c.NoContent(status)
		}
		return c.JSON(status, body)
	})
}

// ReplyRaw registers a route that answers with a raw JSON string.
func (f *FakeAPI) ReplyRaw(method, path string, status int, raw string) {
	f.Echo.Add(method, path, func(c echo.Context) error {
		return c.Blob(status, echo.MIMEApplicationJSON, []byte(raw))
	})
}

// Handle registers a custom handler.
func (f *FakeAPI) Handle(method, path string, h echo.HandlerFunc) {
	f.Echo.Add(method, path, h)
}

// Requests returns a copy of the requests received so far, excluding the
// websocket handshake.
func (f *FakeAPI) Requests() []RecordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RecordedRequest(nil), f.requests...)
}

// LastRequest returns the most recent recorded request.
func (f *FakeAPI) LastRequest() (RecordedRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return RecordedRequest{}, false
	}
	return f.requests[len(f.requests)-1], true
}

// Events returns the realtime frames received so far.
func (f *FakeAPI) Events() []RoomEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]RoomEvent(nil), f.events...)
}

// WaitForEvents polls until at least n frames have arrived or the timeout
// elapses, and returns what was received.
func (f *FakeAPI) WaitForEvents(n int, timeout time.Duration) []RoomEvent {
	deadline := time.Now().Add(timeout)
	for {
		ev := f.Events()
		if len(ev) >= n || time.Now().After(deadline) {
			return ev
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// DropConnections closes every open room connection without a close
// frame, as a network failure would.
func (f *FakeAPI) DropConnections() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for c := range f.conns {
		c.ws.Close()
	}
}

// RoomSize returns the number of connections joined to room.
func (f *FakeAPI) RoomSize(room string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rooms[room])
}

// Broadcast sends an event to every member of room, as another client's
// message would arrive.
func (f *FakeAPI) Broadcast(room, event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(map[string]json.RawMessage{
		"event": json.RawMessage(`"` + event + `"`),
		"data":  payload,
	})
	if err != nil {
		return err
	}
	f.mu.Lock()
	members := make([]*hubConn, 0, len(f.rooms[room]))
	for c := range f.rooms[room] {
		members = append(members, c)
	}
	f.mu.Unlock()
	for _, c := range members {
		if err := c.write(frame); err != nil {
			return err
		}
	}
	return nil
}

func (f *FakeAPI) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		if req.URL.Path != "/ws" {
			body, _ := io.ReadAll(req.Body)
			req.Body = io.NopCloser(strings.NewReader(string(body)))
			f.mu.Lock()
			f.requests = append(f.requests, RecordedRequest{
				Method:      req.Method,
				Path:        req.URL.Path,
				Query:       req.URL.RawQuery,
				Auth:        req.Header.Get(echo.HeaderAuthorization),
				ContentType: req.Header.Get(echo.HeaderContentType),
				Body:        body,
			})
			f.mu.Unlock()
		}
		return next(c)
	}
}

func (f *FakeAPI) auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		f.mu.Lock()
		token := f.token
		f.mu.Unlock()
		if token == "" || c.Request().URL.Path == "/api/auth/login" {
			return next(c)
		}
		if c.Request().Header.Get(echo.HeaderAuthorization) != "Bearer "+token {
			return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Not authorized, token failed"})
		}
		return next(c)
	}
}

func (f *FakeAPI) serveWS(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	conn := &hubConn{ws: ws}
	f.mu.Lock()
	f.conns[conn] = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.conns, conn)
		for _, members := range f.rooms {
			delete(members, conn)
		}
		f.mu.Unlock()
		ws.Close()
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return nil
		}
		var frame RoomEvent
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		switch frame.Event {
		case "joinRoom", "leaveRoom":
			var room string
			if json.Unmarshal(frame.Data, &room) != nil {
				continue
			}
			f.mu.Lock()
			if frame.Event == "joinRoom" {
				if f.rooms[room] == nil {
					f.rooms[room] = make(map[*hubConn]bool)
				}
				f.rooms[room][conn] = true
			} else {
				delete(f.rooms[room], conn)
			}
			f.mu.Unlock()
		case "newMessage":
			var msg struct {
				TaskID string `json:"taskId"`
			}
			if json.Unmarshal(frame.Data, &msg) != nil {
				continue
			}
			var payload interface{}
			_ = json.Unmarshal(frame.Data, &payload)
			_ = f.Broadcast(msg.TaskID, "newMessage", payload)
		}

		// Recorded after handling so RoomSize already reflects a join
		// once WaitForEvents returns it.
		f.mu.Lock()
		f.events = append(f.events, frame)
		f.mu.Unlock()
	}
}
