package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/pmsterm/internal/api"
	"github.com/nhle/pmsterm/internal/model"
	"github.com/nhle/pmsterm/tests/testutil"
)

const waitFor = 2 * time.Second

func connected(t *testing.T) (*Manager, *testutil.FakeAPI) {
	t.Helper()
	fake := testutil.NewFakeAPI(t)
	fake.RequireToken("tok")
	m := NewManager(fake.SocketURL())
	require.NoError(t, m.Connect(context.Background(), "tok"))
	t.Cleanup(func() { m.Close() })
	return m, fake
}

func eventNames(events []testutil.RoomEvent) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		var room string
		_ = json.Unmarshal(e.Data, &room)
		out = append(out, e.Event+":"+room)
	}
	return out
}

func receive(t *testing.T, sub *Subscription) model.ChatMessage {
	t.Helper()
	select {
	case msg, ok := <-sub.Messages():
		require.True(t, ok, "subscription closed")
		return msg
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for message")
	}
	return model.ChatMessage{}
}

func TestSubscribe_JoinAndLeaveOnce(t *testing.T) {
	m, fake := connected(t)

	sub, err := m.Subscribe("t1")
	require.NoError(t, err)
	fake.WaitForEvents(1, waitFor)
	assert.Equal(t, 1, fake.RoomSize("t1"))

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	fake.WaitForEvents(2, waitFor)
	time.Sleep(50 * time.Millisecond)
	events := fake.Events()
	assert.Equal(t, []string{"joinRoom:t1", "leaveRoom:t1"}, eventNames(events))

	_, open := <-sub.Messages()
	assert.False(t, open)
}

func TestSubscribe_SharedRoomLeavesAfterLastSubscriber(t *testing.T) {
	m, fake := connected(t)

	a, err := m.Subscribe("t1")
	require.NoError(t, err)
	b, err := m.Subscribe("t1")
	require.NoError(t, err)

	require.NoError(t, a.Close())
	fake.WaitForEvents(1, waitFor)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"joinRoom:t1"}, eventNames(fake.Events()))

	require.NoError(t, b.Close())
	assert.Equal(t, []string{"joinRoom:t1", "leaveRoom:t1"}, eventNames(fake.WaitForEvents(2, waitFor)))
}

func TestPublish_EchoReachesOwnSubscription(t *testing.T) {
	m, fake := connected(t)
	sub, err := m.Subscribe("t1")
	require.NoError(t, err)
	fake.WaitForEvents(1, waitFor)

	sent := model.ChatMessage{
		ID:          "m1",
		TaskID:      "t1",
		Sender:      model.UserRef{ID: "u1", Username: "ana"},
		Content:     "hello room",
		Attachments: []string{"brief.pdf"},
		CreatedAt:   time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, m.Publish(sent))

	got := receive(t, sub)
	assert.Equal(t, "m1", got.ID)
	assert.Equal(t, "hello room", got.Content)
	assert.Equal(t, "ana", got.Sender.Username)
	assert.Equal(t, []string{"brief.pdf"}, got.Attachments)
}

func TestDispatch_OnlyMatchingRoom(t *testing.T) {
	m, fake := connected(t)
	sub1, err := m.Subscribe("t1")
	require.NoError(t, err)
	sub2, err := m.Subscribe("t2")
	require.NoError(t, err)
	fake.WaitForEvents(2, waitFor)

	require.NoError(t, fake.Broadcast("t2", EventNewMessage, map[string]interface{}{
		"_id": "m9", "taskId": "t2", "sender": "u7", "content": "for t2",
	}))

	got := receive(t, sub2)
	assert.Equal(t, "for t2", got.Content)
	assert.Equal(t, "u7", got.Sender.ID)

	select {
	case msg := <-sub1.Messages():
		t.Fatalf("unexpected message on t1: %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDispatch_DropsInvalidPayload(t *testing.T) {
	m, fake := connected(t)
	sub, err := m.Subscribe("t1")
	require.NoError(t, err)
	fake.WaitForEvents(1, waitFor)

	require.NoError(t, fake.Broadcast("t1", EventNewMessage, map[string]interface{}{"taskId": "t1", "sender": 5}))
	require.NoError(t, fake.Broadcast("t1", EventNewMessage, map[string]interface{}{"taskId": "t1", "content": "valid"}))

	assert.Equal(t, "valid", receive(t, sub).Content)
}

func TestSubscribe_NotConnected(t *testing.T) {
	m := NewManager("ws://127.0.0.1:1/ws")
	_, err := m.Subscribe("t1")
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.ErrorIs(t, m.Publish(model.ChatMessage{TaskID: "t1"}), ErrNotConnected)
}

func TestConnect_RejectedToken(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.RequireToken("right")

	err := NewManager(fake.SocketURL()).Connect(context.Background(), "wrong")

	assert.True(t, api.IsAuthError(err))
}

func TestClose_EndsSubscriptions(t *testing.T) {
	m, _ := connected(t)
	sub, err := m.Subscribe("t1")
	require.NoError(t, err)

	require.NoError(t, m.Close())
	assert.False(t, m.Connected())

	select {
	case _, open := <-sub.Messages():
		assert.False(t, open)
	case <-time.After(waitFor):
		t.Fatal("subscription not closed")
	}
	assert.NoError(t, sub.Close())
	assert.NoError(t, m.Close())
}

func TestDone_ClosesOnDropAndReconnectRejoins(t *testing.T) {
	m, fake := connected(t)

	sub, err := m.Subscribe("t1")
	require.NoError(t, err)
	fake.WaitForEvents(1, waitFor)

	done := m.Done()
	require.NotNil(t, done)
	fake.DropConnections()

	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("Done not closed after the connection dropped")
	}
	assert.False(t, m.Connected())
	assert.Nil(t, m.Done())
	require.Eventually(t, func() bool { return fake.RoomSize("t1") == 0 }, waitFor, 10*time.Millisecond)

	require.NoError(t, m.Connect(context.Background(), "tok"))
	require.Eventually(t, func() bool { return fake.RoomSize("t1") == 1 }, waitFor, 10*time.Millisecond)

	require.NoError(t, fake.Broadcast("t1", EventNewMessage, map[string]interface{}{
		"_id": "m1", "taskId": "t1", "content": "back", "sender": "u2",
	}))
	assert.Equal(t, "back", receive(t, sub).Content)
}
