package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/pmsterm/internal/model"
	"github.com/nhle/pmsterm/tests/testutil"
)

func newTestClient(t *testing.T) (*Client, *testutil.FakeAPI) {
	t.Helper()
	fake := testutil.NewFakeAPI(t)
	fake.RequireToken("tok-123")
	return NewClient(fake.URL()).WithToken("tok-123"), fake
}

func TestListBoards_DecodesBothReferenceShapes(t *testing.T) {
	c, fake := newTestClient(t)
	fake.ReplyRaw(http.MethodGet, "/api/boards", http.StatusOK, `{
		"boards": [{
			"_id": "b1", "title": "Launch", "slug": "launch",
			"users": ["u1", {"_id": "u2", "username": "bea", "department": 3}],
			"tasks": [{"_id": "t1", "title": "Copy", "status": "pending", "priority": "high", "progress": "40",
				"dueDate": "2024-05-10T00:00:00.000Z",
				"subtasks": [{"_id": "s1", "title": "Draft", "assignedTo": {"_id": "u2", "username": "bea"}, "progress": 20, "completed": false}]}]
		}]
	}`)

	boards, err := c.ListBoards(context.Background())
	require.NoError(t, err)
	require.Len(t, boards, 1)

	b := boards[0]
	assert.Equal(t, "Launch", b.Title)
	assert.Equal(t, []string{"u1", "u2"}, b.MemberIDs())
	assert.Equal(t, "bea", b.Members[1].Username)
	assert.Equal(t, "3", b.Members[1].Department)

	require.Len(t, b.Tasks, 1)
	task := b.Tasks[0]
	assert.Equal(t, "b1", task.Board.ID, "board ref filled from the parent board")
	assert.Equal(t, 40.0, task.Progress)
	assert.Equal(t, 2024, task.DueDate.Year())
	require.Len(t, task.Subtasks, 1)
	assert.Equal(t, "bea", task.Subtasks[0].AssignedTo.Username)

	req, ok := fake.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "Bearer tok-123", req.Auth)
}

func TestListBoards_MissingEnvelope(t *testing.T) {
	c, fake := newTestClient(t)
	fake.ReplyRaw(http.MethodGet, "/api/boards", http.StatusOK, `[]`)

	_, err := c.ListBoards(context.Background())

	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "GET /api/boards", se.Endpoint)
}

func TestListTasksByStatus_NonArrayIsSchemaError(t *testing.T) {
	c, fake := newTestClient(t)
	fake.ReplyRaw(http.MethodGet, "/api/tasks/status/pending", http.StatusOK, `{"tasks": []}`)

	_, err := c.ListTasksByStatus(context.Background(), model.StatusPending)

	require.Error(t, err)
	assert.True(t, IsSchemaError(err))
	assert.False(t, IsAuthError(err))
}

func TestListTasks_InvalidFieldNamesThePath(t *testing.T) {
	c, fake := newTestClient(t)
	fake.ReplyRaw(http.MethodGet, "/api/tasks", http.StatusOK,
		`[{"_id": "t1", "status": "pending"}, {"_id": "t2", "status": "archived"}]`)

	_, err := c.ListMyTasks(context.Background())

	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "[1].status", se.Field)
}

func TestListTasks_ProgressOutOfRange(t *testing.T) {
	c, fake := newTestClient(t)
	fake.ReplyRaw(http.MethodGet, "/api/tasks", http.StatusOK,
		`[{"_id": "t1", "subtasks": [{"_id": "s1", "progress": 140}]}]`)

	_, err := c.ListMyTasks(context.Background())

	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "[0].subtasks[0].progress", se.Field)
}

func TestListTasks_DueDatesKeepTheirCalendarDay(t *testing.T) {
	prev := time.Local
	time.Local = time.FixedZone("EDT", -4*3600)
	t.Cleanup(func() { time.Local = prev })

	c, fake := newTestClient(t)
	fake.ReplyRaw(http.MethodGet, "/api/tasks", http.StatusOK, `[{"_id": "t1", "title": "Copy",
		"dueDate": "2026-10-19T00:00:00.000Z",
		"subtasks": [{"_id": "s1", "title": "Draft", "dueDate": "2026-10-18T00:00:00.000Z"}]}]`)

	tasks, err := c.ListMyTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	due := tasks[0].DueDate
	assert.Equal(t, "2026-10-19", model.FormatDate(due))
	assert.Equal(t, time.Local, due.Location())
	assert.Equal(t, "2026-10-19", model.FormatDate(due.UTC().Local()), "survives a UTC round trip")
	assert.Equal(t, "2026-10-18", model.FormatDate(tasks[0].Subtasks[0].DueDate))
}

func TestUnauthorizedIsAuthError(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.RequireToken("right")
	fake.Reply(http.MethodGet, "/api/users/profile", http.StatusOK, map[string]string{"_id": "u1"})

	_, err := NewClient(fake.URL()).WithToken("wrong").Profile(context.Background())

	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.Contains(t, UserMessage(err), "session has expired")
}

func TestServerMessageSurfaces(t *testing.T) {
	c, fake := newTestClient(t)
	fake.Reply(http.MethodPost, "/api/boards", http.StatusBadRequest, map[string]string{"message": "Board title already exists"})

	_, err := c.CreateBoard(context.Background(), BoardInput{Title: "Dup"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Board title already exists", UserMessage(err))
}

func TestCreateBoard_SendsSlugAndMembers(t *testing.T) {
	c, fake := newTestClient(t)
	fake.Reply(http.MethodPost, "/api/boards", http.StatusCreated, map[string]interface{}{
		"_id": "b9", "title": "Q3 Launch", "slug": "q3-launch", "users": []string{"u1"},
	})

	b, err := c.CreateBoard(context.Background(), BoardInput{Title: "Q3  Launch", MemberIDs: []string{"u1"}})
	require.NoError(t, err)
	assert.Equal(t, "b9", b.ID)

	req, _ := fake.LastRequest()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.Equal(t, "q3-launch", body["slug"])
	assert.Equal(t, []interface{}{"u1"}, body["users"])
}

func TestUpdateSubtaskProgress_ReturnsServerAggregate(t *testing.T) {
	c, fake := newTestClient(t)
	fake.Reply(http.MethodPut, "/api/tasks/t1/subtasks/s1/progress", http.StatusOK, map[string]interface{}{
		"task": map[string]interface{}{
			"_id": "t1", "status": "in-progress", "progress": 33.3,
			"subtasks": []map[string]interface{}{
				{"_id": "s1", "progress": 50}, {"_id": "s2", "progress": 50}, {"_id": "s3", "progress": 0},
			},
		},
	})

	task, err := c.UpdateSubtaskProgress(context.Background(), "t1", "s1", 50)
	require.NoError(t, err)
	assert.Equal(t, 33.3, task.Progress)

	req, _ := fake.LastRequest()
	assert.JSONEq(t, `{"progress": 50}`, string(req.Body))
}

func TestUpdateTaskProgress_RejectsOutOfRangeWithoutRequest(t *testing.T) {
	c, fake := newTestClient(t)

	_, err := c.UpdateTaskProgress(context.Background(), "t1", 101)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, fake.Requests())
}

func TestTaskMutation_MissingTaskEnvelope(t *testing.T) {
	c, fake := newTestClient(t)
	fake.Reply(http.MethodPut, "/api/tasks/t1/status", http.StatusOK, map[string]string{"_id": "t1"})

	_, err := c.UpdateTaskStatus(context.Background(), "t1", model.StatusInProgress)

	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "task", se.Field)
}

func TestLogin(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.RequireToken("jwt-abc")
	fake.Reply(http.MethodPost, "/api/auth/login", http.StatusOK, map[string]interface{}{
		"token": "jwt-abc",
		"user":  map[string]interface{}{"_id": "u1", "username": "ana", "email": "ana@corp.io", "role": 2, "department": "3"},
	})

	res, err := NewClient(fake.URL()).Login(context.Background(), "ana@corp.io", "pw")
	require.NoError(t, err)

	assert.Equal(t, "jwt-abc", res.Token)
	assert.Equal(t, model.RoleManager, res.User.Role)
	assert.True(t, res.User.IsManager())
	assert.True(t, res.User.Active)
}

func TestLogin_UnknownRoleIsSchemaError(t *testing.T) {
	fake := testutil.NewFakeAPI(t)
	fake.Reply(http.MethodPost, "/api/auth/login", http.StatusOK, map[string]interface{}{
		"token": "x", "user": map[string]interface{}{"_id": "u1", "role": "9"},
	})

	_, err := NewClient(fake.URL()).Login(context.Background(), "a@b.c", "pw")

	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "user.role", se.Field)
}

func TestListGoals_SendsMonth(t *testing.T) {
	c, fake := newTestClient(t)
	fake.ReplyRaw(http.MethodGet, "/api/goals", http.StatusOK, `[{
		"_id": "g1", "userId": {"_id": "u1", "username": "ana", "department": "3"},
		"targetTitle": "Articles", "startDate": "2024-02-01", "dueDate": "2024-02-28",
		"targetValue": "20", "remainingTargetValue": 5, "status": "In Progress"}]`)

	goals, err := c.ListGoals(context.Background(), time.Date(2024, 2, 14, 0, 0, 0, 0, time.Local))
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, 20.0, goals[0].TargetValue)
	assert.Equal(t, 5.0, goals[0].RemainingValue)
	assert.Equal(t, "3", goals[0].User.Department)

	req, _ := fake.LastRequest()
	assert.Equal(t, "month=2024-02", req.Query)
}

func TestCreateGoal_Validation(t *testing.T) {
	c, fake := newTestClient(t)
	due := time.Date(2024, 2, 28, 0, 0, 0, 0, time.Local)

	_, err := c.CreateGoal(context.Background(), GoalInput{UserID: "u1", Title: "Posts", DueDate: due})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "targetValue", vErr.Field)

	_, err = c.UpdateGoal(context.Background(), "g1", GoalInput{UserID: "u1", Title: "Posts", DueDate: due, TargetValue: 4})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "startDate", vErr.Field)
	assert.Empty(t, fake.Requests())
}

func TestRegisterUser_PasswordMismatch(t *testing.T) {
	c, fake := newTestClient(t)

	_, err := c.RegisterUser(context.Background(), RegisterInput{
		Username: "neo", Email: "neo@corp.io", Password: "a", RepeatPassword: "b", Role: model.RoleStaff,
	})

	assert.EqualError(t, err, "Passwords do not match")
	assert.Empty(t, fake.Requests())
}

func TestTaskInput_SubtaskDueAfterTask(t *testing.T) {
	in := TaskInput{
		Title:    "Ship",
		Priority: model.PriorityHigh,
		DueDate:  time.Date(2024, 5, 10, 0, 0, 0, 0, time.Local),
		Subtasks: []SubtaskInput{{Title: "QA", DueDate: time.Date(2024, 5, 11, 0, 0, 0, 0, time.Local)}},
	}

	var vErr *ValidationError
	require.ErrorAs(t, in.Validate(), &vErr)
	assert.Equal(t, "dueDate", vErr.Field)

	in.Subtasks[0].DueDate = in.DueDate.Add(20 * time.Hour)
	assert.NoError(t, in.Validate(), "same calendar day is allowed")
}

func TestSendActivity_Multipart(t *testing.T) {
	c, fake := newTestClient(t)

	var gotFields map[string]string
	var gotFiles []string
	fake.Handle(http.MethodPost, "/api/tasks/:id/activity", func(ec echo.Context) error {
		form, err := ec.MultipartForm()
		if err != nil {
			return err
		}
		gotFields = map[string]string{}
		for k, v := range form.Value {
			gotFields[k] = v[0]
		}
		for _, fh := range form.File["attachments"] {
			f, err := fh.Open()
			if err != nil {
				return err
			}
			data, _ := io.ReadAll(f)
			f.Close()
			gotFiles = append(gotFiles, fh.Filename+":"+string(data))
		}
		return ec.JSON(http.StatusCreated, map[string]interface{}{
			"newMessage": map[string]interface{}{
				"_id": "m1", "taskId": ec.Param("id"), "sender": "u1", "content": gotFields["content"],
				"attachments": []string{"1700-notes.txt"}, "createdAt": "2024-05-10T09:30:00Z",
			},
		})
	})

	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	empty := filepath.Join(dir, "empty.png")
	require.NoError(t, os.WriteFile(notes, []byte("hello"), 0o600))
	require.NoError(t, os.WriteFile(empty, nil, 0o600))

	atts, closeAll, err := OpenAttachments([]string{notes, empty, " "})
	require.NoError(t, err)
	defer closeAll()
	require.Len(t, atts, 1, "empty files are skipped")

	msg, err := c.SendActivity(context.Background(), SendActivityInput{
		TaskID: "t1", Content: "  see attached  ", SenderID: "u1", Attachments: atts,
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"taskId": "t1", "content": "see attached", "sender": "u1"}, gotFields)
	assert.Equal(t, []string{"notes.txt:hello"}, gotFiles)
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, []string{"1700-notes.txt"}, msg.Attachments)
	assert.Equal(t, 9, msg.CreatedAt.Hour())

	req, _ := fake.LastRequest()
	assert.True(t, strings.HasPrefix(req.ContentType, "multipart/form-data"))
}

func TestSendActivity_EmptyContent(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.SendActivity(context.Background(), SendActivityInput{TaskID: "t1", SenderID: "u1", Content: "  "})
	assert.EqualError(t, err, "Please type a message to continue")
}

func TestMessageCodec(t *testing.T) {
	in := model.ChatMessage{
		ID:        "m7",
		TaskID:    "t1",
		Sender:    model.UserRef{ID: "u1", Username: "ana"},
		Content:   "hi",
		CreatedAt: time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC),
	}
	data, err := EncodeMessage(in)
	require.NoError(t, err)

	out, err := DecodeMessage(data)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, "ana", out.Sender.Username)
	assert.True(t, in.CreatedAt.Equal(out.CreatedAt))
	assert.Empty(t, out.Attachments)

	_, err = DecodeMessage([]byte(`{"content": "orphan"}`))
	assert.True(t, IsSchemaError(err))

	_, err = DecodeMessage([]byte(`{"taskId": "t1", "sender": 42}`))
	assert.True(t, IsSchemaError(err))
}
