package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/pmsterm/internal/model"
)

type taskRow struct {
	ID          string     `db:"id"`
	BoardID     string     `db:"board_id"`
	BoardTitle  string     `db:"board_title"`
	Title       string     `db:"title"`
	Description string     `db:"description"`
	Assignees   string     `db:"assignees"`
	DueDate     *time.Time `db:"due_date"`
	Priority    string     `db:"priority"`
	Status      string     `db:"status"`
	Progress    float64    `db:"progress"`
	IsToday     int        `db:"is_today"`
	Position    int        `db:"position"`
	CreatedAt   *time.Time `db:"created_at"`
	UpdatedAt   *time.Time `db:"updated_at"`
	FetchedAt   time.Time  `db:"fetched_at"`
}

type subtaskRow struct {
	TaskID     string     `db:"task_id"`
	Position   int        `db:"position"`
	ID         string     `db:"id"`
	Title      string     `db:"title"`
	AssignedTo string     `db:"assigned_to"`
	DueDate    *time.Time `db:"due_date"`
	Priority   string     `db:"priority"`
	Completed  int        `db:"completed"`
	Progress   float64    `db:"progress"`
	IsToday    int        `db:"is_today"`
}

func (r taskRow) toModel() (model.Task, error) {
	t := model.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Board:       model.BoardRef{ID: r.BoardID, Title: r.BoardTitle},
		DueDate:     fromNullTime(r.DueDate),
		Priority:    r.Priority,
		Status:      r.Status,
		Progress:    r.Progress,
		IsToday:     r.IsToday != 0,
		CreatedAt:   fromNullTime(r.CreatedAt),
		UpdatedAt:   fromNullTime(r.UpdatedAt),
	}
	if r.Assignees != "" {
		if err := json.Unmarshal([]byte(r.Assignees), &t.Assignees); err != nil {
			return model.Task{}, fmt.Errorf("unmarshaling assignees of task %s: %w", r.ID, err)
		}
	}
	return t, nil
}

func (r subtaskRow) toModel() (model.Subtask, error) {
	st := model.Subtask{
		ID:        r.ID,
		Title:     r.Title,
		DueDate:   fromNullTime(r.DueDate),
		Priority:  r.Priority,
		Completed: r.Completed != 0,
		Progress:  r.Progress,
		IsToday:   r.IsToday != 0,
	}
	if r.AssignedTo != "" {
		if err := json.Unmarshal([]byte(r.AssignedTo), &st.AssignedTo); err != nil {
			return model.Subtask{}, fmt.Errorf("unmarshaling subtask assignee: %w", err)
		}
	}
	return st, nil
}

// ReplaceBoardTasks replaces the tasks stored for boardID with tasks. Only
// rows of that board are touched, so results for different boards can
// arrive in any order.
func (s *SQLiteStore) ReplaceBoardTasks(
	ctx context.Context,
	boardID string,
	tasks []model.Task,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE board_id = ?", boardID); err != nil {
		return fmt.Errorf("clearing tasks of board %s: %w", boardID, err)
	}

	fetchedAt := s.now().UTC()
	for i, t := range tasks {
		if t.Board.ID == "" {
			t.Board.ID = boardID
		}
		if t.Board.ID != boardID {
			return fmt.Errorf("task %s belongs to board %s, not %s", t.ID, t.Board.ID, boardID)
		}
		if err := writeTask(ctx, tx, t, i, fetchedAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// UpsertTask inserts or replaces a single task and its subtasks, keeping
// its position within the board when it is already stored.
func (s *SQLiteStore) UpsertTask(ctx context.Context, task model.Task) error {
	if strings.TrimSpace(task.ID) == "" {
		return fmt.Errorf("task id must not be empty")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var position int
	err = tx.GetContext(ctx, &position, `
		SELECT COALESCE(
			(SELECT position FROM tasks WHERE id = ?),
			(SELECT COALESCE(MAX(position), -1) + 1 FROM tasks WHERE board_id = ?)
		)`, task.ID, task.Board.ID)
	if err != nil {
		return fmt.Errorf("finding position for task %s: %w", task.ID, err)
	}

	if err := writeTask(ctx, tx, task, position, s.now().UTC()); err != nil {
		return err
	}

	return tx.Commit()
}

// writeTask writes one task row and rewrites its subtasks.
func writeTask(ctx context.Context, tx *sqlx.Tx, t model.Task, position int, fetchedAt time.Time) error {
	assignees := t.Assignees
	if assignees == nil {
		assignees = []model.UserRef{}
	}
	assigneesJSON, err := jsonText(assignees)
	if err != nil {
		return fmt.Errorf("marshaling assignees for task %s: %w", t.ID, err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM subtasks WHERE task_id = ?", t.ID); err != nil {
		return fmt.Errorf("clearing subtasks of task %s: %w", t.ID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO tasks (
			id, board_id, board_title, title, description,
			assignees, due_date, priority, status, progress,
			is_today, position, created_at, updated_at, fetched_at
		) VALUES (
			?, ?, ?, ?, ?,
			?, ?, ?, ?, ?,
			?, ?, ?, ?, ?
		)`,
		t.ID, t.Board.ID, t.Board.Title, t.Title, t.Description,
		assigneesJSON, nullTime(t.DueDate), t.Priority, t.Status, t.Progress,
		boolToInt(t.IsToday), position, nullTime(t.CreatedAt), nullTime(t.UpdatedAt), fetchedAt,
	)
	if err != nil {
		return fmt.Errorf("writing task %s: %w", t.ID, err)
	}

	for i, st := range t.Subtasks {
		assignedTo, err := jsonText(st.AssignedTo)
		if err != nil {
			return fmt.Errorf("marshaling subtask assignee for task %s: %w", t.ID, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO subtasks (
				task_id, position, id, title, assigned_to,
				due_date, priority, completed, progress, is_today
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, i, st.ID, st.Title, assignedTo,
			nullTime(st.DueDate), st.Priority, boolToInt(st.Completed), st.Progress, boolToInt(st.IsToday),
		)
		if err != nil {
			return fmt.Errorf("writing subtask %d of task %s: %w", i, t.ID, err)
		}
	}

	return nil
}

// DeleteTask removes a task and its subtasks.
func (s *SQLiteStore) DeleteTask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}

	return nil
}

// GetTasks retrieves tasks matching the provided filter options, with
// their subtasks.
func (s *SQLiteStore) GetTasks(
	ctx context.Context,
	opts TaskFilter,
) ([]model.Task, error) {
	query, args := buildTaskQuery(opts)

	var rows []taskRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}

	tasks := make([]model.Task, 0, len(rows))
	for _, r := range rows {
		t, err := r.toModel()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	if err := s.attachSubtasks(ctx, tasks); err != nil {
		return nil, err
	}

	return tasks, nil
}

// GetTaskByID retrieves a single task by its ID.
func (s *SQLiteStore) GetTaskByID(
	ctx context.Context,
	id string,
) (*model.Task, error) {
	var row taskRow
	if err := s.db.GetContext(ctx, &row, "SELECT * FROM tasks WHERE id = ?", id); err != nil {
		return nil, notFound(err, "task "+id)
	}

	task, err := row.toModel()
	if err != nil {
		return nil, err
	}

	tasks := []model.Task{task}
	if err := s.attachSubtasks(ctx, tasks); err != nil {
		return nil, err
	}

	return &tasks[0], nil
}

// attachSubtasks loads the subtasks of every task in one query.
func (s *SQLiteStore) attachSubtasks(ctx context.Context, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	ids := make([]string, 0, len(tasks))
	index := make(map[string]int, len(tasks))
	for i, t := range tasks {
		ids = append(ids, t.ID)
		index[t.ID] = i
	}

	query, args, err := sqlx.In(
		"SELECT * FROM subtasks WHERE task_id IN (?) ORDER BY task_id, position", ids)
	if err != nil {
		return fmt.Errorf("building subtask query: %w", err)
	}

	var rows []subtaskRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("querying subtasks: %w", err)
	}

	for _, r := range rows {
		st, err := r.toModel()
		if err != nil {
			return err
		}
		i := index[r.TaskID]
		tasks[i].Subtasks = append(tasks[i].Subtasks, st)
	}

	return nil
}

// buildTaskQuery constructs the SQL query and args for a TaskFilter.
func buildTaskQuery(opts TaskFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if opts.BoardID != nil {
		conditions = append(conditions, "board_id = ?")
		args = append(args, *opts.BoardID)
	}
	if opts.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *opts.Status)
	}
	if opts.AssigneeID != nil {
		conditions = append(conditions,
			"EXISTS (SELECT 1 FROM json_each(tasks.assignees) WHERE json_extract(json_each.value, '$.id') = ?)")
		args = append(args, *opts.AssigneeID)
	}
	if opts.Today != nil {
		conditions = append(conditions, "is_today = ?")
		args = append(args, boolToInt(*opts.Today))
	}
	if opts.Query != nil && *opts.Query != "" {
		conditions = append(conditions, "(title LIKE ? OR description LIKE ?)")
		q := "%" + *opts.Query + "%"
		args = append(args, q, q)
	}

	query := "SELECT * FROM tasks"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	sortBy := "updated_at"
	if opts.SortBy != "" {
		allowedSorts := map[string]string{
			"position":   "board_id, position",
			"title":      "title",
			"status":     "status",
			"priority":   "CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 WHEN 'low' THEN 2 ELSE 3 END",
			"due_date":   "due_date IS NULL, due_date",
			"progress":   "progress",
			"updated_at": "updated_at",
		}
		if col, ok := allowedSorts[opts.SortBy]; ok {
			sortBy = col
		}
	}

	direction := "ASC"
	if opts.SortDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s, id", sortBy, direction)

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}

	return query, args
}
