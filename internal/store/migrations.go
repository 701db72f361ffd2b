package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS boards (
	id         TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	slug       TEXT NOT NULL DEFAULT '',
	members    TEXT NOT NULL DEFAULT '[]',
	position   INTEGER NOT NULL DEFAULT 0,
	fetched_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	board_id    TEXT NOT NULL DEFAULT '',
	board_title TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	assignees   TEXT NOT NULL DEFAULT '[]',
	due_date    DATETIME,
	priority    TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'pending',
	progress    REAL NOT NULL DEFAULT 0,
	is_today    INTEGER NOT NULL DEFAULT 0,
	position    INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME,
	updated_at  DATETIME,
	fetched_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_board ON tasks(board_id);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);

CREATE TABLE IF NOT EXISTS subtasks (
	task_id     TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	id          TEXT NOT NULL DEFAULT '',
	title       TEXT NOT NULL,
	assigned_to TEXT NOT NULL DEFAULT '{}',
	due_date    DATETIME,
	priority    TEXT NOT NULL DEFAULT '',
	completed   INTEGER NOT NULL DEFAULT 0,
	progress    REAL NOT NULL DEFAULT 0,
	is_today    INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (task_id, position)
);

CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	task_id    TEXT NOT NULL DEFAULT '',
	message    TEXT NOT NULL,
	read       INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_notifications_read ON notifications(read);
CREATE INDEX IF NOT EXISTS idx_notifications_task_id ON notifications(task_id, kind);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	username   TEXT NOT NULL,
	email      TEXT NOT NULL DEFAULT '',
	role       INTEGER NOT NULL DEFAULT 3,
	department TEXT NOT NULL DEFAULT '',
	active     INTEGER NOT NULL DEFAULT 1,
	position   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS goals (
	id              TEXT PRIMARY KEY,
	month           TEXT NOT NULL,
	user_ref        TEXT NOT NULL DEFAULT '{}',
	user_id         TEXT NOT NULL DEFAULT '',
	title           TEXT NOT NULL,
	start_date      DATETIME,
	due_date        DATETIME,
	target_value    REAL NOT NULL DEFAULT 0,
	remaining_value REAL NOT NULL DEFAULT 0,
	status          TEXT NOT NULL DEFAULT 'Pending',
	position        INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_goals_month ON goals(month);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
