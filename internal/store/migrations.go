package store

import "fmt"

func (s *Store) migrate() error {
	return s.migrateV1()
}

func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id          TEXT PRIMARY KEY,
		slug        TEXT NOT NULL UNIQUE,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL DEFAULT 'active',
		start_date  INTEGER NOT NULL,
		target_date INTEGER,
		created_at  INTEGER NOT NULL,
		updated_at  INTEGER NOT NULL,
		archived_at INTEGER
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_projects_slug ON projects(slug);
	CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status);

	CREATE TABLE IF NOT EXISTS developers (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id          TEXT PRIMARY KEY,
		project_id  TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		name        TEXT NOT NULL,
		duration    INTEGER NOT NULL DEFAULT 0,
		status      TEXT NOT NULL DEFAULT 'not_started',
		progress    INTEGER NOT NULL DEFAULT 0,
		assignee_id TEXT REFERENCES developers(id),
		position    INTEGER NOT NULL,
		created_at  INTEGER NOT NULL,
		updated_at  INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id, position);
	CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assignee_id);

	CREATE TABLE IF NOT EXISTS task_dependencies (
		task_id       TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		depends_on_id TEXT NOT NULL,
		PRIMARY KEY (task_id, depends_on_id)
	);

	CREATE INDEX IF NOT EXISTS idx_deps_task ON task_dependencies(task_id);

	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR REPLACE INTO meta(key, value) VALUES ('schema_version', '1');
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute migration v1: %w", err)
	}
	return nil
}
