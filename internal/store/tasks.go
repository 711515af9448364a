package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	perrors "github.com/plandeck/plandeck/internal/errors"
	"github.com/plandeck/plandeck/internal/schedule"
)

// Task is a stored task with its dependency edges loaded.
type Task struct {
	ID           string   `json:"id"`
	ProjectID    string   `json:"project_id"`
	Name         string   `json:"name"`
	Duration     int      `json:"duration"`
	Status       string   `json:"status"`
	Progress     int      `json:"progress"`
	AssigneeID   string   `json:"assignee_id,omitempty"`
	Position     int      `json:"position"`
	Dependencies []string `json:"dependencies"`
	CreatedAt    int64    `json:"created_at"`
	UpdatedAt    int64    `json:"updated_at"`
}

// CreateTaskInput holds the parameters for creating a task.
type CreateTaskInput struct {
	Name         string   `json:"name"`
	Duration     int      `json:"duration"`
	Status       string   `json:"status"`
	Progress     int      `json:"progress"`
	AssigneeID   string   `json:"assignee_id"`
	Dependencies []string `json:"dependencies"`
}

// UpdateTaskInput holds the parameters for updating a task. Nil fields are
// left unchanged; a non-nil empty Dependencies slice clears the edges.
type UpdateTaskInput struct {
	Name         *string   `json:"name,omitempty"`
	Duration     *int      `json:"duration,omitempty"`
	Status       *string   `json:"status,omitempty"`
	Progress     *int      `json:"progress,omitempty"`
	AssigneeID   *string   `json:"assignee_id,omitempty"`
	Dependencies *[]string `json:"dependencies,omitempty"`
}

const taskColumns = `id, project_id, name, duration, status, progress, assignee_id, position, created_at, updated_at`

// CreateTask inserts a task at the end of the project's ordering and stores
// its dependency edges.
func (s *Store) CreateTask(projectID string, input CreateTaskInput) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := input.Status
	if status == "" {
		status = string(schedule.StatusNotStarted)
	}

	var position int
	if err := s.db.QueryRow(
		`SELECT COALESCE(MAX(position), -1) + 1 FROM tasks WHERE project_id = ?`, projectID,
	).Scan(&position); err != nil {
		return nil, fmt.Errorf("failed to compute task position: %w", err)
	}

	now := time.Now().UnixMilli()
	t := &Task{
		ID:           uuid.New().String(),
		ProjectID:    projectID,
		Name:         input.Name,
		Duration:     input.Duration,
		Status:       status,
		Progress:     input.Progress,
		AssigneeID:   input.AssigneeID,
		Position:     position,
		Dependencies: append([]string(nil), input.Dependencies...),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO tasks (id, project_id, name, duration, status, progress, assignee_id, position, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ProjectID, t.Name, t.Duration, t.Status, t.Progress,
		sql.NullString{String: t.AssigneeID, Valid: t.AssigneeID != ""},
		t.Position, t.CreatedAt, t.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if err := replaceDependencies(tx, t.ID, t.Dependencies); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit task: %w", err)
	}
	return t, nil
}

// GetTask retrieves a task by id, including its dependency edges.
func (s *Store) GetTask(id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := &Task{}
	var assignee sql.NullString
	err := s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id).Scan(
		&t.ID, &t.ProjectID, &t.Name, &t.Duration, &t.Status, &t.Progress,
		&assignee, &t.Position, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, perrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if assignee.Valid {
		t.AssigneeID = assignee.String
	}

	deps, err := s.loadDependencies(t.ID)
	if err != nil {
		return nil, err
	}
	t.Dependencies = deps
	return t, nil
}

// ListTasks retrieves all tasks of a project in stable input order.
func (s *Store) ListTasks(projectID string) ([]*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listTasks(projectID)
}

func (s *Store) listTasks(projectID string) ([]*Task, error) {
	rows, err := s.db.Query(
		`SELECT `+taskColumns+` FROM tasks WHERE project_id = ? ORDER BY position, created_at`, projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t := &Task{}
		var assignee sql.NullString
		if err := rows.Scan(
			&t.ID, &t.ProjectID, &t.Name, &t.Duration, &t.Status, &t.Progress,
			&assignee, &t.Position, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if assignee.Valid {
			t.AssigneeID = assignee.String
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	for _, t := range tasks {
		deps, err := s.loadDependencies(t.ID)
		if err != nil {
			return nil, err
		}
		t.Dependencies = deps
	}
	return tasks, nil
}

// UpdateTask applies the set fields of input and returns the updated task.
func (s *Store) UpdateTask(id string, input UpdateTaskInput) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &Task{}
	var assignee sql.NullString
	err := s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id).Scan(
		&t.ID, &t.ProjectID, &t.Name, &t.Duration, &t.Status, &t.Progress,
		&assignee, &t.Position, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, perrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if assignee.Valid {
		t.AssigneeID = assignee.String
	}

	if input.Name != nil {
		t.Name = *input.Name
	}
	if input.Duration != nil {
		t.Duration = *input.Duration
	}
	if input.Status != nil {
		t.Status = *input.Status
	}
	if input.Progress != nil {
		t.Progress = *input.Progress
	}
	if input.AssigneeID != nil {
		t.AssigneeID = *input.AssigneeID
	}
	t.UpdatedAt = time.Now().UnixMilli()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`UPDATE tasks SET name = ?, duration = ?, status = ?, progress = ?, assignee_id = ?, updated_at = ? WHERE id = ?`,
		t.Name, t.Duration, t.Status, t.Progress,
		sql.NullString{String: t.AssigneeID, Valid: t.AssigneeID != ""},
		t.UpdatedAt, id,
	); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	if input.Dependencies != nil {
		if err := replaceDependencies(tx, id, *input.Dependencies); err != nil {
			return nil, err
		}
		t.Dependencies = append([]string(nil), *input.Dependencies...)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit task update: %w", err)
	}

	if input.Dependencies == nil {
		deps, err := s.loadDependencies(id)
		if err != nil {
			return nil, err
		}
		t.Dependencies = deps
	}
	return t, nil
}

// DeleteTask removes a task, its own edges, and edges pointing at it.
func (s *Store) DeleteTask(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM task_dependencies WHERE depends_on_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete inbound dependencies: %w", err)
	}

	res, err := tx.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task %q: %w", id, perrors.ErrNotFound)
	}

	return tx.Commit()
}

// TaskSnapshot assembles the engine input for one project: all tasks in
// stable position order with dependency edges and assignee names resolved.
func (s *Store) TaskSnapshot(projectID string) ([]schedule.TaskInput, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks, err := s.listTasks(projectID)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string)
	rows, err := s.db.Query(`SELECT id, name FROM developers`)
	if err != nil {
		return nil, fmt.Errorf("failed to load developers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan developer: %w", err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating developers: %w", err)
	}

	snapshot := make([]schedule.TaskInput, 0, len(tasks))
	for _, t := range tasks {
		snapshot = append(snapshot, schedule.TaskInput{
			ID:           t.ID,
			Name:         t.Name,
			Duration:     t.Duration,
			Dependencies: t.Dependencies,
			Status:       schedule.Status(t.Status),
			Progress:     t.Progress,
			AssigneeID:   t.AssigneeID,
			AssigneeName: names[t.AssigneeID],
		})
	}
	return snapshot, nil
}

// SnapshotRevision returns a value that changes whenever the project's
// schedule-relevant rows change, for plan cache invalidation.
func (s *Store) SnapshotRevision(projectID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count, maxUpdated int64
	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(MAX(updated_at), 0) FROM tasks WHERE project_id = ?`, projectID,
	).Scan(&count, &maxUpdated)
	if err != nil {
		return 0, fmt.Errorf("failed to compute snapshot revision: %w", err)
	}
	return maxUpdated<<16 | (count & 0xffff), nil
}

func (s *Store) loadDependencies(taskID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT depends_on_id FROM task_dependencies WHERE task_id = ? ORDER BY depends_on_id`, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load dependencies: %w", err)
	}
	defer rows.Close()

	var deps []string
	for rows.Next() {
		var dep string
		if err := rows.Scan(&dep); err != nil {
			return nil, fmt.Errorf("failed to scan dependency: %w", err)
		}
		deps = append(deps, dep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dependencies: %w", err)
	}
	return deps, nil
}

func replaceDependencies(tx *sql.Tx, taskID string, deps []string) error {
	if _, err := tx.Exec(`DELETE FROM task_dependencies WHERE task_id = ?`, taskID); err != nil {
		return fmt.Errorf("failed to clear dependencies: %w", err)
	}
	for _, dep := range deps {
		if _, err := tx.Exec(
			`INSERT OR IGNORE INTO task_dependencies (task_id, depends_on_id) VALUES (?, ?)`, taskID, dep,
		); err != nil {
			return fmt.Errorf("failed to insert dependency: %w", err)
		}
	}
	return nil
}
