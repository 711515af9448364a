package store

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	perrors "github.com/plandeck/plandeck/internal/errors"
)

var slugRe = regexp.MustCompile(`[^a-z0-9-]+`)

// GenerateSlug converts a project name into a URL-safe slug.
func GenerateSlug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "-")
	s = slugRe.ReplaceAllString(s, "")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = s[:50]
	}
	return s
}

// Project is a stored project.
type Project struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"` // active | archived
	StartDate   int64  `json:"start_date"`            // unix ms
	TargetDate  int64  `json:"target_date,omitempty"` // unix ms, 0 = none
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
	ArchivedAt  int64  `json:"archived_at,omitempty"`
}

// CreateProjectInput holds the parameters for creating a project.
type CreateProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	StartDate   int64  `json:"start_date"`
	TargetDate  int64  `json:"target_date"`
}

// UpdateProjectInput holds the parameters for updating a project.
type UpdateProjectInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	StartDate   *int64  `json:"start_date,omitempty"`
	TargetDate  *int64  `json:"target_date,omitempty"`
}

const projectColumns = `id, slug, name, description, status, start_date, target_date, created_at, updated_at, archived_at`

// CreateProject creates a new project. The start date defaults to now.
func (s *Store) CreateProject(input CreateProjectInput) (*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slug := GenerateSlug(input.Name)
	if slug == "" {
		return nil, fmt.Errorf("invalid project name %q: %w", input.Name, perrors.ErrInvalidInput)
	}

	now := time.Now().UnixMilli()
	start := input.StartDate
	if start == 0 {
		start = now
	}

	p := &Project{
		ID:          uuid.New().String(),
		Slug:        slug,
		Name:        input.Name,
		Description: input.Description,
		Status:      "active",
		StartDate:   start,
		TargetDate:  input.TargetDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	query := `
	INSERT INTO projects (id, slug, name, description, status, start_date, target_date, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		p.ID, p.Slug, p.Name, p.Description, p.Status, p.StartDate,
		sql.NullInt64{Int64: p.TargetDate, Valid: p.TargetDate != 0},
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil, fmt.Errorf("project with slug %q already exists: %w", slug, perrors.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return p, nil
}

// GetProject retrieves a project by slug.
func (s *Store) GetProject(slug string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanProject(`SELECT `+projectColumns+` FROM projects WHERE slug = ?`, slug)
}

// GetProjectByID retrieves a project by id.
func (s *Store) GetProjectByID(id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scanProject(`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
}

func (s *Store) scanProject(query string, args ...interface{}) (*Project, error) {
	p := &Project{}
	var targetDate, archivedAt sql.NullInt64

	err := s.db.QueryRow(query, args...).Scan(
		&p.ID, &p.Slug, &p.Name, &p.Description, &p.Status,
		&p.StartDate, &targetDate, &p.CreatedAt, &p.UpdatedAt, &archivedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, perrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	if targetDate.Valid {
		p.TargetDate = targetDate.Int64
	}
	if archivedAt.Valid {
		p.ArchivedAt = archivedAt.Int64
	}
	return p, nil
}

// ListProjects retrieves all projects, optionally filtered by status.
func (s *Store) ListProjects(status string) ([]*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + projectColumns + ` FROM projects`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p := &Project{}
		var targetDate, archivedAt sql.NullInt64
		if err := rows.Scan(
			&p.ID, &p.Slug, &p.Name, &p.Description, &p.Status,
			&p.StartDate, &targetDate, &p.CreatedAt, &p.UpdatedAt, &archivedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		if targetDate.Valid {
			p.TargetDate = targetDate.Int64
		}
		if archivedAt.Valid {
			p.ArchivedAt = archivedAt.Int64
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

// UpdateProject applies the set fields of input to the project with the
// given slug and returns the updated row.
func (s *Store) UpdateProject(slug string, input UpdateProjectInput) (*Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.scanProject(`SELECT `+projectColumns+` FROM projects WHERE slug = ?`, slug)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		p.Name = *input.Name
	}
	if input.Description != nil {
		p.Description = *input.Description
	}
	if input.StartDate != nil {
		p.StartDate = *input.StartDate
	}
	if input.TargetDate != nil {
		p.TargetDate = *input.TargetDate
	}
	p.UpdatedAt = time.Now().UnixMilli()

	query := `
	UPDATE projects SET name = ?, description = ?, start_date = ?, target_date = ?, updated_at = ?
	WHERE slug = ?
	`
	if _, err := s.db.Exec(query,
		p.Name, p.Description, p.StartDate,
		sql.NullInt64{Int64: p.TargetDate, Valid: p.TargetDate != 0},
		p.UpdatedAt, slug,
	); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return p, nil
}

// ArchiveProject marks a project as archived.
func (s *Store) ArchiveProject(slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	res, err := s.db.Exec(
		`UPDATE projects SET status = 'archived', archived_at = ?, updated_at = ? WHERE slug = ? AND status != 'archived'`,
		now, now, slug,
	)
	if err != nil {
		return fmt.Errorf("failed to archive project: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("project %q: %w", slug, perrors.ErrNotFound)
	}
	return nil
}

// DeleteProject removes a project and, via cascade, its tasks and edges.
func (s *Store) DeleteProject(slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM projects WHERE slug = ?`, slug)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("project %q: %w", slug, perrors.ErrNotFound)
	}
	return nil
}
