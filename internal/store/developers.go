package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	perrors "github.com/plandeck/plandeck/internal/errors"
)

// Developer is a stored assignee.
type Developer struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"created_at"`
}

// CreateDeveloper inserts a new developer.
func (s *Store) CreateDeveloper(name string) (*Developer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		return nil, fmt.Errorf("developer name must not be empty: %w", perrors.ErrInvalidInput)
	}

	d := &Developer{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UnixMilli(),
	}
	if _, err := s.db.Exec(
		`INSERT INTO developers (id, name, created_at) VALUES (?, ?, ?)`,
		d.ID, d.Name, d.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to create developer: %w", err)
	}
	return d, nil
}

// GetDeveloper retrieves a developer by id.
func (s *Store) GetDeveloper(id string) (*Developer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d := &Developer{}
	err := s.db.QueryRow(`SELECT id, name, created_at FROM developers WHERE id = ?`, id).
		Scan(&d.ID, &d.Name, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, perrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get developer: %w", err)
	}
	return d, nil
}

// ListDevelopers retrieves all developers ordered by name.
func (s *Store) ListDevelopers() ([]*Developer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, name, created_at FROM developers ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list developers: %w", err)
	}
	defer rows.Close()

	var devs []*Developer
	for rows.Next() {
		d := &Developer{}
		if err := rows.Scan(&d.ID, &d.Name, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan developer: %w", err)
		}
		devs = append(devs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating developers: %w", err)
	}
	return devs, nil
}
