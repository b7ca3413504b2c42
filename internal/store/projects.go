package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"storyreel/internal/services"
)

const projectColumns = "id, owner, topic, status, created_at, updated_at"

func scanProject(scanner rowScanner) (*Project, error) {
	var (
		project            Project
		owner              sql.NullString
		status             string
		createdAt, updated sql.NullString
	)
	if err := scanner.Scan(&project.ID, &owner, &project.Topic, &status, &createdAt, &updated); err != nil {
		return nil, err
	}
	project.Owner = owner.String
	project.Status = ProjectStatus(status)
	project.CreatedAt = parseTime(createdAt)
	project.UpdatedAt = parseTime(updated)
	return &project, nil
}

// CreateProject inserts a new project in the scripting state.
func (s *Store) CreateProject(ctx context.Context, owner, topic string) (*Project, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, services.Wrap(services.ErrValidation, "store", "create project", "topic required", nil)
	}
	id := uuid.NewString()
	now := s.timestamp()
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO projects (id, owner, topic, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, nullableString(strings.TrimSpace(owner)), topic, ProjectScripting, now, now,
	); err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	return s.GetProject(ctx, id)
}

// GetProject fetches a project by id.
func (s *Store) GetProject(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	project, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("get project", "project "+id)
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return project, nil
}

// ListProjects returns every project, newest first.
func (s *Store) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// AdvanceProjectStatus moves a project forward to status. It never moves a
// project backwards; the returned bool reports whether a change was made.
func (s *Store) AdvanceProjectStatus(ctx context.Context, id string, status ProjectStatus) (bool, error) {
	rank := status.Rank()
	if rank < 0 {
		return false, services.Wrap(services.ErrValidation, "store", "advance project", fmt.Sprintf("unknown status %q", status), nil)
	}
	if rank == 0 {
		return false, nil
	}
	earlier := projectStatusOrder[:rank]
	args := make([]any, 0, len(earlier)+3)
	args = append(args, status, s.timestamp(), id)
	for _, st := range earlier {
		args = append(args, st)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE projects SET status = ?, updated_at = ? WHERE id = ? AND status IN (`+makePlaceholders(len(earlier))+`)`,
		args...,
	)
	if err != nil {
		return false, fmt.Errorf("advance project status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		if _, err := s.GetProject(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

// SaveIdea records the idea a project was created from.
func (s *Store) SaveIdea(ctx context.Context, projectID string, idea Idea) error {
	metrics, err := encodeJSON(idea.Metrics)
	if err != nil {
		return fmt.Errorf("encode idea metrics: %w", err)
	}
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO ideas (project_id, title, description, metrics_json, visual_style, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		projectID, idea.Title, nullableString(idea.Description), metrics, nullableString(idea.VisualStyle), s.timestamp(),
	); err != nil {
		return fmt.Errorf("insert idea: %w", err)
	}
	return nil
}

// GetIdea returns the most recently saved idea for a project.
func (s *Store) GetIdea(ctx context.Context, projectID string) (*Idea, error) {
	var (
		idea        Idea
		description sql.NullString
		metricsJSON sql.NullString
		visualStyle sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT title, description, metrics_json, visual_style FROM ideas WHERE project_id = ? ORDER BY id DESC LIMIT 1`,
		projectID,
	).Scan(&idea.Title, &description, &metricsJSON, &visualStyle)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("get idea", "idea for project "+projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("get idea: %w", err)
	}
	idea.Description = description.String
	idea.VisualStyle = visualStyle.String
	if metricsJSON.Valid && metricsJSON.String != "" {
		if err := decodeJSONColumn(metricsJSON.String, &idea.Metrics); err != nil {
			return nil, fmt.Errorf("decode idea metrics: %w", err)
		}
	}
	return &idea, nil
}
