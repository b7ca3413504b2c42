package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

type scriptContent struct {
	Title  string  `json:"title"`
	Scenes []Scene `json:"scenes"`
}

func decodeJSONColumn(raw string, target any) error {
	return json.Unmarshal([]byte(raw), target)
}

// GetScript returns the project's script.
func (s *Store) GetScript(ctx context.Context, projectID string) (*Script, error) {
	var (
		contentJSON string
		version     int
		updatedAt   sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT content_json, version, updated_at FROM scripts WHERE project_id = ?`, projectID,
	).Scan(&contentJSON, &version, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("get script", "script for project "+projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("get script: %w", err)
	}
	var content scriptContent
	if err := decodeJSONColumn(contentJSON, &content); err != nil {
		return nil, fmt.Errorf("decode script content: %w", err)
	}
	return &Script{
		ProjectID: projectID,
		Title:     content.Title,
		Scenes:    content.Scenes,
		Version:   version,
		UpdatedAt: parseTime(updatedAt),
	}, nil
}

// UpsertScript writes the project's script, bumping its version when one
// already exists.
func (s *Store) UpsertScript(ctx context.Context, projectID string, script Script) (*Script, error) {
	encoded, err := encodeJSON(scriptContent{Title: script.Title, Scenes: script.Scenes})
	if err != nil {
		return nil, fmt.Errorf("encode script: %w", err)
	}
	if _, err := s.execWithRetry(ctx,
		`INSERT INTO scripts (project_id, title, content_json, version, updated_at) VALUES (?, ?, ?, 1, ?)
		 ON CONFLICT(project_id) DO UPDATE SET
		   title = excluded.title,
		   content_json = excluded.content_json,
		   version = scripts.version + 1,
		   updated_at = excluded.updated_at`,
		projectID, nullableString(script.Title), encoded, s.timestamp(),
	); err != nil {
		return nil, fmt.Errorf("upsert script: %w", err)
	}
	return s.GetScript(ctx, projectID)
}
