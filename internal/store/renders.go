package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storyreel/internal/services"
)

const renderColumns = "project_id, scene_index, start_frame_url, end_frame_url, status, video_url, created_at, updated_at"

func scanSceneRender(scanner rowScanner) (*SceneRender, error) {
	var (
		render               SceneRender
		start, end, video    sql.NullString
		status               string
		createdAt, updatedAt sql.NullString
	)
	if err := scanner.Scan(&render.ProjectID, &render.SceneIndex, &start, &end, &status, &video, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	render.StartFrameURL = start.String
	render.EndFrameURL = end.String
	render.Status = RenderStatus(status)
	render.VideoURL = video.String
	render.CreatedAt = parseTime(createdAt)
	render.UpdatedAt = parseTime(updatedAt)
	return &render, nil
}

// EnsureSceneRenders creates pending ledger rows for the given scene indexes.
// Existing rows are left untouched.
func (s *Store) EnsureSceneRenders(ctx context.Context, projectID string, indexes ...int) error {
	if len(indexes) == 0 {
		return nil
	}
	now := s.timestamp()
	rows := make([]string, 0, len(indexes))
	args := make([]any, 0, len(indexes)*5)
	for _, idx := range indexes {
		if idx < 0 {
			return services.Wrap(services.ErrValidation, "store", "ensure scene render", fmt.Sprintf("negative scene index %d", idx), nil)
		}
		rows = append(rows, "(?, ?, ?, ?, ?)")
		args = append(args, projectID, idx, RenderPending, now, now)
	}
	query := `INSERT INTO scene_renders (project_id, scene_index, status, created_at, updated_at) VALUES ` +
		strings.Join(rows, ", ") + ` ON CONFLICT(project_id, scene_index) DO NOTHING`
	if _, err := s.execWithRetry(ctx, query, args...); err != nil {
		return fmt.Errorf("ensure scene renders: %w", err)
	}
	return nil
}

// GetSceneRender fetches the ledger row for (project, scene index).
func (s *Store) GetSceneRender(ctx context.Context, projectID string, sceneIndex int) (*SceneRender, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+renderColumns+` FROM scene_renders WHERE project_id = ? AND scene_index = ?`,
		projectID, sceneIndex,
	)
	render, err := scanSceneRender(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("get scene render", fmt.Sprintf("scene render %s/%d", projectID, sceneIndex))
	}
	if err != nil {
		return nil, fmt.Errorf("get scene render: %w", err)
	}
	return render, nil
}

// ListSceneRenders returns a project's ledger ordered by scene index.
func (s *Store) ListSceneRenders(ctx context.Context, projectID string) ([]*SceneRender, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+renderColumns+` FROM scene_renders WHERE project_id = ? ORDER BY scene_index`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list scene renders: %w", err)
	}
	defer rows.Close()

	var renders []*SceneRender
	for rows.Next() {
		render, err := scanSceneRender(rows)
		if err != nil {
			return nil, fmt.Errorf("scan scene render: %w", err)
		}
		renders = append(renders, render)
	}
	return renders, rows.Err()
}

// SetSceneRenderFrame stores exactly one keyframe URL. Status is untouched.
func (s *Store) SetSceneRenderFrame(ctx context.Context, projectID string, sceneIndex int, frame FrameType, url string) error {
	var column string
	switch frame {
	case FrameStart:
		column = "start_frame_url"
	case FrameEnd:
		column = "end_frame_url"
	default:
		return services.Wrap(services.ErrValidation, "store", "set frame", fmt.Sprintf("unknown frame type %q", frame), nil)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE scene_renders SET `+column+` = ?, updated_at = ? WHERE project_id = ? AND scene_index = ?`,
		url, s.timestamp(), projectID, sceneIndex,
	)
	if err != nil {
		return fmt.Errorf("set scene render frame: %w", err)
	}
	return requireAffected(res, "set frame", fmt.Sprintf("scene render %s/%d", projectID, sceneIndex))
}

// SetSceneRenderStatus overwrites the status. When videoURL is non-empty it is
// stored alongside.
func (s *Store) SetSceneRenderStatus(ctx context.Context, projectID string, sceneIndex int, status RenderStatus, videoURL string) error {
	query := `UPDATE scene_renders SET status = ?, updated_at = ? WHERE project_id = ? AND scene_index = ?`
	args := []any{status, s.timestamp(), projectID, sceneIndex}
	if videoURL != "" {
		query = `UPDATE scene_renders SET status = ?, video_url = ?, updated_at = ? WHERE project_id = ? AND scene_index = ?`
		args = []any{status, videoURL, s.timestamp(), projectID, sceneIndex}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("set scene render status: %w", err)
	}
	return requireAffected(res, "set status", fmt.Sprintf("scene render %s/%d", projectID, sceneIndex))
}

// ClaimSceneRender moves a row into rendering_video unless it is already
// there. A row another process is rendering yields ErrBusy.
func (s *Store) ClaimSceneRender(ctx context.Context, projectID string, sceneIndex int) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE scene_renders SET status = ?, updated_at = ? WHERE project_id = ? AND scene_index = ? AND status <> ?`,
		RenderRenderingVideo, s.timestamp(), projectID, sceneIndex, RenderRenderingVideo,
	)
	if err != nil {
		return fmt.Errorf("claim scene render: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	if _, err := s.GetSceneRender(ctx, projectID, sceneIndex); err != nil {
		return err
	}
	return services.Wrap(services.ErrBusy, "store", "claim scene render",
		fmt.Sprintf("scene render %s/%d is already rendering", projectID, sceneIndex), nil)
}

// RenderStats counts a project's ledger rows by status.
func (s *Store) RenderStats(ctx context.Context, projectID string) (map[RenderStatus]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(1) FROM scene_renders WHERE project_id = ? GROUP BY status`, projectID)
	if err != nil {
		return nil, fmt.Errorf("render stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[RenderStatus]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[RenderStatus(status)] = count
	}
	return stats, rows.Err()
}

// FailStuckRenders marks rows left in rendering_video (by a crash) as failed.
func (s *Store) FailStuckRenders(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE scene_renders SET status = ?, updated_at = ? WHERE status = ?`,
		RenderFailed, s.timestamp(), RenderRenderingVideo,
	)
	if err != nil {
		return 0, fmt.Errorf("fail stuck renders: %w", err)
	}
	return res.RowsAffected()
}
