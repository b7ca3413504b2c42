package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const assetColumns = "id, project_id, name, type, description, visual_prompt, appearances_json, status, url, created_at, updated_at"

func scanAsset(scanner rowScanner) (*Asset, error) {
	var (
		asset                Asset
		assetType, status    string
		description, prompt  sql.NullString
		appearances, url     sql.NullString
		createdAt, updatedAt sql.NullString
	)
	if err := scanner.Scan(
		&asset.ID,
		&asset.ProjectID,
		&asset.Name,
		&assetType,
		&description,
		&prompt,
		&appearances,
		&status,
		&url,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	asset.Type = AssetType(assetType)
	asset.Status = AssetStatus(status)
	asset.Description = description.String
	asset.VisualPrompt = prompt.String
	asset.URL = url.String
	asset.CreatedAt = parseTime(createdAt)
	asset.UpdatedAt = parseTime(updatedAt)
	if appearances.Valid && appearances.String != "" {
		if err := decodeJSONColumn(appearances.String, &asset.Appearances); err != nil {
			return nil, fmt.Errorf("decode appearances: %w", err)
		}
	}
	return &asset, nil
}

// InsertAssets bulk-creates assets for a project in the pending_generation
// state using a single statement. IDs are assigned here.
func (s *Store) InsertAssets(ctx context.Context, projectID string, assets []Asset) ([]Asset, error) {
	if len(assets) == 0 {
		return nil, nil
	}
	query, args, created, err := s.assetInsert(projectID, assets)
	if err != nil {
		return nil, err
	}
	if _, err := s.execWithRetry(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("insert assets: %w", err)
	}
	return created, nil
}

// ReplaceProjectAssets swaps a project's assets for a new set in one
// transaction. On failure the previous assets remain.
func (s *Store) ReplaceProjectAssets(ctx context.Context, projectID string, assets []Asset) ([]Asset, int64, error) {
	query, args, created, err := s.assetInsert(projectID, assets)
	if err != nil {
		return nil, 0, err
	}
	var removed int64
	err = retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		res, err := tx.ExecContext(ctx, `DELETE FROM assets WHERE project_id = ?`, projectID)
		if err != nil {
			return err
		}
		if removed, err = res.RowsAffected(); err != nil {
			return err
		}
		if len(created) > 0 {
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, 0, fmt.Errorf("replace assets: %w", err)
	}
	return created, removed, nil
}

func (s *Store) assetInsert(projectID string, assets []Asset) (string, []any, []Asset, error) {
	now := s.timestamp()
	createdAt, _ := parseTimeString(now)
	rows := make([]string, 0, len(assets))
	args := make([]any, 0, len(assets)*11)
	created := make([]Asset, 0, len(assets))
	for _, asset := range assets {
		asset.ID = uuid.NewString()
		asset.ProjectID = projectID
		asset.Status = AssetPendingGeneration
		asset.URL = ""
		asset.CreatedAt = createdAt
		asset.UpdatedAt = createdAt
		if asset.Appearances == nil {
			asset.Appearances = []int{}
		}
		appearances, err := encodeJSON(asset.Appearances)
		if err != nil {
			return "", nil, nil, fmt.Errorf("encode appearances: %w", err)
		}
		rows = append(rows, "("+makePlaceholders(11)+")")
		args = append(args,
			asset.ID, projectID, asset.Name, asset.Type,
			nullableString(asset.Description), nullableString(asset.VisualPrompt), appearances,
			asset.Status, nil, now, now,
		)
		created = append(created, asset)
	}
	return `INSERT INTO assets (` + assetColumns + `) VALUES ` + strings.Join(rows, ", "), args, created, nil
}

// DeleteProjectAssets removes every asset of a project.
func (s *Store) DeleteProjectAssets(ctx context.Context, projectID string) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM assets WHERE project_id = ?`, projectID)
	if err != nil {
		return 0, fmt.Errorf("delete assets: %w", err)
	}
	return res.RowsAffected()
}

// ListAssets returns a project's assets in creation order.
func (s *Store) ListAssets(ctx context.Context, projectID string) ([]*Asset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE project_id = ? ORDER BY created_at, rowid`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []*Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

// GetAsset fetches a single asset.
func (s *Store) GetAsset(ctx context.Context, id string) (*Asset, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = ?`, id)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("get asset", "asset "+id)
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return asset, nil
}

// MarkAssetGenerated stores the image URL and flips the asset to generated.
func (s *Store) MarkAssetGenerated(ctx context.Context, id, url string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE assets SET url = ?, status = ?, updated_at = ? WHERE id = ?`,
		url, AssetGenerated, s.timestamp(), id,
	)
	if err != nil {
		return fmt.Errorf("mark asset generated: %w", err)
	}
	return requireAffected(res, "mark asset generated", "asset "+id)
}
