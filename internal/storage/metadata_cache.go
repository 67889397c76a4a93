package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/musiclite/musiclite/pkg/types"
)

// GetCachedMetadata returns the enrichment result stored for an asset.
// The second return is false when the asset was never resolved; a sparse or
// empty partial with found=true still means "do not resolve again".
func (d *Database) GetCachedMetadata(ctx context.Context, assetID string) (*types.PartialSong, bool, error) {
	start := time.Now()
	defer func() { d.debugLog("GetCachedMetadata", nil, time.Since(start)) }()

	if err := d.checkClosed(); err != nil {
		return nil, false, err
	}

	var payload string
	err := d.db.QueryRowContext(ctx,
		"SELECT payload FROM metadata_cache WHERE asset_id = ?", assetID,
	).Scan(&payload)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		d.debugLog("GetCachedMetadata", err, time.Since(start))
		return nil, false, fmt.Errorf("get cached metadata: %w", err)
	}

	var partial types.PartialSong
	if err := json.Unmarshal([]byte(payload), &partial); err != nil {
		d.debugLog("GetCachedMetadata", err, time.Since(start))
		return nil, false, fmt.Errorf("decode cached metadata: %w", err)
	}

	return &partial, true, nil
}

func (d *Database) PutCachedMetadata(ctx context.Context, assetID string, partial *types.PartialSong) error {
	start := time.Now()
	defer func() { d.debugLog("PutCachedMetadata", nil, time.Since(start)) }()

	if err := d.checkClosed(); err != nil {
		return err
	}

	payload, err := json.Marshal(partial)
	if err != nil {
		return fmt.Errorf("encode cached metadata: %w", err)
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO metadata_cache (asset_id, payload, created_at)
		VALUES (?, ?, ?)
	`, assetID, string(payload), time.Now())
	if err != nil {
		d.debugLog("PutCachedMetadata", err, time.Since(start))
		return fmt.Errorf("put cached metadata: %w", err)
	}

	return nil
}

func (d *Database) CachedMetadataCount(ctx context.Context) (int, error) {
	if err := d.checkClosed(); err != nil {
		return 0, err
	}

	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM metadata_cache").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count cached metadata: %w", err)
	}
	return count, nil
}
