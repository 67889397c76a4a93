package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/musiclite/musiclite/pkg/types"
)

// maxPlayHistory caps the history table. Older entries are trimmed in the
// same transaction that appends, so the cap can never be exceeded.
const maxPlayHistory = 1000

func (d *Database) AddPlayHistory(ctx context.Context, entry *types.PlayHistoryEntry) error {
	start := time.Now()
	defer func() { d.debugLog("AddPlayHistory", nil, time.Since(start)) }()

	if err := d.checkClosed(); err != nil {
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		d.debugLog("AddPlayHistory", err, time.Since(start))
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && rollbackErr != sql.ErrTxDone {
			log.Printf("Failed to rollback transaction: %v", rollbackErr)
		}
	}()

	if entry.PlayedAt.IsZero() {
		entry.PlayedAt = time.Now()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO play_history (song_id, title, artist, genre, played_at)
		VALUES (?, ?, ?, ?, ?)
	`, entry.SongID, entry.Title, entry.Artist, entry.Genre, entry.PlayedAt)
	if err != nil {
		return fmt.Errorf("insert play history: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM play_history WHERE id NOT IN (
			SELECT id FROM play_history
			ORDER BY played_at DESC, id DESC
			LIMIT ?
		)
	`, maxPlayHistory)
	if err != nil {
		return fmt.Errorf("trim play history: %w", err)
	}

	return tx.Commit()
}

// GetPlayHistory returns up to limit entries, most recent first. limit <= 0
// returns everything.
func (d *Database) GetPlayHistory(ctx context.Context, limit int) ([]*types.PlayHistoryEntry, error) {
	start := time.Now()
	defer func() { d.debugLog("GetPlayHistory", nil, time.Since(start)) }()

	if err := d.checkClosed(); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = maxPlayHistory
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, song_id, title, artist, genre, played_at
		FROM play_history
		ORDER BY played_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		d.debugLog("GetPlayHistory", err, time.Since(start))
		return nil, fmt.Errorf("query play history: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Printf("Failed to close rows: %v", closeErr)
		}
	}()

	var entries []*types.PlayHistoryEntry
	for rows.Next() {
		var entry types.PlayHistoryEntry
		if err := rows.Scan(&entry.ID, &entry.SongID, &entry.Title, &entry.Artist, &entry.Genre, &entry.PlayedAt); err != nil {
			d.debugLog("GetPlayHistory", err, time.Since(start))
			return nil, fmt.Errorf("scan play history: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return entries, nil
}

func (d *Database) PlayHistoryCount(ctx context.Context) (int, error) {
	if err := d.checkClosed(); err != nil {
		return 0, err
	}

	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM play_history").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count play history: %w", err)
	}
	return count, nil
}
