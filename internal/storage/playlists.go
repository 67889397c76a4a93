package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/musiclite/musiclite/pkg/types"
)

// Playlist members are stored as song snapshots in the payload column, so a
// playlist survives full catalog rebuilds where song rows get replaced.

func (d *Database) GetPlaylists(ctx context.Context) ([]*types.Playlist, error) {
	start := time.Now()
	defer func() { d.debugLog("GetPlaylists", nil, time.Since(start)) }()

	if err := d.checkClosed(); err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, description, cover_art, generated, created_at, updated_at
		FROM playlists
		ORDER BY created_at DESC
	`)
	if err != nil {
		d.debugLog("GetPlaylists", err, time.Since(start))
		return nil, fmt.Errorf("query playlists: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Printf("Failed to close rows: %v", closeErr)
		}
	}()

	var playlists []*types.Playlist
	for rows.Next() {
		playlist, err := d.scanPlaylist(rows)
		if err != nil {
			d.debugLog("GetPlaylists", err, time.Since(start))
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		playlists = append(playlists, playlist)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	for _, playlist := range playlists {
		if err := d.loadPlaylistSongs(ctx, playlist); err != nil {
			d.debugLog("GetPlaylists", err, time.Since(start))
			return nil, fmt.Errorf("load playlist songs: %w", err)
		}
	}

	return playlists, nil
}

func (d *Database) GetPlaylist(ctx context.Context, id string) (*types.Playlist, error) {
	start := time.Now()
	defer func() { d.debugLog("GetPlaylist", nil, time.Since(start)) }()

	if err := d.checkClosed(); err != nil {
		return nil, err
	}

	row := d.db.QueryRowContext(ctx, `
		SELECT id, name, description, cover_art, generated, created_at, updated_at
		FROM playlists
		WHERE id = ?
	`, id)

	playlist, err := d.scanPlaylist(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		d.debugLog("GetPlaylist", err, time.Since(start))
		return nil, fmt.Errorf("scan playlist: %w", err)
	}

	if err := d.loadPlaylistSongs(ctx, playlist); err != nil {
		d.debugLog("GetPlaylist", err, time.Since(start))
		return nil, fmt.Errorf("load playlist songs: %w", err)
	}

	return playlist, nil
}

func (d *Database) SavePlaylist(ctx context.Context, playlist *types.Playlist) error {
	start := time.Now()
	defer func() { d.debugLog("SavePlaylist", nil, time.Since(start)) }()

	if err := d.checkClosed(); err != nil {
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		d.debugLog("SavePlaylist", err, time.Since(start))
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && rollbackErr != sql.ErrTxDone {
			log.Printf("Failed to rollback transaction: %v", rollbackErr)
		}
	}()

	if err := d.savePlaylistInTx(ctx, tx, playlist); err != nil {
		d.debugLog("SavePlaylist", err, time.Since(start))
		return err
	}

	return tx.Commit()
}

func (d *Database) DeletePlaylist(ctx context.Context, id string) error {
	start := time.Now()
	defer func() { d.debugLog("DeletePlaylist", nil, time.Since(start)) }()

	if err := d.checkClosed(); err != nil {
		return err
	}

	_, err := d.db.ExecContext(ctx, "DELETE FROM playlists WHERE id = ?", id)
	return err
}

// ReplaceGeneratedPlaylists drops every generated playlist and writes the new
// generation in one transaction. User playlists are untouched.
func (d *Database) ReplaceGeneratedPlaylists(ctx context.Context, playlists []*types.Playlist) error {
	start := time.Now()
	defer func() { d.debugLog("ReplaceGeneratedPlaylists", nil, time.Since(start)) }()

	if err := d.checkClosed(); err != nil {
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		d.debugLog("ReplaceGeneratedPlaylists", err, time.Since(start))
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && rollbackErr != sql.ErrTxDone {
			log.Printf("Failed to rollback transaction: %v", rollbackErr)
		}
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM playlists WHERE generated = TRUE"); err != nil {
		return fmt.Errorf("clear generated playlists: %w", err)
	}

	for _, playlist := range playlists {
		playlist.Generated = true
		if err := d.savePlaylistInTx(ctx, tx, playlist); err != nil {
			d.debugLog("ReplaceGeneratedPlaylists", err, time.Since(start))
			return err
		}
	}

	return tx.Commit()
}

func (d *Database) savePlaylistInTx(ctx context.Context, tx *sql.Tx, playlist *types.Playlist) error {
	now := time.Now()
	if playlist.CreatedAt.IsZero() {
		playlist.CreatedAt = now
	}
	playlist.UpdatedAt = now

	_, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO playlists (
			id, name, description, cover_art, generated, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`, playlist.ID, playlist.Name, playlist.Description, playlist.CoverArt,
		playlist.Generated, playlist.CreatedAt, playlist.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert playlist: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM playlist_songs WHERE playlist_id = ?", playlist.ID); err != nil {
		return fmt.Errorf("delete old playlist songs: %w", err)
	}

	for i, song := range playlist.Songs {
		payload, err := json.Marshal(song)
		if err != nil {
			return fmt.Errorf("encode playlist song: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO playlist_songs (playlist_id, song_id, position, payload)
			VALUES (?, ?, ?, ?)
		`, playlist.ID, song.ID, i, string(payload))
		if err != nil {
			return fmt.Errorf("insert playlist song: %w", err)
		}
	}

	return nil
}

func (d *Database) scanPlaylist(scanner interface {
	Scan(dest ...interface{}) error
}) (*types.Playlist, error) {
	var playlist types.Playlist

	err := scanner.Scan(
		&playlist.ID, &playlist.Name, &playlist.Description, &playlist.CoverArt,
		&playlist.Generated, &playlist.CreatedAt, &playlist.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &playlist, nil
}

func (d *Database) loadPlaylistSongs(ctx context.Context, playlist *types.Playlist) error {
	rows, err := d.db.QueryContext(ctx, `
		SELECT payload FROM playlist_songs
		WHERE playlist_id = ?
		ORDER BY position
	`, playlist.ID)
	if err != nil {
		return fmt.Errorf("query playlist songs: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Printf("Failed to close rows: %v", closeErr)
		}
	}()

	var songs []*types.Song
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return fmt.Errorf("scan playlist song: %w", err)
		}

		var song types.Song
		if err := json.Unmarshal([]byte(payload), &song); err != nil {
			return fmt.Errorf("decode playlist song: %w", err)
		}
		songs = append(songs, &song)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}

	playlist.Songs = songs
	return nil
}
