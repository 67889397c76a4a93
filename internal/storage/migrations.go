package storage

import (
	"fmt"
)

func (d *Database) runMigrations() error {
	migrations := []string{
		createTables,
		createIndexes,
	}

	for i, migration := range migrations {
		if _, err := d.db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}

const createTables = `
CREATE TABLE IF NOT EXISTS songs (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	artist TEXT NOT NULL,
	album TEXT DEFAULT '',
	genre TEXT DEFAULT '',
	duration REAL DEFAULT 0,
	cover_art TEXT DEFAULT '',
	uri TEXT DEFAULT '',
	local_uri TEXT DEFAULT '',
	source TEXT NOT NULL DEFAULT 'local',
	external_id TEXT DEFAULT '',
	downloaded_at TIMESTAMP,
	position INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS scan_state (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	last_scan TIMESTAMP NOT NULL,
	last_scan_path TEXT DEFAULT ''
);

CREATE TABLE IF NOT EXISTS metadata_cache (
	asset_id TEXT PRIMARY KEY,
	payload TEXT NOT NULL DEFAULT '{}',
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS play_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	song_id TEXT NOT NULL,
	title TEXT NOT NULL,
	artist TEXT DEFAULT '',
	genre TEXT DEFAULT '',
	played_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS playlists (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT DEFAULT '',
	cover_art TEXT DEFAULT '',
	generated BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS playlist_songs (
	playlist_id TEXT NOT NULL,
	song_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	payload TEXT NOT NULL DEFAULT '{}',
	PRIMARY KEY (playlist_id, song_id),
	FOREIGN KEY (playlist_id) REFERENCES playlists(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS player_settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const createIndexes = `
CREATE INDEX IF NOT EXISTS idx_songs_position ON songs(position);
CREATE INDEX IF NOT EXISTS idx_songs_title ON songs(title);
CREATE INDEX IF NOT EXISTS idx_songs_artist ON songs(artist);
CREATE INDEX IF NOT EXISTS idx_songs_genre ON songs(genre);

CREATE INDEX IF NOT EXISTS idx_play_history_song_id ON play_history(song_id);
CREATE INDEX IF NOT EXISTS idx_play_history_played_at ON play_history(played_at);

CREATE INDEX IF NOT EXISTS idx_playlist_songs_playlist ON playlist_songs(playlist_id);
CREATE INDEX IF NOT EXISTS idx_playlist_songs_position ON playlist_songs(playlist_id, position);

CREATE INDEX IF NOT EXISTS idx_playlists_generated ON playlists(generated);
`
