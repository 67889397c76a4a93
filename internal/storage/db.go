package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/musiclite/musiclite/internal/config"
	"github.com/musiclite/musiclite/pkg/types"
)

type Database struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
	debug  bool
}

func (d *Database) GetDB() *sql.DB {
	return d.db
}

func NewDatabase(cfg *config.Config) (*Database, error) {
	dbDir := filepath.Dir(cfg.Storage.DatabasePath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := openDatabase(cfg.Storage.DatabasePath, cfg.Storage.EnableWAL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	storage := &Database{
		db:    db,
		debug: cfg.Debug,
	}

	if err := storage.runMigrations(); err != nil {
		if closeErr := storage.Close(); closeErr != nil {
			log.Printf("Failed to close database after migration error: %v", closeErr)
		}
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return storage, nil
}

func openDatabase(dbPath string, enableWAL bool) (*sql.DB, error) {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		log.Printf("Creating new database at %s", dbPath)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=memory",
		"PRAGMA cache_size=-64000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=30000",
	}

	if enableWAL {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			if closeErr := db.Close(); closeErr != nil {
				log.Printf("Failed to close database after pragma error: %v", closeErr)
			}
			return nil, fmt.Errorf("execute pragma %s: %w", pragma, err)
		}
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Printf("Failed to close database after ping error: %v", closeErr)
		}
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

func (d *Database) debugLog(operation string, err error, duration time.Duration) {
	if !d.debug || err == nil {
		return
	}

	log.Printf("[DB] %s failed in %v: %v", operation, duration, err)
}

func (d *Database) checkClosed() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return fmt.Errorf("database is closed")
	}
	return nil
}

// GetSongs returns the whole catalog in its persisted order.
func (d *Database) GetSongs(ctx context.Context) ([]*types.Song, error) {
	start := time.Now()
	defer func() { d.debugLog("GetSongs", nil, time.Since(start)) }()

	if err := d.checkClosed(); err != nil {
		return nil, err
	}

	query := `
		SELECT id, title, artist, album, genre, duration, cover_art,
		       uri, local_uri, source, external_id, downloaded_at
		FROM songs
		ORDER BY position
	`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		d.debugLog("GetSongs", err, time.Since(start))
		return nil, fmt.Errorf("query songs: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			log.Printf("Failed to close rows: %v", closeErr)
		}
	}()

	var songs []*types.Song
	for rows.Next() {
		song, err := d.scanSong(rows)
		if err != nil {
			d.debugLog("GetSongs", err, time.Since(start))
			return nil, fmt.Errorf("scan song: %w", err)
		}
		songs = append(songs, song)
	}

	if err := rows.Err(); err != nil {
		d.debugLog("GetSongs", err, time.Since(start))
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return songs, nil
}

func (d *Database) GetSong(ctx context.Context, id string) (*types.Song, error) {
	start := time.Now()
	defer func() { d.debugLog("GetSong", nil, time.Since(start)) }()

	if err := d.checkClosed(); err != nil {
		return nil, err
	}

	query := `
		SELECT id, title, artist, album, genre, duration, cover_art,
		       uri, local_uri, source, external_id, downloaded_at
		FROM songs
		WHERE id = ?
	`

	row := d.db.QueryRowContext(ctx, query, id)
	song, err := d.scanSong(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		d.debugLog("GetSong", err, time.Since(start))
		return nil, fmt.Errorf("scan song: %w", err)
	}

	return song, nil
}

// ReplaceCatalog swaps the entire songs table and the scan state in one
// transaction, so readers never see a half-written catalog.
func (d *Database) ReplaceCatalog(ctx context.Context, songs []*types.Song, state types.ScanState) error {
	start := time.Now()
	defer func() { d.debugLog("ReplaceCatalog", nil, time.Since(start)) }()

	if err := d.checkClosed(); err != nil {
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		d.debugLog("ReplaceCatalog", err, time.Since(start))
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && rollbackErr != sql.ErrTxDone {
			log.Printf("Failed to rollback transaction: %v", rollbackErr)
		}
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM songs"); err != nil {
		return fmt.Errorf("clear songs: %w", err)
	}

	insert := `
		INSERT INTO songs (
			id, title, artist, album, genre, duration, cover_art,
			uri, local_uri, source, external_id, downloaded_at, position
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for i, song := range songs {
		_, err := tx.ExecContext(ctx, insert,
			song.ID, song.Title, song.Artist, song.Album, song.Genre,
			song.Duration, song.CoverArt, song.URI, song.LocalURI,
			string(song.Source), song.ExternalID, song.DownloadedAt, i,
		)
		if err != nil {
			return fmt.Errorf("insert song %s: %w", song.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO scan_state (id, last_scan, last_scan_path)
		VALUES (1, ?, ?)
	`, state.LastScan, state.LastScanPath)
	if err != nil {
		return fmt.Errorf("update scan state: %w", err)
	}

	return tx.Commit()
}

// GetScanState returns the persisted scan bookkeeping. A zero-value state
// (no error) means no scan has completed yet.
func (d *Database) GetScanState(ctx context.Context) (types.ScanState, error) {
	start := time.Now()
	defer func() { d.debugLog("GetScanState", nil, time.Since(start)) }()

	var state types.ScanState

	if err := d.checkClosed(); err != nil {
		return state, err
	}

	row := d.db.QueryRowContext(ctx, "SELECT last_scan, last_scan_path FROM scan_state WHERE id = 1")
	if err := row.Scan(&state.LastScan, &state.LastScanPath); err != nil {
		if err == sql.ErrNoRows {
			return types.ScanState{}, nil
		}
		d.debugLog("GetScanState", err, time.Since(start))
		return state, fmt.Errorf("scan state: %w", err)
	}

	return state, nil
}

func (d *Database) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}

	d.closed = true

	if d.db != nil {
		if _, err := d.db.Exec("PRAGMA optimize"); err != nil {
			log.Printf("Warning: Failed to optimize database: %v", err)
		}
		return d.db.Close()
	}

	return nil
}

func (d *Database) scanSong(scanner interface {
	Scan(dest ...interface{}) error
}) (*types.Song, error) {
	var song types.Song
	var source string
	var downloadedAt sql.NullTime

	err := scanner.Scan(
		&song.ID, &song.Title, &song.Artist, &song.Album, &song.Genre,
		&song.Duration, &song.CoverArt, &song.URI, &song.LocalURI,
		&source, &song.ExternalID, &downloadedAt,
	)
	if err != nil {
		return nil, err
	}

	song.Source = types.SongSource(source)
	if downloadedAt.Valid {
		t := downloadedAt.Time
		song.DownloadedAt = &t
	}

	return &song, nil
}
