package library

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/musiclite/musiclite/internal/config"
	"github.com/musiclite/musiclite/internal/metadata"
	"github.com/musiclite/musiclite/pkg/types"
)

// ErrScanInProgress is returned when a scan is requested while another one
// holds the guard. The caller decides whether to retry or drop the request.
var ErrScanInProgress = errors.New("library scan already in progress")

// Store is the catalog persistence the scanner needs.
type Store interface {
	GetSongs(ctx context.Context) ([]*types.Song, error)
	GetScanState(ctx context.Context) (types.ScanState, error)
	ReplaceCatalog(ctx context.Context, songs []*types.Song, state types.ScanState) error
}

// Scanner builds the song catalog from the device media library, enriching
// each new asset once through the resolver and caching the result.
type Scanner struct {
	source   types.MediaSource
	resolver *metadata.Resolver
	cache    *metadata.Cache
	store    Store

	pageSize       int
	quickScanLimit int
	freshness      time.Duration
	debug          bool

	scanMu sync.Mutex
}

func NewScanner(source types.MediaSource, resolver *metadata.Resolver, cache *metadata.Cache, store Store, cfg *config.Config) *Scanner {
	return &Scanner{
		source:         source,
		resolver:       resolver,
		cache:          cache,
		store:          store,
		pageSize:       cfg.Library.PageSize,
		quickScanLimit: cfg.Library.QuickScanLimit,
		freshness:      time.Duration(cfg.Library.FreshnessHours) * time.Hour,
		debug:          cfg.Debug,
	}
}

func (s *Scanner) debugLog(format string, args ...interface{}) {
	if !s.debug {
		return
	}
	log.Printf("[SCAN] "+format, args...)
}

// IsScanning reports whether a scan currently holds the guard.
func (s *Scanner) IsScanning() bool {
	if s.scanMu.TryLock() {
		s.scanMu.Unlock()
		return false
	}
	return true
}

// FullScan walks the entire device library and replaces the catalog. When
// the persisted catalog is fresh and force is false, the existing songs are
// returned untouched and no device or remote calls are made.
func (s *Scanner) FullScan(ctx context.Context, force bool) ([]*types.Song, error) {
	if !s.scanMu.TryLock() {
		return nil, ErrScanInProgress
	}
	defer s.scanMu.Unlock()

	if !force {
		state, err := s.store.GetScanState(ctx)
		if err != nil {
			return nil, fmt.Errorf("get scan state: %w", err)
		}
		if !state.LastScan.IsZero() && time.Since(state.LastScan) < s.freshness {
			songs, err := s.store.GetSongs(ctx)
			if err != nil {
				return nil, fmt.Errorf("get songs: %w", err)
			}
			if len(songs) > 0 {
				s.debugLog("Catalog fresh (last scan %v), skipping", state.LastScan)
				return songs, nil
			}
		}
	}

	if err := s.source.RequestPermission(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	var songs []*types.Song
	var failed int

	cursor := ""
	for {
		page, err := s.source.ListAssets(ctx, s.pageSize, cursor)
		if err != nil {
			return nil, fmt.Errorf("list assets: %w", err)
		}

		for _, asset := range page.Assets {
			song, err := s.processAsset(ctx, asset)
			if err != nil {
				failed++
				s.debugLog("Skipping asset %s: %v", asset.ID, err)
				continue
			}
			songs = append(songs, song)
		}

		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}

	state := types.ScanState{LastScan: time.Now()}
	if len(songs) > 0 {
		state.LastScanPath = songs[0].URI
	}

	if err := s.store.ReplaceCatalog(ctx, songs, state); err != nil {
		return nil, fmt.Errorf("replace catalog: %w", err)
	}

	log.Printf("[SCAN] Full scan complete: %d songs, %d skipped in %v", len(songs), failed, time.Since(start))
	return songs, nil
}

// IncrementalScan inspects only the newest assets and folds unknown ones
// into the existing catalog. Returns the full catalog either way.
func (s *Scanner) IncrementalScan(ctx context.Context) ([]*types.Song, error) {
	if !s.scanMu.TryLock() {
		return nil, ErrScanInProgress
	}
	defer s.scanMu.Unlock()

	if err := s.source.RequestPermission(ctx); err != nil {
		return nil, err
	}

	existing, err := s.store.GetSongs(ctx)
	if err != nil {
		return nil, fmt.Errorf("get songs: %w", err)
	}

	known := make(map[string]bool, len(existing))
	for _, song := range existing {
		known[song.ID] = true
	}

	page, err := s.source.ListAssets(ctx, s.quickScanLimit, "")
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}

	var added []*types.Song
	var failed int
	for _, asset := range page.Assets {
		if known[asset.ID] {
			continue
		}
		song, err := s.processAsset(ctx, asset)
		if err != nil {
			failed++
			s.debugLog("Skipping asset %s: %v", asset.ID, err)
			continue
		}
		added = append(added, song)
	}

	if len(added) == 0 {
		s.debugLog("Quick scan found nothing new (%d skipped)", failed)
		return existing, nil
	}

	// New assets are the newest, so they go in front to keep the catalog
	// newest-first.
	songs := append(added, existing...)

	state, err := s.store.GetScanState(ctx)
	if err != nil {
		return nil, fmt.Errorf("get scan state: %w", err)
	}
	state.LastScan = time.Now()
	state.LastScanPath = songs[0].URI

	if err := s.store.ReplaceCatalog(ctx, songs, state); err != nil {
		return nil, fmt.Errorf("replace catalog: %w", err)
	}

	log.Printf("[SCAN] Quick scan added %d songs (%d skipped)", len(added), failed)
	return songs, nil
}

// processAsset resolves one asset to a song, reusing the metadata cache so
// each asset is enriched at most once across all scans.
func (s *Scanner) processAsset(ctx context.Context, asset types.Asset) (*types.Song, error) {
	info, err := s.source.AssetDetails(ctx, asset)
	if err != nil {
		return nil, fmt.Errorf("asset details: %w", err)
	}

	partial, cached := s.cache.Get(ctx, asset.ID)
	if !cached {
		partial = s.resolver.Resolve(ctx, info.URI, info.Filename)
		fillFromEmbedded(partial, info.Embedded)
		s.cache.Put(ctx, asset.ID, partial)
	}

	return buildSong(asset, info, partial), nil
}

// fillFromEmbedded lets file tags replace sentinel or missing fields left by
// the resolver. Tags never override a concrete resolved value.
func fillFromEmbedded(partial *types.PartialSong, embedded *types.PartialSong) {
	if embedded == nil {
		return
	}
	if embedded.Title != "" && (partial.Title == "" || partial.Title == types.UnknownTitle) {
		partial.Title = embedded.Title
	}
	if embedded.Artist != "" && (partial.Artist == "" || partial.Artist == types.UnknownArtist) {
		partial.Artist = embedded.Artist
	}
	if embedded.Album != "" && (partial.Album == "" || partial.Album == types.UnknownAlbum) {
		partial.Album = embedded.Album
	}
	if embedded.Genre != "" && (partial.Genre == "" || partial.Genre == types.UnknownGenre) {
		partial.Genre = embedded.Genre
	}
}

func buildSong(asset types.Asset, info *types.AssetInfo, partial *types.PartialSong) *types.Song {
	song := &types.Song{
		ID:         asset.ID,
		Title:      partial.Title,
		Artist:     partial.Artist,
		Album:      partial.Album,
		Genre:      partial.Genre,
		CoverArt:   partial.CoverArt,
		URI:        info.URI,
		Source:     types.SourceLocal,
		ExternalID: partial.ExternalID,
	}

	if song.Title == "" {
		song.Title = types.UnknownTitle
	}
	if song.Artist == "" {
		song.Artist = types.UnknownArtist
	}
	if song.Album == "" {
		song.Album = types.UnknownAlbum
	}
	if song.Genre == "" {
		song.Genre = types.UnknownGenre
	}

	// Device-reported duration wins when present; the resolver's value is a
	// remote guess.
	song.Duration = info.Duration
	if song.Duration <= 0 {
		song.Duration = partial.Duration
	}

	return song
}
