package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"

	"github.com/musiclite/musiclite/internal/handlers"
	"github.com/musiclite/musiclite/internal/library"
	"github.com/musiclite/musiclite/pkg/types"
)

// LibraryStore is the catalog persistence the service reads.
type LibraryStore interface {
	GetSongs(ctx context.Context) ([]*types.Song, error)
}

// LibraryService orchestrates startup and keeps the catalog, the scanner,
// and the recommender talking to each other.
type LibraryService struct {
	scanner *library.Scanner
	store   LibraryStore
	recs    *RecommendationService
	bus     *handlers.EventBus
	debug   bool
}

func NewLibraryService(scanner *library.Scanner, store LibraryStore, recs *RecommendationService, bus *handlers.EventBus, debug bool) *LibraryService {
	s := &LibraryService{
		scanner: scanner,
		store:   store,
		recs:    recs,
		bus:     bus,
		debug:   debug,
	}

	if bus != nil && recs != nil {
		bus.SubscribeSongStarted(func(song *types.Song) {
			if err := recs.TrackPlay(context.Background(), song); err != nil {
				log.Printf("[LIBRARY] Failed to track play: %v", err)
			}
		})
	}

	return s
}

func (s *LibraryService) debugLog(format string, args ...interface{}) {
	if !s.debug {
		return
	}
	log.Printf("[LIBRARY] "+format, args...)
}

// Initialize brings the library up: persisted catalog first, then a quick
// scan to pick up new files, or a forced full scan on an empty catalog.
// Returns the catalog to show.
func (s *LibraryService) Initialize(ctx context.Context) ([]*types.Song, error) {
	cached, err := s.store.GetSongs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	var songs []*types.Song
	if len(cached) > 0 {
		s.debugLog("Loaded %d cached songs, running quick scan", len(cached))
		songs, err = s.scanner.IncrementalScan(ctx)
		if errors.Is(err, library.ErrScanInProgress) {
			songs, err = cached, nil
		}
	} else {
		s.debugLog("Empty catalog, running full scan")
		songs, err = s.scanner.FullScan(ctx, true)
	}
	if err != nil {
		return nil, err
	}

	if s.bus != nil {
		s.bus.PublishScanComplete(len(songs))
		s.bus.PublishLibraryUpdated(songs)
	}

	if s.recs != nil {
		if _, err := s.recs.GenerateDailyMixes(ctx); err != nil {
			log.Printf("[LIBRARY] Daily mix generation failed: %v", err)
		}
	}

	return songs, nil
}

func (s *LibraryService) Songs(ctx context.Context) ([]*types.Song, error) {
	return s.store.GetSongs(ctx)
}

// Rescan forces a full rebuild of the catalog.
func (s *LibraryService) Rescan(ctx context.Context) ([]*types.Song, error) {
	songs, err := s.scanner.FullScan(ctx, true)
	if err != nil {
		return nil, err
	}

	if s.bus != nil {
		s.bus.PublishScanComplete(len(songs))
		s.bus.PublishLibraryUpdated(songs)
	}
	return songs, nil
}

// ShuffledQueue picks a random starting song and returns the rest of the
// catalog shuffled behind it, for shuffle-play and repeat-all replenishment.
func (s *LibraryService) ShuffledQueue(ctx context.Context) (*types.Song, []*types.Song, error) {
	songs, err := s.store.GetSongs(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(songs) == 0 {
		return nil, nil, nil
	}

	first := songs[rand.Intn(len(songs))]

	rest := make([]*types.Song, 0, len(songs)-1)
	for _, song := range songs {
		if song.ID != first.ID {
			rest = append(rest, song)
		}
	}
	rand.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })

	return first, rest, nil
}
