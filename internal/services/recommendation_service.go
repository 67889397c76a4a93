package services

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sort"

	"github.com/google/uuid"

	"github.com/musiclite/musiclite/internal/metadata"
	"github.com/musiclite/musiclite/pkg/types"
)

const (
	// Mixes need a listening signal to be worth anything; below these
	// thresholds the library is too quiet to rank genres.
	minPlaysForMixes = 20
	minSongsForMixes = 20

	mixSize      = 10
	topMixGenres = 3
)

// RecommendationStore is the persistence surface the recommender needs.
type RecommendationStore interface {
	AddPlayHistory(ctx context.Context, entry *types.PlayHistoryEntry) error
	GetPlayHistory(ctx context.Context, limit int) ([]*types.PlayHistoryEntry, error)
	GetSongs(ctx context.Context) ([]*types.Song, error)
	ReplaceGeneratedPlaylists(ctx context.Context, playlists []*types.Playlist) error
}

// RecommendationService turns play history into daily mixes and recommended
// playlists.
type RecommendationService struct {
	store RecommendationStore
	debug bool
}

func NewRecommendationService(store RecommendationStore, debug bool) *RecommendationService {
	return &RecommendationService{store: store, debug: debug}
}

func (s *RecommendationService) debugLog(format string, args ...interface{}) {
	if !s.debug {
		return
	}
	log.Printf("[RECS] "+format, args...)
}

// TrackPlay records one listen.
func (s *RecommendationService) TrackPlay(ctx context.Context, song *types.Song) error {
	if song == nil {
		return nil
	}

	entry := &types.PlayHistoryEntry{
		SongID: song.ID,
		Title:  song.Title,
		Artist: song.Artist,
		Genre:  song.Genre,
	}

	if err := s.store.AddPlayHistory(ctx, entry); err != nil {
		return fmt.Errorf("track play: %w", err)
	}

	s.debugLog("Tracked play: %s - %s", song.Artist, song.Title)
	return nil
}

func (s *RecommendationService) PlayCount(ctx context.Context) (int, error) {
	history, err := s.store.GetPlayHistory(ctx, 0)
	if err != nil {
		return 0, err
	}
	return len(history), nil
}

// MostPlayed returns catalog songs ordered by play count, most played first.
func (s *RecommendationService) MostPlayed(ctx context.Context, limit int) ([]*types.Song, error) {
	history, err := s.store.GetPlayHistory(ctx, 0)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, entry := range history {
		counts[entry.SongID]++
	}

	songs, err := s.store.GetSongs(ctx)
	if err != nil {
		return nil, err
	}

	var played []*types.Song
	for _, song := range songs {
		if counts[song.ID] > 0 {
			played = append(played, song)
		}
	}

	sort.SliceStable(played, func(i, j int) bool {
		return counts[played[i].ID] > counts[played[j].ID]
	})

	if limit > 0 && len(played) > limit {
		played = played[:limit]
	}
	return played, nil
}

// FavoriteGenres returns genres by listen count, most listened first.
func (s *RecommendationService) FavoriteGenres(ctx context.Context, limit int) ([]string, error) {
	history, err := s.store.GetPlayHistory(ctx, 0)
	if err != nil {
		return nil, err
	}
	return rankedKeys(history, func(e *types.PlayHistoryEntry) string { return e.Genre }, limit), nil
}

// FavoriteArtists returns artists by listen count, most listened first.
func (s *RecommendationService) FavoriteArtists(ctx context.Context, limit int) ([]string, error) {
	history, err := s.store.GetPlayHistory(ctx, 0)
	if err != nil {
		return nil, err
	}
	return rankedKeys(history, func(e *types.PlayHistoryEntry) string { return e.Artist }, limit), nil
}

func rankedKeys(history []*types.PlayHistoryEntry, keyFn func(*types.PlayHistoryEntry) string, limit int) []string {
	counts := make(map[string]int)
	for _, entry := range history {
		key := keyFn(entry)
		if key == "" || key == types.UnknownGenre || key == types.UnknownArtist {
			continue
		}
		counts[key]++
	}

	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys
}

// HasEnoughData reports whether mixes would be meaningful yet.
func (s *RecommendationService) HasEnoughData(ctx context.Context) (bool, error) {
	history, err := s.store.GetPlayHistory(ctx, 0)
	if err != nil {
		return false, err
	}
	if len(history) < minPlaysForMixes {
		return false, nil
	}

	songs, err := s.store.GetSongs(ctx)
	if err != nil {
		return false, err
	}
	return len(songs) >= minSongsForMixes, nil
}

// GenerateDailyMixes builds one mix per top genre and persists them,
// replacing the previous generation. With too little data it leaves the
// stored mixes alone and returns nothing.
func (s *RecommendationService) GenerateDailyMixes(ctx context.Context) ([]*types.Playlist, error) {
	enough, err := s.HasEnoughData(ctx)
	if err != nil {
		return nil, err
	}
	if !enough {
		s.debugLog("Not enough data for daily mixes")
		return nil, nil
	}

	genres, err := s.FavoriteGenres(ctx, topMixGenres)
	if err != nil {
		return nil, err
	}
	if len(genres) == 0 {
		return nil, nil
	}

	songs, err := s.store.GetSongs(ctx)
	if err != nil {
		return nil, err
	}

	byGenre := make(map[string][]*types.Song)
	for _, song := range songs {
		byGenre[song.Genre] = append(byGenre[song.Genre], song)
	}

	var mixes []*types.Playlist
	for i, genre := range genres {
		mix := &types.Playlist{
			ID:          uuid.NewString(),
			Name:        fmt.Sprintf("Daily Mix %d", i+1),
			Description: fmt.Sprintf("Your %s favorites and more", genre),
			CoverArt:    metadata.PlaceholderCover(),
			Generated:   true,
			Songs:       padMix(byGenre[genre], songs),
		}
		mixes = append(mixes, mix)
	}

	if err := s.store.ReplaceGeneratedPlaylists(ctx, mixes); err != nil {
		return nil, fmt.Errorf("persist daily mixes: %w", err)
	}

	s.debugLog("Generated %d daily mixes", len(mixes))
	return mixes, nil
}

// padMix shuffles the genre's songs and tops the mix up to size with random
// picks from the rest of the catalog.
func padMix(genreSongs []*types.Song, all []*types.Song) []*types.Song {
	picked := make([]*types.Song, len(genreSongs))
	copy(picked, genreSongs)
	rand.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })

	if len(picked) > mixSize {
		return picked[:mixSize]
	}

	in := make(map[string]bool, len(picked))
	for _, song := range picked {
		in[song.ID] = true
	}

	rest := make([]*types.Song, 0, len(all))
	for _, song := range all {
		if !in[song.ID] {
			rest = append(rest, song)
		}
	}
	rand.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })

	for _, song := range rest {
		if len(picked) >= mixSize {
			break
		}
		picked = append(picked, song)
	}

	return picked
}

// GenerateRecommendedPlaylist scores the catalog against listening habits:
// an artist hit counts double a genre hit.
func (s *RecommendationService) GenerateRecommendedPlaylist(ctx context.Context, name string, size int) (*types.Playlist, error) {
	history, err := s.store.GetPlayHistory(ctx, 0)
	if err != nil {
		return nil, err
	}

	genreCounts := make(map[string]int)
	artistCounts := make(map[string]int)
	for _, entry := range history {
		genreCounts[entry.Genre]++
		artistCounts[entry.Artist]++
	}

	songs, err := s.store.GetSongs(ctx)
	if err != nil {
		return nil, err
	}

	scored := make([]*types.Song, len(songs))
	copy(scored, songs)
	sort.SliceStable(scored, func(i, j int) bool {
		si := genreCounts[scored[i].Genre] + artistCounts[scored[i].Artist]*2
		sj := genreCounts[scored[j].Genre] + artistCounts[scored[j].Artist]*2
		return si > sj
	})

	if size <= 0 {
		size = mixSize
	}
	if len(scored) > size {
		scored = scored[:size]
	}

	return &types.Playlist{
		ID:          uuid.NewString(),
		Name:        name,
		Description: "Songs picked from your listening habits",
		CoverArt:    metadata.PlaceholderCover(),
		Generated:   true,
		Songs:       scored,
	}, nil
}
