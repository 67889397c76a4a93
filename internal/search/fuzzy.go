package search

import (
	"context"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/musiclite/musiclite/internal/config"
	"github.com/musiclite/musiclite/pkg/types"
)

// CatalogReader is the slice of storage the search engine needs.
type CatalogReader interface {
	GetSongs(ctx context.Context) ([]*types.Song, error)
}

// Engine ranks catalog songs against a query by substring and Levenshtein
// closeness over title, artist, and album.
type Engine struct {
	cfg     *config.Config
	catalog CatalogReader
}

func NewEngine(cfg *config.Config, catalog CatalogReader) *Engine {
	return &Engine{
		cfg:     cfg,
		catalog: catalog,
	}
}

func (e *Engine) Search(ctx context.Context, query string, limit int) ([]*types.Song, error) {
	if query == "" {
		return nil, nil
	}

	songs, err := e.catalog.GetSongs(ctx)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = e.cfg.Search.MaxResults
	}

	results := ScoreSongs(songs, query)
	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

type scoredSong struct {
	song  *types.Song
	score float64
}

// ScoreSongs ranks songs by match quality. Title matches outrank artist
// matches, which outrank album matches; near-misses get Levenshtein credit.
func ScoreSongs(songs []*types.Song, query string) []*types.Song {
	var scored []scoredSong
	queryLower := strings.ToLower(query)

	for _, song := range songs {
		score := 0.0

		titleLower := strings.ToLower(song.Title)
		if strings.Contains(titleLower, queryLower) {
			score += 10.0
		}

		distance := fuzzy.LevenshteinDistance(queryLower, titleLower)
		if distance <= len(queryLower)/2 {
			score += float64(len(queryLower) - distance)
		}

		if strings.Contains(strings.ToLower(song.Artist), queryLower) {
			score += 7.0
		}

		if strings.Contains(strings.ToLower(song.Album), queryLower) {
			score += 5.0
		}

		if score > 0 {
			scored = append(scored, scoredSong{song: song, score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	result := make([]*types.Song, 0, len(scored))
	for _, s := range scored {
		result = append(result, s.song)
	}

	return result
}
